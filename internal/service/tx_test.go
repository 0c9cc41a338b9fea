package service

import "context"

type testTxRepos struct {
	queryLogs QueryLogTxRepository
	feedback  FeedbackTxRepository
	audit     AuditTxRepository
	state     StateTxRepository
}

func (t *testTxRepos) QueryLogs() QueryLogTxRepository {
	return t.queryLogs
}

func (t *testTxRepos) Feedback() FeedbackTxRepository {
	return t.feedback
}

func (t *testTxRepos) Audit() AuditTxRepository {
	return t.audit
}

func (t *testTxRepos) State() StateTxRepository {
	return t.state
}

type testTxRunner struct {
	repos  TxRepositories
	err    error
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	if t.err != nil {
		return t.err
	}
	return fn(t.repos)
}
