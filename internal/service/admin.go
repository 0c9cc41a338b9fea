package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/deskmind/deskmind/internal/domain"
	"github.com/deskmind/deskmind/internal/pagination"
	"github.com/deskmind/deskmind/internal/telemetry"
)

// KnowledgeStore is the store surface the admin layer wraps.
type KnowledgeStore interface {
	AddEntry(ctx context.Context, input AddEntryInput) (*domain.FAQ, error)
	UpdateEntry(ctx context.Context, id, title, body string, tags []string) (*domain.FAQ, error)
	DeleteEntry(ctx context.Context, id string) (bool, error)
	GetEntry(ctx context.Context, id string) (*domain.FAQ, error)
	Stats(ctx context.Context) (*StoreStats, error)
}

// AuditRepositoryInterface defines the repository interface for the audit trail
type AuditRepositoryInterface interface {
	ListRecent(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*domain.AuditEntry, *pagination.Cursor, error)
}

// StateRepositoryInterface defines the repository interface for the change counter
type StateRepositoryInterface interface {
	GetChangeCounter(ctx context.Context) (int64, *time.Time, error)
	Acknowledge(ctx context.Context, at time.Time) error
}

// MutationResult is the admin-facing outcome of one knowledge mutation.
// Failures are reported in the result rather than raised, so callers
// always get a uniform shape.
type MutationResult struct {
	Success            bool
	ID                 string
	ReindexRecommended bool
	Error              string
}

// BulkResult summarizes a bulk load.
type BulkResult struct {
	Added   int
	Failed  int
	Results []*MutationResult
}

// KBStatus reports collection size alongside the maintenance counter.
type KBStatus struct {
	EntryCount         int64
	Status             string
	ChangeCounter      int64
	ReindexThreshold   int64
	ReindexRecommended bool
	AcknowledgedAt     *time.Time
}

// AdminService wraps knowledge store mutations with audit logging and
// the reindex change counter. Each successful mutation writes its audit
// entry and bumps the counter in one transaction; the counter only
// resets through AcknowledgeReindex.
type AdminService struct {
	store            KnowledgeStore
	audit            AuditRepositoryInterface
	state            StateRepositoryInterface
	txRunner         TxRunner
	uuidGen          UUIDGenerator
	reindexThreshold int64
}

// NewAdminService creates a new AdminService instance
func NewAdminService(store KnowledgeStore, audit AuditRepositoryInterface, state StateRepositoryInterface, txRunner TxRunner, reindexThreshold int64) *AdminService {
	return NewAdminServiceWithUUIDGen(store, audit, state, txRunner, reindexThreshold, &DefaultUUIDGenerator{})
}

// NewAdminServiceWithUUIDGen creates a new AdminService with custom UUID generator (for testing)
func NewAdminServiceWithUUIDGen(store KnowledgeStore, audit AuditRepositoryInterface, state StateRepositoryInterface, txRunner TxRunner, reindexThreshold int64, uuidGen UUIDGenerator) *AdminService {
	if reindexThreshold <= 0 {
		reindexThreshold = 10
	}
	return &AdminService{
		store:            store,
		audit:            audit,
		state:            state,
		txRunner:         txRunner,
		uuidGen:          uuidGen,
		reindexThreshold: reindexThreshold,
	}
}

// AddFAQ adds an entry, records the audit trail and reports whether a
// maintenance pass is due.
func (s *AdminService) AddFAQ(ctx context.Context, input AddEntryInput, actor string) *MutationResult {
	ctx, span := telemetry.StartSpan(ctx, "AdminService.AddFAQ", telemetry.SpanAttributes{
		FAQID:     input.ID,
		Actor:     actor,
		Operation: "add",
	})
	defer span.End()

	entry, err := s.store.AddEntry(ctx, input)
	if err != nil {
		return &MutationResult{Success: false, Error: err.Error()}
	}

	recommended := s.recordMutation(ctx, domain.AuditOperationAdd, entry.ID, actor,
		fmt.Sprintf("added %q (%d chars)", entry.Title, entry.BodyLength))

	return &MutationResult{Success: true, ID: entry.ID, ReindexRecommended: recommended}
}

// UpdateFAQ replaces an entry's content and re-embeds it.
func (s *AdminService) UpdateFAQ(ctx context.Context, id, title, body string, tags []string, actor string) *MutationResult {
	ctx, span := telemetry.StartSpan(ctx, "AdminService.UpdateFAQ", telemetry.SpanAttributes{
		FAQID:     id,
		Actor:     actor,
		Operation: "update",
	})
	defer span.End()

	entry, err := s.store.UpdateEntry(ctx, id, title, body, tags)
	if err != nil {
		return &MutationResult{Success: false, ID: id, Error: err.Error()}
	}

	recommended := s.recordMutation(ctx, domain.AuditOperationUpdate, entry.ID, actor,
		fmt.Sprintf("updated %q (%d chars)", entry.Title, entry.BodyLength))

	return &MutationResult{Success: true, ID: entry.ID, ReindexRecommended: recommended}
}

// DeleteFAQ removes an entry.
func (s *AdminService) DeleteFAQ(ctx context.Context, id, actor string) *MutationResult {
	ctx, span := telemetry.StartSpan(ctx, "AdminService.DeleteFAQ", telemetry.SpanAttributes{
		FAQID:     id,
		Actor:     actor,
		Operation: "delete",
	})
	defer span.End()

	existed, err := s.store.DeleteEntry(ctx, id)
	if err != nil {
		return &MutationResult{Success: false, ID: id, Error: err.Error()}
	}
	if !existed {
		return &MutationResult{Success: false, ID: id, Error: domain.ErrFAQNotFound.Error()}
	}

	recommended := s.recordMutation(ctx, domain.AuditOperationDelete, id, actor, "deleted entry")

	return &MutationResult{Success: true, ID: id, ReindexRecommended: recommended}
}

// GetFAQ retrieves a single entry. Reads bypass the audit trail.
func (s *AdminService) GetFAQ(ctx context.Context, id string) (*domain.FAQ, error) {
	return s.store.GetEntry(ctx, id)
}

// BulkAdd loads many entries, continuing past individual failures.
func (s *AdminService) BulkAdd(ctx context.Context, inputs []AddEntryInput, actor string) *BulkResult {
	result := &BulkResult{Results: make([]*MutationResult, 0, len(inputs))}
	for _, input := range inputs {
		r := s.AddFAQ(ctx, input, actor)
		if r.Success {
			result.Added++
		} else {
			result.Failed++
		}
		result.Results = append(result.Results, r)
	}
	return result
}

// Status reports store stats together with the maintenance counter.
func (s *AdminService) Status(ctx context.Context) (*KBStatus, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	counter, ackAt, err := s.state.GetChangeCounter(ctx)
	if err != nil {
		return nil, domain.NewStoreError("failed to read change counter", err)
	}
	return &KBStatus{
		EntryCount:         stats.Count,
		Status:             stats.Status,
		ChangeCounter:      counter,
		ReindexThreshold:   s.reindexThreshold,
		ReindexRecommended: counter > 0 && counter%s.reindexThreshold == 0,
		AcknowledgedAt:     ackAt,
	}, nil
}

// ListAudit pages the mutation trail newest-first.
func (s *AdminService) ListAudit(ctx context.Context, cursor string, limit int) ([]*domain.AuditEntry, string, error) {
	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, "", &domain.DomainError{Code: domain.ErrCodeValidation, Message: "invalid cursor", Err: err}
	}

	items, next, err := s.audit.ListRecent(ctx, decoded, limit)
	if err != nil {
		return nil, "", domain.NewStoreError("failed to list audit trail", err)
	}

	var nextCursor string
	if next != nil {
		nextCursor = pagination.EncodeCursor(next.LastID, next.Timestamp)
	}
	return items, nextCursor, nil
}

// AcknowledgeReindex records a completed maintenance pass and zeroes the
// change counter. Nothing else ever resets it.
func (s *AdminService) AcknowledgeReindex(ctx context.Context) error {
	if err := s.state.Acknowledge(ctx, time.Now().UTC()); err != nil {
		return domain.NewStoreError("failed to acknowledge reindex", err)
	}
	return nil
}

// recordMutation writes the audit entry and bumps the change counter in
// one transaction. The knowledge mutation is already durable at this
// point, so a bookkeeping failure is reported to telemetry rather than
// surfaced as a mutation failure.
func (s *AdminService) recordMutation(ctx context.Context, op domain.AuditOperation, faqID, actor, summary string) bool {
	if actor == "" {
		actor = "system"
	}

	var counter int64
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		entry := domain.NewAuditEntry(s.uuidGen.NewString(), op, faqID, actor, summary, time.Now().UTC())
		if err := domain.ValidateAuditEntry(entry); err != nil {
			return err
		}
		if err := repos.Audit().Create(ctx, entry); err != nil {
			return err
		}
		var err error
		counter, err = repos.State().IncrementChangeCounter(ctx)
		return err
	})
	if err != nil {
		log.Printf("admin: audit bookkeeping for %s %s failed: %v", op, faqID, err)
		telemetry.CaptureError(ctx, err)
		return false
	}

	return counter%s.reindexThreshold == 0
}
