package service

import (
	"context"
	"sync"
	"time"

	"github.com/deskmind/deskmind/internal/domain"
	"github.com/deskmind/deskmind/internal/telemetry"
)

// SessionRepositoryInterface defines the repository interface for session persistence
type SessionRepositoryInterface interface {
	CreateSession(ctx context.Context, id string, now time.Time) error
	AppendTurn(ctx context.Context, sessionID string, turn *domain.Turn, retain int) error
	ListTurns(ctx context.Context, sessionID string) ([]*domain.Turn, error)
	Stats(ctx context.Context, sessionID string) (*domain.SessionStats, error)
	DeleteSession(ctx context.Context, sessionID string) (bool, error)
}

// ContextTurn is a turn reduced to what prompt assembly needs.
type ContextTurn struct {
	Role    domain.TurnRole
	Content string
}

// ConversationService manages durable conversation sessions. Sessions come
// into existence on first append; the retention window is enforced on
// every append so reads never see more than the configured tail.
type ConversationService struct {
	repo        SessionRepositoryInterface
	uuidGen     UUIDGenerator
	maxMessages int

	// serializes appends per session id
	locks sync.Map
}

// NewConversationService creates a new ConversationService instance
func NewConversationService(repo SessionRepositoryInterface, maxMessages int) *ConversationService {
	return NewConversationServiceWithUUIDGen(repo, maxMessages, &DefaultUUIDGenerator{})
}

// NewConversationServiceWithUUIDGen creates a new ConversationService with custom UUID generator (for testing)
func NewConversationServiceWithUUIDGen(repo SessionRepositoryInterface, maxMessages int, uuidGen UUIDGenerator) *ConversationService {
	if maxMessages <= 0 {
		maxMessages = 20
	}
	return &ConversationService{
		repo:        repo,
		uuidGen:     uuidGen,
		maxMessages: maxMessages,
	}
}

func (s *ConversationService) lockFor(sessionID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// StartSession creates an empty session and returns its id.
func (s *ConversationService) StartSession(ctx context.Context) (string, error) {
	id := s.uuidGen.NewString()
	if err := s.repo.CreateSession(ctx, id, time.Now().UTC()); err != nil {
		return "", domain.NewStoreError("failed to create session", err)
	}
	return id, nil
}

// RecordTurn appends one turn to a session, creating the session when it
// does not exist yet.
func (s *ConversationService) RecordTurn(ctx context.Context, sessionID string, role domain.TurnRole, content string) error {
	turn := domain.NewTurn(s.uuidGen.NewString(), sessionID, role, content, time.Now().UTC())
	if err := domain.ValidateTurn(turn); err != nil {
		return &domain.DomainError{Code: domain.ErrCodeValidation, Message: err.Error(), Err: err}
	}

	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.repo.AppendTurn(ctx, sessionID, turn, s.maxMessages); err != nil {
		return domain.NewStoreError("failed to append turn", err)
	}
	return nil
}

// RecordExchange appends a user turn and the assistant's reply as one
// serialized unit, keeping the pair adjacent under concurrent appends.
func (s *ConversationService) RecordExchange(ctx context.Context, sessionID, question, answer string) error {
	ctx, span := telemetry.StartSpan(ctx, "ConversationService.RecordExchange", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "append",
	})
	defer span.End()

	now := time.Now().UTC()
	userTurn := domain.NewTurn(s.uuidGen.NewString(), sessionID, domain.TurnRoleUser, question, now)
	assistantTurn := domain.NewTurn(s.uuidGen.NewString(), sessionID, domain.TurnRoleAssistant, answer, now)

	for _, t := range []*domain.Turn{userTurn, assistantTurn} {
		if err := domain.ValidateTurn(t); err != nil {
			return &domain.DomainError{Code: domain.ErrCodeValidation, Message: err.Error(), Err: err}
		}
	}

	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.repo.AppendTurn(ctx, sessionID, userTurn, s.maxMessages); err != nil {
		return domain.NewStoreError("failed to append user turn", err)
	}
	if err := s.repo.AppendTurn(ctx, sessionID, assistantTurn, s.maxMessages); err != nil {
		return domain.NewStoreError("failed to append assistant turn", err)
	}
	return nil
}

// GetContext returns the retained turns as role and content only, in
// append order. An unknown session yields an empty context.
func (s *ConversationService) GetContext(ctx context.Context, sessionID string) ([]ContextTurn, error) {
	turns, err := s.repo.ListTurns(ctx, sessionID)
	if err != nil {
		return nil, domain.NewStoreError("failed to load conversation context", err)
	}

	out := make([]ContextTurn, 0, len(turns))
	for _, t := range turns {
		out = append(out, ContextTurn{Role: t.Role, Content: t.Content})
	}
	return out, nil
}

// History returns the retained turns with timestamps.
func (s *ConversationService) History(ctx context.Context, sessionID string) ([]*domain.Turn, error) {
	stats, err := s.repo.Stats(ctx, sessionID)
	if err != nil {
		return nil, domain.NewStoreError("failed to load session", err)
	}
	if !stats.Exists {
		return nil, domain.ErrSessionNotFound
	}
	turns, err := s.repo.ListTurns(ctx, sessionID)
	if err != nil {
		return nil, domain.NewStoreError("failed to load session history", err)
	}
	return turns, nil
}

// Stats summarizes a session. Unknown sessions report Exists false
// rather than an error.
func (s *ConversationService) Stats(ctx context.Context, sessionID string) (*domain.SessionStats, error) {
	stats, err := s.repo.Stats(ctx, sessionID)
	if err != nil {
		return nil, domain.NewStoreError("failed to load session stats", err)
	}
	return stats, nil
}

// Clear removes a session and its turns. The pipeline never calls this;
// it exists for operator-driven retention.
func (s *ConversationService) Clear(ctx context.Context, sessionID string) error {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	existed, err := s.repo.DeleteSession(ctx, sessionID)
	if err != nil {
		return domain.NewStoreError("failed to clear session", err)
	}
	if !existed {
		return domain.ErrSessionNotFound
	}
	return nil
}
