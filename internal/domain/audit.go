package domain

import (
	"fmt"
	"time"
)

// AuditOperation is the kind of knowledge-base mutation being recorded
type AuditOperation string

const (
	AuditOperationAdd    AuditOperation = "add"
	AuditOperationUpdate AuditOperation = "update"
	AuditOperationDelete AuditOperation = "delete"
)

// AuditEntry is one append-only record of a knowledge-base mutation.
// Never mutated or deleted by the service.
type AuditEntry struct {
	ID        string
	Operation AuditOperation
	FAQID     string
	Actor     string
	Summary   string
	CreatedAt time.Time
}

// NewAuditEntry creates a new AuditEntry instance
func NewAuditEntry(id string, op AuditOperation, faqID, actor, summary string, createdAt time.Time) *AuditEntry {
	return &AuditEntry{
		ID:        id,
		Operation: op,
		FAQID:     faqID,
		Actor:     actor,
		Summary:   summary,
		CreatedAt: createdAt,
	}
}

// ValidateAuditEntry validates an AuditEntry instance
func ValidateAuditEntry(a *AuditEntry) error {
	if a == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("audit entry ID is required")
	}

	if a.FAQID == "" {
		return fmt.Errorf("audit entry FAQID is required")
	}

	if !isValidAuditOperation(a.Operation) {
		return fmt.Errorf("audit entry Operation is invalid: %s", a.Operation)
	}

	return nil
}

// isValidAuditOperation checks if an AuditOperation is valid
func isValidAuditOperation(op AuditOperation) bool {
	switch op {
	case AuditOperationAdd, AuditOperationUpdate, AuditOperationDelete:
		return true
	}
	return false
}
