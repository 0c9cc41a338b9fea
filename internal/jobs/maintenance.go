package jobs

import (
	"context"
	"log"
	"time"
)

// VectorChecker reports stored entries whose embedding is missing.
type VectorChecker interface {
	CountMissingEmbeddings(ctx context.Context) (int64, error)
}

// StatusReader exposes the change counter for maintenance signaling.
type StatusReader interface {
	GetChangeCounter(ctx context.Context) (int64, *time.Time, error)
}

// MaintenanceProcessor runs the periodic knowledge-base consistency
// check. It only observes and logs; resetting the change counter stays
// an explicit operator action.
type MaintenanceProcessor struct {
	vectors          VectorChecker
	status           StatusReader
	reindexThreshold int64
}

// NewMaintenanceProcessor creates a new MaintenanceProcessor instance
func NewMaintenanceProcessor(vectors VectorChecker, status StatusReader, reindexThreshold int64) *MaintenanceProcessor {
	if reindexThreshold <= 0 {
		reindexThreshold = 10
	}
	return &MaintenanceProcessor{
		vectors:          vectors,
		status:           status,
		reindexThreshold: reindexThreshold,
	}
}

// Run performs one maintenance pass.
func (p *MaintenanceProcessor) Run(ctx context.Context) error {
	missing, err := p.vectors.CountMissingEmbeddings(ctx)
	if err != nil {
		return err
	}
	if missing > 0 {
		log.Printf("maintenance: %d entries have no embedding and are invisible to search", missing)
	}

	counter, _, err := p.status.GetChangeCounter(ctx)
	if err != nil {
		return err
	}
	if counter >= p.reindexThreshold {
		log.Printf("maintenance: %d changes since last acknowledged reindex (threshold %d)", counter, p.reindexThreshold)
	}

	return nil
}
