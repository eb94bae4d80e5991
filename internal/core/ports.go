package core

import (
	"context"
	"time"
)

// =============================================================================
// Run Store Port
// =============================================================================

// RunStore persists runs partitioned by owner token.
//
// Every operation is scoped by owner: a run that exists under a different
// owner is reported exactly like a missing one.
type RunStore interface {
	// Create allocates an id and stores a new pending run.
	Create(ctx context.Context, owner string, in NewRun) (*Run, error)

	// Get returns a copy of the run, or a not-found error.
	Get(ctx context.Context, owner, id string) (*Run, error)

	// Update applies the patch as a single atomic replacement of the record.
	Update(ctx context.Context, owner, id string, patch RunPatch) (*Run, error)

	// List returns copies of all runs of the owner in creation order.
	List(ctx context.Context, owner string) ([]*Run, error)

	// Close releases backend resources.
	Close() error
}

// =============================================================================
// Catalog Port
// =============================================================================

// ActionLookup resolves action definitions by id.
type ActionLookup interface {
	Find(id string) (ActionDefinition, bool)
}

// =============================================================================
// Scheduling Ports
// =============================================================================

// Timer arms one-shot callbacks. Implementations must call fn at most once.
type Timer interface {
	After(d time.Duration, fn func())
}

// FaultReporter receives unexpected faults raised while resolving a run.
type FaultReporter interface {
	ReportFault(ctx context.Context, run Run, err error)
}
