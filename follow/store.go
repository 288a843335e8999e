package follow

import (
	"context"
	"time"

	"anketa-network/models"

	"github.com/google/uuid"
)

// RelationshipStore reads and mutates the follow graph inside one unit of work.
type RelationshipStore interface {
	// LockPair holds both users exclusively until the unit of work ends, so units
	// touching the same pair see each other's committed edges. Call it before any read.
	LockPair(ctx context.Context, a, b uuid.UUID) error
	IsFollower(ctx context.Context, target, candidate uuid.UUID) (bool, error)
	HasPendingIncoming(ctx context.Context, target, candidate uuid.UUID) (bool, error)
	// AddFollower records that newFollower follows target. Both target's followers and
	// newFollower's following must change together.
	AddFollower(ctx context.Context, target, newFollower uuid.UUID) error
	AddPendingIncoming(ctx context.Context, target, requester uuid.UUID) error
	RemovePendingIncoming(ctx context.Context, target, requester uuid.UUID) error
	Record(ctx context.Context, user uuid.UUID) (models.RelationshipRecord, error)
}

// QuotaLedger tracks outgoing request allowances. Records are created with the
// configured daily limit the first time a user is referenced.
type QuotaLedger interface {
	Remaining(ctx context.Context, user uuid.UUID) (int, error)
	// TryConsume decrements the allowance when it is positive and reports whether it did.
	TryConsume(ctx context.Context, user uuid.UUID) (bool, error)
	Replenish(ctx context.Context, user uuid.UUID) error
	Quota(ctx context.Context, user uuid.UUID) (models.QuotaRecord, error)
	// ReplenishDue resets every record last replenished at or before cutoff.
	ReplenishDue(ctx context.Context, cutoff time.Time) (int, error)
}

// Backend runs units of work over the relationship store and quota ledger.
// Update is all-or-nothing: if fn returns an error no mutation survives.
// Implementations may run fn more than once, so fn must not have side effects
// outside the stores it is given.
type Backend interface {
	Update(ctx context.Context, fn func(rel RelationshipStore, quota QuotaLedger) error) error
	View(ctx context.Context, fn func(rel RelationshipStore, quota QuotaLedger) error) error
}

// Directory resolves identities.
type Directory interface {
	Lookup(ctx context.Context, id uuid.UUID) (models.Identity, error)
}

// Notifier receives events after their unit of work has committed.
type Notifier interface {
	Notify(ctx context.Context, ev models.Event)
}
