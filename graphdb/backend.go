package graphdb

import (
	"context"
	"fmt"
	"time"

	"anketa-network/follow"
	"anketa-network/models"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Backend keeps the follow graph as (:User)-[:FOLLOWS|REQUESTED]->(:User) edges and
// quotas as :Quota nodes. Each unit of work is one managed transaction.
type Backend struct {
	driver     *Driver
	dailyLimit int
	now        func() time.Time
}

func NewBackend(driver *Driver, dailyLimit int) *Backend {
	if dailyLimit <= 0 {
		dailyLimit = models.DefaultDailyLimit
	}
	return &Backend{driver: driver, dailyLimit: dailyLimit, now: time.Now}
}

// SetClock replaces the time source used for quota bookkeeping.
func (b *Backend) SetClock(now func() time.Time) { b.now = now }

// Update runs fn in a write transaction. The driver retries transient failures,
// so fn may run more than once.
func (b *Backend) Update(ctx context.Context, fn func(follow.RelationshipStore, follow.QuotaLedger) error) error {
	session := b.driver.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		u := &unit{tx: tx, dailyLimit: b.dailyLimit, now: b.now}
		return nil, fn(u, u)
	})
	return err
}

// View runs fn in a read transaction. Missing quota records are reported at the
// daily limit without being created.
func (b *Backend) View(ctx context.Context, fn func(follow.RelationshipStore, follow.QuotaLedger) error) error {
	session := b.driver.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		u := &unit{tx: tx, dailyLimit: b.dailyLimit, now: b.now, readOnly: true}
		return nil, fn(u, u)
	})
	return err
}

type unit struct {
	tx         neo4j.ManagedTransaction
	dailyLimit int
	now        func() time.Time
	readOnly   bool
}

var (
	_ follow.Backend           = (*Backend)(nil)
	_ follow.RelationshipStore = (*unit)(nil)
	_ follow.QuotaLedger       = (*unit)(nil)
)

func (u *unit) records(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := u.tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}

func (u *unit) exec(ctx context.Context, query string, params map[string]any) error {
	result, err := u.tx.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

func (u *unit) edgeExists(ctx context.Context, query string, from, to uuid.UUID) (bool, error) {
	recs, err := u.records(ctx, query, map[string]any{"from": from.String(), "to": to.String()})
	if err != nil {
		return false, fmt.Errorf("failed to check edge %s -> %s: %w", from, to, err)
	}
	if len(recs) == 0 {
		return false, nil
	}
	found, _, err := neo4j.GetRecordValue[bool](recs[0], "found")
	if err != nil {
		return false, fmt.Errorf("failed to read edge %s -> %s: %w", from, to, err)
	}
	return found, nil
}

// lockOrder returns both ids as strings in ascending order.
func lockOrder(a, b uuid.UUID) []string {
	ids := []string{a.String(), b.String()}
	if ids[1] < ids[0] {
		ids[0], ids[1] = ids[1], ids[0]
	}
	return ids
}

func (u *unit) LockPair(ctx context.Context, a, b uuid.UUID) error {
	if u.readOnly {
		return nil
	}
	if err := u.exec(ctx, lockUsersQuery, map[string]any{"ids": lockOrder(a, b)}); err != nil {
		return fmt.Errorf("failed to lock users %s and %s: %w", a, b, err)
	}
	return nil
}

func (u *unit) IsFollower(ctx context.Context, target, candidate uuid.UUID) (bool, error) {
	return u.edgeExists(ctx, followsExistsQuery, candidate, target)
}

func (u *unit) HasPendingIncoming(ctx context.Context, target, candidate uuid.UUID) (bool, error) {
	return u.edgeExists(ctx, requestedExistsQuery, candidate, target)
}

func (u *unit) AddFollower(ctx context.Context, target, newFollower uuid.UUID) error {
	err := u.exec(ctx, addFollowerQuery, map[string]any{
		"follower": newFollower.String(),
		"target":   target.String(),
		"now":      u.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to add follower %s to %s: %w", newFollower, target, err)
	}
	return nil
}

func (u *unit) AddPendingIncoming(ctx context.Context, target, requester uuid.UUID) error {
	err := u.exec(ctx, addPendingQuery, map[string]any{
		"requester": requester.String(),
		"target":    target.String(),
		"now":       u.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to add pending request %s -> %s: %w", requester, target, err)
	}
	return nil
}

func (u *unit) RemovePendingIncoming(ctx context.Context, target, requester uuid.UUID) error {
	err := u.exec(ctx, removePendingQuery, map[string]any{
		"requester": requester.String(),
		"target":    target.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to remove pending request %s -> %s: %w", requester, target, err)
	}
	return nil
}

func (u *unit) Record(ctx context.Context, user uuid.UUID) (models.RelationshipRecord, error) {
	rec := models.RelationshipRecord{UserID: user}
	recs, err := u.records(ctx, relationshipsQuery, map[string]any{"user": user.String()})
	if err != nil {
		return rec, fmt.Errorf("failed to query relationships of %s: %w", user, err)
	}
	for _, r := range recs {
		followerRaw, _, err := neo4j.GetRecordValue[string](r, "follower")
		if err != nil {
			return rec, fmt.Errorf("failed to read relationship of %s: %w", user, err)
		}
		followedRaw, _, err := neo4j.GetRecordValue[string](r, "followed")
		if err != nil {
			return rec, fmt.Errorf("failed to read relationship of %s: %w", user, err)
		}
		kind, _, err := neo4j.GetRecordValue[string](r, "kind")
		if err != nil {
			return rec, fmt.Errorf("failed to read relationship of %s: %w", user, err)
		}
		follower, err := uuid.Parse(followerRaw)
		if err != nil {
			return rec, fmt.Errorf("malformed user id %q in graph: %w", followerRaw, err)
		}
		followed, err := uuid.Parse(followedRaw)
		if err != nil {
			return rec, fmt.Errorf("malformed user id %q in graph: %w", followedRaw, err)
		}

		switch {
		case followed == user && kind == "FOLLOWS":
			rec.Followers.Add(follower)
		case followed == user && kind == "REQUESTED":
			rec.PendingIncoming.Add(follower)
		case follower == user && kind == "FOLLOWS":
			rec.Following.Add(followed)
		}
	}
	return rec, nil
}

func (u *unit) quotaParams(user uuid.UUID) map[string]any {
	return map[string]any{"user": user.String(), "limit": int64(u.dailyLimit), "now": u.now().Unix()}
}

func (u *unit) Quota(ctx context.Context, user uuid.UUID) (models.QuotaRecord, error) {
	rec := models.QuotaRecord{UserID: user}
	query := ensureQuotaQuery
	if u.readOnly {
		query = readQuotaQuery
	}
	recs, err := u.records(ctx, query, u.quotaParams(user))
	if err != nil {
		return rec, fmt.Errorf("failed to read quota for %s: %w", user, err)
	}
	if len(recs) == 0 {
		rec.Remaining = u.dailyLimit
		rec.DailyLimit = u.dailyLimit
		rec.LastReset = u.now().UTC().Truncate(time.Second)
		return rec, nil
	}

	remaining, _, err := neo4j.GetRecordValue[int64](recs[0], "remaining")
	if err != nil {
		return rec, fmt.Errorf("failed to read quota for %s: %w", user, err)
	}
	limit, _, err := neo4j.GetRecordValue[int64](recs[0], "daily_limit")
	if err != nil {
		return rec, fmt.Errorf("failed to read quota for %s: %w", user, err)
	}
	lastReset, _, err := neo4j.GetRecordValue[int64](recs[0], "last_reset")
	if err != nil {
		return rec, fmt.Errorf("failed to read quota for %s: %w", user, err)
	}
	rec.Remaining = int(remaining)
	rec.DailyLimit = int(limit)
	rec.LastReset = time.Unix(lastReset, 0).UTC()
	return rec, nil
}

func (u *unit) Remaining(ctx context.Context, user uuid.UUID) (int, error) {
	rec, err := u.Quota(ctx, user)
	return rec.Remaining, err
}

// TryConsume returns no row when the allowance is already zero.
func (u *unit) TryConsume(ctx context.Context, user uuid.UUID) (bool, error) {
	recs, err := u.records(ctx, consumeQuotaQuery, u.quotaParams(user))
	if err != nil {
		return false, fmt.Errorf("failed to consume quota for %s: %w", user, err)
	}
	return len(recs) == 1, nil
}

func (u *unit) Replenish(ctx context.Context, user uuid.UUID) error {
	if err := u.exec(ctx, replenishQuotaQuery, u.quotaParams(user)); err != nil {
		return fmt.Errorf("failed to replenish quota for %s: %w", user, err)
	}
	return nil
}

func (u *unit) ReplenishDue(ctx context.Context, cutoff time.Time) (int, error) {
	recs, err := u.records(ctx, replenishDueQuery, map[string]any{
		"cutoff": cutoff.Unix(),
		"now":    u.now().Unix(),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to replenish quotas due before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if len(recs) == 0 {
		return 0, nil
	}
	n, _, err := neo4j.GetRecordValue[int64](recs[0], "replenished")
	if err != nil {
		return 0, fmt.Errorf("failed to count replenished quotas: %w", err)
	}
	return int(n), nil
}
