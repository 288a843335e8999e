package database

import (
	"context"
	"fmt"
	"time"

	"anketa-network/models"

	"github.com/google/uuid"
)

// ensureQuota creates the quota row for user at the configured limit if it is missing.
func (u *unit) ensureQuota(ctx context.Context, user uuid.UUID) error {
	_, err := u.q.ExecContext(ctx, `
        INSERT OR IGNORE INTO quotas (user_id, remaining, daily_limit, last_reset)
        VALUES (?, ?, ?, ?)
    `, user, u.dailyLimit, u.dailyLimit, u.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to create quota for %s: %w", user, err)
	}
	return nil
}

func (u *unit) Quota(ctx context.Context, user uuid.UUID) (models.QuotaRecord, error) {
	rec := models.QuotaRecord{UserID: user}
	if err := u.ensureQuota(ctx, user); err != nil {
		return rec, err
	}
	var lastReset int64
	err := u.q.QueryRowContext(ctx,
		"SELECT remaining, daily_limit, last_reset FROM quotas WHERE user_id = ?", user).
		Scan(&rec.Remaining, &rec.DailyLimit, &lastReset)
	if err != nil {
		return rec, fmt.Errorf("failed to read quota for %s: %w", user, err)
	}
	rec.LastReset = time.Unix(lastReset, 0).UTC()
	return rec, nil
}

func (u *unit) Remaining(ctx context.Context, user uuid.UUID) (int, error) {
	rec, err := u.Quota(ctx, user)
	return rec.Remaining, err
}

// TryConsume is a single conditional decrement; the row count tells whether it applied.
func (u *unit) TryConsume(ctx context.Context, user uuid.UUID) (bool, error) {
	if err := u.ensureQuota(ctx, user); err != nil {
		return false, err
	}
	res, err := u.q.ExecContext(ctx,
		"UPDATE quotas SET remaining = remaining - 1 WHERE user_id = ? AND remaining > 0", user)
	if err != nil {
		return false, fmt.Errorf("failed to consume quota for %s: %w", user, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to consume quota for %s: %w", user, err)
	}
	return n == 1, nil
}

func (u *unit) Replenish(ctx context.Context, user uuid.UUID) error {
	if err := u.ensureQuota(ctx, user); err != nil {
		return err
	}
	_, err := u.q.ExecContext(ctx,
		"UPDATE quotas SET remaining = daily_limit, last_reset = ? WHERE user_id = ?", u.now().Unix(), user)
	if err != nil {
		return fmt.Errorf("failed to replenish quota for %s: %w", user, err)
	}
	return nil
}

func (u *unit) ReplenishDue(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := u.q.ExecContext(ctx,
		"UPDATE quotas SET remaining = daily_limit, last_reset = ? WHERE last_reset <= ?",
		u.now().Unix(), cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to replenish quotas due before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count replenished quotas: %w", err)
	}
	return int(n), nil
}
