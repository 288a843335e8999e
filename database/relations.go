package database

import (
	"context"
	"fmt"

	"anketa-network/models"

	"github.com/google/uuid"
)

// LockPair is a no-op: Update already holds the database write lock.
func (u *unit) LockPair(ctx context.Context, a, b uuid.UUID) error {
	return nil
}

func (u *unit) edgeExists(ctx context.Context, follower, followed uuid.UUID, status string) (bool, error) {
	var exists bool
	err := u.q.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM followers WHERE follower_id = ? AND followed_id = ? AND status = ?)",
		follower, followed, status).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check %s edge %s -> %s: %w", status, follower, followed, err)
	}
	return exists, nil
}

func (u *unit) IsFollower(ctx context.Context, target, candidate uuid.UUID) (bool, error) {
	return u.edgeExists(ctx, candidate, target, "accept")
}

func (u *unit) HasPendingIncoming(ctx context.Context, target, candidate uuid.UUID) (bool, error) {
	return u.edgeExists(ctx, candidate, target, "pending")
}

// AddFollower stores a single accepted edge; both the follower and the following
// view of each record are read from it.
func (u *unit) AddFollower(ctx context.Context, target, newFollower uuid.UUID) error {
	now := u.now().UTC()
	_, err := u.q.ExecContext(ctx, `
        INSERT INTO followers (follower_id, followed_id, status, created_at, updated_at)
        VALUES (?, ?, 'accept', ?, ?)
        ON CONFLICT(follower_id, followed_id) DO UPDATE SET
        status = 'accept', updated_at = excluded.updated_at
    `, newFollower, target, now, now)
	if err != nil {
		return fmt.Errorf("failed to add follower %s to %s: %w", newFollower, target, err)
	}
	return nil
}

// AddPendingIncoming leaves an existing row of either status untouched.
func (u *unit) AddPendingIncoming(ctx context.Context, target, requester uuid.UUID) error {
	now := u.now().UTC()
	_, err := u.q.ExecContext(ctx, `
        INSERT INTO followers (follower_id, followed_id, status, created_at, updated_at)
        VALUES (?, ?, 'pending', ?, ?)
        ON CONFLICT(follower_id, followed_id) DO NOTHING
    `, requester, target, now, now)
	if err != nil {
		return fmt.Errorf("failed to add pending request %s -> %s: %w", requester, target, err)
	}
	return nil
}

func (u *unit) RemovePendingIncoming(ctx context.Context, target, requester uuid.UUID) error {
	_, err := u.q.ExecContext(ctx,
		"DELETE FROM followers WHERE follower_id = ? AND followed_id = ? AND status = 'pending'",
		requester, target)
	if err != nil {
		return fmt.Errorf("failed to remove pending request %s -> %s: %w", requester, target, err)
	}
	return nil
}

// Record assembles the three relationship sets for user from its incident edges.
func (u *unit) Record(ctx context.Context, user uuid.UUID) (models.RelationshipRecord, error) {
	rec := models.RelationshipRecord{UserID: user}
	rows, err := u.q.QueryContext(ctx, `
        SELECT follower_id, followed_id, status FROM followers
        WHERE follower_id = ? OR followed_id = ?
    `, user, user)
	if err != nil {
		return rec, fmt.Errorf("failed to query relationships of %s: %w", user, err)
	}
	defer rows.Close()

	for rows.Next() {
		var follower, followed uuid.UUID
		var status string
		if err := rows.Scan(&follower, &followed, &status); err != nil {
			return rec, fmt.Errorf("failed to scan relationship of %s: %w", user, err)
		}
		switch {
		case followed == user && status == "accept":
			rec.Followers.Add(follower)
		case followed == user && status == "pending":
			rec.PendingIncoming.Add(follower)
		case follower == user && status == "accept":
			rec.Following.Add(followed)
		}
	}
	if err := rows.Err(); err != nil {
		return rec, fmt.Errorf("error iterating relationships of %s: %w", user, err)
	}
	return rec, nil
}
