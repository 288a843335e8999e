// Package follow implements the follow request state machine: quota-charged
// requests, mutual-match promotion and acceptance of pending requests.
package follow

import (
	"context"
	"log"
	"time"

	"anketa-network/models"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// Engine orchestrates follow requests over a Backend.
type Engine struct {
	backend   Backend
	directory Directory
	notifier  Notifier
}

// NewEngine returns an Engine. A nil notifier discards events.
func NewEngine(backend Backend, directory Directory, notifier Notifier) *Engine {
	return &Engine{backend: backend, directory: directory, notifier: notifier}
}

// SubmitRequest issues a follow request from requester to target.
//
// Re-submitting an existing request or following someone already followed succeeds
// without charging quota. When target has a pending request to requester, both
// requests resolve into a mutual follow at no cost. Otherwise one unit of the
// requester's quota is consumed and a pending request is created.
func (e *Engine) SubmitRequest(ctx context.Context, requester, target uuid.UUID) (models.SubmitResult, error) {
	var result models.SubmitResult
	if requester == target {
		return result, models.ErrSelfRequest
	}
	from, err := e.requireActor(ctx, requester)
	if err != nil {
		return result, err
	}
	to, err := e.requireTarget(ctx, target)
	if err != nil {
		return result, err
	}

	var events []models.Event
	err = e.backend.Update(ctx, func(rel RelationshipStore, quota QuotaLedger) error {
		events = nil
		status, err := submit(ctx, rel, quota, requester, target)
		if err != nil {
			return err
		}

		result = models.SubmitResult{Status: status}
		if result.Requester, result.Target, err = snapshot(ctx, rel, requester, target); err != nil {
			return err
		}
		if result.Quota, err = quota.Quota(ctx, requester); err != nil {
			return err
		}

		switch status {
		case models.StatusSent:
			events = append(events, models.Event{Type: models.NotificationFollowRequest, Recipient: target, Actor: requester, ActorName: from.Name})
		case models.StatusMutualMatch:
			events = append(events,
				models.Event{Type: models.NotificationMutualMatch, Recipient: target, Actor: requester, ActorName: from.Name},
				models.Event{Type: models.NotificationMutualMatch, Recipient: requester, Actor: target, ActorName: to.Name},
			)
		}
		return nil
	})
	if err != nil {
		return models.SubmitResult{}, err
	}

	log.Printf("User %s requested to follow user %s with status: %s", requester, target, result.Status)
	e.notify(ctx, events)
	return result, nil
}

// submit applies the request state machine and reports the resulting status.
func submit(ctx context.Context, rel RelationshipStore, quota QuotaLedger, requester, target uuid.UUID) (models.FollowStatus, error) {
	if err := rel.LockPair(ctx, requester, target); err != nil {
		return "", err
	}
	following, err := rel.IsFollower(ctx, target, requester)
	if err != nil {
		return "", err
	}
	if following {
		return models.StatusAlreadyFollowing, nil
	}

	requested, err := rel.HasPendingIncoming(ctx, target, requester)
	if err != nil {
		return "", err
	}
	if requested {
		return models.StatusAlreadyRequested, nil
	}

	reverse, err := rel.HasPendingIncoming(ctx, requester, target)
	if err != nil {
		return "", err
	}
	if reverse {
		if err := rel.RemovePendingIncoming(ctx, requester, target); err != nil {
			return "", err
		}
		if err := rel.RemovePendingIncoming(ctx, target, requester); err != nil {
			return "", err
		}
		if err := rel.AddFollower(ctx, target, requester); err != nil {
			return "", err
		}
		if err := rel.AddFollower(ctx, requester, target); err != nil {
			return "", err
		}
		return models.StatusMutualMatch, nil
	}

	ok, err := quota.TryConsume(ctx, requester)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", models.NewError(models.KindQuotaExceeded, "you have no follow requests left until your quota is replenished")
	}
	if err := rel.AddPendingIncoming(ctx, target, requester); err != nil {
		return "", err
	}
	return models.StatusSent, nil
}

// AcceptPendingRequest lets target accept requester's pending request. Only target may
// accept. The requester starts following target; the reverse edge is not created.
func (e *Engine) AcceptPendingRequest(ctx context.Context, target, requester, acting uuid.UUID) (models.ResolveResult, error) {
	return e.resolve(ctx, target, requester, acting, true)
}

// DeclinePendingRequest drops requester's pending request to target. Quota spent on
// the request is not refunded.
func (e *Engine) DeclinePendingRequest(ctx context.Context, target, requester, acting uuid.UUID) (models.ResolveResult, error) {
	return e.resolve(ctx, target, requester, acting, false)
}

func (e *Engine) resolve(ctx context.Context, target, requester, acting uuid.UUID, accept bool) (models.ResolveResult, error) {
	var result models.ResolveResult
	if acting != target {
		return result, models.ErrForbidden
	}
	to, err := e.requireTarget(ctx, target)
	if err != nil {
		return result, err
	}

	var events []models.Event
	err = e.backend.Update(ctx, func(rel RelationshipStore, _ QuotaLedger) error {
		events = nil
		if err := rel.LockPair(ctx, requester, target); err != nil {
			return err
		}
		pending, err := rel.HasPendingIncoming(ctx, target, requester)
		if err != nil {
			return err
		}
		if !pending {
			return models.NewError(models.KindNotPending, "user %s has no pending request to you", requester)
		}
		if err := rel.RemovePendingIncoming(ctx, target, requester); err != nil {
			return err
		}
		if accept {
			if err := rel.AddFollower(ctx, target, requester); err != nil {
				return err
			}
			events = append(events, models.Event{Type: models.NotificationFollowAccepted, Recipient: requester, Actor: target, ActorName: to.Name})
		}
		result.Requester, result.Target, err = snapshot(ctx, rel, requester, target)
		return err
	})
	if err != nil {
		return models.ResolveResult{}, err
	}

	verb := "declined"
	if accept {
		verb = "accepted"
	}
	log.Printf("User %s %s follow request from user %s", target, verb, requester)
	e.notify(ctx, events)
	return result, nil
}

// ListPendingIncoming returns the identities waiting for target's decision.
func (e *Engine) ListPendingIncoming(ctx context.Context, target, acting uuid.UUID) (models.PendingList, error) {
	list := models.PendingList{TargetID: target}
	if acting != target {
		return list, models.ErrForbidden
	}
	if _, err := e.requireTarget(ctx, target); err != nil {
		return list, err
	}
	err := e.backend.View(ctx, func(rel RelationshipStore, _ QuotaLedger) error {
		rec, err := rel.Record(ctx, target)
		if err != nil {
			return err
		}
		list.Requesters = rec.PendingIncoming
		return nil
	})
	return list, err
}

// Relationships returns the relationship record of user.
func (e *Engine) Relationships(ctx context.Context, user uuid.UUID) (models.RelationshipRecord, error) {
	var rec models.RelationshipRecord
	if _, err := e.requireTarget(ctx, user); err != nil {
		return rec, err
	}
	err := e.backend.View(ctx, func(rel RelationshipStore, _ QuotaLedger) error {
		var err error
		rec, err = rel.Record(ctx, user)
		return err
	})
	return rec, err
}

// Quota returns user's quota record, creating it on first reference.
func (e *Engine) Quota(ctx context.Context, user uuid.UUID) (models.QuotaRecord, error) {
	var rec models.QuotaRecord
	if _, err := e.requireTarget(ctx, user); err != nil {
		return rec, err
	}
	err := e.backend.View(ctx, func(_ RelationshipStore, quota QuotaLedger) error {
		var err error
		rec, err = quota.Quota(ctx, user)
		return err
	})
	return rec, err
}

// ReplenishQuota resets user's remaining allowance to the daily limit.
func (e *Engine) ReplenishQuota(ctx context.Context, user uuid.UUID) (models.QuotaRecord, error) {
	var rec models.QuotaRecord
	if _, err := e.requireTarget(ctx, user); err != nil {
		return rec, err
	}
	err := e.backend.Update(ctx, func(_ RelationshipStore, quota QuotaLedger) error {
		if err := quota.Replenish(ctx, user); err != nil {
			return err
		}
		var err error
		rec, err = quota.Quota(ctx, user)
		return err
	})
	return rec, err
}

// ReplenishDue resets every quota last replenished at or before cutoff.
func (e *Engine) ReplenishDue(ctx context.Context, cutoff time.Time) (models.ReplenishSummary, error) {
	summary := models.ReplenishSummary{Cutoff: cutoff}
	err := e.backend.Update(ctx, func(_ RelationshipStore, quota QuotaLedger) error {
		var err error
		summary.Replenished, err = quota.ReplenishDue(ctx, cutoff)
		return err
	})
	if err != nil {
		return summary, err
	}
	log.Printf("Replenished %d quotas last reset before %s", summary.Replenished, cutoff.Format(time.RFC3339))
	return summary, nil
}

// requireActor resolves the identity acting as requester; it must exist and be active.
func (e *Engine) requireActor(ctx context.Context, id uuid.UUID) (models.Identity, error) {
	ident, err := e.directory.Lookup(ctx, id)
	if err != nil {
		return ident, err
	}
	if !ident.Active {
		return ident, models.NewError(models.KindAuthorization, "account %s is deactivated", id)
	}
	return ident, nil
}

// requireTarget resolves an identity being acted on. Deactivated accounts are reported
// as not found.
func (e *Engine) requireTarget(ctx context.Context, id uuid.UUID) (models.Identity, error) {
	ident, err := e.directory.Lookup(ctx, id)
	if err != nil {
		return ident, err
	}
	if !ident.Active {
		return ident, models.NewError(models.KindNotFound, "user %s not found", id)
	}
	return ident, nil
}

// snapshot reads both records and verifies the graph invariants over them.
func snapshot(ctx context.Context, rel RelationshipStore, a, b uuid.UUID) (models.RelationshipRecord, models.RelationshipRecord, error) {
	ra, err := rel.Record(ctx, a)
	if err != nil {
		return ra, models.RelationshipRecord{}, err
	}
	rb, err := rel.Record(ctx, b)
	if err != nil {
		return ra, rb, err
	}
	if err := multierror.Append(nil, ra.Validate(), rb.Validate(), models.CheckMutualConsistency(ra, rb)).ErrorOrNil(); err != nil {
		log.Printf("Error: relationship invariant violated between %s and %s: %v", a, b, err)
		return ra, rb, &models.Error{Kind: models.KindInternal, Message: "relationship invariant violated", Err: err}
	}
	return ra, rb, nil
}

func (e *Engine) notify(ctx context.Context, events []models.Event) {
	if e.notifier == nil {
		return
	}
	for _, ev := range events {
		e.notifier.Notify(ctx, ev)
	}
}
