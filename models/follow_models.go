package models

import (
	"fmt"

	"github.com/google/uuid"
)

// FollowStatus is the outcome of a follow request submission.
type FollowStatus string

const (
	StatusSent             FollowStatus = "sent"
	StatusMutualMatch      FollowStatus = "mutual_match"
	StatusAlreadyFollowing FollowStatus = "already_following"
	StatusAlreadyRequested FollowStatus = "already_requested"
)

// RelationshipRecord is the per-user view of the follow graph.
type RelationshipRecord struct {
	UserID          uuid.UUID `json:"user_id"`
	Followers       IDSet     `json:"followers"`
	Following       IDSet     `json:"following"`
	PendingIncoming IDSet     `json:"pending_incoming"`
}

// Validate checks the invariants local to one record: the owner never appears in
// its own sets, and nobody is both a follower and a pending requester.
func (r RelationshipRecord) Validate() error {
	if r.Followers.Has(r.UserID) || r.Following.Has(r.UserID) || r.PendingIncoming.Has(r.UserID) {
		return fmt.Errorf("relationship record %s references itself", r.UserID)
	}
	if r.Followers.Intersects(r.PendingIncoming) {
		return fmt.Errorf("relationship record %s has an identity both following and pending", r.UserID)
	}
	return nil
}

// CheckMutualConsistency verifies X ∈ A.followers ⟺ A ∈ X.following for the pair (a, b)
// in both directions.
func CheckMutualConsistency(a, b RelationshipRecord) error {
	if a.Followers.Has(b.UserID) != b.Following.Has(a.UserID) {
		return fmt.Errorf("follow edge %s -> %s is one-sided", b.UserID, a.UserID)
	}
	if b.Followers.Has(a.UserID) != a.Following.Has(b.UserID) {
		return fmt.Errorf("follow edge %s -> %s is one-sided", a.UserID, b.UserID)
	}
	return nil
}

// FollowRequestAction is used when accepting or declining a follow request.
type FollowRequestAction struct {
	Action string `json:"action"` // "accept" or "decline"
}

const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

func (a FollowRequestAction) Validate() error {
	switch a.Action {
	case ActionAccept, ActionDecline:
		return nil
	}
	return NewError(KindValidation, "action must be %q or %q", ActionAccept, ActionDecline)
}

// SubmitResult is returned by a follow request submission.
type SubmitResult struct {
	Status    FollowStatus       `json:"status"`
	Requester RelationshipRecord `json:"requester"`
	Target    RelationshipRecord `json:"target"`
	Quota     QuotaRecord        `json:"quota"`
}

// ResolveResult is returned when a pending request is accepted or declined.
type ResolveResult struct {
	Target    RelationshipRecord `json:"target"`
	Requester RelationshipRecord `json:"requester"`
}

// PendingList is the set of identities awaiting the target's decision.
type PendingList struct {
	TargetID   uuid.UUID `json:"target_id"`
	Requesters IDSet     `json:"requesters"`
}
