package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultDailyLimit is the allowance given to a quota record created without configuration.
const DefaultDailyLimit = 50

// QuotaRecord holds a user's remaining outgoing request allowance.
type QuotaRecord struct {
	UserID     uuid.UUID `json:"user_id"`
	Remaining  int       `json:"remaining"`
	DailyLimit int       `json:"daily_limit"`
	LastReset  time.Time `json:"last_reset"`
}

// ReplenishSummary reports a bulk replenishment run.
type ReplenishSummary struct {
	Cutoff      time.Time `json:"cutoff"`
	Replenished int       `json:"replenished"`
}
