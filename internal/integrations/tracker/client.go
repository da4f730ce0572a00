package tracker

import (
	"context"

	"github.com/BearBump/ShipSync/internal/models"
)

type RegisterOutcome string

const (
	RegisterAccepted RegisterOutcome = "accepted"
	RegisterIgnored  RegisterOutcome = "ignored"
)

// RegisterResult is the outcome of a best-effort registration.
// An ignored result carries the reason and never stops the row.
type RegisterResult struct {
	Outcome RegisterOutcome
	Reason  error
}

func Accepted() RegisterResult {
	return RegisterResult{Outcome: RegisterAccepted}
}

func Ignored(reason error) RegisterResult {
	return RegisterResult{Outcome: RegisterIgnored, Reason: reason}
}

func (r RegisterResult) IsIgnored() bool {
	return r.Outcome == RegisterIgnored
}

type Client interface {
	Register(ctx context.Context, q models.TrackingQuery) RegisterResult
	GetTracking(ctx context.Context, q models.TrackingQuery) (models.TrackingResult, error)
}
