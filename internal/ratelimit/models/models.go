package models

import "time"

// EndpointClass groups routes that share a request budget.
type EndpointClass string

const (
	// ClassRead covers wallet and balance reads.
	ClassRead EndpointClass = "read"
	// ClassWrite covers init, deposit, transfer and recovery votes.
	ClassWrite EndpointClass = "write"
)

func (c EndpointClass) IsValid() bool {
	return c == ClassRead || c == ClassWrite
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// Key is the bucket key of a caller for one endpoint class.
func Key(class EndpointClass, caller string) string {
	return "warden:rl:" + string(class) + ":" + caller
}
