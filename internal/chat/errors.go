package chat

import (
	"errors"
	"fmt"
)

// Stable machine-readable codes carried by PlanLimitError.
const (
	// CodeMaxChats is returned when the per-user thread cap is reached.
	CodeMaxChats = "PLAN_MAX_CHATS"
	// CodeMaxMessages is returned when the per-thread message cap is reached.
	CodeMaxMessages = "PLAN_MAX_MESSAGES"
)

// ErrThreadNotFound is returned when a thread is missing or not owned by
// the caller. Ownership mismatches map to the same error so the existence
// of another user's thread is never revealed.
var ErrThreadNotFound = errors.New("chat: thread not found")

// ErrInvalidRole is returned for message roles outside user|assistant|system.
var ErrInvalidRole = errors.New("chat: invalid message role")

// PlanLimitError reports a plan cap breach with enough structure for
// clients to prompt an upgrade flow.
type PlanLimitError struct {
	Code  string // Stable code (PLAN_MAX_CHATS | PLAN_MAX_MESSAGES).
	Limit int    // The numeric cap that was hit.
}

// Error implements the error interface.
func (e *PlanLimitError) Error() string {
	return fmt.Sprintf("chat: plan limit exceeded: %s (limit %d)", e.Code, e.Limit)
}

// AsPlanLimitError unwraps err into a PlanLimitError when possible.
func AsPlanLimitError(err error) (*PlanLimitError, bool) {
	var limitErr *PlanLimitError
	if errors.As(err, &limitErr) {
		return limitErr, true
	}
	return nil, false
}
