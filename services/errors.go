package services

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidState   = errors.New("invalid state")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSelfSubmission = errors.New("self submission")
	ErrBountyClosed   = errors.New("bounty closed")
	ErrAlreadyPaid    = errors.New("already paid")
	ErrOutOfRange     = errors.New("index out of range")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrNotFound, "not_found"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrInvalidState, "invalid_state"},
	{ErrUnauthorized, "unauthorized"},
	{ErrSelfSubmission, "self_submission"},
	{ErrBountyClosed, "bounty_closed"},
	{ErrAlreadyPaid, "already_paid"},
	{ErrOutOfRange, "out_of_range"},
}

// ErrorKind returns the stable code for a ledger error, or "internal" for anything else.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}
