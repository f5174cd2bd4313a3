package domain

import "errors"

var (
	ErrNotFound          = errors.New("transaction_not_found")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidMethod     = errors.New("invalid_method")
	ErrBankRefRequired   = errors.New("bank_ref_required")
	ErrProofRequired     = errors.New("proof_required")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrTransitionRace    = errors.New("transition_conflict")
)
