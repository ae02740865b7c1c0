package domain

import "errors"

var (
	// ErrTradeNotFound is returned when a trade does not exist or is already closed
	ErrTradeNotFound = errors.New("trade not found or already closed")

	// ErrValidation is returned for rejected input before any mutation
	ErrValidation = errors.New("validation failed")

	// ErrUnknownAccount is returned for identifiers missing from the registry
	ErrUnknownAccount = errors.New("unknown account")

	// ErrJournalInconsistent is returned when the global ledger and an account journal disagree
	ErrJournalInconsistent = errors.New("trade missing from account journal")

	// ErrIgnoredSignal is returned for cross signals the account family does not act on
	ErrIgnoredSignal = errors.New("signal ignored")

	// ErrMonitorBusy is returned when a monitoring pass is already running
	ErrMonitorBusy = errors.New("monitor pass already running")

	// ErrVenue wraps failures reported by the execution venue
	ErrVenue = errors.New("execution venue error")
)
