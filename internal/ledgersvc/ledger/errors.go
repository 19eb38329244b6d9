package ledger

import "errors"

// Every operation either commits all of its mutations or none of them; these
// are the reasons an invocation is aborted. Match with errors.Is.
var (
	ErrUnauthorized           = errors.New("ledger: unauthorized")
	ErrGameClosed             = errors.New("ledger: game closed")
	ErrGameNotFound           = errors.New("ledger: game not found")
	ErrGameFull               = errors.New("ledger: game full")
	ErrAlreadyRegistered      = errors.New("ledger: already registered")
	ErrTransferFailed         = errors.New("ledger: transfer failed")
	ErrNotRegisteredForPayout = errors.New("ledger: not registered for payout")
	ErrArithmeticFault        = errors.New("ledger: arithmetic fault")
	ErrTokenNotAccepted       = errors.New("ledger: token not accepted")
	ErrTokenInactive          = errors.New("ledger: token inactive")
	ErrGameBusy               = errors.New("ledger: game busy")
	ErrTokenBusy              = errors.New("ledger: token payout in flight")
)
