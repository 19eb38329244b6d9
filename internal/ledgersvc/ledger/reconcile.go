package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
)

// Reconcile sweeps custody's whole balance of token to the caller. It is not
// tied to any game's accounting and returns the amount swept. It holds the
// token's outflow slot, so it never races a settlement in the same token.
func (l *Ledger) Reconcile(ctx context.Context, caller, token common.Address) (*uint256.Int, error) {
	const op = "reconcile"
	if err := l.authorize(ctx, op, RoleAdmin, caller); err != nil {
		return nil, err
	}
	fields := log.Fields{"caller": caller.Hex(), "token": token.Hex()}

	var swept *uint256.Int
	err := l.run(ctx, op, fields, func(j *journal) ([]Observation, error) {
		err := l.outflow(nil, token, func() error {
			t, err := l.dialer.Dial(ctx, token)
			if err != nil {
				return fmt.Errorf("%w: dial %s: %v", ErrTokenNotAccepted, token.Hex(), err)
			}
			balance, err := t.BalanceOf(ctx, l.custody)
			if err != nil {
				return fmt.Errorf("%w: custody balance: %v", ErrTransferFailed, err)
			}
			if err := transferred(t.Transfer(ctx, l.custody, caller, balance)); err != nil {
				return fmt.Errorf("sweep %s: %w", token.Hex(), err)
			}
			swept = balance
			return nil
		})
		if err != nil {
			return nil, err
		}
		fields["amount"] = swept.Dec()
		return []Observation{observe(KindReconciled, nil, map[string]string{
			"token":  token.Hex(),
			"amount": swept.Dec(),
			"to":     caller.Hex(),
		})}, nil
	})
	if err != nil {
		return nil, err
	}
	return swept, nil
}
