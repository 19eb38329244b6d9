package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
)

// AcceptedToken is a registry entry. Entries are never erased; deactivation
// keeps RedemptionRate so reactivation restores prior terms.
type AcceptedToken struct {
	Active         bool
	RedemptionRate *uint256.Int

	token Token
}

type TokenRegistry struct {
	tokens map[common.Address]*AcceptedToken
}

func newTokenRegistry() *TokenRegistry {
	return &TokenRegistry{tokens: make(map[common.Address]*AcceptedToken)}
}

func (r *TokenRegistry) upsert(addr common.Address, rate *uint256.Int, active bool, t Token) {
	e, ok := r.tokens[addr]
	if !ok {
		e = &AcceptedToken{}
		r.tokens[addr] = e
	}
	e.Active = active
	e.RedemptionRate = amountOrZero(rate)
	e.token = t
}

func (r *TokenRegistry) disable(addr common.Address) {
	e, ok := r.tokens[addr]
	if !ok {
		e = &AcceptedToken{RedemptionRate: new(uint256.Int)}
		r.tokens[addr] = e
	}
	e.Active = false
}

func (r *TokenRegistry) lookup(addr common.Address) (active bool, rate *uint256.Int) {
	e, ok := r.tokens[addr]
	if !ok {
		return false, new(uint256.Int)
	}
	return e.Active, e.RedemptionRate.Clone()
}

// bound returns the registry entry for addr if it has a transfer service.
func (r *TokenRegistry) bound(addr common.Address) (*AcceptedToken, error) {
	e, ok := r.tokens[addr]
	if !ok || e.token == nil {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotAccepted, addr.Hex())
	}
	return e, nil
}

// AddArcadeToken upserts token's activation flag and redemption rate and
// binds its transfer service.
//
// It also approves the caller to spend an unlimited amount of the custody
// account's balance of token. That grant runs in the opposite direction from
// what a fee-collecting ledger would normally need and is kept as-is pending
// review; see DESIGN.md.
func (l *Ledger) AddArcadeToken(ctx context.Context, caller, token common.Address, rate *uint256.Int, active bool) error {
	const op = "addArcadeToken"
	if err := l.authorize(ctx, op, RoleArcadeManager, caller); err != nil {
		return err
	}
	fields := log.Fields{"caller": caller.Hex(), "token": token.Hex()}

	var t Token
	err := guard(func() error {
		var err error
		if t, err = l.dialer.Dial(ctx, token); err != nil {
			return fmt.Errorf("%w: dial %s: %v", ErrTokenNotAccepted, token.Hex(), err)
		}
		if err := transferred(t.Approve(ctx, l.custody, caller, maxAllowance())); err != nil {
			return fmt.Errorf("approve %s for %s: %w", token.Hex(), caller.Hex(), err)
		}
		return nil
	})
	if err != nil {
		return l.finish(ctx, op, fields, nil, err)
	}

	return l.run(ctx, op, fields, func(j *journal) ([]Observation, error) {
		l.registry.upsert(token, rate, active, t)
		return []Observation{observe(KindArcadeTokenAdded, nil, map[string]string{
			"token":  token.Hex(),
			"rate":   amountOrZero(rate).Dec(),
			"active": fmt.Sprint(active),
			"by":     caller.Hex(),
		})}, nil
	})
}

// RemoveArcadeToken deactivates token. It is reversible through AddArcadeToken.
func (l *Ledger) RemoveArcadeToken(ctx context.Context, caller, token common.Address) error {
	const op = "removeArcadeToken"
	if err := l.authorize(ctx, op, RoleArcadeManager, caller); err != nil {
		return err
	}
	return l.run(ctx, op, log.Fields{"caller": caller.Hex(), "token": token.Hex()}, func(j *journal) ([]Observation, error) {
		l.registry.disable(token)
		return []Observation{observe(KindArcadeTokenRemoved, nil, map[string]string{
			"token": token.Hex(),
			"by":    caller.Hex(),
		})}, nil
	})
}

// ArcadeToken reports token's activation flag and redemption rate. Unknown
// tokens read as inactive with a zero rate.
func (l *Ledger) ArcadeToken(token common.Address) (active bool, rate *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.lookup(token)
}

func (l *Ledger) IsAccepted(token common.Address) bool {
	active, _ := l.ArcadeToken(token)
	return active
}
