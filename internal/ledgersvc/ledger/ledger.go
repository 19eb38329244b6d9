package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
)

type Options struct {
	// Custody is the account that holds registration fees for every game.
	Custody common.Address
	Gate    AccessGate
	Tokens  TokenDialer
	// FeePercentage is the initial arcade fee, scaled by Base. Nil selects
	// DefaultFeePercentage.
	FeePercentage *uint256.Int
	Recorder      Recorder
}

// Ledger is the escrow engine. All operations are safe for concurrent use:
// bookkeeping is serialized on a single lock, and external transfers run with
// the lock released while the affected game is marked busy.
type Ledger struct {
	mu sync.Mutex

	custody  common.Address
	gate     AccessGate
	dialer   TokenDialer
	recorder Recorder

	registry *TokenRegistry
	fees     *FeeConfig
	games    map[uint256.Int]*game
	busy     map[uint256.Int]struct{}
	// draining holds tokens with a custody outflow in flight.
	draining map[common.Address]struct{}
}

func New(opts Options) (*Ledger, error) {
	if opts.Gate == nil {
		return nil, errors.New("ledger: access gate is required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("ledger: token dialer is required")
	}
	pct := opts.FeePercentage
	if pct == nil {
		pct = DefaultFeePercentage()
	}
	return &Ledger{
		custody:  opts.Custody,
		gate:     opts.Gate,
		dialer:   opts.Tokens,
		recorder: opts.Recorder,
		registry: newTokenRegistry(),
		fees:     &FeeConfig{percentage: pct.Clone()},
		games:    make(map[uint256.Int]*game),
		busy:     make(map[uint256.Int]struct{}),
		draining: make(map[common.Address]struct{}),
	}, nil
}

// Custody returns the account holding escrowed funds.
func (l *Ledger) Custody() common.Address {
	return l.custody
}

// run executes fn under the ledger lock. Mutations fn journals are unwound if
// it fails; observations are emitted only once it has committed.
func (l *Ledger) run(ctx context.Context, op string, fields log.Fields, fn func(j *journal) ([]Observation, error)) error {
	obs, err := l.locked(fn)
	return l.finish(ctx, op, fields, obs, err)
}

func (l *Ledger) locked(fn func(j *journal) ([]Observation, error)) ([]Observation, error) {
	j := &journal{}

	l.mu.Lock()
	defer l.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			j.rollback()
			panic(r)
		}
	}()

	obs, err := fn(j)
	if err != nil {
		j.rollback()
		return nil, err
	}
	return obs, nil
}

func (l *Ledger) finish(ctx context.Context, op string, fields log.Fields, obs []Observation, err error) error {
	entry := log.WithFields(fields).WithField("op", op)
	if err != nil {
		entry.Warnf("aborted: %v", err)
		return err
	}
	entry.Info("committed")
	l.emit(ctx, obs)
	return nil
}

// outside performs an external call for game key. It is entered and left with
// l.mu held; while call runs the lock is released and the game is busy, so any
// re-entrant or concurrent operation on that game fails with ErrGameBusy.
func (l *Ledger) outside(key uint256.Int, call func() error) error {
	l.busy[key] = struct{}{}
	defer delete(l.busy, key)
	return l.release(call)
}

// outflow is outside for a call that pays out of custody in token. One outflow
// per token runs at a time, so the custody balance a settlement caps against
// is never also being spent by another game. A nil key holds no game.
func (l *Ledger) outflow(key *uint256.Int, token common.Address, call func() error) error {
	if _, ok := l.draining[token]; ok {
		return fmt.Errorf("%w: custody of %s has a payout in flight", ErrTokenBusy, token.Hex())
	}
	l.draining[token] = struct{}{}
	defer delete(l.draining, token)

	if key == nil {
		return l.release(call)
	}
	return l.outside(*key, call)
}

// release runs call with l.mu unlocked. A panicking token is a failed
// transfer; the lock is always retaken.
func (l *Ledger) release(call func() error) error {
	l.mu.Unlock()
	defer l.mu.Lock()
	return guard(call)
}

func guard(call func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: token call panicked: %v", ErrTransferFailed, r)
		}
	}()
	return call()
}

func (l *Ledger) idle(key uint256.Int) error {
	if _, ok := l.busy[key]; ok {
		return fmt.Errorf("%w: game %s has a transfer in flight", ErrGameBusy, key.Dec())
	}
	return nil
}

// slot returns the stored game for key, creating an empty one if needed.
func (l *Ledger) slot(key uint256.Int) *game {
	g, ok := l.games[key]
	if !ok {
		g = newGame()
		l.games[key] = g
	}
	return g
}

// lookup returns the stored game for key or a detached empty game. Mutating
// the result of lookup is only meaningful for games that exist.
func (l *Ledger) lookup(key uint256.Int) *game {
	if g, ok := l.games[key]; ok {
		return g
	}
	return newGame()
}

func gameFields(caller common.Address, id *uint256.Int) log.Fields {
	return log.Fields{"caller": caller.Hex(), "game": id.Dec()}
}

func amountOrZero(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return x.Clone()
}
