package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type Status uint8

const (
	StatusClosed Status = iota
	StatusOpen
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// game is the per-id ledger state. A game with playerLimit zero does not
// exist. Absent map entries and zero entries are equivalent.
type game struct {
	status          Status
	playerCount     uint64
	playerLimit     uint64
	registrationFee *uint256.Int
	arcadeToken     common.Address
	exchange        bool
	totalFee        *uint256.Int

	fee   map[common.Address]*uint256.Int
	paid  map[common.Address]bool
	seats map[common.Address]bool
}

func newGame() *game {
	return &game{
		registrationFee: new(uint256.Int),
		totalFee:        new(uint256.Int),
		fee:             make(map[common.Address]*uint256.Int),
		paid:            make(map[common.Address]bool),
		seats:           make(map[common.Address]bool),
	}
}

// GameInfo is a point-in-time copy of a game's lifecycle and totals.
type GameInfo struct {
	ID              *uint256.Int
	Status          Status
	PlayerCount     uint64
	PlayerLimit     uint64
	RegistrationFee *uint256.Int
	ArcadeToken     common.Address
	Exchange        bool
	TotalFee        *uint256.Int
}

// PlayerState is a player's standing in one game.
type PlayerState struct {
	Seated bool
	Paid   bool
	Fee    *uint256.Int
}

// CreateGame opens game id with the given terms and zeroed counters.
//
// Per-player seats, payments and fees left by a previous game under the same
// id are NOT cleared; call DeleteGame before reusing an id.
func (l *Ledger) CreateGame(ctx context.Context, caller common.Address, id, fee *uint256.Int, token common.Address, limit uint64, exchange bool) error {
	const op = "createGame"
	if err := l.authorize(ctx, op, RoleGameMaster, caller); err != nil {
		return err
	}
	key := *id
	registrationFee := amountOrZero(fee)
	return l.run(ctx, op, gameFields(caller, id), func(j *journal) ([]Observation, error) {
		if err := l.idle(key); err != nil {
			return nil, err
		}
		g := l.slot(key)
		g.status = StatusOpen
		g.totalFee = new(uint256.Int)
		g.playerCount = 0
		g.registrationFee = registrationFee
		g.arcadeToken = token
		g.playerLimit = limit
		g.exchange = exchange
		return []Observation{observe(KindGameCreated, id, map[string]string{
			"fee":      registrationFee.Dec(),
			"token":    token.Hex(),
			"limit":    fmt.Sprint(limit),
			"exchange": fmt.Sprint(exchange),
			"by":       caller.Hex(),
		})}, nil
	})
}

// CloseGame moves game id to Closed from any state.
func (l *Ledger) CloseGame(ctx context.Context, caller common.Address, id *uint256.Int) error {
	return l.setStatus(ctx, "closeGame", caller, id, StatusClosed, KindGameClosed)
}

// OpenGame moves game id to Open from any state without touching counters.
func (l *Ledger) OpenGame(ctx context.Context, caller common.Address, id *uint256.Int) error {
	return l.setStatus(ctx, "openGame", caller, id, StatusOpen, KindGameOpened)
}

func (l *Ledger) setStatus(ctx context.Context, op string, caller common.Address, id *uint256.Int, status Status, kind Kind) error {
	if err := l.authorize(ctx, op, RoleGameMaster, caller); err != nil {
		return err
	}
	key := *id
	return l.run(ctx, op, gameFields(caller, id), func(j *journal) ([]Observation, error) {
		if err := l.idle(key); err != nil {
			return nil, err
		}
		l.slot(key).status = status
		return []Observation{observe(kind, id, map[string]string{"by": caller.Hex()})}, nil
	})
}

// DeleteGame erases game id entirely, per-player state included.
func (l *Ledger) DeleteGame(ctx context.Context, caller common.Address, id *uint256.Int) error {
	const op = "deleteGame"
	if err := l.authorize(ctx, op, RoleGameMaster, caller); err != nil {
		return err
	}
	key := *id
	return l.run(ctx, op, gameFields(caller, id), func(j *journal) ([]Observation, error) {
		if err := l.idle(key); err != nil {
			return nil, err
		}
		delete(l.games, key)
		return []Observation{observe(KindGameDeleted, id, map[string]string{"by": caller.Hex()})}, nil
	})
}

// Register pulls the registration fee from caller into custody and records
// the payment. Preconditions are checked in order: seat, open, capacity, not
// yet paid, existence. The token must also be active.
func (l *Ledger) Register(ctx context.Context, caller common.Address, id *uint256.Int) error {
	key := *id
	return l.run(ctx, "register", gameFields(caller, id), func(j *journal) ([]Observation, error) {
		if err := l.idle(key); err != nil {
			return nil, err
		}
		g := l.lookup(key)
		switch {
		case !g.seats[caller]:
			return nil, fmt.Errorf("%w: %s holds no seat in game %s", ErrUnauthorized, caller.Hex(), key.Dec())
		case g.status != StatusOpen:
			return nil, fmt.Errorf("%w: game %s", ErrGameClosed, key.Dec())
		case g.playerCount >= g.playerLimit:
			return nil, fmt.Errorf("%w: game %s has %d of %d players", ErrGameFull, key.Dec(), g.playerCount, g.playerLimit)
		case g.paid[caller]:
			return nil, fmt.Errorf("%w: %s in game %s", ErrAlreadyRegistered, caller.Hex(), key.Dec())
		case g.playerLimit == 0:
			return nil, fmt.Errorf("%w: game %s", ErrGameNotFound, key.Dec())
		}

		at, err := l.registry.bound(g.arcadeToken)
		if err != nil {
			return nil, err
		}
		if !at.Active {
			return nil, fmt.Errorf("%w: %s", ErrTokenInactive, g.arcadeToken.Hex())
		}

		amount := g.registrationFee.Clone()
		total, overflow := new(uint256.Int).AddOverflow(g.totalFee, amount)
		if overflow {
			return nil, fmt.Errorf("%w: total fee of game %s overflows", ErrArithmeticFault, key.Dec())
		}

		previousTotal := g.totalFee
		g.playerCount++
		g.fee[caller] = amount
		g.paid[caller] = true
		g.totalFee = total
		j.record(func() {
			g.playerCount--
			delete(g.fee, caller)
			delete(g.paid, caller)
			g.totalFee = previousTotal
		})

		err = l.outside(key, func() error {
			return transferred(at.token.TransferFrom(ctx, l.custody, caller, l.custody, amount))
		})
		if err != nil {
			return nil, fmt.Errorf("pull registration fee from %s: %w", caller.Hex(), err)
		}

		return []Observation{observe(KindPlayerRegistered, id, map[string]string{
			"player": caller.Hex(),
			"amount": amount.Dec(),
			"token":  g.arcadeToken.Hex(),
		})}, nil
	})
}

// Game returns a snapshot of game id, or ErrGameNotFound.
func (l *Ledger) Game(id *uint256.Int) (GameInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	g, ok := l.games[*id]
	if !ok || g.playerLimit == 0 {
		return GameInfo{}, fmt.Errorf("%w: game %s", ErrGameNotFound, id.Dec())
	}
	return GameInfo{
		ID:              id.Clone(),
		Status:          g.status,
		PlayerCount:     g.playerCount,
		PlayerLimit:     g.playerLimit,
		RegistrationFee: g.registrationFee.Clone(),
		ArcadeToken:     g.arcadeToken,
		Exchange:        g.exchange,
		TotalFee:        g.totalFee.Clone(),
	}, nil
}

// PlayerState returns player's seat, payment and fee in game id. Unknown
// games and players read as zero.
func (l *Ledger) PlayerState(id *uint256.Int, player common.Address) PlayerState {
	l.mu.Lock()
	defer l.mu.Unlock()

	g := l.lookup(*id)
	return PlayerState{
		Seated: g.seats[player],
		Paid:   g.paid[player],
		Fee:    amountOrZero(g.fee[player]),
	}
}
