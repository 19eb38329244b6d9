package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
)

// PlacePlayer seats player in game id. It reports false, without mutating
// anything, when the player already holds a seat.
func (l *Ledger) PlacePlayer(ctx context.Context, caller common.Address, id *uint256.Int, player common.Address) (bool, error) {
	const op = "placePlayer"
	if err := l.authorize(ctx, op, RoleGameMaster, caller); err != nil {
		return false, err
	}
	key := *id
	var placed bool
	err := l.run(ctx, op, seatFields(caller, id, player), func(j *journal) ([]Observation, error) {
		if err := l.idle(key); err != nil {
			return nil, err
		}
		g := l.slot(key)
		if g.seats[player] {
			return nil, nil
		}
		g.seats[player] = true
		placed = true
		return []Observation{observe(KindPlayerPlaced, id, map[string]string{
			"player": player.Hex(),
			"by":     caller.Hex(),
		})}, nil
	})
	return placed, err
}

// RemovePlayer revokes player's seat in game id whether or not it was held.
func (l *Ledger) RemovePlayer(ctx context.Context, caller common.Address, id *uint256.Int, player common.Address) error {
	const op = "removePlayer"
	if err := l.authorize(ctx, op, RoleGameMaster, caller); err != nil {
		return err
	}
	return l.unseat(ctx, op, caller, id, player, KindPlayerRemoved)
}

// LeaveMatch revokes the caller's own seat in game id.
func (l *Ledger) LeaveMatch(ctx context.Context, caller common.Address, id *uint256.Int) error {
	return l.unseat(ctx, "leaveMatch", caller, id, caller, KindPlayerLeft)
}

func (l *Ledger) unseat(ctx context.Context, op string, caller common.Address, id *uint256.Int, player common.Address, kind Kind) error {
	key := *id
	return l.run(ctx, op, seatFields(caller, id, player), func(j *journal) ([]Observation, error) {
		if err := l.idle(key); err != nil {
			return nil, err
		}
		if g, ok := l.games[key]; ok {
			delete(g.seats, player)
		}
		return []Observation{observe(kind, id, map[string]string{
			"player": player.Hex(),
			"by":     caller.Hex(),
		})}, nil
	})
}

func seatFields(caller common.Address, id *uint256.Int, player common.Address) log.Fields {
	f := gameFields(caller, id)
	f["player"] = player.Hex()
	return f
}
