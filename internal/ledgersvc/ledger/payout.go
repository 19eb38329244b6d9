package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ArcadeFee returns totalFee * (rate + percentage) / Base / Base, truncating.
// The product is carried in 512 bits so only a quotient wider than 256 bits
// is an arithmetic fault.
func ArcadeFee(totalFee, rate, percentage *uint256.Int) (*uint256.Int, error) {
	combined, overflow := new(uint256.Int).AddOverflow(rate, percentage)
	if overflow {
		return nil, fmt.Errorf("%w: redemption rate plus fee percentage overflows", ErrArithmeticFault)
	}
	scaled, overflow := new(uint256.Int).MulDivOverflow(totalFee, combined, Base())
	if overflow {
		return nil, fmt.Errorf("%w: arcade fee overflows", ErrArithmeticFault)
	}
	return scaled.Div(scaled, Base()), nil
}

// Payout returns totalFee - arcadeFee and fails rather than wrap.
func Payout(totalFee, arcadeFee *uint256.Int) (*uint256.Int, error) {
	payout, underflow := new(uint256.Int).SubOverflow(totalFee, arcadeFee)
	if underflow {
		return nil, fmt.Errorf("%w: arcade fee %s exceeds total fee %s", ErrArithmeticFault, arcadeFee.Dec(), totalFee.Dec())
	}
	return payout, nil
}

// capPayout limits payout to what custody actually holds. The custody balance
// is shared by every game in the token, so this is what keeps one game's
// settlement from failing when another game has drained the pool.
func capPayout(payout, balance *uint256.Int) *uint256.Int {
	if balance.Lt(payout) {
		return balance.Clone()
	}
	return payout.Clone()
}

// SetWinner settles game id in favour of winner and closes it. Exchange games
// are settled elsewhere and are only closed here.
func (l *Ledger) SetWinner(ctx context.Context, caller common.Address, id *uint256.Int, winner common.Address) error {
	const op = "setWinner"
	if err := l.authorize(ctx, op, RoleGameMaster, caller); err != nil {
		return err
	}
	key := *id
	fields := gameFields(caller, id)
	fields["winner"] = winner.Hex()

	return l.run(ctx, op, fields, func(j *journal) ([]Observation, error) {
		if err := l.idle(key); err != nil {
			return nil, err
		}
		g := l.lookup(key)
		closed := observe(KindGameClosed, id, map[string]string{"by": caller.Hex()})

		if g.exchange {
			g.status = StatusClosed
			return []Observation{
				observe(KindWinnerSet, id, map[string]string{"winner": winner.Hex(), "exchange": "true"}),
				closed,
			}, nil
		}

		if !g.paid[winner] {
			return nil, fmt.Errorf("%w: %s in game %s", ErrNotRegisteredForPayout, winner.Hex(), key.Dec())
		}
		at, err := l.registry.bound(g.arcadeToken)
		if err != nil {
			return nil, err
		}
		arcadeFee, err := ArcadeFee(g.totalFee, at.RedemptionRate, l.fees.percentage)
		if err != nil {
			return nil, err
		}
		payout, err := Payout(g.totalFee, arcadeFee)
		if err != nil {
			return nil, err
		}

		previous := g.status
		g.status = StatusClosed
		j.record(func() { g.status = previous })

		var paid *uint256.Int
		err = l.outflow(&key, g.arcadeToken, func() error {
			balance, err := at.token.BalanceOf(ctx, l.custody)
			if err != nil {
				return fmt.Errorf("%w: custody balance: %v", ErrTransferFailed, err)
			}
			paid = capPayout(payout, balance)
			return transferred(at.token.Transfer(ctx, l.custody, winner, paid))
		})
		if err != nil {
			return nil, fmt.Errorf("pay %s: %w", winner.Hex(), err)
		}

		// The Fee observation carries the winner's own registration fee, not
		// arcadeFee. Kept as-is pending review; see DESIGN.md.
		return []Observation{
			observe(KindFee, id, map[string]string{
				"player": winner.Hex(),
				"amount": amountOrZero(g.fee[winner]).Dec(),
			}),
			observe(KindPayout, id, map[string]string{
				"winner":     winner.Hex(),
				"amount":     paid.Dec(),
				"computed":   payout.Dec(),
				"arcade_fee": arcadeFee.Dec(),
				"token":      g.arcadeToken.Hex(),
			}),
			observe(KindWinnerSet, id, map[string]string{"winner": winner.Hex()}),
			closed,
		}, nil
	})
}

// Refund returns player's registration fee and clears their payment. It does
// nothing for exchange games.
func (l *Ledger) Refund(ctx context.Context, caller common.Address, id *uint256.Int, player common.Address) error {
	const op = "refund"
	if err := l.authorize(ctx, op, RoleGameMaster, caller); err != nil {
		return err
	}
	key := *id
	return l.run(ctx, op, seatFields(caller, id, player), func(j *journal) ([]Observation, error) {
		if err := l.idle(key); err != nil {
			return nil, err
		}
		g := l.lookup(key)
		if g.exchange {
			return nil, nil
		}
		if !g.paid[player] {
			return nil, fmt.Errorf("%w: %s in game %s", ErrNotRegisteredForPayout, player.Hex(), key.Dec())
		}
		at, err := l.registry.bound(g.arcadeToken)
		if err != nil {
			return nil, err
		}

		amount := g.registrationFee.Clone()
		total, underflow := new(uint256.Int).SubOverflow(g.totalFee, amount)
		if underflow {
			return nil, fmt.Errorf("%w: refund of %s exceeds total fee %s", ErrArithmeticFault, amount.Dec(), g.totalFee.Dec())
		}
		if g.playerCount == 0 {
			return nil, fmt.Errorf("%w: player count of game %s underflows", ErrArithmeticFault, key.Dec())
		}

		previousTotal, previousFee := g.totalFee, g.fee[player]
		g.totalFee = total
		delete(g.fee, player)
		delete(g.paid, player)
		g.playerCount--
		j.record(func() {
			g.totalFee = previousTotal
			if previousFee != nil {
				g.fee[player] = previousFee
			}
			g.paid[player] = true
			g.playerCount++
		})

		err = l.outflow(&key, g.arcadeToken, func() error {
			return transferred(at.token.Transfer(ctx, l.custody, player, amount))
		})
		if err != nil {
			return nil, fmt.Errorf("refund %s: %w", player.Hex(), err)
		}

		return []Observation{observe(KindRefund, id, map[string]string{
			"player": player.Hex(),
			"amount": amount.Dec(),
			"token":  g.arcadeToken.Hex(),
		})}, nil
	})
}
