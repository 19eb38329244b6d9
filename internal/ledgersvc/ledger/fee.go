package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
)

// BaseUnit is the fixed-point scale of redemption rates and the fee percentage.
const BaseUnit uint64 = 1_000_000_000_000_000_000

// Base returns BaseUnit as a fresh 256-bit integer.
func Base() *uint256.Int {
	return uint256.NewInt(BaseUnit)
}

// DefaultFeePercentage is 10% of Base.
func DefaultFeePercentage() *uint256.Int {
	return uint256.NewInt(BaseUnit / 10)
}

type FeeConfig struct {
	percentage *uint256.Int
}

// SetArcadeFeePercentage replaces the global fee percentage. Settlements
// computed before the call are unaffected.
func (l *Ledger) SetArcadeFeePercentage(ctx context.Context, caller common.Address, percentage *uint256.Int) error {
	const op = "setArcadeFeePercentage"
	if err := l.authorize(ctx, op, RoleArcadeManager, caller); err != nil {
		return err
	}
	pct := amountOrZero(percentage)
	return l.run(ctx, op, log.Fields{"caller": caller.Hex(), "percentage": pct.Dec()}, func(j *journal) ([]Observation, error) {
		previous := l.fees.percentage
		l.fees.percentage = pct
		return []Observation{observe(KindArcadeFeePercentageSet, nil, map[string]string{
			"percentage": pct.Dec(),
			"previous":   previous.Dec(),
			"by":         caller.Hex(),
		})}, nil
	})
}

func (l *Ledger) ArcadeFeePercentage() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fees.percentage.Clone()
}
