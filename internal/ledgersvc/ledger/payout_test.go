package ledger_test

import (
	"testing"

	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ledger"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArcadeFee(t *testing.T) {
	rate := uint256.NewInt(50_000_000_000_000_000)
	pct := ledger.DefaultFeePercentage()

	fee, err := ledger.ArcadeFee(uint256.NewInt(200), rate, pct)
	require.NoError(t, err)
	assert.True(t, fee.IsZero())

	// 1e36 * 1.5e17 / 1e18 / 1e18
	total := uint256.MustFromDecimal("1000000000000000000000000000000000000")
	fee, err = ledger.ArcadeFee(total, rate, pct)
	require.NoError(t, err)
	assert.Equal(t, "150000000000000000", fee.Dec())

	// the product exceeds 256 bits but the quotient does not
	max := new(uint256.Int).SetAllOne()
	fee, err = ledger.ArcadeFee(max, ledger.Base(), new(uint256.Int))
	require.NoError(t, err)
	assert.Equal(t, new(uint256.Int).Div(max, ledger.Base()).Dec(), fee.Dec())

	_, err = ledger.ArcadeFee(max, ledger.Base(), ledger.Base())
	assert.ErrorIs(t, err, ledger.ErrArithmeticFault)

	_, err = ledger.ArcadeFee(uint256.NewInt(1), max, uint256.NewInt(1))
	assert.ErrorIs(t, err, ledger.ErrArithmeticFault)
}

func TestPayout(t *testing.T) {
	p, err := ledger.Payout(uint256.NewInt(200), uint256.NewInt(30))
	require.NoError(t, err)
	assert.Equal(t, "170", p.Dec())

	_, err = ledger.Payout(uint256.NewInt(30), uint256.NewInt(200))
	assert.ErrorIs(t, err, ledger.ErrArithmeticFault)
}
