package comm

import (
	"fmt"
	"testing"

	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGameID(t *testing.T) {
	id, err := ParseGameID("42")
	require.NoError(t, err)
	assert.Equal(t, "42", id.Dec())

	id, err = ParseGameID("0x2a")
	require.NoError(t, err)
	assert.Equal(t, "42", id.Dec())

	_, err = ParseGameID("")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = ParseGameID("-1")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestParseAddressAndAmount(t *testing.T) {
	_, err := ParseAddress("player", "nope")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	a, err := ParseAddress("player", "0x00000000000000000000000000000000000000a1")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xa1"), a)

	v, err := ParseAmount("fee", "0")
	require.NoError(t, err)
	assert.True(t, v.IsZero())
	_, err = ParseAmount("percentage", "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = ParseAmount("rate", "  ")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = ParseAmount("fee", "1.5")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestFraction(t *testing.T) {
	assert.Equal(t, "0.1", Fraction(ledger.DefaultFeePercentage()))
	assert.Equal(t, "0.05", Fraction(uint256.NewInt(50_000_000_000_000_000)))
	assert.Equal(t, "0", Fraction(new(uint256.Int)))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, "success", StatusOf(nil))
	assert.Equal(t, "game-full", StatusOf(fmt.Errorf("wrapped: %w", ledger.ErrGameFull)))
	assert.Equal(t, "game-busy", StatusOf(ledger.ErrGameBusy))
	assert.Equal(t, "token-busy", StatusOf(ledger.ErrTokenBusy))
	assert.Equal(t, "invalid-request", StatusOf(ErrInvalidRequest))
	assert.Equal(t, "server-error", StatusOf(fmt.Errorf("boom")))
}
