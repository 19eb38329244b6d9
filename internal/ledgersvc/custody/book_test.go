package custody

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tok   = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	alice = common.HexToAddress("0x0000000000000000000000000000000000000001")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000002")
	vault = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	b := NewBook()
	require.NoError(t, b.Mint(tok, alice, uint256.NewInt(100)))
	acct, err := b.Dial(ctx, tok)
	require.NoError(t, err)

	ok, err := acct.Transfer(ctx, alice, bob, uint256.NewInt(30))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint256.NewInt(70), b.Balance(tok, alice))
	assert.Equal(t, uint256.NewInt(30), b.Balance(tok, bob))

	ok, err = acct.Transfer(ctx, alice, bob, uint256.NewInt(71))
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, uint256.NewInt(70), b.Balance(tok, alice))
}

func TestTransferFromSpendsAllowance(t *testing.T) {
	ctx := context.Background()
	b := NewBook()
	require.NoError(t, b.Mint(tok, alice, uint256.NewInt(100)))
	acct, _ := b.Dial(ctx, tok)

	ok, err := acct.TransferFrom(ctx, vault, alice, vault, uint256.NewInt(10))
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInsufficientAllowance)

	_, err = acct.Approve(ctx, alice, vault, uint256.NewInt(25))
	require.NoError(t, err)
	ok, err = acct.TransferFrom(ctx, vault, alice, vault, uint256.NewInt(10))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint256.NewInt(15), b.Allowance(tok, alice, vault))

	max := new(uint256.Int).SetAllOne()
	_, err = acct.Approve(ctx, alice, vault, max)
	require.NoError(t, err)
	_, err = acct.TransferFrom(ctx, vault, alice, vault, uint256.NewInt(10))
	require.NoError(t, err)
	assert.Equal(t, max, b.Allowance(tok, alice, vault))
	assert.Equal(t, uint256.NewInt(20), b.Balance(tok, vault))
}

func TestMintOverflow(t *testing.T) {
	b := NewBook()
	require.NoError(t, b.Mint(tok, alice, new(uint256.Int).SetAllOne()))
	assert.ErrorIs(t, b.Mint(tok, alice, uint256.NewInt(1)), ErrBalanceOverflow)
}

func TestFailNext(t *testing.T) {
	ctx := context.Background()
	b := NewBook()
	require.NoError(t, b.Mint(tok, alice, uint256.NewInt(100)))
	acct, _ := b.Dial(ctx, tok)

	b.FailNext(tok, 1, false)
	ok, err := acct.Transfer(ctx, alice, bob, uint256.NewInt(1))
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInjected)

	b.FailNext(tok, 1, true)
	ok, err = acct.Transfer(ctx, alice, bob, uint256.NewInt(1))
	assert.False(t, ok)
	assert.NoError(t, err)

	ok, err = acct.Transfer(ctx, alice, bob, uint256.NewInt(1))
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestOnTransferRunsOutsideLock(t *testing.T) {
	ctx := context.Background()
	b := NewBook()
	require.NoError(t, b.Mint(tok, alice, uint256.NewInt(100)))
	acct, _ := b.Dial(ctx, tok)

	calls := 0
	b.OnTransfer(tok, func(ctx context.Context) {
		calls++
		// re-entering the book must not deadlock
		assert.Equal(t, uint256.NewInt(100), b.Balance(tok, alice))
	})
	_, err := acct.Transfer(ctx, alice, bob, uint256.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"token": "`+tok.Hex()+`", "holder": "`+alice.Hex()+`", "amount": "1000", "spender": "`+vault.Hex()+`"},
		{"token": "`+tok.Hex()+`", "holder": "`+bob.Hex()+`", "amount": "50", "spender": "`+vault.Hex()+`", "allow": "20"}
	]`), 0o600))

	b := NewBook()
	require.NoError(t, b.LoadSeed(context.Background(), path))
	assert.Equal(t, uint256.NewInt(1000), b.Balance(tok, alice))
	assert.Equal(t, new(uint256.Int).SetAllOne(), b.Allowance(tok, alice, vault))
	assert.Equal(t, uint256.NewInt(20), b.Allowance(tok, bob, vault))
}

func TestLoadSeedRejectsBadGrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"token": "x", "holder": "y"}]`), 0o600))
	assert.Error(t, NewBook().LoadSeed(context.Background(), path))
}
