package broker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/avvvet/arcade-ledger/internal/comm"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/access"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/custody"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ledger"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/service"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerHex = "0x00000000000000000000000000000000000000a1"
	vaultHex = "0x00000000000000000000000000000000000000b2"
	tokenHex = "0x00000000000000000000000000000000000000c3"
	p1Hex    = "0x0000000000000000000000000000000000000001"
	p2Hex    = "0x0000000000000000000000000000000000000002"
)

func newTestBroker(t *testing.T) (*Broker, *custody.Book) {
	t.Helper()
	book := custody.NewBook()
	l, err := ledger.New(ledger.Options{
		Custody: common.HexToAddress(vaultHex),
		Gate:    access.NewRoleTable(common.HexToAddress(ownerHex)),
		Tokens:  book,
	})
	require.NoError(t, err)

	token := common.HexToAddress(tokenHex)
	acct, err := book.Dial(context.Background(), token)
	require.NoError(t, err)
	for _, p := range []string{p1Hex, p2Hex} {
		require.NoError(t, book.Mint(token, common.HexToAddress(p), uint256.NewInt(1000)))
		_, err := acct.Approve(context.Background(), common.HexToAddress(p), common.HexToAddress(vaultHex), new(uint256.Int).SetAllOne())
		require.NoError(t, err)
	}
	// nil Conn: Dispatch never touches the bus
	return NewBroker(nil, service.NewLedgerService(l), "ledger.events"), book
}

func envelope(t *testing.T, typ, caller string, data interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	payload, err := json.Marshal(comm.Message{Type: typ, Caller: caller, RequestId: "req-" + typ, Data: raw})
	require.NoError(t, err)
	return payload
}

func TestDispatch_FullGame(t *testing.T) {
	b, book := newTestBroker(t)
	ctx := context.Background()

	steps := []struct {
		typ, caller string
		data        interface{}
	}{
		{"add-arcade-token", ownerHex, comm.TokenRequest{Token: tokenHex, Rate: "50000000000000000", Active: true}},
		{"create-game", ownerHex, comm.CreateGameRequest{GameID: "7", Fee: "100", Token: tokenHex, Limit: 2}},
		{"place-player", ownerHex, comm.SeatRequest{GameID: "7", Player: p1Hex}},
		{"place-player", ownerHex, comm.SeatRequest{GameID: "7", Player: p2Hex}},
		{"register", p1Hex, comm.GameRequest{GameID: "7"}},
		{"register", p2Hex, comm.GameRequest{GameID: "0x7"}},
		{"set-winner", ownerHex, comm.WinnerRequest{GameID: "7", Winner: p1Hex}},
	}
	for _, s := range steps {
		res := b.Dispatch(ctx, envelope(t, s.typ, s.caller, s.data))
		require.Equal(t, "success", res.Status, "%s: %s", s.typ, res.Message)
		assert.Equal(t, "req-"+s.typ, res.RequestId)
	}

	token := common.HexToAddress(tokenHex)
	assert.Equal(t, uint256.NewInt(1100), book.Balance(token, common.HexToAddress(p1Hex)))
	assert.Equal(t, uint256.NewInt(900), book.Balance(token, common.HexToAddress(p2Hex)))

	res := b.Dispatch(ctx, envelope(t, "game", "", comm.GameRequest{GameID: "7"}))
	require.Equal(t, "success", res.Status)
	game, ok := res.Data.(comm.GameData)
	require.True(t, ok)
	assert.Equal(t, "closed", game.Status)
	assert.Equal(t, "200", game.TotalFee)
}

func TestDispatch_Errors(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	res := b.Dispatch(ctx, []byte("{not json"))
	assert.Equal(t, "invalid-request", res.Status)

	res = b.Dispatch(ctx, envelope(t, "mint-money", ownerHex, nil))
	assert.Equal(t, "invalid-request", res.Status)

	res = b.Dispatch(ctx, envelope(t, "create-game", "nobody", comm.CreateGameRequest{GameID: "1"}))
	assert.Equal(t, "invalid-request", res.Status)

	res = b.Dispatch(ctx, envelope(t, "close-game", p1Hex, comm.GameRequest{GameID: "1"}))
	assert.Equal(t, "unauthorized", res.Status)
	assert.Nil(t, res.Data)

	res = b.Dispatch(ctx, envelope(t, "game", "", comm.GameRequest{GameID: "42"}))
	assert.Equal(t, "game-not-found", res.Status)
}

func TestDispatch_Reads(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	res := b.Dispatch(ctx, envelope(t, "arcade-fee-percentage", "", nil))
	require.Equal(t, "success", res.Status)
	assert.Equal(t, comm.FeeData{Percentage: "100000000000000000", Fraction: "0.1"}, res.Data)

	res = b.Dispatch(ctx, envelope(t, "is-accepted", "", comm.TokenRequest{Token: tokenHex}))
	require.Equal(t, "success", res.Status)
	assert.Equal(t, false, res.Data)

	res = b.Dispatch(ctx, envelope(t, "player", "", comm.SeatRequest{GameID: "3", Player: p1Hex}))
	require.Equal(t, "success", res.Status)
	player, ok := res.Data.(comm.PlayerData)
	require.True(t, ok)
	assert.False(t, player.Seated)
	assert.Equal(t, "0", player.Fee)
}
