package access

import (
	"context"
	"testing"

	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleTable_OwnerHoldsEveryRole(t *testing.T) {
	owner := common.HexToAddress("0x01")
	rt := NewRoleTable(owner)

	for _, role := range []ledger.Role{ledger.RoleAdmin, ledger.RoleArcadeManager, ledger.RoleGameMaster} {
		ok, err := rt.HasRole(context.Background(), role, owner)
		require.NoError(t, err)
		assert.True(t, ok, role)
	}
}

func TestRoleTable_Grant(t *testing.T) {
	ctx := context.Background()
	gm := common.HexToAddress("0x02")
	rt := NewRoleTable(common.HexToAddress("0x01"))

	ok, _ := rt.HasRole(ctx, ledger.RoleGameMaster, gm)
	assert.False(t, ok)

	rt.Grant(ledger.RoleGameMaster, gm)
	ok, _ = rt.HasRole(ctx, ledger.RoleGameMaster, gm)
	assert.True(t, ok)
	ok, _ = rt.HasRole(ctx, ledger.RoleAdmin, gm)
	assert.False(t, ok)
	assert.Len(t, rt.Members(ledger.RoleGameMaster), 2)
	assert.Len(t, rt.Members(ledger.RoleAdmin), 1)
}
