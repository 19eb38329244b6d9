package access

import (
	"context"
	"sync"

	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ledger"
	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// RoleTable is an in-process ledger.AccessGate.
type RoleTable struct {
	mu      sync.RWMutex
	members map[ledger.Role]map[common.Address]struct{}
}

// NewRoleTable returns a table in which owner holds every ledger role.
func NewRoleTable(owner common.Address) *RoleTable {
	t := &RoleTable{members: make(map[ledger.Role]map[common.Address]struct{})}
	for _, role := range []ledger.Role{ledger.RoleAdmin, ledger.RoleArcadeManager, ledger.RoleGameMaster} {
		t.Grant(role, owner)
	}
	return t
}

func (t *RoleTable) Grant(role ledger.Role, who ...common.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.members[role]
	if !ok {
		set = make(map[common.Address]struct{})
		t.members[role] = set
	}
	for _, w := range who {
		set[w] = struct{}{}
		log.Infof("role %s granted to %s", role, w.Hex())
	}
}

func (t *RoleTable) HasRole(ctx context.Context, role ledger.Role, principal common.Address) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.members[role][principal]
	return ok, nil
}

// Members lists the holders of role in no particular order.
func (t *RoleTable) Members(role ledger.Role) []common.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]common.Address, 0, len(t.members[role]))
	for w := range t.members[role] {
		out = append(out, w)
	}
	return out
}
