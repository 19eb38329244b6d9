package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

type Role string

const (
	RoleAdmin         Role = "ADMIN"
	RoleArcadeManager Role = "ARCADE_MANAGER"
	RoleGameMaster    Role = "GAME_MASTER"
)

// AccessGate answers whether a principal holds a role. It is consulted
// before every privileged entry point.
type AccessGate interface {
	HasRole(ctx context.Context, role Role, principal common.Address) (bool, error)
}

func (l *Ledger) authorize(ctx context.Context, op string, role Role, caller common.Address) error {
	ok, err := l.gate.HasRole(ctx, role, caller)
	if err != nil {
		err = fmt.Errorf("%w: %s check for %s: %v", ErrUnauthorized, role, caller.Hex(), err)
	} else if !ok {
		err = fmt.Errorf("%w: %s does not hold %s", ErrUnauthorized, caller.Hex(), role)
	}
	if err != nil {
		log.WithFields(log.Fields{"op": op, "caller": caller.Hex()}).Warnf("rejected: %v", err)
	}
	return err
}
