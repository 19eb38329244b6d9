package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Token is the external value-transfer service for one token. Implementations
// may be non-conforming or adversarial: a false result and a non-nil error are
// both treated as a failed transfer, and an implementation may call back into
// the ledger before returning.
type Token interface {
	Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) (bool, error)
	TransferFrom(ctx context.Context, spender, from, to common.Address, amount *uint256.Int) (bool, error)
	BalanceOf(ctx context.Context, owner common.Address) (*uint256.Int, error)
	Approve(ctx context.Context, owner, spender common.Address, amount *uint256.Int) (bool, error)
}

// TokenDialer resolves a token address to its transfer service.
type TokenDialer interface {
	Dial(ctx context.Context, token common.Address) (Token, error)
}

func transferred(ok bool, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if !ok {
		return ErrTransferFailed
	}
	return nil
}

func maxAllowance() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}
