package comm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var ErrInvalidRequest = errors.New("invalid request")

// ParseGameID accepts a decimal or 0x-prefixed hex 256-bit id.
func ParseGameID(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: game id is required", ErrInvalidRequest)
	}
	var (
		id  *uint256.Int
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		id, err = uint256.FromHex(s)
	} else {
		id, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: game id %q: %v", ErrInvalidRequest, s, err)
	}
	return id, nil
}

func ParseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %s %q is not an address", ErrInvalidRequest, field, s)
	}
	return common.HexToAddress(s), nil
}

// ParseAmount parses a required decimal integer amount.
func ParseAmount(field, s string) (*uint256.Int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: %s is required", ErrInvalidRequest, field)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %v", ErrInvalidRequest, field, s, err)
	}
	return v, nil
}

// Fraction renders a Base-scaled value as a decimal fraction.
func Fraction(x *uint256.Int) string {
	return decimal.NewFromBigInt(x.ToBig(), -18).String()
}

func NewGameData(info ledger.GameInfo) GameData {
	return GameData{
		GameID:          info.ID.Dec(),
		Status:          info.Status.String(),
		PlayerCount:     info.PlayerCount,
		PlayerLimit:     info.PlayerLimit,
		RegistrationFee: info.RegistrationFee.Dec(),
		ArcadeToken:     info.ArcadeToken.Hex(),
		Exchange:        info.Exchange,
		TotalFee:        info.TotalFee.Dec(),
	}
}

func NewTokenData(token common.Address, active bool, rate *uint256.Int) TokenData {
	return TokenData{
		Token:          token.Hex(),
		Active:         active,
		RedemptionRate: rate.Dec(),
		Fraction:       Fraction(rate),
	}
}

func NewFeeData(pct *uint256.Int) FeeData {
	return FeeData{Percentage: pct.Dec(), Fraction: Fraction(pct)}
}

// StatusOf maps a ledger error to the status string used in responses.
func StatusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid-request"
	case errors.Is(err, ledger.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ledger.ErrGameClosed):
		return "game-closed"
	case errors.Is(err, ledger.ErrGameNotFound):
		return "game-not-found"
	case errors.Is(err, ledger.ErrGameFull):
		return "game-full"
	case errors.Is(err, ledger.ErrAlreadyRegistered):
		return "already-registered"
	case errors.Is(err, ledger.ErrTransferFailed):
		return "transfer-failed"
	case errors.Is(err, ledger.ErrNotRegisteredForPayout):
		return "not-registered"
	case errors.Is(err, ledger.ErrArithmeticFault):
		return "arithmetic-fault"
	case errors.Is(err, ledger.ErrTokenNotAccepted):
		return "token-not-accepted"
	case errors.Is(err, ledger.ErrTokenInactive):
		return "token-inactive"
	case errors.Is(err, ledger.ErrGameBusy):
		return "game-busy"
	case errors.Is(err, ledger.ErrTokenBusy):
		return "token-busy"
	default:
		return "server-error"
	}
}
