package custody

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
)

// Grant is one opening position: amount of token minted to holder, and
// optionally an allowance from holder to spender.
type Grant struct {
	Token   string `json:"token"`
	Holder  string `json:"holder"`
	Amount  string `json:"amount"`
	Spender string `json:"spender,omitempty"`
	Allow   string `json:"allow,omitempty"`
}

// LoadSeed applies the grants in the JSON file at path.
func (b *Book) LoadSeed(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed %s: %w", path, err)
	}
	var grants []Grant
	if err := json.Unmarshal(raw, &grants); err != nil {
		return fmt.Errorf("decode seed %s: %w", path, err)
	}
	for i, g := range grants {
		if err := b.apply(ctx, g); err != nil {
			return fmt.Errorf("seed grant %d: %w", i, err)
		}
	}
	log.Infof("custody seeded with %d grants from %s", len(grants), path)
	return nil
}

func (b *Book) apply(ctx context.Context, g Grant) error {
	if !common.IsHexAddress(g.Token) || !common.IsHexAddress(g.Holder) {
		return fmt.Errorf("invalid token %q or holder %q", g.Token, g.Holder)
	}
	token, holder := common.HexToAddress(g.Token), common.HexToAddress(g.Holder)

	if g.Amount != "" {
		amount, err := uint256.FromDecimal(g.Amount)
		if err != nil {
			return fmt.Errorf("amount %q: %w", g.Amount, err)
		}
		if err := b.Mint(token, holder, amount); err != nil {
			return err
		}
	}
	if g.Spender == "" {
		return nil
	}
	if !common.IsHexAddress(g.Spender) {
		return fmt.Errorf("invalid spender %q", g.Spender)
	}
	allow := new(uint256.Int).SetAllOne()
	if g.Allow != "" {
		var err error
		if allow, err = uint256.FromDecimal(g.Allow); err != nil {
			return fmt.Errorf("allow %q: %w", g.Allow, err)
		}
	}
	t, _ := b.Dial(ctx, token)
	_, err := t.Approve(ctx, holder, common.HexToAddress(g.Spender), allow)
	return err
}
