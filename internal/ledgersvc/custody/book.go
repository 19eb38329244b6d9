// Package custody is an in-process token book: balances and allowances for
// any number of tokens behind the ledger's transfer interface. The service
// uses it as its settlement backend; tests use its fault and re-entry hooks
// to play a hostile token.
package custody

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
)

var (
	ErrInsufficientBalance   = errors.New("custody: insufficient balance")
	ErrInsufficientAllowance = errors.New("custody: insufficient allowance")
	ErrBalanceOverflow       = errors.New("custody: balance overflow")
	ErrInjected              = errors.New("custody: injected failure")
)

type sheet struct {
	balances   map[common.Address]*uint256.Int
	allowances map[common.Address]map[common.Address]*uint256.Int
	failNext   int
	silent     bool
	hook       func(ctx context.Context)
}

func newSheet() *sheet {
	return &sheet{
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[common.Address]*uint256.Int),
	}
}

type Book struct {
	mu     sync.Mutex
	sheets map[common.Address]*sheet
}

func NewBook() *Book {
	return &Book{sheets: make(map[common.Address]*sheet)}
}

func (b *Book) sheet(token common.Address) *sheet {
	s, ok := b.sheets[token]
	if !ok {
		s = newSheet()
		b.sheets[token] = s
	}
	return s
}

// Dial returns the transfer service for token. Every address dials.
func (b *Book) Dial(ctx context.Context, token common.Address) (ledger.Token, error) {
	return &Account{book: b, token: token}, nil
}

// Mint credits amount of token to holder.
func (b *Book) Mint(token, holder common.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.sheet(token)
	sum, overflow := new(uint256.Int).AddOverflow(s.balance(holder), amount)
	if overflow {
		return ErrBalanceOverflow
	}
	s.balances[holder] = sum
	return nil
}

func (b *Book) Balance(token, holder common.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sheet(token).balance(holder).Clone()
}

func (b *Book) Allowance(token, owner, spender common.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sheet(token).allowance(owner, spender).Clone()
}

// FailNext makes the next n transfers of token fail. With silent set they
// return false without an error, as non-conforming tokens do.
func (b *Book) FailNext(token common.Address, n int, silent bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.sheet(token)
	s.failNext = n
	s.silent = silent
}

// OnTransfer installs fn to run before every transfer of token, outside the
// book's lock so fn may call back into whoever initiated the transfer.
func (b *Book) OnTransfer(token common.Address, fn func(ctx context.Context)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sheet(token).hook = fn
}

func (s *sheet) balance(holder common.Address) *uint256.Int {
	if v, ok := s.balances[holder]; ok {
		return v
	}
	return new(uint256.Int)
}

func (s *sheet) allowance(owner, spender common.Address) *uint256.Int {
	if v, ok := s.allowances[owner][spender]; ok {
		return v
	}
	return new(uint256.Int)
}

func (s *sheet) approve(owner, spender common.Address, amount *uint256.Int) {
	if s.allowances[owner] == nil {
		s.allowances[owner] = make(map[common.Address]*uint256.Int)
	}
	s.allowances[owner][spender] = amount
}

func (s *sheet) move(from, to common.Address, amount *uint256.Int) error {
	fromBalance := s.balance(from)
	if fromBalance.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, from.Hex(), fromBalance.Dec(), amount.Dec())
	}
	if from == to {
		return nil
	}
	toBalance, overflow := new(uint256.Int).AddOverflow(s.balance(to), amount)
	if overflow {
		return ErrBalanceOverflow
	}
	s.balances[from] = new(uint256.Int).Sub(fromBalance, amount)
	s.balances[to] = toBalance
	return nil
}

// Account is one token's view of a Book. It implements ledger.Token.
type Account struct {
	book  *Book
	token common.Address
}

func (a *Account) before(ctx context.Context) (bool, error) {
	a.book.mu.Lock()
	s := a.book.sheet(a.token)
	hook := s.hook
	a.book.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}

	a.book.mu.Lock()
	defer a.book.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		if s.silent {
			return false, nil
		}
		return false, ErrInjected
	}
	return true, nil
}

func (a *Account) Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) (bool, error) {
	if ok, err := a.before(ctx); !ok {
		return false, err
	}

	a.book.mu.Lock()
	defer a.book.mu.Unlock()
	if err := a.book.sheet(a.token).move(from, to, amount); err != nil {
		return false, err
	}
	log.Debugf("custody %s: %s -> %s %s", a.token.Hex(), from.Hex(), to.Hex(), amount.Dec())
	return true, nil
}

// TransferFrom moves amount from from to to on spender's allowance. A maximal
// allowance is never decremented.
func (a *Account) TransferFrom(ctx context.Context, spender, from, to common.Address, amount *uint256.Int) (bool, error) {
	if ok, err := a.before(ctx); !ok {
		return false, err
	}

	a.book.mu.Lock()
	defer a.book.mu.Unlock()
	s := a.book.sheet(a.token)
	allowed := s.allowance(from, spender)
	if allowed.Lt(amount) {
		return false, fmt.Errorf("%w: %s may spend %s of %s, needs %s", ErrInsufficientAllowance, spender.Hex(), allowed.Dec(), from.Hex(), amount.Dec())
	}
	if err := s.move(from, to, amount); err != nil {
		return false, err
	}
	if !allowed.Eq(new(uint256.Int).SetAllOne()) {
		s.approve(from, spender, new(uint256.Int).Sub(allowed, amount))
	}
	return true, nil
}

func (a *Account) BalanceOf(ctx context.Context, owner common.Address) (*uint256.Int, error) {
	return a.book.Balance(a.token, owner), nil
}

func (a *Account) Approve(ctx context.Context, owner, spender common.Address, amount *uint256.Int) (bool, error) {
	a.book.mu.Lock()
	defer a.book.mu.Unlock()

	a.book.sheet(a.token).approve(owner, spender, amount.Clone())
	return true, nil
}
