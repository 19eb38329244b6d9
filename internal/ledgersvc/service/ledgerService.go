package service

import (
	"context"

	"github.com/avvvet/arcade-ledger/internal/comm"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// LedgerService adapts wire requests to ledger calls.
type LedgerService struct {
	ledger *ledger.Ledger
}

func NewLedgerService(l *ledger.Ledger) *LedgerService {
	return &LedgerService{ledger: l}
}

func (s *LedgerService) Register(ctx context.Context, caller common.Address, req comm.GameRequest) error {
	id, err := comm.ParseGameID(req.GameID)
	if err != nil {
		return err
	}
	return s.ledger.Register(ctx, caller, id)
}

func (s *LedgerService) LeaveMatch(ctx context.Context, caller common.Address, req comm.GameRequest) error {
	id, err := comm.ParseGameID(req.GameID)
	if err != nil {
		return err
	}
	return s.ledger.LeaveMatch(ctx, caller, id)
}

func (s *LedgerService) CreateGame(ctx context.Context, caller common.Address, req comm.CreateGameRequest) error {
	id, err := comm.ParseGameID(req.GameID)
	if err != nil {
		return err
	}
	fee, err := comm.ParseAmount("fee", req.Fee)
	if err != nil {
		return err
	}
	token, err := comm.ParseAddress("token", req.Token)
	if err != nil {
		return err
	}
	return s.ledger.CreateGame(ctx, caller, id, fee, token, req.Limit, req.Exchange)
}

func (s *LedgerService) CloseGame(ctx context.Context, caller common.Address, req comm.GameRequest) error {
	id, err := comm.ParseGameID(req.GameID)
	if err != nil {
		return err
	}
	return s.ledger.CloseGame(ctx, caller, id)
}

func (s *LedgerService) OpenGame(ctx context.Context, caller common.Address, req comm.GameRequest) error {
	id, err := comm.ParseGameID(req.GameID)
	if err != nil {
		return err
	}
	return s.ledger.OpenGame(ctx, caller, id)
}

func (s *LedgerService) DeleteGame(ctx context.Context, caller common.Address, req comm.GameRequest) error {
	id, err := comm.ParseGameID(req.GameID)
	if err != nil {
		return err
	}
	return s.ledger.DeleteGame(ctx, caller, id)
}

func (s *LedgerService) PlacePlayer(ctx context.Context, caller common.Address, req comm.SeatRequest) (comm.PlaceData, error) {
	id, player, err := parseSeat(req)
	if err != nil {
		return comm.PlaceData{}, err
	}
	placed, err := s.ledger.PlacePlayer(ctx, caller, id, player)
	return comm.PlaceData{Placed: placed}, err
}

func (s *LedgerService) RemovePlayer(ctx context.Context, caller common.Address, req comm.SeatRequest) error {
	id, player, err := parseSeat(req)
	if err != nil {
		return err
	}
	return s.ledger.RemovePlayer(ctx, caller, id, player)
}

func (s *LedgerService) Refund(ctx context.Context, caller common.Address, req comm.SeatRequest) error {
	id, player, err := parseSeat(req)
	if err != nil {
		return err
	}
	return s.ledger.Refund(ctx, caller, id, player)
}

func (s *LedgerService) SetWinner(ctx context.Context, caller common.Address, req comm.WinnerRequest) error {
	id, err := comm.ParseGameID(req.GameID)
	if err != nil {
		return err
	}
	winner, err := comm.ParseAddress("winner", req.Winner)
	if err != nil {
		return err
	}
	return s.ledger.SetWinner(ctx, caller, id, winner)
}

func (s *LedgerService) AddArcadeToken(ctx context.Context, caller common.Address, req comm.TokenRequest) error {
	token, err := comm.ParseAddress("token", req.Token)
	if err != nil {
		return err
	}
	rate, err := comm.ParseAmount("rate", req.Rate)
	if err != nil {
		return err
	}
	return s.ledger.AddArcadeToken(ctx, caller, token, rate, req.Active)
}

func (s *LedgerService) RemoveArcadeToken(ctx context.Context, caller common.Address, req comm.TokenRequest) error {
	token, err := comm.ParseAddress("token", req.Token)
	if err != nil {
		return err
	}
	return s.ledger.RemoveArcadeToken(ctx, caller, token)
}

func (s *LedgerService) SetArcadeFeePercentage(ctx context.Context, caller common.Address, req comm.FeeRequest) error {
	pct, err := comm.ParseAmount("percentage", req.Percentage)
	if err != nil {
		return err
	}
	return s.ledger.SetArcadeFeePercentage(ctx, caller, pct)
}

func (s *LedgerService) Reconcile(ctx context.Context, caller common.Address, req comm.TokenRequest) (comm.ReconcileData, error) {
	token, err := comm.ParseAddress("token", req.Token)
	if err != nil {
		return comm.ReconcileData{}, err
	}
	amount, err := s.ledger.Reconcile(ctx, caller, token)
	if err != nil {
		return comm.ReconcileData{}, err
	}
	return comm.ReconcileData{Token: token.Hex(), Amount: amount.Dec()}, nil
}

func (s *LedgerService) ArcadeToken(req comm.TokenRequest) (comm.TokenData, error) {
	token, err := comm.ParseAddress("token", req.Token)
	if err != nil {
		return comm.TokenData{}, err
	}
	active, rate := s.ledger.ArcadeToken(token)
	return comm.NewTokenData(token, active, rate), nil
}

func (s *LedgerService) IsAccepted(req comm.TokenRequest) (bool, error) {
	token, err := comm.ParseAddress("token", req.Token)
	if err != nil {
		return false, err
	}
	return s.ledger.IsAccepted(token), nil
}

func (s *LedgerService) ArcadeFeePercentage() comm.FeeData {
	return comm.NewFeeData(s.ledger.ArcadeFeePercentage())
}

func (s *LedgerService) Game(req comm.GameRequest) (comm.GameData, error) {
	id, err := comm.ParseGameID(req.GameID)
	if err != nil {
		return comm.GameData{}, err
	}
	info, err := s.ledger.Game(id)
	if err != nil {
		return comm.GameData{}, err
	}
	return comm.NewGameData(info), nil
}

func (s *LedgerService) Player(req comm.SeatRequest) (comm.PlayerData, error) {
	id, player, err := parseSeat(req)
	if err != nil {
		return comm.PlayerData{}, err
	}
	ps := s.ledger.PlayerState(id, player)
	return comm.PlayerData{
		GameID: id.Dec(),
		Player: player.Hex(),
		Seated: ps.Seated,
		Paid:   ps.Paid,
		Fee:    ps.Fee.Dec(),
	}, nil
}

func parseSeat(req comm.SeatRequest) (id *uint256.Int, player common.Address, err error) {
	if id, err = comm.ParseGameID(req.GameID); err != nil {
		return nil, common.Address{}, err
	}
	if player, err = comm.ParseAddress("player", req.Player); err != nil {
		return nil, common.Address{}, err
	}
	return id, player, nil
}
