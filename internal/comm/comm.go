package comm

import (
	"encoding/json"
	"time"
)

// Message is the envelope for ledger commands on the bus. Caller is the
// principal the command runs as; the bus is trusted to have authenticated it.
type Message struct {
	Type      string          `json:"type"` // e.g. "register", "set-winner"
	Caller    string          `json:"caller"`
	RequestId string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data"`
}

type Res struct {
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	RequestId string      `json:"request_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func NewRes(status, message string, data interface{}) Res {
	return Res{
		Status:    status,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

type GameRequest struct {
	GameID string `json:"game_id"`
}

type CreateGameRequest struct {
	GameID   string `json:"game_id"`
	Fee      string `json:"fee"`
	Token    string `json:"token"`
	Limit    uint64 `json:"limit"`
	Exchange bool   `json:"exchange"`
}

type SeatRequest struct {
	GameID string `json:"game_id"`
	Player string `json:"player"`
}

type WinnerRequest struct {
	GameID string `json:"game_id"`
	Winner string `json:"winner"`
}

type TokenRequest struct {
	Token  string `json:"token"`
	Rate   string `json:"rate,omitempty"`
	Active bool   `json:"active"`
}

type FeeRequest struct {
	Percentage string `json:"percentage"`
}

type GameData struct {
	GameID          string `json:"game_id"`
	Status          string `json:"status"`
	PlayerCount     uint64 `json:"player_count"`
	PlayerLimit     uint64 `json:"player_limit"`
	RegistrationFee string `json:"registration_fee"`
	ArcadeToken     string `json:"arcade_token"`
	Exchange        bool   `json:"exchange"`
	TotalFee        string `json:"total_fee"`
}

type PlayerData struct {
	GameID string `json:"game_id"`
	Player string `json:"player"`
	Seated bool   `json:"seated"`
	Paid   bool   `json:"paid"`
	Fee    string `json:"fee"`
}

type TokenData struct {
	Token          string `json:"token"`
	Active         bool   `json:"active"`
	RedemptionRate string `json:"redemption_rate"`
	Fraction       string `json:"fraction"` // redemption_rate / 1e18
}

type FeeData struct {
	Percentage string `json:"percentage"`
	Fraction   string `json:"fraction"`
}

type PlaceData struct {
	Placed bool `json:"placed"`
}

type ReconcileData struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}
