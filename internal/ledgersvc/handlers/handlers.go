package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/avvvet/arcade-ledger/internal/comm"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ledger"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/service"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ws"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// CallerClaim is the JWT claim holding the caller's address.
const CallerClaim = "addr"

const defaultHistoryLimit = 100

// History reads persisted observations for one game.
type History interface {
	History(ctx context.Context, game string, limit int) ([]ledger.Observation, error)
}

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	upgrader  websocket.Upgrader
	svc       *service.LedgerService
	history   History
	feed      *ws.Feed
	port      string
}

// NewHandler wires the HTTP surface. history and feed may be nil.
func NewHandler(svc *service.LedgerService, history History, feed *ws.Feed, port string) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		svc:     svc,
		history: history,
		feed:    feed,
		port:    port,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

// respond writes data on success or the mapped error status.
func (h *Handler) respond(w http.ResponseWriter, data interface{}, err error) {
	status := comm.StatusOf(err)
	if err != nil {
		h.CreateResponse(w, Response{Message: status, Code: httpCode(status), Error: err.Error()})
		return
	}
	h.CreateResponse(w, Response{Message: status, Code: http.StatusOK, Data: data})
}

func httpCode(status string) int {
	switch status {
	case "success":
		return http.StatusOK
	case "invalid-request":
		return http.StatusBadRequest
	case "unauthorized":
		return http.StatusForbidden
	case "game-not-found", "token-not-accepted":
		return http.StatusNotFound
	case "game-closed", "game-full", "already-registered", "not-registered", "token-inactive", "game-busy", "token-busy":
		return http.StatusConflict
	case "arithmetic-fault":
		return http.StatusUnprocessableEntity
	case "transfer-failed":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "ledger service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}

// caller reads the authenticated address from the verified JWT.
func caller(r *http.Request) (common.Address, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return common.Address{}, err
	}
	addr, _ := claims[CallerClaim].(string)
	return comm.ParseAddress(CallerClaim, addr)
}

func decodeBody(r *http.Request, v interface{}) error {
	if r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body: %v", comm.ErrInvalidRequest, err)
	}
	return nil
}

func (h *Handler) gameRequest(r *http.Request) comm.GameRequest {
	return comm.GameRequest{GameID: chi.URLParam(r, "id")}
}

func (h *Handler) seatRequest(r *http.Request) comm.SeatRequest {
	return comm.SeatRequest{GameID: chi.URLParam(r, "id"), Player: chi.URLParam(r, "player")}
}

// public reads

func (h *Handler) GetFee(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.svc.ArcadeFeePercentage(), nil)
}

func (h *Handler) GetToken(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ArcadeToken(comm.TokenRequest{Token: chi.URLParam(r, "token")})
	h.respond(w, data, err)
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Game(h.gameRequest(r))
	h.respond(w, data, err)
}

func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Player(h.seatRequest(r))
	h.respond(w, data, err)
}

func (h *Handler) GetObservations(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.CreateResponse(w, Response{Message: "observation history is disabled", Code: http.StatusNotFound})
		return
	}
	id, err := comm.ParseGameID(chi.URLParam(r, "id"))
	if err != nil {
		h.respond(w, nil, err)
		return
	}
	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit <= 0 {
			h.respond(w, nil, comm.ErrInvalidRequest)
			return
		}
	}
	obs, err := h.history.History(r.Context(), id.Dec(), limit)
	h.respond(w, obs, err)
}

func (h *Handler) ObservationFeed(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		h.CreateResponse(w, Response{Message: "observation feed is disabled", Code: http.StatusNotFound})
		return
	}
	game := r.URL.Query().Get("game")
	if game != "" {
		id, err := comm.ParseGameID(game)
		if err != nil {
			h.respond(w, nil, err)
			return
		}
		game = id.Dec()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}
	h.feed.Serve(uuid.New().String(), game, conn)
}

// secured commands

func (h *Handler) command(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, caller common.Address) (interface{}, error)) {
	who, err := caller(r)
	if err != nil {
		h.CreateResponse(w, Response{Message: "unauthorized", Code: http.StatusUnauthorized, Error: err.Error()})
		return
	}
	data, err := run(r.Context(), who)
	h.respond(w, data, err)
}

func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(ctx context.Context, who common.Address) (interface{}, error) {
		req := comm.CreateGameRequest{}
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		req.GameID = chi.URLParam(r, "id")
		return nil, h.svc.CreateGame(ctx, who, req)
	})
}

func (h *Handler) CloseGame(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(ctx context.Context, who common.Address) (interface{}, error) {
		return nil, h.svc.CloseGame(ctx, who, h.gameRequest(r))
	})
}

func (h *Handler) OpenGame(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(ctx context.Context, who common.Address) (interface{}, error) {
		return nil, h.svc.OpenGame(ctx, who, h.gameRequest(r))
	})
}

func (h *Handler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(ctx context.Context, who common.Address) (interface{}, error) {
		return nil, h.svc.DeleteGame(ctx, who, h.gameRequest(r))
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(ctx context.Context, who common.Address) (interface{}, error) {
		return nil, h.svc.Register(ctx, who, h.gameRequest(r))
	})
}

func (h *Handler) LeaveMatch(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(ctx context.Context, who common.Address) (interface{}, error) {
		return nil, h.svc.LeaveMatch(ctx, who, h.gameRequest(r))
	})
}

func (h *Handler) PlacePlayer(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(ctx context.Context, who common.Address) (interface{}, error) {
		return h.svc.PlacePlayer(ctx, who, h.seatRequest(r))
	})
}

func (h *Handler) RemovePlayer(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(ctx context.Context, who common.Address) (interface{}, error) {
		return nil, h.svc.RemovePlayer(ctx, who, h.seatRequest(r))
	})
}

func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(ctx context.Context, who common.Address) (interface{}, error) {
		return nil, h.svc.Refund(ctx, who, h.seatRequest(r))
	})
}

func (h *Handler) SetWinner(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(ctx context.Context, who common.Address) (interface{}, error) {
		req := comm.WinnerRequest{}
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		req.GameID = chi.URLParam(r, "id")
		return nil, h.svc.SetWinner(ctx, who, req)
	})
}

func (h *Handler) AddArcadeToken(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(ctx context.Context, who common.Address) (interface{}, error) {
		req := comm.TokenRequest{}
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		req.Token = chi.URLParam(r, "token")
		return nil, h.svc.AddArcadeToken(ctx, who, req)
	})
}

func (h *Handler) RemoveArcadeToken(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(ctx context.Context, who common.Address) (interface{}, error) {
		return nil, h.svc.RemoveArcadeToken(ctx, who, comm.TokenRequest{Token: chi.URLParam(r, "token")})
	})
}

func (h *Handler) SetFee(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(ctx context.Context, who common.Address) (interface{}, error) {
		req := comm.FeeRequest{}
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		return nil, h.svc.SetArcadeFeePercentage(ctx, who, req)
	})
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(ctx context.Context, who common.Address) (interface{}, error) {
		return h.svc.Reconcile(ctx, who, comm.TokenRequest{Token: chi.URLParam(r, "token")})
	})
}
