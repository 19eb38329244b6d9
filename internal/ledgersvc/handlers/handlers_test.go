package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avvvet/arcade-ledger/internal/ledgersvc/access"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/custody"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ledger"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/service"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerHex = "0x00000000000000000000000000000000000000a1"
	vaultHex = "0x00000000000000000000000000000000000000b2"
	tokenHex = "0x00000000000000000000000000000000000000c3"
	p1Hex    = "0x0000000000000000000000000000000000000001"
)

type fakeHistory struct {
	game  string
	limit int
}

func (f *fakeHistory) History(_ context.Context, game string, limit int) ([]ledger.Observation, error) {
	f.game, f.limit = game, limit
	return []ledger.Observation{{ID: "o1", Kind: ledger.KindGameCreated, Game: game}}, nil
}

type testServer struct {
	h       *Handler
	router  *chi.Mux
	book    *custody.Book
	history *fakeHistory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	book := custody.NewBook()
	l, err := ledger.New(ledger.Options{
		Custody: common.HexToAddress(vaultHex),
		Gate:    access.NewRoleTable(common.HexToAddress(ownerHex)),
		Tokens:  book,
	})
	require.NoError(t, err)

	token := common.HexToAddress(tokenHex)
	require.NoError(t, book.Mint(token, common.HexToAddress(p1Hex), uint256.NewInt(500)))
	acct, _ := book.Dial(context.Background(), token)
	_, err = acct.Approve(context.Background(), common.HexToAddress(p1Hex), common.HexToAddress(vaultHex), new(uint256.Int).SetAllOne())
	require.NoError(t, err)

	hist := &fakeHistory{}
	h := NewHandler(service.NewLedgerService(l), hist, nil, "7004")
	h.InitAuth("test-secret")
	r := chi.NewRouter()
	h.SetRoutes(r)
	return &testServer{h: h, router: r, book: book, history: hist}
}

func (s *testServer) do(t *testing.T, method, path, as string, body interface{}) (int, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if as != "" {
		tok, err := s.h.IssueToken(as, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var rsp Response
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))
	}
	return rec.Code, rsp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, rsp := s.do(t, http.MethodGet, "/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, rsp.Message, "7004")
}

func TestSecuredRoutesNeedToken(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(t, http.MethodPut, "/v1/games/1", "", map[string]interface{}{"fee": "10"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestGameLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)

	code, rsp := s.do(t, http.MethodPut, "/v1/tokens/"+tokenHex, ownerHex, map[string]interface{}{"rate": "0", "active": true})
	require.Equal(t, http.StatusOK, code, rsp.Error)

	code, rsp = s.do(t, http.MethodPut, "/v1/games/5", ownerHex, map[string]interface{}{
		"fee": "40", "token": tokenHex, "limit": 3,
	})
	require.Equal(t, http.StatusOK, code, rsp.Error)

	code, rsp = s.do(t, http.MethodPut, "/v1/games/5/players/"+p1Hex, ownerHex, nil)
	require.Equal(t, http.StatusOK, code, rsp.Error)
	assert.Equal(t, map[string]interface{}{"placed": true}, rsp.Data)

	code, rsp = s.do(t, http.MethodPost, "/v1/games/5/register", p1Hex, nil)
	require.Equal(t, http.StatusOK, code, rsp.Error)

	code, rsp = s.do(t, http.MethodPost, "/v1/games/5/register", p1Hex, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already-registered", rsp.Message)

	code, rsp = s.do(t, http.MethodGet, "/v1/games/5", "", nil)
	require.Equal(t, http.StatusOK, code)
	game := rsp.Data.(map[string]interface{})
	assert.Equal(t, "40", game["total_fee"])
	assert.Equal(t, "open", game["status"])

	code, rsp = s.do(t, http.MethodPost, "/v1/games/5/players/"+p1Hex+"/refund", ownerHex, nil)
	require.Equal(t, http.StatusOK, code, rsp.Error)
	assert.Equal(t, uint256.NewInt(500), s.book.Balance(common.HexToAddress(tokenHex), common.HexToAddress(p1Hex)))
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)

	code, rsp := s.do(t, http.MethodPost, "/v1/games/9/close", p1Hex, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "unauthorized", rsp.Message)

	code, _ = s.do(t, http.MethodGet, "/v1/games/9", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodGet, "/v1/games/not-a-number", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/v1/games/9/winner", ownerHex, map[string]interface{}{"winner": "bob"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSettersRequireTheirAmount(t *testing.T) {
	s := newTestServer(t)

	code, rsp := s.do(t, http.MethodPut, "/v1/fee", ownerHex, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid-request", rsp.Message)

	code, _ = s.do(t, http.MethodPut, "/v1/tokens/"+tokenHex, ownerHex, map[string]interface{}{"active": true})
	assert.Equal(t, http.StatusBadRequest, code)

	_, rsp = s.do(t, http.MethodGet, "/v1/fee", "", nil)
	assert.Equal(t, "100000000000000000", rsp.Data.(map[string]interface{})["percentage"])
	_, rsp = s.do(t, http.MethodGet, "/v1/tokens/"+tokenHex, "", nil)
	assert.Equal(t, false, rsp.Data.(map[string]interface{})["active"])
}

func TestReadsAndHistory(t *testing.T) {
	s := newTestServer(t)

	code, rsp := s.do(t, http.MethodGet, "/v1/fee", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0.1", rsp.Data.(map[string]interface{})["fraction"])

	code, rsp = s.do(t, http.MethodGet, "/v1/tokens/"+tokenHex, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, rsp.Data.(map[string]interface{})["active"])

	code, _ = s.do(t, http.MethodGet, "/v1/games/0x10/observations?limit=5", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "16", s.history.game)
	assert.Equal(t, 5, s.history.limit)

	code, _ = s.do(t, http.MethodGet, "/v1/games/1/observations?limit=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/v1/observations/ws", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHTTPCode(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, httpCode("transfer-failed"))
	assert.Equal(t, http.StatusUnprocessableEntity, httpCode("arithmetic-fault"))
	assert.Equal(t, http.StatusConflict, httpCode("game-busy"))
	assert.Equal(t, http.StatusInternalServerError, httpCode("server-error"))
}
