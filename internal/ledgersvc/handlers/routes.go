package handlers

import (
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here
		r.Get("/health", h.HealthHandler)
		r.Get("/fee", h.GetFee)
		r.Get("/tokens/{token}", h.GetToken)
		r.Get("/games/{id}", h.GetGame)
		r.Get("/games/{id}/players/{player}", h.GetPlayer)
		r.Get("/games/{id}/observations", h.GetObservations)
		r.Get("/observations/ws", h.ObservationFeed)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Put("/games/{id}", h.CreateGame)
			r.Delete("/games/{id}", h.DeleteGame)
			r.Post("/games/{id}/close", h.CloseGame)
			r.Post("/games/{id}/open", h.OpenGame)
			r.Post("/games/{id}/register", h.Register)
			r.Post("/games/{id}/leave", h.LeaveMatch)
			r.Post("/games/{id}/winner", h.SetWinner)
			r.Put("/games/{id}/players/{player}", h.PlacePlayer)
			r.Delete("/games/{id}/players/{player}", h.RemovePlayer)
			r.Post("/games/{id}/players/{player}/refund", h.Refund)

			r.Put("/tokens/{token}", h.AddArcadeToken)
			r.Delete("/tokens/{token}", h.RemoveArcadeToken)
			r.Post("/tokens/{token}/reconcile", h.Reconcile)
			r.Put("/fee", h.SetFee)
		})
	})
}

// InitAuth sets the HS256 key that secured routes verify against.
func (h *Handler) InitAuth(secret string) {
	h.tokenAuth = jwtauth.New("HS256", []byte(secret), nil)
}

// IssueToken signs a token naming addr as the caller.
func (h *Handler) IssueToken(addr string, ttl time.Duration) (string, error) {
	_, tokenString, err := h.tokenAuth.Encode(map[string]interface{}{
		CallerClaim: addr,
		"exp":       time.Now().Add(ttl).Unix(),
	})
	if err != nil {
		log.Errorf("unable to sign token for %s: %v", addr, err)
		return "", err
	}
	return tokenString, nil
}
