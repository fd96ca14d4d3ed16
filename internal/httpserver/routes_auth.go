// internal/httpserver/routes_auth.go
//
// Wallet sign-in:
//   - POST /api/auth/nonce  {address}            → {nonce, message}
//   - POST /api/auth/verify {address, signature} → {token, expiresAt}
//
// The token is then sent as "Authorization: Bearer <token>" on claim routes.

package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/monadtype/internal/auth"
	"github.com/robalobadob/monadtype/internal/chain"
)

type nonceReq struct {
	Address string `json:"address"`
}

type verifyReq struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	if s.deps.Wallet == nil {
		writeError(w, http.StatusServiceUnavailable, "Wallet sign-in not configured")
		return
	}
	var req nonceReq
	if !decode(w, r, &req) {
		return
	}
	if !chain.IsAddress(req.Address) {
		writeError(w, http.StatusBadRequest, "Invalid wallet address")
		return
	}
	nonce, msg, err := s.deps.Wallet.Nonce(req.Address)
	if err != nil {
		log.Error().Err(err).Msg("issue nonce")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "nonce": nonce, "message": msg})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if s.deps.Wallet == nil {
		writeError(w, http.StatusServiceUnavailable, "Wallet sign-in not configured")
		return
	}
	var req verifyReq
	if !decode(w, r, &req) {
		return
	}
	if req.Address == "" || req.Signature == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: address, signature")
		return
	}
	if !chain.IsAddress(req.Address) {
		writeError(w, http.StatusBadRequest, "Invalid wallet address")
		return
	}
	tok, exp, err := s.deps.Wallet.Verify(req.Address, req.Signature)
	switch {
	case errors.Is(err, auth.ErrNoNonce):
		writeError(w, http.StatusUnauthorized, "No pending sign-in for address")
		return
	case errors.Is(err, auth.ErrBadSignature):
		writeError(w, http.StatusUnauthorized, "Signature does not match address")
		return
	case err != nil:
		log.Error().Err(err).Str("address", req.Address).Msg("verify signature")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"token":     tok,
		"expiresAt": exp.UTC().Format(time.RFC3339),
	})
}
