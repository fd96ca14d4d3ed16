// internal/httpserver/routes_rewards.go
//
// Reward routes backed by the rewards contract:
//   - POST /api/claim-reward          → pay the reward for a completed level (1..10)
//   - POST /api/level-complete        → legacy alias carrying a score (levels 1..100)
//   - GET  /api/player-stats/{addr}   → levels already claimed on chain
//   - GET  /api/balance/{addr}        → token balance
//   - GET  /api/claims/{addr}         → receipts from the local ledger
//
// The contract enforces one claim per (player, level); the hasClaimedLevel
// pre-check only turns a revert into a readable 400.

package httpserver

import (
	"context"
	"errors"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/monadtype/internal/chain"
	"github.com/robalobadob/monadtype/internal/claims"
	"github.com/robalobadob/monadtype/internal/metrics"
)

const (
	maxClaimLevel    = 10
	maxLegacyLevel   = 100
	playerStatLevels = 10
	maxClaimsListed  = 200
)

type claimRewardReq struct {
	PlayerAddress string `json:"playerAddress"`
	Level         *int   `json:"level"`
}

func (s *Server) handleClaimReward(w http.ResponseWriter, r *http.Request) {
	var req claimRewardReq
	if !decode(w, r, &req) {
		return
	}
	if req.PlayerAddress == "" || req.Level == nil || *req.Level == 0 {
		writeError(w, http.StatusBadRequest, "Missing required fields: playerAddress, level")
		return
	}
	if !chain.IsAddress(req.PlayerAddress) {
		writeError(w, http.StatusBadRequest, "Invalid wallet address")
		return
	}
	if *req.Level < 1 || *req.Level > maxClaimLevel {
		writeError(w, http.StatusBadRequest, "Invalid level (must be 1-10)")
		return
	}
	s.claim(w, r, req.PlayerAddress, *req.Level, nil)
}

type levelCompleteReq struct {
	Address string   `json:"address"`
	Level   *int     `json:"level"`
	Score   *float64 `json:"score"`
}

func (s *Server) handleLevelComplete(w http.ResponseWriter, r *http.Request) {
	var req levelCompleteReq
	if !decode(w, r, &req) {
		return
	}
	if req.Address == "" || req.Level == nil || *req.Level == 0 || req.Score == nil {
		writeError(w, http.StatusBadRequest, "Missing required fields: address, level, score")
		return
	}
	if !chain.IsAddress(req.Address) {
		writeError(w, http.StatusBadRequest, "Invalid wallet address")
		return
	}
	if *req.Level < 1 || *req.Level > maxLegacyLevel {
		writeError(w, http.StatusBadRequest, "Invalid level (must be 1-100)")
		return
	}
	if *req.Score < 0 || math.IsNaN(*req.Score) {
		writeError(w, http.StatusBadRequest, "Invalid score")
		return
	}
	s.claim(w, r, req.Address, *req.Level, req.Score)
}

// claim runs the shared reward flow for an already validated request.
func (s *Server) claim(w http.ResponseWriter, r *http.Request, address string, level int, score *float64) {
	if me := signedIn(r); me != "" && !strings.EqualFold(me, address) {
		writeError(w, http.StatusForbidden, "Token does not match address")
		return
	}
	if ok, retry := s.deps.Limiter.Allow(strings.ToLower(address)); !ok {
		s.deps.Metrics.RateLimited.Inc()
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.deps.ClaimTimeout)
	defer cancel()
	player := common.HexToAddress(address)
	logger := log.With().Str("address", address).Int("level", level).Logger()

	claimed, err := s.deps.Chain.HasClaimedLevel(ctx, player, level)
	if err != nil {
		s.chainError(w, err, "hasClaimedLevel", address)
		return
	}
	if claimed {
		s.deps.Metrics.Claims.WithLabelValues(metrics.ClaimRejected).Inc()
		writeError(w, http.StatusBadRequest, "Level reward already claimed")
		return
	}

	reward, err := s.deps.Chain.LevelReward(ctx, level)
	if err != nil {
		s.chainError(w, err, "getLevelReward", address)
		return
	}
	if reward == nil || reward.Sign() == 0 {
		s.deps.Metrics.Claims.WithLabelValues(metrics.ClaimRejected).Inc()
		writeError(w, http.StatusBadRequest, "No reward configured for this level")
		return
	}

	rc, err := s.deps.Chain.RewardPlayer(ctx, player, level)
	if err != nil {
		s.chainError(w, err, "rewardPlayer", address)
		return
	}
	logger.Info().Str("tx", rc.TxHash).Msg("reward transaction mined")
	if !rc.Success {
		s.deps.Metrics.Claims.WithLabelValues(metrics.ClaimFailed).Inc()
		writeError(w, http.StatusInternalServerError, "Transaction failed")
		return
	}
	s.deps.Metrics.Claims.WithLabelValues(metrics.ClaimPaid).Inc()
	s.record(ctx, address, level, score, reward, rc.TxHash)

	res := map[string]any{
		"success":      true,
		"txHash":       rc.TxHash,
		"rewardAmount": chain.FormatEther(reward),
		"level":        level,
	}
	if score != nil {
		res["score"] = *score
	}
	writeJSON(w, http.StatusOK, res)
}

// record writes the receipt to the ledger; failures only log.
func (s *Server) record(ctx context.Context, address string, level int, score *float64, reward *big.Int, txHash string) {
	if s.deps.Claims == nil {
		return
	}
	c := claims.Claim{Address: address, Level: level, Reward: chain.FormatEther(reward), TxHash: txHash}
	if score != nil {
		v := int(math.Floor(*score))
		c.Score = &v
	}
	// The claim succeeded on chain even if the request was cancelled meanwhile.
	if err := s.deps.Claims.Record(context.WithoutCancel(ctx), c); err != nil {
		log.Warn().Err(err).Str("address", address).Str("tx", txHash).Msg("record claim")
	}
}

// chainError maps contract failures onto the public error messages.
func (s *Server) chainError(w http.ResponseWriter, err error, op, address string) {
	s.deps.Metrics.Claims.WithLabelValues(metrics.ClaimFailed).Inc()
	log.Error().Err(err).Str("op", op).Str("address", address).Msg("contract call failed")
	switch {
	case errors.Is(err, chain.ErrInsufficientFunds):
		writeError(w, http.StatusInternalServerError, "Insufficient funds for gas")
	case errors.Is(err, chain.ErrWouldRevert):
		writeError(w, http.StatusInternalServerError, "Transaction failed. Please try again.")
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !chain.IsAddress(address) {
		writeError(w, http.StatusBadRequest, "Invalid wallet address")
		return
	}
	player := common.HexToAddress(address)
	levels := []int{}
	highest := 0
	for lvl := 1; lvl <= playerStatLevels; lvl++ {
		ok, err := s.deps.Chain.HasClaimedLevel(r.Context(), player, lvl)
		if err != nil {
			log.Error().Err(err).Str("address", address).Msg("player stats")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if ok {
			levels = append(levels, lvl)
			highest = lvl
		}
	}
	// The contract also tracks levels past the claimable range.
	if onChain, err := s.deps.Chain.HighestLevel(r.Context(), player); err != nil {
		log.Warn().Err(err).Str("address", address).Msg("highest level")
	} else {
		highest = max(highest, onChain)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"address":       address,
			"claimedLevels": levels,
			"highestLevel":  highest,
		},
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !chain.IsAddress(address) {
		writeError(w, http.StatusBadRequest, "Invalid wallet address")
		return
	}
	bal, err := s.deps.Chain.TokenBalance(r.Context(), common.HexToAddress(address))
	switch {
	case errors.Is(err, chain.ErrNoToken):
		writeError(w, http.StatusServiceUnavailable, "Token contract not configured")
		return
	case err != nil:
		log.Error().Err(err).Str("address", address).Msg("token balance")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"address": address,
		"balance": chain.FormatEther(bal),
	})
}

func (s *Server) handleClaims(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !chain.IsAddress(address) {
		writeError(w, http.StatusBadRequest, "Invalid wallet address")
		return
	}
	if s.deps.Claims == nil {
		writeError(w, http.StatusServiceUnavailable, "Claim ledger not configured")
		return
	}
	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, maxClaimsListed)
	}
	list, err := s.deps.Claims.ByAddress(r.Context(), address, limit)
	if err != nil {
		log.Error().Err(err).Str("address", address).Msg("list claims")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "claims": list})
}
