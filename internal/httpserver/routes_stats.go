// internal/httpserver/routes_stats.go
//
// Leaderboard routes over the in-memory stats store:
//   - POST /api/update-stats → merge a player's best level/score
//   - GET  /api/leaderboard  → top 10 by score

package httpserver

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/monadtype/internal/chain"
	"github.com/robalobadob/monadtype/internal/store"
)

const leaderboardSize = 10

type updateStatsReq struct {
	Address string   `json:"address"`
	Level   *int     `json:"level"`
	Score   *float64 `json:"score"`
	Tokens  string   `json:"tokens"`
}

func (s *Server) handleUpdateStats(w http.ResponseWriter, r *http.Request) {
	var req updateStatsReq
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
	if *req.Score < 0 || math.IsNaN(*req.Score) {
		writeError(w, http.StatusBadRequest, "Invalid score")
		return
	}

	changed, err := s.deps.Stats.Update(r.Context(), store.PlayerStats{
		Address: req.Address,
		Level:   *req.Level,
		Score:   int(math.Floor(*req.Score)),
		Tokens:  req.Tokens,
	})
	if err != nil {
		log.Error().Err(err).Str("address", req.Address).Msg("update stats")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if changed {
		s.deps.Metrics.StatsUpdates.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Stats updated successfully"})
}

type leaderboardEntry struct {
	Address    string `json:"address"`
	Level      int    `json:"level"`
	Score      int    `json:"score"`
	Tokens     string `json:"tokens"`
	LastPlayed string `json:"lastPlayed"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	top, err := s.deps.Stats.Top(r.Context(), leaderboardSize)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	now := s.now()
	entries := make([]leaderboardEntry, 0, len(top))
	for _, p := range top {
		entries = append(entries, leaderboardEntry{
			Address:    abbreviate(p.Address),
			Level:      p.Level,
			Score:      p.Score,
			Tokens:     p.Tokens,
			LastPlayed: timeAgo(now, p.LastPlayed),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "entries": entries})
}

// abbreviate renders 0x1234...abcd.
func abbreviate(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// timeAgo renders the coarse age of t relative to now.
func timeAgo(now, t time.Time) string {
	secs := int(now.Sub(t) / time.Second)
	switch {
	case secs < 60:
		return "Just now"
	case secs < 3600:
		return fmt.Sprintf("%d minutes ago", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%d hours ago", secs/3600)
	}
	return fmt.Sprintf("%d days ago", secs/86400)
}
