package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/monadtype/internal/auth"
	"github.com/robalobadob/monadtype/internal/chain"
	"github.com/robalobadob/monadtype/internal/claims"
	"github.com/robalobadob/monadtype/internal/db"
	"github.com/robalobadob/monadtype/internal/metrics"
	"github.com/robalobadob/monadtype/internal/ratelimit"
	"github.com/robalobadob/monadtype/internal/store"
	"github.com/robalobadob/monadtype/internal/words"
)

const player = "0x98A538511fF0ad568D5E32aa604C5Ef1f3046741"

type fixture struct {
	srv     *Server
	chain   *chain.Mock
	stats   store.Store
	claims  *claims.Store
	metrics *metrics.Metrics
	wallet  *auth.Wallet
}

func newFixture(t *testing.T, mutate ...func(*Deps)) *fixture {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.Migrate(conn))

	wallet, err := auth.NewWallet("test-secret", time.Hour)
	require.NoError(t, err)

	f := &fixture{
		chain:   chain.NewMock(map[int]*big.Int{1: chain.Ether(10), 2: chain.Ether(20), 3: chain.Ether(30)}),
		stats:   store.NewMemoryStore(),
		claims:  claims.NewStore(conn),
		metrics: metrics.New(),
		wallet:  wallet,
	}
	d := Deps{
		Stats:   f.stats,
		Chain:   f.chain,
		Claims:  f.claims,
		Wallet:  f.wallet,
		Limiter: ratelimit.New(10, time.Minute),
		Metrics: f.metrics,
	}
	for _, m := range mutate {
		m(&d)
	}
	f.srv = New(d)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, header ...string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "MonadType Backend", body["service"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestClaimRewardHappyPath(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodPost, "/api/claim-reward", map[string]any{"playerAddress": player, "level": 2})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "20.0", body["rewardAmount"])
	assert.Equal(t, 2.0, body["level"])
	assert.Len(t, body["txHash"], 66)

	// Recorded in the ledger.
	list, err := f.claims.ByAddress(context.Background(), player, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, body["txHash"], list[0].TxHash)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Claims.WithLabelValues(metrics.ClaimPaid)))

	// Second claim of the same level is refused.
	code, body = f.do(t, http.MethodPost, "/api/claim-reward", map[string]any{"playerAddress": player, "level": 2})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Level reward already claimed", body["error"])
	assert.Equal(t, false, body["success"])
}

func TestClaimRewardValidation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name string
		body any
		msg  string
	}{
		{"missing address", map[string]any{"level": 1}, "Missing required fields: playerAddress, level"},
		{"missing level", map[string]any{"playerAddress": player}, "Missing required fields: playerAddress, level"},
		{"zero level", map[string]any{"playerAddress": player, "level": 0}, "Missing required fields: playerAddress, level"},
		{"bad address", map[string]any{"playerAddress": "0x123", "level": 1}, "Invalid wallet address"},
		{"level too high", map[string]any{"playerAddress": player, "level": 11}, "Invalid level (must be 1-10)"},
		{"negative level", map[string]any{"playerAddress": player, "level": -1}, "Invalid level (must be 1-10)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := f.do(t, http.MethodPost, "/api/claim-reward", tc.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, tc.msg, body["error"])
		})
	}
}

func TestClaimRewardNoRewardConfigured(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodPost, "/api/claim-reward", map[string]any{"playerAddress": player, "level": 7})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No reward configured for this level", body["error"])
}

func TestClaimRateLimited(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Limiter = ratelimit.New(2, time.Minute) })
	for i := 0; i < 2; i++ {
		code, _ := f.do(t, http.MethodPost, "/api/claim-reward", map[string]any{"playerAddress": player, "level": 9})
		require.Equal(t, http.StatusBadRequest, code)
	}
	code, body := f.do(t, http.MethodPost, "/api/claim-reward", map[string]any{"playerAddress": player, "level": 1})
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "Too many requests. Please try again later.", body["error"])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RateLimited))
}

type failingChain struct {
	*chain.Mock
	claimErr error
	receipt  chain.Receipt
}

func (c failingChain) RewardPlayer(ctx context.Context, p common.Address, lvl int) (chain.Receipt, error) {
	return c.receipt, c.claimErr
}

func TestClaimChainErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		receipt chain.Receipt
		msg     string
	}{
		{"insufficient funds", fmt.Errorf("%w: boom", chain.ErrInsufficientFunds), chain.Receipt{}, "Insufficient funds for gas"},
		{"revert", fmt.Errorf("%w: boom", chain.ErrWouldRevert), chain.Receipt{}, "Transaction failed. Please try again."},
		{"other", fmt.Errorf("dial tcp: refused"), chain.Receipt{}, "Internal server error"},
		{"failed receipt", nil, chain.Receipt{TxHash: "0x01", Success: false}, "Transaction failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, func(d *Deps) {
				d.Chain = failingChain{
					Mock:     chain.NewMock(map[int]*big.Int{1: chain.Ether(10)}),
					claimErr: tc.err,
					receipt:  tc.receipt,
				}
			})
			code, body := f.do(t, http.MethodPost, "/api/claim-reward", map[string]any{"playerAddress": player, "level": 1})
			assert.Equal(t, http.StatusInternalServerError, code)
			assert.Equal(t, tc.msg, body["error"])
		})
	}
}

func TestLevelComplete(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodPost, "/api/level-complete", map[string]any{"address": player, "level": 3, "score": 1234.5})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, 1234.5, body["score"])
	assert.Equal(t, "30.0", body["rewardAmount"])

	list, err := f.claims.ByAddress(context.Background(), player, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Score)
	assert.Equal(t, 1234, *list[0].Score)

	code, body = f.do(t, http.MethodPost, "/api/level-complete", map[string]any{"address": player, "level": 101, "score": 1})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid level (must be 1-100)", body["error"])

	code, body = f.do(t, http.MethodPost, "/api/level-complete", map[string]any{"address": player, "level": 1, "score": -5})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid score", body["error"])

	code, body = f.do(t, http.MethodPost, "/api/level-complete", map[string]any{"address": player, "level": 1})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing required fields: address, level, score", body["error"])
}

func TestPlayerStats(t *testing.T) {
	f := newFixture(t)
	for _, lvl := range []int{1, 3} {
		_, err := f.chain.RewardPlayer(context.Background(), common.HexToAddress(player), lvl)
		require.NoError(t, err)
	}
	code, body := f.do(t, http.MethodGet, "/api/player-stats/"+player, nil)
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, player, data["address"])
	assert.Equal(t, []any{1.0, 3.0}, data["claimedLevels"])
	assert.Equal(t, 3.0, data["highestLevel"])

	code, body = f.do(t, http.MethodGet, "/api/player-stats/nope", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid wallet address", body["error"])
}

type highLevelChain struct {
	*chain.Mock
	highest int
	err     error
}

func (c highLevelChain) HighestLevel(context.Context, common.Address) (int, error) {
	return c.highest, c.err
}

func TestPlayerStatsUsesContractHighestLevel(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Chain = highLevelChain{Mock: chain.NewMock(nil), highest: 12}
	})
	code, body := f.do(t, http.MethodGet, "/api/player-stats/"+player, nil)
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, []any{}, data["claimedLevels"])
	assert.Equal(t, 12.0, data["highestLevel"])

	mock := chain.NewMock(map[int]*big.Int{2: chain.Ether(20)})
	_, err := mock.RewardPlayer(context.Background(), common.HexToAddress(player), 2)
	require.NoError(t, err)
	f = newFixture(t, func(d *Deps) {
		d.Chain = highLevelChain{Mock: mock, err: fmt.Errorf("rpc down")}
	})
	code, body = f.do(t, http.MethodGet, "/api/player-stats/"+player, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, body["data"].(map[string]any)["highestLevel"])
}

func TestBalanceAndClaimHistory(t *testing.T) {
	f := newFixture(t)
	code, _ := f.do(t, http.MethodPost, "/api/claim-reward", map[string]any{"playerAddress": player, "level": 1})
	require.Equal(t, http.StatusOK, code)

	code, body := f.do(t, http.MethodGet, "/api/balance/"+player, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "10.0", body["balance"])

	code, body = f.do(t, http.MethodGet, "/api/claims/"+player+"?limit=5", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["claims"], 1)
}

func TestClaimsWithoutLedger(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Claims = nil })
	code, _ := f.do(t, http.MethodPost, "/api/claim-reward", map[string]any{"playerAddress": player, "level": 1})
	require.Equal(t, http.StatusOK, code)
	code, body := f.do(t, http.MethodGet, "/api/claims/"+player, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "Claim ledger not configured", body["error"])
}

func TestUpdateStatsAndLeaderboard(t *testing.T) {
	f := newFixture(t)
	other := "0x0000000000000000000000000000000000000Abc"

	code, body := f.do(t, http.MethodPost, "/api/update-stats", map[string]any{"address": player, "level": 2, "score": 500.7, "tokens": "30.0"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Stats updated successfully", body["message"])

	code, _ = f.do(t, http.MethodPost, "/api/update-stats", map[string]any{"address": other, "level": 5, "score": 900})
	require.Equal(t, http.StatusOK, code)

	// Worse report is accepted but changes nothing.
	code, _ = f.do(t, http.MethodPost, "/api/update-stats", map[string]any{"address": player, "level": 1, "score": 10})
	require.Equal(t, http.StatusOK, code)

	code, body = f.do(t, http.MethodGet, "/api/leaderboard", nil)
	require.Equal(t, http.StatusOK, code)
	entries := body["entries"].([]any)
	require.Len(t, entries, 2)

	first := entries[0].(map[string]any)
	assert.Equal(t, "0x0000...0Abc", first["address"])
	assert.Equal(t, 900.0, first["score"])
	assert.Equal(t, "0", first["tokens"])
	assert.Equal(t, "Just now", first["lastPlayed"])

	second := entries[1].(map[string]any)
	assert.Equal(t, "0x98A5...6741", second["address"])
	assert.Equal(t, 500.0, second["score"])
	assert.Equal(t, 2.0, second["level"])
	assert.Equal(t, "30.0", second["tokens"])

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.StatsUpdates))
}

func TestUpdateStatsValidation(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodPost, "/api/update-stats", map[string]any{"address": player, "level": 1})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing required fields: address, level, score", body["error"])

	code, body = f.do(t, http.MethodPost, "/api/update-stats", map[string]any{"address": "bad", "level": 1, "score": 0})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid wallet address", body["error"])

	req := httptest.NewRequest(http.MethodPost, "/api/update-stats", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWalletSignInGuardsClaims(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.RequireWalletAuth = true })
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()

	code, body := f.do(t, http.MethodPost, "/api/claim-reward", map[string]any{"playerAddress": addr, "level": 1})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Unauthorized", body["error"])

	code, body = f.do(t, http.MethodPost, "/api/auth/nonce", map[string]any{"address": addr})
	require.Equal(t, http.StatusOK, code)
	sig, err := auth.Sign(key, body["message"].(string))
	require.NoError(t, err)

	code, body = f.do(t, http.MethodPost, "/api/auth/verify", map[string]any{"address": addr, "signature": sig})
	require.Equal(t, http.StatusOK, code, body)
	token := body["token"].(string)

	code, body = f.do(t, http.MethodPost, "/api/claim-reward",
		map[string]any{"playerAddress": player, "level": 1}, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Token does not match address", body["error"])

	code, body = f.do(t, http.MethodPost, "/api/claim-reward",
		map[string]any{"playerAddress": addr, "level": 1}, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, code, body)

	code, _ = f.do(t, http.MethodPost, "/api/claim-reward",
		map[string]any{"playerAddress": addr, "level": 2}, "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestVerifyWithoutNonce(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodPost, "/api/auth/verify", map[string]any{"address": player, "signature": "0x00"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "No pending sign-in for address", body["error"])
}

func TestCORSAndNotFound(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.ClientOrigin = "*" })
	req := httptest.NewRequest(http.MethodOptions, "/api/claim-reward", nil)
	rec := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

	code, body := f.do(t, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Just now", timeAgo(now, now.Add(-59*time.Second)))
	assert.Equal(t, "1 minutes ago", timeAgo(now, now.Add(-60*time.Second)))
	assert.Equal(t, "59 minutes ago", timeAgo(now, now.Add(-3599*time.Second)))
	assert.Equal(t, "2 hours ago", timeAgo(now, now.Add(-2*time.Hour)))
	assert.Equal(t, "3 days ago", timeAgo(now, now.Add(-73*time.Hour)))
}

func TestAbbreviate(t *testing.T) {
	assert.Equal(t, "0x98A5...6741", abbreviate(player))
	assert.Equal(t, "0x12", abbreviate("0x12"))
}

func TestDebugWords(t *testing.T) {
	require.NoError(t, words.Init(""))
	f := newFixture(t)
	code, body := f.do(t, http.MethodGet, "/debug/words", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Greater(t, body["words"], 100.0)
}
