package api

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/monadtype/internal/auth"
	"github.com/robalobadob/monadtype/internal/chain"
	"github.com/robalobadob/monadtype/internal/httpserver"
	"github.com/robalobadob/monadtype/internal/ratelimit"
	"github.com/robalobadob/monadtype/internal/store"
)

const player = "0x98A538511fF0ad568D5E32aa604C5Ef1f3046741"

func newBackend(t *testing.T, requireAuth bool) *Client {
	t.Helper()
	wallet, err := auth.NewWallet("secret", time.Hour)
	require.NoError(t, err)
	srv := httpserver.New(httpserver.Deps{
		Stats:             store.NewMemoryStore(),
		Chain:             chain.NewMock(map[int]*big.Int{1: chain.Ether(10), 2: chain.Ether(20)}),
		Wallet:            wallet,
		Limiter:           ratelimit.New(3, time.Minute),
		RequireWalletAuth: requireAuth,
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", ts.Client())
}

func TestClaimFlow(t *testing.T) {
	ctx := context.Background()
	c := newBackend(t, false)
	require.NoError(t, c.Health(ctx))

	res, err := c.ClaimReward(ctx, player, 1)
	require.NoError(t, err)
	assert.Equal(t, "10.0", res.RewardAmount)
	assert.Equal(t, 1, res.Level)
	assert.NotEmpty(t, res.TxHash)

	_, err = c.ClaimReward(ctx, player, 1)
	require.Error(t, err)
	assert.True(t, IsAlreadyClaimed(err))
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	res, err = c.LevelComplete(ctx, player, 2, 812.5)
	require.NoError(t, err)
	require.NotNil(t, res.Score)
	assert.Equal(t, 812.5, *res.Score)

	_, err = c.ClaimReward(ctx, player, 2)
	assert.True(t, IsRateLimited(err), "fourth request inside the window: %v", err)

	stats, err := c.PlayerStats(ctx, player)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, stats.ClaimedLevels)
	assert.Equal(t, 2, stats.HighestLevel)

	bal, err := c.Balance(ctx, player)
	require.NoError(t, err)
	assert.Equal(t, "30.0", bal)

	_, err = c.Claims(ctx, player, 5)
	assert.Error(t, err, "ledger not configured")
}

func TestStatsAndLeaderboard(t *testing.T) {
	ctx := context.Background()
	c := newBackend(t, false)

	require.NoError(t, c.UpdateStats(ctx, StatsReport{Address: player, Level: 3, Score: 1500.9, Tokens: "60.0"}))
	entries, err := c.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "0x98A5...6741", entries[0].Address)
	assert.Equal(t, 1500, entries[0].Score)
	assert.Equal(t, "60.0", entries[0].Tokens)

	err = c.UpdateStats(ctx, StatsReport{Address: "nope", Level: 1})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid wallet address", apiErr.Message)
}

func TestSignInThenClaim(t *testing.T) {
	ctx := context.Background()
	c := newBackend(t, true)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()

	_, err = c.ClaimReward(ctx, addr, 1)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, msg, err := c.Nonce(ctx, addr)
	require.NoError(t, err)
	sig, err := auth.Sign(key, msg)
	require.NoError(t, err)
	tok, exp, err := c.Verify(ctx, addr, sig)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	assert.False(t, c.HasToken())
	c.SetToken(tok)
	assert.True(t, c.HasToken())

	_, err = c.ClaimReward(ctx, addr, 1)
	require.NoError(t, err)
}

func TestNonJSONError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer ts.Close()

	err := New(ts.URL, nil).Health(context.Background())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}
