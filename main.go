// MonadType rewards backend.
//
// Serves the claim, stats and leaderboard API for the terminal client. With no
// REWARDS_ADDRESS configured it runs against an in-memory mock contract.
package main

import (
	"context"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/monadtype/internal/auth"
	"github.com/robalobadob/monadtype/internal/chain"
	"github.com/robalobadob/monadtype/internal/claims"
	"github.com/robalobadob/monadtype/internal/config"
	"github.com/robalobadob/monadtype/internal/db"
	"github.com/robalobadob/monadtype/internal/game"
	"github.com/robalobadob/monadtype/internal/httpserver"
	"github.com/robalobadob/monadtype/internal/metrics"
	"github.com/robalobadob/monadtype/internal/ratelimit"
	"github.com/robalobadob/monadtype/internal/store"
	"github.com/robalobadob/monadtype/internal/words"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadServer()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := words.Init(cfg.WordsFile); err != nil {
		log.Fatal().Err(err).Msg("failed to load vocabulary")
	}

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer conn.Close()
	if err := db.Migrate(conn); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	var rewards chain.Rewards
	if cfg.MockChain() {
		log.Warn().Msg("REWARDS_ADDRESS not configured, using mock rewards contract")
		rewards = chain.NewMock(levelRewards())
	} else {
		c, err := chain.Dial(ctx, chain.Config{
			RPCURL:         cfg.RPCURL,
			PrivateKey:     cfg.PrivateKey,
			RewardsAddress: cfg.RewardsAddress,
			TokenAddress:   cfg.TokenAddress,
			ChainID:        cfg.ChainID,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("connect to rewards contract")
		}
		defer c.Close()
		log.Info().Str("rewards", cfg.RewardsAddress).Str("signer", c.From().Hex()).Msg("rewards contract bound")
		rewards = c
	}

	if cfg.InsecureSecret() {
		log.Warn().Msg("JWT_SECRET not set, session tokens use the public default secret; set it before deploying")
	}
	wallet, err := auth.NewWallet(cfg.JWTSecret, cfg.JWTExpires)
	if err != nil {
		log.Fatal().Err(err).Msg("wallet sign-in")
	}

	srv := httpserver.New(httpserver.Deps{
		Stats:             store.NewMemoryStore(),
		Chain:             rewards,
		Claims:            claims.NewStore(conn),
		Wallet:            wallet,
		Limiter:           ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow),
		Metrics:           metrics.New(),
		ClientOrigin:      cfg.ClientOrigin,
		RequireWalletAuth: cfg.RequireWalletAuth,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("MonadType backend listening")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// levelRewards prices the mock contract from the level table.
func levelRewards() map[int]*big.Int {
	out := make(map[int]*big.Int, game.MaxLevel)
	for _, l := range game.Levels() {
		out[l.Number] = chain.Ether(int64(l.Reward))
	}
	return out
}
