// Command play runs a MonadType combat session in the terminal.
//
// Progress is reported to the rewards backend at API_URL when a wallet is
// configured (PLAYER_ADDRESS, or PLAYER_PRIVATE_KEY which also enables
// wallet sign-in). Logs go to LOG_FILE since the screen is taken.
package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/monadtype/internal/api"
	"github.com/robalobadob/monadtype/internal/chain"
	"github.com/robalobadob/monadtype/internal/config"
	"github.com/robalobadob/monadtype/internal/game"
	"github.com/robalobadob/monadtype/internal/telemetry"
	"github.com/robalobadob/monadtype/internal/tui"
	"github.com/robalobadob/monadtype/internal/words"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "monadtype:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	cfg := config.LoadClient()

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	log.Logger = zerolog.New(logFile).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := words.Init(cfg.WordsFile); err != nil {
		return fmt.Errorf("load vocabulary: %w", err)
	}

	address, key, err := wallet(cfg)
	if err != nil {
		return err
	}
	if address == "" {
		log.Info().Msg("no wallet configured, playing offline")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := telemetry.New(telemetry.Options{
		Backend: api.New(cfg.APIURL, nil),
		Address: address,
		Key:     key,
	})
	go func() {
		if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("telemetry stopped")
		}
	}()

	sess := game.New(game.Options{
		Sink:   dispatcher,
		Tuning: game.Tuning{FallSpeed: cfg.FallSpeed},
	})
	log.Info().Str("session", sess.ID).Str("address", address).Msg("session started")

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}

	var sounds tui.Sounds
	if cfg.Sound {
		sp := tui.NewSpeaker()
		if err := sp.Init(); err != nil {
			log.Warn().Err(err).Msg("audio unavailable")
		} else {
			defer sp.Close()
			sounds = sp
		}
	}

	app := tui.New(tui.Options{Screen: screen, Session: sess, Claims: dispatcher, Sound: sounds})
	runErr := app.Run(ctx)
	screen.Fini()
	stop()

	fmt.Printf("Level %d, score %.0f, %s MTYPE\n", sess.Level, sess.Score, dispatcher.Balance())
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}

// wallet resolves the player identity from config. A private key wins over
// PLAYER_ADDRESS and must match it when both are set.
func wallet(cfg config.Client) (string, *ecdsa.PrivateKey, error) {
	if cfg.PlayerPrivateKey == "" {
		if cfg.PlayerAddress != "" && !chain.IsAddress(cfg.PlayerAddress) {
			return "", nil, fmt.Errorf("PLAYER_ADDRESS %q is not a wallet address", cfg.PlayerAddress)
		}
		return cfg.PlayerAddress, nil, nil
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PlayerPrivateKey, "0x"))
	if err != nil {
		return "", nil, fmt.Errorf("parse PLAYER_PRIVATE_KEY: %w", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()
	if cfg.PlayerAddress != "" && !strings.EqualFold(cfg.PlayerAddress, addr) {
		return "", nil, fmt.Errorf("PLAYER_ADDRESS %s does not match PLAYER_PRIVATE_KEY (%s)", cfg.PlayerAddress, addr)
	}
	return addr, key, nil
}
