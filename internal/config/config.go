// internal/config/config.go
//
// Environment-driven settings for the backend server and the terminal client.
// Callers load .env first (godotenv) and then read a Server or Client value.
// Malformed numbers fall back to their defaults.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server configures the backend (root main package).
type Server struct {
	Port         string
	LogLevel     string
	ClientOrigin string

	RPCURL         string
	PrivateKey     string
	RewardsAddress string
	TokenAddress   string
	ChainID        int64

	DBPath            string
	JWTSecret         string
	JWTExpires        time.Duration
	RequireWalletAuth bool

	RateLimitMax    int
	RateLimitWindow time.Duration

	WordsFile string
}

// DefaultJWTSecret is used when JWT_SECRET is unset. It is public, so tokens
// signed with it can be forged.
const DefaultJWTSecret = "dev_secret_change_me"

// InsecureSecret reports whether tokens are signed with DefaultJWTSecret.
func (s Server) InsecureSecret() bool { return s.JWTSecret == DefaultJWTSecret }

// MockChain reports whether no real rewards contract is configured.
func (s Server) MockChain() bool {
	a := strings.TrimSpace(s.RewardsAddress)
	return a == "" || a == "0x..."
}

func LoadServer() Server {
	return Server{
		Port:         getEnv("BACKEND_PORT", "3001"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "*"),

		RPCURL:         getEnv("MONAD_TESTNET_RPC_URL", "https://testnet-rpc.monad.xyz"),
		PrivateKey:     os.Getenv("PRIVATE_KEY"),
		RewardsAddress: os.Getenv("REWARDS_ADDRESS"),
		TokenAddress:   os.Getenv("TOKEN_ADDRESS"),
		ChainID:        int64(envInt("CHAIN_ID", 41454)),

		DBPath:            getEnv("DB_PATH", "./data/monadtype.db"),
		JWTSecret:         getEnv("JWT_SECRET", DefaultJWTSecret),
		JWTExpires:        time.Duration(envInt("JWT_EXPIRES_DAYS", 14)) * 24 * time.Hour,
		RequireWalletAuth: envBool("REQUIRE_WALLET_AUTH", false),

		RateLimitMax:    envInt("RATE_LIMIT_MAX", 10),
		RateLimitWindow: envDuration("RATE_LIMIT_WINDOW", time.Minute),

		WordsFile: os.Getenv("WORDS_FILE"),
	}
}

// Client configures cmd/play.
type Client struct {
	APIURL           string
	PlayerAddress    string
	PlayerPrivateKey string
	LogFile          string
	LogLevel         string
	Sound            bool
	FallSpeed        float64
	WordsFile        string
}

func LoadClient() Client {
	return Client{
		APIURL:           strings.TrimRight(getEnv("API_URL", "http://localhost:3001"), "/"),
		PlayerAddress:    os.Getenv("PLAYER_ADDRESS"),
		PlayerPrivateKey: os.Getenv("PLAYER_PRIVATE_KEY"),
		LogFile:          getEnv("LOG_FILE", "monadtype.log"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Sound:            envBool("SOUND", true),
		FallSpeed:        envFloat("FALL_SPEED", 0),
		WordsFile:        os.Getenv("WORDS_FILE"),
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return def
}

func envFloat(k string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(k), 64); err == nil {
		return f
	}
	return def
}

// envBool accepts strconv forms plus on/off and yes/no.
func envBool(k string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "t", "true", "on", "yes":
		return true
	case "0", "f", "false", "off", "no":
		return false
	}
	return def
}

// envDuration accepts Go durations ("90s") or a bare number of milliseconds.
func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
