// internal/telemetry/dispatcher.go
//
// Bridges engine events to the rewards backend for the terminal client.
// Responsibilities:
//   - Implement game.Sink without ever blocking the frame loop (drop when full).
//   - Post stat snapshots and end-of-run stats to /api/update-stats.
//   - Track completed levels and run player-initiated reward claims,
//     signing in with the wallet key first when one is configured.
//   - Fetch the leaderboard and the player's account (claimed levels,
//     highest level, balance, claim history) on request.
//   - Report outcomes to the host as Notice values.
//
// Notes:
//   - All network calls happen on the Run goroutine; the engine only ever
//     touches the buffered event channel.
//   - The claimed set is local and only short-circuits repeats; the contract
//     stays authoritative.

package telemetry

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/monadtype/internal/api"
	"github.com/robalobadob/monadtype/internal/auth"
	"github.com/robalobadob/monadtype/internal/game"
)

const (
	defaultBuffer  = 64
	requestTimeout = 10 * time.Second
	claimTimeout   = 3 * time.Minute
	tokenSymbol    = "MTYPE"
	accountClaims  = 5
)

// Backend is the part of the API client the dispatcher uses.
type Backend interface {
	Health(ctx context.Context) error
	ClaimReward(ctx context.Context, address string, level int) (api.ClaimResult, error)
	LevelComplete(ctx context.Context, address string, level int, score float64) (api.ClaimResult, error)
	UpdateStats(ctx context.Context, r api.StatsReport) error
	Balance(ctx context.Context, address string) (string, error)
	Leaderboard(ctx context.Context) ([]api.LeaderboardEntry, error)
	PlayerStats(ctx context.Context, address string) (api.PlayerStats, error)
	Claims(ctx context.Context, address string, limit int) ([]api.Claim, error)
	Nonce(ctx context.Context, address string) (nonce, message string, err error)
	Verify(ctx context.Context, address, signature string) (string, time.Time, error)
	SetToken(tok string)
	HasToken() bool
}

type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeClaimed NoticeKind = "claimed"
	NoticeBalance NoticeKind = "balance"
	NoticeError   NoticeKind = "error"

	// NoticeLeaderboard and NoticeAccount carry the data for a requested View.
	NoticeLeaderboard NoticeKind = "leaderboard"
	NoticeAccount     NoticeKind = "account"
)

// View names a read-only screen the host can ask for.
type View string

const (
	ViewLeaderboard View = "leaderboard"
	ViewAccount     View = "account"
)

// Account is the player's reward standing.
type Account struct {
	Address       string
	ClaimedLevels []int
	HighestLevel  int
	Balance       string
	Claims        []api.Claim // most recent first; empty when the ledger is off
}

// Notice is a user-facing outcome for the host to display.
type Notice struct {
	Kind        NoticeKind
	Level       int
	Text        string
	TxHash      string
	Balance     string
	Leaderboard []api.LeaderboardEntry
	Account     *Account
}

type Options struct {
	Backend Backend
	// Address is the player's wallet. Without one only the leaderboard is
	// fetched; nothing is posted.
	Address string
	// Key, when set, is used to sign in before claiming.
	Key    *ecdsa.PrivateKey
	Buffer int
}

type Dispatcher struct {
	backend Backend
	address string
	key     *ecdsa.PrivateKey

	events  chan game.Event
	claims  chan int
	views   chan View
	notices chan Notice
	dropped atomic.Int64

	mu      sync.Mutex
	balance string
	claimed map[int]bool
	pending map[int]float64 // level → score at completion
	last    *api.StatsReport
}

func New(opts Options) *Dispatcher {
	n := opts.Buffer
	if n <= 0 {
		n = defaultBuffer
	}
	return &Dispatcher{
		backend: opts.Backend,
		address: opts.Address,
		key:     opts.Key,
		events:  make(chan game.Event, n),
		claims:  make(chan int, 8),
		views:   make(chan View, 4),
		notices: make(chan Notice, n),
		balance: "0",
		claimed: make(map[int]bool),
		pending: make(map[int]float64),
	}
}

// Emit queues e for Run. It never blocks; a full queue drops the event.
func (d *Dispatcher) Emit(e game.Event) {
	select {
	case d.events <- e:
	default:
		d.dropped.Add(1)
		log.Warn().Str("kind", string(e.Kind)).Msg("telemetry queue full, event dropped")
	}
}

// Claim asks Run to claim the reward for level. It reports false when the
// request could not be queued.
func (d *Dispatcher) Claim(level int) bool {
	select {
	case d.claims <- level:
		return true
	default:
		return false
	}
}

// Show asks Run to fetch the data for v. The result arrives as a
// NoticeLeaderboard or NoticeAccount.
func (d *Dispatcher) Show(v View) bool {
	select {
	case d.views <- v:
		return true
	default:
		return false
	}
}

// Notices delivers outcomes to the host.
func (d *Dispatcher) Notices() <-chan Notice { return d.notices }

// Dropped counts events discarded because the queue was full.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Balance is the last token balance seen, as a decimal string.
func (d *Dispatcher) Balance() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.balance
}

// Claimed reports whether level was claimed during this run.
func (d *Dispatcher) Claimed(level int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.claimed[level]
}

// Pending lists completed levels whose reward has not been claimed.
func (d *Dispatcher) Pending() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]int, 0, len(d.pending))
	for lvl := range d.pending {
		out = append(out, lvl)
	}
	sort.Ints(out)
	return out
}

// Run processes events and claims until ctx ends.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.checkHealth(ctx) {
		d.notify(Notice{Kind: NoticeError, Text: "Rewards backend unreachable, claims will fail until it is back"})
	}
	if d.address != "" {
		d.refreshBalance(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-d.events:
			d.handle(ctx, e)
		case lvl := <-d.claims:
			d.claim(ctx, lvl)
		case v := <-d.views:
			switch v {
			case ViewLeaderboard:
				d.leaderboard(ctx)
			case ViewAccount:
				d.account(ctx)
			}
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, e game.Event) {
	report := api.StatsReport{Address: d.address, Level: e.Level, Score: e.Score}
	d.mu.Lock()
	d.last = &report
	d.mu.Unlock()

	switch e.Kind {
	case game.EventStatsSnapshot:
		d.postStats(ctx)
	case game.EventLevelComplete:
		d.mu.Lock()
		if !d.claimed[e.Level] {
			d.pending[e.Level] = e.Score
		}
		d.mu.Unlock()
		d.notify(Notice{Kind: NoticeInfo, Level: e.Level,
			Text: fmt.Sprintf("Level %d complete! %d %s available, press c to claim", e.Level, e.Reward, tokenSymbol)})
		d.postStats(ctx)
	case game.EventGameOver:
		d.notify(Notice{Kind: NoticeInfo, Level: e.Level,
			Text: fmt.Sprintf("Game over on level %d with %.0f points", e.Level, e.Score)})
		d.postStats(ctx)
	}
}

func (d *Dispatcher) postStats(ctx context.Context) {
	if d.address == "" {
		return
	}
	d.mu.Lock()
	if d.last == nil {
		d.mu.Unlock()
		return
	}
	report := *d.last
	report.Tokens = d.balance
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if err := d.backend.UpdateStats(ctx, report); err != nil {
		log.Warn().Err(err).Int("level", report.Level).Msg("update stats")
	}
}

func (d *Dispatcher) claim(ctx context.Context, level int) {
	if d.address == "" {
		d.notify(Notice{Kind: NoticeError, Level: level, Text: "No wallet address configured (set PLAYER_ADDRESS)"})
		return
	}
	if d.Claimed(level) {
		d.notify(Notice{Kind: NoticeInfo, Level: level, Text: fmt.Sprintf("Level %d reward already claimed", level)})
		return
	}
	if d.key != nil && !d.backend.HasToken() {
		if err := d.signIn(ctx); err != nil {
			log.Warn().Err(err).Msg("wallet sign-in")
			d.notify(Notice{Kind: NoticeError, Level: level, Text: "Wallet sign-in failed: " + message(err)})
			return
		}
	}

	d.notify(Notice{Kind: NoticeInfo, Level: level, Text: fmt.Sprintf("Claiming level %d reward...", level)})
	d.mu.Lock()
	score, completed := d.pending[level]
	d.mu.Unlock()

	var (
		res api.ClaimResult
		err error
	)
	cctx, cancel := context.WithTimeout(ctx, claimTimeout)
	if completed {
		// level-complete records the score with the claim.
		res, err = d.backend.LevelComplete(cctx, d.address, level, score)
	} else {
		res, err = d.backend.ClaimReward(cctx, d.address, level)
	}
	cancel()
	switch {
	case api.IsAlreadyClaimed(err):
		d.markClaimed(level)
		d.notify(Notice{Kind: NoticeInfo, Level: level, Text: fmt.Sprintf("Level %d reward already claimed", level)})
		return
	case api.IsRateLimited(err):
		d.notify(Notice{Kind: NoticeError, Level: level, Text: "Too many claim attempts, try again in a minute"})
		return
	case err != nil:
		log.Warn().Err(err).Int("level", level).Msg("claim reward")
		d.notify(Notice{Kind: NoticeError, Level: level, Text: "Claim failed: " + message(err)})
		return
	}

	d.markClaimed(level)
	log.Info().Int("level", level).Str("tx", res.TxHash).Str("amount", res.RewardAmount).Msg("reward claimed")
	d.notify(Notice{Kind: NoticeClaimed, Level: level, TxHash: res.TxHash,
		Text: fmt.Sprintf("Claimed %s %s for level %d (tx %s)", res.RewardAmount, tokenSymbol, level, shortHash(res.TxHash))})
	d.refreshBalance(ctx)
	d.postStats(ctx)
}

func (d *Dispatcher) leaderboard(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	entries, err := d.backend.Leaderboard(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("leaderboard")
		d.notify(Notice{Kind: NoticeError, Text: "Leaderboard unavailable: " + message(err)})
		return
	}
	d.notify(Notice{Kind: NoticeLeaderboard, Leaderboard: entries,
		Text: fmt.Sprintf("Leaderboard: top %d players", len(entries))})
}

func (d *Dispatcher) account(ctx context.Context) {
	if d.address == "" {
		d.notify(Notice{Kind: NoticeError, Text: "No wallet address configured (set PLAYER_ADDRESS)"})
		return
	}
	rctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	st, err := d.backend.PlayerStats(rctx, d.address)
	if err != nil {
		log.Warn().Err(err).Msg("player stats")
		d.notify(Notice{Kind: NoticeError, Text: "Account unavailable: " + message(err)})
		return
	}
	for _, lvl := range st.ClaimedLevels {
		d.markClaimed(lvl)
	}

	acct := &Account{Address: d.address, ClaimedLevels: st.ClaimedLevels, HighestLevel: st.HighestLevel}
	history, err := d.backend.Claims(rctx, d.address, accountClaims)
	var apiErr *api.Error
	switch {
	case err == nil:
		acct.Claims = history
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable:
		log.Debug().Msg("claim ledger disabled on backend")
	default:
		log.Warn().Err(err).Msg("claim history")
	}

	d.refreshBalance(ctx)
	acct.Balance = d.Balance()
	d.notify(Notice{Kind: NoticeAccount, Account: acct,
		Text: fmt.Sprintf("Account: %d levels claimed", len(st.ClaimedLevels))})
}

func (d *Dispatcher) checkHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if err := d.backend.Health(ctx); err != nil {
		log.Warn().Err(err).Msg("backend health")
		return false
	}
	return true
}

func (d *Dispatcher) signIn(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	_, msg, err := d.backend.Nonce(ctx, d.address)
	if err != nil {
		return err
	}
	sig, err := auth.Sign(d.key, msg)
	if err != nil {
		return err
	}
	tok, _, err := d.backend.Verify(ctx, d.address, sig)
	if err != nil {
		return err
	}
	d.backend.SetToken(tok)
	return nil
}

func (d *Dispatcher) refreshBalance(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	bal, err := d.backend.Balance(ctx, d.address)
	if err != nil {
		log.Debug().Err(err).Msg("token balance")
		return
	}
	d.mu.Lock()
	d.balance = bal
	d.mu.Unlock()
	d.notify(Notice{Kind: NoticeBalance, Balance: bal, Text: fmt.Sprintf("Balance: %s %s", bal, tokenSymbol)})
}

func (d *Dispatcher) markClaimed(level int) {
	d.mu.Lock()
	d.claimed[level] = true
	delete(d.pending, level)
	d.mu.Unlock()
}

func (d *Dispatcher) notify(n Notice) {
	select {
	case d.notices <- n:
	default:
		log.Debug().Str("text", n.Text).Msg("notice dropped")
	}
}

// message prefers the backend's own wording for display.
func message(err error) string {
	var e *api.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:8] + "..." + h[len(h)-4:]
}
