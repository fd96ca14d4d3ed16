package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/robalobadob/monadtype/internal/game"
	"github.com/robalobadob/monadtype/internal/telemetry"
)

var (
	styleHUD     = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleDim     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleWord    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleTyped   = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleInput   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleDanger  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleOverlay = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleNotice  = tcell.StyleDefault.Foreground(tcell.ColorFuchsia)
	styleError   = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

// Layout rows: HUD, rule, field..., rule, input, notice.
const (
	hudRows    = 2
	footerRows = 3
)

// draw renders the whole frame and shows it.
func (a *App) draw() {
	s := a.screen
	s.Clear()
	w, h := s.Size()
	if w < 20 || h < hudRows+footerRows+3 {
		putString(s, 0, 0, "terminal too small", styleDanger)
		s.Show()
		return
	}

	a.drawHUD(w)
	hline(s, 1, w, styleDim)
	fieldTop, fieldRows := hudRows, h-hudRows-footerRows
	a.drawEnemies(w, fieldTop, fieldRows)
	hline(s, h-3, w, styleDim)

	putString(s, 0, h-2, "> "+a.sess.Input, styleInput)
	if a.sess.Phase == game.PhasePlaying {
		s.ShowCursor(2+len(a.sess.Input), h-2)
	} else {
		s.HideCursor()
	}
	st := styleNotice
	if a.noticeKind == telemetry.NoticeError {
		st = styleError
	}
	putString(s, 0, h-1, a.notice, st)

	switch {
	case a.view == viewLeaderboard:
		a.drawOverlay(w, h, a.leaderboardLines())
	case a.view == viewAccount:
		a.drawOverlay(w, h, a.accountLines())
	case a.sess.Phase == game.PhaseLevelComplete:
		a.drawOverlay(w, h, a.levelCompleteLines())
	case a.sess.Phase == game.PhaseGameOver:
		a.drawOverlay(w, h, a.withViewKeys([]string{
			"GAME OVER",
			"",
			fmt.Sprintf("Level %d   Score %.0f", a.sess.Level, a.sess.Score),
			fmt.Sprintf("Words %d/%d   Accuracy %.0f%%", a.sess.WordsKilled, a.sess.Target(), a.sess.Accuracy()),
			"",
			"[r] restart   [q] quit",
		}))
	}
	s.Show()
}

func (a *App) drawHUD(w int) {
	sess := a.sess
	hp := styleHUD
	if sess.Health <= 30 {
		hp = styleDanger
	}
	x := putString(a.screen, 0, 0, fmt.Sprintf("LVL %d  SCORE %.0f  ", sess.Level, sess.Score), styleHUD)
	x = putString(a.screen, x, 0, fmt.Sprintf("HP %d  ", sess.Health), hp)
	x = putString(a.screen, x, 0, fmt.Sprintf("COMBO x%d  WORDS %d/%d  ACC %.0f%%",
		sess.Combo, sess.WordsKilled, sess.Target(), sess.Accuracy()), styleHUD)
	if a.claims != nil {
		bal := fmt.Sprintf("  %s MTYPE", a.claims.Balance())
		if x+len(bal) < w {
			putString(a.screen, w-len(bal), 0, bal, styleDim)
		}
	}
}

// drawEnemies maps field coordinates onto the terminal rows between the rules.
func (a *App) drawEnemies(w, top, rows int) {
	for _, e := range a.sess.Enemies {
		if e.Y < 0 {
			continue
		}
		row := top + int(e.Y/game.FieldHeight*float64(rows))
		if row >= top+rows {
			row = top + rows - 1
		}
		col := int((e.X - e.Width/2) / game.FieldWidth * float64(w))
		col = max(0, min(col, w-len(e.Word)))
		typed := min(e.Typed, len(e.Word))
		next := putString(a.screen, col, row, e.Word[:typed], styleTyped)
		putString(a.screen, next, row, e.Word[typed:], styleWord)
	}
}

func (a *App) levelCompleteLines() []string {
	lvl := a.sess.Level
	lines := []string{
		fmt.Sprintf("LEVEL %d COMPLETE", lvl),
		"",
		fmt.Sprintf("Score %.0f   Accuracy %.0f%%", a.sess.Score, a.sess.Accuracy()),
		fmt.Sprintf("Reward: %d MTYPE", a.sess.Reward()),
		"",
	}
	var keys []string
	switch {
	case a.claims == nil:
	case a.claims.Claimed(lvl):
		lines = append(lines, "Reward claimed")
	default:
		keys = append(keys, "[c] claim")
	}
	if lvl < game.MaxLevel {
		keys = append(keys, "[n] next level")
	} else {
		lines = append(lines, "All levels cleared!")
		keys = append(keys, "[r] restart")
	}
	keys = append(keys, "[q] quit")
	return a.withViewKeys(append(lines, strings.Join(keys, "   ")))
}

// withViewKeys adds the leaderboard and account keys when the backend is reachable.
func (a *App) withViewKeys(lines []string) []string {
	if a.claims == nil {
		return lines
	}
	return append(lines, "[l] leaderboard   [a] account")
}

func (a *App) leaderboardLines() []string {
	lines := []string{
		"LEADERBOARD",
		"",
		fmt.Sprintf("%-3s %-13s %4s %8s %10s  %-14s", "#", "PLAYER", "LVL", "SCORE", "MTYPE", "LAST PLAYED"),
	}
	if len(a.board) == 0 {
		lines = append(lines, "No players yet")
	}
	for i, e := range a.board {
		lines = append(lines, fmt.Sprintf("%-3d %-13s %4d %8d %10s  %-14s",
			i+1, e.Address, e.Level, e.Score, e.Tokens, e.LastPlayed))
	}
	return append(lines, "", "[l] refresh   [a] account   [esc] back")
}

func (a *App) accountLines() []string {
	acct := a.account
	if acct == nil {
		return []string{"ACCOUNT", "", "No data", "", "[esc] back"}
	}
	claimed := "none"
	if len(acct.ClaimedLevels) > 0 {
		parts := make([]string, len(acct.ClaimedLevels))
		for i, lvl := range acct.ClaimedLevels {
			parts[i] = strconv.Itoa(lvl)
		}
		claimed = strings.Join(parts, ", ")
	}
	lines := []string{
		"ACCOUNT",
		"",
		acct.Address,
		fmt.Sprintf("Balance: %s MTYPE", acct.Balance),
		fmt.Sprintf("Highest level: %d", acct.HighestLevel),
		"Claimed levels: " + claimed,
	}
	if len(acct.Claims) > 0 {
		lines = append(lines, "", "Recent claims")
		for _, c := range acct.Claims {
			lines = append(lines, fmt.Sprintf("L%-2d %8s MTYPE  %s  %s",
				c.Level, c.Reward, shortHash(c.TxHash), c.CreatedAt.Local().Format("2006-01-02 15:04")))
		}
	}
	return append(lines, "", "[a] refresh   [l] leaderboard   [esc] back")
}

func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:8] + "..." + h[len(h)-4:]
}

func (a *App) drawOverlay(w, h int, lines []string) {
	width := 0
	for _, l := range lines {
		width = max(width, len(l))
	}
	width += 4
	height := len(lines) + 2
	x0 := max(0, (w-width)/2)
	y0 := max(0, (h-height)/2)
	for y := y0; y < y0+height && y < h; y++ {
		for x := x0; x < x0+width && x < w; x++ {
			a.screen.SetContent(x, y, ' ', nil, styleOverlay)
		}
	}
	for i, l := range lines {
		putString(a.screen, x0+(width-len(l))/2, y0+1+i, l, styleOverlay)
	}
}

// putString writes s at (x, y) and returns the column after it.
func putString(s tcell.Screen, x, y int, str string, st tcell.Style) int {
	for _, r := range str {
		s.SetContent(x, y, r, nil, st)
		x++
	}
	return x
}

func hline(s tcell.Screen, y, w int, st tcell.Style) {
	for x := 0; x < w; x++ {
		s.SetContent(x, y, tcell.RuneHLine, nil, st)
	}
}
