// Package claims records successful reward transactions in SQLite.
//
// The rewards contract is the source of truth for who claimed what; this ledger
// only keeps receipts so the backend can show claim history without scanning
// chain logs.
package claims

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

type Claim struct {
	Address   string    `json:"address"`
	Level     int       `json:"level"`
	Score     *int      `json:"score,omitempty"`
	Reward    string    `json:"reward"`
	TxHash    string    `json:"txHash"`
	CreatedAt time.Time `json:"createdAt"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Record inserts a claim. Re-recording the same tx hash is a no-op.
func (s *Store) Record(ctx context.Context, c Claim) error {
	var score sql.NullInt64
	if c.Score != nil {
		score = sql.NullInt64{Int64: int64(*c.Score), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO claims(address, level, score, reward, tx_hash)
VALUES(?,?,?,?,?)`, strings.ToLower(c.Address), c.Level, score, c.Reward, c.TxHash,
	)
	return err
}

// ByAddress lists the newest claims for an address first.
func (s *Store) ByAddress(ctx context.Context, address string, limit int) ([]Claim, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT address, level, score, reward, tx_hash, created_at
FROM claims
WHERE address=?
ORDER BY created_at DESC, id DESC
LIMIT ?`, strings.ToLower(address), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Claim{}
	for rows.Next() {
		var (
			c       Claim
			score   sql.NullInt64
			created string
		)
		if err := rows.Scan(&c.Address, &c.Level, &score, &c.Reward, &c.TxHash, &created); err != nil {
			return nil, err
		}
		if score.Valid {
			v := int(score.Int64)
			c.Score = &v
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, c)
	}
	return out, rows.Err()
}
