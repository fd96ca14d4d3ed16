package chain

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Mock is an in-memory stand-in for the deployed contracts, used when no
// rewards address is configured. It enforces one claim per (player, level)
// the way the contract does and credits balances on reward.
type Mock struct {
	mu       sync.Mutex
	rewards  map[int]*big.Int
	claimed  map[common.Address]map[int]bool
	balances map[common.Address]*big.Int
}

// NewMock builds a mock paying rewards[level] wei per level.
func NewMock(rewards map[int]*big.Int) *Mock {
	r := make(map[int]*big.Int, len(rewards))
	for lvl, amt := range rewards {
		r[lvl] = new(big.Int).Set(amt)
	}
	return &Mock{
		rewards:  r,
		claimed:  make(map[common.Address]map[int]bool),
		balances: make(map[common.Address]*big.Int),
	}
}

func (m *Mock) HasClaimedLevel(_ context.Context, player common.Address, level int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claimed[player][level], nil
}

func (m *Mock) LevelReward(_ context.Context, level int) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amt, ok := m.rewards[level]; ok {
		return new(big.Int).Set(amt), nil
	}
	return new(big.Int), nil
}

func (m *Mock) HighestLevel(_ context.Context, player common.Address) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	best := 0
	for lvl := range m.claimed[player] {
		best = max(best, lvl)
	}
	return best, nil
}

func (m *Mock) RewardPlayer(_ context.Context, player common.Address, level int) (Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimed[player][level] {
		return Receipt{}, fmt.Errorf("%w: execution reverted: level already claimed", ErrWouldRevert)
	}
	amt, ok := m.rewards[level]
	if !ok || amt.Sign() == 0 {
		return Receipt{}, fmt.Errorf("%w: execution reverted: no reward for level", ErrWouldRevert)
	}
	if m.claimed[player] == nil {
		m.claimed[player] = make(map[int]bool)
	}
	m.claimed[player][level] = true
	bal := m.balances[player]
	if bal == nil {
		bal = new(big.Int)
	}
	m.balances[player] = bal.Add(bal, amt)
	return Receipt{TxHash: randomHash().Hex(), Success: true}, nil
}

func (m *Mock) TokenBalance(_ context.Context, owner common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bal, ok := m.balances[owner]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

func randomHash() common.Hash {
	var h common.Hash
	_, _ = rand.Read(h[:])
	return h
}
