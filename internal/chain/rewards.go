// internal/chain/rewards.go
//
// Contract access for the MonadType rewards and token contracts.
// Responsibilities:
//   - Dial an RPC endpoint and bind the rewards/token contracts (go-ethereum abi/bind).
//   - Read calls: hasClaimedLevel, getLevelReward, getHighestLevel, balanceOf.
//   - Write call: rewardPlayer, signed by the backend key, waited until mined.
//   - Map RPC failures onto a few sentinel errors the HTTP layer can report.
//
// Notes:
//   - Double-claim prevention is enforced by the contract; callers check
//     HasClaimedLevel first only to return a friendlier error.
//   - Transactions are sent one at a time so the transactor's pending nonce
//     lookup cannot race between concurrent claims.

package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds for gas")
	ErrWouldRevert       = errors.New("transaction would revert")
	ErrNoToken           = errors.New("token contract not configured")
)

// Receipt is the outcome of a mined reward transaction.
type Receipt struct {
	TxHash  string
	Success bool
}

// Rewards is the contract surface used by the backend.
type Rewards interface {
	HasClaimedLevel(ctx context.Context, player common.Address, level int) (bool, error)
	LevelReward(ctx context.Context, level int) (*big.Int, error)
	HighestLevel(ctx context.Context, player common.Address) (int, error)
	RewardPlayer(ctx context.Context, player common.Address, level int) (Receipt, error)
	TokenBalance(ctx context.Context, owner common.Address) (*big.Int, error)
}

// Config holds the connection settings for Dial.
type Config struct {
	RPCURL         string
	PrivateKey     string // hex, with or without 0x
	RewardsAddress string
	TokenAddress   string // optional
	ChainID        int64  // 0 asks the node
}

// Client talks to deployed contracts through an RPC node.
type Client struct {
	eth     *ethclient.Client
	rewards *bind.BoundContract
	token   *bind.BoundContract
	auth    *bind.TransactOpts
	txMu    sync.Mutex
}

// Dial connects to cfg.RPCURL and binds the contracts.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("chain: rpc url not configured")
	}
	if cfg.PrivateKey == "" {
		return nil, errors.New("chain: private key not configured")
	}
	if !common.IsHexAddress(cfg.RewardsAddress) {
		return nil, fmt.Errorf("chain: invalid rewards address %q", cfg.RewardsAddress)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain: parse private key: %w", err)
	}
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		if chainID, err = eth.ChainID(ctx); err != nil {
			eth.Close()
			return nil, fmt.Errorf("chain: chain id: %w", err)
		}
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: transactor: %w", err)
	}

	rewardsParsed, err := abi.JSON(strings.NewReader(rewardsABI))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: rewards abi: %w", err)
	}
	c := &Client{
		eth:     eth,
		rewards: bind.NewBoundContract(common.HexToAddress(cfg.RewardsAddress), rewardsParsed, eth, eth, eth),
		auth:    auth,
	}

	if common.IsHexAddress(cfg.TokenAddress) {
		tokenParsed, err := abi.JSON(strings.NewReader(tokenABI))
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("chain: token abi: %w", err)
		}
		c.token = bind.NewBoundContract(common.HexToAddress(cfg.TokenAddress), tokenParsed, eth, eth, eth)
	}
	return c, nil
}

// Close releases the RPC connection.
func (c *Client) Close() { c.eth.Close() }

// From is the address that signs reward transactions.
func (c *Client) From() common.Address { return c.auth.From }

func (c *Client) HasClaimedLevel(ctx context.Context, player common.Address, level int) (bool, error) {
	var out []interface{}
	if err := c.rewards.Call(&bind.CallOpts{Context: ctx}, &out, "hasClaimedLevel", player, big.NewInt(int64(level))); err != nil {
		return false, classify(err)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (c *Client) LevelReward(ctx context.Context, level int) (*big.Int, error) {
	var out []interface{}
	if err := c.rewards.Call(&bind.CallOpts{Context: ctx}, &out, "getLevelReward", big.NewInt(int64(level))); err != nil {
		return nil, classify(err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (c *Client) HighestLevel(ctx context.Context, player common.Address) (int, error) {
	var out []interface{}
	if err := c.rewards.Call(&bind.CallOpts{Context: ctx}, &out, "getHighestLevel", player); err != nil {
		return 0, classify(err)
	}
	return int((*abi.ConvertType(out[0], new(*big.Int)).(**big.Int)).Int64()), nil
}

// RewardPlayer sends rewardPlayer(player, level) and blocks until it is mined
// or ctx ends.
func (c *Client) RewardPlayer(ctx context.Context, player common.Address, level int) (Receipt, error) {
	c.txMu.Lock()
	opts := *c.auth
	opts.Context = ctx
	tx, err := c.rewards.Transact(&opts, "rewardPlayer", player, big.NewInt(int64(level)))
	c.txMu.Unlock()
	if err != nil {
		return Receipt{}, classify(err)
	}

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return Receipt{TxHash: tx.Hash().Hex()}, fmt.Errorf("wait mined %s: %w", tx.Hash().Hex(), err)
	}
	return Receipt{
		TxHash:  tx.Hash().Hex(),
		Success: receipt.Status == types.ReceiptStatusSuccessful,
	}, nil
}

func (c *Client) TokenBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	if c.token == nil {
		return nil, ErrNoToken
	}
	var out []interface{}
	if err := c.token.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", owner); err != nil {
		return nil, classify(err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// classify maps node error strings onto sentinel errors. RPC errors arrive as
// plain JSON-RPC messages, so matching on text is the only option.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	case strings.Contains(msg, "execution reverted"),
		strings.Contains(msg, "gas required exceeds"),
		strings.Contains(msg, "failed to estimate gas"):
		return fmt.Errorf("%w: %v", ErrWouldRevert, err)
	}
	return err
}

// IsAddress reports whether s is a 20-byte hex address with 0x prefix.
func IsAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}
