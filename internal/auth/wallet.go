// internal/auth/wallet.go
//
// Wallet sign-in for the rewards backend.
// Responsibilities:
//   - Issue single-use nonces per address (5 minute TTL).
//   - Build the sign-in message and recover the signer of a personal_sign
//     signature (EIP-191 prefix, keccak256).
//   - Sign and parse HS256 session tokens naming the wallet address.
//
// Notes:
//   - Addresses are compared case-insensitively; tokens carry the lowercase form.
//   - The message is kept as issued, so verify may use any casing of the address.
//   - Signatures are accepted with V as 27/28 (wallet style) or 0/1 (raw).

package auth

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/crypto/sha3"
)

var (
	ErrNoNonce       = errors.New("no pending nonce for address")
	ErrBadSignature  = errors.New("signature does not match address")
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidSecret = errors.New("jwt secret not configured")
)

const (
	NonceTTL      = 5 * time.Minute
	maxNonces     = 10_000
	messagePrefix = "Sign in to MonadType"
)

// Wallet issues nonces, verifies signatures, and mints tokens.
type Wallet struct {
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time

	spend  sync.Mutex
	nonces *expirable.LRU[string, string] // lowercase address → issued message
}

// NewWallet returns a Wallet signing tokens with secret, valid for tokenTTL.
func NewWallet(secret string, tokenTTL time.Duration) (*Wallet, error) {
	if secret == "" {
		return nil, ErrInvalidSecret
	}
	if tokenTTL <= 0 {
		tokenTTL = 14 * 24 * time.Hour
	}
	return &Wallet{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
		nonces:   expirable.NewLRU[string, string](maxNonces, nil, NonceTTL),
	}, nil
}

// Message is the text a wallet signs to prove control of address.
func Message(address, nonce string) string {
	return fmt.Sprintf("%s\nAddress: %s\nNonce: %s", messagePrefix, address, nonce)
}

// Nonce issues a fresh nonce for address, replacing any pending one, and
// returns it with the message to sign.
func (w *Wallet) Nonce(address string) (nonce, message string, err error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", "", fmt.Errorf("nonce: %w", err)
	}
	nonce = hex.EncodeToString(b[:])
	message = Message(address, nonce)
	w.spend.Lock()
	w.nonces.Add(strings.ToLower(address), message)
	w.spend.Unlock()
	return nonce, message, nil
}

// Verify consumes the pending nonce for address and checks that signature
// was produced by address over the sign-in message. On success it returns a
// session token and its expiry.
func (w *Wallet) Verify(address, signature string) (string, time.Time, error) {
	msg, ok := w.take(strings.ToLower(address))
	if !ok {
		return "", time.Time{}, ErrNoNonce
	}

	signer, err := Recover(msg, signature)
	if err != nil {
		return "", time.Time{}, err
	}
	if !strings.EqualFold(signer.Hex(), address) {
		return "", time.Time{}, ErrBadSignature
	}
	return w.SignToken(address)
}

// take removes and returns the pending message for key. Only one caller can
// take a given nonce.
func (w *Wallet) take(key string) (string, bool) {
	w.spend.Lock()
	defer w.spend.Unlock()
	msg, ok := w.nonces.Get(key)
	if !ok || !w.nonces.Remove(key) {
		return "", false
	}
	return msg, true
}

// SignToken mints an HS256 token for address.
func (w *Wallet) SignToken(address string) (string, time.Time, error) {
	now := w.now()
	exp := now.Add(w.tokenTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"address": strings.ToLower(address),
		"exp":     exp.Unix(),
		"iat":     now.Unix(),
	})
	ss, err := t.SignedString(w.secret)
	return ss, exp, err
}

// ParseToken validates tok and returns the lowercase address it names.
func (w *Wallet) ParseToken(tok string) (string, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return w.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(w.now))
	if err != nil || !t.Valid {
		return "", ErrInvalidToken
	}
	addr, _ := claims["address"].(string)
	if !common.IsHexAddress(addr) {
		return "", ErrInvalidToken
	}
	return addr, nil
}

// HashMessage is the EIP-191 personal_sign digest of msg.
func HashMessage(msg string) []byte {
	h := sha3.NewLegacyKeccak256()
	fmt.Fprintf(h, "\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	return h.Sum(nil)
}

// Recover returns the address that produced the hex signature over msg.
func Recover(msg, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrBadSignature
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(HashMessage(msg), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Sign produces a wallet-style (V = 27/28) signature over msg.
func Sign(key *ecdsa.PrivateKey, msg string) (string, error) {
	sig, err := crypto.Sign(HashMessage(msg), key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}
