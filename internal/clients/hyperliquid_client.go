package clients

import (
	"context"
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	hyperliquid "github.com/sonirico/go-hyperliquid"
)

// HyperliquidClient wraps the SDK exchange. Only its info API is used.
type HyperliquidClient struct {
	exchange    *hyperliquid.Exchange
	accountAddr string
}

// NewHyperliquidClient builds a client for baseURL. An empty privateKeyHex
// gets a throwaway key, which is enough for public market data.
func NewHyperliquidClient(privateKeyHex string, baseURL string) (*HyperliquidClient, error) {
	privateKey, err := hyperliquidKey(privateKeyHex)
	if err != nil {
		return nil, err
	}

	accountAddr, err := AccountAddress(privateKey)
	if err != nil {
		return nil, err
	}

	ex, err := connectExchange(privateKey, baseURL, accountAddr)
	if err != nil {
		return nil, err
	}

	return &HyperliquidClient{exchange: ex, accountAddr: accountAddr}, nil
}

// newExchange fetches Meta and SpotMeta from baseURL before returning and
// panics when that fails.
var newExchange = func(key *ecdsa.PrivateKey, baseURL, accountAddr string) *hyperliquid.Exchange {
	return hyperliquid.NewExchange(
		context.Background(),
		key,
		baseURL,
		nil,
		"",
		accountAddr,
		nil,
	)
}

// connectExchange turns a failed metadata fetch into an error.
func connectExchange(key *ecdsa.PrivateKey, baseURL, accountAddr string) (ex *hyperliquid.Exchange, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("connect to hyperliquid %s: %v", baseURL, r)
		}
	}()
	return newExchange(key, baseURL, accountAddr), nil
}

// AccountAddress derives the checksummed account address of key.
func AccountAddress(key *ecdsa.PrivateKey) (string, error) {
	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return "", errors.New("error casting public key to ECDSA")
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

func hyperliquidKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	key := strings.TrimSpace(privateKeyHex)
	if key == "" {
		k, err := crypto.GenerateKey()
		return k, errors.Wrap(err, "generate hyperliquid key")
	}

	key = strings.TrimPrefix(strings.TrimPrefix(key, "0x"), "0X")
	k, err := crypto.HexToECDSA(key)
	if err != nil {
		return nil, errors.Wrap(err, "parse hyperliquid private key")
	}
	return k, nil
}

func (c *HyperliquidClient) Info() *hyperliquid.Info { return c.exchange.Info() }
func (c *HyperliquidClient) AccountAddress() string  { return c.accountAddr }
