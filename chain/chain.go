package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/isdmx/chainconf/config"
	"github.com/isdmx/chainconf/descriptor"
)

// Checker reports the chain ID served by an endpoint
type Checker interface {
	ChainID(ctx context.Context, url string) (*big.Int, error)
}

// EthChecker implements Checker over JSON-RPC
type EthChecker struct {
	logger  *zap.Logger
	timeout time.Duration
}

// NewChecker creates a Checker bounded by the configured check timeout
func NewChecker(logger *zap.Logger, cfg *config.Config) Checker {
	return NewEthChecker(logger, cfg.GetCheckTimeout())
}

// NewEthChecker creates an EthChecker with an explicit timeout
func NewEthChecker(logger *zap.Logger, timeout time.Duration) *EthChecker {
	return &EthChecker{logger: logger, timeout: timeout}
}

// ChainID dials url and returns the result of eth_chainId
func (c *EthChecker) ChainID(ctx context.Context, url string) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		c.logger.Error("failed to dial endpoint", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	defer client.Close()

	id, err := client.ChainID(ctx)
	if err != nil {
		c.logger.Error("failed to read chain id", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("failed to read chain id from %s: %w", url, err)
	}
	return id, nil
}

// Result is the outcome of checking one network profile
type Result struct {
	Network  string  `json:"network"`
	URL      string  `json:"url"`
	ChainID  uint64  `json:"chain_id"`
	Declared *uint64 `json:"declared_chain_id,omitempty"`
	// Match is false only when a chainId is declared and differs.
	Match bool `json:"match"`
}

// Check asks the endpoint of n for its chain ID and compares it with the
// declared one, if any
func Check(ctx context.Context, c Checker, n *descriptor.NetworkProfile) (Result, error) {
	id, err := c.ChainID(ctx, n.URL())
	if err != nil {
		return Result{}, fmt.Errorf("network %s: %w", n.Name(), err)
	}
	if !id.IsUint64() {
		return Result{}, fmt.Errorf("network %s: chain id %s out of range", n.Name(), id)
	}

	result := Result{
		Network: n.Name(),
		URL:     n.URL(),
		ChainID: id.Uint64(),
		Match:   true,
	}
	if declared, ok := n.ChainID(); ok {
		result.Declared = &declared
		result.Match = declared == result.ChainID
	}
	return result, nil
}
