package polygonrpc

import (
	"context"
	"fmt"
	"strings"
	"whalewatch/config"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Client reads account state from a Polygon JSON-RPC endpoint.
type Client struct {
	logger *zap.Logger
	eth    *ethclient.Client
}

// NewClient prepares an RPC client. HTTP endpoints are not contacted until
// the first call.
func NewClient(logger *zap.Logger, cfg *config.Config) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	eth, err := ethclient.Dial(cfg.Polymarket.PolygonRPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial polygon rpc: %w", err)
	}

	return &Client{logger: logger, eth: eth}, nil
}

// TransactionCount returns the number of transactions sent from wallet at the
// latest block.
func (c *Client) TransactionCount(ctx context.Context, wallet string) (uint64, error) {
	wallet = strings.TrimSpace(wallet)
	if !common.IsHexAddress(wallet) {
		return 0, fmt.Errorf("invalid address %q", wallet)
	}

	nonce, err := c.eth.NonceAt(ctx, common.HexToAddress(wallet), nil)
	if err != nil {
		return 0, fmt.Errorf("eth_getTransactionCount: %w", err)
	}
	return nonce, nil
}

func (c *Client) Close() {
	c.eth.Close()
}
