// Package ethereum wraps the go-ethereum JSON-RPC client with the fixed timeout and
// retry policy used for every call made against the chain.
package ethereum

import (
	"context"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Layr-Labs/staking-snap/internal/config"
	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// revertErrorCode is the JSON-RPC error code geth uses for "execution reverted".
const revertErrorCode = 3

type EthereumClientConfig struct {
	BaseUrl string
	// Timeout bounds every individual attempt of an RPC call.
	Timeout time.Duration
	// RetryCount is the total number of attempts made for a call.
	RetryCount uint
	// RetryDelay is the fixed delay between attempts.
	RetryDelay time.Duration
}

func DefaultEthereumClientConfig() *EthereumClientConfig {
	return &EthereumClientConfig{
		Timeout:    config.DefaultRpcTimeout,
		RetryCount: config.DefaultRetryCount,
		RetryDelay: config.DefaultRetryDelay,
	}
}

func ConvertGlobalConfigToEthereumConfig(cfg *config.EthereumRpcConfig) *EthereumClientConfig {
	return &EthereumClientConfig{
		BaseUrl:    cfg.BaseUrl,
		Timeout:    cfg.Timeout,
		RetryCount: cfg.RetryCount,
		RetryDelay: cfg.RetryDelay,
	}
}

type Client struct {
	BaseUrl      string
	httpClient   *http.Client
	clientConfig *EthereumClientConfig
	Logger       *zap.Logger

	mu        sync.Mutex
	rpcClient *rpc.Client
	ethClient *ethclient.Client
}

func NewClient(cfg *EthereumClientConfig, l *zap.Logger) *Client {
	l.Sugar().Debugw("Creating new Ethereum client",
		zap.String("baseUrl", cfg.BaseUrl),
		zap.Duration("timeout", cfg.Timeout),
		zap.Uint("retryCount", cfg.RetryCount),
		zap.Duration("retryDelay", cfg.RetryDelay),
	)
	if cfg.RetryCount == 0 {
		cfg.RetryCount = 1
	}
	return &Client{
		BaseUrl: cfg.BaseUrl,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		clientConfig: cfg,
		Logger:       l,
	}
}

// SetHttpClient replaces the underlying http client. Any existing connection is dropped.
func (c *Client) SetHttpClient(client *http.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.httpClient = client
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
	c.rpcClient = nil
	c.ethClient = nil
}

func (c *Client) getEthClient(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ethClient != nil {
		return c.ethClient, nil
	}
	rc, err := rpc.DialOptions(ctx, c.BaseUrl, rpc.WithHTTPClient(c.httpClient))
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial ethereum rpc")
	}
	c.rpcClient = rc
	c.ethClient = ethclient.NewClient(rc)
	return c.ethClient, nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
	c.rpcClient = nil
	c.ethClient = nil
}

// IsExecutionReverted reports whether the node rejected a call because the EVM reverted.
func IsExecutionReverted(err error) bool {
	if err == nil {
		return false
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}

func callWithRetry[T any](ctx context.Context, c *Client, method string, call func(ctx context.Context, ec *ethclient.Client) (T, error)) (T, error) {
	return retry.DoWithData(
		func() (T, error) {
			var empty T
			ec, err := c.getEthClient(ctx)
			if err != nil {
				return empty, err
			}
			callCtx, cancel := context.WithTimeout(ctx, c.clientConfig.Timeout)
			defer cancel()
			return call(callCtx, ec)
		},
		retry.Context(ctx),
		retry.Attempts(c.clientConfig.RetryCount),
		retry.Delay(c.clientConfig.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !IsExecutionReverted(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.Logger.Sugar().Debugw("Retrying ethereum rpc call",
				zap.String("method", method),
				zap.Uint("attempt", n+1),
				zap.Uint("maxAttempts", c.clientConfig.RetryCount),
				zap.Error(err),
			)
		}),
	)
}

// GetBlockNumber returns the current chain height (eth_blockNumber).
func (c *Client) GetBlockNumber(ctx context.Context) (uint64, error) {
	blockNumber, err := callWithRetry(ctx, c, "eth_blockNumber", func(ctx context.Context, ec *ethclient.Client) (uint64, error) {
		return ec.BlockNumber(ctx)
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to get block number")
	}
	return blockNumber, nil
}

func (c *Client) GetChainId(ctx context.Context) (*big.Int, error) {
	chainId, err := callWithRetry(ctx, c, "eth_chainId", func(ctx context.Context, ec *ethclient.Client) (*big.Int, error) {
		return ec.ChainID(ctx)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get chain id")
	}
	return chainId, nil
}

// GetLogs runs eth_getLogs for the given filter.
func (c *Client) GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return callWithRetry(ctx, c, "eth_getLogs", func(ctx context.Context, ec *ethclient.Client) ([]types.Log, error) {
		return ec.FilterLogs(ctx, query)
	})
}

// CallContract implements bind.ContractCaller.
func (c *Client) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return callWithRetry(ctx, c, "eth_call", func(ctx context.Context, ec *ethclient.Client) ([]byte, error) {
		return ec.CallContract(ctx, call, blockNumber)
	})
}

// CodeAt implements bind.ContractCaller.
func (c *Client) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return callWithRetry(ctx, c, "eth_getCode", func(ctx context.Context, ec *ethclient.Client) ([]byte, error) {
		return ec.CodeAt(ctx, contract, blockNumber)
	})
}

// GetEthereumContractCaller returns a bind.ContractCaller that goes through the retry policy.
func (c *Client) GetEthereumContractCaller() (bind.ContractCaller, error) {
	if c.BaseUrl == "" {
		return nil, errors.New("ethereum client has no base url")
	}
	return c, nil
}
