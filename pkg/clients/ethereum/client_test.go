package ethereum

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/Layr-Labs/staking-snap/internal/tests"
	"github.com/Layr-Labs/staking-snap/pkg/contractAbi"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

var contractAddress = common.HexToAddress("0xc488736c09ab088e5203b48d973dca30581d6118")

func setup(chain *tests.MockChain) *Client {
	l := tests.GetTestLogger()

	ethConfig := DefaultEthereumClientConfig()
	ethConfig.BaseUrl = tests.MockRpcUrl
	ethConfig.RetryDelay = time.Millisecond

	client := NewClient(ethConfig, l)
	client.SetHttpClient(chain.HttpClient())
	return client
}

func Test_EthereumClient(t *testing.T) {
	chain := tests.NewMockChain(contractAddress, 2000)
	user := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	chain.AddStakedEvent(user, 1, 100, 1500)
	client := setup(chain)
	defer client.Close()

	t.Run("eth_blockNumber", func(t *testing.T) {
		blockNumber, err := client.GetBlockNumber(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, uint64(2000), blockNumber)
	})
	t.Run("eth_chainId", func(t *testing.T) {
		chainId, err := client.GetChainId(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, big.NewInt(19880818), chainId)
	})
	t.Run("eth_getLogs", func(t *testing.T) {
		logs, err := client.GetLogs(context.Background(), ethereum.FilterQuery{
			FromBlock: big.NewInt(1000),
			ToBlock:   big.NewInt(1999),
			Addresses: []common.Address{contractAddress},
		})
		assert.Nil(t, err)
		assert.Len(t, logs, 1)
		assert.Equal(t, uint64(1500), logs[0].BlockNumber)
	})
	t.Run("eth_getLogs outside of the range returns nothing", func(t *testing.T) {
		logs, err := client.GetLogs(context.Background(), ethereum.FilterQuery{
			FromBlock: big.NewInt(0),
			ToBlock:   big.NewInt(999),
			Addresses: []common.Address{contractAddress},
		})
		assert.Nil(t, err)
		assert.Len(t, logs, 0)
	})
}

func Test_EthereumClientRetries(t *testing.T) {
	t.Run("Should make RetryCount attempts before failing", func(t *testing.T) {
		chain := tests.NewMockChain(contractAddress, 2000)
		chain.FailGetLogs = func(from, to uint64) bool {
			return true
		}
		client := setup(chain)
		defer client.Close()

		_, err := client.GetLogs(context.Background(), ethereum.FilterQuery{
			FromBlock: big.NewInt(1),
			ToBlock:   big.NewInt(2),
		})
		assert.NotNil(t, err)
		assert.Len(t, chain.GetLogsCallsSnapshot(), 3)
	})
	t.Run("Should succeed once a later attempt works", func(t *testing.T) {
		chain := tests.NewMockChain(contractAddress, 2000)
		attempts := 0
		chain.FailGetLogs = func(from, to uint64) bool {
			attempts++
			return attempts < 2
		}
		client := setup(chain)
		defer client.Close()

		logs, err := client.GetLogs(context.Background(), ethereum.FilterQuery{
			FromBlock: big.NewInt(1),
			ToBlock:   big.NewInt(2),
		})
		assert.Nil(t, err)
		assert.Len(t, logs, 0)
		assert.Len(t, chain.GetLogsCallsSnapshot(), 2)
	})
	t.Run("Should not retry reverted calls", func(t *testing.T) {
		chain := tests.NewMockChain(contractAddress, 2000)
		chain.RevertOutOfRange = true
		client := setup(chain)
		defer client.Close()

		a, err := contractAbi.GetStakingAbi()
		assert.Nil(t, err)
		data, err := a.Pack(contractAbi.StakesMethodName, common.Address{}, big.NewInt(0))
		assert.Nil(t, err)

		_, err = client.CallContract(context.Background(), ethereum.CallMsg{
			To:   &contractAddress,
			Data: data,
		}, nil)
		assert.NotNil(t, err)
		assert.True(t, IsExecutionReverted(err))
	})
}

type codedError struct {
	code int
}

func (e codedError) Error() string  { return "rpc failure" }
func (e codedError) ErrorCode() int { return e.code }

var _ rpc.Error = codedError{}

func Test_IsExecutionReverted(t *testing.T) {
	assert.False(t, IsExecutionReverted(nil))
	assert.True(t, IsExecutionReverted(codedError{code: 3}))
	assert.True(t, IsExecutionReverted(errors.Wrap(codedError{code: 3}, "call failed")))
	assert.False(t, IsExecutionReverted(codedError{code: -32000}))
	assert.True(t, IsExecutionReverted(errors.New("execution reverted: index out of bounds")))
	assert.False(t, IsExecutionReverted(errors.New("i/o timeout")))
}
