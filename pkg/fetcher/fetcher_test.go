package fetcher

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/Layr-Labs/staking-snap/internal/tests"
	ethClient "github.com/Layr-Labs/staking-snap/pkg/clients/ethereum"
	"github.com/Layr-Labs/staking-snap/pkg/parser"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
)

var contractAddress = common.HexToAddress("0xc488736c09ab088e5203b48d973dca30581d6118")

type fakeLogClient struct {
	blockNumber    uint64
	blockNumberErr error
	logs           []types.Log
	failRange      func(from, to uint64) bool

	blockNumberCalls int
	queries          []BlockRange
}

func (f *fakeLogClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	f.blockNumberCalls++
	return f.blockNumber, f.blockNumberErr
}

func (f *fakeLogClient) GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	from := query.FromBlock.Uint64()
	to := query.ToBlock.Uint64()
	f.queries = append(f.queries, BlockRange{From: from, To: to})
	if f.failRange != nil && f.failRange(from, to) {
		return nil, fmt.Errorf("request for %d-%d failed", from, to)
	}
	out := make([]types.Log, 0)
	for _, lg := range f.logs {
		if lg.BlockNumber >= from && lg.BlockNumber <= to {
			out = append(out, lg)
		}
	}
	return out, nil
}

func userAddress(i int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0xa0 + i)))
}

func stakedLogs(blocks ...uint64) []types.Log {
	logs := make([]types.Log, 0, len(blocks))
	for i, b := range blocks {
		logs = append(logs, tests.NewStakedLog(contractAddress, userAddress(i%3), big.NewInt(int64(i)), big.NewInt(100), b, uint(i)))
	}
	return logs
}

func setup(client LogClient, batchSize uint64) (*Fetcher, error) {
	return NewFetcher(client, &FetcherConfig{
		ContractAddress: contractAddress,
		BatchSize:       batchSize,
	}, nil, tests.GetTestLogger())
}

func blockNumbers(events []*parser.StakedEvent) []uint64 {
	out := make([]uint64, 0, len(events))
	for _, e := range events {
		out = append(out, e.BlockNumber)
	}
	return out
}

func Test_FetchStakedEvents(t *testing.T) {
	t.Run("Should cover the range with contiguous windows of batch size", func(t *testing.T) {
		client := &fakeLogClient{}
		f, err := setup(client, 1000)
		assert.Nil(t, err)

		_, report, err := f.FetchStakedEvents(context.Background(), 0, AtBlock(2499))
		assert.Nil(t, err)

		assert.Equal(t, []BlockRange{
			{From: 0, To: 999},
			{From: 1000, To: 1999},
			{From: 2000, To: 2499},
		}, client.queries)
		assert.Equal(t, uint64(3), report.WindowsRequested)
		assert.False(t, report.HasFailures())
	})
	t.Run("Should request ceil(range / batch size) windows", func(t *testing.T) {
		cases := []struct {
			from, to, batchSize uint64
			expected            int
		}{
			{from: 100, to: 100, batchSize: 10, expected: 1},
			{from: 100, to: 109, batchSize: 10, expected: 1},
			{from: 100, to: 110, batchSize: 10, expected: 2},
			{from: 1550797, to: 1560797, batchSize: 1000, expected: 11},
			{from: 5, to: 9, batchSize: 1, expected: 5},
		}
		for _, c := range cases {
			client := &fakeLogClient{}
			f, err := setup(client, c.batchSize)
			assert.Nil(t, err)

			_, _, err = f.FetchStakedEvents(context.Background(), c.from, AtBlock(c.to))
			assert.Nil(t, err)
			assert.Equal(t, c.expected, len(client.queries))

			// windows are contiguous and never overlap
			assert.Equal(t, c.from, client.queries[0].From)
			assert.Equal(t, c.to, client.queries[len(client.queries)-1].To)
			for i := 1; i < len(client.queries); i++ {
				assert.Equal(t, client.queries[i-1].To+1, client.queries[i].From)
			}
		}
	})
	t.Run("Should skip a failed window and keep everything else", func(t *testing.T) {
		logs := stakedLogs(5, 15, 25, 35, 45)

		full := &fakeLogClient{logs: logs}
		f, err := setup(full, 10)
		assert.Nil(t, err)
		allEvents, _, err := f.FetchStakedEvents(context.Background(), 0, AtBlock(49))
		assert.Nil(t, err)
		assert.Equal(t, []uint64{5, 15, 25, 35, 45}, blockNumbers(allEvents))

		partial := &fakeLogClient{
			logs: logs,
			failRange: func(from, to uint64) bool {
				return from == 20
			},
		}
		f, err = setup(partial, 10)
		assert.Nil(t, err)
		events, report, err := f.FetchStakedEvents(context.Background(), 0, AtBlock(49))
		assert.Nil(t, err)
		assert.Equal(t, []uint64{5, 15, 35, 45}, blockNumbers(events))
		assert.Equal(t, []BlockRange{{From: 20, To: 29}}, report.FailedWindows)
		assert.Equal(t, uint64(5), report.WindowsRequested)
		assert.Equal(t, uint64(4), report.EventsCollected)
		assert.True(t, report.HasFailures())
	})
	t.Run("Should return nothing when start is after end", func(t *testing.T) {
		client := &fakeLogClient{}
		f, err := setup(client, 10)
		assert.Nil(t, err)

		events, report, err := f.FetchStakedEvents(context.Background(), 100, AtBlock(99))
		assert.Nil(t, err)
		assert.Equal(t, 0, len(events))
		assert.Equal(t, 0, len(client.queries))
		assert.Equal(t, uint64(0), report.WindowsRequested)
	})
	t.Run("Should resolve latest exactly once", func(t *testing.T) {
		client := &fakeLogClient{blockNumber: 35, logs: stakedLogs(30, 35, 36)}
		f, err := setup(client, 10)
		assert.Nil(t, err)

		events, report, err := f.FetchStakedEvents(context.Background(), 0, LatestBlock())
		assert.Nil(t, err)
		assert.Equal(t, 1, client.blockNumberCalls)
		assert.Equal(t, uint64(35), report.ToBlock)
		assert.Equal(t, []uint64{30, 35}, blockNumbers(events))
		assert.Equal(t, 4, len(client.queries))
	})
	t.Run("Should fail when latest cannot be resolved", func(t *testing.T) {
		client := &fakeLogClient{blockNumberErr: fmt.Errorf("connection refused")}
		f, err := setup(client, 10)
		assert.Nil(t, err)

		_, _, err = f.FetchStakedEvents(context.Background(), 0, LatestBlock())
		assert.NotNil(t, err)
		assert.Equal(t, 0, len(client.queries))
	})
	t.Run("Should skip logs that cannot be decoded", func(t *testing.T) {
		logs := stakedLogs(1, 2)
		logs[0].Data = logs[0].Data[:32]
		client := &fakeLogClient{logs: logs}
		f, err := setup(client, 10)
		assert.Nil(t, err)

		events, report, err := f.FetchStakedEvents(context.Background(), 0, AtBlock(9))
		assert.Nil(t, err)
		assert.Equal(t, []uint64{2}, blockNumbers(events))
		assert.Equal(t, uint64(1), report.UndecodableLogs)
	})
	t.Run("Should stop when the context is cancelled", func(t *testing.T) {
		client := &fakeLogClient{}
		f, err := setup(client, 10)
		assert.Nil(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err = f.FetchStakedEvents(ctx, 0, AtBlock(100))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, len(client.queries))
	})
	t.Run("Should handle the top of the uint64 range", func(t *testing.T) {
		client := &fakeLogClient{}
		f, err := setup(client, 10)
		assert.Nil(t, err)

		max := ^uint64(0)
		_, _, err = f.FetchStakedEvents(context.Background(), max-14, AtBlock(max))
		assert.Nil(t, err)
		assert.Equal(t, []BlockRange{{From: max - 14, To: max - 5}, {From: max - 4, To: max}}, client.queries)
	})
}

func Test_FetchStakedEventsFromMockChain(t *testing.T) {
	chain := tests.NewMockChain(contractAddress, 2500)
	userA := common.HexToAddress("0x00000000000000000000000000000000000000AA")
	userB := common.HexToAddress("0x00000000000000000000000000000000000000BB")
	chain.AddStakedEvent(userA, 1, 100, 10)
	chain.AddStakedEvent(userB, 2, 100, 1200)
	chain.AddStakedEvent(userA, 3, 200, 2400)
	chain.FailGetLogs = func(from, to uint64) bool {
		return from == 1000
	}

	ethConfig := ethClient.DefaultEthereumClientConfig()
	ethConfig.BaseUrl = tests.MockRpcUrl
	ethConfig.RetryDelay = time.Millisecond
	client := ethClient.NewClient(ethConfig, tests.GetTestLogger())
	client.SetHttpClient(chain.HttpClient())

	f, err := setup(client, 1000)
	assert.Nil(t, err)

	events, report, err := f.FetchStakedEvents(context.Background(), 0, LatestBlock())
	assert.Nil(t, err)
	assert.Equal(t, uint64(2500), report.ToBlock)
	assert.Equal(t, []uint64{10, 2400}, blockNumbers(events))
	assert.Equal(t, []BlockRange{{From: 1000, To: 1999}}, report.FailedWindows)

	// the failed window is retried by the transport, every other window is requested once
	calls := chain.GetLogsCallsSnapshot()
	assert.Equal(t, 5, len(calls))

	users := UniqueUsers(events)
	assert.Equal(t, []string{"0x00000000000000000000000000000000000000aa"}, users)
}

func Test_UniqueUsers(t *testing.T) {
	a := common.HexToAddress("0x00000000000000000000000000000000000000AA")
	b := common.HexToAddress("0x00000000000000000000000000000000000000bB")
	events := []*parser.StakedEvent{
		{User: b, BlockNumber: 1},
		{User: a, BlockNumber: 2},
		nil,
		{User: b, BlockNumber: 3},
	}

	users := UniqueUsers(events)
	assert.Equal(t, []string{
		strings.ToLower(b.Hex()),
		strings.ToLower(a.Hex()),
	}, users)
	assert.Equal(t, 0, len(UniqueUsers(nil)))
}

func Test_NewFetcher(t *testing.T) {
	_, err := setup(&fakeLogClient{}, 0)
	assert.NotNil(t, err)
}
