package tests

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/Layr-Labs/staking-snap/pkg/contractAbi"
	"github.com/Layr-Labs/staking-snap/pkg/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jarcoal/httpmock"
	"go.uber.org/zap"
)

const MockRpcUrl = "http://mock-chain.local:8545"

func GetTestLogger() *zap.Logger {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	return l
}

type MockStake struct {
	TokenId  *big.Int
	Amount   *big.Int
	StakedAt *big.Int
	Claimed  *big.Int
}

func NewMockStake(amount int64) MockStake {
	return MockStake{
		TokenId:  big.NewInt(1),
		Amount:   big.NewInt(amount),
		StakedAt: big.NewInt(1700000000),
		Claimed:  big.NewInt(0),
	}
}

type BlockRange struct {
	From uint64
	To   uint64
}

// MockChain serves a minimal JSON-RPC surface (eth_blockNumber, eth_chainId, eth_getLogs,
// eth_call to stakes(address,uint256)) through httpmock.
type MockChain struct {
	mu sync.Mutex

	BlockNumber uint64
	ChainId     uint64
	Contract    common.Address
	Logs        []types.Log
	Stakes      map[common.Address][]MockStake

	// RevertOutOfRange makes stakes() revert past the end of a user's list instead of
	// returning an empty record.
	RevertOutOfRange bool
	// FailGetLogs returns an rpc error for matching eth_getLogs ranges.
	FailGetLogs func(from, to uint64) bool
	// FailStakeCall returns an rpc error for matching stakes() reads.
	FailStakeCall func(user common.Address, index uint64) bool

	GetLogsCalls []BlockRange
	StakeCalls   int
}

func NewMockChain(contract common.Address, blockNumber uint64) *MockChain {
	return &MockChain{
		BlockNumber: blockNumber,
		ChainId:     19880818,
		Contract:    contract,
		Logs:        make([]types.Log, 0),
		Stakes:      make(map[common.Address][]MockStake),
	}
}

func (m *MockChain) AddStakedEvent(user common.Address, tokenId int64, amount int64, blockNumber uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lg := NewStakedLog(m.Contract, user, big.NewInt(tokenId), big.NewInt(amount), blockNumber, uint(len(m.Logs)))
	m.Logs = append(m.Logs, lg)
	sort.SliceStable(m.Logs, func(i, j int) bool {
		return m.Logs[i].BlockNumber < m.Logs[j].BlockNumber
	})
}

func (m *MockChain) SetStakes(user common.Address, stakes ...MockStake) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stakes[user] = stakes
}

func (m *MockChain) GetLogsCallsSnapshot() []BlockRange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BlockRange{}, m.GetLogsCalls...)
}

// HttpClient returns an http client whose transport is served by the mock chain.
func (m *MockChain) HttpClient() *http.Client {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, MockRpcUrl, m.Responder())
	return &http.Client{Transport: transport}
}

// NewStakedLog builds a Staked(address indexed user, uint256 tokenId, uint256 amount) log.
func NewStakedLog(contract common.Address, user common.Address, tokenId *big.Int, amount *big.Int, blockNumber uint64, logIndex uint) types.Log {
	a, err := contractAbi.GetStakingAbi()
	if err != nil {
		panic(err)
	}
	event := a.Events[contractAbi.StakedEventName]
	data, err := event.Inputs.NonIndexed().Pack(tokenId, amount)
	if err != nil {
		panic(err)
	}
	return types.Log{
		Address:     contract,
		Topics:      []common.Hash{event.ID, common.BytesToHash(user.Bytes())},
		Data:        data,
		BlockNumber: blockNumber,
		TxHash:      crypto.Keccak256Hash([]byte(fmt.Sprintf("tx-%d-%d", blockNumber, logIndex))),
		TxIndex:     0,
		BlockHash:   crypto.Keccak256Hash([]byte(fmt.Sprintf("block-%d", blockNumber))),
		Index:       logIndex,
	}
}

type rpcRequest struct {
	Id     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JsonRpc string          `json:"jsonrpc"`
	Id      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type filterArgs struct {
	Address   []common.Address `json:"address"`
	FromBlock *hexutil.Big     `json:"fromBlock"`
	ToBlock   *hexutil.Big     `json:"toBlock"`
}

type callArgs struct {
	To    *common.Address `json:"to"`
	Input hexutil.Bytes   `json:"input"`
	Data  hexutil.Bytes   `json:"data"`
}

func (m *MockChain) Responder() httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		var r rpcRequest
		if err := json.Unmarshal(body, &r); err != nil {
			return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
		}

		result, rpcErr := m.handle(&r)
		resp := rpcResponse{JsonRpc: "2.0", Id: r.Id}
		if rpcErr != nil {
			resp.Error = rpcErr
		} else {
			resp.Result = result
		}
		return httpmock.NewJsonResponse(http.StatusOK, resp)
	}
}

func (m *MockChain) handle(r *rpcRequest) (interface{}, *rpcError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch r.Method {
	case "eth_blockNumber":
		return hexutil.Uint64(m.BlockNumber), nil
	case "eth_chainId":
		return (*hexutil.Big)(new(big.Int).SetUint64(m.ChainId)), nil
	case "eth_getLogs":
		return m.getLogs(r)
	case "eth_call":
		return m.call(r)
	default:
		return nil, &rpcError{Code: -32601, Message: fmt.Sprintf("method %s not found", r.Method)}
	}
}

func (m *MockChain) getLogs(r *rpcRequest) (interface{}, *rpcError) {
	if len(r.Params) != 1 {
		return nil, &rpcError{Code: -32602, Message: "invalid params"}
	}
	var args filterArgs
	if err := json.Unmarshal(r.Params[0], &args); err != nil {
		return nil, &rpcError{Code: -32602, Message: err.Error()}
	}
	if args.FromBlock == nil || args.ToBlock == nil {
		return nil, &rpcError{Code: -32602, Message: "fromBlock and toBlock are required"}
	}
	from := args.FromBlock.ToInt().Uint64()
	to := args.ToBlock.ToInt().Uint64()
	m.GetLogsCalls = append(m.GetLogsCalls, BlockRange{From: from, To: to})

	if m.FailGetLogs != nil && m.FailGetLogs(from, to) {
		return nil, &rpcError{Code: -32000, Message: "request timed out"}
	}

	logs := make([]types.Log, 0)
	for _, lg := range m.Logs {
		if lg.BlockNumber < from || lg.BlockNumber > to {
			continue
		}
		if len(args.Address) > 0 && !containsAddress(args.Address, lg.Address) {
			continue
		}
		logs = append(logs, lg)
	}
	return logs, nil
}

func (m *MockChain) call(r *rpcRequest) (interface{}, *rpcError) {
	if len(r.Params) == 0 {
		return nil, &rpcError{Code: -32602, Message: "invalid params"}
	}
	var args callArgs
	if err := json.Unmarshal(r.Params[0], &args); err != nil {
		return nil, &rpcError{Code: -32602, Message: err.Error()}
	}
	input := args.Input
	if len(input) == 0 {
		input = args.Data
	}
	if args.To == nil || *args.To != m.Contract {
		return hexutil.Bytes{}, nil
	}

	a, err := contractAbi.GetStakingAbi()
	if err != nil {
		return nil, &rpcError{Code: -32603, Message: err.Error()}
	}
	method := a.Methods[contractAbi.StakesMethodName]
	if len(input) < 4 || !strings.EqualFold(hexutil.Encode(input[:4]), hexutil.Encode(method.ID)) {
		return nil, &rpcError{Code: 3, Message: "execution reverted"}
	}
	values, err := method.Inputs.Unpack(input[4:])
	if err != nil || len(values) != 2 {
		return nil, &rpcError{Code: 3, Message: "execution reverted"}
	}
	user := values[0].(common.Address)
	index := values[1].(*big.Int).Uint64()
	m.StakeCalls++

	if m.FailStakeCall != nil && m.FailStakeCall(user, index) {
		return nil, &rpcError{Code: -32000, Message: "header not found"}
	}

	stake := MockStake{TokenId: big.NewInt(0), Amount: big.NewInt(0), StakedAt: big.NewInt(0), Claimed: big.NewInt(0)}
	stakes := m.Stakes[user]
	if index < uint64(len(stakes)) {
		stake = stakes[index]
	} else if m.RevertOutOfRange {
		return nil, &rpcError{Code: 3, Message: "execution reverted"}
	}

	out, err := method.Outputs.Pack(stake.TokenId, stake.Amount, stake.StakedAt, stake.Claimed)
	if err != nil {
		return nil, &rpcError{Code: -32603, Message: err.Error()}
	}
	return hexutil.Bytes(out), nil
}

func containsAddress(addresses []common.Address, address common.Address) bool {
	for _, a := range addresses {
		if a == address {
			return true
		}
	}
	return false
}
