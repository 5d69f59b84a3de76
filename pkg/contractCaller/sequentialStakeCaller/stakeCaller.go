package sequentialStakeCaller

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Layr-Labs/staking-snap/pkg/clients/ethereum"
	"github.com/Layr-Labs/staking-snap/pkg/contractAbi"
	"github.com/Layr-Labs/staking-snap/pkg/contractCaller"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type SequentialStakeCaller struct {
	EthereumClient  *ethereum.Client
	ContractAddress common.Address
	Logger          *zap.Logger

	contract *bind.BoundContract
}

func NewSequentialStakeCaller(ec *ethereum.Client, contractAddress common.Address, l *zap.Logger) (*SequentialStakeCaller, error) {
	if ec == nil {
		return nil, fmt.Errorf("ethereum client not available")
	}

	parsedABI, err := contractAbi.GetStakingAbi()
	if err != nil {
		return nil, fmt.Errorf("failed to parse staking ABI: %v", err)
	}

	ethClient, err := ec.GetEthereumContractCaller()
	if err != nil {
		return nil, fmt.Errorf("failed to get ethereum contract caller: %v", err)
	}

	return &SequentialStakeCaller{
		EthereumClient:  ec,
		ContractAddress: contractAddress,
		Logger:          l,
		contract:        bind.NewBoundContract(contractAddress, *parsedABI, ethClient, nil, nil),
	}, nil
}

// GetStake calls stakes(address, index) and decodes the (tokenId, amount, stakedAt, claimed) tuple.
// A revert is reported as contractCaller.ErrStakeIndexOutOfRange.
func (ssc *SequentialStakeCaller) GetStake(ctx context.Context, address common.Address, index uint64) (*contractCaller.StakeRecord, error) {
	var result []interface{}
	err := ssc.contract.Call(&bind.CallOpts{Context: ctx}, &result, contractAbi.StakesMethodName, address, new(big.Int).SetUint64(index))
	if err != nil {
		if ethereum.IsExecutionReverted(err) {
			return nil, fmt.Errorf("%w: stakes(%s, %d): %v", contractCaller.ErrStakeIndexOutOfRange, address.Hex(), index, err)
		}
		return nil, fmt.Errorf("failed to call stakes for address %s index %d: %w", address.Hex(), index, err)
	}

	if len(result) != 4 {
		return nil, fmt.Errorf("got %d values from stakes for address %s index %d, expected 4", len(result), address.Hex(), index)
	}

	values := make([]*big.Int, len(result))
	for i, v := range result {
		n, ok := v.(*big.Int)
		if !ok || n == nil {
			return nil, fmt.Errorf("got unexpected result type from stakes for address %s index %d", address.Hex(), index)
		}
		values[i] = n
	}

	if !values[2].IsUint64() {
		return nil, fmt.Errorf("stakedAt %s for address %s index %d does not fit a unix timestamp", values[2].String(), address.Hex(), index)
	}

	stake := &contractCaller.StakeRecord{
		Index:    index,
		TokenId:  values[0],
		Amount:   values[1],
		StakedAt: values[2].Uint64(),
		Claimed:  values[3],
	}

	ssc.Logger.Sugar().Debugw("Retrieved stake",
		zap.String("address", address.Hex()),
		zap.Uint64("index", index),
		zap.String("amount", stake.Amount.String()),
	)
	return stake, nil
}
