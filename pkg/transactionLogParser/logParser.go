package transactionLogParser

import (
	"fmt"
	"math/big"

	"github.com/Layr-Labs/staking-snap/pkg/contractAbi"
	"github.com/Layr-Labs/staking-snap/pkg/parser"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// TransactionLogParser decodes raw staking contract logs using the staking contract ABI.
type TransactionLogParser struct {
	logger *zap.Logger
	abi    *abi.ABI
}

// NewTransactionLogParser creates a parser bound to the staking contract ABI.
func NewTransactionLogParser(logger *zap.Logger) (*TransactionLogParser, error) {
	a, err := contractAbi.GetStakingAbi()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load staking abi")
	}
	return &TransactionLogParser{
		logger: logger,
		abi:    a,
	}, nil
}

// StakedEventTopic returns topic0 of the Staked event.
func (tlp *TransactionLogParser) StakedEventTopic() common.Hash {
	return tlp.abi.Events[contractAbi.StakedEventName].ID
}

// DecodeLog decodes a log using the staking ABI.
// It extracts the event name, indexed arguments from the topics and non-indexed
// arguments from the data section.
func (tlp *TransactionLogParser) DecodeLog(lg *types.Log) (*parser.DecodedLog, error) {
	if len(lg.Topics) == 0 {
		return nil, errors.New("log has no topics")
	}

	decodedLog := &parser.DecodedLog{
		Address:         lg.Address.String(),
		LogIndex:        uint64(lg.Index),
		BlockNumber:     lg.BlockNumber,
		TransactionHash: lg.TxHash.Hex(),
	}

	event, err := tlp.abi.EventByID(lg.Topics[0])
	if err != nil {
		tlp.logger.Sugar().Debugw(fmt.Sprintf("Failed to find event by ID '%s'", lg.Topics[0]))
		return nil, err
	}

	decodedLog.EventName = event.RawName
	decodedLog.Arguments = make([]parser.Argument, len(event.Inputs))

	for i, input := range event.Inputs {
		decodedLog.Arguments[i] = parser.Argument{
			Name:    input.Name,
			Type:    input.Type.String(),
			Indexed: input.Indexed,
		}
	}

	indexed := make([]int, 0)
	for i, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, i)
		}
	}
	if len(lg.Topics)-1 != len(indexed) {
		return nil, fmt.Errorf("expected %d indexed topics, got %d", len(indexed), len(lg.Topics)-1)
	}
	for i, topic := range lg.Topics[1:] {
		argIndex := indexed[i]
		d, err := ParseLogValueForType(event.Inputs[argIndex], topic)
		if err != nil {
			tlp.logger.Sugar().Errorw("Failed to parse log value for type", zap.Error(err))
			return nil, err
		}
		decodedLog.Arguments[argIndex].Value = d
	}

	outputDataMap := make(map[string]interface{})
	if err := event.Inputs.UnpackIntoMap(outputDataMap, lg.Data); err != nil {
		tlp.logger.Sugar().Errorw("Failed to unpack data",
			zap.Error(err),
			zap.String("address", lg.Address.String()),
			zap.String("eventName", event.Name),
			zap.String("transactionHash", lg.TxHash.Hex()),
		)
		return nil, errors.New("failed to unpack data")
	}
	decodedLog.OutputData = outputDataMap

	for i, input := range event.Inputs {
		if v, ok := outputDataMap[input.Name]; ok && !input.Indexed {
			decodedLog.Arguments[i].Value = v
		}
	}
	return decodedLog, nil
}

// DecodeStakedEvent decodes a log and maps it onto a StakedEvent.
func (tlp *TransactionLogParser) DecodeStakedEvent(lg *types.Log) (*parser.StakedEvent, error) {
	decodedLog, err := tlp.DecodeLog(lg)
	if err != nil {
		return nil, err
	}
	if decodedLog.EventName != contractAbi.StakedEventName {
		return nil, fmt.Errorf("unexpected event '%s'", decodedLog.EventName)
	}

	user, ok := argumentValue[common.Address](decodedLog, "user")
	if !ok {
		return nil, errors.New("Staked log is missing the user argument")
	}
	tokenId, ok := argumentValue[*big.Int](decodedLog, "tokenId")
	if !ok {
		return nil, errors.New("Staked log is missing the tokenId argument")
	}
	amount, ok := argumentValue[*big.Int](decodedLog, "amount")
	if !ok {
		return nil, errors.New("Staked log is missing the amount argument")
	}

	return &parser.StakedEvent{
		User:            user,
		TokenId:         tokenId,
		Amount:          amount,
		BlockNumber:     decodedLog.BlockNumber,
		TransactionHash: decodedLog.TransactionHash,
		LogIndex:        decodedLog.LogIndex,
	}, nil
}

func argumentValue[T any](d *parser.DecodedLog, name string) (T, bool) {
	var empty T
	arg := d.FindArgument(name)
	if arg == nil || arg.Value == nil {
		return empty, false
	}
	v, ok := arg.Value.(T)
	return v, ok
}

// ParseLogValueForType converts an indexed topic to an appropriate Go type
// based on the ABI argument type.
func ParseLogValueForType(argument abi.Argument, topic common.Hash) (interface{}, error) {
	switch argument.Type.T {
	case abi.IntTy, abi.UintTy:
		return abi.ReadInteger(argument.Type, topic.Bytes())
	case abi.BoolTy:
		return readBool(topic.Bytes())
	case abi.AddressTy:
		return common.BytesToAddress(topic.Bytes()), nil
	default:
		// dynamic types are hashed into the topic; return as-is
		return topic.Hex(), nil
	}
}

// errBadBool is returned when a boolean value in an Ethereum log is improperly encoded.
var (
	errBadBool = fmt.Errorf("abi: improperly encoded boolean value")
)

// readBool converts a 32-byte word to a boolean value.
// Valid encodings have all bytes except the last one set to zero,
// and the last byte set to either 0 (false) or 1 (true).
func readBool(word []byte) (bool, error) {
	for _, b := range word[:31] {
		if b != 0 {
			return false, errBadBool
		}
	}
	switch word[31] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errBadBool
	}
}
