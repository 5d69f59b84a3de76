// Package parser provides the typed representations of decoded staking contract logs.
package parser

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// DecodedLog represents a decoded Ethereum event log with its arguments and metadata.
// It contains the event name, emitting contract address, and structured argument data.
type DecodedLog struct {
	// LogIndex is the position of the log in the block
	LogIndex uint64
	// BlockNumber is the block the log was emitted in
	BlockNumber uint64
	// TransactionHash is the hash of the transaction that emitted the log
	TransactionHash string
	// Address is the contract address that emitted the event
	Address string
	// Arguments contains the decoded event parameters
	Arguments []Argument
	// EventName is the name of the emitted event
	EventName string
	// OutputData contains the decoded non-indexed event data as a map
	OutputData map[string]interface{}
}

// Argument represents a single parameter in a decoded event log.
// It includes the parameter name, type, value, and whether it was indexed in the event.
type Argument struct {
	// Name is the parameter name
	Name string
	// Type is the Solidity type of the parameter
	Type string
	// Value is the actual parameter value
	Value interface{}
	// Indexed indicates whether this was an indexed event parameter
	Indexed bool
}

// FindArgument returns the argument with the given name, or nil.
func (d *DecodedLog) FindArgument(name string) *Argument {
	for i := range d.Arguments {
		if d.Arguments[i].Name == name {
			return &d.Arguments[i]
		}
	}
	return nil
}

// StakedEvent is a decoded Staked(address indexed user, uint256 tokenId, uint256 amount) log.
type StakedEvent struct {
	User            common.Address
	TokenId         *big.Int
	Amount          *big.Int
	BlockNumber     uint64
	TransactionHash string
	LogIndex        uint64
}

// UserAddress returns the lowercase hex form of the staker address.
func (s *StakedEvent) UserAddress() string {
	return strings.ToLower(s.User.Hex())
}
