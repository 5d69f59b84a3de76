package contractCaller

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrStakeIndexOutOfRange is returned when the contract reverts because the index is past
// the end of the address's stake list.
var ErrStakeIndexOutOfRange = errors.New("stake index out of range")

// StakeRecord is a single entry of the staking contract's stakes(address, uint256) getter.
type StakeRecord struct {
	Index    uint64
	TokenId  *big.Int
	Amount   *big.Int
	StakedAt uint64
	Claimed  *big.Int
}

// IsEmpty reports whether the record is the zero-amount sentinel.
func (s *StakeRecord) IsEmpty() bool {
	return s.Amount == nil || s.Amount.Sign() == 0
}

// IStakeCaller defines the interface for staking contract reads
type IStakeCaller interface {
	// GetStake reads stakes(address, index) from the staking contract
	GetStake(ctx context.Context, address common.Address, index uint64) (*StakeRecord, error)
}
