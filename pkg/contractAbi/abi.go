package contractAbi

import (
	"regexp"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"go.uber.org/zap"
)

const (
	StakesMethodName = "stakes"
	StakedEventName  = "Staked"
)

// StakingContractAbi is the subset of the staking contract ABI that is read by the snapshot.
const StakingContractAbi = `[
	{
		"inputs": [
			{"name": "", "type": "address"},
			{"name": "", "type": "uint256"}
		],
		"name": "stakes",
		"outputs": [
			{"name": "tokenId", "type": "uint256"},
			{"name": "amount", "type": "uint256"},
			{"name": "stakedAt", "type": "uint256"},
			{"name": "claimed", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "user", "type": "address"},
			{"indexed": false, "name": "tokenId", "type": "uint256"},
			{"indexed": false, "name": "amount", "type": "uint256"}
		],
		"name": "Staked",
		"type": "event"
	}
]`

var (
	stakingAbi     *abi.ABI
	stakingAbiErr  error
	stakingAbiOnce sync.Once
)

// GetStakingAbi returns the parsed staking contract ABI. It is parsed once and shared.
func GetStakingAbi() (*abi.ABI, error) {
	stakingAbiOnce.Do(func() {
		stakingAbi, stakingAbiErr = UnmarshalJsonToAbi(StakingContractAbi, zap.NewNop())
	})
	return stakingAbi, stakingAbiErr
}

// UnmarshalJsonToAbi unmarshals a JSON ABI string into an abi.ABI struct.
// It handles certain common unmarshaling errors that can be safely ignored,
// such as "only single receive is allowed" and "only single fallback is allowed".
// Returns the parsed ABI and any error encountered during parsing.
func UnmarshalJsonToAbi(json string, l *zap.Logger) (*abi.ABI, error) {
	a := &abi.ABI{}

	err := a.UnmarshalJSON([]byte(json))

	if err != nil {
		foundMatch := false
		// patterns that we're fine to ignore and not treat as an error
		patterns := []*regexp.Regexp{
			regexp.MustCompile(`only single receive is allowed`),
			regexp.MustCompile(`only single fallback is allowed`),
		}

		for _, pattern := range patterns {
			if pattern.MatchString(err.Error()) {
				foundMatch = true
				break
			}
		}

		// If the error isnt one that we can ignore, return it
		if !foundMatch {
			l.Sugar().Warnw("Error unmarshaling abi json", zap.Error(err))
			return nil, err
		}
	}

	return a, nil
}
