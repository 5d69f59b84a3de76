package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

type Chain string

func (c Chain) String() string {
	return string(c)
}

const (
	Chain_Dbc   Chain = "dbc"
	Chain_Local Chain = "local"
)

const ENV_PREFIX = "STAKING_SNAP"

// LatestBlock is the end-block value resolved to the chain height at run time.
const LatestBlock = "latest"

const (
	Debug    = "debug"
	ChainKey = "chain"
	Progress = "progress"

	EthereumRpcUrl        = "ethereum.rpc-url"
	EthereumRpcTimeout    = "ethereum.timeout"
	EthereumRpcRetryCount = "ethereum.retry-count"
	EthereumRpcRetryDelay = "ethereum.retry-delay"

	StakingContractAddress  = "staking.contract-address"
	StakingStartBlock       = "staking.start-block"
	StakingEndBlock         = "staking.end-block"
	StakingBatchSize        = "staking.batch-size"
	StakingMaxStakeIndex    = "staking.max-stake-index"
	StakingStopOnProbeError = "staking.stop-on-probe-error"
	OutputDir               = "output.dir"
	OutputStakeDetailsCsv   = "output.stake-details-csv"
	OutputHash              = "output.hash"
	OutputSigningKey        = "output.signing-key"
	PrometheusTextfile      = "prometheus.textfile"
	DataDogStatsdEnabled    = "datadog.statsd.enabled"
	DataDogStatsdUrl        = "datadog.statsd.url"
	DataDogTracingEnabled   = "datadog.tracing.enabled"
)

const (
	DefaultBatchSize         = 1000
	DefaultMaxStakeIndex     = 10000
	DefaultRetryCount        = 3
	DefaultRpcTimeout        = 30 * time.Second
	DefaultRetryDelay        = time.Second
	DefaultOutputDir         = "./output"
	ProgressLogEveryNAddress = 10
)

type ChainConfig struct {
	Name            Chain
	ChainId         uint64
	RpcUrl          string
	ContractAddress string
	StartBlock      uint64
}

var chainConfigs = []ChainConfig{
	{
		Name:            Chain_Dbc,
		ChainId:         19880818,
		RpcUrl:          "https://rpc.dbcwallet.io",
		ContractAddress: "0xc488736c09ab088e5203b48d973dca30581d6118",
		StartBlock:      1550797,
	},
	{
		Name:    Chain_Local,
		ChainId: 31337,
		RpcUrl:  "http://localhost:8545",
	},
}

func ParseChainConfig(name string) (ChainConfig, error) {
	if name == "" {
		return ChainConfig{}, fmt.Errorf("chain not found")
	}
	for _, c := range chainConfigs {
		if string(c.Name) == name {
			return c, nil
		}
	}
	return ChainConfig{}, fmt.Errorf("unsupported chain %s", name)
}

type EthereumRpcConfig struct {
	BaseUrl    string
	Timeout    time.Duration
	RetryCount uint
	RetryDelay time.Duration
}

type StakingConfig struct {
	ContractAddress string
	StartBlock      uint64
	// EndBlock is either LatestBlock or a base-10 block number.
	EndBlock      string
	BatchSize     uint64
	MaxStakeIndex uint64
	// StopOnProbeError treats a failed stakes() read as the end of the list instead of
	// failing the address.
	StopOnProbeError bool
}

type OutputConfig struct {
	Dir             string
	StakeDetailsCsv bool
	Hash            bool
	SigningKeyPath  string
	ShowProgress    bool
}

type PrometheusConfig struct {
	Textfile string
}

type DataDogConfig struct {
	StatsdConfig struct {
		Enabled bool
		Url     string
	}
	EnableTracing bool
}

type Config struct {
	Debug             bool
	Chain             Chain
	EthereumRpcConfig EthereumRpcConfig
	StakingConfig     StakingConfig
	OutputConfig      OutputConfig
	PrometheusConfig  PrometheusConfig
	DataDogConfig     DataDogConfig
}

func normalizeFlagName(name string) string {
	return KebabToSnakeCase(name)
}

func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

// NewConfig reads the bound viper flags/env vars into a Config, falling back to the
// chain defaults for anything chain specific that was left empty.
func NewConfig() *Config {
	cfg := &Config{
		Debug: viper.GetBool(normalizeFlagName(Debug)),
		Chain: Chain(StringWithDefault(viper.GetString(normalizeFlagName(ChainKey)), string(Chain_Dbc))),

		EthereumRpcConfig: EthereumRpcConfig{
			BaseUrl:    viper.GetString(normalizeFlagName(EthereumRpcUrl)),
			Timeout:    viper.GetDuration(normalizeFlagName(EthereumRpcTimeout)),
			RetryCount: viper.GetUint(normalizeFlagName(EthereumRpcRetryCount)),
			RetryDelay: viper.GetDuration(normalizeFlagName(EthereumRpcRetryDelay)),
		},

		StakingConfig: StakingConfig{
			ContractAddress:  viper.GetString(normalizeFlagName(StakingContractAddress)),
			StartBlock:       viper.GetUint64(normalizeFlagName(StakingStartBlock)),
			EndBlock:         StringWithDefault(viper.GetString(normalizeFlagName(StakingEndBlock)), LatestBlock),
			BatchSize:        viper.GetUint64(normalizeFlagName(StakingBatchSize)),
			MaxStakeIndex:    viper.GetUint64(normalizeFlagName(StakingMaxStakeIndex)),
			StopOnProbeError: viper.GetBool(normalizeFlagName(StakingStopOnProbeError)),
		},

		OutputConfig: OutputConfig{
			Dir:             StringWithDefault(viper.GetString(normalizeFlagName(OutputDir)), DefaultOutputDir),
			StakeDetailsCsv: viper.GetBool(normalizeFlagName(OutputStakeDetailsCsv)),
			Hash:            viper.GetBool(normalizeFlagName(OutputHash)),
			SigningKeyPath:  viper.GetString(normalizeFlagName(OutputSigningKey)),
			ShowProgress:    viper.GetBool(normalizeFlagName(Progress)),
		},

		PrometheusConfig: PrometheusConfig{
			Textfile: viper.GetString(normalizeFlagName(PrometheusTextfile)),
		},
	}
	cfg.DataDogConfig.StatsdConfig.Enabled = viper.GetBool(normalizeFlagName(DataDogStatsdEnabled))
	cfg.DataDogConfig.StatsdConfig.Url = viper.GetString(normalizeFlagName(DataDogStatsdUrl))
	cfg.DataDogConfig.EnableTracing = viper.GetBool(normalizeFlagName(DataDogTracingEnabled))

	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if chainConfig, err := ParseChainConfig(c.Chain.String()); err == nil {
		if c.EthereumRpcConfig.BaseUrl == "" {
			c.EthereumRpcConfig.BaseUrl = chainConfig.RpcUrl
		}
		if c.StakingConfig.ContractAddress == "" {
			c.StakingConfig.ContractAddress = chainConfig.ContractAddress
		}
		if c.StakingConfig.StartBlock == 0 {
			c.StakingConfig.StartBlock = chainConfig.StartBlock
		}
	}
	if c.EthereumRpcConfig.Timeout == 0 {
		c.EthereumRpcConfig.Timeout = DefaultRpcTimeout
	}
	if c.EthereumRpcConfig.RetryCount == 0 {
		c.EthereumRpcConfig.RetryCount = DefaultRetryCount
	}
	if c.EthereumRpcConfig.RetryDelay == 0 {
		c.EthereumRpcConfig.RetryDelay = DefaultRetryDelay
	}
	if c.StakingConfig.BatchSize == 0 {
		c.StakingConfig.BatchSize = DefaultBatchSize
	}
	if c.StakingConfig.MaxStakeIndex == 0 {
		c.StakingConfig.MaxStakeIndex = DefaultMaxStakeIndex
	}
}

// GetChainId returns the expected chain id for the configured chain, or 0 if unknown.
func (c *Config) GetChainId() uint64 {
	chainConfig, err := ParseChainConfig(c.Chain.String())
	if err != nil {
		return 0
	}
	return chainConfig.ChainId
}

// ParseEndBlock returns (0, true, nil) for "latest", otherwise the parsed block number.
func (s *StakingConfig) ParseEndBlock() (uint64, bool, error) {
	if s.EndBlock == "" || strings.EqualFold(s.EndBlock, LatestBlock) {
		return 0, true, nil
	}
	n, ok := new(big.Int).SetString(s.EndBlock, 10)
	if !ok || !n.IsUint64() {
		return 0, false, fmt.Errorf("invalid end block '%s'", s.EndBlock)
	}
	return n.Uint64(), false, nil
}

func (c *Config) Validate() error {
	if _, err := ParseChainConfig(c.Chain.String()); err != nil {
		return err
	}
	if c.EthereumRpcConfig.BaseUrl == "" {
		return fmt.Errorf("%s is required", EthereumRpcUrl)
	}
	if !common.IsHexAddress(c.StakingConfig.ContractAddress) {
		return fmt.Errorf("%s '%s' is not a valid address", StakingContractAddress, c.StakingConfig.ContractAddress)
	}
	if c.StakingConfig.BatchSize == 0 {
		return fmt.Errorf("%s must be greater than 0", StakingBatchSize)
	}
	if c.StakingConfig.MaxStakeIndex == 0 {
		return fmt.Errorf("%s must be greater than 0", StakingMaxStakeIndex)
	}
	end, latest, err := c.StakingConfig.ParseEndBlock()
	if err != nil {
		return err
	}
	if !latest && end < c.StakingConfig.StartBlock {
		return fmt.Errorf("%s (%d) is before %s (%d)", StakingEndBlock, end, StakingStartBlock, c.StakingConfig.StartBlock)
	}
	if c.DataDogConfig.StatsdConfig.Enabled && c.DataDogConfig.StatsdConfig.Url == "" {
		return fmt.Errorf("%s is required when statsd is enabled", DataDogStatsdUrl)
	}
	return nil
}

func StringWithDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
