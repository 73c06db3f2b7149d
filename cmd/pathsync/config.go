package main

import (
	"os"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"
)

// fileConfig is the optional on-disk config file shape: every field maps
// to a flag of the same purpose, and an explicit flag on the command
// line always overrides the file's value (see resolveConfig).
type fileConfig struct {
	DataDir        string `yaml:"data_dir"`
	Cache          int    `yaml:"cache"`
	L1RPCURL       string `yaml:"l1_rpc_url"`
	L1CoreContract string `yaml:"l1_core_contract"`
	L1StartBlock   int    `yaml:"l1_start_block"`
	SequencerURL   string `yaml:"sequencer_url"`
	PollInterval   int    `yaml:"poll_interval"`
	MetricsAddr    string `yaml:"metrics_addr"`
	Verbosity      int    `yaml:"verbosity"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	if path == "" {
		return &fileConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config file %s", path)
	}
	return &cfg, nil
}

// config is the fully resolved set of runtime parameters: the file
// config's values, each overridden by an explicitly-set flag of the same
// name, per urfave/cli.v1's IsSet.
type config struct {
	dataDir        string
	cache          int
	l1RPCURL       string
	l1CoreContract string
	l1StartBlock   uint64
	sequencerURL   string
	pollInterval   int
	metricsAddr    string
	verbosity      int
}

func resolveConfig(ctx *cli.Context) (*config, error) {
	file, err := loadFileConfig(ctx.String(configFlag.Name))
	if err != nil {
		return nil, err
	}

	cfg := &config{
		dataDir:        file.DataDir,
		cache:          file.Cache,
		l1RPCURL:       file.L1RPCURL,
		l1CoreContract: file.L1CoreContract,
		l1StartBlock:   uint64(file.L1StartBlock),
		sequencerURL:   file.SequencerURL,
		pollInterval:   file.PollInterval,
		metricsAddr:    file.MetricsAddr,
		verbosity:      file.Verbosity,
	}

	if ctx.IsSet(dataDirFlag.Name) || cfg.dataDir == "" {
		cfg.dataDir = ctx.String(dataDirFlag.Name)
	}
	if ctx.IsSet(cacheFlag.Name) || cfg.cache == 0 {
		cfg.cache = ctx.Int(cacheFlag.Name)
	}
	if ctx.IsSet(l1RPCFlag.Name) || cfg.l1RPCURL == "" {
		cfg.l1RPCURL = ctx.String(l1RPCFlag.Name)
	}
	if ctx.IsSet(l1ContractFlag.Name) || cfg.l1CoreContract == "" {
		cfg.l1CoreContract = ctx.String(l1ContractFlag.Name)
	}
	if ctx.IsSet(l1StartBlockFlag.Name) || cfg.l1StartBlock == 0 {
		cfg.l1StartBlock = uint64(ctx.Int(l1StartBlockFlag.Name))
	}
	if ctx.IsSet(sequencerURLFlag.Name) || cfg.sequencerURL == "" {
		cfg.sequencerURL = ctx.String(sequencerURLFlag.Name)
	}
	if ctx.IsSet(pollIntervalFlag.Name) || cfg.pollInterval == 0 {
		cfg.pollInterval = ctx.Int(pollIntervalFlag.Name)
	}
	if ctx.IsSet(metricsAddrFlag.Name) || cfg.metricsAddr == "" {
		cfg.metricsAddr = ctx.String(metricsAddrFlag.Name)
	}
	if ctx.IsSet(verbosityFlag.Name) || cfg.verbosity == 0 {
		cfg.verbosity = ctx.Int(verbosityFlag.Name)
	}

	if cfg.l1RPCURL == "" {
		return nil, errors.New("l1-rpc-url is required (flag or config file)")
	}
	if cfg.l1CoreContract == "" {
		return nil, errors.New("l1-core-contract is required (flag or config file)")
	}
	if cfg.sequencerURL == "" {
		return nil, errors.New("sequencer-url is required (flag or config file)")
	}

	return cfg, nil
}
