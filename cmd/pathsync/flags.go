package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a YAML config file (flags override its values)",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for the node-store and state-table databases",
	}
	cacheFlag = cli.IntFlag{
		Name:  "cache",
		Value: 1024,
		Usage: "megabytes of ram for caches, split evenly between the leveldb block cache and the off-heap trie node cache",
	}
	l1RPCFlag = cli.StringFlag{
		Name:  "l1-rpc-url",
		Usage: "L1 JSON-RPC endpoint the log fetcher polls",
	}
	l1ContractFlag = cli.StringFlag{
		Name:  "l1-core-contract",
		Usage: "address of the L1 core contract emitting state-update logs",
	}
	l1StartBlockFlag = cli.IntFlag{
		Name:  "l1-start-block",
		Usage: "L1 block number to start polling from when no state is persisted yet",
	}
	sequencerURLFlag = cli.StringFlag{
		Name:  "sequencer-url",
		Usage: "sequencer feeder-gateway base URL",
	}
	pollIntervalFlag = cli.IntFlag{
		Name:  "poll-interval",
		Value: 10,
		Usage: "seconds between Sync passes once the fetcher reports no further logs",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "address to serve Prometheus metrics on (disabled if empty)",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-5, see go-ethereum/log levels)",
	}
)
