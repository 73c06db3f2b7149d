// Command pathsync runs the L1-anchored StarkNet state synchronization
// driver (package sync) as a standalone node process: a urfave/cli.v1
// App with typed flags, an optional YAML config file, and the sync loop
// run as a stoppable background goroutine via package co.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethlog "github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/nexusstark/pathsync/co"
	"github.com/nexusstark/pathsync/feeder"
	"github.com/nexusstark/pathsync/l1feed"
	"github.com/nexusstark/pathsync/lvldb"
	"github.com/nexusstark/pathsync/metrics"
	"github.com/nexusstark/pathsync/nodestore"
	pathsync "github.com/nexusstark/pathsync/sync"
)

var log = ethlog.New("pkg", "main")

func main() {
	app := cli.App{
		Name:    "pathsync",
		Usage:   "L1-anchored StarkNet state synchronization node",
		Version: "0.1.0",
		Flags: []cli.Flag{
			configFlag,
			dataDirFlag,
			cacheFlag,
			l1RPCFlag,
			l1ContractFlag,
			l1StartBlockFlag,
			sequencerURLFlag,
			pollIntervalFlag,
			metricsAddrFlag,
			verbosityFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func initLogger(verbosity int) {
	handler := ethlog.NewTerminalHandlerWithLevel(os.Stderr, ethlog.FromLegacyLevel(verbosity), true)
	ethlog.SetDefault(ethlog.NewLogger(handler))
}

func defaultAction(ctx *cli.Context) error {
	cfg, err := resolveConfig(ctx)
	if err != nil {
		return err
	}
	initLogger(cfg.verbosity)

	if err := os.MkdirAll(cfg.dataDir, 0700); err != nil {
		return errors.Wrapf(err, "create data dir %s", cfg.dataDir)
	}

	if cfg.metricsAddr != "" {
		metrics.InitializePrometheusMetrics()
		startMetricsServer(cfg.metricsAddr)
	}

	bgCtx := context.Background()

	coreAddr := common.HexToAddress(cfg.l1CoreContract)
	l1, err := l1feed.Dial(bgCtx, cfg.l1RPCURL, coreAddr, cfg.l1StartBlock)
	if err != nil {
		return errors.Wrap(err, "connect to L1 RPC")
	}
	defer l1.Close()

	seq := feeder.New(cfg.sequencerURL)

	dbPath := filepath.Join(cfg.dataDir, "pathsync.db")
	driver, err := pathsync.New(bgCtx, dbPath, l1, seq, seq, pathsync.Options{
		DB: lvldb.Options{
			CacheSizeMB:       cfg.cache / 2,
			OpenFilesCacheCap: 500,
		},
		NodeStore: nodestore.Options{
			DirectCacheSizeMB: cfg.cache / 2,
		},
	})
	if err != nil {
		return errors.Wrapf(err, "open driver at %s", dbPath)
	}
	defer driver.Close()

	exitSignal := handleExitSignal()

	runner := co.NewChoes()
	runner.Go(func(stopChan chan struct{}) {
		ticker := time.NewTicker(time.Duration(cfg.pollInterval) * time.Second)
		defer ticker.Stop()

		for {
			if err := driver.Sync(bgCtx); err != nil {
				log.Error("sync halted", "err", err, "root", driver.GlobalRoot().String())
			}
			select {
			case <-ticker.C:
				continue
			case <-stopChan:
				return
			}
		}
	})

	<-exitSignal
	log.Info("received exit signal, shutting down")
	runner.Stop()
	runner.Wait()
	return nil
}

func handleExitSignal() chan struct{} {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		<-sigCh
		close(done)
	}()
	return done
}

func startMetricsServer(addr string) {
	srv := &http.Server{Addr: addr, Handler: metrics.HTTPHandler()}
	var goes co.Goes
	goes.Go(func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics server stopped", "err", err)
		}
	})
	log.Info("serving prometheus metrics", "addr", addr)
}
