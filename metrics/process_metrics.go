// Copyright (c) 2026 The pathsync developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

//go:build linux

package metrics

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// ioStats is a snapshot of /proc/self/io, the kernel's per-process I/O
// syscall and byte accounting.
type ioStats struct {
	readSyscalls  int64
	writeSyscalls int64
	readBytes     int64
	writeBytes    int64
}

// IOCollector is a prometheus.Collector sourcing process-level I/O
// counters from /proc/self/io, the dominant resource a sync node
// burns. CPU/memory collectors are left to the process supervisor.
type IOCollector struct {
	readSyscalls  *prometheus.Desc
	writeSyscalls *prometheus.Desc
	readBytes     *prometheus.Desc
	writeBytes    *prometheus.Desc
}

// NewIOCollector constructs a ready-to-register IOCollector.
func NewIOCollector() *IOCollector {
	return &IOCollector{
		readSyscalls:  prometheus.NewDesc(namespace+"_process_read_syscalls_total", "Number of read syscalls issued by this process.", nil, nil),
		writeSyscalls: prometheus.NewDesc(namespace+"_process_write_syscalls_total", "Number of write syscalls issued by this process.", nil, nil),
		readBytes:     prometheus.NewDesc(namespace+"_process_read_bytes_total", "Bytes read from storage by this process.", nil, nil),
		writeBytes:    prometheus.NewDesc(namespace+"_process_write_bytes_total", "Bytes written to storage by this process.", nil, nil),
	}
}

func (c *IOCollector) getIOStats() (*ioStats, error) {
	f, err := os.Open("/proc/self/io")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stats := &ioStats{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		val, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
		if err != nil {
			continue
		}
		switch strings.TrimSpace(key) {
		case "syscr":
			stats.readSyscalls = val
		case "syscw":
			stats.writeSyscalls = val
		case "read_bytes":
			stats.readBytes = val
		case "write_bytes":
			stats.writeBytes = val
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

// Describe implements prometheus.Collector.
func (c *IOCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.readSyscalls
	ch <- c.writeSyscalls
	ch <- c.readBytes
	ch <- c.writeBytes
}

// Collect implements prometheus.Collector. A failure to read
// /proc/self/io (e.g. the file is gone mid-shutdown) yields no samples
// for this scrape rather than an error: process I/O stats are
// best-effort telemetry, never load-bearing for correctness.
func (c *IOCollector) Collect(ch chan<- prometheus.Metric) {
	stats, err := c.getIOStats()
	if err != nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.readSyscalls, prometheus.CounterValue, float64(stats.readSyscalls))
	ch <- prometheus.MustNewConstMetric(c.writeSyscalls, prometheus.CounterValue, float64(stats.writeSyscalls))
	ch <- prometheus.MustNewConstMetric(c.readBytes, prometheus.CounterValue, float64(stats.readBytes))
	ch <- prometheus.MustNewConstMetric(c.writeBytes, prometheus.CounterValue, float64(stats.writeBytes))
}

// ProcessCollector is the process-telemetry collector that
// InitializePrometheusMetrics registers (via registerProcessCollectors).
// It wraps IOCollector alone.
type ProcessCollector struct {
	*IOCollector
}

// NewProcessCollector constructs a ready-to-register ProcessCollector.
func NewProcessCollector() *ProcessCollector {
	return &ProcessCollector{IOCollector: NewIOCollector()}
}

// registerProcessCollectors hooks the process-telemetry collectors into
// the default registry when the prometheus backend is initialized.
func registerProcessCollectors() {
	prometheus.MustRegister(NewProcessCollector())
}
