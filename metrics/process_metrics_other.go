// Copyright (c) 2026 The pathsync developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

//go:build !linux

package metrics

// registerProcessCollectors is a no-op off Linux: /proc/self/io, the
// only source the process collectors read, does not exist elsewhere.
func registerProcessCollectors() {}
