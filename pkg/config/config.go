/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

// Package config loads the ambient tuning knobs a pararuna process runs
// with: heap size, the clear_after_main VM option, tracing, and the
// executor's heartbeat timeout. This is deliberately not the out-of-scope
// secrets/infra/registry configuration -- it's process-local tuning, read
// from a TOML file.
package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/stackedboxes/pararuna/pkg/errs"
)

// Options holds every tunable a pararuna process reads at startup.
type Options struct {
	HeapCapacity       int    `toml:"heap_capacity"`
	ClearAfterMain     bool   `toml:"clear_after_main"`
	Trace              bool   `toml:"trace"`
	HeartbeatTimeoutMs int    `toml:"heartbeat_timeout_ms"`
	ListenAddress      string `toml:"listen_address"`
}

// Default returns the Options a process runs with when no TOML file is
// given: no tracing, heap/heartbeat defaults matching pkg/heap and
// pkg/executor's own zero-value defaults.
func Default() Options {
	return Options{
		HeapCapacity:       0,
		ClearAfterMain:     true,
		Trace:              false,
		HeartbeatTimeoutMs: 0,
		ListenAddress:      "localhost:7890",
	}
}

// Load reads and parses a pararuna.toml-shaped file at path.
func Load(path string) (Options, errs.Error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, errs.NewTool("reading config file %v: %v", path, err)
	}

	opts := Default()
	if err := toml.Unmarshal(data, &opts); err != nil {
		return Options{}, errs.NewTool("parsing config file %v: %v", path, err)
	}
	return opts, nil
}

// HeartbeatTimeout converts HeartbeatTimeoutMs to a time.Duration, falling
// back to executor.DefaultHeartbeatTimeout's value (10s) when unset. Kept as
// a plain int in Options since that's what TOML round-trips cleanly.
func (o Options) HeartbeatTimeout() time.Duration {
	if o.HeartbeatTimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(o.HeartbeatTimeoutMs) * time.Millisecond
}
