/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pararuna.toml")
	contents := "heap_capacity = 1024\ntrace = true\nheartbeat_timeout_ms = 20000\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	opts, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if opts.HeapCapacity != 1024 {
		t.Errorf("expected heap_capacity 1024, got %v", opts.HeapCapacity)
	}
	if !opts.Trace {
		t.Errorf("expected trace true")
	}
	if !opts.ClearAfterMain {
		t.Errorf("expected clear_after_main to keep its default of true")
	}
	if opts.HeartbeatTimeout() != 20*time.Second {
		t.Errorf("expected heartbeat timeout 20s, got %v", opts.HeartbeatTimeout())
	}
}

func TestDefaultHeartbeatTimeoutFallback(t *testing.T) {
	opts := Default()
	if opts.HeartbeatTimeout() != 10*time.Second {
		t.Errorf("expected fallback heartbeat timeout 10s, got %v", opts.HeartbeatTimeout())
	}
}
