/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package executor

import (
	"context"
	"time"
)

// Watchdog periodically scans a JobTable and fails any job that has gone
// quiet for longer than its timeout.
type Watchdog struct {
	table    *JobTable
	timeout  time.Duration
	interval time.Duration
}

// NewWatchdog creates a Watchdog checking table every interval, declaring a
// job Failed once it's gone silent for timeout.
func NewWatchdog(table *JobTable, timeout, interval time.Duration) *Watchdog {
	return &Watchdog{table: table, timeout: timeout, interval: interval}
}

// Run scans on a ticker until ctx is cancelled. Meant to be run in its own
// goroutine, one per process (it walks every shard of the table, not just
// one session's jobs).
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, jobID := range w.table.Stale(w.timeout) {
				w.table.MarkFailed(jobID)
			}
		}
	}
}
