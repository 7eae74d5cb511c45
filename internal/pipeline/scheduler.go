// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Start launches the periodic run loop in the background. The first run
// fires immediately, then on every tick. Stop (or cancelling ctx) halts
// the loop; an in-flight run finishes first.
func (o *Orchestrator) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRunInterval
	}

	ctx, o.cancel = context.WithCancel(ctx)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		slog.Info("intake scheduler started", "interval", interval)

		o.runLogged(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("intake scheduler stopped")
				return
			case <-ticker.C:
				o.runLogged(ctx)
			}
		}
	}()
}

// Stop halts the scheduler and waits for any in-flight run to finish.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

func (o *Orchestrator) runLogged(ctx context.Context) {
	if err := o.Run(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) || errors.Is(err, context.Canceled) {
			return
		}
		slog.Error("scheduled intake run failed", "error", err)
	}
}
