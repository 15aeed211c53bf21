package main

import (
	"fmt"
	"time"

	"github.com/haraujo/libraryapi/internal/jsonlog"
)

// sweepOverdueLoans periodically enumerates overdue loans and triggers
// reminder emails for each one. It runs for the lifetime of the process.
func (a *app) sweepOverdueLoans(logger *jsonlog.Logger) {
	interval, err := time.ParseDuration(a.config.Loans.SweepInterval)
	if err != nil {
		logger.PrintError(err, map[string]string{
			"sweep_interval": a.config.Loans.SweepInterval,
		})
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		notified, err := a.service.NotifyLateLoans()
		if err != nil {
			logger.PrintError(err, nil)
			continue
		}
		if notified > 0 {
			logger.PrintInfo("overdue loan reminders dispatched", map[string]string{
				"count": fmt.Sprintf("%d", notified),
			})
		}
	}
}
