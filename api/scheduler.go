/*
scheduler.go - Automated spreadsheet backups

PURPOSE:
  Periodically exports the stock report for every committed record to a
  backup directory, so the data survives outside the database.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Runs once immediately on start
  - Skips the export while there are no records
  - File names carry a timestamp prefix so earlier backups are kept

CONFIGURATION:
  - Interval: How often to export (backup.interval, default 24h)
  - Dir:      Target directory (backup.dir, created on demand)
  - Enabled:  Whether the scheduler is active (backup.enabled)

USAGE:
  scheduler := NewBackupScheduler(ledger, cfg.Backup.Dir, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunBackup endpoint (manual backup), GetBackupStatus
  - spreadsheet/report.go: WriteStockReport
*/
package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/stock-engine/spreadsheet"
	"github.com/warp/stock-engine/stock"
)

// BackupScheduler handles periodic report backups.
type BackupScheduler struct {
	Ledger   *stock.Ledger
	Dir      string
	Interval time.Duration
	Enabled  bool

	logger *zap.Logger
	now    func() time.Time
	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex

	runMu   sync.Mutex
	lastRun time.Time
	nextRun time.Time
}

// NewBackupScheduler creates an enabled scheduler with a daily interval.
func NewBackupScheduler(ledger *stock.Ledger, dir string, logger *zap.Logger) *BackupScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupScheduler{
		Ledger:   ledger,
		Dir:      dir,
		Interval: 24 * time.Hour,
		Enabled:  true,
		logger:   logger,
		now:      time.Now,
	}
}

// Start begins the scheduler.
func (bs *BackupScheduler) Start() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if !bs.Enabled {
		bs.logger.Info("backup scheduler disabled, not starting")
		return
	}
	if bs.ticker != nil {
		return
	}

	bs.ticker = time.NewTicker(bs.Interval)
	bs.stop = make(chan bool)
	bs.setNextRun(bs.now().Add(bs.Interval))
	bs.wg.Add(1)

	go bs.run(bs.ticker, bs.stop)

	bs.logger.Info("backup scheduler started",
		zap.Duration("interval", bs.Interval),
		zap.String("dir", bs.Dir),
	)
}

// Stop stops the scheduler and waits for a running backup to finish.
func (bs *BackupScheduler) Stop() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.ticker != nil {
		bs.ticker.Stop()
		close(bs.stop)
		bs.wg.Wait()
		bs.ticker = nil
		bs.setNextRun(time.Time{})
		bs.logger.Info("backup scheduler stopped")
	}
}

func (bs *BackupScheduler) run(ticker *time.Ticker, stop <-chan bool) {
	defer bs.wg.Done()

	// Run immediately on start
	bs.RunNow()

	for {
		select {
		case t := <-ticker.C:
			bs.setNextRun(t.Add(bs.Interval))
			bs.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow triggers an immediate backup and logs the outcome.
func (bs *BackupScheduler) RunNow() {
	if _, err := bs.Backup(context.Background()); err != nil {
		bs.logger.Error("backup failed", zap.Error(err))
	}
}

// LastRun returns the time of the last successful backup.
func (bs *BackupScheduler) LastRun() time.Time {
	bs.runMu.Lock()
	defer bs.runMu.Unlock()
	return bs.lastRun
}

// NextRun returns when the next scheduled backup will run. It is zero while
// the scheduler is stopped.
func (bs *BackupScheduler) NextRun() time.Time {
	bs.runMu.Lock()
	defer bs.runMu.Unlock()
	return bs.nextRun
}

func (bs *BackupScheduler) setNextRun(t time.Time) {
	bs.runMu.Lock()
	defer bs.runMu.Unlock()
	bs.nextRun = t
}

// Running reports whether the scheduler has been started and not stopped.
func (bs *BackupScheduler) Running() bool {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.ticker != nil
}

// Backup writes the full-period stock report to Dir and returns its path.
// With no records it writes nothing and returns an empty path.
func (bs *BackupScheduler) Backup(ctx context.Context) (string, error) {
	period, ok, err := bs.Ledger.FullPeriod(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		bs.logger.Info("backup skipped, no records")
		return "", nil
	}
	sheet, err := bs.Ledger.Sheet(ctx, period)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(bs.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	now := bs.now()
	path := filepath.Join(bs.Dir, now.Format("20060102-150405")+"_"+spreadsheet.ReportFileName(period))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	if err := spreadsheet.WriteStockReport(f, sheet); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close backup file: %w", err)
	}

	bs.runMu.Lock()
	bs.lastRun = now
	bs.runMu.Unlock()

	bs.logger.Info("backup written",
		zap.String("file", path),
		zap.String("period", period.String()),
		zap.Int("articles", len(sheet.Rows)),
	)
	return path, nil
}
