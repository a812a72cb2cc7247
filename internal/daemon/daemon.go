// Package daemon runs the background process that keeps the local store in
// sync with the dashboard and answers report requests over IPC.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/highbeam/pulseboard/internal/config"
	"github.com/highbeam/pulseboard/internal/domain"
	"github.com/highbeam/pulseboard/internal/filter"
	"github.com/highbeam/pulseboard/internal/ipc"
	"github.com/highbeam/pulseboard/internal/report"
	"github.com/highbeam/pulseboard/internal/snapshot"
	"github.com/highbeam/pulseboard/internal/source"
	"github.com/highbeam/pulseboard/internal/store"
	"github.com/highbeam/pulseboard/internal/watcher"
)

// IPCServer is the interface the daemon uses to start/stop the IPC listener.
type IPCServer interface {
	Listen(ctx context.Context, socketPath string) error
	Stop() error
}

// StoreAware can receive the store after the daemon opens it.
type StoreAware interface {
	SetStore(s ipc.StoreQuerier)
}

// DaemonAware can receive the daemon itself.
type DaemonAware interface {
	SetDaemon(d ipc.DaemonQuerier)
}

// postgresMaxConns bounds the pool used for periodic imports.
const postgresMaxConns = 4

// Daemon manages the lifecycle of the pulseboard background process.
type Daemon struct {
	cfg     *config.Config
	log     logrus.FieldLogger
	store   *store.Store
	ipc     IPCServer
	watcher *watcher.Watcher
	pg      *source.Postgres

	parser  *snapshot.Parser
	builder *report.Builder
	base    report.Options

	// importMu serialises imports from the watcher, the poller and IPC,
	// and keeps report reads from seeing a half-replaced snapshot.
	importMu sync.Mutex

	startTime time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	running   bool
}

// New creates a Daemon. The IPC server is injected to avoid circular imports.
func New(cfg *config.Config, ipcServer IPCServer, log logrus.FieldLogger) (*Daemon, error) {
	base, err := BaseOptions(cfg.Report)
	if err != nil {
		return nil, err
	}
	return &Daemon{
		cfg:     cfg,
		log:     log,
		ipc:     ipcServer,
		parser:  snapshot.NewParser(log.WithField("component", "snapshot")),
		builder: report.NewBuilder(log.WithField("component", "report")),
		base:    base,
	}, nil
}

// BaseOptions converts configured report defaults into report options.
func BaseOptions(d config.ReportDefaults) (report.Options, error) {
	w, err := filter.ParseWindow(d.Window)
	if err != nil {
		return report.Options{}, err
	}
	if w == filter.WindowCustom {
		return report.Options{}, fmt.Errorf("custom window cannot be a default")
	}
	return report.Options{
		Window:     w,
		TopN:       d.TopN,
		AtRiskCap:  d.AtRiskCap,
		MinSample:  d.MinSample,
		SeriesDays: d.SeriesDays,
	}, nil
}

// Start opens the store, starts the IPC server, the snapshot watcher and
// the optional Postgres poller, and blocks until the context is cancelled
// (via signal or Stop).
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.mu.Unlock()

	if err := d.cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	s, err := store.New(d.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	d.store = s

	if sa, ok := d.ipc.(StoreAware); ok {
		sa.SetStore(s)
	}
	if da, ok := d.ipc.(DaemonAware); ok {
		da.SetDaemon(d)
	}

	ctx, cancel := signalContext(context.Background())

	// The source is settled before the listener can accept a refresh.
	var pg *source.Postgres
	if d.cfg.DatabaseURL != "" {
		pg, err = source.NewPostgres(ctx, d.cfg.DatabaseURL, postgresMaxConns)
		if err != nil {
			d.log.WithError(err).Warn("postgres source disabled")
			pg = nil
		}
	}

	d.mu.Lock()
	d.ctx = ctx
	d.cancel = cancel
	d.pg = pg
	d.startTime = time.Now()
	d.running = true
	d.mu.Unlock()

	if pg != nil {
		go d.poll(ctx, pg)
	}

	ipcErrCh := make(chan error, 1)
	go func() {
		ipcErrCh <- d.ipc.Listen(ctx, d.cfg.SocketPath)
	}()

	// Bring the store up to date before the first report request.
	if run, err := d.Refresh(); err != nil {
		if errors.Is(err, snapshot.ErrNoSnapshot) {
			d.log.WithField("dir", d.cfg.SnapshotDir).Info("no snapshot to import yet")
		} else {
			d.log.WithError(err).Warn("initial import failed")
		}
	} else {
		d.log.WithField("import", run.ImportID).Info("initial import complete")
	}

	d.watcher = watcher.New(d.cfg.SnapshotDir, d.cfg.IgnorePatterns, d.onSnapshotEvent, d.log.WithField("component", "watcher"))
	go func() {
		if err := d.watcher.Start(ctx); err != nil {
			d.log.WithError(err).Error("watcher stopped")
		}
	}()

	d.log.WithFields(logrus.Fields{
		"pid":    os.Getpid(),
		"db":     d.cfg.DBPath,
		"socket": d.cfg.SocketPath,
	}).Info("daemon started")

	select {
	case <-ctx.Done():
		d.log.Info("shutdown signal received")
	case err := <-ipcErrCh:
		if err != nil {
			d.log.WithError(err).Error("IPC server error")
		}
	}

	return d.shutdown()
}

// Stop triggers a graceful shutdown from outside (e.g. via IPC stop command).
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
}

// shutdown performs ordered teardown: watcher, poller, IPC server, then store.
func (d *Daemon) shutdown() error {
	d.log.Info("shutting down")

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()

	// Drains pending debounced events, which may import one last time.
	if d.watcher != nil {
		d.watcher.Stop()
	}

	if d.ipc != nil {
		if err := d.ipc.Stop(); err != nil {
			d.log.WithError(err).Warn("ipc stop")
		}
	}

	d.importMu.Lock()
	if d.pg != nil {
		d.pg.Close()
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.log.WithError(err).Warn("store close")
		}
	}
	d.importMu.Unlock()

	_ = os.Remove(d.cfg.SocketPath)

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()

	d.log.Info("daemon stopped")
	return nil
}

// Running returns true if the daemon is currently running.
func (d *Daemon) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Store returns the daemon's data store.
func (d *Daemon) Store() *store.Store {
	return d.store
}

// Uptime returns how long the daemon has been running.
func (d *Daemon) Uptime() time.Duration {
	d.mu.Lock()
	start := d.startTime
	d.mu.Unlock()
	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}

// Config returns the daemon's configuration.
func (d *Daemon) Config() *config.Config {
	return d.cfg
}

// Report builds a report from the stored snapshot using args as
// overrides of the configured defaults.
func (d *Daemon) Report(args map[string]string) (interface{}, error) {
	opts, err := report.ParseOptions(args, d.base, time.Now())
	if err != nil {
		return nil, err
	}

	// Reads must not interleave with a snapshot replacement.
	d.importMu.Lock()
	defer d.importMu.Unlock()
	return report.GenerateFromStore(d.store, d.builder, opts)
}

// Refresh re-imports from Postgres when configured, otherwise from the
// newest file in the snapshot directory.
func (d *Daemon) Refresh() (*ipc.RefreshData, error) {
	if pg, ctx := d.postgres(); pg != nil {
		return d.importPostgres(ctx, pg)
	}
	path, err := snapshot.Discover(d.cfg.SnapshotDir)
	if err != nil {
		return nil, err
	}
	return d.importFile(path)
}

// postgres returns the configured source, if any, and the daemon context.
func (d *Daemon) postgres() (*source.Postgres, context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return d.pg, ctx
}

func (d *Daemon) onSnapshotEvent(e watcher.Event) {
	if !e.Importable() {
		d.log.WithFields(logrus.Fields{"path": e.Path, "type": e.Type}).Debug("snapshot removed, keeping stored data")
		return
	}
	run, err := d.importFile(e.Path)
	if err != nil {
		d.log.WithError(err).WithField("path", e.Path).Warn("snapshot import failed")
		return
	}
	d.log.WithFields(logrus.Fields{"path": e.Path, "import": run.ImportID, "tasks": run.Tasks}).Info("snapshot imported")
}

func (d *Daemon) importFile(path string) (*ipc.RefreshData, error) {
	snap, err := d.parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return d.replace(snap, "file://"+path)
}

func (d *Daemon) importPostgres(ctx context.Context, pg *source.Postgres) (*ipc.RefreshData, error) {
	snap, err := pg.Load(ctx)
	if err != nil {
		return nil, err
	}
	return d.replace(snap, pg.Name())
}

func (d *Daemon) replace(snap domain.Snapshot, src string) (*ipc.RefreshData, error) {
	d.importMu.Lock()
	defer d.importMu.Unlock()

	run, err := d.store.ReplaceSnapshot(snap, src, time.Now())
	if err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}
	return &ipc.RefreshData{
		ImportID: run.ID,
		Source:   run.Source,
		Projects: run.Counts.Projects,
		Tasks:    run.Counts.Tasks,
	}, nil
}

// poll re-imports from Postgres on the configured interval.
func (d *Daemon) poll(ctx context.Context, pg *source.Postgres) {
	interval, err := d.cfg.Refresh()
	if err != nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run, err := d.importPostgres(ctx, pg)
			if err != nil {
				d.log.WithError(err).Warn("postgres import failed")
				continue
			}
			d.log.WithFields(logrus.Fields{"import": run.ImportID, "tasks": run.Tasks}).Debug("postgres import complete")
		}
	}
}
