package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/highbeam/pulseboard/internal/config"
	"github.com/highbeam/pulseboard/internal/daemon"
	"github.com/highbeam/pulseboard/internal/domain"
	"github.com/highbeam/pulseboard/internal/ipc"
	"github.com/highbeam/pulseboard/internal/logging"
	"github.com/highbeam/pulseboard/internal/report"
	"github.com/highbeam/pulseboard/internal/rules"
	"github.com/highbeam/pulseboard/internal/snapshot"
	"github.com/highbeam/pulseboard/internal/source"
	"github.com/highbeam/pulseboard/internal/store"
)

// cfg is loaded once by the root command before any subcommand runs.
var cfg *config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:           "pulseboard",
		Short:         "Project-management analytics from dashboard snapshots",
		Long:          "pulseboard imports project, task and people data from the dashboard and turns it into distributions, rankings, trends and PDF reports.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(config.ConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return logging.Init(logging.Options{System: "pulseboard", Level: cfg.LogLevel, File: cfg.LogFile})
		},
	}

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(exportPDFCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(stopCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(pingCmd())
	rootCmd.AddCommand(refreshCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func importCmd() *cobra.Command {
	var fromPostgres bool

	cmd := &cobra.Command{
		Use:   "import [snapshot.json]",
		Short: "Import a snapshot into the local store",
		Long: `Import dashboard data into the local store, replacing what was there.

With no argument the newest file in the snapshot directory is used.
With --postgres the data is read from DATABASE_URL instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.EnsureDataDir(); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}

			var (
				snap domain.Snapshot
				src  string
				err  error
			)
			if fromPostgres {
				snap, src, err = loadPostgres(cmd.Context())
			} else {
				snap, src, err = loadFile(args)
			}
			if err != nil {
				return err
			}

			s, err := store.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			run, err := s.ReplaceSnapshot(snap, src, time.Now())
			if err != nil {
				return err
			}

			fmt.Printf("imported %d projects, %d tasks, %d employees from %s (run %s)\n",
				run.Counts.Projects, run.Counts.Tasks, run.Counts.Employees, run.Source, run.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromPostgres, "postgres", false, "Read from the dashboard database at DATABASE_URL")

	return cmd
}

func loadFile(args []string) (domain.Snapshot, string, error) {
	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		found, err := snapshot.Discover(cfg.SnapshotDir)
		if err != nil {
			return domain.Snapshot{}, "", err
		}
		path = found
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	snap, err := snapshot.NewParser(logging.Component("snapshot")).ParseFile(path)
	if err != nil {
		return domain.Snapshot{}, "", err
	}
	return snap, "file://" + path, nil
}

func loadPostgres(ctx context.Context) (domain.Snapshot, string, error) {
	if cfg.DatabaseURL == "" {
		return domain.Snapshot{}, "", fmt.Errorf("DATABASE_URL is not set")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	pg, err := source.NewPostgres(ctx, cfg.DatabaseURL, 2)
	if err != nil {
		return domain.Snapshot{}, "", err
	}
	defer pg.Close()

	snap, err := pg.Load(ctx)
	if err != nil {
		return domain.Snapshot{}, "", err
	}
	return snap, pg.Name(), nil
}

// reportFlags are shared by report and export-pdf.
type reportFlags struct {
	window, start, end, dateField string
	team, project, assignee       string
	priority, status, now         string
	top, atRiskCap, minSample     int
	days                          int
	dbPath                        string
}

func (f *reportFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.window, "window", "", "Reporting window: week, month, quarter, all")
	fl.StringVar(&f.start, "start", "", "Custom range start (YYYY-MM-DD)")
	fl.StringVar(&f.end, "end", "", "Custom range end (YYYY-MM-DD)")
	fl.StringVar(&f.dateField, "date-field", "", "Task date the window applies to: created_at or due_date")
	fl.StringVar(&f.team, "team", "", "Team id")
	fl.StringVar(&f.project, "project", "", "Project id")
	fl.StringVar(&f.assignee, "assignee", "", "Assignee (employee) id")
	fl.StringVar(&f.priority, "priority", "", "Priority 1-4")
	fl.StringVar(&f.status, "status", "", "Comma-separated task statuses")
	fl.StringVar(&f.now, "now", "", "Reference time (RFC 3339), defaults to now")
	fl.IntVar(&f.top, "top", 0, "Rows per ranking")
	fl.IntVar(&f.atRiskCap, "at-risk-cap", 0, "Maximum at-risk projects listed")
	fl.IntVar(&f.minSample, "min-sample", 0, "Minimum assigned tasks to be ranked")
	fl.IntVar(&f.days, "days", 0, "Days in the trend series")
	fl.StringVar(&f.dbPath, "db", "", "Path to the store (defaults to config)")
}

// args returns the flags the user set, keyed for report.ParseOptions.
func (f *reportFlags) args(cmd *cobra.Command) map[string]string {
	strs := map[string]struct {
		flag string
		val  string
	}{
		report.ArgWindow:    {"window", f.window},
		report.ArgStart:     {"start", f.start},
		report.ArgEnd:       {"end", f.end},
		report.ArgDateField: {"date-field", f.dateField},
		report.ArgTeam:      {"team", f.team},
		report.ArgProject:   {"project", f.project},
		report.ArgAssignee:  {"assignee", f.assignee},
		report.ArgPriority:  {"priority", f.priority},
		report.ArgStatus:    {"status", f.status},
		report.ArgNow:       {"now", f.now},
	}
	ints := map[string]struct {
		flag string
		val  int
	}{
		report.ArgTop:       {"top", f.top},
		report.ArgAtRiskCap: {"at-risk-cap", f.atRiskCap},
		report.ArgMinSample: {"min-sample", f.minSample},
		report.ArgDays:      {"days", f.days},
	}

	out := make(map[string]string)
	for key, s := range strs {
		if cmd.Flags().Changed(s.flag) {
			out[key] = s.val
		}
	}
	for key, i := range ints {
		if cmd.Flags().Changed(i.flag) {
			out[key] = strconv.Itoa(i.val)
		}
	}
	return out
}

// generate builds a report straight from the store; the daemon does not
// need to be running.
func (f *reportFlags) generate(cmd *cobra.Command) (*report.Report, error) {
	base, err := daemon.BaseOptions(cfg.Report)
	if err != nil {
		return nil, err
	}
	opts, err := report.ParseOptions(f.args(cmd), base, time.Now())
	if err != nil {
		return nil, err
	}

	dbPath := f.dbPath
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	return report.Generate(dbPath, opts, logging.Component("report"))
}

func reportCmd() *cobra.Command {
	var (
		flags      reportFlags
		jsonOutput bool
		viaDaemon  bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the analytics report",
		Long: `Build the analytics report from the local store and print it.

Reads the SQLite database directly unless --daemon is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				r   *report.Report
				err error
			)
			if viaDaemon {
				r = &report.Report{}
				err = ipc.NewClient(cfg.SocketPath).Report(flags.args(cmd), r)
			} else {
				r, err = flags.generate(cmd)
			}
			if err != nil {
				return fmt.Errorf("generate report: %w", err)
			}

			if jsonOutput {
				fmt.Println(report.FormatJSON(r))
			} else {
				fmt.Print(report.FormatReport(r))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&viaDaemon, "daemon", false, "Ask the running daemon instead of reading the store")

	return cmd
}

func exportPDFCmd() *cobra.Command {
	var (
		flags  reportFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "export-pdf",
		Short: "Write the analytics report as a PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := flags.generate(cmd)
			if err != nil {
				return fmt.Errorf("generate report: %w", err)
			}

			if output == "" {
				output = fmt.Sprintf("pulseboard-report-%s.pdf", r.GeneratedAt.Format("2006-01-02"))
			}
			out, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := report.WritePDF(out, r); err != nil {
				_ = out.Close()
				return fmt.Errorf("write pdf: %w", err)
			}
			if err := out.Close(); err != nil {
				return err
			}

			fmt.Printf("wrote %s\n", output)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default pulseboard-report-<date>.pdf)")

	return cmd
}

func validateCmd() *cobra.Command {
	var (
		jsonOutput bool
		dbPath     string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check stored data against the business rules",
		Long: `Check the stored snapshot against the business rules: project start
before due date, task dates inside the project's dates, and at most ` + strconv.Itoa(rules.MaxActiveTasks) + `
active tasks per assignee. Exits non-zero when violations are found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = cfg.DBPath
			}
			s, err := store.New(dbPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			snap, err := s.LoadSnapshot()
			if err != nil {
				return err
			}
			violations := rules.Audit(snap)

			if jsonOutput {
				fmt.Println(report.FormatJSON(violations))
			} else {
				fmt.Print(report.FormatViolations(violations))
			}
			if len(violations) > 0 {
				return fmt.Errorf("%d rule violation(s)", len(violations))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the store (defaults to config)")

	return cmd
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the pulseboard daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ipc.NewClient(cfg.SocketPath)
			if err := client.Ping(); err == nil {
				fmt.Println("daemon is already running")
				return nil
			}

			log := logging.Component("daemon")

			// The daemon hands itself and its store to the server once open.
			ipcServer := ipc.NewServer(nil, nil, cfg.SnapshotDir, logging.Component("ipc"))
			d, err := daemon.New(cfg, ipcServer, log)
			if err != nil {
				return err
			}

			// Start blocks until signal or error.
			return d.Start()
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the pulseboard daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ipc.NewClient(cfg.SocketPath).RequestStop(); err != nil {
				return fmt.Errorf("stop daemon: %w", err)
			}
			fmt.Println("daemon stopping")
			return nil
		},
	}
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check if daemon is alive",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ipc.NewClient(cfg.SocketPath).Ping(); err != nil {
				fmt.Println("daemon is not running")
				return err
			}
			fmt.Println("daemon is alive")
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ipc.NewClient(cfg.SocketPath).Status()
			if err != nil {
				return fmt.Errorf("daemon not running or unreachable: %w", err)
			}

			if jsonOutput {
				fmt.Println(report.FormatJSON(status))
			} else {
				fmt.Print(report.FormatStatus(status))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Ask the daemon to re-import its data source now",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := ipc.NewClient(cfg.SocketPath).Refresh()
			if err != nil {
				return fmt.Errorf("refresh: %w", err)
			}
			fmt.Printf("imported %d projects, %d tasks from %s (run %s)\n", run.Projects, run.Tasks, run.Source, run.ImportID)
			return nil
		},
	}
}
