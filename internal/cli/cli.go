// ============================================================================
// Trireme CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: one cobra subcommand per action verb, sharing a set of
//   persistent connection/runtime flags.
//
// Command Structure:
//   trireme                          # Root command
//   ├── count-rows                   # select count(*), sum across splits
//   ├── print-rows                   # select *, print every row
//   ├── delete-rows                  # select then delete, with confirm
//   ├── update-rows                  # select then update, with confirm
//   ├── find-nulls                   # select key, value; report NULL values
//   └── find-wide-partitions         # recursive count-per-split narrowing
//
// Configuration Management:
//   --config loads a YAML document of flag defaults (internal/config);
//   any flag set explicitly on the command line still wins.
//
// ============================================================================
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fxlv/trireme/internal/action"
	"github.com/fxlv/trireme/internal/audit"
	"github.com/fxlv/trireme/internal/confirm"
	"github.com/fxlv/trireme/internal/config"
	"github.com/fxlv/trireme/internal/metrics"
	"github.com/fxlv/trireme/internal/pipeline"
	"github.com/fxlv/trireme/internal/progress"
	"github.com/fxlv/trireme/internal/session"
	"github.com/fxlv/trireme/internal/supervisor"
	"github.com/fxlv/trireme/internal/worker"
	"github.com/fxlv/trireme/pkg/tokenring"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// flags collects every persistent flag value shared by the action
// subcommands.
type flags struct {
	extraKey     string
	updateKey    string
	updateValue  string
	valueColumn  string
	filterString string
	split        int
	workers      int
	port         int
	user         string
	password     string
	datacenter   string
	sslCACert    string
	sslCert      string
	sslKey       string
	sslUseTLSv1  bool
	debug        bool
	minToken     int64
	maxToken     int64

	configFile   string
	metricsPort  int
	progressFile string
	auditFile    string
	minExponent  int

	// workerMaxStartupDelay overrides the default jitter bound
	// (workers*2 seconds when workers > 10) when set via --config;
	// there is no corresponding CLI flag.
	workerMaxStartupDelay time.Duration
}

// ErrDeclined is returned when an interactive confirmation prompt is
// declined. main.go maps it to exit code 1, same as a connection
// failure. A run aborted by SIGINT returns no error, so it exits 0.
var ErrDeclined = errors.New("confirmation declined")

// fail prints err to the command's error stream and returns it, so
// every RunE has one place that decides what the operator sees (root
// silences cobra's own "Error: ..." + usage dump).
func fail(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "trireme: %v\n", err)
	return err
}

// BuildCLI assembles the root command and its six action subcommands.
func BuildCLI() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "trireme",
		Short: "Trireme: parallel token-range scans and mutations for a wide-column database",
		Long: `Trireme splits a Cassandra-compatible token ring into disjoint
sub-ranges, dispatches queries for each range in parallel across many
worker sessions, and streams results to a consumer action: count,
print, delete, or update.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	registerPersistentFlags(root, f)

	root.AddCommand(buildCountCmd(f))
	root.AddCommand(buildPrintCmd(f))
	root.AddCommand(buildDeleteCmd(f))
	root.AddCommand(buildUpdateCmd(f))
	root.AddCommand(buildFindNullsCmd(f))
	root.AddCommand(buildFindWidePartitionsCmd(f))

	return root
}

func registerPersistentFlags(root *cobra.Command, f *flags) {
	pf := root.PersistentFlags()
	pf.StringVar(&f.extraKey, "extra-key", "", "secondary partition/clustering key column")
	pf.StringVar(&f.updateKey, "update-key", "", "column to set (update-rows)")
	pf.StringVar(&f.updateValue, "update-value", "", "value to set update-key to (update-rows)")
	pf.StringVar(&f.valueColumn, "value-column", "", "column checked for NULL (find-nulls)")
	pf.StringVar(&f.filterString, "filter-string", "", "extra CQL filter clause ANDed onto every query")
	pf.IntVar(&f.split, "split", 18, "split exponent: sub-range width is 10^split")
	pf.IntVar(&f.workers, "workers", 1, "number of worker sessions")
	pf.IntVar(&f.port, "port", 9042, "database port")
	pf.StringVar(&f.user, "user", "cassandra", "database username")
	pf.StringVar(&f.password, "password", "cassandra", "database password")
	pf.StringVar(&f.datacenter, "datacenter", "", "datacenter to pin host selection to")
	pf.StringVar(&f.sslCACert, "ssl-ca-cert", "", "path to CA certificate for TLS")
	pf.StringVar(&f.sslCert, "ssl-certificate", "", "path to client certificate for mTLS")
	pf.StringVar(&f.sslKey, "ssl-key", "", "path to client key for mTLS")
	pf.BoolVar(&f.sslUseTLSv1, "ssl-use-tls-v1", false, "use TLS v1.0 instead of v1.2")
	pf.BoolVar(&f.debug, "debug", false, "enable debug logging")
	pf.Int64Var(&f.minToken, "min-token", tokenring.MinToken, "lower bound of the token range to scan")
	pf.Int64Var(&f.maxToken, "max-token", tokenring.MaxToken, "upper bound of the token range to scan")

	pf.StringVar(&f.configFile, "config", "", "optional YAML file of flag defaults")
	pf.IntVar(&f.metricsPort, "metrics-port", 0, "expose Prometheus metrics on this port (0 disables)")
	pf.StringVar(&f.progressFile, "progress-file", "", "path to periodically rewrite a JSON progress snapshot")
	pf.StringVar(&f.auditFile, "audit-file", "", "path to append an audit record for every delete/update issued")
	pf.IntVar(&f.minExponent, "min-exponent", 6, "smallest split exponent find-wide-partitions narrows to")
}

// applyConfigDefaults fills in any flag the user did not set explicitly
// with the value loaded from --config, per config.File's "explicit flags
// always win" contract.
func applyConfigDefaults(cmd *cobra.Command, f *flags) error {
	if f.configFile == "" {
		return nil
	}
	file, err := config.Load(f.configFile)
	if err != nil {
		return err
	}

	changed := cmd.Flags().Changed
	if !changed("workers") && file.Workers != 0 {
		f.workers = file.Workers
	}
	if !changed("split") && file.Split != 0 {
		f.split = file.Split
	}
	if !changed("port") && file.Port != 0 {
		f.port = file.Port
	}
	if !changed("user") && file.User != "" {
		f.user = file.User
	}
	if !changed("password") && file.Password != "" {
		f.password = file.Password
	}
	if !changed("datacenter") && file.Datacenter != "" {
		f.datacenter = file.Datacenter
	}
	if !changed("ssl-ca-cert") && file.SSLCACert != "" {
		f.sslCACert = file.SSLCACert
	}
	if !changed("ssl-certificate") && file.SSLCert != "" {
		f.sslCert = file.SSLCert
	}
	if !changed("ssl-key") && file.SSLKey != "" {
		f.sslKey = file.SSLKey
	}
	if !changed("ssl-use-tls-v1") && file.SSLUseTLSv1 {
		f.sslUseTLSv1 = file.SSLUseTLSv1
	}
	if !changed("metrics-port") && file.MetricsPort != 0 {
		f.metricsPort = file.MetricsPort
	}
	if !changed("progress-file") && file.ProgressFile != "" {
		f.progressFile = file.ProgressFile
	}
	if !changed("audit-file") && file.AuditFile != "" {
		f.auditFile = file.AuditFile
	}
	if file.WorkerMaxStartupDelaySeconds != 0 {
		f.workerMaxStartupDelay = time.Duration(file.WorkerMaxStartupDelaySeconds) * time.Second
	}
	return nil
}

func configureLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// startupSettings is everything resolvable from positional args and
// flags before a run: the pipeline settings, the session config, and the
// worker startup-jitter bound (applied only when workers > 10).
func startupSettings(host, keyspace, table, key string, f *flags) (*pipeline.Settings, session.Config) {
	jitter := time.Duration(0)
	if f.workers > 10 {
		jitter = time.Duration(f.workers*2) * time.Second
		if f.workerMaxStartupDelay != 0 {
			jitter = f.workerMaxStartupDelay
		}
	}

	settings := &pipeline.Settings{
		Keyspace:              keyspace,
		Table:                 table,
		Key:                   key,
		ExtraKey:              f.extraKey,
		Split:                 f.split,
		FilterString:          f.filterString,
		MinToken:              f.minToken,
		MaxToken:              f.maxToken,
		Workers:               f.workers,
		WorkerMaxStartupDelay: jitter,
	}

	sessionCfg := session.Config{
		Host:        host,
		Port:        f.port,
		User:        f.user,
		Password:    f.password,
		Keyspace:    keyspace,
		Datacenter:  f.datacenter,
		SSLCACert:   f.sslCACert,
		SSLCert:     f.sslCert,
		SSLKey:      f.sslKey,
		SSLUseTLSv1: f.sslUseTLSv1,
		SSLEnabled:  f.sslCACert != "" || f.sslCert != "",
	}

	return settings, sessionCfg
}

// run is everything a live pipeline instance needs, plus the ambient
// outputs (metrics, audit, progress, bar) that the supervisor and
// workers are wired up with.
type run struct {
	queues  *pipeline.Queues
	sup     *supervisor.Supervisor
	auditLg *audit.Log
}

// newCollector registers the Prometheus collector when --metrics-port is
// set. Called once per command invocation, not per pipeline instance:
// find-wide-partitions starts one pipeline per narrowing round, and a
// second registration against the default registry would panic.
func newCollector(f *flags) *metrics.Collector {
	if f.metricsPort <= 0 {
		return nil
	}
	return metrics.NewCollector()
}

// startRun builds queues, the optional ambient sinks, and a started
// supervisor for one pipeline instance over settings/sessionCfg. A
// connection failure here is fatal for the run: one probe session is
// opened up front so a bad host fails fast (exit code 1) instead of
// leaving the worker pool in a silent connect-retry loop.
func startRun(settings *pipeline.Settings, sessionCfg session.Config, f *flags, collector *metrics.Collector, out io.Writer) (*run, error) {
	probe, err := session.Connect(sessionCfg)
	if err != nil {
		return nil, err
	}
	probe.Close()

	q := pipeline.NewQueues(pipeline.QueueCapacities{})

	var auditLg *audit.Log
	if f.auditFile != "" {
		var err error
		auditLg, err = audit.Open(f.auditFile, 50, 100*time.Millisecond)
		if err != nil {
			return nil, fmt.Errorf("cli: open audit log: %w", err)
		}
	}

	var progressWriter *progress.Writer
	if f.progressFile != "" {
		progressWriter = progress.NewWriter(f.progressFile)
	}

	var bar *progressbar.ProgressBar
	predicted := tokenring.PredictedCount(settings.MinToken, settings.MaxToken, settings.Split)
	if out != nil && predicted > 0 {
		bar = progressbar.Default(predicted, fmt.Sprintf("%s.%s", settings.Keyspace, settings.Table))
	}

	workerOpts := worker.Options{
		SessionConfig: sessionCfg,
		Settings:      settings,
		Queues:        q,
		Audit:         auditLg,
		Metrics:       collector,
	}

	sup := supervisor.New(supervisor.Config{
		Settings:       settings,
		Queues:         q,
		WorkerOptions:  workerOpts,
		Metrics:        collector,
		MetricsPort:    f.metricsPort,
		ProgressWriter: progressWriter,
		StatsOut:       out,
		Bar:            bar,
	})
	sup.Start()

	return &run{queues: q, sup: sup, auditLg: auditLg}, nil
}

// watchSIGINT sets kill on the first SIGINT and logs the abort, so
// every stage winds down within one backoff cycle instead of the
// process dying mid-query.
func watchSIGINT(q *pipeline.Queues) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			slog.Warn("cli: received SIGINT, shutting down")
			q.Kill.Set()
		case <-done:
		}
	}()
	return func() {
		close(done)
		signal.Stop(sigCh)
	}
}

func (r *run) finish() {
	r.sup.Wait()
	if r.auditLg != nil {
		if err := r.auditLg.Close(); err != nil {
			slog.Warn("cli: failed to close audit log", "error", err)
		}
	}
}

func buildCountCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count-rows host keyspace table key",
		Short: "Count rows across the whole table in parallel",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfigDefaults(cmd, f); err != nil {
				return fail(cmd, err)
			}
			configureLogging(f.debug)

			settings, sessionCfg := startupSettings(args[0], args[1], args[2], args[3], f)
			r, err := startRun(settings, sessionCfg, f, newCollector(f), cmd.OutOrStdout())
			if err != nil {
				return fail(cmd, err)
			}
			stop := watchSIGINT(r.queues)
			defer stop()

			total := action.CountRows(r.queues, settings)
			r.finish()

			fmt.Fprintf(cmd.OutOrStdout(), "total rows: %d\n", total)
			return nil
		},
	}
	return cmd
}

func buildPrintCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print-rows host keyspace table key",
		Short: "Print every row in the table",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfigDefaults(cmd, f); err != nil {
				return fail(cmd, err)
			}
			configureLogging(f.debug)

			settings, sessionCfg := startupSettings(args[0], args[1], args[2], args[3], f)
			r, err := startRun(settings, sessionCfg, f, newCollector(f), cmd.ErrOrStderr())
			if err != nil {
				return fail(cmd, err)
			}
			stop := watchSIGINT(r.queues)
			defer stop()

			action.PrintRows(r.queues, settings, cmd.OutOrStdout())
			r.finish()
			return nil
		},
	}
	return cmd
}

func buildDeleteCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-rows host keyspace table key",
		Short: "Delete every row in the table (destructive, prompts for confirmation)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfigDefaults(cmd, f); err != nil {
				return fail(cmd, err)
			}
			configureLogging(f.debug)

			if !confirm.Ask(cmd.InOrStdin(), cmd.OutOrStdout(), "This will delete every row in the table. Continue?") {
				fmt.Fprintln(cmd.OutOrStdout(), "aborted: confirmation declined")
				return ErrDeclined
			}

			settings, sessionCfg := startupSettings(args[0], args[1], args[2], args[3], f)
			r, err := startRun(settings, sessionCfg, f, newCollector(f), cmd.ErrOrStderr())
			if err != nil {
				return fail(cmd, err)
			}
			stop := watchSIGINT(r.queues)
			defer stop()

			action.DeleteRows(r.queues, settings)
			r.finish()

			fmt.Fprintf(cmd.OutOrStdout(), "deleted rows: %d\n", r.queues.Counters.Deleted.Load())
			return nil
		},
	}
	return cmd
}

func buildUpdateCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-rows host keyspace table key",
		Short: "Update a column on every row in the table (destructive, prompts for confirmation)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfigDefaults(cmd, f); err != nil {
				return fail(cmd, err)
			}
			configureLogging(f.debug)

			if f.updateKey == "" || f.updateValue == "" {
				return fail(cmd, fmt.Errorf("update-rows requires --update-key and --update-value"))
			}

			if !confirm.Ask(cmd.InOrStdin(), cmd.OutOrStdout(), "This will update every row in the table. Continue?") {
				fmt.Fprintln(cmd.OutOrStdout(), "aborted: confirmation declined")
				return ErrDeclined
			}

			settings, sessionCfg := startupSettings(args[0], args[1], args[2], args[3], f)
			r, err := startRun(settings, sessionCfg, f, newCollector(f), cmd.ErrOrStderr())
			if err != nil {
				return fail(cmd, err)
			}
			stop := watchSIGINT(r.queues)
			defer stop()

			action.UpdateRows(r.queues, settings, f.updateKey, f.updateValue)
			r.finish()

			fmt.Fprintf(cmd.OutOrStdout(), "updated rows: %d\n", r.queues.Counters.Deleted.Load())
			return nil
		},
	}
	return cmd
}

func buildFindNullsCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find-nulls host keyspace table key",
		Short: "Report rows where --value-column is NULL",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfigDefaults(cmd, f); err != nil {
				return fail(cmd, err)
			}
			configureLogging(f.debug)

			if f.valueColumn == "" {
				return fail(cmd, fmt.Errorf("find-nulls requires --value-column"))
			}

			settings, sessionCfg := startupSettings(args[0], args[1], args[2], args[3], f)
			r, err := startRun(settings, sessionCfg, f, newCollector(f), cmd.ErrOrStderr())
			if err != nil {
				return fail(cmd, err)
			}
			stop := watchSIGINT(r.queues)
			defer stop()

			action.FindNulls(r.queues, settings, f.valueColumn, cmd.OutOrStdout())
			r.finish()
			return nil
		},
	}
	return cmd
}

func buildFindWidePartitionsCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find-wide-partitions host keyspace table key",
		Short: "Recursively narrow to the hottest (highest-count) sub-range",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfigDefaults(cmd, f); err != nil {
				return fail(cmd, err)
			}
			configureLogging(f.debug)

			host, keyspace, table, key := args[0], args[1], args[2], args[3]

			// One collector for the whole narrowing sequence; each round
			// gets its own queues and supervisor.
			collector := newCollector(f)

			runner := func(minToken, maxToken int64, splitExponent int) ([]action.SplitCount, error) {
				settings, sessionCfg := startupSettings(host, keyspace, table, key, f)
				settings.MinToken = minToken
				settings.MaxToken = maxToken
				settings.Split = splitExponent

				r, err := startRun(settings, sessionCfg, f, collector, cmd.ErrOrStderr())
				if err != nil {
					return nil, err
				}
				stop := watchSIGINT(r.queues)
				defer stop()

				counts := action.CountSplits(r.queues, settings)
				r.finish()
				return counts, nil
			}

			steps, err := action.FindWidePartitions(runner, f.minToken, f.maxToken, f.split, f.minExponent)
			if err != nil {
				return fail(cmd, err)
			}

			out := cmd.OutOrStdout()
			for _, step := range steps {
				fmt.Fprintf(out, "exponent=%d searched=[%d,%d) hottest=[%d,%d) count=%d\n",
					step.Exponent, step.Searched.Lo, step.Searched.Hi,
					step.Hottest.Lo, step.Hottest.Hi, step.Count)
			}
			return nil
		},
	}
	return cmd
}
