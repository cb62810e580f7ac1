package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/droproute/internal/engine"
	"github.com/roach88/droproute/internal/ir"
	"github.com/roach88/droproute/internal/publish"
	"github.com/roach88/droproute/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database    string
	NATSURL     string
	NATSSubject string
	Routes      []string // uuid filter

	// Clock overrides the wall clock (for testing).
	Clock engine.Clock

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator

	// Conn overrides the NATS connection (for testing). When set, NATSURL
	// is not dialled.
	Conn publish.Conn
}

// RunSummary is the output of a finished run.
type RunSummary struct {
	RunID        string        `json:"run_id"`
	Reason       ir.StopReason `json:"reason"`
	Frames       int64         `json:"frames"`
	Elapsed      time.Duration `json:"elapsed_ns"`
	Routes       int           `json:"routes"`
	ScheduleHash string        `json:"schedule_hash"`
	Error        string        `json:"error,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <protocol-dir>",
		Short: "Play a protocol back in real time",
		Long: `Play the routes of a CUE protocol back in real time.

Each step prints the active electrode set. With --db every frame and the
run outcome are recorded in a SQLite run log; with --nats frames and status
events are published to a NATS subject. Ctrl-C cancels the run.

Examples:
  droproute run ./protocol
  droproute run --db ./runs.db ./protocol
  droproute run --nats nats://localhost:4222 --route fast ./protocol`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProtocol(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database (default $DROPROUTE_DB)")
	cmd.Flags().StringVar(&opts.NATSURL, "nats", "", "publish frames to this NATS server (default $DROPROUTE_NATS_URL)")
	cmd.Flags().StringVar(&opts.NATSSubject, "subject", "", "NATS subject prefix (default $DROPROUTE_NATS_SUBJECT)")
	cmd.Flags().StringSliceVar(&opts.Routes, "route", nil, "only run routes with these uuids (repeatable)")

	return cmd
}

func runProtocol(opts *RunOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	loadResult, loadErrors := LoadProtocol(dir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, "failed to load protocol", errors.New(message))
	}
	formatter.VerboseLog("Loaded %d route(s) from %d CUE file(s)", len(loadResult.Routes), loadResult.FileCount)

	batch, err := selectRoutes(loadResult.Routes, opts.Routes)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRouteNotSelected, "no routes selected", err)
	}

	// Frames go to the terminal first and to the run log last, so a run log
	// never holds a frame that was not shown.
	fanout := publish.Fanout{publish.NewWriter(cmd.OutOrStdout(), opts.Format)}
	if opts.Verbose {
		fanout = append(fanout, publish.NewLog(logger))
	}
	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.Clock != nil {
		engineOpts = append(engineOpts, engine.WithClock(opts.Clock))
	}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}

	bus, err := opts.openBus()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBusFailed, "failed to connect to NATS", err)
	}
	if bus != nil {
		defer func() {
			if closeErr := bus.Close(); closeErr != nil {
				logger.Error("error closing NATS connection", "error", closeErr)
			}
		}()
		fanout = append(fanout, bus)
		engineOpts = append(engineOpts, engine.WithStatusObserver(bus))
	}

	var rec *store.Recorder
	if dbPath := opts.dbPath(); dbPath != "" {
		logger.Info("opening run log", "path", dbPath)
		st, err := store.Open(dbPath)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		rec = store.NewRecorder(st, logger)
		fanout = append(fanout, rec)
		engineOpts = append(engineOpts, engine.WithStatusObserver(rec))
	}

	eng := engine.New(loadResult.Device, fanout, engineOpts...)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := eng.Start(ctx, batch)
	if err != nil {
		// Rejected before anything was published.
		return formatter.Fail(ExitCommandError, routeErrorCode(err), "invalid batch", err)
	}
	formatter.VerboseLog("Run %s: %d window(s), step %v, deadline %v",
		run.ID, len(run.Plan.Schedule), run.Plan.StepInterval, run.Plan.Deadline)

	res, runErr := run.Wait()
	summary := RunSummary{
		RunID:        res.RunID,
		Reason:       res.Reason,
		Frames:       res.Frames,
		Elapsed:      res.Elapsed,
		Routes:       len(batch),
		ScheduleHash: run.Plan.Hash,
	}
	if runErr != nil {
		summary.Error = runErr.Error()
	}

	if rec != nil {
		if err := rec.Err(); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeStoreFailed, fmt.Sprintf("run %s was not fully recorded", res.RunID), err)
		}
	}

	if res.Reason == ir.ReasonFailed {
		code := ErrCodeGeneric
		if engine.IsPublishError(runErr) {
			code = ErrCodePublishFailed
		}
		_ = formatter.Error(code, summary.Error, summary)
		return WrapExitError(ExitFailure, fmt.Sprintf("run %s failed", res.RunID), runErr)
	}

	return outputRunSummary(formatter, summary)
}

// outputRunSummary prints the outcome of a completed or cancelled run.
func outputRunSummary(formatter *OutputFormatter, summary RunSummary) error {
	if formatter.Format == "json" {
		return formatter.Encode(CLIResponse{
			Status:  "ok",
			Data:    summary,
			TraceID: summary.RunID,
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ Run %s stopped: %s (%d frame(s) in %v)\n",
		summary.RunID, summary.Reason, summary.Frames, summary.Elapsed)
	return nil
}

// selectRoutes keeps the routes whose uuid is in ids, in batch order.
// An empty filter keeps every route.
func selectRoutes(routes []ir.Route, ids []string) ([]ir.Route, error) {
	if len(ids) == 0 {
		return routes, nil
	}
	var out []ir.Route
	for _, route := range routes {
		if slices.Contains(ids, route.UUID) {
			out = append(out, route)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no route matches %v", ids)
	}
	return out, nil
}

func (o *RunOptions) dbPath() string {
	if o.Database != "" {
		return o.Database
	}
	return o.Config.DBPath
}

// openBus returns the NATS publisher, or nil when no bus is configured.
func (o *RunOptions) openBus() (*publish.NATS, error) {
	subject := o.NATSSubject
	if subject == "" {
		subject = o.Config.NATSSubject
	}
	if o.Conn != nil {
		return publish.NewNATS(o.Conn, subject, o.logger()), nil
	}

	url := o.NATSURL
	if url == "" {
		url = o.Config.NATSURL
	}
	if url == "" {
		return nil, nil
	}

	cfg := publish.DefaultNATSConfig()
	cfg.URL = url
	if subject != "" {
		cfg.Subject = subject
	}
	// A zero wait means the environment was never loaded; keep the defaults.
	if o.Config.NATSReconnectWait > 0 {
		cfg.MaxReconnects = o.Config.NATSMaxReconnects
		cfg.ReconnectWait = o.Config.NATSReconnectWait
	}
	return publish.DialNATS(cfg, o.logger())
}
