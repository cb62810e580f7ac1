package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/droproute/internal/ir"
	"github.com/roach88/droproute/internal/publish"
	"github.com/roach88/droproute/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Verify   bool
}

// RunView is one run of the run log.
type RunView struct {
	RunID        string        `json:"run_id"`
	Seq          int64         `json:"seq"`
	Status       ir.Status     `json:"status"`
	Reason       ir.StopReason `json:"reason,omitempty"`
	Error        string        `json:"error,omitempty"`
	Routes       int           `json:"routes"`
	Windows      int           `json:"windows"`
	Frames       int64         `json:"frames"`
	StepInterval int64         `json:"step_interval_ns"`
	Deadline     int64         `json:"deadline_ns"`
	ScheduleHash string        `json:"schedule_hash"`
	Incomplete   bool          `json:"incomplete,omitempty"`
}

// CheckView is the integrity report of one run.
type CheckView struct {
	OK             bool    `json:"ok"`
	StoredFrames   int64   `json:"stored_frames"`
	Gaps           []int64 `json:"gaps,omitempty"`
	HashMismatches []int64 `json:"hash_mismatches,omitempty"`
	Incomplete     bool    `json:"incomplete,omitempty"`
}

// TraceResult is the trace of a single run.
type TraceResult struct {
	Run    RunView    `json:"run"`
	Frames []ir.Frame `json:"frames"`
	Check  *CheckView `json:"check,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id|latest]",
		Short: "Inspect recorded runs",
		Long: `Inspect the runs recorded in a SQLite run log.

Without an argument every run is listed; runs that never recorded a stop
(after a crash) are marked incomplete. With a run id, or "latest", the
run and its frames are printed. --verify recomputes every frame hash and
checks that no frame is missing.

Examples:
  droproute trace --db ./runs.db
  droproute trace --db ./runs.db latest
  droproute trace --db ./runs.db --verify 0192a4c6-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runTrace(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $DROPROUTE_DB)")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "check frame hashes and seq continuity")

	return cmd
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	path := opts.Database
	if path == "" {
		path = opts.Config.DBPath
	}
	if path == "" {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "no database given", errors.New("use --db or DROPROUTE_DB"))
	}

	st, err := store.Open(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if runID == "" {
		return listRuns(ctx, formatter, st)
	}
	return traceRun(ctx, formatter, st, runID, opts.Verify)
}

func listRuns(ctx context.Context, formatter *OutputFormatter, st *store.Store) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to list runs", err)
	}

	views := make([]RunView, len(runs))
	for i, rec := range runs {
		views[i] = newRunView(rec)
	}

	if formatter.Format == "json" {
		return formatter.Success(views)
	}

	w := formatter.Writer
	if len(views) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}
	for _, v := range views {
		writeRunLine(w, v)
	}

	incomplete, err := st.FindIncompleteRuns(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to list runs", err)
	}
	if len(incomplete) > 0 {
		fmt.Fprintf(w, "\n%d run(s) never stopped; check them with --verify\n", len(incomplete))
	}
	return nil
}

func traceRun(ctx context.Context, formatter *OutputFormatter, st *store.Store, runID string, verify bool) error {
	var (
		rec store.RunRecord
		err error
	)
	if runID == "latest" {
		rec, err = st.LatestRun(ctx)
	} else {
		rec, err = st.ReadRun(ctx, runID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run %s not found", runID), err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to read run", err)
	}

	frames, err := st.ReadFrames(ctx, rec.RunID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to read frames", err)
	}

	result := TraceResult{Run: newRunView(rec), Frames: frames}
	if verify {
		check, err := st.VerifyRun(ctx, rec.RunID)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to verify run", err)
		}
		result.Check = &CheckView{
			OK:             check.OK(),
			StoredFrames:   check.StoredFrames,
			Gaps:           check.Gaps,
			HashMismatches: check.HashMismatches,
			Incomplete:     check.Incomplete,
		}
	}

	if formatter.Format == "json" {
		if err := formatter.Encode(CLIResponse{Status: "ok", Data: result, TraceID: rec.RunID}); err != nil {
			return err
		}
	} else {
		writeTraceText(formatter.Writer, result)
	}

	if result.Check != nil && !result.Check.OK {
		return NewExitError(ExitFailure, fmt.Sprintf("run %s failed verification", rec.RunID))
	}
	return nil
}

func newRunView(rec store.RunRecord) RunView {
	return RunView{
		RunID:        rec.RunID,
		Seq:          rec.Seq,
		Status:       rec.Status,
		Reason:       rec.Reason,
		Error:        rec.Error,
		Routes:       rec.Routes,
		Windows:      rec.Windows,
		Frames:       rec.Frames,
		StepInterval: rec.StepInterval.Nanoseconds(),
		Deadline:     rec.Deadline.Nanoseconds(),
		ScheduleHash: rec.ScheduleHash,
		Incomplete:   rec.Status != ir.StatusStopped,
	}
}

func writeRunLine(w io.Writer, v RunView) {
	outcome := string(v.Reason)
	if v.Incomplete {
		outcome = "incomplete"
	}
	fmt.Fprintf(w, "%4d  %s  %-10s %d route(s), %d frame(s)\n",
		v.Seq, v.RunID, outcome, v.Routes, v.Frames)
}

func writeTraceText(w io.Writer, result TraceResult) {
	run := result.Run
	fmt.Fprintf(w, "Run %s\n", run.RunID)
	if run.Incomplete {
		fmt.Fprintf(w, "  status:   %s (incomplete)\n", run.Status)
	} else {
		fmt.Fprintf(w, "  status:   %s (%s)\n", run.Status, run.Reason)
	}
	if run.Error != "" {
		fmt.Fprintf(w, "  error:    %s\n", run.Error)
	}
	fmt.Fprintf(w, "  routes:   %d\n", run.Routes)
	fmt.Fprintf(w, "  windows:  %d\n", run.Windows)
	fmt.Fprintf(w, "  frames:   %d\n", run.Frames)
	fmt.Fprintf(w, "  schedule: %s\n", run.ScheduleHash)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Frames ===")
	if len(result.Frames) == 0 {
		fmt.Fprintln(w, "  (no frames)")
	}
	for _, frame := range result.Frames {
		fmt.Fprintf(w, "  %s\n", publish.FormatFrame(frame))
	}

	if result.Check == nil {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Verify ===")
	if result.Check.OK {
		fmt.Fprintf(w, "  ✓ %d frame(s) intact\n", result.Check.StoredFrames)
		return
	}
	fmt.Fprintf(w, "  ✗ %d of %d frame(s) stored\n", result.Check.StoredFrames, run.Frames)
	if result.Check.Incomplete {
		fmt.Fprintln(w, "  run never stopped")
	}
	if len(result.Check.Gaps) > 0 {
		fmt.Fprintf(w, "  missing seq: %s\n", joinSeqs(result.Check.Gaps))
	}
	if len(result.Check.HashMismatches) > 0 {
		fmt.Fprintf(w, "  hash mismatch at seq: %s\n", joinSeqs(result.Check.HashMismatches))
	}
}

func joinSeqs(seqs []int64) string {
	parts := make([]string, len(seqs))
	for i, s := range seqs {
		parts[i] = fmt.Sprint(s)
	}
	return strings.Join(parts, ", ")
}
