package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/droproute/internal/ir"
	"github.com/roach88/droproute/internal/publish"
	"github.com/roach88/droproute/internal/store"
	"github.com/roach88/droproute/internal/testutil"
)

// busConn records published messages in place of a NATS connection.
type busConn struct {
	mu       sync.Mutex
	msgs     []*nats.Msg
	failWith error
	drained  bool
}

func (c *busConn) PublishMsg(m *nats.Msg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	c.msgs = append(c.msgs, m)
	return nil
}

func (c *busConn) FlushWithContext(context.Context) error { return nil }

func (c *busConn) Drain() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drained = true
	return nil
}

func (c *busConn) subjects() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.msgs))
	for i, m := range c.msgs {
		out[i] = m.Subject
	}
	return out
}

func newRunOptions(format string, runID string) *RunOptions {
	return &RunOptions{
		RootOptions: &RootOptions{Format: format},
		Clock:       testutil.NewVirtualClock(),
		RunIDs:      testutil.NewFixedRunIDGenerator(runID),
	}
}

func runCmd(ctx context.Context, opts *RunOptions, dir string) (string, error) {
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetContext(ctx)
	err := runProtocol(opts, dir, cmd)
	return out.String(), err
}

// recordRun plays the test protocol into the run log at dbPath.
func recordRun(t *testing.T, dbPath, runID string) {
	t.Helper()
	opts := newRunOptions("text", runID)
	opts.Database = dbPath
	_, err := runCmd(context.Background(), opts, protocolDir)
	require.NoError(t, err)
}

func TestRunPrintsFrames(t *testing.T) {
	output, err := runCmd(context.Background(), newRunOptions("text", "run-1"), protocolDir)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "#0001  0s  E0 E4", lines[0])
	assert.Equal(t, "#0003  100ms  E1 E4", lines[2])
	assert.Equal(t, "#0005  200ms  E2 E3", lines[4])
	assert.Contains(t, lines[5], "✓ Run run-1 stopped: exhausted (5 frame(s)")
}

func TestRunJSON(t *testing.T) {
	output, err := runCmd(context.Background(), newRunOptions("json", "run-json"), protocolDir)
	require.NoError(t, err)

	// Five frame envelopes, one per line, then the indented summary.
	decoder := json.NewDecoder(strings.NewReader(output))
	for i := 1; i <= 5; i++ {
		var msg publish.Message
		require.NoError(t, decoder.Decode(&msg))
		assert.Equal(t, publish.TypeActive, msg.Type)
		assert.Equal(t, int64(i), msg.Seq)
	}

	var resp struct {
		Status  string     `json:"status"`
		Data    RunSummary `json:"data"`
		TraceID string     `json:"trace_id"`
	}
	require.NoError(t, decoder.Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-json", resp.TraceID)
	assert.Equal(t, ir.ReasonExhausted, resp.Data.Reason)
	assert.Equal(t, int64(5), resp.Data.Frames)
	assert.Equal(t, 2, resp.Data.Routes)
	assert.NotEmpty(t, resp.Data.ScheduleHash)
}

func TestRunRouteFilter(t *testing.T) {
	opts := newRunOptions("json", "run-fast")
	opts.Routes = []string{"fast"}
	output, err := runCmd(context.Background(), opts, protocolDir)
	require.NoError(t, err)
	assert.NotContains(t, output, `"E4"`)

	opts = newRunOptions("text", "run-none")
	opts.Routes = []string{"missing"}
	output, err = runCmd(context.Background(), opts, protocolDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, ErrCodeRouteNotSelected)
}

func TestRunRecordsRunLog(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordRun(t, dbPath, "run-db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	rec, err := st.ReadRun(ctx, "run-db")
	require.NoError(t, err)
	assert.Equal(t, ir.StatusStopped, rec.Status)
	assert.Equal(t, ir.ReasonExhausted, rec.Reason)
	assert.Equal(t, int64(5), rec.Frames)

	check, err := st.VerifyRun(ctx, "run-db")
	require.NoError(t, err)
	assert.True(t, check.OK())
}

func TestRunDatabaseFromConfig(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "env.db")
	opts := newRunOptions("text", "run-env")
	opts.Config.DBPath = dbPath

	_, err := runCmd(context.Background(), opts, protocolDir)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	_, err = st.ReadRun(context.Background(), "run-env")
	require.NoError(t, err)
}

func TestRunPublishesToBus(t *testing.T) {
	conn := &busConn{}
	opts := newRunOptions("text", "run-bus")
	opts.Conn = conn
	opts.NATSSubject = "lab.chip1"

	_, err := runCmd(context.Background(), opts, protocolDir)
	require.NoError(t, err)

	subjects := conn.subjects()
	require.Len(t, subjects, 7, "running status, five frames, stopped status")
	assert.Equal(t, "lab.chip1.status", subjects[0])
	assert.Equal(t, "lab.chip1.active", subjects[1])
	assert.Equal(t, "lab.chip1.status", subjects[6])
	assert.True(t, conn.drained)
}

func TestRunBusFailureFailsRun(t *testing.T) {
	conn := &busConn{failWith: errors.New("connection closed")}
	opts := newRunOptions("text", "run-fail")
	opts.Conn = conn

	output, err := runCmd(context.Background(), opts, protocolDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "run run-fail failed")
	assert.Contains(t, output, "connection closed")
	assert.Contains(t, output, ErrCodePublishFailed)
}

func TestRunCancelled(t *testing.T) {
	opts := newRunOptions("json", "run-cancel")
	clock := testutil.NewVirtualClock()
	opts.Clock = clock

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock.CancelAfter(2, cancel)

	output, err := runCmd(ctx, opts, protocolDir)
	require.NoError(t, err, "a cancelled run is not a failure")

	idx := strings.Index(output, "{\n")
	require.GreaterOrEqual(t, idx, 0)
	var resp struct {
		Data RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output[idx:]), &resp))
	assert.Equal(t, ir.ReasonCancelled, resp.Data.Reason)
	assert.Equal(t, int64(2), resp.Data.Frames)
}

func TestRunInvalidBatch(t *testing.T) {
	dir := writeProtocol(t, `
package protocol

device: grid: {rows: 1, cols: 2}

routes: [{uuid: "bad", start: "E0", path: ["up"], transitionDurationMs: 100}]
`)
	output, err := runCmd(context.Background(), newRunOptions("text", "run-bad"), dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, ErrCodeRouteResolution)
	assert.NotContains(t, output, "#0001")
}

func TestRunLoadError(t *testing.T) {
	output, err := runCmd(context.Background(), newRunOptions("text", "run-x"), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, ErrCodeNoFiles)
}

func TestSelectRoutes(t *testing.T) {
	routes := []ir.Route{{UUID: "a"}, {UUID: "b"}, {UUID: "c"}}

	got, err := selectRoutes(routes, nil)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = selectRoutes(routes, []string{"c", "a"})
	require.NoError(t, err)
	assert.Equal(t, []ir.Route{{UUID: "a"}, {UUID: "c"}}, got, "batch order is kept")

	_, err = selectRoutes(routes, []string{"z"})
	assert.Error(t, err)
}
