package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/droproute/internal/compiler"
	"github.com/roach88/droproute/internal/device"
	"github.com/roach88/droproute/internal/engine"
	"github.com/roach88/droproute/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the plan preview of a protocol.
type CompilationResult struct {
	Device       DeviceSummary         `json:"device"`
	Routes       []RoutePreview        `json:"routes"`
	Windows      []ir.ActivationWindow `json:"windows"`
	StepInterval time.Duration         `json:"step_interval_ns"`
	Deadline     time.Duration         `json:"deadline_ns"`
	LastOff      time.Duration         `json:"last_off_ns"`
	MaxSteps     int64                 `json:"max_steps"`
	ScheduleHash string                `json:"schedule_hash"`
}

// DeviceSummary describes the loaded device.
type DeviceSummary struct {
	Name       string                     `json:"name"`
	Electrodes int                        `json:"electrodes"`
	Warnings   []compiler.TopologyWarning `json:"warnings"`
}

// RoutePreview is one compiled route of the batch.
type RoutePreview struct {
	UUID                 string           `json:"uuid"`
	Start                ir.ElectrodeID   `json:"start"`
	Path                 []ir.ElectrodeID `json:"path"`
	Loop                 bool             `json:"loop"`
	TransitionDurationMs int64            `json:"transition_duration_ms"`
	TrailLength          int              `json:"trail_length"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <protocol-dir>",
		Short: "Compile a protocol into a playback plan",
		Long: `Compile the device and routes of a CUE protocol into a playback plan.

Every route is resolved on the device, loops are expanded and activation
windows are computed. The preview shows the compiled paths, the merged
schedule, the step interval and the deadline without driving anything.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the plan as JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadProtocol(dir, LoadModeCollectAll)

	// Directory not found, no files, etc.
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)
	for _, route := range loadResult.Routes {
		formatter.VerboseLog("Compiling route: %s", route.Label())
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	plan, err := engine.BuildPlan(loadResult.Routes, loadResult.Device)
	if err != nil {
		return outputCompileError(formatter, routeErrorCode(err), err.Error(), nil)
	}

	result := buildCompilationResult(loadResult.Device, plan)

	if opts.Output != "" {
		if err := writePlanToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// buildCompilationResult summarizes a plan for output.
func buildCompilationResult(d *device.Device, plan *engine.Plan) *CompilationResult {
	result := &CompilationResult{
		Device: DeviceSummary{
			Name:       d.Name(),
			Electrodes: d.Len(),
			Warnings:   compiler.AnalyzeDevice(d),
		},
		Routes:       make([]RoutePreview, len(plan.Routes)),
		Windows:      plan.Schedule,
		StepInterval: plan.StepInterval,
		Deadline:     plan.Deadline,
		LastOff:      plan.Schedule.End(),
		MaxSteps:     plan.MaxSteps(),
		ScheduleHash: plan.Hash,
	}
	for i, route := range plan.Routes {
		path := plan.Paths[i]
		result.Routes[i] = RoutePreview{
			UUID:                 route.UUID,
			Start:                route.Start,
			Path:                 path,
			Loop:                 compiler.IsClosedLoop(path),
			TransitionDurationMs: route.TransitionDurationMs,
			TrailLength:          route.TrailLength,
		}
	}
	return result
}

// outputCompileSuccess outputs the plan preview.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d route(s) on device %s (%d electrodes)\n\n",
		len(result.Routes), result.Device.Name, result.Device.Electrodes)

	fmt.Fprintln(w, "Routes:")
	for _, route := range result.Routes {
		loop := ""
		if route.Loop {
			loop = ", loop"
		}
		fmt.Fprintf(w, "  %s: %s (%d steps, %dms, trail %d%s)\n",
			route.UUID, joinIDs(route.Path, " → "), len(route.Path),
			route.TransitionDurationMs, route.TrailLength, loop)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Schedule:")
	fmt.Fprintf(w, "  windows:       %d\n", len(result.Windows))
	fmt.Fprintf(w, "  step interval: %v\n", result.StepInterval)
	fmt.Fprintf(w, "  last off:      %v\n", result.LastOff)
	fmt.Fprintf(w, "  deadline:      %v\n", result.Deadline)
	fmt.Fprintf(w, "  max steps:     %d\n", result.MaxSteps)
	fmt.Fprintf(w, "  hash:          %s\n", result.ScheduleHash)

	if len(result.Device.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Device warnings:")
		for _, warn := range result.Device.Warnings {
			fmt.Fprintf(w, "  %s\n", formatWarning(warn))
		}
	}

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote plan to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	return routeErrorCode(err), err.Error()
}

// writePlanToFile writes the plan preview as indented JSON.
func writePlanToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}

func joinIDs(ids []ir.ElectrodeID, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, sep)
}

func formatWarning(w compiler.TopologyWarning) string {
	if w.Electrode == "" {
		return fmt.Sprintf("[%s] %s", w.Level, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Level, w.Electrode, w.Message)
}
