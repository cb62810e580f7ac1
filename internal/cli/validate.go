package cli

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/droproute/internal/compiler"
	"github.com/roach88/droproute/internal/engine"
)

// ValidationIssue is one problem found in a protocol.
type ValidationIssue struct {
	Route   string `json:"route,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Routes   int                        `json:"routes"`
	Errors   []ValidationIssue          `json:"errors,omitempty"`
	Warnings []compiler.TopologyWarning `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <protocol-dir>",
		Short: "Validate a protocol without building a plan",
		Long: `Validate the device and routes of a CUE protocol.

Every route is checked and resolved on the device independently, so all
problems are reported at once. Device topology warnings (one-way links,
isolated electrodes, disconnected regions) are listed but do not fail
validation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result, err := ValidateProtocolDir(dir, formatter)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidateProtocolDir validates all routes of the protocol in dir.
// The error is non-nil only when the protocol cannot be loaded at all.
func ValidateProtocolDir(dir string, formatter *OutputFormatter) (*ValidationResult, error) {
	loadResult, loadErrors := LoadProtocol(dir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	if formatter != nil {
		formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)
	}

	result := &ValidationResult{Routes: len(loadResult.Routes)}
	for _, err := range loadErrors {
		code, message := parseCompileError(err)
		issue := ValidationIssue{Code: code, Message: message}
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			issue.Line = lineOf(loadErr.Pos)
		}
		result.Errors = append(result.Errors, issue)
	}

	if loadResult.Device != nil {
		result.Warnings = compiler.AnalyzeDevice(loadResult.Device)

		for i, route := range loadResult.Routes {
			if formatter != nil {
				formatter.VerboseLog("Validating route: %s", route.Label())
			}
			if err := engine.CheckBatch(loadResult.Routes[i : i+1]); err != nil {
				result.Errors = append(result.Errors, ValidationIssue{
					Route:   route.Label(),
					Code:    routeErrorCode(err),
					Message: fmt.Sprintf("routes[%d]: missing %s", i, missingField(err)),
				})
				continue
			}
			if _, err := compiler.Compile(route, loadResult.Device); err != nil {
				result.Errors = append(result.Errors, ValidationIssue{
					Route:   route.Label(),
					Code:    routeErrorCode(err),
					Message: err.Error(),
				})
			}
		}
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

func missingField(err error) string {
	var mf *engine.MissingFieldError
	if errors.As(err, &mf) {
		return mf.Field
	}
	return "field"
}

// lineOf extracts the line number from a CUE position.
func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result *ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Protocol valid (%d route(s))\n", result.Routes)
	writeWarnings(formatter, result)
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// A protocol that cannot be loaded is a command-level error (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result *ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range errs {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", issue.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}
	writeWarnings(formatter, result)

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

func writeWarnings(formatter *OutputFormatter, result *ValidationResult) {
	if len(result.Warnings) == 0 {
		return
	}
	fmt.Fprintln(formatter.Writer, "Device warnings:")
	for _, warn := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  %s\n", formatWarning(warn))
	}
}
