package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/droproute/internal/compiler"
	"github.com/roach88/droproute/internal/device"
	"github.com/roach88/droproute/internal/engine"
	"github.com/roach88/droproute/internal/ir"
)

// LoadMode controls how errors are handled during protocol loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains a protocol loaded from a directory.
type LoadResult struct {
	Device    *device.Device
	Routes    []ir.Route
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during protocol loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadProtocol loads the device and the route batch declared by the CUE
// files in dir. Routes without a uuid are given a UUIDv7.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
//
// Route fields are only type-checked here; semantic route errors are
// reported by the compiler and the engine.
func LoadProtocol(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("protocol directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing protocol directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	deviceVal := value.LookupPath(cue.ParsePath("device"))
	if !deviceVal.Exists() {
		errs = append(errs, &LoadError{Code: ErrCodeDeviceMissing, Message: "no device declared"})
		if mode == LoadModeFailFast {
			return result, errs
		}
	} else {
		dev, compileErr := compiler.CompileDevice(deviceVal)
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "device"))
			if mode == LoadModeFailFast {
				return result, errs
			}
		} else {
			result.Device = dev
		}
	}

	routesVal := value.LookupPath(cue.ParsePath("routes"))
	if routesVal.Exists() {
		iter, iterErr := routesVal.List()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeRoutesList, Message: "routes must be a list", Pos: routesVal.Pos()})
			if mode == LoadModeFailFast {
				return result, errs
			}
		} else {
			for i := 0; iter.Next(); i++ {
				route, compileErr := compiler.CompileRoute(iter.Value())
				if compileErr != nil {
					errs = append(errs, convertCompileError(compileErr, fmt.Sprintf("routes[%d]", i)))
					if mode == LoadModeFailFast {
						return result, errs
					}
					continue
				}
				result.Routes = append(result.Routes, *route)
			}
		}
	}

	if len(result.Routes) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoRoutes, Message: "no routes found in protocol"})
	}

	compiler.AssignRouteIDs(result.Routes, engine.UUIDv7Generator{})

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeScanError      = "E002" // Directory scan error
	ErrCodeNoFiles        = "E003" // No CUE files found
	ErrCodeLoadFailed     = "E004" // CUE load failed
	ErrCodeNotFound       = "E005" // Path not found
	ErrCodeBuildFailed    = "E006" // CUE build failed
	ErrCodeWriteFailed    = "E007" // File write error
	ErrCodeStoreFailed    = "E008" // Run log open/read error
	ErrCodeBusFailed      = "E009" // Bus connection error
	ErrCodeScenarioFailed = "E010" // One or more scenarios failed
	ErrCodePublishFailed  = "E011" // A frame could not be published mid-run

	// Device errors
	ErrCodeDeviceMissing    = "E101" // No device declared
	ErrCodeDeviceGrid       = "E102" // Invalid grid dimensions
	ErrCodeDeviceElectrodes = "E103" // Invalid neighbour table

	// Route errors
	ErrCodeRoutesList       = "E110" // routes is not a list
	ErrCodeNoRoutes         = "E111" // Empty batch
	ErrCodeRouteStart       = "E112" // Missing or invalid start
	ErrCodeRoutePath        = "E113" // Missing or invalid path
	ErrCodeRouteTransition  = "E114" // Invalid transitionDurationMs
	ErrCodeRouteTrail       = "E115" // Invalid trailLength
	ErrCodeRouteRepeat      = "E116" // Invalid repeatDurationSec or routeRepeats
	ErrCodeRouteUUID        = "E117" // Invalid uuid
	ErrCodeRouteResolution  = "E120" // Path cannot be resolved on the device
	ErrCodeRouteNotSelected = "E121" // --route filter matched nothing
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "device":
		return ErrCodeDeviceMissing
	case "grid", "rows", "cols":
		return ErrCodeDeviceGrid
	case "electrodes", "name", "up", "down", "left", "right":
		return ErrCodeDeviceElectrodes
	case "routes":
		return ErrCodeRoutesList
	case "start":
		return ErrCodeRouteStart
	case "path":
		return ErrCodeRoutePath
	case "transitionDurationMs":
		return ErrCodeRouteTransition
	case "trailLength":
		return ErrCodeRouteTrail
	case "repeatDurationSec", "routeRepeats":
		return ErrCodeRouteRepeat
	case "uuid":
		return ErrCodeRouteUUID
	default:
		return ErrCodeGeneric
	}
}

// routeErrorCode maps a compile or plan error for a route to an error code.
func routeErrorCode(err error) string {
	var invalid *compiler.InvalidRouteError
	if errors.As(err, &invalid) {
		return MapFieldToErrorCode(invalid.Field)
	}
	var missing *engine.MissingFieldError
	if errors.As(err, &missing) {
		return MapFieldToErrorCode(missing.Field)
	}
	if device.IsGraphResolution(err) {
		return ErrCodeRouteResolution
	}
	if errors.Is(err, engine.ErrEmptyBatch) {
		return ErrCodeNoRoutes
	}
	return ErrCodeGeneric
}
