package mgflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

type Options struct {
	// Smoothness weight of the Horn–Schunck energy.
	// Larger values give smoother, less detailed flow.
	Alpha float64
	// Divide Alpha by h^2 on coarse levels (h = 2^level). false keeps the
	// same weight on every level.
	ScaleCoarseAlpha bool
	// Outer loop stops once the residual norm drops below this value.
	Tolerance float64
	// Outer loop cap on top-level cycles.
	MaxIterations int
	// Multigrid cycle run by every outer iteration.
	Cycle CycleKind
	// Smoother sweeps before the coarse correction, after it, and at the
	// coarsest level.
	PreSmoothing      int
	PostSmoothing     int
	CoarsestSmoothing int
	// Size of the worker pool. 0 means GOMAXPROCS.
	Workers int
	// Grids with rows or cols below this run their row loops on one worker.
	SmallGrid int
}

func DefaultOptions() Options {
	return Options{
		Alpha:             1.0,
		ScaleCoarseAlpha:  true,
		Tolerance:         0.0005,
		MaxIterations:     10000,
		Cycle:             FCycle,
		PreSmoothing:      5,
		PostSmoothing:     5,
		CoarsestSmoothing: 5,
		Workers:           0,
		SmallGrid:         25,
	}
}

// OptionsFromSize returns defaults tuned for a frame of the given size.
// Frames whose derivative grid never reaches SmallGrid gain nothing from the
// pool and run on a single worker.
func OptionsFromSize(rows, cols int) Options {
	opt := DefaultOptions()
	if rows <= 0 || cols <= 0 {
		return opt
	}
	if min(rows, cols)-1 < opt.SmallGrid {
		opt.Workers = 1
	}
	return opt
}

// Validate reports the first option that would make a solve meaningless.
func (o Options) Validate() error {
	switch {
	case o.Alpha <= 0:
		return fmt.Errorf("alpha must be positive, got %g", o.Alpha)
	case o.Tolerance <= 0:
		return fmt.Errorf("tolerance must be positive, got %g", o.Tolerance)
	case o.MaxIterations <= 0:
		return fmt.Errorf("max iterations must be positive, got %d", o.MaxIterations)
	case o.PreSmoothing < 0 || o.PostSmoothing < 0 || o.CoarsestSmoothing < 0:
		return errors.New("smoothing counts must not be negative")
	case o.Workers < 0:
		return fmt.Errorf("workers must not be negative, got %d", o.Workers)
	}
	if _, err := ParseCycleKind(o.Cycle.String()); err != nil {
		return err
	}
	return nil
}

// optionsFile is the on-disk form of Options. Omitted fields keep the
// value of the Options being loaded into.
type optionsFile struct {
	Alpha             *float64 `json:"alpha,omitempty"`
	ScaleCoarseAlpha  *bool    `json:"scale_coarse_alpha,omitempty"`
	Tolerance         *float64 `json:"tolerance,omitempty"`
	MaxIterations     *int     `json:"max_iterations,omitempty"`
	Cycle             *string  `json:"cycle,omitempty"`
	PreSmoothing      *int     `json:"pre_smoothing,omitempty"`
	PostSmoothing     *int     `json:"post_smoothing,omitempty"`
	CoarsestSmoothing *int     `json:"coarsest_smoothing,omitempty"`
	Workers           *int     `json:"workers,omitempty"`
	SmallGrid         *int     `json:"small_grid,omitempty"`
}

// LoadOptions reads a JSON options file on top of DefaultOptions.
func LoadOptions(path string) (Options, error) {
	opt := DefaultOptions()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return opt, fmt.Errorf("options file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return opt, fmt.Errorf("failed to stat options file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return opt, fmt.Errorf("options file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return opt, fmt.Errorf("failed to read options file: %w", err)
	}
	var file optionsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return opt, fmt.Errorf("failed to parse options file: %w", err)
	}

	if file.Alpha != nil {
		opt.Alpha = *file.Alpha
	}
	if file.ScaleCoarseAlpha != nil {
		opt.ScaleCoarseAlpha = *file.ScaleCoarseAlpha
	}
	if file.Tolerance != nil {
		opt.Tolerance = *file.Tolerance
	}
	if file.MaxIterations != nil {
		opt.MaxIterations = *file.MaxIterations
	}
	if file.Cycle != nil {
		kind, err := ParseCycleKind(*file.Cycle)
		if err != nil {
			return opt, err
		}
		opt.Cycle = kind
	}
	if file.PreSmoothing != nil {
		opt.PreSmoothing = *file.PreSmoothing
	}
	if file.PostSmoothing != nil {
		opt.PostSmoothing = *file.PostSmoothing
	}
	if file.CoarsestSmoothing != nil {
		opt.CoarsestSmoothing = *file.CoarsestSmoothing
	}
	if file.Workers != nil {
		opt.Workers = *file.Workers
	}
	if file.SmallGrid != nil {
		opt.SmallGrid = *file.SmallGrid
	}

	if err := opt.Validate(); err != nil {
		return opt, fmt.Errorf("invalid options file %s: %w", cleanPath, err)
	}
	return opt, nil
}
