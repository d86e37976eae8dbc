// Package config holds runtime configuration: defaults, CLI flag parsing, and
// validation. Defaults match the original editor-exposed settings of the
// preprocessor (32x32 RGB, 1000 images per batch, conservative thermal mode).
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// --- Enum types for validated string fields ---

// OutputFormat selects the batch container written to disk.
type OutputFormat string

const (
	FormatText   OutputFormat = "text"   // Streamed JSON document (default).
	FormatBinary OutputFormat = "binary" // Fixed binary container, 50-70% smaller.
)

// ThermalMode selects how aggressively the workload governor sizes chunks.
type ThermalMode string

const (
	ThermalConservative ThermalMode = "conservative" // Laptop-safe (default).
	ThermalPerformance  ThermalMode = "performance"  // Desktop: cores-1 workers.
)

// WorkloadMode controls the governor override.
type WorkloadMode string

const (
	WorkloadAuto  WorkloadMode = "auto"  // Detect and auto-scale (default).
	WorkloadOff   WorkloadMode = "off"   // One file at a time, no scaling.
	WorkloadFixed WorkloadMode = "fixed" // Fixed intensity N, no scaling.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig] and
// then mutated by [ParseFlags] before being passed (by pointer) to packages
// that need it.
type Config struct {
	// Paths (set from positional args).
	InputDir  string
	OutputDir string

	// Image geometry. Every source image is converted to exactly
	// Width*Height*Channels normalized float32 values.
	Width    int // Default: 32.
	Height   int // Default: 32.
	Channels int // Default: 3 (RGB). 1 selects grayscale.

	// Batching and output.
	BatchSize    int          // Images per output file. Default: 1000.
	OutputFormat OutputFormat // Default: "text".
	Prefix       string       // Batch filename prefix. Default: "batch".
	LabelsPath   string       // Optional labels JSON; "" means <input>/labels.json if present.
	PoolSlack    int          // Extra pooled buffers beyond BatchSize. Default: 16.

	// Workload governor.
	ThermalMode        ThermalMode  // Default: "conservative".
	TargetCPUPct       int          // Default: 70.
	MaxSustainedCPUPct int          // Default: 80. Conservative-mode ceiling.
	Workload           WorkloadMode // Default: "auto".
	WorkloadN          int          // Fixed intensity when Workload == "fixed".
	ExpectedRate       float64      // Baseline img/s for the CPU-usage proxy. Default: 50.
	YieldFrequency     int          // Images per chunk at intensity 1. Default: 10.

	// Resource limits and cadence.
	MemoryCeilingMB     int // Forced cleanup threshold; 0 disables. Default: 0.
	ProgressEvery       int // Progress event cadence in images. Default: 100.
	MemCheckEvery       int // Memory-pressure check cadence in images. Default: 250.
	CleanupEveryBatches int // Forced cleanup cadence in flushed batches. Default: 5.

	// Behavior flags.
	ExpectedCount int    // Warn when discovery count differs; 0 disables.
	SingleFile    string // Convert one file as a diagnostic and exit.
	DryRun        bool   // Discover and plan only; write nothing.

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	LogFile   string    // Optional log file path.
	CheckOnly bool      // Run --check diagnostics and exit.
}

// DefaultConfig returns a Config with all defaults. Used as the base before
// [ParseFlags] applies CLI overrides.
func DefaultConfig() Config {
	return Config{
		Width:               32,
		Height:              32,
		Channels:            3,
		BatchSize:           1000,
		OutputFormat:        FormatText,
		Prefix:              "batch",
		PoolSlack:           16,
		ThermalMode:         ThermalConservative,
		TargetCPUPct:        70,
		MaxSustainedCPUPct:  80,
		Workload:            WorkloadAuto,
		ExpectedRate:        50,
		YieldFrequency:      10,
		MemoryCeilingMB:     0,
		ProgressEvery:       100,
		MemCheckEvery:       250,
		CleanupEveryBatches: 5,
		ColorMode:           ColorAuto,
	}
}

// VectorLen returns the expected element count of one converted image.
func (c *Config) VectorLen() int {
	return c.Width * c.Height * c.Channels
}

// PoolCap returns the buffer pool capacity bound (batch size plus slack).
func (c *Config) PoolCap() int {
	return c.BatchSize + c.PoolSlack
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields and numeric ranges. When not in CheckOnly or
// single-file mode it also requires both positional directory paths.
func (c *Config) Validate() error {
	switch c.OutputFormat {
	case FormatText, FormatBinary:
	default:
		return errors.New("invalid format (use 'text' or 'binary')")
	}

	switch c.ThermalMode {
	case ThermalConservative, ThermalPerformance:
	default:
		return errors.New("invalid mode (use 'conservative' or 'performance')")
	}

	switch c.Workload {
	case WorkloadAuto, WorkloadOff:
	case WorkloadFixed:
		if c.WorkloadN < 1 {
			return errors.New("fixed workload must be a positive integer")
		}
	default:
		return errors.New("invalid workload (use 'auto', 'off', or a positive integer)")
	}

	if c.Width < 1 || c.Height < 1 {
		return errors.New("width and height must be positive")
	}
	if c.Channels != 1 && c.Channels != 3 {
		return errors.New("channels must be 1 (grayscale) or 3 (RGB)")
	}
	if c.BatchSize < 1 {
		return errors.New("batch size must be positive")
	}
	if c.TargetCPUPct < 1 || c.TargetCPUPct > 100 {
		return errors.New("target CPU percent must be in 1..100")
	}
	if c.MaxSustainedCPUPct < 1 || c.MaxSustainedCPUPct > 100 {
		return errors.New("max sustained CPU percent must be in 1..100")
	}
	if c.MemoryCeilingMB < 0 {
		return errors.New("memory ceiling must be >= 0 (0 disables)")
	}
	if c.YieldFrequency < 1 {
		return errors.New("yield frequency must be positive")
	}

	if c.CheckOnly || c.SingleFile != "" {
		return nil
	}
	if c.InputDir == "" || c.OutputDir == "" {
		return errors.New("need exactly input_dir and output_dir")
	}
	return nil
}

// ValidatePaths ensures the resolved output directory is not inside (or equal
// to) the resolved input directory, so the pipeline never discovers or
// deletes its own output. Both arguments must be absolute, symlink-resolved
// paths.
func (c *Config) ValidatePaths(inputAbs, outputAbs string) error {
	sep := string(filepath.Separator)
	if outputAbs == inputAbs || strings.HasPrefix(outputAbs+sep, inputAbs+sep) {
		return errors.New("output directory must not be inside input directory")
	}
	return nil
}

// Ext returns the batch file extension for the configured output format.
func (c *Config) Ext() string {
	if c.OutputFormat == FormatBinary {
		return ".bin"
	}
	return ".json"
}

// Describe returns a one-line summary of the workload setting for logging.
func (c *Config) Describe() string {
	switch c.Workload {
	case WorkloadOff:
		return "off (single file at a time)"
	case WorkloadFixed:
		return fmt.Sprintf("fixed %d", c.WorkloadN)
	default:
		return "auto"
	}
}
