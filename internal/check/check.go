// Package check provides the --check diagnostics: codec availability,
// workload detection, and a write test against the output directory.
package check

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Andraszao/Image-Preprocessor/internal/config"
	"github.com/Andraszao/Image-Preprocessor/internal/convert"
	"github.com/Andraszao/Image-Preprocessor/internal/governor"
	"github.com/Andraszao/Image-Preprocessor/internal/tensor"
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
}

// RunCheck runs the interactive --check flow: reports core counts and
// workload detection for both thermal modes, round-trips a synthetic PNG
// through the conversion path, and verifies the output directory is
// writable. Informational only, never stops on failure.
func RunCheck(cfg *config.Config, log Logger) {
	log.Info("=== System Check ===")

	checkWorkload(log)
	checkConversion(cfg, log)
	checkOutput(cfg, log)
}

func checkWorkload(log Logger) {
	cores := runtime.NumCPU()
	log.Info("CPU: %d logical core(s), GOMAXPROCS %d", cores, runtime.GOMAXPROCS(0))
	log.Info("  %s mode would run intensity %d", config.ThermalConservative,
		governor.DetectOptimal(config.ThermalConservative, cores))
	log.Info("  %s mode would run intensity %d", config.ThermalPerformance,
		governor.DetectOptimal(config.ThermalPerformance, cores))
}

// checkConversion encodes a small PNG in memory, decodes and normalizes it,
// and verifies the resulting tensor values are sane.
func checkConversion(cfg *config.Config, log Logger) {
	log.Info("Testing PNG decode and normalization...")

	src := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			src.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		log.Error("PNG encoder unavailable: %v", err)
		return
	}

	tmp, err := os.CreateTemp("", "imageprep-check-*.png")
	if err != nil {
		log.Error("Could not create temp file: %v", err)
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		log.Error("Could not write temp file: %v", err)
		return
	}
	tmp.Close()

	pool := tensor.NewPool(cfg.Width, cfg.Height, cfg.Channels, 1)
	nrm := convert.New(cfg.Width, cfg.Height, cfg.Channels, pool)
	t0 := time.Now()
	im, err := nrm.Convert(tmp.Name())
	if err != nil {
		log.Error("Conversion self-test failed: %v", err)
		return
	}
	defer pool.Release(im)

	if lo, hi := im.Min(), im.Max(); lo < 0 || hi > 1 {
		log.Error("Normalized values out of range: [%f, %f]", lo, hi)
		return
	}
	log.Success("Decode and normalize work (%dx%dx%d in %s)",
		cfg.Width, cfg.Height, cfg.Channels, time.Since(t0).Round(time.Microsecond))
}

func checkOutput(cfg *config.Config, log Logger) {
	if cfg.OutputDir == "" {
		log.Warn("No output directory configured, skipping write test")
		return
	}
	log.Info("Testing output directory %s...", cfg.OutputDir)
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Error("Could not create output directory: %v", err)
		return
	}
	probe := filepath.Join(cfg.OutputDir, ".imageprep-write-test")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		log.Error("Output directory not writable: %v", err)
		return
	}
	os.Remove(probe)
	log.Success("Output directory is writable")
}
