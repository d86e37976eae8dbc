package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	omwjson "github.com/sw965/omw/json"

	"github.com/Andraszao/Image-Preprocessor/internal/batchio"
	"github.com/Andraszao/Image-Preprocessor/internal/config"
	"github.com/Andraszao/Image-Preprocessor/internal/convert"
	"github.com/Andraszao/Image-Preprocessor/internal/display"
	"github.com/Andraszao/Image-Preprocessor/internal/governor"
	"github.com/Andraszao/Image-Preprocessor/internal/labels"
	"github.com/Andraszao/Image-Preprocessor/internal/logging"
	"github.com/Andraszao/Image-Preprocessor/internal/tensor"
)

// Manifest is written next to the batch files after a successful run so a
// consumer can load the output without re-deriving its geometry.
type Manifest struct {
	Prefix       string `json:"prefix"`
	Format       string `json:"format"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Channels     int    `json:"channels"`
	BatchSize    int    `json:"batch_size"`
	Batches      int    `json:"batches"`
	Images       int    `json:"images"`
	DecodeFailed int    `json:"decode_failed"`
	SizeMismatch int    `json:"size_mismatch"`
	DuplicateIDs int    `json:"duplicate_ids"`
	IOFailures   int    `json:"io_failures"`
	ElapsedMS    int64  `json:"elapsed_ms"`
}

// Run executes the full conversion pipeline described by cfg. Per-image
// failures are counted and skipped; only an unusable source path, an
// unreadable listing, or an empty listing abort the run.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger) (*RunStats, error) {
	return RunWithProgress(ctx, cfg, log, nil)
}

// RunWithProgress is Run with an optional progress callback, invoked at the
// same cadence as progress log lines.
func RunWithProgress(ctx context.Context, cfg *config.Config, log *logging.Logger, onProgress ProgressFunc) (*RunStats, error) {
	start := time.Now()
	stats := &RunStats{}

	if err := ValidateSourcePath(cfg.InputDir); err != nil {
		return stats, err
	}

	entries, err := Discover(cfg.InputDir)
	if err != nil {
		return stats, fmt.Errorf("%w: %v", ErrPathInvalid, err)
	}
	if len(entries) == 0 {
		return stats, fmt.Errorf("%w in %s", ErrNoImages, cfg.InputDir)
	}
	stats.Total = len(entries)

	if cfg.ExpectedCount > 0 && len(entries) != cfg.ExpectedCount {
		log.Warn("Expected %d images, found %d", cfg.ExpectedCount, len(entries))
	}

	gov := governor.New(cfg, runtime.NumCPU(), start)
	plannedBatches := (len(entries) + cfg.BatchSize - 1) / cfg.BatchSize
	log.Info("Found %d images in %s", len(entries), cfg.InputDir)
	log.Info("Plan: %d batches of up to %d, format %s (*%s), %dx%dx%d",
		plannedBatches, cfg.BatchSize, cfg.OutputFormat, cfg.Ext(), cfg.Width, cfg.Height, cfg.Channels)
	if gov.Scaling() {
		log.Info("Workload: adaptive, optimum %d (%s mode)", gov.Optimum(), cfg.ThermalMode)
	} else {
		log.Info("Workload: %s", cfg.Describe())
	}

	if cfg.DryRun {
		log.Info("Dry run, nothing written")
		stats.Elapsed = time.Since(start)
		stats.FinalIntensity = gov.Intensity()
		return stats, nil
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return stats, fmt.Errorf("%w: %v", ErrPathInvalid, err)
	}
	if n := cleanStale(cfg.OutputDir, cfg.Prefix); n > 0 {
		log.Warn("Removed %d stale output file(s) from %s", n, cfg.OutputDir)
	}

	lookup := loadLabels(cfg, log, stats)

	pool := tensor.NewPool(cfg.Width, cfg.Height, cfg.Channels, cfg.PoolCap())
	nrm := convert.New(cfg.Width, cfg.Height, cfg.Channels, pool)
	writer := newWriter(cfg)

	baseline := heapAlloc()
	batch := batchio.NewBatch(0, cfg.BatchSize)

	i := 0
	for i < len(entries) {
		if ctx.Err() != nil {
			log.Warn("Interrupted after %d images", stats.Processed)
			break
		}

		end := i + gov.ChunkSize(cfg.YieldFrequency)
		if end > len(entries) {
			end = len(entries)
		}
		for _, e := range entries[i:end] {
			processOne(e, cfg, nrm, pool, lookup, batch, log, stats)
			stats.Processed++

			if cfg.ProgressEvery > 0 && stats.Processed%cfg.ProgressEvery == 0 {
				emitProgress(start, gov, log, stats, onProgress)
			}
			if cfg.MemCheckEvery > 0 && stats.Processed%cfg.MemCheckEvery == 0 {
				checkMemory(baseline, cfg, pool, log, stats)
			}
			if batch.Len() >= cfg.BatchSize {
				flush(batch, writer, pool, cfg, log, stats)
			}
		}
		i = end

		gov.MaybeEvaluate(stats.Processed, time.Now())
		runtime.Gosched()
	}

	if batch.Len() > 0 {
		flush(batch, writer, pool, cfg, log, stats)
	}

	stats.Elapsed = time.Since(start)
	stats.FinalIntensity = gov.Intensity()
	stats.MemoryDelta = heapAlloc() - baseline

	writeManifest(cfg, log, stats)
	summarize(cfg, pool, log, stats)
	return stats, nil
}

func processOne(e FileEntry, cfg *config.Config, nrm *convert.Normalizer, pool *tensor.Pool,
	lookup *labels.Lookup, batch *batchio.Batch, log *logging.Logger, stats *RunStats) {

	t0 := time.Now()
	im, err := nrm.Convert(e.Path)
	if err != nil {
		stats.DecodeFailed++
		log.Debug("Skipping %s: %v", e.Path, err)
		return
	}
	if im.Len() != cfg.VectorLen() {
		stats.SizeMismatch++
		log.Debug("Skipping %s: got %d values, want %d", e.Path, im.Len(), cfg.VectorLen())
		pool.Release(im)
		return
	}

	label := lookup.Get(e.ID)

	// Two source files can share a base name ("0.png" and "0.jpg" both
	// become id "0"). The later file wins; the displaced record's buffer
	// goes back to the pool and the collision is counted.
	if prev, ok := batch.Records[e.ID]; ok {
		stats.DuplicateID++
		pool.Release(prev.Data)
		log.Warn("Duplicate id %q, %s replaces an earlier file", e.ID, e.Path)
	} else {
		stats.Converted++
		if label == labels.Unknown {
			stats.LabelsMissing++
		}
	}
	batch.Add(batchio.Record{
		ID:             e.ID,
		Data:           im,
		Label:          label,
		ConversionTime: time.Since(t0),
	})
}

func flush(batch *batchio.Batch, writer batchio.Writer, pool *tensor.Pool,
	cfg *config.Config, log *logging.Logger, stats *RunStats) {

	n := batch.Len()
	path, err := writer.WriteBatch(batch)
	if err != nil {
		stats.IOFailures++
		log.Error("Batch %04d lost (%d records): %v", batch.Number, n, err)
	} else {
		stats.Batches++
		if fi, err := os.Stat(path); err == nil {
			stats.BytesWritten += fi.Size()
		}
		log.Debug("Wrote batch %04d (%d records) to %s", batch.Number, n, path)
	}

	for _, rec := range batch.Records {
		pool.Release(rec.Data)
	}
	batch.Reset(batch.Number + 1)

	if cfg.CleanupEveryBatches > 0 && (stats.Batches+stats.IOFailures)%cfg.CleanupEveryBatches == 0 {
		forceCleanup(pool, stats)
	}
}

func emitProgress(start time.Time, gov *governor.Governor, log *logging.Logger,
	stats *RunStats, onProgress ProgressFunc) {

	elapsed := time.Since(start)
	tp := 0.0
	if elapsed > 0 {
		tp = float64(stats.Processed) / elapsed.Seconds()
	}
	eta := etaFor(stats.Total-stats.Processed, tp)

	log.Progress("[%d/%d] %s | ETA %s | intensity %d | est CPU %.0f%%",
		stats.Processed, stats.Total,
		display.FormatRate(tp), display.FormatETA(eta),
		gov.Intensity(), gov.ProxyUsage())

	if onProgress != nil {
		onProgress(Progress{
			Processed:  stats.Processed,
			Total:      stats.Total,
			Throughput: tp,
			ETA:        eta,
			Intensity:  gov.Intensity(),
			ProxyUsage: gov.ProxyUsage(),
		})
	}
}

// etaFor estimates time to finish remaining images at throughput images
// per second, keeping sub-second precision.
func etaFor(remaining int, throughput float64) time.Duration {
	if throughput <= 0 || remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining) / throughput * float64(time.Second))
}

func checkMemory(baseline int64, cfg *config.Config, pool *tensor.Pool,
	log *logging.Logger, stats *RunStats) {

	if cfg.MemoryCeilingMB <= 0 {
		return
	}
	delta := heapAlloc() - baseline
	ceiling := int64(cfg.MemoryCeilingMB) << 20
	if delta > ceiling {
		log.Warn("Heap grew %s past baseline (ceiling %s), draining pool",
			display.FormatBytes(delta), display.FormatBytes(ceiling))
		forceCleanup(pool, stats)
	}
}

func forceCleanup(pool *tensor.Pool, stats *RunStats) {
	pool.Drain()
	runtime.GC()
	stats.Cleanups++
}

func loadLabels(cfg *config.Config, log *logging.Logger, stats *RunStats) *labels.Lookup {
	path := cfg.LabelsPath
	if path == "" {
		candidate := filepath.Join(cfg.InputDir, "labels"+omwjson.EXTENSION)
		if _, err := os.Stat(candidate); err != nil {
			log.Debug("No labels document, all records labeled %q", labels.Unknown)
			return labels.Empty()
		}
		path = candidate
	}

	lookup, err := labels.Load(path)
	if err != nil {
		stats.LabelsUnavailable = true
		log.Warn("Labels unavailable (%v), all records labeled %q", err, labels.Unknown)
		return lookup
	}
	log.Info("Loaded %d labels from %s", lookup.Len(), path)
	return lookup
}

func newWriter(cfg *config.Config) batchio.Writer {
	if cfg.OutputFormat == config.FormatBinary {
		return &batchio.BinaryWriter{
			Dir:      cfg.OutputDir,
			Prefix:   cfg.Prefix,
			Width:    cfg.Width,
			Height:   cfg.Height,
			Channels: cfg.Channels,
		}
	}
	return &batchio.TextWriter{Dir: cfg.OutputDir, Prefix: cfg.Prefix}
}

// cleanStale removes leftover batch files and manifest from a previous run
// with the same prefix, so a rerun never mixes old output with new.
func cleanStale(outputDir, prefix string) int {
	removed := 0
	for _, pattern := range []string{
		prefix + "_*" + batchio.TextExt,
		prefix + "_*" + batchio.BinaryExt,
	} {
		matches, err := filepath.Glob(filepath.Join(outputDir, pattern))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if os.Remove(m) == nil {
				removed++
			}
		}
	}
	if os.Remove(filepath.Join(outputDir, "manifest"+omwjson.EXTENSION)) == nil {
		removed++
	}
	return removed
}

func writeManifest(cfg *config.Config, log *logging.Logger, stats *RunStats) {
	m := Manifest{
		Prefix:       cfg.Prefix,
		Format:       string(cfg.OutputFormat),
		Width:        cfg.Width,
		Height:       cfg.Height,
		Channels:     cfg.Channels,
		BatchSize:    cfg.BatchSize,
		Batches:      stats.Batches,
		Images:       stats.Converted,
		DecodeFailed: stats.DecodeFailed,
		SizeMismatch: stats.SizeMismatch,
		DuplicateIDs: stats.DuplicateID,
		IOFailures:   stats.IOFailures,
		ElapsedMS:    stats.Elapsed.Milliseconds(),
	}
	path := filepath.Join(cfg.OutputDir, "manifest"+omwjson.EXTENSION)
	if err := omwjson.Write(&m, path); err != nil {
		log.Warn("Could not write manifest: %v", err)
	}
}

func summarize(cfg *config.Config, pool *tensor.Pool, log *logging.Logger, stats *RunStats) {
	log.Info("========================================")
	log.Success("Converted %d/%d images into %d batches", stats.Converted, stats.Total, stats.Batches)
	log.Info("  Elapsed %s at %s", stats.Elapsed.Round(time.Millisecond), display.FormatRate(stats.Throughput()))
	log.Info("  Output %s in %s", display.FormatBytes(stats.BytesWritten), cfg.OutputDir)
	log.Info("  Heap delta %s, %d forced cleanup(s)", display.FormatBytesWithSign(stats.MemoryDelta), stats.Cleanups)

	allocs, reuses, drops := pool.Stats()
	log.Debug("  Pool: %d alloc(s), %d reuse(s), %d drop(s)", allocs, reuses, drops)

	if stats.DecodeFailed > 0 {
		log.Warn("  %d image(s) failed to decode", stats.DecodeFailed)
	}
	if stats.SizeMismatch > 0 {
		log.Warn("  %d image(s) produced the wrong tensor length", stats.SizeMismatch)
	}
	if stats.DuplicateID > 0 {
		log.Warn("  %d record(s) displaced by duplicate ids", stats.DuplicateID)
	}
	if stats.IOFailures > 0 {
		log.Warn("  %d batch(es) lost to write failures", stats.IOFailures)
	}
	if stats.LabelsMissing > 0 {
		log.Warn("  %d record(s) labeled %q", stats.LabelsMissing, labels.Unknown)
	}
}

func heapAlloc() int64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.HeapAlloc)
}
