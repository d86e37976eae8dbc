package pipeline

import "time"

// RunStats accumulates the counters reported in the end-of-run summary.
type RunStats struct {
	Total     int // images discovered
	Processed int // images attempted
	Converted int // images that produced a tensor record

	DecodeFailed  int
	SizeMismatch  int
	DuplicateID   int // records displaced by a later file with the same id
	IOFailures    int // batches lost to write errors
	LabelsMissing int // records that fell back to the unknown label

	LabelsUnavailable bool // labels document requested but unusable

	Batches      int
	BytesWritten int64
	Cleanups     int

	Elapsed        time.Duration
	FinalIntensity int
	MemoryDelta    int64
}

// Failures counts per-image failures. Batch-level write failures are
// tracked separately in IOFailures.
func (s *RunStats) Failures() int {
	return s.DecodeFailed + s.SizeMismatch
}

// Throughput returns converted images per second over the whole run.
func (s *RunStats) Throughput() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Converted) / s.Elapsed.Seconds()
}

// Progress is a snapshot passed to an optional progress callback.
type Progress struct {
	Processed  int
	Total      int
	Throughput float64
	ETA        time.Duration
	Intensity  int
	ProxyUsage float64
}

// ProgressFunc receives periodic progress snapshots during a run.
type ProgressFunc func(Progress)
