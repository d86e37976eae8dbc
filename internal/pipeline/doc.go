// Package pipeline orchestrates the full image-to-tensor run: directory
// discovery, chunked conversion under the workload governor, batch
// accumulation and flushing, progress reporting, memory-pressure cleanup,
// and the end-of-run summary and manifest.
//
// Run is the batch entrypoint; ConvertOne is the single-file diagnostic
// path. Per-image failures (undecodable files, wrong tensor lengths) are
// counted and skipped; a batch whose write fails is reported and dropped,
// never retried. Only an unusable source path or an empty listing abort
// the run.
package pipeline
