// Package batchio serializes converted image records into numbered batch
// files and reads them back. Two containers exist: a streamed JSON document
// and a fixed binary layout that is 50-70% smaller and parses without
// string allocation per float. Writes are at-most-once: a failed batch is
// reported and its data dropped, never retried.
package batchio

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Andraszao/Image-Preprocessor/internal/tensor"
)

// Container extensions and the per-record format tag in the text container.
const (
	TextExt   = ".json"
	BinaryExt = ".bin"
	formatTag = "float32"
)

// ErrIO marks batch files that could not be created or written.
var ErrIO = errors.New("batch write failed")

// Record is one converted image ready for serialization. Data still belongs
// to the buffer pool; the pipeline releases it after the batch flushes.
type Record struct {
	ID             string
	Data           *tensor.Image
	Label          string
	ConversionTime time.Duration
}

// Batch accumulates up to the configured batch size of records, keyed by
// id, and is flushed to exactly one output file.
type Batch struct {
	Number  int
	Records map[string]Record
}

// NewBatch returns an empty batch with the given sequence number.
func NewBatch(number, sizeHint int) *Batch {
	return &Batch{
		Number:  number,
		Records: make(map[string]Record, sizeHint),
	}
}

// Add inserts r, replacing any record with the same id.
func (b *Batch) Add(r Record) {
	b.Records[r.ID] = r
}

// Len returns the number of accumulated records.
func (b *Batch) Len() int { return len(b.Records) }

// Reset empties the batch and assigns the next sequence number. Batches are
// never partially reused across files.
func (b *Batch) Reset(number int) {
	b.Number = number
	b.Records = make(map[string]Record, len(b.Records))
}

// sortedIDs returns the batch's ids in stable order so output files are
// deterministic for a given input set.
func (b *Batch) sortedIDs() []string {
	ids := make([]string, 0, len(b.Records))
	for id := range b.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Writer flushes one batch to disk and reports the file it wrote.
type Writer interface {
	WriteBatch(b *Batch) (path string, err error)
}

// FileName builds the batch file name: <prefix>_<zero-padded number><ext>.
func FileName(prefix string, number int, ext string) string {
	return fmt.Sprintf("%s_%04d%s", prefix, number, ext)
}
