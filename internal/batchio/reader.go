package batchio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/blas/blas32"
)

// ErrCorrupt marks binary batch files whose framing does not parse.
var ErrCorrupt = errors.New("corrupt binary batch")

// Parse sanity bounds: ids and labels are short strings, images are bounded
// by their u32 length prefix anyway but a cap catches garbage framing early.
const (
	maxStringLen = 1 << 16
	maxFloatLen  = 1 << 26
)

// BinaryHeader is the parsed 20-byte prefix of a binary batch file.
type BinaryHeader struct {
	Version  uint32
	Count    uint32
	Width    uint32
	Height   uint32
	Channels uint32
}

// LoadedRecord is one record parsed back from a binary batch file.
type LoadedRecord struct {
	ID    string
	Label string
	Data  []float32
}

// Vector returns a blas32 view over the record's float data, the shape
// training loops consume.
func (r *LoadedRecord) Vector() blas32.Vector {
	return blas32.Vector{N: len(r.Data), Inc: 1, Data: r.Data}
}

// ReadBinaryBatch parses one binary batch file. Floats round-trip bit-exact.
func ReadBinaryBatch(path string) (BinaryHeader, []LoadedRecord, error) {
	var hdr BinaryHeader

	f, err := os.Open(path)
	if err != nil {
		return hdr, nil, err
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 64*1024)
	var u32 [4]byte
	readU32 := func() (uint32, error) {
		if _, err := io.ReadFull(br, u32[:]); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint32(u32[:]), nil
	}

	fields := []*uint32{&hdr.Version, &hdr.Count, &hdr.Width, &hdr.Height, &hdr.Channels}
	for _, p := range fields {
		v, err := readU32()
		if err != nil {
			return hdr, nil, fmt.Errorf("%w: short header in %s", ErrCorrupt, path)
		}
		*p = v
	}
	if hdr.Version != BinaryVersion {
		return hdr, nil, fmt.Errorf("%w: unsupported version %d in %s", ErrCorrupt, hdr.Version, path)
	}

	records := make([]LoadedRecord, 0, hdr.Count)
	for i := uint32(0); i < hdr.Count; i++ {
		id, err := readString(br, readU32)
		if err != nil {
			return hdr, nil, fmt.Errorf("%w: record %d id in %s: %v", ErrCorrupt, i, path, err)
		}
		label, err := readString(br, readU32)
		if err != nil {
			return hdr, nil, fmt.Errorf("%w: record %d label in %s: %v", ErrCorrupt, i, path, err)
		}
		n, err := readU32()
		if err != nil || n > maxFloatLen {
			return hdr, nil, fmt.Errorf("%w: record %d float count in %s", ErrCorrupt, i, path)
		}
		data := make([]float32, n)
		for j := range data {
			bits, err := readU32()
			if err != nil {
				return hdr, nil, fmt.Errorf("%w: record %d truncated data in %s", ErrCorrupt, i, path)
			}
			data[j] = math.Float32frombits(bits)
		}
		records = append(records, LoadedRecord{ID: id, Label: label, Data: data})
	}
	return hdr, records, nil
}

func readString(br *bufio.Reader, readU32 func() (uint32, error)) (string, error) {
	n, err := readU32()
	if err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", fmt.Errorf("string length %d exceeds bound", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// Dataset is the runtime-loader view over a directory of binary batches:
// parallel id/label/vector slices ready for a training loop.
type Dataset struct {
	IDs    []string
	Labels []string
	Images []blas32.Vector

	Width    int
	Height   int
	Channels int
}

// Len returns the number of loaded images.
func (d *Dataset) Len() int { return len(d.Images) }

// LoadDataset reads every <prefix>_*.bin file under dir, in batch-number
// order, and concatenates their records. Batch numbers are parsed out of
// the filenames; zero padding alone stops ordering correctly past 9999.
func LoadDataset(dir, prefix string) (*Dataset, error) {
	pattern := filepath.Join(dir, prefix+"_*"+BinaryExt)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no batch files match %s", pattern)
	}
	sort.Slice(paths, func(i, j int) bool {
		a, aok := batchNumber(paths[i], prefix)
		b, bok := batchNumber(paths[j], prefix)
		if aok && bok && a != b {
			return a < b
		}
		if aok != bok {
			return aok
		}
		return paths[i] < paths[j]
	})

	ds := &Dataset{}
	for _, path := range paths {
		hdr, records, err := ReadBinaryBatch(path)
		if err != nil {
			return nil, err
		}
		ds.Width = int(hdr.Width)
		ds.Height = int(hdr.Height)
		ds.Channels = int(hdr.Channels)
		for i := range records {
			ds.IDs = append(ds.IDs, records[i].ID)
			ds.Labels = append(ds.Labels, records[i].Label)
			ds.Images = append(ds.Images, records[i].Vector())
		}
	}
	return ds, nil
}

// batchNumber extracts the numeric batch suffix from a batch file path.
func batchNumber(path, prefix string) (int, bool) {
	base := strings.TrimSuffix(filepath.Base(path), BinaryExt)
	digits := strings.TrimPrefix(base, prefix+"_")
	if digits == base {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}
