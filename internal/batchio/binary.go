package batchio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Binary container layout, all integers little-endian u32, floats IEEE-754
// float32 little-endian:
//
//	header (20 bytes): version, image count, width, height, channels
//	per record: len-prefixed id bytes, len-prefixed label bytes,
//	            float count, raw float32 data (no per-float framing)
const (
	BinaryVersion = 1
	headerSize    = 20
)

// BinaryWriter writes batches in the fixed binary container.
type BinaryWriter struct {
	Dir    string
	Prefix string

	Width    int
	Height   int
	Channels int
}

// WriteBatch writes b to <dir>/<prefix>_<number>.bin.
func (w *BinaryWriter) WriteBatch(b *Batch) (string, error) {
	path := filepath.Join(w.Dir, FileName(w.Prefix, b.Number, BinaryExt))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}

	bw := bufio.NewWriterSize(f, 64*1024)
	if err := w.stream(bw, b); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	return path, nil
}

func (w *BinaryWriter) stream(bw *bufio.Writer, b *Batch) error {
	var u32 [4]byte
	putU32 := func(v uint32) error {
		binary.LittleEndian.PutUint32(u32[:], v)
		_, err := bw.Write(u32[:])
		return err
	}

	// Header.
	if err := putU32(BinaryVersion); err != nil {
		return err
	}
	if err := putU32(uint32(b.Len())); err != nil {
		return err
	}
	if err := putU32(uint32(w.Width)); err != nil {
		return err
	}
	if err := putU32(uint32(w.Height)); err != nil {
		return err
	}
	if err := putU32(uint32(w.Channels)); err != nil {
		return err
	}

	for _, id := range b.sortedIDs() {
		rec := b.Records[id]
		if err := putU32(uint32(len(id))); err != nil {
			return err
		}
		if _, err := bw.WriteString(id); err != nil {
			return err
		}
		if err := putU32(uint32(len(rec.Label))); err != nil {
			return err
		}
		if _, err := bw.WriteString(rec.Label); err != nil {
			return err
		}
		if err := putU32(uint32(rec.Data.Len())); err != nil {
			return err
		}
		for _, v := range rec.Data.Data {
			binary.LittleEndian.PutUint32(u32[:], math.Float32bits(v))
			if _, err := bw.Write(u32[:]); err != nil {
				return err
			}
		}
	}
	return nil
}
