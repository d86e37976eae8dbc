package batchio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// TextWriter streams batches as a JSON document:
//
//	{"<id>": {"id": ..., "data": [...], "label": ..., "conversion_time_ms": ..., "format": "float32"}, ...}
//
// Records are serialized field by field through a buffered writer; the full
// document never exists as one in-memory string, so memory stays flat no
// matter the batch size.
type TextWriter struct {
	Dir    string
	Prefix string
}

// WriteBatch writes b to <dir>/<prefix>_<number>.json.
func (w *TextWriter) WriteBatch(b *Batch) (string, error) {
	path := filepath.Join(w.Dir, FileName(w.Prefix, b.Number, TextExt))
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

func (w *TextWriter) stream(bw *bufio.Writer, b *Batch) error {
	if err := bw.WriteByte('{'); err != nil {
		return err
	}

	var scratch [32]byte
	first := true
	for _, id := range b.sortedIDs() {
		rec := b.Records[id]
		if !first {
			if err := bw.WriteByte(','); err != nil {
				return err
			}
		}
		first = false

		key, err := json.Marshal(id)
		if err != nil {
			return err
		}
		label, err := json.Marshal(rec.Label)
		if err != nil {
			return err
		}

		bw.Write(key)
		bw.WriteString(`:{"id":`)
		bw.Write(key)
		bw.WriteString(`,"data":[`)
		for i, v := range rec.Data.Data {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.Write(strconv.AppendFloat(scratch[:0], float64(v), 'g', -1, 32))
		}
		bw.WriteString(`],"label":`)
		bw.Write(label)
		bw.WriteString(`,"conversion_time_ms":`)
		ms := float64(rec.ConversionTime.Microseconds()) / 1000
		bw.Write(strconv.AppendFloat(scratch[:0], ms, 'f', 3, 64))
		bw.WriteString(`,"format":"` + formatTag + `"}`)
	}

	return bw.WriteByte('}')
}
