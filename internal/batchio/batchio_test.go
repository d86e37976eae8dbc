package batchio

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Andraszao/Image-Preprocessor/internal/tensor"
)

// makeBatch builds a batch of n small distinct images.
func makeBatch(t *testing.T, number, n int) *Batch {
	t.Helper()
	b := NewBatch(number, n)
	for i := 0; i < n; i++ {
		im := tensor.New(2, 2, 3)
		for j := range im.Data {
			im.Data[j] = float32(i)/100 + float32(j)/1000
		}
		b.Add(Record{
			ID:             string(rune('a' + i)),
			Data:           im,
			Label:          "label-" + string(rune('a'+i)),
			ConversionTime: time.Duration(i+1) * time.Millisecond,
		})
	}
	return b
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		number int
		ext    string
		want   string
	}{
		{"first batch", "batch", 0, TextExt, "batch_0000.json"},
		{"padded", "batch", 7, BinaryExt, "batch_0007.bin"},
		{"three digits", "cifar", 123, BinaryExt, "cifar_0123.bin"},
		{"overflow keeps digits", "batch", 12345, TextExt, "batch_12345.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FileName(tt.prefix, tt.number, tt.ext)
			if got != tt.want {
				t.Errorf("FileName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBatch_AddLenReset(t *testing.T) {
	b := NewBatch(0, 4)
	im := tensor.New(1, 1, 3)
	b.Add(Record{ID: "1", Data: im})
	b.Add(Record{ID: "2", Data: im})
	b.Add(Record{ID: "1", Data: im}) // replace, not grow
	if b.Len() != 2 {
		t.Errorf("Len = %d, want 2", b.Len())
	}
	b.Reset(1)
	if b.Len() != 0 || b.Number != 1 {
		t.Errorf("after Reset: len=%d number=%d", b.Len(), b.Number)
	}
}

// textRecord mirrors the documented text-container record shape.
type textRecord struct {
	ID               string    `json:"id"`
	Data             []float32 `json:"data"`
	Label            string    `json:"label"`
	ConversionTimeMS float64   `json:"conversion_time_ms"`
	Format           string    `json:"format"`
}

func TestTextWriter_DocumentShape(t *testing.T) {
	dir := t.TempDir()
	w := &TextWriter{Dir: dir, Prefix: "batch"}
	b := makeBatch(t, 3, 5)

	path, err := w.WriteBatch(b)
	if err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if filepath.Base(path) != "batch_0003.json" {
		t.Errorf("path = %s", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]textRecord
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(doc) != 5 {
		t.Fatalf("decoded %d records, want 5", len(doc))
	}
	for id, rec := range doc {
		want := b.Records[id]
		if rec.ID != id || rec.Format != "float32" {
			t.Errorf("record %s: id=%q format=%q", id, rec.ID, rec.Format)
		}
		if rec.Label != want.Label {
			t.Errorf("record %s: label = %q, want %q", id, rec.Label, want.Label)
		}
		if len(rec.Data) != want.Data.Len() {
			t.Fatalf("record %s: data len = %d, want %d", id, len(rec.Data), want.Data.Len())
		}
		for i := range rec.Data {
			if rec.Data[i] != want.Data.Data[i] {
				t.Errorf("record %s: data[%d] = %v, want %v", id, i, rec.Data[i], want.Data.Data[i])
			}
		}
		if rec.ConversionTimeMS <= 0 {
			t.Errorf("record %s: conversion_time_ms = %v", id, rec.ConversionTimeMS)
		}
	}
}

func TestTextWriter_BadDirectory(t *testing.T) {
	w := &TextWriter{Dir: filepath.Join(t.TempDir(), "missing", "deeper"), Prefix: "batch"}
	_, err := w.WriteBatch(makeBatch(t, 0, 1))
	if !errors.Is(err, ErrIO) {
		t.Errorf("err = %v, want ErrIO", err)
	}
}

func TestBinary_RoundTripBitExact(t *testing.T) {
	dir := t.TempDir()
	w := &BinaryWriter{Dir: dir, Prefix: "batch", Width: 2, Height: 2, Channels: 3}
	b := makeBatch(t, 0, 4)

	// Include awkward float values; they must survive bit-exactly.
	first := b.Records["a"]
	first.Data.Data[0] = float32(math.Pi)
	first.Data.Data[1] = math.Float32frombits(0x00000001) // smallest denormal
	first.Data.Data[2] = 1.0 / 3.0
	b.Records["a"] = first

	path, err := w.WriteBatch(b)
	if err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}

	hdr, records, err := ReadBinaryBatch(path)
	if err != nil {
		t.Fatalf("ReadBinaryBatch: %v", err)
	}
	if hdr.Version != BinaryVersion || hdr.Count != 4 || hdr.Width != 2 || hdr.Height != 2 || hdr.Channels != 3 {
		t.Fatalf("header = %+v", hdr)
	}
	if len(records) != 4 {
		t.Fatalf("parsed %d records, want 4", len(records))
	}
	for _, rec := range records {
		want, ok := b.Records[rec.ID]
		if !ok {
			t.Fatalf("unexpected id %q", rec.ID)
		}
		if rec.Label != want.Label {
			t.Errorf("%s: label = %q, want %q", rec.ID, rec.Label, want.Label)
		}
		if len(rec.Data) != want.Data.Len() {
			t.Fatalf("%s: len = %d, want %d", rec.ID, len(rec.Data), want.Data.Len())
		}
		for i := range rec.Data {
			if math.Float32bits(rec.Data[i]) != math.Float32bits(want.Data.Data[i]) {
				t.Errorf("%s: data[%d] = %x, want %x (not bit-exact)",
					rec.ID, i, math.Float32bits(rec.Data[i]), math.Float32bits(want.Data.Data[i]))
			}
		}
	}
}

func TestBinary_FileSmallerThanText(t *testing.T) {
	dir := t.TempDir()
	b := makeBatch(t, 0, 8)

	tw := &TextWriter{Dir: dir, Prefix: "text"}
	bw := &BinaryWriter{Dir: dir, Prefix: "bin", Width: 2, Height: 2, Channels: 3}

	textPath, err := tw.WriteBatch(b)
	if err != nil {
		t.Fatal(err)
	}
	binPath, err := bw.WriteBatch(b)
	if err != nil {
		t.Fatal(err)
	}

	ti, _ := os.Stat(textPath)
	bi, _ := os.Stat(binPath)
	if bi.Size() >= ti.Size() {
		t.Errorf("binary (%d bytes) not smaller than text (%d bytes)", bi.Size(), ti.Size())
	}
}

func TestReadBinaryBatch_Corrupt(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty file", nil},
		{"short header", []byte{1, 0, 0}},
		{"bad version", []byte{9, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}},
		{"truncated records", []byte{1, 0, 0, 0, 5, 0, 0, 0, 2, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".bin")
			if err := os.WriteFile(path, tt.data, 0o644); err != nil {
				t.Fatal(err)
			}
			_, _, err := ReadBinaryBatch(path)
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("err = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	w := &BinaryWriter{Dir: dir, Prefix: "batch", Width: 2, Height: 2, Channels: 3}

	b0 := makeBatch(t, 0, 3)
	b1 := makeBatch(t, 1, 2)
	if _, err := w.WriteBatch(b0); err != nil {
		t.Fatal(err)
	}
	if _, err := w.WriteBatch(b1); err != nil {
		t.Fatal(err)
	}

	ds, err := LoadDataset(dir, "batch")
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if ds.Len() != 5 {
		t.Fatalf("Len = %d, want 5", ds.Len())
	}
	if ds.Width != 2 || ds.Height != 2 || ds.Channels != 3 {
		t.Errorf("geometry = %dx%dx%d", ds.Width, ds.Height, ds.Channels)
	}
	if len(ds.IDs) != 5 || len(ds.Labels) != 5 {
		t.Errorf("parallel slices: %d ids, %d labels", len(ds.IDs), len(ds.Labels))
	}
	for i, v := range ds.Images {
		if v.N != 12 || v.Inc != 1 {
			t.Errorf("vector %d: N=%d Inc=%d", i, v.N, v.Inc)
		}
	}
}

func TestLoadDataset_NumericBatchOrder(t *testing.T) {
	dir := t.TempDir()
	w := &BinaryWriter{Dir: dir, Prefix: "batch", Width: 2, Height: 2, Channels: 3}

	// Past 9999 the zero padding stops aligning lexical and numeric order:
	// "batch_10000.bin" sorts before "batch_2000.bin" as a string.
	for _, bn := range []struct {
		number int
		id     string
	}{
		{10000, "late"},
		{2000, "early"},
	} {
		b := NewBatch(bn.number, 1)
		b.Add(Record{ID: bn.id, Data: tensor.New(2, 2, 3), Label: "x"})
		if _, err := w.WriteBatch(b); err != nil {
			t.Fatalf("WriteBatch %d: %v", bn.number, err)
		}
	}

	ds, err := LoadDataset(dir, "batch")
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	want := []string{"early", "late"}
	if len(ds.IDs) != 2 || ds.IDs[0] != want[0] || ds.IDs[1] != want[1] {
		t.Fatalf("got ids %v, want %v", ds.IDs, want)
	}
}

func TestLoadDataset_NoFiles(t *testing.T) {
	if _, err := LoadDataset(t.TempDir(), "batch"); err == nil {
		t.Error("LoadDataset of empty dir should fail")
	}
}
