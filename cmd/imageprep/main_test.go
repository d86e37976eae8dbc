package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	im := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			im.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, im); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func runWithArgs(t *testing.T, args ...string) int {
	t.Helper()
	saved := os.Args
	t.Cleanup(func() { os.Args = saved })
	os.Args = append([]string{"imageprep"}, args...)
	return run()
}

func TestRun_DryRunLeavesOutputAbsent(t *testing.T) {
	in := t.TempDir()
	writeTestPNG(t, filepath.Join(in, "0.png"))
	out := filepath.Join(t.TempDir(), "out")

	if code := runWithArgs(t, "--dry-run", "--no-color", in, out); code != 0 {
		t.Fatalf("exit code %d, want 0", code)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatal("dry run created the output directory")
	}
}

func TestRun_WritesOutput(t *testing.T) {
	in := t.TempDir()
	writeTestPNG(t, filepath.Join(in, "0.png"))
	out := filepath.Join(t.TempDir(), "out")

	if code := runWithArgs(t, "--no-color", in, out); code != 0 {
		t.Fatalf("exit code %d, want 0", code)
	}
	matches, err := filepath.Glob(filepath.Join(out, "batch_*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d batch file(s), want 1", len(matches))
	}
}
