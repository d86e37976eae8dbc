package check

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Andraszao/Image-Preprocessor/internal/config"
)

type mockLogger struct {
	infos, successes, warns, errors []string
}

func (m *mockLogger) record(dst *[]string, format string, args []interface{}) {
	*dst = append(*dst, fmt.Sprintf(format, args...))
}

func (m *mockLogger) Info(f string, a ...interface{})    { m.record(&m.infos, f, a) }
func (m *mockLogger) Success(f string, a ...interface{}) { m.record(&m.successes, f, a) }
func (m *mockLogger) Warn(f string, a ...interface{})    { m.record(&m.warns, f, a) }
func (m *mockLogger) Error(f string, a ...interface{})   { m.record(&m.errors, f, a) }

func TestRunCheck_HealthySystem(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	log := &mockLogger{}

	RunCheck(&cfg, log)

	if len(log.errors) > 0 {
		t.Fatalf("unexpected errors: %v", log.errors)
	}
	if len(log.successes) < 2 {
		t.Fatalf("want conversion and output successes, got %v", log.successes)
	}
	found := false
	for _, line := range log.infos {
		if strings.Contains(line, "intensity") {
			found = true
		}
	}
	if !found {
		t.Fatal("workload detection was not reported")
	}
}

func TestRunCheck_NoOutputDir(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OutputDir = ""
	log := &mockLogger{}

	RunCheck(&cfg, log)

	if len(log.warns) == 0 {
		t.Fatal("missing output directory should warn")
	}
	if len(log.errors) > 0 {
		t.Fatalf("unexpected errors: %v", log.errors)
	}
}
