package governor

import (
	"testing"
	"time"

	"github.com/Andraszao/Image-Preprocessor/internal/config"
)

func TestDetectOptimal(t *testing.T) {
	tests := []struct {
		name  string
		mode  config.ThermalMode
		cores int
		want  int
	}{
		{"conservative 1 core", config.ThermalConservative, 1, 1},
		{"conservative 4 cores", config.ThermalConservative, 4, 1},
		{"conservative 8 cores", config.ThermalConservative, 8, 2},
		{"conservative 32 cores", config.ThermalConservative, 32, 2},
		{"performance 1 core", config.ThermalPerformance, 1, 1},
		{"performance 2 cores", config.ThermalPerformance, 2, 1},
		{"performance 4 cores", config.ThermalPerformance, 4, 3},
		{"performance 8 cores", config.ThermalPerformance, 8, 7},
		{"performance 12 cores", config.ThermalPerformance, 12, 10},
		{"performance 32 cores", config.ThermalPerformance, 32, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectOptimal(tt.mode, tt.cores)
			if got != tt.want {
				t.Errorf("DetectOptimal(%s, %d) = %d, want %d", tt.mode, tt.cores, got, tt.want)
			}
		})
	}
}

func newGov(t *testing.T, mut func(*config.Config)) (*Governor, time.Time) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ThermalMode = config.ThermalPerformance
	if mut != nil {
		mut(&cfg)
	}
	start := time.Unix(1000, 0)
	return New(&cfg, 8, start), start
}

func TestOverrides(t *testing.T) {
	gOff, _ := newGov(t, func(c *config.Config) { c.Workload = config.WorkloadOff })
	if gOff.Intensity() != 1 || gOff.Scaling() {
		t.Errorf("off: intensity=%d scaling=%v, want 1/false", gOff.Intensity(), gOff.Scaling())
	}
	if gOff.MaybeEvaluate(500, time.Unix(2000, 0)) {
		t.Error("off: evaluation tick must not run")
	}

	gFixed, _ := newGov(t, func(c *config.Config) { c.Workload = config.WorkloadFixed; c.WorkloadN = 3 })
	if gFixed.Intensity() != 3 || gFixed.Scaling() {
		t.Errorf("fixed: intensity=%d scaling=%v, want 3/false", gFixed.Intensity(), gFixed.Scaling())
	}
}

func TestMaybeEvaluate_RespectsPeriod(t *testing.T) {
	g, start := newGov(t, nil)
	if g.MaybeEvaluate(10, start.Add(500*time.Millisecond)) {
		t.Error("tick ran before the evaluation period elapsed")
	}
	if !g.MaybeEvaluate(10, start.Add(3*time.Second)) {
		t.Error("tick did not run after the period elapsed")
	}
}

func TestThrottle_StepsDownByOne(t *testing.T) {
	g, start := newGov(t, nil) // performance, 8 cores -> optimum 7
	before := g.Intensity()

	// Zero throughput over the window -> proxy usage 100% -> throttle.
	g.MaybeEvaluate(0, start.Add(3*time.Second))
	if g.Intensity() != before-1 {
		t.Errorf("intensity = %d after throttle tick, want %d", g.Intensity(), before-1)
	}
}

func TestScaleUp_StepsUpByOne(t *testing.T) {
	g, start := newGov(t, nil)
	now := start

	// Drive intensity down to 1 with zero-throughput ticks.
	for i := 0; i < 10; i++ {
		now = now.Add(3 * time.Second)
		g.MaybeEvaluate(0, now)
	}
	if g.Intensity() != 1 {
		t.Fatalf("intensity = %d, want 1 after sustained throttling", g.Intensity())
	}

	// Throughput at the expected baseline -> proxy usage 0% -> scale up.
	images := 0
	now = now.Add(3 * time.Second)
	images += 150 // 50 img/s for 3s
	g.MaybeEvaluate(images, now)
	if g.Intensity() != 2 {
		t.Errorf("intensity = %d after scale-up tick, want 2", g.Intensity())
	}
}

func TestIntensity_StaysInBounds(t *testing.T) {
	g, start := newGov(t, nil)
	now := start
	images := 0
	prev := g.Intensity()

	for i := 0; i < 50; i++ {
		now = now.Add(3 * time.Second)
		if i%2 == 0 {
			images += 1000 // fast window: scale up pressure
		} // slow window otherwise: throttle pressure
		g.MaybeEvaluate(images, now)

		cur := g.Intensity()
		if cur < 1 || cur > g.Optimum() {
			t.Fatalf("intensity %d out of [1, %d]", cur, g.Optimum())
		}
		if diff := cur - prev; diff < -1 || diff > 1 {
			t.Fatalf("intensity jumped by %d in one tick", diff)
		}
		prev = cur
	}
}

func TestConservativeThreshold(t *testing.T) {
	g, start := newGov(t, func(c *config.Config) {
		c.ThermalMode = config.ThermalConservative
		c.Workload = config.WorkloadFixed
		c.WorkloadN = 2
	})
	_ = start
	// Fixed override disables ticking; verify via State that the mode and
	// bounds are reported for progress lines.
	st := g.State()
	if st.Mode != config.ThermalConservative || st.Intensity != 2 {
		t.Errorf("state = %+v", st)
	}
}

func TestChunkSize(t *testing.T) {
	tests := []struct {
		name      string
		intensity int
		yieldFreq int
		want      int
	}{
		{"intensity 1", 1, 10, 10},
		{"intensity 2", 2, 10, 5},
		{"intensity 3 floors", 3, 10, 3},
		{"never below 1", 16, 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newGov(t, func(c *config.Config) {
				c.Workload = config.WorkloadFixed
				c.WorkloadN = tt.intensity
			})
			if got := g.ChunkSize(tt.yieldFreq); got != tt.want {
				t.Errorf("ChunkSize(%d) = %d, want %d", tt.yieldFreq, got, tt.want)
			}
		})
	}
}

func TestUsageProxy(t *testing.T) {
	tests := []struct {
		name     string
		observed float64
		expected float64
		want     float64
	}{
		{"zero throughput", 0, 50, 100},
		{"at baseline", 50, 50, 0},
		{"half baseline", 25, 50, 50},
		{"above baseline clamps", 100, 50, 0},
		{"zero baseline", 10, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usageProxy(tt.observed, tt.expected)
			if got != tt.want {
				t.Errorf("usageProxy(%v, %v) = %v, want %v", tt.observed, tt.expected, got, tt.want)
			}
		})
	}
}
