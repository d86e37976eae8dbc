// Package governor sizes the pipeline's processing chunks from detected
// hardware and a throughput-derived CPU-usage estimate, stepping intensity
// up or down by at most one per evaluation tick.
package governor

import (
	"time"

	"github.com/Andraszao/Image-Preprocessor/internal/config"
)

// evalPeriod is the wall-clock spacing between intensity evaluations.
const evalPeriod = 2 * time.Second

// State is a read-only snapshot of the governor for progress reporting.
type State struct {
	Intensity    int
	Optimum      int
	Mode         config.ThermalMode
	TargetCPUPct int
	ProxyUsage   float64
	Scaling      bool
}

// Governor owns the workload intensity dial. It has a single owner: the
// pipeline loop reads intensity and drives evaluation between chunks, so no
// locking is needed.
//
// CPU usage is a proxy derived from observed versus expected throughput
// (usage% = clamp(0, 100, (1 - observed/expected) * 100)), not an OS
// counter. Treat it as an estimate: a slow disk lowers throughput and
// raises the proxy exactly as a busy CPU would.
type Governor struct {
	mode            config.ThermalMode
	targetPct       int
	maxSustainedPct int
	expectedRate    float64

	optimum   int
	intensity int
	scaling   bool

	proxyUsage float64

	lastEval   time.Time
	lastImages int
}

// DetectOptimal returns the initial intensity for the given thermal mode
// and logical core count. Conservative mode keeps laptops cool: one image
// at a time up to four cores, two beyond that. Performance mode leaves one
// core free (two on large machines) and never goes below one.
func DetectOptimal(mode config.ThermalMode, cores int) int {
	if mode == config.ThermalConservative {
		if cores <= 4 {
			return 1
		}
		return 2
	}
	var n int
	switch {
	case cores <= 2:
		n = 1
	case cores <= 8:
		n = cores - 1
	default:
		n = cores - 2
	}
	if n < 1 {
		n = 1
	}
	return n
}

// New builds a governor from cfg and the logical core count (injectable for
// tests; callers pass runtime.NumCPU()). The workload override either fixes
// intensity or disables scaling entirely.
func New(cfg *config.Config, cores int, now time.Time) *Governor {
	g := &Governor{
		mode:            cfg.ThermalMode,
		targetPct:       cfg.TargetCPUPct,
		maxSustainedPct: cfg.MaxSustainedCPUPct,
		expectedRate:    cfg.ExpectedRate,
		lastEval:        now,
	}
	switch cfg.Workload {
	case config.WorkloadOff:
		g.optimum = 1
		g.intensity = 1
		g.scaling = false
	case config.WorkloadFixed:
		g.optimum = cfg.WorkloadN
		g.intensity = cfg.WorkloadN
		g.scaling = false
	default:
		g.optimum = DetectOptimal(cfg.ThermalMode, cores)
		g.intensity = g.optimum
		g.scaling = true
	}
	return g
}

// Intensity returns the current workload dial, always >= 1.
func (g *Governor) Intensity() int { return g.intensity }

// Optimum returns the detected (or overridden) upper bound for intensity.
func (g *Governor) Optimum() int { return g.optimum }

// ProxyUsage returns the last throughput-derived usage estimate in percent.
func (g *Governor) ProxyUsage() float64 { return g.proxyUsage }

// Scaling reports whether periodic evaluation is active.
func (g *Governor) Scaling() bool { return g.scaling }

// ChunkSize returns how many images to process before yielding:
// max(1, yieldFrequency / intensity).
func (g *Governor) ChunkSize(yieldFrequency int) int {
	n := yieldFrequency / g.intensity
	if n < 1 {
		n = 1
	}
	return n
}

// State returns a snapshot for progress events.
func (g *Governor) State() State {
	return State{
		Intensity:    g.intensity,
		Optimum:      g.optimum,
		Mode:         g.mode,
		TargetCPUPct: g.targetPct,
		ProxyUsage:   g.proxyUsage,
		Scaling:      g.scaling,
	}
}

// MaybeEvaluate runs one evaluation tick if the period has elapsed since the
// last one. imagesDone is the pipeline's cumulative processed count; the
// observed rate over the tick window feeds the usage proxy. Returns true
// when a tick ran.
func (g *Governor) MaybeEvaluate(imagesDone int, now time.Time) bool {
	if !g.scaling {
		return false
	}
	elapsed := now.Sub(g.lastEval)
	if elapsed < evalPeriod {
		return false
	}

	observed := float64(imagesDone-g.lastImages) / elapsed.Seconds()
	g.proxyUsage = usageProxy(observed, g.expectedRate)
	g.step()

	g.lastEval = now
	g.lastImages = imagesDone
	return true
}

// step applies the throttle/scale-up decision, moving intensity by at most
// one to avoid oscillation.
func (g *Governor) step() {
	threshold := float64(g.targetPct + 10)
	if g.mode == config.ThermalConservative {
		threshold = float64(g.maxSustainedPct + 5)
	}

	switch {
	case g.proxyUsage > threshold && g.intensity > 1:
		g.intensity--
	case g.proxyUsage < float64(g.targetPct-10) && g.intensity < g.optimum:
		g.intensity++
	}
}

// usageProxy maps an observed/expected throughput ratio onto a 0-100
// pseudo-CPU percentage.
func usageProxy(observed, expected float64) float64 {
	if expected <= 0 {
		return 0
	}
	u := (1 - observed/expected) * 100
	if u < 0 {
		return 0
	}
	if u > 100 {
		return 100
	}
	return u
}
