package tuning

import "gonum.org/v1/gonum/stat"

// AdaptiveTuner tracks observed compression ratio and throughput across
// calls and nudges AutoPolicy's choice, the Go-idiomatic generalization of
// original_source/blosc/btune.c's running counters (it mutates a forced
// policy based on recent chunk outcomes rather than recomputing everything
// from scratch every time). Library: gonum.org/v1/gonum/stat, a direct
// pack dependency (go.mod: gonum.org/v1/gonum), applied here because this
// is the one tuning decision that is explicitly statistical rather than a
// fixed table lookup.
type AdaptiveTuner struct {
	ratios  []float64
	speeds  []float64
	window  int
}

// NewAdaptiveTuner keeps the last window observations (btune.c keeps a
// small fixed-size history rather than an unbounded one).
func NewAdaptiveTuner(window int) *AdaptiveTuner {
	if window <= 0 {
		window = 16
	}
	return &AdaptiveTuner{window: window}
}

// Observe records one chunk's outcome: ratio = nbytes/cbytes (higher is
// better), mbPerSec = throughput.
func (t *AdaptiveTuner) Observe(ratio, mbPerSec float64) {
	t.ratios = appendWindow(t.ratios, ratio, t.window)
	t.speeds = appendWindow(t.speeds, mbPerSec, t.window)
}

func appendWindow(s []float64, v float64, window int) []float64 {
	s = append(s, v)
	if len(s) > window {
		s = s[len(s)-window:]
	}
	return s
}

// Stats returns the rolling mean and standard deviation of the observed
// compression ratio, or ok=false if there is no history yet.
func (t *AdaptiveTuner) Stats() (meanRatio, stdRatio float64, ok bool) {
	if len(t.ratios) == 0 {
		return 0, 0, false
	}
	meanRatio, stdRatio = stat.MeanStdDev(t.ratios, nil)
	return meanRatio, stdRatio, true
}

// ShouldEscalate reports whether the tuner recommends moving to a higher
// compression level: the recent ratio trend is below its own rolling mean
// minus one standard deviation (ratio is degrading) while throughput
// headroom remains (speed mean is above minMBPerSec), mirroring btune.c's
// "compression is getting worse, but we can afford to spend more time"
// branch.
func (t *AdaptiveTuner) ShouldEscalate(minMBPerSec float64) bool {
	if len(t.ratios) < 2 {
		return false
	}
	meanRatio, stdRatio, _ := t.Stats()
	last := t.ratios[len(t.ratios)-1]
	meanSpeed := stat.Mean(t.speeds, nil)
	return last < meanRatio-stdRatio && meanSpeed > minMBPerSec
}
