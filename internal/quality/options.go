package quality

const (
	defaultLowLogprob          = -0.5
	defaultVeryLowLogprob      = -2.0
	defaultHallucinationStreak = 3
)

// Options holds the judgment-call thresholds.
type Options struct {
	// LowLogprob flags a token or segment average as low confidence.
	LowLogprob float64
	// VeryLowLogprob flags a token or segment average as very low confidence.
	VeryLowLogprob float64
	// HallucinationStreak is the run of consecutive low-confidence tokens
	// treated as a possible hallucination.
	HallucinationStreak int
	// Averages holds provider segment-average logprobs per segment index.
	// They stand in for token values only in the average checks, never in
	// the lowest-token or streak checks.
	Averages [][]float64
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		LowLogprob:          defaultLowLogprob,
		VeryLowLogprob:      defaultVeryLowLogprob,
		HallucinationStreak: defaultHallucinationStreak,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LowLogprob == 0 {
		o.LowLogprob = d.LowLogprob
	}
	if o.VeryLowLogprob == 0 {
		o.VeryLowLogprob = d.VeryLowLogprob
	}
	if o.HallucinationStreak <= 0 {
		o.HallucinationStreak = d.HallucinationStreak
	}
	return o
}
