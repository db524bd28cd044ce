package feature

import "math"

// Slaney-style mel scale: linear below 1 kHz, logarithmic above. This is the
// librosa default (htk=false) and must not change, or the filterbank will not
// match the one the classifier was trained against.
const (
	melLinearStep = 200.0 / 3.0
	melBreakHz    = 1000.0
	melBreak      = melBreakHz / melLinearStep
)

var melLogStep = math.Log(6.4) / 27.0

func hzToMel(hz float64) float64 {
	if hz < melBreakHz {
		return hz / melLinearStep
	}
	return melBreak + math.Log(hz/melBreakHz)/melLogStep
}

func melToHz(mel float64) float64 {
	if mel < melBreak {
		return mel * melLinearStep
	}
	return melBreakHz * math.Exp(melLogStep*(mel-melBreak))
}

// melFilterbank builds nMels triangular filters over the fftSize/2+1 power
// spectrum bins for the given sample rate, with Slaney area normalization.
// fmin is 0 and fmax is rate/2, matching the librosa defaults.
func melFilterbank(nMels, fftSize, rate int) [][]float64 {
	bins := fftSize/2 + 1
	fmax := float64(rate) / 2.0

	// Band edge frequencies: nMels+2 points equally spaced on the mel scale.
	melMax := hzToMel(fmax)
	edges := make([]float64, nMels+2)
	for i := range edges {
		edges[i] = melToHz(melMax * float64(i) / float64(nMels+1))
	}

	// Center frequency of every FFT bin.
	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = float64(k) * float64(rate) / float64(fftSize)
	}

	filters := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		row := make([]float64, bins)
		lower, center, upper := edges[m], edges[m+1], edges[m+2]
		// Slaney normalization keeps filter area constant across bands.
		enorm := 2.0 / (upper - lower)
		for k, f := range freqs {
			var w float64
			switch {
			case f <= lower || f >= upper:
				w = 0
			case f < center:
				w = (f - lower) / (center - lower)
			default:
				w = (upper - f) / (upper - center)
			}
			row[k] = w * enorm
		}
		filters[m] = row
	}
	return filters
}
