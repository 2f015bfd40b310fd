package analysis

import (
	"math"
	"math/cmplx"
)

// FFT returns the discrete Fourier transform of data, zero-padded to the
// next power of two.
func FFT(data []float64) []complex128 {
	n := nextPow2(len(data))
	if n != len(data) {
		padded := make([]float64, n)
		copy(padded, data)
		data = padded
	}
	return fft(data)
}

func fft(data []float64) []complex128 {
	n := len(data)
	if n <= 1 {
		result := make([]complex128, n)
		for i := range data {
			result[i] = complex(data[i], 0)
		}
		return result
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)

	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}

	feven := fft(even)
	fodd := fft(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}

	return result
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// PowerSpectrum returns the magnitude of the non-negative frequency bins.
func PowerSpectrum(data []float64) []float64 {
	fft := FFT(data)
	ps := make([]float64, len(fft)/2)

	for i := range ps {
		ps[i] = cmplx.Abs(fft[i])
	}

	return ps
}

// DominantFrequency finds the strongest non-constant component of data
// sampled every dt seconds. It returns 0, 0 when there is no such
// component.
func DominantFrequency(data []float64, dt float64) (freq, power float64) {
	if len(data) < 4 || dt <= 0 {
		return 0, 0
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	centered := make([]float64, len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	ps := PowerSpectrum(centered)
	best := 1
	for k := 2; k < len(ps); k++ {
		if ps[k] > ps[best] {
			best = k
		}
	}
	if ps[best] < 1e-12 {
		return 0, 0
	}

	n := nextPow2(len(data))
	return float64(best) / (float64(n) * dt), ps[best]
}
