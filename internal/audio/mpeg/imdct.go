package mpeg

import "math"

// imdctLong computes the 36-point inverse modified DCT the standard
// defines for long blocks: x[n] = sum_k X[k]*cos(pi/(2N)*(2n+1+N/2)*(2k+1)).
func imdctLong(in [18]float64) [36]float64 {
	const n = 36
	var out [36]float64
	for i := 0; i < n; i++ {
		var sum float64
		for k := 0; k < 18; k++ {
			sum += in[k] * math.Cos(math.Pi/(2*n)*float64(2*i+1+n/2)*float64(2*k+1))
		}
		out[i] = sum
	}
	return out
}

// imdctShort computes the 12-point inverse modified DCT used for each
// of a short block's three windows.
func imdctShort(in [6]float64) [12]float64 {
	const n = 12
	var out [12]float64
	for i := 0; i < n; i++ {
		var sum float64
		for k := 0; k < 6; k++ {
			sum += in[k] * math.Cos(math.Pi/(2*n)*float64(2*i+1+n/2)*float64(2*k+1))
		}
		out[i] = sum
	}
	return out
}

// windowLong holds the standard sine window for block_type 0 (normal).
var windowLong = func() [36]float64 {
	var w [36]float64
	for i := range w {
		w[i] = math.Sin(math.Pi / 36 * (float64(i) + 0.5))
	}
	return w
}()

// windowStart holds the block_type 1 (start) window.
var windowStart = func() [36]float64 {
	var w [36]float64
	for i := 0; i < 18; i++ {
		w[i] = math.Sin(math.Pi / 36 * (float64(i) + 0.5))
	}
	for i := 18; i < 24; i++ {
		w[i] = 1
	}
	for i := 24; i < 30; i++ {
		w[i] = math.Sin(math.Pi / 12 * (float64(i-18) + 0.5))
	}
	return w
}()

// windowStop holds the block_type 3 (stop) window, the mirror of
// windowStart.
var windowStop = func() [36]float64 {
	var w [36]float64
	for i := 6; i < 12; i++ {
		w[i] = math.Sin(math.Pi / 12 * (float64(i-6) + 0.5))
	}
	for i := 12; i < 18; i++ {
		w[i] = 1
	}
	for i := 18; i < 36; i++ {
		w[i] = math.Sin(math.Pi / 36 * (float64(i) + 0.5))
	}
	return w
}()

// windowShort holds the block_type 2 window applied to each of the
// three 12-point short-block IMDCT outputs before they are interleaved.
var windowShort = func() [12]float64 {
	var w [12]float64
	for i := range w {
		w[i] = math.Sin(math.Pi / 12 * (float64(i) + 0.5))
	}
	return w
}()

// applyWindow multiplies a long-block IMDCT output by the window for
// the given block type (0=normal, 1=start, 2=short handled by the
// caller via windowShort, 3=stop).
func applyWindow(blockType int, x [36]float64) [36]float64 {
	var w [36]float64
	switch blockType {
	case 1:
		w = windowStart
	case 3:
		w = windowStop
	default:
		w = windowLong
	}
	for i := range x {
		x[i] *= w[i]
	}
	return x
}
