// Package function evaluates the PDF function types (sampled, exponential,
// stitching, PostScript calculator) used by Separation/DeviceN tint
// transforms and by shading color functions.
package function

import (
	"fmt"
	"math"

	"pdfcore/ir/semantic"
)

// EvaluatorFn adapts a resolved Function to a plain Go func, letting callers
// (e.g. colorspace tint transforms) hold an evaluator without importing the
// semantic.Function value itself.
type EvaluatorFn func(input []float64) ([]float64, error)

// Evaluate runs f on input, clamping to Domain first and to Range last (when
// the function declares a Range), matching the PDF function model.
func Evaluate(f semantic.Function, input []float64) ([]float64, error) {
	if f == nil {
		return nil, fmt.Errorf("function: nil function")
	}
	in := clampToDomain(input, f.FunctionDomain())

	var out []float64
	var err error
	switch t := f.(type) {
	case *semantic.SampledFunction:
		out, err = evalSampled(t, in)
	case *semantic.ExponentialFunction:
		out, err = evalExponential(t, in)
	case *semantic.StitchingFunction:
		out, err = evalStitching(t, in)
	case *semantic.PostScriptFunction:
		out, err = evalPostScript(t, in)
	default:
		return nil, fmt.Errorf("function: unsupported type %T", f)
	}
	if err != nil {
		return nil, err
	}
	return clampToRange(out, f.FunctionRange()), nil
}

func clampToDomain(in, domain []float64) []float64 {
	if len(domain) < 2*len(in) {
		return in
	}
	out := make([]float64, len(in))
	for i, v := range in {
		lo, hi := domain[2*i], domain[2*i+1]
		out[i] = clamp(v, lo, hi)
	}
	return out
}

func clampToRange(out, rng []float64) []float64 {
	if len(rng) < 2*len(out) {
		return out
	}
	for i := range out {
		lo, hi := rng[2*i], rng[2*i+1]
		out[i] = clamp(out[i], lo, hi)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func interpolate(x, xmin, xmax, ymin, ymax float64) float64 {
	if xmax == xmin {
		return ymin
	}
	return ymin + (x-xmin)*(ymax-ymin)/(xmax-xmin)
}

// evalExponential implements Type 2: f(x) = C0 + x^N * (C1 - C0).
func evalExponential(f *semantic.ExponentialFunction, in []float64) ([]float64, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("exponential function: expected 1 input, got %d", len(in))
	}
	c0, c1 := f.C0, f.C1
	if len(c0) == 0 {
		c0 = []float64{0}
	}
	if len(c1) == 0 {
		c1 = []float64{1}
	}
	n := len(c0)
	if len(c1) > n {
		n = len(c1)
	}
	out := make([]float64, n)
	x := in[0]
	xn := math.Pow(x, f.N)
	for i := 0; i < n; i++ {
		a, b := 0.0, 1.0
		if i < len(c0) {
			a = c0[i]
		}
		if i < len(c1) {
			b = c1[i]
		}
		out[i] = a + xn*(b-a)
	}
	return out, nil
}

// evalStitching implements Type 3: routes the single input into one of k
// subfunctions according to Domain/Bounds/Encode.
func evalStitching(f *semantic.StitchingFunction, in []float64) ([]float64, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("stitching function: expected 1 input, got %d", len(in))
	}
	if len(f.Functions) == 0 {
		return nil, fmt.Errorf("stitching function: no subfunctions")
	}
	x := in[0]
	domain := f.FunctionDomain()
	dlo, dhi := 0.0, 1.0
	if len(domain) >= 2 {
		dlo, dhi = domain[0], domain[1]
	}

	k := len(f.Functions)
	lo := dlo
	for i := 0; i < k; i++ {
		hi := dhi
		if i < len(f.Bounds) {
			hi = f.Bounds[i]
		}
		if i == k-1 || x < hi || (i < len(f.Bounds) && x == hi && i == k-1) {
			elo, ehi := 0.0, 1.0
			if 2*i+1 < len(f.Encode) {
				elo, ehi = f.Encode[2*i], f.Encode[2*i+1]
			}
			encoded := interpolate(x, lo, hi, elo, ehi)
			return Evaluate(f.Functions[i], []float64{encoded})
		}
		lo = hi
	}
	// x fell past the last bound; use the final subfunction.
	elo, ehi := 0.0, 1.0
	last := k - 1
	if 2*last+1 < len(f.Encode) {
		elo, ehi = f.Encode[2*last], f.Encode[2*last+1]
	}
	encoded := interpolate(x, lo, dhi, elo, ehi)
	return Evaluate(f.Functions[last], []float64{encoded})
}

// evalSampled implements Type 0 with multilinear interpolation over an
// m-dimensional sample grid (m = len(Size)).
func evalSampled(f *semantic.SampledFunction, in []float64) ([]float64, error) {
	m := len(f.Size)
	if m == 0 || len(in) != m {
		return nil, fmt.Errorf("sampled function: expected %d inputs, got %d", m, len(in))
	}
	nOut := len(f.FunctionRange()) / 2
	if nOut == 0 {
		return nil, fmt.Errorf("sampled function: missing Range")
	}
	domain := f.FunctionDomain()
	encode := f.Encode
	if len(encode) == 0 {
		encode = make([]float64, 2*m)
		for i := 0; i < m; i++ {
			encode[2*i] = 0
			encode[2*i+1] = float64(f.Size[i] - 1)
		}
	}
	decode := f.Decode
	if len(decode) == 0 {
		decode = f.FunctionRange()
	}

	// Map each input into sample-grid coordinates.
	e := make([]float64, m)
	for i := 0; i < m; i++ {
		dlo, dhi := 0.0, 1.0
		if 2*i+1 < len(domain) {
			dlo, dhi = domain[2*i], domain[2*i+1]
		}
		elo, ehi := encode[2*i], encode[2*i+1]
		v := interpolate(clamp(in[i], dlo, dhi), dlo, dhi, elo, ehi)
		e[i] = clamp(v, 0, float64(f.Size[i]-1))
	}

	out := make([]float64, nOut)
	corners := 1 << uint(m)
	for corner := 0; corner < corners; corner++ {
		weight := 1.0
		idx := make([]int, m)
		for i := 0; i < m; i++ {
			lo := int(math.Floor(e[i]))
			hi := lo + 1
			if hi > f.Size[i]-1 {
				hi = f.Size[i] - 1
			}
			frac := e[i] - float64(lo)
			if corner&(1<<uint(i)) != 0 {
				idx[i] = hi
				weight *= frac
			} else {
				idx[i] = lo
				weight *= 1 - frac
			}
		}
		if weight == 0 {
			continue
		}
		sampleOffset := 0
		stride := 1
		for i := 0; i < m; i++ {
			sampleOffset += idx[i] * stride
			stride *= f.Size[i]
		}
		for j := 0; j < nOut; j++ {
			raw := sampleBits(f.Samples, (sampleOffset*nOut+j)*f.BitsPerSample, f.BitsPerSample)
			out[j] += weight * raw
		}
	}

	maxVal := float64((uint64(1) << uint(f.BitsPerSample)) - 1)
	for j := 0; j < nOut; j++ {
		dlo, dhi := 0.0, 1.0
		if 2*j+1 < len(decode) {
			dlo, dhi = decode[2*j], decode[2*j+1]
		}
		out[j] = interpolate(out[j], 0, maxVal, dlo, dhi)
	}
	return out, nil
}

// sampleBits reads a bitWidth-bit big-endian unsigned sample starting at
// bitOffset within data, returned as a float64.
func sampleBits(data []byte, bitOffset, bitWidth int) float64 {
	var v uint64
	for i := 0; i < bitWidth; i++ {
		bit := bitOffset + i
		byteIdx := bit / 8
		if byteIdx >= len(data) {
			break
		}
		bitIdx := 7 - uint(bit%8)
		b := (data[byteIdx] >> bitIdx) & 1
		v = (v << 1) | uint64(b)
	}
	return float64(v)
}
