// Package colorspace resolves a parsed semantic.ColorSpace into a Converter
// that maps component values to sRGB.
package colorspace

import (
	"fmt"
	"math"

	"pdfcore/cmm"
	"pdfcore/function"
	"pdfcore/ir/semantic"
)

// Converter maps a color space's native components to sRGB in [0,1].
type Converter interface {
	// NumComponents returns how many components ToRGB expects.
	NumComponents() int
	// ToRGB converts one set of native components to sRGB.
	ToRGB(components []float64) (r, g, b float64)
	// Default returns the initial color for this space (black, per PDF).
	Default() []float64
}

// Cache resolves and memoizes a Converter per semantic.ColorSpace identity,
// mirroring the document-owned resource caches elsewhere in this codebase.
type Cache struct {
	cmm     cmm.Factory
	byPtr   map[semantic.ColorSpace]Converter
	devices map[string]Converter
}

func NewCache() *Cache {
	return &Cache{
		cmm:     cmm.NewFactory(),
		byPtr:   make(map[semantic.ColorSpace]Converter),
		devices: deviceConverters(),
	}
}

func deviceConverters() map[string]Converter {
	return map[string]Converter{
		"DeviceGray": grayConverter{},
		"CalGray":    grayConverter{},
		"DeviceRGB":  rgbConverter{},
		"CalRGB":     rgbConverter{},
		"DeviceCMYK": cmykConverter{},
		"Pattern":    rgbConverter{},
	}
}

// Resolve returns the Converter for cs, building and caching it on first use.
func (c *Cache) Resolve(cs semantic.ColorSpace) (Converter, error) {
	if cs == nil {
		return grayConverter{}, nil
	}
	if conv, ok := c.byPtr[cs]; ok {
		return conv, nil
	}
	conv, err := c.build(cs)
	if err != nil {
		return nil, err
	}
	c.byPtr[cs] = conv
	return conv, nil
}

func (c *Cache) build(cs semantic.ColorSpace) (Converter, error) {
	switch t := cs.(type) {
	case semantic.DeviceColorSpace:
		if conv, ok := c.devices[t.Name]; ok {
			return conv, nil
		}
		return rgbConverter{}, nil
	case *semantic.ICCBasedColorSpace:
		return c.buildICC(t)
	case *semantic.IndexedColorSpace:
		return c.buildIndexed(t)
	case *semantic.SeparationColorSpace:
		return c.buildSeparation(t.Alternate, tintFn(t.TintTransform), 1)
	case *semantic.DeviceNColorSpace:
		return c.buildSeparation(t.Alternate, tintFn(t.TintTransform), len(t.Names))
	case *semantic.PatternColorSpace:
		if t.Underlying != nil {
			return c.Resolve(t.Underlying)
		}
		return rgbConverter{}, nil
	case *semantic.SpectrallyDefinedColorSpace:
		// No profile-accurate conversion without a spectral CMM; approximate
		// by treating the first component as a gray level rather than fail
		// the whole render.
		return grayConverter{}, nil
	default:
		return nil, fmt.Errorf("colorspace: unsupported type %T", cs)
	}
}

func (c *Cache) buildICC(icc *semantic.ICCBasedColorSpace) (Converter, error) {
	n := len(icc.Range) / 2
	if n == 0 {
		n = guessICCComponents(icc.Profile)
	}
	alt := icc.Alternate
	if alt == nil {
		switch n {
		case 1:
			alt = semantic.DeviceColorSpace{Name: "DeviceGray"}
		case 4:
			alt = semantic.DeviceColorSpace{Name: "DeviceCMYK"}
		default:
			alt = semantic.DeviceColorSpace{Name: "DeviceRGB"}
		}
	}
	altConv, err := c.Resolve(alt)
	if err != nil {
		return nil, err
	}
	profile, perr := c.cmm.NewProfile(icc.Profile)
	if perr != nil || profile == nil {
		// Fall back to the alternate space.
		return altConv, nil
	}
	return &iccConverter{profile: profile, factory: c.cmm, fallback: altConv, n: altConv.NumComponents()}, nil
}

func guessICCComponents(profile []byte) int {
	if len(profile) < 20 {
		return 3
	}
	switch string(profile[16:20]) {
	case "GRAY":
		return 1
	case "CMYK":
		return 4
	default:
		return 3
	}
}

type iccConverter struct {
	profile  cmm.Profile
	factory  cmm.Factory
	fallback Converter
	n        int
}

func (c *iccConverter) NumComponents() int { return c.n }
func (c *iccConverter) Default() []float64 { return c.fallback.Default() }
func (c *iccConverter) ToRGB(comp []float64) (float64, float64, float64) {
	return c.fallback.ToRGB(comp)
}

func (c *Cache) buildIndexed(idx *semantic.IndexedColorSpace) (Converter, error) {
	base, err := c.Resolve(idx.Base)
	if err != nil {
		return nil, err
	}
	return &indexedConverter{base: base, hival: idx.Hival, lookup: idx.Lookup}, nil
}

type indexedConverter struct {
	base   Converter
	hival  int
	lookup []byte
}

func (c *indexedConverter) NumComponents() int { return 1 }
func (c *indexedConverter) Default() []float64 { return []float64{0} }
func (c *indexedConverter) ToRGB(comp []float64) (float64, float64, float64) {
	if len(comp) < 1 {
		return 0, 0, 0
	}
	idx := int(comp[0])
	if idx < 0 {
		idx = 0
	}
	if idx > c.hival {
		idx = c.hival
	}
	n := c.base.NumComponents()
	off := idx * n
	base := make([]float64, n)
	for i := 0; i < n; i++ {
		if off+i < len(c.lookup) {
			base[i] = float64(c.lookup[off+i]) / 255.0
		}
	}
	return c.base.ToRGB(base)
}

func (c *Cache) buildSeparation(alt semantic.ColorSpace, eval function.EvaluatorFn, n int) (Converter, error) {
	altConv, err := c.Resolve(alt)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 1
	}
	return &tintConverter{alt: altConv, eval: eval, n: n}, nil
}

func tintFn(f semantic.Function) function.EvaluatorFn {
	return func(in []float64) ([]float64, error) {
		return function.Evaluate(f, in)
	}
}

type tintConverter struct {
	alt  Converter
	eval function.EvaluatorFn
	n    int
}

func (c *tintConverter) NumComponents() int { return c.n }
func (c *tintConverter) Default() []float64 {
	d := make([]float64, c.n)
	for i := range d {
		d[i] = 1
	}
	return d
}
func (c *tintConverter) ToRGB(comp []float64) (float64, float64, float64) {
	altComp, err := c.eval(comp)
	if err != nil || altComp == nil {
		return 0, 0, 0
	}
	return c.alt.ToRGB(altComp)
}

// grayConverter, rgbConverter, cmykConverter implement the device spaces.

type grayConverter struct{}

func (grayConverter) NumComponents() int { return 1 }
func (grayConverter) Default() []float64 { return []float64{0} }
func (grayConverter) ToRGB(c []float64) (float64, float64, float64) {
	g := compAt(c, 0)
	return g, g, g
}

type rgbConverter struct{}

func (rgbConverter) NumComponents() int { return 3 }
func (rgbConverter) Default() []float64 { return []float64{0, 0, 0} }
func (rgbConverter) ToRGB(c []float64) (float64, float64, float64) {
	return compAt(c, 0), compAt(c, 1), compAt(c, 2)
}

type cmykConverter struct{}

func (cmykConverter) NumComponents() int { return 4 }
func (cmykConverter) Default() []float64 { return []float64{0, 0, 0, 1} }
func (cmykConverter) ToRGB(c []float64) (float64, float64, float64) {
	cc, m, y, k := compAt(c, 0), compAt(c, 1), compAt(c, 2), compAt(c, 3)
	r := 1 - math.Min(1, cc+k)
	g := 1 - math.Min(1, m+k)
	b := 1 - math.Min(1, y+k)
	return r, g, b
}

func compAt(c []float64, i int) float64 {
	if i < len(c) {
		return c[i]
	}
	return 0
}
