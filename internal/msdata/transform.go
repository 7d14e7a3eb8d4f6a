package msdata

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"
)

// Retention time transformation models
const (
	ModelNone         = `none`
	ModelIdentity     = `identity`
	ModelLinear       = `linear`
	ModelInterpolated = `interpolated`
	ModelBSpline      = `b_spline`
	ModelLowess       = `lowess`
)

// ErrUnknownModel means the transformation model cannot be handled
var ErrUnknownModel = errors.New("msdata: unknown transformation model")

// RTPair maps a retention time before alignment to one after
type RTPair struct {
	From float64
	To   float64
}

// Transformation describes a retention time alignment
type Transformation struct {
	Model  string
	Params map[string]float64
	Pairs  []RTPair

	fitted    bool
	slope     float64
	intercept float64
	xs, ys    []float64 // Data points of interpolated models
	pl        *interp.PiecewiseLinear
}

// Fit prepares the transformation for Apply.
// Linear models use the slope/intercept parameters when present,
// otherwise they are fitted to the data points by least squares.
// Smoothing models (b_spline, lowess) are approximated by piecewise
// linear interpolation of the data points.
func (t *Transformation) Fit() error {
	t.pl = nil
	switch t.Model {
	case ``, ModelNone, ModelIdentity:
		t.slope, t.intercept = 1, 0
	case ModelLinear:
		slope, okS := t.Params[`slope`]
		intercept, okI := t.Params[`intercept`]
		if okS && okI {
			t.slope, t.intercept = slope, intercept
			break
		}
		if len(t.Pairs) < 2 {
			return errors.New("msdata: linear transformation needs at least 2 data points")
		}
		xs, ys := t.xy()
		t.intercept, t.slope = stat.LinearRegression(xs, ys, nil, false)
	case ModelInterpolated, ModelBSpline, ModelLowess:
		xs, ys := t.uniqueXY()
		if len(xs) < 2 {
			return errors.New("msdata: interpolated transformation needs at least 2 distinct data points")
		}
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, ys); err != nil {
			return err
		}
		t.xs, t.ys = xs, ys
		t.pl = &pl
	default:
		return ErrUnknownModel
	}
	t.fitted = true
	return nil
}

// Fitted returns true after a successful Fit
func (t *Transformation) Fitted() bool { return t.fitted }

// Apply transforms a retention time. Outside of the range of the
// data points, interpolated models extrapolate linearly from the
// outermost segment. A transformation that was never fitted is the
// identity.
func (t *Transformation) Apply(rt float64) float64 {
	if !t.fitted {
		return rt
	}
	if t.pl == nil {
		return t.slope*rt + t.intercept
	}
	xs, ys := t.xs, t.ys
	n := len(xs)
	switch {
	case rt < xs[0]:
		return ys[0] + (rt-xs[0])*(ys[1]-ys[0])/(xs[1]-xs[0])
	case rt > xs[n-1]:
		return ys[n-1] + (rt-xs[n-1])*(ys[n-1]-ys[n-2])/(xs[n-1]-xs[n-2])
	}
	return t.pl.Predict(rt)
}

func (t *Transformation) xy() ([]float64, []float64) {
	xs := make([]float64, len(t.Pairs))
	ys := make([]float64, len(t.Pairs))
	for i, p := range t.Pairs {
		xs[i] = p.From
		ys[i] = p.To
	}
	return xs, ys
}

// uniqueXY returns the data points sorted by From, averaging the To
// values of points with equal From
func (t *Transformation) uniqueXY() ([]float64, []float64) {
	pairs := append([]RTPair(nil), t.Pairs...)
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].From < pairs[j].From })
	xs := make([]float64, 0, len(pairs))
	ys := make([]float64, 0, len(pairs))
	for i := 0; i < len(pairs); {
		j := i
		sum := 0.0
		for j < len(pairs) && pairs[j].From == pairs[i].From {
			sum += pairs[j].To
			j++
		}
		xs = append(xs, pairs[i].From)
		ys = append(ys, sum/float64(j-i))
		i = j
	}
	return xs, ys
}
