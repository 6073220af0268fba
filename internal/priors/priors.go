// Package priors defines the one-dimensional prior distributions used to map
// unit-cube samples into stellar parameter space. Each prior exposes its
// quantile function (inverse CDF), which is all the nested sampler needs to
// transform uniform draws into parameter values.
package priors

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ============================================================================
// Errors
// ============================================================================

var ErrInvalidPrior = errors.New("invalid prior")

// Prior kinds accepted by New.
const (
	KindUniform     = "uniform"
	KindLogUniform  = "log-uniform"
	KindNormal      = "normal"
	KindTruncNormal = "truncated-normal"
)

// Prior is a one-dimensional prior distribution. Quantile maps p in [0, 1] to
// a parameter value; Bounds reports the support, with infinities for
// unbounded distributions.
type Prior interface {
	Kind() string
	Quantile(p float64) float64
	Bounds() (lo, hi float64)
}

// ============================================================================
// Uniform
// ============================================================================

// Uniform is flat between Min and Max.
type Uniform struct {
	dist distuv.Uniform
}

func NewUniform(min, max float64) (Uniform, error) {
	if !(min < max) {
		return Uniform{}, fmt.Errorf("%w: uniform requires min < max, got [%v, %v]", ErrInvalidPrior, min, max)
	}
	return Uniform{dist: distuv.Uniform{Min: min, Max: max}}, nil
}

func (u Uniform) Kind() string { return KindUniform }

func (u Uniform) Quantile(p float64) float64 { return u.dist.Quantile(p) }

func (u Uniform) Bounds() (float64, float64) { return u.dist.Min, u.dist.Max }

// ============================================================================
// LogUniform
// ============================================================================

// LogUniform is flat in log space between Min and Max, suiting scale
// parameters such as stellar age that span decades.
type LogUniform struct {
	min, max   float64
	lnLo, lnHi float64
}

func NewLogUniform(min, max float64) (LogUniform, error) {
	if !(min > 0) {
		return LogUniform{}, fmt.Errorf("%w: log-uniform requires min > 0, got %v", ErrInvalidPrior, min)
	}
	if !(min < max) {
		return LogUniform{}, fmt.Errorf("%w: log-uniform requires min < max, got [%v, %v]", ErrInvalidPrior, min, max)
	}
	return LogUniform{min: min, max: max, lnLo: math.Log(min), lnHi: math.Log(max)}, nil
}

func (l LogUniform) Kind() string { return KindLogUniform }

func (l LogUniform) Quantile(p float64) float64 {
	return math.Exp(l.lnLo + p*(l.lnHi-l.lnLo))
}

func (l LogUniform) Bounds() (float64, float64) { return l.min, l.max }

// ============================================================================
// Normal
// ============================================================================

// Normal is Gaussian with mean Mu and standard deviation Sigma.
type Normal struct {
	dist distuv.Normal
}

// clipSigmas bounds the quantile at p = 0 and p = 1, where the inverse CDF
// is infinite. Representable p inside (0, 1) never reaches past ~8.3 sigma,
// so the clip preserves monotonicity while keeping every parameter finite.
const clipSigmas = 38.0

func NewNormal(mu, sigma float64) (Normal, error) {
	if !(sigma > 0) {
		return Normal{}, fmt.Errorf("%w: normal requires sigma > 0, got %v", ErrInvalidPrior, sigma)
	}
	return Normal{dist: distuv.Normal{Mu: mu, Sigma: sigma}}, nil
}

func (n Normal) Kind() string { return KindNormal }

func (n Normal) Quantile(p float64) float64 {
	switch {
	case p <= 0:
		return n.dist.Mu - clipSigmas*n.dist.Sigma
	case p >= 1:
		return n.dist.Mu + clipSigmas*n.dist.Sigma
	}
	return n.dist.Quantile(p)
}

func (n Normal) Bounds() (float64, float64) { return math.Inf(-1), math.Inf(1) }

// ============================================================================
// TruncNormal
// ============================================================================

// TruncNormal is a Gaussian restricted to [Lo, Hi]. The quantile maps p
// through the parent CDF mass inside the truncation window, so samples never
// leave the window.
type TruncNormal struct {
	dist           distuv.Normal
	lo, hi         float64
	cdfLo, cdfSpan float64
}

func NewTruncNormal(mu, sigma, lo, hi float64) (TruncNormal, error) {
	if !(sigma > 0) {
		return TruncNormal{}, fmt.Errorf("%w: truncated-normal requires sigma > 0, got %v", ErrInvalidPrior, sigma)
	}
	if !(lo < hi) {
		return TruncNormal{}, fmt.Errorf("%w: truncated-normal requires lo < hi, got [%v, %v]", ErrInvalidPrior, lo, hi)
	}
	dist := distuv.Normal{Mu: mu, Sigma: sigma}
	cdfLo := dist.CDF(lo)
	cdfHi := dist.CDF(hi)
	if !(cdfHi > cdfLo) {
		return TruncNormal{}, fmt.Errorf("%w: truncation window [%v, %v] holds no probability mass", ErrInvalidPrior, lo, hi)
	}
	return TruncNormal{dist: dist, lo: lo, hi: hi, cdfLo: cdfLo, cdfSpan: cdfHi - cdfLo}, nil
}

func (t TruncNormal) Kind() string { return KindTruncNormal }

func (t TruncNormal) Quantile(p float64) float64 {
	x := t.dist.Quantile(t.cdfLo + p*t.cdfSpan)
	// Guard against CDF/Quantile round-trip error at the window edges.
	return math.Min(math.Max(x, t.lo), t.hi)
}

func (t TruncNormal) Bounds() (float64, float64) { return t.lo, t.hi }

// ============================================================================
// Transform
// ============================================================================

// Transform maps a unit-cube point onto parameter space through the per
// dimension quantile functions, writing into dst. dst and u must both have
// len(ps) elements.
func Transform(ps []Prior, u, dst []float64) {
	for i, p := range ps {
		dst[i] = p.Quantile(u[i])
	}
}

// Point is Transform with a freshly allocated destination.
func Point(ps []Prior, u []float64) []float64 {
	dst := make([]float64, len(ps))
	Transform(ps, u, dst)
	return dst
}
