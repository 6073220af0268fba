// Package sampling implements static nested sampling with likelihood
// constrained random walks. It estimates the Bayesian evidence of a model
// and produces weighted posterior samples from a log-likelihood function and
// a prior transform over the unit cube.
package sampling

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ============================================================================
// Errors
// ============================================================================

var (
	ErrInvalidConfig = errors.New("invalid sampler configuration")
	ErrBadLikelihood = errors.New("likelihood is not usable")
	ErrStalled       = errors.New("random walk stalled")
)

// Stop reasons recorded on Result.
const (
	StopDLogZ    = "dlogz-threshold"
	StopMaxIter  = "max-iterations"
	StopMaxCalls = "max-calls"
)

const (
	defaultNLive = 500
	defaultWalks = 25
	defaultDLogZ = 0.01

	// Hard ceiling on likelihood calls per replacement before the walk is
	// declared stalled.
	stallFactor = 100

	progressEvery = 500
)

// LogLikelihoodFunc evaluates the log-likelihood at a parameter-space point.
// It must never return NaN; return a very negative value for points the
// model cannot evaluate.
type LogLikelihoodFunc func(x []float64) float64

// PriorTransformFunc maps a unit-cube point u onto parameter space, writing
// the result into x. Both slices have the problem dimension.
type PriorTransformFunc func(u, x []float64)

// Progress is a snapshot of the sampler state passed to the progress
// callback after each iteration.
type Progress struct {
	Iteration int
	NCall     int
	LogZ      float64
	LogLStar  float64
	DLogZ     float64
}

// Config tunes a nested sampling run. Zero values select the documented
// defaults; MaxIter and MaxCalls are unlimited when zero.
type Config struct {
	NLive    int
	Walks    int
	MaxIter  int
	MaxCalls int
	DLogZ    float64
	Seed     int64

	Logger   *logrus.Logger
	Progress func(Progress)
}

func (c Config) withDefaults() Config {
	if c.NLive == 0 {
		c.NLive = defaultNLive
	}
	if c.Walks == 0 {
		c.Walks = defaultWalks
	}
	if c.DLogZ == 0 {
		c.DLogZ = defaultDLogZ
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

type sampler struct {
	cfg  Config
	ll   LogLikelihoodFunc
	pt   PriorTransformFunc
	ndim int
	rng  *rand.Rand

	liveU    *mat.Dense // nlive×ndim unit-cube positions
	liveX    *mat.Dense // nlive×ndim parameter-space positions
	liveLogL []float64

	scale float64 // random walk step scale, adapted per replacement
	ncall int
}

// Run executes nested sampling until the evidence termination criterion or a
// configured budget is reached. The context is checked every iteration, so
// cancellation aborts the run with the context error.
func Run(ctx context.Context, ll LogLikelihoodFunc, pt PriorTransformFunc, ndim int, cfg Config) (*Result, error) {
	if ll == nil || pt == nil {
		return nil, fmt.Errorf("%w: likelihood and prior transform are required", ErrInvalidConfig)
	}
	if ndim < 1 {
		return nil, fmt.Errorf("%w: dimension must be at least 1, got %d", ErrInvalidConfig, ndim)
	}
	cfg = cfg.withDefaults()
	if cfg.NLive < 2*ndim {
		return nil, fmt.Errorf("%w: nlive %d is below 2×ndim for ndim %d", ErrInvalidConfig, cfg.NLive, ndim)
	}
	if cfg.Walks < 2 {
		return nil, fmt.Errorf("%w: walks must be at least 2, got %d", ErrInvalidConfig, cfg.Walks)
	}
	if cfg.DLogZ < 0 || cfg.MaxIter < 0 || cfg.MaxCalls < 0 {
		return nil, fmt.Errorf("%w: dlogz, maxiter and maxcalls must be non-negative", ErrInvalidConfig)
	}

	s := &sampler{
		cfg:   cfg,
		ll:    ll,
		pt:    pt,
		ndim:  ndim,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		scale: 1.0,
	}
	if err := s.initLive(ctx); err != nil {
		return nil, err
	}
	return s.run(ctx)
}

// initLive draws the initial live set uniformly over the unit cube.
func (s *sampler) initLive(ctx context.Context) error {
	nlive := s.cfg.NLive
	s.liveU = mat.NewDense(nlive, s.ndim, nil)
	s.liveX = mat.NewDense(nlive, s.ndim, nil)
	s.liveLogL = make([]float64, nlive)

	finite := false
	for i := 0; i < nlive; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		u := s.liveU.RawRowView(i)
		for j := range u {
			u[j] = s.rng.Float64()
		}
		x := s.liveX.RawRowView(i)
		s.pt(u, x)
		logl := s.ll(x)
		s.ncall++
		if math.IsNaN(logl) {
			return fmt.Errorf("%w: NaN at initial point %d", ErrBadLikelihood, i)
		}
		if !math.IsInf(logl, -1) {
			finite = true
		}
		s.liveLogL[i] = logl
	}
	if !finite {
		return fmt.Errorf("%w: every initial live point has -Inf likelihood", ErrBadLikelihood)
	}
	return nil
}

func (s *sampler) run(ctx context.Context) (*Result, error) {
	nlive := float64(s.cfg.NLive)
	lnwConst := math.Log(math.Expm1(1.0 / nlive))

	res := &Result{
		NDim:  s.ndim,
		NLive: s.cfg.NLive,
	}

	// ln Z starts at a huge negative stand-in for -Inf so the information
	// recurrence stays finite on the first iteration.
	logz := -math.MaxFloat64
	h := 0.0
	stop := ""

	for it := 0; ; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		worst := argmin(s.liveLogL)
		loglStar := s.liveLogL[worst]

		// Exact mass of the shell between successive prior volumes
		// X = e^(-it/nlive).
		logvol := lnwConst - float64(it+1)/nlive
		logwt := loglStar + logvol
		logzNew := logaddexp(logz, logwt)
		h = math.Exp(logwt-logzNew)*loglStar +
			math.Exp(logz-logzNew)*(h+logz) - logzNew
		logz = logzNew

		res.Samples = append(res.Samples, copyRow(s.liveX.RawRowView(worst)))
		res.SamplesU = append(res.SamplesU, copyRow(s.liveU.RawRowView(worst)))
		res.LogL = append(res.LogL, loglStar)
		res.LogWt = append(res.LogWt, logwt)
		res.LogVol = append(res.LogVol, logvol)
		res.LogZ = append(res.LogZ, logz)
		res.Niter = it + 1

		dlogzCur := logaddexp(logz, maxOf(s.liveLogL)-float64(it+1)/nlive) - logz

		if s.cfg.Progress != nil {
			s.cfg.Progress(Progress{
				Iteration: res.Niter,
				NCall:     s.ncall,
				LogZ:      logz,
				LogLStar:  loglStar,
				DLogZ:     dlogzCur,
			})
		}
		if s.cfg.Logger != nil && res.Niter%progressEvery == 0 {
			s.cfg.Logger.WithFields(logrus.Fields{
				"iter":  res.Niter,
				"ncall": s.ncall,
				"logz":  logz,
				"dlogz": dlogzCur,
			}).Debug("Nested sampling progress")
		}

		if dlogzCur < s.cfg.DLogZ {
			stop = StopDLogZ
			break
		}
		if s.cfg.MaxIter > 0 && res.Niter >= s.cfg.MaxIter {
			stop = StopMaxIter
			break
		}
		if s.cfg.MaxCalls > 0 && s.ncall >= s.cfg.MaxCalls {
			stop = StopMaxCalls
			break
		}

		if err := s.replace(worst, loglStar); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", res.Niter, err)
		}
	}

	// Fold the remaining live points into the results, each carrying an
	// equal share of the final prior volume.
	logvolLive := -float64(res.Niter)/nlive - math.Log(nlive)
	order := make([]int, s.cfg.NLive)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return s.liveLogL[order[a]] < s.liveLogL[order[b]]
	})
	for _, i := range order {
		logl := s.liveLogL[i]
		logwt := logl + logvolLive
		logzNew := logaddexp(logz, logwt)
		h = math.Exp(logwt-logzNew)*logl +
			math.Exp(logz-logzNew)*(h+logz) - logzNew
		logz = logzNew

		res.Samples = append(res.Samples, copyRow(s.liveX.RawRowView(i)))
		res.SamplesU = append(res.SamplesU, copyRow(s.liveU.RawRowView(i)))
		res.LogL = append(res.LogL, logl)
		res.LogWt = append(res.LogWt, logwt)
		res.LogVol = append(res.LogVol, logvolLive)
		res.LogZ = append(res.LogZ, logz)
	}

	if h < 0 {
		h = 0
	}
	res.H = h
	res.LogZErr = math.Sqrt(h / nlive)
	res.NCall = s.ncall
	res.Eff = 100 * float64(res.Niter) / float64(s.ncall)
	res.StopReason = stop

	if s.cfg.Logger != nil {
		s.cfg.Logger.WithFields(logrus.Fields{
			"iter":    res.Niter,
			"ncall":   res.NCall,
			"logz":    res.FinalLogZ(),
			"logzerr": res.LogZErr,
			"reason":  stop,
		}).Info("Nested sampling finished")
	}
	return res, nil
}

// replace evolves a copy of a random live point through a likelihood
// constrained random walk and writes the end point over the worst live
// point. The walk keeps going until it has both spent its step budget and
// accepted at least once.
func (s *sampler) replace(worst int, loglStar float64) error {
	axes, diag := s.proposalAxes()

	start := s.rng.Intn(s.cfg.NLive)
	u := copyRow(s.liveU.RawRowView(start))
	x := copyRow(s.liveX.RawRowView(start))
	logl := s.liveLogL[start]

	prop := make([]float64, s.ndim)
	propX := make([]float64, s.ndim)
	dir := make([]float64, s.ndim)

	walks := s.cfg.Walks
	maxCalls := walks * stallFactor
	accept, calls := 0, 0

	for calls < walks || accept == 0 {
		if calls >= maxCalls {
			return fmt.Errorf("%w: no acceptance in %d proposals at logL* %v", ErrStalled, calls, loglStar)
		}
		// Periodically contract the step scale while nothing is being
		// accepted, otherwise a walk started near the contour can spin.
		if accept == 0 && calls > 0 && calls%walks == 0 {
			s.scale *= 0.5
		}

		s.randBall(dir)
		inside := true
		for j := 0; j < s.ndim; j++ {
			step := 0.0
			if axes != nil {
				for k := 0; k <= j; k++ {
					step += axes.At(j, k) * dir[k]
				}
			} else {
				step = diag[j] * dir[j]
			}
			v := u[j] + s.scale*step
			if v <= 0 || v >= 1 {
				inside = false
				break
			}
			prop[j] = v
		}
		calls++
		if !inside {
			continue
		}

		s.pt(prop, propX)
		proplogl := s.ll(propX)
		s.ncall++
		if proplogl > loglStar {
			copy(u, prop)
			copy(x, propX)
			logl = proplogl
			accept++
		}
	}

	// Adapt the scale toward a 50% acceptance rate.
	facc := float64(accept) / float64(calls)
	s.scale *= math.Exp((facc - 0.5) / float64(s.ndim))

	copy(s.liveU.RawRowView(worst), u)
	copy(s.liveX.RawRowView(worst), x)
	s.liveLogL[worst] = logl
	return nil
}

// proposalAxes returns the Cholesky factor of the live-point covariance so
// walk steps stretch along the occupied region. When the covariance is not
// positive definite it falls back to per-dimension standard deviations.
func (s *sampler) proposalAxes() (*mat.TriDense, []float64) {
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, s.liveU, nil)

	var chol mat.Cholesky
	if chol.Factorize(&cov) {
		var l mat.TriDense
		chol.LTo(&l)
		return &l, nil
	}

	diag := make([]float64, s.ndim)
	for j := 0; j < s.ndim; j++ {
		sd := math.Sqrt(cov.At(j, j))
		if !(sd > 1e-10) {
			sd = 1e-10
		}
		diag[j] = sd
	}
	return nil, diag
}

// randBall draws a point uniformly from the unit d-ball.
func (s *sampler) randBall(dst []float64) {
	for {
		norm2 := 0.0
		for i := range dst {
			dst[i] = s.rng.NormFloat64()
			norm2 += dst[i] * dst[i]
		}
		if norm2 > 0 {
			r := math.Pow(s.rng.Float64(), 1/float64(s.ndim)) / math.Sqrt(norm2)
			for i := range dst {
				dst[i] *= r
			}
			return
		}
	}
}

func argmin(xs []float64) int {
	best := 0
	for i, v := range xs {
		if v < xs[best] {
			best = i
		}
	}
	return best
}

func maxOf(xs []float64) float64 {
	best := xs[0]
	for _, v := range xs[1:] {
		if v > best {
			best = v
		}
	}
	return best
}

func copyRow(row []float64) []float64 {
	out := make([]float64, len(row))
	copy(out, row)
	return out
}

func logaddexp(a, b float64) float64 {
	switch {
	case a > b:
		return a + math.Log1p(math.Exp(b-a))
	case b > a:
		return b + math.Log1p(math.Exp(a-b))
	default:
		return a + math.Ln2
	}
}
