package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/renameio/v2"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ojscutt/sl-pitchfork/internal/adapters/secondary/artifacts"
	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
	"github.com/ojscutt/sl-pitchfork/internal/core/services"
	"github.com/ojscutt/sl-pitchfork/internal/emulator"
	"github.com/ojscutt/sl-pitchfork/internal/sampling"
)

var (
	sampleArtifact     string
	sampleObservations string
	samplePriors       string
	sampleOut          string
	sampleNLive        int
	sampleWalks        int
	sampleMaxIter      int
	sampleDLogZ        float64
	sampleLogLScale    float64
	sampleSeed         int64
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Recover a stellar parameter posterior from observations",
	Long: `Runs nested sampling against an emulator artifact without the HTTP
service or a database.

Observations are read from a JSON array of {name, value, sigma} objects and
must name observables the emulator predicts. Priors are read from a JSON
object mapping parameter names to {kind, min, max, mu, sigma}; parameters
without an entry fall back to a uniform prior over the training grid.

Writes posterior.csv and summary.json into --out and prints the marginal
posterior summaries.`,
	RunE: runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().StringVar(&sampleArtifact, "artifact", "", "path to the emulator artifact JSON")
	sampleCmd.Flags().StringVar(&sampleObservations, "observations", "", "path to the observations JSON file")
	sampleCmd.Flags().StringVar(&samplePriors, "priors", "", "path to the prior spec JSON file")
	sampleCmd.Flags().StringVar(&sampleOut, "out", ".", "directory for posterior.csv and summary.json")
	sampleCmd.Flags().IntVar(&sampleNLive, "nlive", 0, "number of live points (0 = default)")
	sampleCmd.Flags().IntVar(&sampleWalks, "walks", 0, "random-walk steps per replacement (0 = default)")
	sampleCmd.Flags().IntVar(&sampleMaxIter, "max-iter", 0, "iteration cap (0 = run until converged)")
	sampleCmd.Flags().Float64Var(&sampleDLogZ, "dlogz", 0, "evidence convergence threshold (0 = default)")
	sampleCmd.Flags().Float64Var(&sampleLogLScale, "logl-scale", 0, "log-likelihood tempering factor (0 = default)")
	sampleCmd.Flags().Int64Var(&sampleSeed, "seed", 0, "random seed (0 = time-based)")
	sampleCmd.MarkFlagRequired("artifact")
	sampleCmd.MarkFlagRequired("observations")
}

// sampleSummary is the shape of the summary.json written next to the
// posterior CSV.
type sampleSummary struct {
	Emulator    string                    `json:"emulator"`
	Version     string                    `json:"version,omitempty"`
	LogZ        float64                   `json:"logz"`
	LogZErr     float64                   `json:"logz_err"`
	Information float64                   `json:"information"`
	NIter       int                       `json:"niter"`
	NCalls      int                       `json:"ncalls"`
	Efficiency  float64                   `json:"efficiency"`
	StopReason  string                    `json:"stop_reason"`
	NPosterior  int                       `json:"n_posterior"`
	SamplesPath string                    `json:"samples_path"`
	Parameters  []domain.ParameterSummary `json:"parameters"`
}

func runSample(cmd *cobra.Command, args []string) error {
	art, err := emulator.LoadFile(sampleArtifact)
	if err != nil {
		return err
	}
	eng, err := emulator.New(art)
	if err != nil {
		return err
	}

	observations, err := loadObservations(sampleObservations)
	if err != nil {
		return err
	}
	specs := map[string]domain.PriorSpec{}
	if samplePriors != "" {
		if specs, err = loadPriors(samplePriors); err != nil {
			return err
		}
	}

	settings := domain.SamplerSettings{
		NLive:     sampleNLive,
		Walks:     sampleWalks,
		MaxIter:   sampleMaxIter,
		DLogZ:     sampleDLogZ,
		LogLScale: sampleLogLScale,
		Seed:      sampleSeed,
	}.WithDefaults()
	if err := settings.Validate(); err != nil {
		return err
	}

	obj, err := services.BuildObjective(eng, observations, specs, settings.LogLScale)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := sampling.Run(ctx, obj.LogLikelihood, obj.PriorTransform, obj.NDim, sampling.Config{
		NLive:   settings.NLive,
		Walks:   settings.Walks,
		MaxIter: settings.MaxIter,
		DLogZ:   settings.DLogZ,
		Seed:    settings.Seed,
		Logger:  log.StandardLogger(),
	})
	if err != nil {
		return err
	}

	// Same derivation as the service: a seeded run resamples identically.
	seed := settings.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	posterior, err := res.Posterior(rand.New(rand.NewSource(seed + 1)))
	if err != nil {
		return err
	}

	store, err := artifacts.NewStore(sampleOut)
	if err != nil {
		return err
	}
	samplesPath, err := store.SaveSamples(ctx, "posterior.csv", obj.Parameters, posterior)
	if err != nil {
		return err
	}

	summary := sampleSummary{
		Emulator:    art.Name,
		Version:     art.Version,
		LogZ:        res.FinalLogZ(),
		LogZErr:     res.LogZErr,
		Information: res.H,
		NIter:       res.Niter,
		NCalls:      res.NCall,
		Efficiency:  res.Eff,
		StopReason:  res.StopReason,
		NPosterior:  len(posterior),
		SamplesPath: samplesPath,
	}
	for _, ps := range sampling.Summarize(posterior, obj.Parameters) {
		summary.Parameters = append(summary.Parameters, domain.ParameterSummary{
			Name:   ps.Name,
			Mean:   ps.Mean,
			Std:    ps.Std,
			Median: ps.Median,
			P16:    ps.P16,
			P84:    ps.P84,
		})
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	summaryPath := filepath.Join(store.Root(), "summary.json")
	if err := renameio.WriteFile(summaryPath, data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	fmt.Printf("log-evidence: %.4f +/- %.4f (%s after %d iterations, %d likelihood calls)\n",
		summary.LogZ, summary.LogZErr, res.StopReason, res.Niter, res.NCall)
	fmt.Printf("%-12s %12s %12s %12s %12s %12s\n", "parameter", "mean", "std", "median", "p16", "p84")
	for _, p := range summary.Parameters {
		fmt.Printf("%-12s %12.6g %12.6g %12.6g %12.6g %12.6g\n", p.Name, p.Mean, p.Std, p.Median, p.P16, p.P84)
	}
	fmt.Printf("posterior samples: %s\n", samplesPath)
	fmt.Printf("summary: %s\n", summaryPath)
	return nil
}

func loadObservations(path string) ([]domain.Observation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var observations []domain.Observation
	if err := json.Unmarshal(data, &observations); err != nil {
		return nil, fmt.Errorf("parse observations %s: %w", path, err)
	}
	return observations, nil
}

func loadPriors(path string) (map[string]domain.PriorSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	specs := map[string]domain.PriorSpec{}
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse priors %s: %w", path, err)
	}
	return specs, nil
}
