package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ojscutt/sl-pitchfork/internal/emulator"
)

var (
	predictArtifact string
	predictInputs   []string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict observables for one set of stellar parameters",
	Long: `Loads an emulator artifact and runs a single forward pass.

Inputs are given as name=value pairs and must cover every parameter the
emulator was trained on, e.g.

  pitchfork predict --artifact grid.json \
      --input mass=1.02 --input Y=0.28 --input Z=0.017 \
      --input amlt=1.9 --input age=4.6`,
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().StringVar(&predictArtifact, "artifact", "", "path to the emulator artifact JSON")
	predictCmd.Flags().StringArrayVar(&predictInputs, "input", nil, "stellar parameter as name=value (repeatable)")
	predictCmd.MarkFlagRequired("artifact")
}

func runPredict(cmd *cobra.Command, args []string) error {
	art, err := emulator.LoadFile(predictArtifact)
	if err != nil {
		return err
	}
	eng, err := emulator.New(art)
	if err != nil {
		return err
	}

	values, err := parseInputPairs(predictInputs)
	if err != nil {
		return err
	}

	names := eng.InputNames()
	vec := make([]float64, len(names))
	for i, name := range names {
		v, ok := values[name]
		if !ok {
			return fmt.Errorf("missing input %q (emulator expects %s)", name, strings.Join(names, ", "))
		}
		vec[i] = v
		delete(values, name)
	}
	if len(values) != 0 {
		extra := make([]string, 0, len(values))
		for name := range values {
			extra = append(extra, name)
		}
		sort.Strings(extra)
		return fmt.Errorf("unknown inputs %s (emulator expects %s)", strings.Join(extra, ", "), strings.Join(names, ", "))
	}

	out, err := eng.PredictOne(vec)
	if err != nil {
		return err
	}

	fmt.Printf("emulator: %s %s\n", art.Name, art.Version)
	fmt.Printf("%-16s %14s\n", "observable", "value")
	for i, name := range eng.OutputNames() {
		fmt.Printf("%-16s %14.6g\n", name, out[i])
	}
	return nil
}

func parseInputPairs(pairs []string) (map[string]float64, error) {
	values := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --input %q, want name=value", p)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --input %q: %w", p, err)
		}
		values[name] = v
	}
	return values, nil
}
