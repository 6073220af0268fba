package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "pitchfork",
	Short: "Stellar parameter inference from the command line",
	Long: `pitchfork drives the sl-pitchfork emulator and sampler without the
HTTP service.

Commands:
  predict  - forward pass: observables for one set of stellar parameters
  sample   - offline posterior recovery from a set of observations
  worker   - execute one queued run against the shared database (cluster Job
             entrypoint)`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose sampler logging")
}
