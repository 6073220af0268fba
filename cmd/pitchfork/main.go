package main

import (
	"os"

	"github.com/ojscutt/sl-pitchfork/cmd/pitchfork/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
