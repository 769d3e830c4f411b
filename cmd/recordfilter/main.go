// Package main is the entry point for the recordfilter command.
package main

import (
	"os"

	"github.com/hugr-lab/recordfilter/cmd/recordfilter/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
