// Package main is the entry point for the module registry API server.
package main

import (
	"os"

	"github.com/tfprivate/tfregistry/cmd/tfregistry-api/app"
	"github.com/tfprivate/tfregistry/pkg/logger"
)

func main() {
	// Serve reconfigures the logger once the debug setting is known.
	logger.Initialize(false)
	defer logger.Sync()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
