// Package main is the entry point for the gcgit command line tool.
package main

import (
	"os"

	"github.com/gocortexio/gcgit/cmd/gcgit/app"
	"github.com/gocortexio/gcgit/pkg/logger"
)

func main() {
	err := app.NewRootCmd().Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
