package main

import (
	"context"
	"fmt"
	"os"

	app "github.com/valter-silva-au/build-brain/internal"
	"github.com/valter-silva-au/build-brain/internal/cli"
)

// Set by goreleaser ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	basePath := app.ResolveBasePath()

	a, err := app.NewApp(basePath, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing bdb: %v\n", err)
		os.Exit(1)
	}

	runErr := cli.Execute()
	if err := a.Close(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}
