// Shopsync - sync client for the ShopStack recommendation dashboard.
package main

import (
	"os"

	"github.com/shopstack/shopsync/internal/cli"
	"github.com/shopstack/shopsync/internal/version"
)

// Version information, injected via ldflags on release builds.
var (
	Version   = "v0.3.0-dev"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
