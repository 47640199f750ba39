package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/photofeed/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// os.Args is filtered to only the flags handled here, so other packages can
// parse their own flags without interference.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-g", "-d"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.GatewayURL, "g", cfg.GatewayURL, "websocket URL of the realtime gateway")
	fs.StringVar(&cfg.CachePath, "d", cfg.CachePath, "path to the local snapshot cache database")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
