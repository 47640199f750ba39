package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/dmitrijs2005/photofeed/internal/cli"
	"github.com/dmitrijs2005/photofeed/internal/config"
	"github.com/dmitrijs2005/photofeed/internal/flagx"
)

func main() {
	demo := false
	fs := flag.NewFlagSet("photofeed", flag.ContinueOnError)
	fs.BoolVar(&demo, "demo", false, "run against in-process backends instead of the gateway")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-demo"}))

	cfg := config.LoadConfig()

	ctx := context.Background()
	app, err := cli.NewApp(ctx, cfg, demo)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
