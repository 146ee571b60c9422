package main

import (
	"flag"

	"github.com/hirforge/hircompile/pkg/config"
)

// loadConfig mirrors cli.py's every subcommand calling
// DiscOSConfig.load(args.config) before doing anything else.
func loadConfig(fs *flag.FlagSet) (config.Config, error) {
	path := fs.Lookup("config").Value.String()
	return config.Load(path)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", "", "path to hircompile.yaml (optional)")
	return fs
}
