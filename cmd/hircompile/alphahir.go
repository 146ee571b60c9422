package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/hirforge/hircompile/pkg/hir"
)

func runAlphaHIRCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 || args[0] != "new" {
		_, _ = fmt.Fprintln(stderr, "usage: hircompile alphahir new [--name simple_return]")
		return 2
	}

	fs := flag.NewFlagSet("alphahir new", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "simple_return", "template name stamped into metadata")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	h := hir.SimpleReturnTemplate(*name)
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(h); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
