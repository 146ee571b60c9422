// Package pipeline wires the Admissibility Checker, the WAT Emitter, and
// the Canary Runner into the single compile-and-canary flow a caller
// actually wants: lint, then lower, then run. Each stage remains usable on
// its own — pkg/admissibility, pkg/watgen, pkg/canary have no dependency on
// this package — pipeline is purely a convenience composition, in the
// spirit of the teacher's cmd/helm subsystems.go wiring multiple packages
// behind one subcommand.
package pipeline

import (
	"context"

	"github.com/hirforge/hircompile/pkg/admissibility"
	"github.com/hirforge/hircompile/pkg/canary"
	"github.com/hirforge/hircompile/pkg/hir"
	"github.com/hirforge/hircompile/pkg/watgen"
)

// Result bundles every stage's output for a single compile-and-canary run.
type Result struct {
	Admissibility admissibility.Report
	Artifact      *watgen.Artifact
	Series        []float64
	Receipt       canary.Receipt
}

// CompileAndRun runs the full pipeline: admissibility check, emission, and
// a canary execution over inputs. It stops at the first failing stage and
// returns the partial Result alongside the error so callers can inspect how
// far the HIR got (e.g. a CLI printing the admissibility report even though
// emission was never reached).
func CompileAndRun(ctx context.Context, h hir.HIR, inputOrder []string, inputs map[string][]float64) (Result, error) {
	var res Result

	res.Admissibility = admissibility.Check(h, true)
	if err := res.Admissibility.RequireOK(); err != nil {
		return res, err
	}

	artifact, err := watgen.EmitModule(h, inputOrder)
	if err != nil {
		return res, err
	}
	res.Artifact = artifact

	series, receipt, err := canary.Run(ctx, artifact.Binary, h, inputs, inputOrder)
	if err != nil {
		return res, err
	}
	res.Series = series
	res.Receipt = receipt

	return res, nil
}
