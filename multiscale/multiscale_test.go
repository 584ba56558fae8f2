package multiscale

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/sandialabs/milo/assembly"
	"github.com/sandialabs/milo/ele/thermal"
	"github.com/sandialabs/milo/la"
	"github.com/sandialabs/milo/shp"
	"github.com/sandialabs/milo/solver"
)

func TestSubgridEvaluateMatchesTheAnalyticSteadyFluxOnAUnitBar(t *testing.T) {
	chk.PrintTitle("multiscale: subgrid Dirichlet-to-Neumann flux matches k*lambda/L on a unit bar")
	sub, err := NewSubgridModel(0, 2, 1.0, thermal.Conductivity{A0: 1})
	if err != nil {
		t.Fatal(err)
	}
	flux, dFluxDLambda, err := sub.Evaluate(0, 0, 1.0, 1, solver.DefaultNewtonOptions())
	if err != nil {
		t.Fatal(err)
	}
	chk.Scalar(t, "flux", 1e-6, flux, 1.0)
	chk.Scalar(t, "dFlux/dLambda", 1e-6, dFluxDLambda, 1.0)
}

func TestSubgridEvaluateIsLinearInLambda(t *testing.T) {
	chk.PrintTitle("multiscale: the Dirichlet-to-Neumann flux scales linearly with lambda for constant conductivity")
	sub, err := NewSubgridModel(1, 3, 2.0, thermal.Conductivity{A0: 2})
	if err != nil {
		t.Fatal(err)
	}
	flux1, _, err := sub.Evaluate(0, 0, 1.0, 1, solver.DefaultNewtonOptions())
	if err != nil {
		t.Fatal(err)
	}
	flux2, _, err := sub.Evaluate(0, 0, 2.0, 1, solver.DefaultNewtonOptions())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(flux2-2*flux1) > 1e-6 {
		t.Fatalf("expected flux(2*lambda) == 2*flux(lambda), got flux1=%g flux2=%g", flux1, flux2)
	}
}

func TestSubgridEvaluateReusesFactorizationWhenHaveSymFactorIsSet(t *testing.T) {
	chk.PrintTitle("multiscale: HaveSymFactor reuses one numeric factorization across Evaluate calls")
	sub, err := NewSubgridModel(2, 2, 1.0, thermal.Conductivity{A0: 1})
	if err != nil {
		t.Fatal(err)
	}
	sub.HaveSymFactor = true
	if _, _, err := sub.Evaluate(0, 0, 0.5, 1, solver.DefaultNewtonOptions()); err != nil {
		t.Fatal(err)
	}
	if !sub.factor.Ready() {
		t.Fatal("expected the factorization to be retained after the first Evaluate call")
	}
	flux, dFluxDLambda, err := sub.Evaluate(0, 0, 1.5, 1, solver.DefaultNewtonOptions())
	if err != nil {
		t.Fatal(err)
	}
	chk.Scalar(t, "flux", 1e-6, flux, 1.5)
	chk.Scalar(t, "dFlux/dLambda", 1e-6, dFluxDLambda, 1.0)
}

func TestManagerApplyResolvesOnlyOnceWithinTolerance(t *testing.T) {
	chk.PrintTitle("multiscale: Manager.Apply skips re-solving the subgrid while the trace stays within tolerance")
	sub, err := NewSubgridModel(3, 2, 1.0, thermal.Conductivity{A0: 1})
	if err != nil {
		t.Fatal(err)
	}
	mgr := NewManager(1, solver.DefaultNewtonOptions())
	face := shp.Face{Dir: 0, Value: 1, Verts: []int{1}}
	c := mgr.Register(0, 0, face, 2, sub, 1e-3)

	ghosted := la.NewMap([]int{0, 1, 2})
	u := []float64{0, 0.5, 1.0}
	macroMgr := assembly.NewManager(nil, ghosted)

	if err := mgr.Apply(macroMgr, ghosted, u, 0, 0); err != nil {
		t.Fatal(err)
	}
	chk.Scalar(t, "flux after first resolve", 1e-6, c.Flux(), 1.0)

	u[2] = 1.0 + 1e-5 // well inside tolerance
	if err := mgr.Apply(macroMgr, ghosted, u, 0, 0); err != nil {
		t.Fatal(err)
	}
	chk.Scalar(t, "flux unchanged within tolerance", 1e-6, c.Flux(), 1.0)
}
