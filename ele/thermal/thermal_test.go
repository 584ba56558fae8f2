package thermal

import (
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/sandialabs/milo/ad"
	"github.com/sandialabs/milo/ele"
)

type constCoeffs map[string]ad.Value

func (c constCoeffs) Get(name string) (ad.Value, bool) {
	v, ok := c[name]
	return v, ok
}

func TestSetVarsDetectsConvectiveCoupling(t *testing.T) {
	chk.PrintTitle("thermal: SetVars detects a coupled velocity field")
	m := &Module{}
	if err := m.SetVars([]string{"u", "ux", "uy"}); err != nil {
		t.Fatal(err)
	}
	if !m.coupled {
		t.Fatal("expected coupled transport to be detected")
	}
}

func TestSetVarsMissingURaisesConfigError(t *testing.T) {
	chk.PrintTitle("thermal: SetVars without a \"u\" variable is a ConfigError")
	m := &Module{}
	if err := m.SetVars([]string{"ux", "uy"}); err == nil {
		t.Fatal("expected a ConfigError")
	}
}

func TestVolumeResidualLinearConductivityMatchesHandComputation(t *testing.T) {
	chk.PrintTitle("thermal: volume residual with constant conductivity matches a hand-computed flux")
	m := &Module{Cond: Conductivity{A0: 2.0, Kcte: []float64{1, 1}}}
	if err := m.SetVars([]string{"u"}); err != nil {
		t.Fatal(err)
	}
	u, _ := ad.Seed(2, 0, 3.0)
	gu0, _ := ad.Seed(2, 1, 0.5)
	gu1 := ad.Const(0.0)
	udot := ad.Const(0.0)
	p := ele.Point{
		Vars:  map[string]ad.Value{"u": u},
		GradU: map[string][]ad.Value{"u": {gu0, gu1}},
		Udot:  map[string]ad.Value{"u": udot},
	}
	coeffs := constCoeffs{"specific heat": ad.Const(1.0)}

	wf, err := m.VolumeResidual(p, coeffs)
	if err != nil {
		t.Fatal(err)
	}
	chk.Scalar(t, "scalar term (rho*cp*udot - f)", 1e-14, wf["u"].Scalar.V, 0.0)
	chk.Scalar(t, "flux[0] = k(u)*du/dx", 1e-14, wf["u"].Flux[0].V, 2.0*0.5)
	chk.Scalar(t, "d flux[0] / d u", 1e-14, wf["u"].Flux[0].Dx[0], 0.0)
}

func TestBoundaryResidualWeakDirichletPenaltyDominatesForLargeGap(t *testing.T) {
	chk.PrintTitle("thermal: weak-Dirichlet penalty term grows with the solution/data gap")
	m := &Module{Cond: Conductivity{A0: 1.0, Kcte: []float64{1}}}
	if err := m.SetVars([]string{"u"}); err != nil {
		t.Fatal(err)
	}
	u := ad.Const(5.0)
	gu := ad.Const(0.0)
	p := ele.Point{
		Vars:      map[string]ad.Value{"u": u},
		GradU:     map[string][]ad.Value{"u": {gu}},
		Normal:    []float64{1},
		H:         0.1,
		Gdata:     ad.Const(1.0),
		FormParam: 1.0,
	}
	coeffs := constCoeffs{}
	v, err := m.BoundaryResidual(p, ele.SideWeakDirichlet, coeffs)
	if err != nil {
		t.Fatal(err)
	}
	if v["u"].Scalar.V <= 0 {
		t.Fatalf("expected a positive penalty contribution for u > g, got %v", v["u"].Scalar.V)
	}
}

func TestBoundaryResidualWeakDirichletSymmetrizationTerm(t *testing.T) {
	chk.PrintTitle("thermal: Nitsche symmetrization term is κ(u−g), dotted against ∂ϕ/∂n, not κ∂u/∂n")
	m := &Module{Cond: Conductivity{A0: 1.0, Kcte: []float64{1}}}
	if err := m.SetVars([]string{"u"}); err != nil {
		t.Fatal(err)
	}
	u := ad.Const(5.0)
	gu := ad.Const(0.0) // du/dn = 0, so any leftover κ∂u/∂n term would vanish here
	p := ele.Point{
		Vars:      map[string]ad.Value{"u": u},
		GradU:     map[string][]ad.Value{"u": {gu}},
		Normal:    []float64{1},
		H:         0.1,
		Gdata:     ad.Const(1.0),
		FormParam: 1.0,
	}
	coeffs := constCoeffs{}
	v, err := m.BoundaryResidual(p, ele.SideWeakDirichlet, coeffs)
	if err != nil {
		t.Fatal(err)
	}
	// k=1, gap = u-g = 4, s = FormParam = 1 -> Normal should be -s*k*gap = -4,
	// independent of du/dn (which is zero here). A bug that instead scales
	// κ∂u/∂n by (1+s) would leave Normal at zero.
	chk.Scalar(t, "Normal = -s*k*(u-g)", 1e-14, v["u"].Normal.V, -4.0)
	// Scalar carries only -κ∂u/∂n plus the penalty term; with du/dn=0 that's
	// just the penalty (10/h)*k*gap = 100*4 = 400.
	chk.Scalar(t, "Scalar = -k*du/dn + (10/h)*k*(u-g)", 1e-14, v["u"].Scalar.V, 400.0)
}
