package function

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"

	"github.com/sandialabs/milo/ad"
)

func TestSpaceTimeRoundTrip(t *testing.T) {
	chk.PrintTitle("function: space-time coefficient evaluates to the registered constant")
	m := NewManager()
	m.AddSpaceTime("thermal source", LocIP, 0, &fun.Cte{C: 6.0})
	v, err := m.Evaluate("thermal source", LocIP, 0, 0.0, []float64{1, 2, 3}, 1, ad.Value{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	chk.Scalar(t, "source", 1e-15, v.V, 6.0)
}

func TestSolutionDependentChainsDerivative(t *testing.T) {
	chk.PrintTitle("function: solution-dependent coefficient carries AD derivative")
	m := NewManager()
	m.AddSolutionDependent("thermal diffusion", LocIP, 0, func(u ad.Value, gradU []ad.Value) ad.Value {
		// k(u) = 1 + 0.1 u
		return ad.AddScaled(ad.Value{V: 1, N: u.N}, 0.1, u)
	})
	u, _ := ad.Seed(1, 0, 2.0)
	v, err := m.Evaluate("thermal diffusion", LocIP, 0, 0.0, nil, 1, u, nil)
	if err != nil {
		t.Fatal(err)
	}
	chk.Scalar(t, "k(u)", 1e-15, v.V, 1.2)
	chk.Scalar(t, "dk/du", 1e-15, v.Dx[0], 0.1)
}

func TestMissingCoefficientIsConfigError(t *testing.T) {
	chk.PrintTitle("function: evaluating an unregistered coefficient is a ConfigError")
	m := NewManager()
	_, err := m.Evaluate("missing", LocIP, 0, 0, nil, 1, ad.Value{}, nil)
	if err == nil {
		t.Fatal("expected an error for an unregistered coefficient")
	}
}
