package ad

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestMulDerivative(t *testing.T) {
	chk.PrintTitle("ad: product rule")
	a, _ := Seed(2, 0, 3.0)
	b, _ := Seed(2, 1, 4.0)
	c := Mul(a, b)
	chk.Scalar(t, "value", 1e-15, c.V, 12.0)
	chk.Scalar(t, "dc/da", 1e-15, c.Dx[0], 4.0)
	chk.Scalar(t, "dc/db", 1e-15, c.Dx[1], 3.0)
}

func TestPowDerivative(t *testing.T) {
	chk.PrintTitle("ad: cubic power matches analytic derivative")
	x, _ := Seed(1, 0, 2.0)
	y := Pow(x, 3)
	chk.Scalar(t, "x^3", 1e-12, y.V, 8.0)
	chk.Scalar(t, "3x^2", 1e-12, y.Dx[0], 12.0)
}

func TestSeedWidthOverflow(t *testing.T) {
	chk.PrintTitle("ad: seeding beyond MaxDeriv is an AssemblyError")
	_, err := Seed(MaxDeriv+1, 0, 1.0)
	if err == nil {
		t.Fatal("expected an error when seeding width exceeds MaxDeriv")
	}
}

func TestDivMatchesFiniteDifference(t *testing.T) {
	chk.PrintTitle("ad: quotient rule vs central difference")
	h := 1e-6
	f := func(u float64) float64 { return u / (1 + u*u) }
	u0 := 0.7
	x, _ := Seed(1, 0, u0)
	one := Const(1.0)
	one.N = 1
	denom := Add(one, Mul(x, x))
	y := Div(x, denom)
	fd := (f(u0+h) - f(u0-h)) / (2 * h)
	if math.Abs(y.Dx[0]-fd) > 1e-6 {
		t.Fatalf("AD derivative %g disagrees with finite difference %g", y.Dx[0], fd)
	}
}
