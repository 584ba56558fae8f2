// Package ad implements forward-mode dual-number automatic differentiation
// with a fixed maximum derivative count, for use as the residual scalar
// type inside the element assembly hot path. A fixed-capacity array (no
// heap allocation per quadrature point) is used instead of a variable
// sized slice so a workset's residual buffer can be preallocated once per
// block and cleared rather than reallocated on every cell.
package ad

import (
	"math"

	"github.com/sandialabs/milo/errs"
)

// MaxDeriv bounds the number of simultaneous derivative slots a Value can
// carry: dofsPerElem + nActiveParams + nLocalParamDofs, per spec.md §9.
// 96 covers every scenario seeded in the test suite (up to a 27-node hex
// with one scalar variable plus a handful of active/discretized
// parameters); a larger workload should raise this constant.
const MaxDeriv = 96

// Value is a dual number: a value plus up to MaxDeriv partial derivatives.
// Only the first N slots (N == the active width for a given pass) are
// meaningful; callers must not read beyond the width they seeded with.
type Value struct {
	V  float64
	Dx [MaxDeriv]float64
	N  int // active derivative width for this pass
}

// Const returns a Value with no active derivatives.
func Const(v float64) Value { return Value{V: v} }

// Seed returns a Value seeded as an independent variable at slot j out of
// width n: v with d/dx_j == 1 and all other derivatives zero.
func Seed(n, j int, v float64) (Value, error) {
	if n > MaxDeriv {
		return Value{}, errs.AssemblyError("AD seeding width %d exceeds MaxDeriv=%d", n, MaxDeriv)
	}
	if j < 0 || j >= n {
		return Value{}, errs.AssemblyError("AD seed slot %d out of range [0,%d)", j, n)
	}
	var x Value
	x.V = v
	x.N = n
	x.Dx[j] = 1
	return x, nil
}

// widen returns the larger active width of a and b, for mixed-width
// arithmetic (e.g. a constant combined with a seeded value).
func widen(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Add returns a + b.
func Add(a, b Value) Value {
	n := widen(a.N, b.N)
	r := Value{V: a.V + b.V, N: n}
	for i := 0; i < n; i++ {
		r.Dx[i] = a.Dx[i] + b.Dx[i]
	}
	return r
}

// Sub returns a - b.
func Sub(a, b Value) Value {
	n := widen(a.N, b.N)
	r := Value{V: a.V - b.V, N: n}
	for i := 0; i < n; i++ {
		r.Dx[i] = a.Dx[i] - b.Dx[i]
	}
	return r
}

// Mul returns a * b.
func Mul(a, b Value) Value {
	n := widen(a.N, b.N)
	r := Value{V: a.V * b.V, N: n}
	for i := 0; i < n; i++ {
		r.Dx[i] = a.Dx[i]*b.V + a.V*b.Dx[i]
	}
	return r
}

// Div returns a / b.
func Div(a, b Value) Value {
	n := widen(a.N, b.N)
	r := Value{V: a.V / b.V, N: n}
	inv := 1.0 / b.V
	for i := 0; i < n; i++ {
		r.Dx[i] = (a.Dx[i] - r.V*b.Dx[i]) * inv
	}
	return r
}

// Scale returns c * a for a plain float64 scale factor c.
func Scale(c float64, a Value) Value {
	r := Value{V: c * a.V, N: a.N}
	for i := 0; i < a.N; i++ {
		r.Dx[i] = c * a.Dx[i]
	}
	return r
}

// AddScaled returns a + c*b (fused, avoids an intermediate Value).
func AddScaled(a Value, c float64, b Value) Value {
	n := widen(a.N, b.N)
	r := Value{V: a.V + c*b.V, N: n}
	for i := 0; i < n; i++ {
		r.Dx[i] = a.Dx[i] + c*b.Dx[i]
	}
	return r
}

// Neg returns -a.
func Neg(a Value) Value {
	r := Value{V: -a.V, N: a.N}
	for i := 0; i < a.N; i++ {
		r.Dx[i] = -a.Dx[i]
	}
	return r
}

// Pow returns a**p for a real constant exponent p (sufficient for the
// polynomial constitutive forms used by the physics modules; a general
// a**b with both dual is not needed by the closed physics set).
func Pow(a Value, p float64) Value {
	vp := pow(a.V, p-1)
	r := Value{V: vp * a.V, N: a.N}
	d := p * vp
	for i := 0; i < a.N; i++ {
		r.Dx[i] = d * a.Dx[i]
	}
	return r
}

func pow(x, p float64) float64 { return math.Pow(x, p) }
