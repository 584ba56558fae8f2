package shp

import (
	"math"

	"github.com/sandialabs/milo/errs"
)

// Element binds a Basis to one cell's physical node coordinates and
// evaluates basis values/physical gradients and the volume/surface
// integration weight at a given reference point — the discretization
// component's public surface.
type Element struct {
	B    *Basis
	X    [][]float64 // [ndim][nverts] physical node coordinates
	Ndim int

	// last-evaluated scratch (reused across quadrature points of one cell
	// to avoid per-IP allocation)
	S    []float64
	dSdR [][]float64
	G    []float64 // flattened [nverts*ndim] physical gradient
	J    float64   // det(Jacobian) at the last evaluation point

	invJ [3][3]float64 // dr_j/dx_i at the last evaluation point
}

// NewElement allocates an Element for the given basis and node
// coordinates.
func NewElement(b *Basis, x [][]float64) *Element {
	e := &Element{B: b, X: x, Ndim: b.Ndim}
	e.S = make([]float64, b.Nverts)
	e.dSdR = make([][]float64, b.Nverts)
	for m := range e.dSdR {
		e.dSdR[m] = make([]float64, b.Ndim)
	}
	e.G = make([]float64, b.Nverts*b.Ndim)
	return e
}

// GradAt returns the physical gradient of local basis function m at the
// last-evaluated point, as a slice of length Ndim.
func (e *Element) GradAt(m int) []float64 {
	return e.G[m*e.Ndim : (m+1)*e.Ndim]
}

// CalcAtIp evaluates S, physical gradients G and det(J) at reference point
// r (length Ndim). It fills unweighted tables only; callers multiply by
// det(J) and the quadrature weight themselves.
func (e *Element) CalcAtIp(r []float64) error {
	e.B.Eval(r, e.S, e.dSdR)

	// Jacobian d(x_i)/d(r_j) = sum_m dSdR[m][j] * X[i][m]
	var jmat [3][3]float64
	n := e.Ndim
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var s float64
			for m := 0; m < e.B.Nverts; m++ {
				s += e.dSdR[m][j] * e.X[i][m]
			}
			jmat[i][j] = s
		}
	}
	det, inv, err := invert(jmat, n)
	if err != nil {
		return err
	}
	if det <= 0 {
		return errs.AssemblyError("non-positive Jacobian determinant %g: degenerate or inverted element", det)
	}
	e.J = det
	e.invJ = inv

	// physical gradient: G[m][i] = sum_j dSdR[m][j] * invJ[j][i]
	for m := 0; m < e.B.Nverts; m++ {
		for i := 0; i < n; i++ {
			var s float64
			for j := 0; j < n; j++ {
				s += e.dSdR[m][j] * inv[j][i]
			}
			e.G[m*n+i] = s
		}
	}
	return nil
}

// RealCoords maps a reference point r to physical coordinates using the
// isoparametric map.
func (e *Element) RealCoords(r []float64) []float64 {
	S := make([]float64, e.B.Nverts)
	dS := make([][]float64, e.B.Nverts)
	for m := range dS {
		dS[m] = make([]float64, e.Ndim)
	}
	e.B.Eval(r, S, dS)
	x := make([]float64, e.Ndim)
	for i := 0; i < e.Ndim; i++ {
		for m := 0; m < e.B.Nverts; m++ {
			x[i] += S[m] * e.X[i][m]
		}
	}
	return x
}

// FaceNormal returns the outward unit physical normal and the surface
// Jacobian (the scale factor converting a reference-face quadrature
// weight into a physical surface measure) for the face fixed at
// reference direction dir with boundary value val (-1 or +1). Must be
// called immediately after CalcAtIp at a reference point lying on that
// face, via Nanson's formula n dA = det(J) J^{-T} N dA0.
func (e *Element) FaceNormal(dir int, val float64) (normal []float64, ds float64) {
	n := e.Ndim
	raw := make([]float64, n)
	var norm2 float64
	for i := 0; i < n; i++ {
		raw[i] = e.J * e.invJ[dir][i] * val
		norm2 += raw[i] * raw[i]
	}
	ds = math.Sqrt(norm2)
	normal = make([]float64, n)
	if ds > 0 {
		for i := 0; i < n; i++ {
			normal[i] = raw[i] / ds
		}
	}
	return normal, ds
}

// invert returns det and inverse of the leading n x n block of a 3x3
// matrix, supporting n in {1,2,3}.
func invert(a [3][3]float64, n int) (det float64, inv [3][3]float64, err error) {
	switch n {
	case 1:
		det = a[0][0]
		if det == 0 {
			return 0, inv, errs.AssemblyError("singular 1x1 Jacobian")
		}
		inv[0][0] = 1 / det
		return det, inv, nil
	case 2:
		det = a[0][0]*a[1][1] - a[0][1]*a[1][0]
		if det == 0 {
			return 0, inv, errs.AssemblyError("singular 2x2 Jacobian")
		}
		id := 1 / det
		inv[0][0] = a[1][1] * id
		inv[0][1] = -a[0][1] * id
		inv[1][0] = -a[1][0] * id
		inv[1][1] = a[0][0] * id
		return det, inv, nil
	case 3:
		det = a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
			a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
			a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
		if det == 0 {
			return 0, inv, errs.AssemblyError("singular 3x3 Jacobian")
		}
		id := 1 / det
		inv[0][0] = (a[1][1]*a[2][2] - a[1][2]*a[2][1]) * id
		inv[0][1] = (a[0][2]*a[2][1] - a[0][1]*a[2][2]) * id
		inv[0][2] = (a[0][1]*a[1][2] - a[0][2]*a[1][1]) * id
		inv[1][0] = (a[1][2]*a[2][0] - a[1][0]*a[2][2]) * id
		inv[1][1] = (a[0][0]*a[2][2] - a[0][2]*a[2][0]) * id
		inv[1][2] = (a[0][2]*a[1][0] - a[0][0]*a[1][2]) * id
		inv[2][0] = (a[1][0]*a[2][1] - a[1][1]*a[2][0]) * id
		inv[2][1] = (a[0][1]*a[2][0] - a[0][0]*a[2][1]) * id
		inv[2][2] = (a[0][0]*a[1][1] - a[0][1]*a[1][0]) * id
		return det, inv, nil
	}
	return 0, inv, errs.AssemblyError("invert: unsupported dimension %d", n)
}
