package la

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func identityMaps(n int) *Exporter {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	owned := NewMap(ids)
	ghosted := NewMap(ids)
	exp, err := NewExporter(owned, ghosted)
	if err != nil {
		panic(err)
	}
	return exp
}

// tridiag builds a symmetric positive-definite 1D Laplacian-like matrix
// (2 on the diagonal, -1 off-diagonal), the standard smoke test for a
// Krylov solver and its preconditioners.
func tridiag(n int) *Matrix {
	exp := identityMaps(n)
	m := NewMatrix(exp, 3*n, 3*n)
	for i := 0; i < n; i++ {
		m.PutGhosted(i, i, 2.0)
		if i > 0 {
			m.PutGhosted(i, i-1, -1.0)
		}
		if i < n-1 {
			m.PutGhosted(i, i+1, -1.0)
		}
	}
	m.Export()
	return m
}

func TestCSRMatVecMatchesDenseTridiag(t *testing.T) {
	chk.PrintTitle("la: CSR matvec matches the hand-computed tridiagonal product")
	m := tridiag(4)
	c := m.BuildCSR()
	x := []float64{1, 1, 1, 1}
	y := make([]float64, 4)
	c.MatVec(y, x)
	// row 0: 2-1=1, interior rows: 2-1-1=0, row 3: -1+2=1
	want := []float64{1, 0, 0, 1}
	for i := range want {
		chk.Scalar(t, "y", 1e-13, y[i], want[i])
	}
}

func TestGMRESSolvesTridiagonalSystem(t *testing.T) {
	chk.PrintTitle("la: GMRES with Jacobi preconditioning solves a tridiagonal system")
	n := 20
	m := tridiag(n)
	csr := m.BuildCSR()
	b := make([]float64, n)
	for i := range b {
		b[i] = 1.0
	}
	x := make([]float64, n)
	jac := NewJacobiPC(csr)
	rel, ok := GMRES(csr, jac, b, x, GMRESOptions{Restart: 20, MaxRestarts: 20, Tol: 1e-10})
	if !ok {
		t.Fatalf("GMRES failed to converge, relative residual %e", rel)
	}
	res := make([]float64, n)
	csr.MatVec(res, x)
	var maxErr float64
	for i := range res {
		if d := math.Abs(res[i] - b[i]); d > maxErr {
			maxErr = d
		}
	}
	chk.Scalar(t, "||Ax-b||inf", 1e-8, maxErr, 0)
}

func TestAMGPreconditionedGMRESConverges(t *testing.T) {
	chk.PrintTitle("la: AMG V-cycle preconditioning converges on a larger tridiagonal system")
	n := 64
	m := tridiag(n)
	csr := m.BuildCSR()
	b := make([]float64, n)
	for i := range b {
		b[i] = 1.0
	}
	x := make([]float64, n)
	amg := BuildAMGPC(csr, 4, 8)
	rel, ok := GMRES(csr, amg, b, x, GMRESOptions{Restart: 30, MaxRestarts: 30, Tol: 1e-9})
	if !ok {
		t.Fatalf("AMG-preconditioned GMRES failed to converge, relative residual %e", rel)
	}
}

func TestCSRTransposeMatchesHandComputationForAnAsymmetricMatrix(t *testing.T) {
	chk.PrintTitle("la: CSR.Transpose matches a hand-built asymmetric matrix's transpose")
	exp := identityMaps(2)
	m := NewMatrix(exp, 4, 4)
	m.PutGhosted(0, 0, 1.0)
	m.PutGhosted(0, 1, 2.0)
	m.PutGhosted(1, 0, 3.0)
	m.Export()
	c := m.BuildCSR()
	ct := c.Transpose()
	x := []float64{1, 0}
	y := make([]float64, 2)
	ct.MatVec(y, x)
	// A^T row 0 = [1,3], row 1 = [2,0]; (A^T x) with x=[1,0] = [1,2]
	chk.Scalar(t, "y0", 1e-13, y[0], 1.0)
	chk.Scalar(t, "y1", 1e-13, y[1], 2.0)
}

func TestSolveTransposeSolvesAnAsymmetricSystem(t *testing.T) {
	chk.PrintTitle("la: SolveTranspose solves A^T x = b against an asymmetric matrix")
	exp := identityMaps(2)
	m := NewMatrix(exp, 4, 4)
	m.PutGhosted(0, 0, 1.0)
	m.PutGhosted(0, 1, 2.0)
	m.PutGhosted(1, 0, 3.0)
	m.PutGhosted(1, 1, 1.0)
	m.Export()
	m.Options.GMRES.Tol = 1e-12
	m.Options.CoarseSize = 1
	// A^T = [[1,3],[2,1]]; solve A^T x = [7,4] -> x = [1,2]
	x := make([]float64, 2)
	b := []float64{7, 4}
	if err := m.SolveTranspose(x, b); err != nil {
		t.Fatalf("unexpected solve error: %v", err)
	}
	chk.Scalar(t, "x0", 1e-7, x[0], 1.0)
	chk.Scalar(t, "x1", 1e-7, x[1], 2.0)
}

func TestSolveFallsBackWhenMatrixIsTiny(t *testing.T) {
	chk.PrintTitle("la: Matrix.Solve succeeds on a trivial diagonal system via the cascade")
	exp := identityMaps(3)
	m := NewMatrix(exp, 3, 3)
	m.PutGhosted(0, 0, 4.0)
	m.PutGhosted(1, 1, 4.0)
	m.PutGhosted(2, 2, 4.0)
	m.Export()
	m.Options.GMRES.Tol = 1e-12
	m.Options.CoarseSize = 1
	x := make([]float64, 3)
	b := []float64{4, 8, 12}
	if err := m.Solve(x, b); err != nil {
		t.Fatalf("unexpected solve error: %v", err)
	}
	want := []float64{1, 2, 3}
	for i := range want {
		chk.Scalar(t, "x", 1e-8, x[i], want[i])
	}
}
