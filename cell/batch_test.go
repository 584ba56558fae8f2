package cell

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"

	"github.com/sandialabs/milo/ele"
	"github.com/sandialabs/milo/ele/thermal"
	"github.com/sandialabs/milo/function"
	"github.com/sandialabs/milo/la"
	"github.com/sandialabs/milo/shp"
)

func identityGhostedMap(n int) *la.Map {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return la.NewMap(ids)
}

// TestAssembleElementSteadyLinearDiffusion builds a 2-node 1D line
// element with constant unit conductivity, zero source, and checks that
// the assembled residual matches the hand-derived stiffness k/L*(u1-u0)
// for a steady (alpha=0) state.
func TestAssembleElementSteadyLinearDiffusion(t *testing.T) {
	chk.PrintTitle("cell: steady 1D diffusion residual matches the analytic 2-node stiffness")

	mod, err := ele.New("thermal", "bar")
	if err != nil {
		t.Fatal(err)
	}
	mod.(*thermal.Module).Cond = thermal.Conductivity{A0: 1}
	basis := shp.NewBasis(1, 1)
	offsets := [][]int{{0, 1}} // one variable "u", 2 vertices -> slots 0,1
	fm := function.NewManager()
	fm.AddSpaceTime("specific heat", function.LocIP, 0, &fun.Cte{C: 1})

	batch, err := NewBatch(0, []string{"u"}, offsets, basis, 2, []ele.Module{mod}, fm)
	if err != nil {
		t.Fatal(err)
	}

	x := [][]float64{{0, 2}} // length-2 bar along x
	gids := []int{0, 1}
	ghosted := identityGhostedMap(2)
	uGhosted := []float64{1.0, 3.0}
	uPrev := []float64{1.0, 3.0}
	R := make([]float64, 2)
	exp, err := la.NewExporter(ghosted, ghosted)
	if err != nil {
		t.Fatal(err)
	}
	J := la.NewMatrix(exp, 8, 8)

	if err := batch.AssembleElement(0, gids, x, 0.0, 0.0, uGhosted, uPrev, ghosted, nil, false, 1.0, R, J); err != nil {
		t.Fatal(err)
	}

	// k(u)=1 (A0=1, others 0), L=2, du/dx=(3-1)/2=1. Row i is the integral
	// of k*du/dx*dphi_i/dx over the bar, which the Gauss rule integrates
	// exactly since the integrand is constant: with dphi0/dx = -1/2 and
	// dphi1/dx = +1/2, R0 = 1*1*(-0.5)*2 = -1 and R1 = 1*1*(0.5)*2 = 1,
	// i.e. k/L*(u0-u1) and k/L*(u1-u0).
	chk.Scalar(t, "R0", 1e-10, R[0], -1.0)
	chk.Scalar(t, "R1", 1e-10, R[1], 1.0)
}

func TestPow1overNConsistentWithSquareElement(t *testing.T) {
	chk.PrintTitle("cell: elementSize is the n-th root of the Jacobian determinant")
	b := shp.NewBasis(2, 1)
	x := [][]float64{{0, 1, 0, 1}, {0, 0, 1, 1}} // tensor-product vertex order: (0,0), (1,0), (0,1), (1,1)
	se := shp.NewElement(b, x)
	if err := se.CalcAtIp([]float64{0, 0}); err != nil {
		t.Fatal(err)
	}
	got := elementSize(se, 0)
	want := math.Sqrt(se.J)
	chk.Scalar(t, "h", 1e-12, got, want)
}
