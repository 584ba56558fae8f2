package assembly

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"

	"github.com/sandialabs/milo/cell"
	"github.com/sandialabs/milo/dof"
	"github.com/sandialabs/milo/ele"
	"github.com/sandialabs/milo/ele/thermal"
	"github.com/sandialabs/milo/function"
	"github.com/sandialabs/milo/la"
	"github.com/sandialabs/milo/shp"
)

// build2ElemBar wires a 2-element, 3-node 1D bar (length 1 each) in block
// "bar" with a single thermal variable "u" and returns the assembler
// along with its dof.Manager and linear-algebra maps.
func build2ElemBar(t *testing.T) (*Manager, *dof.Manager, *la.Map, *la.Matrix) {
	d := dof.NewManager()
	block := d.AddBlock(dof.Block{Name: "bar", Ndim: 1, NElems: 2,
		Variables: []dof.Variable{{Name: "u", Block: 0, Order: 1, Basis: "HGRAD"}},
		Physics:   []string{"thermal"}})
	offsets := [][]int{{0, 1}}
	if err := d.SetOffsets(block, offsets); err != nil {
		t.Fatal(err)
	}
	d.BindElement(block, 0, []int{0, 1})
	d.BindElement(block, 1, []int{1, 2})
	d.SetStrongDirichlet(0, 0.0)
	d.SetStrongDirichlet(2, 1.0)

	ids := []int{0, 1, 2}
	ghosted := la.NewMap(ids)

	mod, err := ele.New("thermal", "bar")
	if err != nil {
		t.Fatal(err)
	}
	mod.(*thermal.Module).Cond = thermal.Conductivity{A0: 1}

	basis := shp.NewBasis(1, 1)
	fm := function.NewManager()
	fm.AddSpaceTime("specific heat", function.LocIP, block, &fun.Cte{C: 1})

	batch, err := cell.NewBatch(block, []string{"u"}, offsets, basis, 2, []ele.Module{mod}, fm)
	if err != nil {
		t.Fatal(err)
	}

	a := NewManager(d, ghosted)
	a.BindBlock(block, batch, BlockMesh{
		Coords: [][][]float64{
			{{0, 1}},
			{{1, 2}},
		},
	})

	exp, err := la.NewExporter(ghosted, ghosted)
	if err != nil {
		t.Fatal(err)
	}
	J := la.NewMatrix(exp, 32, 32)
	return a, d, ghosted, J
}

func TestResidualVanishesAtTheExactLinearSolution(t *testing.T) {
	chk.PrintTitle("assembly: residual is zero at the exact steady linear-diffusion solution")
	a, _, ghosted, J := build2ElemBar(t)
	u := []float64{0.0, 0.5, 1.0} // exact steady solution for k=const, no source
	R := make([]float64, ghosted.Size())
	if err := a.Residual(AssembleOptions{}, u, u, R, J); err != nil {
		t.Fatal(err)
	}
	for i, r := range R {
		chk.Scalar(t, "R", 1e-10, r, 0)
		_ = i
	}
}

func TestStrongDirichletRowIsReplacedWithIdentity(t *testing.T) {
	chk.PrintTitle("assembly: strong Dirichlet rows become residual = u - g after assembly")
	a, _, ghosted, J := build2ElemBar(t)
	u := []float64{0.3, 0.5, 0.9} // off the Dirichlet values at the constrained nodes
	R := make([]float64, ghosted.Size())
	if err := a.Residual(AssembleOptions{}, u, u, R, J); err != nil {
		t.Fatal(err)
	}
	chk.Scalar(t, "R0", 1e-12, R[0], 0.3-0.0)
	chk.Scalar(t, "R2", 1e-12, R[2], 0.9-1.0)
}

func TestResidualRawSkipsStrongDirichletRowReplacement(t *testing.T) {
	chk.PrintTitle("assembly: ResidualRaw leaves strongly-constrained rows at their physics-only value")
	a, _, ghosted, J := build2ElemBar(t)
	u := []float64{0.0, 0.5, 1.0} // the exact steady solution, so interior rows still vanish
	R := make([]float64, ghosted.Size())
	if err := a.ResidualRaw(AssembleOptions{}, u, u, R, J); err != nil {
		t.Fatal(err)
	}
	// node 2 is only touched by element 1; its physics-only reaction is
	// k*u' = 1*(1.0-0.5)/1 = 0.5, not the 1.0-1.0=0 a replaced row would show.
	chk.Scalar(t, "R2 raw", 1e-10, R[2], 0.5)
}

func TestSetNeumannSideIsPickedUpByTheNextResidualCall(t *testing.T) {
	chk.PrintTitle("assembly: SetNeumannSide injects a prescribed flux that Residual then assembles")
	d := dof.NewManager()
	block := d.AddBlock(dof.Block{Name: "bar", Ndim: 1, NElems: 1,
		Variables: []dof.Variable{{Name: "u", Block: 0, Order: 1, Basis: "HGRAD"}},
		Physics:   []string{"thermal"}})
	offsets := [][]int{{0, 1}}
	if err := d.SetOffsets(block, offsets); err != nil {
		t.Fatal(err)
	}
	d.BindElement(block, 0, []int{0, 1})
	d.SetStrongDirichlet(0, 0.0)

	ghosted := la.NewMap([]int{0, 1})
	mod, err := ele.New("thermal", "bar")
	if err != nil {
		t.Fatal(err)
	}
	mod.(*thermal.Module).Cond = thermal.Conductivity{A0: 1}
	basis := shp.NewBasis(1, 1)
	fm := function.NewManager()
	fm.AddSpaceTime("specific heat", function.LocIP, block, &fun.Cte{C: 1})
	batch, err := cell.NewBatch(block, []string{"u"}, offsets, basis, 2, []ele.Module{mod}, fm)
	if err != nil {
		t.Fatal(err)
	}

	a := NewManager(d, ghosted)
	a.BindBlock(block, batch, BlockMesh{Coords: [][][]float64{{{0, 1}}}})

	face := basis.Faces()[1] // the Dir=0, Value=+1 face, touching local vertex 1
	a.SetNeumannSide(block, 0, face, -2.0)

	exp, err := la.NewExporter(ghosted, ghosted)
	if err != nil {
		t.Fatal(err)
	}
	J := la.NewMatrix(exp, 16, 16)
	u := []float64{0.0, 0.7}
	R := make([]float64, ghosted.Size())
	if err := a.Residual(AssembleOptions{}, u, u, R, J); err != nil {
		t.Fatal(err)
	}
	// node 1 is free (no strong constraint): its row is the volume flux
	// plus the Neumann BoundaryResidual contribution ad.Neg(Gdata) = 2.0.
	chk.Scalar(t, "R1 with Neumann flux", 1e-10, R[1], 0.7+2.0)
}
