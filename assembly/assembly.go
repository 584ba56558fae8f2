// Package assembly implements the assembly manager: it loops blocks then
// cells, drives each cell's contribution through cell.Batch, accumulates
// the owned+ghosted global residual and Jacobian, and enforces strong
// Dirichlet rows after assembly by row replacement — mirroring the
// teacher's Domain stage-assembly loop and EssentialBcs machinery,
// generalized with a second, weak (Nitsche) constraint path that the
// teacher's Lagrange-multiplier-only design does not have.
package assembly

import (
	"github.com/sandialabs/milo/cell"
	"github.com/sandialabs/milo/dof"
	"github.com/sandialabs/milo/ele"
	"github.com/sandialabs/milo/errs"
	"github.com/sandialabs/milo/la"
	"github.com/sandialabs/milo/shp"
)

// BlockMesh is the literal in-memory mesh the assembler walks for one
// block: per-element node coordinates, kept separate from dof.Block so a
// future real mesh reader can supply the same shape without touching
// Manager's signature (the inp.MeshSource extension point).
type BlockMesh struct {
	// Coords[e][dim][localVert] is element e's physical node coordinates.
	Coords [][][]float64
	// Sides[e] lists the boundary/interface sides touching element e, in
	// dof.SideInfo form; empty for interior elements.
	Sides [][]dof.SideInfo
	// SideFaces[e][k] is the reference-cube face corresponding to
	// Sides[e][k] (same indexing, same length).
	SideFaces [][]shp.Face
}

// Manager is the assembly manager: bound once per block to a dof.Manager,
// a cell.Batch, and that block's mesh, it fills a global residual/Jacobian
// pair given the current (ghosted) solution and its previous-step value.
type Manager struct {
	DOF     *dof.Manager
	Ghosted *la.Map

	blocks    []boundBlock
	overrides []sideOverride
}

type boundBlock struct {
	index int
	batch *cell.Batch
	mesh  BlockMesh
}

// sideOverride is an out-of-band boundary side attached to one element
// after BindBlock, used by the multiscale manager to drive a single
// macro-facing mortar side's trace lambda without rebuilding the block's
// whole mesh on every subgrid iteration.
type sideOverride struct {
	block, elem int
	side        cell.BoundarySide
}

// NewManager returns an assembler with no blocks bound yet.
func NewManager(d *dof.Manager, ghosted *la.Map) *Manager {
	return &Manager{DOF: d, Ghosted: ghosted}
}

// BindBlock attaches a cell.Batch and its mesh to a dof-manager block
// index, so later Residual/ResidualRaw calls know how to walk it.
func (m *Manager) BindBlock(block int, batch *cell.Batch, mesh BlockMesh) {
	m.blocks = append(m.blocks, boundBlock{index: block, batch: batch, mesh: mesh})
}

// toCellSides converts dof.SideInfo entries bound to one element into the
// cell package's resolved BoundarySide form, taking the prescribed data,
// mortar trace and form parameter of side k from gdata[k], lambda[k] and
// formParam[k] when those slices are long enough (0, 0 and 1 otherwise).
// Per-side values set through SetSide and its wrappers replace these
// entries afterwards.
func toCellSides(infos []dof.SideInfo, faces []shp.Face, gdata, lambda, formParam []float64) []cell.BoundarySide {
	sides := make([]cell.BoundarySide, 0, len(infos))
	for k, si := range infos {
		kind := ele.SideKind(si.Kind)
		if kind == ele.SideNone || kind == ele.SideStrongDirichlet {
			continue // strong constraints are enforced by row replacement, not a weak side term
		}
		var g, lam, fp float64
		if k < len(gdata) {
			g = gdata[k]
		}
		if k < len(lambda) {
			lam = lambda[k]
		}
		fp = 1.0
		if k < len(formParam) {
			fp = formParam[k]
		}
		face := shp.Face{}
		if k < len(faces) {
			face = faces[k]
		}
		sides = append(sides, cell.BoundarySide{Face: face, Kind: kind, Gdata: g, Lambda: lam, FormParam: fp})
	}
	return sides
}

// AssembleOptions carries the per-assembly-pass knobs that vary call to
// call: the BDF alpha coefficient, adjoint flag, and Nitsche form
// parameter.
type AssembleOptions struct {
	Time      float64
	Alpha     float64
	IsAdjoint bool
	FormParam float64
}

// Residual fills R (sized to the ghosted map) with the global residual
// for the given ghosted current/previous solution, looping every bound
// block's elements through its cell.Batch, and also accumulates the
// Jacobian into J if non-nil. Strong Dirichlet rows are replaced last.
func (m *Manager) Residual(opt AssembleOptions, uGhosted, uPrevGhosted []float64, R []float64, J *la.Matrix) error {
	if err := m.assembleAll(opt, uGhosted, uPrevGhosted, R, J); err != nil {
		return err
	}
	m.enforceStrongDirichlet(uGhosted, R, J)
	return nil
}

// ResidualRaw is Residual without the strong-Dirichlet row-replacement
// pass: every row keeps its physics-only accumulation, including rows
// that Residual would overwrite with the constraint residual. The
// multiscale manager uses this to read a subgrid's physics-only
// reaction at its macro-facing node — exactly the row Residual would
// otherwise have replaced with u-g.
func (m *Manager) ResidualRaw(opt AssembleOptions, uGhosted, uPrevGhosted []float64, R []float64, J *la.Matrix) error {
	return m.assembleAll(opt, uGhosted, uPrevGhosted, R, J)
}

func (m *Manager) assembleAll(opt AssembleOptions, uGhosted, uPrevGhosted []float64, R []float64, J *la.Matrix) error {
	for i := range R {
		R[i] = 0
	}
	if J != nil {
		J.Reset()
	}

	for _, bb := range m.blocks {
		nElems := len(bb.mesh.Coords)
		for e := 0; e < nElems; e++ {
			gids := m.DOF.GIDs(bb.index, e)
			if gids == nil {
				return errs.ConsistencyError("assembly: block %d element %d has no bound global dof ids", bb.index, e)
			}
			var sides []cell.BoundarySide
			if e < len(bb.mesh.Sides) {
				sides = toCellSides(bb.mesh.Sides[e], bb.mesh.SideFaces[e], nil, nil, nil)
			}
			sides = append(sides, m.overridesFor(bb.index, e)...)
			if err := bb.batch.AssembleElement(e, gids, bb.mesh.Coords[e], opt.Time, opt.Alpha,
				uGhosted, uPrevGhosted, m.Ghosted, sides, opt.IsAdjoint, opt.FormParam, R, J); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetSide attaches (or updates in place, keyed by face) a boundary side
// on one element outside the block's static mesh. The multiscale
// manager uses this to drive a macro-facing interface with a trace or
// flux value that changes every outer coupling iteration without the
// block's mesh itself changing.
func (m *Manager) SetSide(block, elem int, side cell.BoundarySide) {
	for i, ov := range m.overrides {
		if ov.block == block && ov.elem == elem && ov.side.Face.Dir == side.Face.Dir && ov.side.Face.Value == side.Face.Value {
			m.overrides[i].side = side
			return
		}
	}
	m.overrides = append(m.overrides, sideOverride{block: block, elem: elem, side: side})
}

// SetMultiscaleSide is SetSide specialized to a mortar trace side.
func (m *Manager) SetMultiscaleSide(block, elem int, face shp.Face, lambda float64) {
	m.SetSide(block, elem, cell.BoundarySide{Face: face, Kind: ele.SideMultiscale, Lambda: lambda, FormParam: 1.0})
}

// SetNeumannSide is SetSide specialized to a prescribed-flux side, used
// to feed a subgrid's upscaled Dirichlet-to-Neumann flux into the macro
// element it backs.
func (m *Manager) SetNeumannSide(block, elem int, face shp.Face, gdata float64) {
	m.SetSide(block, elem, cell.BoundarySide{Face: face, Kind: ele.SideNeumann, Gdata: gdata, FormParam: 1.0})
}

func (m *Manager) overridesFor(block, elem int) []cell.BoundarySide {
	var out []cell.BoundarySide
	for _, ov := range m.overrides {
		if ov.block == block && ov.elem == elem {
			out = append(out, ov.side)
		}
	}
	return out
}

// enforceStrongDirichlet replaces each strongly-constrained global row
// with the identity equation R_i = u_i - g_i, after the physics-driven
// accumulation above, per spec.md's "row-replacement" strong-BC path.
func (m *Manager) enforceStrongDirichlet(uGhosted []float64, R []float64, J *la.Matrix) {
	ids := m.DOF.StrongDirichletIDs()
	if len(ids) == 0 {
		return
	}
	for gid, value := range ids {
		li, ok := m.Ghosted.LocalOf(gid)
		if !ok {
			continue
		}
		R[li] = uGhosted[li] - value
		if J != nil {
			J.ZeroRow(li)
			J.PutGhosted(li, li, 1.0)
		}
	}
}
