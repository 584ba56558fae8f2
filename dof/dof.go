// Package dof implements global DOF numbering, owned/ghosted
// partitioning, per-field offset tables, and side-tag-driven Dirichlet
// identification — the component spec.md calls the "DOF manager".
package dof

import "github.com/sandialabs/milo/errs"

// SideKind is the four-integer side-info tag's "kind" field (spec.md §3).
type SideKind int

const (
	SideNone           SideKind = 0
	SideWeakDirichlet  SideKind = 1
	SideNeumann        SideKind = 2
	SideMultiscale     SideKind = 4 // interior interface; -1 marks the neighbor
	SideStrongDirichlet SideKind = 5
)

// SideInfo is the four-integer tag per (element, variable, side).
type SideInfo struct {
	Kind      SideKind
	BoundSet  int // boundary-set id
	X, Y      int // auxiliary payload: e.g. neighbor marker for SideMultiscale
}

// Variable is a named field with a basis family/order, belonging to one
// element block (spec.md §3 "Variable").
type Variable struct {
	Name  string
	Block int
	Order int    // polynomial order of its basis (1 or 2)
	Basis string // basis family, e.g. "HGRAD"
}

// Block describes one element block: topologically identical cells
// sharing a cell topology, a variable list, and a physics module list.
type Block struct {
	Name      string
	Ndim      int
	NElems    int
	Variables []Variable
	Physics   []string
}

// Manager builds the global numbering for one mesh's set of blocks.
type Manager struct {
	Blocks []Block

	// global sizes
	NOwned  int // owned DOF count on this rank
	NGhost  int // ghost DOF count on this rank

	// perBlockOffsets[b] gives, for each variable in block b, the local
	// DOF slot assigned to basis function i: offsets[b][varIdx][i] ->
	// local row within the element's dof vector.
	perBlockOffsets [][][]int

	// bindings maps (block, elemLocalIdx, localDofSlot) -> global id;
	// populated by BindElement as elements are registered.
	bindings []elementBinding

	dirichletStrong map[int]float64 // global DOF id -> prescribed value
	dirichletWeak   map[int]bool    // global DOF id participates in a weak (Nitsche) side
}

type elementBinding struct {
	block   int
	elem    int
	gids    []int // global DOF ids for this element, ordered by local slot
}

// NewManager returns a Manager with no blocks registered yet.
func NewManager() *Manager {
	return &Manager{
		dirichletStrong: make(map[int]float64),
		dirichletWeak:   make(map[int]bool),
	}
}

// AddBlock registers a block and returns its index.
func (m *Manager) AddBlock(b Block) int {
	m.Blocks = append(m.Blocks, b)
	m.perBlockOffsets = append(m.perBlockOffsets, nil)
	return len(m.Blocks) - 1
}

// SetOffsets records the per-variable, per-basis-function local dof slot
// table for a block (spec.md's Variable "per-element offset table").
func (m *Manager) SetOffsets(block int, offsets [][]int) error {
	if block < 0 || block >= len(m.Blocks) {
		return errs.ConsistencyError("dof: block index %d out of range", block)
	}
	m.perBlockOffsets[block] = offsets
	return nil
}

// Offsets returns the offset table for a block.
func (m *Manager) Offsets(block int) [][]int {
	return m.perBlockOffsets[block]
}

// BindElement records the global DOF ids for one element's local dof
// vector (the "index table" of spec.md's Cell data model), and grows the
// owned-DOF count so NOwned always reflects the high-water mark of global
// ids seen so far.
func (m *Manager) BindElement(block, elem int, gids []int) {
	m.bindings = append(m.bindings, elementBinding{block: block, elem: elem, gids: append([]int(nil), gids...)})
	for _, g := range gids {
		if g+1 > m.NOwned {
			m.NOwned = g + 1
		}
	}
}

// GIDs returns the global DOF ids bound to the given (block, elem) pair,
// or nil if unbound.
func (m *Manager) GIDs(block, elem int) []int {
	for _, b := range m.bindings {
		if b.block == block && b.elem == elem {
			return b.gids
		}
	}
	return nil
}

// SetStrongDirichlet marks global DOF gid as a strong (row-replacement)
// Dirichlet constraint with the given prescribed value.
func (m *Manager) SetStrongDirichlet(gid int, value float64) {
	m.dirichletStrong[gid] = value
}

// IsStrongDirichlet reports whether gid carries a strong constraint, and
// its prescribed value.
func (m *Manager) IsStrongDirichlet(gid int) (bool, float64) {
	v, ok := m.dirichletStrong[gid]
	return ok, v
}

// SetWeakDirichlet marks global DOF gid as touched by a weak (Nitsche)
// boundary side. The set is only recorded: no Manager method reads it
// back, and no consistency check consults it.
func (m *Manager) SetWeakDirichlet(gid int) {
	m.dirichletWeak[gid] = true
}

// StrongDirichletIDs returns all global DOF ids under a strong
// constraint, for the assembler's row-replacement pass.
func (m *Manager) StrongDirichletIDs() map[int]float64 {
	return m.dirichletStrong
}

// NumEquations returns the total number of global DOFs registered by
// BindElement calls so far.
func (m *Manager) NumEquations() int { return m.NOwned }
