package la

import gosl "github.com/cpmech/gosl/la"

type tripletEntry struct {
	i, j int
	v    float64
}

// Matrix wraps the ghosted-assembly-then-export-to-owned pattern: cells
// insert into a ghosted triplet during the assembly loop; Export sums
// (ADD-combines) the ghosted entries that land on owned rows into an
// owned triplet, which is then compressed to CSC for the solve.
//
// The ghosted entries are additionally mirrored into a plain Go slice
// (entries) because the additive combine needs to re-map each entry's
// row/column from ghosted-local to owned-local indices, which is cheaper
// done against our own record than by reading back through gosl's
// opaque triplet.
type Matrix struct {
	Exp     *Exporter
	Options SolveOptions

	ghosted *gosl.Triplet
	owned   *gosl.Triplet
	entries []tripletEntry
}

// NewMatrix allocates the ghosted and owned triplets sized for at most
// nnzGhosted and nnzOwned entries; each bound must cover every Put,
// duplicates included, since gosl's Triplet keeps the capacity given to
// Init.
func NewMatrix(exp *Exporter, nnzGhosted, nnzOwned int) *Matrix {
	m := &Matrix{Exp: exp, Options: DefaultSolveOptions()}
	m.ghosted = new(gosl.Triplet)
	m.ghosted.Init(exp.Ghosted.Size(), exp.Ghosted.Size(), nnzGhosted)
	m.owned = new(gosl.Triplet)
	m.owned.Init(exp.Owned.Size(), exp.Owned.Size(), nnzOwned)
	return m
}

// Reset clears both triplets for the next Newton iteration's assembly.
func (m *Matrix) Reset() {
	m.ghosted.Start()
	m.owned.Start()
	m.entries = m.entries[:0]
}

// PutGhosted inserts one entry using ghosted-local row/column indices
// (as the per-cell GID table produces).
func (m *Matrix) PutGhosted(i, j int, v float64) {
	m.ghosted.Put(i, j, v)
	m.entries = append(m.entries, tripletEntry{i, j, v})
}

// ZeroRow discards every previously accumulated entry on ghosted-local
// row li, so a subsequent PutGhosted(li, li, 1) gives that row a clean
// identity equation — the Jacobian side of strong Dirichlet row
// replacement, which an additive triplet combine cannot express by
// simply inserting one more entry.
func (m *Matrix) ZeroRow(li int) {
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.i != li {
			kept = append(kept, e)
		}
	}
	m.entries = kept
}

// Export sums ghosted entries whose row and column are owned into the
// owned triplet, the matrix analog of ExportAddVector. Entries touching
// a DOF not present in the owned map belong to another rank's export and
// are dropped here.
func (m *Matrix) Export() {
	for _, e := range m.entries {
		gi := m.Exp.Ghosted.GlobalIDs[e.i]
		gj := m.Exp.Ghosted.GlobalIDs[e.j]
		oi, ok := m.Exp.Owned.LocalOf(gi)
		if !ok {
			continue
		}
		oj, ok2 := m.Exp.Owned.LocalOf(gj)
		if !ok2 {
			continue
		}
		m.owned.Put(oi, oj, e.v)
	}
}

// Owned returns the owned triplet (duplicate (i,j) entries are summed
// when compressed to CSC, giving the additive combine).
func (m *Matrix) Owned() *gosl.Triplet { return m.owned }

// ToCCMatrix compresses the owned triplet to CSC form for factorization.
func (m *Matrix) ToCCMatrix() *gosl.CCMatrix {
	return m.owned.ToMatrix(nil)
}
