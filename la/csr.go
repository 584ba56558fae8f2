package la

import "sort"

// CSR is a compressed sparse row matrix built from a Matrix's owned
// entries, used by the Krylov solver and preconditioners. It is kept
// independent of gosl's own sparse representations so the iterative
// solve and preconditioning logic owns a simple, inspectable structure.
type CSR struct {
	N       int
	RowPtr  []int
	ColIdx  []int
	Val     []float64
	diagIdx []int // index into ColIdx/Val of the diagonal entry per row, or -1
}

// BuildCSR sums duplicate (i,j) entries and returns the owned matrix in
// CSR form.
func (m *Matrix) BuildCSR() *CSR {
	n := m.Exp.Owned.Size()
	type kv struct{ j int; v float64 }
	rows := make(map[int]map[int]float64, n)
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
		row, ok3 := rows[oi]
		if !ok3 {
			row = make(map[int]float64)
			rows[oi] = row
		}
		row[oj] += e.v
	}
	c := &CSR{N: n, RowPtr: make([]int, n+1), diagIdx: make([]int, n)}
	for i := 0; i < n; i++ {
		row := rows[i]
		cols := make([]int, 0, len(row))
		for j := range row {
			cols = append(cols, j)
		}
		sort.Ints(cols)
		c.diagIdx[i] = -1
		for _, j := range cols {
			if j == i {
				c.diagIdx[i] = len(c.ColIdx)
			}
			c.ColIdx = append(c.ColIdx, j)
			c.Val = append(c.Val, row[j])
		}
		c.RowPtr[i+1] = len(c.ColIdx)
	}
	return c
}

// MatVec computes y = A*x.
func (c *CSR) MatVec(y, x []float64) {
	for i := 0; i < c.N; i++ {
		var s float64
		for k := c.RowPtr[i]; k < c.RowPtr[i+1]; k++ {
			s += c.Val[k] * x[c.ColIdx[k]]
		}
		y[i] = s
	}
}

// Transpose returns A^T in CSR form, needed by the adjoint linear solve
// (J^T φ = ∂L/∂u) since the assembler only ever builds the forward
// Jacobian.
func (c *CSR) Transpose() *CSR {
	t := &CSR{N: c.N, RowPtr: make([]int, c.N+1), diagIdx: make([]int, c.N)}
	counts := make([]int, c.N)
	for _, j := range c.ColIdx {
		counts[j]++
	}
	for i := 0; i < c.N; i++ {
		t.RowPtr[i+1] = t.RowPtr[i] + counts[i]
	}
	t.ColIdx = make([]int, len(c.ColIdx))
	t.Val = make([]float64, len(c.Val))
	next := append([]int(nil), t.RowPtr[:c.N]...)
	for i := 0; i < c.N; i++ {
		for k := c.RowPtr[i]; k < c.RowPtr[i+1]; k++ {
			j := c.ColIdx[k]
			pos := next[j]
			t.ColIdx[pos] = i
			t.Val[pos] = c.Val[k]
			next[j]++
		}
	}
	for i := 0; i < c.N; i++ {
		t.diagIdx[i] = -1
		for k := t.RowPtr[i]; k < t.RowPtr[i+1]; k++ {
			if t.ColIdx[k] == i {
				t.diagIdx[i] = k
				break
			}
		}
	}
	return t
}

// Diagonal returns the matrix's diagonal, 0 where no explicit entry
// exists.
func (c *CSR) Diagonal() []float64 {
	d := make([]float64, c.N)
	for i := 0; i < c.N; i++ {
		if k := c.diagIdx[i]; k >= 0 {
			d[i] = c.Val[k]
		}
	}
	return d
}
