package la

import "math"

// Preconditioner applies an approximate inverse to a residual vector.
type Preconditioner interface {
	Apply(z, r []float64)
}

// JacobiPC is the diagonal (point) preconditioner, the cheapest rung of
// the cascade.
type JacobiPC struct {
	inv []float64
}

func NewJacobiPC(a *CSR) *JacobiPC {
	d := a.Diagonal()
	inv := make([]float64, len(d))
	for i, v := range d {
		if v == 0 {
			inv[i] = 1
		} else {
			inv[i] = 1 / v
		}
	}
	return &JacobiPC{inv: inv}
}

func (p *JacobiPC) Apply(z, r []float64) {
	for i := range z {
		z[i] = p.inv[i] * r[i]
	}
}

// ILU0PC is an incomplete LU factorization with no fill-in beyond A's
// sparsity pattern, with a drop tolerance applied to the factor entries
// below it (spec.md §4.4's "dropTol" knob).
type ILU0PC struct {
	n       int
	rowPtr  []int
	colIdx  []int
	val     []float64
	diagIdx []int
}

func NewILU0PC(a *CSR, dropTol float64) *ILU0PC {
	n := a.N
	val := append([]float64(nil), a.Val...)
	rowPtr := a.RowPtr
	colIdx := a.ColIdx
	diagIdx := append([]int(nil), a.diagIdx...)

	colPos := make([]map[int]int, n)
	for i := 0; i < n; i++ {
		colPos[i] = make(map[int]int, rowPtr[i+1]-rowPtr[i])
		for k := rowPtr[i]; k < rowPtr[i+1]; k++ {
			colPos[i][colIdx[k]] = k
		}
	}

	for i := 0; i < n; i++ {
		for k := rowPtr[i]; k < rowPtr[i+1]; k++ {
			j := colIdx[k]
			if j >= i {
				continue
			}
			dk := diagIdx[j]
			if dk < 0 || val[dk] == 0 {
				continue
			}
			factor := val[k] / val[dk]
			if math.Abs(factor) < dropTol {
				val[k] = 0
				continue
			}
			val[k] = factor
			for m := rowPtr[j]; m < rowPtr[j+1]; m++ {
				col := colIdx[m]
				if col <= j {
					continue
				}
				if pos, ok := colPos[i][col]; ok {
					val[pos] -= factor * val[m]
				}
			}
		}
	}
	return &ILU0PC{n: n, rowPtr: rowPtr, colIdx: colIdx, val: val, diagIdx: diagIdx}
}

// Apply solves L*U*z = r via forward then backward substitution over the
// in-place ILU(0) factors.
func (p *ILU0PC) Apply(z, r []float64) {
	y := make([]float64, p.n)
	for i := 0; i < p.n; i++ {
		s := r[i]
		for k := p.rowPtr[i]; k < p.diagIdx[i]; k++ {
			s -= p.val[k] * y[p.colIdx[k]]
		}
		y[i] = s
	}
	for i := p.n - 1; i >= 0; i-- {
		s := y[i]
		for k := p.diagIdx[i] + 1; k < p.rowPtr[i+1]; k++ {
			s -= p.val[k] * z[p.colIdx[k]]
		}
		if p.val[p.diagIdx[i]] == 0 {
			z[i] = s
		} else {
			z[i] = s / p.val[p.diagIdx[i]]
		}
	}
}

// AMGLevel is one level of an aggregation multigrid hierarchy: an
// unsmoothed, piecewise-constant aggregation prolongator P, the Galerkin
// coarse operator Ac = P^T A P, and the Jacobi smoother for Ac.
type AMGLevel struct {
	P        *CSR // prolongator, fine rows x coarse cols
	Ac       *CSR
	smoother *JacobiPC
}

// AMGPC is a V-cycle aggregation multigrid preconditioner with up to
// maxLevels levels, coarsening until the coarse system drops below
// coarseSize (spec.md §4.4). The prolongator is not smoothed: each fine
// row maps to its one aggregate with weight 1.
type AMGPC struct {
	fine      *CSR
	fineSmoo  *JacobiPC
	levels    []AMGLevel
	coarse    *CSR
	coarseSmoo *JacobiPC
}

// BuildAMGPC aggregates neighborhoods of A greedily (unsmoothed
// aggregation) to build each level's prolongator, stopping once the
// coarse problem is smaller than coarseSize or maxLevels is reached.
func BuildAMGPC(a *CSR, maxLevels, coarseSize int) *AMGPC {
	pc := &AMGPC{fine: a, fineSmoo: NewJacobiPC(a)}
	cur := a
	for lvl := 0; lvl < maxLevels && cur.N > coarseSize; lvl++ {
		agg := greedyAggregate(cur)
		nAgg := 0
		for _, g := range agg {
			if g+1 > nAgg {
				nAgg = g + 1
			}
		}
		if nAgg >= cur.N || nAgg == 0 {
			break
		}
		p := prolongatorFromAggregates(cur.N, nAgg, agg)
		ac := galerkinCoarsen(cur, p)
		pc.levels = append(pc.levels, AMGLevel{P: p, Ac: ac, smoother: NewJacobiPC(ac)})
		cur = ac
	}
	pc.coarse = cur
	pc.coarseSmoo = NewJacobiPC(cur)
	return pc
}

// greedyAggregate assigns each row to an aggregate by sweeping rows in
// order and pulling in yet-unaggregated strongly-connected neighbors
// (|a_ij| above a fraction of sqrt(a_ii*a_jj)), the standard
// smoothed-aggregation strength-of-connection test.
func greedyAggregate(a *CSR) []int {
	agg := make([]int, a.N)
	for i := range agg {
		agg[i] = -1
	}
	diag := a.Diagonal()
	next := 0
	for i := 0; i < a.N; i++ {
		if agg[i] >= 0 {
			continue
		}
		agg[i] = next
		for k := a.RowPtr[i]; k < a.RowPtr[i+1]; k++ {
			j := a.ColIdx[k]
			if j == i || agg[j] >= 0 {
				continue
			}
			strength := diag[i] * diag[j]
			if strength <= 0 {
				continue
			}
			if math.Abs(a.Val[k]) >= 0.25*math.Sqrt(strength) {
				agg[j] = next
			}
		}
		next++
	}
	return agg
}

func prolongatorFromAggregates(nFine, nCoarse int, agg []int) *CSR {
	p := &CSR{N: nFine, RowPtr: make([]int, nFine+1), diagIdx: make([]int, nFine)}
	for i := 0; i < nFine; i++ {
		p.ColIdx = append(p.ColIdx, agg[i])
		p.Val = append(p.Val, 1.0)
		p.diagIdx[i] = -1
		p.RowPtr[i+1] = len(p.ColIdx)
	}
	_ = nCoarse
	return p
}

// galerkinCoarsen forms Ac = P^T A P directly via sparse triple-product
// accumulation into a map, avoiding an explicit CSR transpose.
func galerkinCoarsen(a, p *CSR) *CSR {
	nc := 0
	for _, c := range p.ColIdx {
		if c+1 > nc {
			nc = c + 1
		}
	}
	acc := make([]map[int]float64, nc)
	for i := range acc {
		acc[i] = make(map[int]float64)
	}
	// AP: fine x coarse
	ap := make([]map[int]float64, a.N)
	for i := 0; i < a.N; i++ {
		ap[i] = make(map[int]float64)
		for k := a.RowPtr[i]; k < a.RowPtr[i+1]; k++ {
			j := a.ColIdx[k]
			pc := p.ColIdx[j]
			ap[i][pc] += a.Val[k] * p.Val[j]
		}
	}
	for i := 0; i < a.N; i++ {
		pi := p.ColIdx[i]
		for pc, v := range ap[i] {
			acc[pi][pc] += v
		}
	}
	c := &CSR{N: nc, RowPtr: make([]int, nc+1), diagIdx: make([]int, nc)}
	for i := 0; i < nc; i++ {
		cols := make([]int, 0, len(acc[i]))
		for j := range acc[i] {
			cols = append(cols, j)
		}
		sortInts(cols)
		c.diagIdx[i] = -1
		for _, j := range cols {
			if j == i {
				c.diagIdx[i] = len(c.ColIdx)
			}
			c.ColIdx = append(c.ColIdx, j)
			c.Val = append(c.Val, acc[i][j])
		}
		c.RowPtr[i+1] = len(c.ColIdx)
	}
	return c
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Apply runs one V-cycle: pre-smooth, restrict the residual to the next
// coarser level, recurse (at the coarsest level, four Jacobi sweeps
// stand in for a direct solve),
// prolong the correction back, post-smooth.
func (pc *AMGPC) Apply(z, r []float64) {
	for i := range z {
		z[i] = 0
	}
	vcycle(pc.fine, pc.fineSmoo, pc.levels, pc.coarse, pc.coarseSmoo, z, r)
}

func vcycle(a *CSR, smoo *JacobiPC, levels []AMGLevel, coarse *CSR, coarseSmoo *JacobiPC, z, r []float64) {
	smooth(a, smoo, z, r, 2)
	res := make([]float64, a.N)
	computeResidual(a, z, r, res)

	if len(levels) == 0 {
		cz := make([]float64, coarse.N)
		smooth(coarse, coarseSmoo, cz, res, 4)
		for i := range z {
			z[i] += cz[i]
		}
		return
	}

	lvl := levels[0]
	coarseRes := make([]float64, lvl.Ac.N)
	restrict(lvl.P, res, coarseRes)
	coarseZ := make([]float64, lvl.Ac.N)
	vcycle(lvl.Ac, lvl.smoother, levels[1:], coarse, coarseSmoo, coarseZ, coarseRes)
	correction := make([]float64, a.N)
	prolong(lvl.P, coarseZ, correction)
	for i := range z {
		z[i] += correction[i]
	}
	smooth(a, smoo, z, r, 1)
}

func smooth(a *CSR, jac *JacobiPC, z, r []float64, sweeps int) {
	tmp := make([]float64, a.N)
	for s := 0; s < sweeps; s++ {
		computeResidual(a, z, r, tmp)
		corr := make([]float64, a.N)
		jac.Apply(corr, tmp)
		for i := range z {
			z[i] += 0.8 * corr[i]
		}
	}
}

func computeResidual(a *CSR, z, r, out []float64) {
	ax := make([]float64, a.N)
	a.MatVec(ax, z)
	for i := range out {
		out[i] = r[i] - ax[i]
	}
}

func restrict(p *CSR, fine, coarse []float64) {
	for i := range coarse {
		coarse[i] = 0
	}
	for i := 0; i < p.N; i++ {
		for k := p.RowPtr[i]; k < p.RowPtr[i+1]; k++ {
			coarse[p.ColIdx[k]] += p.Val[k] * fine[i]
		}
	}
}

func prolong(p *CSR, coarse, fine []float64) {
	for i := 0; i < p.N; i++ {
		for k := p.RowPtr[i]; k < p.RowPtr[i+1]; k++ {
			fine[i] += p.Val[k] * coarse[p.ColIdx[k]]
		}
	}
}
