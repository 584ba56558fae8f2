package la

import "math"

// GMRESOptions configures the restarted GMRES iteration.
type GMRESOptions struct {
	Restart    int
	MaxRestarts int
	Tol        float64 // relative residual tolerance
}

func DefaultGMRESOptions() GMRESOptions {
	return GMRESOptions{Restart: 30, MaxRestarts: 10, Tol: 1e-10}
}

// GMRES runs restarted, right-preconditioned GMRES for A x = b, starting
// from x (used as both initial guess and solution on return). It reports
// the achieved relative residual and whether Tol was met.
func GMRES(a *CSR, pc Preconditioner, b, x []float64, opt GMRESOptions) (relRes float64, converged bool) {
	n := a.N
	m := opt.Restart
	if m > n {
		m = n
	}
	if m < 1 {
		m = 1
	}
	bnorm := norm2(b)
	if bnorm == 0 {
		bnorm = 1
	}

	ax := make([]float64, n)
	r := make([]float64, n)
	for restart := 0; restart < opt.MaxRestarts; restart++ {
		a.MatVec(ax, x)
		for i := range r {
			r[i] = b[i] - ax[i]
		}
		beta := norm2(r)
		relRes = beta / bnorm
		if relRes <= opt.Tol {
			return relRes, true
		}

		v := make([][]float64, m+1)
		v[0] = make([]float64, n)
		for i := range r {
			v[0][i] = r[i] / beta
		}
		h := make([][]float64, m+1)
		for i := range h {
			h[i] = make([]float64, m)
		}
		cs := make([]float64, m)
		sn := make([]float64, m)
		g := make([]float64, m+1)
		g[0] = beta

		var k int
		for k = 0; k < m; k++ {
			z := make([]float64, n)
			if pc != nil {
				pc.Apply(z, v[k])
			} else {
				copy(z, v[k])
			}
			w := make([]float64, n)
			a.MatVec(w, z)

			for i := 0; i <= k; i++ {
				h[i][k] = dot(w, v[i])
				axpy(w, -h[i][k], v[i])
			}
			h[k+1][k] = norm2(w)
			v[k+1] = make([]float64, n)
			if h[k+1][k] > 1e-300 {
				for i := range w {
					v[k+1][i] = w[i] / h[k+1][k]
				}
			}

			for i := 0; i < k; i++ {
				t := cs[i]*h[i][k] + sn[i]*h[i+1][k]
				h[i+1][k] = -sn[i]*h[i][k] + cs[i]*h[i+1][k]
				h[i][k] = t
			}
			denom := math.Hypot(h[k][k], h[k+1][k])
			if denom == 0 {
				cs[k], sn[k] = 1, 0
			} else {
				cs[k] = h[k][k] / denom
				sn[k] = h[k+1][k] / denom
			}
			h[k][k] = cs[k]*h[k][k] + sn[k]*h[k+1][k]
			h[k+1][k] = 0
			g[k+1] = -sn[k] * g[k]
			g[k] = cs[k] * g[k]

			relRes = math.Abs(g[k+1]) / bnorm
			if relRes <= opt.Tol {
				k++
				break
			}
		}
		if k > m {
			k = m
		}

		y := make([]float64, k)
		for i := k - 1; i >= 0; i-- {
			s := g[i]
			for j := i + 1; j < k; j++ {
				s -= h[i][j] * y[j]
			}
			if h[i][i] == 0 {
				y[i] = 0
			} else {
				y[i] = s / h[i][i]
			}
		}
		update := make([]float64, n)
		for i := 0; i < k; i++ {
			axpy(update, y[i], v[i])
		}
		if pc != nil {
			pz := make([]float64, n)
			pc.Apply(pz, update)
			copy(update, pz)
		}
		for i := range x {
			x[i] += update[i]
		}

		if relRes <= opt.Tol {
			return relRes, true
		}
	}
	return relRes, relRes <= opt.Tol
}

func norm2(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func axpy(y []float64, alpha float64, x []float64) {
	for i := range y {
		y[i] += alpha * x[i]
	}
}
