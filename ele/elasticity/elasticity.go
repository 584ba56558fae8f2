// Package elasticity implements small-strain isotropic linear
// elasticity as a second instance of the physics module contract,
// exercising the registry with more than one physics per spec.md's
// "Navier-Stokes, linear elasticity, Helmholtz" variant list. Grounded
// on the teacher's ele/solid family existing alongside ele/diffusion
// behind the same ele.Element contract.
package elasticity

import (
	"github.com/sandialabs/milo/ad"
	"github.com/sandialabs/milo/ele"
	"github.com/sandialabs/milo/errs"
)

var dispNames = []string{"ux", "uy", "uz"}

// Module is the isotropic linear elasticity physics module: variables
// "ux","uy"(,"uz"), residual σ(u):∇ϕ_i − f·ϕ_i with σ = λ tr(ε) I + 2με.
type Module struct {
	block string
	have  [3]bool
	ndim  int

	Lambda, Mu float64
}

func init() {
	ele.Register("elasticity", func(blockName string) ele.Module {
		return &Module{block: blockName}
	})
}

func (m *Module) SetVars(names []string) error {
	m.have = [3]bool{}
	for _, n := range names {
		for d, dn := range dispNames {
			if n == dn {
				m.have[d] = true
			}
		}
	}
	if !m.have[0] || !m.have[1] {
		return errs.ConfigError("elasticity: block %q must declare at least ux and uy", m.block)
	}
	m.ndim = 2
	if m.have[2] {
		m.ndim = 3
	}
	return nil
}

// VolumeResidual builds σ:∇ϕ_i − f·ϕ_i for every declared displacement
// component, coupled through the volumetric trace tr(ε) = Σ ∂u_k/∂x_k.
func (m *Module) VolumeResidual(p ele.Point, coeffs ele.Coefficients) (map[string]ele.WeakForm, error) {
	trace := ad.Const(0)
	for d := 0; d < m.ndim; d++ {
		gu := p.GradU[dispNames[d]]
		if d < len(gu) {
			trace = ad.Add(trace, gu[d])
		}
	}

	out := make(map[string]ele.WeakForm, m.ndim)
	for row := 0; row < m.ndim; row++ {
		name := dispNames[row]
		bodyName := "body force " + name
		body, hasBody := coeffs.Get(bodyName)
		if !hasBody {
			body = ad.Const(0)
		}
		gu := p.GradU[name]
		flux := make([]ad.Value, len(gu))
		for d, gud := range gu {
			sigma := ad.Const(0)
			if d == row {
				sigma = ad.Scale(m.Lambda, trace)
			}
			sigma = ad.AddScaled(sigma, m.Mu, gud)
			if otherGu := p.GradU[dispNames[d]]; row < len(otherGu) {
				sigma = ad.AddScaled(sigma, m.Mu, otherGu[row])
			}
			flux[d] = sigma
		}
		out[name] = ele.WeakForm{Scalar: ad.Neg(body), Flux: flux}
	}
	return out, nil
}

func (m *Module) BoundaryResidual(p ele.Point, kind ele.SideKind, coeffs ele.Coefficients) (map[string]ele.BoundaryForm, error) {
	out := make(map[string]ele.BoundaryForm, m.ndim)
	for d := 0; d < m.ndim; d++ {
		name := dispNames[d]
		u := p.Vars[name]
		switch kind {
		case ele.SideNeumann:
			g, ok := coeffs.Get("traction " + name)
			if !ok {
				g = ad.Const(0)
			}
			out[name] = ele.BoundaryForm{Scalar: ad.Neg(g)}
		case ele.SideWeakDirichlet:
			g, ok := coeffs.Get("displacement " + name)
			if !ok {
				g = ad.Const(0)
			}
			gap := ad.Sub(u, g)
			out[name] = ele.BoundaryForm{Scalar: ad.Scale(10.0*(m.Lambda+2*m.Mu)/maxH(p.H), gap)}
		default:
			out[name] = ele.BoundaryForm{}
		}
	}
	return out, nil
}

func (m *Module) ComputeFlux(p ele.Point, coeffs ele.Coefficients) (map[string]ad.Value, error) {
	out := make(map[string]ad.Value, m.ndim)
	for d := 0; d < m.ndim; d++ {
		name := dispNames[d]
		u := p.Vars[name]
		gap := ad.Sub(u, p.Lambda)
		out[name] = ad.Scale(10.0*(m.Lambda+2*m.Mu)/maxH(p.H), gap)
	}
	return out, nil
}

func maxH(h float64) float64 {
	if h <= 1e-12 {
		return 1e-12
	}
	return h
}
