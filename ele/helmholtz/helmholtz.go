// Package helmholtz implements the scalar Helmholtz equation
// ∇²u + k²u = f as a third instance of the physics module contract,
// splitting the complex field into two coupled real variables ("ure",
// "uim") since the AD scalar type is real-valued. Grounded on the
// teacher's pattern of several physics families coexisting behind the
// same ele.Element contract (ele/solid, ele/porous, ele/seepage).
package helmholtz

import (
	"github.com/sandialabs/milo/ad"
	"github.com/sandialabs/milo/ele"
	"github.com/sandialabs/milo/errs"
)

var fieldNames = []string{"ure", "uim"}

// Module is the split-real-imaginary Helmholtz physics module.
type Module struct {
	block  string
	haveRe, haveIm bool

	K2 float64 // wavenumber squared
}

func init() {
	ele.Register("helmholtz", func(blockName string) ele.Module {
		return &Module{block: blockName}
	})
}

func (m *Module) SetVars(names []string) error {
	m.haveRe, m.haveIm = false, false
	for _, n := range names {
		switch n {
		case "ure":
			m.haveRe = true
		case "uim":
			m.haveIm = true
		}
	}
	if !m.haveRe || !m.haveIm {
		return errs.ConfigError("helmholtz: block %q must declare both %q and %q", m.block, "ure", "uim")
	}
	return nil
}

// VolumeResidual builds −k²u·ϕ − f·ϕ + ∇u·∇ϕ independently for the real
// and imaginary components. The two fields are fully decoupled: each
// reads its own "forcing ure" / "forcing uim" coefficient.
func (m *Module) VolumeResidual(p ele.Point, coeffs ele.Coefficients) (map[string]ele.WeakForm, error) {
	out := make(map[string]ele.WeakForm, len(fieldNames))
	for _, name := range fieldNames {
		u := p.Vars[name]
		gu := p.GradU[name]
		forcing, ok := coeffs.Get("forcing " + name)
		if !ok {
			forcing = ad.Const(0)
		}
		reaction := ad.Scale(-m.K2, u)
		scalar := ad.Sub(reaction, forcing)
		flux := make([]ad.Value, len(gu))
		copy(flux, gu)
		out[name] = ele.WeakForm{Scalar: scalar, Flux: flux}
	}
	return out, nil
}

func (m *Module) BoundaryResidual(p ele.Point, kind ele.SideKind, coeffs ele.Coefficients) (map[string]ele.BoundaryForm, error) {
	out := make(map[string]ele.BoundaryForm, len(fieldNames))
	h := p.H
	if h <= 1e-12 {
		h = 1e-12
	}
	for _, name := range fieldNames {
		u := p.Vars[name]
		switch kind {
		case ele.SideNeumann:
			g, ok := coeffs.Get("flux " + name)
			if !ok {
				g = ad.Const(0)
			}
			out[name] = ele.BoundaryForm{Scalar: ad.Neg(g)}
		case ele.SideWeakDirichlet:
			g, ok := coeffs.Get("data " + name)
			if !ok {
				g = ad.Const(0)
			}
			out[name] = ele.BoundaryForm{Scalar: ad.Scale(10.0/h, ad.Sub(u, g))}
		default:
			out[name] = ele.BoundaryForm{}
		}
	}
	return out, nil
}

func (m *Module) ComputeFlux(p ele.Point, coeffs ele.Coefficients) (map[string]ad.Value, error) {
	out := make(map[string]ad.Value, len(fieldNames))
	h := p.H
	if h <= 1e-12 {
		h = 1e-12
	}
	for _, name := range fieldNames {
		u := p.Vars[name]
		out[name] = ad.Scale(10.0/h, ad.Sub(u, p.Lambda))
	}
	return out, nil
}
