// Package thermal implements the canonical physics module: transient
// scalar diffusion with a nonlinear conductivity, optional convective
// transport when a velocity field is detected, and the Nitsche weak
// Dirichlet / Neumann / multiscale boundary forms.
//
// Grounded on the teacher's ele/diffusion.Diffusion element (the
// ρ du/dt + div w = s strong form, w = -k(u) ∇u) and its
// mdl/diffusion.M1 nonlinear conductivity (k(u) = a0 + a1 u + a2 u² +
// a3 u³), re-expressed through ad.Value so the Jacobian is exact AD
// rather than the teacher's hand-differentiated dkdu.
package thermal

import (
	"math"

	"github.com/sandialabs/milo/ad"
	"github.com/sandialabs/milo/ele"
	"github.com/sandialabs/milo/errs"
)

const varName = "u"

// Conductivity is the M1 nonlinear model: k(u) = a0 + a1*u + a2*u^2 + a3*u^3,
// multiplied by the diagonal tensor Kcte: direction d is scaled by Kcte[d]
// (1 when Kcte has no entry for d), matching the teacher's diagonal Kcte
// tensor.
type Conductivity struct {
	A0, A1, A2, A3 float64
	Kcte           []float64 // per-dimension diagonal scale; len==ndim
}

func (c Conductivity) eval(u ad.Value) ad.Value {
	k := ad.Const(c.A0)
	k = ad.AddScaled(k, c.A1, u)
	k = ad.AddScaled(k, c.A2, ad.Pow(u, 2))
	k = ad.AddScaled(k, c.A3, ad.Pow(u, 3))
	return k
}

// Module is the thermal diffusion physics module.
type Module struct {
	block string

	hasU    bool
	velName [3]string // "ux"/"uy"/"uz" if declared by the block, else ""
	coupled bool

	Cond Conductivity
}

func init() {
	ele.Register("thermal", func(blockName string) ele.Module {
		return &Module{block: blockName}
	})
}

// SetVars locates "u" and, if present, "ux"/"uy"/"uz" (enabling
// convective transport) within the block's declared variable names.
func (m *Module) SetVars(names []string) error {
	m.hasU = false
	m.velName = [3]string{"", "", ""}
	for _, n := range names {
		switch n {
		case varName:
			m.hasU = true
		case "ux":
			m.velName[0] = "ux"
		case "uy":
			m.velName[1] = "uy"
		case "uz":
			m.velName[2] = "uz"
		}
	}
	if !m.hasU {
		return errs.ConfigError("thermal: block %q does not declare a variable named %q", m.block, varName)
	}
	m.coupled = m.velName[0] != "" || m.velName[1] != "" || m.velName[2] != ""
	return nil
}

// VolumeResidual implements ρ·cp·∂u/∂t·ϕ_i + κ(u)·∇u·∇ϕ_i − f·ϕ_i, plus
// v·∇u·ϕ_i when a coupled velocity field was detected.
func (m *Module) VolumeResidual(p ele.Point, coeffs ele.Coefficients) (map[string]ele.WeakForm, error) {
	u := p.Vars[varName]
	gradU := p.GradU[varName]
	udot := p.Udot[varName]

	rhoCp, ok := coeffs.Get("specific heat")
	if !ok {
		return nil, errs.ConfigError("thermal: missing required coefficient %q", "specific heat")
	}
	source, hasSource := coeffs.Get("thermal source")
	if !hasSource {
		source = ad.Const(0)
	}
	diffScale, hasDiff := coeffs.Get("thermal diffusion")
	if !hasDiff {
		diffScale = ad.Const(1)
	}

	scalar := ad.Sub(ad.Mul(rhoCp, udot), source)

	if m.coupled {
		var conv ad.Value
		for d, name := range m.velName {
			if name == "" || d >= len(gradU) {
				continue
			}
			v, ok := p.Vars[name]
			if !ok {
				continue
			}
			conv = ad.Add(conv, ad.Mul(v, gradU[d]))
		}
		scalar = ad.Add(scalar, conv)
	}

	kval := ad.Mul(m.Cond.eval(u), diffScale)
	flux := make([]ad.Value, len(gradU))
	for d, gu := range gradU {
		scale := 1.0
		if d < len(m.Cond.Kcte) {
			scale = m.Cond.Kcte[d]
		}
		flux[d] = ad.Scale(scale, ad.Mul(kval, gu))
	}

	return map[string]ele.WeakForm{varName: {Scalar: scalar, Flux: flux}}, nil
}

// BoundaryResidual implements the symmetric Nitsche weak-Dirichlet form
// and the Neumann flux form of spec.md §4.1:
//
//	−κ ∂u/∂n · ϕ − s·κ ∂ϕ/∂n · (u−g) + (10κ/h)(u−g)ϕ
//
// The first and third terms are coefficients of the test function's
// value ϕ_i (BoundaryForm.Scalar); the middle, symmetrizing term is a
// coefficient of the test function's outward-normal derivative ∂ϕ_i/∂n
// (BoundaryForm.Normal) — it is κ(u−g), not κ∂u/∂n, and it multiplies
// ∂ϕ_i/∂n rather than ϕ_i.
func (m *Module) BoundaryResidual(p ele.Point, kind ele.SideKind, coeffs ele.Coefficients) (map[string]ele.BoundaryForm, error) {
	switch kind {
	case ele.SideNeumann:
		return map[string]ele.BoundaryForm{varName: {Scalar: ad.Neg(p.Gdata)}}, nil

	case ele.SideWeakDirichlet:
		u := p.Vars[varName]
		gradU := p.GradU[varName]

		diffScale, ok := coeffs.Get("thermal diffusion")
		if !ok {
			diffScale = ad.Const(1)
		}
		kval := ad.Mul(m.Cond.eval(u), diffScale)

		var dudn ad.Value
		for d, gu := range gradU {
			if d < len(p.Normal) {
				dudn = ad.Add(dudn, ad.Scale(p.Normal[d], gu))
			}
		}
		kDudn := ad.Mul(kval, dudn)

		s := p.FormParam
		if p.IsAdjoint {
			s = 1
		}

		gap := ad.Sub(u, p.Gdata)
		kGap := ad.Mul(kval, gap)

		scalar := ad.Neg(kDudn)
		scalar = ad.Add(scalar, ad.Scale(10.0/math.Max(p.H, 1e-12), kGap))
		normal := ad.Neg(ad.Scale(s, kGap))
		return map[string]ele.BoundaryForm{varName: {Scalar: scalar, Normal: normal}}, nil

	default:
		return map[string]ele.BoundaryForm{varName: {}}, nil
	}
}

// ComputeFlux produces the outward numerical flux on a multiscale
// interior interface, symmetric with the Nitsche boundary penalty,
// using the mortar trace λ in place of the prescribed Dirichlet data g.
func (m *Module) ComputeFlux(p ele.Point, coeffs ele.Coefficients) (map[string]ad.Value, error) {
	u := p.Vars[varName]
	gradU := p.GradU[varName]

	diffScale, ok := coeffs.Get("thermal diffusion")
	if !ok {
		diffScale = ad.Const(1)
	}
	kval := ad.Mul(m.Cond.eval(u), diffScale)

	var dudn ad.Value
	for d, gu := range gradU {
		if d < len(p.Normal) {
			dudn = ad.Add(dudn, ad.Scale(p.Normal[d], gu))
		}
	}
	kDudn := ad.Mul(kval, dudn)
	gap := ad.Sub(u, p.Lambda)
	term := ad.Neg(kDudn)
	term = ad.Add(term, ad.Scale(10.0/math.Max(p.H, 1e-12), ad.Mul(kval, gap)))
	return map[string]ad.Value{varName: term}, nil
}
