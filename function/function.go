// Package function implements the coefficient "DAG": named (t, x)-valued
// or solution-dependent coefficients (thermal source, thermal diffusion,
// density, specific heat, boundary sources, Robin alpha, ...) registered
// once per (name, location, block) and evaluated at quadrature points as
// AD-valued fields.
//
// Registration records each coefficient's dependency kind so evaluation
// is a single linear sweep with no further branching, matching the
// "topological order precomputed at registration" decomposition.
package function

import (
	"github.com/cpmech/gosl/fun"

	"github.com/sandialabs/milo/ad"
	"github.com/sandialabs/milo/errs"
)

// Location distinguishes volume vs. side quadrature point sets, per
// spec.md's registration key (name, location, block).
type Location string

const (
	LocIP     Location = "ip"
	LocSideIP Location = "side ip"
)

// Kind is a coefficient's dependency class, precomputed at registration.
type Kind int

const (
	// KindSpaceTime depends only on (t, x): evaluated once via gosl/fun
	// and lifted to a constant AD value.
	KindSpaceTime Kind = iota
	// KindSolution depends on the local solution value u (and optionally
	// its gradient) through a caller-supplied AD closure, e.g. a
	// nonlinear conductivity model kval(u).
	KindSolution
)

// SolutionFn evaluates a solution-dependent coefficient at one quadrature
// point given the AD-valued local solution u and its gradient.
type SolutionFn func(u ad.Value, gradU []ad.Value) ad.Value

// entry is one registered coefficient.
type entry struct {
	kind Kind
	base fun.TimeSpace // used when kind == KindSpaceTime
	sol  SolutionFn     // used when kind == KindSolution
}

// key identifies a registration slot.
type key struct {
	name     string
	location Location
	block    int
}

// Manager is the function manager: the registry of coefficients. It
// caches nothing; every Evaluate call computes its value afresh.
type Manager struct {
	entries map[key]*entry
}

// NewManager returns an empty function manager.
func NewManager() *Manager {
	return &Manager{entries: make(map[key]*entry)}
}

// AddSpaceTime registers a (t, x) coefficient function for later
// evaluation at the named location within the given block.
func (m *Manager) AddSpaceTime(name string, location Location, block int, f fun.TimeSpace) {
	m.entries[key{name, location, block}] = &entry{kind: KindSpaceTime, base: f}
}

// AddSolutionDependent registers a coefficient that depends on the local
// solution (and its gradient) through fn, e.g. a nonlinear material
// model's k(u).
func (m *Manager) AddSolutionDependent(name string, location Location, block int, fn SolutionFn) {
	m.entries[key{name, location, block}] = &entry{kind: KindSolution, sol: fn}
}

// Evaluate returns the coefficient's AD value at one quadrature point,
// located at time t and physical coordinate x, with the local AD-valued
// solution u and gradient gradU available for solution-dependent
// coefficients.
func (m *Manager) Evaluate(name string, location Location, block int, t float64, x []float64, width int, u ad.Value, gradU []ad.Value) (ad.Value, error) {
	e, ok := m.entries[key{name, location, block}]
	if !ok {
		return ad.Value{}, errs.ConfigError(
			"function manager: coefficient %q not registered for location %q, block %d", name, location, block)
	}
	switch e.kind {
	case KindSpaceTime:
		v := e.base.F(t, x)
		return ad.Value{V: v, N: width}, nil
	case KindSolution:
		return e.sol(u, gradU), nil
	}
	return ad.Value{}, errs.ConfigError("function manager: coefficient %q has unknown dependency kind", name)
}

// Has reports whether a coefficient is registered at the given key.
func (m *Manager) Has(name string, location Location, block int) bool {
	_, ok := m.entries[key{name, location, block}]
	return ok
}
