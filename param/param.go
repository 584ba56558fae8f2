// Package param implements the parameter manager: a registry of
// scalar/stochastic/discrete/discretized parameters tagged per spec.md
// §3, AD seeding for the sensitivity pass, and the L¹/L²/TV
// regularization terms added at the objective-gradient assembly stage.
// Grounded on the teacher's global-vector discipline (no process-wide
// singletons; the AD-seeded copy is regenerated from scratch on every
// SeedActive call, mirroring sacadoizeParams(seed_active)).
package param

import (
	"math"

	"github.com/sandialabs/milo/ad"
	"github.com/sandialabs/milo/dof"
	"github.com/sandialabs/milo/errs"
)

// Usage is a parameter's role tag, spec.md §3's {inactive, active,
// stochastic, discrete, discretized}.
type Usage int

const (
	Inactive Usage = iota
	Active
	Stochastic
	Discrete
	Discretized
)

// RegularizationKind selects the penalty form added over a discretized
// parameter field.
type RegularizationKind int

const (
	NoRegularization RegularizationKind = iota
	L1Regularization
	L2Regularization
	TVRegularization
)

// Parameter is one named entry in the registry. Scalar parameters carry a
// single Value; discretized parameters own a secondary dof.Manager and a
// per-node Values slice instead.
type Parameter struct {
	Name   string
	Usage  Usage
	Value  float64   // scalar parameters
	Bounds [2]float64 // [lo, hi]; lo>=hi means unbounded

	// Discretized-parameter fields.
	DOF       *dof.Manager
	Values    []float64
	Regularize RegularizationKind
	RegWeight  float64
}

// Manager is the parameter registry: an ordered list (insertion order is
// the AD-slot order for active parameters) plus a name index.
type Manager struct {
	order []string
	byName map[string]*Parameter
}

// NewManager returns an empty parameter registry.
func NewManager() *Manager {
	return &Manager{byName: make(map[string]*Parameter)}
}

// ParseUsage maps a settings-file usage string (spec.md §6's
// "usage: inactive|active|stochastic|discrete|discretized") onto a Usage
// tag, defaulting to Inactive for an unrecognized or empty string.
func ParseUsage(s string) Usage {
	switch s {
	case "active":
		return Active
	case "stochastic":
		return Stochastic
	case "discrete":
		return Discrete
	case "discretized":
		return Discretized
	default:
		return Inactive
	}
}

// Add registers a parameter under its name; registering the same name
// twice is a configuration error, matching the "no silent overwrite"
// discipline used throughout the registry types in this module.
func (m *Manager) Add(p Parameter) error {
	if _, exists := m.byName[p.Name]; exists {
		return errs.ConfigError("param: parameter %q already registered", p.Name)
	}
	pp := p
	m.byName[p.Name] = &pp
	m.order = append(m.order, p.Name)
	return nil
}

// Get returns the named parameter, or nil if unregistered.
func (m *Manager) Get(name string) *Parameter {
	return m.byName[name]
}

// ActiveNames returns the names of every Active-usage parameter, in
// registration order — the order active parameters occupy consecutive AD
// derivative slots.
func (m *Manager) ActiveNames() []string {
	var names []string
	for _, n := range m.order {
		if m.byName[n].Usage == Active {
			names = append(names, n)
		}
	}
	return names
}

// SeedActive re-derives, from scratch, an AD-seeded copy of every active
// parameter's value: slot baseSlot+i for the i-th active parameter (in
// registration order) within a width-n AD pass, mirroring
// sacadoizeParams(seed_active) — there is no cached seeded state, so a
// caller must call this once per assembly pass that needs ∂R/∂θ.
func (m *Manager) SeedActive(n, baseSlot int) (map[string]ad.Value, error) {
	names := m.ActiveNames()
	out := make(map[string]ad.Value, len(names))
	for i, name := range names {
		v, err := ad.Seed(n, baseSlot+i, m.byName[name].Value)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// UpdateParameters applies new scalar values by name, the one mutation
// path into the registry's Active/Inactive/Stochastic/Discrete values —
// callers pass an explicit (values, names) transition rather than
// mutating Parameter entries directly, per spec.md §9's
// "updateParameters(values, names)" decision.
func (m *Manager) UpdateParameters(names []string, values []float64) error {
	if len(names) != len(values) {
		return errs.ConsistencyError("param: updateParameters got %d names but %d values", len(names), len(values))
	}
	for i, name := range names {
		p, ok := m.byName[name]
		if !ok {
			return errs.ConfigError("param: cannot update unregistered parameter %q", name)
		}
		p.Value = values[i]
	}
	return nil
}

// Clamp restricts a scalar parameter's value to its bounds, if any are
// set (lo<hi), reporting whether clamping occurred.
func (p *Parameter) Clamp() bool {
	if p.Bounds[0] >= p.Bounds[1] {
		return false
	}
	if p.Value < p.Bounds[0] {
		p.Value = p.Bounds[0]
		return true
	}
	if p.Value > p.Bounds[1] {
		p.Value = p.Bounds[1]
		return true
	}
	return false
}

// Regularization evaluates a discretized parameter's regularization
// penalty and its gradient with respect to each nodal value, over the
// 1-D piecewise-linear connectivity implied by consecutive Values
// entries (the common case for a field parameter sharing the primary
// variable's basis, per spec.md §4.6's discretized-parameter scenario).
func (p *Parameter) Regularization() (cost float64, grad []float64) {
	n := len(p.Values)
	grad = make([]float64, n)
	if p.Regularize == NoRegularization || n == 0 {
		return 0, grad
	}
	switch p.Regularize {
	case L1Regularization:
		for i, v := range p.Values {
			cost += p.RegWeight * math.Abs(v)
			grad[i] += p.RegWeight * sign(v)
		}
	case L2Regularization:
		for i, v := range p.Values {
			cost += 0.5 * p.RegWeight * v * v
			grad[i] += p.RegWeight * v
		}
	case TVRegularization:
		cost, grad = totalVariation(p.Values, p.RegWeight)
	}
	return cost, grad
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// totalVariation evaluates a smoothed (Huber-regularized, epsilon-fixed)
// TV penalty sum_i weight*sqrt((v_{i+1}-v_i)^2 + eps) and its gradient.
func totalVariation(v []float64, weight float64) (float64, []float64) {
	const eps = 1e-8
	n := len(v)
	grad := make([]float64, n)
	if n < 2 {
		return 0, grad
	}
	d := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		d[i] = v[i+1] - v[i]
	}
	var cost float64
	for i := 0; i < n-1; i++ {
		di := d[i]
		s := math.Sqrt(di*di + eps)
		cost += weight * s
		g := weight * di / s
		grad[i] -= g
		grad[i+1] += g
	}
	return cost, grad
}
