// Package ele defines the physics-module contract: the uniform
// residual/flux interface every physics variant implements, and a
// tagged-variant registry keyed by name (no inheritance), mirroring the
// teacher's ele.SetAllocator/ele.New pattern.
package ele

import (
	"github.com/sandialabs/milo/ad"
	"github.com/sandialabs/milo/errs"
)

// Point carries everything a physics module needs to evaluate at one
// quadrature point: the seeded solution and its gradient, the
// time-derivative, the real-space coordinates, coefficients fetched
// through the function manager, and (on boundary/interface sides) the
// outward normal and the mortar trace.
type Point struct {
	Time  float64
	Alpha float64 // 1/dt-like BDF coefficient; 0 in steady mode
	X     []float64

	// Vars/GradU/Udot hold every variable the owning block declares, by
	// name, all seeded against the same shared AD width — one Jacobian
	// pass gives every coupled row/column at once, per spec.md §4.2.
	Vars  map[string]ad.Value
	GradU map[string][]ad.Value
	Udot  map[string]ad.Value

	Normal    []float64 // boundary/side only
	H         float64   // characteristic element size, for Nitsche penalty
	Lambda    ad.Value  // mortar trace, multiscale sides only
	Gdata     ad.Value  // Dirichlet/Neumann boundary data g or g_N
	FormParam float64   // s in the Nitsche form; 1 in adjoint mode
	IsAdjoint bool
}

// WeakForm is a point contribution to one variable's weak-form residual
// row, decomposed the way the teacher's element kernels build fb: a
// coefficient of the test function itself (Scalar) and a coefficient of
// the test function's gradient (Flux). The cell/assembly loop dots these
// against the basis tables (ϕ_i, ∇ϕ_i) once per test row, keeping
// physics modules free of any dependency on the discretization's basis
// evaluator.
type WeakForm struct {
	Scalar ad.Value
	Flux   []ad.Value
}

// BoundaryForm is a point contribution to one variable's weak-form
// residual row on a boundary or interface side, decomposed the same way
// as WeakForm but against the two test-function quantities a symmetric
// Nitsche form needs: a coefficient of the test function's value
// (Scalar, dotted against ϕ_i) and a coefficient of the test function's
// outward-normal derivative (Normal, dotted against ∂ϕ_i/∂n). Without
// this split a boundary contribution could only ever multiply ϕ_i,
// which cannot express the Nitsche symmetrization term
// "−s·κ·∂ϕ/∂n·(u−g)" spec.md §4.1 requires.
type BoundaryForm struct {
	Scalar ad.Value
	Normal ad.Value
}

// Module is the capability set every physics variant implements
// (spec.md §4.1): setVars, volumeResidual, boundaryResidual,
// computeFlux.
type Module interface {
	// SetVars records the index of each variable this module uses
	// within the block's variable list, and detects coupled variables
	// (e.g. a named ux/uy/uz velocity field enabling convective
	// transport in thermal).
	SetVars(names []string) error

	// VolumeResidual returns this module's contribution to the weak
	// form at one quadrature point, one WeakForm per variable name this
	// module contributes a row for.
	VolumeResidual(p Point, coeffs Coefficients) (map[string]WeakForm, error)

	// BoundaryResidual returns this module's contribution on a side
	// tagged weak-Dirichlet or Neumann (multiscale sides go through
	// ComputeFlux instead), one BoundaryForm per variable name.
	BoundaryResidual(p Point, kind SideKind, coeffs Coefficients) (map[string]BoundaryForm, error)

	// ComputeFlux produces the outward numerical flux on a multiscale
	// interior interface, symmetric with the boundary penalty, one
	// value per variable name.
	ComputeFlux(p Point, coeffs Coefficients) (map[string]ad.Value, error)
}

// SideKind mirrors dof.SideKind without importing dof, keeping ele
// free of a dependency on the DOF manager.
type SideKind int

const (
	SideNone          SideKind = 0
	SideWeakDirichlet SideKind = 1
	SideNeumann       SideKind = 2
	SideMultiscale    SideKind = 4
	SideStrongDirichlet SideKind = 5
)

// Coefficients is the narrow view of the function manager a physics
// module needs: named (t,x)-or-solution-dependent values already
// evaluated at the current point.
type Coefficients interface {
	Get(name string) (ad.Value, bool)
}

// AllocatorFunc builds a new Module instance for a block.
type AllocatorFunc func(blockName string) Module

var registry = make(map[string]AllocatorFunc)

// Register adds a physics module constructor under name, panicking (as
// the teacher's SetAllocator does) if the name is already taken —
// registration happens at init time, so a collision is a programming
// error, not a runtime condition to recover from.
func Register(name string, fn AllocatorFunc) {
	if _, ok := registry[name]; ok {
		panic("ele: allocator already registered for " + name)
	}
	registry[name] = fn
}

// New instantiates the named physics module for a block.
func New(name, blockName string) (Module, error) {
	fn, ok := registry[name]
	if !ok {
		return Module(nil), errs.ConfigError("ele: unknown physics module %q", name)
	}
	return fn(blockName), nil
}
