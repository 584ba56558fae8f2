package solver

import (
	"github.com/sandialabs/milo/assembly"
	"github.com/sandialabs/milo/la"
)

// TimeOptions selects the BDF stencil of spec.md §4.5: steady mode uses
// alpha=0; Order 1 gives alpha=1/dt with a two-level history; Order 2
// gives alpha=3/(2dt) with a three-level history once two prior steps
// are available (the first transient step always falls back to BDF-1,
// since no n-1 state exists yet).
type TimeOptions struct {
	Steady   bool
	Order    int
	Dt       float64
	NumSteps int
}

// Step is one entry of a Trajectory: the ghosted solution at a given
// time, the persisted unit of spec.md §3's "solution storage."
type Step struct {
	Time float64
	U    []float64
}

// Trajectory is the per-block time-indexed solution store of spec.md §3:
// append-only for the forward pass, built in reverse time order for the
// adjoint pass by the caller simply appending terminal-time-first.
type Trajectory struct {
	Steps []Step
}

func NewTrajectory() *Trajectory { return &Trajectory{} }

func (t *Trajectory) Append(time float64, u []float64) {
	t.Steps = append(t.Steps, Step{Time: time, U: append([]float64(nil), u...)})
}

func (t *Trajectory) Len() int { return len(t.Steps) }

func (t *Trajectory) At(i int) Step { return t.Steps[i] }

// CheckpointHook is the checkpointing extension point spec.md §9 calls
// out of scope for this engine: an interface only, so a future
// checkpointing strategy can be dropped in without touching SolveForward.
type CheckpointHook interface {
	Checkpoint(step int, time float64, uGhosted []float64) error
}

func bdfStar(order int, dt float64, uPrev1, uPrev2 []float64) (alpha float64, uStar []float64) {
	if order == 2 && uPrev2 != nil {
		alpha = 3.0 / (2.0 * dt)
		uStar = make([]float64, len(uPrev1))
		for i := range uStar {
			uStar[i] = (4*uPrev1[i] - uPrev2[i]) / 3.0
		}
		return alpha, uStar
	}
	return 1.0 / dt, uPrev1
}

// SolveForward drives the Newton loop across opt.NumSteps time steps (or
// a single steady solve when opt.Steady). In transient mode the returned
// Trajectory holds the initial condition followed by every converged
// state; in steady mode it holds one entry, the converged state at time 0.
func SolveForward(mgr *assembly.Manager, exp *la.Exporter, u0 []float64, opt TimeOptions, newton NewtonOptions, hook CheckpointHook) (*Trajectory, error) {
	traj := NewTrajectory()
	u := append([]float64(nil), u0...)
	traj.Append(0, u)

	if opt.Steady {
		if _, err := Newton(mgr, exp, assembly.AssembleOptions{Alpha: 0}, u, u, newton); err != nil {
			return traj, err
		}
		traj.Steps[0] = Step{Time: 0, U: append([]float64(nil), u...)}
		return traj, nil
	}

	var uPrev1, uPrev2 []float64
	uPrev1 = append([]float64(nil), u0...)
	t := 0.0
	for step := 0; step < opt.NumSteps; step++ {
		t += opt.Dt
		alpha, uStar := bdfStar(opt.Order, opt.Dt, uPrev1, uPrev2)
		aopt := assembly.AssembleOptions{Time: t, Alpha: alpha}
		if _, err := Newton(mgr, exp, aopt, u, uStar, newton); err != nil {
			return traj, err
		}
		if hook != nil {
			if err := hook.Checkpoint(step, t, u); err != nil {
				return traj, err
			}
		}
		traj.Append(t, u)
		uPrev2 = uPrev1
		uPrev1 = append([]float64(nil), u...)
	}
	return traj, nil
}
