package ad

import "github.com/sandialabs/milo/errs"

// Workspace bounds a seeding pass to a fixed number of derivative slots,
// checking the width against MaxDeriv once when it is built; ad.Seed
// repeats the same check on every call.
type Workspace struct {
	Width int // active derivative width for this pass
}

// NewWorkspace validates width against MaxDeriv and returns a Workspace.
func NewWorkspace(width int) (*Workspace, error) {
	if width > MaxDeriv {
		return nil, errs.AssemblyError(
			"requested AD width %d exceeds compiled MaxDeriv=%d; "+
				"increase ad.MaxDeriv and rebuild", width, MaxDeriv)
	}
	return &Workspace{Width: width}, nil
}

// Seed seeds slot j (0 <= j < w.Width) with value v.
func (w *Workspace) Seed(j int, v float64) (Value, error) {
	return Seed(w.Width, j, v)
}

// Const lifts a plain float64 into this workspace's width so it combines
// with seeded values without widening surprises.
func (w *Workspace) Const(v float64) Value {
	return Value{V: v, N: w.Width}
}
