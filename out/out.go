// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package out implements persisted-state output: the plain-text gradient
// file spec.md §6 puts in scope, and the extension points for the
// out-of-scope ExodusII-shaped sinks (primary/extra fields, discretized
// parameters) so a future writer can be dropped in without touching the
// solver or assembly packages.
package out

import (
	"os"
	"sort"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/mpi"

	"github.com/sandialabs/milo/inp"
)

// StepFields is one saved time step: the primary solution plus the extra
// nodal/cell fields spec.md §6 lists (material coefficients evaluated at
// nodes, microstructure seed indices) and any discretized-parameter
// snapshot.
type StepFields struct {
	Time              float64
	Primary           map[string][]float64 // variable name -> nodal values
	ExtraNodal        map[string][]float64
	ExtraCell         map[string][]float64
	DiscretizedParams map[string][]float64
}

// Writer is the persisted-state sink of spec.md §6: one call per saved
// time step, plus a final close. Its body is left as a documented
// extension point — ExodusII writing is explicitly out of scope
// (spec.md §1) — but the interface lets solver.SolveForward drive a
// future concrete writer through the same call sequence used here to
// exercise inp.MeshSource.
type Writer interface {
	WriteStep(block string, step StepFields) error
	Close() error
}

// NullWriter discards every step; the default when no persisted output
// was requested (spec.md §7: "no partial Exodus output past the last
// successful step" is trivially satisfied by writing nothing).
type NullWriter struct{}

func (NullWriter) WriteStep(string, StepFields) error { return nil }
func (NullWriter) Close() error                       { return nil }

// verify MeshSource stays wired as the shared shape between reader and
// writer sides per SPEC_FULL.md §4.13, even though this Writer doesn't
// yet consume one directly.
var _ inp.MeshSource = (*nullMeshSource)(nil)

type nullMeshSource struct{}

func (nullMeshSource) BlockNames() []string                          { return nil }
func (nullMeshSource) CellTopology(string) string                    { return "" }
func (nullMeshSource) ElementCoords(string, int) [][]float64         { return nil }
func (nullMeshSource) SideSet(string) []inp.SideMembership            { return nil }
func (nullMeshSource) NodeSet(string) []int                          { return nil }

// WriteSensitivities writes the gradient map to sens.dat: one line,
// space-separated, 16 significant digits, in the deterministic order of
// the sorted parameter names, written only on rank 0 (spec.md §6).
func WriteSensitivities(dirout string, grad map[string]float64) error {
	if mpi.Rank() != 0 {
		return nil
	}
	names := make([]string, 0, len(grad))
	for name := range grad {
		names = append(names, name)
	}
	sort.Strings(names)

	line := ""
	for i, name := range names {
		if i > 0 {
			line += " "
		}
		line += io.Sf("%.15e", grad[name])
	}

	path := dirout + "/sens.dat"
	if err := os.WriteFile(path, []byte(line+"\n"), 0644); err != nil {
		return chk.Err("out: cannot write sensitivities to %q:\n%v", path, err)
	}
	io.Pf("wrote %d sensitivities to %s\n", len(names), path)
	return nil
}
