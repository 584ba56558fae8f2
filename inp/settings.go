// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package inp implements the hierarchical settings tree read from a JSON
// settings file (spec.md §6), plus the external-mesh extension point.
package inp

import (
	"encoding/json"
	"os"

	"github.com/sandialabs/milo/errs"
)

// MeshData describes the "Mesh" sublist: dimension, block layout, boundary
// tags, and optional flags for element/nodal data carried in from an
// external mesh reader (spec.md §6). Mesh file I/O itself stays out of
// scope (spec.md §1); this struct only records what a reader would need
// to hand off to dof.Manager and cell.Batch.
type MeshData struct {
	Dim              int      `json:"dim"`
	Blocks           []string `json:"blocks"`
	BoundaryTags     []string `json:"boundaryTags"`
	HaveElementData  bool     `json:"haveElementData"`
	HaveNodalData    bool     `json:"haveNodalData"`
}

// PrecondData mirrors the multigrid/preconditioner knobs of spec.md §4.4
// and la.SolveOptions/la.BuildAMGPC.
type PrecondData struct {
	DropTol     float64 `json:"dropTol"`
	FillParam   float64 `json:"fillParam"`
	Smoother    string  `json:"smoother"`    // "jacobi" (only rung currently wired) or "chebyshev"
	MaxLevels   int     `json:"maxLevels"`
	CoarseSize  int     `json:"coarseSize"`
}

// SolverData mirrors spec.md §6's "Solver" sublist.
type SolverData struct {
	Kind               string      `json:"solver"` // "steady-state" | "transient"
	NumSteps           int         `json:"numSteps"`
	FinalTime          float64     `json:"finaltime"`
	TimeOrder          int         `json:"timeOrder"` // 1 or 2 (BDF-1/BDF-2)
	NLTol              float64     `json:"NLtol"`
	MaxNLIter          int         `json:"MaxNLiter"`
	LinTol             float64     `json:"lintol"`
	LinIter            int         `json:"liniter"`
	UseStrongDBCs      bool        `json:"useStrongDBCs"`
	MeasurementsAsDBCs bool        `json:"useMeasurementsAsDBCs"`
	Remesh             bool        `json:"remesh"`
	Precond            PrecondData `json:"precond"`
}

// Steady reports whether the "solver" field selects steady-state mode.
func (s SolverData) Steady() bool { return s.Kind != "transient" }

// PhysicsData mirrors spec.md §6's "Physics" sublist: the Nitsche
// form_param plus a free-form bag of module-specific coefficient names,
// resolved through Functions at registration time.
type PhysicsData struct {
	Module      string             `json:"module"` // "thermal", "elasticity", "helmholtz", ...
	FormParam   float64            `json:"form_param"`
	Coefficients map[string]string `json:"coefficients"` // coefficient name -> Functions entry name
}

// FunctionData is one entry of the "Functions" sublist: an expression
// string (or a literal constant) bound to a name that PhysicsData and
// Parameters reference.
type FunctionData struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

// ParameterData is one entry of the "Parameters" sublist (spec.md §3).
type ParameterData struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"` // "scalar" | "vector"
	Usage        string    `json:"usage"` // inactive|active|stochastic|discrete|discretized
	Value        float64   `json:"value"`
	Source       string    `json:"source"` // Functions entry name, for discretized fields
	Bounds       [2]float64 `json:"bounds"`
	Distribution string    `json:"distribution"` // for stochastic usage
}

// PostprocessData mirrors spec.md §6's "Postprocess" sublist.
type PostprocessData struct {
	ResponseType         string `json:"responseType"` // "pointwise" | "global"
	ComputeObjective     bool   `json:"computeObjective"`
	ComputeSensitivities bool   `json:"computeSensitivities"`
}

// Settings is the full settings tree read from a JSON file, mirroring the
// teacher's inp.Simulation field-naming and JSON-tagging style but
// reshaped into the sublists spec.md §6 names.
type Settings struct {
	Mesh        MeshData          `json:"mesh"`
	Solver      SolverData        `json:"solver"`
	Physics     []PhysicsData     `json:"physics"`
	Functions   []FunctionData    `json:"functions"`
	Parameters  []ParameterData   `json:"parameters"`
	Postprocess PostprocessData   `json:"postprocess"`
}

// DefaultSolverData mirrors the teacher's SolverData.SetDefault pattern:
// sane defaults so a minimal settings file only has to override what it
// needs.
func DefaultSolverData() SolverData {
	return SolverData{
		Kind:      "steady-state",
		TimeOrder: 1,
		NLTol:     1e-9,
		MaxNLIter: 20,
		LinTol:    1e-10,
		LinIter:   200,
		Precond: PrecondData{
			DropTol:    1e-3,
			Smoother:   "jacobi",
			MaxLevels:  4,
			CoarseSize: 200,
		},
	}
}

// String returns the entry as "name = expression".
func (f FunctionData) String() string { return f.Name + " = " + f.Expression }

// GetFunction looks up a Functions entry by name, or returns a ConfigError
// if none is registered under that name (spec.md §7).
func (s *Settings) GetFunction(name string) (FunctionData, error) {
	for _, fn := range s.Functions {
		if fn.Name == name {
			return fn, nil
		}
	}
	return FunctionData{}, errs.ConfigError("inp: function %q not found in Functions sublist", name)
}

// ReadSettings parses a JSON settings file into a Settings tree, filling
// solver defaults for any zero-valued fields the caller left unset.
func ReadSettings(path string) (*Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.ConfigError("inp: cannot read settings file %q:\n%v", path, err)
	}
	s := &Settings{Solver: DefaultSolverData()}
	if err := json.Unmarshal(b, s); err != nil {
		return nil, errs.ConfigError("inp: cannot parse settings file %q:\n%v", path, err)
	}
	return s, nil
}

// MeshSource is the external mesh abstraction of spec.md §6: block names,
// cell topologies, node coordinates per element, and side-set/node-set
// membership. Declared as an interface (not implemented, mesh I/O being
// out of scope per spec.md §1) so dof.Manager and cell.Batch can be built
// against either a literal in-memory mesh (as the package tests do) or a
// future real reader without changing their signatures.
type MeshSource interface {
	BlockNames() []string
	CellTopology(block string) string
	ElementCoords(block string, elem int) [][]float64
	SideSet(name string) []SideMembership
	NodeSet(name string) []int
}

// SideMembership names one (element, local side index) pair in a side set.
type SideMembership struct {
	Elem int
	Side int
}
