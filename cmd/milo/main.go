// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// cmd/milo is the thin driver that exercises the assembly / nonlinear
// solve / adjoint-sensitivity pipeline end to end: it reads a settings
// file, builds the DOF and assembly managers for a single thermal block,
// runs the configured solver mode, and writes sens.dat when sensitivities
// were requested. Mesh reading is out of scope (spec.md §1); the block is
// a uniform 1-D bar synthesized from the settings' element count so the
// pipeline has something concrete to assemble over.
package main

import (
	"fmt"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/mpi"

	"github.com/sandialabs/milo/assembly"
	"github.com/sandialabs/milo/cell"
	"github.com/sandialabs/milo/dof"
	"github.com/sandialabs/milo/ele"
	"github.com/sandialabs/milo/ele/thermal"
	"github.com/sandialabs/milo/errs"
	"github.com/sandialabs/milo/function"
	"github.com/sandialabs/milo/inp"
	"github.com/sandialabs/milo/la"
	"github.com/sandialabs/milo/out"
	"github.com/sandialabs/milo/param"
	"github.com/sandialabs/milo/shp"
	"github.com/sandialabs/milo/solver"
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			if mpi.Rank() == 0 {
				io.PfRed("\nERROR: %v\n", err)
				chk.Verbose = true
				for i := 5; i > 3; i-- {
					chk.CallerInfo(i)
				}
			}
		}
		mpi.Stop(false)
	}()
	mpi.Start(false)

	fnamepath, _ := io.ArgToFilename(0, "", ".sim", true)
	nElems := io.ArgToInt(1, 4)
	verbose := io.ArgToBool(2, true)
	dirout := io.ArgToString(3, ".")

	if mpi.Rank() == 0 && verbose {
		io.PfWhite("\nmilo -- multi-physics assembly / adjoint / multiscale FE engine\n")
		io.Pf("\n%v\n", io.ArgsTable("INPUT ARGUMENTS",
			"settings file", "fnamepath", fnamepath,
			"bar element count", "nElems", nElems,
			"show messages", "verbose", verbose,
			"output directory", "dirout", dirout,
		))
	}

	settings, err := inp.ReadSettings(fnamepath)
	if err != nil {
		chk.Panic("reading settings failed:\n%v", err)
	}

	grad, err := run(settings, nElems)
	if err != nil {
		chk.Panic("run failed:\n%v", err)
	}

	if settings.Postprocess.ComputeSensitivities && len(grad) > 0 {
		if err := out.WriteSensitivities(dirout, grad); err != nil {
			chk.Panic("writing sensitivities failed:\n%v", err)
		}
	}
}

// run builds a uniform 1-D thermal bar of nElems elements from settings
// and executes the requested solver mode, returning the scalar-parameter
// gradient map (empty if no active parameters or sensitivities were
// requested). It mirrors solver_test.go's buildBar helper, generalized
// from a fixed 2-element test fixture to a settings-driven element count
// and coefficient set.
func run(settings *inp.Settings, nElems int) (map[string]float64, error) {
	if len(settings.Physics) == 0 {
		return nil, errs.ConfigError("milo: settings file has no Physics entries")
	}
	physics := settings.Physics[0]

	d := dof.NewManager()
	block := d.AddBlock(dof.Block{
		Name: "bar", Ndim: 1, NElems: nElems,
		Variables: []dof.Variable{{Name: "u", Block: 0, Order: 1, Basis: "HGRAD"}},
		Physics:   []string{physics.Module},
	})
	offsets := [][]int{{0, 1}}
	if err := d.SetOffsets(block, offsets); err != nil {
		return nil, err
	}
	coords := make([][][]float64, nElems)
	for e := 0; e < nElems; e++ {
		d.BindElement(block, e, []int{e, e + 1})
		coords[e] = [][]float64{{float64(e), float64(e + 1)}}
	}
	d.SetStrongDirichlet(0, 0.0)
	d.SetStrongDirichlet(nElems, 1.0)

	pm := param.NewManager()
	fm := function.NewManager()
	for name, fnName := range physics.Coefficients {
		fnData, err := settings.GetFunction(fnName)
		if err != nil {
			return nil, err
		}
		fm.AddSpaceTime(name, function.LocIP, block, &fun.Cte{C: parseConstant(fnData.Expression)})
	}
	for _, p := range settings.Parameters {
		if err := pm.Add(param.Parameter{
			Name: p.Name, Usage: param.ParseUsage(p.Usage), Value: p.Value,
		}); err != nil {
			return nil, err
		}
	}

	mod, err := ele.New(physics.Module, "bar")
	if err != nil {
		return nil, err
	}
	if t, ok := mod.(*thermal.Module); ok {
		t.Cond = thermal.Conductivity{A0: 1}
	}

	basis := shp.NewBasis(1, 1)
	batch, err := cell.NewBatch(block, []string{"u"}, offsets, basis, 2, []ele.Module{mod}, fm)
	if err != nil {
		return nil, err
	}

	gids := make([]int, nElems+1)
	for i := range gids {
		gids[i] = i
	}
	ghosted := la.NewMap(gids)

	mgr := assembly.NewManager(d, ghosted)
	mgr.BindBlock(block, batch, assembly.BlockMesh{Coords: coords})

	exp, err := la.NewExporter(ghosted, ghosted)
	if err != nil {
		return nil, err
	}

	u0 := make([]float64, nElems+1)
	u0[nElems] = 1.0

	dt := 0.0
	if !settings.Solver.Steady() && settings.Solver.NumSteps > 0 {
		dt = settings.Solver.FinalTime / float64(settings.Solver.NumSteps)
	}
	opt := solver.TimeOptions{Steady: settings.Solver.Steady(), NumSteps: settings.Solver.NumSteps, Dt: dt, Order: settings.Solver.TimeOrder}
	nopt := solver.DefaultNewtonOptions()
	nopt.Tol = settings.Solver.NLTol
	nopt.MaxIter = settings.Solver.MaxNLIter

	traj, err := solver.SolveForward(mgr, exp, u0, opt, nopt, nil)
	if err != nil {
		return nil, err
	}
	final := traj.At(traj.Len() - 1).U

	grad := map[string]float64{}
	if settings.Postprocess.ComputeSensitivities {
		phiOwned := make([]float64, len(final))
		for i := range phiOwned {
			phiOwned[i] = 1
		}
		grad, err = solver.ScalarSensitivityStep(mgr, exp, assembly.AssembleOptions{}, final, final, phiOwned, pm)
		if err != nil {
			return nil, err
		}
	}
	return grad, nil
}

// parseConstant reads a "Functions" expression as a bare float literal,
// returning 1.0 when the expression does not parse as a number. No
// string expression is parsed anywhere in this module: the function
// package registers gosl/fun (t, x) functions and Go closures, not
// expression strings, so every settings coefficient reaches AddSpaceTime
// as a constant.
func parseConstant(expr string) float64 {
	var v float64
	if _, err := fmt.Sscanf(expr, "%g", &v); err != nil {
		return 1.0
	}
	return v
}
