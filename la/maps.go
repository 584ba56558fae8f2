// Package la is the distributed linear-algebra facade: owned and
// owned-and-ghosted index maps with a reusable exporter/importer pair,
// sparse graph construction on top of gosl/la's triplet/CSC machinery,
// and a Krylov solver with pluggable multigrid/ILU preconditioning.
package la

import "github.com/sandialabs/milo/errs"

// Map is an index space: either the owned slice of global DOF ids on this
// rank, or the owned-plus-ghosted superset used during local assembly.
type Map struct {
	GlobalIDs []int // global id of each local slot, in local order
	global2local map[int]int
}

// NewMap builds a Map from a list of global ids.
func NewMap(globalIDs []int) *Map {
	m := &Map{GlobalIDs: append([]int(nil), globalIDs...), global2local: make(map[int]int, len(globalIDs))}
	for i, g := range globalIDs {
		m.global2local[g] = i
	}
	return m
}

// Size returns the number of local slots in the map.
func (m *Map) Size() int { return len(m.GlobalIDs) }

// LocalOf returns the local slot of global id g, and whether it is
// present in this map.
func (m *Map) LocalOf(g int) (int, bool) {
	i, ok := m.global2local[g]
	return i, ok
}

// Exporter moves values from the owned-and-ghosted map into the owned map
// with an additive ("ADD") combine, and the reverse ("import") broadcasts
// owned values out to the ghosted copies. Built once per mesh and reused,
// per spec.md §5.
type Exporter struct {
	Owned   *Map
	Ghosted *Map
}

// NewExporter builds the exporter/importer pair for a given owned and
// owned-and-ghosted map.
func NewExporter(owned, ghosted *Map) (*Exporter, error) {
	for _, g := range owned.GlobalIDs {
		if _, ok := ghosted.LocalOf(g); !ok {
			return nil, errs.ConsistencyError("la: owned global id %d is not present in the ghosted map", g)
		}
	}
	return &Exporter{Owned: owned, Ghosted: ghosted}, nil
}

// ExportAddVector sums ghosted values into the owned vector (additive
// combine), the deterministic reduction order spec.md §5 requires.
func (e *Exporter) ExportAddVector(owned []float64, ghosted []float64) {
	for li, g := range e.Ghosted.GlobalIDs {
		if oi, ok := e.Owned.LocalOf(g); ok {
			owned[oi] += ghosted[li]
		}
	}
}

// ImportVector broadcasts owned values out into the ghosted vector,
// overwriting (not summing) the shared entries.
func (e *Exporter) ImportVector(ghosted []float64, owned []float64) {
	for li, g := range e.Ghosted.GlobalIDs {
		if oi, ok := e.Owned.LocalOf(g); ok {
			ghosted[li] = owned[oi]
		}
	}
}
