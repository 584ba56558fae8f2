package shp

// basis1D returns the i-th 1D Lagrange basis function value and
// derivative at r, for the given polynomial order (1: nodes {-1,1}; 2:
// nodes {-1,0,1}).
func basis1D(order, i int, r float64) (n, dn float64) {
	switch order {
	case 1:
		switch i {
		case 0:
			return (1 - r) / 2, -0.5
		case 1:
			return (1 + r) / 2, 0.5
		}
	case 2:
		switch i {
		case 0:
			return r * (r - 1) / 2, r - 0.5
		case 1:
			return 1 - r*r, -2 * r
		case 2:
			return r * (r + 1) / 2, r + 0.5
		}
	}
	panic("shp: unsupported order or local index")
}

// node1D returns the natural coordinate of 1D local node i.
func node1D(order, i int) float64 {
	switch order {
	case 1:
		return []float64{-1, 1}[i]
	case 2:
		return []float64{-1, 0, 1}[i]
	}
	panic("shp: unsupported order")
}

// Basis is a tensor-product HGRAD Lagrange basis of a given order over an
// ndim reference cube [-1,1]^ndim.
type Basis struct {
	Ndim   int
	Order  int
	Nverts int
	index  [][]int // [nverts][ndim] multi-index into the 1D node set per direction
}

// NewBasis builds the tensor-product index table for the given dimension
// and order (1 or 2).
func NewBasis(ndim, order int) *Basis {
	if order != 1 && order != 2 {
		panic("shp: only HGRAD order 1 and 2 are implemented")
	}
	n1 := order + 1
	var idx [][]int
	switch ndim {
	case 1:
		for i := 0; i < n1; i++ {
			idx = append(idx, []int{i})
		}
	case 2:
		for j := 0; j < n1; j++ {
			for i := 0; i < n1; i++ {
				idx = append(idx, []int{i, j})
			}
		}
	case 3:
		for k := 0; k < n1; k++ {
			for j := 0; j < n1; j++ {
				for i := 0; i < n1; i++ {
					idx = append(idx, []int{i, j, k})
				}
			}
		}
	default:
		panic("shp: ndim must be 1, 2 or 3")
	}
	return &Basis{Ndim: ndim, Order: order, Nverts: len(idx), index: idx}
}

// NatCoords returns the natural (reference) coordinates of local vertex m.
func (b *Basis) NatCoords(m int) []float64 {
	r := make([]float64, b.Ndim)
	for d := 0; d < b.Ndim; d++ {
		r[d] = node1D(b.Order, b.index[m][d])
	}
	return r
}

// Eval evaluates all basis functions and their reference-coordinate
// gradients at r, writing into the caller-owned S (len Nverts) and dSdR
// (Nverts x Ndim) buffers.
func (b *Basis) Eval(r []float64, S []float64, dSdR [][]float64) {
	n1 := make([][2]float64, b.Ndim) // unused placeholder to keep signature simple
	_ = n1
	// per-direction 1D value/derivative cache, indexed [dim][localIndexInDim]
	vals := make([][]float64, b.Ndim)
	ders := make([][]float64, b.Ndim)
	n := b.Order + 1
	for d := 0; d < b.Ndim; d++ {
		vals[d] = make([]float64, n)
		ders[d] = make([]float64, n)
		for i := 0; i < n; i++ {
			vals[d][i], ders[d][i] = basis1D(b.Order, i, r[d])
		}
	}
	for m := 0; m < b.Nverts; m++ {
		s := 1.0
		for d := 0; d < b.Ndim; d++ {
			s *= vals[d][b.index[m][d]]
		}
		S[m] = s
		for d := 0; d < b.Ndim; d++ {
			g := ders[d][b.index[m][d]]
			for d2 := 0; d2 < b.Ndim; d2++ {
				if d2 != d {
					g *= vals[d2][b.index[m][d2]]
				}
			}
			dSdR[m][d] = g
		}
	}
}

// Face describes one face of the ndim reference cube: the fixed
// direction, its value (-1 or +1), and the local vertex indices lying on
// it (in the order the reduced-dimension tensor basis enumerates them).
type Face struct {
	Dir    int
	Value  float64
	Verts  []int
	Normal []float64 // outward unit normal in reference coordinates
}

// FaceCoords maps a point given in the face's own (Ndim-1)-dimensional
// local coordinates to the full Ndim reference-cube coordinates of the
// face described by f: the fixed direction takes f.Value, and the
// remaining directions take faceR's components in ascending dimension
// order.
func FaceCoords(f Face, ndim int, faceR []float64) []float64 {
	r := make([]float64, ndim)
	k := 0
	for d := 0; d < ndim; d++ {
		if d == f.Dir {
			r[d] = f.Value
			continue
		}
		if k < len(faceR) {
			r[d] = faceR[k]
		}
		k++
	}
	return r
}

// Faces enumerates the 2*Ndim faces of the reference cube.
func (b *Basis) Faces() []Face {
	var faces []Face
	for d := 0; d < b.Ndim; d++ {
		for _, val := range []float64{-1, 1} {
			f := Face{Dir: d, Value: val, Normal: make([]float64, b.Ndim)}
			f.Normal[d] = val
			for m := 0; m < b.Nverts; m++ {
				if node1D(b.Order, b.index[m][d]) == val {
					f.Verts = append(f.Verts, m)
				}
			}
			faces = append(faces, f)
		}
	}
	return faces
}
