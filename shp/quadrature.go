// Package shp implements reference-element integration and basis
// evaluation: Gauss-Legendre quadrature and tensor-product Lagrange
// (HGRAD) bases of order 1 or 2, generalized over 1, 2 and 3 space
// dimensions so a single implementation serves line/quad/hex topologies
// instead of one hand-written shape function table per topology.
package shp

// gauss1D returns Gauss-Legendre points and weights on [-1,1] for the
// given number of points (1, 2 or 3 — enough for order 1/2 Lagrange
// bases exactly integrated).
func gauss1D(n int) (pts, wts []float64) {
	switch n {
	case 1:
		return []float64{0}, []float64{2}
	case 2:
		p := 0.5773502691896257
		return []float64{-p, p}, []float64{1, 1}
	case 3:
		p := 0.7745966692414834
		return []float64{-p, 0, p}, []float64{5.0 / 9.0, 8.0 / 9.0, 5.0 / 9.0}
	default:
		// 4-point rule, fallback for higher-order future use
		a, b := 0.3399810435848563, 0.8611363115940526
		wa, wb := 0.6521451548625461, 0.3478548451374538
		return []float64{-b, -a, a, b}, []float64{wb, wa, wa, wb}
	}
}

// Ipoint is one quadrature point in the reference element, packed as
// [r0, r1, r2, w] with unused trailing coordinates set to zero, mirroring
// the teacher's [ndim+1]-slot integration-point tuple convention.
type Ipoint [4]float64

// VolumeRule returns the tensor-product Gauss rule for an ndim cube of
// polynomial order p (npts1D = p+1 points per direction, exact for order
// 2p+1).
func VolumeRule(ndim, order int) []Ipoint {
	n1 := order + 1
	p1, w1 := gauss1D(n1)
	switch ndim {
	case 1:
		ips := make([]Ipoint, n1)
		for i := 0; i < n1; i++ {
			ips[i] = Ipoint{p1[i], 0, 0, w1[i]}
		}
		return ips
	case 2:
		ips := make([]Ipoint, 0, n1*n1)
		for i := 0; i < n1; i++ {
			for j := 0; j < n1; j++ {
				ips = append(ips, Ipoint{p1[i], p1[j], 0, w1[i] * w1[j]})
			}
		}
		return ips
	case 3:
		ips := make([]Ipoint, 0, n1*n1*n1)
		for i := 0; i < n1; i++ {
			for j := 0; j < n1; j++ {
				for k := 0; k < n1; k++ {
					ips = append(ips, Ipoint{p1[i], p1[j], p1[k], w1[i] * w1[j] * w1[k]})
				}
			}
		}
		return ips
	default:
		panic("shp: ndim must be 1, 2 or 3")
	}
}

// SideRule returns the (ndim-1)-dimensional Gauss rule used to integrate
// over one face of the reference cube, in the face's own local
// coordinates.
func SideRule(ndim, order int) []Ipoint {
	if ndim == 1 {
		return []Ipoint{{0, 0, 0, 1}} // a "face" of a line is a point
	}
	return VolumeRule(ndim-1, order)
}
