package shp

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestBasisPartitionOfUnity(t *testing.T) {
	chk.PrintTitle("shp: basis sums to one everywhere in the reference cube")
	for _, ndim := range []int{1, 2, 3} {
		for _, order := range []int{1, 2} {
			b := NewBasis(ndim, order)
			S := make([]float64, b.Nverts)
			dS := make([][]float64, b.Nverts)
			for m := range dS {
				dS[m] = make([]float64, ndim)
			}
			for _, ip := range VolumeRule(ndim, order) {
				r := []float64{ip[0], ip[1], ip[2]}[:ndim]
				b.Eval(r, S, dS)
				var sum float64
				for _, v := range S {
					sum += v
				}
				chk.Scalar(t, "sum(S)", 1e-14, sum, 1.0)
			}
		}
	}
}

func TestBasisInterpolatesAtNodes(t *testing.T) {
	chk.PrintTitle("shp: basis m equals 1 at its own node and 0 at others")
	b := NewBasis(2, 2)
	S := make([]float64, b.Nverts)
	dS := make([][]float64, b.Nverts)
	for m := range dS {
		dS[m] = make([]float64, 2)
	}
	for n := 0; n < b.Nverts; n++ {
		b.Eval(b.NatCoords(n), S, dS)
		for m := 0; m < b.Nverts; m++ {
			want := 0.0
			if m == n {
				want = 1.0
			}
			chk.Scalar(t, "S[m]", 1e-13, S[m], want)
		}
	}
}

func TestUnitSquareJacobian(t *testing.T) {
	chk.PrintTitle("shp: unit square maps with det(J)=1/4 under bilinear basis")
	b := NewBasis(2, 1)
	x := [][]float64{{0, 1, 0, 1}, {0, 0, 1, 1}}
	e := NewElement(b, x)
	if err := e.CalcAtIp([]float64{0, 0}); err != nil {
		t.Fatal(err)
	}
	chk.Scalar(t, "detJ", 1e-14, e.J, 0.25)
}

func TestFaceNormalOnUnitSquare(t *testing.T) {
	chk.PrintTitle("shp: outward normal on the right edge of the unit square points +x")
	b := NewBasis(2, 1)
	x := [][]float64{{0, 1, 0, 1}, {0, 0, 1, 1}}
	e := NewElement(b, x)
	if err := e.CalcAtIp([]float64{1, 0}); err != nil {
		t.Fatal(err)
	}
	n, ds := e.FaceNormal(0, 1)
	chk.Scalar(t, "nx", 1e-12, n[0], 1.0)
	chk.Scalar(t, "ny", 1e-12, n[1], 0.0)
	chk.Scalar(t, "ds", 1e-12, ds, 0.5)
}
