// Package convexhull defines the interface contract for the convex-hull
// numerical kernel the peer tracker uses to pick its geometric
// neighbors, and the sphere-inversion transform that turns "nearest
// neighbors of self" into "convex hull of the inverted candidates"
// (see original_source/include/vsm/quick_hull.hpp's
// QuickHull::sphereInversion / QuickHull::convexHull split). The
// kernel itself — an actual convex hull algorithm over d-dimensional
// point sets — is treated as an external collaborator: this package
// only specifies what it must do.
package convexhull

import "math"

// Point is a coordinate vector in R^d. Implementations must treat
// Points of differing length as non-comparable (callers are expected
// to have already agreed on dimensionality mesh-wide).
type Point []float32

// Infinity is the sentinel sphere-inversion image of the origin: a
// point at distance zero from self maps here, and is always considered
// to lie on the hull.
var Infinity = math.MaxFloat32

// IsInfinite reports whether p is the sentinel produced by inverting
// the origin.
func (p Point) IsInfinite() bool {
	for _, c := range p {
		if float64(c) != Infinity {
			return false
		}
	}
	return len(p) > 0
}

// Equal compares two points for exact coordinate equality, which is
// what a hull-membership test needs (the oracle returns a subset of
// the exact input points, not approximations).
func (p Point) Equal(other Point) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Oracle is the external collaborator: given a point set, return the
// subset that lies on its convex hull. Implementations are free to
// choose any exact or epsilon-tolerant algorithm (quickhull, gift
// wrapping, ...); the only contract is membership-exactness on the
// input slice (same backing values, not reconstructed points) and the
// invariant that a point set containing the origin always reports the
// origin as a hull vertex.
type Oracle interface {
	ConvexHull(points []Point) (onHull []bool)
}

// SphereInversion maps every point p to p' = (p-origin)/|p-origin|^2,
// the standard way of turning "find my immediate geometric neighbors"
// into "find the points on the convex hull of the inverted set" (a
// point exactly at origin has no finite image and is mapped to the
// Infinity sentinel, which is always on the hull). This is peer
// tracker's own math, not the external oracle, and ships as production
// code; it mirrors original_source/include/vsm/quick_hull.hpp's
// QuickHull::sphereInversion.
func SphereInversion(points []Point, origin Point) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = invertOne(p, origin)
	}
	return out
}

func invertOne(p, origin Point) Point {
	n := len(origin)
	centered := make(Point, n)
	for i := 0; i < n; i++ {
		var c float32
		if i < len(p) {
			c = p[i]
		}
		centered[i] = c - origin[i]
	}
	var r2 float64
	for _, c := range centered {
		r2 += float64(c) * float64(c)
	}
	if r2 == 0 {
		inf := make(Point, n)
		for i := range inf {
			inf[i] = float32(Infinity)
		}
		return inf
	}
	inverted := make(Point, n)
	for i, c := range centered {
		inverted[i] = float32(float64(c) / r2)
	}
	return inverted
}
