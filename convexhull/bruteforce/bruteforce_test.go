package bruteforce

import (
	"testing"

	"github.com/relaymesh/spatialmesh/convexhull"
)

// TestConvexHullOfSquareExcludesCenter confirms the four corners of a
// square are all on the hull, while a point at the centroid is not.
func TestConvexHullOfSquareExcludesCenter(t *testing.T) {
	points := []convexhull.Point{
		{0, 0}, {0, 2}, {2, 2}, {2, 0},
		{1, 1},
	}

	onHull := Oracle{}.ConvexHull(points)

	for i := 0; i < 4; i++ {
		if !onHull[i] {
			t.Errorf("corner %d should be on hull", i)
		}
	}
	if onHull[4] {
		t.Error("centroid should not be on hull")
	}
}

func TestConvexHullTreatsInfiniteAsAlwaysOnHull(t *testing.T) {
	inf := convexhull.Point{float32(convexhull.Infinity), float32(convexhull.Infinity)}
	points := []convexhull.Point{{0, 0}, {1, 1}, inf}

	onHull := Oracle{}.ConvexHull(points)
	if !onHull[2] {
		t.Error("the sentinel infinite point must always be reported on hull")
	}
}
