package grid

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustGrid(t *testing.T, w, h int, torus bool) *MultiGrid {
	t.Helper()
	g, err := New(w, h, torus)
	if err != nil {
		t.Fatalf("New(%d, %d): %v", w, h, err)
	}
	return g
}

func sortPositions(ps []Position) []Position {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Y != ps[j].Y {
			return ps[i].Y < ps[j].Y
		}
		return ps[i].X < ps[j].X
	})
	return ps
}

func TestNewRejectsNonPositiveDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 3}, {3, 0}, {-1, -1}} {
		if _, err := New(dims[0], dims[1], false); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("New(%d, %d) error = %v, want ErrInvalidDimensions", dims[0], dims[1], err)
		}
	}
}

func TestPlaceOutOfBounds(t *testing.T) {
	g := mustGrid(t, 3, 2, false)
	cases := []Position{{-1, 0}, {0, -1}, {3, 0}, {0, 2}}
	for _, c := range cases {
		err := g.Place(1, c.X, c.Y)
		var oob *OutOfBoundsError
		if !errors.As(err, &oob) {
			t.Fatalf("Place(%v) error = %v, want OutOfBoundsError", c, err)
		}
		if oob.X != c.X || oob.Y != c.Y || oob.Width != 3 || oob.Height != 2 {
			t.Errorf("unexpected error fields: %+v", oob)
		}
	}
	if _, ok := g.PositionOf(1); ok {
		t.Fatal("failed placement must not record a position")
	}
}

func TestMultiOccupancy(t *testing.T) {
	g := mustGrid(t, 4, 4, false)
	for id := 1; id <= 3; id++ {
		if err := g.Place(id, 2, 1); err != nil {
			t.Fatalf("Place(%d): %v", id, err)
		}
	}
	got, err := g.OccupantsAt(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, got); diff != "" {
		t.Errorf("occupants mismatch (-want +got):\n%s", diff)
	}
	if err := g.Place(2, 0, 0); !errors.Is(err, ErrAlreadyPlaced) {
		t.Errorf("placing twice error = %v, want ErrAlreadyPlaced", err)
	}
}

func TestMoveUpdatesBothCells(t *testing.T) {
	g := mustGrid(t, 3, 3, false)
	_ = g.Place(7, 0, 0)
	_ = g.Place(8, 0, 0)

	if err := g.Move(7, 2, 2); err != nil {
		t.Fatalf("Move: %v", err)
	}
	from, _ := g.OccupantsAt(0, 0)
	to, _ := g.OccupantsAt(2, 2)
	if diff := cmp.Diff([]int{8}, from); diff != "" {
		t.Errorf("source cell (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{7}, to); diff != "" {
		t.Errorf("destination cell (-want +got):\n%s", diff)
	}
	if pos, _ := g.PositionOf(7); pos != (Position{2, 2}) {
		t.Errorf("PositionOf(7) = %v, want (2,2)", pos)
	}
}

func TestMoveInvalidDestinationLeavesAgent(t *testing.T) {
	g := mustGrid(t, 3, 3, false)
	_ = g.Place(1, 1, 1)

	var oob *OutOfBoundsError
	if err := g.Move(1, 3, 1); !errors.As(err, &oob) {
		t.Fatalf("Move error = %v, want OutOfBoundsError", err)
	}
	if pos, _ := g.PositionOf(1); pos != (Position{1, 1}) {
		t.Errorf("agent moved to %v after failed move", pos)
	}
	if occ, _ := g.OccupantsAt(1, 1); len(occ) != 1 {
		t.Errorf("origin occupants = %v, want [1]", occ)
	}
	if err := g.Move(99, 0, 0); !errors.Is(err, ErrNotPlaced) {
		t.Errorf("moving unknown agent error = %v, want ErrNotPlaced", err)
	}
}

func TestRemove(t *testing.T) {
	g := mustGrid(t, 2, 2, true)
	_ = g.Place(1, 1, 0)
	_ = g.Place(2, 1, 0)
	if err := g.Remove(1); err != nil {
		t.Fatal(err)
	}
	occ, _ := g.OccupantsAt(1, 0)
	if diff := cmp.Diff([]int{2}, occ); diff != "" {
		t.Errorf("occupants after remove (-want +got):\n%s", diff)
	}
	if err := g.Remove(1); !errors.Is(err, ErrNotPlaced) {
		t.Errorf("second remove error = %v, want ErrNotPlaced", err)
	}
	if !g.IsCellEmpty(0, 0) || g.IsCellEmpty(1, 0) {
		t.Error("IsCellEmpty reports wrong occupancy")
	}
}

func TestNeighborhood(t *testing.T) {
	tests := []struct {
		name          string
		w, h          int
		torus         bool
		x, y          int
		includeCenter bool
		want          []Position
	}{
		{
			name: "clipped corner",
			w:    3, h: 3, x: 0, y: 0,
			want: []Position{{1, 0}, {0, 1}, {1, 1}},
		},
		{
			name: "clipped edge",
			w:    3, h: 3, x: 1, y: 0,
			want: []Position{{0, 0}, {2, 0}, {0, 1}, {1, 1}, {2, 1}},
		},
		{
			name: "clipped interior with centre",
			w:    3, h: 3, x: 1, y: 1, includeCenter: true,
			want: []Position{{0, 0}, {1, 0}, {2, 0}, {0, 1}, {1, 1}, {2, 1}, {0, 2}, {1, 2}, {2, 2}},
		},
		{
			name: "torus corner wraps",
			w:    4, h: 4, torus: true, x: 0, y: 0,
			want: []Position{{0, 1}, {1, 0}, {3, 0}, {1, 1}, {3, 1}, {0, 3}, {1, 3}, {3, 3}},
		},
		{
			name: "torus 2x2 deduplicates",
			w:    2, h: 2, torus: true, x: 0, y: 0,
			want: []Position{{1, 0}, {0, 1}, {1, 1}},
		},
		{
			name: "torus 1x1 is empty",
			w:    1, h: 1, torus: true, x: 0, y: 0,
			want: []Position{},
		},
		{
			name: "clipped 1x1 is empty",
			w:    1, h: 1, x: 0, y: 0,
			want: []Position{},
		},
		{
			name: "torus 1x1 with centre",
			w:    1, h: 1, torus: true, x: 0, y: 0, includeCenter: true,
			want: []Position{{0, 0}},
		},
		{
			name: "clipped single row",
			w:    3, h: 1, x: 1, y: 0,
			want: []Position{{0, 0}, {2, 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustGrid(t, tt.w, tt.h, tt.torus)
			got, err := g.Neighborhood(tt.x, tt.y, tt.includeCenter)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(sortPositions(tt.want), sortPositions(got)); diff != "" {
				t.Errorf("neighborhood mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNeighborhoodOutOfBounds(t *testing.T) {
	g := mustGrid(t, 2, 2, true)
	var oob *OutOfBoundsError
	if _, err := g.Neighborhood(2, 0, false); !errors.As(err, &oob) {
		t.Errorf("error = %v, want OutOfBoundsError", err)
	}
}
