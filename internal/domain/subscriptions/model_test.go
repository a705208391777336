package subscriptions

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func lotPtr(id int64) *int64 { return &id }

func line(id int64, lot *int64, start time.Time, end *time.Time) Line {
	return Line{ID: id, AssetLotID: lot, StartDate: start, EndDate: end}
}

func TestOverlaps(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a, b Line
		want bool
	}{
		{
			name: "closed intervals intersect",
			a:    line(1, lotPtr(7), date(2024, 1, 1), datePtr(2024, 2, 1)),
			b:    line(2, lotPtr(7), date(2024, 1, 15), datePtr(2024, 3, 1)),
			want: true,
		},
		{
			name: "half-open boundary touch is free",
			a:    line(1, lotPtr(7), date(2024, 1, 1), datePtr(2024, 2, 1)),
			b:    line(2, lotPtr(7), date(2024, 2, 1), datePtr(2024, 3, 1)),
			want: false,
		},
		{
			name: "open-ended covers later interval",
			a:    line(1, lotPtr(7), date(2024, 1, 1), nil),
			b:    line(2, lotPtr(7), date(2024, 6, 1), datePtr(2024, 7, 1)),
			want: true,
		},
		{
			name: "both open-ended same start",
			a:    line(1, lotPtr(7), date(2024, 1, 1), nil),
			b:    line(2, lotPtr(7), date(2024, 1, 1), nil),
			want: true,
		},
		{
			name: "open-ended before a closed earlier interval",
			a:    line(1, lotPtr(7), date(2024, 6, 1), nil),
			b:    line(2, lotPtr(7), date(2024, 1, 1), datePtr(2024, 2, 1)),
			want: false,
		},
		{
			name: "different lots never conflict",
			a:    line(1, lotPtr(7), date(2024, 1, 1), nil),
			b:    line(2, lotPtr(8), date(2024, 1, 1), nil),
			want: false,
		},
		{
			name: "nil lot never conflicts",
			a:    line(1, nil, date(2024, 1, 1), nil),
			b:    line(2, lotPtr(7), date(2024, 1, 1), nil),
			want: false,
		},
		{
			name: "same line never conflicts with itself",
			a:    line(3, lotPtr(7), date(2024, 1, 1), nil),
			b:    line(3, lotPtr(7), date(2024, 1, 1), nil),
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(&tt.b); got != tt.want {
				t.Fatalf("a.Overlaps(b) = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(&tt.a); got != tt.want {
				t.Fatalf("b.Overlaps(a) = %v, want %v (predicate must be symmetric)", got, tt.want)
			}
		})
	}
}

func TestOverlapsNewLinesWithoutIDs(t *testing.T) {
	t.Parallel()
	a := line(0, lotPtr(7), date(2024, 1, 1), nil)
	b := line(0, lotPtr(7), date(2024, 3, 1), nil)
	if !a.Overlaps(&b) {
		t.Fatal("two distinct unsaved lines on the same lot must conflict")
	}
	if a.Overlaps(&a) {
		t.Fatal("a line must not conflict with itself even before it has an id")
	}
}

func TestChunkIDs(t *testing.T) {
	t.Parallel()
	ids := []int64{1, 2, 3, 4, 5, 6, 7}
	chunks := chunkIDs(ids, 3)
	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}
	if len(chunks[0]) != 3 || len(chunks[1]) != 3 || len(chunks[2]) != 1 {
		t.Fatalf("chunk sizes = %d,%d,%d, want 3,3,1", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
	if chunks[2][0] != 7 {
		t.Fatalf("last chunk = %v, want [7]", chunks[2])
	}
	if got := chunkIDs(nil, 3); got != nil {
		t.Fatalf("chunkIDs(nil) = %v, want nil", got)
	}
}

func TestOverlapErrorMessage(t *testing.T) {
	t.Parallel()
	err := &OverlapError{Line1: "SUB001/1 [LOT-A]", Line2: "SUB002/4 [LOT-A]"}
	want := `subscriptions: lines "SUB001/1 [LOT-A]" and "SUB002/4 [LOT-A]" for the same lot overlap`
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
