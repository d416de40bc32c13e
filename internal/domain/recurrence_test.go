package domain

import (
	"errors"
	"testing"
)

func datesToStrings(ds []Date) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.String())
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestExpandWeekly_Mondays(t *testing.T) {
	got, err := ExpandWeekly(MustParseDate("2024-03-04"), MustParseDate("2024-03-25"), []int16{1})
	if err != nil {
		t.Fatalf("ExpandWeekly error: %v", err)
	}
	want := []string{"2024-03-04", "2024-03-11", "2024-03-18", "2024-03-25"}
	if !equalStrings(datesToStrings(got), want) {
		t.Fatalf("dates = %v, want %v", datesToStrings(got), want)
	}
}

func TestExpandWeekly(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		until    string
		weekdays []int16
		want     []string
	}{
		{
			name:     "start excluded when weekday not requested",
			start:    "2024-03-04",
			until:    "2024-03-13",
			weekdays: []int16{3},
			want:     []string{"2024-03-06", "2024-03-13"},
		},
		{
			name:     "multiple weekdays ascending",
			start:    "2024-03-06",
			until:    "2024-03-12",
			weekdays: []int16{1, 3},
			want:     []string{"2024-03-06", "2024-03-11"},
		},
		{
			name:     "sunday is seven",
			start:    "2024-03-01",
			until:    "2024-03-10",
			weekdays: []int16{7},
			want:     []string{"2024-03-03", "2024-03-10"},
		},
		{
			name:     "single day range",
			start:    "2024-03-04",
			until:    "2024-03-04",
			weekdays: []int16{1},
			want:     []string{"2024-03-04"},
		},
		{
			name:     "no matching weekday",
			start:    "2024-03-04",
			until:    "2024-03-06",
			weekdays: []int16{6},
			want:     []string{},
		},
		{
			name:     "crosses month and leap day",
			start:    "2024-02-26",
			until:    "2024-03-05",
			weekdays: []int16{4},
			want:     []string{"2024-02-29"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandWeekly(MustParseDate(tt.start), MustParseDate(tt.until), tt.weekdays)
			if err != nil {
				t.Fatalf("ExpandWeekly error: %v", err)
			}
			if got == nil {
				t.Fatalf("ExpandWeekly returned nil slice")
			}
			if !equalStrings(datesToStrings(got), tt.want) {
				t.Fatalf("dates = %v, want %v", datesToStrings(got), tt.want)
			}

			n, err := CountWeekly(MustParseDate(tt.start), MustParseDate(tt.until), tt.weekdays)
			if err != nil {
				t.Fatalf("CountWeekly error: %v", err)
			}
			if n != len(tt.want) {
				t.Fatalf("CountWeekly = %d, want %d", n, len(tt.want))
			}
		})
	}
}

func TestExpandWeekly_InvalidRange(t *testing.T) {
	_, err := ExpandWeekly(MustParseDate("2024-03-10"), MustParseDate("2024-03-09"), []int16{1})
	var rErr *InvalidRangeError
	if !errors.As(err, &rErr) {
		t.Fatalf("error = %v, want *InvalidRangeError", err)
	}

	_, err = CountWeekly(MustParseDate("2024-03-10"), MustParseDate("2024-03-09"), []int16{1})
	if !errors.As(err, &rErr) {
		t.Fatalf("CountWeekly error = %v, want *InvalidRangeError", err)
	}
}

func TestCountWeekly_LongRange(t *testing.T) {
	n, err := CountWeekly(MustParseDate("2024-01-01"), MustParseDate("2024-12-31"), []int16{1, 2, 3, 4, 5, 6, 7})
	if err != nil {
		t.Fatalf("CountWeekly error: %v", err)
	}
	if n != 366 {
		t.Fatalf("CountWeekly = %d, want 366", n)
	}
}

func TestWithAnchor(t *testing.T) {
	tests := []struct {
		name   string
		dates  []string
		anchor string
		want   []string
	}{
		{name: "already present", dates: []string{"2024-03-04", "2024-03-11"}, anchor: "2024-03-04", want: []string{"2024-03-04", "2024-03-11"}},
		{name: "prepended", dates: []string{"2024-03-06", "2024-03-13"}, anchor: "2024-03-04", want: []string{"2024-03-04", "2024-03-06", "2024-03-13"}},
		{name: "empty expansion", dates: nil, anchor: "2024-03-09", want: []string{"2024-03-09"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make([]Date, 0, len(tt.dates))
			for _, s := range tt.dates {
				in = append(in, MustParseDate(s))
			}
			got := WithAnchor(in, MustParseDate(tt.anchor))
			if !equalStrings(datesToStrings(got), tt.want) {
				t.Fatalf("dates = %v, want %v", datesToStrings(got), tt.want)
			}
		})
	}
}
