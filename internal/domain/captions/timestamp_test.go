package captions

import (
	"errors"
	"math"
	"testing"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"00:00:01,000", 1, false},
		{"00:01:02.345", 62.345, false},
		{"01:00:00,5", 3600.5, false},
		{"00:00:00,12345", 0.123, false},
		{"0:00:01.50", 1.5, false},
		{"01:02.250", 62.25, false},
		{" 00:00:03,000 ", 3, false},
		{"00:00:03", 3, false},
		{"", 0, true},
		{"1.5", 0, true},
		{"aa:bb:cc,ddd", 0, true},
		{"00:00:01,x00", 0, true},
		{"1:2:3:4", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrBadTimestamp) {
					t.Fatalf("expected ErrBadTimestamp, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
