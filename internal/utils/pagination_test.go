package utils

import (
	"math"
	"testing"
)

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name       string
		page, size int
		want       Page
		wantOffset int
	}{
		{name: "defaults", page: 0, size: 0, want: Page{Page: 1, Size: 10}, wantOffset: 0},
		{name: "second page", page: 2, size: 25, want: Page{Page: 2, Size: 25}, wantOffset: 25},
		{name: "size clamped", page: 3, size: 500, want: Page{Page: 3, Size: 100}, wantOffset: 200},
		{name: "negative page", page: -4, size: 5, want: Page{Page: 1, Size: 5}, wantOffset: 0},
		{name: "huge page clamped", page: math.MaxInt, size: 100, want: Page{Page: MaxPage, Size: 100}, wantOffset: (MaxPage - 1) * 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePage(tt.page, tt.size)
			if got != tt.want {
				t.Errorf("NormalizePage() = %+v, want %+v", got, tt.want)
			}
			if got.Offset() != tt.wantOffset {
				t.Errorf("Offset() = %d, want %d", got.Offset(), tt.wantOffset)
			}
		})
	}
}
