package pagination

import (
	"errors"
	"reflect"
	"testing"
)

func TestParsePages(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{"empty", "", []int{}, false},
		{"blank", "   ", []int{}, false},
		{"single", "0", []int{0}, false},
		{"two pages", "1,2", []int{1, 2}, false},
		{"whitespace tolerated", " 3 , 1 ,2 ", []int{1, 2, 3}, false},
		{"sorted", "5,0,2", []int{0, 2, 5}, false},
		{"duplicates removed", "1,1,2,1", []int{1, 2}, false},
		{"negative", "1,-2", nil, true},
		{"not a number", "1,a", nil, true},
		{"empty entry", "1,,2", nil, true},
		{"trailing comma", "1,", nil, true},
		{"float", "1.5", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePages(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPages) {
					t.Errorf("ParsePages(%q) error = %v, want ErrInvalidPages", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePages(%q) unexpected error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParsePages(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatPages(t *testing.T) {
	if got := FormatPages([]int{0, 2, 10}); got != "0,2,10" {
		t.Errorf("FormatPages() = %q, want %q", got, "0,2,10")
	}
	if got := FormatPages(nil); got != "" {
		t.Errorf("FormatPages(nil) = %q, want empty", got)
	}

	pages, err := ParsePages(FormatPages([]int{4, 7}))
	if err != nil || !reflect.DeepEqual(pages, []int{4, 7}) {
		t.Errorf("round trip = %v, %v", pages, err)
	}
}

func TestOffset(t *testing.T) {
	tests := []struct {
		page, perPage, want int
	}{
		{0, PageSize, 0},
		{1, PageSize, 100},
		{2, PageSize, 200},
		{37, PageSize, 3700},
		{3, 50, 150},
	}

	for _, tt := range tests {
		if got := Offset(tt.page, tt.perPage); got != tt.want {
			t.Errorf("Offset(%d, %d) = %d, want %d", tt.page, tt.perPage, got, tt.want)
		}
	}
}
