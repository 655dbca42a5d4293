// file: internal/provinces/provinces_test.go
// version: 1.0.0
// guid: 3e8c5b1d-7f4a-4d2e-9b6c-8a1f4e7d2c5b

package provinces

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"direct province", "Kurdistan", "Kurdistan"},
		{"province lowercase", "khuzestan", "Khuzestan"},
		{"known city", "Saqqez", "Kurdistan"},
		{"city alias spelling", "Esfahan", "Isfahan"},
		{"city alias ahwaz", "Ahwaz", "Khuzestan"},
		{"city within longer text", "killed in Zahedan during protests", "Sistan va Baluchestan"},
		{"province within longer text", "Saqqez, Kurdistan Province", "Kurdistan"},
		{"two-word city", "Bandar Abbas", "Hormozgan"},
		{"longest match wins", "near bandar abbas", "Hormozgan"},
		{"unknown", "Baghdad", ""},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.in); got != tt.want {
				t.Errorf("Extract(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
