package models

import "testing"

// TestPlace_ShortName verifies the tab label fallback order.
func TestPlace_ShortName(t *testing.T) {
	tests := []struct {
		name  string
		place Place
		want  string
	}{
		{"city wins", Place{Name: "n", Address: Address{City: "Seattle", Town: "t"}}, "Seattle"},
		{"town", Place{Name: "n", Address: Address{Town: "Forks"}}, "Forks"},
		{"village", Place{Name: "n", Address: Address{Village: "Hamlet"}}, "Hamlet"},
		{"place name", Place{Name: "Mount Rainier"}, "Mount Rainier"},
		{"unknown", Place{}, UnknownName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.place.ShortName(); got != tt.want {
				t.Errorf("ShortName() = %q, want %q", got, tt.want)
			}
		})
	}
}
