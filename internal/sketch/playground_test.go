package sketch

import "testing"

func TestIsPlayground(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{PlaygroundID, true},
		{"sketch_01h2xcejqtf2nbrexx3vqjhp41", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsPlayground(tc.id); got != tc.want {
			t.Errorf("IsPlayground(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}
