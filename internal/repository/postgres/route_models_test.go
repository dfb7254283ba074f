package postgres

import "testing"

func TestEscapeLikePattern(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"alice", "alice"},
		{"a_c", `a\_c`},
		{"100%", `100\%`},
		{`back\slash`, `back\\slash`},
		{"a_b%c", `a\_b\%c`},
	}
	for _, tc := range cases {
		if got := escapeLikePattern(tc.in); got != tc.want {
			t.Fatalf("escapeLikePattern(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
