package validators

import "testing"

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"abc":          "abc",
	}
	for raw, want := range cases {
		got, err := BearerToken(raw)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", raw, err)
		}
		if got != want {
			t.Fatalf("%q: expected %q got %q", raw, want, got)
		}
	}

	for _, raw := range []string{"", "   ", "Bearer   "} {
		if _, err := BearerToken(raw); err != ErrMissingToken {
			t.Fatalf("%q: expected ErrMissingToken got %v", raw, err)
		}
	}
}
