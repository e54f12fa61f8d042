package room

import "testing"

func TestIDOrderInsensitive(t *testing.T) {
	cases := []struct {
		a, b string
		want string
	}{
		{"alice", "bob", "alice-bob"},
		{"bob", "alice", "alice-bob"},
		{"zoe", "amy", "amy-zoe"},
		{"same", "same", "same-same"},
	}
	for _, tc := range cases {
		if got := ID(tc.a, tc.b); got != tc.want {
			t.Fatalf("ID(%q, %q) = %q, want %q", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestNormalizeIdentity(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"alice", "alice"},
		{"  alice  ", "alice"},
		{"", Anonymous},
		{"   ", Anonymous},
		{"al-ice", Anonymous},
		{"al ice", Anonymous},
		{"al\tice", Anonymous},
	}
	for _, tc := range cases {
		if got := NormalizeIdentity(tc.raw); got != tc.want {
			t.Fatalf("NormalizeIdentity(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
