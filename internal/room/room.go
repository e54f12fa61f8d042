// Package room derives the canonical ids that name private rooms. Both the
// server router and the client session derive ids locally, so they have to
// agree byte for byte.
package room

import "strings"

// Separator joins the two participant names of a private room. The
// handshake rejects identities containing it, so distinct pairs can never
// collide on the same room id.
const Separator = "-"

// Anonymous is assigned when the handshake carries no usable name.
const Anonymous = "anonymous"

// ID derives the id for the private room between two identities. The
// result is the same no matter which order the pair is given in.
func ID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + Separator + b
}

// NormalizeIdentity trims the client-supplied name and falls back to
// Anonymous when the result is empty or would break room id derivation.
func NormalizeIdentity(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" || strings.ContainsAny(name, Separator+" \t\n") {
		return Anonymous
	}
	return name
}
