package entity

import "strings"

// Label is the prefix prepended to the apex to form a candidate FQDN.
// It may itself contain dots (e.g. "a.b" is a legal multi-component label).
type Label string

// Fold returns the canonical form of a label: lowercase, with at most
// one trailing dot stripped. Two labels that fold to the same string
// are the same Label Store entry.
func (l Label) Fold() Label {
	s := strings.ToLower(strings.TrimSpace(string(l)))
	s = strings.TrimSuffix(s, ".")
	return Label(s)
}

// FQDN joins the label with the apex to form the fully qualified domain
// name that gets probed.
func (l Label) FQDN(apex string) string {
	return string(l) + "." + apex
}
