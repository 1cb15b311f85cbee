package operation

import (
	"net/url"
	"strings"
)

// URL returns the i-th concrete request URL, prefixed with base.
// It reports false once i is out of range.
func (d Descriptor) URL(base string, i int) (string, bool) {
	if i < 0 || i >= d.Count() {
		return "", false
	}

	prefix := strings.TrimRight(base, "/")

	switch d.args.kind {
	case ArgsIDs:
		return prefix + strings.ReplaceAll(d.template, IDPlaceholder, escape(d.args.ids[i])), true
	case ArgsNamed:
		path := d.template
		for placeholder, value := range d.args.named {
			path = strings.ReplaceAll(path, placeholder, escape(value))
		}
		return prefix + path, true
	default:
		return prefix + d.template, true
	}
}

// URLs materializes every sub-request URL in ascending index order.
func (d Descriptor) URLs(base string) []string {
	n := d.Count()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		u, _ := d.URL(base, i)
		out = append(out, u)
	}
	return out
}

// escape path-escapes a substituted value. The * wildcard used by match
// searches is left intact.
func escape(v string) string {
	return strings.ReplaceAll(url.PathEscape(v), "%2A", "*")
}

// Sequence yields the URLs of a descriptor one at a time.
// It is not safe for concurrent use; share URLs instead.
type Sequence struct {
	desc  Descriptor
	base  string
	index int
}

// NewSequence starts a sequence at index zero.
func NewSequence(base string, d Descriptor) *Sequence {
	return &Sequence{desc: d, base: base}
}

// Next returns the next URL, or false once the sequence is exhausted.
func (s *Sequence) Next() (string, bool) {
	u, ok := s.desc.URL(s.base, s.index)
	if !ok {
		return "", false
	}
	s.index++
	return u, true
}

// Reset rewinds the sequence to the first URL.
func (s *Sequence) Reset() {
	s.index = 0
}

// Len returns the total number of URLs.
func (s *Sequence) Len() int {
	return s.desc.Count()
}
