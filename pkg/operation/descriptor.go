// Package operation describes a single logical REST operation and
// materializes the concrete request URLs it expands into.
package operation

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
)

// IDPlaceholder is the placeholder substituted by identifier lists.
const IDPlaceholder = "{id}"

// ErrInvalidDescriptor indicates that the method, template and arguments
// of a descriptor do not fit together.
var ErrInvalidDescriptor = errors.New("invalid operation descriptor")

var placeholderPattern = regexp.MustCompile(`\{[a-z_]+\}`)

// ArgsKind identifies which form of argument a descriptor carries.
type ArgsKind int

const (
	// ArgsNone means the template is used as is.
	ArgsNone ArgsKind = iota

	// ArgsNamed substitutes every placeholder once from a map.
	ArgsNamed

	// ArgsIDs substitutes {id} once per identifier.
	ArgsIDs
)

// String implements fmt.Stringer.
func (k ArgsKind) String() string {
	switch k {
	case ArgsNone:
		return "none"
	case ArgsNamed:
		return "named"
	case ArgsIDs:
		return "ids"
	default:
		return fmt.Sprintf("ArgsKind(%d)", int(k))
	}
}

// Args is the argument payload of a descriptor. Use None, Named or IDs.
type Args struct {
	kind  ArgsKind
	named map[string]string
	ids   []string
}

// None returns an empty argument payload.
func None() Args {
	return Args{kind: ArgsNone}
}

// Named returns a payload substituting placeholder -> value.
// Keys are placeholders including braces, e.g. "{search_query}".
func Named(values map[string]string) Args {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Args{kind: ArgsNamed, named: cp}
}

// IDs returns a payload producing one sub-request per identifier.
func IDs(ids []string) Args {
	cp := make([]string, len(ids))
	copy(cp, ids)
	return Args{kind: ArgsIDs, ids: cp}
}

// Kind returns the argument form.
func (a Args) Kind() ArgsKind {
	return a.kind
}

// Descriptor is an immutable description of the REST calls one command makes.
type Descriptor struct {
	method   string
	template string
	args     Args
}

// New validates and builds a descriptor.
func New(method, template string, args Args) (Descriptor, error) {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return Descriptor{}, fmt.Errorf("%w: unsupported method %q", ErrInvalidDescriptor, method)
	}
	if template == "" {
		return Descriptor{}, fmt.Errorf("%w: empty url template", ErrInvalidDescriptor)
	}

	placeholders := Placeholders(template)

	switch args.kind {
	case ArgsNone:
		if len(placeholders) > 0 {
			return Descriptor{}, fmt.Errorf("%w: template %s expects %v but no arguments given",
				ErrInvalidDescriptor, template, placeholders)
		}
	case ArgsIDs:
		if len(placeholders) != 1 || placeholders[0] != IDPlaceholder {
			return Descriptor{}, fmt.Errorf("%w: id list requires a template with only %s, got %s",
				ErrInvalidDescriptor, IDPlaceholder, template)
		}
		if len(args.ids) == 0 {
			return Descriptor{}, fmt.Errorf("%w: empty id list", ErrInvalidDescriptor)
		}
	case ArgsNamed:
		if len(placeholders) == 0 {
			return Descriptor{}, fmt.Errorf("%w: template %s takes no arguments", ErrInvalidDescriptor, template)
		}
		for _, p := range placeholders {
			if _, ok := args.named[p]; !ok {
				return Descriptor{}, fmt.Errorf("%w: missing value for %s", ErrInvalidDescriptor, p)
			}
		}
		if len(args.named) != len(placeholders) {
			return Descriptor{}, fmt.Errorf("%w: %d values given for %d placeholders",
				ErrInvalidDescriptor, len(args.named), len(placeholders))
		}
	default:
		return Descriptor{}, fmt.Errorf("%w: unknown argument kind %v", ErrInvalidDescriptor, args.kind)
	}

	return Descriptor{method: method, template: template, args: args}, nil
}

// Method returns the HTTP verb.
func (d Descriptor) Method() string { return d.method }

// Template returns the URL template.
func (d Descriptor) Template() string { return d.template }

// Args returns the argument payload.
func (d Descriptor) Args() Args { return d.args }

// Count returns the number of sub-requests the descriptor expands into.
func (d Descriptor) Count() int {
	switch d.args.kind {
	case ArgsIDs:
		return len(d.args.ids)
	case ArgsNone, ArgsNamed:
		if d.template == "" {
			return 0
		}
		return 1
	default:
		return 0
	}
}

// Placeholders returns the distinct placeholders of a template, sorted.
func Placeholders(template string) []string {
	seen := map[string]struct{}{}
	for _, p := range placeholderPattern.FindAllString(template, -1) {
		seen[p] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
