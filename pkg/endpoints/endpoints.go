// Package endpoints is the catalog of Jamf Pro Classic API calls jamfctl
// knows how to make. Every command of the CLI resolves to one Action here.
package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Sternrassler/jamfctl/pkg/operation"
)

// ErrUnknownAction is returned by Find for paths not in the catalog.
var ErrUnknownAction = errors.New("unknown action")

// Placeholders used by templates in addition to operation.IDPlaceholder.
const (
	SearchPlaceholder  = "{search_query}"
	VersionPlaceholder = "{software_version}"
)

// ArgKind describes the input an action needs.
type ArgKind int

const (
	// ArgNone takes no input.
	ArgNone ArgKind = iota
	// ArgIDs takes one or more identifiers.
	ArgIDs
	// ArgSearch takes a single search query.
	ArgSearch
	// ArgIDVersion takes one identifier and a software version.
	ArgIDVersion
)

// Action is one callable endpoint.
type Action struct {
	Name     string
	Short    string
	Method   string
	Template string
	Kind     ArgKind
}

// Input carries user-supplied values for an action.
type Input struct {
	IDs     []string
	Query   string
	Version string
}

// Descriptor builds the operation for this action.
func (a Action) Descriptor(in Input) (operation.Descriptor, error) {
	var args operation.Args
	switch a.Kind {
	case ArgNone:
		args = operation.None()
	case ArgIDs:
		args = operation.IDs(in.IDs)
	case ArgSearch:
		args = operation.Named(map[string]string{SearchPlaceholder: in.Query})
	case ArgIDVersion:
		if len(in.IDs) != 1 {
			return operation.Descriptor{}, fmt.Errorf("%s needs exactly one id (got %d)", a.Name, len(in.IDs))
		}
		args = operation.Named(map[string]string{
			operation.IDPlaceholder: in.IDs[0],
			VersionPlaceholder:      in.Version,
		})
	default:
		return operation.Descriptor{}, fmt.Errorf("%s: unknown argument kind %d", a.Name, a.Kind)
	}
	return operation.New(a.Method, a.Template, args)
}

// Destructive reports whether the action deletes records.
func (a Action) Destructive() bool {
	return a.Method == http.MethodDelete
}

// Resource is a group of actions on one kind of record.
type Resource struct {
	// Path is the command path, e.g. ["patch", "software-title"].
	Path    []string
	Short   string
	Actions []Action
}

// Name returns the last path element.
func (r Resource) Name() string {
	return r.Path[len(r.Path)-1]
}

// crud returns the usual list/show/delete trio for a Classic API collection.
func crud(collection, noun string) []Action {
	return []Action{
		{Name: "list", Short: "List all " + noun + "s", Method: http.MethodGet, Template: "/JSSResource/" + collection, Kind: ArgNone},
		{Name: "show", Short: "Show " + noun + "s by id", Method: http.MethodGet, Template: "/JSSResource/" + collection + "/id/{id}", Kind: ArgIDs},
		{Name: "delete", Short: "Delete " + noun + "s by id", Method: http.MethodDelete, Template: "/JSSResource/" + collection + "/id/{id}", Kind: ArgIDs},
	}
}

func search(collection, noun string) Action {
	return Action{
		Name:     "search",
		Short:    "Search " + noun + "s by name, serial or other attributes (* is a wildcard)",
		Method:   http.MethodGet,
		Template: "/JSSResource/" + collection + "/match/{search_query}",
		Kind:     ArgSearch,
	}
}

func resource(short string, actions []Action, path ...string) Resource {
	return Resource{Path: path, Short: short, Actions: actions}
}

var catalog = []Resource{
	resource("Computers", append(crud("computers", "computer"), search("computers", "computer")), "computer"),
	resource("Mobile devices", append(crud("mobiledevices", "mobile device"), search("mobiledevices", "mobile device")), "mobile"),
	resource("Users", crud("users", "user"), "user"),
	resource("Policies", crud("policies", "policy"), "policy"),
	resource("Packages", crud("packages", "package"), "package"),
	resource("Categories", crud("categories", "category"), "category"),
	resource("Departments", crud("departments", "department"), "department"),
	resource("eBooks", crud("ebooks", "ebook"), "ebook"),
	resource("Buildings", crud("buildings", "building"), "building"),
	resource("Mac applications", crud("macapplications", "mac application"), "mac-app"),
	resource("Mobile device applications", crud("mobiledeviceapplications", "mobile application"), "mobile-app"),
	resource("Scripts", crud("scripts", "script"), "script"),
	resource("Restricted software", crud("restrictedsoftware", "restricted software record"), "restricted-software"),
	resource("Printers", crud("printers", "printer"), "printer"),

	resource("Patch policies", crud("patchpolicies", "patch policy"), "patch", "policy"),
	resource("Patch reports", []Action{
		{Name: "list-software", Short: "Patch report for software title ids", Method: http.MethodGet,
			Template: "/JSSResource/patchreports/patchsoftwaretitleid/{id}", Kind: ArgIDs},
		{Name: "list-computer", Short: "Patch report for one software title version", Method: http.MethodGet,
			Template: "/JSSResource/patchreports/patchsoftwaretitleid/{id}/version/{software_version}", Kind: ArgIDVersion},
	}, "patch", "report"),
	resource("Patch software titles", crud("patchsoftwaretitles", "patch software title"), "patch", "software-title"),
	resource("Patch available titles", []Action{
		{Name: "list", Short: "List titles available from patch source ids", Method: http.MethodGet,
			Template: "/JSSResource/patchavailabletitles/sourceid/{id}", Kind: ArgIDs},
	}, "patch", "available-title"),
	resource("Patch external sources", crud("patchexternalsources", "patch external source"), "patch", "external-source"),
	resource("Patch internal sources", crud("patchinternalsources", "patch internal source")[:2], "patch", "internal-source"),

	resource("Computer groups", crud("computergroups", "computer group"), "group", "computer"),
	resource("Mobile device groups", crud("mobiledevicegroups", "mobile device group"), "group", "mobile"),
	resource("User groups", crud("usergroups", "user group"), "group", "user"),

	resource("Advanced computer searches", crud("advancedcomputersearches", "advanced computer search"), "adv-search", "computer"),
	resource("Advanced mobile device searches", crud("advancedmobiledevicesearches", "advanced mobile device search"), "adv-search", "mobile"),
	resource("Advanced user searches", crud("advancedusersearches", "advanced user search"), "adv-search", "user"),
}

var index = buildIndex()

func buildIndex() map[string]Action {
	m := make(map[string]Action)
	for _, r := range catalog {
		for _, a := range r.Actions {
			m[key(append(append([]string{}, r.Path...), a.Name))] = a
		}
	}
	return m
}

func key(path []string) string {
	return strings.Join(path, " ")
}

// Resources returns a copy of the catalog in display order.
func Resources() []Resource {
	out := make([]Resource, len(catalog))
	for i, r := range catalog {
		out[i] = Resource{
			Path:    append([]string(nil), r.Path...),
			Short:   r.Short,
			Actions: append([]Action(nil), r.Actions...),
		}
	}
	return out
}

// Groups returns the distinct parent commands of nested resources, in order.
func Groups() []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range catalog {
		if len(r.Path) > 1 && !seen[r.Path[0]] {
			seen[r.Path[0]] = true
			out = append(out, r.Path[0])
		}
	}
	return out
}

// Lookup finds an action by command path, e.g. Lookup("patch", "report", "list-computer").
func Lookup(path ...string) (Action, bool) {
	a, ok := index[key(path)]
	return a, ok
}

// Find is Lookup returning ErrUnknownAction instead of a bool.
func Find(path ...string) (Action, error) {
	a, ok := Lookup(path...)
	if !ok {
		return Action{}, fmt.Errorf("%w: %s", ErrUnknownAction, key(path))
	}
	return a, nil
}
