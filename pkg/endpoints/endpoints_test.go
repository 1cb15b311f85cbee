package endpoints

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/Sternrassler/jamfctl/pkg/operation"
)

func sampleInput(a Action) Input {
	switch a.Kind {
	case ArgSearch:
		return Input{Query: "lab*"}
	case ArgIDVersion:
		return Input{IDs: []string{"4"}, Version: "10.1"}
	case ArgIDs:
		return Input{IDs: []string{"1", "2"}}
	default:
		return Input{}
	}
}

func TestCatalog_EveryActionBuildsDescriptor(t *testing.T) {
	for _, r := range Resources() {
		for _, a := range r.Actions {
			name := strings.Join(r.Path, " ") + " " + a.Name
			t.Run(name, func(t *testing.T) {
				d, err := a.Descriptor(sampleInput(a))
				if err != nil {
					t.Fatalf("Descriptor() error = %v", err)
				}
				if !strings.HasPrefix(d.Template(), "/JSSResource/") {
					t.Errorf("Template() = %q, want /JSSResource/ prefix", d.Template())
				}
				if d.Count() == 0 {
					t.Error("Count() = 0")
				}
			})
		}
	}
}

func TestCatalog_NoDuplicateCommands(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range Resources() {
		for _, a := range r.Actions {
			k := strings.Join(r.Path, " ") + " " + a.Name
			if seen[k] {
				t.Errorf("duplicate command %q", k)
			}
			seen[k] = true
		}
	}
	if len(seen) != len(index) {
		t.Errorf("index has %d entries, catalog %d", len(index), len(seen))
	}
}

func TestCatalog_NoDuplicateEndpoints(t *testing.T) {
	seen := map[string]string{}
	for _, r := range Resources() {
		for _, a := range r.Actions {
			k := a.Method + " " + a.Template
			cmd := strings.Join(r.Path, " ") + " " + a.Name
			if prev, ok := seen[k]; ok {
				t.Errorf("%s and %s both map to %s", prev, cmd, k)
			}
			seen[k] = cmd
		}
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		path     []string
		method   string
		template string
		found    bool
	}{
		{[]string{"computer", "list"}, http.MethodGet, "/JSSResource/computers", true},
		{[]string{"computer", "search"}, http.MethodGet, "/JSSResource/computers/match/{search_query}", true},
		{[]string{"mobile", "delete"}, http.MethodDelete, "/JSSResource/mobiledevices/id/{id}", true},
		{[]string{"patch", "report", "list-computer"}, http.MethodGet,
			"/JSSResource/patchreports/patchsoftwaretitleid/{id}/version/{software_version}", true},
		{[]string{"patch", "available-title", "list"}, http.MethodGet, "/JSSResource/patchavailabletitles/sourceid/{id}", true},
		{[]string{"group", "user", "delete"}, http.MethodDelete, "/JSSResource/usergroups/id/{id}", true},
		{[]string{"adv-search", "mobile", "show"}, http.MethodGet, "/JSSResource/advancedmobiledevicesearches/id/{id}", true},
		{[]string{"patch", "internal-source", "delete"}, "", "", false},
		{[]string{"computer"}, "", "", false},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.path, "_"), func(t *testing.T) {
			a, ok := Lookup(tt.path...)
			if ok != tt.found {
				t.Fatalf("Lookup() found = %v, want %v", ok, tt.found)
			}
			if !ok {
				return
			}
			if a.Method != tt.method || a.Template != tt.template {
				t.Errorf("Lookup() = %s %s, want %s %s", a.Method, a.Template, tt.method, tt.template)
			}
		})
	}
}

func TestFind_Unknown(t *testing.T) {
	if _, err := Find("printer", "search"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("Find() error = %v, want ErrUnknownAction", err)
	}
}

func TestAction_Descriptor(t *testing.T) {
	base := "https://jss.example.com:8443"

	t.Run("search", func(t *testing.T) {
		a, _ := Lookup("computer", "search")
		d, err := a.Descriptor(Input{Query: "mac book"})
		if err != nil {
			t.Fatalf("Descriptor() error = %v", err)
		}
		if got, want := d.URLs(base), []string{base + "/JSSResource/computers/match/mac%20book"}; got[0] != want[0] {
			t.Errorf("URLs() = %v, want %v", got, want)
		}
	})

	t.Run("id and version", func(t *testing.T) {
		a, _ := Lookup("patch", "report", "list-computer")
		d, err := a.Descriptor(Input{IDs: []string{"12"}, Version: "3.0"})
		if err != nil {
			t.Fatalf("Descriptor() error = %v", err)
		}
		want := base + "/JSSResource/patchreports/patchsoftwaretitleid/12/version/3.0"
		if got := d.URLs(base); len(got) != 1 || got[0] != want {
			t.Errorf("URLs() = %v, want [%s]", got, want)
		}
	})

	t.Run("id and version rejects several ids", func(t *testing.T) {
		a, _ := Lookup("patch", "report", "list-computer")
		if _, err := a.Descriptor(Input{IDs: []string{"1", "2"}, Version: "3.0"}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("ids", func(t *testing.T) {
		a, _ := Lookup("script", "delete")
		d, err := a.Descriptor(Input{IDs: []string{"7", "8", "9"}})
		if err != nil {
			t.Fatalf("Descriptor() error = %v", err)
		}
		if d.Count() != 3 || d.Args().Kind() != operation.ArgsIDs {
			t.Errorf("Count() = %d, kind = %v", d.Count(), d.Args().Kind())
		}
		if !a.Destructive() {
			t.Error("delete should be destructive")
		}
	})

	t.Run("empty ids", func(t *testing.T) {
		a, _ := Lookup("script", "show")
		if _, err := a.Descriptor(Input{}); !errors.Is(err, operation.ErrInvalidDescriptor) {
			t.Errorf("error = %v, want ErrInvalidDescriptor", err)
		}
	})
}

func TestGroups(t *testing.T) {
	got := strings.Join(Groups(), ",")
	if got != "patch,group,adv-search" {
		t.Errorf("Groups() = %s", got)
	}
}

func TestResources_ReturnsCopy(t *testing.T) {
	r := Resources()
	r[0].Actions[0].Template = "/mutated"
	if a, _ := Lookup("computer", "list"); a.Template != "/JSSResource/computers" {
		t.Error("Resources() exposed the catalog")
	}
	if Resources()[0].Actions[0].Template == "/mutated" {
		t.Error("Resources() exposed the catalog slice")
	}
}
