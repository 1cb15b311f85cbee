package operation

import (
	"net/http"
	"reflect"
	"testing"
)

const base = "https://jss.example.com:8443"

func TestURL_None(t *testing.T) {
	d, err := New(http.MethodGet, "/JSSResource/computers", None())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	seq := NewSequence(base, d)
	u, ok := seq.Next()
	if !ok || u != base+"/JSSResource/computers" {
		t.Errorf("Next() = %q, %v", u, ok)
	}
	if _, ok := seq.Next(); ok {
		t.Error("second Next() should be exhausted")
	}
}

func TestURL_IDs(t *testing.T) {
	d, err := New(http.MethodGet, "/resource/id/{id}", IDs([]string{"10", "11", "12"}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	seq := NewSequence(base, d)
	want := []string{base + "/resource/id/10", base + "/resource/id/11", base + "/resource/id/12"}
	for i, w := range want {
		got, ok := seq.Next()
		if !ok {
			t.Fatalf("call %d exhausted early", i)
		}
		if got != w {
			t.Errorf("call %d = %q, want %q", i, got, w)
		}
	}
	if _, ok := seq.Next(); ok {
		t.Error("4th call should yield nothing")
	}
	if seq.Len() != 3 {
		t.Errorf("Len() = %d, want 3", seq.Len())
	}

	seq.Reset()
	if got, _ := seq.Next(); got != want[0] {
		t.Errorf("after Reset() Next() = %q, want %q", got, want[0])
	}
}

func TestURL_Named(t *testing.T) {
	d, err := New(http.MethodGet,
		"/JSSResource/patchreports/patchsoftwaretitleid/{id}/version/{software_version}",
		Named(map[string]string{"{id}": "42", "{software_version}": "10.1"}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	urls := d.URLs(base)
	want := []string{base + "/JSSResource/patchreports/patchsoftwaretitleid/42/version/10.1"}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("URLs() = %v, want %v", urls, want)
	}
}

func TestURL_EscapesValues(t *testing.T) {
	d, err := New(http.MethodGet, "/JSSResource/computers/match/{search_query}",
		Named(map[string]string{"{search_query}": "lab mac*"}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got, _ := d.URL(base, 0)
	if want := base + "/JSSResource/computers/match/lab%20mac*"; got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestURL_Deterministic(t *testing.T) {
	d, _ := New(http.MethodDelete, "/r/id/{id}", IDs([]string{"5", "6", "7"}))
	first := d.URLs(base + "/")
	second := d.URLs(base + "/")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("URLs differ between calls: %v vs %v", first, second)
	}
	if first[1] != base+"/r/id/6" {
		t.Errorf("trailing slash not trimmed: %q", first[1])
	}
	if _, ok := d.URL(base, 3); ok {
		t.Error("URL(3) should be out of range")
	}
	if _, ok := d.URL(base, -1); ok {
		t.Error("URL(-1) should be out of range")
	}
}
