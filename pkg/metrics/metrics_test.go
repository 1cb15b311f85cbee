package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jamf_requests_total",
		Help: "test",
	}, []string{"method", "status"})
	reg.MustRegister(counter)
	counter.WithLabelValues("GET", "200").Add(3)

	path := filepath.Join(t.TempDir(), "nested", "jamfctl.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	want := `jamf_requests_total{method="GET",status="200"} 3`
	if !strings.Contains(string(data), want) {
		t.Errorf("textfile = %q, want line %q", data, want)
	}
}

func TestWriteTextfile_EmptyPath(t *testing.T) {
	if err := WriteTextfile("", nil); err == nil {
		t.Error("Expected error for empty path")
	}
}
