package poolmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/webssh/sshgate/pkg/pool"
)

// This package only exercises the collector against a pool with zero
// connections, since building a real leased connection needs pkg/pool's
// unexported test fakes, which live in that package's own _test.go files.
func TestCollector_DescribeMatchesCollect(t *testing.T) {
	p := pool.New(nil, pool.DefaultConfig())
	c := NewCollector(p, "sshgate")

	descCh := make(chan *prometheus.Desc, 16)
	c.Describe(descCh)
	close(descCh)
	var descs int
	for range descCh {
		descs++
	}
	if descs != 4 {
		t.Fatalf("Describe() emitted %d descs, want 4", descs)
	}

	metricCh := make(chan prometheus.Metric, 16)
	c.Collect(metricCh)
	close(metricCh)
	for m := range metricCh {
		var out dto.Metric
		if err := m.Write(&out); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
}
