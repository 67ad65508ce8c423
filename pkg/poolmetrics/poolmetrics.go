// Package poolmetrics exposes pkg/pool state as Prometheus gauges, grounded
// on kittipat1413-go-common/framework/middleware/gin/prometheus.go — the
// only repo in the pack with a direct prometheus/client_golang dependency —
// for namespacing and registration style (MustRegister on a registry, gauges
// keyed by label set, a promhttp handler for scraping). The gauges are const
// metrics built from prometheus.Desc values on each scrape.
package poolmetrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"

	"github.com/webssh/sshgate/pkg/pool"
)

// Collector samples pool.Pool.ListConnections into gauges on every scrape.
// Implements prometheus.Collector so it plugs into any registry via
// prometheus.MustRegister, rather than polling on a timer. Each row carries
// a "kind" label (channel or sftp) since a target now has two independent
// connection groups rather than one.
type Collector struct {
	p *pool.Pool

	connections   *prometheus.Desc
	idleChildren  *prometheus.Desc
	totalChildren *prometheus.Desc
	expired       *prometheus.Desc
}

func NewCollector(p *pool.Pool, namespace string) *Collector {
	labels := []string{"target_id", "connection_id", "kind"}
	return &Collector{
		p:             p,
		connections:   prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", "connection_info"), "One row per live/graveyard connection; value is always 1.", labels, nil),
		idleChildren:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", "idle_children"), "Idle channels or SFTP sessions on this connection.", labels, nil),
		totalChildren: prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", "total_children"), "Total children (idle+leased) on this connection.", labels, nil),
		expired:       prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", "connection_expired"), "1 if the connection is expired (graveyard), else 0.", labels, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.connections
	ch <- c.idleChildren
	ch <- c.totalChildren
	ch <- c.expired
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, info := range c.p.ListConnections(nil) {
		targetID := formatTargetID(info.TargetID)
		kind := string(info.Kind)
		ch <- prometheus.MustNewConstMetric(c.connections, prometheus.GaugeValue, 1, targetID, info.ID, kind)
		ch <- prometheus.MustNewConstMetric(c.idleChildren, prometheus.GaugeValue, float64(info.IdleChildren), targetID, info.ID, kind)
		ch <- prometheus.MustNewConstMetric(c.totalChildren, prometheus.GaugeValue, float64(info.TotalChildren), targetID, info.ID, kind)
		ch <- prometheus.MustNewConstMetric(c.expired, prometheus.GaugeValue, boolToFloat(info.Expired), targetID, info.ID, kind)
	}
}

// Register builds a Collector over p, registers it with reg, and returns a
// gin handler serving /metrics for that registry.
func Register(p *pool.Pool, namespace string, reg *prometheus.Registry) gin.HandlerFunc {
	reg.MustRegister(NewCollector(p, namespace))
	return gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func formatTargetID(id int64) string {
	return strconv.FormatInt(id, 10)
}
