package infra

import (
	"github.com/phax/ph-commons-sub015/objectpool/domain"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	capacityDescKey           = "pool.capacity"
	borrowedDescKey           = "pool.borrowed"
	cachedDescKey             = "pool.cached"
	createdDescKey            = "pool.created"
	activationFailuresDescKey = "pool.activation_failures"
	returnRejectedDescKey     = "pool.return_rejected"
	borrowAbortedDescKey      = "pool.borrow_aborted"
)

// Collector publica os snapshots dos pools como métricas Prometheus.
// source é chamado a cada scrape.
type Collector struct {
	source  func() []domain.Snapshot
	log     *zap.Logger
	metrics map[string]*prometheus.Desc
}

func NewCollector(namespace string, source func() []domain.Snapshot, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	labels := []string{"pool"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", name), help, labels, nil)
	}
	return &Collector{
		source: source,
		log:    log,
		metrics: map[string]*prometheus.Desc{
			capacityDescKey:           desc("capacity", "Fixed number of slots of the pool"),
			borrowedDescKey:           desc("borrowed", "Items currently borrowed"),
			cachedDescKey:             desc("cached", "Slots holding a cached item"),
			createdDescKey:            desc("created_total", "Items created by the factory"),
			activationFailuresDescKey: desc("activation_failures_total", "Cached items that failed activation"),
			returnRejectedDescKey:     desc("return_rejected_total", "Returns of items not borrowed from the pool"),
			borrowAbortedDescKey:      desc("borrow_aborted_total", "Borrows abandoned by cancellation or timeout"),
		},
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.metrics {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("pool prometheus collect panic", zap.Any("panic", r))
		}
	}()

	for _, s := range c.source() {
		c.gauge(ch, capacityDescKey, float64(s.Capacity), s.Name)
		c.gauge(ch, borrowedDescKey, float64(s.Borrowed), s.Name)
		c.gauge(ch, cachedDescKey, float64(s.Cached), s.Name)
		c.counter(ch, createdDescKey, float64(s.Created), s.Name)
		c.counter(ch, activationFailuresDescKey, float64(s.ActivationFailures), s.Name)
		c.counter(ch, returnRejectedDescKey, float64(s.ReturnRejected), s.Name)
		c.counter(ch, borrowAbortedDescKey, float64(s.BorrowAborted), s.Name)
	}
}

func (c *Collector) gauge(ch chan<- prometheus.Metric, key string, v float64, pool string) {
	ch <- prometheus.MustNewConstMetric(c.metrics[key], prometheus.GaugeValue, v, pool)
}

func (c *Collector) counter(ch chan<- prometheus.Metric, key string, v float64, pool string) {
	ch <- prometheus.MustNewConstMetric(c.metrics[key], prometheus.CounterValue, v, pool)
}

var _ prometheus.Collector = (*Collector)(nil)
