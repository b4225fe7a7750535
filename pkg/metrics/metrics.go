package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 业务与 HTTP 指标
// 每个实例持有独立 Registry，测试中可重复创建
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	stockMovements  *prometheus.CounterVec
	stockRejections prometheus.Counter
	lowStockParts   prometheus.Gauge
}

// New 创建并注册全部指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maint",
			Name:      "http_requests_total",
			Help:      "HTTP 请求数",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "maint",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP 请求耗时",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maint",
			Name:      "work_order_transitions_total",
			Help:      "工单状态流转次数",
		}, []string{"from", "to"}),
		stockMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maint",
			Name:      "stock_units_total",
			Help:      "库存出入库数量",
		}, []string{"direction"}),
		stockRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "maint",
			Name:      "stock_insufficient_total",
			Help:      "因库存不足被拒绝的扣减次数",
		}),
		lowStockParts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "maint",
			Name:      "parts_low_stock",
			Help:      "低于最低库存的备件数",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.transitions,
		m.stockMovements,
		m.stockRejections,
		m.lowStockParts,
	)
	return m
}

// Handler /metrics 端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry 暴露底层 Registry，用于测试采集
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTP 记录一次 HTTP 请求
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Transition 记录一次工单状态流转
func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// StockDelta 记录库存变动，负数为出库
func (m *Metrics) StockDelta(delta int) {
	if m == nil || delta == 0 {
		return
	}
	if delta < 0 {
		m.stockMovements.WithLabelValues("out").Add(float64(-delta))
		return
	}
	m.stockMovements.WithLabelValues("in").Add(float64(delta))
}

// StockRejected 记录一次库存不足
func (m *Metrics) StockRejected() {
	if m == nil {
		return
	}
	m.stockRejections.Inc()
}

// SetLowStock 更新低库存备件数
func (m *Metrics) SetLowStock(n int) {
	if m == nil {
		return
	}
	m.lowStockParts.Set(float64(n))
}
