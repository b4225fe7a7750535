package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_StockDeltaDirections(t *testing.T) {
	m := New()
	m.StockDelta(-3)
	m.StockDelta(5)
	m.StockDelta(0)

	if got := testutil.ToFloat64(m.stockMovements.WithLabelValues("out")); got != 3 {
		t.Errorf("出库期望 3，实际=%v", got)
	}
	if got := testutil.ToFloat64(m.stockMovements.WithLabelValues("in")); got != 5 {
		t.Errorf("入库期望 5，实际=%v", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.Transition("Pending", "InProgress")
	m.StockDelta(1)
	m.StockRejected()
	m.SetLowStock(2)
	m.ObserveHTTP("GET", "/x", 200, time.Millisecond)
}

func TestMetrics_HandlerExposesSeries(t *testing.T) {
	m := New()
	m.Transition("Pending", "InProgress")
	m.SetLowStock(4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `maint_work_order_transitions_total{from="Pending",to="InProgress"} 1`) {
		t.Errorf("缺少状态流转指标:\n%s", body)
	}
	if !strings.Contains(body, "maint_parts_low_stock 4") {
		t.Errorf("缺少低库存指标")
	}
}
