package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue は指定名のカウンタメトリクスの合計値を収集する。
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	var total float64
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordGatewayRequest_IncrementsCounter はゲートウェイリクエストカウンタが増加することを検証する。
func TestRecordGatewayRequest_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGatewayRequest("/api/v1/gasto", 201)
	c.RecordGatewayRequest("/api/v1/gasto", 201)
	c.RecordGatewayRequest("/api/v1/racha", 200)

	if got := counterValue(t, reg, "aury_gateway_requests_total"); got != 3 {
		t.Errorf("aury_gateway_requests_total = %v, want 3", got)
	}
}

// TestRecordGatewayFailure_IncrementsCounter は失敗カウンタが種別付きで増加することを検証する。
func TestRecordGatewayFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGatewayFailure("/api/v1/gasto", "transport")

	if got := counterValue(t, reg, "aury_gateway_failures_total"); got != 1 {
		t.Errorf("aury_gateway_failures_total = %v, want 1", got)
	}
}

// TestRecordBootstrap_IncrementsCounter はブートストラップカウンタが結果別に増加することを検証する。
func TestRecordBootstrap_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBootstrap("success")
	c.RecordBootstrap("error")

	if got := counterValue(t, reg, "aury_push_bootstrap_total"); got != 2 {
		t.Errorf("aury_push_bootstrap_total = %v, want 2", got)
	}
}

// TestRecordDeviceRegistered_IncrementsCounter はデバイス登録カウンタが増加することを検証する。
func TestRecordDeviceRegistered_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordDeviceRegistered()

	if got := counterValue(t, reg, "aury_push_register_total"); got != 1 {
		t.Errorf("aury_push_register_total = %v, want 1", got)
	}
}

// TestRecordScreenTransition_IncrementsCounter は画面遷移カウンタが遷移先別に増加することを検証する。
func TestRecordScreenTransition_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordScreenTransition("dashboard")
	c.RecordScreenTransition("dashboard")

	if got := counterValue(t, reg, "aury_screen_transitions_total"); got != 2 {
		t.Errorf("aury_screen_transitions_total = %v, want 2", got)
	}
}

// TestRecordGatewayLatency_Observes はレイテンシヒストグラムに観測値が入ることを検証する。
func TestRecordGatewayLatency_Observes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGatewayLatency(120 * time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "aury_gateway_latency_seconds" {
			found = true
			if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 1 {
				t.Errorf("sample count = %d, want 1", count)
			}
		}
	}
	if !found {
		t.Error("aury_gateway_latency_seconds metric not found")
	}
}
