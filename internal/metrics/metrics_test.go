package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は指定名のメトリクスファミリーを返す。見つからない場合はテストを失敗させる。
func findMetric(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordHTTPRequest_CountsByStatus はステータスコード別にリクエストが数えられることを検証する。
func TestRecordHTTPRequest_CountsByStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest("GET", "/api/posts", 200, 10*time.Millisecond)
	c.RecordHTTPRequest("GET", "/api/posts", 200, 20*time.Millisecond)
	c.RecordHTTPRequest("DELETE", "/api/posts/{id}", 403, time.Millisecond)

	mf := findMetric(t, reg, "postboard_http_requests_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label sets, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		switch labelValue(m, "status_code") {
		case "200":
			if v := m.GetCounter().GetValue(); v != 2 {
				t.Errorf("200 count = %v, want 2", v)
			}
		case "403":
			if labelValue(m, "route") != "/api/posts/{id}" {
				t.Errorf("route = %q, want /api/posts/{id}", labelValue(m, "route"))
			}
		default:
			t.Errorf("unexpected status_code label %q", labelValue(m, "status_code"))
		}
	}

	latency := findMetric(t, reg, "postboard_http_request_duration_seconds")
	var samples uint64
	for _, m := range latency.GetMetric() {
		samples += m.GetHistogram().GetSampleCount()
	}
	if samples != 3 {
		t.Errorf("latency sample count = %d, want 3", samples)
	}
}

// TestRecordAuthFailure_LabelsReason は認証失敗が理由別に数えられることを検証する。
func TestRecordAuthFailure_LabelsReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthFailure("expired")
	c.RecordAuthFailure("expired")
	c.RecordAuthFailure("invalid")

	mf := findMetric(t, reg, "postboard_auth_failures_total")
	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		got[labelValue(m, "reason")] = m.GetCounter().GetValue()
	}
	if got["expired"] != 2 || got["invalid"] != 1 {
		t.Errorf("auth failures = %v, want expired=2 invalid=1", got)
	}
}

// TestRecordAuthzDecision_SplitsAllowDeny は認可判定が結果別に数えられることを検証する。
func TestRecordAuthzDecision_SplitsAllowDeny(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthzDecision("update", true)
	c.RecordAuthzDecision("update", false)
	c.RecordAuthzDecision("update", false)

	mf := findMetric(t, reg, "postboard_authz_decisions_total")
	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		got[labelValue(m, "result")] = m.GetCounter().GetValue()
	}
	if got["allow"] != 1 || got["deny"] != 2 {
		t.Errorf("authz decisions = %v, want allow=1 deny=2", got)
	}
}

// TestRecordRateLimited_IncrementsCounter はレート制限拒否カウンタが増加することを検証する。
func TestRecordRateLimited_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRateLimited("auth")

	mf := findMetric(t, reg, "postboard_rate_limited_total")
	if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 1 {
		t.Errorf("rate_limited_total = %v, want 1", v)
	}
}

// TestRecordContentChange_IncrementsCounter はリソース変更カウンタが増加することを検証する。
func TestRecordContentChange_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordContentChange("post", "create")
	c.RecordContentChange("post", "create")

	mf := findMetric(t, reg, "postboard_content_changes_total")
	m := mf.GetMetric()[0]
	if labelValue(m, "resource") != "post" || labelValue(m, "operation") != "create" {
		t.Errorf("labels = %v, want resource=post operation=create", m.GetLabel())
	}
	if v := m.GetCounter().GetValue(); v != 2 {
		t.Errorf("content_changes_total = %v, want 2", v)
	}
}

// TestNewCollector_DuplicateRegistrationPanics は同一レジストリへの二重登録でpanicすることを検証する。
func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	_ = NewCollector(reg)
}
