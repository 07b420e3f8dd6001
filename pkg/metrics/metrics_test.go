package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New(false)
	m.CodeIssued()
	m.CodeIssued()
	m.Exchange(ResultSuccess)
	m.Exchange(ResultInvalidGrant)
	m.CodeReplay()
	m.BearerValidation(ResultInvalidToken)

	if got := testutil.ToFloat64(m.codesIssued); got != 2 {
		t.Errorf("codes issued = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.exchanges.WithLabelValues(ResultInvalidGrant)); got != 1 {
		t.Errorf("invalid_grant exchanges = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.replays); got != 1 {
		t.Errorf("replays = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.bearerValidations.WithLabelValues(ResultInvalidToken)); got != 1 {
		t.Errorf("invalid_token validations = %v, want 1", got)
	}
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	m.CodeIssued()
	m.Exchange(ResultSuccess)
	m.CodeReplay()
	m.BearerValidation(ResultSuccess)
	m.ObserveHTTP("GET", "/x", 200, 0.1)
}

func TestHandler(t *testing.T) {
	m := New(false)
	m.CodeIssued()
	m.ObserveHTTP("POST", "", 429, 0.01)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"maxidp_authorization_codes_issued_total 1",
		`maxidp_http_requests_total{method="POST",route="unmatched",status="429"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
}
