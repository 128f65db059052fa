package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const metricsJSON = `{
	"timestamp": "2026-08-25T14:00:00Z",
	"net_exposure": 1250000,
	"gross_exposure": 4200000,
	"gross_leverage": 2.1,
	"net_leverage": 0.6,
	"var_95": 118000,
	"var_99": 176000,
	"max_drawdown": -0.028,
	"daily_pnl": -34000,
	"sector_exposures": {"TECH": 0.42, "ENERGY": 0.18},
	"concentration_risk": 0.31,
	"mandate_values": {"M-710": 0.12}
}`

func TestProviderGetCurrentMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/internal/v1/risk/metrics" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(metricsJSON))
	}))
	defer server.Close()

	p := NewProvider(server.URL)

	metrics, err := p.GetCurrentMetrics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if metrics.MaxDrawdown != -0.028 {
		t.Errorf("unexpected drawdown: %v", metrics.MaxDrawdown)
	}
	if metrics.GrossExposure != 4200000 {
		t.Errorf("unexpected gross exposure: %v", metrics.GrossExposure)
	}
	if metrics.SectorExposures["TECH"] != 0.42 {
		t.Errorf("sector exposures not decoded: %+v", metrics.SectorExposures)
	}
	if metrics.MandateValues["M-710"] != 0.12 {
		t.Errorf("mandate values not decoded: %+v", metrics.MandateValues)
	}
}

func TestProviderRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(metricsJSON))
	}))
	defer server.Close()

	p := NewProvider(server.URL)

	metrics, err := p.GetCurrentMetrics(context.Background())
	if err != nil {
		t.Fatalf("expected success after one retry: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
	if metrics.MaxDrawdown != -0.028 {
		t.Errorf("unexpected drawdown: %v", metrics.MaxDrawdown)
	}
}

func TestProviderUnavailableAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewProvider(server.URL)

	_, err := p.GetCurrentMetrics(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	// Один исходный вызов плюс один retry
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestProviderBadResponseIsPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	p := NewProvider(server.URL)

	_, err := p.GetCurrentMetrics(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	// Мусорный ответ не ретраится
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestProviderHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(metricsJSON))
	}))
	defer server.Close()

	p := NewProvider(server.URL)

	if _, err := p.GetCurrentMetrics(ctx); err == nil {
		t.Fatal("cancelled context must fail the call")
	}
}
