package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"riskengine/pkg/retry"
)

// Provider - HTTP реализация SnapshotProvider поверх сервиса риск-метрик.
//
// Один короткий retry на сетевые сбои: бюджет вызова ограничен
// интервалом цикла оценки, долго ждать смысла нет. Если провайдер
// не ответил в бюджет, цикл пропускается целиком.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	retryCfg   retry.Config
}

// NewProvider создает клиент провайдера риск-метрик
func NewProvider(baseURL string) *Provider {
	cfg := retry.Config{
		MaxRetries:   2, // исходный вызов плюс один retry
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     250 * time.Millisecond,
		Multiplier:   2.0,
		RetryIf: func(err error) bool {
			return retry.IsRetryable(err) && retry.RetryIfNotContext(err)
		},
	}
	return &Provider{
		baseURL:    baseURL,
		httpClient: SharedHTTPClient().GetClient(),
		retryCfg:   cfg,
	}
}

// GetCurrentMetrics запрашивает текущие риск-метрики портфеля
func (p *Provider) GetCurrentMetrics(ctx context.Context) (*Metrics, error) {
	start := time.Now()
	defer func() {
		GatewayRequestDuration.WithLabelValues("snapshot").Observe(time.Since(start).Seconds())
	}()

	metrics, err := retry.DoWithResult(ctx, func() (*Metrics, error) {
		return p.fetch(ctx)
	}, p.retryCfg)
	if err != nil {
		return nil, err
	}
	return metrics, nil
}

func (p *Provider) fetch(ctx context.Context) (*Metrics, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/internal/v1/risk/metrics", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("snapshot: %w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		// 4xx - это не временный сбой, retry бессмысленен
		return nil, retry.Permanent(fmt.Errorf("snapshot: unexpected status %d", resp.StatusCode))
	}

	var metrics Metrics
	if err := gatewayJSON.Unmarshal(body, &metrics); err != nil {
		return nil, retry.Permanent(fmt.Errorf("snapshot: decode response: %w", err))
	}
	return &metrics, nil
}
