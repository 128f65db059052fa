package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var gatewayJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Client - HTTP реализация OrderGateway поверх внутреннего API
// шлюза ордеров (OMS).
//
// Все вызовы подписываются HMAC-SHA256 общим секретом: kill switch
// трогает реальные ордера, анонимных запросов шлюз не принимает.
type Client struct {
	baseURL    string
	signingKey string
	httpClient *http.Client
}

// NewClient создает клиент шлюза ордеров
func NewClient(baseURL, signingKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		signingKey: signingKey,
		httpClient: SharedHTTPClient().GetClient(),
	}
}

// sign создает подпись тела запроса для внутреннего API
func (c *Client) sign(timestamp, body string) string {
	h := hmac.New(sha256.New, []byte(c.signingKey))
	h.Write([]byte(timestamp + body))
	return hex.EncodeToString(h.Sum(nil))
}

// doRequest выполняет подписанный запрос к шлюзу.
// Транспортные ошибки и 5xx оборачиваются в ErrUnavailable.
func (c *Client) doRequest(ctx context.Context, operation, method, endpoint string, payload interface{}) ([]byte, error) {
	start := time.Now()
	defer func() {
		GatewayRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	var body []byte
	if payload != nil {
		var err error
		body, err = gatewayJSON.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", operation, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	req.Header.Set("X-Risk-Timestamp", timestamp)
	req.Header.Set("X-Risk-Signature", c.sign(timestamp, string(body)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", operation, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", operation, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%s: %w: status %d", operation, ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d: %s", operation, resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// GateNewOrders включает/выключает прием новых ордеров на шлюзе.
// Шлюз применяет гейт синхронно: успешный ответ означает,
// что ни один новый ордер после него принят не будет.
func (c *Client) GateNewOrders(ctx context.Context, halted bool) error {
	payload := map[string]bool{"halted": halted}
	_, err := c.doRequest(ctx, "gate", http.MethodPost, "/internal/v1/orders/gate", payload)
	return err
}

// CancelAllOrders запрашивает отмену всех открытых ордеров
func (c *Client) CancelAllOrders(ctx context.Context) ([]CancelResult, error) {
	body, err := c.doRequest(ctx, "cancel_all", http.MethodPost, "/internal/v1/orders/cancel-all", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Results []CancelResult `json:"results"`
	}
	if err := gatewayJSON.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("cancel_all: decode response: %w", err)
	}
	return resp.Results, nil
}

// CloseAllPositions запрашивает закрытие всех открытых позиций по рынку
func (c *Client) CloseAllPositions(ctx context.Context) ([]CloseResult, error) {
	body, err := c.doRequest(ctx, "close_all", http.MethodPost, "/internal/v1/positions/close-all", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Results []CloseResult `json:"results"`
	}
	if err := gatewayJSON.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("close_all: decode response: %w", err)
	}
	return resp.Results, nil
}
