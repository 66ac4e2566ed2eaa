// Package api internal/infrastructure/api/exchange_api_client.go
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/damon-houk/exchange-rate-widget/internal/domain/entity"
	"github.com/damon-houk/exchange-rate-widget/internal/domain/service"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/logger"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/metrics"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/middleware"
)

const (
	// DefaultBaseURL is where the development backend listens
	DefaultBaseURL = "https://localhost:7191/api"

	getRatePath    = "/Exchange/getTipoCambio"
	listRatesPath  = "/Exchange/ListarTipoCambio"
	saveRatePath   = "/Exchange/GuardarTipoCambio"
	deleteRatePath = "/Exchange/EliminarTipoCambio"
)

// ExchangeAPIClient implements the ExchangeAPI interface over HTTP.
// It does not retry or cache; every call is a single request.
type ExchangeAPIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

// NewHTTPClient builds the client used to reach the backend
func NewHTTPClient(timeout time.Duration, insecureSkipVerify bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// NewExchangeAPIClient creates a new exchange rate API client
func NewExchangeAPIClient(baseURL string, httpClient *http.Client, log logger.Logger) *ExchangeAPIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(10*time.Second, false)
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &ExchangeAPIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     log,
	}
}

// rateResponse is the payload of the get-rate endpoint
type rateResponse struct {
	Fecha            string `json:"fecha"`
	TipoCambioCompra amount `json:"tipoCambioCompra"`
	TipoCambioVenta  amount `json:"tipoCambioVenta"`
}

// recordResponse is one element of the list endpoint
type recordResponse struct {
	ID           int64  `json:"id"`
	RequestDate  string `json:"requestDate"`
	ExchangeBuy  amount `json:"exchangeBuy"`
	ExchangeSell amount `json:"exchangeSell"`
}

// messageResponse is the payload of the write endpoints
type messageResponse struct {
	Message string `json:"message"`
}

// GetRate retrieves today's rate. The backend's purchase rate becomes
// exchangeSell and its sale rate exchangeBuy.
func (c *ExchangeAPIClient) GetRate(ctx context.Context) (*entity.ExchangeRate, error) {
	var resp rateResponse
	if _, err := c.do(ctx, "get_rate", http.MethodGet, getRatePath, nil, &resp); err != nil {
		return nil, err
	}

	date, err := entity.ParseRequestDate(resp.Fecha)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rate date '%s': %w", resp.Fecha, err)
	}

	return &entity.ExchangeRate{
		RequestDate:  entity.FormatRequestDate(date),
		ExchangeSell: float64(resp.TipoCambioCompra),
		ExchangeBuy:  float64(resp.TipoCambioVenta),
	}, nil
}

// ListRates retrieves every stored rate
func (c *ExchangeAPIClient) ListRates(ctx context.Context) ([]entity.RateRecord, error) {
	var resp []recordResponse
	if _, err := c.do(ctx, "list_rates", http.MethodGet, listRatesPath, nil, &resp); err != nil {
		return nil, err
	}

	records := make([]entity.RateRecord, 0, len(resp))
	for _, item := range resp {
		records = append(records, entity.RateRecord{
			ID:           item.ID,
			RequestDate:  item.RequestDate,
			ExchangeBuy:  float64(item.ExchangeBuy),
			ExchangeSell: float64(item.ExchangeSell),
		})
	}

	return records, nil
}

// CreateRate stores a new rate
func (c *ExchangeAPIClient) CreateRate(ctx context.Context, rate entity.ExchangeRate) (*service.Result, error) {
	return c.write(ctx, "create_rate", http.MethodPost, saveRatePath, rate)
}

// UpdateRate overwrites a stored rate
func (c *ExchangeAPIClient) UpdateRate(ctx context.Context, record entity.RateRecord) (*service.Result, error) {
	return c.write(ctx, "update_rate", http.MethodPut, saveRatePath, record)
}

// DeleteRate removes a stored rate
func (c *ExchangeAPIClient) DeleteRate(ctx context.Context, id int64) (*service.Result, error) {
	return c.write(ctx, "delete_rate", http.MethodDelete, deleteRatePath+"/"+strconv.FormatInt(id, 10), nil)
}

func (c *ExchangeAPIClient) write(ctx context.Context, operation, method, path string, body interface{}) (*service.Result, error) {
	var resp messageResponse
	status, err := c.do(ctx, operation, method, path, body, &resp)
	if err != nil {
		return nil, err
	}

	return &service.Result{StatusCode: status, Message: resp.Message}, nil
}

// do sends one request and decodes a 2xx JSON answer into out. Non-2xx
// answers come back as *service.APIError.
func (c *ExchangeAPIClient) do(ctx context.Context, operation, method, path string, body, out interface{}) (int, error) {
	requestID := middleware.GetRequestID(ctx)
	reqURL := c.baseURL + path
	started := time.Now()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if requestID != "unknown" {
		req.Header.Set("X-Request-ID", requestID)
	}

	c.logger.Debug("Sending exchange API request", map[string]interface{}{
		"request_id": requestID,
		"operation":  operation,
		"method":     method,
		"url":        reqURL,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveAPIRequest(operation, 0, started)
		c.logger.Error("Exchange API request failed", map[string]interface{}{
			"request_id": requestID,
			"operation":  operation,
			"error":      err.Error(),
		})
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Error closing response body", map[string]interface{}{
				"request_id": requestID,
				"error":      closeErr.Error(),
			})
		}
	}()

	metrics.ObserveAPIRequest(operation, resp.StatusCode, started)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("Exchange API response received", map[string]interface{}{
		"request_id":  requestID,
		"operation":   operation,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
		"body":        string(bodyBytes),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg messageResponse
		_ = json.Unmarshal(bodyBytes, &msg)

		c.logger.Warn("Exchange API returned error status", map[string]interface{}{
			"request_id": requestID,
			"operation":  operation,
			"status":     resp.StatusCode,
			"message":    msg.Message,
		})
		return resp.StatusCode, &service.APIError{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	if out != nil && len(bytes.TrimSpace(bodyBytes)) > 0 {
		if err := json.Unmarshal(bodyBytes, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}
