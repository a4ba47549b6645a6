// Package backend is the REST client for the restaurant back-office API.
//
// Every call waits on a token bucket limiter and runs through a circuit
// breaker, so a failing back-office fails polls fast instead of piling up
// requests. Client errors (4xx) do not count as breaker failures.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/metrics"
	"backoffice-alerts/internal/models"
)

// ErrMalformedPayload is returned when a list endpoint answers with something
// other than an array or a known wrapper object.
var ErrMalformedPayload = errors.New("malformed payload")

// APIError is a non-2xx answer from the back-office.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("back-office returned %d", e.StatusCode)
	}
	return fmt.Sprintf("back-office returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the back-office.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	log        *logrus.Entry
}

func NewClient(baseURL string, timeout time.Duration, ratePerSecond int, logger *logging.Logger) *Client {
	if ratePerSecond <= 0 {
		ratePerSecond = 20
	}
	log := logger.WithComponent("backend")

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
		log:        log,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backoffice",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("Circuit breaker %s changed from %s to %s", name, from, to)
		},
	})
	return c
}

// ListInventoryItems fetches GET /inventory-items.
func (c *Client) ListInventoryItems(ctx context.Context) ([]models.InventoryItem, error) {
	body, err := c.do(ctx, "list_inventory", http.MethodGet, "/inventory-items", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.InventoryItem](body)
}

// ListOrders fetches GET /orders.
func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	body, err := c.do(ctx, "list_orders", http.MethodGet, "/orders", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Order](body)
}

// InitPurchaseOrder opens a purchase order for a supplier and returns the
// server-assigned order.
func (c *Client) InitPurchaseOrder(ctx context.Context, supplierID models.EntityID) (models.PurchaseOrder, error) {
	payload := map[string]string{"supplierId": supplierID.String()}
	body, err := c.do(ctx, "init_purchase_order", http.MethodPost, "/purchase-orders", payload)
	if err != nil {
		return models.PurchaseOrder{}, err
	}
	po, err := decodePurchaseOrder(body)
	if err != nil {
		return models.PurchaseOrder{}, err
	}
	if !po.ID.Valid() {
		return models.PurchaseOrder{}, fmt.Errorf("%w: purchase order without id", ErrMalformedPayload)
	}
	return po, nil
}

func (c *Client) AddPurchaseOrderItem(ctx context.Context, orderID models.EntityID, item models.PurchaseOrderItem) (models.PurchaseOrder, error) {
	path := "/purchase-orders/" + url.PathEscape(orderID.String()) + "/items"
	body, err := c.do(ctx, "add_purchase_order_item", http.MethodPost, path, item)
	if err != nil {
		return models.PurchaseOrder{}, err
	}
	return decodePurchaseOrder(body)
}

func (c *Client) RemovePurchaseOrderItem(ctx context.Context, orderID, itemID models.EntityID) (models.PurchaseOrder, error) {
	path := "/purchase-orders/" + url.PathEscape(orderID.String()) + "/items/" + url.PathEscape(itemID.String())
	body, err := c.do(ctx, "remove_purchase_order_item", http.MethodDelete, path, nil)
	if err != nil {
		return models.PurchaseOrder{}, err
	}
	return decodePurchaseOrder(body)
}

func (c *Client) FinalizePurchaseOrder(ctx context.Context, orderID models.EntityID) (models.PurchaseOrder, error) {
	path := "/purchase-orders/" + url.PathEscape(orderID.String()) + "/finalize"
	body, err := c.do(ctx, "finalize_purchase_order", http.MethodPost, path, nil)
	if err != nil {
		return models.PurchaseOrder{}, err
	}
	return decodePurchaseOrder(body)
}

func (c *Client) CancelPurchaseOrder(ctx context.Context, orderID models.EntityID) error {
	path := "/purchase-orders/" + url.PathEscape(orderID.String())
	_, err := c.do(ctx, "cancel_purchase_order", http.MethodDelete, path, nil)
	return err
}

func (c *Client) do(ctx context.Context, operation, method, path string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.send(ctx, method, path, payload)
	})
	metrics.BackendRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(operation, "error").Inc()
		c.log.Warnf("%s %s failed: %v", method, path, err)
		return nil, err
	}
	metrics.BackendRequestsTotal.WithLabelValues(operation, "ok").Inc()
	return result.([]byte), nil
}

func (c *Client) send(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// errorMessage extracts the server's message from a JSON error body, falling
// back to the raw text.
func errorMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return truncate(bytes.TrimSpace(body), 200)
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
