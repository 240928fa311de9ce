package sap

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/scalehouse/weighbridge/internal/config"
	"github.com/scalehouse/weighbridge/internal/domain/model"
)

// ODataConnector posts weighings to the ERP gateway's OData weighing
// document service over HTTPS with basic auth.
type ODataConnector struct {
	httpClient *resty.Client
	cfg        config.SAPConfig

	mu        sync.Mutex
	connected bool
}

// weighingDocument mirrors the OData entity for a weighbridge posting.
type weighingDocument struct {
	TruckNumber string  `json:"TruckNumber"`
	Transporter string  `json:"Transporter"`
	Product     string  `json:"Product"`
	Weight      float64 `json:"Weight"`
	Kind        string  `json:"MovementKind"`
	RecordedAt  string  `json:"RecordedAt"`
}

type weighingDocumentResponse struct {
	DocumentNumber string `json:"DocumentNumber"`
}

// apiError represents the gateway's error payload.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message struct {
			Value string `json:"value"`
		} `json:"message"`
	} `json:"error"`
}

// NewODataConnector builds a connector against the configured ERP host.
func NewODataConnector(cfg config.SAPConfig) *ODataConnector {
	base := strings.TrimSuffix(cfg.Host, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(base).
		SetBasicAuth(cfg.Username, cfg.Password).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("sap-client", cfg.Client).
		SetHeader("sap-language", cfg.Locale).
		SetTimeout(cfg.Timeout())

	return &ODataConnector{
		httpClient: restyClient,
		cfg:        cfg,
	}
}

// Connect probes the service document to verify credentials and reachability.
func (c *ODataConnector) Connect(ctx context.Context) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get("/WeighingDocumentService/")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("%w: service probe returned %d", ErrConnect, resp.StatusCode())
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return nil
}

// Disconnect drops the session state. The service itself is stateless.
func (c *ODataConnector) Disconnect(_ context.Context) error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	return nil
}

// Submit posts one weighing document and returns the document number minted
// by the ERP system. A correlation id is attached so a duplicate caused by a
// lost response can be traced on both sides.
func (c *ODataConnector) Submit(ctx context.Context, w model.Weighing) (string, error) {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return "", ErrNotConnected
	}

	payload := weighingDocument{
		TruckNumber: w.TruckNumber,
		Transporter: w.Transporter,
		Product:     w.Product,
		Weight:      w.Weight,
		Kind:        string(w.Kind),
		RecordedAt:  w.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
	}

	result := new(weighingDocumentResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Correlation-ID", uuid.NewString()).
		SetBody(payload).
		SetResult(result).
		SetError(apiErr).
		Post("/WeighingDocumentService/Documents")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmit, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Error.Message.Value
		return "", fmt.Errorf("%w: status=%d, message=%s", ErrSubmit, resp.StatusCode(), message)
	}

	if result.DocumentNumber == "" {
		return "", fmt.Errorf("%w: response carried no document number", ErrSubmit)
	}
	return result.DocumentNumber, nil
}
