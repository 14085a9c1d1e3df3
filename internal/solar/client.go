package solar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
)

// DefaultEndpoint is the hosted calculation service.
const DefaultEndpoint = "https://sunlytics.onrender.com/api/calculate"

const maxResponseBytes = 1 << 20

// Calculator performs the remote solar and financial calculation.
type Calculator interface {
	Calculate(ctx context.Context, req CalculationRequest) (*CalculationResponse, error)
}

// TransportError is any failed exchange with the calculation service: a
// non-2xx status, a network failure, or an undecodable body.
type TransportError struct {
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("calculation service returned status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("calculation service request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPCalculator calls the calculation service over HTTP. It never retries.
type HTTPCalculator struct {
	endpoint string
	client   *http.Client
}

// NewHTTPCalculator returns a client for endpoint. A zero timeout leaves the
// request bounded only by its context.
func NewHTTPCalculator(endpoint string, timeout time.Duration) *HTTPCalculator {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &HTTPCalculator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the URL requests are posted to.
func (c *HTTPCalculator) Endpoint() string { return c.endpoint }

func (c *HTTPCalculator) Calculate(ctx context.Context, in CalculationRequest) (*CalculationResponse, error) {
	ctx, span := otel.Tracer("solar").Start(ctx, "solar.Calculate")
	defer span.End()
	span.SetAttributes(
		attribute.String("solar.state", in.State),
		attribute.Float64("solar.monthly_units", in.MonthlyUnits),
	)

	out, err := c.do(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}

func (c *HTTPCalculator) do(ctx context.Context, in CalculationRequest) (*CalculationResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal calculation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build calculation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", resp.Status)}
	}
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	var out CalculationResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
	}
	return &out, nil
}
