// Package adminclient calls the admin HTTP API. The dev CLIs use it.
package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hotelsync/internal/api"
	"hotelsync/internal/statussync"
)

type Client struct {
	BaseURL string
	Token   string
	// Operator is sent as X-Operator when Token is empty (non-prod servers).
	Operator string
	HTTP     *http.Client
}

func New(baseURL, token, operator string) *Client {
	return &Client{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		Token:    token,
		Operator: operator,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Error is a non-2xx response carrying the server's error envelope.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("status=%d code=%s: %s", e.Status, e.Code, e.Message)
}

func (c *Client) CreateBooking(ctx context.Context, nb statussync.NewBooking) (statussync.PairView, error) {
	var out statussync.PairView
	_, err := c.do(ctx, http.MethodPost, "/v1/bookings", statussync.CreateBookingRequest{
		UserRef:      nb.UserRef,
		HotelRef:     nb.HotelRef,
		RoomRef:      nb.RoomRef,
		CheckInDate:  nb.CheckInDate,
		CheckOutDate: nb.CheckOutDate,
	}, &out)
	return out, err
}

func (c *Client) OpenPayment(ctx context.Context, bookingID string, amount decimal.Decimal, method string) (statussync.PairView, error) {
	var out statussync.PairView
	_, err := c.do(ctx, http.MethodPost, "/v1/bookings/"+bookingID+"/payment", statussync.OpenPaymentRequest{
		Amount: amount,
		Method: method,
	}, &out)
	return out, err
}

func (c *Client) GetBooking(ctx context.Context, bookingID string) (statussync.PairView, error) {
	var out statussync.PairView
	_, err := c.do(ctx, http.MethodGet, "/v1/bookings/"+bookingID, nil, &out)
	return out, err
}

// SetBookingStatus sends one status PATCH. A 428 response is returned as a
// Confirmation, not an error.
func (c *Client) SetBookingStatus(ctx context.Context, bookingID, status string, confirmed bool) (statussync.PairView, *statussync.Confirmation, error) {
	return c.patchStatus(ctx, "/v1/bookings/"+bookingID+"/status", status, confirmed)
}

func (c *Client) SetPaymentStatus(ctx context.Context, paymentID, status string, confirmed bool) (statussync.PairView, *statussync.Confirmation, error) {
	return c.patchStatus(ctx, "/v1/payments/"+paymentID+"/status", status, confirmed)
}

// SetBookingPaymentStatus changes the payment linked to bookingID.
func (c *Client) SetBookingPaymentStatus(ctx context.Context, bookingID, status string, confirmed bool) (statussync.PairView, *statussync.Confirmation, error) {
	return c.patchStatus(ctx, "/v1/bookings/"+bookingID+"/payment-status", status, confirmed)
}

func (c *Client) patchStatus(ctx context.Context, path, status string, confirmed bool) (statussync.PairView, *statussync.Confirmation, error) {
	body := map[string]any{"status": status, "confirmed": confirmed}
	raw, err := c.do(ctx, http.MethodPatch, path, body, nil)
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) && ae.Status == http.StatusPreconditionRequired {
			var cr statussync.ConfirmationResponse
			if jerr := json.Unmarshal(raw, &cr); jerr != nil {
				return statussync.PairView{}, nil, jerr
			}
			return statussync.PairView{}, &cr.Confirmation, nil
		}
		return statussync.PairView{}, nil, err
	}
	var out statussync.PairView
	if err := json.Unmarshal(raw, &out); err != nil {
		return statussync.PairView{}, nil, err
	}
	return out, nil, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) ([]byte, error) {
	var rd io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	} else if c.Operator != "" {
		req.Header.Set("X-Operator", c.Operator)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ae := &Error{Status: resp.StatusCode}
		var env api.ErrorEnvelope
		if json.Unmarshal(b, &env) == nil {
			ae.Code, ae.Message = env.Error.Code, env.Error.Message
		}
		return b, ae
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			return b, err
		}
	}
	return b, nil
}

// DefaultBaseURL turns a bind address like ":8081" or "0.0.0.0:8081" into a
// local URL.
func DefaultBaseURL(httpAddr string) string {
	addr := strings.TrimSpace(httpAddr)
	if addr == "" {
		addr = ":8081"
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	if strings.HasPrefix(addr, "0.0.0.0:") {
		return "http://localhost" + strings.TrimPrefix(addr, "0.0.0.0")
	}
	return "http://" + addr
}
