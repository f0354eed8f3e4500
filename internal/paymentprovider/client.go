// Package paymentprovider — HTTP-клиент внешнего платёжного провайдера.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/magabrotheeeer/finportal/internal/lib/apperr"
)

// DefaultTimeout ограничивает один запрос к провайдеру.
const DefaultTimeout = 10 * time.Second

var (
	// ErrUnavailable оборачивает сетевые ошибки и неуспешные ответы провайдера.
	ErrUnavailable = apperr.New(apperr.KindUpstream, "payment provider request failed")
	// ErrIntentNotFound возвращается, если провайдер не знает платёжное намерение.
	ErrIntentNotFound = apperr.New(apperr.KindNotFound, "payment intent not found")
)

// Client вызывает API провайдера с авторизацией по секретному ключу.
type Client struct {
	secretKey  string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт клиент. Нулевой timeout заменяется на DefaultTimeout.
func NewClient(apiURL, secretKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		secretKey:  secretKey,
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ErrUnavailable.With(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return ErrIntentNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ErrUnavailable.With(fmt.Errorf("unexpected status %s: %s", resp.Status, bytes.TrimSpace(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ErrUnavailable.With(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// CreateIntent создаёт платёжное намерение на сумму amount в минимальных единицах валюты.
func (c *Client) CreateIntent(ctx context.Context, amount int64, currency string, metadata Metadata) (*Intent, error) {
	const op = "paymentprovider.CreateIntent"

	req, err := c.newRequest(ctx, http.MethodPost, "/payment_intents", CreateIntentRequest{
		Amount:   amount,
		Currency: currency,
		Metadata: metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var intent Intent
	if err := c.do(req, &intent); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &intent, nil
}

// GetIntent возвращает текущее состояние платёжного намерения.
func (c *Client) GetIntent(ctx context.Context, id string) (*Intent, error) {
	const op = "paymentprovider.GetIntent"

	req, err := c.newRequest(ctx, http.MethodGet, "/payment_intents/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var intent Intent
	if err := c.do(req, &intent); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &intent, nil
}
