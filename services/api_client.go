package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/feeriepay/checkout/utils"
)

const xsrfCookieName = "XSRF-TOKEN"

// APIConfig holds the remote backend configuration
type APIConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// APIClient talks to the Feerie Pay Laravel API. Cookies set by the backend
// (the httpOnly session and the Sanctum XSRF token) are kept in a jar and
// sent back on every request.
type APIClient struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu             sync.RWMutex
	onUnauthorized func()

	Orders    *OrdersAPI
	Payments  *PaymentsAPI
	Products  *ProductsAPI
	Coupons   *CouponsAPI
	Customers *CustomersAPI
	Users     *UsersAPI
	Auth      *AuthAPI
}

// NewAPIClient creates a client for cfg.BaseURL
func NewAPIClient(cfg APIConfig) (*APIClient, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url %q: scheme must be http or https", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("error creating cookie jar: %w", err)
		}
		clone := *hc
		clone.Jar = jar
		hc = &clone
	}

	c := &APIClient{baseURL: base, httpClient: hc}
	c.Orders = &OrdersAPI{c: c}
	c.Payments = &PaymentsAPI{c: c}
	c.Products = &ProductsAPI{c: c}
	c.Coupons = &CouponsAPI{c: c}
	c.Customers = &CustomersAPI{c: c}
	c.Users = &UsersAPI{c: c}
	c.Auth = &AuthAPI{c: c}
	return c, nil
}

// SetOnUnauthorized registers the callback fired when an authenticated
// request comes back 401.
func (c *APIClient) SetOnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

// BaseURL returns the configured API root.
func (c *APIClient) BaseURL() string {
	return c.baseURL.String()
}

type requestOptions struct {
	public           bool
	skipAuthRedirect bool
	headers          map[string]string
}

// RequestOption tweaks a single request
type RequestOption func(*requestOptions)

// Public marks an endpoint that does not require authentication. A 401 on
// a public request never triggers the unauthorized callback.
func Public() RequestOption {
	return func(o *requestOptions) { o.public = true }
}

// SkipAuthRedirect keeps a 401 from triggering the unauthorized callback.
func SkipAuthRedirect() RequestOption {
	return func(o *requestOptions) { o.skipAuthRedirect = true }
}

// WithHeader adds a request header.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = map[string]string{}
		}
		o.headers[key] = value
	}
}

// MultipartForm is a request body sent as multipart/form-data.
type MultipartForm struct {
	Fields map[string]string
	Files  []MultipartFile
}

type MultipartFile struct {
	Field    string
	FileName string
	Content  io.Reader
}

func (f *MultipartForm) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range f.Fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	for _, file := range f.Files {
		part, err := w.CreateFormFile(file.Field, file.FileName)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *APIClient) resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.baseURL.String() + endpoint
}

// Do executes a request against the API and decodes the JSON response into
// out when out is non-nil. Non-2xx responses are returned as *APIError.
func (c *APIClient) Do(ctx context.Context, method, endpoint string, body, out interface{}, opts ...RequestOption) error {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case *MultipartForm:
		r, ct, err := b.encode()
		if err != nil {
			return fmt.Errorf("error encoding multipart body: %w", err)
		}
		reader, contentType = r, ct
	default:
		jsonData, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("error marshaling request: %w", err)
		}
		reader, contentType = bytes.NewReader(jsonData), "application/json"
	}

	reqURL := c.resolve(endpoint)
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if method != http.MethodGet && method != http.MethodHead {
		if token := c.xsrfToken(req.URL); token != "" {
			req.Header.Set("X-XSRF-TOKEN", token)
		}
	}
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	utils.Info().WithFields(logrus.Fields{
		"method": method,
		"url":    reqURL,
		"status": resp.StatusCode,
	}).Debug("api request")

	if apiErr := translateError(resp.StatusCode, respBody); apiErr != nil {
		if apiErr.Status == http.StatusUnauthorized && !o.public && !o.skipAuthRedirect {
			c.mu.RLock()
			fn := c.onUnauthorized
			c.mu.RUnlock()
			if fn != nil {
				fn()
			}
		}
		return apiErr
	}

	if resp.StatusCode == http.StatusNoContent || out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("error unmarshaling response: %w", err)
	}
	return nil
}

func (c *APIClient) xsrfToken(u *url.URL) string {
	if c.httpClient.Jar == nil {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == xsrfCookieName {
			if v, err := url.QueryUnescape(cookie.Value); err == nil {
				return v
			}
			return cookie.Value
		}
	}
	return ""
}

func (c *APIClient) Get(ctx context.Context, endpoint string, out interface{}, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, endpoint, nil, out, opts...)
}

func (c *APIClient) Post(ctx context.Context, endpoint string, body, out interface{}, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, endpoint, body, out, opts...)
}

func (c *APIClient) Put(ctx context.Context, endpoint string, body, out interface{}, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPut, endpoint, body, out, opts...)
}

func (c *APIClient) Patch(ctx context.Context, endpoint string, body, out interface{}, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPatch, endpoint, body, out, opts...)
}

func (c *APIClient) Delete(ctx context.Context, endpoint string, out interface{}, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodDelete, endpoint, nil, out, opts...)
}

// decodeEnvelope unmarshals either {"data": {...}} or the bare object.
func decodeEnvelope(raw json.RawMessage, out interface{}) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		trimmed := bytes.TrimSpace(envelope.Data)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			return json.Unmarshal(trimmed, out)
		}
	}
	return json.Unmarshal(raw, out)
}
