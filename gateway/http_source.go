// Package gateway 对接外部报价数据源：HTTP 轮询与 WebSocket 推送。
package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"quote-chart-go/record"
)

const (
	DefaultBaseURL = "http://localhost:8080"
	DefaultPath    = "/query?id=1"

	maxBodyBytes = 8 << 20
)

// StatusError 数据源返回非 2xx。
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("record source status %d", e.Code)
	}
	return fmt.Sprintf("record source status %d: %s", e.Code, e.Body)
}

// HTTPSource 每次 GetData 发起一次 GET {BaseURL}{Path}，响应体为原始记录 JSON 数组。
// HTTPClient 可注入 httptest；Limiter 为 nil 时不限速。
type HTTPSource struct {
	BaseURL    string
	Path       string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
}

// NewHTTPSource 空参数回退为默认地址。
func NewHTTPSource(baseURL, path string) *HTTPSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if path == "" {
		path = DefaultPath
	}
	return &HTTPSource{
		BaseURL:    baseURL,
		Path:       path,
		HTTPClient: NewDefaultHTTPClient(),
	}
}

// NewDefaultHTTPClient 提供一个带超时的 http.Client。
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

// Endpoint 完整请求地址。
func (s *HTTPSource) Endpoint() string {
	path := s.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(s.BaseURL, "/") + path
}

// GetData 抓取一次。
func (s *HTTPSource) GetData(ctx context.Context) ([]record.Raw, error) {
	if s == nil || s.HTTPClient == nil {
		return nil, fmt.Errorf("http client not set")
	}
	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Endpoint(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return DecodeRecords(body)
}
