// Package gateway はバックエンドAPIへの薄い汎用トランスポートを提供する。
// リクエストのシリアライズと統一エラー正規化のみを担当し、自動リトライは行わない。
// リトライポリシーは呼び出し元の責任とする。
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/aury/internal/metrics"
	"github.com/hitoshi/aury/internal/model"
)

// Config はゲートウェイクライアントの設定。
type Config struct {
	BaseURL           string
	RequestsPerSecond rate.Limit
	Burst             int
	UserAgent         string
}

// DefaultConfig は指定ベースURLのデフォルト設定を返す。
// レート制限はAPI全般 120 req/min 相当。
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:           baseURL,
		RequestsPerSecond: rate.Limit(120.0 / 60.0),
		Burst:             20,
		UserAgent:         "Aury/1.0 Companion Agent",
	}
}

// Client はバックエンドAPIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	limiter    *rate.Limiter
	config     Config
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, collector metrics.MetricsCollector, config Config) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    collector,
		limiter:    rate.NewLimiter(config.RequestsPerSecond, config.Burst),
		config:     config,
	}
}

// errorPayload はバックエンドのエラーレスポンスボディ。
// detailは人間向けメッセージ、codeは構造化エラーコード（将来のバックエンドが返す場合のみ）。
type errorPayload struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// endpointLabel はメトリクスラベル用にクエリ文字列を除いたパスを返す。
func endpointLabel(endpoint string) string {
	if i := strings.Index(endpoint, "?"); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}

// Call はバックエンドAPIを1回呼び出し、パース前のJSONレスポンスを返す。
// 非2xxステータスは*model.HTTPErrorに、ネットワーク自体の失敗は
// *model.TransportErrorに正規化される。自動リトライは行わない。
func (c *Client) Call(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	label := endpointLabel(endpoint)

	// クライアント側レート制限。コンテキストキャンセルで中断される。
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &model.TransportError{Cause: err}
	}

	// リクエストボディのシリアライズ
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのシリアライズに失敗しました: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordGatewayLatency(time.Since(start))
	if err != nil {
		c.metrics.RecordGatewayFailure(label, "transport")
		c.logger.Error("バックエンドへの接続に失敗しました",
			slog.String("endpoint", label),
			slog.String("error", err.Error()),
		)
		return nil, &model.TransportError{Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordGatewayFailure(label, "read")
		return nil, &model.TransportError{Cause: err}
	}

	c.metrics.RecordGatewayRequest(label, resp.StatusCode)

	// 非2xxはエラーペイロードのパースを試み、失敗時はステータスから合成する
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &model.HTTPError{Status: resp.StatusCode}

		var payload errorPayload
		if err := json.Unmarshal(respBody, &payload); err == nil && payload.Detail != "" {
			httpErr.Detail = payload.Detail
			httpErr.Code = payload.Code
		} else {
			httpErr.Detail = fmt.Sprintf("Error %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}

		c.logger.Warn("バックエンドがエラーステータスを返しました",
			slog.String("endpoint", label),
			slog.Int("http_status", resp.StatusCode),
			slog.String("detail", httpErr.Detail),
		)
		return nil, httpErr
	}

	return respBody, nil
}

// call はレスポンスを指定の型にデコードするヘルパー。
func (c *Client) call(ctx context.Context, method, endpoint string, body, out any) error {
	raw, err := c.Call(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}
