// Package payment は決済プロバイダー（Razorpay Orders API）のクライアントを提供する。
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	// DefaultBaseURL はRazorpay APIのベースURL。
	DefaultBaseURL = "https://api.razorpay.com"
	// DefaultCurrency は既定の通貨コード。
	DefaultCurrency = "INR"
	// minorUnitsPerMajor は主単位から補助単位（パイサ）への換算係数。
	minorUnitsPerMajor = 100
	// maxErrorBody はエラーレスポンスから読み取る最大バイト数。
	maxErrorBody = 4 << 10
)

var (
	// ErrInvalidAmount は金額が正の整数でない場合のエラー。
	ErrInvalidAmount = errors.New("amount must be a positive integer")
	// ErrNotConfigured はAPIキーが設定されていない場合のエラー。
	ErrNotConfigured = errors.New("payment provider is not configured")
	// ErrUpstream は決済プロバイダーがエラーを返した場合のエラー。
	ErrUpstream = errors.New("payment provider error")
)

// Config はクライアントの設定を表す。
type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Currency  string
}

// Order は決済プロバイダー側で作成された注文を表す。
// Amountは補助単位（パイサ）。
type Order struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
}

// Client はRazorpay Orders APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	cfg        Config
}

// NewClient はClientを生成する。
func NewClient(httpClient *http.Client, cfg Config, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{httpClient: httpClient, logger: logger, cfg: cfg}
}

// CreateOrder は主単位の金額で注文を作成する。
// プロバイダーには補助単位に換算した金額を送る。
func (c *Client) CreateOrder(ctx context.Context, amount int64, receipt string) (*Order, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if c.cfg.KeyID == "" || c.cfg.KeySecret == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(createOrderRequest{
		Amount:   amount * minorUnitsPerMajor,
		Currency: c.cfg.Currency,
		Receipt:  receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("決済プロバイダーの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("決済プロバイダーがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", string(snippet)),
		)
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%w: レスポンスJSONのパースに失敗しました: %v", ErrUpstream, err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: order id missing", ErrUpstream)
	}
	return &order, nil
}
