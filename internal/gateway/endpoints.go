package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/aury/internal/model"
)

// バックエンドAPIのエンドポイントパス。
const (
	endpointAuthGoogle     = "/api/v1/auth/google"
	endpointExpense        = "/api/v1/gasto"
	endpointStreak         = "/api/v1/racha"
	endpointRecentExpenses = "/api/v1/gastos/recent"
	endpointStreakFreeze   = "/api/v1/streak/freeze"
	endpointUserGoal       = "/api/v1/user/goal"
	endpointBetaStatus     = "/api/v1/public/beta-status"
	endpointWaitlist       = "/api/v1/waitlist/status"
	endpointSubscribe      = "/api/v1/notifications/subscribe"
	endpointUnsubscribe    = "/api/v1/notifications/unsubscribe"
	endpointAuryTone       = "/api/v1/user/aury-tone"
)

// AuthGoogle はGoogle IDトークンをバックエンドのユーザー情報と交換する。
func (c *Client) AuthGoogle(ctx context.Context, token string) (*model.AuthResult, error) {
	var resp struct {
		GoogleID  string `json:"google_id"`
		Email     string `json:"email"`
		IsNewUser bool   `json:"is_new_user"`
		Message   string `json:"message"`
	}
	body := map[string]string{"token": token}
	if err := c.call(ctx, http.MethodPost, endpointAuthGoogle, body, &resp); err != nil {
		return nil, err
	}
	return &model.AuthResult{
		UserID:    resp.GoogleID,
		Email:     resp.Email,
		IsNewUser: resp.IsNewUser,
	}, nil
}

// ExpenseResult は支出登録のレスポンス。
type ExpenseResult struct {
	Success       bool           `json:"success"`
	TransactionID string         `json:"transaction_id"`
	ParsedData    map[string]any `json:"parsed_data"`
	AuryResponse  string         `json:"aury_response"`
	Message       string         `json:"message"`
}

// CreateExpense は自由テキストの支出を1件登録する。
// パースとAuryの応答生成はすべてサーバーサイドで行われる。
func (c *Client) CreateExpense(ctx context.Context, userID, rawText string) (*ExpenseResult, error) {
	var resp ExpenseResult
	body := map[string]string{"raw_text": rawText, "google_id": userID}
	if err := c.call(ctx, http.MethodPost, endpointExpense, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Streak は現在の連続記録。
type Streak struct {
	GoogleID         string `json:"google_id"`
	CurrentStreak    int    `json:"current_streak"`
	LongestStreak    int    `json:"longest_streak"`
	FreezeInventory  int    `json:"freeze_inventory"`
	IsPlusUser       bool   `json:"is_plus_user"`
	LastActivityDate string `json:"last_activity_date"`
}

// GetStreak は現在の連続記録を取得する。
func (c *Client) GetStreak(ctx context.Context, userID string) (*Streak, error) {
	var resp Streak
	endpoint := endpointStreak + "?google_id=" + url.QueryEscape(userID)
	if err := c.call(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExpenseFeedItem は支出フィードの1件。
type ExpenseFeedItem struct {
	ID           string    `json:"id"`
	Amount       *float64  `json:"amount"`
	Category     *string   `json:"category"`
	RawText      string    `json:"raw_text"`
	AuryResponse *string   `json:"aury_response"`
	CreatedAt    time.Time `json:"created_at"`
}

// ExpenseFeed は最近の支出フィード。
type ExpenseFeed struct {
	Gastos []ExpenseFeedItem `json:"gastos"`
	Total  int               `json:"total"`
}

// GetRecentExpenses は最近の支出フィードを取得する。
func (c *Client) GetRecentExpenses(ctx context.Context, userID string, limit int) (*ExpenseFeed, error) {
	var resp ExpenseFeed
	endpoint := fmt.Sprintf("%s?google_id=%s&limit=%d", endpointRecentExpenses, url.QueryEscape(userID), limit)
	if err := c.call(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StreakFreezeResult は週次プロテクター使用のレスポンス。
type StreakFreezeResult struct {
	Success          bool   `json:"success"`
	FreezeUsed       bool   `json:"freeze_used"`
	RemainingFreezes int    `json:"remaining_freezes"`
	Message          string `json:"message"`
}

// UseStreakFreeze は連続記録を守る週次プロテクターを使用する。
func (c *Client) UseStreakFreeze(ctx context.Context, userID string) (*StreakFreezeResult, error) {
	var resp StreakFreezeResult
	body := map[string]string{"google_id": userID}
	if err := c.call(ctx, http.MethodPost, endpointStreakFreeze, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetGoal は貯金目標をバックエンドに保存する。
// ユーザーIDはクエリパラメータ、目標テキストはボディで渡す。
func (c *Client) SetGoal(ctx context.Context, userID, goal string) error {
	endpoint := endpointUserGoal + "?google_id=" + url.QueryEscape(userID)
	body := map[string]string{"goal": goal}
	return c.call(ctx, http.MethodPost, endpoint, body, nil)
}

// BetaStatus はベータの残りスロット数。
type BetaStatus struct {
	SlotsRemaining int `json:"slots_remaining"`
}

// GetBetaStatus はベータ登録の残りスロット数を取得する。認証不要。
func (c *Client) GetBetaStatus(ctx context.Context) (*BetaStatus, error) {
	var resp BetaStatus
	if err := c.call(ctx, http.MethodGet, endpointBetaStatus, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WaitlistStatus は待機リストの状態。
type WaitlistStatus struct {
	OnWaitlist    bool `json:"on_waitlist"`
	TotalUsers    int  `json:"total_users"`
	WaitlistLimit int  `json:"waitlist_limit"`
}

// GetWaitlistStatus は待機リストの状態を取得する。
func (c *Client) GetWaitlistStatus(ctx context.Context) (*WaitlistStatus, error) {
	var resp WaitlistStatus
	if err := c.call(ctx, http.MethodGet, endpointWaitlist, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RegisterDevice はこのデバイスをプッシュ通知用にバックエンドへ登録する。
// 同じplayer_idの再送は無害（冪等）。
func (c *Client) RegisterDevice(ctx context.Context, userID, deviceID string, class model.DeviceClass, userAgent string) error {
	body := map[string]string{
		"google_id":   userID,
		"player_id":   deviceID,
		"device_type": string(class),
		"user_agent":  userAgent,
	}
	return c.call(ctx, http.MethodPost, endpointSubscribe, body, nil)
}

// UnregisterDevice はデバイスのプッシュ通知登録を解除する。
// 元のエンドポイント仕様に合わせてパラメータはクエリで渡す。
func (c *Client) UnregisterDevice(ctx context.Context, userID, deviceID string) error {
	endpoint := fmt.Sprintf("%s?player_id=%s&google_id=%s",
		endpointUnsubscribe, url.QueryEscape(deviceID), url.QueryEscape(userID))
	return c.call(ctx, http.MethodPost, endpoint, nil, nil)
}

// GetAuryTone はAuryの応答トーン設定を取得する。
func (c *Client) GetAuryTone(ctx context.Context, userID string) (string, error) {
	var resp struct {
		Tone string `json:"tone"`
	}
	endpoint := endpointAuryTone + "?google_id=" + url.QueryEscape(userID)
	if err := c.call(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return "", err
	}
	return resp.Tone, nil
}

// SetAuryTone はAuryの応答トーン設定を保存する。
func (c *Client) SetAuryTone(ctx context.Context, userID, tone string) error {
	body := map[string]string{"google_id": userID, "tone": tone}
	return c.call(ctx, http.MethodPost, endpointAuryTone, body, nil)
}
