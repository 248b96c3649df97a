package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hitoshi/aury/internal/gateway"
	"github.com/hitoshi/aury/internal/session"
)

// TrackerServiceInterface はトラッカーハンドラーが必要とするサービスインターフェース。
type TrackerServiceInterface interface {
	LogExpense(ctx context.Context, userID, rawText string) (*gateway.ExpenseResult, error)
	Streak(ctx context.Context, userID string) (*gateway.Streak, error)
	RecentExpenses(ctx context.Context, userID string, limit int) (*gateway.ExpenseFeed, error)
	StreakFreeze(ctx context.Context, userID string) (*gateway.StreakFreezeResult, error)
	Tone(ctx context.Context, userID string) (string, error)
	SetTone(ctx context.Context, userID, tone string) error
	BetaStatus(ctx context.Context) (*gateway.BetaStatus, error)
	WaitlistStatus(ctx context.Context) (*gateway.WaitlistStatus, error)
}

// SessionReader は現在のセッションを参照するためのインターフェース。
type SessionReader interface {
	Current() session.Snapshot
}

// TrackerHandler は支出・連続記録・トーン設定のHTTPハンドラー。
// ユーザーIDはリクエストではなく現在のセッションから解決する。
type TrackerHandler struct {
	service TrackerServiceInterface
	session SessionReader
}

// NewTrackerHandler はTrackerHandlerを生成する。
func NewTrackerHandler(service TrackerServiceInterface, session SessionReader) *TrackerHandler {
	return &TrackerHandler{
		service: service,
		session: session,
	}
}

func (h *TrackerHandler) userID() string {
	return h.session.Current().Session.UserID
}

// LogExpense は自由テキストの支出を1件登録する。
// POST /client/expense
func (h *TrackerHandler) LogExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RawText string `json:"raw_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.RawText = ""
	}

	result, err := h.service.LogExpense(r.Context(), h.userID(), req.RawText)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

// GetStreak は現在の連続記録を返す。
// GET /client/streak
func (h *TrackerHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	streak, err := h.service.Streak(r.Context(), h.userID())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, streak)
}

// RecentExpenses は最近の支出フィードを返す。
// GET /client/expenses/recent?limit=N
func (h *TrackerHandler) RecentExpenses(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	feed, err := h.service.RecentExpenses(r.Context(), h.userID(), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, feed)
}

// StreakFreeze は週次プロテクターを使用する。
// POST /client/streak/freeze
func (h *TrackerHandler) StreakFreeze(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.StreakFreeze(r.Context(), h.userID())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

// GetTone はAuryの応答トーン設定を返す。
// GET /client/tone
func (h *TrackerHandler) GetTone(w http.ResponseWriter, r *http.Request) {
	tone, err := h.service.Tone(r.Context(), h.userID())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"tone": tone})
}

// SetTone はAuryの応答トーン設定を保存する。
// POST /client/tone
func (h *TrackerHandler) SetTone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tone string `json:"tone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.Tone = ""
	}

	if err := h.service.SetTone(r.Context(), h.userID(), req.Tone); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"tone": req.Tone})
}

// BetaStatus はベータ登録の残りスロット数を返す。認証不要。
// GET /client/beta-status
func (h *TrackerHandler) BetaStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.BetaStatus(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, status)
}

// WaitlistStatus は待機リストの状態を返す。認証不要。
// GET /client/waitlist-status
func (h *TrackerHandler) WaitlistStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.WaitlistStatus(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, status)
}
