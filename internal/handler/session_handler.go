package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hitoshi/aury/internal/model"
	"github.com/hitoshi/aury/internal/screen"
	"github.com/hitoshi/aury/internal/session"
)

// Authenticator はIDトークンの交換に必要なインターフェース。
type Authenticator interface {
	AuthGoogle(ctx context.Context, token string) (*model.AuthResult, error)
}

// SessionOrchestratorInterface はセッションハンドラーが必要とする
// オーケストレーター操作。
type SessionOrchestratorInterface interface {
	Restore(ctx context.Context) (session.Snapshot, error)
	CompleteAuthentication(ctx context.Context, result model.AuthResult) (session.Snapshot, error)
	CompleteGoal(ctx context.Context, goalText string) (session.Snapshot, error)
	Logout(ctx context.Context) (session.Snapshot, error)
	Navigate(to screen.State) (session.Snapshot, error)
	Current() session.Snapshot
}

// SessionHandler はセッションライフサイクルのHTTPハンドラー。
type SessionHandler struct {
	authenticator Authenticator
	orchestrator  SessionOrchestratorInterface
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(authenticator Authenticator, orchestrator SessionOrchestratorInterface) *SessionHandler {
	return &SessionHandler{
		authenticator: authenticator,
		orchestrator:  orchestrator,
	}
}

// sessionResponse はセッションスナップショットのレスポンス。
type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	Email         string `json:"email,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	Goal          string `json:"goal,omitempty"`
	IsNewUser     bool   `json:"is_new_user,omitempty"`
	Screen        string `json:"screen"`
}

func toSessionResponse(snap session.Snapshot) sessionResponse {
	return sessionResponse{
		Authenticated: snap.Session.IsAuthenticated(),
		UserID:        snap.Session.UserID,
		Email:         snap.Session.Email,
		DisplayName:   snap.Session.DisplayName(),
		Goal:          snap.Session.Goal,
		IsNewUser:     snap.Session.IsNewUser,
		Screen:        string(snap.Screen),
	}
}

// Authenticate はGoogle IDトークンを検証してセッションを確立する。
// POST /client/auth/google
func (h *SessionHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "トークンが指定されていません。",
			Category: "validation",
			Action:   "もう一度ログインしてください。",
		})
		return
	}

	result, err := h.authenticator.AuthGoogle(r.Context(), req.Token)
	if err != nil {
		handleAuthError(w, err)
		return
	}

	snap, err := h.orchestrator.CompleteAuthentication(r.Context(), *result)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toSessionResponse(snap))
}

// GetSession は現在のセッションスナップショットを返す。
// GET /client/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, toSessionResponse(h.orchestrator.Current()))
}

// Restore は永続ストアからセッションを再読込する。
// POST /client/session/restore
func (h *SessionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	snap, err := h.orchestrator.Restore(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toSessionResponse(snap))
}

// SetGoal は貯金目標を設定してダッシュボードへ遷移する。
// POST /client/goal
func (h *SessionHandler) SetGoal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Goal string `json:"goal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewEmptyGoalError())
		return
	}

	snap, err := h.orchestrator.CompleteGoal(r.Context(), req.Goal)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toSessionResponse(snap))
}

// Logout はセッションを破棄する。
// POST /client/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	snap, err := h.orchestrator.Logout(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toSessionResponse(snap))
}

// Navigate は明示的な画面遷移を実行する。
// POST /client/screen
func (h *SessionHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !screen.Valid(screen.State(req.To)) {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "遷移先の画面が不正です。",
			Category: "validation",
			Action:   "有効な画面名を指定してください。",
		})
		return
	}

	snap, err := h.orchestrator.Navigate(screen.State(req.To))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toSessionResponse(snap))
}
