package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/aury/internal/model"
)

// PushManagerInterface はプッシュハンドラーが必要とするマネージャー操作。
type PushManagerInterface interface {
	Bootstrap(ctx context.Context, userID string)
	RequestPermission(ctx context.Context) bool
	IsSubscribed(ctx context.Context) bool
	Unsubscribe(ctx context.Context, userID string)
	Record() model.SubscriptionRecord
}

// PushHandler はプッシュ通知設定のHTTPハンドラー。
type PushHandler struct {
	manager PushManagerInterface
	session SessionReader
}

// NewPushHandler はPushHandlerを生成する。
func NewPushHandler(manager PushManagerInterface, session SessionReader) *PushHandler {
	return &PushHandler{
		manager: manager,
		session: session,
	}
}

// notificationsResponse は通知設定のレスポンス。
type notificationsResponse struct {
	Subscribed  bool   `json:"subscribed"`
	Initialized bool   `json:"initialized"`
	DeviceClass string `json:"device_class"`
}

// GetNotifications は現在の通知購読状態を返す。
// GET /client/notifications
func (h *PushHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	rec := h.manager.Record()
	writeJSONResponse(w, http.StatusOK, notificationsResponse{
		Subscribed:  h.manager.IsSubscribed(r.Context()),
		Initialized: rec.Initialized,
		DeviceClass: string(rec.DeviceClass),
	})
}

// ToggleNotifications は通知購読の有効・無効を切り替える。
// 有効化は許可要求の後にブートストラップを実行してデバイスIDを
// バックエンドに照合する。無効化は登録解除とプロバイダー側の購読停止。
// POST /client/notifications
func (h *PushHandler) ToggleNotifications(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "リクエストボディが不正です。",
			Category: "validation",
			Action:   "enabledフィールドを指定してください。",
		})
		return
	}

	snap := h.session.Current()
	if !snap.Session.IsAuthenticated() {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}
	userID := snap.Session.UserID

	if req.Enabled {
		granted := h.manager.RequestPermission(r.Context())
		if !granted {
			writeJSONResponse(w, http.StatusOK, map[string]any{
				"subscribed": false,
				"granted":    false,
			})
			return
		}
		h.manager.Bootstrap(r.Context(), userID)
	} else {
		h.manager.Unsubscribe(r.Context(), userID)
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"subscribed": h.manager.IsSubscribed(r.Context()),
		"granted":    true,
	})
}
