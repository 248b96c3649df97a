// Package handler はローカルAPIのHTTPハンドラーを提供する。
// プレゼンテーション層（ローカルUI）だけが接続する前提の小さなAPIで、
// エラーは統一フォーマット（code, message, category, action）で返す。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/aury/internal/auth"
	"github.com/hitoshi/aury/internal/model"
)

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSONResponse(w, statusCode, map[string]string{
		"code":     apiErr.Code,
		"message":  apiErr.Message,
		"category": apiErr.Category,
		"action":   apiErr.Action,
	})
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// エラー分類の順序: APIError → ValidationError → TransportError → HTTPError。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	var valErr *model.ValidationError
	if errors.As(err, &valErr) {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  valErr.Error(),
			Category: "validation",
			Action:   "入力内容を確認してください。",
		})
		return
	}

	var transportErr *model.TransportError
	if errors.As(err, &transportErr) {
		writeAPIErrorResponse(w, http.StatusBadGateway, model.NewTransportAPIError())
		return
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		// バックエンドのdetailはそのまま表示する
		writeAPIErrorResponse(w, httpErr.Status, &model.APIError{
			Code:     model.ErrCodeBackendRejected,
			Message:  httpErr.Detail,
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	// 分類不能なエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// handleAuthError は認証エンドポイント専用のエラー変換。
// 失敗を分類して対処方法付きのレスポンスを生成する。
func handleAuthError(w http.ResponseWriter, err error) {
	apiErr := auth.APIErrorFor(err)

	status := http.StatusUnauthorized
	switch apiErr.Code {
	case model.ErrCodeTransport:
		status = http.StatusBadGateway
	case model.ErrCodeOriginNotAllowed:
		status = http.StatusForbidden
	}
	writeAPIErrorResponse(w, status, apiErr)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeEmptyGoal, model.ErrCodeEmptyExpense, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeUnauthenticated, model.ErrCodeInvalidToken:
		return http.StatusUnauthorized
	case model.ErrCodeOriginNotAllowed:
		return http.StatusForbidden
	case model.ErrCodeInvalidTransition:
		return http.StatusConflict
	case model.ErrCodeTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
