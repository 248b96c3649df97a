// Package auth は認証失敗の分類とユーザー向けガイダンスの生成を提供する。
package auth

import (
	"errors"
	"strings"

	"github.com/hitoshi/aury/internal/model"
)

// Guidance は認証失敗時にユーザーへ示す対処方法の分類。
type Guidance string

const (
	// GuidanceOriginNotAllowed はオリジンがGoogle Cloud Consoleで未承認の場合。
	GuidanceOriginNotAllowed Guidance = "origin_not_allowed"
	// GuidanceInvalidToken はGoogleトークンが無効または期限切れの場合。
	GuidanceInvalidToken Guidance = "invalid_token"
	// GuidanceTransport はネットワーク到達不能の場合。
	GuidanceTransport Guidance = "transport"
	// GuidanceUnknown は分類できない失敗。
	GuidanceUnknown Guidance = "unknown"
)

// Classify は認証エンドポイントのエラーをガイダンスに分類する。
// バックエンドが構造化エラーコードを返す場合はそれを優先し、
// メッセージ文字列の照合は旧バックエンド互換のフォールバックとしてのみ使用する。
func Classify(err error) Guidance {
	var transportErr *model.TransportError
	if errors.As(err, &transportErr) {
		return GuidanceTransport
	}

	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		return GuidanceUnknown
	}

	// 構造化エラーコードを最優先
	switch httpErr.Code {
	case model.ErrCodeOriginNotAllowed:
		return GuidanceOriginNotAllowed
	case model.ErrCodeInvalidToken:
		return GuidanceInvalidToken
	}
	if httpErr.Code != "" {
		return GuidanceUnknown
	}

	// フォールバック: ステータスとメッセージ内容の照合（既知の脆い挙動）
	detail := strings.ToLower(httpErr.Detail)
	switch {
	case httpErr.Status == 403 || strings.Contains(detail, "origin"):
		return GuidanceOriginNotAllowed
	case httpErr.Status == 401 || strings.Contains(detail, "token"):
		return GuidanceInvalidToken
	}
	return GuidanceUnknown
}

// APIErrorFor は認証エラーを統一エラーフォーマットへ変換する。
func APIErrorFor(err error) *model.APIError {
	switch Classify(err) {
	case GuidanceOriginNotAllowed:
		return &model.APIError{
			Code:     model.ErrCodeOriginNotAllowed,
			Message:  "このオリジンはGoogle認証で承認されていません。",
			Category: "auth",
			Action:   "Google Cloud ConsoleでこのアプリのオリジンをOAuth承認済みオリジンに追加してください。",
		}
	case GuidanceInvalidToken:
		return &model.APIError{
			Code:     model.ErrCodeInvalidToken,
			Message:  "Googleトークンが無効または期限切れです。",
			Category: "auth",
			Action:   "もう一度ログインし直してください。",
		}
	case GuidanceTransport:
		return model.NewTransportAPIError()
	default:
		var httpErr *model.HTTPError
		if errors.As(err, &httpErr) && httpErr.Detail != "" {
			return &model.APIError{
				Code:     model.ErrCodeBackendRejected,
				Message:  httpErr.Detail,
				Category: "auth",
				Action:   "しばらく待ってから再度お試しください。",
			}
		}
		return &model.APIError{
			Code:     model.ErrCodeBackendRejected,
			Message:  "ログインに失敗しました。",
			Category: "auth",
			Action:   "しばらく待ってから再度お試しください。",
		}
	}
}
