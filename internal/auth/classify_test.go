package auth

import (
	"errors"
	"testing"

	"github.com/hitoshi/aury/internal/model"
)

// TestClassify_StructuredCode は構造化エラーコードが文字列照合より優先されることを検証する。
func TestClassify_StructuredCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Guidance
	}{
		{
			"ORIGIN_NOT_ALLOWEDコード",
			&model.HTTPError{Status: 400, Detail: "whatever", Code: model.ErrCodeOriginNotAllowed},
			GuidanceOriginNotAllowed,
		},
		{
			"INVALID_TOKENコード",
			&model.HTTPError{Status: 400, Detail: "whatever", Code: model.ErrCodeInvalidToken},
			GuidanceInvalidToken,
		},
		{
			// コードがあるのに未知なら文字列照合にフォールバックしない
			"未知の構造化コード",
			&model.HTTPError{Status: 403, Detail: "origin not allowed", Code: "SOMETHING_ELSE"},
			GuidanceUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestClassify_MessageFallback は旧バックエンド互換の文字列照合を検証する。
func TestClassify_MessageFallback(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Guidance
	}{
		{"403ステータス", &model.HTTPError{Status: 403, Detail: "forbidden"}, GuidanceOriginNotAllowed},
		{"originを含むメッセージ", &model.HTTPError{Status: 400, Detail: "unauthorized origin http://localhost:3000"}, GuidanceOriginNotAllowed},
		{"401ステータス", &model.HTTPError{Status: 401, Detail: "unauthorized"}, GuidanceInvalidToken},
		{"Tokenを含むメッセージ", &model.HTTPError{Status: 400, Detail: "Token de Google inválido"}, GuidanceInvalidToken},
		{"分類不能", &model.HTTPError{Status: 500, Detail: "db down"}, GuidanceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestClassify_TransportError はネットワークエラーの分類を検証する。
func TestClassify_TransportError(t *testing.T) {
	err := &model.TransportError{Cause: errors.New("dial tcp: connection refused")}
	if got := Classify(err); got != GuidanceTransport {
		t.Errorf("Classify() = %q, want %q", got, GuidanceTransport)
	}
}

// TestAPIErrorFor_Unknown は分類不能時にバックエンドの詳細がそのまま表示されることを検証する。
func TestAPIErrorFor_Unknown(t *testing.T) {
	apiErr := APIErrorFor(&model.HTTPError{Status: 500, Detail: "db down"})

	if apiErr.Code != model.ErrCodeBackendRejected {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeBackendRejected)
	}
	if apiErr.Message != "db down" {
		t.Errorf("Message = %q, want %q", apiErr.Message, "db down")
	}
}

// TestAPIErrorFor_InvalidToken はトークンエラーのガイダンス変換を検証する。
func TestAPIErrorFor_InvalidToken(t *testing.T) {
	apiErr := APIErrorFor(&model.HTTPError{Status: 401, Detail: "unauthorized"})

	if apiErr.Code != model.ErrCodeInvalidToken {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidToken)
	}
	if apiErr.Category != "auth" {
		t.Errorf("Category = %q, want %q", apiErr.Category, "auth")
	}
}
