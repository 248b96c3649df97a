// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ReplySanitizerService はバックエンドが生成したAuryの応答テキストを
// プレゼンテーション層へ渡す前にサニタイズする。応答はサーバーサイドの
// LLMパイプラインを経由するため、マークアップが混入していても
// そのまま表示されないように許可リストベースのポリシーで除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ReplySanitizerService はAury応答テキストのサニタイズ機能のインターフェースを定義する。
// 支出登録応答と支出フィードの両方で使用される。
type ReplySanitizerService interface {
	// Sanitize は応答テキストからすべてのHTMLタグを除去し、
	// プレーンテキストとして安全な文字列を返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// replySanitizer はReplySanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type replySanitizer struct {
	policy *bluemonday.Policy
}

// NewReplySanitizer はReplySanitizerServiceの新しいインスタンスを生成する。
// Auryの応答は整形済みテキストとして表示されるため、タグを一切許可しない
// StrictPolicyを使用する。
func NewReplySanitizer() *replySanitizer {
	return &replySanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は応答テキストをサニタイズしてプレーンテキストを返す。
// bluemondayはタグ除去後に残る文字をエンティティ化するため、
// 表示用テキストとしてアンエスケープして返す。
func (s *replySanitizer) Sanitize(raw string) string {
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
