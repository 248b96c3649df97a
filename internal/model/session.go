// Package model はドメインモデルを定義する。
package model

import "strings"

// Session は現在のデバイスにおけるアイデンティティとオンボーディング状態を表す。
// 認証成功時に作成・上書きされ、ログアウト時に全消去される。
// 所有者はセッションオーケストレーターのみ。
type Session struct {
	UserID    string // 認証後は必須の不透明な安定識別子
	Email     string // 表示名の導出にのみ使用する
	Goal      string // 貯金目標の自由テキスト。未設定の場合は空文字
	IsNewUser bool   // ログイン時に一度だけ設定され、再導出されない
}

// IsAuthenticated はアイデンティティが存在するかを返す。
func (s *Session) IsAuthenticated() bool {
	return s.UserID != ""
}

// HasGoal は目標が設定済みかを返す。
func (s *Session) HasGoal() bool {
	return s.Goal != ""
}

// DisplayName はメールアドレスのローカル部（@より前）から表示名を導出する。
// メールアドレスが空の場合は空文字を返す。
func (s *Session) DisplayName() string {
	if s.Email == "" {
		return ""
	}
	at := strings.Index(s.Email, "@")
	if at < 0 {
		return s.Email
	}
	return s.Email[:at]
}

// AuthResult はバックエンドの認証エンドポイントが返すユーザー情報を表す。
type AuthResult struct {
	UserID    string
	Email     string
	IsNewUser bool
}
