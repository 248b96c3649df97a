// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, network, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeTransport         = "TRANSPORT_ERROR"
	ErrCodeBackendRejected   = "BACKEND_REJECTED"
	ErrCodeEmptyExpense      = "EMPTY_EXPENSE"
	ErrCodeEmptyGoal         = "EMPTY_GOAL"
	ErrCodeUnauthenticated   = "UNAUTHENTICATED"
	ErrCodeOriginNotAllowed  = "ORIGIN_NOT_ALLOWED"
	ErrCodeInvalidToken      = "INVALID_TOKEN"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
)

// TransportError はネットワーク到達不能・タイムアウトを表す。
// ゲートウェイは自動リトライしない。再試行の判断は呼び出し元が行う。
type TransportError struct {
	Cause error
}

// Error はerrorインターフェースを実装する。
func (e *TransportError) Error() string {
	return fmt.Sprintf("バックエンドに接続できませんでした: %v", e.Cause)
}

// Unwrap は元のエラーを返す。
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// HTTPError はバックエンドが非2xxステータスを返したことを表す。
// Detailはエラーペイロードのdetailフィールド、パース不能時はステータスコードから合成される。
// Codeはバックエンドが構造化エラーコードを返した場合のみ設定される。
type HTTPError struct {
	Status int
	Detail string
	Code   string
}

// Error はerrorインターフェースを実装する。
func (e *HTTPError) Error() string {
	return fmt.Sprintf("バックエンドがステータス %d を返しました: %s", e.Status, e.Detail)
}

// ValidationError は入力検証エラーを表す。
// ネットワーク呼び出しの前に検出され、バックエンドには送信されない。
type ValidationError struct {
	Field  string
	Reason string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return fmt.Sprintf("入力が不正です (%s): %s", e.Field, e.Reason)
}

// SubscriptionError はプッシュ登録パイプラインの失敗を表す。
// 常に内部でログに記録され、ユーザーには表面化しない。
type SubscriptionError struct {
	Op    string // 失敗した操作: load, init, register, unregister
	Cause error
}

// Error はerrorインターフェースを実装する。
func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("プッシュ登録に失敗しました (%s): %v", e.Op, e.Cause)
}

// Unwrap は元のエラーを返す。
func (e *SubscriptionError) Unwrap() error {
	return e.Cause
}

// NewEmptyGoalError は空の目標テキストエラーを生成する。
func NewEmptyGoalError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyGoal,
		Message:  "目標が入力されていません。",
		Category: "validation",
		Action:   "貯金の目標を入力してください。",
	}
}

// NewEmptyExpenseError は空の支出テキストエラーを生成する。
func NewEmptyExpenseError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyExpense,
		Message:  "支出が入力されていません。",
		Category: "validation",
		Action:   "支出の内容を入力してください（例: Cena 20€）。",
	}
}

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "ログインしていません。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewTransportAPIError はネットワークエラーの統一レスポンスを生成する。
func NewTransportAPIError() *APIError {
	return &APIError{
		Code:     ErrCodeTransport,
		Message:  "バックエンドに接続できませんでした。",
		Category: "network",
		Action:   "ネットワーク接続を確認して、もう一度お試しください。",
	}
}

// NewInvalidTransitionError は不正な画面遷移エラーを生成する。
func NewInvalidTransitionError(from, to string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTransition,
		Message:  fmt.Sprintf("画面 %s から %s へは遷移できません。", from, to),
		Category: "validation",
		Action:   "現在の画面から可能な操作を実行してください。",
	}
}
