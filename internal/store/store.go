// Package store はデバイスローカルの永続キー/バリューストアを提供する。
// アイデンティティと目標の数個のスカラーキーを保持し、プロセス再起動をまたいで生存する。
// キー単位の原子性のみ保証する。複数キーの読み取りは過去の実行が部分的に
// 完了した書き込み（中断されたログアウト等）のスナップショットとして扱うこと。
package store

import "context"

// 永続ストアのキー。フラットなスカラー値のみで、スキーマバージョニングは持たない。
const (
	// KeyUserID は認証済みユーザーの不透明ID。
	KeyUserID = "google_id"
	// KeyEmail はユーザーのメールアドレス。表示名の導出に使用する。
	KeyEmail = "email"
	// KeyGoal は貯金目標の自由テキスト。
	KeyGoal = "user_goal"
	// KeyIsNewUser はログイン時に一度だけ設定される新規ユーザーフラグ。
	KeyIsNewUser = "is_new_user"
	// KeyInstallID はこのデバイスインストールを識別するエージェント固有のID。
	// ログアウトでは消去されない。
	KeyInstallID = "install_id"
	// KeyPlayerID はプロバイダーが発行したデバイスIDのキャッシュ。
	// ログアウトでは消去されず、通知オプトアウト時のみ消去される。
	KeyPlayerID = "player_id"
)

// SessionKeys はログアウト時に消去される4つのキー。
var SessionKeys = []string{KeyUserID, KeyEmail, KeyGoal, KeyIsNewUser}

// KV は永続キー/バリューストアのインターフェース。
type KV interface {
	// Get は指定キーの値を取得する。キーが存在しない場合は ("", false, nil) を返す。
	Get(ctx context.Context, key string) (string, bool, error)
	// Set は指定キーに値を書き込む。既存の値は上書きされる。
	Set(ctx context.Context, key, value string) error
	// Remove は指定キーを削除する。キーが存在しなくてもエラーにならない。
	Remove(ctx context.Context, key string) error
	// Clear は指定された複数キーを削除する。キー単位の原子性のみ保証する。
	Clear(ctx context.Context, keys ...string) error
}
