// Package screen は画面状態マシンを提供する。
// 状態はセッションから導出される純粋な値であり、永続化されない。
// プレゼンテーション層が消費する状態と遷移表のみを持ち、UIそのものは含まない。
package screen

import "github.com/hitoshi/aury/internal/model"

// State はトップレベル画面のモードを表す。
type State string

const (
	// StateUnauthenticated は未認証状態（ログイン画面）。
	StateUnauthenticated State = "unauthenticated"
	// StateAwaitingGoal は目標入力待ち状態。
	StateAwaitingGoal State = "awaiting_goal"
	// StateDashboard はダッシュボード表示状態。
	StateDashboard State = "dashboard"
	// StateSettings は設定画面表示状態。
	StateSettings State = "settings"
)

// Initial は永続ストアの内容からプロセス起動時の初期状態を計算する。
// 中間の「ローディング」状態は存在しない。起動時に一度だけ同期的に解決される。
func Initial(hasIdentity, hasGoal bool) State {
	if !hasIdentity {
		return StateUnauthenticated
	}
	if !hasGoal {
		return StateAwaitingGoal
	}
	return StateDashboard
}

// AfterAuthentication は認証成功後の状態を返す。
// 新規ユーザーフラグは保存済みの目標にかかわらず必ず目標入力を強制する。
func AfterAuthentication(isNewUser, hasStoredGoal bool) State {
	if isNewUser || !hasStoredGoal {
		return StateAwaitingGoal
	}
	return StateDashboard
}

// AfterGoal は目標送信成功後の状態を返す。
func AfterGoal() State {
	return StateDashboard
}

// AfterLogout はログアウト後の状態を返す。どの状態からでも遷移可能。
func AfterLogout() State {
	return StateUnauthenticated
}

// Navigate はユーザー操作による画面間遷移を検証して適用する。
// 許可されるのはDashboard⇄Settingsの双方向のみで、セッションへの副作用はない。
func Navigate(from, to State) (State, error) {
	if from == StateDashboard && to == StateSettings {
		return StateSettings, nil
	}
	if from == StateSettings && to == StateDashboard {
		return StateDashboard, nil
	}
	return from, model.NewInvalidTransitionError(string(from), string(to))
}

// Valid は既知の画面状態かを判定する。
func Valid(s State) bool {
	switch s {
	case StateUnauthenticated, StateAwaitingGoal, StateDashboard, StateSettings:
		return true
	}
	return false
}
