// Package session はセッションのライフサイクルを統括する。
// 永続ストアからの復元、認証・目標設定・ログアウトに伴う状態遷移、
// およびプッシュ購読ブートストラップのスケジューリングを担う。
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/aury/internal/metrics"
	"github.com/hitoshi/aury/internal/model"
	"github.com/hitoshi/aury/internal/screen"
	"github.com/hitoshi/aury/internal/store"
)

// Gateway はオーケストレーターが必要とするバックエンド操作。
type Gateway interface {
	SetGoal(ctx context.Context, userID, goal string) error
}

// PushManager はオーケストレーターが起動するプッシュ購読の操作サーフェス。
type PushManager interface {
	Bootstrap(ctx context.Context, userID string)
	RequestPermission(ctx context.Context) bool
	IsSubscribed(ctx context.Context) bool
	Unsubscribe(ctx context.Context, userID string)
}

// Config はオーケストレーターの設定。
type Config struct {
	// PermissionPromptDelay は認証完了から通知許可チェックまでの遅延。
	// 認証直後の画面遷移と許可プロンプトが同時にユーザーの注意を
	// 奪い合わないようにする。
	PermissionPromptDelay time.Duration
	// LogoutRevokesPush はログアウト時にプッシュ購読を解除するか。
	// 既定はfalse（ログアウトと通知オプトアウトは独立した関心事）。
	LogoutRevokesPush bool
}

// Snapshot はセッションと画面状態の読み取り専用スナップショット。
type Snapshot struct {
	Session model.Session
	Screen  screen.State
}

// Orchestrator はセッションと画面状態を所有する。
// 永続化された状態の書き込みは、プッシュブートストラップをスケジュールする
// 前に必ず完了する。ブートストラップ自体は切り離されて実行され、
// 画面遷移はその完了を待たない。
type Orchestrator struct {
	kv      store.KV
	gateway Gateway
	push    PushManager
	logger  *slog.Logger
	metrics metrics.MetricsCollector
	config  Config

	mu      sync.Mutex
	session model.Session
	screen  screen.State

	promptOnce sync.Once // 通知許可チェックはプロセスごとに一度だけ
}

// NewOrchestrator はOrchestratorを生成する。
func NewOrchestrator(kv store.KV, gateway Gateway, push PushManager, logger *slog.Logger, collector metrics.MetricsCollector, config Config) *Orchestrator {
	if config.PermissionPromptDelay <= 0 {
		config.PermissionPromptDelay = time.Second
	}
	return &Orchestrator{
		kv:      kv,
		gateway: gateway,
		push:    push,
		logger:  logger,
		metrics: collector,
		config:  config,
		screen:  screen.StateUnauthenticated,
	}
}

// Restore は永続ストアからセッションを一括で読み出し、初期画面を決定する。
// 識別子が存在する場合はプッシュブートストラップを切り離してスケジュールする。
// ブートストラップは画面解決をブロックしない。
func (o *Orchestrator) Restore(ctx context.Context) (Snapshot, error) {
	userID, _, err := o.kv.Get(ctx, store.KeyUserID)
	if err != nil {
		return Snapshot{}, err
	}
	email, _, err := o.kv.Get(ctx, store.KeyEmail)
	if err != nil {
		return Snapshot{}, err
	}
	goal, _, err := o.kv.Get(ctx, store.KeyGoal)
	if err != nil {
		return Snapshot{}, err
	}
	isNewUser, _, err := o.kv.Get(ctx, store.KeyIsNewUser)
	if err != nil {
		return Snapshot{}, err
	}

	sess := model.Session{
		UserID:    userID,
		Email:     email,
		Goal:      goal,
		IsNewUser: isNewUser == "true",
	}
	initial := screen.Initial(sess.IsAuthenticated(), sess.HasGoal())

	o.mu.Lock()
	o.session = sess
	o.screen = initial
	o.mu.Unlock()
	o.metrics.RecordScreenTransition(string(initial))

	if sess.IsAuthenticated() {
		o.logger.Info("セッションを復元しました",
			slog.String("user_id", sess.UserID),
			slog.String("screen", string(initial)),
		)
		go o.push.Bootstrap(context.Background(), sess.UserID)
	}

	return Snapshot{Session: sess, Screen: initial}, nil
}

// CompleteAuthentication は認証結果を永続化してセッションを確立する。
// 新規ユーザーはストアに古い目標が残っていても目標入力画面へ遷移する
// （目標はクライアント側で作り出さない）。永続化の完了後、プッシュ
// ブートストラップと遅延付きの通知許可チェックをスケジュールする。
func (o *Orchestrator) CompleteAuthentication(ctx context.Context, result model.AuthResult) (Snapshot, error) {
	if err := o.kv.Set(ctx, store.KeyUserID, result.UserID); err != nil {
		return Snapshot{}, err
	}
	if err := o.kv.Set(ctx, store.KeyEmail, result.Email); err != nil {
		return Snapshot{}, err
	}
	flag := "false"
	if result.IsNewUser {
		flag = "true"
	}
	if err := o.kv.Set(ctx, store.KeyIsNewUser, flag); err != nil {
		return Snapshot{}, err
	}

	goal, _, err := o.kv.Get(ctx, store.KeyGoal)
	if err != nil {
		return Snapshot{}, err
	}

	sess := model.Session{
		UserID:    result.UserID,
		Email:     result.Email,
		Goal:      goal,
		IsNewUser: result.IsNewUser,
	}
	next := screen.AfterAuthentication(result.IsNewUser, goal != "")

	o.mu.Lock()
	o.session = sess
	o.screen = next
	o.mu.Unlock()
	o.metrics.RecordScreenTransition(string(next))

	o.logger.Info("認証が完了しました",
		slog.String("user_id", sess.UserID),
		slog.Bool("is_new_user", sess.IsNewUser),
		slog.String("screen", string(next)),
	)

	go o.push.Bootstrap(context.Background(), sess.UserID)
	go o.delayedPermissionCheck()

	return Snapshot{Session: sess, Screen: next}, nil
}

// delayedPermissionCheck は設定された遅延の後、未購読であれば通知許可を
// 一度だけ要求する。
func (o *Orchestrator) delayedPermissionCheck() {
	time.Sleep(o.config.PermissionPromptDelay)
	o.promptOnce.Do(func() {
		ctx := context.Background()
		if o.push.IsSubscribed(ctx) {
			return
		}
		granted := o.push.RequestPermission(ctx)
		o.logger.Info("通知許可を確認しました", slog.Bool("granted", granted))
	})
}

// CompleteGoal は目標テキストを検証・永続化してダッシュボードへ遷移する。
// トリム後に空の場合はValidationErrorを返し、ストアへの書き込みは行わない。
// バックエンドへの保存が失敗した場合もローカルには何も書き込まない。
func (o *Orchestrator) CompleteGoal(ctx context.Context, goalText string) (Snapshot, error) {
	goal := strings.TrimSpace(goalText)
	if goal == "" {
		return Snapshot{}, &model.ValidationError{Field: "goal", Reason: "目標が空です"}
	}

	o.mu.Lock()
	userID := o.session.UserID
	o.mu.Unlock()
	if userID == "" {
		return Snapshot{}, model.NewUnauthenticatedError()
	}

	if err := o.gateway.SetGoal(ctx, userID, goal); err != nil {
		return Snapshot{}, err
	}
	if err := o.kv.Set(ctx, store.KeyGoal, goal); err != nil {
		return Snapshot{}, err
	}

	o.mu.Lock()
	o.session.Goal = goal
	o.screen = screen.AfterGoal()
	snap := Snapshot{Session: o.session, Screen: o.screen}
	o.mu.Unlock()
	o.metrics.RecordScreenTransition(string(snap.Screen))

	o.logger.Info("目標を設定しました", slog.String("user_id", userID))
	return snap, nil
}

// Logout は4つの永続キーを同期的に消去し、セッションを空に戻す。
// LogoutRevokesPushが有効な場合のみ、キー消去の前にプッシュ購読を解除する。
func (o *Orchestrator) Logout(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	userID := o.session.UserID
	o.mu.Unlock()

	if o.config.LogoutRevokesPush && userID != "" {
		o.push.Unsubscribe(ctx, userID)
	}

	if err := o.kv.Clear(ctx, store.SessionKeys...); err != nil {
		return Snapshot{}, err
	}

	o.mu.Lock()
	o.session = model.Session{}
	o.screen = screen.AfterLogout()
	snap := Snapshot{Session: o.session, Screen: o.screen}
	o.mu.Unlock()
	o.metrics.RecordScreenTransition(string(snap.Screen))

	o.logger.Info("ログアウトしました", slog.String("user_id", userID))
	return snap, nil
}

// Navigate は明示的な画面遷移を実行する。許可されない遷移では現在の
// 画面を維持したままエラーを返す。
func (o *Orchestrator) Navigate(to screen.State) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	next, err := screen.Navigate(o.screen, to)
	if err != nil {
		return Snapshot{Session: o.session, Screen: o.screen}, err
	}
	o.screen = next
	o.metrics.RecordScreenTransition(string(next))
	return Snapshot{Session: o.session, Screen: next}, nil
}

// Current は現在のセッションと画面状態のスナップショットを返す。
func (o *Orchestrator) Current() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{Session: o.session, Screen: o.screen}
}
