package push

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/aury/internal/metrics"
	"github.com/hitoshi/aury/internal/model"
)

// reportTimeout は遅延到着したデバイスIDをバックエンドへ報告する際のタイムアウト。
// ブートストラップ元のコンテキストは既に終了している可能性があるため独立して設定する。
const reportTimeout = 15 * time.Second

// Gateway はプッシュマネージャーが必要とするバックエンド操作。
type Gateway interface {
	RegisterDevice(ctx context.Context, userID, deviceID string, class model.DeviceClass, userAgent string) error
	UnregisterDevice(ctx context.Context, userID, deviceID string) error
}

// ManagerConfig はプッシュマネージャーの設定。
type ManagerConfig struct {
	AppID       string            // プロバイダーのアプリケーションID。空の場合プッシュ機能は無効
	DeviceClass model.DeviceClass // 起動時に一度だけ解決された値
	UserAgent   string            // バックエンドへ報告するユーザーエージェント
}

// Manager はプッシュ通知登録のライフサイクルを所有する。
// コンストラクタ注入された依存（ゲートウェイ、プロバイダーサーフェス）を持つ
// 明示的なサービスインスタンスであり、モジュールレベルのグローバルではない。
// Goのプリエンプティブなランタイムで複数のゴルーチンから呼ばれるため、
// 内部状態はミューテックスで保護する。
type Manager struct {
	provider Provider
	gateway  Gateway
	ready    ReadyWaiter // nilの場合は待機せず続行する
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
	config   ManagerConfig

	mu             sync.Mutex
	sdkReady       bool   // プロバイダーのロード+初期化が完了したか
	deviceID       string // プロバイダーから読み取った最新のデバイスID
	reportedID     string // バックエンドへ報告済みのデバイスID（値ごとに最大1回）
	bootstrapped   bool   // このプロセスでブートストラップ完了済みか
	inflight       bool   // ブートストラップ実行中か（再入抑止）
	cancelListener func()
}

// NewManager はManagerを生成する。readyはnilでもよい。
func NewManager(provider Provider, gateway Gateway, ready ReadyWaiter, logger *slog.Logger, collector metrics.MetricsCollector, config ManagerConfig) *Manager {
	return &Manager{
		provider: provider,
		gateway:  gateway,
		ready:    ready,
		logger:   logger,
		metrics:  collector,
		config:   config,
	}
}

// Bootstrap はプロバイダーSDKの一度きりの初期化とデバイスIDの
// バックエンド照合を行う。プロセスごとに一度だけ実行され、同時呼び出しは
// 最初の1回に畳み込まれる。失敗はすべて内部でログに記録され、呼び出し元には
// 伝搬しない。プッシュはアプリ利用をブロックしない拡張機能である。
func (m *Manager) Bootstrap(ctx context.Context, userID string) {
	m.mu.Lock()
	if m.bootstrapped || m.inflight {
		m.mu.Unlock()
		return
	}
	m.inflight = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inflight = false
		m.mu.Unlock()
	}()

	if m.config.AppID == "" {
		m.logger.Warn("プロバイダーのアプリケーションIDが未設定のためプッシュ登録をスキップします")
		m.metrics.RecordBootstrap("skipped")
		return
	}

	if err := m.ensureSDK(ctx); err != nil {
		m.logger.Error("プッシュSDKの初期化に失敗しました", slog.String("error", err.Error()))
		m.metrics.RecordBootstrap("error")
		return
	}

	// service worker相当の準備完了を待つ。存在しない・失敗する場合も続行する。
	if m.ready != nil {
		if err := m.ready.WaitReady(ctx); err != nil {
			m.logger.Warn("プラットフォームの準備完了シグナルを取得できませんでした。続行します",
				slog.String("error", err.Error()),
			)
		}
	}

	id, err := m.provider.DeviceID(ctx)
	if err != nil {
		m.logger.Error("デバイスIDの読み取りに失敗しました", slog.String("error", err.Error()))
		m.metrics.RecordBootstrap("error")
		return
	}

	if id != "" {
		// 同期パス: IDが既に利用可能ならその場で報告する
		m.mu.Lock()
		m.deviceID = id
		m.mu.Unlock()
		m.report(ctx, userID, id)
	} else {
		// 非同期パス: IDが未発行なら一回限りのリスナーを登録し、
		// 肯定的な購読イベントの発火時に読み直して報告する。
		// リスナーはBootstrapが名目上「完了」した後に発火してもよい。
		var once sync.Once
		cancel := m.provider.OnSubscriptionChange(func(subscribed bool) {
			if !subscribed {
				return
			}
			once.Do(func() {
				m.onLateDeviceID(userID)
			})
		})
		m.mu.Lock()
		m.cancelListener = cancel
		m.mu.Unlock()
	}

	// 同期部分の完了をもってブートストラップ済みとする。
	// IDの到着を待たないことで、到着前ウィンドウ中の再入呼び出しを抑止する。
	m.mu.Lock()
	m.bootstrapped = true
	m.mu.Unlock()
	m.metrics.RecordBootstrap("success")
}

// onLateDeviceID は遅延到着したデバイスIDを読み直してバックエンドへ報告する。
func (m *Manager) onLateDeviceID(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	id, err := m.provider.DeviceID(ctx)
	if err != nil || id == "" {
		m.logger.Error("購読イベント後のデバイスID読み取りに失敗しました",
			slog.Any("error", err),
		)
		return
	}

	m.mu.Lock()
	m.deviceID = id
	cancelListener := m.cancelListener
	m.cancelListener = nil
	m.mu.Unlock()

	m.report(ctx, userID, id)

	if cancelListener != nil {
		cancelListener()
	}
}

// report はデバイスIDをバックエンドへ報告する。同じ値は最大1回しか送信しない。
// 失敗時は再送可能な状態に戻し、エラーはログにのみ記録する。
func (m *Manager) report(ctx context.Context, userID, id string) {
	m.mu.Lock()
	if m.reportedID == id {
		m.mu.Unlock()
		return
	}
	m.reportedID = id
	m.mu.Unlock()

	if err := m.gateway.RegisterDevice(ctx, userID, id, m.config.DeviceClass, m.config.UserAgent); err != nil {
		subErr := &model.SubscriptionError{Op: "register", Cause: err}
		m.logger.Error("デバイス登録の報告に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", subErr.Error()),
		)
		m.mu.Lock()
		if m.reportedID == id {
			m.reportedID = ""
		}
		m.mu.Unlock()
		return
	}

	m.metrics.RecordDeviceRegistered()
	m.logger.Info("デバイスをプッシュ通知に登録しました",
		slog.String("user_id", userID),
		slog.String("device_class", string(m.config.DeviceClass)),
	)
}

// ensureSDK はプロバイダーのロードと初期化を一度だけ行う。
func (m *Manager) ensureSDK(ctx context.Context) error {
	m.mu.Lock()
	if m.sdkReady {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	if err := m.provider.Load(ctx); err != nil {
		return &model.SubscriptionError{Op: "load", Cause: err}
	}
	if err := m.provider.Init(ctx, ProviderConfig{AppID: m.config.AppID}); err != nil {
		return &model.SubscriptionError{Op: "init", Cause: err}
	}

	m.mu.Lock()
	m.sdkReady = true
	m.mu.Unlock()
	return nil
}

// RequestPermission は通知許可プロンプトを発行し、同意結果を返す。
// SDKが未ロードの場合は最小限のロード+初期化を行う。Bootstrapの完了には
// 依存しない（ブートストラップ前でも許可を要求できる）。失敗時はfalseを返す。
func (m *Manager) RequestPermission(ctx context.Context) bool {
	if m.config.AppID == "" {
		m.logger.Warn("プロバイダーのアプリケーションIDが未設定のため許可要求をスキップします")
		return false
	}

	if err := m.ensureSDK(ctx); err != nil {
		m.logger.Error("許可要求前のSDK初期化に失敗しました", slog.String("error", err.Error()))
		return false
	}

	granted, err := m.provider.RequestPermission(ctx)
	if err != nil {
		m.logger.Error("通知許可の要求に失敗しました", slog.String("error", err.Error()))
		return false
	}
	return granted
}

// IsSubscribed は現在プッシュが有効かを返す。SDK未ロードや失敗時はfalseを返し、
// 決してエラーを投げない。
func (m *Manager) IsSubscribed(ctx context.Context) bool {
	m.mu.Lock()
	ready := m.sdkReady
	m.mu.Unlock()
	if !ready {
		return false
	}

	enabled, err := m.provider.IsEnabled(ctx)
	if err != nil {
		m.logger.Warn("購読状態の確認に失敗しました", slog.String("error", err.Error()))
		return false
	}
	return enabled
}

// Unsubscribe はバックエンドの登録解除とプロバイダー側の購読無効化を行う。
// デバイスIDの記録がない場合は何もしない。エラーはログにのみ記録する。
func (m *Manager) Unsubscribe(ctx context.Context, userID string) {
	m.mu.Lock()
	id := m.deviceID
	m.mu.Unlock()
	if id == "" {
		return
	}

	if err := m.gateway.UnregisterDevice(ctx, userID, id); err != nil {
		subErr := &model.SubscriptionError{Op: "unregister", Cause: err}
		m.logger.Error("バックエンドの登録解除に失敗しました", slog.String("error", subErr.Error()))
	}

	if err := m.provider.SetEnabled(ctx, false); err != nil {
		m.logger.Error("プロバイダー側の購読無効化に失敗しました", slog.String("error", err.Error()))
	}

	m.mu.Lock()
	m.deviceID = ""
	m.reportedID = ""
	m.mu.Unlock()

	m.logger.Info("プッシュ通知を無効化しました", slog.String("user_id", userID))
}

// Record は現在の購読記録のスナップショットを返す。
func (m *Manager) Record() model.SubscriptionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.SubscriptionRecord{
		ProviderDeviceID: m.deviceID,
		DeviceClass:      m.config.DeviceClass,
		Initialized:      m.bootstrapped,
	}
}
