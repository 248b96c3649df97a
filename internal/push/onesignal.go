package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/hitoshi/aury/internal/store"
)

const (
	// defaultOneSignalEndpoint はOneSignal REST APIのベースURL。
	defaultOneSignalEndpoint = "https://onesignal.com/api/v1"
	// oneSignalDeviceTypeChromeWeb はOneSignalのデバイス種別コード（Chrome Web Push）。
	oneSignalDeviceTypeChromeWeb = 5
	// oneSignalNotificationDisabled は購読無効を表すnotification_types値。
	oneSignalNotificationDisabled = -2
)

// OneSignalProvider はOneSignal REST APIを使うProvider実装。
// 発行されたプレイヤーIDはローカルストアにキャッシュし、再起動をまたいで再利用する。
type OneSignalProvider struct {
	httpClient *http.Client
	logger     *slog.Logger
	kv         store.KV
	endpoint   string // テスト用にエンドポイントを差し替え可能

	mu       sync.Mutex
	appID    string
	loaded   bool
	inited   bool
	deviceID string
	handlers map[int]func(subscribed bool)
	nextID   int
}

// NewOneSignalProvider はOneSignalProviderの新しいインスタンスを生成する。
func NewOneSignalProvider(httpClient *http.Client, logger *slog.Logger, kv store.KV) *OneSignalProvider {
	return &OneSignalProvider{
		httpClient: httpClient,
		logger:     logger,
		kv:         kv,
		endpoint:   defaultOneSignalEndpoint,
		handlers:   make(map[int]func(bool)),
	}
}

// Load はクライアントライブラリのロードに相当する。冪等。
// 既にロード済みの場合は再ロードせず既存ハンドルを再利用する。
func (p *OneSignalProvider) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaded = true
	return nil
}

// Init はアプリケーションIDでプロバイダーを初期化する。冪等。
// 過去の実行で発行されたプレイヤーIDがあればストアから復元する。
func (p *OneSignalProvider) Init(ctx context.Context, cfg ProviderConfig) error {
	p.mu.Lock()
	if p.inited {
		p.mu.Unlock()
		return nil
	}
	if !p.loaded {
		p.mu.Unlock()
		return fmt.Errorf("プロバイダーがロードされていません")
	}
	if cfg.AppID == "" {
		p.mu.Unlock()
		return fmt.Errorf("アプリケーションIDが未設定です")
	}
	p.appID = cfg.AppID
	p.inited = true
	p.mu.Unlock()

	cached, ok, err := p.kv.Get(ctx, store.KeyPlayerID)
	if err != nil {
		p.logger.Warn("プレイヤーIDキャッシュの読み取りに失敗しました", slog.String("error", err.Error()))
		return nil
	}
	if ok && cached != "" {
		p.mu.Lock()
		p.deviceID = cached
		p.mu.Unlock()
	}
	return nil
}

// DeviceID は現在割り当てられているプレイヤーIDを返す。未発行の場合は空文字。
func (p *OneSignalProvider) DeviceID(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.inited {
		return "", fmt.Errorf("プロバイダーが初期化されていません")
	}
	return p.deviceID, nil
}

// OnSubscriptionChange は購読状態変化のリスナーを登録し、解除関数を返す。
func (p *OneSignalProvider) OnSubscriptionChange(handler func(subscribed bool)) (cancel func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = handler
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}
}

// notify は登録済みリスナーへ購読状態の変化を通知する。
func (p *OneSignalProvider) notify(subscribed bool) {
	p.mu.Lock()
	handlers := make([]func(bool), 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(subscribed)
	}
}

// RequestPermission は許可プロンプトに相当する登録を行い、同意結果を返す。
// プレイヤーIDが未発行の場合はOneSignalにデバイスを作成し、発行されたIDを
// キャッシュした上で購読イベントを発火する。既に発行済みの場合は再有効化する。
func (p *OneSignalProvider) RequestPermission(ctx context.Context) (bool, error) {
	p.mu.Lock()
	if !p.inited {
		p.mu.Unlock()
		return false, fmt.Errorf("プロバイダーが初期化されていません")
	}
	appID := p.appID
	id := p.deviceID
	p.mu.Unlock()

	if id != "" {
		if err := p.setNotificationTypes(ctx, id, 1); err != nil {
			return false, err
		}
		p.notify(true)
		return true, nil
	}

	newID, err := p.createPlayer(ctx, appID)
	if err != nil {
		return false, err
	}

	p.mu.Lock()
	p.deviceID = newID
	p.mu.Unlock()

	if err := p.kv.Set(ctx, store.KeyPlayerID, newID); err != nil {
		p.logger.Warn("プレイヤーIDのキャッシュ保存に失敗しました", slog.String("error", err.Error()))
	}

	p.notify(true)
	return true, nil
}

// IsEnabled は現在プッシュが有効かをOneSignalに問い合わせる。
func (p *OneSignalProvider) IsEnabled(ctx context.Context) (bool, error) {
	p.mu.Lock()
	id := p.deviceID
	appID := p.appID
	inited := p.inited
	p.mu.Unlock()

	if !inited || id == "" {
		return false, nil
	}

	url := fmt.Sprintf("%s/players/%s?app_id=%s", p.endpoint, id, appID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("OneSignalがステータス %d を返しました", resp.StatusCode)
	}

	var player struct {
		NotificationTypes int `json:"notification_types"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&player); err != nil {
		return false, fmt.Errorf("プレイヤー情報のパースに失敗しました: %w", err)
	}
	return player.NotificationTypes > 0, nil
}

// SetEnabled はプロバイダー側の購読状態を設定する。
// 無効化してもキャッシュ済みプレイヤーIDは保持し、再有効化時に再利用する。
func (p *OneSignalProvider) SetEnabled(ctx context.Context, enabled bool) error {
	p.mu.Lock()
	id := p.deviceID
	p.mu.Unlock()
	if id == "" {
		return nil
	}

	types := oneSignalNotificationDisabled
	if enabled {
		types = 1
	}
	if err := p.setNotificationTypes(ctx, id, types); err != nil {
		return err
	}
	if !enabled {
		p.notify(false)
	}
	return nil
}

// createPlayer はOneSignalに新しいデバイスレコードを作成し、発行されたIDを返す。
func (p *OneSignalProvider) createPlayer(ctx context.Context, appID string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"app_id":             appID,
		"device_type":        oneSignalDeviceTypeChromeWeb,
		"notification_types": 1,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/players", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("OneSignalがステータス %d を返しました: %s", resp.StatusCode, respBody)
	}

	var result struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("デバイス作成レスポンスのパースに失敗しました: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("OneSignalがプレイヤーIDを返しませんでした")
	}
	return result.ID, nil
}

// setNotificationTypes は指定プレイヤーのnotification_typesを更新する。
func (p *OneSignalProvider) setNotificationTypes(ctx context.Context, id string, types int) error {
	p.mu.Lock()
	appID := p.appID
	p.mu.Unlock()

	body, err := json.Marshal(map[string]any{
		"app_id":             appID,
		"notification_types": types,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/players/%s", p.endpoint, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("OneSignalがステータス %d を返しました", resp.StatusCode)
	}
	return nil
}
