// Package push はプッシュ通知登録のライフサイクルを管理する。
// メッセージングプロバイダーのクライアントと、その登録のバックエンド側ミラーを扱う。
package push

import (
	"context"
	"strings"

	"github.com/hitoshi/aury/internal/model"
)

// ProviderConfig はプロバイダー初期化の設定。
type ProviderConfig struct {
	AppID string
}

// Provider はメッセージングプロバイダーのケイパビリティサーフェス。
// このサーフェスを提供するプロバイダーは差し替え可能。
type Provider interface {
	// Load はプロバイダーのクライアントライブラリをロードする。冪等。
	Load(ctx context.Context) error
	// Init はアプリケーション設定でプロバイダーを初期化する。冪等。
	Init(ctx context.Context, cfg ProviderConfig) error
	// DeviceID は現在割り当てられているデバイスIDを返す。未発行の場合は空文字。
	DeviceID(ctx context.Context) (string, error)
	// OnSubscriptionChange は購読状態変化のリスナーを登録し、解除関数を返す。
	OnSubscriptionChange(handler func(subscribed bool)) (cancel func())
	// RequestPermission は通知許可プロンプトを発行し、同意結果を返す。
	RequestPermission(ctx context.Context) (bool, error)
	// IsEnabled は現在プッシュが有効かを返す。
	IsEnabled(ctx context.Context) (bool, error)
	// SetEnabled はプロバイダー側の購読状態を設定する。
	SetEnabled(ctx context.Context, enabled bool) error
}

// ReadyWaiter はプラットフォームのservice worker相当の準備完了シグナル。
// 存在しない環境では完全に省略できる（プッシュ機能は穏やかに劣化する）。
type ReadyWaiter interface {
	WaitReady(ctx context.Context) error
}

// ClassifyDevice はプラットフォーム識別文字列からデバイス種別を解決する。
// 起動時に一度だけ呼び出し、以後は解決済みの値を注入して使うこと。
func ClassifyDevice(platform string) model.DeviceClass {
	p := strings.ToLower(platform)
	switch {
	case strings.Contains(p, "iphone"), strings.Contains(p, "ipad"), strings.Contains(p, "ipod"):
		return model.DeviceClassIOS
	case strings.Contains(p, "android"):
		return model.DeviceClassAndroid
	default:
		return model.DeviceClassWeb
	}
}
