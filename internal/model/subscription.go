// Package model はドメインモデルを定義する。
package model

// DeviceClass はプッシュ通知デバイスの種別を表す。
type DeviceClass string

const (
	// DeviceClassIOS はiOSデバイス。
	DeviceClassIOS DeviceClass = "ios"
	// DeviceClassAndroid はAndroidデバイス。
	DeviceClassAndroid DeviceClass = "android"
	// DeviceClassWeb はWeb（デスクトップ含む）デバイス。どちらにも該当しない場合のデフォルト。
	DeviceClassWeb DeviceClass = "web"
)

// SubscriptionRecord はこのデバイスとメッセージングプロバイダー登録の対応関係を表す。
// プロセス起動ごとにメモリ上に作成される。
type SubscriptionRecord struct {
	ProviderDeviceID string      // プロバイダーが発行する不透明ID。非同期に生成されるまで空
	DeviceClass      DeviceClass // 起動時に一度だけ解決される
	Initialized      bool        // このプロセスでブートストラップ試行済みか
}
