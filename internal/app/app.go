// Package app はエージェントの初期化と起動を担当する。
// 全依存関係のワイヤリングはここで一箇所にまとめる。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/aury/internal/config"
	"github.com/hitoshi/aury/internal/gateway"
	"github.com/hitoshi/aury/internal/handler"
	"github.com/hitoshi/aury/internal/logger"
	"github.com/hitoshi/aury/internal/metrics"
	"github.com/hitoshi/aury/internal/middleware"
	"github.com/hitoshi/aury/internal/push"
	"github.com/hitoshi/aury/internal/security"
	"github.com/hitoshi/aury/internal/session"
	"github.com/hitoshi/aury/internal/store"
	"github.com/hitoshi/aury/internal/tracker"
)

// Init はエージェントの初期化を行う。
// .envファイル（存在する場合）と環境変数からConfigを読み込み、
// JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envファイルの読み込み（存在しない場合は環境変数のみ使用）
	_ = godotenv.Load()

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はエージェントのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8787"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting agent",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("api_base_url", cfg.APIBaseURL),
	)

	return runServe(cfg)
}

// runServe はローカルAPIサーバーモードで起動する。
// ローカルストアを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. ローカルストアのオープン
	kv, err := store.OpenSQLite(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	defer kv.Close()

	slog.Info("local store opened", slog.String("path", cfg.StoragePath))

	// 2. インストールIDの解決（初回起動時に発行して永続化する）
	installID, err := resolveInstallID(context.Background(), kv)
	if err != nil {
		return fmt.Errorf("failed to resolve install id: %w", err)
	}

	userAgent := fmt.Sprintf("Aury/1.0 (%s; install:%s)", runtime.GOOS, installID)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. バックエンドゲートウェイの初期化
	gatewayCfg := gateway.DefaultConfig(cfg.APIBaseURL)
	gatewayCfg.RequestsPerSecond = rateLimitPerSecond(cfg.RateLimitGateway)
	gatewayCfg.UserAgent = userAgent

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	gatewayClient := gateway.NewClient(httpClient, slog.Default(), collector, gatewayCfg)

	// 5. ドメインサービスの初期化
	sanitizer := security.NewReplySanitizer()
	trackerService := tracker.NewService(gatewayClient, sanitizer, slog.Default())

	pushProvider := push.NewOneSignalProvider(httpClient, slog.Default(), kv)
	pushManager := push.NewManager(pushProvider, gatewayClient, nil, slog.Default(), collector, push.ManagerConfig{
		AppID:       cfg.OneSignalAppID,
		DeviceClass: push.ClassifyDevice(runtime.GOOS),
		UserAgent:   userAgent,
	})

	orchestrator := session.NewOrchestrator(kv, gatewayClient, pushManager, slog.Default(), collector, session.Config{
		PermissionPromptDelay: cfg.PermissionPromptDelay,
		LogoutRevokesPush:     cfg.LogoutRevokesPush,
	})

	// 6. 永続セッションからの復元
	snapshot, err := orchestrator.Restore(context.Background())
	if err != nil {
		// 復元失敗は起動を妨げない。UIがrestoreエンドポイントから再試行できる。
		slog.Warn("session restore failed", slog.String("error", err.Error()))
	} else {
		slog.Info("session restored",
			slog.Bool("authenticated", snapshot.Session.IsAuthenticated()),
			slog.String("screen", string(snapshot.Screen)),
		)
	}

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(cfg.RateLimitLocal))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Authenticator:     gatewayClient,
		Orchestrator:      orchestrator,
		Tracker:           trackerService,
		Push:              pushManager,
		Gatherer:          registry,
	})

	// 8. HTTPサーバーの起動（UI以外からのアクセスを避けるためループバックのみ）
	server := &http.Server{
		Addr:         "127.0.0.1:" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("agent server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down agent server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("agent server stopped gracefully")
	return nil
}

// resolveInstallID はストアからインストールIDを読み出す。
// 未発行の場合は新しいUUIDを発行して永続化する。
func resolveInstallID(ctx context.Context, kv store.KV) (string, error) {
	id, ok, err := kv.Get(ctx, store.KeyInstallID)
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}

	id = uuid.NewString()
	if err := kv.Set(ctx, store.KeyInstallID, id); err != nil {
		return "", err
	}

	slog.Info("install id issued", slog.String("install_id", id))
	return id, nil
}

// rateLimitPerSecond はreq/min単位の設定値をreq/sec単位のレートに変換する。
func rateLimitPerSecond(requestsPerMinute int) rate.Limit {
	return rate.Limit(float64(requestsPerMinute) / 60.0)
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
