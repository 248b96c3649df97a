// Package tracker は支出・連続記録・トーン設定のドメイン操作を提供する。
// バックエンドゲートウェイの薄いファサードで、入力検証と
// 応答テキストのサニタイズを担う。パースと集計はすべてサーバーサイド。
package tracker

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hitoshi/aury/internal/gateway"
	"github.com/hitoshi/aury/internal/model"
	"github.com/hitoshi/aury/internal/security"
)

// フィード取得件数の既定値と上限。
const (
	defaultFeedLimit = 10
	maxFeedLimit     = 50
)

// Gateway はトラッカーが必要とするバックエンド操作。
type Gateway interface {
	CreateExpense(ctx context.Context, userID, rawText string) (*gateway.ExpenseResult, error)
	GetStreak(ctx context.Context, userID string) (*gateway.Streak, error)
	GetRecentExpenses(ctx context.Context, userID string, limit int) (*gateway.ExpenseFeed, error)
	UseStreakFreeze(ctx context.Context, userID string) (*gateway.StreakFreezeResult, error)
	GetBetaStatus(ctx context.Context) (*gateway.BetaStatus, error)
	GetWaitlistStatus(ctx context.Context) (*gateway.WaitlistStatus, error)
	GetAuryTone(ctx context.Context, userID string) (string, error)
	SetAuryTone(ctx context.Context, userID, tone string) error
}

// Service は支出・連続記録・トーン設定のファサード。
type Service struct {
	gateway   Gateway
	sanitizer security.ReplySanitizerService
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(gw Gateway, sanitizer security.ReplySanitizerService, logger *slog.Logger) *Service {
	return &Service{
		gateway:   gw,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// LogExpense は自由テキストの支出を1件登録する。
// トリム後に空の場合はネットワーク呼び出しの前にValidationErrorを返す。
// バックエンドが生成したAuryの応答はサニタイズしてから返す。
func (s *Service) LogExpense(ctx context.Context, userID, rawText string) (*gateway.ExpenseResult, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return nil, &model.ValidationError{Field: "raw_text", Reason: "支出が空です"}
	}
	if userID == "" {
		return nil, model.NewUnauthenticatedError()
	}

	result, err := s.gateway.CreateExpense(ctx, userID, text)
	if err != nil {
		return nil, err
	}

	result.AuryResponse = s.sanitizer.Sanitize(result.AuryResponse)
	result.Message = s.sanitizer.Sanitize(result.Message)

	s.logger.Info("支出を登録しました",
		slog.String("user_id", userID),
		slog.String("transaction_id", result.TransactionID),
	)
	return result, nil
}

// Streak は現在の連続記録を取得する。
func (s *Service) Streak(ctx context.Context, userID string) (*gateway.Streak, error) {
	if userID == "" {
		return nil, model.NewUnauthenticatedError()
	}
	return s.gateway.GetStreak(ctx, userID)
}

// RecentExpenses は最近の支出フィードを取得する。
// limitが0以下の場合は既定値、上限を超える場合は上限に丸める。
// フィード内のAury応答もサニタイズする。
func (s *Service) RecentExpenses(ctx context.Context, userID string, limit int) (*gateway.ExpenseFeed, error) {
	if userID == "" {
		return nil, model.NewUnauthenticatedError()
	}
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}

	feed, err := s.gateway.GetRecentExpenses(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	for i := range feed.Gastos {
		if feed.Gastos[i].AuryResponse != nil {
			cleaned := s.sanitizer.Sanitize(*feed.Gastos[i].AuryResponse)
			feed.Gastos[i].AuryResponse = &cleaned
		}
	}
	return feed, nil
}

// StreakFreeze は連続記録を守る週次プロテクターを使用する。
func (s *Service) StreakFreeze(ctx context.Context, userID string) (*gateway.StreakFreezeResult, error) {
	if userID == "" {
		return nil, model.NewUnauthenticatedError()
	}
	result, err := s.gateway.UseStreakFreeze(ctx, userID)
	if err != nil {
		return nil, err
	}
	result.Message = s.sanitizer.Sanitize(result.Message)
	s.logger.Info("プロテクターを使用しました",
		slog.String("user_id", userID),
		slog.Bool("freeze_used", result.FreezeUsed),
	)
	return result, nil
}

// Tone はAuryの応答トーン設定を取得する。
func (s *Service) Tone(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", model.NewUnauthenticatedError()
	}
	return s.gateway.GetAuryTone(ctx, userID)
}

// SetTone はAuryの応答トーン設定を保存する。
func (s *Service) SetTone(ctx context.Context, userID, tone string) error {
	if userID == "" {
		return model.NewUnauthenticatedError()
	}
	tone = strings.TrimSpace(tone)
	if tone == "" {
		return &model.ValidationError{Field: "tone", Reason: "トーンが空です"}
	}
	return s.gateway.SetAuryTone(ctx, userID, tone)
}

// BetaStatus はベータ登録の残りスロット数を取得する。認証不要。
func (s *Service) BetaStatus(ctx context.Context) (*gateway.BetaStatus, error) {
	return s.gateway.GetBetaStatus(ctx)
}

// WaitlistStatus は待機リストの状態を取得する。認証不要。
func (s *Service) WaitlistStatus(ctx context.Context) (*gateway.WaitlistStatus, error) {
	return s.gateway.GetWaitlistStatus(ctx)
}
