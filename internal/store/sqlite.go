package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// kvEntry はSQLiteのkv_entriesテーブルの1行を表す。
type kvEntry struct {
	Key       string `gorm:"primaryKey;column:key"`
	Value     string `gorm:"column:value"`
	UpdatedAt time.Time
}

// TableName はgormに使用するテーブル名を指定する。
func (kvEntry) TableName() string {
	return "kv_entries"
}

// SQLiteStore はデバイスローカルのSQLiteファイルを使うKV実装。
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite は指定パスのSQLiteファイルを開き、スキーマを適用する。
// pathに":memory:"を指定するとインメモリデータベースになる（テスト用）。
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("ストレージファイルを開けませんでした: %w", err)
	}

	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("ストレージスキーマの適用に失敗しました: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close はデータベース接続を閉じる。
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Get は指定キーの値を取得する。キーが存在しない場合は ("", false, nil) を返す。
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var entry kvEntry
	err := s.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("キー %s の読み取りに失敗しました: %w", key, err)
	}
	return entry.Value, true, nil
}

// Set は指定キーに値を書き込む。既存の値は上書きされる。
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	entry := kvEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Save(&entry).Error
	if err != nil {
		return fmt.Errorf("キー %s の書き込みに失敗しました: %w", key, err)
	}
	return nil
}

// Remove は指定キーを削除する。キーが存在しなくてもエラーにならない。
func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Delete(&kvEntry{}, "key = ?", key).Error
	if err != nil {
		return fmt.Errorf("キー %s の削除に失敗しました: %w", key, err)
	}
	return nil
}

// Clear は指定された複数キーを削除する。キー単位の原子性のみ保証する。
func (s *SQLiteStore) Clear(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := s.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
