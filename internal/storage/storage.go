package storage

import (
	"context"
	"io"
)

// Storage はアップロードされた添付ファイルの保存・削除を抽象化するインターフェース。
// ローカルファイルシステム実装の他、S3 に差し替え可能。
type Storage interface {
	// Save はファイルを保存し、公開 URL を返す。
	// key はストレージ内の一意なファイル名 (例: "1718000000000-123456789.pdf")。
	Save(ctx context.Context, key string, data io.Reader, contentType string) (url string, err error)

	// Delete は key に対応するファイルを削除する。存在しない場合はエラーにしない。
	Delete(ctx context.Context, key string) error
}
