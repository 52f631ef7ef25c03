package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStorage_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir, "/uploads")
	ctx := context.Background()

	url, err := s.Save(ctx, "123-456.pdf", strings.NewReader("%PDF-1.4"), "application/pdf")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if url != "/uploads/123-456.pdf" {
		t.Errorf("expected /uploads/123-456.pdf, got %q", url)
	}
	got, err := os.ReadFile(filepath.Join(dir, "123-456.pdf"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "%PDF-1.4" {
		t.Errorf("unexpected content %q", got)
	}

	if err := s.Delete(ctx, "123-456.pdf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "123-456.pdf")); !os.IsNotExist(err) {
		t.Error("expected file to be removed")
	}
	// 二回目の削除はエラーにしない
	if err := s.Delete(ctx, "123-456.pdf"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestLocalStorage_KeyCannotEscapeDir(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(filepath.Join(dir, "uploads"), "/uploads")

	url, err := s.Save(context.Background(), "../../evil.txt", strings.NewReader("x"), "text/plain")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if url != "/uploads/evil.txt" {
		t.Errorf("expected sanitized url, got %q", url)
	}
	if _, err := os.Stat(filepath.Join(dir, "evil.txt")); !os.IsNotExist(err) {
		t.Error("file escaped the upload directory")
	}
}

func TestLocalStorage_DoesNotOverwrite(t *testing.T) {
	s := NewLocalStorage(t.TempDir(), "/uploads")
	ctx := context.Background()
	if _, err := s.Save(ctx, "a.png", strings.NewReader("1"), "image/png"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.Save(ctx, "a.png", strings.NewReader("2"), "image/png"); err == nil {
		t.Error("expected error when key already exists")
	}
}
