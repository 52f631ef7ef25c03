package upload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/communityportal/backend/internal/storage"
)

// Intake stores attachments all-or-nothing.
type Intake struct {
	store  storage.Storage
	policy Policy
}

// NewIntake returns an Intake writing to store under policy.
func NewIntake(store storage.Storage, policy Policy) *Intake {
	return &Intake{store: store, policy: policy}
}

// Policy returns the limits this intake enforces.
func (in *Intake) Policy() Policy {
	return in.policy
}

// Store checks the policy and writes every file, returning their URLs in
// input order. On any failure files already written are removed.
func (in *Intake) Store(ctx context.Context, files []File) ([]string, error) {
	if err := in.policy.Check(files); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(files))
	for _, f := range files {
		url, err := in.save(ctx, f)
		if err != nil {
			in.Discard(ctx, urls)
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (in *Intake) save(ctx context.Context, f File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("upload: open %q: %w", f.Filename, err)
	}
	defer rc.Close()

	name := GenerateName(f.Filename, f.ContentType)
	url, err := in.store.Save(ctx, name, rc, f.ContentType)
	if err != nil {
		return "", fmt.Errorf("upload: save %q: %w", f.Filename, err)
	}
	return url, nil
}

// Discard removes previously stored files. Failures are logged, not returned.
func (in *Intake) Discard(ctx context.Context, urls []string) {
	for _, u := range urls {
		if err := in.store.Delete(ctx, KeyFromURL(u)); err != nil {
			slog.Error("failed to discard upload", "url", u, "error", err)
		}
	}
}
