package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const mediaSubject = "media"

// LocalStore keeps objects on disk and serves them through signed media URLs.
type LocalStore struct {
	baseDir       string
	publicBaseURL string
	signer        *SignedURLSigner
}

// NewLocalStore ensures the base directory exists and returns a handle.
func NewLocalStore(baseDir, publicBaseURL string, signer *SignedURLSigner) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if signer == nil {
		return nil, fmt.Errorf("local store requires a url signer")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{
		baseDir:       baseDir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		signer:        signer,
	}, nil
}

// Put streams body into <baseDir>/<key>.
func (s *LocalStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	full, cleanKey, err := s.resolve(key)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Object{}, fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.Create(full)
	if err != nil {
		return Object{}, fmt.Errorf("create upload file: %w", err)
	}
	written, err := io.Copy(file, body)
	closeErr := file.Close()
	if err != nil {
		_ = os.Remove(full)
		return Object{}, fmt.Errorf("write upload: %w", err)
	}
	if closeErr != nil {
		return Object{}, fmt.Errorf("close upload: %w", closeErr)
	}
	if size > 0 && written != size {
		_ = os.Remove(full)
		return Object{}, fmt.Errorf("short write: %d of %d bytes", written, size)
	}

	publicURL, err := s.URL(ctx, cleanKey)
	if err != nil {
		return Object{}, err
	}
	return Object{Key: cleanKey, URL: publicURL, ContentType: contentType, Size: written}, nil
}

// URL returns a freshly signed download URL for key.
func (s *LocalStore) URL(_ context.Context, key string) (string, error) {
	cleanKey, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	token, _, err := s.signer.Generate(mediaSubject, cleanKey)
	if err != nil {
		return "", fmt.Errorf("sign media url: %w", err)
	}
	return s.publicBaseURL + "/" + token, nil
}

// Delete removes key if present.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	full, _, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

// OpenSigned validates a media token and opens the referenced file.
func (s *LocalStore) OpenSigned(token string) (*os.File, string, error) {
	claims, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", err
	}
	if claims.Subject != mediaSubject {
		return nil, "", fmt.Errorf("token not issued for media")
	}
	full, cleanKey, err := s.resolve(claims.Payload)
	if err != nil {
		return nil, "", err
	}
	file, err := os.Open(full)
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	return file, cleanKey, nil
}

func (s *LocalStore) resolve(key string) (string, string, error) {
	cleanKey, err := CleanKey(key)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(cleanKey)), cleanKey, nil
}
