package local

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"s3drive-backend/internal/shared/storage/object"
)

// BlobRoute is the path template under which signed links are served.
const BlobRoute = "/api/blobs/:key"

var (
	ErrInvalidKey   = errors.New("invalid storage key")
	ErrExpired      = errors.New("link expired")
	ErrBadSignature = errors.New("bad signature")
)

// Store implements ObjectStore on the local filesystem. Blob bytes live under
// blobs/, declared content types under types/. On-disk names are the hex
// SHA-256 of the key so that key length is bounded only by the URL.
type Store struct {
	baseDir string
	baseURL string
	secret  []byte
	now     func() time.Time
}

// New creates a local store rooted at baseDir. Links are rendered against
// baseURL (empty yields host-relative links). An empty signingKey gets a
// random per-process key.
func New(baseDir, baseURL, signingKey string) *Store {
	secret := []byte(signingKey)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			secret = []byte(strconv.FormatInt(time.Now().UnixNano(), 10))
		}
	}
	return &Store{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		now:     time.Now,
	}
}

// Put writes the blob to a temp file and renames it into place.
func (s *Store) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	blobPath, typePath, err := s.paths(key)
	if err != nil {
		return err
	}
	for _, dir := range []string{filepath.Dir(blobPath), filepath.Dir(typePath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(blobPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("write body: wrote %d bytes, expected %d", written, size)
	}

	if err := os.WriteFile(typePath, []byte(contentType), 0o644); err != nil {
		return fmt.Errorf("write content type: %w", err)
	}
	if err := os.Rename(tmp.Name(), blobPath); err != nil {
		return fmt.Errorf("rename blob: %w", err)
	}
	return nil
}

// PresignGet returns a link to BlobRoute carrying an expiry and an HMAC over
// key and expiry.
func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, _, err := s.paths(key); err != nil {
		return "", err
	}
	expires := strconv.FormatInt(s.now().Add(ttl).Unix(), 10)

	q := url.Values{}
	q.Set("expires", expires)
	q.Set("signature", s.sign(key, expires))
	return s.baseURL + "/api/blobs/" + url.PathEscape(key) + "?" + q.Encode(), nil
}

// Verify checks a link's expiry and signature.
func (s *Store) Verify(key, expires, signature string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	want := s.sign(key, expires)
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrBadSignature
	}
	if s.now().Unix() > exp {
		return ErrExpired
	}
	return nil
}

// Delete removes the blob and its content type. Missing files are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	blobPath, typePath, err := s.paths(key)
	if err != nil {
		return err
	}
	for _, p := range []string{blobPath, typePath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

// Open opens a stored blob for reading.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blobPath, _, err := s.paths(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(blobPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, object.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// ContentType returns the content type recorded at Put time.
func (s *Store) ContentType(key string) string {
	_, typePath, err := s.paths(key)
	if err != nil {
		return ""
	}
	raw, err := os.ReadFile(typePath)
	if err != nil {
		return ""
	}
	return string(raw)
}

func (s *Store) sign(key, expires string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(expires))
	return hex.EncodeToString(mac.Sum(nil))
}

// paths rejects keys no producer in this module would emit and maps the
// rest to fixed-length file names.
func (s *Store) paths(key string) (blob, ctype string, err error) {
	if key == "" || key == "." || strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) {
		return "", "", ErrInvalidKey
	}
	sum := sha256.Sum256([]byte(key))
	name := hex.EncodeToString(sum[:])
	return filepath.Join(s.baseDir, "blobs", name), filepath.Join(s.baseDir, "types", name), nil
}

var _ object.ObjectStore = (*Store)(nil)
