package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3drive-backend/internal/events"
	"s3drive-backend/internal/shared/storage/object"
)

type fakeStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	types map[string]string
	now   time.Time

	putErr     error
	presignErr error
	deleteErr  error

	presignDelay time.Duration
	inFlight     atomic.Int32
	maxInFlight  atomic.Int32
}

func newFakeStore(now time.Time) *fakeStore {
	return &fakeStore{blobs: map[string][]byte{}, types: map[string]string{}, now: now}
}

func (f *fakeStore) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.presignDelay > 0 {
		time.Sleep(f.presignDelay)
	}
	if f.presignErr != nil {
		return "", f.presignErr
	}
	expires := f.now.Add(ttl).Unix()
	return fmt.Sprintf("https://blobs.test/%s?expires=%d&signature=sig", url.PathEscape(key), expires), nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, key)
	return nil
}

func (f *fakeStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[key]
	if !ok {
		return nil, object.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blobs)
}

type faultyRepo struct {
	*MemoryRepo
	insertErr error
	deleteErr error
}

func (r *faultyRepo) Insert(ctx context.Context, rec FileRecord) (FileRecord, error) {
	if r.insertErr != nil {
		return FileRecord{}, r.insertErr
	}
	return r.MemoryRepo.Insert(ctx, rec)
}

func (r *faultyRepo) DeleteByID(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	return r.MemoryRepo.DeleteByID(ctx, id)
}

type capturePublisher struct {
	mu   sync.Mutex
	evs  []events.Event
	fail error
}

func (p *capturePublisher) Publish(ctx context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evs = append(p.evs, ev)
	return p.fail
}

var fixedNow = time.Date(2026, time.May, 10, 14, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *fakeStore, *faultyRepo) {
	t.Helper()
	store := newFakeStore(fixedNow)
	repo := &faultyRepo{MemoryRepo: NewMemoryRepo()}
	return &Service{
		Store: store,
		Repo:  repo,
		Now:   func() time.Time { return fixedNow },
	}, store, repo
}

func upload(t *testing.T, svc *Service, name, contentType, body string) FileRecord {
	t.Helper()
	rec, err := svc.Upload(context.Background(), UploadInput{
		OriginalName: name,
		ContentType:  contentType,
		Size:         int64(len(body)),
		Body:         strings.NewReader(body),
	})
	require.NoError(t, err)
	return rec
}

var keyPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}-`)

func TestUploadStoresBlobThenRecord(t *testing.T) {
	svc, store, repo := newTestService(t)

	rec := upload(t, svc, "a.txt", "text/plain", "hello")

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "a.txt", rec.OriginalName)
	assert.Equal(t, "text/plain", rec.ContentType)
	assert.Equal(t, int64(5), rec.SizeBytes)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Regexp(t, keyPattern, rec.StorageKey)
	assert.True(t, strings.HasSuffix(rec.StorageKey, "-a.txt"))

	rc, err := store.Open(context.Background(), rec.StorageKey)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "hello", string(data))

	stored, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, stored)
}

func TestUploadSameNameGetsDistinctKeys(t *testing.T) {
	svc, store, _ := newTestService(t)

	a := upload(t, svc, "same.txt", "text/plain", "1")
	b := upload(t, svc, "same.txt", "text/plain", "2")

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.StorageKey, b.StorageKey)
	assert.Equal(t, 2, store.count())
}

func TestUploadDefaultsContentType(t *testing.T) {
	svc, store, _ := newTestService(t)

	rec := upload(t, svc, "blob.bin", "", "xyz")

	assert.Equal(t, DefaultContentType, rec.ContentType)
	assert.Equal(t, DefaultContentType, store.types[rec.StorageKey])
}

func TestUploadSanitizesKeyButKeepsOriginalName(t *testing.T) {
	svc, _, _ := newTestService(t)

	rec := upload(t, svc, "../secret/plan.txt", "text/plain", "x")

	assert.Equal(t, "../secret/plan.txt", rec.OriginalName)
	assert.NotContains(t, rec.StorageKey, "/")
	assert.NotContains(t, rec.StorageKey, "..")
}

func TestUploadKeepsSurroundingWhitespaceInName(t *testing.T) {
	svc, _, repo := newTestService(t)

	rec := upload(t, svc, "  a.txt ", "text/plain", "x")

	assert.Equal(t, "  a.txt ", rec.OriginalName)
	assert.True(t, strings.HasSuffix(rec.StorageKey, "-a.txt"))
	stored, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "  a.txt ", stored.OriginalName)
}

func TestUploadWithoutPayloadHasNoSideEffects(t *testing.T) {
	svc, store, repo := newTestService(t)

	cases := map[string]UploadInput{
		"nil body":   {OriginalName: "a.txt", Size: 3},
		"zero size":  {OriginalName: "a.txt", Size: 0, Body: strings.NewReader("")},
		"empty name": {OriginalName: "  ", Size: 3, Body: strings.NewReader("abc")},
	}
	for name, in := range cases {
		_, err := svc.Upload(context.Background(), in)
		assert.ErrorIs(t, err, ErrNoPayload, name)
	}

	assert.Equal(t, 0, store.count())
	list, err := repo.ListNewestFirst(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUploadPutFailureCreatesNoRecord(t *testing.T) {
	svc, store, repo := newTestService(t)
	store.putErr = errors.New("bucket unavailable")

	_, err := svc.Upload(context.Background(), UploadInput{OriginalName: "a.txt", Size: 1, Body: strings.NewReader("a")})

	require.Error(t, err)
	assert.ErrorIs(t, err, store.putErr)
	list, _ := repo.ListNewestFirst(context.Background())
	assert.Empty(t, list)
}

func TestUploadInsertFailureLeavesBlob(t *testing.T) {
	svc, store, repo := newTestService(t)
	repo.insertErr = errors.New("db down")

	_, err := svc.Upload(context.Background(), UploadInput{OriginalName: "a.txt", Size: 1, Body: strings.NewReader("a")})

	assert.ErrorIs(t, err, repo.insertErr)
	assert.Equal(t, 1, store.count())
}

func TestListNewestFirstWithSignedURLs(t *testing.T) {
	svc, _, repo := newTestService(t)
	clock := fixedNow
	repo.now = func() time.Time { return clock }

	a := upload(t, svc, "a.txt", "text/plain", "aaa")
	clock = clock.Add(time.Second)
	b := upload(t, svc, "b.png", "image/png", "bbbb")

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
	assert.Equal(t, KindImage, list[0].Kind)
	assert.Equal(t, KindText, list[1].Kind)

	for _, item := range list {
		u, err := url.Parse(item.AccessURL)
		require.NoError(t, err)
		assert.Contains(t, u.Path, item.StorageKey)
		assert.NotEmpty(t, u.Query().Get("signature"))

		expires, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
		require.NoError(t, err)
		assert.Equal(t, fixedNow.Unix()+3600, expires)
	}
}

func TestListEmpty(t *testing.T) {
	svc, _, _ := newTestService(t)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestListFailsWholeRequestOnPresignError(t *testing.T) {
	svc, store, _ := newTestService(t)
	upload(t, svc, "a.txt", "text/plain", "a")
	upload(t, svc, "b.txt", "text/plain", "b")
	store.presignErr = errors.New("credentials expired")

	list, err := svc.List(context.Background())

	assert.ErrorIs(t, err, store.presignErr)
	assert.Nil(t, list)
}

func TestListBoundsPresignConcurrency(t *testing.T) {
	svc, store, repo := newTestService(t)
	svc.PresignConcurrency = 2
	store.presignDelay = 10 * time.Millisecond

	clock := fixedNow
	repo.now = func() time.Time { return clock }
	var want []string
	for i := 0; i < 8; i++ {
		rec := upload(t, svc, fmt.Sprintf("f%d.txt", i), "text/plain", "x")
		want = append([]string{rec.ID}, want...)
		clock = clock.Add(time.Second)
	}

	list, err := svc.List(context.Background())
	require.NoError(t, err)

	got := make([]string, len(list))
	for i := range list {
		got[i] = list[i].ID
	}
	assert.Equal(t, want, got)
	assert.LessOrEqual(t, store.maxInFlight.Load(), int32(2))
}

func TestListUsesConfiguredTTL(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.PresignTTL = 5 * time.Minute
	upload(t, svc, "a.txt", "text/plain", "a")

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)

	u, err := url.Parse(list[0].AccessURL)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(fixedNow.Add(5*time.Minute).Unix(), 10), u.Query().Get("expires"))
}

func TestDeleteRemovesBlobAndRecord(t *testing.T) {
	svc, store, _ := newTestService(t)
	rec := upload(t, svc, "a.txt", "text/plain", "abc")

	require.NoError(t, svc.Delete(context.Background(), rec.ID))

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = store.Open(context.Background(), rec.StorageKey)
	assert.ErrorIs(t, err, object.ErrNotFound)
}

func TestDeleteUnknownIDChangesNothing(t *testing.T) {
	svc, store, _ := newTestService(t)
	rec := upload(t, svc, "a.txt", "text/plain", "abc")

	err := svc.Delete(context.Background(), "does-not-exist")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, store.count())
	list, _ := svc.List(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, rec.ID, list[0].ID)
}

func TestDeleteBlobFailureRetainsRecord(t *testing.T) {
	svc, store, repo := newTestService(t)
	rec := upload(t, svc, "a.txt", "text/plain", "abc")
	store.deleteErr = errors.New("access denied")

	err := svc.Delete(context.Background(), rec.ID)

	assert.ErrorIs(t, err, store.deleteErr)
	_, err = repo.GetByID(context.Background(), rec.ID)
	assert.NoError(t, err)
}

func TestDeleteMissingBlobStillRemovesRecord(t *testing.T) {
	svc, store, repo := newTestService(t)
	rec := upload(t, svc, "a.txt", "text/plain", "abc")
	store.deleteErr = fmt.Errorf("wrapped: %w", object.ErrNotFound)

	require.NoError(t, svc.Delete(context.Background(), rec.ID))

	_, err := repo.GetByID(context.Background(), rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRetryAfterRecordFailure(t *testing.T) {
	svc, store, repo := newTestService(t)
	rec := upload(t, svc, "a.txt", "text/plain", "abc")
	repo.deleteErr = errors.New("db timeout")

	require.Error(t, svc.Delete(context.Background(), rec.ID))
	assert.Equal(t, 0, store.count())

	repo.deleteErr = nil
	require.NoError(t, svc.Delete(context.Background(), rec.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), rec.ID), ErrNotFound)
}

func TestEventsArePublishedBestEffort(t *testing.T) {
	svc, _, _ := newTestService(t)
	pub := &capturePublisher{fail: errors.New("queue unavailable")}
	svc.Events = pub

	rec := upload(t, svc, "a.txt", "text/plain", "abc")
	require.NoError(t, svc.Delete(context.Background(), rec.ID))

	require.Len(t, pub.evs, 2)
	assert.Equal(t, events.TypeFileUploaded, pub.evs[0].Type)
	assert.Equal(t, rec.ID, pub.evs[0].FileID)
	assert.Equal(t, int64(3), pub.evs[0].SizeBytes)
	assert.Equal(t, fixedNow, pub.evs[0].OccurredAt)
	assert.Equal(t, events.TypeFileDeleted, pub.evs[1].Type)
	assert.Equal(t, rec.ID, pub.evs[1].FileID)
}

func TestUploadThenListRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	rec := upload(t, svc, "notes.md", "text/markdown", "# hi")

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.Equal(t, rec, list[0].FileRecord)
	assert.NotEmpty(t, list[0].AccessURL)
}
