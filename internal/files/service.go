package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"s3drive-backend/internal/events"
	"s3drive-backend/internal/shared/metrics"
	"s3drive-backend/internal/shared/storage/object"
	"s3drive-backend/internal/shared/telemetry"
	"s3drive-backend/internal/shared/util"
)

const (
	DefaultPresignTTL         = time.Hour
	DefaultPresignConcurrency = 16
	DefaultContentType        = "application/octet-stream"

	publishTimeout = 5 * time.Second
)

var tracer = otel.Tracer("s3drive-backend/internal/files")

// UploadInput is one file taken from a multipart request.
type UploadInput struct {
	OriginalName string
	ContentType  string
	Size         int64
	Body         io.Reader
}

// Service keeps blobs and their metadata records in step.
type Service struct {
	Store object.ObjectStore
	Repo  Repo
	// Events is optional; publish failures are logged and ignored.
	Events events.Publisher

	PresignTTL         time.Duration
	PresignConcurrency int

	NewKey func(originalName string) string
	Now    func() time.Time
}

// Upload writes the blob and then records its metadata. A failed blob write
// leaves no record. A failed insert leaves the blob behind and logs its key.
func (s *Service) Upload(ctx context.Context, in UploadInput) (FileRecord, error) {
	ctx, span := tracer.Start(ctx, "files.Upload")
	defer span.End()

	if in.Body == nil || in.Size <= 0 || strings.TrimSpace(in.OriginalName) == "" {
		return FileRecord{}, ErrNoPayload
	}
	contentType := strings.TrimSpace(in.ContentType)
	if contentType == "" {
		contentType = DefaultContentType
	}

	key := s.newKey(in.OriginalName)
	span.SetAttributes(
		attribute.String("file.storage_key", key),
		attribute.Int64("file.size", in.Size),
	)

	if err := s.Store.Put(ctx, key, contentType, in.Body, in.Size); err != nil {
		metrics.ObserveUpload(metrics.ResultError, 0)
		return FileRecord{}, fail(span, fmt.Errorf("store blob: %w", err))
	}

	rec, err := s.Repo.Insert(ctx, FileRecord{
		OriginalName: in.OriginalName,
		StorageKey:   key,
		ContentType:  contentType,
		SizeBytes:    in.Size,
	})
	if err != nil {
		metrics.ObserveUpload(metrics.ResultError, 0)
		telemetry.Error("files.upload.orphaned_blob", map[string]any{
			"storage_key": key,
			"err":         err,
		})
		return FileRecord{}, fail(span, fmt.Errorf("insert record: %w", err))
	}

	span.SetAttributes(attribute.String("file.id", rec.ID))
	metrics.ObserveUpload(metrics.ResultOK, rec.SizeBytes)
	telemetry.Info("files.uploaded", map[string]any{
		"file_id":      rec.ID,
		"size_bytes":   rec.SizeBytes,
		"content_type": rec.ContentType,
	})
	s.publish(ctx, events.Event{
		Type:         events.TypeFileUploaded,
		FileID:       rec.ID,
		OriginalName: rec.OriginalName,
		ContentType:  rec.ContentType,
		SizeBytes:    rec.SizeBytes,
	})
	return rec, nil
}

// List returns all records newest first, each with a presigned download URL.
// URLs are generated concurrently; any failure fails the whole listing.
func (s *Service) List(ctx context.Context) ([]ListedFile, error) {
	ctx, span := tracer.Start(ctx, "files.List")
	defer span.End()

	recs, err := s.Repo.ListNewestFirst(ctx)
	if err != nil {
		return nil, fail(span, fmt.Errorf("list records: %w", err))
	}
	span.SetAttributes(attribute.Int("files.count", len(recs)))

	ttl := s.presignTTL()
	out := make([]ListedFile, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.presignConcurrency())
	for i, rec := range recs {
		g.Go(func() error {
			start := time.Now()
			url, err := s.Store.PresignGet(gctx, rec.StorageKey, ttl)
			metrics.ObservePresign(time.Since(start))
			if err != nil {
				return fmt.Errorf("presign %s: %w", rec.ID, err)
			}
			out[i] = ListedFile{
				FileRecord: rec,
				AccessURL:  url,
				Kind:       KindOf(rec.ContentType),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fail(span, err)
	}
	return out, nil
}

// Delete removes the blob and then the record. Unknown ids return
// ErrNotFound without side effects. A blob that is already gone counts as
// removed, so repeating a half-finished delete clears the record.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "files.Delete", trace.WithAttributes(attribute.String("file.id", id)))
	defer span.End()

	rec, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		metrics.ObserveDelete(metrics.ResultError)
		return fail(span, fmt.Errorf("get record: %w", err))
	}

	if err := s.Store.Delete(ctx, rec.StorageKey); err != nil && !errors.Is(err, object.ErrNotFound) {
		metrics.ObserveDelete(metrics.ResultError)
		return fail(span, fmt.Errorf("delete blob: %w", err))
	}

	if err := s.Repo.DeleteByID(ctx, rec.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		metrics.ObserveDelete(metrics.ResultError)
		telemetry.Error("files.delete.dangling_record", map[string]any{
			"file_id": rec.ID,
			"err":     err,
		})
		return fail(span, fmt.Errorf("delete record: %w", err))
	}

	metrics.ObserveDelete(metrics.ResultOK)
	telemetry.Info("files.deleted", map[string]any{"file_id": rec.ID})
	s.publish(ctx, events.Event{
		Type:         events.TypeFileDeleted,
		FileID:       rec.ID,
		OriginalName: rec.OriginalName,
	})
	return nil
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if s.Events == nil {
		return
	}
	ev.OccurredAt = s.now()

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.Events.Publish(pubCtx, ev); err != nil {
		telemetry.Error("events.publish_failed", map[string]any{
			"type":    ev.Type,
			"file_id": ev.FileID,
			"err":     err,
		})
	}
}

func (s *Service) newKey(name string) string {
	if s.NewKey != nil {
		return s.NewKey(name)
	}
	return uuid.NewString() + "-" + util.SanitizeFileName(name)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) presignTTL() time.Duration {
	if s.PresignTTL > 0 {
		return s.PresignTTL
	}
	return DefaultPresignTTL
}

func (s *Service) presignConcurrency() int {
	if s.PresignConcurrency > 0 {
		return s.PresignConcurrency
	}
	return DefaultPresignConcurrency
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
