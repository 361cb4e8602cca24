package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kartikbazzad/bunbase/bunpress/internal/database"
	apperrors "github.com/kartikbazzad/bunbase/bunpress/internal/errors"
	"github.com/kartikbazzad/bunbase/bunpress/internal/events"
	"github.com/kartikbazzad/bunbase/bunpress/internal/logger"
	"github.com/kartikbazzad/bunbase/bunpress/internal/media"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
	"github.com/kartikbazzad/bunbase/bunpress/internal/storage"
)

// UploadObserver records upload outcomes.
type UploadObserver interface {
	ObserveUpload(ok bool)
}

// CacheClearer drops values derived from media rows, such as resolved
// image settings.
type CacheClearer interface {
	ClearCache()
}

// MediaService handles uploads and their stored variants
type MediaService struct {
	db        database.DBTX
	store     storage.Store
	processor *media.Processor
	events    events.Publisher
	observer  UploadObserver
	caches    []CacheClearer
}

func NewMediaService(db database.DBTX, store storage.Store, processor *media.Processor, publisher events.Publisher) *MediaService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &MediaService{db: db, store: store, processor: processor, events: publisher}
}

// WithUploadObserver sets the observer notified after every upload.
func (s *MediaService) WithUploadObserver(o UploadObserver) *MediaService {
	s.observer = o
	return s
}

// WithCacheClearer registers a cache to drop after every deletion.
func (s *MediaService) WithCacheClearer(c CacheClearer) *MediaService {
	s.caches = append(s.caches, c)
	return s
}

// maxNameLength matches the VARCHAR(255) of original_name and alt.
const maxNameLength = 255

const mediaSelect = "SELECT id, filename, original_name, path, mime_type, size, alt, user_id, created_at FROM media"

func scanMedia(row pgx.Row) (*models.Media, error) {
	var m models.Media
	err := row.Scan(&m.ID, &m.Filename, &m.OriginalName, &m.Path, &m.MimeType, &m.Size, &m.Alt, &m.UserID, &m.CreatedAt)
	return &m, err
}

// Upload validates the image, stores every variant under a fresh folder
// key and records it. Objects already written are removed on failure.
func (s *MediaService) Upload(ctx context.Context, originalName string, r io.Reader, alt string, userID int64) (m *models.Media, err error) {
	defer func() {
		if s.observer != nil {
			s.observer.ObserveUpload(err == nil)
		}
	}()

	originalName = filepath.Base(strings.TrimSpace(originalName))
	alt = strings.TrimSpace(alt)
	fields := apperrors.FieldErrors{}
	if utf8.RuneCountInString(originalName) > maxNameLength {
		fields.Add("file", "The file name must be at most 255 characters.")
	}
	if utf8.RuneCountInString(alt) > maxNameLength {
		fields.Add("alt", "Must be at most 255 characters.")
	}
	if err := fields.OrNil(); err != nil {
		return nil, err
	}

	res, err := s.processor.Process(r)
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return nil, apperrors.FieldErrors{"file": "The file is too large."}
	case errors.Is(err, media.ErrUnsupportedType):
		return nil, apperrors.FieldErrors{"file": "Only JPEG, PNG, GIF and WebP images are accepted."}
	case err != nil:
		return nil, err
	}

	folder := uuid.NewString()
	record := &models.Media{Path: folder}
	var written []string
	cleanup := func() {
		if derr := storage.DeleteAll(context.WithoutCancel(ctx), s.store, written...); derr != nil {
			logger.FromContext(ctx).Warn("failed to clean up media objects", "folder", folder, "error", derr)
		}
	}

	for _, v := range res.Variants {
		key := record.ObjectKey(v.Name)
		if err := s.store.Put(ctx, key, bytes.NewReader(v.Data), int64(len(v.Data)), media.OutputType); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to store %s: %w", v.Name, err)
		}
		written = append(written, key)
	}

	if alt == "" {
		alt = strings.TrimSuffix(originalName, filepath.Ext(originalName))
	}
	original := res.Original()

	m, err = scanMedia(s.db.QueryRow(ctx,
		`INSERT INTO media (filename, original_name, path, mime_type, size, alt, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, filename, original_name, path, mime_type, size, alt, user_id, created_at`,
		models.VariantOriginal+".jpg", originalName, folder, media.OutputType, int64(len(original.Data)), alt, positiveID(&userID)))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to save media: %w", err)
	}

	events.Emit(ctx, s.events, events.MediaUploaded, map[string]any{"id": m.ID, "path": m.Path})
	return m, nil
}

func (s *MediaService) GetByID(ctx context.Context, id int64) (*models.Media, error) {
	m, err := scanMedia(s.db.QueryRow(ctx, mediaSelect+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("Media not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media: %w", err)
	}
	return m, nil
}

func (s *MediaService) list(ctx context.Context, query string, args ...any) ([]models.Media, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer rows.Close()
	var items []models.Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}

// List returns a page of media, newest first.
func (s *MediaService) List(ctx context.Context, page, perPage int) (models.Page[models.Media], error) {
	total, err := s.Count(ctx)
	if err != nil {
		return models.Page[models.Media]{}, err
	}
	items, err := s.list(ctx, mediaSelect+" ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2", perPage, models.Offset(page, perPage))
	if err != nil {
		return models.Page[models.Media]{}, err
	}
	return models.NewPage(items, total, page, perPage), nil
}

// All returns every media item for the picker.
func (s *MediaService) All(ctx context.Context) ([]models.Media, error) {
	return s.list(ctx, mediaSelect+" ORDER BY created_at DESC, id DESC")
}

func (s *MediaService) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM media").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count media: %w", err)
	}
	return n, nil
}

// UpdateAlt changes the alternative text.
func (s *MediaService) UpdateAlt(ctx context.Context, id int64, alt string) (*models.Media, error) {
	alt = strings.TrimSpace(alt)
	if utf8.RuneCountInString(alt) > maxNameLength {
		return nil, apperrors.FieldErrors{"alt": "Must be at most 255 characters."}
	}
	m, err := scanMedia(s.db.QueryRow(ctx,
		`UPDATE media SET alt = $1 WHERE id = $2
		 RETURNING id, filename, original_name, path, mime_type, size, alt, user_id, created_at`, alt, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("Media not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update media: %w", err)
	}
	return m, nil
}

// Delete removes every stored variant, then the record.
func (s *MediaService) Delete(ctx context.Context, id int64) error {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(models.Variants))
	for _, v := range models.Variants {
		keys = append(keys, m.ObjectKey(v))
	}
	if err := storage.DeleteAll(ctx, s.store, keys...); err != nil {
		return fmt.Errorf("failed to delete media files: %w", err)
	}
	if _, err := s.db.Exec(ctx, "DELETE FROM media WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	for _, c := range s.caches {
		c.ClearCache()
	}
	return nil
}

// Open streams a stored object for /uploads.
func (s *MediaService) Open(ctx context.Context, key string) (*storage.Object, error) {
	obj, err := s.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NotFound("File not found.")
	}
	return obj, err
}

// CheckStorage reports whether the media store is writable.
func (s *MediaService) CheckStorage(ctx context.Context) error {
	return s.store.Check(ctx)
}
