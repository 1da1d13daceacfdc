package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"entryapi/internal/apperror"
	"entryapi/internal/controller"
	"entryapi/internal/logging"
	"entryapi/internal/model"
	"entryapi/internal/repository"
	"entryapi/internal/storage"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// EntryListResult is the service-level DTO for paginated root entries.
type EntryListResult struct {
	Items []model.Entry `json:"data"`
	Total int           `json:"total"`
}

// EntryService defines the use cases for handling entries.
// It is the Model behind the entries BaseController.
type EntryService interface {
	controller.Model[model.Entry]

	// List returns root entries using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*EntryListResult, error)

	// Attach uploads r as the entry's attachment, replacing any previous one.
	Attach(ctx context.Context, id string, r io.Reader, filename, contentType string, size int64) (*model.Entry, error)

	// AttachmentURL returns a presigned download URL for the entry's attachment.
	AttachmentURL(ctx context.Context, id string, expiry time.Duration) (string, error)
}

type entryService struct {
	store    storage.Storage
	repo     repository.EntryRepository
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewEntryService constructs a new EntryService.
func NewEntryService(store storage.Storage, repo repository.EntryRepository, logger *slog.Logger) EntryService {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &entryService{
		store:    store,
		repo:     repo,
		validate: v,
		logger:   logging.Component(logger, "entry_service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// checkID applies the same rule as the parent_id tag: a lowercase, hyphenated uuid.
// urn:uuid:, braced and uppercase forms are rejected before they reach the database.
func (s *entryService) checkID(id string) error {
	if id == "" {
		return apperror.Validation("id is required")
	}
	if err := s.validate.Var(id, "uuid"); err != nil {
		return apperror.Wrap(apperror.KindValidation, "invalid id format", err)
	}
	return nil
}

// find loads an entry and maps a missing row to a not-found error.
func (s *entryService) find(ctx context.Context, id string) (*model.Entry, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("entry not found")
		}
		return nil, apperror.Infrastructure("load entry", err)
	}
	return e, nil
}

// Create validates props, checks the parent exists and stores a new entry.
// Server-owned fields in props (id, timestamps, attachment, children) are ignored.
func (s *entryService) Create(ctx context.Context, props model.Entry) (model.Entry, error) {
	props.Title = strings.TrimSpace(props.Title)
	if err := s.validate.Struct(props); err != nil {
		return model.Entry{}, apperror.FromValidator(err)
	}

	if props.ParentID != nil {
		if _, err := s.repo.FindByID(ctx, *props.ParentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.Entry{}, apperror.Validation("parent entry does not exist")
			}
			return model.Entry{}, apperror.Infrastructure("load parent entry", err)
		}
	}

	now := s.now()
	stored, err := s.repo.Create(ctx, &model.Entry{
		ID:        uuid.NewString(),
		ParentID:  props.ParentID,
		Title:     props.Title,
		Body:      props.Body,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return model.Entry{}, apperror.Infrastructure("save entry", err)
	}
	return *stored, nil
}

// GetWithChildren returns the entry with its direct children in creation order.
func (s *entryService) GetWithChildren(ctx context.Context, id string) (model.Entry, error) {
	if err := s.checkID(id); err != nil {
		return model.Entry{}, err
	}
	e, err := s.find(ctx, id)
	if err != nil {
		return model.Entry{}, err
	}
	children, err := s.repo.FindChildren(ctx, id)
	if err != nil {
		return model.Entry{}, apperror.Infrastructure("load children", err)
	}
	e.Children = children
	return *e, nil
}

// Remove deletes the attachments of the entry's whole subtree, then the entry itself.
// A storage failure leaves the rows in place so no stored object loses its reference.
func (s *entryService) Remove(ctx context.Context, id string) error {
	if err := s.checkID(id); err != nil {
		return err
	}
	if _, err := s.find(ctx, id); err != nil {
		return err
	}

	paths, err := s.repo.AttachmentPaths(ctx, id)
	if err != nil {
		return apperror.Infrastructure("list attachments", err)
	}
	for _, p := range paths {
		if err := s.store.Delete(ctx, p); err != nil {
			return apperror.Infrastructure("delete attachment", err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return apperror.Infrastructure("delete entry", err)
	}
	return nil
}

// List returns paginated root entries without exposing repository types.
func (s *entryService) List(ctx context.Context, limit, offset int) (*EntryListResult, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, apperror.Infrastructure("list entries", err)
	}
	return &EntryListResult{Items: res.Items, Total: res.Total}, nil
}

// Attach stores the upload under entries/<id>/<uuid><ext> and records it on the entry.
// The upload is rolled back when the record cannot be updated.
func (s *entryService) Attach(ctx context.Context, id string, r io.Reader, filename, contentType string, size int64) (*model.Entry, error) {
	if err := s.checkID(id); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperror.Validation("attachment content is required")
	}
	e, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	key := path.Join("entries", id, uuid.NewString()+filepath.Ext(filename))
	obj, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": filename,
		},
	})
	if err != nil {
		return nil, apperror.Infrastructure("upload to storage", err)
	}

	updatedAt := s.now()
	if err := s.repo.SetAttachment(ctx, id, obj.Key, updatedAt); err != nil {
		if delErr := s.store.Delete(ctx, obj.Key); delErr != nil {
			s.logger.Error("attachment rollback failed", "key", obj.Key, logging.KeyError, delErr)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("entry not found")
		}
		return nil, apperror.Infrastructure("save attachment", err)
	}

	if e.HasAttachment() && e.AttachmentPath != obj.Key {
		if err := s.store.Delete(ctx, e.AttachmentPath); err != nil {
			s.logger.Warn("previous attachment not deleted", "key", e.AttachmentPath, logging.KeyError, err)
		}
	}

	e.AttachmentPath = obj.Key
	e.UpdatedAt = updatedAt
	return e, nil
}

// AttachmentURL presigns a download URL for the entry's attachment.
func (s *entryService) AttachmentURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	if err := s.checkID(id); err != nil {
		return "", err
	}
	e, err := s.find(ctx, id)
	if err != nil {
		return "", err
	}
	if !e.HasAttachment() {
		return "", apperror.NotFound("entry has no attachment")
	}

	u, err := s.store.PresignGet(ctx, e.AttachmentPath, expiry)
	if err != nil {
		return "", apperror.Infrastructure("presign attachment", err)
	}
	return u, nil
}
