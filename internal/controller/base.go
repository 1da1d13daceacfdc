// Package controller provides a generic create/get/remove HTTP controller that
// delegates to a Model and formats every success response the same way.
package controller

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"entryapi/internal/apperror"
	"entryapi/internal/logging"
)

// Model is the data-access collaborator a concrete controller supplies.
type Model[T any] interface {
	// Create stores props and returns the created entity.
	Create(ctx context.Context, props T) (T, error)
	// GetWithChildren returns the entity identified by id together with its children.
	GetWithChildren(ctx context.Context, id string) (T, error)
	// Remove deletes the entity identified by id.
	Remove(ctx context.Context, id string) error
}

// Result is the JSON envelope of create and get responses.
type Result[T any] struct {
	Result T `json:"result"`
}

// ErrorContinuation receives a failed request and the Model's failure reason, unchanged.
// Its return value becomes the handler's return value.
type ErrorContinuation func(c *fiber.Ctx, err error) error

// Propagate hands the failure back to Fiber so the application ErrorHandler renders it.
func Propagate(_ *fiber.Ctx, err error) error {
	return err
}

// Discard logs the failure and writes nothing.
func Discard(logger *slog.Logger) ErrorContinuation {
	logger = logging.Component(logger, "controller")
	return func(c *fiber.Ctx, err error) error {
		logger.Warn("request failed, error discarded",
			"method", c.Method(),
			"path", c.Path(),
			"kind", string(apperror.KindOf(err)),
			logging.KeyError, err,
		)
		return nil
	}
}

// Option configures a BaseController.
type Option func(*options)

type options struct {
	next ErrorContinuation
}

// WithErrorContinuation replaces the default Propagate continuation.
func WithErrorContinuation(next ErrorContinuation) Option {
	return func(o *options) {
		if next != nil {
			o.next = next
		}
	}
}

// BaseController maps POST/GET/DELETE onto Model.Create/GetWithChildren/Remove.
// It holds no per-request state and is safe for concurrent use.
type BaseController[T any] struct {
	model Model[T]
	next  ErrorContinuation
}

// New builds a controller around model. It panics if model is nil.
func New[T any](model Model[T], opts ...Option) *BaseController[T] {
	if model == nil {
		panic("controller: nil model")
	}
	o := options{next: Propagate}
	for _, opt := range opts {
		opt(&o)
	}
	return &BaseController[T]{model: model, next: o.next}
}

// Register mounts the handlers on r: POST path, GET path/:id and DELETE path/:id.
func (bc *BaseController[T]) Register(r fiber.Router, path string) {
	r.Post(path, bc.Create)
	r.Get(path+"/:id", bc.Get)
	r.Delete(path+"/:id", bc.Remove)
}

// Create decodes the body into T and responds 201 with the created entity.
func (bc *BaseController[T]) Create(c *fiber.Ctx) error {
	var props T
	if err := c.BodyParser(&props); err != nil {
		return bc.next(c, apperror.Wrap(apperror.KindValidation, "invalid request body", err))
	}

	created, err := bc.model.Create(c.UserContext(), props)
	if err != nil {
		return bc.next(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(Result[T]{Result: created})
}

// Get responds 200 with the entity named by the id path parameter.
func (bc *BaseController[T]) Get(c *fiber.Ctx) error {
	entity, err := bc.model.GetWithChildren(c.UserContext(), c.Params("id"))
	if err != nil {
		return bc.next(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(Result[T]{Result: entity})
}

// Remove deletes the entity named by the id path parameter and responds 204.
func (bc *BaseController[T]) Remove(c *fiber.Ctx) error {
	if err := bc.model.Remove(c.UserContext(), c.Params("id")); err != nil {
		return bc.next(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
