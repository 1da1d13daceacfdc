package handler

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"entryapi/internal/controller"
	"entryapi/internal/model"
	"entryapi/internal/service"
)

// Dependencies are the collaborators the HTTP routes are built from.
type Dependencies struct {
	DB      *sql.DB
	Entries service.EntryService
	// Gatherer backs /metrics; the route is skipped when nil.
	Gatherer prometheus.Gatherer
	// MetricsGuard runs before /metrics (e.g. basic auth); optional.
	MetricsGuard fiber.Handler
	// ErrorContinuation receives entry controller failures; Propagate when nil.
	ErrorContinuation controller.ErrorContinuation
	PresignExpiry     time.Duration
	// APIHost is the host advertised by the Swagger document; optional.
	APIHost string
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	app.Get("/health", HealthCheck(deps.DB))
	app.Get("/healthz", LivenessProbe())
	app.Get("/swagger/*", Swagger(deps.APIHost))

	if deps.Gatherer != nil {
		guard := deps.MetricsGuard
		if guard == nil {
			guard = func(c *fiber.Ctx) error { return c.Next() }
		}
		app.Get("/metrics", guard, Metrics(deps.Gatherer))
	}

	entries := controller.New[model.Entry](deps.Entries,
		controller.WithErrorContinuation(deps.ErrorContinuation),
	)
	app.Get("/entries", ListEntries(deps.Entries))
	entries.Register(app, "/entries")
	app.Post("/entries/:id/attachment", UploadAttachment(deps.Entries))
	app.Get("/entries/:id/attachment", AttachmentRedirect(deps.Entries, deps.PresignExpiry))
}

// HealthCheck checks DB connectivity only.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe answers 200 as long as the process serves requests.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// Metrics serves the Prometheus exposition format for g.
func Metrics(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// ListEntries lists root entries with limit & offset.
func ListEntries(svc service.EntryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// UploadAttachment stores the multipart field "file" as the entry's attachment.
func UploadAttachment(svc service.EntryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		e, err := svc.Attach(c.UserContext(), c.Params("id"), f, fh.Filename, ct, fh.Size)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(controller.Result[model.Entry]{Result: *e})
	}
}

// AttachmentRedirect redirects to a presigned download URL of the entry's attachment.
func AttachmentRedirect(svc service.EntryService, expiry time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := svc.AttachmentURL(c.UserContext(), c.Params("id"), expiry)
		if err != nil {
			return err
		}
		return c.Redirect(u, fiber.StatusTemporaryRedirect)
	}
}
