package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entryapi/internal/apperror"
	"entryapi/internal/logging"
)

var errTest = errors.New("test error")

type testEntry struct {
	Title string `json:"title"`
}

// testModel accepts titled entries and numeric ids, and rejects everything else with errTest.
type testModel struct {
	mu      sync.Mutex
	gotIDs  []string
	created []testEntry
}

func (m *testModel) Create(_ context.Context, props testEntry) (testEntry, error) {
	if props.Title == "" {
		return testEntry{}, errTest
	}
	m.mu.Lock()
	m.created = append(m.created, props)
	m.mu.Unlock()
	return props, nil
}

func (m *testModel) GetWithChildren(_ context.Context, id string) (testEntry, error) {
	m.record(id)
	if _, err := strconv.Atoi(id); err != nil {
		return testEntry{}, errTest
	}
	return testEntry{Title: "test entry"}, nil
}

func (m *testModel) Remove(_ context.Context, id string) error {
	m.record(id)
	if _, err := strconv.Atoi(id); err != nil {
		return errTest
	}
	return nil
}

func (m *testModel) record(id string) {
	m.mu.Lock()
	m.gotIDs = append(m.gotIDs, id)
	m.mu.Unlock()
}

// continuationSpy records every failure and answers 418 so tests can tell it apart from a handler write.
type continuationSpy struct {
	mu    sync.Mutex
	calls []error
}

func (s *continuationSpy) next(c *fiber.Ctx, err error) error {
	s.mu.Lock()
	s.calls = append(s.calls, err)
	s.mu.Unlock()
	return c.SendStatus(fiber.StatusTeapot)
}

func newTestApp(m Model[testEntry], opts ...Option) *fiber.App {
	app := fiber.New()
	New[testEntry](m, opts...).Register(app, "/entries")
	return app
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestBaseController_Create(t *testing.T) {
	t.Run("responds 201 with created entry", func(t *testing.T) {
		m := &testModel{}
		spy := &continuationSpy{}
		app := newTestApp(m, WithErrorContinuation(spy.next))

		resp, err := app.Test(jsonRequest(http.MethodPost, "/entries", `{"title":"test"}`))
		require.NoError(t, err)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.JSONEq(t, `{"result":{"title":"test"}}`, readBody(t, resp))
		assert.Equal(t, []testEntry{{Title: "test"}}, m.created)
		assert.Empty(t, spy.calls)
	})

	t.Run("forwards model rejection to continuation", func(t *testing.T) {
		spy := &continuationSpy{}
		app := newTestApp(&testModel{}, WithErrorContinuation(spy.next))

		resp, err := app.Test(jsonRequest(http.MethodPost, "/entries", `{}`))
		require.NoError(t, err)

		require.Len(t, spy.calls, 1)
		assert.Same(t, errTest, spy.calls[0])
		assert.Equal(t, http.StatusTeapot, resp.StatusCode)
		assert.Equal(t, "I'm a teapot", readBody(t, resp))
	})

	t.Run("body that is not an object is a validation failure", func(t *testing.T) {
		m := &testModel{}
		spy := &continuationSpy{}
		app := newTestApp(m, WithErrorContinuation(spy.next))

		resp, err := app.Test(jsonRequest(http.MethodPost, "/entries", `["test"]`))
		require.NoError(t, err)

		require.Len(t, spy.calls, 1)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(spy.calls[0]))
		assert.Equal(t, http.StatusTeapot, resp.StatusCode)
		assert.Empty(t, m.created)
	})
}

func TestBaseController_Get(t *testing.T) {
	t.Run("responds 200 with entry by id", func(t *testing.T) {
		m := &testModel{}
		app := newTestApp(m)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/entries/3", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"result":{"title":"test entry"}}`, readBody(t, resp))
		assert.Equal(t, []string{"3"}, m.gotIDs)
	})

	t.Run("forwards model rejection without writing a response", func(t *testing.T) {
		spy := &continuationSpy{}
		app := newTestApp(&testModel{}, WithErrorContinuation(spy.next))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/entries/false", nil))
		require.NoError(t, err)

		require.Len(t, spy.calls, 1)
		assert.ErrorIs(t, spy.calls[0], errTest)
		assert.Equal(t, http.StatusTeapot, resp.StatusCode)
		assert.Equal(t, "I'm a teapot", readBody(t, resp))
	})
}

func TestBaseController_Remove(t *testing.T) {
	t.Run("responds 204 with empty body", func(t *testing.T) {
		m := &testModel{}
		spy := &continuationSpy{}
		app := newTestApp(m, WithErrorContinuation(spy.next))

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/entries/5", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Empty(t, readBody(t, resp))
		assert.Equal(t, []string{"5"}, m.gotIDs)
		assert.Empty(t, spy.calls)
	})

	t.Run("forwards model rejection exactly once", func(t *testing.T) {
		spy := &continuationSpy{}
		app := newTestApp(&testModel{}, WithErrorContinuation(spy.next))

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/entries/false", nil))
		require.NoError(t, err)

		require.Len(t, spy.calls, 1)
		assert.Same(t, errTest, spy.calls[0])
		assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	})
}

func TestPropagate(t *testing.T) {
	var handled []error
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			handled = append(handled, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		},
	})
	New[testEntry](&testModel{}).Register(app, "/entries")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/entries/nan", nil))
	require.NoError(t, err)

	require.Len(t, handled, 1)
	assert.Same(t, errTest, handled[0])
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.JSONEq(t, `{"error":"test error"}`, readBody(t, resp))
}

func TestDiscard(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "info", nil)
	app := newTestApp(&testModel{}, WithErrorContinuation(Discard(logger)))

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/entries/nan", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, readBody(t, resp))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "controller", entry[logging.KeyComponent])
	assert.Equal(t, "test error", entry[logging.KeyError])
	assert.Equal(t, string(apperror.KindInfrastructure), entry["kind"])
	assert.Equal(t, "/entries/nan", entry["path"])
}

func TestNew_NilModel(t *testing.T) {
	assert.Panics(t, func() { New[testEntry](nil) })
}

func TestWithErrorContinuation_NilKeepsDefault(t *testing.T) {
	bc := New[testEntry](&testModel{}, WithErrorContinuation(nil))
	require.NotNil(t, bc.next)
	assert.Same(t, errTest, bc.next(nil, errTest))
}

func TestBaseController_ConcurrentRequests(t *testing.T) {
	m := &testModel{}
	spy := &continuationSpy{}
	app := newTestApp(m, WithErrorContinuation(spy.next))

	type outcome struct {
		wantStatus int
		wantBody   string
		gotStatus  int
		gotBody    string
		err        error
	}

	const n = 60
	outcomes := make([]outcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		var req *http.Request
		o := &outcomes[i]
		switch i % 6 {
		case 0:
			title := "entry-" + strconv.Itoa(i)
			req = jsonRequest(http.MethodPost, "/entries", `{"title":"`+title+`"}`)
			o.wantStatus, o.wantBody = http.StatusCreated, `{"result":{"title":"`+title+`"}}`
		case 1:
			req = jsonRequest(http.MethodPost, "/entries", `{}`)
			o.wantStatus, o.wantBody = http.StatusTeapot, "I'm a teapot"
		case 2:
			req = httptest.NewRequest(http.MethodGet, "/entries/"+strconv.Itoa(i), nil)
			o.wantStatus, o.wantBody = http.StatusOK, `{"result":{"title":"test entry"}}`
		case 3:
			req = httptest.NewRequest(http.MethodGet, "/entries/bad-"+strconv.Itoa(i), nil)
			o.wantStatus, o.wantBody = http.StatusTeapot, "I'm a teapot"
		case 4:
			req = httptest.NewRequest(http.MethodDelete, "/entries/"+strconv.Itoa(i), nil)
			o.wantStatus, o.wantBody = http.StatusNoContent, ""
		case 5:
			req = httptest.NewRequest(http.MethodDelete, "/entries/bad-"+strconv.Itoa(i), nil)
			o.wantStatus, o.wantBody = http.StatusTeapot, "I'm a teapot"
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := app.Test(req, -1)
			if err != nil {
				o.err = err
				return
			}
			defer resp.Body.Close()
			b, err := io.ReadAll(resp.Body)
			o.gotStatus, o.gotBody, o.err = resp.StatusCode, string(b), err
		}()
	}
	wg.Wait()

	failures := 0
	for i, o := range outcomes {
		require.NoError(t, o.err, "request %d", i)
		assert.Equal(t, o.wantStatus, o.gotStatus, "request %d", i)
		if strings.HasPrefix(o.wantBody, "{") {
			assert.JSONEq(t, o.wantBody, o.gotBody, "request %d", i)
		} else {
			assert.Equal(t, o.wantBody, o.gotBody, "request %d", i)
		}
		if o.wantStatus == http.StatusTeapot {
			failures++
		}
	}

	spy.mu.Lock()
	defer spy.mu.Unlock()
	assert.Len(t, spy.calls, failures)
	for _, err := range spy.calls {
		assert.Same(t, errTest, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Len(t, m.created, n/6)
	assert.Len(t, m.gotIDs, 4*n/6)
}
