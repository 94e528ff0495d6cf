package validation

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Use(Middleware(Config{Logger: zap.NewNop()}))

	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }
	app.Post("/api/v1/match", ok)
	app.Post("/api/v1/responses", ok)
	app.Post("/api/v1/documents", ok)

	return app
}

func postJSON(app *fiber.App, path, body string) int {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	return resp.StatusCode
}

func TestMatchValidation(t *testing.T) {
	app := newTestApp()

	assert.Equal(t, fiber.StatusOK, postJSON(app, "/api/v1/match", `{"text":"potholes on my street"}`))
	assert.Equal(t, fiber.StatusBadRequest, postJSON(app, "/api/v1/match", `{"text":""}`))
	assert.Equal(t, fiber.StatusBadRequest, postJSON(app, "/api/v1/match", `{}`))
	assert.Equal(t, fiber.StatusBadRequest, postJSON(app, "/api/v1/match", `not json`))
	assert.Equal(t, fiber.StatusBadRequest, postJSON(app, "/api/v1/match",
		`{"text":"<script>alert(1)</script>"}`))
}

func TestMatchValidation_LengthLimit(t *testing.T) {
	app := newTestApp()

	long := strings.Repeat("x", 3000)
	assert.Equal(t, fiber.StatusBadRequest, postJSON(app, "/api/v1/match", `{"text":"`+long+`"}`))
}

func TestResponseValidation(t *testing.T) {
	app := newTestApp()

	assert.Equal(t, fiber.StatusOK, postJSON(app, "/api/v1/responses",
		`{"senatair_id":"alice","score":4}`))
	assert.Equal(t, fiber.StatusBadRequest, postJSON(app, "/api/v1/responses",
		`{"senatair_id":"alice","score":0}`))
	assert.Equal(t, fiber.StatusBadRequest, postJSON(app, "/api/v1/responses",
		`{"senatair_id":"alice","score":6}`))
	assert.Equal(t, fiber.StatusBadRequest, postJSON(app, "/api/v1/responses",
		`{"senatair_id":"alice","score":3.5}`))
	assert.Equal(t, fiber.StatusBadRequest, postJSON(app, "/api/v1/responses",
		`{"score":4}`))
}

func TestDocumentValidation(t *testing.T) {
	app := newTestApp()

	assert.Equal(t, fiber.StatusOK, postJSON(app, "/api/v1/documents",
		`{"title":"Water Act","body":"text"}`))
	assert.Equal(t, fiber.StatusBadRequest, postJSON(app, "/api/v1/documents",
		`{"body":"text"}`))
}

func TestContentTypeGate(t *testing.T) {
	app := newTestApp()

	req := httptest.NewRequest("POST", "/api/v1/match", strings.NewReader("text=hi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
}
