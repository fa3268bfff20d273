package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"irrad-data/internal/blob"
	"irrad-data/internal/config"
	"irrad-data/internal/domain"
	"irrad-data/internal/repository"
	"irrad-data/internal/service"
)

type apiFixture struct {
	repos   *repository.Repos
	handler http.Handler
}

func newAPI(t *testing.T, dev config.DevUserConfig) *apiFixture {
	t.Helper()
	repos := repository.NewMemoryRepos()
	svc := service.New(&service.Deps{
		Repos:  repos,
		Blob:   blob.NewMemory(),
		Logger: zap.NewNop(),
		Now:    func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) },
	})
	_, err := repos.Users.CreateUser(context.Background(), &domain.User{Email: "admin@cern.ch", Role: domain.RoleAdmin})
	require.NoError(t, err)

	router := NewRouter(zap.NewNop())
	router.RegisterSystemRoutes()
	router.RegisterAPIRoutes(svc)
	return &apiFixture{
		repos:   repos,
		handler: NewIdentify(svc.Users, dev, zap.NewNop()).Wrap(router),
	}
}

func (a *apiFixture) do(t *testing.T, method, path, email string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if email != "" {
		req.Header.Set(headerEmail, email)
		req.Header.Set(headerFirstName, "Test")
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func experimentBody(title string) service.ExperimentInput {
	return service.ExperimentInput{
		Title:           title,
		Description:     "Displacement damage in silicon sensors",
		CERNExperiment:  "CMS",
		EmergencyPhone:  "+41 22 767 0000",
		Availability:    "2026-04-01",
		IrradiationType: "Protons",
		NumberSamples:   2,
		Category:        service.CategoryInput{Kind: domain.CategoryPassiveStandard, Area10x10: true},
		ReqFluences:     []string{"1e15"},
		Materials:       []string{"Silicon"},
	}
}

func (a *apiFixture) createExperiment(t *testing.T, email, title string) int64 {
	t.Helper()
	rr := a.do(t, http.MethodPost, "/api/v1/experiments", email, experimentBody(title))
	require.Equal(t, http.StatusOK, rr.Code)
	env := decode(t, rr)
	require.True(t, env.FormIsValid, env.AlertMessage)
	result, ok := env.Result.(map[string]any)
	require.True(t, ok)
	return int64(result["id"].(float64))
}

func TestHealthz(t *testing.T) {
	a := newAPI(t, config.DevUserConfig{})
	rr := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(headerRequestID))

	rr = a.do(t, http.MethodPost, "/healthz", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestAnonymousRequestIsForbidden(t *testing.T) {
	a := newAPI(t, config.DevUserConfig{})
	rr := a.do(t, http.MethodGet, "/api/v1/experiments", "", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.False(t, decode(t, rr).FormIsValid)

	rr = a.do(t, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestDevUserFallback(t *testing.T) {
	a := newAPI(t, config.DevUserConfig{Enabled: true, Email: "dev@cern.ch", Name: "Dev"})
	rr := a.do(t, http.MethodGet, "/api/v1/me", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	env := decode(t, rr)
	me := env.Result.(map[string]any)
	assert.Equal(t, "dev@cern.ch", me["email"])

	u, err := a.repos.Users.GetUserByEmail(context.Background(), "dev@cern.ch")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)
}

func TestCreateExperimentEnvelope(t *testing.T) {
	a := newAPI(t, config.DevUserConfig{})
	rr := a.do(t, http.MethodPost, "/api/v1/experiments", "alice@cern.ch", experimentBody("Sensors 2026"))
	require.Equal(t, http.StatusOK, rr.Code)
	env := decode(t, rr)
	assert.True(t, env.FormIsValid)
	assert.Equal(t, service.MsgExperimentCreated, env.AlertMessage)

	// validation failures stay on 200 with form_is_valid=false
	rr = a.do(t, http.MethodPost, "/api/v1/experiments", "alice@cern.ch", experimentBody("Sensors 2026"))
	require.Equal(t, http.StatusOK, rr.Code)
	env = decode(t, rr)
	assert.False(t, env.FormIsValid)
	assert.Equal(t, service.MsgTitleNotUnique, env.AlertMessage)

	rr = a.do(t, http.MethodPost, "/api/v1/experiments", "alice@cern.ch", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = a.do(t, http.MethodDelete, "/api/v1/experiments", "alice@cern.ch", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestValidateExperimentPermissions(t *testing.T) {
	a := newAPI(t, config.DevUserConfig{})
	id := a.createExperiment(t, "alice@cern.ch", "Needs validation")
	path := fmt.Sprintf("/api/v1/experiments/%d/validate", id)

	rr := a.do(t, http.MethodPost, path, "alice@cern.ch", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = a.do(t, http.MethodPost, path, "admin@cern.ch", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, service.MsgExperimentValidated, decode(t, rr).AlertMessage)

	rr = a.do(t, http.MethodGet, path, "admin@cern.ch", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	// the owner reads it, an outsider does not
	detail := fmt.Sprintf("/api/v1/experiments/%d", id)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, detail, "alice@cern.ch", nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, detail, "bob@cern.ch", nil).Code)
}

func TestNotFoundRoutes(t *testing.T) {
	a := newAPI(t, config.DevUserConfig{})
	for _, path := range []string{
		"/api/v1/experiments/999",
		"/api/v1/experiments/abc",
		"/api/v1/experiments/1/unknown",
		"/api/v1/boxes/0",
		"/api/v1/reports/crates",
	} {
		rr := a.do(t, http.MethodGet, path, "admin@cern.ch", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
	}
}

func TestBoxRoutes(t *testing.T) {
	a := newAPI(t, config.DevUserConfig{})

	rr := a.do(t, http.MethodGet, "/api/v1/boxes/next-id", "alice@cern.ch", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = a.do(t, http.MethodGet, "/api/v1/boxes/next-id", "admin@cern.ch", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	next := decode(t, rr).Result.(map[string]any)
	assert.Equal(t, "BOX-000001", next["box_id"])

	rr = a.do(t, http.MethodPost, "/api/v1/boxes", "admin@cern.ch", service.BoxInput{BoxID: "crate"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, service.MsgIncorrectBoxIDFormat, decode(t, rr).AlertMessage)

	rr = a.do(t, http.MethodPost, "/api/v1/boxes", "admin@cern.ch", service.BoxInput{})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode(t, rr).FormIsValid)

	rr = a.do(t, http.MethodGet, "/api/v1/boxes", "admin@cern.ch", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode(t, rr).Result.(map[string]any)
	assert.Equal(t, float64(1), page["total"])
}

func TestReportDownload(t *testing.T) {
	a := newAPI(t, config.DevUserConfig{})

	rr := a.do(t, http.MethodGet, "/api/v1/reports/boxes", "alice@cern.ch", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = a.do(t, http.MethodGet, "/api/v1/reports/boxes", "admin@cern.ch", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, service.ContentTypeXLSX, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "boxes_20260310_120000.xlsx")
	assert.NotZero(t, rr.Body.Len())
}

func TestAttachmentRoutes(t *testing.T) {
	a := newAPI(t, config.DevUserConfig{})
	id := a.createExperiment(t, "alice@cern.ch", "With files")

	var body bytes.Buffer
	mw := multipartWriter(t, &body, "notes.txt", "beam plan")
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/experiments/%d/attachments", id), &body)
	req.Header.Set("Content-Type", mw)
	req.Header.Set(headerEmail, "alice@cern.ch")
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	uploaded := decode(t, rr).Result.(map[string]any)
	assert.Equal(t, "notes.txt", uploaded["name"])

	rr = a.do(t, http.MethodGet, uploaded["url"].(string), "alice@cern.ch", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "beam plan", rr.Body.String())

	rr = a.do(t, http.MethodGet, uploaded["url"].(string), "bob@cern.ch", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

// multipartWriter writes a one-file form into body and returns its content type.
func multipartWriter(t *testing.T, body *bytes.Buffer, name, content string) string {
	t.Helper()
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return mw.FormDataContentType()
}
