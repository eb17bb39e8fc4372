package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	appModels "github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/app/models/dto"
	"github.com/yigit/nodues/internal/app/repositories/memory"
	"github.com/yigit/nodues/internal/config"
	pkgAuth "github.com/yigit/nodues/internal/pkg/auth"
	"github.com/yigit/nodues/internal/seed"
)

const (
	testAdminPassword   = "admin-pass1"
	testOfficerPassword = "officer-pass1"
)

type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *dto.ErrorDetail `json:"error"`
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	cost := pkgAuth.BcryptCost
	pkgAuth.BcryptCost = bcrypt.MinCost
	t.Cleanup(func() { pkgAuth.BcryptCost = cost })

	cfg := &config.Config{}
	cfg.Server.Mode = "production"
	cfg.Server.StoragePath = t.TempDir()
	cfg.Server.BaseURL = "http://localhost:8080"
	cfg.Database.Driver = config.DriverMemory
	cfg.JWT.Secret = "router-test-secret"
	cfg.JWT.AccessTokenExpiration = "1h"
	cfg.JWT.Issuer = "nodues.test"
	cfg.Workflow.FinalStatus = config.FinalReadyForCollection
	cfg.Workflow.ReferenceCacheTTL = "1m"
	cfg.Workflow.MaxDocuments = 2
	cfg.Seed.Enabled = true
	cfg.Seed.AdminEmail = "admin@nodues.app"
	cfg.Seed.AdminPassword = testAdminPassword
	cfg.Seed.OfficerPassword = testOfficerPassword

	lgr := zerolog.Nop()
	store := memory.NewStore()
	require.NoError(t, SeedDefaults(context.Background(), cfg, store, lgr))

	deps, err := BuildDependencies(cfg, store, lgr)
	require.NoError(t, err)
	return &testAPI{t: t, router: SetupRouter(cfg, deps, lgr)}
}

func (a *testAPI) do(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.send(req, token)
}

func (a *testAPI) send(req *http.Request, token string) (int, envelope) {
	a.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (a *testAPI) submit(token string, fields map[string]string, documents ...string) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	for _, name := range documents {
		part, err := mw.CreateFormFile("documents", name)
		require.NoError(a.t, err)
		_, err = part.Write([]byte("%PDF-1.4 " + name))
		require.NoError(a.t, err)
	}
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/noduesform", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.send(req, token)
}

// raw serves a request whose body is not an API envelope
func (a *testAPI) raw(path, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (a *testAPI) registerStudent(studentID string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"studentId":  studentID,
		"name":       "Student " + studentID,
		"email":      strings.ToLower(studentID) + "@college.edu",
		"password":   "s3cretpass1",
		"course":     "BTech",
		"department": "CSE",
	})
	require.Equal(a.t, http.StatusCreated, code, env.Error)
	return decode[dto.AuthResponse](a.t, env).Token.AccessToken
}

func (a *testAPI) staffToken(email, password string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/v1/auth/staff/login", "", dto.LoginRequest{Email: email, Password: password})
	require.Equal(a.t, http.StatusOK, code, env.Error)
	return decode[dto.AuthResponse](a.t, env).Token.AccessToken
}

func formFor(studentID string) map[string]string {
	return map[string]string{
		"student_id":  studentID,
		"studentName": "Student " + studentID,
		"email":       strings.ToLower(studentID) + "@college.edu",
		"course":      "BTech",
		"department":  "CSE",
		"isHosteler":  "true",
		"hostelNo":    "H1",
		"reason":      "Graduation",
	}
}

func TestClearanceFlowOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	student := api.registerStudent("S1")
	library := api.staffToken(seed.OfficerEmail(appModels.UnitLibrary), testOfficerPassword)
	admin := api.staffToken("admin@nodues.app", testAdminPassword)

	code, env := api.submit(student, formFor("S1"), "fee-receipt.pdf")
	require.Equal(t, http.StatusCreated, code, env.Error)
	submitted := decode[dto.SubmitFormResponse](t, env).Request
	require.NotNil(t, submitted)
	assert.Equal(t, appModels.StatusPending, submitted.Status)
	assert.Len(t, submitted.Tracks, appModels.TrackCount)
	require.NotNil(t, submitted.Student)
	assert.Len(t, submitted.Student.Documents, 1)
	reqPath := fmt.Sprintf("/requests/%d", submitted.ID)

	code, env = api.submit(student, formFor("S1"))
	require.Equal(t, http.StatusConflict, code)
	assert.Equal(t, dto.ErrorCodeActiveRequestExists, env.Error.Code)

	// Library asks a question, the student answers it
	code, env = api.do(http.MethodPost, "/api/v1/units/Library"+reqPath+"/queries", library, dto.RaiseQueryRequest{Message: "Return overdue books"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	query := decode[appModels.Query](t, env)

	code, env = api.do(http.MethodGet, "/api/v1/approvalstatus/S1", student, nil)
	require.Equal(t, http.StatusOK, code)
	statuses := decode[[]appModels.UnitStatus](t, env)
	assert.Equal(t, appModels.UnitStatus{Unit: appModels.UnitLibrary, Status: appModels.LabelQueryRaised}, statuses[2])

	code, env = api.do(http.MethodPut, "/api/v1/resolveQuery/S1/library", student, dto.ResolveQueryRequest{QueryID: query.ID, Response: "Returned"})
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, appModels.QueryResolved, decode[appModels.Query](t, env).Status)

	code, env = api.do(http.MethodGet, "/api/v1/queries/S1", student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]appModels.Query](t, env))

	// Library approves its own track, then the admin clears the rest
	code, env = api.do(http.MethodPost, "/api/v1/units/Library"+reqPath+"/approve", library, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, appModels.StatusInProgress, decode[appModels.Request](t, env).Status)

	code, env = api.do(http.MethodGet, "/api/v1/tracker/S1", student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 17, decode[appModels.ProgressSummary](t, env).ProgressPercentage)

	code, env = api.do(http.MethodPost, "/api/v1/admin"+reqPath+"/approve-all", admin, nil)
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = api.do(http.MethodGet, "/api/v1/finalStatus/S1", student, nil)
	require.Equal(t, http.StatusOK, code)
	view := decode[appModels.FinalStatusView](t, env)
	assert.Equal(t, appModels.StatusReadyForCollection, view.Status)
	require.NotNil(t, view.Final)

	code, env = api.do(http.MethodPost, "/api/v1/units/Library"+reqPath+"/approve", library, nil)
	require.Equal(t, http.StatusConflict, code)
	assert.Equal(t, dto.ErrorCodeInvalidTransition, env.Error.Code)

	code, env = api.do(http.MethodGet, "/api/v1/history/S1", student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]appModels.RequestSummary](t, env), 1)
}

func TestAccessControl(t *testing.T) {
	api := newTestAPI(t)
	s1 := api.registerStudent("S1")
	s2 := api.registerStudent("S2")
	hostel := api.staffToken(seed.OfficerEmail(appModels.UnitHostel), testOfficerPassword)

	code, env := api.submit(s1, formFor("S1"))
	require.Equal(t, http.StatusCreated, code, env.Error)
	reqPath := fmt.Sprintf("/requests/%d", decode[dto.SubmitFormResponse](t, env).Request.ID)

	code, _ = api.do(http.MethodGet, "/api/v1/approvalstatus/S1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = api.do(http.MethodGet, "/api/v1/approvalstatus/S1", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = api.do(http.MethodGet, "/api/v1/approvalstatus/S1", s2, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, dto.ErrorCodeForbidden, env.Error.Code)

	code, _ = api.submit(s2, formFor("S1"))
	assert.Equal(t, http.StatusForbidden, code, "students submit only for themselves")

	code, _ = api.do(http.MethodPost, "/api/v1/units/Library"+reqPath+"/approve", hostel, nil)
	assert.Equal(t, http.StatusForbidden, code, "officers act only for their own unit")

	code, _ = api.do(http.MethodPost, "/api/v1/units/Library"+reqPath+"/approve", s1, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(http.MethodPost, "/api/v1/admin"+reqPath+"/approve-all", hostel, nil)
	assert.Equal(t, http.StatusForbidden, code)

	// staff may read any student
	code, _ = api.do(http.MethodGet, "/api/v1/approvalstatus/S1", hostel, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodGet, "/api/v1/units/Hostel/requests", hostel, nil)
	require.Equal(t, http.StatusOK, code)
	queue := decode[dto.QueueResponse](t, env)
	assert.Len(t, queue.Items, 1)
	assert.EqualValues(t, 1, queue.Pagination.TotalItems)
}

func TestAttachmentsRequireOwnerOrStaff(t *testing.T) {
	api := newTestAPI(t)
	s1 := api.registerStudent("S1")
	s2 := api.registerStudent("S2")
	hostel := api.staffToken(seed.OfficerEmail(appModels.UnitHostel), testOfficerPassword)

	code, env := api.submit(s1, formFor("S1"), "fee-receipt.pdf")
	require.Equal(t, http.StatusCreated, code, env.Error)
	docs := decode[dto.SubmitFormResponse](t, env).Request.Student.Documents
	require.Len(t, docs, 1)
	url := strings.TrimPrefix(docs[0].Filename, "http://localhost:8080")
	require.True(t, strings.HasPrefix(url, "/api/v1/uploads/students/S1/documents/"), url)

	w := api.raw(url, s1)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4 fee-receipt.pdf", w.Body.String())

	assert.Equal(t, http.StatusOK, api.raw(url, hostel).Code, "staff may read any student")
	assert.Equal(t, http.StatusForbidden, api.raw(url, s2).Code)
	assert.Equal(t, http.StatusUnauthorized, api.raw(url, "").Code)
	assert.Equal(t, http.StatusOK, api.raw(url+"?token="+s1, "").Code, "token in the query for links")

	// S2 may read their own folder, which does not hold S1's file
	other := strings.Replace(url, "/students/S1/", "/students/S2/", 1)
	assert.Equal(t, http.StatusNotFound, api.raw(other, s2).Code)

	// nothing is served outside the authorized route
	assert.Equal(t, http.StatusNotFound, api.raw(strings.TrimPrefix(url, "/api/v1"), "").Code)
}

func TestRequestErrors(t *testing.T) {
	api := newTestAPI(t)
	student := api.registerStudent("S1")
	admin := api.staffToken("admin@nodues.app", testAdminPassword)

	code, env := api.do(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "s1@college.edu", Password: "wrong-pass1"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, dto.ErrorCodeInvalidCredentials, env.Error.Code)

	form := formFor("S1")
	delete(form, "course")
	code, env = api.submit(student, form)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, dto.ErrorCodeValidationFailed, env.Error.Code)

	form = formFor("S1")
	form["department"] = "XYZ"
	code, env = api.submit(student, form)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, dto.ErrorCodeReferenceNotFound, env.Error.Code)

	code, _ = api.submit(student, formFor("S1"), "a.pdf", "b.pdf", "c.pdf")
	assert.Equal(t, http.StatusBadRequest, code, "document limit")

	code, _ = api.do(http.MethodPost, "/api/v1/units/Canteen/requests/1/approve", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(http.MethodPost, "/api/v1/units/Library/requests/abc/approve", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = api.do(http.MethodPost, "/api/v1/units/Library/requests/99/approve", admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, dto.ErrorCodeResourceNotFound, env.Error.Code)

	code, _ = api.do(http.MethodGet, "/api/v1/finalStatus/S1", student, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = api.do(http.MethodGet, "/api/v1/admin/requests?status=Lost", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPublicEndpoints(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(http.MethodGet, "/api/v1/reference", "", nil)
	require.Equal(t, http.StatusOK, code)
	refs := decode[dto.ReferenceDataResponse](t, env)
	assert.Len(t, refs.Departments, 6)
	assert.Len(t, refs.Hostels, 3)
	assert.Len(t, refs.Units, appModels.TrackCount)

	code, _ = api.do(http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
