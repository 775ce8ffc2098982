package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tfprivate/tfregistry/internal/registry"
	"github.com/tfprivate/tfregistry/internal/service"
	"github.com/tfprivate/tfregistry/internal/service/mocks"
	storagemocks "github.com/tfprivate/tfregistry/internal/storage/mocks"
	"github.com/tfprivate/tfregistry/internal/validator"
)

func newTestRouter(t *testing.T) (http.Handler, *mocks.MockRegistryService) {
	t.Helper()

	ctrl := gomock.NewController(t)
	svc := mocks.NewMockRegistryService(ctrl)
	return Router(svc, nil), svc
}

func doRequest(router http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestListModules(t *testing.T) {
	t.Parallel()

	router, svc := newTestRouter(t)

	next := 2
	svc.EXPECT().ListModules(gomock.Any(), "acme", 2, 0).Return(&service.ModulePage{
		Modules: []registry.ModuleInfo{
			{Name: "alpha", Version: "1.0.0"},
			{Name: "beta", Version: "2.1.0"},
		},
		Limit:         2,
		CurrentOffset: 0,
		NextOffset:    &next,
		TotalCount:    3,
	}, nil)

	rr := doRequest(router, http.MethodGet, "/modules/acme?limit=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp ListModulesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Meta.Limit)
	assert.Equal(t, 0, resp.Meta.CurrentOffset)
	require.NotNil(t, resp.Meta.NextOffset)
	assert.Equal(t, 2, *resp.Meta.NextOffset)
	assert.Equal(t, "/v1/modules/acme?limit=2&offset=2", resp.Meta.NextURL)
	require.Len(t, resp.Modules, 2)
	assert.Equal(t, "alpha", resp.Modules[0].Name)
	assert.NotContains(t, rr.Body.String(), "gamma")
}

func TestListModulesLastPage(t *testing.T) {
	t.Parallel()

	router, svc := newTestRouter(t)

	svc.EXPECT().ListModules(gomock.Any(), "acme", 2, 2).Return(&service.ModulePage{
		Modules:       []registry.ModuleInfo{{Name: "gamma", Version: "0.1.0"}},
		Limit:         2,
		CurrentOffset: 2,
		TotalCount:    3,
	}, nil)

	rr := doRequest(router, http.MethodGet, "/modules/acme?limit=2&offset=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	assert.Contains(t, string(raw["meta"]), `"next_offset":null`)
}

func TestListModulesEmptyNamespace(t *testing.T) {
	t.Parallel()

	router, svc := newTestRouter(t)

	svc.EXPECT().ListModules(gomock.Any(), "empty", 0, 0).Return(&service.ModulePage{
		Limit:         service.DefaultListLimit,
		CurrentOffset: 0,
	}, nil)

	rr := doRequest(router, http.MethodGet, "/modules/empty", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"modules":[]`)
}

func TestListModulesInvalidLimit(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	rr := doRequest(router, http.MethodGet, "/modules/acme?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "limit")
}

func TestListModulesServiceFailure(t *testing.T) {
	t.Parallel()

	router, svc := newTestRouter(t)

	svc.EXPECT().ListModules(gomock.Any(), "acme", 0, 0).
		Return(nil, assert.AnError)

	rr := doRequest(router, http.MethodGet, "/modules/acme", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"errors":["internal server error"]}`, rr.Body.String())
}

func TestGetLatestVersion(t *testing.T) {
	t.Parallel()

	router, svc := newTestRouter(t)

	svc.EXPECT().GetLatestDownloadURL(gomock.Any(), "acme", "vpc").
		Return("https://store.example/acme/vpc/v1.1.0/module.tgz?sig=abc", "1.1.0", nil)

	rr := doRequest(router, http.MethodGet, "/module/acme/vpc", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Contains(t, rr.Header().Get("X-Terraform-Get"), "v1.1.0")
	assert.Empty(t, rr.Body.String())
}

func TestGetLatestVersionNotFound(t *testing.T) {
	t.Parallel()

	router, svc := newTestRouter(t)

	svc.EXPECT().GetLatestDownloadURL(gomock.Any(), "acme", "ghost").
		Return("", "", service.ErrModuleNotFound)

	rr := doRequest(router, http.MethodGet, "/module/acme/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"errors":["module not found"]}`, rr.Body.String())
}

func TestGetVersion(t *testing.T) {
	t.Parallel()

	router, svc := newTestRouter(t)

	svc.EXPECT().GetDownloadURL(gomock.Any(), "acme", "vpc", "1.0.0").
		Return("https://store.example/signed", nil)

	rr := doRequest(router, http.MethodGet, "/module/acme/vpc/1.0.0", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://store.example/signed", rr.Header().Get("X-Terraform-Get"))
}

func TestGetVersionRejectsBadGrammar(t *testing.T) {
	t.Parallel()

	// The service must not be called for a malformed version.
	router, _ := newTestRouter(t)

	for _, version := range []string{"v1.0.0", "1.0", "1.0.0-beta", "latest"} {
		rr := doRequest(router, http.MethodGet, "/module/acme/vpc/"+version, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "version %q", version)
		assert.Contains(t, rr.Body.String(), "MAJOR.MINOR.PATCH")
	}
}

func TestListVersions(t *testing.T) {
	t.Parallel()

	router, svc := newTestRouter(t)

	svc.EXPECT().ListVersions(gomock.Any(), "acme", "vpc").
		Return([]string{"1.0.0", "1.0.1", "1.1.0"}, nil)

	rr := doRequest(router, http.MethodGet, "/modules/acme/vpc/versions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t,
		`{"modules":[{"versions":[{"version":"1.0.0"},{"version":"1.0.1"},{"version":"1.1.0"}]}]}`,
		rr.Body.String())
}

func TestListVersionsNotFound(t *testing.T) {
	t.Parallel()

	router, svc := newTestRouter(t)

	svc.EXPECT().ListVersions(gomock.Any(), "acme", "ghost").
		Return(nil, service.ErrModuleNotFound)

	rr := doRequest(router, http.MethodGet, "/modules/acme/ghost/versions", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUploadRawBody(t *testing.T) {
	t.Parallel()

	router, svc := newTestRouter(t)
	payload := []byte("archive bytes")

	svc.EXPECT().
		Upload(gomock.Any(), "acme", "vpc", "1.0.0", gomock.Any(), service.UploadMetadata{}).
		DoAndReturn(func(_ context.Context, _, _, _ string, archive io.Reader, _ service.UploadMetadata) error {
			data, err := io.ReadAll(archive)
			require.NoError(t, err)
			assert.Equal(t, payload, data)
			return nil
		})

	rr := doRequest(router, http.MethodPost, "/module/acme/vpc/1.0.0", bytes.NewReader(payload))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "uploaded")
}

func TestUploadRawBodyExceedsCap(t *testing.T) {
	t.Parallel()

	// The size cap trips inside the service's body read on the raw-body
	// path, so the real service is wired over a mocked store to prove the
	// failure still surfaces as a client error.
	ctrl := gomock.NewController(t)
	store := storagemocks.NewMockObjectStore(ctrl)
	store.EXPECT().Exists(gomock.Any(), "acme/vpc/v1.0.0/module.tgz").Return(false, nil)

	svc := service.New(store, &validator.ArchiveValidator{ScratchDir: t.TempDir()})
	router := Router(svc, nil)

	oversized := bytes.NewReader(make([]byte, validator.MaxArchiveSize+1))
	rr := doRequest(router, http.MethodPost, "/module/acme/vpc/1.0.0", oversized)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "maximum size")
}

func TestUploadMultipart(t *testing.T) {
	t.Parallel()

	router, svc := newTestRouter(t)
	payload := []byte("archive bytes")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "module.tgz")
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("description", "VPC module"))
	require.NoError(t, mw.Close())

	svc.EXPECT().
		Upload(gomock.Any(), "acme", "vpc", "1.0.0", gomock.Any(),
			service.UploadMetadata{Description: "VPC module"}).
		DoAndReturn(func(_ context.Context, _, _, _ string, archive io.Reader, _ service.UploadMetadata) error {
			data, err := io.ReadAll(archive)
			require.NoError(t, err)
			assert.Equal(t, payload, data)
			return nil
		})

	req := httptest.NewRequest(http.MethodPost, "/module/acme/vpc/1.0.0", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUploadMultipartMissingFileField(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/module/acme/vpc/1.0.0", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "file")
}

func TestUploadConflict(t *testing.T) {
	t.Parallel()

	router, svc := newTestRouter(t)

	svc.EXPECT().
		Upload(gomock.Any(), "acme", "vpc", "1.0.0", gomock.Any(), gomock.Any()).
		Return(service.ErrVersionAlreadyExists)

	rr := doRequest(router, http.MethodPost, "/module/acme/vpc/1.0.0",
		bytes.NewReader([]byte("archive")))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"errors":["module version already exists"]}`, rr.Body.String())
}

func TestUploadValidationFailure(t *testing.T) {
	t.Parallel()

	router, svc := newTestRouter(t)

	svc.EXPECT().
		Upload(gomock.Any(), "acme", "vpc", "1.0.0", gomock.Any(), gomock.Any()).
		Return(&service.ValidationError{Problems: []string{
			"main.tf is missing",
			"providers.tf is missing",
		}})

	rr := doRequest(router, http.MethodPost, "/module/acme/vpc/1.0.0",
		bytes.NewReader([]byte("archive")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"errors":["main.tf is missing","providers.tf is missing"]}`, rr.Body.String())
}

func TestUploadInterrupted(t *testing.T) {
	t.Parallel()

	router, svc := newTestRouter(t)

	svc.EXPECT().
		Upload(gomock.Any(), "acme", "vpc", "1.0.0", gomock.Any(), gomock.Any()).
		Return(context.Canceled)

	rr := doRequest(router, http.MethodPost, "/module/acme/vpc/1.0.0",
		bytes.NewReader([]byte("archive")))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestDeleteVersion(t *testing.T) {
	t.Parallel()

	router, svc := newTestRouter(t)

	svc.EXPECT().Delete(gomock.Any(), "acme", "vpc", "1.0.0").Return(nil)

	rr := doRequest(router, http.MethodDelete, "/module/acme/vpc/1.0.0", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "deleted")
}

func TestDeleteVersionNotFound(t *testing.T) {
	t.Parallel()

	router, svc := newTestRouter(t)

	svc.EXPECT().Delete(gomock.Any(), "acme", "vpc", "9.9.9").
		Return(service.ErrModuleNotFound)

	rr := doRequest(router, http.MethodDelete, "/module/acme/vpc/9.9.9", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAuthMiddlewareGuardsWrites(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	svc := mocks.NewMockRegistryService(ctrl)

	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	router := Router(svc, deny)

	// Writes are rejected before the handler runs.
	rr := doRequest(router, http.MethodPost, "/module/acme/vpc/1.0.0",
		bytes.NewReader([]byte("archive")))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(router, http.MethodDelete, "/module/acme/vpc/1.0.0", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Reads pass through unguarded.
	svc.EXPECT().ListVersions(gomock.Any(), "acme", "vpc").
		Return([]string{"1.0.0"}, nil)
	rr = doRequest(router, http.MethodGet, "/modules/acme/vpc/versions", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
