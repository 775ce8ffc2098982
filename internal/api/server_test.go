package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tfprivate/tfregistry/internal/service"
	"github.com/tfprivate/tfregistry/internal/service/mocks"
)

func TestNewServerMountsHealthRoutes(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	svc := mocks.NewMockRegistryService(ctrl)
	server := NewServer(svc)

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rr.Body.String())
}

func TestNewServerMountsProtocolRoutes(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	svc := mocks.NewMockRegistryService(ctrl)
	svc.EXPECT().ListVersions(gomock.Any(), "acme", "vpc").
		Return([]string{"1.0.0"}, nil)

	server := NewServer(svc)

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/modules/acme/vpc/versions", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNewServerReadinessFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	svc := mocks.NewMockRegistryService(ctrl)
	svc.EXPECT().CheckReadiness(gomock.Any()).Return(assert.AnError)

	server := NewServer(svc)

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestNewServerAppliesMiddleware(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	svc := mocks.NewMockRegistryService(ctrl)

	var seen bool
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = true
			next.ServeHTTP(w, r)
		})
	}

	server := NewServer(svc, WithMiddlewares(mw))

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, seen)
}

func TestNewServerAuthGuardsWrites(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	svc := mocks.NewMockRegistryService(ctrl)

	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}

	server := NewServer(svc, WithAuthMiddleware(deny))

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/v1/module/acme/vpc/1.0.0", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

var _ service.RegistryService = (*mocks.MockRegistryService)(nil)
