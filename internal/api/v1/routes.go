// Package v1 provides the module registry protocol v1 endpoints.
package v1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tfprivate/tfregistry/internal/api/common"
	"github.com/tfprivate/tfregistry/internal/registry"
	"github.com/tfprivate/tfregistry/internal/service"
	"github.com/tfprivate/tfregistry/internal/validator"
	"github.com/tfprivate/tfregistry/pkg/logger"
)

// PaginationMeta describes the position of a listing page.
type PaginationMeta struct {
	Limit         int    `json:"limit"`
	CurrentOffset int    `json:"current_offset"`
	NextOffset    *int   `json:"next_offset"`
	NextURL       string `json:"next_url,omitempty"`
}

// ListModulesResponse is the body of a namespace listing.
type ListModulesResponse struct {
	Meta    PaginationMeta        `json:"meta"`
	Modules []registry.ModuleInfo `json:"modules"`
}

// VersionEntry wraps a single version string.
type VersionEntry struct {
	Version string `json:"version"`
}

// ModuleVersions holds the version set of one module.
type ModuleVersions struct {
	Versions []VersionEntry `json:"versions"`
}

// ListVersionsResponse is the body of a version listing.
type ListVersionsResponse struct {
	Modules []ModuleVersions `json:"modules"`
}

// MessageResponse is the body of successful write operations.
type MessageResponse struct {
	Message string `json:"message"`
}

// Routes handles HTTP requests for the registry protocol v1 endpoints.
type Routes struct {
	service service.RegistryService
}

// NewRoutes creates a new Routes instance with the given service.
func NewRoutes(svc service.RegistryService) *Routes {
	return &Routes{
		service: svc,
	}
}

// Router creates and configures the HTTP router for the v1 endpoints.
// Write operations are wrapped with authMW when it is non-nil.
func Router(svc service.RegistryService, authMW func(http.Handler) http.Handler) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()

	r.Get("/modules/{namespace}", routes.listModules)
	r.Get("/modules/{namespace}/{name}/versions", routes.listVersions)
	r.Get("/module/{namespace}/{name}", routes.getLatestVersion)
	r.Get("/module/{namespace}/{name}/{version}", routes.getVersion)

	r.Group(func(r chi.Router) {
		if authMW != nil {
			r.Use(authMW)
		}
		r.Post("/module/{namespace}/{name}/{version}", routes.uploadVersion)
		r.Delete("/module/{namespace}/{name}/{version}", routes.deleteVersion)
	})

	return r
}

// listModules handles GET /v1/modules/{namespace}
//
// @Summary		List modules in a namespace
// @Description	Get a paginated list of modules, one entry per module at its latest version
// @Tags		modules
// @Produce		json
// @Param		namespace	path	string	true	"Module namespace"
// @Param		limit		query	int		false	"Maximum number of modules to return"
// @Param		offset		query	int		false	"Listing offset"
// @Success		200	{object}	ListModulesResponse
// @Failure		400	{object}	common.ErrorResponse
// @Failure		500	{object}	common.ErrorResponse
// @Router		/v1/modules/{namespace} [get]
func (routes *Routes) listModules(w http.ResponseWriter, r *http.Request) {
	namespace, err := common.GetAndValidateURLParam(r, "namespace")
	if err != nil {
		common.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	limit, offset, err := parsePagination(r)
	if err != nil {
		common.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := routes.service.ListModules(r.Context(), namespace, limit, offset)
	if err != nil {
		routes.writeServiceError(w, r, err)
		return
	}

	resp := ListModulesResponse{
		Meta: PaginationMeta{
			Limit:         page.Limit,
			CurrentOffset: page.CurrentOffset,
			NextOffset:    page.NextOffset,
		},
		Modules: page.Modules,
	}
	if resp.Modules == nil {
		resp.Modules = []registry.ModuleInfo{}
	}
	if page.NextOffset != nil {
		resp.Meta.NextURL = fmt.Sprintf("/v1/modules/%s?limit=%d&offset=%d",
			namespace, page.Limit, *page.NextOffset)
	}

	common.WriteJSONResponse(w, resp, http.StatusOK)
}

// getLatestVersion handles GET /v1/module/{namespace}/{name}
//
// @Summary		Resolve the latest module version
// @Description	Resolve the highest published version and return its download URL in the X-Terraform-Get header
// @Tags		modules
// @Param		namespace	path	string	true	"Module namespace"
// @Param		name		path	string	true	"Module name"
// @Success		204	{string}	string	"No content; download URL in X-Terraform-Get"
// @Failure		404	{object}	common.ErrorResponse
// @Failure		500	{object}	common.ErrorResponse
// @Router		/v1/module/{namespace}/{name} [get]
func (routes *Routes) getLatestVersion(w http.ResponseWriter, r *http.Request) {
	namespace, name, ok := routes.moduleParams(w, r)
	if !ok {
		return
	}

	url, _, err := routes.service.GetLatestDownloadURL(r.Context(), namespace, name)
	if err != nil {
		routes.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("X-Terraform-Get", url)
	w.WriteHeader(http.StatusNoContent)
}

// getVersion handles GET /v1/module/{namespace}/{name}/{version}
//
// @Summary		Resolve a specific module version
// @Description	Return the download URL for one exact version in the X-Terraform-Get header
// @Tags		modules
// @Param		namespace	path	string	true	"Module namespace"
// @Param		name		path	string	true	"Module name"
// @Param		version		path	string	true	"Module version"
// @Success		204	{string}	string	"No content; download URL in X-Terraform-Get"
// @Failure		400	{object}	common.ErrorResponse
// @Failure		404	{object}	common.ErrorResponse
// @Failure		500	{object}	common.ErrorResponse
// @Router		/v1/module/{namespace}/{name}/{version} [get]
func (routes *Routes) getVersion(w http.ResponseWriter, r *http.Request) {
	namespace, name, version, ok := routes.versionParams(w, r)
	if !ok {
		return
	}

	url, err := routes.service.GetDownloadURL(r.Context(), namespace, name, version)
	if err != nil {
		routes.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("X-Terraform-Get", url)
	w.WriteHeader(http.StatusNoContent)
}

// listVersions handles GET /v1/modules/{namespace}/{name}/versions
//
// @Summary		List module versions
// @Description	Get all published versions of a module in ascending order
// @Tags		modules
// @Produce		json
// @Param		namespace	path	string	true	"Module namespace"
// @Param		name		path	string	true	"Module name"
// @Success		200	{object}	ListVersionsResponse
// @Failure		404	{object}	common.ErrorResponse
// @Failure		500	{object}	common.ErrorResponse
// @Router		/v1/modules/{namespace}/{name}/versions [get]
func (routes *Routes) listVersions(w http.ResponseWriter, r *http.Request) {
	namespace, name, ok := routes.moduleParams(w, r)
	if !ok {
		return
	}

	versions, err := routes.service.ListVersions(r.Context(), namespace, name)
	if err != nil {
		routes.writeServiceError(w, r, err)
		return
	}

	entries := make([]VersionEntry, 0, len(versions))
	for _, v := range versions {
		entries = append(entries, VersionEntry{Version: v})
	}

	common.WriteJSONResponse(w, ListVersionsResponse{
		Modules: []ModuleVersions{{Versions: entries}},
	}, http.StatusOK)
}

// uploadVersion handles POST /v1/module/{namespace}/{name}/{version}
//
// @Summary		Publish a module version
// @Description	Upload an immutable module archive, either as multipart field "file" or as the raw request body
// @Tags		modules
// @Accept		mpfd
// @Produce		json
// @Param		namespace	path		string	true	"Module namespace"
// @Param		name		path		string	true	"Module name"
// @Param		version		path		string	true	"Module version"
// @Param		file		formData	file	true	"Module archive (.tgz)"
// @Success		200	{object}	MessageResponse
// @Failure		400	{object}	common.ErrorResponse
// @Failure		401	{object}	common.ErrorResponse
// @Failure		409	{object}	common.ErrorResponse
// @Failure		500	{object}	common.ErrorResponse
// @Router		/v1/module/{namespace}/{name}/{version} [post]
// @Security	ApiKeyAuth
func (routes *Routes) uploadVersion(w http.ResponseWriter, r *http.Request) {
	namespace, name, version, ok := routes.versionParams(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, validator.MaxArchiveSize)

	archive, meta, err := extractArchive(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			common.WriteErrorResponse(w, http.StatusBadRequest,
				fmt.Sprintf("archive exceeds the maximum size of %d bytes", validator.MaxArchiveSize))
			return
		}
		common.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := routes.service.Upload(r.Context(), namespace, name, version, archive, meta); err != nil {
		routes.writeServiceError(w, r, err)
		return
	}

	common.WriteJSONResponse(w, MessageResponse{
		Message: fmt.Sprintf("module %s/%s version %s uploaded", namespace, name, version),
	}, http.StatusOK)
}

// deleteVersion handles DELETE /v1/module/{namespace}/{name}/{version}
//
// @Summary		Delete a module version
// @Description	Remove one published version from the registry
// @Tags		modules
// @Produce		json
// @Param		namespace	path	string	true	"Module namespace"
// @Param		name		path	string	true	"Module name"
// @Param		version		path	string	true	"Module version"
// @Success		200	{object}	MessageResponse
// @Failure		400	{object}	common.ErrorResponse
// @Failure		401	{object}	common.ErrorResponse
// @Failure		404	{object}	common.ErrorResponse
// @Failure		500	{object}	common.ErrorResponse
// @Router		/v1/module/{namespace}/{name}/{version} [delete]
// @Security	ApiKeyAuth
func (routes *Routes) deleteVersion(w http.ResponseWriter, r *http.Request) {
	namespace, name, version, ok := routes.versionParams(w, r)
	if !ok {
		return
	}

	if err := routes.service.Delete(r.Context(), namespace, name, version); err != nil {
		routes.writeServiceError(w, r, err)
		return
	}

	common.WriteJSONResponse(w, MessageResponse{
		Message: fmt.Sprintf("module %s/%s version %s deleted", namespace, name, version),
	}, http.StatusOK)
}

// moduleParams extracts and validates the namespace and name path params,
// writing the error response itself on failure.
func (routes *Routes) moduleParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	namespace, err := common.GetAndValidateURLParam(r, "namespace")
	if err != nil {
		common.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return "", "", false
	}
	name, err := common.GetAndValidateURLParam(r, "name")
	if err != nil {
		common.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return "", "", false
	}
	return namespace, name, true
}

// versionParams extracts namespace, name, and version, rejecting versions
// that do not match the MAJOR.MINOR.PATCH grammar before any storage work.
func (routes *Routes) versionParams(w http.ResponseWriter, r *http.Request) (string, string, string, bool) {
	namespace, name, ok := routes.moduleParams(w, r)
	if !ok {
		return "", "", "", false
	}
	version, err := common.GetAndValidateURLParam(r, "version")
	if err != nil {
		common.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return "", "", "", false
	}
	if !registry.IsValidVersion(version) {
		common.WriteErrorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("invalid version %q: must match MAJOR.MINOR.PATCH", version))
		return "", "", "", false
	}
	return namespace, name, version, true
}

// parsePagination reads the limit and offset query parameters. Absent
// parameters default to zero; the service applies its own clamping.
func parsePagination(r *http.Request) (int, int, error) {
	var limit, offset int
	var err error

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, errors.New("invalid limit parameter: must be an integer")
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, errors.New("invalid offset parameter: must be an integer")
		}
	}
	return limit, offset, nil
}

// extractArchive returns the archive reader plus any descriptive metadata
// from the upload request. Multipart uploads carry the archive in the
// "file" field; anything else is treated as a raw body.
func extractArchive(r *http.Request) (io.Reader, service.UploadMetadata, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(contentType, "multipart/") {
		return r.Body, service.UploadMetadata{}, nil
	}

	if err := r.ParseMultipartForm(validator.MaxArchiveSize); err != nil {
		return nil, service.UploadMetadata{}, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, service.UploadMetadata{}, errors.New(`multipart upload requires a "file" field`)
	}

	meta := service.UploadMetadata{
		Description: r.FormValue("description"),
		Source:      r.FormValue("source"),
	}
	return file, meta, nil
}

// writeServiceError maps a service failure onto the protocol's status
// codes and uniform error body.
func (*Routes) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *service.ValidationError
	var maxErr *http.MaxBytesError

	switch {
	case errors.As(err, &vErr):
		common.WriteErrorResponse(w, http.StatusBadRequest, vErr.Problems...)
	// A raw-body upload trips MaxBytesReader inside the service's read,
	// not in extractArchive; it is still the client's fault.
	case errors.As(err, &maxErr):
		common.WriteErrorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("archive exceeds the maximum size of %d bytes", validator.MaxArchiveSize))
	case errors.Is(err, registry.ErrInvalidVersion):
		common.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrModuleNotFound):
		common.WriteErrorResponse(w, http.StatusNotFound, "module not found")
	case errors.Is(err, service.ErrVersionAlreadyExists):
		common.WriteErrorResponse(w, http.StatusConflict, "module version already exists")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		common.WriteErrorResponse(w, http.StatusServiceUnavailable, "request interrupted, retry later")
	default:
		logger.Errorf("Request %s %s failed: %v", r.Method, r.URL.Path, err)
		common.WriteErrorResponse(w, http.StatusInternalServerError, "internal server error")
	}
}
