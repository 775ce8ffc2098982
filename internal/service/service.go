// Package service provides the business logic for the module registry API.
//
// RegistryService orchestrates the object store adapter, the version
// resolver, and the archive validator; it owns protocol-level policy such
// as immutability enforcement and pagination, and it is the single place
// that maps component failures onto the registry's error taxonomy.
package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/tfprivate/tfregistry/internal/registry"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go RegistryService

var (
	// ErrModuleNotFound is returned when the requested module or version
	// does not exist.
	ErrModuleNotFound = errors.New("module not found")

	// ErrVersionAlreadyExists is returned when an upload targets a version
	// that is already published. Published archives are immutable.
	ErrVersionAlreadyExists = errors.New("module version already exists")
)

// ValidationError carries the full list of structural problems found in an
// uploaded archive, so the caller learns about all of them at once.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid module archive: " + strings.Join(e.Problems, "; ")
}

// Pagination limits for module listings.
const (
	DefaultListLimit = 15
	MaxListLimit     = 100
)

// ModulePage is one page of a namespace listing.
type ModulePage struct {
	Modules       []registry.ModuleInfo
	Limit         int
	CurrentOffset int
	// NextOffset is nil on the last page.
	NextOffset *int
	TotalCount int
}

// UploadMetadata carries the optional free-text tags attached to an
// archive at publish time.
type UploadMetadata struct {
	Description string
	Source      string
}

// RegistryService defines the operations of the module registry protocol.
type RegistryService interface {
	// CheckReadiness reports whether the backing store is reachable.
	CheckReadiness(ctx context.Context) error

	// ListModules returns one representative entry (the latest version)
	// per module in the namespace, sorted by name and paginated.
	ListModules(ctx context.Context, namespace string, limit, offset int) (*ModulePage, error)

	// GetLatestDownloadURL resolves the module's maximum version and
	// returns a short-lived download URL for it, plus the version chosen.
	GetLatestDownloadURL(ctx context.Context, namespace, name string) (url string, version string, err error)

	// GetDownloadURL returns a short-lived download URL for one exact
	// version.
	GetDownloadURL(ctx context.Context, namespace, name, version string) (string, error)

	// ListVersions returns all published versions of the module in
	// ascending semantic version order.
	ListVersions(ctx context.Context, namespace, name string) ([]string, error)

	// Upload publishes a new immutable version. The archive must be a
	// gzip-compressed tarball containing a valid module layout.
	Upload(ctx context.Context, namespace, name, version string, archive io.Reader, meta UploadMetadata) error

	// Delete removes one published version. Returns ErrModuleNotFound if
	// the version does not exist.
	Delete(ctx context.Context, namespace, name, version string) error
}

// clampLimit applies the documented pagination bounds: non-positive limits
// fall back to the default, oversized limits are capped.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// clampOffset treats negative offsets as zero.
func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
