package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/tfprivate/tfregistry/internal/registry"
	"github.com/tfprivate/tfregistry/internal/storage"
	"github.com/tfprivate/tfregistry/internal/validator"
	"github.com/tfprivate/tfregistry/pkg/logger"
)

// listURLTTL is the validity window of download URLs embedded in listing
// responses. Shorter than the resolve-endpoint TTL since listings are
// browsed, not fetched.
const listURLTTL = 5 * time.Minute

// registryService is the production RegistryService implementation. It is
// stateless beyond its injected collaborators; every read re-derives its
// answer from the object store's current contents.
type registryService struct {
	store     storage.ObjectStore
	validator *validator.ArchiveValidator
}

// New creates a RegistryService over the given object store.
func New(store storage.ObjectStore, v *validator.ArchiveValidator) RegistryService {
	if v == nil {
		v = validator.New()
	}
	return &registryService{store: store, validator: v}
}

func (s *registryService) CheckReadiness(ctx context.Context) error {
	return s.store.CheckConnectivity(ctx)
}

func (s *registryService) ListModules(ctx context.Context, namespace string, limit, offset int) (*ModulePage, error) {
	limit = clampLimit(limit)
	offset = clampOffset(offset)

	objects, err := s.store.ListKeys(ctx, registry.NamespacePrefix(namespace))
	if err != nil {
		return nil, fmt.Errorf("failed to list namespace %q: %w", namespace, err)
	}

	// Group archive keys by module name; anything else under the prefix is
	// ignored.
	versionsByName := make(map[string][]string)
	for _, obj := range objects {
		key, ok := registry.ParseKey(obj.Key)
		if !ok || key.Namespace != namespace {
			continue
		}
		versionsByName[key.Name] = append(versionsByName[key.Name], key.Version)
	}

	names := make([]string, 0, len(versionsByName))
	for name := range versionsByName {
		names = append(names, name)
	}
	sort.Strings(names)

	total := len(names)
	page := &ModulePage{
		Limit:         limit,
		CurrentOffset: offset,
		TotalCount:    total,
	}
	if offset+limit < total {
		next := offset + limit
		page.NextOffset = &next
	}
	if offset >= total {
		return page, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}

	// Materialize one representative ModuleInfo (the maximum version) per
	// module on this page.
	for _, name := range names[offset:end] {
		latest, err := registry.Latest(versionsByName[name])
		if err != nil {
			return nil, fmt.Errorf("failed to resolve latest version of %s/%s: %w", namespace, name, err)
		}

		info, err := s.moduleInfo(ctx, registry.ModuleKey{Namespace: namespace, Name: name, Version: latest})
		if err != nil {
			return nil, err
		}
		page.Modules = append(page.Modules, *info)
	}

	return page, nil
}

// moduleInfo merges a module key with the object tags and timestamp stored
// alongside its archive.
func (s *registryService) moduleInfo(ctx context.Context, key registry.ModuleKey) (*registry.ModuleInfo, error) {
	info := &registry.ModuleInfo{
		Name:    key.Name,
		Version: key.Version,
	}

	obj, err := s.store.GetObjectInfo(ctx, key.Key())
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			// Deleted between listing and materialization; report what the
			// key alone tells us.
			return info, nil
		}
		return nil, fmt.Errorf("failed to read metadata of %s: %w", key, err)
	}
	info.PublishedAt = obj.LastModified
	info.Description = obj.Tags[registry.TagDescription]
	info.Source = obj.Tags[registry.TagSource]

	url, err := s.store.GetDownloadURL(ctx, key.Key(), listURLTTL)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return info, nil
		}
		return nil, fmt.Errorf("failed to issue download URL for %s: %w", key, err)
	}
	info.DownloadURL = url

	return info, nil
}

func (s *registryService) GetLatestDownloadURL(ctx context.Context, namespace, name string) (string, string, error) {
	versions, err := s.moduleVersions(ctx, namespace, name)
	if err != nil {
		return "", "", err
	}

	latest, err := registry.Latest(versions)
	if err != nil {
		if errors.Is(err, registry.ErrNoVersions) {
			return "", "", fmt.Errorf("%w: %s/%s", ErrModuleNotFound, namespace, name)
		}
		return "", "", fmt.Errorf("failed to resolve latest version of %s/%s: %w", namespace, name, err)
	}

	url, err := s.GetDownloadURL(ctx, namespace, name, latest)
	if err != nil {
		return "", "", err
	}
	return url, latest, nil
}

func (s *registryService) GetDownloadURL(ctx context.Context, namespace, name, version string) (string, error) {
	key, err := registry.NewModuleKey(namespace, name, version)
	if err != nil {
		return "", err
	}

	url, err := s.store.GetDownloadURL(ctx, key.Key(), storage.DefaultURLTTL)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return "", fmt.Errorf("%w: %s", ErrModuleNotFound, key)
		}
		return "", fmt.Errorf("failed to issue download URL for %s: %w", key, err)
	}
	return url, nil
}

func (s *registryService) ListVersions(ctx context.Context, namespace, name string) ([]string, error) {
	versions, err := s.moduleVersions(ctx, namespace, name)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrModuleNotFound, namespace, name)
	}

	registry.SortVersions(versions)
	return versions, nil
}

// moduleVersions enumerates the store once and extracts the deduplicated
// version set for one module.
func (s *registryService) moduleVersions(ctx context.Context, namespace, name string) ([]string, error) {
	objects, err := s.store.ListKeys(ctx, registry.ModulePrefix(namespace, name))
	if err != nil {
		return nil, fmt.Errorf("failed to list versions of %s/%s: %w", namespace, name, err)
	}

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, obj.Key)
	}
	return registry.Versions(keys), nil
}

func (s *registryService) Upload(ctx context.Context, namespace, name, version string, archive io.Reader, meta UploadMetadata) error {
	key, err := registry.NewModuleKey(namespace, name, version)
	if err != nil {
		return err
	}

	// Early conflict check for a clean answer before any extraction work.
	// The store's conditional write below is what actually guarantees
	// immutability under concurrent uploads.
	exists, err := s.store.Exists(ctx, key.Key())
	if err != nil {
		return fmt.Errorf("failed to check existence of %s: %w", key, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrVersionAlreadyExists, key)
	}

	// The archive is consumed twice (validation, then upload), so buffer
	// it once. The HTTP layer has already capped the body size.
	data, err := io.ReadAll(archive)
	if err != nil {
		return fmt.Errorf("failed to read archive for %s: %w", key, err)
	}

	result := s.validator.ValidateArchive(bytes.NewReader(data))
	if !result.Valid {
		return &ValidationError{Problems: result.Errors}
	}

	tags := map[string]string{
		registry.TagNamespace: key.Namespace,
		registry.TagName:      key.Name,
		registry.TagVersion:   key.Version,
	}
	if meta.Description != "" {
		tags[registry.TagDescription] = meta.Description
	}
	if meta.Source != "" {
		tags[registry.TagSource] = meta.Source
	}

	if err := s.store.Upload(ctx, key.Key(), bytes.NewReader(data), tags); err != nil {
		if errors.Is(err, storage.ErrKeyAlreadyExists) {
			// A concurrent upload won the conditional write.
			return fmt.Errorf("%w: %s", ErrVersionAlreadyExists, key)
		}
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	logger.Infof("Published module %s (%d bytes)", key, len(data))
	return nil
}

func (s *registryService) Delete(ctx context.Context, namespace, name, version string) error {
	key, err := registry.NewModuleKey(namespace, name, version)
	if err != nil {
		return err
	}

	exists, err := s.store.Exists(ctx, key.Key())
	if err != nil {
		return fmt.Errorf("failed to check existence of %s: %w", key, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrModuleNotFound, key)
	}

	if err := s.store.Delete(ctx, key.Key()); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	logger.Infof("Deleted module %s", key)
	return nil
}
