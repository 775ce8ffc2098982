// Package registry defines the logical model of the module registry: the
// mapping between module identity and object storage keys, and semantic
// version resolution over those keys.
//
// The object store's key space is the only persisted index. Every module
// archive lives at exactly one key of the form
//
//	{namespace}/{name}/v{version}/module.tgz
//
// and everything this package does is derived from that shape.
package registry

import (
	"errors"
	"fmt"
	"regexp"
)

// ArchiveFileName is the fixed file name of a module archive within its
// version directory.
const ArchiveFileName = "module.tgz"

// versionRE is the restricted semantic version grammar accepted by the
// registry: three numeric components, no pre-release or build metadata.
var versionRE = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// keyRE parses a full storage key back into its module identity.
var keyRE = regexp.MustCompile(`^([^/]+)/([^/]+)/v(\d+\.\d+\.\d+)/module\.tgz$`)

// versionSuffixRE matches the trailing version segment of a storage key.
var versionSuffixRE = regexp.MustCompile(`v(\d+\.\d+\.\d+)/module\.tgz$`)

// ErrInvalidVersion is returned when a version string does not match the
// registry's restricted semver grammar.
var ErrInvalidVersion = errors.New("version must be in semantic versioning format (e.g. 1.0.0)")

// ModuleKey identifies one immutable module archive.
type ModuleKey struct {
	Namespace string
	Name      string
	Version   string
}

// NewModuleKey builds a ModuleKey, validating the version grammar.
func NewModuleKey(namespace, name, version string) (ModuleKey, error) {
	if !IsValidVersion(version) {
		return ModuleKey{}, fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	return ModuleKey{Namespace: namespace, Name: name, Version: version}, nil
}

// IsValidVersion reports whether v matches the restricted semver grammar.
func IsValidVersion(v string) bool {
	return versionRE.MatchString(v)
}

// Key renders the storage key backing this module archive.
func (k ModuleKey) Key() string {
	return fmt.Sprintf("%s/%s/v%s/%s", k.Namespace, k.Name, k.Version, ArchiveFileName)
}

// String implements fmt.Stringer using the registry address form.
func (k ModuleKey) String() string {
	return fmt.Sprintf("%s/%s@%s", k.Namespace, k.Name, k.Version)
}

// NamespacePrefix returns the storage prefix under which all modules of a
// namespace live.
func NamespacePrefix(namespace string) string {
	return namespace + "/"
}

// ModulePrefix returns the storage prefix under which all versions of a
// module live.
func ModulePrefix(namespace, name string) string {
	return namespace + "/" + name + "/"
}

// ParseKey parses a storage key into a ModuleKey. Keys that do not match
// the archive shape are not errors; they simply report ok=false so callers
// can skip unrelated objects during enumeration.
func ParseKey(key string) (ModuleKey, bool) {
	m := keyRE.FindStringSubmatch(key)
	if m == nil {
		return ModuleKey{}, false
	}
	return ModuleKey{Namespace: m[1], Name: m[2], Version: m[3]}, true
}

// ExtractVersion returns the version encoded in a storage key, if the key
// ends with a v{semver}/module.tgz segment.
func ExtractVersion(key string) (string, bool) {
	m := versionSuffixRE.FindStringSubmatch(key)
	if m == nil {
		return "", false
	}
	return m[1], true
}
