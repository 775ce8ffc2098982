package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// ErrNoVersions is returned when latest-version resolution is attempted
// over an empty version set.
var ErrNoVersions = errors.New("no versions available")

// ErrDuplicateVersion is returned when two version strings parse to the
// same semantic version. The restricted grammar makes this unreachable
// today; the guard stays so a future grammar widening fails loudly instead
// of silently picking one.
var ErrDuplicateVersion = errors.New("duplicate version")

// Versions extracts the deduplicated set of versions from a sequence of
// storage keys. Keys that do not carry a version segment are ignored.
func Versions(keys []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, key := range keys {
		v, ok := ExtractVersion(key)
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Latest returns the maximum of the given versions under semantic version
// ordering. Comparison is numeric per component, so "10.0.0" sorts after
// "9.0.0".
func Latest(versions []string) (string, error) {
	if len(versions) == 0 {
		return "", ErrNoVersions
	}

	latest, err := semver.StrictNewVersion(versions[0])
	if err != nil {
		return "", fmt.Errorf("invalid version %q: %w", versions[0], err)
	}
	latestStr := versions[0]

	for _, raw := range versions[1:] {
		v, err := semver.StrictNewVersion(raw)
		if err != nil {
			return "", fmt.Errorf("invalid version %q: %w", raw, err)
		}
		if v.Equal(latest) {
			return "", fmt.Errorf("%w: %s", ErrDuplicateVersion, raw)
		}
		if v.GreaterThan(latest) {
			latest = v
			latestStr = raw
		}
	}
	return latestStr, nil
}

// SortVersions orders versions ascending by semantic version comparison.
// Strings that fail to parse sort first, lexicographically; under the
// restricted grammar they cannot occur, but sorting must not drop them.
func SortVersions(versions []string) {
	sort.Slice(versions, func(i, j int) bool {
		vi, erri := semver.StrictNewVersion(versions[i])
		vj, errj := semver.StrictNewVersion(versions[j])
		if erri != nil || errj != nil {
			if (erri != nil) != (errj != nil) {
				return erri != nil
			}
			return versions[i] < versions[j]
		}
		return vi.LessThan(vj)
	})
}
