// Package validator checks that uploaded archives contain a usable
// Terraform module layout before they are admitted into the registry.
package validator

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/tfprivate/tfregistry/pkg/logger"
)

// MaxArchiveSize caps how much a single archive may expand to during
// extraction. Uploads are capped at the same size at the HTTP layer.
const MaxArchiveSize = 50 << 20 // 50 MB

// maxEntrySize bounds a single extracted file so one crafted tar entry
// cannot consume the whole extraction budget by itself.
const maxEntrySize = MaxArchiveSize

// Result is the outcome of validating one archive. It is produced once per
// upload attempt and never persisted.
type Result struct {
	Valid      bool     `json:"is_valid"`
	Errors     []string `json:"errors,omitempty"`
	FoundFiles []string `json:"found_files,omitempty"`
}

// Required file conditions for a directory to qualify as a module root.
// Matching is case-insensitive.
var (
	requiredFiles = []string{"main.tf", "providers.tf"}
	variableFiles = []string{"variables.tf", "variable.tf"}
	outputFiles   = []string{"outputs.tf", "output.tf"}
)

// ArchiveValidator validates gzip-compressed tar archives. ScratchDir
// controls where ephemeral extraction directories are created; empty means
// the system temp directory.
type ArchiveValidator struct {
	ScratchDir string
}

// New returns an ArchiveValidator using the system temp directory for
// scratch space.
func New() *ArchiveValidator {
	return &ArchiveValidator{}
}

// ValidateArchive extracts the archive into a fresh scratch directory and
// checks it for a valid module layout. Malformed input (not gzip, not tar,
// traversal attempts, oversized entries) is reported in the Result, never
// as an error return. The scratch directory is removed on every exit path.
func (v *ArchiveValidator) ValidateArchive(r io.Reader) Result {
	var result Result

	// Collision-free scratch location per call so concurrent uploads never
	// interfere with each other's extraction.
	scratch := filepath.Join(v.scratchBase(), "tfregistry-validate-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o750); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to prepare extraction directory: %v", err))
		return result
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			logger.Warnf("Failed to clean up extraction directory %s: %v", scratch, err)
		}
	}()

	if err := extractTgz(r, scratch); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to extract module archive: %v", err))
		return result
	}

	filesByDir, err := filesByDirectory(scratch)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to enumerate extracted files: %v", err))
		return result
	}

	moduleRoot, ok := chooseModuleRoot(scratch, filesByDir)
	if !ok {
		result.Errors = append(result.Errors, "no valid module structure found")
		return result
	}

	files := filesByDir[moduleRoot]
	result.FoundFiles = files

	// Each condition is checked independently so the caller learns about
	// every missing file at once.
	for _, required := range requiredFiles {
		if !containsFold(files, required) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("required file '%s' is missing from the module root", required))
		}
	}
	if !containsAnyFold(files, variableFiles) {
		result.Errors = append(result.Errors,
			"no variables file found: either 'variables.tf' or 'variable.tf' is required")
	}
	if !containsAnyFold(files, outputFiles) {
		result.Errors = append(result.Errors,
			"no outputs file found: either 'outputs.tf' or 'output.tf' is required")
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func (v *ArchiveValidator) scratchBase() string {
	if v.ScratchDir != "" {
		return v.ScratchDir
	}
	return os.TempDir()
}

// chooseModuleRoot picks the directory to validate against. The extraction
// root wins if it qualifies; otherwise directories are scanned in lexical
// order and the first qualifying one is used, which tolerates archives that
// wrap their content in a single top-level directory. Falls back to the
// extraction root when nothing qualifies so its missing files are reported
// individually.
func chooseModuleRoot(root string, filesByDir map[string][]string) (string, bool) {
	if qualifies(filesByDir[root]) {
		return root, true
	}

	dirs := make([]string, 0, len(filesByDir))
	for dir := range filesByDir {
		if dir == root {
			continue
		}
		dirs = append(dirs, dir)
	}
	// Lexical order keeps the "first qualifying directory" tie-break
	// deterministic across filesystems.
	sort.Strings(dirs)

	for _, dir := range dirs {
		if qualifies(filesByDir[dir]) {
			return dir, true
		}
	}

	// Nothing qualifies: report against whichever directory holds .tf
	// files so error messages name the concrete missing pieces, or give
	// up entirely when there is no plausible candidate.
	if containsAnySuffixFold(filesByDir[root], ".tf") {
		return root, true
	}
	for _, dir := range dirs {
		if containsAnySuffixFold(filesByDir[dir], ".tf") {
			return dir, true
		}
	}
	return "", false
}

// qualifies reports whether a file set satisfies all module root conditions.
func qualifies(files []string) bool {
	return containsAnyFold(files, requiredFiles) &&
		containsAnyFold(files, variableFiles) &&
		containsAnyFold(files, outputFiles)
}

// filesByDirectory walks the extracted tree and groups file names by their
// containing directory.
func filesByDirectory(root string) (map[string][]string, error) {
	out := map[string][]string{root: nil}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, seen := out[path]; !seen {
				out[path] = nil
			}
			return nil
		}
		dir := filepath.Dir(path)
		out[dir] = append(out[dir], d.Name())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func containsFold(files []string, name string) bool {
	for _, f := range files {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

func containsAnyFold(files []string, names []string) bool {
	for _, name := range names {
		if containsFold(files, name) {
			return true
		}
	}
	return false
}

func containsAnySuffixFold(files []string, suffix string) bool {
	for _, f := range files {
		if strings.HasSuffix(strings.ToLower(f), suffix) {
			return true
		}
	}
	return false
}

// extractTgz decompresses and unpacks a gzip-compressed tar stream into
// destDir, refusing entries that escape the destination or exceed the size
// budget.
func extractTgz(r io.Reader, destDir string) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("not a gzip stream: %w", err)
	}
	defer gzr.Close()

	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("resolve destination: %w", err)
	}

	var total int64
	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("not a tar stream: %w", err)
		}

		target := filepath.Join(absDest, header.Name)
		absTarget, err := filepath.Abs(target)
		if err != nil {
			return fmt.Errorf("resolve entry path: %w", err)
		}
		if absTarget != absDest && !strings.HasPrefix(absTarget, absDest+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes destination directory", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(absTarget, 0o750); err != nil {
				return err
			}
		case tar.TypeReg:
			if header.Size > maxEntrySize {
				return fmt.Errorf("archive entry %q exceeds size limit", header.Name)
			}
			if err := os.MkdirAll(filepath.Dir(absTarget), 0o750); err != nil {
				return err
			}
			out, err := os.Create(absTarget)
			if err != nil {
				return err
			}
			// LimitReader guards against tar headers that understate the
			// entry size.
			n, err := io.Copy(out, io.LimitReader(tr, maxEntrySize+1))
			if closeErr := out.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
			if err != nil {
				return err
			}
			if n > maxEntrySize {
				return fmt.Errorf("archive entry %q exceeds size limit", header.Name)
			}
			total += n
			if total > MaxArchiveSize {
				return fmt.Errorf("archive exceeds %d byte extraction limit", int64(MaxArchiveSize))
			}
		default:
			// Symlinks, devices and other special entries have no place in
			// a module archive; skip them rather than fail the upload.
		}
	}
	return nil
}
