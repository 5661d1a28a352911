// Package fileutil resolves document paths against a base directory and
// enforces the path jail of the restrictive safe modes.
package fileutil

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty         = errors.New("extension cannot be empty")
	ErrExtensionPathTraversal = errors.New("extension contains path separator or null byte")
	ErrOutsideJail            = errors.New("path is outside of jail")
	ErrJailNotAbsolute        = errors.New("jail is not an absolute path")
)

// SystemPath resolves target against start (or against jail when start is
// empty). When jail is set, the result must stay inside it: relative
// escapes are an error, and absolute targets are accepted only if they
// already lie inside the jail.
func SystemPath(target, start, jail string) (string, error) {
	if jail != "" && !filepath.IsAbs(jail) {
		return "", fmt.Errorf("%w: %s", ErrJailNotAbsolute, jail)
	}
	if start == "" {
		start = jail
	}
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolving working directory: %w", err)
		}
		start = wd
	} else if !filepath.IsAbs(start) {
		base := jail
		if base == "" {
			wd, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("resolving working directory: %w", err)
			}
			base = wd
		}
		start = filepath.Join(base, start)
	}

	var resolved string
	if filepath.IsAbs(target) {
		resolved = filepath.Clean(target)
	} else {
		resolved = filepath.Join(start, filepath.FromSlash(target))
	}
	if jail != "" && !Within(resolved, jail) {
		return "", fmt.Errorf("%w: %s (jail: %s)", ErrOutsideJail, target, jail)
	}
	return resolved, nil
}

// Within reports whether p equals dir or lies beneath it.
func Within(p, dir string) bool {
	p = filepath.Clean(p)
	dir = filepath.Clean(dir)
	if p == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(p, dir)
}

// RelativeTo returns p relative to dir when p lies inside dir, else p.
func RelativeTo(p, dir string) string {
	if dir == "" || !Within(p, dir) {
		return p
	}
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}

// WebPath joins target onto start the way browsers resolve relative
// references, collapsing dot segments but keeping a leading "./" or "../"
// that cannot be resolved.
func WebPath(target, start string) string {
	if start != "" && !strings.HasPrefix(target, "/") && !IsURL(target) {
		target = strings.TrimSuffix(start, "/") + "/" + target
	}
	if IsURL(target) {
		return target
	}
	leadingDot := strings.HasPrefix(target, "./")
	cleaned := path.Clean(target)
	if leadingDot && !strings.HasPrefix(cleaned, ".") {
		cleaned = "./" + cleaned
	}
	if strings.HasSuffix(target, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

// WriteTempFile creates a temporary file with the given content and extension.
// Returns the file path and a cleanup function to remove the file.
func WriteTempFile(content, extension string) (path string, cleanup func(), err error) {
	if err := ValidateExtension(extension); err != nil {
		return "", nil, err
	}

	tmpFile, err := os.CreateTemp("", "adoc-*."+extension)
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}

	path = tmpFile.Name()
	cleanup = func() { _ = os.Remove(path) }

	if _, writeErr := tmpFile.WriteString(content); writeErr != nil {
		_ = tmpFile.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing temp file: %w", writeErr)
	}

	if closeErr := tmpFile.Close(); closeErr != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing temp file: %w", closeErr)
	}

	return path, cleanup, nil
}

// ValidateExtension checks that the extension is safe for use in temp file names.
func ValidateExtension(extension string) error {
	if extension == "" {
		return ErrExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") {
		return ErrExtensionPathTraversal
	}
	return nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsURL returns true if the string looks like an http(s) or file URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "file://")
}

// ReplaceExt swaps the extension of p for ext, which includes the dot.
func ReplaceExt(p, ext string) string {
	return strings.TrimSuffix(p, filepath.Ext(p)) + ext
}

// FileURL converts an absolute path to a file:// URL. Backslashes of
// Windows paths become slashes.
func FileURL(absPath string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(absPath)}
	return u.String()
}
