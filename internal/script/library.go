package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// Library loading: user helper functions live in .star files inside a
// configured libs directory. Each file becomes one module in the session
// namespace, named after the file (e.g. stats.star -> stats.mean(...)).
// Names starting with an underscore stay private to the file.

// LoadedLibrary represents one loaded .star helper file.
type LoadedLibrary struct {
	// Namespace is derived from the filename (e.g. "stats" from "stats.star")
	Namespace string

	// Path is the path to the .star file
	Path string

	// Module exposes the file's exported names as attributes
	Module *starlarkstruct.Module
}

// LoadLibraries scans dir for .star files and loads each as a module.
// A missing directory is not an error; it simply yields no libraries.
func LoadLibraries(dir string) ([]*LoadedLibrary, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access libs directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("libs path is not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.star"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan libs directory: %w", err)
	}

	var libs []*LoadedLibrary
	for _, file := range files {
		lib, err := loadLibraryFile(file)
		if err != nil {
			return nil, err
		}
		libs = append(libs, lib)
	}
	return libs, nil
}

// loadLibraryFile executes a single .star file and collects its exports.
func loadLibraryFile(path string) (*LoadedLibrary, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a glob within the libs directory
	if err != nil {
		return nil, &LibraryError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}

	namespace := strings.TrimSuffix(filepath.Base(path), ".star")
	if err := validateNamespace(namespace); err != nil {
		return nil, &LibraryError{File: path, Message: err.Error()}
	}

	thread := &starlark.Thread{
		Name: fmt.Sprintf("load:%s", namespace),
		Print: func(_ *starlark.Thread, _ string) {
			// Prints during library loading are dropped.
		},
	}

	opts := &syntax.FileOptions{Set: true, While: true, Recursion: true}
	globals, err := starlark.ExecFileOptions(opts, thread, path, content, nil)
	if err != nil {
		return nil, &LibraryError{File: path, Message: fmt.Sprintf("execution error: %v", err)}
	}

	exports := make(starlark.StringDict)
	for name, value := range globals {
		if !strings.HasPrefix(name, "_") {
			exports[name] = value
		}
	}

	return &LoadedLibrary{
		Namespace: namespace,
		Path:      path,
		Module:    &starlarkstruct.Module{Name: namespace, Members: exports},
	}, nil
}

// validateNamespace checks that a library name is a valid identifier.
func validateNamespace(name string) error {
	if name == "" {
		return fmt.Errorf("namespace cannot be empty")
	}
	for i, r := range name {
		if i == 0 {
			if !isLetter(r) && r != '_' {
				return fmt.Errorf("namespace must start with letter or underscore: %s", name)
			}
		} else {
			if !isLetter(r) && !isDigit(r) && r != '_' {
				return fmt.Errorf("namespace contains invalid character: %s", name)
			}
		}
	}
	return nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// LibraryError represents an error loading a helper file.
type LibraryError struct {
	File    string
	Message string
}

func (e *LibraryError) Error() string {
	return fmt.Sprintf("libs/%s: %s", filepath.Base(e.File), e.Message)
}
