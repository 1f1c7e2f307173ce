// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package xos provides extensions to the standard os package.
package xos

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// envReferenceRegexp matches ${NAME} references. Bare $NAME is left alone.
var envReferenceRegexp = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// MissingEnvError is returned by ExpandEnv when referenced variables are not set.
type MissingEnvError struct {
	// Names are the unset variable names in order of first reference.
	Names []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("environment variables not set: %s", strings.Join(e.Names, ", "))
}

// ExpandHome expands a leading ~ in a path to the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// ExpandEnv replaces every ${NAME} reference in s with the value returned by lookup.
//
// Returns a *MissingEnvError listing every referenced name lookup does not know.
// A variable set to the empty string is not missing.
func ExpandEnv(s string, lookup func(string) (string, bool)) (string, error) {
	var missing []string
	expanded := envReferenceRegexp.ReplaceAllStringFunc(s, func(reference string) string {
		name := envReferenceRegexp.FindStringSubmatch(reference)[1]
		value, ok := lookup(name)
		if !ok {
			if !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
			return reference
		}
		return value
	})
	if len(missing) > 0 {
		return "", &MissingEnvError{Names: missing}
	}
	return expanded, nil
}

// LookupEnvWithFallback returns a lookup function that consults the process
// environment first and then fallback.
func LookupEnvWithFallback(fallback map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		if value, ok := os.LookupEnv(name); ok {
			return value, true
		}
		value, ok := fallback[name]
		return value, ok
	}
}

// IsMissingEnv reports whether err is or wraps a *MissingEnvError.
func IsMissingEnv(err error) bool {
	var missingEnvError *MissingEnvError
	return errors.As(err, &missingEnvError)
}
