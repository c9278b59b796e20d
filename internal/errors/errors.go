// Package errors defines the error taxonomy shared by all cloudconv
// components.
//
// This package provides:
// - Sentinel errors for every failure class the CLI reports
// - Error category checking functions
// - Convenience wrappers around the standard errors package
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Input selection errors
	ErrNotADirectory   = errors.New("not a directory")
	ErrNoMatchingFiles = errors.New("no matching files")
	ErrNoFilesFound    = errors.New("no files found")

	// Format errors
	ErrUnsupportedFormat = errors.New("unsupported output format")

	// Dataset errors
	ErrDatasetOpen = errors.New("cannot open dataset")
	ErrBandRead    = errors.New("band read failed")
	ErrNoLayers    = errors.New("dataset contains no layers")

	// Output errors
	ErrOutputExists = errors.New("output file already exists")
)

// ============================================================================
// Helper functions
// ============================================================================

// Is is a convenience wrapper for errors.Is.
var Is = errors.Is

// As is a convenience wrapper for errors.As.
var As = errors.As

// New is a convenience wrapper for errors.New.
var New = errors.New

// IsNoInput returns true if err means no usable input files were found.
func IsNoInput(err error) bool {
	return errors.Is(err, ErrNoMatchingFiles) || errors.Is(err, ErrNoFilesFound)
}

// IsDataset returns true if err originates from the geospatial library.
func IsDataset(err error) bool {
	return errors.Is(err, ErrDatasetOpen) || errors.Is(err, ErrBandRead)
}

// Wrap annotates err with a prefix, preserving the error chain.
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
