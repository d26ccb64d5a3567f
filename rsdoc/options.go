package rsdoc

import (
	"github.com/arjunmahishi/rsdoc/config"
	"github.com/arjunmahishi/rsdoc/infer"
)

// DocOptions configures the Document function.
type DocOptions struct {
	// Config carries the recognized options. The zero value is replaced by
	// config.Default(); a zero timeout or concurrency takes its default.
	Config config.Config

	// Adapter produces documentation for items.
	// If nil, the built-in heuristic adapter is used.
	Adapter infer.Adapter

	// Language specifies which language to use.
	// Defaults to "rust".
	Language string

	// Path is the root directory to scan for files.
	// If empty, current directory is used.
	Path string

	// File is a single file to document.
	// If set, Path is ignored.
	File string

	// Jobs is the number of files processed in parallel.
	// If 0, defaults to number of CPUs.
	Jobs int

	// MaxBytes skips files larger than this size.
	// If 0, defaults to 2 MiB.
	MaxBytes int64

	// Write replaces changed files on disk.
	Write bool
}

// ItemsOptions configures the Items function.
type ItemsOptions struct {
	// Language specifies which language to use.
	// Defaults to "rust".
	Language string

	// Path is the root directory to scan for files.
	// If empty, current directory is used.
	Path string

	// File is a single file to analyze.
	// If set, Path is ignored.
	File string

	// Visibility filters items: "all", "public", or "private".
	// Defaults to "all".
	Visibility string

	// Jobs is the number of parallel workers.
	// If 0, defaults to number of CPUs.
	Jobs int

	// MaxBytes skips files larger than this size.
	// If 0, defaults to 2 MiB.
	MaxBytes int64
}
