package rsdoc

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arjunmahishi/rsdoc/logging"
	"github.com/arjunmahishi/rsdoc/types"
)

// defaultIgnoreDirs returns the directories never descended into. Cargo
// build output and vendored crates are not ours to document.
func defaultIgnoreDirs() map[string]struct{} {
	return map[string]struct{}{
		".git":         {},
		".hg":          {},
		".svn":         {},
		".jj":          {},
		"target":       {},
		"vendor":       {},
		"node_modules": {},
		".cargo":       {},
		".cache":       {},
	}
}

type scannerConfig struct {
	root       string
	language   Language
	ignoreDirs map[string]struct{}
	maxBytes   int64
}

// scanner discovers source files for processing.
type scanner struct {
	cfg scannerConfig
}

func newScanner(cfg scannerConfig) *scanner {
	if cfg.ignoreDirs == nil {
		cfg.ignoreDirs = defaultIgnoreDirs()
	}
	return &scanner{cfg: cfg}
}

// collect finds all matching files under the root, sorted by display path.
func (s *scanner) collect() ([]types.FileJob, error) {
	absRoot, err := filepath.Abs(s.cfg.root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	var jobs []types.FileJob
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if s.shouldIgnoreDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !s.isSupportedFile(d.Name()) {
			return nil
		}

		if s.cfg.maxBytes > 0 {
			info, err := d.Info()
			if err != nil {
				return nil
			}
			if info.Size() > s.cfg.maxBytes {
				logging.Debug("skipping large file", "file", path, "size", info.Size())
				return nil
			}
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			rel = path
		}

		jobs = append(jobs, types.FileJob{
			AbsPath:     path,
			DisplayPath: filepath.ToSlash(rel),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].DisplayPath < jobs[j].DisplayPath
	})
	return jobs, nil
}

// collectSingle returns one explicitly named file. Unlike collect it does
// not filter by extension, but the file must exist.
func (s *scanner) collectSingle(filePath string) (types.FileJob, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return types.FileJob{}, fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return types.FileJob{}, err
	}
	if info.IsDir() {
		return types.FileJob{}, fmt.Errorf("%s is a directory", filePath)
	}

	return types.FileJob{
		AbsPath:     absPath,
		DisplayPath: filepath.Base(absPath),
	}, nil
}

// jobs resolves either the single file or the scanned root.
func (s *scanner) jobs(file string) ([]types.FileJob, error) {
	if file != "" {
		job, err := s.collectSingle(file)
		if err != nil {
			return nil, err
		}
		return []types.FileJob{job}, nil
	}
	return s.collect()
}

func (s *scanner) shouldIgnoreDir(name string) bool {
	_, ok := s.cfg.ignoreDirs[name]
	return ok
}

func (s *scanner) isSupportedFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, e := range s.cfg.language.Extensions() {
		if ext == e {
			return true
		}
	}
	return false
}
