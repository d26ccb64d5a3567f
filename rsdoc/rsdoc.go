// Package rsdoc adds documentation comments to Rust source without
// touching anything else in it.
//
// Each file runs through a strict pipeline: Parse builds a lossless tree,
// Extract lists the documentable items, a Placer triages them and turns
// inference results into a Plan, Reassemble splices the planned doc lines
// into the original tokens and Validate proves the result is the original
// plus comments. Files are independent and processed in parallel.
package rsdoc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"fortio.org/safecast"

	"github.com/arjunmahishi/rsdoc/config"
	"github.com/arjunmahishi/rsdoc/infer"
	"github.com/arjunmahishi/rsdoc/logging"
	"github.com/arjunmahishi/rsdoc/types"
)

const defaultMaxBytes = 2 * 1024 * 1024

// SkipInfo names a planned item that was left alone and why.
type SkipInfo struct {
	Item   string `json:"item" yaml:"item"`
	Reason string `json:"reason" yaml:"reason"`
}

// FileResult is the outcome of documenting one file. When Err is set,
// Output is the original text.
type FileResult struct {
	File     string     `json:"file" yaml:"file"`
	Changed  bool       `json:"changed" yaml:"changed"`
	Items    int        `json:"items" yaml:"items"`
	Inserted int        `json:"inserted" yaml:"inserted"`
	Merged   int        `json:"merged" yaml:"merged"`
	Skipped  int        `json:"skipped" yaml:"skipped"`
	Skips    []SkipInfo `json:"skips,omitempty" yaml:"skips,omitempty"`
	Err      *FileError `json:"error,omitempty" yaml:"error,omitempty"`

	Output []byte `json:"-" yaml:"-"`
	Plan   *Plan  `json:"-" yaml:"-"`
}

// resolved is DocOptions with defaults applied.
type resolved struct {
	cfg       config.Config
	adapter   infer.Adapter
	language  Language
	placement PlacementOptions
	jobs      int
	maxBytes  int64
}

func (opts DocOptions) resolve() (resolved, error) {
	cfg := opts.Config.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return resolved{}, err
	}
	language, err := lookup(opts.Language)
	if err != nil {
		return resolved{}, err
	}
	adapter := opts.Adapter
	if adapter == nil {
		adapter = infer.Heuristic{}
	}
	minLen, err := safecast.Conv[int](cfg.MinExistingDocLen)
	if err != nil {
		return resolved{}, fmt.Errorf("min_existing_doc_len: %w", err)
	}
	if opts.Jobs == 0 {
		opts.Jobs = runtime.NumCPU()
	}
	if opts.MaxBytes == 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	return resolved{
		cfg:      cfg,
		adapter:  adapter,
		language: language,
		placement: PlacementOptions{
			DocumentPrivate:   cfg.DocumentPrivate,
			MinExistingDocLen: minLen,
			Placeholders:      cfg.Placeholders,
		},
		jobs:     opts.Jobs,
		maxBytes: opts.MaxBytes,
	}, nil
}

// Document runs the pipeline over every file selected by opts and returns
// one result per file, in path order. Per-file failures are reported in the
// results; the error is only set when no file could be processed at all.
func Document(ctx context.Context, opts DocOptions) ([]FileResult, error) {
	r, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	if opts.Path == "" {
		opts.Path = "."
	}

	sc := newScanner(scannerConfig{
		root:     opts.Path,
		language: r.language,
		maxBytes: r.maxBytes,
	})
	files, err := sc.jobs(opts.File)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return []FileResult{}, nil
	}

	results := runWorkers(ctx, files, r.jobs, func(ctx context.Context, job types.FileJob) FileResult {
		return r.documentFile(ctx, job, opts.Write)
	})
	return results, nil
}

// DocumentSource runs the pipeline over one in-memory file.
func DocumentSource(ctx context.Context, name string, src []byte, opts DocOptions) (FileResult, error) {
	r, err := opts.resolve()
	if err != nil {
		return FileResult{}, err
	}
	return r.document(ctx, name, src), nil
}

func (r resolved) documentFile(ctx context.Context, job types.FileJob, write bool) FileResult {
	if err := ctx.Err(); err != nil {
		return r.fail(ctx, FileResult{File: job.DisplayPath}, StageRead, err)
	}
	src, err := readSource(job.AbsPath)
	if err != nil {
		return r.fail(ctx, FileResult{File: job.DisplayPath}, StageRead, err)
	}

	res := r.document(ctx, job.DisplayPath, src)
	if write && res.Changed {
		if err := writeAtomic(job.AbsPath, res.Output); err != nil {
			res.Changed = false
			return r.fail(ctx, res, StageWrite, err)
		}
	}
	return res
}

func (r resolved) document(ctx context.Context, name string, src []byte) FileResult {
	res := FileResult{File: name, Output: src}
	log := logging.LoggerFromContext(ctx)

	tree, err := Parse(ctx, r.language, src)
	if err != nil {
		return r.fail(ctx, res, StageParse, err)
	}
	items := Extract(tree)
	res.Items = len(items)

	placer := NewPlacer(r.placement, items)
	need := placer.NeedsInference(items)
	results := inferAll(ctx, r.adapter, need, int(r.cfg.InferenceConcurrency), r.cfg.InferenceTimeout())
	for _, it := range need {
		if err := results[it.ID].Err; err != nil {
			var f *InferenceFailure
			reason := "error"
			if errors.As(err, &f) {
				reason = f.Reason
			}
			logging.InferenceFailed(ctx, name, it.ID, reason, errors.Unwrap(err))
		}
	}

	plan := placer.Plan(name, items, results)
	res.Plan = plan
	for _, a := range plan.Actions {
		log.Debug("planned", "file", name, "item", a.ItemID, "action", a.Kind.String(), "reason", a.Reason)
		switch a.Kind {
		case ActionInsert:
			res.Inserted++
		case ActionMerge:
			res.Merged++
		default:
			res.Skipped++
			res.Skips = append(res.Skips, SkipInfo{Item: a.ItemID, Reason: a.Reason})
		}
	}
	if plan.Edits() == 0 {
		logging.FileSummary(ctx, name, 0, 0, res.Skipped)
		return res
	}

	out, edits, err := Reassemble(tree, plan)
	if err != nil {
		return r.fail(ctx, res, StageReassemble, err)
	}
	if err := Validate(ctx, r.language, src, items, out, edits); err != nil {
		return r.fail(ctx, res, StageValidate, err)
	}

	res.Output = out
	res.Changed = true
	logging.FileSummary(ctx, name, res.Inserted, res.Merged, res.Skipped)
	return res
}

// fail reports a file that keeps its original text.
func (r resolved) fail(ctx context.Context, res FileResult, stage string, err error) FileResult {
	res.Err = newFileError(res.File, stage, err)
	res.Inserted, res.Merged = 0, 0
	logging.FileFailed(ctx, res.File, stage, err)
	return res
}

// writeAtomic replaces path by renaming a fully written sibling temp file
// over it, keeping the original permissions.
func writeAtomic(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".rsdoc-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(info.Mode().Perm()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// ItemsResult is the output of item extraction for one file.
type ItemsResult struct {
	File  string       `json:"file" yaml:"file"`
	Items []types.Item `json:"items" yaml:"items"`
	Err   *FileError   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Items extracts documentable items without planning anything.
func Items(ctx context.Context, opts ItemsOptions) ([]ItemsResult, error) {
	if opts.Path == "" {
		opts.Path = "."
	}
	if opts.Visibility == "" {
		opts.Visibility = "all"
	}
	if opts.Jobs == 0 {
		opts.Jobs = runtime.NumCPU()
	}
	if opts.MaxBytes == 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	switch opts.Visibility {
	case "all", "public", "private":
	default:
		return nil, fmt.Errorf("unknown visibility %q", opts.Visibility)
	}

	language, err := lookup(opts.Language)
	if err != nil {
		return nil, err
	}

	sc := newScanner(scannerConfig{
		root:     opts.Path,
		language: language,
		maxBytes: opts.MaxBytes,
	})
	files, err := sc.jobs(opts.File)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return []ItemsResult{}, nil
	}

	return runWorkers(ctx, files, opts.Jobs, func(ctx context.Context, job types.FileJob) ItemsResult {
		res := ItemsResult{File: job.DisplayPath, Items: []types.Item{}}
		src, err := readSource(job.AbsPath)
		if err != nil {
			res.Err = newFileError(job.DisplayPath, StageRead, err)
			return res
		}
		tree, err := Parse(ctx, language, src)
		if err != nil {
			res.Err = newFileError(job.DisplayPath, StageParse, err)
			return res
		}
		for _, it := range Extract(tree) {
			if opts.Visibility == "all" || (opts.Visibility == "public") == it.Public {
				res.Items = append(res.Items, it)
			}
		}
		return res
	}), nil
}

// runWorkers processes files on a fixed pool of workers. Results keep the
// order of files.
func runWorkers[R any](
	ctx context.Context, files []types.FileJob, jobs int, process func(context.Context, types.FileJob) R,
) []R {
	results := make([]R, len(files))
	if len(files) == 0 {
		return results
	}

	workerCount := jobs
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(files) {
		workerCount = len(files)
	}

	jobQueue := make(chan int, 128)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for i := range jobQueue {
			results[i] = process(ctx, files[i])
		}
	}

	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go worker()
	}

	for i := range files {
		jobQueue <- i
	}
	close(jobQueue)
	wg.Wait()

	return results
}
