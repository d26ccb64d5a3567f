package rsdoc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPlanConsumed is returned when an insertion plan is replayed a second time.
var ErrPlanConsumed = errors.New("insertion plan already consumed")

// Pipeline stages reported in FileError.
const (
	StageRead       = "read"
	StageParse      = "parse"
	StageReassemble = "reassemble"
	StageValidate   = "validate"
	StageWrite      = "write"
)

// ParseError reports source that could not be parsed into a clean tree.
type ParseError struct {
	Offset   int
	Line     int
	Column   int
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d (offset %d): expected %s, found %q",
		e.Line, e.Column, e.Offset, e.Expected, e.Found)
}

// ReassemblyError reports insertion points that cannot be applied together.
type ReassemblyError struct {
	ConflictingAnchors []string
	Offset             int
}

func (e *ReassemblyError) Error() string {
	return fmt.Sprintf("conflicting insertion anchors at offset %d: %s",
		e.Offset, strings.Join(e.ConflictingAnchors, ", "))
}

// ValidationError reports a reassembled file that no longer matches its original structure.
type ValidationError struct {
	Mismatch []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Mismatch, "; ")
}

// InferenceFailure records an item whose documentation could not be inferred.
type InferenceFailure struct {
	ItemID string
	Reason string
	Err    error
}

func (e *InferenceFailure) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("inference for %s failed: %s", e.ItemID, e.Reason)
	}
	return fmt.Sprintf("inference for %s failed: %s: %v", e.ItemID, e.Reason, e.Err)
}

func (e *InferenceFailure) Unwrap() error {
	return e.Err
}

// FileError is the per-file error report: which file, which stage, what went wrong.
type FileError struct {
	File   string `json:"file" yaml:"file"`
	Stage  string `json:"stage" yaml:"stage"`
	Detail string `json:"detail" yaml:"detail"`
	Err    error  `json:"-" yaml:"-"`
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.File, e.Stage, e.Detail)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

func newFileError(file, stage string, err error) *FileError {
	return &FileError{File: file, Stage: stage, Detail: err.Error(), Err: err}
}
