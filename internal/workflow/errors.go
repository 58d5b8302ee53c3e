// Package workflow drives posts through the liker analysis pipeline:
// directory setup, fetch, persist, organize, enrich, analyze, and the
// optional archive and record stages. Stage completion is represented by the
// files present in each post directory.
package workflow

import "errors"

// Sentinel errors for workflow operations.
var (
	ErrOutputRoot      = errors.New("output root unavailable")
	ErrNoFetcher       = errors.New("fetcher not configured")
	ErrInvalidPostURL  = errors.New("no post id in url")
	ErrDirectoryFailed = errors.New("failed to prepare post directory")
	ErrPersistFailed   = errors.New("failed to persist roster")
	ErrMissingRoster   = errors.New("no roster in post directory")
	ErrAnalyzeFailed   = errors.New("analysis failed")
	ErrArchiveFailed   = errors.New("archive failed")
	ErrRecordFailed    = errors.New("record failed")
)
