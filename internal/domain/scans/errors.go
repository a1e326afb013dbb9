package scans

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidRepoURL is returned before any network call when the locator
	// cannot find an owner and a name.
	ErrInvalidRepoURL = errors.New("invalid GitHub URL")

	// ErrScanCancelled marks a run stopped by its own cancellation flag.
	ErrScanCancelled = errors.New("scan cancelled by user")

	// ErrNotFound is returned by stores when no record matches.
	ErrNotFound = errors.New("scan not found")

	// ErrRunStarted is returned when a run handle is executed twice.
	ErrRunStarted = errors.New("scan run already started")
)

// AccessKind classifies a non-2xx answer from the hosting API.
type AccessKind int

const (
	AccessFailed AccessKind = iota
	AccessUnauthorized
	AccessForbidden
	AccessPrivateNoCredential
	AccessNotFound
)

// AccessError is a hosting-API rejection. Message is meant for end users.
type AccessError struct {
	Kind   AccessKind
	Status int
	URL    string
}

// ClassifyStatus maps an HTTP status to an AccessKind. A 404 is ambiguous on
// GitHub: without a credential it most likely means a private repository.
func ClassifyStatus(status int, hasCredential bool) AccessKind {
	switch status {
	case http.StatusUnauthorized:
		return AccessUnauthorized
	case http.StatusForbidden:
		return AccessForbidden
	case http.StatusNotFound:
		if !hasCredential {
			return AccessPrivateNoCredential
		}
		return AccessNotFound
	}
	return AccessFailed
}

func (e *AccessError) Error() string {
	switch e.Kind {
	case AccessUnauthorized:
		return `GitHub authentication failed. Please verify your token is valid and has "repo" scope permissions.`
	case AccessForbidden:
		return `Your GitHub token does not have required permissions. Please ensure it has "repo" scope.`
	case AccessPrivateNoCredential:
		return "Repository is private. Please provide a GitHub personal access token to scan private repositories."
	case AccessNotFound:
		return "Repository not found. Please verify the URL is correct."
	}
	return fmt.Sprintf("Failed to access GitHub repository (status %d). Please try again.", e.Status)
}

// TransportError wraps a network failure talking to the hosting API.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf(`unable to reach GitHub API (%s): %v. This may be a connectivity or CORS problem; `+
		`for private repositories make sure a GitHub token with "repo" scope is supplied`, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
