package scribd2pdf

import "errors"

// Sentinel errors for library operations.
var (
	ErrInvalidURLFormat  = errors.New("invalid document URL format")
	ErrDriverUnavailable = errors.New("browser driver unavailable")
	ErrNavigationTimeout = errors.New("navigation did not complete")
	ErrRenderFailure     = errors.New("PDF rendering failed")

	// Unexpected faults inside a live session.
	ErrScrollFailure   = errors.New("scrolling document pages failed")
	ErrSanitizeFailure = errors.New("sanitizing document failed")
	ErrInternal        = errors.New("internal error")

	// Option and input validation errors.
	ErrInvalidTiming   = errors.New("invalid timing")
	ErrInvalidMargin   = errors.New("invalid margin")
	ErrInvalidStrategy = errors.New("invalid driver strategy")
	ErrInvalidMarker   = errors.New("invalid scroll marker")
)
