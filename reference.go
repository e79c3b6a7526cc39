package scribd2pdf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MIMEType is the media type of every rendered document.
const MIMEType = "application/pdf"

// documentURLPattern captures the host and numeric id of a document page URL.
// The slash after the id is required; the slug that follows is ignored.
var documentURLPattern = regexp.MustCompile(`^https://([A-Za-z0-9][A-Za-z0-9.-]*)/document/(\d+)/`)

// DocumentReference identifies one document. It is immutable once parsed.
type DocumentReference struct {
	id        uint64
	host      string
	sourceURL string
}

// ParseReference extracts the document reference from a page URL such as
// https://www.scribd.com/document/42/some-title. Surrounding whitespace is
// ignored. Anything else fails with ErrInvalidURLFormat.
func ParseReference(raw string) (DocumentReference, error) {
	trimmed := strings.TrimSpace(raw)
	m := documentURLPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return DocumentReference{}, fmt.Errorf("%w: %q (want https://<host>/document/<id>/<title>)", ErrInvalidURLFormat, raw)
	}

	id, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return DocumentReference{}, fmt.Errorf("%w: document id %q: %v", ErrInvalidURLFormat, m[2], err)
	}

	return DocumentReference{id: id, host: strings.ToLower(m[1]), sourceURL: trimmed}, nil
}

// NormalizeURL maps a document page URL to its embed viewer URL.
func NormalizeURL(raw string) (string, error) {
	ref, err := ParseReference(raw)
	if err != nil {
		return "", err
	}
	return ref.EmbedURL(), nil
}

// ID returns the numeric document id.
func (r DocumentReference) ID() uint64 { return r.id }

// Host returns the lower-cased host of the source URL.
func (r DocumentReference) Host() string { return r.host }

// SourceURL returns the URL the reference was parsed from, trimmed.
func (r DocumentReference) SourceURL() string { return r.sourceURL }

// EmbedURL returns the canonical viewer endpoint for the document.
func (r DocumentReference) EmbedURL() string {
	return fmt.Sprintf("https://%s/embeds/%d/content", r.host, r.id)
}

// Filename returns the suggested file name for the rendered PDF.
func (r DocumentReference) Filename() string {
	return fmt.Sprintf("scribd_doc_%d.pdf", r.id)
}

// IsZero reports whether r was never successfully parsed.
func (r DocumentReference) IsZero() bool { return r.sourceURL == "" }

// String returns the embed URL.
func (r DocumentReference) String() string { return r.EmbedURL() }
