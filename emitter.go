package scribd2pdf

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// pdfMagic is the header every PDF file starts with.
var pdfMagic = []byte("%PDF-")

// pdfValidator checks the structure of a rendered PDF and counts its pages.
type pdfValidator interface {
	Validate(pdf []byte) (pages int, err error)
}

// emitter prints the prepared page and decodes the result.
type emitter struct {
	timeout   time.Duration
	validator pdfValidator // nil skips the structural check
}

// emit issues one print command for req under the render timeout. It never
// returns an empty buffer without an error.
func (e *emitter) emit(ctx context.Context, sess Session, req RenderRequest) ([]byte, int, error) {
	printCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	payload, err := sess.PrintToPDF(printCtx, req.Print)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, fmt.Errorf("%w: printing %s did not finish within %v: %w", ErrRenderFailure, req.URL, e.timeout, err)
		}
		return nil, 0, fmt.Errorf("%w: printing %s: %v", ErrRenderFailure, req.URL, err)
	}

	pdf, err := decodePayload(payload)
	if err != nil {
		return nil, 0, err
	}

	if e.validator == nil {
		return pdf, 0, nil
	}
	pages, err := e.validator.Validate(pdf)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}
	return pdf, pages, nil
}

// decodePayload turns the base64 data field of the print response into
// PDF bytes.
func decodePayload(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrRenderFailure)
	}
	pdf, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding payload: %v", ErrRenderFailure, err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("%w: payload decoded to zero bytes", ErrRenderFailure)
	}
	if !bytes.HasPrefix(pdf, pdfMagic) {
		return nil, fmt.Errorf("%w: payload is not a PDF document", ErrRenderFailure)
	}
	return pdf, nil
}
