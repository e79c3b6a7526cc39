package scribd2pdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var _ pdfValidator = pdfcpuValidator{}

// errNoPages is returned for structurally valid documents without pages.
var errNoPages = errors.New("document has no pages")

// pdfcpuValidator parses the rendered document with pdfcpu.
type pdfcpuValidator struct{}

func (pdfcpuValidator) Validate(pdf []byte) (int, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(pdf), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("pdfcpu validate: %w", err)
	}
	if ctx.PageCount < 1 {
		return 0, errNoPages
	}
	return ctx.PageCount, nil
}
