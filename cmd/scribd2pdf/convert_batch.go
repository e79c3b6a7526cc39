package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	scribd2pdf "github.com/alnah/go-scribd2pdf"
	"github.com/alnah/go-scribd2pdf/internal/fileutil"
)

// batchParams groups parameters shared across a batch.
type batchParams struct {
	html        bool
	workers     int
	newReporter func(DocumentToConvert) scribd2pdf.Reporter
}

// ConversionResult holds the outcome of a single conversion.
type ConversionResult struct {
	URL        string
	OutputPath string
	HTMLPath   string
	Pages      int
	Err        error
	Duration   time.Duration
}

// convertBatch converts documents concurrently. Every conversion opens and
// closes its own browser session, so workers share only the converter.
func convertBatch(ctx context.Context, conv CLIConverter, docs []DocumentToConvert, params *batchParams) []ConversionResult {
	if len(docs) == 0 {
		return nil
	}

	concurrency := params.workers
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(docs) {
		concurrency = len(docs)
	}

	results := make([]ConversionResult, len(docs))
	var wg sync.WaitGroup
	jobs := make(chan int, len(docs))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = ConversionResult{
						URL: docs[idx].URL,
						Err: ctx.Err(),
					}
					continue
				}
				results[idx] = convertDocument(ctx, conv, docs[idx], params)
			}
		}()
	}

	for i := range docs {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// convertDocument processes a single document and returns the result.
// Files are written atomically, so a failed run never leaves a partial PDF.
func convertDocument(ctx context.Context, conv CLIConverter, doc DocumentToConvert, params *batchParams) ConversionResult {
	start := time.Now()
	result := ConversionResult{
		URL:        doc.URL,
		OutputPath: doc.OutputPath,
	}

	var rep scribd2pdf.Reporter
	if params.newReporter != nil {
		rep = params.newReporter(doc)
	}

	res, err := conv.Convert(ctx, scribd2pdf.Input{
		URL:         doc.URL,
		Reporter:    rep,
		CaptureHTML: params.html,
	})
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}
	result.Pages = res.Pages

	// The PDF goes first so a failed write never leaves an orphan snapshot.
	// #nosec G306 -- PDFs are meant to be readable
	if err := fileutil.WriteFileAtomic(doc.OutputPath, res.PDF, filePermissions); err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrWritePDF, err)
		result.Duration = time.Since(start)
		return result
	}

	if params.html {
		htmlPath := fileutil.ReplaceExtension(doc.OutputPath, ".html")
		// #nosec G306 -- HTML files are meant to be readable
		if err := fileutil.WriteFileAtomic(htmlPath, res.HTML, filePermissions); err != nil {
			result.Err = fmt.Errorf("%w: %v", ErrWriteHTML, err)
			result.Duration = time.Since(start)
			return result
		}
		result.HTMLPath = htmlPath
	}

	result.Duration = time.Since(start)
	return result
}

// ResultSummary holds the count of succeeded and failed conversions.
type ResultSummary struct {
	Succeeded int
	Failed    int
}

// countResults tallies succeeded and failed conversions.
func countResults(results []ConversionResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// firstError returns the first failure in input order.
func firstError(results []ConversionResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// printResultsWithWriter outputs conversion results using the provided writers.
// Returns the number of failures.
func printResultsWithWriter(results []ConversionResult, quiet, verbose bool, env *Environment) int {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", r.URL, r.Err, hintFor(r.Err, env.Config))
			continue
		}

		if quiet {
			continue
		}

		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d pages, %v)\n", r.URL, r.OutputPath, r.Pages, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
		if r.HTMLPath != "" {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.HTMLPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}

	return summary.Failed
}
