// Package scribd2pdf captures documents from the Scribd embed viewer as PDF
// files using a headless Chromium browser.
//
// # Quick Start
//
// Pick a session factory, create a converter, and convert a document URL:
//
//	factory, err := scribd2pdf.NewSessionFactory(scribd2pdf.DriverEnvironment{
//	    Strategy: scribd2pdf.DriverDynamic,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	conv, err := scribd2pdf.NewConverter(factory)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := conv.Convert(ctx, scribd2pdf.Input{
//	    URL: "https://www.scribd.com/document/123456/Some-Title",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(result.Filename(), result.PDF, 0644)
//
// The file name is derived from the document id (scribd_doc_123456.pdf).
//
// # Conversion Pipeline
//
// Each call to Convert runs these stages on a session of its own:
//
//  1. URL normalization: the document page URL becomes the embed viewer URL
//  2. Session launch and navigation, followed by a settle delay
//  3. Lazy-load scrolling: every page fragment is scrolled into view in order
//  4. DOM sanitization: toolbars, banners and consent overlays are removed
//     and a print stylesheet is injected
//  5. Print to PDF, with the payload decoded and checked by pdfcpu
//
// The session is closed exactly once before Convert returns, whether the
// conversion succeeds, fails, or panics.
//
// # Drivers
//
// Two strategies provide the browser:
//
//   - DriverFixedPath launches a local binary (BrowserBin) or attaches to a
//     running browser through its DevTools endpoint (ControlURL).
//   - DriverDynamic downloads a matching Chromium revision on first use and
//     caches it for the life of the process.
//
// For containers and CI environments, set DriverEnvironment.NoSandbox.
// ROD_BROWSER_BIN is honored by the command line tool.
//
// # Configuration
//
// Use functional options to customize the converter:
//
//	conv, err := scribd2pdf.NewConverter(factory,
//	    scribd2pdf.WithScrollDelay(800*time.Millisecond),
//	    scribd2pdf.WithRenderTimeout(2*time.Minute),
//	    scribd2pdf.WithMargins(scribd2pdf.Margins{Top: 0.4, Bottom: 0.4}),
//	    scribd2pdf.WithLogger(logger),
//	)
//
// Progress is reported through Input.Reporter. LogReporter writes to zap,
// RecordingReporter keeps every event for later inspection.
package scribd2pdf
