package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: scribd2pdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert     Convert Scribd documents to PDF")
	fmt.Fprintln(w, "  serve       Run the HTTP conversion service")
	fmt.Fprintln(w, "  doctor      Check the browser driver and environment")
	fmt.Fprintln(w, "  completion  Generate shell completion script")
	fmt.Fprintln(w, "  version     Show version information")
	fmt.Fprintln(w, "  help        Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "A document URL in place of a command runs convert.")
	fmt.Fprintln(w, "Run 'scribd2pdf help <command>' for details on a specific command.")
}

// printBrowserFlagsUsage prints the driver flags shared by every command.
func printBrowserFlagsUsage(w io.Writer) {
	fmt.Fprintln(w, "Browser:")
	fmt.Fprintln(w, "      --strategy <s>        Driver: fixed, dynamic (default dynamic)")
	fmt.Fprintln(w, "      --browser-bin <path>  Browser executable (implies fixed)")
	fmt.Fprintln(w, "      --control-url <url>   DevTools URL of a running browser (implies fixed)")
	fmt.Fprintln(w, "      --no-sandbox          Disable the browser sandbox (Docker/CI)")
	fmt.Fprintln(w, "      --stealth             Apply headless-detection evasions")
	fmt.Fprintln(w, "      --headful             Show the browser window")
}

// printTimingFlagsUsage prints the pacing flags.
func printTimingFlagsUsage(w io.Writer) {
	fmt.Fprintln(w, "Timing:")
	fmt.Fprintln(w, "  -t, --timeout <d>         Print timeout (default 60s)")
	fmt.Fprintln(w, "      --scroll-delay <d>    Wait after each page (default 400ms)")
	fmt.Fprintln(w, "      --settle <d>          Wait after navigation (default 3s)")
}

// printCommonFlagsUsage prints the config and verbosity flags.
func printCommonFlagsUsage(w io.Writer) {
	fmt.Fprintln(w, "General:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show detailed progress and timing")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: scribd2pdf convert <url>... [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert Scribd documents to PDF.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  url      https://www.scribd.com/document/<id>/<title>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output directory, or .pdf file for a single URL")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel conversions (0 = auto)")
	fmt.Fprintln(w, "      --html                Also write the sanitized HTML snapshot")
	fmt.Fprintln(w)
	printBrowserFlagsUsage(w)
	fmt.Fprintln(w)
	printTimingFlagsUsage(w)
	fmt.Fprintln(w)
	printCommonFlagsUsage(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  SCRIBD2PDF_CONFIG, SCRIBD2PDF_STRATEGY, SCRIBD2PDF_BROWSER_BIN,")
	fmt.Fprintln(w, "  SCRIBD2PDF_CONTROL_URL, SCRIBD2PDF_NO_SANDBOX, SCRIBD2PDF_TIMEOUT,")
	fmt.Fprintln(w, "  SCRIBD2PDF_SCROLL_DELAY, SCRIBD2PDF_OUTPUT_DIR, SCRIBD2PDF_WORKERS")
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: scribd2pdf serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run the HTTP conversion service.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Endpoints:")
	fmt.Fprintln(w, "  GET  /healthz             Liveness probe")
	fmt.Fprintln(w, "  GET  /convert?url=<url>   Convert and download the PDF (POST form also accepted)")
	fmt.Fprintln(w, "  GET  /metrics             Prometheus metrics")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Service:")
	fmt.Fprintln(w, "      --addr <host:port>    Listen address (default :8080)")
	fmt.Fprintln(w, "      --max-concurrent <n>  Concurrent conversions (default 2)")
	fmt.Fprintln(w)
	printBrowserFlagsUsage(w)
	fmt.Fprintln(w)
	printTimingFlagsUsage(w)
	fmt.Fprintln(w)
	printCommonFlagsUsage(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: scribd2pdf doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Report how the configured driver finds a browser, without launching it.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "      --json                Print the report as JSON")
	fmt.Fprintln(w)
	printBrowserFlagsUsage(w)
	fmt.Fprintln(w)
	printCommonFlagsUsage(w)
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "convert":
		printConvertUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "completion":
		printCompletionUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: scribd2pdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: scribd2pdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
