package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ErrUnknownCommand is returned for an unrecognized first argument.
var ErrUnknownCommand = errors.New("unknown command")

// commands lists the subcommand names.
var commands = map[string]bool{
	"convert":    true,
	"serve":      true,
	"doctor":     true,
	"completion": true,
	"version":    true,
	"help":       true,
}

func main() {
	// Configure GOMAXPROCS with conditional logging
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if hasVerboseFlag(os.Args[1:]) {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	os.Exit(runMain(os.Args, DefaultEnv()))
}

// runMain dispatches the command line and returns the process exit code.
func runMain(args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	warnUnknownEnvVars(env.Stderr, env.Environ())

	ctx, stop := notifyContext(context.Background())
	defer stop()

	cmd, rest := args[1], args[2:]
	if !isCommand(cmd) && looksLikeURL(cmd) {
		cmd, rest = "convert", args[1:]
	}

	var err error
	switch cmd {
	case "convert":
		err = runConvert(ctx, rest, env)
	case "serve":
		err = runServe(ctx, rest, env)
	case "doctor":
		return runDoctorCmd(ctx, rest, env)
	case "completion":
		err = runCompletion(rest, env)
	case "version":
		fmt.Fprintf(env.Stdout, "scribd2pdf %s\n", Version)
		return ExitSuccess
	case "help", "-h", "--help":
		runHelp(rest, env)
		return ExitSuccess
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
		printUsage(env.Stderr)
	}

	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, flag.ErrHelp) {
		// Usage was already printed by the FlagSet.
		return ExitSuccess
	}
	printError(err, env)
	return exitCodeFor(err)
}

// printError writes err to stderr with a hint when one applies. Batch
// failures were already reported per document.
func printError(err error, env *Environment) {
	var be *batchError
	if errors.As(err, &be) {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return
	}
	fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err, env.Config))
}

// isCommand reports whether name is a subcommand.
func isCommand(name string) bool {
	return commands[name]
}

// looksLikeURL reports whether arg is a document URL rather than a command.
func looksLikeURL(arg string) bool {
	return strings.HasPrefix(arg, "https://") || strings.HasPrefix(arg, "http://")
}

// hasVerboseFlag scans raw arguments for -v or --verbose before parsing.
func hasVerboseFlag(args []string) bool {
	for _, a := range args {
		if a == "-v" || a == "--verbose" {
			return true
		}
	}
	return false
}
