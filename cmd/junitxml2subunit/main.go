package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"junitxml2subunit/internal/converter"
	"junitxml2subunit/internal/summary"
	"junitxml2subunit/pkg/markdown"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const logLevelEnv = "JUNITXML2SUBUNIT_LOG_LEVEL"

// Exit codes are a stable contract for callers.
const (
	exitOK                = 0
	exitBadInput          = 1
	exitBadTime           = 2
	exitMissingIdentifier = 3
	exitOutputCreate      = 4
	exitMalformedXML      = 5
	exitWriteFailed       = 6
)

// exitError carries the process exit code for errors raised by the CLI
// itself rather than by the conversion.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	var exitErr *exitError
	var sinkErr *converter.SinkError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &exitErr):
		return exitErr.code
	case errors.Is(err, converter.ErrMissingTime), errors.Is(err, converter.ErrInvalidTime):
		return exitBadTime
	case errors.Is(err, converter.ErrMissingIdentifier):
		return exitMissingIdentifier
	case errors.Is(err, converter.ErrMalformedXML):
		return exitMalformedXML
	case errors.As(err, &sinkErr):
		return exitWriteFailed
	}
	return exitBadInput
}

type options struct {
	output    string
	startTime string
	logLevel  string
	html      bool
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "junitxml2subunit PATH",
		Short: "Convert JUnit XML to Subunit v2",
		Long: `Convert a JUnit XML test report into a Subunit v2 stream.

Every testcase becomes a start and a stop packet. Test cases are laid out back
to back starting at the time the conversion starts (or --start-time), using
the durations from the report.

PATH is the XML report, or - to read it from stdin.

Exit codes:
  0  success
  1  input path missing or unreadable
  2  testcase without a (valid) time attribute
  3  testcase without name, classname or id
  4  output file could not be created
  5  malformed XML
  6  writing the output failed`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(stderr, opts.logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args[0], opts, stdin, stdout)
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Optional output path to write subunit to. If not specified it will be written to STDOUT")
	rootCmd.Flags().StringVar(&opts.startTime, "start-time", "", "Timestamp of the first test case in RFC 3339 format (default: now)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", os.Getenv(logLevelEnv), "Log level: debug, info, warn or error (default: $"+logLevelEnv+" or warn)")

	summaryCmd := &cobra.Command{
		Use:   "summary [FILE]",
		Short: "Summarize a Subunit v2 stream",
		Long: `Read a Subunit v2 stream and print a markdown report with one row per test
and the attachments of every test that has any.

FILE defaults to stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runSummary(path, opts, stdin, stdout)
		},
	}
	summaryCmd.Flags().BoolVar(&opts.html, "html", false, "Render the report as a standalone HTML page")
	summaryCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the report to this file instead of STDOUT")
	rootCmd.AddCommand(summaryCmd)

	return rootCmd
}

func setupLogging(stderr io.Writer, level string) error {
	lvl := slog.LevelWarn
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
			return fmt.Errorf("invalid log level %q", level)
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func runConvert(cmd *cobra.Command, path string, opts *options, stdin io.Reader, stdout io.Writer) error {
	epoch := time.Now()
	if opts.startTime != "" {
		t, err := time.Parse(time.RFC3339Nano, opts.startTime)
		if err != nil {
			return fmt.Errorf("invalid --start-time %q: %w", opts.startTime, err)
		}
		if t.Unix() < 0 {
			return fmt.Errorf("invalid --start-time %q: before 1970-01-01", opts.startTime)
		}
		epoch = t
	}

	input, closeInput, err := openInput(path, stdin)
	if err != nil {
		return err
	}
	defer closeInput()

	output := stdout
	var outFile *os.File
	if opts.output != "" {
		outFile, err = os.Create(opts.output)
		if err != nil {
			return &exitError{code: exitOutputCreate, err: fmt.Errorf("%v while creating output file %s", err, opts.output)}
		}
		output = outFile
	} else if f, ok := stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		slog.Warn("Writing binary subunit output to a terminal, use --output to write to a file")
	}

	stats, err := converter.Convert(cmd.Context(), input, output, converter.Options{Epoch: epoch})
	if outFile != nil {
		err = errors.Join(err, closeOutput(outFile, opts.output))
	}
	if err != nil {
		return err
	}
	slog.Info("Converted report", "path", path, "testcases", stats.TestCases, "failed", stats.Failed, "skipped", stats.Skipped)
	return nil
}

// closeOutput closes the -o file. Some filesystems only report failed
// writes on close.
func closeOutput(c io.Closer, path string) error {
	if err := c.Close(); err != nil {
		return &converter.SinkError{Err: fmt.Errorf("closing %s: %w", path, err)}
	}
	return nil
}

// openInput opens the XML report, "-" meaning stdin.
func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil, &exitError{code: exitBadInput, err: fmt.Errorf("Path to XML file: %s does not exist", path)}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &exitError{code: exitBadInput, err: fmt.Errorf("%v while reading XML file %s", err, path)}
	}
	return f, func() { f.Close() }, nil
}

func runSummary(path string, opts *options, stdin io.Reader, stdout io.Writer) error {
	input := stdin
	title := "stdin"
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open subunit stream: %w", err)
		}
		defer f.Close()
		input = f
		title = path
	}

	report, err := summary.Read(input)
	if err != nil {
		return err
	}

	out := report.Markdown(title)
	if opts.html {
		out = markdown.RenderDocument(title, out)
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(out), 0o644); err != nil {
			return &exitError{code: exitOutputCreate, err: fmt.Errorf("%v while creating output file %s", err, opts.output)}
		}
		return nil
	}
	_, err = io.WriteString(stdout, out)
	return err
}

func main() {
	rootCmd := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
