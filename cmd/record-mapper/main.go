// Package main provides the CLI entrypoint for record-mapper.
//
// record-mapper loads flat assessment exports into a relational database:
//   - ddl prints the tables derived from the assessment records
//   - ingest reads a CSV file, builds the records and saves them
//   - convert converts a value between units of one dimension
//   - date shows how free-text dates and times are read
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
)

var exitFunc = os.Exit

const usage = `usage: record-mapper <command> [flags] [args]

commands:
  ddl      print the CREATE statements of the assessment tables
  ingest   load a CSV export (or - for stdin) into the database
  convert  convert a value: convert [-dimension d] value from to
  date     parse dates, times and date-times given as arguments

Run "record-mapper <command> -h" for the flags of a command.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)

	stop()
	exitFunc(code)
}

func cli(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error

	switch cmd, rest := args[0], args[1:]; cmd {
	case "ddl":
		err = runDDL(rest, stdout, stderr)
	case "ingest":
		err = runIngest(ctx, rest, stdin, stdout, stderr)
	case "convert":
		err = runConvert(rest, stdout, stderr)
	case "date":
		err = runDate(rest, stdout, stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, err)
		return 2
	default:
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
}

var errUsage = errors.New("invalid arguments")

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("record-mapper "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	return fs
}
