package main

import (
	"errors"
	"flag"
	"os"

	"github.com/peterbourgon/ff/v3"
)

const defaultArgFormat = "text"

var (
	inputFileHelp = "TRCLOG10 binary dump file to read."
	formatHelp    = "Output format: text or stats."
)

type arguments struct {
	inputFile string
	format    string

	fs *flag.FlagSet
}

func (args *arguments) SanityCheck() error {
	if args.inputFile == "" {
		return errors.New("no dump file specified")
	}
	switch args.format {
	case "text", "stats":
	default:
		return errors.New("format must be either text or stats")
	}
	return nil
}

// parseArgs builds a local flag set and fills it from the command line,
// from SCOPETRACE_DUMP_* environment variables and from an optional
// -config file.
func parseArgs() (*arguments, error) {
	var args arguments

	fs := flag.NewFlagSet("scopetrace-dump", flag.ExitOnError)

	fs.StringVar(&args.inputFile, "input", "", inputFileHelp)
	fs.StringVar(&args.format, "format", defaultArgFormat, formatHelp)

	fs.Usage = func() {
		fs.PrintDefaults()
	}

	args.fs = fs

	return &args, ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SCOPETRACE_DUMP"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithAllowMissingConfigFile(true),
	)
}
