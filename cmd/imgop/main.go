// Command imgop runs a single image operation on a file or stdin.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alt-ctrl-dev/imagewise/internal/backend/commands"
	"github.com/alt-ctrl-dev/imagewise/internal/core"
	"github.com/spf13/pflag"
)

type options struct {
	operation string
	maxHeight int
	level     int
	quality   float64
	strip     bool
	input     string
	output    string
	workers   int
	logLevel  string
	config    string

	// changed holds the flags given on the command line.
	changed map[string]bool
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	flags := pflag.NewFlagSet("imgop", pflag.ContinueOnError)
	flags.StringVarP(&opts.operation, "op", "o", "", "operation to run: resize, minify or convert_to_webp")
	flags.IntVar(&opts.maxHeight, "max-height", 0, "maximum output height (resize)")
	flags.IntVar(&opts.level, "level", 2, "optimization preset 0-6, higher values are capped (minify)")
	flags.Float64Var(&opts.quality, "quality", 80, "lossy quality 0-100 (convert_to_webp)")
	flags.BoolVar(&opts.strip, "strip", false, "drop all ancillary chunks (minify)")
	flags.StringVarP(&opts.input, "in", "i", "-", "input file, - for stdin")
	flags.StringVar(&opts.output, "out", "-", "output file, - for stdout")
	flags.IntVar(&opts.workers, "workers", 1, "concurrent operations, 0 for GOMAXPROCS")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.StringVarP(&opts.config, "config", "c", "", "YAML config whose operation defaults apply to unset flags")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	opts.changed = make(map[string]bool)
	flags.Visit(func(f *pflag.Flag) { opts.changed[f.Name] = true })
	if opts.operation == "" {
		return nil, fmt.Errorf("--op is required")
	}
	return opts, nil
}

// operationParams maps the flags relevant to an operation to its parameters.
// A flag left unset yields to the configured operation default and falls
// back to the flag's own default when none is configured.
func operationParams(opts *options, defaults map[string]map[string]any) (map[string]any, error) {
	params := map[string]any{}
	useFlag := func(flag, key string, value any) {
		if _, configured := defaults[opts.operation][key]; opts.changed[flag] || !configured {
			params[key] = value
		}
	}

	switch opts.operation {
	case commands.ResizeCommandName:
		useFlag("max-height", "max_height", opts.maxHeight)
	case commands.MinifyCommandName:
		useFlag("level", "level", opts.level)
		useFlag("strip", "strip", opts.strip)
	case commands.WebpConverterCommandName:
		useFlag("quality", "quality", opts.quality)
	default:
		return nil, fmt.Errorf("unknown operation: %s", opts.operation)
	}
	return params, nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	config := core.DefaultConfig()
	if opts.config != "" {
		if config, err = core.LoadConfig(opts.config); err != nil {
			return err
		}
	}
	if opts.config == "" || opts.changed["workers"] {
		config.Workers = opts.workers
	}
	if opts.config == "" || opts.changed["log-level"] {
		config.LogLevel = opts.logLevel
	}
	config.RequestTimeout = 0

	params, err := operationParams(opts, config.OperationDefaults())
	if err != nil {
		return err
	}

	logger := core.NewLogger(stderr, config.LogLevel, config.LogFormat)
	slog.SetDefault(logger)

	coreService, err := core.NewCoreService(config)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := coreService.Close(); cerr != nil {
			logger.Error("core service close error", "error", cerr)
		}
	}()

	input, err := readInput(opts.input, stdin)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	result, err := coreService.Run(context.Background(), opts.operation, input, params)
	if err != nil {
		return err
	}
	if !result.OK() {
		return result.Err()
	}

	if err := writeOutput(opts.output, result.Image, stdout); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	logger.Info("operation completed",
		"command_name", opts.operation,
		"input_size_bytes", len(input),
		"output_size_bytes", len(result.Image))
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
