package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"golang.org/x/term"

	"ovum_go/pkg/config"
	"ovum_go/pkg/memory"
	"ovum_go/pkg/scenario"
)

var (
	evalScript = flag.String("e", "", "Run a script given on the command line")
	configFile = flag.String("config", "", "YAML configuration file")
	dotFile    = flag.String("dot", "", "Write the basket graphs to this file after the script")
	colorMode  = flag.String("color", "", "Colour diagnostics: auto, always or never")
	strict     = flag.Bool("strict", false, "Panic on the first validation violation")
	verbose    = flag.Bool("v", false, "Verbose output (debug logging)")
)

const (
	red   = "\x1b[31m"
	reset = "\x1b[0m"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Ovum - object lifetime inspector\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [script.ovum]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -e 'basket B; dict d B; print d'   # Run a one-line script\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -dot graph.dot cycles.ovum         # Run a file, export the graph\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s                                   # Interactive REPL\n", os.Args[0])
	}
	flag.Parse()
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	diag := diagnostics(cfg.Color)
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(diag, &slog.HandlerOptions{Level: level}))

	in := scenario.New(scenario.Options{
		Out:       os.Stdout,
		Allocator: memory.NewDefaultAllocator(),
		Logger:    logger,
		Strict:    cfg.Strict,
	})

	var input io.Reader
	switch {
	case *evalScript != "":
		input = strings.NewReader(splitScript(*evalScript))
	case flag.NArg() > 0:
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
			return 1
		}
		defer f.Close()
		input = f
	case term.IsTerminal(int(os.Stdin.Fd())):
		runREPL(in, diag, cfg.Color != config.ColorNever)
		in.Close()
		return 0
	default:
		input = os.Stdin
	}

	status := 0
	if err := in.Run(input); err != nil {
		report(diag, cfg.Color != config.ColorNever, err)
		status = 1
	}
	if cfg.Dot != "" {
		if err := writeDot(in, cfg.Dot); err != nil {
			report(diag, cfg.Color != config.ColorNever, err)
			status = 1
		}
	}
	if err := in.Finish(cfg.Verify.Min, cfg.Verify.Max); err != nil {
		report(diag, cfg.Color != config.ColorNever, err)
		if errors.Is(err, scenario.ErrVerify) && status == 0 {
			status = 3
		}
	}
	return status
}

// splitScript turns the unquoted semicolons of a one-line script into line
// breaks. Quotes and backslash escapes follow the tokenizer's rules.
func splitScript(script string) string {
	var b strings.Builder
	var quote rune
	escaped := false
	for _, r := range script {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == ';':
			b.WriteByte('\n')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// loadConfig reads the configuration file, then applies flags over it
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			return cfg, err
		}
	}
	if *colorMode != "" {
		cfg.Color = config.ColorMode(*colorMode)
	}
	if *dotFile != "" {
		cfg.Dot = *dotFile
	}
	if *strict {
		cfg.Strict = true
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Check()
}

// diagnostics returns the stderr sink, stripping colour escapes unless
// the mode and the terminal allow them
func diagnostics(mode config.ColorMode) io.Writer {
	tty := term.IsTerminal(int(os.Stderr.Fd()))
	if mode == config.ColorAlways || (mode == config.ColorAuto && tty) {
		return colorable.NewColorable(os.Stderr)
	}
	return colorable.NewNonColorable(os.Stderr)
}

func report(w io.Writer, color bool, err error) {
	if color {
		fmt.Fprintf(w, "%sError:%s %v\n", red, reset, err)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

func writeDot(in *scenario.Interpreter, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing dot: %w", err)
	}
	in.WriteDot(f)
	return f.Close()
}

func runREPL(in *scenario.Interpreter, diag io.Writer, color bool) {
	fmt.Println("Ovum REPL - object lifetime inspector")
	fmt.Println()
	fmt.Println("Type 'help' for commands, 'quit' to leave")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("ovum> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "quit":
			fmt.Println("Goodbye!")
			return
		case "help":
			for _, usage := range scenario.Commands() {
				fmt.Printf("  %s\n", usage)
			}
			continue
		}
		if err := in.Execute(line); err != nil {
			report(diag, color, err)
		}
	}
}
