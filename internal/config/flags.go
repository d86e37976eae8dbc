package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into geometry/batching, governor, limits, and utility.
// Enum-valued flags use flag.Value adapters so invalid values fail at parse time.

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParseFlags parses os.Args into cfg. On --help or --version it prints and
// exits. On error it returns non-nil (e.g. unknown flag, missing positional
// args). version is injected by the caller for --version and help output.
func ParseFlags(cfg *Config, version string) error {
	fs := flag.NewFlagSet("imageprep", flag.ContinueOnError)
	fs.Usage = func() { printUsage(fs, version) }

	var util utilityFlags

	defineBatchFlags(fs, cfg)
	defineGovernorFlags(fs, cfg)
	defineLimitFlags(fs, cfg)
	defineDisplayFlags(fs, cfg, &util)
	defineUtilityFlags(fs, cfg, &util)

	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	if util.noColor {
		cfg.ColorMode = ColorNever
	} else if util.forceColor {
		cfg.ColorMode = ColorAlways
	}

	if util.showHelp {
		printUsage(fs, version)
		os.Exit(0)
	}
	if util.showVersion {
		fmt.Fprintln(os.Stdout, "imageprep v"+version)
		os.Exit(0)
	}

	return parsePositionalArgs(fs, cfg)
}

// utilityFlags holds boolean flags applied after Parse.
type utilityFlags struct {
	forceColor  bool
	noColor     bool
	showVersion bool
	showHelp    bool
}

// defineBatchFlags registers geometry, batching, and output format flags.
func defineBatchFlags(fs *flag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Images per output batch file")
	fs.IntVar(&cfg.BatchSize, "b", cfg.BatchSize, "Same as --batch-size")
	fs.Var(&outputFormatValue{&cfg.OutputFormat}, "format", "Output container: text | binary")
	fs.Var(&outputFormatValue{&cfg.OutputFormat}, "F", "Same as --format")
	fs.StringVar(&cfg.Prefix, "prefix", cfg.Prefix, "Batch filename prefix")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "Target image width in pixels")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "Target image height in pixels")
	fs.IntVar(&cfg.Channels, "channels", cfg.Channels, "Channels per pixel: 3 (RGB) or 1 (gray)")
	fs.StringVar(&cfg.LabelsPath, "labels", "", "Labels JSON path (default: <input>/labels.json)")
}

// defineGovernorFlags registers thermal mode, CPU targets, and the workload override.
func defineGovernorFlags(fs *flag.FlagSet, cfg *Config) {
	fs.Var(&thermalModeValue{&cfg.ThermalMode}, "mode", "Thermal mode: conservative | performance")
	fs.Var(&thermalModeValue{&cfg.ThermalMode}, "m", "Same as --mode")
	fs.IntVar(&cfg.TargetCPUPct, "target-cpu", cfg.TargetCPUPct, "Target CPU usage percent for auto-scaling")
	fs.IntVar(&cfg.MaxSustainedCPUPct, "max-sustained-cpu", cfg.MaxSustainedCPUPct, "Sustained CPU ceiling percent (conservative mode)")
	fs.Var(&workloadValue{cfg}, "workload", "Workload override: auto | off | <N>")
	fs.Var(&workloadValue{cfg}, "w", "Same as --workload")
}

// defineLimitFlags registers the memory ceiling and the expected-count check.
func defineLimitFlags(fs *flag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.MemoryCeilingMB, "memory-ceiling", cfg.MemoryCeilingMB, "Heap growth ceiling in MiB before forced cleanup (0 disables)")
	fs.IntVar(&cfg.ExpectedCount, "expect", 0, "Expected image count; warn when discovery differs")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Discover and plan only; write nothing")
	fs.BoolVar(&cfg.DryRun, "d", false, "Same as --dry-run")
	fs.StringVar(&cfg.SingleFile, "single", "", "Convert one image as a diagnostic and exit")
}

// defineDisplayFlags registers --color, --no-color, verbose, --log.
func defineDisplayFlags(fs *flag.FlagSet, cfg *Config, u *utilityFlags) {
	fs.BoolVar(&u.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&u.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", false, "Same as --verbose")
	fs.StringVar(&cfg.LogFile, "log", "", "Append logs to file")
	fs.StringVar(&cfg.LogFile, "l", "", "Same as --log")
}

// defineUtilityFlags registers --check, --version and --help.
func defineUtilityFlags(fs *flag.FlagSet, cfg *Config, u *utilityFlags) {
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Run system diagnostics and exit")
	fs.BoolVar(&cfg.CheckOnly, "c", false, "Same as --check")
	fs.BoolVar(&u.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&u.showVersion, "V", false, "Same as --version")
	fs.BoolVar(&u.showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&u.showHelp, "h", false, "Same as --help")
}

// parsePositionalArgs sets InputDir and OutputDir from the two positional
// args when not in CheckOnly or single-file mode.
func parsePositionalArgs(fs *flag.FlagSet, cfg *Config) error {
	args := fs.Args()
	if cfg.CheckOnly || cfg.SingleFile != "" {
		return nil
	}
	if len(args) != 2 {
		return fmt.Errorf("need exactly input_dir and output_dir")
	}
	cfg.InputDir = NormalizeDirArg(args[0])
	cfg.OutputDir = NormalizeDirArg(args[1])
	return nil
}

// printUsage writes the help text to stderr. Column-aligned for readability.
func printUsage(fs *flag.FlagSet, version string) {
	const col1 = 30
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "imageprep v" + version + " - image-to-tensor batch preprocessor"},
		{"", ""},
		{"  imageprep [OPTIONS] <input_dir> <output_dir>", ""},
		{"", ""},
		{"Batching", ""},
		{"  -b, --batch-size <n>", "Images per output file (default: 1000)"},
		{"  -F, --format <text|binary>", "Batch container (default: text)"},
		{"  --prefix <name>", "Batch filename prefix (default: batch)"},
		{"  --width <px>", "Target width (default: 32)"},
		{"  --height <px>", "Target height (default: 32)"},
		{"  --channels <1|3>", "Channels per pixel (default: 3)"},
		{"  --labels <path>", "Labels JSON (default: <input>/labels.json)"},
		{"", ""},
		{"Workload governor", ""},
		{"  -m, --mode <name>", "conservative | performance (default: conservative)"},
		{"  -w, --workload <auto|off|N>", "Override detected intensity"},
		{"  --target-cpu <pct>", "Auto-scaling target (default: 70)"},
		{"  --max-sustained-cpu <pct>", "Conservative-mode ceiling (default: 80)"},
		{"", ""},
		{"Limits & behavior", ""},
		{"  --memory-ceiling <MiB>", "Forced cleanup threshold, 0 = off (default: 0)"},
		{"  --expect <n>", "Warn when discovered count differs from n"},
		{"  -d, --dry-run", "Discover and plan only; write nothing"},
		{"  --single <file>", "Convert one image as a diagnostic and exit"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"", ""},
		{"Utility", ""},
		{"  -l, --log <path>", "Append logs to file"},
		{"  -c, --check", "System diagnostics (cores, decode, write test)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(os.Stderr)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(os.Stderr, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(os.Stderr, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(os.Stderr, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}

// flag.Value adapters so enum types can be used with flag.Var.

type outputFormatValue struct{ p *OutputFormat }

func (o *outputFormatValue) String() string {
	if o.p == nil {
		return ""
	}
	return string(*o.p)
}

func (o *outputFormatValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "text":
		*o.p = FormatText
	case "binary":
		*o.p = FormatBinary
	default:
		return fmt.Errorf("invalid format %q (use 'text' or 'binary')", s)
	}
	return nil
}

type thermalModeValue struct{ p *ThermalMode }

func (t *thermalModeValue) String() string {
	if t.p == nil {
		return ""
	}
	return string(*t.p)
}

func (t *thermalModeValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "conservative":
		*t.p = ThermalConservative
	case "performance":
		*t.p = ThermalPerformance
	default:
		return fmt.Errorf("invalid mode %q (use 'conservative' or 'performance')", s)
	}
	return nil
}

// workloadValue parses "auto", "off", or a positive integer into the
// Workload/WorkloadN pair.
type workloadValue struct{ cfg *Config }

func (w *workloadValue) String() string {
	if w.cfg == nil {
		return ""
	}
	if w.cfg.Workload == WorkloadFixed {
		return strconv.Itoa(w.cfg.WorkloadN)
	}
	return string(w.cfg.Workload)
}

func (w *workloadValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "auto":
		w.cfg.Workload = WorkloadAuto
		w.cfg.WorkloadN = 0
		return nil
	case "off", "disabled":
		w.cfg.Workload = WorkloadOff
		w.cfg.WorkloadN = 0
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fmt.Errorf("invalid workload %q (use 'auto', 'off', or a positive integer)", s)
	}
	w.cfg.Workload = WorkloadFixed
	w.cfg.WorkloadN = n
	return nil
}
