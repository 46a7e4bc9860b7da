package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/himanishpuri/ABRWave/pkg/abrwave"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/arf"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/waveform"
	"github.com/himanishpuri/ABRWave/pkg/logger"
)

// Global flags
var (
	dbPath           string
	variantName      string
	kindName         string
	separation       int
	troughSeparation int
	sigma            float64
	baseline         float64
	gain             float64
	artifactOffset   int
	windowMs         float64
)

func init() {
	// Global flags that can be used with any command
	flag.StringVar(&dbPath, "db", getEnvOrDefault("ABRWAVE_DB_PATH", "abrwave.sqlite3"), "Path to the SQLite database file")
	flag.StringVar(&variantName, "variant", getEnvOrDefault("ABRWAVE_VARIANT", "rz"), "ARF layout: rz (A) or rp (B)")
	flag.StringVar(&kindName, "kind", getEnvOrDefault("ABRWAVE_KIND", "level"), "Intensity axis: level or attenuation")
	flag.IntVar(&separation, "sep", 0, "Minimum peak separation in samples (0 scales with sweep length)")
	flag.IntVar(&troughSeparation, "trough-sep", 0, "Minimum trough separation in samples (0 keeps troughs --sep apart)")
	flag.Float64Var(&sigma, "sigma", 0, "Gaussian smoothing width in samples (0 disables)")
	flag.Float64Var(&baseline, "baseline", 0, "Baseline subtracted from every sample")
	flag.Float64Var(&gain, "gain", 1, "Multiply factor applied to every sample")
	flag.IntVar(&artifactOffset, "offset", 0, "Leading samples excluded from the peak search")
	flag.Float64Var(&windowMs, "window", 10, "Sweep duration in milliseconds")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// createService creates a new ABRWave service with configured options
func createService() (abrwave.Service, error) {
	variant, err := arf.ParseVariant(variantName)
	if err != nil {
		return nil, err
	}
	kind, err := waveform.ParseIntensityKind(kindName)
	if err != nil {
		return nil, err
	}

	return abrwave.NewService(
		abrwave.WithDBPath(dbPath),
		abrwave.WithVariant(variant),
		abrwave.WithIntensityKind(kind),
		abrwave.WithSeparation(separation),
		abrwave.WithTroughSeparation(troughSeparation),
		abrwave.WithSigma(sigma),
		abrwave.WithBaseline(baseline),
		abrwave.WithGain(gain),
		abrwave.WithArtifactOffset(artifactOffset),
		abrwave.WithWindowMs(windowMs),
	)
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	// Initialize logger
	log := logger.GetLogger()

	printBanner()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]
	log.Debugf("Executing command: %s", command)

	switch command {
	case "inspect":
		handleInspect(args)
	case "list":
		handleList(args)
	case "metrics":
		handleMetrics(args)
	case "report":
		handleReport(args)
	case "threshold":
		handleThreshold(args)
	case "export-wav":
		handleExportWAV(args)
	case "spectrogram":
		handleSpectrogram(args)
	case "runs":
		handleRuns()
	case "show":
		handleShow(args)
	case "delete":
		handleDelete(args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
    _    ____  ______        __
   / \  | __ )|  _ \ \      / /_ ___   _____
  / _ \ |  _ \| |_) \ \ /\ / / _' \ \ / / _ \
 / ___ \| |_) |  _ < \ V  V / (_| |\ V /  __/
/_/   \_\____/|_| \_\ \_/\_/ \__,_| \_/ \___|

        Auditory Brainstem Response Analysis
`
	fmt.Println(banner)
}

// splitArgs separates leading positional arguments from the command flags
// that follow them.
func splitArgs(args []string) (positional, flags []string) {
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return positional, args[i:]
		}
		positional = append(positional, arg)
	}
	return positional, nil
}

func fail(log *logger.Logger, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("❌ %s\n", msg)
	log.Errorf("%s", msg)
	os.Exit(1)
}

func mustService(log *logger.Logger) abrwave.Service {
	svc, err := createService()
	if err != nil {
		fail(log, "Failed to create service: %v", err)
	}
	return svc
}

func mustLoad(log *logger.Logger, svc abrwave.Service, path string) *waveform.Set {
	set, err := svc.Load(path, svc.Settings())
	if err != nil {
		fail(log, "Failed to load %s: %v", path, err)
	}
	return set
}

func requirePath(positional []string, usage string) string {
	if len(positional) < 1 {
		fmt.Println("Usage: " + usage)
		os.Exit(1)
	}
	return positional[0]
}

func printUsage() {
	fmt.Println("ABRWave - Auditory Brainstem Response analysis CLI")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --db <path>          Path to SQLite database (env: ABRWAVE_DB_PATH, default: abrwave.sqlite3)")
	fmt.Println("  --variant <rz|rp>    ARF layout (env: ABRWAVE_VARIANT, default: rz)")
	fmt.Println("  --kind <level|atten> Intensity axis (env: ABRWAVE_KIND, default: level)")
	fmt.Println("  --sep <n>            Minimum peak separation (default: 15/243 of the sweep length)")
	fmt.Println("  --trough-sep <n>     Minimum trough separation (default: only troughs closer than --sep compete)")
	fmt.Println("  --sigma <s>          Gaussian smoothing width in samples (default: 0)")
	fmt.Println("  --baseline <v>       Baseline subtracted before detection (default: 0)")
	fmt.Println("  --gain <g>           Multiply factor (default: 1)")
	fmt.Println("  --offset <n>         Artifact window excluded from the peak search (default: 0)")
	fmt.Println("  --window <ms>        Sweep duration in milliseconds (default: 10)")
	fmt.Println("\nUsage:")
	fmt.Println("  abrwave [global-options] inspect <file>")
	fmt.Println("  abrwave [global-options] list <file>")
	fmt.Println("  abrwave [global-options] metrics <file> --freq <hz> --intensity <db>")
	fmt.Println("  abrwave [global-options] report <file> --freq <hz> [--csv <out.csv>] [--save]")
	fmt.Println("  abrwave [global-options] threshold <file> [--freq <hz>]")
	fmt.Println("  abrwave [global-options] export-wav <file> --freq <hz> --intensity <db> [--out <out.wav>]")
	fmt.Println("  abrwave [global-options] spectrogram <file> --freq <hz> [--intensity <db>] [--out <out.png>]")
	fmt.Println("  abrwave [global-options] runs")
	fmt.Println("  abrwave [global-options] show <run_id>")
	fmt.Println("  abrwave [global-options] delete <run_id>")
	fmt.Println("\nExamples:")
	fmt.Println("  # Metrics table and threshold for 8 kHz, saved to the database")
	fmt.Println("  abrwave --variant rp report mouse12.arf --freq 8000 --save")
	fmt.Println()
	fmt.Println("  # Smoothed landmarks of one sweep with an artifact window")
	fmt.Println("  abrwave --sigma 1.8 --offset 26 --sep 20 --trough-sep 12 metrics mouse12.arf --freq 8000 --intensity 70")
	fmt.Println()
	fmt.Println("  # Tabular export keyed by post-attenuation")
	fmt.Println("  abrwave --kind attenuation threshold export.csv")
}
