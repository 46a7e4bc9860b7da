package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/himanishpuri/ABRWave/pkg/abrwave"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/arf"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/export"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/waveform"
	"github.com/himanishpuri/ABRWave/pkg/logger"
	"github.com/himanishpuri/ABRWave/pkg/utils"
)

func handleInspect(args []string) {
	log := logger.GetLogger()
	path := requirePath(args, "abrwave inspect <file>")

	var set *waveform.Set
	if utils.Ext(path) == "arf" {
		var file *arf.File
		var err error
		set, file, err = readARF(path, variantName, kindName)
		if err != nil {
			fail(log, "Failed to read %s: %v", path, err)
		}

		fmt.Printf("\n📄 %s\n", set.Source)
		fmt.Printf("   Type:     %s\n", file.Type)
		fmt.Printf("   Recorded: %s\n", file.FileTime.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("   Groups:   %d\n", len(file.Groups))
		for _, g := range file.Groups {
			fmt.Printf("     #%d %-16s %3d records", g.Number, g.ID, len(g.Records))
			if g.Memo != "" {
				fmt.Printf("  %q", g.Memo)
			}
			fmt.Println()
		}
	} else {
		svc := mustService(log)
		defer svc.Close()
		set = mustLoad(log, svc, path)
		fmt.Printf("\n📄 %s\n", set.Source)
	}

	fmt.Printf("   Records:     %d\n", len(set.Records))
	fmt.Printf("   Frequencies: %s Hz\n", joinFloats(set.Frequencies()))
	fmt.Printf("   Intensities: %s dB (%s)\n", joinFloats(set.Intensities()), set.Kind)

	shortest, longest := 0, 0
	for i, r := range set.Records {
		if i == 0 || len(r.Samples) < shortest {
			shortest = len(r.Samples)
		}
		longest = max(longest, len(r.Samples))
	}
	fmt.Printf("   Samples:     %d..%d per sweep\n", shortest, longest)
}

func handleList(args []string) {
	log := logger.GetLogger()
	path := requirePath(args, "abrwave list <file>")

	svc := mustService(log)
	defer svc.Close()
	set := mustLoad(log, svc, path)

	fmt.Printf("\n📚 %d record(s) in %s:\n\n", len(set.Records), set.Source)
	fmt.Printf("%4s  %10s  %10s  %8s  %10s\n", "#", "freq_hz", "intensity", "samples", "period_us")
	for i, r := range set.Records {
		fmt.Printf("%4d  %10g  %10g  %8d  %10g\n", i, r.Frequency, r.Intensity, len(r.Samples), r.SamplePeriod)
	}
}

func handleMetrics(args []string) {
	log := logger.GetLogger()
	positional, flagArgs := splitArgs(args)
	path := requirePath(positional, "abrwave metrics <file> --freq <hz> --intensity <db>")

	cmd := flag.NewFlagSet("metrics", flag.ExitOnError)
	freq := cmd.Float64("freq", 0, "Stimulus frequency in Hz (required)")
	intensity := cmd.Float64("intensity", 0, "Stimulus intensity in dB (required)")
	cmd.Parse(flagArgs)
	if *freq == 0 {
		fmt.Println("Error: --freq is required")
		os.Exit(1)
	}

	svc := mustService(log)
	defer svc.Close()
	set := mustLoad(log, svc, path)

	a, err := svc.Analyze(set, *freq, *intensity, svc.Settings())
	if err != nil {
		fail(log, "Analysis failed: %v", err)
	}

	fmt.Printf("\n🔍 %s at %g Hz, %g dB (separation %d)\n\n", set.Source, a.Frequency, a.Intensity, a.Separation)
	if len(a.Landmarks.Peaks) == 0 {
		fmt.Println("   No peaks found")
	}
	for k, m := range a.Landmarks.Matches {
		trough := "-"
		if m.Matched {
			trough = fmt.Sprintf("%d (%.4f)", m.Trough, a.Samples[m.Trough])
		}
		fmt.Printf("   Peak %d: index %d (%.4f)  trough %s\n", k+1, m.Peak, a.Samples[m.Peak], trough)
	}
	fmt.Println()
	fmt.Printf("   Peaks:              %d\n", a.Metrics.PeakCount)
	fmt.Printf("   First amplitude:    %s\n", a.Metrics.FirstPeakAmplitude)
	fmt.Printf("   Latency (ms):       %s\n", a.Metrics.LatencyMs)
	fmt.Printf("   Amplitude ratio:    %s\n", a.Metrics.AmplitudeRatio)
}

func handleReport(args []string) {
	log := logger.GetLogger()
	positional, flagArgs := splitArgs(args)
	path := requirePath(positional, "abrwave report <file> [--freq <hz>] [--csv <out.csv>] [--save]")

	cmd := flag.NewFlagSet("report", flag.ExitOnError)
	freq := cmd.Float64("freq", 0, "Stimulus frequency in Hz (default: every frequency)")
	csvPath := cmd.String("csv", "", "Write the metrics table to this file")
	save := cmd.Bool("save", false, "Save each report to the database")
	cmd.Parse(flagArgs)

	svc := mustService(log)
	defer svc.Close()
	set := mustLoad(log, svc, path)

	reports := analyzeFrequencies(log, svc, set, *freq)

	var rows []export.Row
	for _, r := range reports {
		printReport(r)
		rows = append(rows, r.Rows()...)

		if *save {
			id, err := svc.SaveReport(r)
			if err != nil {
				fail(log, "Failed to save report: %v", err)
			}
			fmt.Printf("💾 Saved as run %s\n", id)
		}
	}

	if *csvPath != "" {
		f := createOutput(log, *csvPath)
		defer f.Close()
		if err := export.WriteMetricsCSV(f, rows); err != nil {
			discardOutput(log, f, "Failed to write %s: %v", *csvPath, err)
		}
		fmt.Printf("\n✅ Wrote %d row(s) to %s\n", len(rows), *csvPath)
	}
}

func handleThreshold(args []string) {
	log := logger.GetLogger()
	positional, flagArgs := splitArgs(args)
	path := requirePath(positional, "abrwave threshold <file> [--freq <hz>]")

	cmd := flag.NewFlagSet("threshold", flag.ExitOnError)
	freq := cmd.Float64("freq", 0, "Stimulus frequency in Hz (default: every frequency)")
	cmd.Parse(flagArgs)

	svc := mustService(log)
	defer svc.Close()
	set := mustLoad(log, svc, path)

	fmt.Printf("\n🎯 Thresholds for %s:\n\n", set.Source)
	for _, r := range analyzeFrequencies(log, svc, set, *freq) {
		line := fmt.Sprintf("   %8g Hz: %s", r.Frequency, r.ThresholdText())
		if r.Threshold.Determined {
			line += fmt.Sprintf("  (eps %.4f, outliers %s)", r.Threshold.Eps, joinFloats(r.Threshold.Outliers))
		} else if r.Threshold.Reason != nil {
			line += fmt.Sprintf("  (%v)", r.Threshold.Reason)
		}
		fmt.Println(line)
	}
}

func handleExportWAV(args []string) {
	log := logger.GetLogger()
	positional, flagArgs := splitArgs(args)
	path := requirePath(positional, "abrwave export-wav <file> --freq <hz> --intensity <db> [--out <out.wav>]")

	cmd := flag.NewFlagSet("export-wav", flag.ExitOnError)
	freq := cmd.Float64("freq", 0, "Stimulus frequency in Hz (required)")
	intensity := cmd.Float64("intensity", 0, "Stimulus intensity in dB (required)")
	out := cmd.String("out", "", "Output WAV file (default: <file>_<freq>Hz_<intensity>dB.wav)")
	cmd.Parse(flagArgs)
	if *freq == 0 {
		fmt.Println("Error: --freq is required")
		os.Exit(1)
	}
	if *out == "" {
		*out = outputName(path, *freq, strconv.FormatFloat(*intensity, 'g', -1, 64), "wav")
	}

	svc := mustService(log)
	defer svc.Close()
	set := mustLoad(log, svc, path)

	rec, ok := set.Lookup(*freq, *intensity)
	if !ok {
		fail(log, "No record at %g Hz, %g dB", *freq, *intensity)
	}
	a, err := svc.Analyze(set, *freq, *intensity, svc.Settings())
	if err != nil {
		fail(log, "Analysis failed: %v", err)
	}

	rate := export.SampleRate(rec.SamplePeriod, len(a.Samples), svc.Settings().WindowMs)
	f := createOutput(log, *out)
	defer f.Close()

	scale, err := export.WriteWAV(f, a.Samples, rate)
	if err != nil {
		discardOutput(log, f, "Failed to write %s: %v", *out, err)
	}
	fmt.Printf("✅ Wrote %d samples at %d Hz to %s (full scale = %.4f)\n", len(a.Samples), rate, *out, scale)
}

func handleSpectrogram(args []string) {
	log := logger.GetLogger()
	positional, flagArgs := splitArgs(args)
	path := requirePath(positional, "abrwave spectrogram <file> --freq <hz> [--intensity <db>] [--out <out.png>]")

	cmd := flag.NewFlagSet("spectrogram", flag.ExitOnError)
	freq := cmd.Float64("freq", 0, "Stimulus frequency in Hz (required)")
	intensity := cmd.String("intensity", "", "Single intensity in dB (default: every intensity, loudest first)")
	out := cmd.String("out", "", "Output PNG file (default: <file>_<freq>Hz.png)")
	width := cmd.Int("width", export.DefaultImageWidth, "Image width in pixels")
	height := cmd.Int("height", export.DefaultImageHeight, "Image height in pixels")
	cmd.Parse(flagArgs)
	if *freq == 0 {
		fmt.Println("Error: --freq is required")
		os.Exit(1)
	}
	if *out == "" {
		*out = outputName(path, *freq, *intensity, "png")
	}

	svc := mustService(log)
	defer svc.Close()
	set := mustLoad(log, svc, path)

	var records []waveform.Record
	if *intensity != "" {
		level, err := strconv.ParseFloat(*intensity, 64)
		if err != nil {
			fail(log, "Invalid intensity %q: %v", *intensity, err)
		}
		rec, ok := set.Lookup(*freq, level)
		if !ok {
			fail(log, "No record at %g Hz, %g dB", *freq, level)
		}
		records = []waveform.Record{rec}
	} else {
		records = waveform.NormalizeStack(set.AtFrequency(*freq))
		if len(records) == 0 {
			fail(log, "No records at %g Hz", *freq)
		}
	}

	var samples []float64
	for _, r := range records {
		samples = append(samples, r.Samples...)
	}
	rate := export.SampleRate(records[0].SamplePeriod, len(records[0].Samples), svc.Settings().WindowMs)

	if err := utils.MakeDir(filepath.Dir(*out)); err != nil {
		fail(log, "Failed to create directory for %s: %v", *out, err)
	}
	if err := export.WriteSpectrogramPNG(*out, samples, rate, *width, *height); err != nil {
		utils.DeleteFile(*out)
		fail(log, "Failed to render spectrogram: %v", err)
	}
	fmt.Printf("✅ Rendered %d sweep(s) to %s\n", len(records), *out)
}

func handleRuns() {
	log := logger.GetLogger()

	svc := mustService(log)
	defer svc.Close()

	runs, err := svc.ListRuns()
	if err != nil {
		fail(log, "Failed to list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("\n📭 No saved runs")
		return
	}

	fmt.Printf("\n📚 Found %d run(s):\n\n", len(runs))
	for i, r := range runs {
		threshold := "undetermined"
		if r.Threshold != nil {
			threshold = fmt.Sprintf("%g dB", *r.Threshold)
		}
		fmt.Printf("%d. %s  %s @ %g Hz  threshold %s  (%d rows)\n", i+1, r.ID, r.Source, r.Frequency, threshold, r.Rows)
		fmt.Printf("   Saved: %s\n\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func handleShow(args []string) {
	log := logger.GetLogger()
	id := requirePath(args, "abrwave show <run_id>")

	svc := mustService(log)
	defer svc.Close()

	report, err := svc.GetRun(id)
	if err != nil {
		fail(log, "Failed to load run: %v", err)
	}
	fmt.Printf("\n🗂  Run %s (saved %s)\n", report.RunID, report.CreatedAt.Format("2006-01-02 15:04:05"))
	printReport(report)
}

func handleDelete(args []string) {
	log := logger.GetLogger()
	id := requirePath(args, "abrwave delete <run_id>")
	if !utils.IsRunID(id) {
		fail(log, "Invalid run ID: %s", id)
	}

	svc := mustService(log)
	defer svc.Close()

	if err := svc.DeleteRun(id); err != nil {
		fail(log, "Failed to delete run: %v", err)
	}
	fmt.Printf("\n✅ Deleted run %s\n", id)
}

func analyzeFrequencies(log *logger.Logger, svc abrwave.Service, set *waveform.Set, freq float64) []*abrwave.FrequencyReport {
	freqs := set.Frequencies()
	if freq != 0 {
		freqs = []float64{freq}
	}

	reports := make([]*abrwave.FrequencyReport, 0, len(freqs))
	for _, f := range freqs {
		r, err := svc.AnalyzeFrequency(set, f, svc.Settings())
		if err != nil {
			fail(log, "Analysis failed: %v", err)
		}
		reports = append(reports, r)
	}
	return reports
}

// readARF decodes an ARF file once, keeping the file for its group headers.
func readARF(path, variantName, kindName string) (*waveform.Set, *arf.File, error) {
	variant, err := arf.ParseVariant(variantName)
	if err != nil {
		return nil, nil, err
	}
	kind, err := waveform.ParseIntensityKind(kindName)
	if err != nil {
		return nil, nil, err
	}
	file, err := arf.ReadFile(path, variant)
	if err != nil {
		return nil, nil, err
	}
	return waveform.FromARF(filepath.Base(path), file, kind), file, nil
}

// outputName derives an output file name next to the input:
// <stem>_<freq>Hz[_<intensity>dB].<ext>
func outputName(input string, freq float64, intensity, ext string) string {
	name := fmt.Sprintf("%s_%gHz", utils.FileStem(input), freq)
	if intensity != "" {
		name += "_" + intensity + "dB"
	}
	return filepath.Join(filepath.Dir(input), name+"."+ext)
}

// createOutput creates path and any missing parent directories.
func createOutput(log *logger.Logger, path string) *os.File {
	if err := utils.MakeDir(filepath.Dir(path)); err != nil {
		fail(log, "Failed to create directory for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		fail(log, "Failed to create %s: %v", path, err)
	}
	return f
}

// discardOutput removes a partially written file, then fails.
func discardOutput(log *logger.Logger, f *os.File, format string, args ...any) {
	f.Close()
	if err := utils.DeleteFile(f.Name()); err != nil {
		log.Warnf("Failed to remove %s: %v", f.Name(), err)
	}
	fail(log, format, args...)
}

func printReport(r *abrwave.FrequencyReport) {
	fmt.Printf("\n🎵 %s @ %g Hz  threshold: %s\n\n", r.Source, r.Frequency, r.ThresholdText())
	fmt.Printf("%10s  %5s  %12s  %10s  %10s  %s\n", "intensity", "peaks", "amplitude", "latency", "ratio", "")
	for _, a := range r.Analyses {
		mark := ""
		if a.Outlier {
			mark = "noise"
		}
		fmt.Printf("%10g  %5d  %12s  %10s  %10s  %s\n",
			a.Intensity, a.Metrics.PeakCount, a.Metrics.FirstPeakAmplitude, a.Metrics.LatencyMs, a.Metrics.AmplitudeRatio, mark)
	}
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}
