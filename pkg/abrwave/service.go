package abrwave

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/himanishpuri/ABRWave/pkg/abrwave/arf"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/waveform"
	"github.com/himanishpuri/ABRWave/pkg/logger"
	"github.com/himanishpuri/ABRWave/pkg/utils"
)

// abrService is the default implementation of the Service interface.
type abrService struct {
	mu      sync.Mutex
	storage Storage
	log     Logger
	config  *Config
}

// NewService builds a service. Unless WithStorage is given, the SQLite
// database at DBPath is opened the first time a run is saved or read.
func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.DBPath == "" {
		return nil, errors.New("empty database path")
	}

	return &abrService{
		storage: cfg.Storage,
		log:     cfg.Logger,
		config:  cfg,
	}, nil
}

func (s *abrService) Settings() Settings {
	return s.config.Settings
}

// Load reads an ARF file or a tabular CSV export, chosen by extension.
func (s *abrService) Load(path string, st Settings) (*waveform.Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return s.LoadReader(filepath.Base(path), f, st)
}

func (s *abrService) LoadReader(name string, r io.ReadSeeker, st Settings) (*waveform.Set, error) {
	var (
		set *waveform.Set
		err error
	)
	switch utils.Ext(name) {
	case "arf":
		var file *arf.File
		file, err = arf.Read(r, st.Variant)
		if err == nil {
			set = waveform.FromARF(name, file, st.IntensityKind)
		}
	case "csv", "txt":
		set, err = waveform.ReadCSV(name, r, st.IntensityKind)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	s.log.Infof("Loaded %s: %d records, %d frequencies", name, len(set.Records), len(set.Frequencies()))
	return set, nil
}

// Analyze measures the first record at (freq, intensity).
func (s *abrService) Analyze(set *waveform.Set, freq, intensity float64, st Settings) (*Analysis, error) {
	rec, ok := set.Lookup(freq, intensity)
	if !ok {
		return nil, fmt.Errorf("%w: no record at %g Hz, %g dB", ErrNotFound, freq, intensity)
	}

	a := AnalyzeRecord(rec, st)
	s.log.Debugf("%s %g Hz %g dB: %d peaks (separation %d)", set.Source, freq, intensity, a.Metrics.PeakCount, a.Separation)
	return &a, nil
}

// AnalyzeFrequency measures every intensity at freq and estimates its
// threshold.
func (s *abrService) AnalyzeFrequency(set *waveform.Set, freq float64, st Settings) (*FrequencyReport, error) {
	family := set.AtFrequency(freq)
	if len(family) == 0 {
		return nil, fmt.Errorf("%w: no records at %g Hz", ErrNotFound, freq)
	}

	report := BuildReport(set.Source, freq, family, st)
	if report.Threshold.Determined {
		s.log.Infof("%s %g Hz: threshold %g dB over %d intensities", set.Source, freq, report.Threshold.Threshold, len(family))
	} else {
		s.log.Warnf("%s %g Hz: threshold undetermined: %v", set.Source, freq, report.Threshold.Reason)
	}
	return report, nil
}

func (s *abrService) SaveReport(report *FrequencyReport) (string, error) {
	stor, err := s.store()
	if err != nil {
		return "", err
	}

	id, err := stor.SaveReport(report)
	if err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}
	report.RunID = id
	s.log.Infof("Saved run %s (%s, %g Hz)", id, report.Source, report.Frequency)
	return id, nil
}

func (s *abrService) GetRun(id string) (*FrequencyReport, error) {
	stor, err := s.store()
	if err != nil {
		return nil, err
	}
	return stor.GetReport(id)
}

func (s *abrService) ListRuns() ([]RunSummary, error) {
	stor, err := s.store()
	if err != nil {
		return nil, err
	}
	return stor.ListReports()
}

func (s *abrService) DeleteRun(id string) error {
	stor, err := s.store()
	if err != nil {
		return err
	}
	if err := stor.DeleteReport(id); err != nil {
		return err
	}
	s.log.Infof("Deleted run %s", id)
	return nil
}

func (s *abrService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storage == nil {
		return nil
	}
	err := s.storage.Close()
	s.storage = nil
	return err
}

func (s *abrService) store() (Storage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storage != nil {
		return s.storage, nil
	}
	stor, err := NewSQLiteStorage(s.config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	s.log.Debugf("Opened database %s", s.config.DBPath)
	s.storage = stor
	return stor, nil
}
