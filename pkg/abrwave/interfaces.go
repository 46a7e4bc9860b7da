package abrwave

import (
	"io"

	"github.com/himanishpuri/ABRWave/pkg/abrwave/waveform"
)

type Service interface {
	Load(path string, st Settings) (*waveform.Set, error)
	LoadReader(name string, r io.ReadSeeker, st Settings) (*waveform.Set, error)
	Analyze(set *waveform.Set, freq, intensity float64, st Settings) (*Analysis, error)
	AnalyzeFrequency(set *waveform.Set, freq float64, st Settings) (*FrequencyReport, error)
	SaveReport(report *FrequencyReport) (string, error)
	GetRun(id string) (*FrequencyReport, error)
	ListRuns() ([]RunSummary, error)
	DeleteRun(id string) error
	Settings() Settings
	Close() error
}

type Storage interface {
	SaveReport(report *FrequencyReport) (string, error)
	GetReport(id string) (*FrequencyReport, error)
	ListReports() ([]RunSummary, error)
	DeleteReport(id string) error
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
