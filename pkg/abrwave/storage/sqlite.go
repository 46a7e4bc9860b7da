//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/himanishpuri/ABRWave/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "abrwave.sqlite3"
const errDBClientNil = "db client is nil"

var ErrRunNotFound = errors.New("run not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// Run is one saved frequency report together with the options it was
// computed with.
type Run struct {
	ID              string   `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Source          string   `gorm:"index:idx_run_source" json:"source"`
	Frequency       float64  `gorm:"index:idx_run_source" json:"frequency"`
	Threshold       *float64 `json:"threshold"`
	ThresholdReason string   `json:"threshold_reason,omitempty"`
	Eps             float64  `json:"eps"`

	Variant          string  `json:"variant"`
	IntensityKind    string  `json:"intensity_kind"`
	Separation       int     `json:"separation"`
	TroughSeparation int     `json:"trough_separation"`
	Sigma            float64 `json:"sigma"`
	Baseline         float64 `json:"baseline"`
	Gain             float64 `json:"gain"`
	ArtifactOffset   int     `json:"artifact_offset"`
	WindowMs         float64 `json:"window_ms"`
	GridStart        float64 `json:"grid_start"`
	GridStop         float64 `json:"grid_stop"`
	GridStep         float64 `json:"grid_step"`

	CreatedAt time.Time   `json:"created_at"`
	Metrics   []MetricRow `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"metrics,omitempty"`
}

// MetricRow is the measurement of one intensity of a run. Nil measurements
// did not apply.
type MetricRow struct {
	ID                 uint     `gorm:"primaryKey;autoIncrement" json:"-"`
	RunID              string   `gorm:"type:varchar(36);index:idx_metric_run" json:"-"`
	Intensity          float64  `json:"intensity"`
	PeakCount          int      `json:"peak_count"`
	Outlier            bool     `json:"outlier"`
	FirstPeakAmplitude *float64 `json:"first_peak_amplitude"`
	LatencyMs          *float64 `json:"latency_ms"`
	AmplitudeRatio     *float64 `json:"amplitude_ratio"`
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("ABRWAVE_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Run{}, &MetricRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// SaveRun stores run and, through the association, its metric rows in one
// transaction. An empty ID is filled in; the stored ID is returned.
func (c *DBClient) SaveRun(run *Run) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}

	if run.ID == "" {
		run.ID = utils.NewRunID()
	}
	for i := range run.Metrics {
		run.Metrics[i].ID = 0
		run.Metrics[i].RunID = run.ID
	}

	err := c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("creating run: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// GetRun loads a run with its metric rows, lowest intensity first.
func (c *DBClient) GetRun(id string) (*Run, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var run Run
	err := c.DB.Preload("Metrics", func(db *gorm.DB) *gorm.DB {
		return db.Order("intensity ASC")
	}).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return &run, nil
}

// ListRuns returns every run without metric rows, newest first.
func (c *DBClient) ListRuns() ([]Run, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var runs []Run
	if err := c.DB.Order("created_at DESC").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and its rows.
func (c *DBClient) DeleteRun(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}

	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&MetricRow{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Run{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil
	})
}

// CountMetricRows returns how many rows are stored for a run.
func (c *DBClient) CountMetricRows(id string) (int, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var count int64
	if err := c.DB.Model(&MetricRow{}).Where("run_id = ?", id).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}
