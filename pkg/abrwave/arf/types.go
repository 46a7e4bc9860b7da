package arf

import (
	"fmt"
	"strings"
	"time"
)

// Variant selects one of the two on-disk layouts of an ARF file. The file
// itself does not say which one it uses, so the caller has to.
type Variant int

const (
	// VariantRZ uses 64-bit timestamps and unsigned sample counts (variant A).
	VariantRZ Variant = iota
	// VariantRP uses 32-bit timestamps and signed sample counts (variant B).
	VariantRP
)

func (v Variant) String() string {
	switch v {
	case VariantRZ:
		return "RZ"
	case VariantRP:
		return "RP"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant accepts "rz"/"a" and "rp"/"b" in any case.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rz", "a":
		return VariantRZ, nil
	case "rp", "b":
		return VariantRP, nil
	}
	return 0, fmt.Errorf("unknown ARF variant %q", s)
}

func (v Variant) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Variant) UnmarshalText(text []byte) error {
	parsed, err := ParseVariant(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

const (
	MaxGroups  = 200
	MaxRecords = 2000

	// CursorBytes is the reserved block of ten 36-byte cursor placeholders
	// between a record's fixed fields and its samples.
	CursorBytes = 10 * 36
)

// Header is the fixed-size file header.
type Header struct {
	FileType    int16
	GroupCount  int
	RecordCount int
	GroupSeek   [MaxGroups]int32
	RecordSeek  [MaxRecords]int32
	FilePtr     int32
}

// File is a fully decoded ARF file.
type File struct {
	Header   Header
	Type     string    // "BioSigRZ" or "BioSigRP"
	FileTime time.Time // begin time of the first group, UTC
	Groups   []Group
}

// Group is one acquisition group and the records stored behind it.
type Group struct {
	Number        int16
	FirstRecord   int16
	RecordCount   int
	ID            string
	Ref1          string
	Ref2          string
	Memo          string
	BeginTime     int64 // unix seconds
	EndTime       int64
	ScenarioFile1 string
	ScenarioFile2 string
	VarNames      [10]string
	VarUnits      [10]string
	SamplePeriod  float32 // microseconds
	CCTime        int32
	Version       int16
	PostProc      int32
	Dump          string
	Records       []Record
}

// Record is a single averaged sweep.
type Record struct {
	Number            int16
	GroupID           int16
	GroupTime         int64
	NewGroup          int16
	SGI               int16
	Channel           uint8
	Type              string
	Points            int
	OnsetDelay        float32 // ms
	Duration          float32 // ms
	SamplePeriod      float32 // microseconds
	ArtifactThreshold float32
	Gain              float32
	ACCouple          int16
	Averages          int16
	Artifacts         int16
	BeginTime         int64
	EndTime           int64
	Vars              [10]float32
	Data              []float32
}

// Frequency is the stimulus frequency stored in the first record variable.
func (r Record) Frequency() float64 { return float64(r.Vars[0]) }

// Intensity is the stimulus level stored in the second record variable.
func (r Record) Intensity() float64 { return float64(r.Vars[1]) }

// Records returns every record of the file in group order.
func (f *File) Records() []Record {
	var out []Record
	for _, g := range f.Groups {
		out = append(out, g.Records...)
	}
	return out
}
