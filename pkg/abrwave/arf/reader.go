package arf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// decoder owns the read cursor for a single Read call.
type decoder struct {
	r    io.ReadSeeker
	size int64
	lay  layout
}

// ReadFile opens path, decodes it with the given variant and closes it again
// whatever the outcome.
func ReadFile(path string, v Variant) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	return Read(f, v)
}

// Read decodes a complete ARF stream. Any short read or impossible count
// aborts with a *FormatError and no partial result.
func Read(r io.ReadSeeker, v Variant) (*File, error) {
	lay, err := layoutFor(v)
	if err != nil {
		return nil, err
	}

	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("error sizing stream: %w", err)
	}

	d := &decoder{r: r, size: size, lay: lay}

	hdr, err := d.header()
	if err != nil {
		return nil, err
	}

	file := &File{
		Header: *hdr,
		Type:   lay.name,
		Groups: make([]Group, 0, hdr.GroupCount),
	}

	for i := 0; i < hdr.GroupCount; i++ {
		off := int64(hdr.GroupSeek[i])
		if off < 0 || off >= size {
			return nil, formatErr(int64(6+4*i), "group seek", fmt.Errorf("%w: offset %d outside %d-byte stream", ErrBounds, off, size))
		}

		g, stamp, err := d.group(off, i == 0)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			file.FileTime = time.Unix(stamp, 0).UTC()
		}
		file.Groups = append(file.Groups, *g)
	}

	return file, nil
}

// read fills n bytes starting at off. A short read is reported at the first
// missing byte.
func (d *decoder) read(off int64, n int, field string) (*block, error) {
	if _, err := d.r.Seek(off, io.SeekStart); err != nil {
		return nil, formatErr(off, field, err)
	}

	buf := make([]byte, n)
	got, err := io.ReadFull(d.r, buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, formatErr(off+int64(got), field, err)
	}

	return &block{buf: buf, base: off}, nil
}

func (d *decoder) header() (*Header, error) {
	b, err := d.read(0, headerBytes, "file header")
	if err != nil {
		return nil, err
	}

	hdr := &Header{FileType: b.i16()}

	at := b.offset()
	hdr.GroupCount = int(b.i16())
	if hdr.GroupCount < 0 || hdr.GroupCount > MaxGroups {
		return nil, formatErr(at, "group count", fmt.Errorf("%w: %d", ErrBounds, hdr.GroupCount))
	}

	at = b.offset()
	hdr.RecordCount = int(b.i16())
	if hdr.RecordCount < 0 || hdr.RecordCount > MaxRecords {
		return nil, formatErr(at, "record count", fmt.Errorf("%w: %d", ErrBounds, hdr.RecordCount))
	}

	for i := range hdr.GroupSeek {
		hdr.GroupSeek[i] = b.i32()
	}
	for i := range hdr.RecordSeek {
		hdr.RecordSeek[i] = b.i32()
	}
	hdr.FilePtr = b.i32()

	return hdr, nil
}

// group decodes the descriptor at off and the records that follow it. When
// first is set the begin timestamp is also returned as the file time.
func (d *decoder) group(off int64, first bool) (*Group, int64, error) {
	lay := d.lay

	b, err := d.read(off, lay.groupBytes(), "group descriptor")
	if err != nil {
		return nil, 0, err
	}

	g := &Group{
		Number:      b.i16(),
		FirstRecord: b.i16(),
	}

	at := b.offset()
	g.RecordCount = int(b.i16())
	if g.RecordCount < 0 {
		return nil, 0, formatErr(at, "group record count", fmt.Errorf("%w: %d", ErrBounds, g.RecordCount))
	}

	g.ID = b.str(idBytes)
	g.Ref1 = b.str(idBytes)
	g.Ref2 = b.str(idBytes)
	g.Memo = b.str(memoBytes)

	var fileStamp int64
	if first {
		fileStamp = b.peekStamp(lay)
	}

	g.BeginTime = b.stamp(lay)
	g.EndTime = b.stamp(lay)
	g.ScenarioFile1 = b.str(scenarioBytes)
	g.ScenarioFile2 = b.str(scenarioBytes)
	for i := range g.VarNames {
		g.VarNames[i] = b.str(varNameBytes)
	}
	for i := range g.VarUnits {
		g.VarUnits[i] = b.str(varUnitBytes)
	}
	g.SamplePeriod = b.f32()
	g.CCTime = b.i32()
	g.Version = b.i16()
	g.PostProc = b.i32()
	g.Dump = b.str(dumpBytes)

	next := off + int64(lay.groupBytes())
	g.Records = make([]Record, 0, g.RecordCount)
	for i := 0; i < g.RecordCount; i++ {
		rec, end, err := d.record(next)
		if err != nil {
			return nil, 0, err
		}
		g.Records = append(g.Records, *rec)
		next = end
	}

	return g, fileStamp, nil
}

// record decodes one record at off and returns the offset just past its
// samples.
func (d *decoder) record(off int64) (*Record, int64, error) {
	lay := d.lay

	b, err := d.read(off, lay.recordBytes(), "record descriptor")
	if err != nil {
		return nil, 0, err
	}

	rec := &Record{
		Number:    b.i16(),
		GroupID:   b.i16(),
		GroupTime: b.stamp(lay),
		NewGroup:  b.i16(),
		SGI:       b.i16(),
		Channel:   b.u8(),
		Type:      b.str(1),
	}

	at := b.offset()
	rec.Points = b.points(lay)

	rec.OnsetDelay = b.f32()
	rec.Duration = b.f32()
	rec.SamplePeriod = b.f32()
	rec.ArtifactThreshold = b.f32()
	rec.Gain = b.f32()
	rec.ACCouple = b.i16()
	rec.Averages = b.i16()
	rec.Artifacts = b.i16()
	rec.BeginTime = b.stamp(lay)
	rec.EndTime = b.stamp(lay)
	for i := range rec.Vars {
		rec.Vars[i] = b.f32()
	}

	dataOff := off + int64(lay.recordBytes()) + CursorBytes
	span := int64(rec.Points) * 4
	if rec.Points < 0 || dataOff+span > d.size {
		return nil, 0, formatErr(at, "sample count", fmt.Errorf("%w: %d points from offset %d exceed %d-byte stream", ErrBounds, rec.Points, dataOff, d.size))
	}

	// the cursor block is skipped, never read
	samples, err := d.read(dataOff, int(span), "samples")
	if err != nil {
		return nil, 0, err
	}

	rec.Data = make([]float32, rec.Points)
	for i := range rec.Data {
		rec.Data[i] = samples.f32()
	}

	return rec, dataOff + span, nil
}
