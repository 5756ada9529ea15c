package exporter

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"cumgpa/pkg/contracts/domain"
)

// Stata 114 (Stata 10 to 12) file layout constants.
const (
	dtaRelease     = 114
	dtaLoHi        = 2
	dtaFileType    = 1
	dtaLabelLen    = 81
	dtaTimeLen     = 18
	dtaNameLen     = 33
	dtaFormatLen   = 49
	dtaVarLabelLen = 81
	dtaMaxStrLen   = 244
	dtaTypeDouble  = 255
	dtaTimeLayout  = "02 Jan 2006 15:04"
)

// dtaMissingDouble is Stata's system missing value "." for doubles.
var dtaMissingDouble = math.Float64frombits(0x7fe0000000000000)

// dtaColumn describes one variable of the cumulative GPA dataset.
type dtaColumn struct {
	name   string
	label  string
	format string
	value  func(domain.CumulativeGPA) domain.Null[float64]
}

var dtaNumericColumns = []dtaColumn{
	{"tot_cred_att", "Total credits attempted", "%10.0g", func(r domain.CumulativeGPA) domain.Null[float64] { return r.TotCredAtt }},
	{"tot_cred_earned", "Total credits earned", "%10.0g", func(r domain.CumulativeGPA) domain.Null[float64] { return r.TotCredEarned }},
	{"tot_gpa_pts", "Total GPA points", "%10.0g", func(r domain.CumulativeGPA) domain.Null[float64] { return r.TotGPAPts }},
	{"tot_gpa", "Cumulative GPA", "%9.2f", func(r domain.CumulativeGPA) domain.Null[float64] { return r.TotGPA }},
}

// WriteDTA writes rows as a Stata 114 dataset: student_id as a fixed
// width string followed by the four totals as doubles, with null written
// as Stata missing.
func WriteDTA(w io.Writer, rows []domain.CumulativeGPA, label string, timestamp time.Time) error {
	idWidth := 1
	for _, r := range rows {
		if n := len(r.StudentID); n > idWidth {
			idWidth = n
		}
	}
	if idWidth > dtaMaxStrLen {
		return fmt.Errorf("student_id longer than %d bytes cannot be stored in a Stata 114 file", dtaMaxStrLen)
	}
	if len(label) >= dtaLabelLen {
		return fmt.Errorf("data label longer than %d bytes", dtaLabelLen-1)
	}

	bw := bufio.NewWriter(w)
	d := &dtaWriter{w: bw}
	nvar := 1 + len(dtaNumericColumns)

	// header
	d.bytes(dtaRelease, dtaLoHi, dtaFileType, 0)
	d.int16(int16(nvar))
	d.int32(int32(len(rows)))
	d.fixed(label, dtaLabelLen)
	d.fixed(timestamp.Format(dtaTimeLayout), dtaTimeLen)

	// typlist
	d.bytes(byte(idWidth))
	for range dtaNumericColumns {
		d.bytes(dtaTypeDouble)
	}

	// varlist
	d.fixed("student_id", dtaNameLen)
	for _, c := range dtaNumericColumns {
		d.fixed(c.name, dtaNameLen)
	}

	// srtlist: unsorted
	for i := 0; i <= nvar; i++ {
		d.int16(0)
	}

	// fmtlist
	d.fixed(fmt.Sprintf("%%%ds", idWidth), dtaFormatLen)
	for _, c := range dtaNumericColumns {
		d.fixed(c.format, dtaFormatLen)
	}

	// lbllist: no value labels
	for i := 0; i < nvar; i++ {
		d.fixed("", dtaNameLen)
	}

	// variable labels
	d.fixed("Student ID", dtaVarLabelLen)
	for _, c := range dtaNumericColumns {
		d.fixed(c.label, dtaVarLabelLen)
	}

	// expansion fields terminator
	d.bytes(0)
	d.int32(0)

	for _, r := range rows {
		d.fixed(r.StudentID, idWidth)
		for _, c := range dtaNumericColumns {
			v := c.value(r)
			if !v.Valid || math.IsNaN(v.Val) || math.IsInf(v.Val, 0) {
				d.float64(dtaMissingDouble)
				continue
			}
			d.float64(v.Val)
		}
	}

	if d.err != nil {
		return d.err
	}
	return bw.Flush()
}

// dtaWriter writes little-endian fields and keeps the first error.
type dtaWriter struct {
	w   io.Writer
	err error
	buf [8]byte
}

func (d *dtaWriter) write(p []byte) {
	if d.err != nil {
		return
	}
	_, d.err = d.w.Write(p)
}

func (d *dtaWriter) bytes(b ...byte) { d.write(b) }

func (d *dtaWriter) int16(v int16) {
	binary.LittleEndian.PutUint16(d.buf[:2], uint16(v))
	d.write(d.buf[:2])
}

func (d *dtaWriter) int32(v int32) {
	binary.LittleEndian.PutUint32(d.buf[:4], uint32(v))
	d.write(d.buf[:4])
}

func (d *dtaWriter) float64(v float64) {
	binary.LittleEndian.PutUint64(d.buf[:8], math.Float64bits(v))
	d.write(d.buf[:8])
}

// fixed writes s truncated or zero padded to n bytes.
func (d *dtaWriter) fixed(s string, n int) {
	b := make([]byte, n)
	copy(b, s)
	d.write(b)
}
