package exporter

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cumgpa/pkg/contracts/domain"
)

func sampleRows() []domain.CumulativeGPA {
	return []domain.CumulativeGPA{
		{
			StudentID:     "200000001",
			TotCredAtt:    domain.Some(30.0),
			TotCredEarned: domain.Some(28.0),
			TotGPAPts:     domain.Some(255.0),
			TotGPA:        domain.Some(8.5),
		},
		{StudentID: "2", TotCredAtt: domain.Some(0.0)},
	}
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

func TestWriteDTA(t *testing.T) {
	var buf bytes.Buffer
	stamp := time.Date(2024, time.July, 5, 9, 30, 0, 0, time.UTC)

	require.NoError(t, WriteDTA(&buf, sampleRows(), "Cumulative GPA", stamp))
	b := buf.Bytes()

	const nvar, idWidth = 5, 9
	headerLen := 4 + 2 + 4 + dtaLabelLen + dtaTimeLen
	descLen := nvar + nvar*dtaNameLen + (nvar+1)*2 + nvar*dtaFormatLen + nvar*dtaNameLen + nvar*dtaVarLabelLen + 5
	obsLen := idWidth + 4*8
	require.Len(t, b, headerLen+descLen+2*obsLen)

	assert.Equal(t, []byte{114, 2, 1, 0}, b[:4])
	assert.Equal(t, uint16(nvar), binary.LittleEndian.Uint16(b[4:6]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[6:10]))
	assert.Equal(t, "Cumulative GPA", cstring(b[10:10+dtaLabelLen]))
	assert.Equal(t, "05 Jul 2024 09:30", cstring(b[10+dtaLabelLen:headerLen]))

	types := b[headerLen : headerLen+nvar]
	assert.Equal(t, []byte{idWidth, 255, 255, 255, 255}, types)

	names := b[headerLen+nvar:]
	var got []string
	for i := 0; i < nvar; i++ {
		got = append(got, cstring(names[i*dtaNameLen:(i+1)*dtaNameLen]))
	}
	assert.Equal(t, domain.CumulativeColumns, got)

	data := b[headerLen+descLen:]
	assert.Equal(t, "200000001", string(data[:idWidth]))
	gpa := math.Float64frombits(binary.LittleEndian.Uint64(data[idWidth+24 : idWidth+32]))
	assert.Equal(t, 8.5, gpa)

	second := data[obsLen:]
	assert.Equal(t, "2", cstring(second[:idWidth]))
	att := math.Float64frombits(binary.LittleEndian.Uint64(second[idWidth : idWidth+8]))
	assert.Equal(t, 0.0, att)
	missing := binary.LittleEndian.Uint64(second[idWidth+24 : idWidth+32])
	assert.Equal(t, uint64(0x7fe0000000000000), missing, "null written as Stata missing")
}

func TestWriteDTA_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDTA(&buf, nil, "", time.Now()))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf.Bytes()[6:10]))
	assert.Equal(t, byte(1), buf.Bytes()[4+2+4+dtaLabelLen+dtaTimeLen], "string width is at least one")
}

func TestWriteDTA_Limits(t *testing.T) {
	var buf bytes.Buffer

	long := []domain.CumulativeGPA{{StudentID: strings.Repeat("x", dtaMaxStrLen+1)}}
	assert.Error(t, WriteDTA(&buf, long, "", time.Now()))

	assert.Error(t, WriteDTA(&buf, nil, strings.Repeat("l", dtaLabelLen), time.Now()))
}
