package storage

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHeader_WriteAndRead(t *testing.T) {
	var buf bytes.Buffer
	err := WriteHeader(&buf, FlagUncompressed, 1234)
	require.NoError(t, err)

	// 4 magic + 1 version + 1 flags + 2 reserved + 8 raw size
	assert.Len(t, buf.Bytes(), HeaderSize)

	header, err := ReadHeader(&buf)
	require.NoError(t, err)

	assert.Equal(t, MagicBytes, string(header.Magic[:]))
	assert.EqualValues(t, FormatVersion, header.Version)
	assert.Equal(t, FlagUncompressed, header.Flags)
	assert.Equal(t, [2]byte{0, 0}, header.Reserved)
	assert.Equal(t, uint64(1234), header.RawSize)
}

func TestFileHeader_Endianness(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, 0, 0x0102))

	data := buf.Bytes()
	assert.Equal(t, []byte("SRDB"), data[0:4])
	assert.Equal(t, byte(FormatVersion), data[4])
	assert.Equal(t, byte(0), data[5])
	assert.Equal(t, []byte{0, 0}, data[6:8])
	assert.Equal(t, byte(0x02), data[8])
	assert.Equal(t, byte(0x01), data[9])
}

func TestFileHeader_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		header  FileHeader
		wantErr string
	}{
		{
			name:    "bad magic",
			header:  FileHeader{Magic: [4]byte{'G', 'O', 'D', 'B'}, Version: FormatVersion},
			wantErr: "invalid file format",
		},
		{
			name:    "bad version",
			header:  FileHeader{Magic: [4]byte{'S', 'R', 'D', 'B'}, Version: 99},
			wantErr: "unsupported file version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, tt.header))

			_, err := ReadHeader(&buf)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFileHeader_ShortBuffer(t *testing.T) {
	_, err := ReadHeader(bytes.NewReader([]byte{'S', 'R', 'D'}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read header")
}
