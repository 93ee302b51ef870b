package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tsnego/testutil"
)

// compressiblePoints builds a matrix with heavy repetition so the
// compressing codecs actually engage instead of falling back to raw.
func compressiblePoints(n, dim int) []float32 {
	row := make([]float32, dim)
	for i := range row {
		row[i] = float32(i%7) * 0.5
	}

	data := make([]float32, n*dim)
	for i := 0; i < n; i++ {
		copy(data[i*dim:(i+1)*dim], row)
	}

	return data
}

func TestSaveLoadRoundTrip(t *testing.T) {
	codecs := []Codec{CodecNone, CodecLZ4, CodecZstd}

	for _, codec := range codecs {
		t.Run(codec.String(), func(t *testing.T) {
			data := compressiblePoints(100, 16)
			path := filepath.Join(t.TempDir(), "points.tsne")

			err := Save(path, data, 100, 16, func(o *SaveOptions) {
				o.Codec = codec
			})
			require.NoError(t, err)

			p, err := Load(path)
			require.NoError(t, err)
			defer p.Close()

			assert.Equal(t, 100, p.N)
			assert.Equal(t, 16, p.Dim)
			require.Equal(t, data, p.Data)

			info, err := Inspect(path)
			require.NoError(t, err)
			assert.Equal(t, uint32(formatVersion), info.Version)
			assert.Equal(t, 100, info.N)
			assert.Equal(t, 16, info.Dim)
			assert.Equal(t, codec, info.Codec)
			assert.Equal(t, 100*16*4, info.RawBytes)

			if codec == CodecNone {
				assert.False(t, info.Compressed)
				assert.Equal(t, info.RawBytes, info.StoredBytes)
			} else {
				assert.True(t, info.Compressed, "repetitive payload should compress")
				assert.Less(t, info.StoredBytes, info.RawBytes)
			}

			require.NoError(t, p.Close())
			assert.Nil(t, p.Data)
			require.NoError(t, p.Close())
		})
	}
}

func TestSaveIncompressibleFallsBackToRaw(t *testing.T) {
	rng := testutil.NewRNG(3)
	data := rng.UniformMatrix(64, 8)
	path := filepath.Join(t.TempDir(), "noise.tsne")

	err := Save(path, data, 64, 8, func(o *SaveOptions) {
		o.Codec = CodecZstd
	})
	require.NoError(t, err)

	info, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, CodecZstd, info.Codec)
	assert.False(t, info.Compressed, "random floats should not compress")
	assert.Equal(t, info.RawBytes, info.StoredBytes)

	p, err := Load(path)
	require.NoError(t, err)
	defer p.Close()

	require.Equal(t, data, p.Data)
}

func TestSaveValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tsne")

	assert.ErrorIs(t, Save(path, make([]float32, 5), 2, 3, nil), ErrInvalidShape)
	assert.ErrorIs(t, Save(path, nil, 0, 3), ErrInvalidShape)
	assert.ErrorIs(t, Save(path, make([]float32, 3), 3, 0), ErrInvalidShape)
}

func TestLoadRejectsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.tsne")
	data := compressiblePoints(4, 3)
	require.NoError(t, Save(path, data, 4, 3))

	corrupt := func(t *testing.T, mutate func(b []byte) []byte) string {
		t.Helper()

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		b = mutate(b)

		out := filepath.Join(t.TempDir(), "corrupt.tsne")
		require.NoError(t, os.WriteFile(out, b, 0o600))
		return out
	}

	t.Run("payload bit flip", func(t *testing.T) {
		p := corrupt(t, func(b []byte) []byte {
			b[headerSize+blockHeaderSize+2] ^= 0xFF
			return b
		})

		_, err := Load(p)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("wrong magic", func(t *testing.T) {
		p := corrupt(t, func(b []byte) []byte {
			b[0] ^= 0xFF
			return b
		})

		_, err := Load(p)
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("unsupported version", func(t *testing.T) {
		p := corrupt(t, func(b []byte) []byte {
			b[4] = 99
			return b
		})

		_, err := Load(p)
		assert.ErrorIs(t, err, ErrInvalidVersion)
	})

	t.Run("count does not match payload", func(t *testing.T) {
		p := corrupt(t, func(b []byte) []byte {
			b[8] = 200
			return b
		})

		_, err := Load(p)
		assert.ErrorIs(t, err, ErrCorruptFile)
	})

	t.Run("truncated header", func(t *testing.T) {
		p := corrupt(t, func(b []byte) []byte {
			return b[:headerSize-4]
		})

		_, err := Load(p)
		assert.ErrorIs(t, err, ErrCorruptFile)
	})

	t.Run("truncated payload", func(t *testing.T) {
		p := corrupt(t, func(b []byte) []byte {
			return b[:len(b)-8]
		})

		_, err := Load(p)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.tsne"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestParseCodec(t *testing.T) {
	tests := []struct {
		in   string
		want Codec
	}{
		{"", CodecNone},
		{"none", CodecNone},
		{"raw", CodecNone},
		{"lz4", CodecLZ4},
		{"LZ4", CodecLZ4},
		{"zstd", CodecZstd},
		{"ZSTD", CodecZstd},
	}

	for _, tt := range tests {
		got, err := ParseCodec(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseCodec("gzip")
	assert.ErrorIs(t, err, ErrUnknownCodec)
}

func TestCodecString(t *testing.T) {
	assert.Equal(t, "none", CodecNone.String())
	assert.Equal(t, "lz4", CodecLZ4.String())
	assert.Equal(t, "zstd", CodecZstd.String())
	assert.Equal(t, "codec(9)", Codec(9).String())
}

func TestCSVRoundTrip(t *testing.T) {
	data := []float32{1.5, -2.25, 0, 3.125, 42, -0.001}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, data, 3, 2))

	got, n, dim, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, dim)
	assert.Equal(t, data, got)
}

func TestReadCSVErrors(t *testing.T) {
	t.Run("ragged rows", func(t *testing.T) {
		_, _, _, err := ReadCSV(bytes.NewReader([]byte("1,2,3\n4,5\n")))
		require.Error(t, err)
	})

	t.Run("not a number", func(t *testing.T) {
		_, _, _, err := ReadCSV(bytes.NewReader([]byte("1,2\n3,oops\n")))
		require.Error(t, err)
		assert.ErrorContains(t, err, "row 2 column 2")
	})

	t.Run("empty input", func(t *testing.T) {
		_, _, _, err := ReadCSV(bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrInvalidShape)
	})
}

func TestWriteCSVValidation(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteCSV(&buf, make([]float32, 5), 2, 3), ErrInvalidShape)
}
