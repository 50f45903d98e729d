package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/vtab/specfile"
)

var errClosed = errors.New("stdout closed")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errClosed }

func writeDecl(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.table")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

const messyDecl = `implementation("t@gen")
schema([Column("a", INTEGER)])
table_name("t")
`

const canonicalDecl = `table_name("t")
schema([
    Column("a", INTEGER),
])
implementation("t@gen")
`

func TestFormatFileStdout(t *testing.T) {
	path := writeDecl(t, messyDecl)
	var buf bytes.Buffer

	changed, err := formatFile(&specfile.Loader{}, path, &buf, false)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, canonicalDecl, buf.String())

	src, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, messyDecl, string(src))
}

func TestFormatFileReportsWriteError(t *testing.T) {
	path := writeDecl(t, messyDecl)

	_, err := formatFile(&specfile.Loader{}, path, failingWriter{}, false)
	assert.ErrorIs(t, err, errClosed)
}

func TestFormatFileRewrite(t *testing.T) {
	path := writeDecl(t, messyDecl)

	changed, err := formatFile(&specfile.Loader{}, path, failingWriter{}, true)
	require.NoError(t, err)
	assert.True(t, changed)

	src, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, canonicalDecl, string(src))

	changed, err = formatFile(&specfile.Loader{}, path, failingWriter{}, true)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestFormatFileParseError(t *testing.T) {
	path := writeDecl(t, `table_name(`)

	_, err := formatFile(&specfile.Loader{}, path, &bytes.Buffer{}, false)
	assert.Error(t, err)
}
