package gmtx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := "setName\tdesc\tgenes\n" +
		"S1\td1\tTP53\tBRCA1\n" +
		"\n" +
		"S2\td2\tEGFR\t\t\n"

	header, rows, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"setName", "desc", "genes"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"S1", "d1", "TP53", "BRCA1"}, rows[0])
	// 行尾多余的制表符被裁掉，不产生空基因 token
	assert.Equal(t, []string{"S2", "d2", "EGFR"}, rows[1])
}

func TestParseEmptyInput(t *testing.T) {
	header, rows, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, header)
	assert.Nil(t, rows)
}

func TestParseHeaderOnly(t *testing.T) {
	header, rows, err := Parse(strings.NewReader("setName\tgenes\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"setName", "genes"}, header)
	assert.Empty(t, rows)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sets.gmtx")
	require.NoError(t, os.WriteFile(path, []byte("setName\tgenes\nS1\tTP53\n"), 0o644))

	header, rows, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"setName", "genes"}, header)
	require.Len(t, rows, 1)

	_, _, err = ParseFile(filepath.Join(t.TempDir(), "missing.gmtx"))
	assert.Error(t, err)
}
