package fat32nav

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGoFS(t *testing.T) {
	gofs, err := NewGoFS(newPopulatedImage().reader())
	require.NoError(t, err)

	file, err := gofs.Open("A.TXT")
	require.NoError(t, err)
	defer file.Close()

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(content))

	info, err := file.Stat()
	require.NoError(t, err)
	assert.Equal(t, "A.TXT", info.Name())
	assert.EqualValues(t, 5, info.Size())
}

func TestNewGoFS_InvalidImage(t *testing.T) {
	img := newTestImage()
	img.data[510], img.data[511] = 0, 0

	_, err := NewGoFS(img.reader())
	assert.Error(t, err)

	// The skip-checks variant accepts the same image.
	_, err = NewGoFSSkipChecks(img.reader())
	assert.NoError(t, err)
}

func TestGoFile_ReadDir(t *testing.T) {
	gofs, err := NewGoFS(newPopulatedImage().reader())
	require.NoError(t, err)

	dir, err := gofs.Open("dir1")
	require.NoError(t, err)
	defer dir.Close()

	readDirFile, ok := dir.(GoFile)
	require.True(t, ok)

	entries, err := readDirFile.ReadDir(-1)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, "dir2", entries[0].Name())
	assert.True(t, entries[0].IsDir())
	assert.True(t, entries[0].Type().IsDir())

	info, err := entries[0].Info()
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
