package annoconv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tfrecordTestData(t *testing.T, n int) AnnotatedFiles {
	t.Helper()
	imageDir := t.TempDir()

	data := make(AnnotatedFiles, 0, n)
	for i := 0; i < n; i++ {
		name := string(rune('a'+i)) + ".png"
		imagePath := filepath.Join(imageDir, name)
		writePNG(t, imagePath, 20, 20)

		file := AnnotatedFile{FilePath: imagePath, Width: 20, Height: 20}
		file.AddBox(Annotation{Coords: [4]float64{5, 5, 15, 15}, Label: "car"})
		data = append(data, file)
	}
	return data
}

func TestWriteTFRecord(t *testing.T) {
	dir := t.TempDir()
	recordPath := filepath.Join(dir, "data.tfrecord")
	labelMapPath := filepath.Join(dir, "label_map.pbtxt")
	labels := NewLabelTable([]string{"car", "person"})

	err := WriteTFRecord(recordPath, labelMapPath, tfrecordTestData(t, 2), labels, 1)
	require.NoError(t, err)

	info, err := os.Stat(recordPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	// The label map carries one-based IDs in table order.
	content, err := os.ReadFile(labelMapPath)
	require.NoError(t, err)
	assert.Equal(t, "item {\n  id: 1\n  name: 'car'\n}\nitem {\n  id: 2\n  name: 'person'\n}\n",
		string(content))
}

func TestWriteTFRecordShards(t *testing.T) {
	dir := t.TempDir()
	recordPath := filepath.Join(dir, "data.tfrecord")
	labelMapPath := filepath.Join(dir, "label_map.pbtxt")
	labels := NewLabelTable([]string{"car"})

	err := WriteTFRecord(recordPath, labelMapPath, tfrecordTestData(t, 4), labels, 2)
	require.NoError(t, err)

	for _, suffix := range []string{"-00000-of-00002", "-00001-of-00002"} {
		info, err := os.Stat(recordPath + suffix)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
	// The unsharded path is not written when sharding is on.
	_, err = os.Stat(recordPath)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteTFRecordUnknownLabel(t *testing.T) {
	dir := t.TempDir()
	labels := NewLabelTable([]string{"person"})

	err := WriteTFRecord(filepath.Join(dir, "data.tfrecord"),
		filepath.Join(dir, "label_map.pbtxt"), tfrecordTestData(t, 1), labels, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ID mapping")
}
