package annoconv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cocoSample = `{
  "images": [
    {"id": 1, "file_name": "img1.jpg", "width": 100, "height": 100},
    {"id": 2, "file_name": "img2.jpg", "width": 200, "height": 100}
  ],
  "annotations": [
    {"id": 1, "image_id": 1, "category_id": 1, "bbox": [10, 10, 40, 40], "area": 1600, "iscrowd": 0},
    {"id": 2, "image_id": 2, "category_id": 2, "bbox": [80, 40, 40, 20], "area": 800, "iscrowd": 0}
  ],
  "categories": [
    {"id": 1, "name": "car"},
    {"id": 2, "name": "person"}
  ]
}`

func writeCOCOSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.json")
	require.NoError(t, os.WriteFile(path, []byte(cocoSample), 0644))
	return path
}

func TestFromCOCO(t *testing.T) {
	data, labels, err := FromCOCO(writeCOCOSample(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"car", "person"}, labels.Names())
	require.Equal(t, 2, len(data))

	assert.Equal(t, "img1.jpg", data[0].FilePath)
	assert.Equal(t, 100, data[0].Width)
	require.Equal(t, 1, len(data[0].Annotations))
	// Top-left + width/height becomes min/max bounds.
	assert.Equal(t, [4]float64{10, 10, 50, 50}, data[0].Annotations[0].Coords)
	assert.Equal(t, "car", data[0].Annotations[0].Label)

	assert.Equal(t, "img2.jpg", data[1].FilePath)
	assert.Equal(t, [4]float64{80, 40, 120, 60}, data[1].Annotations[0].Coords)
}

func TestCOCORoundTrip(t *testing.T) {
	data, labels, err := FromCOCO(writeCOCOSample(t))
	require.NoError(t, err)

	dataset, err := ToCOCO(data, labels)
	require.NoError(t, err)

	outPath := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteCOCO(outPath, dataset))

	again, againLabels, err := FromCOCO(outPath)
	require.NoError(t, err)
	assert.Equal(t, data, again)
	assert.Equal(t, labels.Names(), againLabels.Names())
}

func TestToCOCOBoxEncoding(t *testing.T) {
	labels := NewLabelTable([]string{"car"})
	file := AnnotatedFile{FilePath: "img.jpg", Width: 100, Height: 100}
	file.AddBox(Annotation{Coords: [4]float64{10, 20, 30, 60}, Label: "car"})

	dataset, err := ToCOCO(AnnotatedFiles{file}, labels)
	require.NoError(t, err)

	require.Equal(t, 1, len(dataset.Annotations))
	a := dataset.Annotations[0]
	assert.Equal(t, [4]float64{10, 20, 20, 40}, a.BBox)
	assert.Equal(t, 800.0, a.Area)
	assert.Equal(t, 1, a.CategoryID)
	assert.Equal(t, 1, a.ImageID)
}

func TestFromCOCOErrors(t *testing.T) {
	dir := t.TempDir()
	var formatErr *FormatError

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	_, _, err := FromCOCO(write("bad.json", "{not json"))
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, FormatCOCO, formatErr.Format)

	// Annotation referencing an unknown image.
	_, _, err = FromCOCO(write("dangling_image.json", `{
  "images": [{"id": 1, "file_name": "a.jpg", "width": 10, "height": 10}],
  "annotations": [{"id": 1, "image_id": 9, "category_id": 1, "bbox": [1, 1, 2, 2]}],
  "categories": [{"id": 1, "name": "car"}]
}`))
	assert.ErrorAs(t, err, &formatErr)

	// Annotation referencing an unknown category.
	_, _, err = FromCOCO(write("dangling_cat.json", `{
  "images": [{"id": 1, "file_name": "a.jpg", "width": 10, "height": 10}],
  "annotations": [{"id": 1, "image_id": 1, "category_id": 9, "bbox": [1, 1, 2, 2]}],
  "categories": [{"id": 1, "name": "car"}]
}`))
	assert.ErrorAs(t, err, &formatErr)

	// Repeated image ID.
	_, _, err = FromCOCO(write("dup_image.json", `{
  "images": [
    {"id": 1, "file_name": "a.jpg", "width": 10, "height": 10},
    {"id": 1, "file_name": "b.jpg", "width": 10, "height": 10}
  ],
  "annotations": [],
  "categories": []
}`))
	assert.ErrorAs(t, err, &formatErr)

	// Image with an invalid size.
	_, _, err = FromCOCO(write("bad_size.json", `{
  "images": [{"id": 1, "file_name": "a.jpg", "width": 0, "height": 10}],
  "annotations": [],
  "categories": []
}`))
	assert.ErrorAs(t, err, &formatErr)
}
