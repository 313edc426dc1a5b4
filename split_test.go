package annoconv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCompleteness(t *testing.T) {
	entries := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}

	assignment, err := Split(entries, SplitRatios{Train: 0.7, Validation: 0.2, Test: 0.1}, 1)
	require.NoError(t, err)

	// Every entry is assigned to exactly one subset.
	assert.Equal(t, len(entries), len(assignment))
	for _, entry := range entries {
		_, ok := assignment[entry]
		assert.True(t, ok, "entry %q is unassigned", entry)
	}

	// The partition sizes match round(ratio * N) with the remainder in test.
	assert.Equal(t, 7, len(assignment.Members(SubsetTrain)))
	assert.Equal(t, 2, len(assignment.Members(SubsetValidation)))
	assert.Equal(t, 1, len(assignment.Members(SubsetTest)))
}

func TestSplitReproducible(t *testing.T) {
	entries := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	ratios := SplitRatios{Train: 0.7, Validation: 0.2, Test: 0.1}

	first, err := Split(entries, ratios, 1)
	require.NoError(t, err)
	second, err := Split(entries, ratios, 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// The assignment depends on the entry set, not on the input ordering.
	reversed := []string{"j", "i", "h", "g", "f", "e", "d", "c", "b", "a"}
	third, err := Split(reversed, ratios, 1)
	require.NoError(t, err)
	assert.Equal(t, first, third)

	// A different seed yields a valid assignment of the same sizes.
	other, err := Split(entries, ratios, 2)
	require.NoError(t, err)
	assert.Equal(t, len(first), len(other))
}

func TestSplitRatioValidation(t *testing.T) {
	entries := []string{"a", "b"}
	var configErr *ConfigError

	_, err := Split(entries, SplitRatios{Train: 0.5, Validation: 0.2, Test: 0.1}, 1)
	require.ErrorAs(t, err, &configErr)

	_, err = Split(entries, SplitRatios{Train: 1.2, Validation: -0.2, Test: 0}, 1)
	require.ErrorAs(t, err, &configErr)

	// A tiny deviation within tolerance passes.
	_, err = Split(entries, SplitRatios{Train: 0.7, Validation: 0.2, Test: 0.1 + 1e-9}, 1)
	assert.NoError(t, err)
}

func TestSplitEmptyEntries(t *testing.T) {
	assignment, err := Split(nil, SplitRatios{Train: 0.7, Validation: 0.2, Test: 0.1}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, len(assignment))
}

func TestSplitFiles(t *testing.T) {
	srcImages := t.TempDir()
	srcLabels := t.TempDir()
	outRoot := t.TempDir()

	stems := []string{"a", "b", "c", "d", "e"}
	for _, stem := range stems {
		require.NoError(t, os.WriteFile(filepath.Join(srcImages, stem+".jpg"), []byte("img"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(srcLabels, stem+".xml"),
			[]byte("<annotation/>"), 0644))
	}
	// An image without an annotation and an annotation without an image.
	require.NoError(t, os.WriteFile(filepath.Join(srcImages, "lonely.jpg"), []byte("img"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(srcLabels, "orphan.xml"), []byte("<a/>"), 0644))

	subsetDirs := func(kind string) [3]string {
		return [3]string{
			filepath.Join(outRoot, kind, "train"),
			filepath.Join(outRoot, kind, "valid"),
			filepath.Join(outRoot, kind, "test"),
		}
	}

	assignment, report, err := SplitFiles(SplitFilesOptions{
		ImageDir:     srcImages,
		LabelDir:     srcLabels,
		Format:       FormatPASCAL,
		ImageOutDirs: subsetDirs("images"),
		LabelOutDirs: subsetDirs("labels"),
		Ratios:       SplitRatios{Train: 0.6, Validation: 0.2, Test: 0.2},
		Seed:         7,
		Copy:         true,
	})
	require.NoError(t, err)

	// The unmatched files are reported, the matched pairs are relocated.
	assert.Equal(t, 5, report.Converted)
	assert.Equal(t, 2, len(report.Skipped))
	assert.Equal(t, 5, len(assignment))

	// Each pair landed in the directories of its subset.
	for stem, subset := range assignment {
		imgPath := filepath.Join(outRoot, "images", subset.String(), stem+".jpg")
		_, err := os.Stat(imgPath)
		assert.NoError(t, err, "missing relocated image for %q", stem)

		labelPath := filepath.Join(outRoot, "labels", subset.String(), stem+".xml")
		_, err = os.Stat(labelPath)
		assert.NoError(t, err, "missing relocated annotation for %q", stem)
	}

	// Copy mode leaves the originals in place.
	_, err = os.Stat(filepath.Join(srcImages, "a.jpg"))
	assert.NoError(t, err)
}

func TestWriteImageLists(t *testing.T) {
	assignment := SplitAssignment{
		"a": SubsetTrain,
		"b": SubsetTrain,
		"c": SubsetValidation,
		"d": SubsetTest,
	}
	dir := t.TempDir()
	require.NoError(t, assignment.WriteImageLists(dir, "data/images", ".jpg"))

	content, err := os.ReadFile(filepath.Join(dir, "train.txt"))
	require.NoError(t, err)
	assert.Equal(t, "data/images/a.jpg\ndata/images/b.jpg\n", string(content))

	content, err = os.ReadFile(filepath.Join(dir, "test.txt"))
	require.NoError(t, err)
	assert.Equal(t, "data/images/d.jpg\n", string(content))
}
