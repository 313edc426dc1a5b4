package annoconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterValid(t *testing.T) {
	file := AnnotatedFile{FilePath: "img.jpg", Width: 100, Height: 100}
	file.AddBox(Annotation{Coords: [4]float64{10, 10, 50, 50}, Label: "car"})
	file.AddBox(Annotation{Coords: [4]float64{-20, 80, 30, 140}, Label: "person"})
	file.AddBox(Annotation{Coords: [4]float64{150, 150, 200, 200}, Label: "gone"})
	file.AddBox(Annotation{Coords: [4]float64{30, 30, 30, 60}, Label: "degenerate"})

	filtered := file.FilterValid(100, 100)

	// The outside and degenerate boxes are gone, the partially outside box is
	// clipped, the order of survivors is preserved.
	assert.Equal(t, 2, len(filtered.Annotations))
	assert.Equal(t, "car", filtered.Annotations[0].Label)
	assert.Equal(t, [4]float64{10, 10, 50, 50}, filtered.Annotations[0].Coords)
	assert.Equal(t, "person", filtered.Annotations[1].Label)
	assert.Equal(t, [4]float64{0, 80, 30, 100}, filtered.Annotations[1].Coords)

	// The input is not modified.
	assert.Equal(t, 4, len(file.Annotations))
	assert.Equal(t, [4]float64{-20, 80, 30, 140}, file.Annotations[1].Coords)
}

func TestFilterValidIdempotent(t *testing.T) {
	file := AnnotatedFile{FilePath: "img.jpg", Width: 100, Height: 100}
	file.AddBox(Annotation{Coords: [4]float64{-5, -5, 60, 60}, Label: "a"})
	file.AddBox(Annotation{Coords: [4]float64{20, 20, 90, 110}, Label: "b"})

	once := file.FilterValid(100, 100)
	twice := once.FilterValid(100, 100)
	assert.Equal(t, once, twice)
}

func TestFilterValidNewDimensions(t *testing.T) {
	file := AnnotatedFile{FilePath: "img.jpg", Width: 100, Height: 100}
	file.AddBox(Annotation{Coords: [4]float64{10, 10, 80, 80}, Label: "a"})

	filtered := file.FilterValid(50, 50)
	assert.Equal(t, 50, filtered.Width)
	assert.Equal(t, 50, filtered.Height)
	assert.Equal(t, [4]float64{10, 10, 50, 50}, filtered.Annotations[0].Coords)
}

func TestLabelsFirstSeenOrder(t *testing.T) {
	data := AnnotatedFiles{
		{Annotations: []Annotation{{Label: "car"}, {Label: "person"}}},
		{Annotations: []Annotation{{Label: "person"}, {Label: "bike"}, {Label: "car"}}},
	}
	assert.Equal(t, []string{"car", "person", "bike"}, data.Labels())
}
