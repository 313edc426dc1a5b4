package annoconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func darknetContext() CodecContext {
	return CodecContext{
		Path:        "img1.txt",
		ImagePath:   "img1.jpg",
		ImageWidth:  200,
		ImageHeight: 100,
		Labels:      NewLabelTable([]string{"car", "person"}),
	}
}

func TestDarknetParse(t *testing.T) {
	file, err := DarknetCodec{}.Parse([]byte("0 0.5 0.5 0.2 0.2\n"), darknetContext())
	require.NoError(t, err)

	require.Equal(t, 1, len(file.Annotations))
	a := file.Annotations[0]
	assert.Equal(t, "car", a.Label)
	// cx and w denormalize against the width (200), cy and h against the
	// height (100).
	assert.Equal(t, [4]float64{80, 40, 120, 60}, a.Coords)
}

func TestDarknetRoundTrip(t *testing.T) {
	codec := DarknetCodec{}
	ctx := darknetContext()

	raw := "0 0.500000 0.500000 0.200000 0.200000\n1 0.250000 0.300000 0.100000 0.200000\n"
	file, err := codec.Parse([]byte(raw), ctx)
	require.NoError(t, err)

	enc, err := codec.Serialize(file, ctx)
	require.NoError(t, err)
	assert.Equal(t, raw, string(enc))
}

func TestDarknetSerialize(t *testing.T) {
	ctx := darknetContext()
	file := AnnotatedFile{Width: 200, Height: 100}
	file.AddBox(Annotation{Coords: [4]float64{80, 40, 120, 60}, Label: "person"})

	enc, err := DarknetCodec{}.Serialize(file, ctx)
	require.NoError(t, err)
	assert.Equal(t, "1 0.500000 0.500000 0.200000 0.200000\n", string(enc))
}

func TestDarknetErrors(t *testing.T) {
	codec := DarknetCodec{}
	ctx := darknetContext()
	var formatErr *FormatError

	// Missing image dimensions.
	_, err := codec.Parse([]byte("0 0.5 0.5 0.2 0.2\n"),
		CodecContext{Path: "img1.txt", Labels: ctx.Labels})
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, FormatDarknet, formatErr.Format)

	// Missing label table.
	_, err = codec.Parse([]byte("0 0.5 0.5 0.2 0.2\n"),
		CodecContext{Path: "img1.txt", ImageWidth: 200, ImageHeight: 100})
	assert.ErrorAs(t, err, &formatErr)

	// Class index out of range.
	_, err = codec.Parse([]byte("7 0.5 0.5 0.2 0.2\n"), ctx)
	assert.ErrorAs(t, err, &formatErr)

	// Wrong token count and non-numeric value.
	_, err = codec.Parse([]byte("0 0.5 0.5\n"), ctx)
	assert.ErrorAs(t, err, &formatErr)
	_, err = codec.Parse([]byte("0 0.5 0.5 x 0.2\n"), ctx)
	assert.ErrorAs(t, err, &formatErr)

	// Serializing a label that is not in the table.
	file := AnnotatedFile{Width: 200, Height: 100}
	file.AddBox(Annotation{Coords: [4]float64{10, 10, 20, 20}, Label: "boat"})
	_, err = codec.Serialize(file, ctx)
	assert.ErrorAs(t, err, &formatErr)
}
