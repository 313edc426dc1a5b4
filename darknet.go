package annoconv

// Darknet specific functionality.

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// DarknetCodec reads and writes Darknet label text, one file per image. Each
// line is "class cx cy w h" with the class as a zero-based index into an
// externally supplied ordered label list and the box given as normalized
// center and size values.
//
// The codec context must supply the image dimensions (the format carries
// none) and the label table.
type DarknetCodec struct{}

// Ext is the annotation file extension.
func (DarknetCodec) Ext() string { return ".txt" }

// Parse decodes Darknet label lines into the canonical pixel representation.
func (DarknetCodec) Parse(raw []byte, ctx CodecContext) (AnnotatedFile, error) {
	if ctx.ImageWidth <= 0 || ctx.ImageHeight <= 0 {
		return AnnotatedFile{}, formatErrorf(FormatDarknet, ctx.Path,
			"missing image dimensions for %q", ctx.ImagePath)
	}
	if ctx.Labels == nil {
		return AnnotatedFile{}, formatErrorf(FormatDarknet, ctx.Path, "missing label table")
	}

	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	file := AnnotatedFile{
		FilePath: ctx.ImagePath,
		Width:    ctx.ImageWidth,
		Height:   ctx.ImageHeight,
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		tokens := strings.Fields(line)
		if len(tokens) != 5 {
			return AnnotatedFile{}, formatErrorf(FormatDarknet, ctx.Path,
				"expected 5 tokens in %q", line)
		}

		classIdx, err := strconv.Atoi(tokens[0])
		if err != nil {
			return AnnotatedFile{}, formatErrorf(FormatDarknet, ctx.Path,
				"invalid class index in %q: %v", line, err)
		}
		label, ok := ctx.Labels.Name(classIdx)
		if !ok {
			return AnnotatedFile{}, formatErrorf(FormatDarknet, ctx.Path,
				"class index %d out of range", classIdx)
		}

		var vals [4]float64 // cx, cy, w, h
		for i := 1; i < 5; i++ {
			v, err := strconv.ParseFloat(tokens[i], 64)
			if err != nil {
				return AnnotatedFile{}, formatErrorf(FormatDarknet, ctx.Path,
					"unexpected values in %q: %v", line, err)
			}
			vals[i-1] = v
		}

		// Center/size to normalized min/max, then to rounded pixel bounds.
		normalized := [4]float64{
			vals[0] - vals[2]/2,
			vals[1] - vals[3]/2,
			vals[0] + vals[2]/2,
			vals[1] + vals[3]/2,
		}
		file.AddBox(Annotation{
			Coords: DenormalizeBox(normalized, float64(ctx.ImageWidth), float64(ctx.ImageHeight)),
			Label:  label,
		})
	}

	return file.FilterValid(ctx.ImageWidth, ctx.ImageHeight), nil
}

// Serialize encodes the canonical representation as Darknet label lines. The
// input is assumed to have passed through FilterValid.
func (DarknetCodec) Serialize(f AnnotatedFile, ctx CodecContext) ([]byte, error) {
	if ctx.Labels == nil {
		return nil, formatErrorf(FormatDarknet, ctx.Path, "missing label table")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return nil, formatErrorf(FormatDarknet, ctx.Path,
			"missing image dimensions for %q", f.FilePath)
	}

	var buf bytes.Buffer
	for _, a := range f.Annotations {
		classIdx, ok := ctx.Labels.Index(a.Label)
		if !ok {
			return nil, formatErrorf(FormatDarknet, ctx.Path,
				"label %q has no class index", a.Label)
		}

		c := NormalizeBox(a.Coords, float64(f.Width), float64(f.Height))
		fmt.Fprintf(&buf, "%d %.6f %.6f %.6f %.6f\n",
			classIdx, (c[0]+c[2])/2, (c[1]+c[3])/2, c[2]-c[0], c[3]-c[1])
	}

	return buf.Bytes(), nil
}
