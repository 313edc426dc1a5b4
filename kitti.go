package annoconv

// KITTI specific functionality.

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// KITTIAux holds the auxiliary KITTI fields that have no cross-format
// equivalent: truncation, occlusion, observation angle and the 3-D object
// values. They are kept as the raw source tokens and written back verbatim on
// KITTI output; conversions to other formats drop them.
type KITTIAux struct {
	Truncated string
	Occluded  string
	Alpha     string
	Object3D  [7]string // Dimensions (h, w, l), location (x, y, z), rotation_y.
	Score     string    // Optional confidence value; empty when absent.
}

// kittiAuxDefault is used when an annotation carries no KITTI fields.
var kittiAuxDefault = KITTIAux{
	Truncated: "0.0",
	Occluded:  "0",
	Alpha:     "0.0",
	Object3D:  [7]string{"0.0", "0.0", "0.0", "0.0", "0.0", "0.0", "0.0"},
}

// KITTICodec reads and writes KITTI label text, one file per image. The image
// dimensions are not embedded in the format; they come from the codec
// context.
type KITTICodec struct{}

// Ext is the annotation file extension.
func (KITTICodec) Ext() string { return ".txt" }

// Parse decodes KITTI label lines into the canonical representation.
func (KITTICodec) Parse(raw []byte, ctx CodecContext) (AnnotatedFile, error) {
	if ctx.ImageWidth <= 0 || ctx.ImageHeight <= 0 {
		return AnnotatedFile{}, formatErrorf(FormatKITTI, ctx.Path,
			"missing image dimensions for %q", ctx.ImagePath)
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
		a, err := parseKittiLine(line)
		if err != nil {
			return AnnotatedFile{}, formatErrorf(FormatKITTI, ctx.Path, "%v", err)
		}
		file.AddBox(a)
	}

	return file.FilterValid(ctx.ImageWidth, ctx.ImageHeight), nil
}

// parseKittiLine parses the space-separated values for a single annotation.
func parseKittiLine(line string) (Annotation, error) {
	tokens := strings.Fields(line)
	if len(tokens) < 15 {
		return Annotation{}, fmt.Errorf("insufficient tokens in %q", line)
	}

	a := Annotation{Label: tokens[0]}
	for i := 4; i < 8; i++ {
		v, err := strconv.ParseFloat(tokens[i], 64)
		if err != nil {
			return Annotation{}, fmt.Errorf("unexpected values in %q: %v", line, err)
		}
		a.Coords[i-4] = v
	}

	aux := KITTIAux{Truncated: tokens[1], Occluded: tokens[2], Alpha: tokens[3]}
	copy(aux.Object3D[:], tokens[8:15])

	// The optional confidence score.
	if len(tokens) >= 16 {
		score, err := strconv.ParseFloat(tokens[15], 64)
		if err != nil {
			return Annotation{}, fmt.Errorf("unexpected score format in %q: %v", line, err)
		}
		aux.Score = tokens[15]
		a.Attributes = map[string]interface{}{KITTIExtra: aux, Confidence: score}
	} else {
		a.Attributes = map[string]interface{}{KITTIExtra: aux}
	}

	return a, nil
}

// Serialize encodes the canonical representation as KITTI label lines. The
// input is assumed to have passed through FilterValid.
//
// Annotations parsed from KITTI carry their auxiliary fields in the attribute
// map and are written back verbatim; annotations from other formats get zero
// values for those fields.
func (KITTICodec) Serialize(f AnnotatedFile, ctx CodecContext) ([]byte, error) {
	var buf bytes.Buffer
	for _, a := range f.Annotations {
		aux := kittiAuxDefault
		if v, ok := a.Attributes[KITTIExtra].(KITTIAux); ok {
			aux = v
		}

		fmt.Fprintf(&buf, "%s %s %s %s %.2f %.2f %.2f %.2f %s",
			a.Label, aux.Truncated, aux.Occluded, aux.Alpha,
			a.Coords[0], a.Coords[1], a.Coords[2], a.Coords[3],
			strings.Join(aux.Object3D[:], " "))
		if aux.Score != "" {
			fmt.Fprintf(&buf, " %s", aux.Score)
		}
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}
