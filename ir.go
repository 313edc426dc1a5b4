package annoconv

// The intermediate annotation metadata representation.

import "log"

// Keys for known annotation attributes.
const (
	Confidence = "Confidence" // Type float64 in [0.0, 1.0].
	KITTIExtra = "KITTIExtra" // KITTI auxiliary fields. Type KITTIAux.
)

// Annotation is the intermediate representation of an object label.
type Annotation struct {
	Attributes map[string]interface{} // Additional attributes of this annotation.
	Coords     [4]float64             // Absolute x1, y1, x2, y2 offsets from the top-left corner.
	Label      string
}

// Width is the object width from a.Coords.
func (a Annotation) Width() float64 {
	return a.Coords[2] - a.Coords[0]
}

// Height is the object height from a.Coords.
func (a Annotation) Height() float64 {
	return a.Coords[3] - a.Coords[1]
}

// scaled returns a copy of a with its coordinates scaled by the given factors.
// The attribute map is shared; callers that modify attributes must copy it.
func (a Annotation) scaled(sx, sy float64) Annotation {
	a.Coords = ScaleBox(a.Coords, sx, sy)
	return a
}

// AnnotatedFile is the intermediate representation of the annotations for a
// single image.
type AnnotatedFile struct {
	Annotations []Annotation // The annotations, in source order.
	FilePath    string       // The annotated image file.
	Width       int          // Image width in pixels.
	Height      int          // Image height in pixels.
}

// AddBox appends an annotation. The caller is expected to have validated the
// coordinates beforehand.
func (f *AnnotatedFile) AddBox(a Annotation) {
	f.Annotations = append(f.Annotations, a)
}

// FilterValid clamps every bounding box to [0,width]x[0,height] and drops the
// boxes that are eliminated by clamping or otherwise degenerate. It returns a
// new AnnotatedFile with the given dimensions; f is not modified.
//
// Every codec parse and every resize passes through here, so downstream
// serialization never sees an invalid box.
func (f AnnotatedFile) FilterValid(width, height int) AnnotatedFile {
	out := AnnotatedFile{
		Annotations: make([]Annotation, 0, len(f.Annotations)),
		FilePath:    f.FilePath,
		Width:       width,
		Height:      height,
	}
	for _, a := range f.Annotations {
		clamped, ok := ClampBox(a.Coords, float64(width), float64(height))
		if !ok {
			log.Printf("Dropping degenerate box %v (label %q) in %q", a.Coords, a.Label, f.FilePath)
			continue
		}
		a.Coords = clamped
		out.Annotations = append(out.Annotations, a)
	}
	return out
}

// AnnotatedFiles is the annotation metadata for a list of files.
type AnnotatedFiles []AnnotatedFile

// Labels returns the distinct label names across all files, in first-seen
// order. The order is stable for a given input ordering, which makes it
// suitable for building reproducible label tables.
func (data AnnotatedFiles) Labels() []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range data {
		for _, a := range f.Annotations {
			if !seen[a.Label] {
				seen[a.Label] = true
				names = append(names, a.Label)
			}
		}
	}
	return names
}
