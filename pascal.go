package annoconv

// PASCAL VOC specific functionality.

import (
	"encoding/xml"
	"path/filepath"
)

// pascalObject is a single labeled object within a PASCAL VOC file.
type pascalObject struct {
	Name      string    `xml:"name"`
	Pose      string    `xml:"pose,omitempty"`
	Truncated int       `xml:"truncated"`
	Difficult int       `xml:"difficult"`
	BndBox    pascalBox `xml:"bndbox"`
}

// pascalBox holds the pixel bounds of one object.
type pascalBox struct {
	XMin float64 `xml:"xmin"`
	YMin float64 `xml:"ymin"`
	XMax float64 `xml:"xmax"`
	YMax float64 `xml:"ymax"`
}

// pascalSize is the embedded image size.
type pascalSize struct {
	Width  int `xml:"width"`
	Height int `xml:"height"`
	Depth  int `xml:"depth"`
}

// pascalAnnotation is the document root of a PASCAL VOC file.
type pascalAnnotation struct {
	XMLName  xml.Name       `xml:"annotation"`
	Folder   string         `xml:"folder,omitempty"`
	Filename string         `xml:"filename"`
	Size     pascalSize     `xml:"size"`
	Objects  []pascalObject `xml:"object"`
}

// PascalCodec reads and writes PASCAL VOC XML, one file per image.
type PascalCodec struct{}

// Ext is the annotation file extension.
func (PascalCodec) Ext() string { return ".xml" }

// Parse decodes a PASCAL VOC document into the canonical representation. The
// image dimensions are taken from the embedded <size> element; ctx dimensions
// are ignored.
func (PascalCodec) Parse(raw []byte, ctx CodecContext) (AnnotatedFile, error) {
	var doc pascalAnnotation
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return AnnotatedFile{}, formatErrorf(FormatPASCAL, ctx.Path, "malformed XML: %v", err)
	}
	if doc.Size.Width <= 0 || doc.Size.Height <= 0 {
		return AnnotatedFile{}, formatErrorf(FormatPASCAL, ctx.Path,
			"invalid image size %dx%d", doc.Size.Width, doc.Size.Height)
	}

	file := AnnotatedFile{
		Annotations: make([]Annotation, 0, len(doc.Objects)),
		FilePath:    doc.Filename,
		Width:       doc.Size.Width,
		Height:      doc.Size.Height,
	}
	if ctx.ImagePath != "" {
		file.FilePath = ctx.ImagePath
	}
	for _, obj := range doc.Objects {
		if obj.Name == "" {
			return AnnotatedFile{}, formatErrorf(FormatPASCAL, ctx.Path, "object without a name")
		}
		file.AddBox(Annotation{
			Coords: [4]float64{obj.BndBox.XMin, obj.BndBox.YMin, obj.BndBox.XMax, obj.BndBox.YMax},
			Label:  obj.Name,
		})
	}

	return file.FilterValid(doc.Size.Width, doc.Size.Height), nil
}

// Serialize encodes the canonical representation as a PASCAL VOC document.
// The input is assumed to have passed through FilterValid.
func (PascalCodec) Serialize(f AnnotatedFile, ctx CodecContext) ([]byte, error) {
	folder := filepath.Base(filepath.Dir(f.FilePath))
	if folder == "." || folder == string(filepath.Separator) {
		folder = ""
	}
	doc := pascalAnnotation{
		Folder:   folder,
		Filename: filepath.Base(f.FilePath),
		Size:     pascalSize{Width: f.Width, Height: f.Height, Depth: 3},
		Objects:  make([]pascalObject, len(f.Annotations)),
	}
	for i, a := range f.Annotations {
		doc.Objects[i] = pascalObject{
			Name: a.Label,
			Pose: "Unspecified",
			BndBox: pascalBox{
				XMin: a.Coords[0],
				YMin: a.Coords[1],
				XMax: a.Coords[2],
				YMax: a.Coords[3],
			},
		}
	}

	enc, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, formatErrorf(FormatPASCAL, ctx.Path, "XML encoding failed: %v", err)
	}
	return append(enc, '\n'), nil
}
