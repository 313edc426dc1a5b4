package annoconv

// COCO specific functionality. Unlike the per-image formats, COCO stores the
// whole dataset in a single JSON document.

import (
	"encoding/json"
	"os"
)

// COCOImage describes one image in a COCO dataset.
type COCOImage struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// COCOAnnotation is a single object annotation. The box is top-left x/y plus
// width/height, in absolute pixels.
type COCOAnnotation struct {
	ID         int        `json:"id"`
	ImageID    int        `json:"image_id"`
	CategoryID int        `json:"category_id"`
	BBox       [4]float64 `json:"bbox"`
	Area       float64    `json:"area"`
	IsCrowd    int        `json:"iscrowd"`
}

// COCOCategory is one entry of the embedded category table.
type COCOCategory struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory,omitempty"`
}

// COCODataset is the document root of a COCO annotation file.
type COCODataset struct {
	Images      []COCOImage      `json:"images"`
	Annotations []COCOAnnotation `json:"annotations"`
	Categories  []COCOCategory   `json:"categories"`
}

// FromCOCO reads and parses a COCO dataset document from the file at path.
//
// It returns one AnnotatedFile per listed image, in image-list order, along
// with the label table built from the embedded categories.
func FromCOCO(path string) (AnnotatedFiles, *LabelTable, error) {
	enc, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var dataset COCODataset
	if err := json.Unmarshal(enc, &dataset); err != nil {
		return nil, nil, formatErrorf(FormatCOCO, path, "malformed JSON: %v", err)
	}

	// The category table. Category IDs are arbitrary in the file; the label
	// table indices follow the category list order.
	labels := NewLabelTable(nil)
	namesByID := make(map[int]string, len(dataset.Categories))
	for _, cat := range dataset.Categories {
		if cat.Name == "" {
			return nil, nil, formatErrorf(FormatCOCO, path, "category %d without a name", cat.ID)
		}
		namesByID[cat.ID] = cat.Name
		labels.Add(cat.Name)
	}

	// One AnnotatedFile per image.
	filesByID := make(map[int]*AnnotatedFile, len(dataset.Images))
	order := make([]int, 0, len(dataset.Images))
	for _, img := range dataset.Images {
		if img.Width <= 0 || img.Height <= 0 {
			return nil, nil, formatErrorf(FormatCOCO, path,
				"invalid size %dx%d for image %q", img.Width, img.Height, img.FileName)
		}
		if _, ok := filesByID[img.ID]; ok {
			return nil, nil, formatErrorf(FormatCOCO, path, "duplicate image ID %d", img.ID)
		}
		filesByID[img.ID] = &AnnotatedFile{
			FilePath: img.FileName,
			Width:    img.Width,
			Height:   img.Height,
		}
		order = append(order, img.ID)
	}

	// Attach the annotations to their images. Dangling references are
	// structural errors, not skippable records.
	for _, a := range dataset.Annotations {
		file, ok := filesByID[a.ImageID]
		if !ok {
			return nil, nil, formatErrorf(FormatCOCO, path,
				"annotation %d references unknown image %d", a.ID, a.ImageID)
		}
		label, ok := namesByID[a.CategoryID]
		if !ok {
			return nil, nil, formatErrorf(FormatCOCO, path,
				"annotation %d references unknown category %d", a.ID, a.CategoryID)
		}
		file.AddBox(Annotation{
			Coords: [4]float64{a.BBox[0], a.BBox[1], a.BBox[0] + a.BBox[2], a.BBox[1] + a.BBox[3]},
			Label:  label,
		})
	}

	data := make(AnnotatedFiles, 0, len(order))
	for _, id := range order {
		f := filesByID[id]
		data = append(data, f.FilterValid(f.Width, f.Height))
	}

	return data, labels, nil
}

// ToCOCO converts the intermediate representation to a COCO dataset. Category
// IDs are the label table index plus one. The input is assumed to have passed
// through FilterValid.
func ToCOCO(data AnnotatedFiles, labels *LabelTable) (COCODataset, error) {
	dataset := COCODataset{
		Images:      make([]COCOImage, 0, len(data)),
		Annotations: make([]COCOAnnotation, 0, len(data)),
		Categories:  make([]COCOCategory, 0, labels.Len()),
	}
	for i, name := range labels.Names() {
		dataset.Categories = append(dataset.Categories, COCOCategory{ID: i + 1, Name: name})
	}

	annotationID := 1
	for i, f := range data {
		imageID := i + 1
		dataset.Images = append(dataset.Images, COCOImage{
			ID:       imageID,
			FileName: f.FilePath,
			Width:    f.Width,
			Height:   f.Height,
		})
		for _, a := range f.Annotations {
			idx, ok := labels.Index(a.Label)
			if !ok {
				return COCODataset{}, formatErrorf(FormatCOCO, f.FilePath,
					"label %q has no category ID", a.Label)
			}
			w := a.Width()
			h := a.Height()
			dataset.Annotations = append(dataset.Annotations, COCOAnnotation{
				ID:         annotationID,
				ImageID:    imageID,
				CategoryID: idx + 1,
				BBox:       [4]float64{a.Coords[0], a.Coords[1], w, h},
				Area:       w * h,
			})
			annotationID++
		}
	}

	return dataset, nil
}

// WriteCOCO writes the COCO dataset document to outFile.
func WriteCOCO(outFile string, dataset COCODataset) error {
	enc, err := json.MarshalIndent(dataset, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(outFile, enc, 0644); err != nil {
		return formatErrorf(FormatCOCO, outFile, "cannot write file: %v", err)
	}
	return nil
}
