package annoconv

// Format conversion between annotation formats via the intermediate
// representation.

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Format identifies an annotation interchange format.
type Format int

// The known annotation formats.
const (
	FormatUnknown Format = iota
	FormatPASCAL
	FormatKITTI
	FormatCOCO
	FormatDarknet
	FormatTFRecord // Output only.
)

// FormatFrom maps a format name to its Format value.
func FormatFrom(s string) Format {
	switch s {
	case "pascal":
		return FormatPASCAL
	case "kitti":
		return FormatKITTI
	case "coco":
		return FormatCOCO
	case "darknet":
		return FormatDarknet
	case "tfrecord":
		return FormatTFRecord
	}
	return FormatUnknown
}

func (f Format) String() string {
	switch f {
	case FormatPASCAL:
		return "pascal"
	case FormatKITTI:
		return "kitti"
	case FormatCOCO:
		return "coco"
	case FormatDarknet:
		return "darknet"
	case FormatTFRecord:
		return "tfrecord"
	}
	return "unknown"
}

// CodecContext supplies the out-of-band inputs a codec may need: the image
// dimensions for formats that do not embed them, and the label table for
// formats that reference classes by integer ID.
type CodecContext struct {
	Path        string // The annotation file, for error reporting.
	ImagePath   string // The corresponding image file.
	ImageWidth  int
	ImageHeight int
	Labels      *LabelTable
}

// Codec is the shared contract of the per-image annotation formats.
//
// Parse funnels its result through FilterValid; Serialize assumes its input
// has already passed through FilterValid and does not re-validate.
type Codec interface {
	Parse(raw []byte, ctx CodecContext) (AnnotatedFile, error)
	Serialize(f AnnotatedFile, ctx CodecContext) ([]byte, error)
	Ext() string
}

// CodecFor returns the per-image codec for the given format. COCO and
// TFRecord operate on whole datasets and have no per-image codec.
func CodecFor(f Format) (Codec, bool) {
	switch f {
	case FormatPASCAL:
		return PascalCodec{}, true
	case FormatKITTI:
		return KITTICodec{}, true
	case FormatDarknet:
		return DarknetCodec{}, true
	}
	return nil, false
}

// needsImageDims reports whether parsing the format requires image
// dimensions from the image files themselves.
func needsImageDims(f Format) bool {
	return f == FormatKITTI || f == FormatDarknet
}

// needsLabelTable reports whether serializing to the format requires a label
// table.
func needsLabelTable(f Format) bool {
	return f == FormatCOCO || f == FormatDarknet || f == FormatTFRecord
}

// SkippedFile records one input that was left out of a batch, with the
// reason.
type SkippedFile struct {
	Path   string
	Reason string
}

// ConversionReport summarizes a batch operation. Per-file failures are
// accumulated here rather than aborting the batch.
type ConversionReport struct {
	Converted int
	Skipped   []SkippedFile
}

// skip records a skipped file and logs it.
func (r *ConversionReport) skip(path, reason string) {
	log.Printf("Skipping %q: %s", path, reason)
	r.Skipped = append(r.Skipped, SkippedFile{Path: path, Reason: reason})
}

// ConvertOptions are the parameters for Convert.
type ConvertOptions struct {
	From Format
	To   Format

	LabelPath string // Annotation input: a directory, or a file for COCO.
	ImageDir  string // Image directory; required by formats without embedded dimensions.
	OutPath   string // Annotation output: a directory, or a file for COCO and TFRecord.

	LabelListPath string // Darknet .names sidecar: input for -from darknet, output for -to darknet.
	LabelMapPath  string // TFRecord label map output.
	NumShards     int    // TFRecord shard count.

	Labels *LabelTable // Optional externally supplied table; built from the source when nil.
}

// validate checks the option combination before any per-file work begins.
func (o ConvertOptions) validate() error {
	if o.From == FormatUnknown || o.From == FormatTFRecord {
		return configErrorf("unsupported input format %q", o.From)
	}
	if o.To == FormatUnknown {
		return configErrorf("unsupported output format %q", o.To)
	}
	if o.LabelPath == "" || o.OutPath == "" {
		return configErrorf("missing label input or output path")
	}
	if needsImageDims(o.From) && o.ImageDir == "" {
		return configErrorf("input format %q requires an image directory", o.From)
	}
	if o.From == FormatDarknet && o.Labels == nil && o.LabelListPath == "" {
		return configErrorf("input format darknet requires a label list")
	}
	if o.To == FormatTFRecord && o.LabelMapPath == "" {
		return configErrorf("output format tfrecord requires a label map path")
	}
	return nil
}

// Convert reads annotations in the From format and writes them in the To
// format.
//
// When the target format needs a label table and none is supplied, one is
// built from the source annotations in first-seen order; inputs are walked in
// sorted path order, so the assignment is reproducible across runs. The table
// is complete before any output is written.
func Convert(opts ConvertOptions) (ConversionReport, error) {
	var report ConversionReport
	if err := opts.validate(); err != nil {
		return report, err
	}

	// Resolve the input label table for Darknet sources.
	srcLabels := opts.Labels
	if opts.From == FormatDarknet && srcLabels == nil {
		var err error
		if srcLabels, err = ReadLabelList(opts.LabelListPath); err != nil {
			return report, errors.Wrap(err, "failed to read the label list")
		}
	}

	// Parse phase.
	var data AnnotatedFiles
	var parsedLabels *LabelTable
	var err error
	if opts.From == FormatCOCO {
		data, parsedLabels, err = FromCOCO(opts.LabelPath)
	} else {
		data, err = parseAnnotationDir(opts.From, opts.LabelPath, opts.ImageDir, srcLabels, &report)
	}
	if err != nil {
		return report, err
	}
	log.Printf("Parsed %s annotations for %d files", opts.From, len(data))

	// Select the output label table. An externally supplied table wins; a
	// table embedded in the source (COCO categories) is reused; otherwise the
	// table is built from the annotations in first-seen order. It is frozen
	// from here on.
	outLabels := opts.Labels
	if outLabels == nil {
		if parsedLabels != nil {
			outLabels = parsedLabels
		} else {
			outLabels = NewLabelTable(data.Labels())
		}
	}
	if needsLabelTable(opts.To) && outLabels.Len() == 0 && countBoxes(data) > 0 {
		return report, configErrorf("output format %q requires a label table", opts.To)
	}

	// Output phase.
	switch opts.To {
	case FormatCOCO:
		dataset, err := ToCOCO(data, outLabels)
		if err != nil {
			return report, err
		}
		if err := WriteCOCO(opts.OutPath, dataset); err != nil {
			return report, err
		}
		report.Converted = len(data)
	case FormatTFRecord:
		if err := WriteTFRecord(opts.OutPath, opts.LabelMapPath, data, outLabels,
			opts.NumShards); err != nil {
			return report, err
		}
		report.Converted = len(data)
	default:
		if err := writeAnnotationDir(opts.To, opts.OutPath, data, outLabels, &report); err != nil {
			return report, err
		}
		if opts.To == FormatDarknet && opts.LabelListPath != "" {
			if err := outLabels.WriteLabelList(opts.LabelListPath); err != nil {
				return report, err
			}
		}
	}

	log.Printf("Converted annotations for %d files from %s to %s",
		report.Converted, opts.From, opts.To)
	return report, nil
}

// parseAnnotationDir parses all annotation files in labelDir with the
// per-image codec for the format. Files that cannot be parsed, or whose
// image cannot be resolved when the format needs image dimensions, are
// recorded in the report and skipped.
func parseAnnotationDir(format Format, labelDir, imageDir string, labels *LabelTable,
	report *ConversionReport) (AnnotatedFiles, error) {

	codec, ok := CodecFor(format)
	if !ok {
		return nil, configErrorf("format %q has no per-image codec", format)
	}

	labelFiles, err := filesByExtInDir(labelDir, codec.Ext())
	if err != nil {
		return nil, err
	}

	// Map image name stems to extensions when an image directory is given.
	var imageNamesToExt map[string]string
	if imageDir != "" {
		imageFiles, err := filesByExtInDir(imageDir, "")
		if err != nil {
			return nil, err
		}
		imageNamesToExt = mapFileNamesToExtensions(imageFiles)
	}

	data := make(AnnotatedFiles, 0, len(labelFiles))
	for _, labelPath := range labelFiles {
		ctx := CodecContext{Path: labelPath, Labels: labels}

		// Resolve the corresponding image.
		_, stem, _, err := splitPath(labelPath)
		if err != nil {
			report.skip(labelPath, err.Error())
			continue
		}
		if imageNamesToExt != nil {
			imageExt, found := imageNamesToExt[stem]
			if !found {
				report.skip(labelPath, "no corresponding image file")
				continue
			}
			ctx.ImagePath = filepath.Join(imageDir, stem+"."+imageExt)
		}

		// Decode the image dimensions when the format does not embed them.
		if needsImageDims(format) {
			config, _, err := decodeImageConfig(ctx.ImagePath)
			if err != nil {
				report.skip(labelPath, fmt.Sprintf("cannot decode image %q: %v", ctx.ImagePath, err))
				continue
			}
			ctx.ImageWidth = config.Width
			ctx.ImageHeight = config.Height
		}

		raw, err := os.ReadFile(labelPath)
		if err != nil {
			report.skip(labelPath, err.Error())
			continue
		}
		fileData, err := codec.Parse(raw, ctx)
		if err != nil {
			report.skip(labelPath, err.Error())
			continue
		}

		data = append(data, fileData)
	}

	return data, nil
}

// writeAnnotationDir writes one annotation file per element to outDir, named
// after the image file stem. Per-file serialization failures are recorded in
// the report.
func writeAnnotationDir(format Format, outDir string, data AnnotatedFiles,
	labels *LabelTable, report *ConversionReport) error {

	codec, ok := CodecFor(format)
	if !ok {
		return configErrorf("format %q has no per-image codec", format)
	}
	info, err := os.Stat(outDir)
	if err != nil {
		return errors.Wrapf(err, "cannot access directory %q", outDir)
	}
	if !info.IsDir() {
		return configErrorf("output path %q is not a directory", outDir)
	}

	for _, fileData := range data {
		_, stem, _, err := splitPath(fileData.FilePath)
		if err != nil {
			report.skip(fileData.FilePath, err.Error())
			continue
		}
		outPath := filepath.Join(outDir, stem+codec.Ext())

		enc, err := codec.Serialize(fileData, CodecContext{Path: outPath, Labels: labels})
		if err != nil {
			report.skip(fileData.FilePath, err.Error())
			continue
		}
		if err := os.WriteFile(outPath, enc, 0644); err != nil {
			report.skip(fileData.FilePath, err.Error())
			continue
		}
		report.Converted++
	}

	return nil
}

// countBoxes is the total number of annotations across all files.
func countBoxes(data AnnotatedFiles) int {
	n := 0
	for _, f := range data {
		n += len(f.Annotations)
	}
	return n
}
