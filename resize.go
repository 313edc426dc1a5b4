package annoconv

// Image resizing with consistent annotation rescaling.

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ResizeOptions are the parameters for Resize.
type ResizeOptions struct {
	Width  int // Target width in pixels.
	Height int // Target height in pixels. The aspect ratio is not preserved.

	ImageDir    string
	OutImageDir string

	// Annotation handling. Format selects the per-image codec for LabelDir;
	// FormatUnknown resizes images only.
	Format        Format
	LabelDir      string
	OutLabelDir   string
	LabelListPath string // Darknet .names sidecar, read for Format == FormatDarknet.

	Encoding         string // Output image encoding {jpg, png}.
	JPEGQuality      int
	DownsampleFilter string // {nearest, box, linear, gaussian, lanczos}.
	UpsampleFilter   string
}

// Resize resamples every image in ImageDir to exactly Width x Height pixels
// and rescales the matching annotations by the same per-axis factors, passing
// them through FilterValid so no degenerate box survives the transform.
//
// Images without an annotation file are still resized. Images that cannot be
// decoded are recorded in the report and skipped; the batch continues.
func Resize(opts ResizeOptions) (ConversionReport, error) {
	var report ConversionReport

	// Validate the configuration before any per-pair work.
	if opts.Width <= 0 || opts.Height <= 0 {
		return report, configErrorf("invalid target size %dx%d", opts.Width, opts.Height)
	}
	if opts.ImageDir == "" || opts.OutImageDir == "" {
		return report, configErrorf("missing image input or output directory")
	}
	downsample, err := resampleFilter(opts.DownsampleFilter)
	if err != nil {
		return report, configErrorf("%v", err)
	}
	upsample, err := resampleFilter(opts.UpsampleFilter)
	if err != nil {
		return report, configErrorf("%v", err)
	}
	var fileExt string
	switch strings.ToLower(opts.Encoding) {
	case "jpg", "jpeg":
		fileExt = ".jpg"
	case "png":
		fileExt = ".png"
	default:
		return report, configErrorf("unsupported output encoding %q", opts.Encoding)
	}

	var codec Codec
	var labels *LabelTable
	if opts.Format != FormatUnknown {
		var ok bool
		if codec, ok = CodecFor(opts.Format); !ok {
			return report, configErrorf("format %q does not store one annotation file per image",
				opts.Format)
		}
		if opts.LabelDir == "" || opts.OutLabelDir == "" {
			return report, configErrorf("missing label input or output directory")
		}
		if opts.Format == FormatDarknet {
			if opts.LabelListPath == "" {
				return report, configErrorf("format darknet requires a label list")
			}
			if labels, err = ReadLabelList(opts.LabelListPath); err != nil {
				return report, errors.Wrap(err, "failed to read the label list")
			}
		}
	}

	// Enumerate the (image, annotation) pairs.
	var pairs []filePair
	if codec != nil {
		var orphans []string
		pairs, orphans, err = matchedPairs(opts.ImageDir, opts.LabelDir, codec.Ext())
		if err != nil {
			return report, err
		}
		for _, path := range orphans {
			report.skip(path, "no corresponding image file")
		}
	} else {
		imageFiles, err := filesByExtInDir(opts.ImageDir, "")
		if err != nil {
			return report, err
		}
		for _, path := range imageFiles {
			_, stem, _, err := splitPath(path)
			if err != nil {
				continue
			}
			pairs = append(pairs, filePair{Stem: stem, ImagePath: path})
		}
	}
	log.Printf("Resizing %d images to %dx%d", len(pairs), opts.Width, opts.Height)

	// Process pairs concurrently from a work queue. Limit the number of
	// goroutines in flight, as they load potentially large images into
	// memory. The label table is frozen before the pool starts.
	numTasks := 2 * runtime.NumCPU()
	if len(pairs) < numTasks {
		numTasks = len(pairs)
	}
	workQueue := make(chan filePair, 2*numTasks)
	results := make(chan SkippedFile, 2*numTasks)

	var wg sync.WaitGroup
	wg.Add(numTasks)
	for i := 0; i < numTasks; i++ {
		go func() {
			defer wg.Done()
			for pair := range workQueue {
				if reason := resizePair(pair, opts, codec, labels, fileExt,
					downsample, upsample); reason != "" {
					results <- SkippedFile{Path: pair.ImagePath, Reason: reason}
				} else {
					results <- SkippedFile{}
				}
			}
		}()
	}

	// Collect per-pair outcomes.
	var wgCollect sync.WaitGroup
	wgCollect.Add(1)
	go func() {
		defer wgCollect.Done()
		for r := range results {
			if r.Reason != "" {
				report.skip(r.Path, r.Reason)
			} else {
				report.Converted++
			}
		}
	}()

	for _, pair := range pairs {
		workQueue <- pair
	}
	close(workQueue)
	wg.Wait()
	close(results)
	wgCollect.Wait()

	return report, nil
}

// resizePair processes a single (image, annotation) pair. It returns a skip
// reason, or the empty string on success.
func resizePair(pair filePair, opts ResizeOptions, codec Codec, labels *LabelTable,
	fileExt string, downsample, upsample imaging.ResampleFilter) string {

	img, _, err := loadImage(pair.ImagePath)
	if err != nil {
		return fmt.Sprintf("cannot decode image: %v", err)
	}
	bounds := img.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	// Parse the annotations before touching the image, so a malformed label
	// file skips the pair as a whole.
	var fileData AnnotatedFile
	haveLabels := codec != nil && pair.LabelPath != ""
	if haveLabels {
		raw, err := os.ReadFile(pair.LabelPath)
		if err != nil {
			return err.Error()
		}
		fileData, err = codec.Parse(raw, CodecContext{
			Path:        pair.LabelPath,
			ImagePath:   pair.ImagePath,
			ImageWidth:  srcWidth,
			ImageHeight: srcHeight,
			Labels:      labels,
		})
		if err != nil {
			return err.Error()
		}
	}

	// Resize and save the image.
	resized, scaleWidth, scaleHeight := resizeImage(img, opts.Width, opts.Height,
		downsample, upsample)
	outImagePath := filepath.Join(opts.OutImageDir, pair.Stem+fileExt)
	if err := saveImage(outImagePath, resized, opts.JPEGQuality); err != nil {
		return fmt.Sprintf("cannot save image: %v", err)
	}

	if !haveLabels {
		return ""
	}

	// Rescale the boxes and rewrite the annotation file in the input format.
	scaled := AnnotatedFile{
		Annotations: make([]Annotation, 0, len(fileData.Annotations)),
		FilePath:    outImagePath,
	}
	for _, a := range fileData.Annotations {
		scaled.AddBox(a.scaled(scaleWidth, scaleHeight))
	}
	scaled = scaled.FilterValid(opts.Width, opts.Height)

	enc, err := codec.Serialize(scaled, CodecContext{Path: pair.LabelPath, Labels: labels})
	if err != nil {
		return err.Error()
	}
	outLabelPath := filepath.Join(opts.OutLabelDir, pair.Stem+codec.Ext())
	if err := os.WriteFile(outLabelPath, enc, 0644); err != nil {
		return err.Error()
	}

	return ""
}
