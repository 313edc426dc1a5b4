// Converts computer-vision dataset annotations between PASCAL VOC, KITTI,
// COCO, Darknet and TFRecord formats, resizes images together with their
// annotations, and partitions datasets into train/validation/test sets.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sensorable/annoconv"
)

var (
	task string // The task to run: convert, resize or split.

	convertFrom annoconv.Format // The source format.
	convertTo   annoconv.Format // The target format.

	imageDirPath    string // The input directory with the labeled images.
	imageOutDirPath string // The output directory for resized images.
	labelPath       string // The input label directory, or file for COCO.
	labelOutPath    string // The output label directory, or file for COCO and TFRecord.

	labelListFilePath string // The Darknet class name list file.
	labelMapFilePath  string // The TFRecord label map file.
	numShardFiles     int    // The number of TFRecord shard files to create.

	resizeWidth  int // The target image width.
	resizeHeight int // The target image height.

	imageOutEncoding        string // The file type for image outputs.
	imageDownsamplingFilter string // The algorithm to use when downsampling.
	imageUpsamplingFilter   string // The algorithm to use when upsampling.
	imageJPEGQuality        int    // The JPEG quality for JPEG outputs.

	splitOutDirPath string  // The root directory for the split output.
	splitTrain      float64 // The training set ratio.
	splitValid      float64 // The validation set ratio.
	splitTest       float64 // The test set ratio.
	splitSeed       int64   // The shuffle seed.
	splitCopy       bool    // Copy files into the split directories instead of moving them.
	splitListsDir   string  // Optional directory for train/valid/test image list files.
	splitListPrefix string  // The path prefix for entries in the image list files.
	splitListExt    string  // The image file extension for entries in the image list files.
)

func init() {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", filepath.Base(os.Args[0]))
		_, _ = fmt.Fprintln(os.Stderr, "  convert options:\t-from <fmt> -to <fmt> -labels <path>"+
			" -labels-out <path> [-images <dir>] [-label-list <file>] [-label-map <file>]")
		_, _ = fmt.Fprintln(os.Stderr, "  resize options:\t-width <px> -height <px> -images <dir>"+
			" -images-out <dir> [-format <fmt> -labels <dir> -labels-out <dir>]")
		_, _ = fmt.Fprintln(os.Stderr, "  split options:\t-format <fmt> -labels <dir> -images <dir>"+
			" -split-out <dir> [-train -valid -test -seed -copy]")
		_, _ = fmt.Fprintln(os.Stderr, "  formats:\t\tpascal, kitti, coco, darknet,"+
			" tfrecord (output only)")
		_, _ = fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}

	flag.StringVar(&task, "task", "convert", "The `task` to run {convert, resize, split}")

	// Format arguments.
	from := flag.String("from", "", "The source `format`")
	to := flag.String("to", "", "The target `format`")
	format := flag.String("format", "", "The annotation `format` for the resize and split tasks")

	// Path arguments.
	flag.StringVar(&imageDirPath, "images", imageDirPath,
		"The `path` to the image input directory")
	flag.StringVar(&imageOutDirPath, "images-out", imageOutDirPath,
		"The `path` to the image output directory (resize task)")
	flag.StringVar(&labelPath, "labels", labelPath,
		"The `path` to the label input directory (pascal, kitti, darknet) or file (coco)")
	flag.StringVar(&labelOutPath, "labels-out", labelOutPath,
		"The `path` to the label output directory (pascal, kitti, darknet)"+
			" or file (coco, tfrecord)")
	flag.StringVar(&labelListFilePath, "label-list", labelListFilePath,
		"The Darknet class name list file `path` (read for darknet input,"+
			" written for darknet output)")
	flag.StringVar(&labelMapFilePath, "label-map", labelMapFilePath,
		"The TFRecord label map file `path`")
	flag.IntVar(&numShardFiles, "num-shards", 1,
		"The number of shard files to create (tfrecord only)")

	// Resize arguments.
	flag.IntVar(&resizeWidth, "width", 0, "The target image `width` in pixels (resize task)")
	flag.IntVar(&resizeHeight, "height", 0, "The target image `height` in pixels (resize task)")
	flag.StringVar(&imageOutEncoding, "image-enc", "jpg",
		"The `encoding` for output images {jpg, png}")
	flag.StringVar(&imageDownsamplingFilter, "downsample-filter", "box",
		"The filter to use when downsampling an image {nearest, box, linear, gaussian, lanczos}")
	flag.StringVar(&imageUpsamplingFilter, "upsample-filter", "linear",
		"The filter to use when upsampling an image {nearest, box, linear, gaussian, lanczos}")
	flag.IntVar(&imageJPEGQuality, "jpeg-quality", 90,
		"The quality to use when encoding JPEGs [1, 100]")

	// Split arguments.
	flag.StringVar(&splitOutDirPath, "split-out", splitOutDirPath,
		"The root `path` for the split output; images/ and labels/ subdirectories with"+
			" train, valid and test sets are created below it")
	flag.Float64Var(&splitTrain, "train", 0.7, "The training set `ratio`")
	flag.Float64Var(&splitValid, "valid", 0.2, "The validation set `ratio`")
	flag.Float64Var(&splitTest, "test", 0.1, "The test set `ratio`")
	flag.Int64Var(&splitSeed, "seed", 1, "The shuffle `seed` for the split task")
	flag.BoolVar(&splitCopy, "copy", true,
		"Copy files into the split directories, leaving the originals in place")
	flag.StringVar(&splitListsDir, "lists-dir", splitListsDir,
		"Optional `path` to write train/valid/test image list files to")
	flag.StringVar(&splitListPrefix, "list-prefix", splitListPrefix,
		"The path prefix for entries in the image list files")
	flag.StringVar(&splitListExt, "list-ext", ".jpg",
		"The image file `extension` for entries in the image list files")

	flag.Parse()

	convertFrom = annoconv.FormatFrom(*from)
	convertTo = annoconv.FormatFrom(*to)
	if *format != "" {
		// The resize and split tasks work within a single format.
		convertFrom = annoconv.FormatFrom(*format)
	}

	// Clean path arguments.
	for _, p := range []*string{&imageDirPath, &imageOutDirPath, &labelPath, &labelOutPath,
		&splitOutDirPath} {
		if *p != "" {
			*p = filepath.Clean(*p)
		}
	}
	if labelPath != "" && labelPath == labelOutPath {
		printUsageAndExit("The label input and output paths cannot be identical")
	}
	if imageDirPath != "" && imageDirPath == imageOutDirPath {
		printUsageAndExit("The image input and output paths cannot be identical")
	}
}

func printUsageAndExit(msg ...interface{}) {
	log.Print(msg...)
	flag.Usage()
	os.Exit(1)
}

func main() {
	var report annoconv.ConversionReport
	var err error

	switch task {
	case "convert":
		report, err = annoconv.Convert(annoconv.ConvertOptions{
			From:          convertFrom,
			To:            convertTo,
			LabelPath:     labelPath,
			ImageDir:      imageDirPath,
			OutPath:       labelOutPath,
			LabelListPath: labelListFilePath,
			LabelMapPath:  labelMapFilePath,
			NumShards:     numShardFiles,
		})
	case "resize":
		report, err = annoconv.Resize(annoconv.ResizeOptions{
			Width:            resizeWidth,
			Height:           resizeHeight,
			ImageDir:         imageDirPath,
			OutImageDir:      imageOutDirPath,
			Format:           convertFrom,
			LabelDir:         labelPath,
			OutLabelDir:      labelOutPath,
			LabelListPath:    labelListFilePath,
			Encoding:         imageOutEncoding,
			JPEGQuality:      imageJPEGQuality,
			DownsampleFilter: imageDownsamplingFilter,
			UpsampleFilter:   imageUpsamplingFilter,
		})
	case "split":
		err = runSplit()
	default:
		printUsageAndExit("Unknown task ", task)
	}

	if err != nil {
		log.Fatalf("Task %s failed: %v", task, err)
	}
	if task != "split" {
		log.Printf("Task %s finished: %d files processed, %d skipped",
			task, report.Converted, len(report.Skipped))
	}
}

// runSplit partitions the dataset under the input directories into
// train/validation/test sets below the split output root.
func runSplit() error {
	if splitOutDirPath == "" {
		printUsageAndExit("Missing -split-out directory")
	}

	subsetDirs := func(kind string) [3]string {
		return [3]string{
			filepath.Join(splitOutDirPath, kind, "train"),
			filepath.Join(splitOutDirPath, kind, "valid"),
			filepath.Join(splitOutDirPath, kind, "test"),
		}
	}

	assignment, report, err := annoconv.SplitFiles(annoconv.SplitFilesOptions{
		ImageDir:     imageDirPath,
		LabelDir:     labelPath,
		Format:       convertFrom,
		ImageOutDirs: subsetDirs("images"),
		LabelOutDirs: subsetDirs("labels"),
		Ratios: annoconv.SplitRatios{
			Train:      splitTrain,
			Validation: splitValid,
			Test:       splitTest,
		},
		Seed: splitSeed,
		Copy: splitCopy,
	})
	if err != nil {
		return err
	}

	if splitListsDir != "" {
		if err := assignment.WriteImageLists(splitListsDir, splitListPrefix, splitListExt); err != nil {
			return err
		}
	}

	log.Printf("Task split finished: %d pairs relocated, %d skipped",
		report.Converted, len(report.Skipped))
	return nil
}
