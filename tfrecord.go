package annoconv

// TFRecord object detection specific functionality.

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
)

// TFFeatureMap maps feature names to their values. Values must be
// convertible to tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// toTFRecord converts the intermediate representation for a single file to
// the TFRecord feature map. Label IDs come from the table and are one-based,
// matching the label map file.
func toTFRecord(fileData AnnotatedFile, labels *LabelTable) (TFFeatureMap, error) {
	imgData, err := os.ReadFile(fileData.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read the image: %v", err)
	}
	_, _, ext, err := splitPath(fileData.FilePath)
	if err != nil {
		return nil, err
	}

	f := make(TFFeatureMap, 16)
	f["image/height"] = fileData.Height
	f["image/width"] = fileData.Width
	f["image/filename"] = fileData.FilePath
	f["image/source_id"] = fileData.FilePath
	f["image/encoded"] = imgData
	f["image/format"] = strings.ToLower(ext)

	numLabels := len(fileData.Annotations)
	xmins := make([]float32, numLabels)
	ymins := make([]float32, numLabels)
	xmaxs := make([]float32, numLabels)
	ymaxs := make([]float32, numLabels)
	classes := make([]string, numLabels)
	classIDs := make([]int64, numLabels)
	for i, a := range fileData.Annotations {
		c := NormalizeBox(a.Coords, float64(fileData.Width), float64(fileData.Height))
		xmins[i] = float32(c[0])
		ymins[i] = float32(c[1])
		xmaxs[i] = float32(c[2])
		ymaxs[i] = float32(c[3])
		classes[i] = a.Label

		idx, ok := labels.Index(a.Label)
		if !ok {
			return nil, formatErrorf(FormatTFRecord, fileData.FilePath,
				"label %q has no ID mapping", a.Label)
		}
		classIDs[i] = int64(idx) + 1
	}
	f["image/object/bbox/xmin"] = xmins
	f["image/object/bbox/ymin"] = ymins
	f["image/object/bbox/xmax"] = xmaxs
	f["image/object/bbox/ymax"] = ymaxs
	f["image/object/class/text"] = classes
	f["image/object/class/label"] = classIDs

	return f, nil
}

// WriteTFRecord does a streaming conversion, serialisation and file write for
// the annotation data to one or more TFRecord files stored under
// recordFilePath (with suffixes added when numShards > 1).
//
// The label map for the table is written to labelMapPath in prototxt form.
// The table is read-only here; it must be complete before the call.
func WriteTFRecord(recordFilePath, labelMapPath string, data AnnotatedFiles,
	labels *LabelTable, numShards int) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	if numShards <= 0 {
		numShards = 1
	}

	fmtShardSuffix := func(idx int) string {
		return fmt.Sprintf("-%05d-of-%05d", idx, numShards)
	}

	var shardFile *os.File
	shardSize := int(math.Ceil(float64(len(data)) / float64(numShards)))
	shardIdx := -1

	// Convert and serialise one data element at a time.
	for i, fileData := range data {
		// Check if a new shard file needs to be opened for writing.
		if i%shardSize == 0 {
			shardIdx++

			if shardFile != nil {
				_ = shardFile.Close()
				shardFile = nil
			}

			shardPath := recordFilePath
			if numShards > 1 {
				shardPath += fmtShardSuffix(shardIdx)
			}
			f, err := os.Create(shardPath)
			if err != nil {
				return fmt.Errorf("failed to create shard at %q: %v", shardPath, err)
			}
			shardFile = f
		}

		features, err := toTFRecord(fileData, labels)
		if err != nil {
			return fmt.Errorf("failed to convert %q: %v", fileData.FilePath, err)
		}
		tfExample := example.New(features)

		if err := writeTFRecordExample(shardFile, tfExample); err != nil {
			_ = shardFile.Close()
			return fmt.Errorf("failed to write example: %v", err)
		}
	}

	if shardFile != nil {
		if err := shardFile.Close(); err != nil {
			return err
		}
	}

	return saveTFRecordLabelMap(labelMapPath, labels)
}

// writeTFRecordExample serialises the example and writes it as a TFRecord
// to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}

// saveTFRecordLabelMap writes the label table to path as a
// string_int_label_map prototxt, with one-based IDs matching the written
// examples.
func saveTFRecordLabelMap(path string, labels *LabelTable) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create the label map file %q: %v", path, err)
	}
	defer closeWithErrCheck(file, &err)

	for i, name := range labels.Names() {
		if _, err := fmt.Fprintf(file, "item {\n  id: %d\n  name: '%s'\n}\n", i+1, name); err != nil {
			return err
		}
	}

	return nil
}
