package annoconv

// Deterministic train/validation/test dataset partitioning.

import (
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// Subset identifies one partition of a dataset split.
type Subset int

// The split partitions.
const (
	SubsetTrain Subset = iota
	SubsetValidation
	SubsetTest
)

func (s Subset) String() string {
	switch s {
	case SubsetTrain:
		return "train"
	case SubsetValidation:
		return "valid"
	case SubsetTest:
		return "test"
	}
	return "unknown"
}

// SplitRatios are the requested partition proportions. They must be
// non-negative and sum to 1 within a small tolerance.
type SplitRatios struct {
	Train      float64
	Validation float64
	Test       float64
}

// ratioTolerance is the accepted deviation of the ratio sum from 1.
const ratioTolerance = 1e-6

// SplitAssignment maps each entry to exactly one subset.
type SplitAssignment map[string]Subset

// Members returns the entries assigned to subset s, sorted.
func (a SplitAssignment) Members(s Subset) []string {
	var members []string
	for entry, subset := range a {
		if subset == s {
			members = append(members, entry)
		}
	}
	sort.Strings(members)
	return members
}

// Split assigns every entry to exactly one of train/validation/test.
//
// The entries are sorted and then shuffled with the seeded generator, so the
// assignment depends only on the entry set, the ratios and the seed, not on
// the input ordering. The first round(Train*N) entries go to train, the next
// round(Validation*N) to validation, and the remainder to test; the remainder
// absorbs all rounding error so the three counts always sum to N.
func Split(entries []string, ratios SplitRatios, seed int64) (SplitAssignment, error) {
	if ratios.Train < 0 || ratios.Validation < 0 || ratios.Test < 0 {
		return nil, configErrorf("negative split ratio")
	}
	sum := ratios.Train + ratios.Validation + ratios.Test
	if math.Abs(sum-1) > ratioTolerance {
		return nil, configErrorf("the split ratios add up to %v, not 1.0", sum)
	}

	shuffled := make([]string, len(entries))
	copy(shuffled, entries)
	sort.Strings(shuffled)

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := len(shuffled)
	numTrain := int(math.Round(ratios.Train * float64(n)))
	numValid := int(math.Round(ratios.Validation * float64(n)))
	if numTrain > n {
		numTrain = n
	}
	if numTrain+numValid > n {
		numValid = n - numTrain
	}

	assignment := make(SplitAssignment, n)
	for i, entry := range shuffled {
		switch {
		case i < numTrain:
			assignment[entry] = SubsetTrain
		case i < numTrain+numValid:
			assignment[entry] = SubsetValidation
		default:
			assignment[entry] = SubsetTest
		}
	}

	return assignment, nil
}

// SplitFilesOptions are the parameters for SplitFiles.
type SplitFilesOptions struct {
	ImageDir string
	LabelDir string
	Format   Format // Determines the annotation file extension.

	// Destination directories, created if missing.
	ImageOutDirs [3]string // Indexed by Subset.
	LabelOutDirs [3]string

	Ratios SplitRatios
	Seed   int64
	Copy   bool // Copy the files instead of moving them.
}

// SplitFiles partitions the matched (image, annotation) pairs under the
// source directories and relocates each pair into the destination
// directories of its subset.
//
// Images without an annotation file, and annotation files without an image,
// are recorded as skipped and left in place. Per-pair relocation failures are
// recorded and the batch continues.
func SplitFiles(opts SplitFilesOptions) (SplitAssignment, ConversionReport, error) {
	var report ConversionReport

	codec, ok := CodecFor(opts.Format)
	if !ok {
		return nil, report, configErrorf("format %q does not store one annotation file per image",
			opts.Format)
	}

	pairs, orphans, err := matchedPairs(opts.ImageDir, opts.LabelDir, codec.Ext())
	if err != nil {
		return nil, report, err
	}
	for _, path := range orphans {
		report.skip(path, "no corresponding image file")
	}

	// Only complete pairs participate in the split.
	pairsByStem := make(map[string]filePair, len(pairs))
	stems := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		if pair.LabelPath == "" {
			report.skip(pair.ImagePath, "no corresponding annotation file")
			continue
		}
		pairsByStem[pair.Stem] = pair
		stems = append(stems, pair.Stem)
	}

	assignment, err := Split(stems, opts.Ratios, opts.Seed)
	if err != nil {
		return nil, report, err
	}

	for _, dir := range append(opts.ImageOutDirs[:], opts.LabelOutDirs[:]...) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, report, errors.Wrapf(err, "cannot create directory %q", dir)
		}
	}

	for _, subset := range []Subset{SubsetTrain, SubsetValidation, SubsetTest} {
		members := assignment.Members(subset)
		log.Printf("Relocating %d pairs into the %s set", len(members), subset)
		for _, stem := range members {
			pair := pairsByStem[stem]
			if err := relocateFile(pair.ImagePath, opts.ImageOutDirs[subset], opts.Copy); err != nil {
				report.skip(pair.ImagePath, err.Error())
				continue
			}
			if err := relocateFile(pair.LabelPath, opts.LabelOutDirs[subset], opts.Copy); err != nil {
				report.skip(pair.LabelPath, err.Error())
				continue
			}
			report.Converted++
		}
	}

	return assignment, report, nil
}

// WriteImageLists writes one plain text file per subset (train.txt,
// valid.txt, test.txt) into destDir, each line naming an assigned entry with
// imageExt appended, prefixed with pathPrefix. Darknet training consumes
// these lists.
func (a SplitAssignment) WriteImageLists(destDir, pathPrefix, imageExt string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return errors.Wrapf(err, "cannot create directory %q", destDir)
	}

	for _, subset := range []Subset{SubsetTrain, SubsetValidation, SubsetTest} {
		path := filepath.Join(destDir, subset.String()+".txt")
		if err := writeImageList(path, a.Members(subset), pathPrefix, imageExt); err != nil {
			return err
		}
	}
	return nil
}

// writeImageList writes a single subset list file.
func writeImageList(path string, stems []string, pathPrefix, imageExt string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create list file %q", path)
	}
	defer closeWithErrCheck(file, &err)

	for _, stem := range stems {
		if _, err := fmt.Fprintln(file, filepath.Join(pathPrefix, stem+imageExt)); err != nil {
			return err
		}
	}
	return nil
}

// relocateFile copies or moves the file at srcPath into destDir, keeping its
// base name.
func relocateFile(srcPath, destDir string, copyFile bool) (err error) {
	destPath := filepath.Join(destDir, filepath.Base(srcPath))
	if !copyFile {
		return os.Rename(srcPath, destPath)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer closeWithErrCheck(dest, &err)

	_, err = io.Copy(dest, src)
	return err
}
