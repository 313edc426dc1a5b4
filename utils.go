package annoconv

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// filesByExtInDir returns all regular files with file extension ext found
// directly in directory dirPath, sorted by path. All files are returned if
// ext is empty.
func filesByExtInDir(dirPath, ext string) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %q: %v", dirPath, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		// Must be a regular file or a symlink and have the requested extension.
		mode := entry.Type()
		if (!mode.IsRegular() && mode&os.ModeSymlink == 0) || !strings.HasSuffix(name, ext) {
			continue
		}
		files = append(files, filepath.Join(dirPath, name))
	}

	sort.Strings(files)
	return files, nil
}

// splitPath splits the given file path into the dir name, the base name
// without extension and the extension (without the dot).
func splitPath(path string) (dir, baseNoExt, ext string, err error) {
	dir, file := filepath.Split(path)
	ext = filepath.Ext(file)
	if ext == "" {
		return "", "", "", fmt.Errorf("missing file extension in %q", path)
	}

	dir = strings.TrimSuffix(dir, string(os.PathSeparator))
	baseNoExt = file[0 : len(file)-len(ext)]
	ext = ext[1:]

	return dir, baseNoExt, ext, nil
}

// mapFileNamesToExtensions maps the base names of the given file paths, with
// the file type extensions stripped off, to the file extension (without the
// dot).
func mapFileNamesToExtensions(filePaths []string) map[string]string {
	mapping := make(map[string]string, len(filePaths))
	for _, path := range filePaths {
		_, baseNoExt, ext, err := splitPath(path)
		if err != nil {
			continue
		}
		mapping[baseNoExt] = ext
	}

	return mapping
}

// filePair is a matched (image, annotation) file pair, identified by the
// shared file name stem.
type filePair struct {
	Stem      string
	ImagePath string
	LabelPath string // Empty when the image has no annotation file.
}

// matchedPairs enumerates the images in imageDir and matches each to the
// annotation file in labelDir with the same name stem and extension labelExt.
// Pairs are returned in sorted stem order.
//
// Images without an annotation file are returned with an empty LabelPath;
// annotation files without an image are reported in the orphans list.
func matchedPairs(imageDir, labelDir, labelExt string) (pairs []filePair, orphans []string, err error) {
	imageFiles, err := filesByExtInDir(imageDir, "")
	if err != nil {
		return nil, nil, err
	}

	labelFiles, err := filesByExtInDir(labelDir, labelExt)
	if err != nil {
		return nil, nil, err
	}
	labelsByStem := make(map[string]string, len(labelFiles))
	for _, path := range labelFiles {
		_, stem, _, err := splitPath(path)
		if err != nil {
			continue
		}
		labelsByStem[stem] = path
	}

	for _, imagePath := range imageFiles {
		_, stem, _, err := splitPath(imagePath)
		if err != nil {
			continue
		}
		pair := filePair{Stem: stem, ImagePath: imagePath}
		if labelPath, ok := labelsByStem[stem]; ok {
			pair.LabelPath = labelPath
			delete(labelsByStem, stem)
		}
		pairs = append(pairs, pair)
	}

	for _, path := range labelsByStem {
		orphans = append(orphans, path)
	}
	sort.Strings(orphans)

	return pairs, orphans, nil
}

// readLines returns a slice of lines read from the file at path.
func readLines(path string) (lines []string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file %q: %v", path, err)
	}
	defer closeWithErrCheck(file, &err)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %q as lines: %v", path, err)
	}

	return lines, nil
}

// closeWithErrCheck calls c.Close(). If it returns an error, and (*e == nil),
// e is set to that error.
func closeWithErrCheck(c io.Closer, e *error) {
	err := c.Close()
	if err != nil && *e == nil {
		*e = err
	}
}
