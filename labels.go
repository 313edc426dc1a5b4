package annoconv

// The bidirectional label table used by formats that reference classes by
// integer ID rather than by embedded name.

import (
	"fmt"
	"os"
	"strings"
)

// LabelTable maps between class names and their integer indices. Indices are
// zero-based and assigned in insertion order.
//
// Darknet uses the zero-based index directly; COCO category IDs are the index
// plus one. A table built during a conversion's first pass must be fully
// constructed before any concurrent output phase starts; it is read-only
// afterwards.
type LabelTable struct {
	byName map[string]int
	names  []string
}

// NewLabelTable creates a table containing the given names, indexed in order.
// Duplicate names keep their first index.
func NewLabelTable(names []string) *LabelTable {
	t := &LabelTable{byName: make(map[string]int, len(names))}
	for _, name := range names {
		t.Add(name)
	}
	return t
}

// Add inserts name if it is not yet present and returns its index.
func (t *LabelTable) Add(name string) int {
	if idx, ok := t.byName[name]; ok {
		return idx
	}
	idx := len(t.names)
	t.byName[name] = idx
	t.names = append(t.names, name)
	return idx
}

// Index returns the zero-based index for name.
func (t *LabelTable) Index(name string) (int, bool) {
	idx, ok := t.byName[name]
	return idx, ok
}

// Name returns the name at the zero-based index idx.
func (t *LabelTable) Name(idx int) (string, bool) {
	if idx < 0 || idx >= len(t.names) {
		return "", false
	}
	return t.names[idx], true
}

// Names returns the class names in index order. The returned slice is shared;
// callers must not modify it.
func (t *LabelTable) Names() []string {
	return t.names
}

// Len is the number of classes in the table.
func (t *LabelTable) Len() int {
	return len(t.names)
}

// ReadLabelList reads an ordered class name list from path, one name per
// line, as used by Darknet .names sidecar files. Blank lines are ignored.
func ReadLabelList(path string) (*LabelTable, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	t := &LabelTable{byName: make(map[string]int, len(lines))}
	for _, line := range lines {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		t.Add(name)
	}
	return t, nil
}

// WriteLabelList writes the class names to path in index order, one per line.
func (t *LabelTable) WriteLabelList(path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create label list %q: %v", path, err)
	}
	defer closeWithErrCheck(file, &err)

	for _, name := range t.names {
		if _, err := fmt.Fprintln(file, name); err != nil {
			return err
		}
	}
	return nil
}
