// Package labels - Class label sets for detection models.
package labels

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Set is an ordered list of class labels. The position of a label is the
// class index the model emits.
type Set struct {
	names     []string
	nameToIdx map[string]int
}

// New builds a set from names in class index order.
func New(names ...string) *Set {
	s := &Set{names: append([]string(nil), names...)}
	s.buildNameIndexMap()
	return s
}

func (s *Set) buildNameIndexMap() {
	s.nameToIdx = make(map[string]int, len(s.names))
	for i, name := range s.names {
		if _, ok := s.nameToIdx[name]; !ok {
			s.nameToIdx[name] = i
		}
	}
}

// Read parses one label per line. Surrounding whitespace is trimmed and
// blank lines are skipped.
//
// Arguments:
//   - r: The label source.
//
// Returns:
//   - *Set: The parsed labels.
//   - error: An error if reading fails or no labels are found.
func Read(r io.Reader) (*Set, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading labels failed")
	}
	if len(names) == 0 {
		return nil, errors.New("no labels found")
	}
	return New(names...), nil
}

// Load reads a label file from disk.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open labels file %s", path)
	}
	defer f.Close()

	set, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load labels from %s", path)
	}
	return set, nil
}

// Len returns the number of labels.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Name returns the label for idx, or "unknown_<idx>" when idx is outside
// the set.
func (s *Set) Name(idx int) string {
	if s == nil || idx < 0 || idx >= len(s.names) {
		return fmt.Sprintf("unknown_%d", idx)
	}
	return s.names[idx]
}

// Index returns the class index for name.
func (s *Set) Index(name string) (int, error) {
	if s == nil {
		return -1, fmt.Errorf("name %q not found", name)
	}
	idx, ok := s.nameToIdx[name]
	if !ok {
		return -1, fmt.Errorf("name %q not found", name)
	}
	return idx, nil
}

// Names returns a copy of the labels in index order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}
