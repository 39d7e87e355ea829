package dataset

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// AnnotationFile is the per-directory label file name.
const AnnotationFile = "labels.csv"

// Discover returns the paths of every annotation file beneath root, sorted.
func Discover(fs afero.Fs, root string) ([]string, error) {
	entries := make([]string, 0)
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.Name() == AnnotationFile {
			entries = append(entries, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "discover annotations")
	}
	sort.Strings(entries)
	return entries, nil
}
