// Package csvfile serves labelled dataset splits from CSV files on disk.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/repository"
)

// SourceName identifies this source in responses
const SourceName = "csv"

// ErrInvalidFile is returned for files without text and label columns or with bad labels
var ErrInvalidFile = errors.New("invalid dataset file")

// Source reads one CSV file per split from a directory
type Source struct {
	dir   string
	files map[entity.Split]string
}

// NewSource creates a Source. files maps each split to a file name relative to dir.
func NewSource(dir string, files map[entity.Split]string) *Source {
	return &Source{dir: dir, files: files}
}

// Name implements repository.DatasetSource
func (s *Source) Name() string {
	return SourceName
}

// Load reads the whole split file
func (s *Source) Load(ctx context.Context, split entity.Split) (*entity.Dataset, error) {
	name, ok := s.files[split]
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: %s", repository.ErrSplitNotFound, split)
	}

	path := filepath.Join(s.dir, name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (%s)", repository.ErrSplitNotFound, split, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reviews, err := ReadReviews(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &entity.Dataset{Split: split, Source: SourceName, Reviews: reviews}, nil
}

// ReadReviews parses a CSV stream with text and label columns
func ReadReviews(ctx context.Context, r io.Reader) ([]entity.LabeledReview, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []entity.LabeledReview{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	textIdx, labelIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(strings.TrimPrefix(col, "\uFEFF")) {
		case "text":
			textIdx = i
		case "label":
			labelIdx = i
		}
	}
	if textIdx < 0 || labelIdx < 0 {
		return nil, fmt.Errorf("%w: header must contain text and label", ErrInvalidFile)
	}

	var reviews []entity.LabeledReview
	for line := 2; ; line++ {
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}

		label, err := strconv.Atoi(strings.TrimSpace(record[labelIdx]))
		if err != nil || (label != entity.LabelNegative && label != entity.LabelPositive) {
			return nil, fmt.Errorf("%w: line %d: label %q is not 0 or 1", ErrInvalidFile, line, record[labelIdx])
		}
		reviews = append(reviews, entity.LabeledReview{Text: record[textIdx], Label: label})
	}

	if reviews == nil {
		reviews = []entity.LabeledReview{}
	}
	return reviews, nil
}
