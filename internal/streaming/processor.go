package streaming

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
)

// DefaultChunkSize is the number of rows held in memory at once
const DefaultChunkSize = 500

// Column names recognised in uploaded files
const (
	TextColumn  = "text"
	LabelColumn = "label"
)

var (
	// ErrSchema is returned when the header has no text column
	ErrSchema = errors.New("missing required column 'text'")

	// ErrEmptyInput is returned when the stream holds no data rows
	ErrEmptyInput = errors.New("input contains no data rows")

	// ErrParse is returned when a row cannot be read
	ErrParse = errors.New("malformed input row")
)

const utf8BOM = "\uFEFF"

// Predictor classifies a sequence of texts in order
type Predictor interface {
	Predict(ctx context.Context, texts []string) ([]entity.Prediction, error)
}

// Processor reads CSV row streams chunk by chunk and classifies each chunk
type Processor struct {
	predictor     Predictor
	chunkSize     int
	maxTextLength int
	logger        *zap.Logger
}

// NewProcessor creates a Processor. Non-positive sizes fall back to their defaults.
func NewProcessor(predictor Predictor, chunkSize, maxTextLength int, logger *zap.Logger) *Processor {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}
	if maxTextLength < 1 {
		maxTextLength = entity.MaxTextLength
	}
	return &Processor{
		predictor:     predictor,
		chunkSize:     chunkSize,
		maxTextLength: maxTextLength,
		logger:        logger.With(zap.String("component", "streaming")),
	}
}

// ChunkSize returns the configured chunk size
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Process classifies every row of r and returns the records in input order.
// On any failure no records are returned.
func (p *Processor) Process(ctx context.Context, r io.Reader) ([]entity.BatchRecord, error) {
	var records []entity.BatchRecord
	err := p.Stream(ctx, r, func(chunk []entity.BatchRecord) error {
		records = append(records, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Stream classifies r one chunk at a time and hands each chunk's records to emit.
// Records already emitted before a failure are the caller's to discard.
func (p *Processor) Stream(ctx context.Context, r io.Reader, emit func([]entity.BatchRecord) error) error {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	cols, err := p.readHeader(reader)
	if err != nil {
		return err
	}

	texts := make([]string, 0, p.chunkSize)
	labels := make([]*string, 0, p.chunkSize)
	rows, chunks := 0, 0

	flush := func() error {
		if len(texts) == 0 {
			return nil
		}
		predictions, err := p.predictor.Predict(ctx, texts)
		if err != nil {
			return err
		}
		out := make([]entity.BatchRecord, len(texts))
		for i := range texts {
			out[i] = entity.NewBatchRecord(texts[i], predictions[i], labels[i])
		}
		chunks++
		p.logger.Debug("chunk classified",
			zap.Int("chunk", chunks),
			zap.Int("rows", len(texts)),
		)
		texts, labels = texts[:0], labels[:0]
		return emit(out)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrParse, err)
		}

		rows++
		texts = append(texts, entity.TruncateText(record[cols.text], p.maxTextLength))
		labels = append(labels, cols.label(record))

		if len(texts) == p.chunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if rows == 0 {
		return ErrEmptyInput
	}
	if err := flush(); err != nil {
		return err
	}

	p.logger.Debug("stream processed", zap.Int("rows", rows), zap.Int("chunks", chunks))
	return nil
}

type columns struct {
	text     int
	labelIdx int
}

func (c columns) label(record []string) *string {
	if c.labelIdx < 0 {
		return nil
	}
	v := record[c.labelIdx]
	return &v
}

func (p *Processor) readHeader(reader *csv.Reader) (columns, error) {
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return columns{}, ErrEmptyInput
	}
	if err != nil {
		return columns{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	cols := columns{text: -1, labelIdx: -1}
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		switch strings.TrimSpace(name) {
		case TextColumn:
			if cols.text < 0 {
				cols.text = i
			}
		case LabelColumn:
			if cols.labelIdx < 0 {
				cols.labelIdx = i
			}
		}
	}
	if cols.text < 0 {
		return columns{}, ErrSchema
	}
	return cols, nil
}
