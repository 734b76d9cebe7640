package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"elearning-quiz-service/internal/domain"
)

// TimestampLayout is the format of the timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// ThemePlaceholder in a results path is replaced by the attempt's theme key.
const ThemePlaceholder = "{theme}"

// fixedColumns counts the non-question columns of a results row.
const fixedColumns = 7

// ErrColumnMismatch is returned when an attempt's question count does not fit the file header.
var ErrColumnMismatch = errors.New("results file question columns do not match attempt")

// CSVSink appends one row per attempt:
// timestamp, email, name, theme title, score, elapsed minutes, marks..., memo.
// The header is written with the first row, so a file holds attempts of one question count.
// With ThemePlaceholder in the path each theme gets its own file.
type CSVSink struct {
	path string
	mu   sync.Mutex
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// PathFor returns the file the record is appended to.
func (s *CSVSink) PathFor(record domain.AttemptRecord) string {
	return strings.ReplaceAll(s.path, ThemePlaceholder, record.ThemeKey)
}

func (s *CSVSink) Append(ctx context.Context, record domain.AttemptRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.PathFor(record)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create results dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat results file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header(len(record.Marks))); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	} else {
		questions, err := headerQuestions(f)
		if err != nil {
			return fmt.Errorf("read header of %s: %w", path, err)
		}
		if questions != len(record.Marks) {
			return fmt.Errorf("%w: %s has %d, attempt has %d", ErrColumnMismatch, path, questions, len(record.Marks))
		}
	}
	if err := w.Write(row(record)); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush results file: %w", err)
	}
	return f.Sync()
}

// headerQuestions counts the q columns of the header row at the start of r.
func headerQuestions(r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	cols, err := reader.Read()
	if err != nil {
		return 0, err
	}
	if len(cols) < fixedColumns {
		return 0, fmt.Errorf("header has %d columns", len(cols))
	}
	return len(cols) - fixedColumns, nil
}

func header(marks int) []string {
	cols := []string{"timestamp", "email", "name", "theme", "score", "elapsed_minutes"}
	for i := 1; i <= marks; i++ {
		cols = append(cols, "q"+strconv.Itoa(i))
	}
	return append(cols, "memo")
}

func row(r domain.AttemptRecord) []string {
	cols := []string{
		r.Timestamp.Format(TimestampLayout),
		r.Email,
		r.Name,
		r.ThemeTitle,
		strconv.Itoa(r.Score),
		strconv.Itoa(r.ElapsedMinutes),
	}
	cols = append(cols, r.MarkStrings()...)
	return append(cols, r.Memo)
}
