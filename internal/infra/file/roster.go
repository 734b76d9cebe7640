package file

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"elearning-quiz-service/internal/domain"
)

const utf8BOM = "\ufeff"

// LoadRoster reads the roster CSV once. Any failure is fatal for the process
// and wraps domain.ErrConfigLoad.
func LoadRoster(path, emailColumn, nameColumn string) ([]domain.User, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: roster: %v", domain.ErrConfigLoad, err)
	}
	defer f.Close()

	users, err := ReadRoster(f, emailColumn, nameColumn)
	if err != nil {
		return nil, fmt.Errorf("%w: roster %s: %v", domain.ErrConfigLoad, path, err)
	}
	return users, nil
}

// ReadRoster parses a CSV with a header row. Rows keep file order so the
// first occurrence of a duplicated email wins downstream.
func ReadRoster(r io.Reader, emailColumn, nameColumn string) ([]domain.User, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty roster")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	emailIdx, nameIdx := -1, -1
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, utf8BOM))
		switch col {
		case emailColumn:
			if emailIdx < 0 {
				emailIdx = i
			}
		case nameColumn:
			if nameIdx < 0 {
				nameIdx = i
			}
		}
	}
	if emailIdx < 0 {
		return nil, fmt.Errorf("missing column %q", emailColumn)
	}
	if nameIdx < 0 {
		return nil, fmt.Errorf("missing column %q", nameColumn)
	}

	var users []domain.User
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if emailIdx >= len(row) {
			continue
		}
		email := strings.TrimSpace(row[emailIdx])
		if email == "" {
			continue
		}
		name := ""
		if nameIdx < len(row) {
			name = strings.TrimSpace(row[nameIdx])
		}
		users = append(users, domain.User{Email: email, DisplayName: name})
	}
	return users, nil
}
