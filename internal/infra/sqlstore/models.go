package sqlstore

import (
	"encoding/json"
	"strings"
	"time"

	"elearning-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

// AttemptRow is one submitted attempt. Marks are stored as a ○/✕ string, one rune per question.
type AttemptRow struct {
	bun.BaseModel `bun:"table:attempts,alias:a"`

	ID             string    `bun:"id,pk"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
	Email          string    `bun:"email,notnull"`
	Name           string    `bun:"name,notnull"`
	ThemeKey       string    `bun:"theme_key,notnull"`
	ThemeTitle     string    `bun:"theme_title,notnull"`
	Score          int       `bun:"score,notnull"`
	ElapsedMinutes int       `bun:"elapsed_minutes,notnull"`
	Passed         bool      `bun:"passed,notnull"`
	Marks          string    `bun:"marks,notnull"`
	Memo           string    `bun:"memo,notnull"`
}

// QuestionBankRow holds a theme's bank as the same JSON document the file loader reads.
type QuestionBankRow struct {
	bun.BaseModel `bun:"table:question_banks,alias:qb"`

	ThemeKey  string          `bun:"theme_key,pk"`
	Data      json.RawMessage `bun:"data,type:jsonb,notnull"`
	UpdatedAt time.Time       `bun:"updated_at,notnull"`
}

func attemptRowFrom(r domain.AttemptRecord) AttemptRow {
	return AttemptRow{
		ID:             r.ID,
		CreatedAt:      r.Timestamp.UTC(),
		Email:          r.Email,
		Name:           r.Name,
		ThemeKey:       r.ThemeKey,
		ThemeTitle:     r.ThemeTitle,
		Score:          r.Score,
		ElapsedMinutes: r.ElapsedMinutes,
		Passed:         r.Passed,
		Marks:          strings.Join(r.MarkStrings(), ""),
		Memo:           r.Memo,
	}
}

func (row AttemptRow) record() domain.AttemptRecord {
	marks := make([]bool, 0, len(row.Marks))
	for _, m := range row.Marks {
		marks = append(marks, string(m) == domain.MarkCorrect)
	}
	return domain.AttemptRecord{
		ID:             row.ID,
		Timestamp:      row.CreatedAt,
		Email:          row.Email,
		Name:           row.Name,
		ThemeKey:       row.ThemeKey,
		ThemeTitle:     row.ThemeTitle,
		Score:          row.Score,
		ElapsedMinutes: row.ElapsedMinutes,
		Passed:         row.Passed,
		Marks:          marks,
		Memo:           row.Memo,
	}
}
