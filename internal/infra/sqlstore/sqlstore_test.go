package sqlstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"elearning-quiz-service/internal/domain"
	"elearning-quiz-service/internal/infra/sqlstore"
	"elearning-quiz-service/internal/infra/sqlstore/migrations"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	db, err := sqlstore.OpenSQLite(filepath.Join(t.TempDir(), "nested", "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = migrations.Apply(context.Background(), db)
	require.NoError(t, err)
	return db
}

func TestMigrationsAreRepeatable(t *testing.T) {
	db := openTestDB(t)
	group, err := migrations.Apply(context.Background(), db)
	require.NoError(t, err)
	require.True(t, group.IsZero(), "second run should apply nothing")
}

func TestAttemptStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	store := sqlstore.NewAttemptStore(db)
	ctx := context.Background()

	at := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	first := domain.AttemptRecord{
		ID:             "a1",
		Timestamp:      at,
		Email:          "taro@example.com",
		Name:           "Taro",
		ThemeKey:       "safety",
		ThemeTitle:     "Workplace Safety",
		Score:          75,
		ElapsedMinutes: 12,
		Passed:         true,
		Marks:          []bool{true, true, false, true},
	}
	second := first
	second.ID = "a2"
	second.Email = "hanako@example.com"
	second.Timestamp = at.Add(time.Minute)
	second.Score = 0
	second.Passed = false
	second.Marks = []bool{false, false, false, false}

	require.NoError(t, store.Append(ctx, first))
	require.NoError(t, store.Append(ctx, second))

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "a1", all[0].ID)
	require.Equal(t, first.Marks, all[0].Marks)
	require.True(t, all[0].Passed)
	require.Equal(t, at.Unix(), all[0].Timestamp.Unix())
	require.Equal(t, "", all[0].Memo)

	mine, err := store.List(ctx, "hanako@example.com")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.False(t, mine[0].Passed)
	require.Equal(t, []bool{false, false, false, false}, mine[0].Marks)
}

func TestAttemptStoreRejectsDuplicateID(t *testing.T) {
	db := openTestDB(t)
	store := sqlstore.NewAttemptStore(db)
	rec := domain.AttemptRecord{ID: "dup", Timestamp: time.Now()}

	require.NoError(t, store.Append(context.Background(), rec))
	require.Error(t, store.Append(context.Background(), rec))
}

func TestQuestionStoreUpsertAndLoad(t *testing.T) {
	db := openTestDB(t)
	store := sqlstore.NewQuestionStore(db)
	ctx := context.Background()

	v1 := []domain.Question{{Prompt: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: 1}}
	v2 := append(v1, domain.Question{Prompt: "3+3?", Options: []string{"6", "7", "8"}, CorrectAnswer: 0})

	require.NoError(t, store.Save(ctx, "math", v1))
	require.NoError(t, store.Save(ctx, "math", v2))

	got, err := store.LoadQuestions(ctx, "math")
	require.NoError(t, err)
	require.Equal(t, v2, got)

	keys, err := store.ThemeKeys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"math"}, keys)
}

func TestQuestionStoreWritesBankAsJSONObject(t *testing.T) {
	db := openTestDB(t)
	store := sqlstore.NewQuestionStore(db)
	ctx := context.Background()

	bank := []domain.Question{{Prompt: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: 1}}
	require.NoError(t, store.Save(ctx, "math", bank))

	var raw string
	err := db.NewSelect().
		Model((*sqlstore.QuestionBankRow)(nil)).
		Column("data").
		Where("theme_key = ?", "math").
		Scan(ctx, &raw)
	require.NoError(t, err)
	require.JSONEq(t, `{"questions":[{"question":"2+2?","options":["3","4"],"correct_answer":1}]}`, raw)
}

func TestQuestionStoreErrors(t *testing.T) {
	db := openTestDB(t)
	store := sqlstore.NewQuestionStore(db)
	ctx := context.Background()

	_, err := store.LoadQuestions(ctx, "missing")
	require.True(t, errors.Is(err, domain.ErrQuizNotFound))
	require.True(t, errors.Is(err, domain.ErrQuestionLoad))

	err = store.Save(ctx, "bad", []domain.Question{{Prompt: "x", Options: []string{"a"}, CorrectAnswer: 0}})
	require.True(t, errors.Is(err, domain.ErrMalformedQuestion))

	keys, err := store.ThemeKeys(ctx)
	require.NoError(t, err)
	require.Empty(t, keys)
}
