package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-progression-api/internal/models"
)

func TestHoursRepositoryInsertIgnoresDuplicates(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewHoursRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO hours_ledger")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO hours_ledger")).WillReturnResult(sqlmock.NewResult(0, 0))

	entry := &models.HoursLedgerEntry{UserID: "teacher-1", ActivityType: models.HoursActivityWorkshop, ActivityID: "ws-1", Hours: 2.5}
	inserted, err := repo.Insert(context.Background(), entry)
	require.NoError(t, err)
	require.True(t, inserted)
	require.False(t, entry.RecordedAt.IsZero())

	dup := &models.HoursLedgerEntry{UserID: "teacher-1", ActivityType: models.HoursActivityWorkshop, ActivityID: "ws-1", Hours: 2.5}
	inserted, err = repo.Insert(context.Background(), dup)
	require.NoError(t, err)
	require.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHoursRepositorySumHoursAppliesRange(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewHoursRepository(db)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(hours), 0) FROM hours_ledger WHERE user_id = $1 AND recorded_at >= $2 AND recorded_at < $3")).
		WithArgs("teacher-1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(12.5))

	total, err := repo.SumHours(context.Background(), "teacher-1", &from, &to)
	require.NoError(t, err)
	require.Equal(t, 12.5, total)

	mock.ExpectQuery(regexp.QuoteMeta("FROM hours_ledger WHERE user_id = $1")).
		WithArgs("teacher-1").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(40.0))

	total, err = repo.SumHours(context.Background(), "teacher-1", nil, nil)
	require.NoError(t, err)
	require.Equal(t, 40.0, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHoursRepositoryListRecent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewHoursRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM hours_ledger")).
		WithArgs("teacher-1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "activity_type", "activity_id", "hours", "recorded_at"}).
			AddRow("h-1", "teacher-1", "CPD_MODULE", "mod-1", 3.0, time.Now()))

	entries, err := repo.ListRecent(context.Background(), "teacher-1", 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.HoursActivityCPDModule, entries[0].ActivityType)
	require.NoError(t, mock.ExpectationsWereMet())
}
