package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-progression-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var missionProgressCols = []string{"learner_id", "mission_id", "status", "completed_activities", "total_activities", "progress_percentage", "started_at", "completed_at", "rewarded_at", "updated_at"}

func TestProgressRepositoryToggleCreatesMissionRowOnFirstTouch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProgressRepository(db)
	key := models.ProgressKey{LearnerID: "learner-1", MissionID: "mission-1", ActivityID: "act-1"}
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM mission_progress WHERE learner_id = $1 AND mission_id = $2 FOR UPDATE")).
		WithArgs("learner-1", "mission-1").
		WillReturnRows(sqlmock.NewRows(missionProgressCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM mission_activities")).
		WithArgs("mission-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mission_progress")).
		WithArgs("learner-1", "mission-1", models.MissionStatusNotStarted, 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM mission_progress WHERE learner_id = $1 AND mission_id = $2 FOR UPDATE")).
		WithArgs("learner-1", "mission-1").
		WillReturnRows(sqlmock.NewRows(missionProgressCols).
			AddRow("learner-1", "mission-1", "NOT_STARTED", 0, 3, 0, nil, nil, nil, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM activity_progress")).
		WithArgs("learner-1", "mission-1", "act-1").
		WillReturnRows(sqlmock.NewRows([]string{"learner_id", "mission_id", "activity_id", "is_completed", "completed_at"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_progress")).
		WithArgs("learner-1", "mission-1", "act-1", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE mission_progress SET status")).
		WithArgs("learner-1", "mission-1", models.MissionStatusInProgress, 1, 33.33, sqlmock.AnyArg(), nil, sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	progress, err := repo.Toggle(context.Background(), key, func(m *models.MissionProgress, a *models.ActivityProgress) (bool, error) {
		require.False(t, a.IsCompleted)
		require.Equal(t, 3, m.TotalActivities)
		a.IsCompleted = true
		a.CompletedAt = &now
		m.CompletedActivities = 1
		m.ProgressPercentage = 33.33
		m.Status = models.MissionStatusInProgress
		m.StartedAt = &now
		m.UpdatedAt = now
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, progress.CompletedActivities)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressRepositoryToggleSkipsWritesWhenUnchanged(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProgressRepository(db)
	key := models.ProgressKey{LearnerID: "learner-1", MissionID: "mission-1", ActivityID: "act-1"}
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM mission_progress WHERE learner_id = $1 AND mission_id = $2 FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(missionProgressCols).
			AddRow("learner-1", "mission-1", "IN_PROGRESS", 1, 3, 33.33, now, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM activity_progress")).
		WillReturnRows(sqlmock.NewRows([]string{"learner_id", "mission_id", "activity_id", "is_completed", "completed_at"}).
			AddRow("learner-1", "mission-1", "act-1", true, now))
	mock.ExpectCommit()

	progress, err := repo.Toggle(context.Background(), key, func(*models.MissionProgress, *models.ActivityProgress) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	require.Equal(t, models.MissionStatusInProgress, progress.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressRepositoryToggleRollsBackOnMutatorError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProgressRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM mission_progress WHERE learner_id = $1 AND mission_id = $2 FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(missionProgressCols).
			AddRow("learner-1", "mission-1", "NOT_STARTED", 0, 3, 0, nil, nil, nil, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM activity_progress")).
		WillReturnRows(sqlmock.NewRows([]string{"learner_id", "mission_id", "activity_id", "is_completed", "completed_at"}))
	mock.ExpectRollback()

	_, err := repo.Toggle(context.Background(), models.ProgressKey{LearnerID: "learner-1", MissionID: "mission-1", ActivityID: "act-1"},
		func(*models.MissionProgress, *models.ActivityProgress) (bool, error) {
			return false, errors.New("boom")
		})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressRepositoryListFiltersByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProgressRepository(db)
	status := models.MissionStatusCompleted
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM mission_progress WHERE learner_id = $1 AND status = $2")).
		WithArgs("learner-1", status).
		WillReturnRows(sqlmock.NewRows(missionProgressCols).
			AddRow("learner-1", "mission-1", "COMPLETED", 3, 3, 100, now, now, now, now))

	rows, err := repo.ListMissionProgress(context.Background(), models.MissionProgressFilter{LearnerID: "learner-1", Status: &status})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 100.0, rows[0].ProgressPercentage)
	require.NoError(t, mock.ExpectationsWereMet())
}
