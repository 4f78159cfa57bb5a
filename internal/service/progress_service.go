package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-progression-api/internal/dto"
	"github.com/noah-isme/sma-progression-api/internal/models"
	"github.com/noah-isme/sma-progression-api/internal/repository"
	appErrors "github.com/noah-isme/sma-progression-api/pkg/errors"
)

type missionReader interface {
	GetByID(ctx context.Context, id string) (*models.Mission, error)
	GetActivity(ctx context.Context, missionID, activityID string) (*models.MissionActivity, error)
	ListActivities(ctx context.Context, missionID string) ([]models.MissionActivity, error)
}

type progressStore interface {
	Toggle(ctx context.Context, key models.ProgressKey, mutate repository.ProgressMutator) (*models.MissionProgress, error)
	GetMissionProgress(ctx context.Context, learnerID, missionID string) (*models.MissionProgress, error)
	ListMissionProgress(ctx context.Context, filter models.MissionProgressFilter) ([]models.MissionProgress, error)
}

type engagementRecorder interface {
	RecordEngagement(ctx context.Context, userID string, kind models.EngagementKind) error
}

// ProgressService tracks activity completion and mission aggregates.
type ProgressService struct {
	missions   missionReader
	progress   progressStore
	engagement engagementRecorder
	publisher  progressionPublisher
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewProgressService constructs the progress tracker.
func NewProgressService(missions missionReader, progress progressStore, engagement engagementRecorder, publisher progressionPublisher, validate *validator.Validate, logger *zap.Logger) *ProgressService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &ProgressService{
		missions:   missions,
		progress:   progress,
		engagement: engagement,
		publisher:  publisher,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
}

// activityToggle is the outcome of applying one completion flag to locked rows.
type activityToggle struct {
	changed       bool
	justCompleted bool
	activityDone  bool
}

// applyActivityToggle mutates the rows in place. Repeating a flag is a no-op; the completed
// count stays within [0, total]. justCompleted is set only on the first completion ever:
// RewardedAt is stamped then and survives later un-completion.
func applyActivityToggle(mission *models.MissionProgress, activity *models.ActivityProgress, completed bool, now time.Time) activityToggle {
	if activity.IsCompleted == completed {
		return activityToggle{}
	}
	wasCompleted := mission.Status == models.MissionStatusCompleted

	activity.IsCompleted = completed
	if completed {
		activity.CompletedAt = &now
		if mission.CompletedActivities < mission.TotalActivities {
			mission.CompletedActivities++
		}
		if mission.StartedAt == nil {
			mission.StartedAt = &now
		}
	} else {
		activity.CompletedAt = nil
		if mission.CompletedActivities > 0 {
			mission.CompletedActivities--
		}
	}

	if mission.TotalActivities > 0 {
		mission.ProgressPercentage = roundTo2(float64(mission.CompletedActivities) / float64(mission.TotalActivities) * 100)
	} else {
		mission.ProgressPercentage = 0
	}

	switch {
	case mission.TotalActivities > 0 && mission.CompletedActivities >= mission.TotalActivities:
		mission.Status = models.MissionStatusCompleted
		if mission.CompletedAt == nil {
			mission.CompletedAt = &now
		}
	case mission.CompletedActivities > 0:
		mission.Status = models.MissionStatusInProgress
		mission.CompletedAt = nil
	default:
		mission.Status = models.MissionStatusNotStarted
		mission.CompletedAt = nil
	}
	mission.UpdatedAt = now

	firstCompletion := false
	if mission.Status == models.MissionStatusCompleted && mission.RewardedAt == nil {
		mission.RewardedAt = &now
		firstCompletion = !wasCompleted
	}

	return activityToggle{
		changed:       true,
		justCompleted: firstCompletion,
		activityDone:  completed,
	}
}

// RecordActivityCompletion marks an activity complete or incomplete and refreshes the mission
// aggregate. Completing the mission publishes MISSION_COMPLETED and the snapshot carries every
// event the hooks produced.
func (s *ProgressService) RecordActivityCompletion(ctx context.Context, req dto.RecordActivityRequest) (*dto.MissionProgressSnapshot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	mission, err := s.missions.GetByID(ctx, req.MissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mission not found")
		}
		return nil, appErrors.Internal(err, "failed to load mission")
	}
	if _, err := s.missions.GetActivity(ctx, req.MissionID, req.ActivityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Internal(err, "failed to load activity")
	}

	now := s.now().UTC()
	var outcome activityToggle
	key := models.ProgressKey{LearnerID: req.LearnerID, MissionID: req.MissionID, ActivityID: req.ActivityID}
	progress, err := s.progress.Toggle(ctx, key, func(m *models.MissionProgress, a *models.ActivityProgress) (bool, error) {
		outcome = applyActivityToggle(m, a, req.Completed, now)
		return outcome.changed, nil
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to record activity progress")
	}

	snapshot := &dto.MissionProgressSnapshot{
		Progress:       *progress,
		MissionChanged: outcome.changed,
		JustCompleted:  outcome.justCompleted,
	}

	if outcome.activityDone && s.engagement != nil {
		if err := s.engagement.RecordEngagement(ctx, req.LearnerID, models.EngagementActivityCompleted); err != nil {
			s.logger.Warn("failed to log engagement", zap.String("user_id", req.LearnerID), zap.Error(err))
		}
	}

	if !outcome.justCompleted {
		return snapshot, nil
	}

	s.logger.Info("mission completed", zap.String("user_id", req.LearnerID), zap.String("mission_id", req.MissionID))
	events, err := s.publisher.Publish(ctx, missionCompletedEvent(req.LearnerID, mission, now))
	snapshot.Events = events
	if err != nil {
		return snapshot, appErrors.Internal(err, "progress recorded but follow-up processing failed")
	}
	return snapshot, nil
}

// GetMissionProgress returns the learner's aggregate for a mission. A mission the learner has not
// touched yet reports NOT_STARTED with the current activity count.
func (s *ProgressService) GetMissionProgress(ctx context.Context, learnerID, missionID string) (*models.MissionProgress, error) {
	progress, err := s.progress.GetMissionProgress(ctx, learnerID, missionID)
	if err == nil {
		return progress, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to load mission progress")
	}
	if _, err := s.missions.GetByID(ctx, missionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mission not found")
		}
		return nil, appErrors.Internal(err, "failed to load mission")
	}
	activities, err := s.missions.ListActivities(ctx, missionID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load mission activities")
	}
	return &models.MissionProgress{
		LearnerID:       learnerID,
		MissionID:       missionID,
		Status:          models.MissionStatusNotStarted,
		TotalActivities: len(activities),
	}, nil
}

// ListMissionProgress lists the learner's touched missions, optionally by status.
func (s *ProgressService) ListMissionProgress(ctx context.Context, learnerID, status string, limit int) ([]models.MissionProgress, error) {
	filter := models.MissionProgressFilter{LearnerID: learnerID, Limit: limit}
	if status != "" {
		parsed := models.MissionStatus(status)
		if !parsed.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown mission status")
		}
		filter.Status = &parsed
	}
	rows, err := s.progress.ListMissionProgress(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list mission progress")
	}
	return rows, nil
}

func missionCompletedEvent(learnerID string, mission *models.Mission, at time.Time) models.ProgressionEvent {
	event := models.ProgressionEvent{
		Kind:       models.EventMissionCompleted,
		UserID:     learnerID,
		MissionID:  mission.ID,
		OccurredAt: at,
	}
	if mission.BadgeID != nil {
		event.BadgeID = *mission.BadgeID
	}
	if mission.HoursValue != nil && *mission.HoursValue > 0 {
		event.Hours = *mission.HoursValue
		event.HoursType = models.HoursActivityMission
		if mission.Audience == models.MissionAudienceTeacher {
			event.HoursType = models.HoursActivityCPDModule
		}
	}
	return event
}
