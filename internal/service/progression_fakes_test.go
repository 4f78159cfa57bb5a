package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/sma-progression-api/internal/models"
	"github.com/noah-isme/sma-progression-api/internal/repository"
)

var fixedNow = time.Date(2024, time.March, 14, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type missionFixture struct {
	missions   map[string]*models.Mission
	activities map[string][]models.MissionActivity
}

func newMissionFixture() *missionFixture {
	return &missionFixture{missions: map[string]*models.Mission{}, activities: map[string][]models.MissionActivity{}}
}

func (f *missionFixture) add(mission models.Mission, activityIDs ...string) {
	m := mission
	f.missions[m.ID] = &m
	for i, id := range activityIDs {
		f.activities[m.ID] = append(f.activities[m.ID], models.MissionActivity{ID: id, MissionID: m.ID, Position: i + 1})
	}
}

func (f *missionFixture) GetByID(ctx context.Context, id string) (*models.Mission, error) {
	if m, ok := f.missions[id]; ok {
		return m, nil
	}
	return nil, sql.ErrNoRows
}

func (f *missionFixture) GetActivity(ctx context.Context, missionID, activityID string) (*models.MissionActivity, error) {
	for _, a := range f.activities[missionID] {
		if a.ID == activityID {
			activity := a
			return &activity, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *missionFixture) ListActivities(ctx context.Context, missionID string) ([]models.MissionActivity, error) {
	return f.activities[missionID], nil
}

// memoryProgressStore mirrors ProgressRepository.Toggle: lazy row creation, mutate, write back on change.
type memoryProgressStore struct {
	mu         sync.Mutex
	missions   *missionFixture
	progress   map[string]*models.MissionProgress
	activities map[models.ProgressKey]*models.ActivityProgress
	writes     int
}

func newMemoryProgressStore(missions *missionFixture) *memoryProgressStore {
	return &memoryProgressStore{
		missions:   missions,
		progress:   map[string]*models.MissionProgress{},
		activities: map[models.ProgressKey]*models.ActivityProgress{},
	}
}

func progressRowKey(learnerID, missionID string) string { return learnerID + "/" + missionID }

func (s *memoryProgressStore) Toggle(ctx context.Context, key models.ProgressKey, mutate repository.ProgressMutator) (*models.MissionProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rowKey := progressRowKey(key.LearnerID, key.MissionID)
	stored, ok := s.progress[rowKey]
	if !ok {
		stored = &models.MissionProgress{
			LearnerID:       key.LearnerID,
			MissionID:       key.MissionID,
			Status:          models.MissionStatusNotStarted,
			TotalActivities: len(s.missions.activities[key.MissionID]),
		}
		s.progress[rowKey] = stored
	}
	mission := *stored
	activity := models.ActivityProgress{LearnerID: key.LearnerID, MissionID: key.MissionID, ActivityID: key.ActivityID}
	if existing, ok := s.activities[key]; ok {
		activity = *existing
	}

	changed, err := mutate(&mission, &activity)
	if err != nil {
		return nil, err
	}
	if changed {
		s.writes++
		*stored = mission
		s.activities[key] = &activity
	}
	result := *stored
	return &result, nil
}

func (s *memoryProgressStore) GetMissionProgress(ctx context.Context, learnerID, missionID string) (*models.MissionProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.progress[progressRowKey(learnerID, missionID)]; ok {
		result := *p
		return &result, nil
	}
	return nil, sql.ErrNoRows
}

func (s *memoryProgressStore) ListMissionProgress(ctx context.Context, filter models.MissionProgressFilter) ([]models.MissionProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.MissionProgress
	for _, p := range s.progress {
		if p.LearnerID != filter.LearnerID {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		rows = append(rows, *p)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].MissionID < rows[j].MissionID })
	return rows, nil
}

// memoryBadgeStore keeps awards keyed like the partial unique index on approved (user, badge).
type memoryBadgeStore struct {
	mu        sync.Mutex
	badges    map[string]*models.Badge
	awards    []models.BadgeAward
	reviewErr error
	seq       int
}

func newMemoryBadgeStore(badges ...models.Badge) *memoryBadgeStore {
	store := &memoryBadgeStore{badges: map[string]*models.Badge{}}
	for _, b := range badges {
		badge := b
		store.badges[badge.ID] = &badge
	}
	return store
}

func (s *memoryBadgeStore) GetBadge(ctx context.Context, id string) (*models.Badge, error) {
	if b, ok := s.badges[id]; ok {
		return b, nil
	}
	return nil, sql.ErrNoRows
}

func (s *memoryBadgeStore) hasApproved(userID, badgeID string) bool {
	for _, a := range s.awards {
		if a.UserID == userID && a.BadgeID == badgeID && a.ApprovalStatus == models.ApprovalApproved {
			return true
		}
	}
	return false
}

func (s *memoryBadgeStore) HasApprovedAward(ctx context.Context, userID, badgeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasApproved(userID, badgeID), nil
}

func (s *memoryBadgeStore) InsertApprovedAward(ctx context.Context, award *models.BadgeAward) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasApproved(award.UserID, award.BadgeID) {
		return false, nil
	}
	s.seq++
	award.ID = fmt.Sprintf("award-%d", s.seq)
	award.ApprovalStatus = models.ApprovalApproved
	s.awards = append(s.awards, *award)
	return true, nil
}

func (s *memoryBadgeStore) CreateSubmission(ctx context.Context, award *models.BadgeAward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	award.ID = fmt.Sprintf("submission-%d", s.seq)
	award.Source = models.BadgeSourceManual
	award.ApprovalStatus = models.ApprovalPending
	s.awards = append(s.awards, *award)
	return nil
}

func (s *memoryBadgeStore) GetAward(ctx context.Context, id string) (*models.BadgeAward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.awards {
		if a.ID == id {
			award := a
			return &award, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memoryBadgeStore) Review(ctx context.Context, params repository.ReviewAwardParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reviewErr != nil {
		return s.reviewErr
	}
	for i, a := range s.awards {
		if a.ID != params.ID || a.ApprovalStatus != models.ApprovalPending {
			continue
		}
		if params.Status == models.ApprovalApproved && s.hasApproved(a.UserID, a.BadgeID) {
			return repository.ErrAwardAlreadyApproved
		}
		reviewedAt := params.ReviewedAt
		s.awards[i].ApprovalStatus = params.Status
		s.awards[i].ReviewerID = &params.ReviewerID
		s.awards[i].ReviewedAt = &reviewedAt
		if params.Status == models.ApprovalApproved {
			s.awards[i].EarnedAt = &reviewedAt
		}
		return nil
	}
	return sql.ErrNoRows
}

func (s *memoryBadgeStore) ListApprovedAwards(ctx context.Context, userID string) ([]models.BadgeAward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var awards []models.BadgeAward
	for _, a := range s.awards {
		if a.UserID == userID && a.ApprovalStatus == models.ApprovalApproved {
			awards = append(awards, a)
		}
	}
	return awards, nil
}

func (s *memoryBadgeStore) ListSubmissions(ctx context.Context, filter models.BadgeSubmissionFilter) ([]models.BadgeAward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var awards []models.BadgeAward
	for _, a := range s.awards {
		if a.Source != models.BadgeSourceManual {
			continue
		}
		if filter.Status != nil && a.ApprovalStatus != *filter.Status {
			continue
		}
		awards = append(awards, a)
	}
	return awards, nil
}

func (s *memoryBadgeStore) CountApproved(ctx context.Context, userID string) (int, error) {
	awards, _ := s.ListApprovedAwards(ctx, userID)
	return len(awards), nil
}

type memoryUsers map[string]*models.User

func (u memoryUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

// memoryHoursStore enforces the (user, type, activity) natural key.
type memoryHoursStore struct {
	mu        sync.Mutex
	entries   []models.HoursLedgerEntry
	insertErr error
}

func (s *memoryHoursStore) find(userID string, activityType models.HoursActivityType, activityID string) bool {
	for _, e := range s.entries {
		if e.UserID == userID && e.ActivityType == activityType && e.ActivityID == activityID {
			return true
		}
	}
	return false
}

func (s *memoryHoursStore) Insert(ctx context.Context, entry *models.HoursLedgerEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return false, s.insertErr
	}
	if s.find(entry.UserID, entry.ActivityType, entry.ActivityID) {
		return false, nil
	}
	entry.ID = fmt.Sprintf("hours-%d", len(s.entries)+1)
	s.entries = append(s.entries, *entry)
	return true, nil
}

func (s *memoryHoursStore) Exists(ctx context.Context, userID string, activityType models.HoursActivityType, activityID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(userID, activityType, activityID), nil
}

func (s *memoryHoursStore) SumHours(ctx context.Context, userID string, from, to *time.Time) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0.0
	for _, e := range s.entries {
		if e.UserID != userID {
			continue
		}
		if from != nil && e.RecordedAt.Before(*from) {
			continue
		}
		if to != nil && !e.RecordedAt.Before(*to) {
			continue
		}
		total += e.Hours
	}
	return total, nil
}

func (s *memoryHoursStore) ListRecent(ctx context.Context, userID string, limit int) ([]models.HoursLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []models.HoursLedgerEntry
	for i := len(s.entries) - 1; i >= 0 && len(entries) < limit; i-- {
		if s.entries[i].UserID == userID {
			entries = append(entries, s.entries[i])
		}
	}
	return entries, nil
}

// memoryLevelStore applies the same never-downgrade rule as the SQL upsert.
type memoryLevelStore struct {
	records map[string]*models.LevelRecord
	getErr  error
}

func newMemoryLevelStore() *memoryLevelStore {
	return &memoryLevelStore{records: map[string]*models.LevelRecord{}}
}

func (s *memoryLevelStore) Get(ctx context.Context, userID string) (*models.LevelRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if r, ok := s.records[userID]; ok {
		record := *r
		return &record, nil
	}
	return nil, sql.ErrNoRows
}

func (s *memoryLevelStore) Upsert(ctx context.Context, record *models.LevelRecord) (*models.LevelRecord, error) {
	stored, ok := s.records[record.UserID]
	if !ok {
		r := *record
		s.records[record.UserID] = &r
		result := r
		return &result, nil
	}
	if record.CurrentLevel > stored.CurrentLevel {
		stored.CurrentLevel = record.CurrentLevel
		stored.LevelName = record.LevelName
		stored.LastLevelUpAt = record.LastLevelUpAt
	}
	stored.Metric = record.Metric
	stored.MetricSnapshot = record.MetricSnapshot
	stored.UpdatedAt = record.UpdatedAt
	result := *stored
	return &result, nil
}

type memoryActivityLog struct {
	entries []models.ActivityLogEntry
	days    []time.Time
	err     error
}

func (l *memoryActivityLog) Append(ctx context.Context, entry *models.ActivityLogEntry) error {
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, *entry)
	return nil
}

func (l *memoryActivityLog) DistinctDates(ctx context.Context, userID, timezone string) ([]time.Time, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.days, nil
}

type recordingPublisher struct {
	events []models.ProgressionEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...models.ProgressionEvent) ([]models.ProgressionEvent, error) {
	p.events = append(p.events, events...)
	return events, p.err
}
