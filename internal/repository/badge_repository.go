package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-progression-api/internal/models"
	"github.com/noah-isme/sma-progression-api/pkg/database"
)

// ErrAwardAlreadyApproved is returned when approving would create a second approved award.
var ErrAwardAlreadyApproved = errors.New("badge award already approved")

// BadgeRepository persists badge definitions and awards.
type BadgeRepository struct {
	db *sqlx.DB
}

// NewBadgeRepository constructs the repository.
func NewBadgeRepository(db *sqlx.DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

const badgeAwardColumns = `id, user_id, badge_id, source, approval_status, source_ref, evidence_link, evidence_files, notes,
       reviewer_id, reviewer_notes, earned_at, submitted_at, reviewed_at`

// GetBadge returns a badge definition or sql.ErrNoRows.
func (r *BadgeRepository) GetBadge(ctx context.Context, id string) (*models.Badge, error) {
	const query = `SELECT id, name, category, target_role, cpd_hours_value, is_active FROM badges WHERE id = $1`
	var badge models.Badge
	if err := r.db.GetContext(ctx, &badge, query, id); err != nil {
		return nil, err
	}
	return &badge, nil
}

// HasApprovedAward reports whether the user already holds the badge.
func (r *BadgeRepository) HasApprovedAward(ctx context.Context, userID, badgeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM badge_awards WHERE user_id = $1 AND badge_id = $2 AND approval_status = 'APPROVED')`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, badgeID); err != nil {
		return false, fmt.Errorf("check approved award: %w", err)
	}
	return exists, nil
}

// InsertApprovedAward inserts an approved award unless one already exists.
// It reports whether a row was written.
func (r *BadgeRepository) InsertApprovedAward(ctx context.Context, award *models.BadgeAward) (bool, error) {
	if award.ID == "" {
		award.ID = uuid.NewString()
	}
	award.ApprovalStatus = models.ApprovalApproved
	const query = `INSERT INTO badge_awards (id, user_id, badge_id, source, approval_status, source_ref, evidence_files, earned_at, submitted_at)
	VALUES (:id, :user_id, :badge_id, :source, :approval_status, :source_ref, :evidence_files, :earned_at, :submitted_at)
	ON CONFLICT DO NOTHING`
	result, err := r.db.NamedExecContext(ctx, query, award)
	if err != nil {
		return false, fmt.Errorf("insert badge award: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert badge award rows: %w", err)
	}
	return affected > 0, nil
}

// CreateSubmission inserts a pending manual award.
func (r *BadgeRepository) CreateSubmission(ctx context.Context, award *models.BadgeAward) error {
	if award.ID == "" {
		award.ID = uuid.NewString()
	}
	if award.SubmittedAt.IsZero() {
		award.SubmittedAt = time.Now().UTC()
	}
	award.Source = models.BadgeSourceManual
	award.ApprovalStatus = models.ApprovalPending
	const query = `INSERT INTO badge_awards (id, user_id, badge_id, source, approval_status, evidence_link, evidence_files, notes, submitted_at)
	VALUES (:id, :user_id, :badge_id, :source, :approval_status, :evidence_link, :evidence_files, :notes, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, award); err != nil {
		return fmt.Errorf("create badge submission: %w", err)
	}
	return nil
}

// GetAward fetches an award or submission by id.
func (r *BadgeRepository) GetAward(ctx context.Context, id string) (*models.BadgeAward, error) {
	query := `SELECT ` + badgeAwardColumns + ` FROM badge_awards WHERE id = $1`
	var award models.BadgeAward
	if err := r.db.GetContext(ctx, &award, query, id); err != nil {
		return nil, err
	}
	return &award, nil
}

// ReviewAwardParams captures a review decision.
type ReviewAwardParams struct {
	ID            string
	Status        models.ApprovalStatus
	ReviewerID    string
	ReviewerNotes *string
	ReviewedAt    time.Time
}

// Review moves a pending submission to its final state. A submission that is no longer
// pending yields sql.ErrNoRows; an approval racing another approved award yields
// ErrAwardAlreadyApproved.
func (r *BadgeRepository) Review(ctx context.Context, params ReviewAwardParams) error {
	query := fmt.Sprintf(`UPDATE badge_awards SET approval_status = $2, reviewer_id = $3, reviewer_notes = $4, reviewed_at = $5,
	earned_at = CASE WHEN $2 = '%s' THEN $5 ELSE earned_at END
	WHERE id = $1 AND approval_status = '%s'`, models.ApprovalApproved, models.ApprovalPending)
	result, err := r.db.ExecContext(ctx, query, params.ID, params.Status, params.ReviewerID, params.ReviewerNotes, params.ReviewedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrAwardAlreadyApproved
		}
		return fmt.Errorf("review badge award: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("review badge award rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListApprovedAwards returns the user's earned badges, newest first.
func (r *BadgeRepository) ListApprovedAwards(ctx context.Context, userID string) ([]models.BadgeAward, error) {
	query := `SELECT ` + badgeAwardColumns + ` FROM badge_awards WHERE user_id = $1 AND approval_status = 'APPROVED'
	ORDER BY earned_at DESC NULLS LAST, id ASC`
	var awards []models.BadgeAward
	if err := r.db.SelectContext(ctx, &awards, query, userID); err != nil {
		return nil, fmt.Errorf("list approved awards: %w", err)
	}
	return awards, nil
}

// ListSubmissions returns manual submissions matching the filter, oldest first.
func (r *BadgeRepository) ListSubmissions(ctx context.Context, filter models.BadgeSubmissionFilter) ([]models.BadgeAward, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 3)
	builder.WriteString(`SELECT ` + badgeAwardColumns + ` FROM badge_awards WHERE source = 'MANUAL'`)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		builder.WriteString(fmt.Sprintf(" AND approval_status = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		builder.WriteString(fmt.Sprintf(" AND user_id = $%d", len(args)))
	}
	if filter.BadgeID != "" {
		args = append(args, filter.BadgeID)
		builder.WriteString(fmt.Sprintf(" AND badge_id = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY submitted_at ASC, id ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var awards []models.BadgeAward
	if err := r.db.SelectContext(ctx, &awards, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list badge submissions: %w", err)
	}
	return awards, nil
}

// CountApproved returns the number of approved awards held by the user.
func (r *BadgeRepository) CountApproved(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM badge_awards WHERE user_id = $1 AND approval_status = 'APPROVED'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count approved awards: %w", err)
	}
	return count, nil
}
