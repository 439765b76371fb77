package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/lockstep-ops/lockstep/internal/services/coordination/domain"
)

// PutAcknowledgment stores one acknowledgment, deduplicating on the
// (instance, stakeholder) primary key. It reports whether a row was newly
// inserted.
func (s *Store) PutAcknowledgment(ctx context.Context, ack domain.Acknowledgment) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	instanceID := strings.TrimSpace(ack.InstanceID)
	stakeholderID := strings.TrimSpace(ack.StakeholderID)
	if instanceID == "" {
		return false, fmt.Errorf("instance id is required")
	}
	if stakeholderID == "" {
		return false, fmt.Errorf("stakeholder id is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO stakeholder_acknowledgments
		    (instance_id, stakeholder_id, acknowledged_at, response_minutes)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(instance_id, stakeholder_id) DO NOTHING`,
		instanceID,
		stakeholderID,
		toMillis(ack.AcknowledgedAt),
		ack.ResponseMinutes,
	)
	if err != nil {
		return false, fmt.Errorf("put acknowledgment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("put acknowledgment: %w", err)
	}
	return affected > 0, nil
}

// CountAcknowledgments returns the number of distinct acknowledging
// stakeholders for an instance.
func (s *Store) CountAcknowledgments(ctx context.Context, instanceID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	instanceID = strings.TrimSpace(instanceID)
	if instanceID == "" {
		return 0, fmt.Errorf("instance id is required")
	}

	var count int
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM stakeholder_acknowledgments WHERE instance_id = ?`,
		instanceID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count acknowledgments: %w", err)
	}
	return count, nil
}

// ListAcknowledgments returns an instance's acknowledgments in arrival order.
func (s *Store) ListAcknowledgments(ctx context.Context, instanceID string) ([]domain.Acknowledgment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	instanceID = strings.TrimSpace(instanceID)
	if instanceID == "" {
		return nil, fmt.Errorf("instance id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT instance_id, stakeholder_id, acknowledged_at, response_minutes
		 FROM stakeholder_acknowledgments
		 WHERE instance_id = ?
		 ORDER BY acknowledged_at ASC, stakeholder_id ASC`,
		instanceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list acknowledgments: %w", err)
	}
	defer rows.Close()

	var acks []domain.Acknowledgment
	for rows.Next() {
		var (
			ack            domain.Acknowledgment
			acknowledgedAt int64
		)
		if err := rows.Scan(
			&ack.InstanceID,
			&ack.StakeholderID,
			&acknowledgedAt,
			&ack.ResponseMinutes,
		); err != nil {
			return nil, fmt.Errorf("list acknowledgments: %w", err)
		}
		ack.AcknowledgedAt = fromMillis(acknowledgedAt)
		acks = append(acks, ack)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list acknowledgments: %w", err)
	}
	return acks, nil
}

var _ domain.Store = (*Store)(nil)
