package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lockstep-ops/lockstep/internal/platform/errors"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/domain"
)

// CreateInstance persists one instance with its task set and dependency edges
// in a single transaction.
func (s *Store) CreateInstance(ctx context.Context, instance domain.ExecutionInstance, tasks []domain.ExecutionTask, edges []domain.DependencyEdge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(instance.ID) == "" {
		return fmt.Errorf("instance id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertInstance(ctx, tx, instance); err != nil {
		return err
	}
	for _, task := range tasks {
		if err := insertTask(ctx, tx, task); err != nil {
			return err
		}
	}
	for _, edge := range edges {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO task_dependencies (instance_id, task_id, depends_on)
			 VALUES (?, ?, ?)`,
			instance.ID,
			edge.TaskID,
			edge.DependsOn,
		); err != nil {
			return fmt.Errorf("insert dependency edge: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertInstance(ctx context.Context, execer sqlExecer, instance domain.ExecutionInstance) error {
	_, err := execer.ExecContext(
		ctx,
		`INSERT INTO execution_instances (
		    id, plan_id, scenario_id, organization_id, triggered_by,
		    status, current_phase, threshold, total_stakeholders,
		    started_at, completed_at, execution_minutes, outcome,
		    created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		instance.ID,
		instance.PlanID,
		instance.ScenarioID,
		instance.OrganizationID,
		instance.TriggeredBy,
		string(instance.Status),
		instance.CurrentPhase,
		instance.Threshold,
		instance.TotalStakeholders,
		toMillis(instance.StartedAt),
		nullMillis(instance.CompletedAt),
		nullFloat(instance.ExecutionMinutes),
		string(instance.Outcome),
		toMillis(instance.CreatedAt),
		toMillis(instance.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert instance: %w", err)
	}
	return nil
}

// GetInstance returns one execution instance by id.
func (s *Store) GetInstance(ctx context.Context, instanceID string) (domain.ExecutionInstance, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExecutionInstance{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.ExecutionInstance{}, fmt.Errorf("storage is not configured")
	}
	instanceID = strings.TrimSpace(instanceID)
	if instanceID == "" {
		return domain.ExecutionInstance{}, fmt.Errorf("instance id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, plan_id, scenario_id, organization_id, triggered_by,
		        status, current_phase, threshold, total_stakeholders,
		        started_at, completed_at, execution_minutes, outcome,
		        created_at, updated_at
		 FROM execution_instances
		 WHERE id = ?`,
		instanceID,
	)
	instance, err := scanInstance(row.Scan)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return domain.ExecutionInstance{}, errors.New(errors.CodeNotFound, "instance not found")
		}
		return domain.ExecutionInstance{}, fmt.Errorf("get instance: %w", err)
	}
	return instance, nil
}

func scanInstance(scan func(dest ...any) error) (domain.ExecutionInstance, error) {
	var (
		instance         domain.ExecutionInstance
		status           string
		outcome          string
		startedAt        int64
		completedAt      sql.NullInt64
		executionMinutes sql.NullFloat64
		createdAt        int64
		updatedAt        int64
	)
	if err := scan(
		&instance.ID,
		&instance.PlanID,
		&instance.ScenarioID,
		&instance.OrganizationID,
		&instance.TriggeredBy,
		&status,
		&instance.CurrentPhase,
		&instance.Threshold,
		&instance.TotalStakeholders,
		&startedAt,
		&completedAt,
		&executionMinutes,
		&outcome,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.ExecutionInstance{}, err
	}
	instance.Status = domain.InstanceStatus(status)
	instance.Outcome = domain.InstanceOutcome(outcome)
	instance.StartedAt = fromMillis(startedAt)
	instance.CompletedAt = millisPtr(completedAt)
	instance.ExecutionMinutes = floatPtr(executionMinutes)
	instance.CreatedAt = fromMillis(createdAt)
	instance.UpdatedAt = fromMillis(updatedAt)
	return instance, nil
}

// UpdateInstancePhase advances the reported phase label without touching the
// rest of the row.
func (s *Store) UpdateInstancePhase(ctx context.Context, instanceID, phase string, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	instanceID = strings.TrimSpace(instanceID)
	if instanceID == "" {
		return fmt.Errorf("instance id is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE execution_instances
		 SET current_phase = ?, updated_at = ?
		 WHERE id = ?`,
		phase,
		toMillis(updatedAt),
		instanceID,
	)
	if err != nil {
		return fmt.Errorf("update instance phase: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update instance phase: %w", err)
	}
	if affected == 0 {
		return errors.New(errors.CodeNotFound, "instance not found")
	}
	return nil
}

// CompleteByThreshold closes a still-running instance and skips its open
// tasks in one transaction. The guard on status makes the transition fire at
// most once across concurrent callers.
func (s *Store) CompleteByThreshold(ctx context.Context, completion domain.ThresholdCompletion) (bool, []string, error) {
	if err := ctx.Err(); err != nil {
		return false, nil, err
	}
	if s == nil || s.sqlDB == nil {
		return false, nil, fmt.Errorf("storage is not configured")
	}
	instanceID := strings.TrimSpace(completion.InstanceID)
	if instanceID == "" {
		return false, nil, fmt.Errorf("instance id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return false, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	completedAt := toMillis(completion.CompletedAt)
	result, err := tx.ExecContext(
		ctx,
		`UPDATE execution_instances
		 SET status = ?, current_phase = ?, completed_at = ?,
		     execution_minutes = ?, outcome = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(domain.InstanceCompleted),
		completion.Phase,
		completedAt,
		completion.ExecutionMinutes,
		string(completion.Outcome),
		completedAt,
		instanceID,
		string(domain.InstanceRunning),
	)
	if err != nil {
		return false, nil, fmt.Errorf("complete instance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, nil, fmt.Errorf("complete instance: %w", err)
	}
	if affected == 0 {
		return false, nil, nil
	}

	rows, err := tx.QueryContext(
		ctx,
		`SELECT id FROM execution_tasks
		 WHERE instance_id = ? AND status NOT IN (?, ?)`,
		instanceID,
		string(domain.TaskCompleted),
		string(domain.TaskSkipped),
	)
	if err != nil {
		return false, nil, fmt.Errorf("list open tasks: %w", err)
	}
	var skipped []string
	for rows.Next() {
		var taskID string
		if err := rows.Scan(&taskID); err != nil {
			_ = rows.Close()
			return false, nil, fmt.Errorf("list open tasks: %w", err)
		}
		skipped = append(skipped, taskID)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return false, nil, fmt.Errorf("list open tasks: %w", err)
	}
	_ = rows.Close()

	if len(skipped) > 0 {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE execution_tasks
			 SET status = ?, outcome = ?, completed_at = ?, updated_at = ?
			 WHERE instance_id = ? AND status NOT IN (?, ?)`,
			string(domain.TaskSkipped),
			completion.SkipOutcome,
			completedAt,
			completedAt,
			instanceID,
			string(domain.TaskCompleted),
			string(domain.TaskSkipped),
		); err != nil {
			return false, nil, fmt.Errorf("skip open tasks: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, nil, fmt.Errorf("commit tx: %w", err)
	}
	sort.Strings(skipped)
	return true, skipped, nil
}
