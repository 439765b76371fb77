package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/lockstep-ops/lockstep/internal/platform/errors"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/domain"
)

func insertTask(ctx context.Context, execer sqlExecer, task domain.ExecutionTask) error {
	_, err := execer.ExecContext(
		ctx,
		`INSERT INTO execution_tasks (
		    id, instance_id, template_task_id, title, assigned_to,
		    status, position, started_at, completed_at, duration_minutes,
		    outcome, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.InstanceID,
		task.TemplateTaskID,
		task.Title,
		task.AssignedTo,
		string(task.Status),
		task.Position,
		nullMillis(task.StartedAt),
		nullMillis(task.CompletedAt),
		nullFloat(task.DurationMinutes),
		task.Outcome,
		toMillis(task.CreatedAt),
		toMillis(task.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func writeTask(ctx context.Context, execer sqlExecer, task domain.ExecutionTask) error {
	result, err := execer.ExecContext(
		ctx,
		`UPDATE execution_tasks
		 SET status = ?, started_at = ?, completed_at = ?,
		     duration_minutes = ?, outcome = ?, updated_at = ?
		 WHERE id = ? AND instance_id = ?`,
		string(task.Status),
		nullMillis(task.StartedAt),
		nullMillis(task.CompletedAt),
		nullFloat(task.DurationMinutes),
		task.Outcome,
		toMillis(task.UpdatedAt),
		task.ID,
		task.InstanceID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if affected == 0 {
		return errors.New(errors.CodeNotFound, "task not found")
	}
	return nil
}

// UpdateTask writes one task row.
func (s *Store) UpdateTask(ctx context.Context, task domain.ExecutionTask) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(task.ID) == "" {
		return fmt.Errorf("task id is required")
	}
	if !domain.ValidTaskStatus(task.Status) {
		return errors.New(errors.CodeTaskInvalidStatus, "task status is not storable")
	}
	return writeTask(ctx, s.sqlDB, task)
}

// ApplyTaskTransition writes a task mutation, its readiness promotions, and
// an optional instance completion atomically.
func (s *Store) ApplyTaskTransition(ctx context.Context, transition domain.TaskTransition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(transition.InstanceID) == "" {
		return fmt.Errorf("instance id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := writeTask(ctx, tx, transition.Task); err != nil {
		return err
	}
	for _, promoted := range transition.Promoted {
		if err := writeTask(ctx, tx, promoted); err != nil {
			return err
		}
	}
	if transition.Instance != nil {
		instance := *transition.Instance
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE execution_instances
			 SET status = ?, current_phase = ?, completed_at = ?,
			     execution_minutes = ?, outcome = ?, updated_at = ?
			 WHERE id = ?`,
			string(instance.Status),
			instance.CurrentPhase,
			nullMillis(instance.CompletedAt),
			nullFloat(instance.ExecutionMinutes),
			string(instance.Outcome),
			toMillis(instance.UpdatedAt),
			instance.ID,
		); err != nil {
			return fmt.Errorf("update instance: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetTask returns one task scoped to its instance.
func (s *Store) GetTask(ctx context.Context, instanceID, taskID string) (domain.ExecutionTask, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExecutionTask{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.ExecutionTask{}, fmt.Errorf("storage is not configured")
	}
	instanceID = strings.TrimSpace(instanceID)
	taskID = strings.TrimSpace(taskID)
	if instanceID == "" {
		return domain.ExecutionTask{}, fmt.Errorf("instance id is required")
	}
	if taskID == "" {
		return domain.ExecutionTask{}, fmt.Errorf("task id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, instance_id, template_task_id, title, assigned_to,
		        status, position, started_at, completed_at, duration_minutes,
		        outcome, created_at, updated_at
		 FROM execution_tasks
		 WHERE instance_id = ? AND id = ?`,
		instanceID,
		taskID,
	)
	task, err := scanTask(row.Scan)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return domain.ExecutionTask{}, errors.New(errors.CodeNotFound, "task not found")
		}
		return domain.ExecutionTask{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ListTasks returns every task of an instance ordered by plan position.
func (s *Store) ListTasks(ctx context.Context, instanceID string) ([]domain.ExecutionTask, error) {
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
		`SELECT id, instance_id, template_task_id, title, assigned_to,
		        status, position, started_at, completed_at, duration_minutes,
		        outcome, created_at, updated_at
		 FROM execution_tasks
		 WHERE instance_id = ?
		 ORDER BY position ASC, id ASC`,
		instanceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ExecutionTask
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListDependencies returns the materialized dependency edges of an instance.
func (s *Store) ListDependencies(ctx context.Context, instanceID string) ([]domain.DependencyEdge, error) {
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
		`SELECT task_id, depends_on
		 FROM task_dependencies
		 WHERE instance_id = ?
		 ORDER BY task_id ASC, depends_on ASC`,
		instanceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	defer rows.Close()

	var edges []domain.DependencyEdge
	for rows.Next() {
		var edge domain.DependencyEdge
		if err := rows.Scan(&edge.TaskID, &edge.DependsOn); err != nil {
			return nil, fmt.Errorf("list dependencies: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	return edges, nil
}

func scanTask(scan func(dest ...any) error) (domain.ExecutionTask, error) {
	var (
		task            domain.ExecutionTask
		status          string
		startedAt       sql.NullInt64
		completedAt     sql.NullInt64
		durationMinutes sql.NullFloat64
		createdAt       int64
		updatedAt       int64
	)
	if err := scan(
		&task.ID,
		&task.InstanceID,
		&task.TemplateTaskID,
		&task.Title,
		&task.AssignedTo,
		&status,
		&task.Position,
		&startedAt,
		&completedAt,
		&durationMinutes,
		&task.Outcome,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.ExecutionTask{}, err
	}
	task.Status = domain.TaskStatus(status)
	task.StartedAt = millisPtr(startedAt)
	task.CompletedAt = millisPtr(completedAt)
	task.DurationMinutes = floatPtr(durationMinutes)
	task.CreatedAt = fromMillis(createdAt)
	task.UpdatedAt = fromMillis(updatedAt)
	return task, nil
}
