// Package planstore provides the SQLite-backed plan and scenario catalog.
package planstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lockstep-ops/lockstep/internal/platform/errors"
	sqlitemigrate "github.com/lockstep-ops/lockstep/internal/platform/storage/sqlitemigrate"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/domain"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/planstore/migrations"
)

// Store persists plan templates and scenarios in SQLite.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time
}

// Open opens a SQLite plan catalog and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, clock: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// PutPlan upserts one plan aggregate: the plan row and a full replacement of
// its tasks, dependency edges, and stakeholder roster. The dependency graph
// is validated before any row is written.
func (s *Store) PutPlan(ctx context.Context, plan domain.Plan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	planID := strings.TrimSpace(plan.ID)
	if planID == "" {
		return errors.New(errors.CodePlanEmptyID, "plan id is required")
	}
	if len(plan.Tasks) == 0 {
		return errors.New(errors.CodePlanNoTasks, "plan declares no tasks")
	}
	templateIDs := make([]string, 0, len(plan.Tasks))
	for _, task := range plan.Tasks {
		templateIDs = append(templateIDs, task.ID)
	}
	if err := domain.ValidateAcyclic(templateIDs, plan.Dependencies); err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := toMillis(s.clock())
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO plans (id, name, threshold, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   threshold = excluded.threshold,
		   updated_at = excluded.updated_at`,
		planID,
		plan.Name,
		plan.Threshold,
		now,
		now,
	); err != nil {
		return fmt.Errorf("put plan: %w", err)
	}

	for _, table := range []string{"plan_tasks", "plan_dependencies", "plan_stakeholders"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE plan_id = ?`, planID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, task := range plan.Tasks {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO plan_tasks (plan_id, id, title, description, assignee_role, position)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			planID,
			task.ID,
			task.Title,
			task.Description,
			task.AssigneeRole,
			task.Position,
		); err != nil {
			return fmt.Errorf("put plan task: %w", err)
		}
	}
	for _, edge := range plan.Dependencies {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO plan_dependencies (plan_id, task_id, depends_on)
			 VALUES (?, ?, ?)`,
			planID,
			edge.TaskID,
			edge.DependsOn,
		); err != nil {
			return fmt.Errorf("put plan dependency: %w", err)
		}
	}
	for _, stakeholder := range plan.Stakeholders {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO plan_stakeholders (plan_id, id, name, contact)
			 VALUES (?, ?, ?, ?)`,
			planID,
			stakeholder.ID,
			stakeholder.Name,
			stakeholder.Contact,
		); err != nil {
			return fmt.Errorf("put plan stakeholder: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetPlan returns one plan aggregate with its tasks, dependency edges, and
// stakeholder roster.
func (s *Store) GetPlan(ctx context.Context, planID string) (domain.Plan, error) {
	if err := ctx.Err(); err != nil {
		return domain.Plan{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Plan{}, fmt.Errorf("storage is not configured")
	}
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return domain.Plan{}, errors.New(errors.CodePlanEmptyID, "plan id is required")
	}

	var plan domain.Plan
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, threshold FROM plans WHERE id = ?`,
		planID,
	).Scan(&plan.ID, &plan.Name, &plan.Threshold)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return domain.Plan{}, errors.New(errors.CodeNotFound, "plan not found")
		}
		return domain.Plan{}, fmt.Errorf("get plan: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, title, description, assignee_role, position
		 FROM plan_tasks
		 WHERE plan_id = ?
		 ORDER BY position ASC, id ASC`,
		planID,
	)
	if err != nil {
		return domain.Plan{}, fmt.Errorf("list plan tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		task := domain.TaskTemplate{PlanID: planID}
		if err := rows.Scan(&task.ID, &task.Title, &task.Description, &task.AssigneeRole, &task.Position); err != nil {
			return domain.Plan{}, fmt.Errorf("list plan tasks: %w", err)
		}
		plan.Tasks = append(plan.Tasks, task)
	}
	if err := rows.Err(); err != nil {
		return domain.Plan{}, fmt.Errorf("list plan tasks: %w", err)
	}

	edgeRows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT task_id, depends_on
		 FROM plan_dependencies
		 WHERE plan_id = ?
		 ORDER BY task_id ASC, depends_on ASC`,
		planID,
	)
	if err != nil {
		return domain.Plan{}, fmt.Errorf("list plan dependencies: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var edge domain.DependencyEdge
		if err := edgeRows.Scan(&edge.TaskID, &edge.DependsOn); err != nil {
			return domain.Plan{}, fmt.Errorf("list plan dependencies: %w", err)
		}
		plan.Dependencies = append(plan.Dependencies, edge)
	}
	if err := edgeRows.Err(); err != nil {
		return domain.Plan{}, fmt.Errorf("list plan dependencies: %w", err)
	}

	stakeholderRows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, contact
		 FROM plan_stakeholders
		 WHERE plan_id = ?
		 ORDER BY id ASC`,
		planID,
	)
	if err != nil {
		return domain.Plan{}, fmt.Errorf("list plan stakeholders: %w", err)
	}
	defer stakeholderRows.Close()
	for stakeholderRows.Next() {
		var stakeholder domain.Stakeholder
		if err := stakeholderRows.Scan(&stakeholder.ID, &stakeholder.Name, &stakeholder.Contact); err != nil {
			return domain.Plan{}, fmt.Errorf("list plan stakeholders: %w", err)
		}
		plan.Stakeholders = append(plan.Stakeholders, stakeholder)
	}
	if err := stakeholderRows.Err(); err != nil {
		return domain.Plan{}, fmt.Errorf("list plan stakeholders: %w", err)
	}

	return plan, nil
}

// ListPlans returns plan headers without their aggregates, ordered by id.
func (s *Store) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, threshold FROM plans ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		var plan domain.Plan
		if err := rows.Scan(&plan.ID, &plan.Name, &plan.Threshold); err != nil {
			return nil, fmt.Errorf("list plans: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// PutScenario upserts one scenario.
func (s *Store) PutScenario(ctx context.Context, scenario domain.Scenario) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	scenarioID := strings.TrimSpace(scenario.ID)
	if scenarioID == "" {
		return fmt.Errorf("scenario id is required")
	}

	now := toMillis(s.clock())
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO scenarios (id, name, severity, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   severity = excluded.severity,
		   description = excluded.description,
		   updated_at = excluded.updated_at`,
		scenarioID,
		scenario.Name,
		scenario.Severity,
		scenario.Description,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("put scenario: %w", err)
	}
	return nil
}

// GetScenario returns one scenario by id.
func (s *Store) GetScenario(ctx context.Context, scenarioID string) (domain.Scenario, error) {
	if err := ctx.Err(); err != nil {
		return domain.Scenario{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Scenario{}, fmt.Errorf("storage is not configured")
	}
	scenarioID = strings.TrimSpace(scenarioID)
	if scenarioID == "" {
		return domain.Scenario{}, fmt.Errorf("scenario id is required")
	}

	var scenario domain.Scenario
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, severity, description FROM scenarios WHERE id = ?`,
		scenarioID,
	).Scan(&scenario.ID, &scenario.Name, &scenario.Severity, &scenario.Description)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return domain.Scenario{}, errors.New(errors.CodeNotFound, "scenario not found")
		}
		return domain.Scenario{}, fmt.Errorf("get scenario: %w", err)
	}
	return scenario, nil
}

var _ domain.PlanStore = (*Store)(nil)
