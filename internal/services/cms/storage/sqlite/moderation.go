package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/folio/internal/services/cms/domain"
)

// CreateRevision stores a page revision.
func (s *Store) CreateRevision(ctx context.Context, revision domain.Revision) (domain.Revision, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Revision{}, err
	}
	return insertRevision(ctx, s.sqlDB, revision)
}

func insertRevision(ctx context.Context, q dbtx, revision domain.Revision) (domain.Revision, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO revisions (page_id, user_id, submitted, created_at) VALUES (?, ?, ?, ?)`,
		revision.PageID,
		toNullID(revision.UserID),
		boolToInt(revision.Submitted),
		toMillis(revision.CreatedAt),
	)
	if err != nil {
		return domain.Revision{}, fmt.Errorf("create revision: %w", err)
	}
	if revision.ID, err = res.LastInsertId(); err != nil {
		return domain.Revision{}, fmt.Errorf("create revision id: %w", err)
	}
	return revision, nil
}

// GetRevision returns one revision by id.
func (s *Store) GetRevision(ctx context.Context, id int64) (domain.Revision, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Revision{}, err
	}
	var (
		revision  domain.Revision
		userID    sql.NullInt64
		submitted int
		createdAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, page_id, user_id, submitted, created_at FROM revisions WHERE id = ?`, id,
	).Scan(&revision.ID, &revision.PageID, &userID, &submitted, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Revision{}, domain.NotFoundf("revision %d not found", id)
		}
		return domain.Revision{}, fmt.Errorf("get revision: %w", err)
	}
	revision.UserID = fromNullID(userID)
	revision.Submitted = submitted != 0
	revision.CreatedAt = fromMillis(createdAt)
	return revision, nil
}

// CreateWorkflow stores a workflow.
func (s *Store) CreateWorkflow(ctx context.Context, workflow domain.Workflow) (domain.Workflow, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Workflow{}, err
	}
	workflow.Name = strings.TrimSpace(workflow.Name)
	if workflow.Name == "" {
		return domain.Workflow{}, fmt.Errorf("workflow name is required")
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO workflows (name, active) VALUES (?, ?)`,
		workflow.Name, boolToInt(workflow.Active),
	)
	if err != nil {
		return domain.Workflow{}, fmt.Errorf("create workflow: %w", err)
	}
	if workflow.ID, err = res.LastInsertId(); err != nil {
		return domain.Workflow{}, fmt.Errorf("create workflow id: %w", err)
	}
	return workflow, nil
}

func scanWorkflow(row rowScanner) (domain.Workflow, error) {
	var workflow domain.Workflow
	var active int
	if err := row.Scan(&workflow.ID, &workflow.Name, &active); err != nil {
		return domain.Workflow{}, err
	}
	workflow.Active = active != 0
	return workflow, nil
}

// GetWorkflow returns one workflow by id.
func (s *Store) GetWorkflow(ctx context.Context, id int64) (domain.Workflow, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Workflow{}, err
	}
	workflow, err := scanWorkflow(s.sqlDB.QueryRowContext(ctx, `SELECT id, name, active FROM workflows WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Workflow{}, domain.NotFoundf("workflow %d not found", id)
		}
		return domain.Workflow{}, fmt.Errorf("get workflow: %w", err)
	}
	return workflow, nil
}

// CreateTask stores a task and its approving groups.
func (s *Store) CreateTask(ctx context.Context, task domain.Task) (domain.Task, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Task{}, err
	}
	task.Name = strings.TrimSpace(task.Name)
	if task.Name == "" {
		return domain.Task{}, fmt.Errorf("task name is required")
	}
	if task.Kind == "" {
		task.Kind = domain.TaskKindGroupApproval
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (name, kind, active) VALUES (?, ?, ?)`,
			task.Name, task.Kind, boolToInt(task.Active),
		)
		if err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		if task.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("create task id: %w", err)
		}
		for _, groupID := range task.GroupIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO task_groups (task_id, group_id) VALUES (?, ?)`,
				task.ID, groupID,
			); err != nil {
				return fmt.Errorf("create task group: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// GetTask returns one task with its group ids.
func (s *Store) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Task{}, err
	}
	var task domain.Task
	var active int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT id, name, kind, active FROM tasks WHERE id = ?`, id).
		Scan(&task.ID, &task.Name, &task.Kind, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, domain.NotFoundf("task %d not found", id)
		}
		return domain.Task{}, fmt.Errorf("get task: %w", err)
	}
	task.Active = active != 0
	if task.GroupIDs, err = s.taskGroupIDs(ctx, task.ID); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

func (s *Store) taskGroupIDs(ctx context.Context, taskID int64) ([]int64, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT group_id FROM task_groups WHERE task_id = ? ORDER BY group_id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list task groups: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list task groups: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list task groups: %w", err)
	}
	return ids, nil
}

// AddWorkflowTask appends taskID to the end of the workflow.
func (s *Store) AddWorkflowTask(ctx context.Context, workflowID int64, taskID int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO workflow_tasks (workflow_id, task_id, sort_order)
		 SELECT ?, ?, COALESCE(MAX(sort_order) + 1, 0) FROM workflow_tasks WHERE workflow_id = ?`,
		workflowID, taskID, workflowID,
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("task %d is already in workflow %d", taskID, workflowID)
		}
		return fmt.Errorf("add workflow task: %w", err)
	}
	return nil
}

// ListWorkflowTasks returns the workflow's tasks in order.
func (s *Store) ListWorkflowTasks(ctx context.Context, workflowID int64) ([]domain.Task, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT t.id, t.name, t.kind, t.active
		   FROM workflow_tasks wt
		   JOIN tasks t ON t.id = wt.task_id
		  WHERE wt.workflow_id = ?
		  ORDER BY wt.sort_order`,
		workflowID,
	)
	if err != nil {
		return nil, fmt.Errorf("list workflow tasks: %w", err)
	}
	var tasks []domain.Task
	for rows.Next() {
		var task domain.Task
		var active int
		if err := rows.Scan(&task.ID, &task.Name, &task.Kind, &active); err != nil {
			rows.Close()
			return nil, fmt.Errorf("list workflow tasks: %w", err)
		}
		task.Active = active != 0
		tasks = append(tasks, task)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("list workflow tasks: %w", err)
	}
	for i := range tasks {
		if tasks[i].GroupIDs, err = s.taskGroupIDs(ctx, tasks[i].ID); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// AssignWorkflow makes workflowID the workflow of the page subtree.
func (s *Store) AssignWorkflow(ctx context.Context, pageID int64, workflowID int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO workflow_pages (page_id, workflow_id) VALUES (?, ?)
		 ON CONFLICT(page_id) DO UPDATE SET workflow_id = excluded.workflow_id`,
		pageID, workflowID,
	); err != nil {
		return fmt.Errorf("assign workflow: %w", err)
	}
	return nil
}

// FindWorkflowForPage returns the active workflow assigned to the page or
// its nearest ancestor.
func (s *Store) FindWorkflowForPage(ctx context.Context, pageID int64) (domain.Workflow, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Workflow{}, err
	}
	workflow, err := scanWorkflow(s.sqlDB.QueryRowContext(ctx,
		ancestorsCTE+`
SELECT w.id, w.name, w.active
  FROM chain c
  JOIN pages p ON p.id = c.id
  JOIN workflow_pages wp ON wp.page_id = c.id
  JOIN workflows w ON w.id = wp.workflow_id
 WHERE w.active = 1
 ORDER BY p.depth DESC
 LIMIT 1`,
		pageID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Workflow{}, domain.NotFoundf("no workflow for page %d", pageID)
		}
		return domain.Workflow{}, fmt.Errorf("find workflow for page: %w", err)
	}
	return workflow, nil
}

const workflowStateColumns = `id, page_id, workflow_id, status, requested_by_id, current_task_state_id, created_at`

func scanWorkflowState(row rowScanner) (domain.WorkflowState, error) {
	var (
		state       domain.WorkflowState
		requestedBy sql.NullInt64
		current     sql.NullInt64
		createdAt   int64
	)
	if err := row.Scan(&state.ID, &state.PageID, &state.WorkflowID, &state.Status, &requestedBy, &current, &createdAt); err != nil {
		return domain.WorkflowState{}, err
	}
	state.RequestedByID = fromNullID(requestedBy)
	state.CurrentTaskStateID = fromNullID(current)
	state.CreatedAt = fromMillis(createdAt)
	return state, nil
}

// GetWorkflowState returns one workflow state by id.
func (s *Store) GetWorkflowState(ctx context.Context, id int64) (domain.WorkflowState, error) {
	if err := s.ready(ctx); err != nil {
		return domain.WorkflowState{}, err
	}
	state, err := scanWorkflowState(s.sqlDB.QueryRowContext(ctx, `SELECT `+workflowStateColumns+` FROM workflow_states WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WorkflowState{}, domain.NotFoundf("workflow state %d not found", id)
		}
		return domain.WorkflowState{}, fmt.Errorf("get workflow state: %w", err)
	}
	return state, nil
}

// FindInProgressWorkflowState returns the page's in-progress workflow state.
func (s *Store) FindInProgressWorkflowState(ctx context.Context, pageID int64) (domain.WorkflowState, error) {
	if err := s.ready(ctx); err != nil {
		return domain.WorkflowState{}, err
	}
	state, err := scanWorkflowState(s.sqlDB.QueryRowContext(ctx,
		`SELECT `+workflowStateColumns+` FROM workflow_states WHERE page_id = ? AND status = ?`,
		pageID, domain.WorkflowStatusInProgress,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WorkflowState{}, domain.NotFoundf("no workflow in progress for page %d", pageID)
		}
		return domain.WorkflowState{}, fmt.Errorf("find workflow state: %w", err)
	}
	return state, nil
}

// StartWorkflow stores the submitted revision, the in-progress workflow
// state and its first task state in one transaction. A page has at most one
// in-progress state.
func (s *Store) StartWorkflow(ctx context.Context, start domain.WorkflowStart) (domain.WorkflowStart, error) {
	if err := s.ready(ctx); err != nil {
		return domain.WorkflowStart{}, err
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if start.Revision, err = insertRevision(ctx, tx, start.Revision); err != nil {
			return err
		}
		if start.State, err = insertWorkflowState(ctx, tx, start.State); err != nil {
			return err
		}
		start.TaskState.WorkflowStateID = start.State.ID
		start.TaskState.RevisionID = start.Revision.ID
		if start.TaskState, err = insertTaskState(ctx, tx, start.TaskState); err != nil {
			return err
		}
		start.State.CurrentTaskStateID = &start.TaskState.ID
		if _, err := tx.ExecContext(ctx,
			`UPDATE workflow_states SET current_task_state_id = ? WHERE id = ?`,
			start.TaskState.ID, start.State.ID,
		); err != nil {
			return fmt.Errorf("set current task state: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.WorkflowStart{}, err
	}
	return start, nil
}

func insertWorkflowState(ctx context.Context, q dbtx, state domain.WorkflowState) (domain.WorkflowState, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO workflow_states (page_id, workflow_id, status, requested_by_id, current_task_state_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		state.PageID,
		state.WorkflowID,
		state.Status,
		toNullID(state.RequestedByID),
		toNullID(state.CurrentTaskStateID),
		toMillis(state.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WorkflowState{}, fmt.Errorf("page %d: %w", state.PageID, domain.ErrWorkflowInProgress)
		}
		return domain.WorkflowState{}, fmt.Errorf("create workflow state: %w", err)
	}
	if state.ID, err = res.LastInsertId(); err != nil {
		return domain.WorkflowState{}, fmt.Errorf("create workflow state id: %w", err)
	}
	return state, nil
}

// UpdateWorkflowState saves status and current task of a workflow state.
func (s *Store) UpdateWorkflowState(ctx context.Context, state domain.WorkflowState) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE workflow_states SET status = ?, current_task_state_id = ? WHERE id = ?`,
		state.Status, toNullID(state.CurrentTaskStateID), state.ID,
	)
	if err != nil {
		return fmt.Errorf("update workflow state: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundf("workflow state %d not found", state.ID)
	}
	return nil
}

// GetTaskState returns one task state by id.
func (s *Store) GetTaskState(ctx context.Context, id int64) (domain.TaskState, error) {
	if err := s.ready(ctx); err != nil {
		return domain.TaskState{}, err
	}
	var (
		state      domain.TaskState
		startedAt  int64
		finishedAt sql.NullInt64
		finishedBy sql.NullInt64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, workflow_state_id, task_id, revision_id, status, comment, started_at, finished_at, finished_by_id
		   FROM task_states WHERE id = ?`,
		id,
	).Scan(
		&state.ID,
		&state.WorkflowStateID,
		&state.TaskID,
		&state.RevisionID,
		&state.Status,
		&state.Comment,
		&startedAt,
		&finishedAt,
		&finishedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TaskState{}, domain.NotFoundf("task state %d not found", id)
		}
		return domain.TaskState{}, fmt.Errorf("get task state: %w", err)
	}
	state.StartedAt = fromMillis(startedAt)
	state.FinishedAt = fromNullMillis(finishedAt)
	state.FinishedByID = fromNullID(finishedBy)
	return state, nil
}

// CreateTaskState stores a task state.
func (s *Store) CreateTaskState(ctx context.Context, state domain.TaskState) (domain.TaskState, error) {
	if err := s.ready(ctx); err != nil {
		return domain.TaskState{}, err
	}
	return insertTaskState(ctx, s.sqlDB, state)
}

func insertTaskState(ctx context.Context, q dbtx, state domain.TaskState) (domain.TaskState, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO task_states (workflow_state_id, task_id, revision_id, status, comment, started_at, finished_at, finished_by_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		state.WorkflowStateID,
		state.TaskID,
		state.RevisionID,
		state.Status,
		state.Comment,
		toMillis(state.StartedAt),
		toNullMillis(state.FinishedAt),
		toNullID(state.FinishedByID),
	)
	if err != nil {
		return domain.TaskState{}, fmt.Errorf("create task state: %w", err)
	}
	if state.ID, err = res.LastInsertId(); err != nil {
		return domain.TaskState{}, fmt.Errorf("create task state id: %w", err)
	}
	return state, nil
}

// UpdateTaskState saves the outcome columns of a task state.
func (s *Store) UpdateTaskState(ctx context.Context, state domain.TaskState) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE task_states SET status = ?, comment = ?, finished_at = ?, finished_by_id = ? WHERE id = ?`,
		state.Status, state.Comment, toNullMillis(state.FinishedAt), toNullID(state.FinishedByID), state.ID,
	)
	if err != nil {
		return fmt.Errorf("update task state: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundf("task state %d not found", state.ID)
	}
	return nil
}
