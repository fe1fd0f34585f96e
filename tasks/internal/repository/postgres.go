package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/database"
	"github.com/JoaoG250/micro-do/tasks/internal/models"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const taskColumns = `
	t.id, t.title, t.description, t.priority, t.status, t.due_date, t.author_id,
	t.created_at, t.updated_at,
	ARRAY(SELECT a.user_id FROM task_assignees a WHERE a.task_id = t.id ORDER BY a.position) AS assignee_ids`

const insertAssignees = `
	INSERT INTO task_assignees (task_id, user_id, position)
	SELECT $1, u.user_id, u.ord
	FROM unnest($2::text[]) WITH ORDINALITY AS u(user_id, ord)
	ON CONFLICT DO NOTHING`

func (r *PostgresRepository) CreateTask(ctx context.Context, task *models.Task) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO tasks (id, title, description, priority, status, due_date, author_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at
		`, task.ID, task.Title, task.Description, task.Priority, task.Status, task.DueDate, task.AuthorID).
			Scan(&task.CreatedAt, &task.UpdatedAt)
		if err != nil {
			return err
		}
		if len(task.AssigneeIDs) > 0 {
			if _, err := tx.Exec(ctx, insertAssignees, task.ID, task.AssigneeIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetTask(ctx context.Context, id string) (*models.Task, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	task, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (r *PostgresRepository) ListTasks(ctx context.Context, filter contracts.TaskFilter, offset, limit int) ([]*models.Task, int, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	where, args := taskFilterClause(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM tasks t`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks t` + where +
		fmt.Sprintf(` ORDER BY t.created_at DESC, t.id DESC OFFSET $%d`, len(args)+1)
	args = append(args, offset)
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func taskFilterClause(f contracts.TaskFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add(`t.status = $%d`, f.Status)
	}
	if f.Priority != "" {
		add(`t.priority = $%d`, f.Priority)
	}
	if f.Search != "" {
		add(`(t.title ILIKE $%[1]d OR t.description ILIKE $%[1]d)`, "%"+escapeLike(f.Search)+"%")
	}
	if f.AssigneeID != "" {
		add(`EXISTS (SELECT 1 FROM task_assignees a WHERE a.task_id = t.id AND a.user_id = $%d)`, f.AssigneeID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresRepository) UpdateTask(ctx context.Context, task *models.Task) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE tasks
			SET title = $2, description = $3, priority = $4, status = $5, due_date = $6, updated_at = NOW()
			WHERE id = $1
			RETURNING author_id, created_at, updated_at
		`, task.ID, task.Title, task.Description, task.Priority, task.Status, task.DueDate).
			Scan(&task.AuthorID, &task.CreatedAt, &task.UpdatedAt)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM task_assignees WHERE task_id = $1`, task.ID); err != nil {
			return err
		}
		if len(task.AssigneeIDs) > 0 {
			if _, err := tx.Exec(ctx, insertAssignees, task.ID, task.AssigneeIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrTaskNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteTask(ctx context.Context, id string) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *PostgresRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	err := r.pool.QueryRow(ctx, `
		INSERT INTO comments (id, task_id, author_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, comment.ID, comment.TaskID, comment.AuthorID, comment.Content).Scan(&comment.CreatedAt)
	if err != nil {
		// Foreign key violation: the task is gone
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListComments(ctx context.Context, taskID string, offset, limit int) ([]*models.Comment, int, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM comments WHERE task_id = $1`, taskID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}

	query := `
		SELECT id, task_id, author_id, content, created_at
		FROM comments
		WHERE task_id = $1
		ORDER BY created_at, id
		OFFSET $2`
	args := []any{taskID, offset}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	comments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Comment, error) {
		var c models.Comment
		err := row.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Content, &c.CreatedAt)
		return &c, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan comments: %w", err)
	}
	return comments, total, nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Priority, &t.Status, &t.DueDate, &t.AuthorID,
		&t.CreatedAt, &t.UpdatedAt, &t.AssigneeIDs,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
