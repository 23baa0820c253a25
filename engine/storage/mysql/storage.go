package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/TincheHK/prefw/engine/storage"
	"github.com/TincheHK/prefw/ident"
	"github.com/TincheHK/prefw/workflow"
)

// RetrieveWorkInstance retrieves a work instance and its task instances.
// See the storage interface type for further docs.
func (s *MySQLStorage) RetrieveWorkInstance(ctx context.Context, id string) (*workflow.Snapshot, error) {
	key, err := ident.PackBytes(id)
	if err != nil {
		return nil, err
	}
	snapshot := &workflow.Snapshot{ID: id}
	var (
		nextTask  []byte
		dataStore []byte
		errMsg    sql.NullString
		errCode   sql.NullInt64
		updatedAt int64
	)
	err = s.db.QueryRowContext(
		ctx,
		`SELECT work_id, description, state, next_task, data_store, error_msg, error_code, updated_at
FROM work_instances WHERE id = ?;`,
		key,
	).Scan(
		&snapshot.WorkID,
		&snapshot.Description,
		&snapshot.State,
		&nextTask,
		&dataStore,
		&errMsg,
		&errCode,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: work instance %s", workflow.ErrNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("selecting work instance: %w", err)
	}
	if len(nextTask) > 0 {
		if snapshot.NextTask, err = ident.UnpackBytes(nextTask); err != nil {
			return nil, fmt.Errorf("next task: %w", err)
		}
	}
	if len(dataStore) > 0 {
		if err = json.Unmarshal(dataStore, &snapshot.DataStore); err != nil {
			return nil, fmt.Errorf("unmarshal data store: %w", err)
		}
	}
	if errMsg.Valid {
		snapshot.LastError = &workflow.TaskError{Message: errMsg.String, Code: int(errCode.Int64)}
	}
	snapshot.Timestamp = time.Unix(updatedAt, 0).UTC()

	snapshot.Tasks, err = s.retrieveTasks(ctx, key, id)
	return snapshot, err
}

func (s *MySQLStorage) retrieveTasks(ctx context.Context, key []byte, id string) ([]*workflow.TaskInstance, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, task_order, name, version, type, endpoint, settings
FROM task_instances WHERE work_instance_id = ? ORDER BY task_order;`,
		key,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting task instances: %w", err)
	}
	defer rows.Close()
	var tasks []*workflow.TaskInstance
	for rows.Next() {
		var (
			taskKey  []byte
			settings []byte
		)
		t := &workflow.TaskInstance{WorkInstanceID: id}
		if err = rows.Scan(&taskKey, &t.Order, &t.Name, &t.Version, &t.Type, &t.Endpoint, &settings); err != nil {
			return nil, fmt.Errorf("scanning task instance: %w", err)
		}
		if t.ID, err = ident.UnpackBytes(taskKey); err != nil {
			return nil, fmt.Errorf("task instance: %w", err)
		}
		if len(settings) > 0 {
			if err = json.Unmarshal(settings, &t.Settings); err != nil {
				return nil, fmt.Errorf("unmarshal settings: %w", err)
			}
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// RetrieveWorkInstanceIDByTask retrieves the owner of a task instance.
// See the storage interface type for further docs.
func (s *MySQLStorage) RetrieveWorkInstanceIDByTask(ctx context.Context, taskID string) (string, error) {
	key, err := ident.PackBytes(taskID)
	if err != nil {
		return "", err
	}
	var owner []byte
	err = s.db.QueryRowContext(
		ctx,
		`SELECT work_instance_id FROM task_instances WHERE id = ?;`,
		key,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: task instance %s", workflow.ErrNotFound, taskID)
	} else if err != nil {
		return "", fmt.Errorf("selecting task instance: %w", err)
	}
	return ident.UnpackBytes(owner)
}

// RetrieveOpenWorkInstanceIDs retrieves Open work instances by their next task type.
// See the storage interface type for further docs.
func (s *MySQLStorage) RetrieveOpenWorkInstanceIDs(ctx context.Context, taskType workflow.TaskType) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT w.id
FROM work_instances w
    INNER JOIN task_instances t
        ON t.id = w.next_task
WHERE w.state = ? AND t.type = ?
ORDER BY w.id;`,
		workflow.StateOpen,
		taskType,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting open work instances: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var key []byte
		if err = rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning work instance: %w", err)
		}
		id, err := ident.UnpackBytes(key)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StoreWorkInstance upserts a work instance and its task instances.
// See the storage interface type for further docs.
func (s *MySQLStorage) StoreWorkInstance(ctx context.Context, snapshot *workflow.Snapshot) (storage.Action, error) {
	snapshot, err := storage.Prepare(snapshot, time.Now())
	if err != nil {
		return "", err
	}
	key, err := ident.PackBytes(snapshot.ID)
	if err != nil {
		return "", err
	}
	var nextTask []byte
	if snapshot.NextTask != "" {
		if nextTask, err = ident.PackBytes(snapshot.NextTask); err != nil {
			return "", err
		}
	}
	dataStore, err := json.Marshal(snapshot.DataStore)
	if err != nil {
		return "", fmt.Errorf("marshal data store: %w", err)
	}
	var (
		errMsg  sql.NullString
		errCode sql.NullInt64
	)
	if snapshot.LastError != nil {
		errMsg = sql.NullString{String: snapshot.LastError.Message, Valid: true}
		errCode = sql.NullInt64{Int64: int64(snapshot.LastError.Code), Valid: true}
	}

	action := storage.ActionInsert
	err = tx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var ct int
		err := tx.QueryRowContext(
			ctx,
			`SELECT COUNT(*) FROM work_instances WHERE id = ? FOR UPDATE;`,
			key,
		).Scan(&ct)
		if err != nil {
			return fmt.Errorf("checking work instance exists: %w", err)
		}
		if ct > 0 {
			action = storage.ActionUpdate
		}
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO work_instances
    (id, work_id, description, state, next_task, data_store, error_msg, error_code, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?, ?, ?, ?) AS new
ON DUPLICATE KEY
UPDATE
    state = new.state,
    next_task = new.next_task,
    data_store = new.data_store,
    error_msg = new.error_msg,
    error_code = new.error_code,
    updated_at = new.updated_at;`,
			key,
			snapshot.WorkID,
			snapshot.Description,
			snapshot.State,
			nextTask,
			dataStore,
			errMsg,
			errCode,
			snapshot.Timestamp.Unix(),
		)
		if err != nil {
			return fmt.Errorf("upserting work instance: %w", err)
		}
		for _, t := range snapshot.Tasks {
			if err = upsertTask(ctx, tx, key, t); err != nil {
				return fmt.Errorf("upserting task instance %s: %w", t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return action, nil
}

func upsertTask(ctx context.Context, tx *sql.Tx, owner []byte, t *workflow.TaskInstance) error {
	key, err := ident.PackBytes(t.ID)
	if err != nil {
		return err
	}
	var settings []byte
	if len(t.Settings) > 0 {
		if settings, err = json.Marshal(t.Settings); err != nil {
			return fmt.Errorf("marshal settings: %w", err)
		}
	}
	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO task_instances
    (id, work_instance_id, task_order, name, version, type, endpoint, settings)
VALUES
    (?, ?, ?, ?, ?, ?, ?, ?) AS new
ON DUPLICATE KEY
UPDATE
    task_order = new.task_order;`,
		key,
		owner,
		t.Order,
		t.Name,
		t.Version,
		string(t.Type),
		t.Endpoint,
		settings,
	)
	return err
}

// DeleteWorkInstance deletes a work instance and its task instances.
// See the storage interface type for further docs.
func (s *MySQLStorage) DeleteWorkInstance(ctx context.Context, id string) error {
	key, err := ident.PackBytes(id)
	if err != nil {
		return err
	}
	return tx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx,
			`DELETE FROM task_instances WHERE work_instance_id = ?;`,
			key,
		); err != nil {
			return fmt.Errorf("deleting task instances: %w", err)
		}
		res, err := tx.ExecContext(
			ctx,
			`DELETE FROM work_instances WHERE id = ?;`,
			key,
		)
		if err != nil {
			return fmt.Errorf("deleting work instance: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n < 1 {
			return fmt.Errorf("%w: work instance %s", workflow.ErrNotFound, id)
		}
		return nil
	})
}
