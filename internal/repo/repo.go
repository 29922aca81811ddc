package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkedboost/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const automationCols = `id,name,COALESCE(description,''),type,status,target_json,COALESCE(content,''),schedule_json,total_runs,success_count,failure_count,last_run,next_run,created_at,updated_at`

func scanAutomation(row rowScanner) (domain.Automation, error) {
	var a domain.Automation
	var targetJSON, scheduleJSON, createdAt, updatedAt string
	var lastRun, nextRun sql.NullString
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Type, &a.Status, &targetJSON, &a.Content, &scheduleJSON,
		&a.Stats.TotalRuns, &a.Stats.SuccessCount, &a.Stats.FailureCount, &lastRun, &nextRun, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if err := json.Unmarshal([]byte(targetJSON), &a.Target); err != nil {
		return a, fmt.Errorf("decode target for %s: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(scheduleJSON), &a.Schedule); err != nil {
		return a, fmt.Errorf("decode schedule for %s: %w", a.ID, err)
	}
	if a.LastRun, err = parseTimePtr(lastRun); err != nil {
		return a, err
	}
	if a.NextRun, err = parseTimePtr(nextRun); err != nil {
		return a, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return a, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return a, err
	}
	return a, nil
}

func (r Repo) InsertAutomationTx(ctx context.Context, tx *sql.Tx, a domain.Automation) error {
	targetJSON, err := json.Marshal(a.Target)
	if err != nil {
		return fmt.Errorf("encode target: %w", err)
	}
	scheduleJSON, err := json.Marshal(a.Schedule)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO automations(id,name,description,type,status,target_json,content,schedule_json,total_runs,success_count,failure_count,last_run,next_run,created_at,updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.Name, nullable(a.Description), a.Type, a.Status, string(targetJSON), nullable(a.Content), string(scheduleJSON),
		a.Stats.TotalRuns, a.Stats.SuccessCount, a.Stats.FailureCount,
		nullableTime(a.LastRun), nullableTime(a.NextRun), fmtTime(a.CreatedAt), fmtTime(a.UpdatedAt))
	return err
}

func (r Repo) GetAutomation(ctx context.Context, id string) (domain.Automation, error) {
	return scanAutomation(r.DB.QueryRowContext(ctx, `SELECT `+automationCols+` FROM automations WHERE id=?`, id))
}

func (r Repo) ListAutomations(ctx context.Context, status string) ([]domain.Automation, error) {
	q := `SELECT ` + automationCols + ` FROM automations`
	var args []any
	if status != "" {
		q += ` WHERE status=?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Automation
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// AutomationUpdate carries the mutable fields of an automation; nil means
// leave unchanged.
type AutomationUpdate struct {
	Name        *string
	Description *string
	Status      *domain.AutomationStatus
	Content     *string
	Target      *domain.AutomationTarget
	Schedule    *domain.AutomationSchedule
}

func (r Repo) UpdateAutomation(ctx context.Context, id string, upd AutomationUpdate, now time.Time) error {
	var (
		fields []string
		args   []any
	)
	if upd.Name != nil {
		fields = append(fields, "name=?")
		args = append(args, *upd.Name)
	}
	if upd.Description != nil {
		fields = append(fields, "description=?")
		args = append(args, nullable(*upd.Description))
	}
	if upd.Status != nil {
		fields = append(fields, "status=?")
		args = append(args, *upd.Status)
	}
	if upd.Content != nil {
		fields = append(fields, "content=?")
		args = append(args, nullable(*upd.Content))
	}
	if upd.Target != nil {
		targetJSON, err := json.Marshal(*upd.Target)
		if err != nil {
			return fmt.Errorf("encode target: %w", err)
		}
		fields = append(fields, "target_json=?")
		args = append(args, string(targetJSON))
	}
	if upd.Schedule != nil {
		scheduleJSON, err := json.Marshal(*upd.Schedule)
		if err != nil {
			return fmt.Errorf("encode schedule: %w", err)
		}
		fields = append(fields, "schedule_json=?")
		args = append(args, string(scheduleJSON))
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, fmtTime(now), id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE automations SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRunStateTx persists the post-execution mutation of stats, LastRun
// and NextRun inside the caller's transaction.
func (r Repo) UpdateRunStateTx(ctx context.Context, tx *sql.Tx, a domain.Automation) error {
	res, err := tx.ExecContext(ctx, `UPDATE automations SET total_runs=?,success_count=?,failure_count=?,last_run=?,next_run=?,updated_at=? WHERE id=?`,
		a.Stats.TotalRuns, a.Stats.SuccessCount, a.Stats.FailureCount,
		nullableTime(a.LastRun), nullableTime(a.NextRun), fmtTime(a.UpdatedAt), a.ID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteAutomation(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM automations WHERE id=?`, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

const opportunityCols = `id,contact_id,first_name,last_name,COALESCE(headline,''),COALESCE(company,''),COALESCE(position,''),COALESCE(location,''),connection_degree,mutual_connections,relevance_score,factors_json,tags_json,source,status,last_activity,detected_at`

func scanOpportunity(row rowScanner) (domain.NetworkingOpportunity, error) {
	var o domain.NetworkingOpportunity
	var factorsJSON, tagsJSON, detectedAt string
	var lastActivity sql.NullString
	err := row.Scan(&o.ID, &o.ContactID, &o.FirstName, &o.LastName, &o.Headline, &o.Company, &o.Position, &o.Location,
		&o.ConnectionDegree, &o.MutualConnections, &o.RelevanceScore, &factorsJSON, &tagsJSON, &o.Source, &o.Status,
		&lastActivity, &detectedAt)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal([]byte(factorsJSON), &o.RelevanceFactors); err != nil {
		return o, fmt.Errorf("decode factors for %s: %w", o.ID, err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &o.Tags); err != nil {
		return o, fmt.Errorf("decode tags for %s: %w", o.ID, err)
	}
	if o.LastActivity, err = parseTimePtr(lastActivity); err != nil {
		return o, err
	}
	if o.DetectedAt, err = parseTime(detectedAt); err != nil {
		return o, err
	}
	return o, nil
}

// UpsertOpportunityTx inserts a detected opportunity, refreshing score and
// factors when the same contact is detected again. Status survives
// re-detection.
func (r Repo) UpsertOpportunityTx(ctx context.Context, tx *sql.Tx, o domain.NetworkingOpportunity) error {
	factorsJSON, err := json.Marshal(o.RelevanceFactors)
	if err != nil {
		return fmt.Errorf("encode factors: %w", err)
	}
	tagsJSON, err := json.Marshal(o.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	if o.Status == "" {
		o.Status = "new"
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO opportunities(id,contact_id,first_name,last_name,headline,company,position,location,connection_degree,mutual_connections,relevance_score,factors_json,tags_json,source,status,last_activity,detected_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			first_name=excluded.first_name, last_name=excluded.last_name, headline=excluded.headline,
			company=excluded.company, position=excluded.position, location=excluded.location,
			connection_degree=excluded.connection_degree, mutual_connections=excluded.mutual_connections,
			relevance_score=excluded.relevance_score, factors_json=excluded.factors_json,
			tags_json=excluded.tags_json, source=excluded.source, last_activity=excluded.last_activity,
			detected_at=excluded.detected_at, updated_at=excluded.detected_at`,
		o.ID, o.ContactID, o.FirstName, o.LastName, nullable(o.Headline), nullable(o.Company), nullable(o.Position), nullable(o.Location),
		o.ConnectionDegree, o.MutualConnections, o.RelevanceScore, string(factorsJSON), string(tagsJSON), o.Source, o.Status,
		nullableTime(o.LastActivity), fmtTime(o.DetectedAt))
	return err
}

// OpportunityFilter narrows ListOpportunities. Zero values mean no filter.
type OpportunityFilter struct {
	MinScore int
	Status   string
	Source   string
	Limit    int
}

func (r Repo) GetOpportunity(ctx context.Context, id string) (domain.NetworkingOpportunity, error) {
	return scanOpportunity(r.DB.QueryRowContext(ctx, `SELECT `+opportunityCols+` FROM opportunities WHERE id=?`, id))
}

func (r Repo) ListOpportunities(ctx context.Context, f OpportunityFilter) ([]domain.NetworkingOpportunity, error) {
	q := `SELECT ` + opportunityCols + ` FROM opportunities`
	var (
		conds []string
		args  []any
	)
	if f.MinScore > 0 {
		conds = append(conds, "relevance_score>=?")
		args = append(args, f.MinScore)
	}
	if f.Status != "" {
		conds = append(conds, "status=?")
		args = append(args, f.Status)
	}
	if f.Source != "" {
		conds = append(conds, "source=?")
		args = append(args, f.Source)
	}
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY relevance_score DESC, detected_at DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.NetworkingOpportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

func (r Repo) SetOpportunityStatus(ctx context.Context, id, status string, now time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE opportunities SET status=?,updated_at=? WHERE id=?`, status, fmtTime(now), id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpsertConnectionTx(ctx context.Context, tx *sql.Tx, c domain.Connection, syncedAt time.Time) error {
	dateConnected := syncedAt
	if c.DateConnected != nil {
		dateConnected = *c.DateConnected
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO connections(id,first_name,last_name,headline,date_connected,last_interaction)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET first_name=excluded.first_name, last_name=excluded.last_name, headline=excluded.headline`,
		c.ID, c.FirstName, c.LastName, nullable(c.Headline), fmtTime(dateConnected), nullableTime(c.LastInteraction))
	return err
}

func (r Repo) ListConnections(ctx context.Context, limit int) ([]domain.Connection, error) {
	q := `SELECT id,first_name,last_name,COALESCE(headline,''),date_connected,last_interaction FROM connections ORDER BY date_connected DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Connection
	for rows.Next() {
		var c domain.Connection
		var dateConnected string
		var lastInteraction sql.NullString
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Headline, &dateConnected, &lastInteraction); err != nil {
			return nil, err
		}
		t, err := parseTime(dateConnected)
		if err != nil {
			return nil, err
		}
		c.DateConnected = &t
		c.ConnectionDegree = 1
		if c.LastInteraction, err = parseTimePtr(lastInteraction); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) CountAutomationsByStatus(ctx context.Context) (map[string]int, error) {
	return r.countByStatus(ctx, `SELECT status, COUNT(*) FROM automations GROUP BY status`)
}

func (r Repo) CountOpportunitiesByStatus(ctx context.Context) (map[string]int, error) {
	return r.countByStatus(ctx, `SELECT status, COUNT(*) FROM opportunities GROUP BY status`)
}

func (r Repo) countByStatus(ctx context.Context, query string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r Repo) CountConnections(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM connections`).Scan(&n)
	return n, err
}

func (r Repo) ListEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// EventsAfter returns events with id > after in ascending order, for cursor
// based consumers like the webhook dispatcher.
func (r Repo) EventsAfter(ctx context.Context, limit int, after int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE id > ? ORDER BY id ASC LIMIT ?`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM events`).Scan(&id)
	return id, err
}
