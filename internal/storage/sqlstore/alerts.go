// Package sqlstore keeps alerts in MySQL, where the resolution patch is an
// UPDATE guarded by the current is_resolved value.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/soilwatch/internal/model"
	"github.com/LeonardoBeccarini/soilwatch/internal/model/entities"
	"github.com/LeonardoBeccarini/soilwatch/internal/storage"
)

type Config struct {
	User     string
	Password string
	Addr     string // host:port
	DBName   string
}

// DSN enables clientFoundRows so RowsAffected counts matched rows: resolving
// an alert to the state it already has must not look like a missing id.
func (c Config) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = c.Addr
	mc.DBName = c.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.ClientFoundRows = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

func Open(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

const alertColumns = "id, type, severity, title, message, pot_id, sensor_data_id, is_resolved, resolved_at, resolved_by, created_at"

type Alerts struct {
	db    *sql.DB
	newID func() string
}

func NewAlerts(db *sql.DB) *Alerts {
	return &Alerts{db: db, newID: uuid.NewString}
}

func (s *Alerts) Append(ctx context.Context, a model.Alert) (string, error) {
	a.ID = s.newID()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO system_alerts ("+alertColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		a.ID, string(a.Type), string(a.Severity), a.Title, a.Message, a.PotID, a.SourceReadingID,
		a.IsResolved, nullTime(a.ResolvedAt), nullString(a.ResolvedBy), a.CreatedAt.UTC(),
	)
	if err != nil {
		return "", storage.Wrap("append alert", err)
	}
	return a.ID, nil
}

func (s *Alerts) Query(ctx context.Context, q storage.AlertQuery) ([]model.Alert, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.Resolved != nil {
		where = append(where, "is_resolved = ?")
		args = append(args, *q.Resolved)
	}
	if q.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, string(q.Severity))
	}

	stmt := "SELECT " + alertColumns + " FROM system_alerts"
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY created_at DESC"
	if q.Limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, storage.Wrap("query alerts", err)
	}
	defer rows.Close()

	var out []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, storage.Wrap("query alerts", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("query alerts", err)
	}
	return out, nil
}

func (s *Alerts) Get(ctx context.Context, id string) (model.Alert, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+alertColumns+" FROM system_alerts WHERE id = ?", id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Alert{}, storage.ErrNotFound
	}
	if err != nil {
		return model.Alert{}, storage.Wrap("get alert", err)
	}
	return a, nil
}

func (s *Alerts) Update(ctx context.Context, id string, p model.AlertPatch) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE system_alerts SET is_resolved = ?, resolved_at = ?, resolved_by = ? WHERE id = ? AND is_resolved = ?",
		p.IsResolved, nullTime(p.ResolvedAt), nullString(p.ResolvedBy), id, !p.IsResolved,
	)
	if err != nil {
		return storage.Wrap("update alert", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Wrap("update alert", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return storage.ErrAlreadyInState
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(sc scanner) (model.Alert, error) {
	var (
		a                model.Alert
		typ, sev         string
		potID, readingID sql.NullString
		resolvedAt       sql.NullTime
		resolvedBy       sql.NullString
	)
	if err := sc.Scan(&a.ID, &typ, &sev, &a.Title, &a.Message, &potID, &readingID,
		&a.IsResolved, &resolvedAt, &resolvedBy, &a.CreatedAt); err != nil {
		return model.Alert{}, err
	}
	a.Type = entities.AlertType(typ)
	a.Severity = entities.Severity(sev)
	a.PotID = potID.String
	a.SourceReadingID = readingID.String
	a.ResolvedBy = resolvedBy.String
	if resolvedAt.Valid {
		t := resolvedAt.Time.UTC()
		a.ResolvedAt = &t
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
