package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// Helper Functions
// =============================================================================

// parseTimestamp parses a timestamp from SQLite TEXT format.
// Tries multiple formats and returns the zero time if none match.
func parseTimestamp(ns sql.NullString) time.Time {
	if !ns.Valid || ns.String == "" {
		return time.Time{}
	}

	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999999",
	} {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return t
		}
	}
	return time.Time{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// =============================================================================
// Birthday Queries
// =============================================================================

// CreateBirthday inserts b inside the transaction and sets its ID and
// timestamps.
func (tx *Tx) CreateBirthday(ctx context.Context, b *Birthday) error {
	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO birthdays (name, lunar_month, lunar_day, is_leap_month, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, b.Name, b.LunarMonth, b.LunarDay, boolToInt(b.IsLeapMonth),
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert birthday: %w", translateError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get birthday id: %w", err)
	}

	b.ID = id
	b.CreatedAt = now.Truncate(time.Second)
	b.UpdatedAt = b.CreatedAt
	return nil
}

const birthdayColumns = `b.id, b.name, b.lunar_month, b.lunar_day, b.is_leap_month, b.created_at, b.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBirthday(row rowScanner, extra ...any) (Birthday, error) {
	var b Birthday
	var createdAt, updatedAt sql.NullString
	dest := append([]any{&b.ID, &b.Name, &b.LunarMonth, &b.LunarDay, &b.IsLeapMonth, &createdAt, &updatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Birthday{}, err
	}
	b.CreatedAt = parseTimestamp(createdAt)
	b.UpdatedAt = parseTimestamp(updatedAt)
	return b, nil
}

// GetBirthday returns the birthday with the given ID.
// Returns ErrNotFound if it doesn't exist.
func (db *DB) GetBirthday(ctx context.Context, id int64) (*Birthday, error) {
	row := db.QueryRowContext(ctx, `SELECT `+birthdayColumns+` FROM birthdays b WHERE b.id = ?`, id)
	b, err := scanBirthday(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query birthday: %w", err)
	}
	return &b, nil
}

// ListBirthdays returns all birthdays ordered by name, each with the
// number of reminders scheduled for it.
func (db *DB) ListBirthdays(ctx context.Context) ([]BirthdayWithReminders, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+birthdayColumns+`, COUNT(r.id)
		FROM birthdays b
		LEFT JOIN reminders r ON r.birthday_id = b.id
		GROUP BY b.id
		ORDER BY b.name, b.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query birthdays: %w", err)
	}
	defer rows.Close()

	out := []BirthdayWithReminders{}
	for rows.Next() {
		var count int
		b, err := scanBirthday(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("scan birthday: %w", err)
		}
		out = append(out, BirthdayWithReminders{Birthday: b, ReminderCount: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate birthdays: %w", err)
	}
	return out, nil
}

// DeleteBirthday removes a birthday and its reminders, returning the number
// of reminders removed. Returns ErrNotFound if it doesn't exist.
func (db *DB) DeleteBirthday(ctx context.Context, id int64) (int64, error) {
	var removed int64
	err := db.WithTx(ctx, func(tx *Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM reminders WHERE birthday_id = ?`, id,
		).Scan(&removed); err != nil {
			return fmt.Errorf("count reminders: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM birthdays WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete birthday: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// =============================================================================
// Reminder Queries
// =============================================================================

// CreateReminders inserts reminders inside the transaction and sets their
// IDs. A second entry for the same birthday and date fails with
// ErrDuplicate.
func (tx *Tx) CreateReminders(ctx context.Context, reminders []Reminder) error {
	if len(reminders) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reminders (birthday_id, summary, description, date, all_day, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare reminder insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range reminders {
		r := &reminders[i]
		result, err := stmt.ExecContext(ctx,
			r.BirthdayID, r.Summary, r.Description, r.Date, boolToInt(r.AllDay), now.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("insert reminder %s: %w", r.Date, translateError(err))
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get reminder id: %w", err)
		}
		r.ID = id
		r.CreatedAt = now.Truncate(time.Second)
	}
	return nil
}

// ListReminders returns reminders matching filter ordered by date.
func (db *DB) ListReminders(ctx context.Context, filter ReminderFilter) ([]Reminder, error) {
	var where []string
	var args []any

	if filter.BirthdayID != 0 {
		where = append(where, "birthday_id = ?")
		args = append(args, filter.BirthdayID)
	}
	if filter.From != "" {
		where = append(where, "date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		where = append(where, "date <= ?")
		args = append(args, filter.To)
	}
	if filter.Query != "" {
		where = append(where, "instr(summary, ?) > 0")
		args = append(args, filter.Query)
	}

	query := `SELECT id, birthday_id, summary, description, date, all_day, created_at FROM reminders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	out := []Reminder{}
	for rows.Next() {
		var r Reminder
		var createdAt sql.NullString
		if err := rows.Scan(&r.ID, &r.BirthdayID, &r.Summary, &r.Description, &r.Date, &r.AllDay, &createdAt); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		r.CreatedAt = parseTimestamp(createdAt)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reminders: %w", err)
	}
	return out, nil
}

// CountReminders returns the number of stored reminders.
func (db *DB) CountReminders(ctx context.Context) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reminders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reminders: %w", err)
	}
	return n, nil
}

// DeleteAll removes every birthday and reminder and returns the number of
// reminders removed.
func (db *DB) DeleteAll(ctx context.Context) (int64, error) {
	var removed int64
	err := db.WithTx(ctx, func(tx *Tx) error {
		var err error
		removed, err = tx.DeleteAll(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// DeleteAll removes every birthday and reminder inside the transaction.
func (tx *Tx) DeleteAll(ctx context.Context) (int64, error) {
	result, err := tx.ExecContext(ctx, `DELETE FROM reminders`)
	if err != nil {
		return 0, fmt.Errorf("delete reminders: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM birthdays`); err != nil {
		return 0, fmt.Errorf("delete birthdays: %w", err)
	}
	return removed, nil
}

// DeleteRemindersBefore removes reminders dated strictly before date
// (YYYY-MM-DD) and returns how many were removed.
func (db *DB) DeleteRemindersBefore(ctx context.Context, date string) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM reminders WHERE date < ?`, date)
	if err != nil {
		return 0, fmt.Errorf("delete past reminders: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
