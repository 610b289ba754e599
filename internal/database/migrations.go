package database

// migrationsSQL contains all database migrations.
// Migrations are applied in order by version number.
var migrationsSQL = map[int]string{
	1: migrationV1Birthdays,
	2: migrationV2Reminders,
}

// migrationV1Birthdays creates the birthdays table.
//
// A birthday stores only the lunar month, day and leap flag. The Gregorian
// dates are computed from the lunar table at scheduling time and written
// to reminders, so the table can be replaced without touching this one.
const migrationV1Birthdays = `
-- Migration 001: birthdays

CREATE TABLE IF NOT EXISTS birthdays (
    id INTEGER PRIMARY KEY AUTOINCREMENT,

    name TEXT NOT NULL CHECK (length(name) > 0),

    -- Ordinal lunar month; the leap copy shares the ordinal
    lunar_month INTEGER NOT NULL CHECK (lunar_month BETWEEN 1 AND 12),
    lunar_day INTEGER NOT NULL CHECK (lunar_day BETWEEN 1 AND 30),
    is_leap_month INTEGER NOT NULL DEFAULT 0 CHECK (is_leap_month IN (0, 1)),

    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_birthdays_lunar
    ON birthdays(lunar_month, lunar_day, is_leap_month);
`

// migrationV2Reminders creates the reminders table.
//
// One row per all-day calendar entry. Rows cascade with their birthday.
const migrationV2Reminders = `
-- Migration 002: reminders

CREATE TABLE IF NOT EXISTS reminders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,

    birthday_id INTEGER NOT NULL,

    summary TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',

    -- Gregorian date, YYYY-MM-DD
    date TEXT NOT NULL,
    all_day INTEGER NOT NULL DEFAULT 1 CHECK (all_day IN (0, 1)),

    created_at TEXT NOT NULL DEFAULT (datetime('now')),

    FOREIGN KEY (birthday_id) REFERENCES birthdays(id) ON DELETE CASCADE,

    -- One entry per birthday per day
    UNIQUE (birthday_id, date)
);

-- Listing and pruning by date
CREATE INDEX IF NOT EXISTS idx_reminders_date
    ON reminders(date);

CREATE INDEX IF NOT EXISTS idx_reminders_birthday
    ON reminders(birthday_id);
`
