// Command import loads a list of lunar birthdays into the SQLite database
// and schedules their reminders.
//
// Usage:
//
//	go run ./cmd/import -file data/birthdays.json -db data/lunar.db
//
// This tool:
// 1. Parses the birthdays file (JSON, or YAML for .yaml/.yml)
// 2. Creates/opens the SQLite database
// 3. Runs migrations to ensure schema is current
// 4. Stores every birthday and its reminders in a single transaction
//
// The file holds either a bare list of birthdays or an object with a
// "birthdays" list:
//
//	{"birthdays": [{"name": "Mei", "lunar_birthday": {"month": 8, "day": 15}}]}
//
// With -replace, existing birthdays and reminders are removed in the same
// transaction, so a file that fails validation leaves the database as it
// was.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/zapponejosh/lunar-birthday-api/internal/database"
	"github.com/zapponejosh/lunar-birthday-api/internal/lunar"
	"github.com/zapponejosh/lunar-birthday-api/internal/reminders"
)

func main() {
	// Parse command line flags
	filePath := flag.String("file", "data/birthdays.json", "Path to birthdays file")
	dbPath := flag.String("db", "data/lunar.db", "Path to SQLite database")
	tablePath := flag.String("table", "", "Optional lunar table YAML (default: embedded table)")
	replace := flag.Bool("replace", false, "Remove existing birthdays and reminders first")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	// Setup logger
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	opts := options{
		FilePath:  *filePath,
		DBPath:    *dbPath,
		TablePath: *tablePath,
		Replace:   *replace,
	}
	if err := run(context.Background(), opts, logger); err != nil {
		logger.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("import complete")
}

type options struct {
	FilePath  string
	DBPath    string
	TablePath string
	Replace   bool
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	startTime := time.Now()

	// =========================================================================
	// Step 1: Read and parse the birthdays file
	// =========================================================================
	logger.Info("reading birthdays file", slog.String("path", opts.FilePath))

	data, err := os.ReadFile(opts.FilePath)
	if err != nil {
		return fmt.Errorf("read birthdays file: %w", err)
	}

	inputs, err := parseBirthdays(opts.FilePath, data)
	if err != nil {
		return err
	}
	logger.Info("parsed birthdays", slog.Int("count", len(inputs)))

	var table *lunar.Table
	if opts.TablePath != "" {
		table, err = lunar.LoadTable(opts.TablePath)
	} else {
		table, err = lunar.ReferenceTable()
	}
	if err != nil {
		return fmt.Errorf("load lunar table: %w", err)
	}

	// =========================================================================
	// Step 2: Open database and run migrations
	// =========================================================================
	logger.Info("opening database", slog.String("path", opts.DBPath))

	db, err := database.Open(database.DefaultConfig(opts.DBPath), logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	migrated, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("migrations complete", slog.Int("applied", migrated))

	// =========================================================================
	// Step 3: Schedule birthdays
	// =========================================================================
	service := reminders.NewService(db, lunar.NewConverter(table), nil, logger)

	var (
		scheduled []reminders.Scheduled
		cleared   int64
	)
	if opts.Replace {
		scheduled, cleared, err = service.ReplaceBirthdays(ctx, inputs)
	} else {
		scheduled, err = service.AddBirthdays(ctx, inputs)
	}
	if err != nil {
		return fmt.Errorf("import birthdays: %w", err)
	}

	// =========================================================================
	// Step 4: Verify import
	// =========================================================================
	total, err := db.CountReminders(ctx)
	if err != nil {
		return fmt.Errorf("count reminders: %w", err)
	}

	added := 0
	for _, s := range scheduled {
		added += len(s.Dates)
		logger.Debug("scheduled birthday",
			slog.String("name", s.Birthday.Name),
			slog.Int("reminders", len(s.Dates)),
		)
	}

	elapsed := time.Since(startTime)

	// Print summary
	fmt.Println()
	fmt.Println("=== Import Summary ===")
	fmt.Printf("Birthdays imported:  %d\n", len(scheduled))
	fmt.Printf("Reminders added:     %d\n", added)
	fmt.Printf("Reminders removed:   %d\n", cleared)
	fmt.Printf("Reminders in db:     %d\n", total)
	fmt.Printf("Time elapsed:        %v\n", elapsed.Round(time.Millisecond))

	return nil
}

// birthdayFile is the object form of a birthdays file.
type birthdayFile struct {
	Birthdays []reminders.BirthdayInput `json:"birthdays" yaml:"birthdays"`
}

// parseBirthdays decodes data as YAML when path ends in .yaml or .yml and
// as JSON otherwise. Both a bare list and a {"birthdays": [...]} object are
// accepted.
func parseBirthdays(path string, data []byte) ([]reminders.BirthdayInput, error) {
	ext := strings.ToLower(filepath.Ext(path))
	isYAML := ext == ".yaml" || ext == ".yml"

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("parse %s: file is empty", path)
	}

	var list []reminders.BirthdayInput
	var err error
	switch {
	case isYAML:
		var node yaml.Node
		if err = yaml.Unmarshal(trimmed, &node); err == nil {
			if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
				err = node.Decode(&list)
			} else {
				var f birthdayFile
				err = node.Decode(&f)
				list = f.Birthdays
			}
		}
	case trimmed[0] == '[':
		err = json.Unmarshal(trimmed, &list)
	default:
		var f birthdayFile
		err = json.Unmarshal(trimmed, &f)
		list = f.Birthdays
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("parse %s: no birthdays found", path)
	}
	return list, nil
}
