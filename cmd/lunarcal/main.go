// Command lunarcal converts lunar dates from the command line.
//
// Usage:
//
//	lunarcal convert -year 2024 -month 4 -day 15 -leap
//	lunarcal project -month 8 -day 15 [-from 2030]
//	lunarcal table [-year 2024]
//
// Every subcommand accepts -table to read a YAML table instead of the
// embedded one.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zapponejosh/lunar-birthday-api/internal/lunar"
)

const usage = `usage: lunarcal <command> [flags]

commands:
  convert   convert one lunar date to its Gregorian date
  project   list the Gregorian dates of a lunar anniversary
  table     print the lunar year structures and anchor drift
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "lunarcal:", err)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return flag.ErrHelp
	}

	switch args[0] {
	case "convert":
		return runConvert(args[1:], out)
	case "project":
		return runProject(args[1:], out)
	case "table":
		return runTable(args[1:], out)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func newFlagSet(name string, out io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	tablePath := fs.String("table", "", "Lunar table YAML (default: embedded table)")
	return fs, tablePath
}

func loadConverter(tablePath string) (*lunar.Converter, error) {
	var (
		table *lunar.Table
		err   error
	)
	if tablePath != "" {
		table, err = lunar.LoadTable(tablePath)
	} else {
		table, err = lunar.ReferenceTable()
	}
	if err != nil {
		return nil, err
	}
	return lunar.NewConverter(table), nil
}

func runConvert(args []string, out io.Writer) error {
	fs, tablePath := newFlagSet("convert", out)
	year := fs.Int("year", 0, "Lunar year")
	month := fs.Int("month", 0, "Lunar month (1-12)")
	day := fs.Int("day", 0, "Lunar day (1-30)")
	leap := fs.Bool("leap", false, "Date is in the leap month")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := loadConverter(*tablePath)
	if err != nil {
		return err
	}

	d := lunar.LunarDate{Year: *year, Month: *month, Day: *day, IsLeapMonth: *leap}
	g, err := c.Convert(d)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s -> %s\n", d, g)
	return nil
}

func runProject(args []string, out io.Writer) error {
	fs, tablePath := newFlagSet("project", out)
	month := fs.Int("month", 0, "Lunar month (1-12)")
	day := fs.Int("day", 0, "Lunar day (1-30)")
	leap := fs.Bool("leap", false, "Anniversary is in the leap month")
	from := fs.Int("from", 0, "First year (default: current year)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *month < 1 || *month > 12 {
		return fmt.Errorf("%w: %d", lunar.ErrInvalidMonth, *month)
	}
	if *day < 1 || *day > 30 {
		return fmt.Errorf("%w: %d", lunar.ErrInvalidDay, *day)
	}

	c, err := loadConverter(*tablePath)
	if err != nil {
		return err
	}

	var dates []lunar.GregorianDate
	if *from != 0 {
		dates = c.ProjectFrom(*from, *month, *day, *leap)
	} else {
		dates = c.Project(*month, *day, *leap)
	}
	for _, d := range dates {
		fmt.Fprintln(out, d)
	}
	fmt.Fprintf(out, "%d dates\n", len(dates))
	return nil
}

func runTable(args []string, out io.Writer) error {
	fs, tablePath := newFlagSet("table", out)
	only := fs.Int("year", 0, "Print the month structure of one year")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := loadConverter(*tablePath)
	if err != nil {
		return err
	}
	table := c.Table()

	if *only != 0 {
		y, ok := table.Year(*only)
		if !ok {
			first, last := table.Range()
			return fmt.Errorf("%w: %d is outside %d-%d", lunar.ErrUnsupportedYear, *only, first, last)
		}
		fmt.Fprintf(out, "Year %d, New Year %s, %d days\n", y.Year, y.NewYear, y.TotalDays())
		for _, m := range y.Months {
			label := fmt.Sprintf("%2d", m.Ordinal)
			if m.Leap {
				label = fmt.Sprintf("L%d", m.Ordinal)
			}
			first, _ := c.Convert(lunar.LunarDate{Year: y.Year, Month: m.Ordinal, Day: 1, IsLeapMonth: m.Leap})
			fmt.Fprintf(out, "  %-3s %d days  starts %s\n", label, m.Days, first)
		}
		return nil
	}

	first, last := table.Range()
	fmt.Fprintf(out, "=== Lunar table %d-%d ===\n", first, last)
	for _, year := range table.Years() {
		y, _ := table.Year(year)
		leap := "-"
		if y.HasLeapMonth() {
			leap = fmt.Sprintf("L%d", y.LeapMonth)
		}
		fmt.Fprintf(out, "%d  %s  %-3s  %d days\n", y.Year, y.NewYear, leap, y.TotalDays())
	}

	drift := table.Audit()
	if len(drift) == 0 {
		fmt.Fprintln(out, "\nAll years end on the next New Year.")
		return nil
	}
	parts := make([]string, 0, len(drift))
	for _, d := range drift {
		parts = append(parts, fmt.Sprintf("%d (%+d)", d.Year, d.Days))
	}
	fmt.Fprintf(out, "\nDrift in %d years: %s\n", len(drift), strings.Join(parts, ", "))
	return nil
}
