package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zapponejosh/lunar-birthday-api/internal/database"
	"github.com/zapponejosh/lunar-birthday-api/internal/logger"
	"github.com/zapponejosh/lunar-birthday-api/internal/lunar"
	"github.com/zapponejosh/lunar-birthday-api/internal/metrics"
	"github.com/zapponejosh/lunar-birthday-api/internal/reminders"
)

const (
	maxBodyBytes       = 1 << 20
	defaultListLimit   = 100
	maxListLimit       = 1000
	maxBirthdaysPerReq = 200
)

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	db        *database.DB
	converter *lunar.Converter
	service   *reminders.Service
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance. m may be nil.
func NewHandlers(db *database.DB, converter *lunar.Converter, service *reminders.Service, m *metrics.Metrics, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{
		db:        db,
		converter: converter,
		service:   service,
		metrics:   m,
		logger:    log,
	}
}

func (h *Handlers) log(r *http.Request) *slog.Logger {
	return logger.FromContext(r.Context(), h.logger)
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Health(r.Context()); err != nil {
		h.log(r).Warn("health check failed", slog.Any("error", err))
		WriteError(w, http.StatusServiceUnavailable, "Database unhealthy", "HEALTH_CHECK_FAILED")
		return
	}

	first, last := h.converter.Table().Range()
	WriteSuccess(w, map[string]any{
		"status":     "healthy",
		"first_year": first,
		"last_year":  last,
	})
}

// =============================================================================
// Lunar conversion
// =============================================================================

// YearInfo describes one supported lunar year.
type YearInfo struct {
	Year      int    `json:"year"`
	NewYear   string `json:"new_year"`
	LeapMonth int    `json:"leap_month,omitempty"`
	Days      int    `json:"days"`
	Months    int    `json:"months"`
}

// RangeResponse is the response for /lunar/range.
type RangeResponse struct {
	FirstYear int        `json:"first_year"`
	LastYear  int        `json:"last_year"`
	Years     []YearInfo `json:"years"`
}

// GetRange handles GET /api/v1/lunar/range
func (h *Handlers) GetRange(w http.ResponseWriter, r *http.Request) {
	table := h.converter.Table()
	first, last := table.Range()

	resp := RangeResponse{FirstYear: first, LastYear: last, Years: make([]YearInfo, 0, last-first+1)}
	for _, year := range table.Years() {
		y, _ := table.Year(year)
		resp.Years = append(resp.Years, YearInfo{
			Year:      y.Year,
			NewYear:   y.NewYear.String(),
			LeapMonth: y.LeapMonth,
			Days:      y.TotalDays(),
			Months:    len(y.Months),
		})
	}
	WriteSuccess(w, resp)
}

// ConvertResponse is the response for /lunar/convert.
type ConvertResponse struct {
	Lunar     lunar.LunarDate `json:"lunar"`
	Gregorian string          `json:"gregorian"`
}

// Convert handles GET /api/v1/lunar/convert?year=&month=&day=&leap=
func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	q := queryParams{r: r}
	d := lunar.LunarDate{
		Year:        q.requiredInt("year"),
		Month:       q.requiredInt("month"),
		Day:         q.requiredInt("day"),
		IsLeapMonth: q.optionalBool("leap"),
	}
	if q.err != nil {
		WriteBadRequest(w, q.err.Error())
		return
	}

	g, err := h.converter.Convert(d)
	if err != nil {
		if !lunar.IsValidationError(err) {
			h.metrics.IncConversion("convert", "error")
			h.log(r).Error("conversion failed", slog.Any("error", err))
			WriteInternalError(w, "Conversion failed")
			return
		}
		code := conversionCode(err)
		h.metrics.IncConversion("convert", strings.ToLower(code))
		WriteUnprocessable(w, err.Error(), code)
		return
	}

	h.metrics.IncConversion("convert", "ok")
	WriteSuccess(w, ConvertResponse{Lunar: d, Gregorian: g.String()})
}

// ProjectResponse is the response for /lunar/project.
type ProjectResponse struct {
	Month       int      `json:"month"`
	Day         int      `json:"day"`
	IsLeapMonth bool     `json:"is_leap_month"`
	FromYear    int      `json:"from_year,omitempty"`
	Dates       []string `json:"dates"`
}

// Project handles GET /api/v1/lunar/project?month=&day=&leap=&from=
//
// Without from, projection starts at the current year.
func (h *Handlers) Project(w http.ResponseWriter, r *http.Request) {
	q := queryParams{r: r}
	month := q.requiredInt("month")
	day := q.requiredInt("day")
	leap := q.optionalBool("leap")
	from := q.optionalInt("from", 0)
	if q.err != nil {
		WriteBadRequest(w, q.err.Error())
		return
	}
	if month < 1 || month > 12 {
		h.metrics.IncConversion("project", "invalid_month")
		WriteUnprocessable(w, fmt.Sprintf("%v: %d", lunar.ErrInvalidMonth, month), "INVALID_MONTH")
		return
	}
	if day < 1 || day > 30 {
		h.metrics.IncConversion("project", "invalid_day")
		WriteUnprocessable(w, fmt.Sprintf("%v: %d", lunar.ErrInvalidDay, day), "INVALID_DAY")
		return
	}

	var dates []lunar.GregorianDate
	if from != 0 {
		dates = h.converter.ProjectFrom(from, month, day, leap)
	} else {
		dates = h.converter.Project(month, day, leap)
	}

	outcome := "ok"
	if len(dates) == 0 {
		outcome = "empty"
	}
	h.metrics.IncConversion("project", outcome)

	resp := ProjectResponse{Month: month, Day: day, IsLeapMonth: leap, FromYear: from, Dates: make([]string, 0, len(dates))}
	for _, d := range dates {
		resp.Dates = append(resp.Dates, d.String())
	}
	WriteSuccess(w, resp)
}

// conversionCode maps a conversion failure to its API error code.
func conversionCode(err error) string {
	switch {
	case errors.Is(err, lunar.ErrUnsupportedYear):
		return "UNSUPPORTED_YEAR"
	case errors.Is(err, lunar.ErrInvalidLeapMonth):
		return "INVALID_LEAP_MONTH"
	case errors.Is(err, lunar.ErrInvalidMonth):
		return "INVALID_MONTH"
	case errors.Is(err, lunar.ErrInvalidDay):
		return "INVALID_DAY"
	}
	return ""
}

// =============================================================================
// Birthdays
// =============================================================================

// CreateBirthdaysRequest is the body for POST /birthdays.
type CreateBirthdaysRequest struct {
	Birthdays []reminders.BirthdayInput `json:"birthdays"`
}

// CreateBirthdaysResponse is the response for POST /birthdays.
type CreateBirthdaysResponse struct {
	Birthdays      []reminders.Scheduled `json:"birthdays"`
	RemindersAdded int                   `json:"reminders_added"`
}

// CreateBirthdays handles POST /api/v1/birthdays
func (h *Handlers) CreateBirthdays(w http.ResponseWriter, r *http.Request) {
	var req CreateBirthdaysRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body: "+err.Error())
		return
	}
	if len(req.Birthdays) > maxBirthdaysPerReq {
		WriteBadRequest(w, fmt.Sprintf("At most %d birthdays per request", maxBirthdaysPerReq))
		return
	}

	scheduled, err := h.service.AddBirthdays(r.Context(), req.Birthdays)
	if err != nil {
		switch {
		case errors.Is(err, reminders.ErrNoOccurrences):
			WriteUnprocessable(w, err.Error(), "NO_OCCURRENCES")
		case errors.Is(err, reminders.ErrInvalidBirthday):
			WriteUnprocessable(w, err.Error(), "INVALID_BIRTHDAY")
		default:
			h.log(r).Error("failed to add birthdays", slog.Any("error", err))
			WriteInternalError(w, "Failed to add birthdays")
		}
		return
	}

	resp := CreateBirthdaysResponse{Birthdays: scheduled}
	for _, s := range scheduled {
		resp.RemindersAdded += len(s.Dates)
	}
	WriteCreated(w, resp)
}

// ListBirthdays handles GET /api/v1/birthdays
func (h *Handlers) ListBirthdays(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListBirthdays(r.Context())
	if err != nil {
		h.log(r).Error("failed to list birthdays", slog.Any("error", err))
		WriteInternalError(w, "Failed to list birthdays")
		return
	}
	WriteSuccess(w, map[string]any{
		"birthdays": list,
		"count":     len(list),
	})
}

// BirthdayResponse is one birthday with its stored reminders.
type BirthdayResponse struct {
	Birthday  *database.Birthday  `json:"birthday"`
	Reminders []database.Reminder `json:"reminders"`
}

func birthdayID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// GetBirthday handles GET /api/v1/birthdays/{id}
func (h *Handlers) GetBirthday(w http.ResponseWriter, r *http.Request) {
	id, ok := birthdayID(r)
	if !ok {
		WriteBadRequest(w, "Invalid birthday ID")
		return
	}

	b, rows, err := h.service.GetBirthday(r.Context(), id)
	if err != nil {
		if database.IsNotFound(err) {
			WriteNotFound(w, "Birthday not found")
			return
		}
		h.log(r).Error("failed to get birthday", slog.Int64("id", id), slog.Any("error", err))
		WriteInternalError(w, "Failed to get birthday")
		return
	}
	if rows == nil {
		rows = []database.Reminder{}
	}

	WriteSuccess(w, BirthdayResponse{Birthday: b, Reminders: rows})
}

// DeleteBirthday handles DELETE /api/v1/birthdays/{id}
func (h *Handlers) DeleteBirthday(w http.ResponseWriter, r *http.Request) {
	id, ok := birthdayID(r)
	if !ok {
		WriteBadRequest(w, "Invalid birthday ID")
		return
	}

	removed, err := h.service.DeleteBirthday(r.Context(), id)
	if err != nil {
		if database.IsNotFound(err) {
			WriteNotFound(w, "Birthday not found")
			return
		}
		h.log(r).Error("failed to delete birthday", slog.Int64("id", id), slog.Any("error", err))
		WriteInternalError(w, "Failed to delete birthday")
		return
	}

	WriteSuccess(w, map[string]any{
		"id":            id,
		"deleted_count": removed,
	})
}

// =============================================================================
// Reminders
// =============================================================================

// ListReminders handles GET /api/v1/reminders?birthday_id=&from=&to=&q=&limit=&offset=
func (h *Handlers) ListReminders(w http.ResponseWriter, r *http.Request) {
	q := queryParams{r: r}
	filter := database.ReminderFilter{
		BirthdayID: int64(q.optionalInt("birthday_id", 0)),
		From:       q.optionalDate("from"),
		To:         q.optionalDate("to"),
		Query:      r.URL.Query().Get("q"),
		Limit:      q.optionalInt("limit", defaultListLimit),
		Offset:     q.optionalInt("offset", 0),
	}
	if q.err != nil {
		WriteBadRequest(w, q.err.Error())
		return
	}
	if filter.Limit < 1 || filter.Limit > maxListLimit {
		WriteBadRequest(w, fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
		return
	}
	if filter.Offset < 0 {
		WriteBadRequest(w, "offset must not be negative")
		return
	}
	if filter.From != "" && filter.To != "" && filter.To < filter.From {
		WriteBadRequest(w, "from must be on or before to")
		return
	}

	list, err := h.service.ListReminders(r.Context(), filter)
	if err != nil {
		h.log(r).Error("failed to list reminders", slog.Any("error", err))
		WriteInternalError(w, "Failed to list reminders")
		return
	}
	WriteSuccess(w, map[string]any{
		"reminders": list,
		"count":     len(list),
	})
}

// CheckReminders handles GET /api/v1/reminders/check
func (h *Handlers) CheckReminders(w http.ResponseWriter, r *http.Request) {
	has, err := h.service.HasReminders(r.Context())
	if err != nil {
		h.log(r).Error("failed to check reminders", slog.Any("error", err))
		WriteInternalError(w, "Failed to check reminders")
		return
	}
	WriteSuccess(w, map[string]bool{"has_reminders": has})
}

// ClearReminders handles DELETE /api/v1/reminders
func (h *Handlers) ClearReminders(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.ClearReminders(r.Context())
	if err != nil {
		h.log(r).Error("failed to clear reminders", slog.Any("error", err))
		WriteInternalError(w, "Failed to clear reminders")
		return
	}
	WriteSuccess(w, map[string]int64{"deleted_count": n})
}

// =============================================================================
// Query parsing
// =============================================================================

// queryParams reads typed query parameters and keeps the first error.
type queryParams struct {
	r   *http.Request
	err error
}

func (q *queryParams) requiredInt(name string) int {
	raw := q.r.URL.Query().Get(name)
	if raw == "" {
		q.fail(fmt.Errorf("%s parameter is required", name))
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(fmt.Errorf("%s must be an integer, got %q", name, raw))
	}
	return n
}

func (q *queryParams) optionalInt(name string, def int) int {
	raw := q.r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(fmt.Errorf("%s must be an integer, got %q", name, raw))
		return def
	}
	return n
}

func (q *queryParams) optionalBool(name string) bool {
	raw := q.r.URL.Query().Get(name)
	if raw == "" {
		return false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(fmt.Errorf("%s must be true or false, got %q", name, raw))
	}
	return b
}

func (q *queryParams) optionalDate(name string) string {
	raw := q.r.URL.Query().Get(name)
	if raw == "" {
		return ""
	}
	d, err := lunar.ParseGregorianDate(raw)
	if err != nil {
		q.fail(fmt.Errorf("%s must be a date in YYYY-MM-DD form, got %q", name, raw))
		return ""
	}
	return d.String()
}

func (q *queryParams) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}
