package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/zapponejosh/organ-rotation/internal/calendar"
	"github.com/zapponejosh/organ-rotation/internal/config"
	"github.com/zapponejosh/organ-rotation/internal/database"
	"github.com/zapponejosh/organ-rotation/internal/logger"
	"github.com/zapponejosh/organ-rotation/internal/rotation"
)

// maxRangeDays caps the assignment listing window.
const maxRangeDays = 366

// Scheduler runs schedule generations. *rotation.Generator satisfies it.
type Scheduler interface {
	Generate(ctx context.Context, req rotation.Request) (*rotation.Result, error)
	Regenerate(ctx context.Context, req rotation.Request) (*rotation.Result, error)
}

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	db        *database.DB
	scheduler Scheduler
	cfg       *config.Config
	logger    *slog.Logger
	validate  *validator.Validate
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *database.DB, scheduler Scheduler, cfg *config.Config, logger *slog.Logger) *Handlers {
	return &Handlers{
		db:        db,
		scheduler: scheduler,
		cfg:       cfg,
		logger:    logger,
		validate:  newValidator(),
	}
}

// GenerateRequest is the body of the generate and regenerate endpoints.
type GenerateRequest struct {
	Months        int    `json:"months" validate:"required,oneof=3 6 12"`
	StartDate     string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	StartCycle    string `json:"start_cycle" validate:"omitempty,max=200"`
	StartOrganist string `json:"start_organist" validate:"omitempty,max=200"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Check database health
	if err := h.db.Health(ctx); err != nil {
		h.log(r).Warn("health check failed", slog.Any("error", err))
		WriteError(w, http.StatusServiceUnavailable, "Database unhealthy", "HEALTH_CHECK_FAILED")
		return
	}

	WriteSuccess(w, map[string]string{
		"status": "healthy",
	})
}

// ListCycles handles GET /api/v1/churches/{churchID}/cycles
//
// Returns the active cycles of both tracks with their active members in
// rotation order, exactly as a generation would load them.
func (h *Handlers) ListCycles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	churchID := chi.URLParam(r, "churchID")

	if _, err := h.db.GetChurch(ctx, churchID); err != nil {
		h.writeChurchError(w, r, churchID, err)
		return
	}

	set, err := rotation.LoadCycles(ctx, h.db, churchID, h.log(r))
	if err != nil {
		h.writeGenerateError(w, r, churchID, err)
		return
	}

	WriteSuccess(w, set)
}

// ListAssignments handles GET /api/v1/churches/{churchID}/assignments?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handlers) ListAssignments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	churchID := chi.URLParam(r, "churchID")

	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" || endStr == "" {
		WriteBadRequest(w, "Both start and end date parameters are required")
		return
	}

	startDate, err := calendar.ParseDateString(startStr)
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid start date format: %s. Use YYYY-MM-DD", startStr))
		return
	}

	endDate, err := calendar.ParseDateString(endStr)
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid end date format: %s. Use YYYY-MM-DD", endStr))
		return
	}

	if startDate.After(endDate) {
		WriteBadRequest(w, "Start date must be before or equal to end date")
		return
	}

	if int(endDate.Sub(startDate).Hours()/24) > maxRangeDays {
		WriteBadRequest(w, fmt.Sprintf("Date range cannot exceed %d days", maxRangeDays))
		return
	}

	if _, err := h.db.GetChurch(ctx, churchID); err != nil {
		h.writeChurchError(w, r, churchID, err)
		return
	}

	views, err := h.db.ListAssignmentViews(ctx, churchID, startStr, endStr)
	if err != nil {
		h.log(r).Error("failed to list assignments",
			slog.String("church_id", churchID),
			slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve assignments")
		return
	}

	WriteSuccess(w, map[string]any{
		"church_id":   churchID,
		"start":       startStr,
		"end":         endStr,
		"count":       len(views),
		"assignments": views,
	})
}

// Generate handles POST /api/v1/churches/{churchID}/schedule/generate
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	h.runScheduler(w, r, false)
}

// Regenerate handles POST /api/v1/churches/{churchID}/schedule/regenerate
//
// Deletes assignments from start_date onward before generating, so
// configuration changes take effect over an existing calendar.
func (h *Handlers) Regenerate(w http.ResponseWriter, r *http.Request) {
	h.runScheduler(w, r, true)
}

func (h *Handlers) runScheduler(w http.ResponseWriter, r *http.Request, regenerate bool) {
	churchID := chi.URLParam(r, "churchID")

	var body GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteBadRequest(w, "Invalid JSON body")
		return
	}

	if err := h.validate.Struct(body); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fe.Field()
			}
			WriteValidationError(w, "Invalid request body", fields)
			return
		}
		WriteBadRequest(w, err.Error())
		return
	}

	if regenerate && body.StartDate == "" {
		WriteValidationError(w, "start_date is required to regenerate", []string{"start_date"})
		return
	}

	req := rotation.Request{
		ChurchID: churchID,
		Months:   body.Months,
		Refs: rotation.StartRefs{
			Cycle:    body.StartCycle,
			Organist: body.StartOrganist,
		},
	}
	if body.StartDate != "" {
		start, err := calendar.ParseDateString(body.StartDate)
		if err != nil {
			WriteBadRequest(w, fmt.Sprintf("Invalid start_date format: %s. Use YYYY-MM-DD", body.StartDate))
			return
		}
		req.Start = start
	}

	run := h.scheduler.Generate
	if regenerate {
		run = h.scheduler.Regenerate
	}

	res, err := run(r.Context(), req)
	if err != nil {
		h.writeGenerateError(w, r, churchID, err)
		return
	}

	WriteSuccess(w, res)
}

// writeGenerateError maps rotation errors onto HTTP responses.
func (h *Handlers) writeGenerateError(w http.ResponseWriter, r *http.Request, churchID string, err error) {
	var cfgErr *rotation.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		h.log(r).Warn("church configuration cannot drive a rotation",
			slog.String("church_id", churchID),
			slog.String("reason", cfgErr.Reason))
		WriteConfigurationError(w, cfgErr.Error())
	case errors.Is(err, calendar.ErrInvalidMonths):
		WriteBadRequest(w, err.Error())
	case database.IsNotFound(err):
		WriteNotFound(w, fmt.Sprintf("Church %s not found", churchID))
	default:
		h.log(r).Error("schedule generation failed",
			slog.String("church_id", churchID),
			slog.Any("error", err))
		WriteInternalError(w, "Failed to generate schedule")
	}
}

func (h *Handlers) writeChurchError(w http.ResponseWriter, r *http.Request, churchID string, err error) {
	if database.IsNotFound(err) {
		WriteNotFound(w, fmt.Sprintf("Church %s not found", churchID))
		return
	}
	h.log(r).Error("failed to get church",
		slog.String("church_id", churchID),
		slog.Any("error", err))
	WriteInternalError(w, "Failed to retrieve church")
}

func (h *Handlers) log(r *http.Request) *slog.Logger {
	return logger.FromContext(r.Context(), h.logger)
}
