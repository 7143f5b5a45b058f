package stats

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fittrackio/fittrack/internal/auth"
	"github.com/fittrackio/fittrack/internal/fitness/sessions"
	"github.com/fittrackio/fittrack/internal/telemetry/tracing"
	"github.com/fittrackio/fittrack/pkg"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	analyzer    *Analyzer
	histCompute *prometheus.HistogramVec
}

func NewHandler(analyzer *Analyzer, histCompute *prometheus.HistogramVec) *Handler {
	return &Handler{
		analyzer:    analyzer,
		histCompute: histCompute,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	statsRouter := router.PathPrefix("/api/stats").Subrouter()
	statsRouter.HandleFunc("", handler.handleStatistics).Methods("GET", "OPTIONS").Name("stats")
	statsRouter.HandleFunc("/progress", handler.handleProgress).Methods("GET", "OPTIONS").Name("stats-progress")
	statsRouter.HandleFunc("/chart", handler.handleChart).Methods("GET", "OPTIONS").Name("stats-chart")
	statsRouter.HandleFunc("/summary", handler.handleSummary).Methods("GET", "OPTIONS").Name("stats-summary")

	router.HandleFunc("/api/workouts/{id}/zones", handler.handleZones).Methods("GET", "OPTIONS").Name("workout-zones")
}

func (handler *Handler) observeComputeTime(operation string, begin time.Time) {
	if handler.histCompute == nil {
		return
	}
	handler.histCompute.With(
		prometheus.Labels{"operation": operation},
	).Observe(time.Since(begin).Seconds())
}

func (handler *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.statistics")
	defer span.End()
	defer handler.observeComputeTime("statistics", time.Now())

	userID, ok := auth.GetUserID(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	period, err := ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	from, to, err := dateRangeFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	buckets, err := handler.analyzer.Statistics(ctx, userID, from, to, period)
	if err != nil {
		log.Errorf("failed to compute statistics for user %d: %s", userID, err)
		http.Error(w, "failed to compute statistics", http.StatusInternalServerError)
		return
	}

	writeJSON(w, buckets)
}

func (handler *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.progress")
	defer span.End()
	defer handler.observeComputeTime("progress", time.Now())

	userID, ok := auth.GetUserID(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	from, to, err := dateRangeFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	points, err := handler.analyzer.Progress(ctx, userID, from, to)
	if err != nil {
		log.Errorf("failed to compute progress for user %d: %s", userID, err)
		http.Error(w, "failed to compute progress", http.StatusInternalServerError)
		return
	}

	writeJSON(w, points)
}

func (handler *Handler) handleChart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.chart")
	defer span.End()
	defer handler.observeComputeTime("chart", time.Now())

	userID, ok := auth.GetUserID(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	period, err := ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	metric, err := ParseChartMetric(r.URL.Query().Get("metric"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	from, to, err := dateRangeFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	buckets, err := handler.analyzer.Statistics(ctx, userID, from, to, period)
	if err != nil {
		log.Errorf("failed to compute chart data for user %d: %s", userID, err)
		http.Error(w, "failed to compute chart data", http.StatusInternalServerError)
		return
	}

	writeJSON(w, ToChartSeries(buckets, metric))
}

func (handler *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.summary")
	defer span.End()
	defer handler.observeComputeTime("summary", time.Now())

	userID, ok := auth.GetUserID(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	summary, err := handler.analyzer.UserSummary(ctx, userID)
	if err != nil {
		log.Errorf("failed to compute summary for user %d: %s", userID, err)
		http.Error(w, "failed to compute summary", http.StatusInternalServerError)
		return
	}

	writeJSON(w, summary)
}

type noHeartRateDataResponse struct {
	Message string `json:"message"`
}

func (handler *Handler) handleZones(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.zones")
	defer span.End()
	defer handler.observeComputeTime("zones", time.Now())

	userID, ok := auth.GetUserID(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	idStr := mux.Vars(r)["id"]
	sessionID, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	analysis, err := handler.analyzer.HeartRateZones(ctx, userID, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoHeartRateData):
			respJson, _ := json.Marshal(noHeartRateDataResponse{
				Message: "no heart rate data for this workout",
			})
			pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusNotFound)
		case errors.Is(err, sessions.ErrSessionNotFound):
			http.Error(w, "workout not found", http.StatusNotFound)
		default:
			log.Errorf("failed to compute zones for workout %d: %s", sessionID, err)
			http.Error(w, "failed to compute heart rate zones", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, analysis)
}

// dateRangeFromRequest parses the optional start_date/end_date params.
// Absent values stay nil so the analyzer applies its defaults; present but
// malformed values are rejected.
func dateRangeFromRequest(r *http.Request) (from, to *time.Time, err error) {
	query := r.URL.Query()
	if startDateStr := query.Get("start_date"); startDateStr != "" {
		startDate, err := time.Parse("2006-01-02", startDateStr)
		if err != nil {
			return nil, nil, errors.New("invalid start_date")
		}
		from = &startDate
	}
	if endDateStr := query.Get("end_date"); endDateStr != "" {
		endDate, err := time.Parse("2006-01-02", endDateStr)
		if err != nil {
			return nil, nil, errors.New("invalid end_date")
		}
		to = &endDate
	}
	return from, to, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	respJson, err := json.Marshal(v)
	if err != nil {
		log.Errorf("failed to marshal stats response: %s", err)
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}
