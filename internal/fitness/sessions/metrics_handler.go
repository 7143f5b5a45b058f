package sessions

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fittrackio/fittrack/internal/auth"
	"github.com/fittrackio/fittrack/internal/fitness/metrics"
	"github.com/fittrackio/fittrack/internal/telemetry/tracing"
	"github.com/fittrackio/fittrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type DeleteMetricResponse struct {
	DeletedID int `json:"deletedId"`
}

func (handler *Handler) handleAddMetric(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.addMetric")
	defer span.End()

	userID, ok := auth.GetUserID(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	sessionID, err := sessionIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// the session lookup doubles as the ownership check
	session, err := handler.repo.Get(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get workout %d: %s", sessionID, err)
		http.Error(w, "failed to add metric", http.StatusInternalServerError)
		return
	}

	var metric metrics.Metric
	if err := json.NewDecoder(r.Body).Decode(&metric); err != nil {
		log.Tracef("new metric, unmarshal json params: %s", err)
		http.Error(w, "add metric failed", http.StatusBadRequest)
		return
	}

	metric.SessionID = session.ID
	if err := metric.Validate(session.StartTime, session.EndTime); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	addedMetric, err := handler.metricsRepo.Add(ctx, metric)
	if err != nil {
		log.Errorf("failed to add metric to workout %d: %s", sessionID, err)
		http.Error(w, "error, failed to add metric", http.StatusInternalServerError)
		return
	}

	handler.counterMetricReadings.Inc()

	metricJson, err := json.Marshal(addedMetric)
	if err != nil {
		log.Errorf("failed to marshal new metric: %s", err)
		http.Error(w, "error, failed to add metric", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, metricJson, http.StatusCreated)
}

func (handler *Handler) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.listMetrics")
	defer span.End()

	userID, ok := auth.GetUserID(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	sessionID, err := sessionIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session, err := handler.repo.Get(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get workout %d: %s", sessionID, err)
		http.Error(w, "failed to list metrics", http.StatusInternalServerError)
		return
	}

	sessionMetrics, err := handler.metricsRepo.ListBySession(ctx, session.ID)
	if err != nil {
		log.Errorf("failed to list metrics of workout %d: %s", sessionID, err)
		http.Error(w, "failed to list metrics", http.StatusInternalServerError)
		return
	}
	if sessionMetrics == nil {
		sessionMetrics = []metrics.Metric{}
	}

	metricsJson, err := json.Marshal(sessionMetrics)
	if err != nil {
		log.Errorf("failed to marshal metrics of workout %d: %s", sessionID, err)
		http.Error(w, "failed to list metrics", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, metricsJson, http.StatusOK)
}

func (handler *Handler) handleDeleteMetric(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.deleteMetric")
	defer span.End()

	userID, ok := auth.GetUserID(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	metric, err := handler.metricsRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, metrics.ErrMetricNotFound) {
			http.Error(w, "metric not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get metric %d: %s", id, err)
		http.Error(w, "failed to delete metric", http.StatusInternalServerError)
		return
	}

	// ownership goes through the parent session
	if _, err := handler.repo.Get(ctx, userID, metric.SessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "metric not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get workout %d: %s", metric.SessionID, err)
		http.Error(w, "failed to delete metric", http.StatusInternalServerError)
		return
	}

	if err := handler.metricsRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, metrics.ErrMetricNotFound) {
			http.Error(w, "metric not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete metric %d: %s", id, err)
		http.Error(w, "failed to delete metric", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(DeleteMetricResponse{DeletedID: id})
	if err != nil {
		http.Error(w, "failed to delete metric", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}
