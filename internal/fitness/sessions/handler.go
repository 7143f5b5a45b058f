package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fittrackio/fittrack/internal/auth"
	"github.com/fittrackio/fittrack/internal/fitness/metrics"
	"github.com/fittrackio/fittrack/internal/telemetry/tracing"
	"github.com/fittrackio/fittrack/pkg"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=sessions_mocks_test.go -package=sessions_test

type sessionsRepo interface {
	Add(ctx context.Context, session Session) (*Session, error)
	Get(ctx context.Context, userID, id int) (*Session, error)
	Update(ctx context.Context, session *Session) error
	Delete(ctx context.Context, userID, id int) error
	ListAll(ctx context.Context, params SessionParams) ([]Session, error)
	List(ctx context.Context, params ListParams) (_ []Session, total int, err error)
	Count(ctx context.Context, params SessionParams) (int, error)
}

type metricsRepo interface {
	Add(ctx context.Context, metric metrics.Metric) (*metrics.Metric, error)
	Get(ctx context.Context, id int) (*metrics.Metric, error)
	ListBySession(ctx context.Context, sessionID int) ([]metrics.Metric, error)
	Delete(ctx context.Context, id int) error
}

type ListResponse struct {
	Sessions []SummaryView `json:"sessions"`
	Total    int           `json:"total"`
}

type DeleteSessionResponse struct {
	DeletedID int `json:"deletedId"`
}

type Handler struct {
	repo                  sessionsRepo
	metricsRepo           metricsRepo
	counterWorkoutsLogged prometheus.Counter
	counterMetricReadings prometheus.Counter
}

func NewHandler(
	repo sessionsRepo,
	metricsRepo metricsRepo,
	counterWorkoutsLogged prometheus.Counter,
	counterMetricReadings prometheus.Counter,
) *Handler {
	return &Handler{
		repo:                  repo,
		metricsRepo:           metricsRepo,
		counterWorkoutsLogged: counterWorkoutsLogged,
		counterMetricReadings: counterMetricReadings,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	workoutsRouter := router.PathPrefix("/api/workouts").Subrouter()
	workoutsRouter.HandleFunc("", handler.handleAdd).Methods("POST", "OPTIONS").Name("add-workout")
	workoutsRouter.HandleFunc("", handler.handleList).Methods("GET", "OPTIONS").Name("list-workouts")
	workoutsRouter.HandleFunc("/{id}", handler.handleGet).Methods("GET", "OPTIONS").Name("get-workout")
	workoutsRouter.HandleFunc("/{id}", handler.handleUpdate).Methods("PUT", "OPTIONS").Name("update-workout")
	workoutsRouter.HandleFunc("/{id}", handler.handleDelete).Methods("DELETE", "OPTIONS").Name("delete-workout")
	workoutsRouter.HandleFunc("/{id}/metrics", handler.handleAddMetric).Methods("POST", "OPTIONS").Name("add-workout-metric")
	workoutsRouter.HandleFunc("/{id}/metrics", handler.handleListMetrics).Methods("GET", "OPTIONS").Name("list-workout-metrics")

	metricsRouter := router.PathPrefix("/api/metrics").Subrouter()
	metricsRouter.HandleFunc("/{id}", handler.handleDeleteMetric).Methods("DELETE", "OPTIONS").Name("delete-metric")
}

func (handler *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.add")
	defer span.End()

	userID, ok := auth.GetUserID(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var session Session
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		log.Tracef("new workout, unmarshal json params: %s", err)
		http.Error(w, "add workout failed", http.StatusBadRequest)
		return
	}

	session.UserID = userID
	session.RecomputeDuration()
	if err := session.Validate(time.Now()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	addedSession, err := handler.repo.Add(ctx, session)
	if err != nil {
		log.Errorf("failed to add new workout for user %d: %s", userID, err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}

	handler.counterWorkoutsLogged.Inc()

	sessionJson, err := json.Marshal(addedSession)
	if err != nil {
		log.Errorf("failed to marshal new workout: %s", err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}

	log.Debugf("new workout %d added for user %d", addedSession.ID, userID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, sessionJson, http.StatusCreated)
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	userID, ok := auth.GetUserID(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	params, err := listParamsFromRequest(r, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sessions, total, err := handler.repo.List(ctx, params)
	if err != nil {
		log.Errorf("failed to list workouts for user %d: %s", userID, err)
		http.Error(w, "failed to list workouts", http.StatusInternalServerError)
		return
	}

	summaries := make([]SummaryView, 0, len(sessions))
	for i := range sessions {
		summaries = append(summaries, sessions[i].ToSummaryView())
	}

	respJson, err := json.Marshal(ListResponse{
		Sessions: summaries,
		Total:    total,
	})
	if err != nil {
		log.Errorf("failed to marshal workouts list: %s", err)
		http.Error(w, "failed to list workouts", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	userID, ok := auth.GetUserID(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, err := sessionIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get workout %d: %s", id, err)
		http.Error(w, "failed to get workout", http.StatusInternalServerError)
		return
	}

	sessionMetrics, err := handler.metricsRepo.ListBySession(ctx, session.ID)
	if err != nil {
		log.Errorf("failed to get metrics of workout %d: %s", id, err)
		http.Error(w, "failed to get workout", http.StatusInternalServerError)
		return
	}
	if sessionMetrics == nil {
		sessionMetrics = []metrics.Metric{}
	}

	detailJson, err := json.Marshal(DetailView{
		Session: *session,
		Metrics: sessionMetrics,
	})
	if err != nil {
		log.Errorf("failed to marshal workout %d: %s", id, err)
		http.Error(w, "failed to get workout", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, detailJson, http.StatusOK)
}

func (handler *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.update")
	defer span.End()

	userID, ok := auth.GetUserID(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, err := sessionIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get workout %d: %s", id, err)
		http.Error(w, "failed to update workout", http.StatusInternalServerError)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(session); err != nil {
		log.Tracef("update workout, unmarshal json params: %s", err)
		http.Error(w, "update workout failed", http.StatusBadRequest)
		return
	}

	// id and owner are never taken from the payload
	session.ID = id
	session.UserID = userID
	session.RecomputeDuration()
	if err := session.Validate(time.Now()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(ctx, session); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update workout %d: %s", id, err)
		http.Error(w, "failed to update workout", http.StatusInternalServerError)
		return
	}

	sessionJson, err := json.Marshal(session)
	if err != nil {
		log.Errorf("failed to marshal workout %d: %s", id, err)
		http.Error(w, "failed to update workout", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, sessionJson, http.StatusOK)
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	userID, ok := auth.GetUserID(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, err := sessionIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete workout %d: %s", id, err)
		http.Error(w, "failed to delete workout", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(DeleteSessionResponse{DeletedID: id})
	if err != nil {
		http.Error(w, "failed to delete workout", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func sessionIDFromRequest(r *http.Request) (int, error) {
	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		return 0, errors.New("error, id empty")
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, errors.New("error, id NaN")
	}
	return id, nil
}

func listParamsFromRequest(r *http.Request, userID int) (ListParams, error) {
	params := ListParams{
		SessionParams: SessionParams{UserID: userID},
		Page:          1,
		Size:          50,
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			return ListParams{}, errors.New("invalid page")
		}
		params.Page = page
	}
	if sizeStr := query.Get("size"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil || size < 1 {
			return ListParams{}, errors.New("invalid size")
		}
		params.Size = size
	}
	if workoutType := query.Get("workout_type"); workoutType != "" {
		wt := WorkoutType(workoutType)
		if !wt.Valid() {
			return ListParams{}, errors.New("invalid workout_type")
		}
		params.WorkoutType = wt
	}
	if startDateStr := query.Get("start_date"); startDateStr != "" {
		startDate, err := time.Parse("2006-01-02", startDateStr)
		if err != nil {
			return ListParams{}, errors.New("invalid start_date")
		}
		params.From = &startDate
	}
	if endDateStr := query.Get("end_date"); endDateStr != "" {
		endDate, err := time.Parse("2006-01-02", endDateStr)
		if err != nil {
			return ListParams{}, errors.New("invalid end_date")
		}
		params.To = &endDate
	}

	return params, nil
}
