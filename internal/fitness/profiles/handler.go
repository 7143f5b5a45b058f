package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fittrackio/fittrack/internal/auth"
	"github.com/fittrackio/fittrack/internal/telemetry/tracing"
	"github.com/fittrackio/fittrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=profiles_mocks_test.go -package=profiles_test

type profilesRepo interface {
	GetByUserID(ctx context.Context, userID int) (*Profile, error)
	Update(ctx context.Context, profile *Profile) error
}

// ProfileResponse is the profile together with its derived values.
type ProfileResponse struct {
	Profile
	BMI          *float64 `json:"bmi,omitempty"`
	MaxHeartRate int      `json:"maxHeartRate"`
}

type Handler struct {
	repo profilesRepo
}

func NewHandler(repo profilesRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	profileRouter := router.PathPrefix("/api/profile").Subrouter()
	profileRouter.HandleFunc("", handler.handleGet).Methods("GET", "OPTIONS").Name("get-profile")
	profileRouter.HandleFunc("", handler.handleUpdate).Methods("PUT", "OPTIONS").Name("update-profile")
}

func (handler *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profiles.get")
	defer span.End()

	userID, ok := auth.GetUserID(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	profile, err := handler.repo.GetByUserID(ctx, userID)
	if err != nil {
		log.Errorf("failed to get profile for user %d: %s", userID, err)
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	}

	writeProfileResponse(w, profile)
}

type updateProfileRequest struct {
	Age         *int         `json:"age"`
	WeightKg    *float64     `json:"weightKg"`
	HeightCm    *float64     `json:"heightCm"`
	FitnessGoal *FitnessGoal `json:"fitnessGoal"`
}

func (handler *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profiles.update")
	defer span.End()

	userID, ok := auth.GetUserID(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("update profile, unmarshal json params: %s", err)
		http.Error(w, "update profile failed", http.StatusBadRequest)
		return
	}

	profile, err := handler.repo.GetByUserID(ctx, userID)
	if err != nil {
		log.Errorf("failed to get profile for user %d: %s", userID, err)
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	}

	if req.Age != nil {
		profile.Age = req.Age
	}
	if req.WeightKg != nil {
		profile.WeightKg = req.WeightKg
	}
	if req.HeightCm != nil {
		profile.HeightCm = req.HeightCm
	}
	if req.FitnessGoal != nil {
		profile.FitnessGoal = *req.FitnessGoal
	}

	if err := profile.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(ctx, profile); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update profile for user %d: %s", userID, err)
		http.Error(w, "update profile failed", http.StatusInternalServerError)
		return
	}

	writeProfileResponse(w, profile)
}

func writeProfileResponse(w http.ResponseWriter, profile *Profile) {
	resp := ProfileResponse{
		Profile:      *profile,
		BMI:          profile.BMI(),
		MaxHeartRate: profile.MaxHeartRate(),
	}
	respJson, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("failed to marshal profile: %s", err)
		http.Error(w, "failed to marshal profile", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}
