package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fittrackio/fittrack/internal/telemetry/tracing"
	"github.com/fittrackio/fittrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// TokenHeader carries the session token on authenticated requests.
const TokenHeader = "X-FITTRACK-TOKEN"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router, rateLimit mux.MiddlewareFunc) {
	authSubrouter := mainRouter.PathPrefix("/api/auth").Subrouter()
	authSubrouter.HandleFunc("/register", handler.handleRegister).Methods("POST", "OPTIONS").Name("register")
	authSubrouter.HandleFunc("/login", handler.handleLogin).Methods("POST", "OPTIONS").Name("login")
	authSubrouter.HandleFunc("/logout", handler.handleLogout).Methods("POST", "OPTIONS").Name("logout")
	authSubrouter.HandleFunc("/me", handler.handleMe).Methods("GET", "OPTIONS").Name("me")

	// rate limit the register/login endpoints to prevent abuse
	authSubrouter.Use(rateLimit)
}

type tokenUserResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (handler *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.register")
	defer span.End()

	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("register, unmarshal json params: %s", err)
		http.Error(w, "register failed", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "error, username and password are required", http.StatusBadRequest)
		return
	}

	user, token, err := handler.service.Register(ctx, RegisterParams{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if errors.Is(err, ErrUsernameExists) {
			http.Error(w, "error, username already exists", http.StatusBadRequest)
			return
		}
		log.Errorf("failed to register user [%s]: %s", req.Username, err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(tokenUserResponse{Token: token, User: user})
	if err != nil {
		log.Errorf("failed to marshal register response: %s", err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	log.Debugf("new user registered: %s", user.Username)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusCreated)
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.login")
	defer span.End()

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("login, unmarshal json params: %s", err)
		http.Error(w, "login failed", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "error, username and password are required", http.StatusBadRequest)
		return
	}

	user, token, err := handler.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			if reqIp, ipErr := pkg.ReadUserIP(r); ipErr == nil {
				log.Tracef("failed login attempt for user [%s] from %s", req.Username, reqIp)
			}
			http.Error(w, "error, invalid credentials", http.StatusUnauthorized)
			return
		}
		log.Errorf("login failed for user [%s]: %s", req.Username, err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(tokenUserResponse{Token: token, User: user})
	if err != nil {
		log.Errorf("failed to marshal login response: %s", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.logout")
	defer span.End()

	token := r.Header.Get(TokenHeader)
	if token == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	loggedOut, err := handler.service.Logout(ctx, token)
	if err != nil || !loggedOut {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	pkg.WriteJSONResponseOK(w, `{"message": "successfully logged out"}`)
}

func (handler *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.me")
	defer span.End()

	userID, ok := GetUserID(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	user, err := handler.service.GetUser(ctx, userID)
	if err != nil {
		log.Errorf("failed to get user %d: %s", userID, err)
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	userJson, err := json.Marshal(user)
	if err != nil {
		log.Errorf("failed to marshal user: %s", err)
		http.Error(w, "failed to marshal user", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, userJson)
}
