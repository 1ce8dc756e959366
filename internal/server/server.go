package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"guruit/internal/auth"
	"guruit/internal/config"
	"guruit/internal/crypto"
	"guruit/internal/model"
	"guruit/internal/repository"
)

type Server struct {
	cfg   config.Config
	store *repository.Store
	redis *redis.Client
}

func NewServer(cfg config.Config, store *repository.Store, redisClient *redis.Client) *Server {
	return &Server{
		cfg:   cfg,
		store: store,
		redis: redisClient,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/login", s.handleLogin)
	r.Post("/register", s.handleRegister)

	r.With(s.authMiddleware).Post("/checkin", s.handleCheckIn)
	r.With(s.authMiddleware).Post("/checkout", s.handleCheckOut)
	r.With(s.authMiddleware).Get("/checkin/today", s.handleCheckInToday)
	r.With(s.authMiddleware).Get("/current-assignment", s.handleCurrentAssignment)

	r.With(s.authMiddleware, s.requireAdmin).Get("/admin/users", s.handleListUsers)
	r.With(s.authMiddleware, s.requireAdmin).Get("/admin/checkins", s.handleListCheckIns)
	r.With(s.authMiddleware, s.requireAdmin).Put("/admin/checkin/{checkinId}/status", s.handleReviewCheckIn)
	r.With(s.authMiddleware, s.requireAdmin).Get("/admin/assignments", s.handleListAssignments)
	r.With(s.authMiddleware, s.requireAdmin).Post("/admin/assignments", s.handleCreateAssignment)
	r.With(s.authMiddleware, s.requireAdmin).Get("/admin/attendance", s.handleAttendanceByDate)
	r.With(s.authMiddleware, s.requireAdmin).Get("/admin/attendance/csv", s.handleAttendanceCSV)

	return r
}

// Auth

type claimsKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil || claims.Role != "admin" {
			writeError(w, http.StatusForbidden, "admin_only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

// Models

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	RegNo      string `json:"reg_no"`
	Level      string `json:"level"`
	School     string `json:"school"`
	Department string `json:"department"`
	Track      string `json:"track"`
	Role       string `json:"role"`
}

type userSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	RegNo string `json:"reg_no"`
	Track string `json:"track"`
	Role  string `json:"role"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  userSummary `json:"user"`
}

type checkInRequest struct {
	CheckInTime string `json:"checkInTime"`
	Name        string `json:"name"`
	RegNo       string `json:"reg_no"`
	Track       string `json:"track"`
	Status      string `json:"status"`
}

type checkOutRequest struct {
	CheckOutTime string `json:"checkOutTime"`
	TotalTime    string `json:"totalTime"`
}

type checkInResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	RegNo        string `json:"reg_no"`
	Track        string `json:"track"`
	Status       string `json:"status"`
	CheckInTime  string `json:"checkInTime"`
	CheckOutTime string `json:"checkOutTime,omitempty"`
	TotalTime    string `json:"totalTime,omitempty"`
}

type reviewCheckInRequest struct {
	Status string `json:"status"`
}

type assignmentResponse struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Track        string   `json:"track"`
	IsGroup      bool     `json:"is_group"`
	GroupMembers []string `json:"group_members,omitempty"`
	FileName     string   `json:"file_name,omitempty"`
	FileURL      string   `json:"file_url,omitempty"`
	DueDate      string   `json:"due_date,omitempty"`
	CreatedAt    int64    `json:"createdAt"`
}

// Handlers

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: mapUserSummary(user)})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Role = strings.TrimSpace(strings.ToLower(req.Role))
	if req.Role == "" {
		req.Role = "user"
	}
	if req.Email == "" || req.Password == "" || req.Name == "" || req.RegNo == "" || req.Track == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	if !isValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid_role")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "password_hash_failed")
		return
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		RegNo:        req.RegNo,
		Level:        req.Level,
		School:       req.School,
		Department:   req.Department,
		Track:        req.Track,
		Role:         req.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeError(w, http.StatusConflict, "email_exists")
			return
		}
		writeError(w, http.StatusBadRequest, "user_create_failed")
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: mapUserSummary(user)})
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req checkInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	checkInTime := time.Now().UTC()
	if req.CheckInTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.CheckInTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_check_in_time")
			return
		}
		checkInTime = parsed.UTC()
	}

	from, to := dayBounds(checkInTime)
	if _, err := s.store.GetOpenCheckIn(r.Context(), claims.UserID, from, to); err == nil {
		writeError(w, http.StatusConflict, "already_checked_in")
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	name := strings.TrimSpace(req.Name)
	regNo := strings.TrimSpace(req.RegNo)
	track := strings.TrimSpace(req.Track)
	if name == "" || regNo == "" || track == "" {
		// The stored profile, not the token's claims, fills the gaps:
		// claims can lag a profile change by a whole token lifetime.
		user, err := s.store.GetUserByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, http.StatusUnauthorized, "user_not_found")
				return
			}
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		if name == "" {
			name = user.Name
		}
		if regNo == "" {
			regNo = user.RegNo
		}
		if track == "" {
			track = user.Track
		}
	}

	now := time.Now().UTC()
	checkIn := model.CheckIn{
		ID:          uuid.NewString(),
		UserID:      claims.UserID,
		Name:        name,
		RegNo:       regNo,
		Track:       track,
		// Status is server-authoritative: every fresh check-in starts
		// pending regardless of what the client sent.
		Status:      model.CheckInStatusPending,
		CheckInTime: checkInTime,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateCheckIn(r.Context(), checkIn); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeError(w, http.StatusConflict, "already_checked_in")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := mapCheckIn(checkIn)
	s.cacheOpenCheckIn(r.Context(), claims.UserID, resp, to)
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req checkOutRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
	}

	checkOutTime := time.Now().UTC()
	if req.CheckOutTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.CheckOutTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_check_out_time")
			return
		}
		checkOutTime = parsed.UTC()
	}

	from, to := dayBounds(checkOutTime)
	checkIn, err := s.store.GetOpenCheckIn(r.Context(), claims.UserID, from, to)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not_checked_in")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	totalTime := strings.TrimSpace(req.TotalTime)
	if totalTime == "" {
		totalTime = formatElapsed(checkOutTime.Sub(checkIn.CheckInTime))
	}
	if err := s.store.CloseCheckIn(r.Context(), checkIn.ID, checkOutTime, totalTime); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	s.clearOpenCheckIn(r.Context(), claims.UserID)

	checkIn.CheckOutTime = &checkOutTime
	checkIn.TotalTime = &totalTime
	writeJSON(w, http.StatusOK, mapCheckIn(checkIn))
}

func (s *Server) handleCheckInToday(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	if cached, ok := s.loadOpenCheckIn(r.Context(), claims.UserID); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	from, to := dayBounds(time.Now().UTC())
	checkIn, err := s.store.GetOpenCheckIn(r.Context(), claims.UserID, from, to)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not_checked_in")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := mapCheckIn(checkIn)
	s.cacheOpenCheckIn(r.Context(), claims.UserID, resp, to)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	track := strings.TrimSpace(r.URL.Query().Get("track"))
	limit := parseLimit(r, 100)

	users, err := s.store.ListUsers(r.Context(), track, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	summaries := make([]userSummary, 0, len(users))
	for _, user := range users {
		summaries = append(summaries, mapUserSummary(user))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": summaries})
}

func (s *Server) handleListCheckIns(w http.ResponseWriter, r *http.Request) {
	statusParam := strings.TrimSpace(r.URL.Query().Get("status"))
	if statusParam == "" {
		statusParam = string(model.CheckInStatusPending)
	}
	status, err := normalizeCheckInStatus(statusParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}
	limit := parseLimit(r, 100)

	checkIns, err := s.store.ListCheckInsByStatus(r.Context(), status, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]checkInResponse, 0, len(checkIns))
	for _, checkIn := range checkIns {
		resp = append(resp, mapCheckIn(checkIn))
	}
	writeJSON(w, http.StatusOK, map[string]any{"checkins": resp})
}

func (s *Server) handleReviewCheckIn(w http.ResponseWriter, r *http.Request) {
	checkInID := chi.URLParam(r, "checkinId")
	if _, err := uuid.Parse(checkInID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_checkin_id")
		return
	}

	var req reviewCheckInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	status, err := normalizeReviewStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}

	checkIn, err := s.store.GetCheckIn(r.Context(), checkInID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "checkin_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if checkIn.Status != model.CheckInStatusPending {
		writeError(w, http.StatusConflict, "already_reviewed")
		return
	}

	if err := s.store.UpdateCheckInStatus(r.Context(), checkInID, status); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	s.clearOpenCheckIn(r.Context(), checkIn.UserID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)
	assignments, err := s.store.ListAssignments(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]assignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		resp = append(resp, mapAssignment(assignment))
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignments": resp})
}

func (s *Server) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	track := strings.TrimSpace(r.FormValue("track"))
	if title == "" || track == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	assignment := model.Assignment{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(r.FormValue("description")),
		Track:       track,
		IsGroup:     r.FormValue("is_group") == "true",
		CreatedBy:   claims.UserID,
		CreatedAt:   time.Now().UTC(),
	}
	if members := strings.TrimSpace(r.FormValue("group_members")); members != "" {
		assignment.GroupMembers = splitMembers(members)
	}
	if raw := strings.TrimSpace(r.FormValue("due_date")); raw != "" {
		due, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_due_date")
			return
		}
		assignment.DueDate = &due
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		path, saveErr := s.saveUpload(assignment.ID, header.Filename, file)
		if saveErr != nil {
			writeError(w, http.StatusInternalServerError, "upload_failed")
			return
		}
		assignment.FileName = header.Filename
		assignment.FilePath = path
	} else if !errors.Is(err, http.ErrMissingFile) {
		writeError(w, http.StatusBadRequest, "invalid_file")
		return
	}

	if err := s.store.CreateAssignment(r.Context(), assignment); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, mapAssignment(assignment))
}

func (s *Server) handleCurrentAssignment(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	track := strings.TrimSpace(claims.Track)
	if track == "" {
		writeError(w, http.StatusNotFound, "assignment_not_found")
		return
	}

	assignment, err := s.store.GetCurrentAssignment(r.Context(), track)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "assignment_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, mapAssignment(assignment))
}

func (s *Server) handleAttendanceByDate(w http.ResponseWriter, r *http.Request) {
	day, err := attendanceDay(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	from, to := dayBounds(day)
	checkIns, err := s.store.ListCheckInsBetween(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]checkInResponse, 0, len(checkIns))
	for _, checkIn := range checkIns {
		resp = append(resp, mapCheckIn(checkIn))
	}
	writeJSON(w, http.StatusOK, map[string]any{"attendance": resp})
}

func (s *Server) handleAttendanceCSV(w http.ResponseWriter, r *http.Request) {
	day, err := attendanceDay(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	from, to := dayBounds(day)
	checkIns, err := s.store.ListCheckInsBetween(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "attendance-"+day.Format("2006-01-02")+".csv"))
	w.WriteHeader(http.StatusOK)
	_ = writeAttendanceCSV(w, checkIns)
}

// Redis cache of today's open check-in. Optional: every path falls back to
// the store when no client is configured.

func (s *Server) cacheOpenCheckIn(ctx context.Context, userID string, resp checkInResponse, expiresAt time.Time) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	_ = s.redis.Set(ctx, openCheckInKey(userID), data, ttl).Err()
}

func (s *Server) loadOpenCheckIn(ctx context.Context, userID string) (checkInResponse, bool) {
	if s.redis == nil {
		return checkInResponse{}, false
	}
	value, err := s.redis.Get(ctx, openCheckInKey(userID)).Result()
	if err != nil {
		return checkInResponse{}, false
	}
	var resp checkInResponse
	if err := json.Unmarshal([]byte(value), &resp); err != nil {
		return checkInResponse{}, false
	}
	return resp, true
}

func (s *Server) clearOpenCheckIn(ctx context.Context, userID string) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, openCheckInKey(userID)).Err()
}

func openCheckInKey(userID string) string {
	return "checkin:open:" + userID
}

// Helpers

func (s *Server) issueToken(user model.User) (string, error) {
	return auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, auth.Claims{
		UserID: user.ID,
		Name:   user.Name,
		RegNo:  user.RegNo,
		Track:  user.Track,
		Role:   user.Role,
	})
}

func (s *Server) saveUpload(assignmentID, filename string, file io.Reader) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.cfg.UploadDir, assignmentID+"-"+filepath.Base(filename))
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		return "", err
	}
	return path, nil
}

func mapUserSummary(user model.User) userSummary {
	return userSummary{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		RegNo: user.RegNo,
		Track: user.Track,
		Role:  user.Role,
	}
}

func mapCheckIn(checkIn model.CheckIn) checkInResponse {
	resp := checkInResponse{
		ID:          checkIn.ID,
		UserID:      checkIn.UserID,
		Name:        checkIn.Name,
		RegNo:       checkIn.RegNo,
		Track:       checkIn.Track,
		Status:      string(checkIn.Status),
		CheckInTime: checkIn.CheckInTime.UTC().Format(time.RFC3339),
	}
	if !checkIn.Open() {
		resp.CheckOutTime = checkIn.CheckOutTime.UTC().Format(time.RFC3339)
	}
	if checkIn.TotalTime != nil {
		resp.TotalTime = *checkIn.TotalTime
	}
	return resp
}

func mapAssignment(assignment model.Assignment) assignmentResponse {
	resp := assignmentResponse{
		ID:           assignment.ID,
		Title:        assignment.Title,
		Description:  assignment.Description,
		Track:        assignment.Track,
		IsGroup:      assignment.IsGroup,
		GroupMembers: assignment.GroupMembers,
		FileName:     assignment.FileName,
		CreatedAt:    assignment.CreatedAt.Unix(),
	}
	if assignment.FilePath != "" {
		resp.FileURL = "/" + filepath.ToSlash(assignment.FilePath)
	}
	if assignment.DueDate != nil {
		resp.DueDate = assignment.DueDate.UTC().Format("2006-01-02")
	}
	return resp
}

func isValidRole(role string) bool {
	switch role {
	case "user", "admin":
		return true
	default:
		return false
	}
}

func normalizeCheckInStatus(value string) (model.CheckInStatus, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "pending":
		return model.CheckInStatusPending, nil
	case "approved":
		return model.CheckInStatusApproved, nil
	case "rejected":
		return model.CheckInStatusRejected, nil
	default:
		return "", errors.New("invalid status")
	}
}

func normalizeReviewStatus(value string) (model.CheckInStatus, error) {
	status, err := normalizeCheckInStatus(value)
	if err != nil {
		return "", err
	}
	if status == model.CheckInStatusPending {
		return "", errors.New("invalid status")
	}
	return status, nil
}

// dayBounds returns the UTC calendar-day window containing t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.Add(24 * time.Hour)
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%d hrs %d mins", hours, minutes)
}

func splitMembers(raw string) []string {
	parts := strings.Split(raw, ",")
	members := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			members = append(members, trimmed)
		}
	}
	return members
}

func parseDate(raw string) (time.Time, error) {
	if parsed, err := time.Parse("2006-01-02", raw); err == nil {
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

func attendanceDay(r *http.Request) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return time.Now().UTC(), nil
	}
	return parseDate(raw)
}

func writeAttendanceCSV(w io.Writer, checkIns []model.CheckIn) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "name", "reg_no", "track", "status", "check_in_time", "check_out_time", "total_time"}); err != nil {
		return err
	}
	for _, checkIn := range checkIns {
		checkOut := ""
		if !checkIn.Open() {
			checkOut = checkIn.CheckOutTime.UTC().Format(time.RFC3339)
		}
		totalTime := ""
		if checkIn.TotalTime != nil {
			totalTime = *checkIn.TotalTime
		}
		record := []string{
			checkIn.ID,
			checkIn.Name,
			checkIn.RegNo,
			checkIn.Track,
			string(checkIn.Status),
			checkIn.CheckInTime.UTC().Format(time.RFC3339),
			checkOut,
			totalTime,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func parseLimit(r *http.Request, fallback int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
