// Package portal is the typed HTTP client for the Guru-IT backend. Every
// method is a thin wrapper over one REST endpoint; the session layer on top
// owns tokens and persisted state.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken installs the bearer token used on authenticated calls. An empty
// string clears it. Safe to call while requests are in flight.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// APIError carries the server's best-effort failure message alongside the
// HTTP status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Profile struct {
	Email      string `json:"email,omitempty"`
	Password   string `json:"password,omitempty"`
	Name       string `json:"name"`
	RegNo      string `json:"reg_no"`
	Level      string `json:"level,omitempty"`
	School     string `json:"school,omitempty"`
	Department string `json:"department,omitempty"`
	Track      string `json:"track"`
	Role       string `json:"role,omitempty"`
}

type AuthResult struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

type CheckInRecord struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	RegNo        string `json:"reg_no"`
	Track        string `json:"track"`
	Status       string `json:"status"`
	CheckInTime  string `json:"checkInTime"`
	CheckOutTime string `json:"checkOutTime"`
	TotalTime    string `json:"totalTime"`
}

type Assignment struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Track        string   `json:"track"`
	IsGroup      bool     `json:"is_group"`
	GroupMembers []string `json:"group_members"`
	FileName     string   `json:"file_name"`
	FileURL      string   `json:"file_url"`
	DueDate      string   `json:"due_date"`
}

type AssignmentDraft struct {
	Title        string
	Description  string
	Track        string
	IsGroup      bool
	GroupMembers []string
	DueDate      string
	FilePath     string
}

func (c *Client) Login(ctx context.Context, creds Credentials) (AuthResult, error) {
	var result AuthResult
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", creds, &result)
	if err != nil {
		return AuthResult{}, err
	}
	if result.Token == "" {
		return AuthResult{}, &APIError{StatusCode: http.StatusOK, Message: "login response missing token"}
	}
	return result, nil
}

func (c *Client) Register(ctx context.Context, profile Profile) (AuthResult, error) {
	var result AuthResult
	err := c.doJSON(ctx, http.MethodPost, "/register", profile, &result)
	if err != nil {
		return AuthResult{}, err
	}
	if result.Token == "" {
		return AuthResult{}, &APIError{StatusCode: http.StatusOK, Message: "register response missing token"}
	}
	return result, nil
}

func (c *Client) CheckIn(ctx context.Context, at time.Time, profile Profile) (CheckInRecord, error) {
	payload := map[string]string{
		"checkInTime": at.UTC().Format(time.RFC3339),
		"name":        profile.Name,
		"reg_no":      profile.RegNo,
		"track":       profile.Track,
		"status":      "pending",
	}
	var record CheckInRecord
	if err := c.doJSON(ctx, http.MethodPost, "/checkin", payload, &record); err != nil {
		return CheckInRecord{}, err
	}
	return record, nil
}

func (c *Client) CheckOut(ctx context.Context, at time.Time, totalTime string) (CheckInRecord, error) {
	payload := map[string]string{
		"checkOutTime": at.UTC().Format(time.RFC3339),
		"totalTime":    totalTime,
	}
	var record CheckInRecord
	if err := c.doJSON(ctx, http.MethodPost, "/checkout", payload, &record); err != nil {
		return CheckInRecord{}, err
	}
	return record, nil
}

// CheckInToday returns today's open record, or ok=false when none exists.
func (c *Client) CheckInToday(ctx context.Context) (CheckInRecord, bool, error) {
	var record CheckInRecord
	err := c.doJSON(ctx, http.MethodGet, "/checkin/today", nil, &record)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return CheckInRecord{}, false, nil
		}
		return CheckInRecord{}, false, err
	}
	return record, true, nil
}

func (c *Client) ListUsers(ctx context.Context, track string) ([]Profile, error) {
	path := "/admin/users"
	if track != "" {
		path += "?track=" + url.QueryEscape(track)
	}
	var result struct {
		Users []Profile `json:"users"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Users, nil
}

func (c *Client) ListPendingCheckIns(ctx context.Context) ([]CheckInRecord, error) {
	var result struct {
		CheckIns []CheckInRecord `json:"checkins"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/admin/checkins?status=pending", nil, &result); err != nil {
		return nil, err
	}
	return result.CheckIns, nil
}

func (c *Client) UpdateCheckInStatus(ctx context.Context, checkInID, status string) error {
	payload := map[string]string{"status": status}
	return c.doJSON(ctx, http.MethodPut, "/admin/checkin/"+url.PathEscape(checkInID)+"/status", payload, nil)
}

func (c *Client) ListAssignments(ctx context.Context) ([]Assignment, error) {
	var result struct {
		Assignments []Assignment `json:"assignments"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/admin/assignments", nil, &result); err != nil {
		return nil, err
	}
	return result.Assignments, nil
}

func (c *Client) CurrentAssignment(ctx context.Context) (Assignment, error) {
	var assignment Assignment
	if err := c.doJSON(ctx, http.MethodGet, "/current-assignment", nil, &assignment); err != nil {
		return Assignment{}, err
	}
	return assignment, nil
}

func (c *Client) CreateAssignment(ctx context.Context, draft AssignmentDraft) (Assignment, error) {
	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	_ = writer.WriteField("title", draft.Title)
	_ = writer.WriteField("description", draft.Description)
	_ = writer.WriteField("track", draft.Track)
	if draft.IsGroup {
		_ = writer.WriteField("is_group", "true")
	}
	if len(draft.GroupMembers) > 0 {
		_ = writer.WriteField("group_members", strings.Join(draft.GroupMembers, ","))
	}
	if draft.DueDate != "" {
		_ = writer.WriteField("due_date", draft.DueDate)
	}
	if draft.FilePath != "" {
		file, err := os.Open(draft.FilePath)
		if err != nil {
			return Assignment{}, err
		}
		part, err := writer.CreateFormFile("file", filepath.Base(draft.FilePath))
		if err != nil {
			file.Close()
			return Assignment{}, err
		}
		if _, err := io.Copy(part, file); err != nil {
			file.Close()
			return Assignment{}, err
		}
		file.Close()
	}
	if err := writer.Close(); err != nil {
		return Assignment{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/admin/assignments", &form)
	if err != nil {
		return Assignment{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	var assignment Assignment
	if err := c.send(req, &assignment); err != nil {
		return Assignment{}, err
	}
	return assignment, nil
}

func (c *Client) AttendanceByDate(ctx context.Context, date string) ([]CheckInRecord, error) {
	path := "/admin/attendance"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var result struct {
		Attendance []CheckInRecord `json:"attendance"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Attendance, nil
}

// AttendanceCSV streams the day's export into w.
func (c *Client) AttendanceCSV(ctx context.Context, date string, w io.Writer) error {
	path := "/admin/attendance/csv"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return extractError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return extractError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// extractError pulls a readable message out of a failure response. JSON
// bodies may carry either an "error" code or a "message"; anything else is
// used as plain text, with a generic fallback.
func extractError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := strings.TrimSpace(string(body))

	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			message = parsed.Message
		} else if parsed.Error != "" {
			message = parsed.Error
		}
	}
	if message == "" {
		message = "request failed"
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
