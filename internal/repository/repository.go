package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"guruit/internal/model"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, name, reg_no, level, school, department, track, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, user.ID, user.Email, user.PasswordHash, user.Name, user.RegNo, user.Level, user.School, user.Department, user.Track, user.Role, user.CreatedAt, user.UpdatedAt)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, name, reg_no, level, school, department, track, role, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.RegNo,
		&user.Level,
		&user.School,
		&user.Department,
		&user.Track,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	var user model.User
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, name, reg_no, level, school, department, track, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.RegNo,
		&user.Level,
		&user.School,
		&user.Department,
		&user.Track,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (s *Store) ListUsers(ctx context.Context, track string, limit int) ([]model.User, error) {
	query := `
		SELECT id, email, password_hash, name, reg_no, level, school, department, track, role, created_at, updated_at
		FROM users
		WHERE ($1 = '' OR track = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, track, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var user model.User
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.PasswordHash,
			&user.Name,
			&user.RegNo,
			&user.Level,
			&user.School,
			&user.Department,
			&user.Track,
			&user.Role,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) CreateCheckIn(ctx context.Context, checkIn model.CheckIn) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO checkins (id, user_id, name, reg_no, track, status, check_in_time, check_out_time, total_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, checkIn.ID, checkIn.UserID, checkIn.Name, checkIn.RegNo, checkIn.Track, checkIn.Status, checkIn.CheckInTime, checkIn.CheckOutTime, checkIn.TotalTime, checkIn.CreatedAt, checkIn.UpdatedAt)
	return err
}

func (s *Store) GetCheckIn(ctx context.Context, checkInID string) (model.CheckIn, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, reg_no, track, status, check_in_time, check_out_time, total_time, created_at, updated_at
		FROM checkins
		WHERE id = $1
	`, checkInID)
	return scanCheckIn(row)
}

// GetOpenCheckIn returns the caller's unclosed check-in whose check_in_time
// falls in [from, to).
func (s *Store) GetOpenCheckIn(ctx context.Context, userID string, from, to time.Time) (model.CheckIn, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, reg_no, track, status, check_in_time, check_out_time, total_time, created_at, updated_at
		FROM checkins
		WHERE user_id = $1 AND check_out_time IS NULL AND check_in_time >= $2 AND check_in_time < $3
		ORDER BY check_in_time DESC
		LIMIT 1
	`, userID, from, to)
	return scanCheckIn(row)
}

func (s *Store) CloseCheckIn(ctx context.Context, checkInID string, checkOutTime time.Time, totalTime string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE checkins
		SET check_out_time = $1, total_time = $2, updated_at = $3
		WHERE id = $4
	`, checkOutTime, totalTime, time.Now().UTC(), checkInID)
	return err
}

func (s *Store) UpdateCheckInStatus(ctx context.Context, checkInID string, status model.CheckInStatus) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE checkins
		SET status = $1, updated_at = $2
		WHERE id = $3
	`, status, time.Now().UTC(), checkInID)
	return err
}

func (s *Store) ListCheckInsByStatus(ctx context.Context, status model.CheckInStatus, limit int) ([]model.CheckIn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, reg_no, track, status, check_in_time, check_out_time, total_time, created_at, updated_at
		FROM checkins
		WHERE status = $1
		ORDER BY check_in_time DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCheckIns(rows)
}

// ListCheckInsBetween returns every check-in whose check_in_time falls in
// [from, to), newest first.
func (s *Store) ListCheckInsBetween(ctx context.Context, from, to time.Time) ([]model.CheckIn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, reg_no, track, status, check_in_time, check_out_time, total_time, created_at, updated_at
		FROM checkins
		WHERE check_in_time >= $1 AND check_in_time < $2
		ORDER BY check_in_time DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCheckIns(rows)
}

// ListOpenCheckInsBefore returns check-ins still open whose check_in_time is
// older than cutoff. Used by the overnight sweep.
func (s *Store) ListOpenCheckInsBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.CheckIn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, reg_no, track, status, check_in_time, check_out_time, total_time, created_at, updated_at
		FROM checkins
		WHERE check_out_time IS NULL AND check_in_time < $1
		ORDER BY check_in_time ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCheckIns(rows)
}

func (s *Store) CreateAssignment(ctx context.Context, assignment model.Assignment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO assignments (id, title, description, track, is_group, group_members, file_name, file_path, due_date, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, assignment.ID, assignment.Title, assignment.Description, assignment.Track, assignment.IsGroup, assignment.GroupMembers, assignment.FileName, assignment.FilePath, assignment.DueDate, assignment.CreatedBy, assignment.CreatedAt)
	return err
}

func (s *Store) ListAssignments(ctx context.Context, limit int) ([]model.Assignment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, description, track, is_group, group_members, file_name, file_path, due_date, created_by, created_at
		FROM assignments
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		assignment, err := scanAssignmentRow(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	return assignments, rows.Err()
}

// GetCurrentAssignment returns the newest assignment posted for a track.
func (s *Store) GetCurrentAssignment(ctx context.Context, track string) (model.Assignment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, title, description, track, is_group, group_members, file_name, file_path, due_date, created_by, created_at
		FROM assignments
		WHERE track = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, track)
	return scanAssignmentRow(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckIn(row rowScanner) (model.CheckIn, error) {
	var checkIn model.CheckIn
	err := row.Scan(
		&checkIn.ID,
		&checkIn.UserID,
		&checkIn.Name,
		&checkIn.RegNo,
		&checkIn.Track,
		&checkIn.Status,
		&checkIn.CheckInTime,
		&checkIn.CheckOutTime,
		&checkIn.TotalTime,
		&checkIn.CreatedAt,
		&checkIn.UpdatedAt,
	)
	return checkIn, err
}

func scanAssignmentRow(row rowScanner) (model.Assignment, error) {
	var assignment model.Assignment
	err := row.Scan(
		&assignment.ID,
		&assignment.Title,
		&assignment.Description,
		&assignment.Track,
		&assignment.IsGroup,
		&assignment.GroupMembers,
		&assignment.FileName,
		&assignment.FilePath,
		&assignment.DueDate,
		&assignment.CreatedBy,
		&assignment.CreatedAt,
	)
	return assignment, err
}

func collectCheckIns(rows interface {
	rowScanner
	Next() bool
	Err() error
}) ([]model.CheckIn, error) {
	var checkIns []model.CheckIn
	for rows.Next() {
		checkIn, err := scanCheckIn(rows)
		if err != nil {
			return nil, err
		}
		checkIns = append(checkIns, checkIn)
	}
	return checkIns, rows.Err()
}
