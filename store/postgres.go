package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/opsec-k9/backend/db"
	"github.com/opsec-k9/backend/models"
)

// Postgres implements Store on top of the pgx pool. Tables are created by
// db/schema.sql: time_logs, training_sessions, sites, k9s, vaccinations,
// users.
type Postgres struct {
	database *db.Database
}

func NewPostgres(database *db.Database) *Postgres {
	return &Postgres{database: database}
}

// --- attendance ---

func (p *Postgres) AppendTimeLog(ctx context.Context, rec *models.AttendanceRecord) error {
	query := `
		INSERT INTO time_logs (
			user_id, lat, lon, site_id,
			inside_geofence, distance_meters, job_code, selfie,
			clock_in, approval_state
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`
	var selfie any
	if rec.Selfie != "" {
		selfie = rec.Selfie
	}

	err := p.database.Pool().QueryRow(
		ctx,
		query,
		rec.UserID,
		rec.Lat,
		rec.Lon,
		rec.SiteID,
		rec.InsideGeofence,
		rec.DistanceMeters,
		rec.JobCode,
		selfie,
		rec.ClockIn,
		rec.ApprovalState,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert time log: %w", err)
	}
	return nil
}

func (p *Postgres) TimeLog(ctx context.Context, id int64) (models.AttendanceRecord, error) {
	query := `
		SELECT id, user_id, lat, lon, site_id,
		       inside_geofence, distance_meters, job_code, selfie,
		       clock_in, approval_state
		FROM time_logs
		WHERE id = $1
	`
	rec, err := scanTimeLog(p.database.Pool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.AttendanceRecord{}, ErrNotFound
	}
	return rec, err
}

func (p *Postgres) TimeLogs(ctx context.Context, f TimeLogFilter) ([]models.AttendanceRecord, error) {
	where := "1=1"
	args := []any{}
	argN := 1

	if f.UserID != "" {
		where += fmt.Sprintf(" AND user_id = $%d", argN)
		args = append(args, f.UserID)
		argN++
	}
	if f.State != "" {
		where += fmt.Sprintf(" AND approval_state = $%d", argN)
		args = append(args, f.State)
		argN++
	}
	if f.From != nil {
		where += fmt.Sprintf(" AND clock_in >= $%d", argN)
		args = append(args, *f.From)
		argN++
	}
	if f.To != nil {
		where += fmt.Sprintf(" AND clock_in < $%d", argN)
		args = append(args, *f.To)
		argN++
	}

	limit := ""
	if f.Limit > 0 {
		limit = fmt.Sprintf(" LIMIT $%d", argN)
		args = append(args, f.Limit)
		argN++
	}
	offset := ""
	if f.Offset > 0 {
		offset = fmt.Sprintf(" OFFSET $%d", argN)
		args = append(args, f.Offset)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, lat, lon, site_id,
		       inside_geofence, distance_meters, job_code, selfie,
		       clock_in, approval_state
		FROM time_logs
		WHERE %s
		ORDER BY id%s%s
	`, where, limit, offset)

	rows, err := p.database.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query time logs: %w", err)
	}
	defer rows.Close()

	out := []models.AttendanceRecord{}
	for rows.Next() {
		rec, err := scanTimeLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) SetApproval(ctx context.Context, id int64, state models.ApprovalState) error {
	// Compare-and-set: only a pending row transitions. The WHERE guard
	// makes concurrent double approval impossible at the database level.
	cmd, err := p.database.Pool().Exec(ctx, `
		UPDATE time_logs
		SET approval_state = $2
		WHERE id = $1 AND approval_state = 'pending'
	`, id, state)
	if err != nil {
		return fmt.Errorf("update approval state: %w", err)
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	// Nothing changed: either the id is unknown or the record already
	// reached a terminal state.
	var existing models.ApprovalState
	err = p.database.Pool().QueryRow(ctx,
		`SELECT approval_state FROM time_logs WHERE id = $1`, id).Scan(&existing)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check approval state: %w", err)
	}
	return ErrInvalidState
}

func scanTimeLog(row pgx.Row) (models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	var selfie pgtype.Text

	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Lat,
		&rec.Lon,
		&rec.SiteID,
		&rec.InsideGeofence,
		&rec.DistanceMeters,
		&rec.JobCode,
		&selfie,
		&rec.ClockIn,
		&rec.ApprovalState,
	)
	if err != nil {
		return models.AttendanceRecord{}, err
	}
	if selfie.Valid {
		rec.Selfie = selfie.String
	}
	return rec, nil
}

// --- training ---

func (p *Postgres) AppendTraining(ctx context.Context, s *models.TrainingSession) error {
	query := `
		INSERT INTO training_sessions (k9_id, discipline, area, duration_minutes, notes, submitted_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`
	err := p.database.Pool().QueryRow(
		ctx, query,
		s.K9ID, s.Discipline, s.Area, s.DurationMinutes, s.Notes, s.SubmittedBy, s.CreatedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert training session: %w", err)
	}
	return nil
}

func (p *Postgres) Trainings(ctx context.Context) ([]models.TrainingSession, error) {
	rows, err := p.database.Pool().Query(ctx, `
		SELECT id, k9_id, discipline, area, duration_minutes, notes, submitted_by, created_at
		FROM training_sessions
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query training sessions: %w", err)
	}
	defer rows.Close()

	out := []models.TrainingSession{}
	for rows.Next() {
		var s models.TrainingSession
		if err := rows.Scan(
			&s.ID, &s.K9ID, &s.Discipline, &s.Area,
			&s.DurationMinutes, &s.Notes, &s.SubmittedBy, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// --- sites ---

func (p *Postgres) Site(ctx context.Context, id int64) (models.Site, error) {
	var s models.Site
	err := p.database.Pool().QueryRow(ctx, `
		SELECT id, name, lat, lon, radius_meters FROM sites WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Lat, &s.Lon, &s.RadiusMeters)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Site{}, ErrNotFound
	}
	if err != nil {
		return models.Site{}, fmt.Errorf("query site: %w", err)
	}
	return s, nil
}

func (p *Postgres) Sites(ctx context.Context) ([]models.Site, error) {
	rows, err := p.database.Pool().Query(ctx, `
		SELECT id, name, lat, lon, radius_meters FROM sites ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()

	out := []models.Site{}
	for rows.Next() {
		var s models.Site
		if err := rows.Scan(&s.ID, &s.Name, &s.Lat, &s.Lon, &s.RadiusMeters); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// --- k9s ---

func (p *Postgres) K9s(ctx context.Context) ([]models.K9, error) {
	rows, err := p.database.Pool().Query(ctx, `
		SELECT id, name, breed, dob, sex, call_sign, status FROM k9s ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query k9s: %w", err)
	}
	defer rows.Close()

	out := []models.K9{}
	for rows.Next() {
		k9, err := scanK9(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k9)
	}
	return out, rows.Err()
}

func (p *Postgres) K9(ctx context.Context, id int64) (models.K9, error) {
	k9, err := scanK9(p.database.Pool().QueryRow(ctx, `
		SELECT id, name, breed, dob, sex, call_sign, status FROM k9s WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.K9{}, ErrNotFound
	}
	return k9, err
}

func scanK9(row pgx.Row) (models.K9, error) {
	var k9 models.K9
	var dob pgtype.Date
	var sex, callSign pgtype.Text

	err := row.Scan(&k9.ID, &k9.Name, &k9.Breed, &dob, &sex, &callSign, &k9.Status)
	if err != nil {
		return models.K9{}, err
	}
	if dob.Valid {
		k9.DOB = dob.Time.Format("2006-01-02")
	}
	if sex.Valid {
		k9.Sex = sex.String
	}
	if callSign.Valid {
		k9.CallSign = callSign.String
	}
	return k9, nil
}

func (p *Postgres) AppendVaccination(ctx context.Context, v *models.Vaccination) error {
	var file any
	if v.File != "" {
		file = v.File
	}
	err := p.database.Pool().QueryRow(ctx, `
		INSERT INTO vaccinations (k9_id, type, date, expires, file)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, v.K9ID, v.Type, v.Date, v.Expires, file).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("insert vaccination: %w", err)
	}
	return nil
}

func (p *Postgres) VaccinationsExpiringBefore(ctx context.Context, cutoff time.Time) ([]models.Vaccination, error) {
	rows, err := p.database.Pool().Query(ctx, `
		SELECT id, k9_id, type, date, expires, file
		FROM vaccinations
		WHERE expires < $1
		ORDER BY expires
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query vaccinations: %w", err)
	}
	defer rows.Close()

	out := []models.Vaccination{}
	for rows.Next() {
		var v models.Vaccination
		var file pgtype.Text
		if err := rows.Scan(&v.ID, &v.K9ID, &v.Type, &v.Date, &v.Expires, &file); err != nil {
			return nil, err
		}
		if file.Valid {
			v.File = file.String
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// --- users ---

func (p *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	var exists bool
	err := p.database.Pool().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, u.Email).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		return ErrEmailTaken
	}

	err = p.database.Pool().QueryRow(ctx, `
		INSERT INTO users (user_id, name, email, password_hash, role)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, u.UserID, u.Name, u.Email, u.PasswordHash, u.Role).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return p.user(ctx, `SELECT id, user_id, name, email, password_hash, role FROM users WHERE email = $1`, email)
}

func (p *Postgres) UserByUserID(ctx context.Context, userID string) (models.User, error) {
	return p.user(ctx, `SELECT id, user_id, name, email, password_hash, role FROM users WHERE user_id = $1`, userID)
}

func (p *Postgres) user(ctx context.Context, query string, arg any) (models.User, error) {
	var u models.User
	err := p.database.Pool().QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.UserID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}
