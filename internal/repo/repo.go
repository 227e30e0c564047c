package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"campushub/internal/model"
)

// Storage-level sentinel errors. The engine translates these into its own
// taxonomy; handlers never see them directly.
var (
	ErrOrganizationNotFound  = errors.New("organization not found")
	ErrAccountNotFound       = errors.New("account not found")
	ErrEventNotFound         = errors.New("event not found")
	ErrRegistrationNotFound  = errors.New("registration not found")
	ErrWrongOrganization     = errors.New("event belongs to another organization")
	ErrRegistrationClosed    = errors.New("registration window closed")
	ErrEventFull             = errors.New("event is full")
	ErrDuplicateRegistration = errors.New("duplicate registration")
	ErrDuplicateCheckIn      = errors.New("duplicate check-in")
	ErrDuplicateFeedback     = errors.New("duplicate feedback")
	ErrDuplicateOrganization = errors.New("organization code already exists")
	ErrDuplicateAccount      = errors.New("username or email already exists")
	ErrAccountHasEvents      = errors.New("account still owns events")
)

type Repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func New(db *dbpg.DB, log *zerolog.Logger) (*Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &Repository{db: db, log: log}, nil
}

func (r *Repository) MigrateUp(migrationsDir string) error {
	return r.applyMigrations(migrationsDir, "*.up.sql")
}

func (r *Repository) MigrateDown(migrationsDir string) error {
	return r.applyMigrations(migrationsDir, "*.down.sql")
}

func (r *Repository) applyMigrations(dir, pattern string) error {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}
	r.log.Info().Msgf("migrations %s applied from %s", pattern, dir)
	return nil
}

func isPGError(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

func isUniqueViolation(err error) bool { return isPGError(err, "23505") }

func isFKViolation(err error) bool { return isPGError(err, "23503") }

// --- organizations ---

func (r *Repository) CreateOrganization(ctx context.Context, o *model.Organization) (int64, error) {
	query := `
		INSERT INTO organizations (name, code, address)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, o.Name, o.Code, o.Address).
		Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateOrganization
		}
		return 0, fmt.Errorf("failed to insert organization: %w", err)
	}
	return o.ID, nil
}

func (r *Repository) GetOrganizationByID(ctx context.Context, id int64) (*model.Organization, error) {
	query := `
		SELECT id, name, code, address, created_at
		FROM organizations WHERE id = $1
	`
	var o model.Organization
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&o.ID, &o.Name, &o.Code, &o.Address, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &o, nil
}

// --- accounts ---

func (r *Repository) CreateAccount(ctx context.Context, a *model.Account) (int64, error) {
	query := `
		INSERT INTO accounts (org_id, username, email, full_name, role,
		                      student_id, department, year_of_study, phone, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		a.OrgID, a.Username, a.Email, a.FullName, string(a.Role),
		a.StudentID, a.Department, a.YearOfStudy, a.Phone,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateAccount
		}
		if isFKViolation(err) {
			return 0, ErrOrganizationNotFound
		}
		return 0, fmt.Errorf("failed to insert account: %w", err)
	}
	a.Active = true
	return a.ID, nil
}

func (r *Repository) GetAccountByID(ctx context.Context, id int64) (*model.Account, error) {
	query := `
		SELECT id, org_id, username, email, full_name, role,
		       COALESCE(student_id, ''), COALESCE(department, ''),
		       COALESCE(year_of_study, 0), COALESCE(phone, ''),
		       is_active, created_at
		FROM accounts WHERE id = $1
	`
	var a model.Account
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.OrgID, &a.Username, &a.Email, &a.FullName, &a.Role,
		&a.StudentID, &a.Department, &a.YearOfStudy, &a.Phone,
		&a.Active, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

func (r *Repository) DeactivateAccount(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *Repository) CountAuthoredEvents(ctx context.Context, accountID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE created_by = $1`, accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count authored events: %w", err)
	}
	return count, nil
}

// DeleteAccount removes the account and, by cascade, its registrations,
// check-ins and feedback. Events it authored are never cascaded: the FK on
// events.created_by is RESTRICT and surfaces here as ErrAccountHasEvents.
func (r *Repository) DeleteAccount(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		if isFKViolation(err) {
			return ErrAccountHasEvents
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// --- events ---

func (r *Repository) CreateEvent(ctx context.Context, e *model.Event) (int64, error) {
	query := `
		INSERT INTO events (org_id, created_by, title, description, event_type, venue,
		                    start_time, end_time, max_participants, registration_deadline,
		                    is_active, requires_approval)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		e.OrgID, e.CreatedBy, e.Title, e.Description, e.EventType, e.Venue,
		e.StartTime, e.EndTime, e.MaxParticipants, e.RegistrationDeadline,
		e.RequiresApproval,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if isFKViolation(err) {
			return 0, ErrOrganizationNotFound
		}
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	e.Active = true
	return e.ID, nil
}

const eventColumns = `
	id, org_id, created_by, title, COALESCE(description, ''), event_type,
	COALESCE(venue, ''), start_time, end_time, max_participants,
	registration_deadline, is_active, requires_approval, created_at
`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.OrgID, &e.CreatedBy, &e.Title, &e.Description, &e.EventType,
		&e.Venue, &e.StartTime, &e.EndTime, &e.MaxParticipants,
		&e.RegistrationDeadline, &e.Active, &e.RequiresApproval, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

func (r *Repository) ListEventsByOrg(ctx context.Context, orgID int64) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE org_id = $1 AND is_active = TRUE
		ORDER BY start_time ASC
	`
	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// DeleteEvent removes the event; registrations, check-ins and feedback go
// with it (ON DELETE CASCADE).
func (r *Repository) DeleteEvent(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *Repository) CountConfirmed(ctx context.Context, eventID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM registrations
		WHERE event_id = $1 AND status = 'confirmed'
	`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

func (r *Repository) CountCheckIns(ctx context.Context, eventID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM check_ins WHERE event_id = $1`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count check-ins: %w", err)
	}
	return count, nil
}

// --- registrations ---

// RegisterTx runs the whole registration rule chain in one transaction. The
// event row is locked FOR UPDATE so the capacity check and the insert are
// atomic against concurrent registrations for the same event. Check order:
// event exists in the caller's organization, window open at `now`, no prior
// registration of any status, confirmed count below capacity.
func (r *Repository) RegisterTx(ctx context.Context, accountID, orgID, eventID int64, now time.Time) (*model.Registration, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var (
		eventOrgID      int64
		startTime       time.Time
		maxParticipants *int
		deadline        *time.Time
	)
	err = tx.QueryRowContext(ctx, `
		SELECT org_id, start_time, max_participants, registration_deadline
		FROM events
		WHERE id = $1
		FOR UPDATE
	`, eventID).Scan(&eventOrgID, &startTime, &maxParticipants, &deadline)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to lock event: %w", err)
	}

	if eventOrgID != orgID {
		_ = tx.Rollback()
		return nil, ErrWrongOrganization
	}

	closeAt := startTime
	if deadline != nil {
		closeAt = *deadline
	}
	if !now.Before(closeAt) {
		_ = tx.Rollback()
		return nil, ErrRegistrationClosed
	}

	// Any status counts: a cancelled row still blocks re-registration so the
	// audit trail stays one row per pair.
	var existing int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM registrations
		WHERE account_id = $1 AND event_id = $2
	`, accountID, eventID).Scan(&existing)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to check duplicate registration: %w", err)
	}
	if existing > 0 {
		_ = tx.Rollback()
		return nil, ErrDuplicateRegistration
	}

	if maxParticipants != nil {
		var confirmed int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM registrations
			WHERE event_id = $1 AND status = 'confirmed'
		`, eventID).Scan(&confirmed)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("failed to count confirmed registrations: %w", err)
		}
		if confirmed >= *maxParticipants {
			_ = tx.Rollback()
			return nil, ErrEventFull
		}
	}

	reg := &model.Registration{
		AccountID:    accountID,
		EventID:      eventID,
		Status:       model.StatusConfirmed,
		RegisteredAt: now,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO registrations (account_id, event_id, status, registered_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, accountID, eventID, string(reg.Status), now).Scan(&reg.ID)
	if err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return nil, ErrDuplicateRegistration
		}
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit registration: %w", err)
	}
	return reg, nil
}

func (r *Repository) GetRegistration(ctx context.Context, accountID, eventID int64) (*model.Registration, error) {
	query := `
		SELECT id, account_id, event_id, status, registered_at
		FROM registrations
		WHERE account_id = $1 AND event_id = $2
	`
	var reg model.Registration
	err := r.db.QueryRowContext(ctx, query, accountID, eventID).Scan(
		&reg.ID, &reg.AccountID, &reg.EventID, &reg.Status, &reg.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return &reg, nil
}

func (r *Repository) UpdateRegistrationStatus(ctx context.Context, registrationID int64, status model.RegistrationStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE registrations SET status = $1 WHERE id = $2
	`, string(status), registrationID)
	if err != nil {
		return fmt.Errorf("failed to update registration status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

// --- check-ins ---

func (r *Repository) HasCheckIn(ctx context.Context, accountID, eventID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM check_ins WHERE account_id = $1 AND event_id = $2
		)
	`, accountID, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existing check-in: %w", err)
	}
	return exists, nil
}

func (r *Repository) CreateCheckIn(ctx context.Context, c *model.CheckIn) (int64, error) {
	query := `
		INSERT INTO check_ins (account_id, event_id, check_in_time, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		c.AccountID, c.EventID, c.CheckInTime, c.Notes,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateCheckIn
		}
		return 0, fmt.Errorf("failed to create check-in: %w", err)
	}
	return c.ID, nil
}

// --- feedback ---

func (r *Repository) HasFeedback(ctx context.Context, accountID, eventID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM feedback WHERE account_id = $1 AND event_id = $2
		)
	`, accountID, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existing feedback: %w", err)
	}
	return exists, nil
}

func (r *Repository) CreateFeedback(ctx context.Context, f *model.Feedback) (int64, error) {
	query := `
		INSERT INTO feedback (account_id, event_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		f.AccountID, f.EventID, f.Rating, f.Comment, f.CreatedAt,
	).Scan(&f.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateFeedback
		}
		return 0, fmt.Errorf("failed to create feedback: %w", err)
	}
	return f.ID, nil
}
