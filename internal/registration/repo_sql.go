package registration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SQLDialect captures the differences between the SQL backends.
type SQLDialect struct {
	Name string
	// Numbered placeholders ($1, $2, ...) instead of "?".
	Numbered bool
	JSONType string
	BlobType string
	TimeType string
	// IsUniqueViolation reports whether err is a primary key collision.
	IsUniqueViolation func(error) bool
}

func (d SQLDialect) rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const registrationColumns = `id, team_name, team_size, participants, portfolio_url,
	payment_filename, payment_original_name, payment_location, payment_content_type,
	payment_size, payment_inline, payment_data,
	entry_fee, registration_date, status, email_sent, updated_at`

// Listing never loads the inline payment bytes.
var listColumns = strings.Replace(registrationColumns, "payment_data", "NULL AS payment_data", 1)

// SQLRepository persists registrations in Postgres or SQLite.
type SQLRepository struct {
	db      *sql.DB
	dialect SQLDialect
}

// NewSQLRepository creates a repo.
func NewSQLRepository(db *sql.DB, dialect SQLDialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

// Migrate creates the registrations table when missing.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS registrations (
		id                    TEXT PRIMARY KEY,
		team_name             TEXT NOT NULL,
		team_size             INTEGER NOT NULL CHECK (team_size BETWEEN 1 AND 3),
		participants          %[1]s NOT NULL,
		portfolio_url         TEXT NOT NULL,
		payment_filename      TEXT NOT NULL,
		payment_original_name TEXT NOT NULL DEFAULT '',
		payment_location      TEXT NOT NULL DEFAULT '',
		payment_content_type  TEXT NOT NULL,
		payment_size          BIGINT NOT NULL,
		payment_inline        BOOLEAN NOT NULL DEFAULT FALSE,
		payment_data          %[2]s,
		entry_fee             INTEGER NOT NULL,
		registration_date     %[3]s NOT NULL,
		status                TEXT NOT NULL DEFAULT 'pending',
		email_sent            BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at            %[3]s NOT NULL
	)`, r.dialect.JSONType, r.dialect.BlobType, r.dialect.TimeType)
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate registrations: %w", err)
	}
	return nil
}

func (r *SQLRepository) Insert(ctx context.Context, reg *Registration) error {
	participants, err := json.Marshal(reg.Participants)
	if err != nil {
		return fmt.Errorf("encode participants: %w", err)
	}
	p := reg.PaymentScreenshot
	query := r.dialect.rebind(`
		INSERT INTO registrations (` + registrationColumns + `)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`)
	_, err = r.db.ExecContext(ctx, query,
		reg.ID, reg.TeamName, reg.TeamSize, string(participants), reg.PortfolioURL,
		p.Filename, p.OriginalName, p.Location, p.ContentType,
		p.Size, p.Inline, p.Data,
		reg.EntryFee, reg.RegistrationDate, string(reg.Status), reg.EmailSent, reg.UpdatedAt,
	)
	if err != nil {
		if r.dialect.IsUniqueViolation != nil && r.dialect.IsUniqueViolation(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (r *SQLRepository) List(ctx context.Context) ([]Registration, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+listColumns+` FROM registrations`)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var res []Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *reg)
	}
	return res, rows.Err()
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*Registration, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`), id)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

// UpdateStatus sets status and updated_at and reads the row back in the
// same transaction.
func (r *SQLRepository) UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (*Registration, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin status update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, r.dialect.rebind(`UPDATE registrations SET status = ?, updated_at = ? WHERE id = ?`),
		string(status), at, id)
	if err != nil {
		return nil, fmt.Errorf("update registration status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update registration status: %w", err)
	} else if n == 0 {
		return nil, ErrNotFound
	}

	reg, err := scanRegistration(tx.QueryRowContext(ctx,
		r.dialect.rebind(`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`), id))
	if err != nil {
		return nil, fmt.Errorf("reload registration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit status update: %w", err)
	}
	return reg, nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) Info() StoreInfo {
	return StoreInfo{Backend: r.dialect.Name, Durable: true}
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*Registration, error) {
	var (
		reg          Registration
		participants []byte
		status       string
	)
	p := &reg.PaymentScreenshot
	err := row.Scan(
		&reg.ID, &reg.TeamName, &reg.TeamSize, &participants, &reg.PortfolioURL,
		&p.Filename, &p.OriginalName, &p.Location, &p.ContentType,
		&p.Size, &p.Inline, &p.Data,
		&reg.EntryFee, &reg.RegistrationDate, &status, &reg.EmailSent, &reg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	if err := json.Unmarshal(participants, &reg.Participants); err != nil {
		return nil, fmt.Errorf("decode participants of %s: %w", reg.ID, err)
	}
	reg.Status = Status(status)
	return &reg, nil
}
