package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/yedirenklicinar/akademi/core"
	"github.com/yedirenklicinar/akademi/core/user"
)

type profileRow struct {
	ID           string       `db:"id"`
	Email        string       `db:"email"`
	FullName     string       `db:"full_name"`
	Role         string       `db:"role"`
	Permissions  []byte       `db:"permissions"`
	GradeID      *int         `db:"grade_id"`
	IsActive     *bool        `db:"is_active"`
	PasswordHash []byte       `db:"password_hash"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    sql.NullTime `db:"updated_at"`
	LastLogin    sql.NullTime `db:"last_login"`
}

type profileRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *sqlx.DB) *profileRepository {
	return &profileRepository{db: db}
}

func (repo profileRepository) toRow(prof user.Profile) (profileRow, error) {
	row := profileRow{
		ID:           prof.ID,
		Email:        prof.Email,
		FullName:     prof.FullName,
		Role:         prof.Role,
		GradeID:      prof.GradeID,
		IsActive:     prof.IsActive,
		PasswordHash: prof.PasswordHash,
		CreatedAt:    prof.CreatedAt.UTC(),
		UpdatedAt:    sql.NullTime{Time: prof.UpdatedAt.UTC(), Valid: !prof.UpdatedAt.IsZero()},
		LastLogin:    sql.NullTime{Time: prof.LastLogin.UTC(), Valid: !prof.LastLogin.IsZero()},
	}
	if prof.Permissions != nil {
		raw, err := json.Marshal(prof.Permissions)
		if err != nil {
			return profileRow{}, errors.Wrap(err, "marshalling permissions")
		}
		row.Permissions = raw
	}
	return row, nil
}

func (repo profileRepository) fromRow(row profileRow) (user.Profile, error) {
	prof := user.Profile{
		ID:           row.ID,
		Email:        row.Email,
		FullName:     row.FullName,
		Role:         row.Role,
		GradeID:      row.GradeID,
		IsActive:     row.IsActive,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt.Time,
		LastLogin:    row.LastLogin.Time,
	}
	if len(row.Permissions) > 0 {
		if err := json.Unmarshal(row.Permissions, &prof.Permissions); err != nil {
			return user.Profile{}, errors.Wrap(err, "unmarshalling permissions")
		}
	}
	return prof, nil
}

func (repo profileRepository) fromRows(rows []profileRow) ([]user.Profile, error) {
	profs := make([]user.Profile, 0, len(rows))
	for _, row := range rows {
		prof, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		profs = append(profs, prof)
	}
	return profs, nil
}

func (repo profileRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...user.Profile) error {
	query := `SELECT EXISTS (SELECT 1 FROM profile WHERE email = ?`
	args := []interface{}{email}
	if len(excluded) > 0 {
		ids := make([]interface{}, 0, len(excluded))
		for _, prof := range excluded {
			ids = append(ids, prof.ID)
		}
		query += " AND id NOT IN (?" + strings.Repeat(", ?", len(ids)-1) + ")"
		args = append(args, ids...)
	}
	query += ")"

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrProfileExists
	}
	return nil
}

func (repo profileRepository) CreateProfile(ctx context.Context, prof user.Profile) (user.Profile, error) {
	prof.ID = uuid.New().String()
	row, err := repo.toRow(prof)
	if err != nil {
		return user.Profile{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO profile (id, email, full_name, role, permissions, grade_id, is_active, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :email, :full_name, :role, :permissions, :grade_id, :is_active, :password_hash, :created_at, :updated_at, :last_login)`,
		row)
	if err != nil {
		return user.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return prof, nil
}

func (repo profileRepository) QueryProfiles(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.Profile, error) {
	query := `SELECT * FROM profile`
	var clauses []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			clauses = append(clauses, "(full_name ILIKE ? OR email ILIKE ?)")
			val := "%" + filter.Search + "%"
			args = append(args, val, val)
		}
		if filter.Role != "" {
			clauses = append(clauses, "role = ?")
			args = append(args, filter.Role)
		}
		if filter.GradeID != nil {
			clauses = append(clauses, "grade_id = ?")
			args = append(args, *filter.GradeID)
		}
		if filter.IsActive != nil {
			clauses = append(clauses, "is_active = ?")
			args = append(args, *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			clauses = append(clauses, "created_at >= ?")
			args = append(args, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			clauses = append(clauses, "created_at <= ?")
			args = append(args, filter.CreatedTo.UTC())
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	} else {
		query += " ORDER BY created_at DESC"
	}

	var rows []profileRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying profiles")
	}
	return repo.fromRows(rows)
}

func (repo profileRepository) GetProfile(ctx context.Context, filter user.GetFilter) (user.Profile, error) {
	var row profileRow
	if filter.ID != "" {
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.Profile{}, user.ErrNotFound
		}
		if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(`SELECT * FROM profile WHERE id = ?`), filter.ID); err != nil {
			return user.Profile{}, trapNoRowsErr(err, user.ErrNotFound, "finding profile by ID")
		}
	} else {
		if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(`SELECT * FROM profile WHERE email = ?`), filter.Email); err != nil {
			return user.Profile{}, trapNoRowsErr(err, user.ErrNotFound, "finding profile by email")
		}
	}
	return repo.fromRow(row)
}

func (repo profileRepository) UpdateProfile(ctx context.Context, prof user.Profile) (user.Profile, error) {
	// merge over the stored record; only set fields are saved
	orig, err := repo.GetProfile(ctx, user.GetFilter{ID: prof.ID})
	if err != nil {
		return user.Profile{}, err
	}
	if prof.FullName == "" {
		prof.FullName = orig.FullName
	}
	if prof.Email == "" {
		prof.Email = orig.Email
	}
	if prof.Role == "" {
		prof.Role = orig.Role
	}
	if prof.Permissions == nil {
		prof.Permissions = orig.Permissions
	}
	if prof.GradeID == nil {
		prof.GradeID = orig.GradeID
	}
	if prof.IsActive == nil {
		prof.IsActive = orig.IsActive
	}
	if prof.PasswordHash == nil {
		prof.PasswordHash = orig.PasswordHash
	}
	if prof.CreatedAt.IsZero() {
		prof.CreatedAt = orig.CreatedAt
	}
	if prof.UpdatedAt.IsZero() {
		prof.UpdatedAt = orig.UpdatedAt
	}
	if prof.LastLogin.IsZero() {
		prof.LastLogin = orig.LastLogin
	}

	row, err := repo.toRow(prof)
	if err != nil {
		return user.Profile{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		UPDATE profile
		SET email = :email, full_name = :full_name, role = :role, permissions = :permissions,
		    grade_id = :grade_id, is_active = :is_active, password_hash = :password_hash,
		    updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`,
		row)
	if err != nil {
		return user.Profile{}, errors.Wrap(err, "updating profile")
	}
	return prof, nil
}

func (repo profileRepository) UpdateOrCreateProfile(ctx context.Context, prof user.Profile) (user.Profile, error) {
	if prof.ID == "" {
		return repo.CreateProfile(ctx, prof)
	}
	return repo.UpdateProfile(ctx, prof)
}

func (repo profileRepository) DeleteProfilesByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`DELETE FROM profile WHERE id IN (?)`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting profiles")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting profiles")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting profiles")
	}
	return int(cnt), nil
}
