// Package sqlxrepos implements the domain repositories on PostgreSQL.
package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maendeleo/core/user"
)

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		IsActive:     r.IsActive,
		Roles:        r.Roles,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	excludedIDs := pq.StringArray{}
	for _, usr := range excludedUsers {
		excludedIDs = append(excludedIDs, usr.ID)
	}

	var taken struct {
		Username bool `db:"username_taken"`
		Email    bool `db:"email_taken"`
	}
	err := repo.db.Get(&taken, `
		SELECT
			COUNT(*) FILTER (WHERE username = $1 AND $1 <> '') > 0 AS username_taken,
			COUNT(*) FILTER (WHERE email = $2 AND $2 <> '') > 0 AS email_taken
		FROM "user"
		WHERE NOT (id = ANY ($3))`,
		username, email, excludedIDs,
	)
	if err != nil {
		return err
	}
	if taken.Username {
		return user.ErrUsernameExists
	}
	if taken.Email {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	_, err := repo.db.Exec(`
		INSERT INTO "user" (id, name, username, email, is_active, roles, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		usr.ID, usr.Name, usr.Username, usr.Email, usr.IsActive,
		pq.StringArray(usr.Roles), usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers() ([]user.User, error) {
	var rows []userRow
	if err := repo.db.Select(&rows, `SELECT * FROM "user" ORDER BY created_at`); err != nil {
		return nil, err
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(id string) (user.User, error) {
	var r userRow
	err := repo.db.Get(&r, `SELECT * FROM "user" WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, err
	}
	return r.toUser(), nil
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	var r userRow
	err := repo.db.Get(&r, `SELECT * FROM "user" WHERE username = $1 OR email = $1`, username)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, err
	}
	return r.toUser(), nil
}

func (repo *userRepository) UpdateUser(usr user.User, isActive *bool) (user.User, error) {
	var r userRow
	err := repo.db.Get(&r, `
		UPDATE "user" SET
			name          = $2,
			username      = $3,
			email         = $4,
			roles         = COALESCE($5, roles),
			password_hash = COALESCE($6, password_hash),
			is_active     = COALESCE($7, is_active),
			last_login    = COALESCE($8, last_login),
			updated_at    = $9
		WHERE id = $1
		RETURNING *`,
		usr.ID, usr.Name, usr.Username, usr.Email,
		rolesOrNil(usr.Roles), usr.PasswordHash, isActive,
		null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()), usr.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, err
	}
	return r.toUser(), nil
}

// rolesOrNil lets "roles unset" pass through as SQL NULL so COALESCE keeps
// the stored value.
func rolesOrNil(roles []string) interface{} {
	if roles == nil {
		return nil
	}
	return pq.StringArray(roles)
}

// UpsertStudentProfile stores the cohort info analytics ranks a student by.
func (repo *userRepository) UpsertStudentProfile(p user.StudentProfile) error {
	_, err := repo.db.Exec(`
		INSERT INTO student_profile (user_id, class_id, grade_level)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET class_id = $2, grade_level = $3`,
		p.UserID, p.ClassID, p.GradeLevel,
	)
	return err
}
