package user

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/maendeleo/core"
)

// Roles. A role is "group:perm"; "group:" grants the group's base role.
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminPrincipal = "admin:principal"

	// School staff
	RoleStaff          = "staff:"
	RoleStaffTeacher   = "staff:teacher"
	RoleStaffCounselor = "staff:counselor"
	RoleStaffCoach     = "staff:coach"

	// Guardian (parent)
	RoleGuardian = "guardian:"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles    = []string{RoleAdmin, RoleAdminPrincipal}
	StaffRoles    = []string{RoleStaff, RoleStaffTeacher, RoleStaffCounselor, RoleStaffCoach}
	GuardianRoles = []string{RoleGuardian}
	StudentRoles  = []string{RoleStudent}
	AllRoles      = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 40 - 31
		RoleAdminPrincipal: 40,
		RoleAdmin:          31,

		// Staff: 30 - 21
		RoleStaffCounselor: 23,
		RoleStaffTeacher:   22,
		RoleStaffCoach:     22,
		RoleStaff:          21,

		// Guardians: 20 - 11
		RoleGuardian: 11,

		// Students: 10 - 1
		RoleStudent: 1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Guardian", Value: RoleGuardian},
		{Name: "Staff", Value: RoleStaff},
		{Name: "Teacher", Value: RoleStaffTeacher},
		{Name: "Counselor", Value: RoleStaffCounselor},
		{Name: "Coach", Value: RoleStaffCoach},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Principal", Value: RoleAdminPrincipal},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 8)
	all = append(all, AdminRoles...)
	all = append(all, StaffRoles...)
	all = append(all, GuardianRoles...)
	all = append(all, StudentRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) HasRole(wanted string) bool {
	for _, role := range u.Roles {
		if role == wanted {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool    { return u.RoleStartsWith(RoleAdmin) }
func (u *User) IsStaff() bool    { return u.RoleStartsWith(RoleStaff) || u.IsAdmin() }
func (u *User) IsGuardian() bool { return u.RoleStartsWith(RoleGuardian) }
func (u *User) IsStudent() bool  { return u.RoleStartsWith(RoleStudent) }

// StudentProfile links a student user to the class and grade cohorts their
// analytics are ranked against.
type StudentProfile struct {
	UserID     string `json:"user_id"`
	ClassID    string `json:"class_id"`
	GradeLevel int    `json:"grade_level"`
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}
