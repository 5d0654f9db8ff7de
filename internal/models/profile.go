package models

import "time"

type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleSkillMaster Role = "skill_master"
	RoleManager     Role = "manager"
	RoleWorker      Role = "worker"
)

// Roles is the closed set of application roles.
var Roles = []Role{RoleSuperAdmin, RoleSkillMaster, RoleManager, RoleWorker}

func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// CanEvaluate reports whether the role may score other profiles at all.
func (r Role) CanEvaluate() bool {
	return r == RoleSuperAdmin || r == RoleSkillMaster || r == RoleManager
}

type Profile struct {
	ID        string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email     string `gorm:"column:email;type:text;uniqueIndex" json:"email"`
	FirstName string `gorm:"column:first_name;type:text" json:"first_name"`
	LastName  string `gorm:"column:last_name;type:text" json:"last_name"`
	Role      Role   `gorm:"column:role;type:text;index" json:"role"`
	JobTitle  string `gorm:"column:job_title;type:text" json:"job_title,omitempty"`

	ManagerID    *string `gorm:"column:manager_id;type:uuid;index" json:"manager_id,omitempty"`
	LocationID   *string `gorm:"column:location_id;type:uuid;index" json:"location_id,omitempty"`
	JobProfileID *string `gorm:"column:job_profile_id;type:uuid" json:"job_profile_id,omitempty"`

	AvatarURL string `gorm:"column:avatar_url;type:text" json:"avatar_url,omitempty"`
	IsActive  bool   `gorm:"column:is_active;not null;default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

func (p Profile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// AuthAccount holds credentials for a profile. PasswordHash stays empty until
// the owner completes a password reset.
type AuthAccount struct {
	ProfileID      string     `gorm:"column:profile_id;type:uuid;primaryKey" json:"profile_id"`
	Email          string     `gorm:"column:email;type:text;uniqueIndex" json:"email"`
	PasswordHash   string     `gorm:"column:password_hash;type:text" json:"-"`
	ResetTokenHash string     `gorm:"column:reset_token_hash;type:text;index" json:"-"`
	ResetExpiresAt *time.Time `gorm:"column:reset_expires_at;type:timestamptz" json:"-"`
	LastSignInAt   *time.Time `gorm:"column:last_sign_in_at;type:timestamptz" json:"last_sign_in_at,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (AuthAccount) TableName() string { return "auth_accounts" }

type Location struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;type:text" json:"name"`
	Address   string    `gorm:"column:address;type:text" json:"address,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (Location) TableName() string { return "locations" }
