package iam

import "time"

type Role struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	NameKey     string    `gorm:"column:name_key;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	IsSystem    bool      `gorm:"column:is_system;not null;default:false"`
	IsStaffRole bool      `gorm:"column:is_staff_role;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Role) TableName() string { return "roles" }

type Policy struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	NameKey     string    `gorm:"column:name_key;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Policy) TableName() string { return "policies" }

type Permission struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	Area        string    `gorm:"column:area;index"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Permission) TableName() string { return "permissions" }

// RolePermission, RolePolicy and PolicyPermission are join rows keyed by the
// pair they connect; AddedBy is the granting user, nil for seeded rows.
type RolePermission struct {
	RoleID       int64     `gorm:"column:role_id;primaryKey;autoIncrement:false"`
	PermissionID int64     `gorm:"column:permission_id;primaryKey;autoIncrement:false;index"`
	AddedBy      *int64    `gorm:"column:added_by"`
	AddedAt      time.Time `gorm:"column:added_at;autoCreateTime"`
}

func (RolePermission) TableName() string { return "role_permissions" }

type RolePolicy struct {
	RoleID   int64     `gorm:"column:role_id;primaryKey;autoIncrement:false"`
	PolicyID int64     `gorm:"column:policy_id;primaryKey;autoIncrement:false;index"`
	AddedBy  *int64    `gorm:"column:added_by"`
	AddedAt  time.Time `gorm:"column:added_at;autoCreateTime"`
}

func (RolePolicy) TableName() string { return "role_policies" }

type PolicyPermission struct {
	PolicyID     int64     `gorm:"column:policy_id;primaryKey;autoIncrement:false"`
	PermissionID int64     `gorm:"column:permission_id;primaryKey;autoIncrement:false;index"`
	AddedBy      *int64    `gorm:"column:added_by"`
	AddedAt      time.Time `gorm:"column:added_at;autoCreateTime"`
}

func (PolicyPermission) TableName() string { return "policy_permissions" }

// Models lists every table of the authorization graph in creation order.
func Models() []interface{} {
	return []interface{}{
		&Role{}, &Policy{}, &Permission{},
		&RolePermission{}, &RolePolicy{}, &PolicyPermission{},
	}
}
