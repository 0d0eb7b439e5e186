package iam

import "github.com/frahmantamala/pos-admin/internal"

var (
	ErrNotFound           = internal.ErrNotFound
	ErrRoleNotFound       = internal.ErrNotFound.WithMessage("Role not found")
	ErrPolicyNotFound     = internal.ErrNotFound.WithMessage("Policy not found")
	ErrPermissionNotFound = internal.ErrNotFound.WithMessage("Permission not found")

	ErrDuplicateName       = internal.ErrDuplicateName
	ErrDuplicateRole       = internal.ErrDuplicateName.WithMessage("A role with this name already exists")
	ErrDuplicatePolicy     = internal.ErrDuplicateName.WithMessage("A policy with this name already exists")
	ErrDuplicatePermission = internal.ErrDuplicateName.WithMessage("A permission with this name already exists")

	ErrRoleInUse       = internal.ErrRoleInUse
	ErrPolicyInUse     = internal.ErrPolicyInUse
	ErrProtectedEntity = internal.ErrProtectedEntity
)
