package store

import "errors"

var (
	ErrRealmNotFound        = errors.New("store: realm not found")
	ErrResourceTypeNotFound = errors.New("store: resource type not found")
	ErrActionNotFound       = errors.New("store: action not found")
	ErrPrincipalNotFound    = errors.New("store: principal not found")
	ErrRoleNotFound         = errors.New("store: role not found")
	ErrRuleNotFound         = errors.New("store: acl rule not found")
	ErrDuplicateRuleKey     = errors.New("store: acl rule key already exists for this realm/type/action/subject/resource")
	ErrInvalidSubject       = errors.New("store: acl row must set at most one of principal_id/role_id")
)
