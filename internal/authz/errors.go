package authz

import "errors"

var (
	// ErrRealmNotFound reports a realm that does not exist. Runner does
	// not look realms up and never returns it: a request for an unknown
	// realm matches no resources.
	ErrRealmNotFound = errors.New("authz: realm not found")
	// ErrResourceTypeNotFound is returned by Runner.Authorize when the
	// request's resource type ID has no resource_type row.
	ErrResourceTypeNotFound = errors.New("authz: resource type not found")
	// ErrActionNotFound reports an action that does not exist. Runner
	// does not look actions up and never returns it: an unknown action
	// matches no ACL rows.
	ErrActionNotFound = errors.New("authz: action not found")
)
