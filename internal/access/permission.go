package access

import "strings"

// Permission is an allowed action on a resource, formatted "resource:action".
type Permission string

const (
	wildcard = "*"

	PermissionAll Permission = "*:*"
)

const (
	ResourceClient     = "client"
	ResourceProject    = "project"
	ResourceMember     = "member"
	ResourceAssignment = "assignment"
	ResourceGrant      = "grant"
	ResourceInvoice    = "invoice"
	ResourceMeeting    = "meeting"
	ResourceReport     = "report"
	ResourceData       = "data"

	ActionView    = "view"
	ActionManage  = "manage"
	ActionViewAll = "view_all"
)

// NewPermission joins resource and action.
func NewPermission(resource string, action string) Permission {
	return Permission(resource + ":" + action)
}

// Parse splits the permission into resource and action.
// Malformed permissions yield empty strings.
func (permission Permission) Parse() (string, string) {
	parts := strings.SplitN(string(permission), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

// Matches reports whether holding permission satisfies requested.
// "*:*" matches everything and "client:*" matches every client action.
func (permission Permission) Matches(requested Permission) bool {
	if permission == PermissionAll || permission == requested {
		return true
	}
	resource, action := permission.Parse()
	requestedResource, requestedAction := requested.Parse()
	if resource == "" || requestedResource == "" || requestedAction == "" {
		return false
	}
	return action == wildcard && (resource == requestedResource || resource == wildcard)
}
