package access

import (
	"time"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
)

// Scope describes which records a role sees in list views.
type Scope string

const (
	ScopeNone                  Scope = "none"
	ScopeAll                   Scope = "all"
	ScopeOwnClient             Scope = "own_client"
	ScopeMemberProjects        Scope = "member_projects"
	ScopeMemberProjectsLimited Scope = "member_projects_limited"

	DefaultRestrictedListLimit = 3
)

var (
	permissionClientView     = NewPermission(ResourceClient, ActionView)
	permissionClientManage   = NewPermission(ResourceClient, ActionManage)
	permissionProjectView    = NewPermission(ResourceProject, ActionView)
	permissionProjectManage  = NewPermission(ResourceProject, ActionManage)
	permissionMemberManage   = NewPermission(ResourceMember, ActionManage)
	permissionAssignmentView = NewPermission(ResourceAssignment, ActionView)
	permissionAssignManage   = NewPermission(ResourceAssignment, ActionManage)
	permissionGrantView      = NewPermission(ResourceGrant, ActionView)
	permissionGrantManage    = NewPermission(ResourceGrant, ActionManage)
	permissionInvoiceView    = NewPermission(ResourceInvoice, ActionView)
	permissionInvoiceManage  = NewPermission(ResourceInvoice, ActionManage)
	permissionMeetingView    = NewPermission(ResourceMeeting, ActionView)
	permissionMeetingManage  = NewPermission(ResourceMeeting, ActionManage)
	permissionReportView     = NewPermission(ResourceReport, ActionView)
	permissionDataViewAll    = NewPermission(ResourceData, ActionViewAll)

	permissionClientAll     = NewPermission(ResourceClient, wildcard)
	permissionProjectAll    = NewPermission(ResourceProject, wildcard)
	permissionMemberAll     = NewPermission(ResourceMember, wildcard)
	permissionAssignmentAll = NewPermission(ResourceAssignment, wildcard)
	permissionGrantAll      = NewPermission(ResourceGrant, wildcard)
	permissionInvoiceAll    = NewPermission(ResourceInvoice, wildcard)
	permissionMeetingAll    = NewPermission(ResourceMeeting, wildcard)
)

var rolePermissions = map[model.Role][]Permission{
	model.RoleSystemAdmin: {PermissionAll},
	model.RoleProjectManager: {
		permissionClientAll, permissionProjectAll, permissionMemberAll, permissionAssignmentAll,
		permissionGrantAll, permissionInvoiceAll, permissionMeetingAll,
		permissionReportView, permissionDataViewAll,
	},
	model.RoleConsultant: {
		permissionClientView, permissionProjectView, permissionAssignmentView, permissionGrantView,
		permissionMeetingAll, permissionInvoiceView,
	},
	model.RoleSubConsultant: {
		permissionClientView, permissionProjectView, permissionAssignmentView, permissionMeetingView,
	},
	model.RoleMainClient: {
		permissionClientView, permissionProjectView, permissionGrantAll, permissionInvoiceView,
		permissionMeetingView, permissionReportView,
	},
	model.RoleSubClient: {
		permissionClientView, permissionProjectView, permissionMeetingView,
	},
}

// PermissionsFor returns a copy of the permissions held by role.
func PermissionsFor(role model.Role) []Permission {
	return append([]Permission(nil), rolePermissions[role]...)
}

// Can reports whether role holds a permission matching requested.
func Can(role model.Role, requested Permission) bool {
	for _, held := range rolePermissions[role] {
		if held.Matches(requested) {
			return true
		}
	}
	return false
}

func CanViewAllData(role model.Role) bool { return Can(role, permissionDataViewAll) }

func CanViewClients(role model.Role) bool { return Can(role, permissionClientView) }

func CanManageClients(role model.Role) bool { return Can(role, permissionClientManage) }

func CanManageProjects(role model.Role) bool { return Can(role, permissionProjectManage) }

func CanViewProjects(role model.Role) bool { return Can(role, permissionProjectView) }

func CanManageProjectMembers(role model.Role) bool { return Can(role, permissionMemberManage) }

func CanViewAssignments(role model.Role) bool { return Can(role, permissionAssignmentView) }

func CanManageAssignments(role model.Role) bool { return Can(role, permissionAssignManage) }

func CanViewGrants(role model.Role) bool { return Can(role, permissionGrantView) }

func CanManageGrants(role model.Role) bool { return Can(role, permissionGrantManage) }

func CanViewInvoices(role model.Role) bool { return Can(role, permissionInvoiceView) }

func CanManageInvoices(role model.Role) bool { return Can(role, permissionInvoiceManage) }

func CanViewMeetings(role model.Role) bool { return Can(role, permissionMeetingView) }

func CanScheduleMeetings(role model.Role) bool { return Can(role, permissionMeetingManage) }

func CanViewReports(role model.Role) bool { return Can(role, permissionReportView) }

// Capabilities maps the UI-facing predicate names to their values for role.
func Capabilities(role model.Role) map[string]bool {
	return map[string]bool{
		"can_view_all_data":          CanViewAllData(role),
		"can_manage_clients":         CanManageClients(role),
		"can_manage_projects":        CanManageProjects(role),
		"can_manage_project_members": CanManageProjectMembers(role),
		"can_manage_assignments":     CanManageAssignments(role),
		"can_manage_grants":          CanManageGrants(role),
		"can_view_invoices":          CanViewInvoices(role),
		"can_manage_invoices":        CanManageInvoices(role),
		"can_schedule_meetings":      CanScheduleMeetings(role),
		"can_view_reports":           CanViewReports(role),
	}
}

// ScopeFor returns the list visibility scope of role.
func ScopeFor(role model.Role) Scope {
	switch {
	case CanViewAllData(role):
		return ScopeAll
	case role.IsClient():
		return ScopeOwnClient
	case role == model.RoleSubConsultant:
		return ScopeMemberProjectsLimited
	case role == model.RoleConsultant:
		return ScopeMemberProjects
	default:
		return ScopeNone
	}
}

// LimitFor returns the list truncation applied to scope, or zero for none.
func LimitFor(scope Scope, restrictedLimit int) int {
	if scope != ScopeMemberProjectsLimited {
		return 0
	}
	if restrictedLimit <= 0 {
		return DefaultRestrictedListLimit
	}
	return restrictedLimit
}

// GrantAllows reports whether any active grant held by granteeUserID permits requested at now.
func GrantAllows(grants []model.DeliverableGrant, granteeUserID string, requested model.AccessLevel, now time.Time) bool {
	for _, grant := range grants {
		if grant.GranteeUserID == granteeUserID && grant.Permits(requested, now) {
			return true
		}
	}
	return false
}
