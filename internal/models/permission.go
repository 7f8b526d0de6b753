package models

import "sort"

// Permission codes grantable to tenant members. Owners and admins hold all of
// them implicitly.
const (
	PermManageVacancies  = "recruitment.manage_vacancies"
	PermViewCandidates   = "recruitment.view_candidates"
	PermManageCandidates = "recruitment.manage_candidates"
	PermInviteMembers    = "team.invite_members"
	PermManageRoles      = "team.manage_roles"
)

type Permission struct {
	Code        string `json:"code"`
	Category    string `json:"category"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var permissionRegistry = []Permission{
	{
		Code:        PermManageVacancies,
		Category:    "recruitment",
		Name:        "Manage vacancies",
		Description: "Create, edit, publish and close job vacancies",
	},
	{
		Code:        PermViewCandidates,
		Category:    "recruitment",
		Name:        "View candidates",
		Description: "See candidates and their applications",
	},
	{
		Code:        PermManageCandidates,
		Category:    "recruitment",
		Name:        "Manage candidates",
		Description: "Move applications through the pipeline and run screening",
	},
	{
		Code:        PermInviteMembers,
		Category:    "team",
		Name:        "Invite members",
		Description: "Invite new users to the tenant",
	},
	{
		Code:        PermManageRoles,
		Category:    "team",
		Name:        "Manage roles",
		Description: "Change member roles and permissions",
	},
}

// AllPermissions returns a copy of the registry in declaration order
func AllPermissions() []Permission {
	out := make([]Permission, len(permissionRegistry))
	copy(out, permissionRegistry)
	return out
}

// PermissionsByCategory groups the registry by category
func PermissionsByCategory() map[string][]Permission {
	grouped := make(map[string][]Permission)
	for _, p := range permissionRegistry {
		grouped[p.Category] = append(grouped[p.Category], p)
	}
	return grouped
}

// PermissionCategories returns the sorted category names
func PermissionCategories() []string {
	grouped := PermissionsByCategory()
	cats := make([]string, 0, len(grouped))
	for c := range grouped {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// PermissionExists reports whether code is a registered permission
func PermissionExists(code string) bool {
	for _, p := range permissionRegistry {
		if p.Code == code {
			return true
		}
	}
	return false
}
