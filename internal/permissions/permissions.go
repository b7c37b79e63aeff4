// Package permissions defines the closed permission registry and the
// built-in role names. Permission strings are opaque at the API boundary
// and validated against the registry on role writes.
package permissions

// Permission names. The registry file is the source of truth; these
// constants exist so service code never spells a permission inline.
const (
	OrganizationCreate = "organization.create"
	OrganizationGet    = "organization.get"
	OrganizationList   = "organization.list"
	OrganizationUpdate = "organization.update"
	OrganizationDelete = "organization.delete"

	ProjectCreate = "project.create"
	ProjectGet    = "project.get"
	ProjectList   = "project.list"
	ProjectUpdate = "project.update"
	ProjectDelete = "project.delete"

	MemberAdd    = "member.add"
	MemberGet    = "member.get"
	MemberList   = "member.list"
	MemberRemove = "member.remove"

	InviteCreate = "invite.create"
	InviteGet    = "invite.get"
	InviteList   = "invite.list"
	InviteDelete = "invite.delete"

	IAMGetPolicy = "iam.getPolicy"
	IAMSetPolicy = "iam.setPolicy"

	APIKeyCreate = "apikey.create"
	APIKeyGet    = "apikey.get"
	APIKeyList   = "apikey.list"
	APIKeyRotate = "apikey.rotate"
	APIKeyDelete = "apikey.delete"

	UserGet     = "user.get"
	UserList    = "user.list"
	UserUpdate  = "user.update"
	UserDisable = "user.disable"

	ClientCreate  = "client.create"
	ClientGet     = "client.get"
	ClientList    = "client.list"
	ClientUpdate  = "client.update"
	ClientDisable = "client.disable"
)

// Built-in role names seeded by migrations. Parent edges run from the
// weaker role up to the stronger one, so expansion from an assigned role
// walks down to everything it subsumes.
const (
	RolePlatformAdmin      = "PlatformAdmin"
	RoleOrganizationAdmin  = "OrganizationAdmin"
	RoleOrganizationEditor = "OrganizationEditor"
	RoleOrganizationViewer = "OrganizationViewer"
	RoleProjectAdmin       = "ProjectAdmin"
	RoleProjectEditor      = "ProjectEditor"
	RoleProjectViewer      = "ProjectViewer"
)
