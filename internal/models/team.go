package models

// Team is the local snapshot of the self user's team.
type Team struct {
	ID   QualifiedID `json:"id"`
	Name string      `json:"name"`

	NeedsBackendUpdate bool `json:"needs_backend_update,omitempty"`
}

// Permission bits of a team member, as defined by the backend.
const (
	PermissionCreateConversation uint64 = 1 << iota
	PermissionDeleteConversation
	PermissionAddTeamMember
	PermissionRemoveTeamMember
	PermissionAddRemoveConvMember
	PermissionModifyConvName
	PermissionGetBilling
	PermissionSetBilling
	PermissionSetTeamData
	PermissionGetMemberPermissions
	PermissionGetTeamConversations
	PermissionDeleteTeam
	PermissionSetMemberPermissions
)

// Membership ties a user to a team. NeedsBackendUpdate is a local-only dirty
// flag set by event processing and cleared once a subsequent full pull
// confirms backend state.
type Membership struct {
	TeamID      QualifiedID `json:"team_id"`
	UserID      QualifiedID `json:"user_id"`
	Permissions uint64      `json:"permissions"`

	NeedsBackendUpdate bool `json:"needs_backend_update,omitempty"`
}
