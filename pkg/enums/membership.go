package enums

// MemberRole is a role inside a single group. The group's admin_id is the
// authority for join decisions; the role is descriptive.
type MemberRole string

const (
	MemberRoleMember    MemberRole = "member"
	MemberRoleModerator MemberRole = "moderator"
	MemberRoleAdmin     MemberRole = "admin"
)

var memberRoles = []MemberRole{MemberRoleMember, MemberRoleModerator, MemberRoleAdmin}

func (m MemberRole) String() string { return string(m) }

func (m MemberRole) IsValid() bool { return contains(memberRoles, m) }

func ParseMemberRole(value string) (MemberRole, error) {
	return parse("member role", memberRoles, value)
}

// MembershipStatus tracks a join request inside a group. Only approved
// records count toward members_count.
type MembershipStatus string

const (
	MembershipStatusPending  MembershipStatus = "pending"
	MembershipStatusApproved MembershipStatus = "approved"
	MembershipStatusRejected MembershipStatus = "rejected"
)

var membershipStatuses = []MembershipStatus{
	MembershipStatusPending,
	MembershipStatusApproved,
	MembershipStatusRejected,
}

func (m MembershipStatus) String() string { return string(m) }

func (m MembershipStatus) IsValid() bool { return contains(membershipStatuses, m) }

// Decided reports whether the request has left pending.
func (m MembershipStatus) Decided() bool {
	return m == MembershipStatusApproved || m == MembershipStatusRejected
}

func ParseMembershipStatus(value string) (MembershipStatus, error) {
	return parse("membership status", membershipStatuses, value)
}
