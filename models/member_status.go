package models

// MemberStatus is the channel membership state reported by Telegram.
type MemberStatus string

const (
	MemberCreator       MemberStatus = "creator"
	MemberAdministrator MemberStatus = "administrator"
	MemberMember        MemberStatus = "member"
	MemberLeft          MemberStatus = "left"
	MemberKicked        MemberStatus = "kicked"
	MemberNotFound      MemberStatus = "not_found"
)

// Joined reports whether the status counts as being in the channel.
func (s MemberStatus) Joined() bool {
	switch s {
	case MemberCreator, MemberAdministrator, MemberMember:
		return true
	}
	return false
}
