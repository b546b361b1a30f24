package sdk

// ViewKind is the top-level view presented for a session.
type ViewKind int

const (
	LoginView ViewKind = iota
	ResearcherView
	AdminView
)

func (v ViewKind) String() string {
	switch v {
	case AdminView:
		return "admin"
	case ResearcherView:
		return "researcher"
	default:
		return "login"
	}
}

// Route picks the view for user. A nil user gets LoginView. Only RoleAdmin
// reaches AdminView; every other role, including unknown ones, falls back to
// ResearcherView.
func Route(user *User) ViewKind {
	if user == nil {
		return LoginView
	}
	switch user.Role() {
	case RoleAdmin:
		return AdminView
	case RoleResearcher, RoleReviewer, RoleAuditor, RoleUnknown:
		return ResearcherView
	default:
		return ResearcherView
	}
}
