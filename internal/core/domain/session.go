package domain

// One-shot messages set on the session and shown once.
const (
	MsgWelcomeBack     = "Welcome back!"
	MsgPortfolio       = "Here is your portfolio!"
	MsgHistory         = "Here is your purchase history!"
	MsgRegistered      = "Registered!"
	MsgPasswordChanged = "Your password has been changed successfully!"
)

// Session is the server-side state behind an opaque session id.
type Session struct {
	ID       string
	UserID   int64
	Username string
	// Message is a one-shot status string consumed by the next page view.
	Message string
}

// Identity returns the principal bound to the session.
func (s Session) Identity() Identity {
	return Identity{UserID: s.UserID, Username: s.Username}
}
