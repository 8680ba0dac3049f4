package models

// Session is the signed-in user as remembered between runs.
type Session struct {
	UserID       string
	Name         string
	Email        string
	Role         string
	AccessToken  string
	RefreshToken string
	PasswordHash string
}

func (s *Session) IsLawyer() bool {
	return s != nil && s.Role == "lawyer"
}
