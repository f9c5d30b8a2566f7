package domain

// PlaceholderName is used for principals whose profile row is missing.
const PlaceholderName = "User"

// DefaultRole is assigned to new principals and to profiles without a role.
const DefaultRole = "Member"

// Principal is the locally cached representation of the authenticated user.
type Principal struct {
	ID     string
	Name   string
	Email  string
	Role   string
	Bio    string
	Avatar string
}

// PrincipalFromProfile builds a principal from a profile row. The email comes
// from the auth session, which is authoritative for it.
func PrincipalFromProfile(rec *ProfileRecord, email string) *Principal {
	return &Principal{
		ID:     rec.ID,
		Name:   rec.Name,
		Email:  email,
		Role:   rec.Role,
		Bio:    rec.AboutMe,
		Avatar: rec.ProfileImage,
	}
}
