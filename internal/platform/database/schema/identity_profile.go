package schema

// IdentityProfileTable represents the 'identity.profile' table
type IdentityProfileTable struct {
	Table       string
	UserID      string
	FirstName   string
	LastName    string
	DisplayName string
	AvatarURL   string
	Country     string
	CreatedAt   string
	UpdatedAt   string
}

// IdentityProfile is the schema definition for identity.profile
var IdentityProfile = IdentityProfileTable{
	Table:       "identity.profile",
	UserID:      "userid",
	FirstName:   "firstname",
	LastName:    "lastname",
	DisplayName: "displayname",
	AvatarURL:   "avatarurl",
	Country:     "country",
	CreatedAt:   "createdat",
	UpdatedAt:   "updatedat",
}

// Columns returns all standard column names
func (t IdentityProfileTable) Columns() []string {
	return []string{
		t.UserID, t.FirstName, t.LastName, t.DisplayName, t.AvatarURL,
		t.Country, t.CreatedAt, t.UpdatedAt,
	}
}
