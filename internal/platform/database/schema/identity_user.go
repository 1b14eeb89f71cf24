package schema

// IdentityUserTable represents the 'identity.user' table
type IdentityUserTable struct {
	Table             string
	ID                string
	Email             string
	Phone             string
	Password          string
	Status            string
	RoleID            string
	VerificationLevel string
	MFAEnabled        string
	LastLoginAt       string
	CreatedAt         string
	UpdatedAt         string
	DeletedAt         string
}

// IdentityUser is the schema definition for identity.user.
// The table name is quoted because "user" is a reserved word in Postgres.
var IdentityUser = IdentityUserTable{
	Table:             `identity."user"`,
	ID:                "id",
	Email:             "email",
	Phone:             "phone",
	Password:          "passwordhash",
	Status:            "status",
	RoleID:            "roleid",
	VerificationLevel: "verificationlevel",
	MFAEnabled:        "mfaenabled",
	LastLoginAt:       "lastloginat",
	CreatedAt:         "createdat",
	UpdatedAt:         "updatedat",
	DeletedAt:         "deletedat",
}

// Columns returns all standard column names
func (t IdentityUserTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.Phone, t.Password, t.Status, t.RoleID,
		t.VerificationLevel, t.MFAEnabled, t.LastLoginAt,
		t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	}
}
