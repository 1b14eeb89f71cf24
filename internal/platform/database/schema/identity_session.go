package schema

// IdentitySessionTable represents the 'identity.session' table
type IdentitySessionTable struct {
	Table            string
	ID               string
	UserID           string
	AccessTokenHash  string
	RefreshTokenHash string
	DeviceName       string
	IPAddress        string
	UserAgent        string
	IsRevoked        string
	AccessExpiresAt  string
	RefreshExpiresAt string
	LastActivityAt   string
	RevokedAt        string
	CreatedAt        string
}

// IdentitySession is the schema definition for identity.session
var IdentitySession = IdentitySessionTable{
	Table:            "identity.session",
	ID:               "id",
	UserID:           "userid",
	AccessTokenHash:  "accesstokenhash",
	RefreshTokenHash: "refreshtokenhash",
	DeviceName:       "devicename",
	IPAddress:        "ipaddress",
	UserAgent:        "useragent",
	IsRevoked:        "isrevoked",
	AccessExpiresAt:  "accessexpiresat",
	RefreshExpiresAt: "refreshexpiresat",
	LastActivityAt:   "lastactivityat",
	RevokedAt:        "revokedat",
	CreatedAt:        "createdat",
}

// Columns returns all standard column names
func (t IdentitySessionTable) Columns() []string {
	return []string{
		t.ID, t.UserID, t.AccessTokenHash, t.RefreshTokenHash, t.DeviceName,
		t.IPAddress, t.UserAgent, t.IsRevoked, t.AccessExpiresAt,
		t.RefreshExpiresAt, t.LastActivityAt, t.RevokedAt, t.CreatedAt,
	}
}
