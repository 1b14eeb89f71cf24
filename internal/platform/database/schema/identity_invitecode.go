package schema

// IdentityInviteCodeTable represents the 'identity.invitecode' table
type IdentityInviteCodeTable struct {
	Table      string
	ID         string
	CodeHash   string
	RoleID     string
	CreatedBy  string
	MaxUses    string
	UsedCount  string
	IsActive   string
	RedeemedBy string
	ExpiresAt  string
	CreatedAt  string
}

// IdentityInviteCode is the schema definition for identity.invitecode
var IdentityInviteCode = IdentityInviteCodeTable{
	Table:      "identity.invitecode",
	ID:         "id",
	CodeHash:   "codehash",
	RoleID:     "roleid",
	CreatedBy:  "createdby",
	MaxUses:    "maxuses",
	UsedCount:  "usedcount",
	IsActive:   "isactive",
	RedeemedBy: "redeemedby",
	ExpiresAt:  "expiresat",
	CreatedAt:  "createdat",
}

// Columns returns all standard column names
func (t IdentityInviteCodeTable) Columns() []string {
	return []string{
		t.ID, t.CodeHash, t.RoleID, t.CreatedBy, t.MaxUses, t.UsedCount,
		t.IsActive, t.RedeemedBy, t.ExpiresAt, t.CreatedAt,
	}
}
