package schema

// IdentityVerificationRecordTable represents the 'identity.verificationrecord' table
type IdentityVerificationRecordTable struct {
	Table        string
	ID           string
	UserID       string
	TargetLevel  string
	Status       string
	Method       string
	DocumentType string
	DocumentRef  string
	DocumentHash string
	ReviewerID   string
	Reason       string
	SubmittedAt  string
	DecidedAt    string
	ExpiresAt    string
	CreatedAt    string
	UpdatedAt    string
}

// IdentityVerificationRecord is the schema definition for identity.verificationrecord
var IdentityVerificationRecord = IdentityVerificationRecordTable{
	Table:        "identity.verificationrecord",
	ID:           "id",
	UserID:       "userid",
	TargetLevel:  "targetlevel",
	Status:       "status",
	Method:       "method",
	DocumentType: "documenttype",
	DocumentRef:  "documentref",
	DocumentHash: "documenthash",
	ReviewerID:   "reviewerid",
	Reason:       "reason",
	SubmittedAt:  "submittedat",
	DecidedAt:    "decidedat",
	ExpiresAt:    "expiresat",
	CreatedAt:    "createdat",
	UpdatedAt:    "updatedat",
}

// Columns returns all standard column names
func (t IdentityVerificationRecordTable) Columns() []string {
	return []string{
		t.ID, t.UserID, t.TargetLevel, t.Status, t.Method, t.DocumentType,
		t.DocumentRef, t.DocumentHash, t.ReviewerID, t.Reason, t.SubmittedAt,
		t.DecidedAt, t.ExpiresAt, t.CreatedAt, t.UpdatedAt,
	}
}
