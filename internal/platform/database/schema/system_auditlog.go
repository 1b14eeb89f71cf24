package schema

// SystemAuditLogTable represents the 'system.auditlog' table
type SystemAuditLogTable struct {
	Table      string
	ID         string
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Outcome    string
	Metadata   string
	IPAddress  string
	RequestID  string
	CreatedAt  string
}

var SystemAuditLog = SystemAuditLogTable{
	Table:      "system.auditlog",
	ID:         "id",
	ActorID:    "actorid",
	Action:     "action",
	EntityType: "entitytype",
	EntityID:   "entityid",
	Outcome:    "outcome",
	Metadata:   "metadata",
	IPAddress:  "ipaddress",
	RequestID:  "requestid",
	CreatedAt:  "createdat",
}
