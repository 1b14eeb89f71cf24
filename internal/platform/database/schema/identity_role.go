package schema

// IdentityRoleTable represents the 'identity.role' table
type IdentityRoleTable struct {
	Table        string
	ID           string
	Name         string
	Description  string
	Permissions  string
	RoleLevel    string
	IsSystemRole string
	IsActive     string
	CreatedAt    string
	UpdatedAt    string
}

// IdentityRole is the schema definition for identity.role
var IdentityRole = IdentityRoleTable{
	Table:        "identity.role",
	ID:           "id",
	Name:         "name",
	Description:  "description",
	Permissions:  "permissions",
	RoleLevel:    "rolelevel",
	IsSystemRole: "issystemrole",
	IsActive:     "isactive",
	CreatedAt:    "createdat",
	UpdatedAt:    "updatedat",
}

// Columns returns all standard column names
func (t IdentityRoleTable) Columns() []string {
	return []string{
		t.ID, t.Name, t.Description, t.Permissions, t.RoleLevel,
		t.IsSystemRole, t.IsActive, t.CreatedAt, t.UpdatedAt,
	}
}
