package permissions

// Capability groups. Clients are assigned to groups; groups are granted
// per-field read and write rules.
const (
	GroupAdmins  = "admins"
	GroupEditors = "editors"
	GroupMembers = "members"
	GroupViewers = "viewers"
)

// Editable field sets per group. Reserved fields never appear here: no
// group may write them.
var (
	// ContactFields are the self-service fields members maintain
	// themselves.
	ContactFields = []string{
		"ContactRemarks",
		"EmailAddresses",
		"PhoneNumbers",
		"PhysicalAddresses",
	}

	// IdentityFields require an editor.
	IdentityFields = []string{
		"FirstName",
		"MiddleName",
		"LastName",
		"Rate",
		"Title",
		"DateOfBirth",
		"Remarks",
	}

	// WorkFields require an editor.
	WorkFields = []string{
		"Division",
		"Department",
		"Command",
		"Supervisor",
		"WorkRemarks",
	}
)

// WritableFields maps each group to the fields it may edit.
var WritableFields = map[string][]string{
	GroupAdmins:  concat(IdentityFields, WorkFields, ContactFields),
	GroupEditors: concat(IdentityFields, WorkFields, ContactFields),
	GroupMembers: ContactFields,
	GroupViewers: nil,
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
