package table

import (
	"pagedtable/datatable"
	"pagedtable/dummy"
)

// PersonColumns is the fixed column set for the dummy source.
func PersonColumns() []Column {
	return []Column{
		{ID: dummy.ColID, Header: "ID", Type: datatable.TypeInt, Size: 60},
		{ID: dummy.ColFirstName, Header: "firstName", Type: datatable.TypeString},
		{ID: dummy.ColLastName, Header: "Last Name", Type: datatable.TypeString},
		{ID: dummy.ColAge, Header: "Age", Type: datatable.TypeInt, Size: 50},
		{ID: dummy.ColVisits, Header: "Visits", Type: datatable.TypeInt, Size: 50},
		{ID: dummy.ColStatus, Header: "Status", Type: datatable.TypeString},
		{ID: dummy.ColProgress, Header: "Profile Progress", Type: datatable.TypeInt, Size: 80},
		{ID: dummy.ColCreatedAt, Header: "Created At", Type: datatable.TypeTimestamp},
	}
}

// FromSchema derives columns from a source's schema, one per field,
// headed by the field name.
func FromSchema(infos []datatable.ColumnInfo) []Column {
	cols := make([]Column, len(infos))
	for i, info := range infos {
		cols[i] = Column{ID: info.ID, Header: info.ID, Type: info.Type}
		if info.Type == datatable.TypeBinary {
			cols[i].Cell = abbreviate
		}
	}
	return cols
}

// abbreviate keeps binary cells readable.
func abbreviate(v datatable.Value) string {
	const maxLen = 32
	if len(v.Formatted) <= maxLen {
		return v.Formatted
	}
	return v.Formatted[:maxLen] + "..."
}
