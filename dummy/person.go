// Package dummy simulates a remote paged API over generated Person rows.
package dummy

import (
	"math/rand/v2"
	"time"

	"pagedtable/datatable"
)

// Status is the relationship status of a Person.
type Status string

const (
	StatusRelationship Status = "relationship"
	StatusComplicated  Status = "complicated"
	StatusSingle       Status = "single"
)

var statuses = []Status{StatusRelationship, StatusComplicated, StatusSingle}

// Person is one generated row.
type Person struct {
	ID        int
	FirstName string
	LastName  string
	Age       int
	Visits    int
	Status    Status
	Progress  int
	CreatedAt time.Time
}

// Column ids, in record order.
const (
	ColID        = "id"
	ColFirstName = "firstName"
	ColLastName  = "lastName"
	ColAge       = "age"
	ColVisits    = "visits"
	ColStatus    = "status"
	ColProgress  = "progress"
	ColCreatedAt = "createdAt"
)

// Columns returns the fixed Person column set.
func Columns() []datatable.ColumnInfo {
	return []datatable.ColumnInfo{
		{ID: ColID, Type: datatable.TypeInt},
		{ID: ColFirstName, Type: datatable.TypeString},
		{ID: ColLastName, Type: datatable.TypeString},
		{ID: ColAge, Type: datatable.TypeInt},
		{ID: ColVisits, Type: datatable.TypeInt},
		{ID: ColStatus, Type: datatable.TypeString},
		{ID: ColProgress, Type: datatable.TypeInt},
		{ID: ColCreatedAt, Type: datatable.TypeTimestamp},
	}
}

// Record converts p to a row aligned with Columns.
func (p Person) Record() datatable.Record {
	return datatable.Record{
		datatable.NewValue(p.ID, datatable.TypeInt),
		datatable.NewValue(p.FirstName, datatable.TypeString),
		datatable.NewValue(p.LastName, datatable.TypeString),
		datatable.NewValue(p.Age, datatable.TypeInt),
		datatable.NewValue(p.Visits, datatable.TypeInt),
		datatable.NewValue(string(p.Status), datatable.TypeString),
		datatable.NewValue(p.Progress, datatable.TypeInt),
		datatable.NewValue(p.CreatedAt, datatable.TypeTimestamp),
	}
}

var firstNames = []string{
	"Aaliyah", "Bernard", "Camila", "Dmitri", "Elena", "Felix", "Grace", "Hector",
	"Ines", "Jonas", "Keiko", "Liam", "Maya", "Nikolai", "Olivia", "Pablo",
	"Quinn", "Rosa", "Stefan", "Tara", "Umar", "Vera", "Wyatt", "Ximena",
	"Yusuf", "Zoe",
}

var lastNames = []string{
	"Abbott", "Brennan", "Castillo", "Dubois", "Eriksen", "Fischer", "Gallagher",
	"Hartmann", "Ivanova", "Jensen", "Kowalski", "Lindqvist", "Moreau", "Nakamura",
	"Okafor", "Petrov", "Quigley", "Rossi", "Schneider", "Tanaka", "Usman",
	"Valdez", "Whitaker", "Yilmaz", "Zimmerman",
}

// epoch anchors createdAt so that generated data is reproducible.
var epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// MakeData generates n people with ids 0..n-1. The same seed always
// yields the same rows.
func MakeData(n int, seed uint64) []Person {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	span := int64(3 * 365 * 24 * time.Hour / time.Second)

	people := make([]Person, n)
	for i := range people {
		people[i] = Person{
			ID:        i,
			FirstName: firstNames[r.IntN(len(firstNames))],
			LastName:  lastNames[r.IntN(len(lastNames))],
			Age:       r.IntN(41),
			Visits:    r.IntN(1001),
			Progress:  r.IntN(101),
			Status:    statuses[r.IntN(len(statuses))],
			CreatedAt: epoch.Add(-time.Duration(r.Int64N(span)) * time.Second),
		}
	}
	return people
}
