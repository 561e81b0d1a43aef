package models

// Subject is an entry of the static subject lookup list
type Subject struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Subjects is the fixed list offered when creating homework
var Subjects = []Subject{
	{ID: 1, Name: "Chinese"},
	{ID: 2, Name: "Math"},
	{ID: 3, Name: "English"},
	{ID: 4, Name: "Science"},
	{ID: 5, Name: "Physics"},
	{ID: 6, Name: "Chemistry"},
	{ID: 7, Name: "Biology"},
	{ID: 8, Name: "History"},
	{ID: 9, Name: "Geography"},
	{ID: 10, Name: "Art"},
	{ID: 11, Name: "Music"},
	{ID: 12, Name: "Other"},
}

// IsKnownSubject reports whether name is in the subject list
func IsKnownSubject(name string) bool {
	for _, s := range Subjects {
		if s.Name == name {
			return true
		}
	}
	return false
}
