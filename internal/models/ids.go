package models

// Identifiers are plain document ids in the store. Distinct types keep a
// user id from being passed where a group id is expected.
type (
	UserID    string
	GroupID   string
	EventID   string
	ProgramID string
	UDID      string
)
