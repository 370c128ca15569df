package storage

import (
	"strings"

	"github.com/bandroom/backend/internal/models"
)

// Collection and fixed document names of the store layout.
const (
	UsersCollection  = "Users"
	GroupsCollection = "Groups"

	MyGroupsCollection      = "MyGroups"
	MyAttendanceCollection  = "MyAttendance"
	MyPerformanceCollection = "MyPerformance"
	MyDevicesCollection     = "MyDevices"
	MembersCollection       = "Members"
	EventsCollection        = "Events"
	MailsCollection         = "Mails"
	ProgramsCollection      = "Programs"
	AttendeesCollection     = "Attendees"
	PerformersCollection    = "Performers"

	MyGroupDocument   = "MyGroupDocument"
	MyDeviceDocument  = "MyDeviceDocument"
	MemberDocument    = "MemberDocument"
	TokenDocument     = "TokenDocument"
	MemberIndex       = "MemberIndex"
	AttendeeDocument  = "AttendeeDocument"
	PerformerDocument = "PerformerDocument"
)

// IndexCompleteField marks a MemberIndex that lists every member of its
// group. Indexes without it were only built from join events.
const IndexCompleteField = "_complete"

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Split breaks a path into segments, ignoring leading and trailing slashes.
func Split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// ID returns the last segment of a path.
func ID(path string) string {
	segs := Split(path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Parent returns the path without its last segment.
func Parent(path string) string {
	segs := Split(path)
	if len(segs) <= 1 {
		return ""
	}
	return Join(segs[:len(segs)-1]...)
}

// IsDocumentPath reports whether path names a document: an even, non-zero
// number of non-empty segments.
func IsDocumentPath(path string) bool {
	segs := Split(path)
	return len(segs) > 0 && len(segs)%2 == 0 && nonEmpty(segs)
}

// IsCollectionPath reports whether path names a collection.
func IsCollectionPath(path string) bool {
	segs := Split(path)
	return len(segs)%2 == 1 && nonEmpty(segs)
}

// Within reports whether path is root or lies below it.
func Within(path, root string) bool {
	path, root = strings.Trim(path, "/"), strings.Trim(root, "/")
	return path == root || strings.HasPrefix(path, root+"/")
}

func nonEmpty(segs []string) bool {
	for _, s := range segs {
		if s == "" {
			return false
		}
	}
	return true
}

func UserPath(uid models.UserID) string {
	return Join(UsersCollection, string(uid))
}

func MyGroupsPath(uid models.UserID) string {
	return Join(UsersCollection, string(uid), MyGroupsCollection, MyGroupDocument)
}

func MyAttendancePath(uid models.UserID, gid models.GroupID) string {
	return Join(UsersCollection, string(uid), MyAttendanceCollection, string(gid))
}

func MyPerformancePath(uid models.UserID, gid models.GroupID) string {
	return Join(UsersCollection, string(uid), MyPerformanceCollection, string(gid))
}

func MyDevicesPath(uid models.UserID) string {
	return Join(UsersCollection, string(uid), MyDevicesCollection, MyDeviceDocument)
}

func GroupPath(gid models.GroupID) string {
	return Join(GroupsCollection, string(gid))
}

func MemberRosterPath(gid models.GroupID) string {
	return Join(GroupsCollection, string(gid), MembersCollection, MemberDocument)
}

func TokenDocumentPath(gid models.GroupID) string {
	return Join(GroupsCollection, string(gid), MembersCollection, TokenDocument)
}

func MemberIndexPath(gid models.GroupID) string {
	return Join(GroupsCollection, string(gid), MembersCollection, MemberIndex)
}

func AttendeeRosterPath(gid models.GroupID, eid models.EventID) string {
	return Join(GroupsCollection, string(gid), EventsCollection, string(eid), AttendeesCollection, AttendeeDocument)
}

func PerformerRosterPath(gid models.GroupID, pid models.ProgramID) string {
	return Join(GroupsCollection, string(gid), ProgramsCollection, string(pid), PerformersCollection, PerformerDocument)
}
