package services

import (
	"github.com/bandroom/backend/internal/models"
	"github.com/bandroom/backend/internal/trigger"
)

// Document patterns the synchronizers listen on.
const (
	PatternUser          = "Users/{userID}"
	PatternMyGroups      = "Users/{userID}/MyGroups/MyGroupDocument"
	PatternMyAttendance  = "Users/{userID}/MyAttendance/{groupID}"
	PatternMyPerformance = "Users/{userID}/MyPerformance/{groupID}"
	PatternMyDevices     = "Users/{userID}/MyDevices/MyDeviceDocument"
	PatternGroup         = "Groups/{groupID}"
	PatternEvent         = "Groups/{groupID}/Events/{eventID}"
	PatternMail          = "Groups/{groupID}/Mails/{mailID}"
)

// Synchronizers is the full set of document-write reactions.
type Synchronizers struct {
	Attendance    *AttendanceSync
	Performance   *PerformanceSync
	Groups        *GroupSync
	Membership    *MembershipSync
	Tokens        *TokenSync
	MemberNames   *MemberNameSync
	Notifications *NotificationService
}

// Register binds every non-nil synchronizer to its pattern.
func (s *Synchronizers) Register(r *trigger.Router) {
	if s.Attendance != nil {
		r.Handle(PatternMyAttendance, "syncAttendance", s.Attendance.Handle)
	}
	if s.Performance != nil {
		r.Handle(PatternMyPerformance, "syncPerformance", s.Performance.Handle)
	}
	if s.Groups != nil {
		r.Handle(PatternGroup, "syncGroup", s.Groups.Handle)
	}
	if s.Membership != nil {
		r.Handle(PatternMyGroups, "syncMembership", s.Membership.Handle)
	}
	if s.Tokens != nil {
		r.Handle(PatternMyDevices, "syncToken", s.Tokens.Handle)
	}
	if s.MemberNames != nil {
		r.Handle(PatternUser, "syncMemberName", s.MemberNames.Handle)
	}
	if s.Notifications != nil {
		r.Handle(PatternEvent, "notifyEvent", s.Notifications.Handler(models.PostKindEvent))
		r.Handle(PatternMail, "notifyMail", s.Notifications.Handler(models.PostKindMail))
	}
}
