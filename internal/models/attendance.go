package models

// Attendance is one entry of a user's MyAttendance document, keyed by event id.
type Attendance struct {
	EventID          EventID `json:"event_id" firestore:"EventID"`
	MyAttendanceType int     `json:"type" firestore:"MyAttendanceType"`
	MyAttendanceText string  `json:"text" firestore:"MyAttendanceText"`
}

// AttendanceMap is the decoded MyAttendance document.
type AttendanceMap map[EventID]Attendance

func AttendanceMapFromData(data map[string]any) AttendanceMap {
	out := make(AttendanceMap, len(data))
	for key, raw := range data {
		m := AsMap(raw)
		if m == nil {
			continue
		}
		var a Attendance
		decodeRecord(m, &a)
		if a.EventID == "" {
			a.EventID = EventID(key)
		}
		out[a.EventID] = a
	}
	return out
}

// SameAs reports whether both entries carry the same tracked values.
func (a Attendance) SameAs(o Attendance) bool {
	return a.MyAttendanceType == o.MyAttendanceType && a.MyAttendanceText == o.MyAttendanceText
}

// Attendee is the roster-side projection of an Attendance entry.
type Attendee struct {
	AttendeeID             UserID `json:"attendee_id" firestore:"AttendeeID"`
	AttendeeAttendanceType int    `json:"type" firestore:"AttendeeAttendanceType"`
	AttendeeAttendanceText string `json:"text" firestore:"AttendeeAttendanceText"`
}

// Attendee projects the entry into the attendee roster for uid.
func (a Attendance) Attendee(uid UserID) Attendee {
	return Attendee{
		AttendeeID:             uid,
		AttendeeAttendanceType: a.MyAttendanceType,
		AttendeeAttendanceText: a.MyAttendanceText,
	}
}

func (a Attendee) Data() map[string]any {
	return map[string]any{
		"AttendeeID":             string(a.AttendeeID),
		"AttendeeAttendanceType": a.AttendeeAttendanceType,
		"AttendeeAttendanceText": a.AttendeeAttendanceText,
	}
}

func AttendeeFromData(data map[string]any) Attendee {
	var a Attendee
	decodeRecord(data, &a)
	return a
}
