package models

import "time"

// PostKind distinguishes the group-scoped documents that notify members.
type PostKind string

const (
	PostKindEvent PostKind = "Event"
	PostKindMail  PostKind = "Mail"
)

// Post is the subset of a schedule (Groups/{gid}/Events/{id}) or mail
// (Groups/{gid}/Mails/{id}) document the notifier reads.
type Post struct {
	OwnerID           string    `json:"owner_id" firestore:"OwnerID"`
	OwnerName         string    `json:"owner_name" firestore:"OwnerName"`
	FirstUpdatedByID  UserID    `json:"first_updated_by_id" firestore:"FirstUpdatedByID"`
	LastUpdatedByID   UserID    `json:"last_updated_by_id" firestore:"LastUpdatedByID"`
	LastUpdatedByName string    `json:"last_updated_by_name" firestore:"LastUpdatedByName"`
	TagAttendance     bool      `json:"tag_attendance" firestore:"TagAttendance"`
	TagCancel         bool      `json:"tag_cancel" firestore:"TagCancel"`
	TagImportance     bool      `json:"tag_importance" firestore:"TagImportance"`
	TimestampStart    time.Time `json:"timestamp_start" firestore:"TimestampStart"`
	TimestampEnd      time.Time `json:"timestamp_end" firestore:"TimestampEnd"`
}

func PostFromData(data map[string]any) Post {
	var p Post
	decodeRecord(data, &p)
	return p
}
