package models

import (
	"sort"
	"time"
)

// Group is the canonical group record at Groups/{gid}.
type Group struct {
	ID            GroupID `json:"id" firestore:"-"`
	GroupName     string  `json:"group_name" firestore:"GroupName"`
	GroupNameEng  string  `json:"group_name_eng" firestore:"GroupNameEng"`
	GroupPassword string  `json:"-" firestore:"GroupPassword"`
}

func GroupFromData(id GroupID, data map[string]any) Group {
	var g Group
	decodeRecord(data, &g)
	g.ID = id
	return g
}

// Profile returns the fields every MyGroup cache copies from the group.
func (g Group) Profile() map[string]any {
	return map[string]any{
		"MyGroupName":     g.GroupName,
		"MyGroupNameEng":  g.GroupNameEng,
		"MyGroupPassword": g.GroupPassword,
	}
}

// MyGroup is one user's cached view of a group they belong to, stored as an
// entry of Users/{uid}/MyGroups/MyGroupDocument keyed by group id.
type MyGroup struct {
	MyGroupID       GroupID   `json:"group_id" firestore:"MyGroupID"`
	MyGroupName     string    `json:"group_name" firestore:"MyGroupName"`
	MyGroupNameEng  string    `json:"group_name_eng" firestore:"MyGroupNameEng"`
	MyGroupPassword string    `json:"-" firestore:"MyGroupPassword"`
	MyJoiningDate   time.Time `json:"joining_date" firestore:"MyJoiningDate"`
	MyMemberType    string    `json:"member_type" firestore:"MyMemberType"`
	MyPart          string    `json:"part" firestore:"MyPart"`
	MyRole          string    `json:"role" firestore:"MyRole"`
}

// MyGroups is the decoded MyGroupDocument.
type MyGroups map[GroupID]MyGroup

// MyGroupsFromData decodes MyGroupDocument. Entries without an explicit
// MyGroupID take the map key.
func MyGroupsFromData(data map[string]any) MyGroups {
	out := make(MyGroups, len(data))
	for key, raw := range data {
		m := AsMap(raw)
		if m == nil {
			continue
		}
		var g MyGroup
		decodeRecord(m, &g)
		if g.MyGroupID == "" {
			g.MyGroupID = GroupID(key)
		}
		out[g.MyGroupID] = g
	}
	return out
}

// IDs returns the group ids of the cache in ascending order.
func (g MyGroups) IDs() []GroupID {
	ids := make([]GroupID, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Member is a roster entry in Groups/{gid}/Members/MemberDocument keyed by uid.
type Member struct {
	MemberName  string    `json:"member_name" firestore:"MemberName"`
	MemberType  string    `json:"member_type" firestore:"MemberType"`
	Role        string    `json:"role" firestore:"Role"`
	Term        string    `json:"term" firestore:"Term"`
	JoiningDate time.Time `json:"joining_date" firestore:"JoiningDate"`
}

func MemberFromData(data map[string]any) Member {
	var m Member
	decodeRecord(data, &m)
	return m
}
