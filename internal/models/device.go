package models

import "time"

// Device is one registered device in Users/{uid}/MyDevices/MyDeviceDocument,
// keyed by UDID.
type Device struct {
	LastUpdatedOn time.Time `json:"last_updated_on" firestore:"LastUpdatedOn"`
	MyDeviceType  string    `json:"device_type" firestore:"MyDeviceType"`
	MyFCMToken    string    `json:"-" firestore:"MyFCMToken"`
	MyUDID        UDID      `json:"udid" firestore:"MyUDID"`
}

type Devices map[UDID]Device

func DevicesFromData(data map[string]any) Devices {
	out := make(Devices, len(data))
	for key, raw := range data {
		m := AsMap(raw)
		if m == nil {
			continue
		}
		var d Device
		decodeRecord(m, &d)
		if d.MyUDID == "" {
			d.MyUDID = UDID(key)
		}
		out[d.MyUDID] = d
	}
	return out
}

// Tokens builds the UDID -> push token map published to group token documents.
func (d Devices) Tokens() TokenSet {
	out := make(TokenSet, len(d))
	for _, dev := range d {
		out[dev.MyUDID] = dev.MyFCMToken
	}
	return out
}

// TokenSet maps a user's device ids to push tokens.
type TokenSet map[UDID]string

func (t TokenSet) Data() map[string]any {
	out := make(map[string]any, len(t))
	for udid, token := range t {
		out[string(udid)] = token
	}
	return out
}

func TokenSetFromData(data map[string]any) TokenSet {
	out := make(TokenSet, len(data))
	for udid, raw := range data {
		token, _ := raw.(string)
		out[UDID(udid)] = token
	}
	return out
}

// GroupTokens is the decoded Groups/{gid}/Members/TokenDocument.
type GroupTokens map[UserID]TokenSet

func GroupTokensFromData(data map[string]any) GroupTokens {
	out := make(GroupTokens, len(data))
	for uid, raw := range data {
		out[UserID(uid)] = TokenSetFromData(AsMap(raw))
	}
	return out
}

// Deliverable reports whether a registered token can be sent to. Clients
// store "" or "unknown" until the platform hands them a real token.
func Deliverable(token string) bool {
	return token != "" && token != "unknown"
}
