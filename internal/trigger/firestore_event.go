package trigger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/bandroom/backend/internal/storage"
)

var (
	ErrMissingDocument = errors.New("trigger: event names no document")
	ErrMissingUID      = errors.New("trigger: auth event carries no uid")
)

// firestoreEvent is the JSON payload of a Firestore document write as the
// functions runtime delivers it: both sides of the write as REST-encoded
// Document messages.
type firestoreEvent struct {
	OldValue   json.RawMessage `json:"oldValue"`
	Value      json.RawMessage `json:"value"`
	UpdateMask struct {
		FieldPaths []string `json:"fieldPaths"`
	} `json:"updateMask"`
}

// cloudEventEnvelope handles structured content mode where the payload is
// nested inside a "data" field.
type cloudEventEnvelope struct {
	Subject string          `json:"subject"`
	Data    json.RawMessage `json:"data"`
}

var documentJSON = protojson.UnmarshalOptions{DiscardUnknown: true}

// DecodeFirestoreEvent decodes a document write event. subject, typically
// the Ce-Subject header ("documents/Users/u1"), names the document when
// neither side of the write carries a name.
func DecodeFirestoreEvent(body []byte, subject string) (Change, error) {
	var ev firestoreEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return Change{}, fmt.Errorf("trigger: decode firestore event: %w", err)
	}
	if len(ev.OldValue) == 0 && len(ev.Value) == 0 {
		var env cloudEventEnvelope
		if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &ev); err != nil {
				return Change{}, fmt.Errorf("trigger: decode firestore event data: %w", err)
			}
			if subject == "" {
				subject = env.Subject
			}
		}
	}

	oldDoc, err := parseDocument(ev.OldValue)
	if err != nil {
		return Change{}, fmt.Errorf("trigger: old value: %w", err)
	}
	newDoc, err := parseDocument(ev.Value)
	if err != nil {
		return Change{}, fmt.Errorf("trigger: value: %w", err)
	}

	path := ""
	for _, d := range []*firestorepb.Document{newDoc, oldDoc} {
		if d.GetName() != "" {
			path = documentPath(d.GetName())
			break
		}
	}
	if path == "" {
		path = documentPath(subject)
	}
	if !storage.IsDocumentPath(path) {
		return Change{}, ErrMissingDocument
	}

	before, err := snapshotOf(path, oldDoc)
	if err != nil {
		return Change{}, fmt.Errorf("trigger: old value: %w", err)
	}
	after, err := snapshotOf(path, newDoc)
	if err != nil {
		return Change{}, fmt.Errorf("trigger: value: %w", err)
	}
	return Change{Path: path, Before: before, After: after}, nil
}

// parseDocument returns nil for an absent or null side of the write.
func parseDocument(raw json.RawMessage) (*firestorepb.Document, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	doc := &firestorepb.Document{}
	if err := documentJSON.Unmarshal(raw, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// documentPath strips the "projects/p/databases/d/documents/" prefix.
func documentPath(name string) string {
	if i := strings.Index(name, "/documents/"); i >= 0 {
		return name[i+len("/documents/"):]
	}
	return strings.TrimPrefix(strings.Trim(name, "/"), "documents/")
}

// snapshotOf treats a document without a name as absent.
func snapshotOf(path string, d *firestorepb.Document) (storage.Snapshot, error) {
	if d.GetName() == "" {
		return storage.Missing(path), nil
	}
	data, err := fieldsOf(d.GetFields())
	if err != nil {
		return storage.Snapshot{}, err
	}
	return storage.Snapshot{Path: path, Exists: true, Data: data}, nil
}

func fieldsOf(fields map[string]*firestorepb.Value) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		gv, err := valueOf(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = gv
	}
	return out, nil
}

// valueOf converts a Firestore value into the Go shapes the stores use:
// int64, float64, time.Time, []byte, map[string]any and []any.
func valueOf(v *firestorepb.Value) (any, error) {
	switch t := v.GetValueType().(type) {
	case *firestorepb.Value_NullValue:
		return nil, nil
	case *firestorepb.Value_BooleanValue:
		return t.BooleanValue, nil
	case *firestorepb.Value_IntegerValue:
		return t.IntegerValue, nil
	case *firestorepb.Value_DoubleValue:
		return t.DoubleValue, nil
	case *firestorepb.Value_TimestampValue:
		return t.TimestampValue.AsTime(), nil
	case *firestorepb.Value_StringValue:
		return t.StringValue, nil
	case *firestorepb.Value_BytesValue:
		return t.BytesValue, nil
	case *firestorepb.Value_ReferenceValue:
		return t.ReferenceValue, nil
	case *firestorepb.Value_GeoPointValue:
		return map[string]any{
			"latitude":  t.GeoPointValue.GetLatitude(),
			"longitude": t.GeoPointValue.GetLongitude(),
		}, nil
	case *firestorepb.Value_MapValue:
		return fieldsOf(t.MapValue.GetFields())
	case *firestorepb.Value_ArrayValue:
		out := make([]any, 0, len(t.ArrayValue.GetValues()))
		for _, e := range t.ArrayValue.GetValues() {
			ev, err := valueOf(e)
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}
		return out, nil
	}
	return nil, errors.New("value of unknown kind")
}

// DecodeAuthEvent extracts the uid of an identity-provider user event,
// accepting the bare user record or a CloudEvent envelope around it.
func DecodeAuthEvent(body []byte) (string, error) {
	var rec struct {
		UID string `json:"uid"`
	}
	if err := json.Unmarshal(body, &rec); err != nil {
		return "", fmt.Errorf("trigger: decode auth event: %w", err)
	}
	if rec.UID == "" {
		var env cloudEventEnvelope
		if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
			_ = json.Unmarshal(env.Data, &rec)
		}
	}
	if rec.UID == "" {
		return "", ErrMissingUID
	}
	return rec.UID, nil
}
