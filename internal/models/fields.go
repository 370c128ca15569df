package models

import (
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// decodeRecord maps generic document data onto a record through its
// firestore tags. Every backend hands data over as map[string]any with its
// own number and time shapes; fields that do not convert keep their zero
// value, shape validation being the access-control rules' job.
func decodeRecord(data map[string]any, out any) {
	if len(data) == 0 {
		return
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "firestore",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		Result:           out,
	})
	if err != nil {
		return
	}
	_ = dec.Decode(data)
}

// AsMap converts an arbitrary document value to a map when it is one.
func AsMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
