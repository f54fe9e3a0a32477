package domain

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// FillStruct decodes attrs into the struct pointed to by dst using the
// `attr` struct tags. Only the attributes present in attrs are assigned.
//
// Decoding is weakly typed so that driver values (int64 booleans from
// SQLite, []byte strings, float64 JSON numbers) land in the Go field types.
func FillStruct(dst any, attrs Attributes) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "attr",
		WeaklyTypedInput: true,
		Result:           dst,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			bytesToStringHook,
			sqliteTimeHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to build attribute decoder: %w", err)
	}

	if err := decoder.Decode(map[string]any(attrs)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return nil
}

func bytesToStringHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if b, ok := data.([]byte); ok && to.Kind() != reflect.Slice {
		return string(b), nil
	}
	return data, nil
}

var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

// sqliteTimeHook accepts the text layouts SQLite drivers store timestamps in.
func sqliteTimeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	s, ok := data.(string)
	if !ok || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return data, nil
}
