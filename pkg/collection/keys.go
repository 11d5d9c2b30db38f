// Package collection projects JSON documents into collection items.
package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"unicode/utf8"

	"github.com/Vilsol/kiln/pkg/site"
	"github.com/samber/oops"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Keys returns the top-level keys of the JSON object in data, in source order.
// Values are parsed for validity and discarded. Keys containing an unpaired
// UTF-16 surrogate escape such as "\ud800" are rejected, since they have no
// exact UTF-8 form.
func Keys(data []byte) ([]string, error) {
	if !utf8.Valid(data) {
		return nil, oops.In("collection").Code("collection_invalid_utf8").Errorf("input is not valid UTF-8")
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, oops.In("collection").Code("collection_invalid_json").Errorf("input is empty")
	}

	if trimmed[0] != '{' {
		return nil, oops.In("collection").Code("collection_not_object").
			Errorf("expected a JSON object, found %q", trimmed[0])
	}

	om := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(trimmed, om); err != nil {
		return nil, oops.In("collection").Code("collection_invalid_json").Wrapf(err, "failed to parse JSON object")
	}

	keys := make([]string, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}

	return keys, nil
}

// ReadKeys reads the file at path and returns its top-level keys.
func ReadKeys(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.In("collection").Code("collection_unreadable").With("path", path).
			Wrapf(err, "failed to read %s", path)
	}

	keys, err := Keys(data)
	if err != nil {
		return nil, oops.In("collection").With("path", path).Wrapf(err, "invalid collection source %s", path)
	}

	return keys, nil
}

// JSONKeys returns a collection function whose items are the top-level keys of the JSON
// file at elem, resolved against the site root. The file is read on every invocation.
func JSONKeys(elem ...string) site.CollectionFunc {
	return func(_ context.Context, api site.CollectionAPI) ([]any, error) {
		keys, err := ReadKeys(api.Resolve(elem...))
		if err != nil {
			return nil, err
		}

		items := make([]any, len(keys))
		for i, key := range keys {
			items[i] = key
		}

		return items, nil
	}
}
