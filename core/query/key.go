package query

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

var ErrInvalidKey = errors.New("invalid query key")

// Key identifies a logical data request, eg. Key{"semesters", catalogueID}.
// Elements may be any JSON-serializable value.
type Key []interface{}

// canonical encodes v as JSON with every object's keys sorted, structs included.
func canonical(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err = dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// Hash serializes the key to a stable string.
// Object keys are sorted, so structurally equal keys always hash equally and
// a struct element hashes like its JSON object form.
func (k Key) Hash() (string, error) {
	if len(k) == 0 {
		return "", errors.Wrap(ErrInvalidKey, "empty key")
	}
	data, err := canonical([]interface{}(k))
	if err != nil {
		return "", errors.Wrap(ErrInvalidKey, err.Error())
	}
	return string(data), nil
}

// Scope is the first element of the key, eg. "semesters".
func (k Key) Scope() string {
	if len(k) == 0 {
		return ""
	}
	if s, ok := k[0].(string); ok {
		return s
	}
	return fmt.Sprint(k[0])
}

// HasPrefix reports whether the key starts with all elements of prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) == 0 || len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		a, errA := canonical(k[i])
		b, errB := canonical(prefix[i])
		if errA != nil || errB != nil || !bytes.Equal(a, b) {
			return false
		}
	}
	return true
}

// ParseKey decodes a JSON array (as produced by Key.Hash) back into a Key.
func ParseKey(s string) (Key, error) {
	var elems []interface{}
	if err := json.Unmarshal([]byte(s), &elems); err != nil {
		return nil, errors.Wrap(ErrInvalidKey, "key must be a JSON array")
	}
	if len(elems) == 0 {
		return nil, errors.Wrap(ErrInvalidKey, "empty key")
	}
	return Key(elems), nil
}
