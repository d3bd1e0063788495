package admission

import (
	"errors"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrEmptyDeviceID = errors.New("device identity is empty")

// AllowList is a set of normalized device identities. An empty list permits every device.
type AllowList struct {
	ids map[string]struct{}
}

// NewAllowList creates an allow-list seeded with ids. Blank entries are skipped.
func NewAllowList(ids ...string) *AllowList {
	al := &AllowList{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		_, _ = al.Add(id)
	}

	return al
}

// Normalize trims surrounding whitespace and upper-cases id.
func Normalize(id string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(id))
}

// Add inserts id and returns its normalized form.
func (al *AllowList) Add(id string) (string, error) {
	n := Normalize(id)
	if n == "" {
		return "", ErrEmptyDeviceID
	}

	al.ids[n] = struct{}{}

	return n, nil
}

// Remove deletes id and reports whether it was present.
func (al *AllowList) Remove(id string) bool {
	n := Normalize(id)
	if _, ok := al.ids[n]; !ok {
		return false
	}

	delete(al.ids, n)

	return true
}

// Clear empties the list, which disables filtering.
func (al *AllowList) Clear() {
	clear(al.ids)
}

// Replace swaps the content for ids.
func (al *AllowList) Replace(ids []string) {
	al.Clear()

	for _, id := range ids {
		_, _ = al.Add(id)
	}
}

// Contains reports whether the normalized id is listed.
func (al *AllowList) Contains(id string) bool {
	_, ok := al.ids[Normalize(id)]
	return ok
}

// Permits reports whether a reading from id may be admitted.
func (al *AllowList) Permits(id string) bool {
	return al.Len() == 0 || al.Contains(id)
}

// Len returns the number of entries.
func (al *AllowList) Len() int {
	return len(al.ids)
}

// IDs returns the entries sorted.
func (al *AllowList) IDs() []string {
	ids := make([]string, 0, len(al.ids))
	for id := range al.ids {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}
