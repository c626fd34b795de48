// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Paper is one bibliographic record returned by the service. ID is unique
// within a single response only.
type Paper struct {
	ID       int     `json:"id" yaml:"id"`
	Title    string  `json:"title" yaml:"title"`
	Authors  Authors `json:"authors" yaml:"authors"`
	Year     int     `json:"year" yaml:"year"`
	Abstract string  `json:"abstract" yaml:"abstract"`
	URL      string  `json:"url" yaml:"url"`
}

// Authors is the display string of a paper's author list
// (e.g. "Johnson, A., Smith, B."). Some service versions send a JSON array
// of names instead; both decode to the same string.
type Authors string

// UnmarshalJSON accepts either a string or an array of strings.
func (a *Authors) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Authors(s)
		return nil
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("authors: want string or list of strings: %w", err)
	}
	*a = Authors(strings.Join(names, ", "))
	return nil
}

// FindPaper returns the paper with the given ID, if present.
func FindPaper(papers []Paper, id int) (Paper, bool) {
	for _, p := range papers {
		if p.ID == id {
			return p, true
		}
	}
	return Paper{}, false
}
