// Package profiles defines the liker profile record and the roster documents
// that carry a post's likers between pipeline stages.
package profiles

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
)

// ID is an upstream account identifier. The API emits it as a JSON string
// or a bare number; it is always written back as a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("pk must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Profile is one liker's profile snapshot as consumed by scoring.
//
// The upstream likers payload only carries identity and the private and
// verified flags. The remaining signals are added by enrichment and are
// omitted from the JSON form while unset. Fields not modeled here are kept
// in Extra and written back untouched.
type Profile struct {
	ID         ID     `json:"pk"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	IsPrivate  bool   `json:"is_private"`
	IsVerified bool   `json:"is_verified"`

	HasBiography      bool `json:"hasBiography,omitempty"`
	HasExternalURL    bool `json:"hasExternalUrl,omitempty"`
	HasStories        bool `json:"hasStories,omitempty"`
	HasHighlights     bool `json:"hasHighlights,omitempty"`
	HasHighlightReels bool `json:"hasHighlightReels,omitempty"`
	IsBusiness        bool `json:"isBusiness,omitempty"`
	HasChaining       bool `json:"hasChaining,omitempty"`
	FollowerCount     int  `json:"followerCount,omitempty"`
	FollowingCount    int  `json:"followingCount,omitempty"`
	MediaCount        int  `json:"mediaCount,omitempty"`
	NumAdminedPages   int  `json:"numOfAdminedPages,omitempty"`

	// ComplementError records why enrichment could not complete this profile.
	ComplementError string `json:"complement_error,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// profileFields has Profile's layout without its JSON methods.
type profileFields Profile

var knownKeys = []string{
	"pk", "username", "full_name", "is_private", "is_verified",
	"hasBiography", "hasExternalUrl", "hasStories", "hasHighlights",
	"hasHighlightReels", "isBusiness", "hasChaining",
	"followerCount", "followingCount", "mediaCount", "numOfAdminedPages",
	"complement_error",
}

func (p *Profile) UnmarshalJSON(data []byte) error {
	var fields profileFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range knownKeys {
		delete(raw, k)
	}

	fields.Extra = nil
	if len(raw) > 0 {
		fields.Extra = make(map[string]json.RawMessage, len(raw))
		for k, v := range raw {
			var buf bytes.Buffer
			if err := json.Compact(&buf, v); err != nil {
				return fmt.Errorf("field %s: %w", k, err)
			}
			fields.Extra[k] = buf.Bytes()
		}
	}

	*p = Profile(fields)
	return nil
}

func (p Profile) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(profileFields(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return data, nil
	}

	merged := make(map[string]json.RawMessage, len(p.Extra)+len(knownKeys))
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}

	return json.Marshal(merged)
}

// Clone returns a copy of p that shares no mutable state with it.
func (p Profile) Clone() Profile {
	c := p
	if p.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = bytes.Clone(v)
		}
	}
	return c
}

// Fields returns the profile's JSON object as a key/value map, including
// unmodeled upstream fields.
func (p Profile) Fields() (map[string]json.RawMessage, error) {
	data, err := p.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// Equal reports whether two profiles carry the same modeled and unmodeled values.
func (p Profile) Equal(o Profile) bool {
	a, b := p, o
	a.Extra, b.Extra = nil, nil
	if !reflect.DeepEqual(a, b) {
		return false
	}
	return maps.EqualFunc(p.Extra, o.Extra, func(x, y json.RawMessage) bool {
		return bytes.Equal(x, y)
	})
}
