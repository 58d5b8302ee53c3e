package profiles

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/JaimeStill/botwatch/pkg/jsonfile"
)

// Canonical roster file names inside a post directory.
const (
	RawFile      = "users.json"
	EnrichedFile = "users.enriched.json"
)

// Roster is the persisted liker list of one post. Enriched rosters carry the
// enrichment time and the name of the raw roster they were built from.
type Roster struct {
	Timestamp           time.Time  `json:"timestamp"`
	PostID              string     `json:"postId"`
	TotalUsers          int        `json:"totalUsers"`
	EnrichmentTimestamp *time.Time `json:"enrichmentTimestamp,omitempty"`
	OriginalFile        string     `json:"originalFile,omitempty"`
	Users               []Profile  `json:"users"`
}

// NewRoster stamps users into a roster document for postID.
// An empty postID or a nil user list is rejected with ErrInvalidRoster;
// an empty, non-nil list is a valid roster.
func NewRoster(postID string, users []Profile) (*Roster, error) {
	if postID == "" {
		return nil, fmt.Errorf("%w: post id is empty", ErrInvalidRoster)
	}
	if users == nil {
		return nil, fmt.Errorf("%w: users is not a list", ErrInvalidRoster)
	}

	return &Roster{
		Timestamp:  time.Now().UTC(),
		PostID:     postID,
		TotalUsers: len(users),
		Users:      users,
	}, nil
}

// LooseRawName is the file name a freshly fetched roster is written under
// in the output root, before it is moved into its post directory.
func LooseRawName(postID string) string {
	return postID + "-users.json"
}

// LooseEnrichedName is the loose file name of an enriched roster produced
// outside the post directory.
func LooseEnrichedName(postID string) string {
	return postID + "-enriched-users.json"
}

// WriteRoster persists r at path as indented JSON.
func WriteRoster(path string, r *Roster) error {
	if r == nil {
		return fmt.Errorf("%w: roster is nil", ErrInvalidRoster)
	}
	return jsonfile.Write(path, r)
}

// WriteLooseRoster writes users as the loose raw roster of postID under root
// and returns the written path.
func WriteLooseRoster(root, postID string, users []Profile) (string, error) {
	r, err := NewRoster(postID, users)
	if err != nil {
		return "", err
	}

	path := filepath.Join(root, LooseRawName(postID))
	if err := WriteRoster(path, r); err != nil {
		return "", err
	}
	return path, nil
}

// ReadRoster loads the roster document at path. A missing file wraps
// jsonfile.ErrNotExist; undecodable content or a document without a users
// list is reported as ErrMalformedRoster.
func ReadRoster(path string) (*Roster, error) {
	r, err := jsonfile.Read[*Roster](path)
	if err != nil {
		if errors.Is(err, jsonfile.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedRoster, err)
	}
	if r == nil || r.Users == nil {
		return nil, fmt.Errorf("%w: %s has no users list", ErrMalformedRoster, path)
	}
	return r, nil
}
