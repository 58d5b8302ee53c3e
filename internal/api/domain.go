package api

import (
	"github.com/JaimeStill/botwatch/internal/posts"
	"github.com/JaimeStill/botwatch/internal/reports"
)

// Domain holds all domain systems that comprise the API.
// Reports is nil when recording is disabled.
type Domain struct {
	Posts   posts.System
	Reports reports.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	var blobs posts.Blobs
	if runtime.Storage != nil {
		blobs = runtime.Storage
	}

	return &Domain{
		Posts:   posts.New(runtime.Workflow, blobs, runtime.Logger),
		Reports: runtime.Reports,
	}
}
