// Package cursor implements the opaque pagination token the references
// pipeline hands back to clients (spec §3, §4.6, §6). It is a
// base64(JSON) blob carrying a schema version; unknown versions are
// rejected outright rather than partially decoded, grounded on the
// teacher's own marshal-then-encode plumbing (hash the JSON form of a
// cache key) applied here to a public-facing token instead of an
// internal cache key.
package cursor

import (
	"encoding/base64"
	"encoding/json"

	"codeintel/src/internal/errors"
)

// CurrentVersion is the schema version Encode stamps onto every cursor it
// produces. Decode rejects any other value with a CursorInvalidError.
const CurrentVersion = 1

// Phase is the pagination state machine's current state (spec §4.6).
type Phase string

const (
	PhaseSameRepo  Phase = "same-repo"
	PhaseRemoteRepo Phase = "remote-repo"
)

// ReferencePaginationCursor is the cursor shape of spec §3: opaque to the
// client, produced by the server, echoed back verbatim on the next
// request.
type ReferencePaginationCursor struct {
	SchemaVersion  int    `json:"schemaVersion"`
	DumpID         int64  `json:"dumpId"`
	Scheme         string `json:"scheme"`
	Identifier     string `json:"identifier"`
	Name           string `json:"name"`
	PackageVersion string `json:"packageVersion"`
	Phase          Phase  `json:"phase"`
	Offset         int    `json:"offset"`
}

// Encode serialises c as a base64(JSON) string, stamping CurrentVersion.
func Encode(c ReferencePaginationCursor) (string, error) {
	c.SchemaVersion = CurrentVersion
	data, err := json.Marshal(c)
	if err != nil {
		return "", errors.NewInternalError("cursor-encode", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses an opaque cursor string produced by Encode. Unknown
// schema versions and malformed input are both rejected with
// CursorInvalidError (spec §7 "CursorInvalid").
func Decode(s string) (ReferencePaginationCursor, error) {
	var c ReferencePaginationCursor
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return c, errors.NewCursorInvalidError("not valid base64")
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, errors.NewCursorInvalidError("not valid JSON")
	}
	if c.SchemaVersion != CurrentVersion {
		return c, errors.NewCursorInvalidError("unsupported schema version")
	}
	return c, nil
}
