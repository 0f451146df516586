// Package types provides data types for persisting objects in the databases.
package types

import (
	"strconv"
	"time"
)

// StoreError satisfies Error interface but allows constant values for
// direct comparison.
type StoreError string

// Error is required by error interface.
func (s StoreError) Error() string {
	return string(s)
}

const (
	// ErrInternal means DB or other internal failure.
	ErrInternal = StoreError("internal")
	// ErrMalformed means the input cannot be parsed or is otherwise wrong.
	ErrMalformed = StoreError("malformed")
	// ErrFailed means the operation could not be completed.
	ErrFailed = StoreError("failed")
	// ErrDuplicate means duplicate value, such as an email address.
	ErrDuplicate = StoreError("duplicate value")
	// ErrUnsupported means an operation is not supported.
	ErrUnsupported = StoreError("unsupported")
	// ErrNotFound means the object was not found.
	ErrNotFound = StoreError("not found")
	// ErrPolicy means the operation was rejected because of a configured policy, i.e. domain whitelist.
	ErrPolicy = StoreError("policy")
)

// PostState is the publication state of a topic or a reply in the host forum.
type PostState string

const (
	// StatePublished is a post visible to everyone.
	StatePublished PostState = "publish"
	// StateClosed is a published topic which does not accept new replies.
	StateClosed PostState = "closed"
	// StatePending is a post waiting for moderation.
	StatePending PostState = "pending"
	// StateSpam is a post marked as spam.
	StateSpam PostState = "spam"
	// StateTrash is a deleted post.
	StateTrash PostState = "trash"
	// StatePrivate is a post visible to the staff only.
	StatePrivate PostState = "private"
)

// IsPublished checks if the post is visible to the public. Closed topics are still published.
func (s PostState) IsPublished() bool {
	return s == StatePublished || s == StateClosed
}

// ObjHeader is the header shared by all stored objects.
type ObjHeader struct {
	// Id is assigned by the host forum.
	Id        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IdString returns the object's Id in base 10.
func (h *ObjHeader) IdString() string {
	return strconv.FormatInt(h.Id, 10)
}

// InitTimes initializes time.Time variables in the header to current time.
func (h *ObjHeader) InitTimes() {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = TimeNow()
	}
	h.UpdatedAt = h.CreatedAt
}

// Topic is a mirror of a discussion thread of the host forum.
type Topic struct {
	ObjHeader `bson:",inline"`
	Title     string    `json:"title"`
	Permalink string    `json:"permalink"`
	State     PostState `json:"state"`
}

// Reply is a mirror of a single post within a topic.
type Reply struct {
	ObjHeader `bson:",inline"`
	Topic     int64     `json:"topic"`
	State     PostState `json:"state"`
	// Display name of the author.
	AuthorName string `json:"authorName"`
	// Email of the author, possibly anonymous.
	AuthorEmail string `json:"authorEmail"`
	// Content of the reply, HTML.
	Content string `json:"content"`
	// Permalink to the reply.
	Url string `json:"url"`
}

// TimeNow returns current wall time in UTC rounded to milliseconds.
func TimeNow() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
