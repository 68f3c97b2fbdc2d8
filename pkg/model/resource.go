package model

import (
	"time"
	"unsafe"
)

// Resource is the payload type the registry service manages through shared
// handles: an opaque body with a content type. The service never mutates a
// stored Resource; replacement swaps the whole handle.
type Resource struct {
	key         string
	body        []byte
	contentType string
	createdAt   time.Time
}

func NewResource(key string, body []byte, contentType string) *Resource {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Resource{
		key:         key,
		body:        body,
		contentType: contentType,
		createdAt:   time.Now(),
	}
}

func (r *Resource) Key() string {
	return r.key
}

func (r *Resource) Body() []byte {
	return r.body
}

func (r *Resource) ContentType() string {
	return r.contentType
}

func (r *Resource) CreatedAt() time.Time {
	return r.createdAt
}

// Weight is the accounted size in bytes: the struct itself plus the
// referenced body and strings, which unsafe.Sizeof alone undercounts.
func (r *Resource) Weight() int64 {
	return int64(unsafe.Sizeof(*r)) +
		int64(len(r.body)) +
		int64(len(r.key)) +
		int64(len(r.contentType))
}
