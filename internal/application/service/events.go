package service

import (
	"context"

	"github.com/google/uuid"
)

type ContentAction string

const (
	ContentCreated ContentAction = "created"
	ContentUpdated ContentAction = "updated"
	ContentDeleted ContentAction = "deleted"
)

// ContentEvent announces a confirmed write to one CMS collection.
type ContentEvent struct {
	Collection string        `json:"collection"`
	Action     ContentAction `json:"action"`
	ID         uuid.UUID     `json:"id"`
}

type ContentPublisher interface {
	PublishContentEvent(ctx context.Context, ev ContentEvent) error
}

type noopPublisher struct{}

func (noopPublisher) PublishContentEvent(context.Context, ContentEvent) error { return nil }

// NoopPublisher drops every event.
var NoopPublisher ContentPublisher = noopPublisher{}
