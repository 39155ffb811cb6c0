package store

import (
	"context"
)

// Meeting is a record of a Meet event the bot created.
type Meeting struct {
	ID        int32
	UID       string
	CreatorID int64
	CreatedTs int64

	Summary  string
	StartTs  int64
	EndTs    int64
	Timezone string

	// Calendar side of the record.
	EventID   string
	JoinLink  string
	HTMLLink  string
	RequestID string
}

// FindMeeting is the find condition for meeting.
type FindMeeting struct {
	ID        *int32
	UID       *string
	CreatorID *int64

	// StartTsAfter keeps meetings starting at or after this instant.
	StartTsAfter *int64

	// Pagination
	Limit  *int
	Offset *int
}

// DeleteMeeting is the delete request for meeting.
type DeleteMeeting struct {
	ID int32
}

// CreateMeeting creates a new meeting record.
func (s *Store) CreateMeeting(ctx context.Context, create *Meeting) (*Meeting, error) {
	return s.driver.CreateMeeting(ctx, create)
}

// ListMeetings lists meetings with filter, most recent start first.
func (s *Store) ListMeetings(ctx context.Context, find *FindMeeting) ([]*Meeting, error) {
	return s.driver.ListMeetings(ctx, find)
}

// GetMeeting returns the first meeting matching find, or nil.
func (s *Store) GetMeeting(ctx context.Context, find *FindMeeting) (*Meeting, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.driver.ListMeetings(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// DeleteMeeting deletes a meeting record. The calendar event is left alone.
func (s *Store) DeleteMeeting(ctx context.Context, delete *DeleteMeeting) error {
	return s.driver.DeleteMeeting(ctx, delete)
}
