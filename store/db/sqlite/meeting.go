package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/poly000/tg-google-meet-bot/store"
)

func (d *DB) CreateMeeting(ctx context.Context, create *store.Meeting) (*store.Meeting, error) {
	fields := []string{
		"uid", "creator_id", "summary", "start_ts", "end_ts", "timezone",
		"event_id", "join_link", "html_link", "request_id",
	}
	args := []any{
		create.UID, create.CreatorID, create.Summary, create.StartTs, create.EndTs, create.Timezone,
		create.EventID, create.JoinLink, create.HTMLLink, create.RequestID,
	}
	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		args = append(args, create.CreatedTs)
	}

	stmt := `INSERT INTO meeting (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id, created_ts`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&create.ID,
		&create.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create meeting: %w", err)
	}
	return create, nil
}

func (d *DB) ListMeetings(ctx context.Context, find *store.FindMeeting) ([]*store.Meeting, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "meeting.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "meeting.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "meeting.creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.StartTsAfter; v != nil {
		where, args = append(where, "meeting.start_ts >= "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			id, uid, creator_id, created_ts,
			summary, start_ts, end_ts, timezone,
			event_id, join_link, html_link, request_id
		FROM meeting
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY meeting.start_ts DESC, meeting.id DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query meetings: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Meeting, 0)
	for rows.Next() {
		var meeting store.Meeting
		if err := rows.Scan(
			&meeting.ID,
			&meeting.UID,
			&meeting.CreatorID,
			&meeting.CreatedTs,
			&meeting.Summary,
			&meeting.StartTs,
			&meeting.EndTs,
			&meeting.Timezone,
			&meeting.EventID,
			&meeting.JoinLink,
			&meeting.HTMLLink,
			&meeting.RequestID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		list = append(list, &meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meetings: %w", err)
	}
	return list, nil
}

func (d *DB) DeleteMeeting(ctx context.Context, delete *store.DeleteMeeting) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM meeting WHERE id = `+placeholder(1), delete.ID); err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}
	return nil
}
