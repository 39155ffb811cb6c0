package gcal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const fixedRequestID = "0123456789abcdef0123456789abcdef"

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	svc, err := calendar.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	opts = append([]Option{WithRequestIDGenerator(RequestIDFunc(func() string { return fixedRequestID }))}, opts...)
	client, err := NewClient(svc, opts...)
	require.NoError(t, err)
	return client
}

func meetingWindow() (time.Time, time.Time) {
	start := time.Date(2023, 4, 1, 4, 0, 0, 0, time.UTC)
	return start, start.Add(time.Hour)
}

func TestInsertMeetEvent_Success(t *testing.T) {
	var (
		gotPath  string
		gotQuery map[string]string
		gotBody  calendar.Event
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{
			"supportsAttachments":   r.URL.Query().Get("supportsAttachments"),
			"sendNotifications":     r.URL.Query().Get("sendNotifications"),
			"conferenceDataVersion": r.URL.Query().Get("conferenceDataVersion"),
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "evt123",
			"htmlLink": "https://calendar.google.com/event?eid=evt123",
			"summary": "Standup",
			"conferenceData": {
				"entryPoints": [
					{"entryPointType": "video", "uri": "https://meet.google.com/abc-defg-hij"},
					{"entryPointType": "phone", "uri": "tel:+1-555-0100"}
				]
			}
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	start, end := meetingWindow()

	event, err := client.InsertMeetEvent(context.Background(), "Standup", start, end)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(gotPath, "/calendars/primary/events"), gotPath)
	assert.Equal(t, map[string]string{
		"supportsAttachments":   "true",
		"sendNotifications":     "true",
		"conferenceDataVersion": "1",
	}, gotQuery)

	assert.Equal(t, "Standup", gotBody.Summary)
	require.NotNil(t, gotBody.Start)
	assert.Equal(t, "2023-04-01T12:00:00+08:00", gotBody.Start.DateTime)
	assert.Equal(t, "Asia/Shanghai", gotBody.Start.TimeZone)
	assert.Equal(t, "2023-04-01T13:00:00+08:00", gotBody.End.DateTime)
	assert.Equal(t, "Asia/Shanghai", gotBody.End.TimeZone)
	require.NotNil(t, gotBody.ConferenceData)
	require.NotNil(t, gotBody.ConferenceData.CreateRequest)
	assert.Equal(t, fixedRequestID, gotBody.ConferenceData.CreateRequest.RequestId)
	assert.Equal(t, "hangoutsMeet", gotBody.ConferenceData.CreateRequest.ConferenceSolutionKey.Type)

	assert.Equal(t, "evt123", event.Id)
	assert.Equal(t, http.StatusOK, event.HTTPStatusCode)
	assert.Equal(t, fixedRequestID, event.RequestID)
	link, ok := ExtractJoinLink(event.Event)
	assert.True(t, ok)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", link)
}

func TestInsertMeetEvent_CustomCalendar(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"id":"e"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, WithCalendarID("team@example.com"))
	start, end := meetingWindow()

	event, err := client.InsertMeetEvent(context.Background(), "Sync", start, end)
	require.NoError(t, err)
	assert.Equal(t, "team@example.com", client.CalendarID())
	assert.True(t, strings.HasSuffix(gotPath, "/calendars/team@example.com/events"), gotPath)

	_, ok := ExtractJoinLink(event.Event)
	assert.False(t, ok)
	// The response carries no conference data; the sent request id is still known.
	assert.Equal(t, fixedRequestID, event.RequestID)
}

func TestInsertMeetEvent_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Insufficient Permission"}}`))
	}))
	defer srv.Close()

	var logs bytes.Buffer
	client := newTestClient(t, srv, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	start, end := meetingWindow()

	event, err := client.InsertMeetEvent(context.Background(), "Standup", start, end)
	require.Error(t, err)
	assert.Nil(t, event)

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusForbidden, rejected.StatusCode)
	assert.Equal(t, "Insufficient Permission", rejected.Message)
	assert.Contains(t, err.Error(), "403")

	var transport *TransportError
	assert.False(t, errors.As(err, &transport))
	assert.Contains(t, logs.String(), "level=ERROR")
	assert.Contains(t, logs.String(), "status=403")
}

func TestInsertMeetEvent_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	client := newTestClient(t, srv)
	srv.Close()

	start, end := meetingWindow()
	event, err := client.InsertMeetEvent(context.Background(), "Standup", start, end)
	require.Error(t, err)
	assert.Nil(t, event)

	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.NotNil(t, transport.Unwrap())

	var rejected *RejectedError
	assert.False(t, errors.As(err, &rejected))
}

func TestInsertMeetEvent_SingleAttempt(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"backend"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	start, end := meetingWindow()

	_, err := client.InsertMeetEvent(context.Background(), "Standup", start, end)
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusInternalServerError, rejected.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestInsertMeetEvent_TraceLogOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"evt-trace"}`))
	}))
	defer srv.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: levelTrace}))
	client := newTestClient(t, srv, WithLogger(logger))
	start, end := meetingWindow()

	_, err := client.InsertMeetEvent(context.Background(), "Standup", start, end)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "level=DEBUG-4")
	assert.Contains(t, logs.String(), "event_id=evt-trace")
}

func TestNewClient_RequiresService(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)
}

func TestExtractJoinLink(t *testing.T) {
	tests := []struct {
		name  string
		event *calendar.Event
		want  string
		ok    bool
	}{
		{"nil event", nil, "", false},
		{"no conference", &calendar.Event{}, "", false},
		{"no entry points", &calendar.Event{ConferenceData: &calendar.ConferenceData{}}, "", false},
		{
			"first entry point wins",
			&calendar.Event{ConferenceData: &calendar.ConferenceData{EntryPoints: []*calendar.EntryPoint{
				{Uri: "https://meet.google.com/aaa-bbbb-ccc"},
				{Uri: "https://meet.google.com/other"},
			}}},
			"https://meet.google.com/aaa-bbbb-ccc",
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJoinLink(tt.event)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUUIDRequestID(t *testing.T) {
	gen := UUIDRequestID{}
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen.NewRequestID()
		assert.Len(t, id, RequestIDLength)
		assert.NotContains(t, id, "-")
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestBuildMeetEvent(t *testing.T) {
	start, end := meetingWindow()
	event := BuildMeetEvent("Retro", start, end, fixedRequestID)

	assert.Equal(t, "Retro", event.Summary)
	assert.Equal(t, "2023-04-01T12:00:00+08:00", event.Start.DateTime)
	assert.Equal(t, "2023-04-01T13:00:00+08:00", event.End.DateTime)
	assert.Equal(t, ConferenceTypeMeet, event.ConferenceData.CreateRequest.ConferenceSolutionKey.Type)
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}

	require.NoError(t, SaveToken(path, token))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)
	assert.Equal(t, "refresh", got.RefreshToken)

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoadOAuthConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"installed":{
		"client_id":"id.apps.googleusercontent.com",
		"client_secret":"secret",
		"redirect_uris":["urn:ietf:wg:oauth:2.0:oob"],
		"auth_uri":"https://accounts.google.com/o/oauth2/auth",
		"token_uri":"https://oauth2.googleapis.com/token"
	}}`), 0o600))

	config, err := LoadOAuthConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "id.apps.googleusercontent.com", config.ClientID)
	assert.Equal(t, []string{calendar.CalendarEventsScope}, config.Scopes)
	assert.Contains(t, AuthCodeURL(config), "access_type=offline")

	_, err = LoadOAuthConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
