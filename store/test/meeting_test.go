package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poly000/tg-google-meet-bot/store"
)

func newTestingMeeting(uid string, creatorID, startTs int64) *store.Meeting {
	return &store.Meeting{
		UID:       uid,
		CreatorID: creatorID,
		Summary:   "Standup " + uid,
		StartTs:   startTs,
		EndTs:     startTs + 3600,
		Timezone:  "Asia/Shanghai",
		EventID:   "evt-" + uid,
		JoinLink:  "https://meet.google.com/" + uid,
		HTMLLink:  "https://calendar.google.com/event?eid=" + uid,
		RequestID: "0123456789abcdef0123456789abcdef",
	}
}

func TestMeetingStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	created, err := ts.CreateMeeting(ctx, newTestingMeeting("m1", 42, 1680321600))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.NotZero(t, created.CreatedTs)

	_, err = ts.CreateMeeting(ctx, newTestingMeeting("m2", 42, 1680408000))
	require.NoError(t, err)
	_, err = ts.CreateMeeting(ctx, newTestingMeeting("m3", 7, 1680494400))
	require.NoError(t, err)

	creatorID := int64(42)
	list, err := ts.ListMeetings(ctx, &store.FindMeeting{CreatorID: &creatorID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Most recent start first.
	assert.Equal(t, "m2", list[0].UID)
	assert.Equal(t, "m1", list[1].UID)
	assert.Equal(t, "https://meet.google.com/m1", list[1].JoinLink)
	assert.Equal(t, int64(1680325200), list[1].EndTs)

	limit := 1
	list, err = ts.ListMeetings(ctx, &store.FindMeeting{CreatorID: &creatorID, Limit: &limit})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "m2", list[0].UID)

	after := int64(1680400000)
	list, err = ts.ListMeetings(ctx, &store.FindMeeting{StartTsAfter: &after})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	uid := "m3"
	got, err := ts.GetMeeting(ctx, &store.FindMeeting{UID: &uid})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.CreatorID)

	require.NoError(t, ts.DeleteMeeting(ctx, &store.DeleteMeeting{ID: got.ID}))
	got, err = ts.GetMeeting(ctx, &store.FindMeeting{UID: &uid})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMeetingStore_DuplicateUID(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.CreateMeeting(ctx, newTestingMeeting("dup", 1, 1680321600))
	require.NoError(t, err)
	_, err = ts.CreateMeeting(ctx, newTestingMeeting("dup", 1, 1680321600))
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	require.NoError(t, ts.Migrate(ctx))

	current, err := ts.GetCurrentSchemaVersion()
	require.NoError(t, err)
	setting, err := ts.GetSystemSetting(ctx, &store.FindSystemSetting{Name: store.SchemaVersionSettingName})
	require.NoError(t, err)
	require.NotNil(t, setting)
	assert.Equal(t, current, setting.Value)

	initialized, err := ts.GetDriver().IsInitialized(ctx)
	require.NoError(t, err)
	assert.True(t, initialized)
}

func TestMigrate_RejectsDowngrade(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.UpsertSystemSetting(ctx, &store.SystemSetting{Name: store.SchemaVersionSettingName, Value: "99.0.0"})
	require.NoError(t, err)
	assert.ErrorContains(t, ts.Migrate(ctx), "cannot downgrade")
}

func TestMigrate_UpgradesRecordedVersion(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.UpsertSystemSetting(ctx, &store.SystemSetting{Name: store.SchemaVersionSettingName, Value: "0.3.0"})
	require.NoError(t, err)
	require.NoError(t, ts.Migrate(ctx))

	setting, err := ts.GetSystemSetting(ctx, &store.FindSystemSetting{Name: store.SchemaVersionSettingName})
	require.NoError(t, err)
	require.NotNil(t, setting)
	assert.Equal(t, "0.3.1", setting.Value)

	_, err = ts.CreateMeeting(ctx, newTestingMeeting("after-upgrade", 42, 1680321600))
	assert.NoError(t, err)
}
