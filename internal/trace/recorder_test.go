package trace

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/viewfinder/internal/movement"
	"github.com/roach88/viewfinder/internal/sections"
	"github.com/roach88/viewfinder/internal/state"
)

func openTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	rec, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	rec.SetClock(func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	})
	return rec
}

func transition(from, to sections.ID, kind movement.Kind) state.Transition {
	return state.Transition{
		From:     from,
		To:       to,
		Movement: kind,
		Duration: kind.NominalDuration(),
		Success:  true,
	}
}

func TestRecorder_AppendAndReadBack(t *testing.T) {
	rec := openTestRecorder(t)
	ctx := context.Background()

	session, err := rec.Session(ctx, "session-1")
	require.NoError(t, err)

	require.NoError(t, session.Append("mv-1", transition(sections.Hero, sections.Portfolio, movement.PanTilt)))
	require.NoError(t, session.Append("mv-2", transition(sections.Portfolio, sections.Services, movement.MatchCut)))

	records, err := rec.ReadSession(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, int64(1), records[0].Seq)
	assert.Equal(t, "hero", records[0].From)
	assert.Equal(t, "portfolio", records[0].To)
	assert.Equal(t, "pan-tilt", records[0].Movement)
	assert.Equal(t, 800.0, records[0].DurationMS)
	assert.True(t, records[0].Success)

	assert.Equal(t, int64(2), records[1].Seq)
	assert.Equal(t, "match-cut", records[1].Movement)
	assert.True(t, records[1].RecordedAt.After(records[0].RecordedAt))
}

func TestRecorder_AppendIsIdempotentPerToken(t *testing.T) {
	rec := openTestRecorder(t)
	ctx := context.Background()

	session, err := rec.Session(ctx, "session-1")
	require.NoError(t, err)

	tr := transition(sections.Hero, sections.About, movement.ZoomIn)
	require.NoError(t, session.Append("mv-1", tr))
	require.NoError(t, session.Append("mv-1", tr)) // duplicate token, ignored

	records, err := rec.ReadSession(ctx, "session-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRecorder_SessionRegistrationIdempotent(t *testing.T) {
	rec := openTestRecorder(t)
	ctx := context.Background()

	s1, err := rec.Session(ctx, "session-1")
	require.NoError(t, err)
	require.NoError(t, s1.Append("mv-1", transition(sections.Hero, sections.Portfolio, movement.PanTilt)))

	// Re-opening the session resumes numbering after existing rows.
	s2, err := rec.Session(ctx, "session-1")
	require.NoError(t, err)
	require.NoError(t, s2.Append("mv-2", transition(sections.Portfolio, sections.Hero, movement.PanTilt)))

	records, err := rec.ReadSession(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[1].Seq)

	tokens, err := rec.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"session-1"}, tokens)
}

func TestRecorder_SessionsAreIsolated(t *testing.T) {
	rec := openTestRecorder(t)
	ctx := context.Background()

	a, err := rec.Session(ctx, "session-a")
	require.NoError(t, err)
	b, err := rec.Session(ctx, "session-b")
	require.NoError(t, err)

	require.NoError(t, a.Append("mv-a1", transition(sections.Hero, sections.About, movement.PanTilt)))
	require.NoError(t, b.Append("mv-b1", transition(sections.Hero, sections.Contact, movement.PanTilt)))

	got, err := rec.ReadSession(ctx, "session-a")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "about", got[0].To)
}

func TestRecorder_OpenIsIdempotentOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")

	rec, err := Open(path)
	require.NoError(t, err)
	session, err := rec.Session(context.Background(), "session-1")
	require.NoError(t, err)
	require.NoError(t, session.Append("mv-1", transition(sections.Hero, sections.Portfolio, movement.PanTilt)))
	require.NoError(t, rec.Close())

	// Reopen and read the persisted trace.
	rec2, err := Open(path)
	require.NoError(t, err)
	defer rec2.Close()

	records, err := rec2.ReadSession(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestVerifyMatch(t *testing.T) {
	recorded := []Record{
		{From: "hero", To: "portfolio", Movement: "pan-tilt", DurationMS: 800, Success: true},
		{From: "portfolio", To: "services", Movement: "match-cut", DurationMS: 300, Success: true},
	}

	replayed := make([]Record, len(recorded))
	copy(replayed, recorded)
	// Tokens and timestamps legitimately differ between runs.
	replayed[0].Token = "other-token"
	replayed[1].RecordedAt = time.Now()
	assert.NoError(t, VerifyMatch(recorded, replayed))

	replayed[1].Movement = "pan-tilt"
	err := VerifyMatch(recorded, replayed)
	require.Error(t, err)
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 1, mismatch.Index)
	assert.Equal(t, "movement", mismatch.Field)

	err = VerifyMatch(recorded, recorded[:1])
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "length", mismatch.Field)
}
