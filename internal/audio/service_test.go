package audio

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRevoker struct {
	err   error
	calls []string
}

func (f *fakeRevoker) Revoke(_ context.Context, deletionURL string) error {
	f.calls = append(f.calls, deletionURL)
	return f.err
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func songA() Record {
	return Record{
		Title:       "Song A",
		AudioLink:   "https://cdn.example/a.mp3",
		Private:     true,
		DeletionURL: "https://cdn.example/del/a",
		CreatedAt:   t0,
	}
}

func newTestService() (*Service, *MemoryStore, *fakeRevoker) {
	store := NewMemoryStore()
	revoker := &fakeRevoker{}
	return NewService(store, revoker, []string{"cdn.example"}), store, revoker
}

func TestAppend_ShouldCreateProfileOnFirstUpload(t *testing.T) {
	// given
	svc, store, _ := newTestService()
	ctx := context.Background()

	// when
	p, err := svc.Append(ctx, "u1", songA())

	// then
	require.NoError(t, err)
	assert.Equal(t, "u1", p.Identity)
	require.Len(t, p.Uploads, 1)
	assert.Equal(t, songA(), p.Uploads[0])
	assert.Len(t, store.profiles, 1)
}

func TestAppend_ShouldKeepDuplicates(t *testing.T) {
	// given
	svc, _, _ := newTestService()
	ctx := context.Background()
	const n = 4

	// when
	for i := 0; i < n; i++ {
		_, err := svc.Append(ctx, "u1", songA())
		require.NoError(t, err)
	}

	// then
	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, n)
}

func TestAppend_ShouldStampCreatedAtWhenMissing(t *testing.T) {
	svc, _, _ := newTestService()
	svc.now = func() time.Time { return t0 }
	rec := songA()
	rec.CreatedAt = time.Time{}

	p, err := svc.Append(context.Background(), "u1", rec)

	require.NoError(t, err)
	assert.Equal(t, t0, p.Uploads[0].CreatedAt)
}

func TestAppend_ShouldRejectInvalidInput(t *testing.T) {
	for _, tc := range []struct {
		description string
		identity    string
		mutate      func(*Record)
	}{
		{description: "missing identity", identity: "", mutate: func(*Record) {}},
		{description: "blank title", identity: "u1", mutate: func(r *Record) { r.Title = "   " }},
		{description: "relative link", identity: "u1", mutate: func(r *Record) { r.AudioLink = "/a.mp3" }},
		{description: "non-http link", identity: "u1", mutate: func(r *Record) { r.AudioLink = "ftp://cdn.example/a.mp3" }},
		{description: "bad deletion url", identity: "u1", mutate: func(r *Record) { r.DeletionURL = "nope" }},
		{description: "deletion url on foreign host", identity: "u1", mutate: func(r *Record) { r.DeletionURL = "http://10.0.0.1/admin" }},
		{description: "deletion url on lookalike host", identity: "u1", mutate: func(r *Record) { r.DeletionURL = "https://cdn.example.evil/del/a" }},
	} {
		t.Run(tc.description, func(t *testing.T) {
			svc, store, _ := newTestService()
			rec := songA()
			tc.mutate(&rec)

			_, err := svc.Append(context.Background(), tc.identity, rec)

			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Empty(t, store.profiles)
		})
	}
}

func TestList_ShouldProjectRecords(t *testing.T) {
	// given
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Append(ctx, "u1", songA())
	require.NoError(t, err)

	// when
	list, err := svc.List(ctx, "u1")

	// then
	require.NoError(t, err)
	assert.Equal(t, []Summary{{
		Name:        "Song A",
		Link:        "https://cdn.example/a.mp3",
		CreatedAt:   t0,
		DeletionURL: "https://cdn.example/del/a",
	}}, list)
}

func TestList_ShouldReturnEmptyForProfileWithoutUploads(t *testing.T) {
	// given
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Append(ctx, "u1", songA())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "u1", songA().AudioLink))

	// when
	list, err := svc.List(ctx, "u1")

	// then
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestNotFound_ShouldDistinguishProfileFromRecord(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.List(ctx, "nobody")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = svc.Get(ctx, "https://cdn.example/missing.mp3", "")
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.False(t, errors.Is(err, ErrProfileNotFound))
	assert.True(t, svc.IsNotFound(err))
}

func TestGet_ShouldReportOwnership(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Append(ctx, "u1", songA())
	require.NoError(t, err)

	mine, err := svc.Get(ctx, songA().AudioLink, "u1")
	require.NoError(t, err)
	theirs, err := svc.Get(ctx, songA().AudioLink, "u2")
	require.NoError(t, err)
	anon, err := svc.Get(ctx, songA().AudioLink, "")
	require.NoError(t, err)

	assert.True(t, mine.Owned)
	assert.False(t, theirs.Owned)
	assert.False(t, anon.Owned)
	assert.Equal(t, "Song A", mine.Title)
	assert.False(t, mine.Public)
	assert.Equal(t, t0, mine.CreatedAt)
}

func TestPatch_TitleOnlyShouldKeepVisibility(t *testing.T) {
	// given
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Append(ctx, "u1", songA())
	require.NoError(t, err)
	title := "Song B"

	// when
	rec, err := svc.Patch(ctx, "u1", songA().AudioLink, Patch{Title: &title})

	// then
	require.NoError(t, err)
	assert.Equal(t, "Song B", rec.Title)
	assert.True(t, rec.Private)
}

func TestPatch_VisibilityOnlyShouldKeepTitle(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Append(ctx, "u1", songA())
	require.NoError(t, err)
	public := true

	rec, err := svc.Patch(ctx, "u1", songA().AudioLink, Patch{Public: &public})

	require.NoError(t, err)
	assert.Equal(t, "Song A", rec.Title)
	assert.False(t, rec.Private)
}

func TestPatch_PublicFalseShouldReadBackAsPrivate(t *testing.T) {
	// given a public record
	svc, store, _ := newTestService()
	ctx := context.Background()
	rec := songA()
	rec.Private = false
	_, err := svc.Append(ctx, "u1", rec)
	require.NoError(t, err)
	public := false

	// when
	_, err = svc.Patch(ctx, "u1", rec.AudioLink, Patch{Public: &public})

	// then
	require.NoError(t, err)
	d, err := svc.Get(ctx, rec.AudioLink, "u1")
	require.NoError(t, err)
	assert.False(t, d.Public)
	assert.True(t, store.profiles["u1"].Uploads[0].Private)
}

func TestPatch_ForeignRecordShouldBeNotFoundAndUntouched(t *testing.T) {
	// given
	svc, store, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Append(ctx, "u1", songA())
	require.NoError(t, err)
	_, err = svc.Append(ctx, "u2", Record{Title: "Other", AudioLink: "https://cdn.example/b.mp3", Private: true})
	require.NoError(t, err)
	title := "Hijacked"
	public := true

	// when
	_, err = svc.Patch(ctx, "u2", songA().AudioLink, Patch{Title: &title, Public: &public})

	// then
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.Equal(t, songA(), store.profiles["u1"].Uploads[0])
	assert.Equal(t, "Other", store.profiles["u2"].Uploads[0].Title)
}

func TestPatch_ShouldRejectEmptyTitleAndEmptyPatch(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Append(ctx, "u1", songA())
	require.NoError(t, err)
	empty := ""

	_, err = svc.Patch(ctx, "u1", songA().AudioLink, Patch{Title: &empty})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Patch(ctx, "u1", songA().AudioLink, Patch{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDelete_ShouldRevokeThenRemove(t *testing.T) {
	// given
	svc, store, revoker := newTestService()
	ctx := context.Background()
	_, err := svc.Append(ctx, "u1", songA())
	require.NoError(t, err)

	// when
	err = svc.Delete(ctx, "u1", songA().AudioLink)

	// then
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example/del/a"}, revoker.calls)
	assert.Empty(t, store.profiles["u1"].Uploads)
}

func TestDelete_MissingLinkShouldBeNotFoundAndUnchanged(t *testing.T) {
	svc, store, revoker := newTestService()
	ctx := context.Background()
	_, err := svc.Append(ctx, "u1", songA())
	require.NoError(t, err)

	err = svc.Delete(ctx, "u1", "https://cdn.example/missing.mp3")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	err = svc.Delete(ctx, "nobody", songA().AudioLink)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	assert.Empty(t, revoker.calls)
	assert.Equal(t, []Record{songA()}, store.profiles["u1"].Uploads)
}

func TestDelete_ForeignRecordShouldBeNotFound(t *testing.T) {
	svc, store, revoker := newTestService()
	ctx := context.Background()
	_, err := svc.Append(ctx, "u1", songA())
	require.NoError(t, err)
	_, err = svc.Append(ctx, "u2", Record{Title: "Other", AudioLink: "https://cdn.example/b.mp3"})
	require.NoError(t, err)

	err = svc.Delete(ctx, "u2", songA().AudioLink)

	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.Empty(t, revoker.calls)
	assert.Len(t, store.profiles["u1"].Uploads, 1)
}

func TestDelete_RevokeFailureShouldKeepRecord(t *testing.T) {
	// given
	svc, _, revoker := newTestService()
	revoker.err = fmt.Errorf("status 502")
	ctx := context.Background()
	_, err := svc.Append(ctx, "u1", songA())
	require.NoError(t, err)

	// when
	err = svc.Delete(ctx, "u1", songA().AudioLink)

	// then
	assert.ErrorIs(t, err, ErrRevokeFailed)
	d, err := svc.Get(ctx, songA().AudioLink, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Song A", d.Title)
}

func TestDelete_WithoutDeletionURLShouldSkipRevoke(t *testing.T) {
	svc, store, revoker := newTestService()
	ctx := context.Background()
	rec := songA()
	rec.DeletionURL = ""
	_, err := svc.Append(ctx, "u1", rec)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "u1", rec.AudioLink))

	assert.Empty(t, revoker.calls)
	assert.Empty(t, store.profiles["u1"].Uploads)
}

func TestAppend_ShouldAcceptDeletionHostWithPort(t *testing.T) {
	svc := NewService(NewMemoryStore(), &fakeRevoker{}, []string{"127.0.0.1:9000"})
	rec := songA()

	rec.DeletionURL = "http://127.0.0.1:9000/api/blobs/delete/x"
	_, err := svc.Append(context.Background(), "u1", rec)
	require.NoError(t, err)

	rec.DeletionURL = "http://127.0.0.1:5432/"
	_, err = svc.Append(context.Background(), "u1", rec)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDelete_ShouldNotFetchDeletionURLOnForeignHost(t *testing.T) {
	// given a record stored before its host left the allow-list
	store := NewMemoryStore()
	revoker := &fakeRevoker{}
	rec := songA()
	rec.DeletionURL = "http://169.254.169.254/latest/meta-data"
	_, err := store.Append(context.Background(), "u1", rec)
	require.NoError(t, err)
	svc := NewService(store, revoker, []string{"cdn.example"})

	// when
	err = svc.Delete(context.Background(), "u1", rec.AudioLink)

	// then
	assert.ErrorIs(t, err, ErrRevokeFailed)
	assert.Empty(t, revoker.calls)
	assert.Len(t, store.profiles["u1"].Uploads, 1)
}
