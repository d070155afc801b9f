package uploader

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fe2audio/service/internal/blob"
	"github.com/fe2audio/service/internal/client"
)

type fakeAPI struct {
	session   bool
	credErr   error
	createErr error
	created   []client.NewUpload
	credCalls int
}

func (f *fakeAPI) HasSession() bool { return f.session }

func (f *fakeAPI) Credential(context.Context) (string, error) {
	f.credCalls++
	return "sealed", f.credErr
}

func (f *fakeAPI) Create(_ context.Context, u client.NewUpload) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, u)
	return nil
}

type fakeOpener struct{ err error }

func (f fakeOpener) Open(token string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "key-for-" + token, nil
}

type fakeBlob struct {
	err     error
	calls   int
	apiKey  string
	name    string
	ctype   string
	started chan struct{}
	release chan struct{}
}

func (f *fakeBlob) Upload(_ context.Context, apiKey, _, name, contentType string, file io.Reader) (*blob.Uploaded, error) {
	f.calls++
	f.apiKey, f.name, f.ctype = apiKey, name, contentType
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	_, _ = io.Copy(io.Discard, file)
	return &blob.Uploaded{DirectURL: "https://cdn.example/" + name, DeletionURL: "https://cdn.example/del/" + name}, nil
}

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteAll(text string) error {
	f.text = text
	return f.err
}

func mp3() File {
	return File{Name: "song.mp3", ContentType: "audio/mpeg", Body: strings.NewReader("ID3")}
}

func TestUpload_Success(t *testing.T) {
	// given
	api := &fakeAPI{session: true}
	bl := &fakeBlob{}
	clip := &fakeClipboard{}
	o := New(api, fakeOpener{}, bl, clip, "cdn.example")

	// when
	res, err := o.Upload(context.Background(), mp3(), "My Song", false)

	// then
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/song.mp3", res.Link)
	assert.Equal(t, "key-for-sealed", bl.apiKey)
	assert.Equal(t, "audio/mpeg", bl.ctype)
	require.Len(t, api.created, 1)
	assert.Equal(t, client.NewUpload{
		AudioLink:   "https://cdn.example/song.mp3",
		Title:       "My Song",
		Private:     false,
		DeletionURL: "https://cdn.example/del/song.mp3",
		CreatedAt:   res.CreatedAt,
	}, api.created[0])
	assert.Equal(t, res.Link, clip.text)
	assert.False(t, o.Busy())
}

func TestUpload_ShouldRejectBeforeAnyNetworkCall(t *testing.T) {
	for _, tc := range []struct {
		description string
		file        File
		session     bool
		want        error
	}{
		{description: "wav", file: File{Name: "a.wav", ContentType: "audio/wav"}, session: true, want: ErrUnsupportedType},
		{description: "unknown extension", file: File{Name: "a.flac"}, session: true, want: ErrUnsupportedType},
		{description: "no session", file: mp3(), want: ErrNoSession},
	} {
		t.Run(tc.description, func(t *testing.T) {
			api := &fakeAPI{session: tc.session}
			bl := &fakeBlob{}

			_, err := New(api, fakeOpener{}, bl, nil, "d").Upload(context.Background(), tc.file, "t", true)

			assert.ErrorIs(t, err, tc.want)
			assert.Zero(t, api.credCalls)
			assert.Zero(t, bl.calls)
		})
	}
}

func TestDetectType_ShouldFallBackToExtension(t *testing.T) {
	for name, want := range map[string]string{"a.MP3": "audio/mpeg", "b.ogg": "audio/ogg"} {
		got, err := DetectType(File{Name: name})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := DetectType(File{Name: "x", ContentType: "audio/mp3"})
	require.NoError(t, err)
	assert.Equal(t, "audio/mp3", got)
}

func TestUpload_CredentialFailureShouldAbort(t *testing.T) {
	for name, o := range map[string]func(*fakeBlob) *Orchestrator{
		"fetch": func(b *fakeBlob) *Orchestrator {
			return New(&fakeAPI{session: true, credErr: errors.New("403")}, fakeOpener{}, b, nil, "d")
		},
		"open": func(b *fakeBlob) *Orchestrator {
			return New(&fakeAPI{session: true}, fakeOpener{err: errors.New("expired")}, b, nil, "d")
		},
	} {
		t.Run(name, func(t *testing.T) {
			bl := &fakeBlob{}

			_, err := o(bl).Upload(context.Background(), mp3(), "t", true)

			assert.ErrorIs(t, err, ErrCredential)
			assert.Zero(t, bl.calls)
		})
	}
}

func TestUpload_BlobFailureShouldPersistNothing(t *testing.T) {
	api := &fakeAPI{session: true}
	bl := &fakeBlob{err: blob.ErrUpstream}

	_, err := New(api, fakeOpener{}, bl, nil, "d").Upload(context.Background(), mp3(), "t", true)

	assert.ErrorIs(t, err, blob.ErrUpstream)
	assert.Empty(t, api.created)
}

func TestUpload_MetadataFailureShouldReportLink(t *testing.T) {
	api := &fakeAPI{session: true, createErr: client.ErrServer}
	clip := &fakeClipboard{}

	res, err := New(api, fakeOpener{}, &fakeBlob{}, clip, "d").Upload(context.Background(), mp3(), "t", true)

	assert.ErrorIs(t, err, ErrMetadataNotSaved)
	assert.ErrorIs(t, err, client.ErrServer)
	var me *MetadataError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "https://cdn.example/song.mp3", me.Link)
	assert.Equal(t, me.Link, res.Link)
	assert.Empty(t, clip.text)
}

func TestUpload_ClipboardFailureIsNotAnError(t *testing.T) {
	api := &fakeAPI{session: true}

	_, err := New(api, fakeOpener{}, &fakeBlob{}, &fakeClipboard{err: errors.New("no display")}, "d").
		Upload(context.Background(), mp3(), "t", true)

	require.NoError(t, err)
	assert.Len(t, api.created, 1)
}

func TestUpload_EmptyTitleFallsBackToFileName(t *testing.T) {
	api := &fakeAPI{session: true}

	res, err := New(api, fakeOpener{}, &fakeBlob{}, nil, "d").Upload(context.Background(), mp3(), "  ", true)

	require.NoError(t, err)
	assert.Equal(t, "song", res.Title)
}

func TestUpload_SecondConcurrentUploadIsBusy(t *testing.T) {
	// given an upload blocked inside the blob step
	bl := &fakeBlob{started: make(chan struct{}), release: make(chan struct{})}
	o := New(&fakeAPI{session: true}, fakeOpener{}, bl, nil, "d")
	done := make(chan error, 1)
	go func() {
		_, err := o.Upload(context.Background(), mp3(), "first", true)
		done <- err
	}()
	<-bl.started

	// when
	_, err := o.Upload(context.Background(), mp3(), "second", true)

	// then
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, o.Busy())
	close(bl.release)
	require.NoError(t, <-done)
	assert.False(t, o.Busy())
}
