package s3

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSession replaces the client factory and records every credential
// value it is called with.
func stubSession(t *testing.T, client *S3, err error) *[]Credentials {
	t.Helper()
	var seen []Credentials
	orig := newSession
	newSession = func(c *Credentials) (*S3, error) {
		seen = append(seen, *c)
		return client, err
	}
	t.Cleanup(func() { newSession = orig })
	return &seen
}

var testCred = Credentials{
	Region:    "eu-central-1",
	AccessKey: "AKIDEXAMPLE",
	SecretKey: "secret",
}

func TestGetDB(t *testing.T) {
	downloader := &fakeDownloader{content: []byte("db")}
	seen := stubSession(t, &S3{downloader: downloader}, nil)
	localPath := filepath.Join(t.TempDir(), "local.db")

	require.NoError(t, GetDB(testCred, "bucket", "remote.db", localPath))

	assert.Equal(t, []Credentials{testCred}, *seen)
	require.Len(t, downloader.calls, 1)
	assert.Equal(t, "bucket", aws.StringValue(downloader.calls[0].Bucket))
	assert.Equal(t, "remote.db", aws.StringValue(downloader.calls[0].Key))
	got, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("db"), got)
}

func TestUploadDB(t *testing.T) {
	uploader := &fakeUploader{}
	seen := stubSession(t, &S3{uploader: uploader}, nil)
	localPath := filepath.Join(t.TempDir(), "local.db")
	require.NoError(t, os.WriteFile(localPath, []byte("db"), 0o600))

	require.NoError(t, UploadDB(testCred, localPath, "bucket", "remote.db"))

	assert.Equal(t, []Credentials{testCred}, *seen)
	require.Len(t, uploader.uploads, 1)
	assert.Equal(t, upload{bucket: "bucket", key: "remote.db", body: []byte("db")}, uploader.uploads[0])
}

func TestClientPerCall(t *testing.T) {
	uploader := &fakeUploader{}
	seen := stubSession(t, &S3{uploader: uploader, downloader: &fakeDownloader{}}, nil)
	localPath := filepath.Join(t.TempDir(), "local.db")
	require.NoError(t, os.WriteFile(localPath, nil, 0o600))

	require.NoError(t, UploadDB(testCred, localPath, "bucket", "a.db"))
	require.NoError(t, GetDB(testCred, "bucket", "a.db", localPath))
	require.NoError(t, UploadDB(testCred, localPath, "bucket", "b.db"))

	assert.Len(t, *seen, 3)
}

func TestSessionErrorIsReturned(t *testing.T) {
	sessionErr := errors.New("bad shared config")
	stubSession(t, nil, sessionErr)

	assert.ErrorIs(t, GetDB(testCred, "b", "o", "p"), sessionErr)
	assert.ErrorIs(t, UploadDB(testCred, "p", "b", "o"), sessionErr)
}
