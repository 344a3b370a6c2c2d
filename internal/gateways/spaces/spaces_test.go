package spaces

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeClient) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestUpload(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantKey string
		wantURL string
	}{
		{
			name:    "default url",
			cfg:     Config{Bucket: "huddle", Region: "fra1"},
			wantKey: "calendars/raid-1.ics",
			wantURL: "https://huddle.fra1.digitaloceanspaces.com/calendars/raid-1.ics",
		},
		{
			name:    "root and public url",
			cfg:     Config{Bucket: "huddle", Region: "fra1", Root: "/prod/", PublicURL: "https://cdn.example.com/"},
			wantKey: "prod/calendars/raid-1.ics",
			wantURL: "https://cdn.example.com/prod/calendars/raid-1.ics",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{}
			u := newUploader(client, tt.cfg)

			url, err := u.Upload(context.Background(), "calendars/raid-1.ics", "text/calendar", []byte("BEGIN:VCALENDAR"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, url)
			assert.Equal(t, tt.wantKey, aws.ToString(client.input.Key))
			assert.Equal(t, "huddle", aws.ToString(client.input.Bucket))
			assert.Equal(t, "text/calendar", aws.ToString(client.input.ContentType))
			assert.Equal(t, types.ObjectCannedACLPublicRead, client.input.ACL)
			assert.Equal(t, "BEGIN:VCALENDAR", string(client.body))
		})
	}
}

func TestUpload_Error(t *testing.T) {
	u := newUploader(&fakeClient{err: errors.New("denied")}, Config{Bucket: "b", Region: "r"})
	_, err := u.Upload(context.Background(), "x.ics", "text/calendar", nil)
	assert.ErrorContains(t, err, "denied")
}

func TestConfig_Enabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{Key: "k", Secret: "s", Bucket: "b"}.Enabled())
}
