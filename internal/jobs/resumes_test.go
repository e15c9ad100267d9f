package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/aba-directory/pkg/logging"
)

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	deletes []string
	putErr  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

type fakePresigner struct {
	expires time.Duration
}

func (f *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://" + *in.Bucket + ".s3.test/" + *in.Key + "?X-Amz-Signature=abc"}, nil
}

func TestS3ResumeStorePut(t *testing.T) {
	api := &fakeS3{}
	store := newS3ResumeStore(api, &fakePresigner{}, "aba-resumes", logging.Discard())

	err := store.Put(context.Background(), "resumes/job-1/a-cv.pdf", &Resume{
		Name: "cv.pdf", ContentType: "application/pdf", Size: 4, Body: strings.NewReader("%PDF"),
	})
	require.NoError(t, err)
	require.Len(t, api.puts, 1)
	assert.Equal(t, "aba-resumes", *api.puts[0].Bucket)
	assert.Equal(t, "resumes/job-1/a-cv.pdf", *api.puts[0].Key)
	assert.Equal(t, "application/pdf", *api.puts[0].ContentType)
	assert.Equal(t, int64(4), *api.puts[0].ContentLength)

	api.putErr = errors.New("access denied")
	err = store.Put(context.Background(), "k", &Resume{Body: strings.NewReader("")})
	assert.ErrorContains(t, err, "access denied")
}

func TestS3ResumeStoreDeleteAndPresign(t *testing.T) {
	api := &fakeS3{}
	presigner := &fakePresigner{}
	store := newS3ResumeStore(api, presigner, "aba-resumes", nil)

	require.NoError(t, store.Delete(context.Background(), "resumes/job-1/a-cv.pdf"))
	assert.Equal(t, []string{"resumes/job-1/a-cv.pdf"}, api.deletes)

	url, err := store.PresignGet(context.Background(), "resumes/job-1/a-cv.pdf", ResumeDownloadTTL)
	require.NoError(t, err)
	assert.Equal(t, "https://aba-resumes.s3.test/resumes/job-1/a-cv.pdf?X-Amz-Signature=abc", url)
	assert.Equal(t, time.Hour, presigner.expires)
}

func TestNewS3ResumeStoreRequiresBucket(t *testing.T) {
	assert.Nil(t, NewS3ResumeStore(nil, "aba-resumes", nil))
	assert.Nil(t, NewS3ResumeStore(s3.New(s3.Options{Region: "us-east-1"}), "", nil))
}

func TestResumeFileName(t *testing.T) {
	cases := map[string]string{
		"Riley Resume.PDF":             "riley-resume.pdf",
		`C:\Users\riley\cv final.docx`: "cv-final.docx",
		"../../etc/passwd":             "passwd",
		".pdf":                         "resume.pdf",
		"notes.txt":                    "notes",
	}
	for in, want := range cases {
		assert.Equal(t, want, resumeFileName(in), in)
	}
}
