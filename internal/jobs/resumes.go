package jobs

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wolfman30/aba-directory/pkg/logging"
)

// ResumeDownloadTTL is how long a presigned resume link stays valid.
const ResumeDownloadTTL = time.Hour

// ResumeStore keeps applicant resumes in private object storage.
type ResumeStore interface {
	Put(ctx context.Context, key string, r *Resume) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// S3API is the subset of the S3 client used by S3ResumeStore.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner is the subset of s3.PresignClient used for downloads.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3ResumeStore stores resumes in a private bucket.
type S3ResumeStore struct {
	bucket    string
	client    S3API
	presigner Presigner
	logger    *logging.Logger
}

// NewS3ResumeStore creates a store for bucket. It returns nil when the
// bucket or client is missing so callers can fall back.
func NewS3ResumeStore(client *s3.Client, bucket string, logger *logging.Logger) *S3ResumeStore {
	if client == nil || bucket == "" {
		return nil
	}
	return newS3ResumeStore(client, s3.NewPresignClient(client), bucket, logger)
}

func newS3ResumeStore(client S3API, presigner Presigner, bucket string, logger *logging.Logger) *S3ResumeStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &S3ResumeStore{bucket: bucket, client: client, presigner: presigner, logger: logger}
}

// Put uploads a resume. Existing keys are never reused because every key
// carries a fresh uuid.
func (s *S3ResumeStore) Put(ctx context.Context, key string, r *Resume) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          r.Body,
		ContentType:   aws.String(r.ContentType),
		ContentLength: aws.Int64(r.Size),
	})
	if err != nil {
		return fmt.Errorf("jobs: s3 put %s: %w", key, err)
	}
	s.logger.Info("resume uploaded", "s3_key", key, "bytes", r.Size)
	return nil
}

// Delete removes a resume.
func (s *S3ResumeStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("jobs: s3 delete %s: %w", key, err)
	}
	return nil
}

// PresignGet returns a time-limited download link.
func (s *S3ResumeStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("jobs: presign %s: %w", key, err)
	}
	return req.URL, nil
}

// InMemoryResumeStore keeps resumes in memory for tests and local runs.
type InMemoryResumeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	// PutErr, when set, fails every upload.
	PutErr error
}

// NewInMemoryResumeStore creates an empty store.
func NewInMemoryResumeStore() *InMemoryResumeStore {
	return &InMemoryResumeStore{objects: make(map[string][]byte)}
}

// Put implements ResumeStore.
func (m *InMemoryResumeStore) Put(_ context.Context, key string, r *Resume) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

// Delete implements ResumeStore.
func (m *InMemoryResumeStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// PresignGet implements ResumeStore with a fake local URL.
func (m *InMemoryResumeStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("memory://resumes/%s?expires=%d", key, int(ttl.Seconds())), nil
}

// Keys returns the stored object keys.
func (m *InMemoryResumeStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

var (
	_ ResumeStore = (*S3ResumeStore)(nil)
	_ ResumeStore = (*InMemoryResumeStore)(nil)
)
