package promotion

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"marketplace/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	keys    []string
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(params.Bucket) + "/" + aws.ToString(params.Key)
	f.keys = append(f.keys, key)

	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

// stubLoader is a Loader returning fixed results per path.
type stubLoader struct {
	mu      sync.Mutex
	results map[string][]model.Promotion
	errs    map[string]error
	calls   []string
}

func (s *stubLoader) Load(_ context.Context, path string) ([]model.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, path)
	if err := s.errs[path]; err != nil {
		return nil, err
	}
	return s.results[path], nil
}

func TestS3Loader_Load(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{
		"catalogues/promotions/spring.gz": gzipLines(t, entryLine(t, validEntry())),
	}}

	promotions, err := NewS3LoaderWithClient(client, "catalogues", zerolog.Nop()).
		Load(context.Background(), "promotions/spring.gz")

	require.NoError(t, err)
	require.Len(t, promotions, 1)
	assert.Equal(t, "SPRING10", promotions[0].Code)
}

func TestS3Loader_Errors(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{
		"catalogues/corrupt.gz": []byte("not gzip"),
	}}
	loader := NewS3LoaderWithClient(client, "catalogues", zerolog.Nop())

	_, err := loader.Load(context.Background(), "missing.gz")
	assert.ErrorContains(t, err, "NoSuchKey")

	_, err = loader.Load(context.Background(), "corrupt.gz")
	assert.ErrorContains(t, err, "gzip")
}

func TestFallbackLoader(t *testing.T) {
	s3Promos := []model.Promotion{{Code: "FROM_S3"}}
	localPromos := []model.Promotion{{Code: "FROM_DISK"}}

	tests := []struct {
		name      string
		s3Enabled bool
		nilS3     bool
		s3Err     error
		wantCode  string
		wantS3    []string
	}{
		{name: "s3 succeeds", s3Enabled: true, wantCode: "FROM_S3", wantS3: []string{"promotions/spring.gz"}},
		{name: "s3 fails falls back", s3Enabled: true, s3Err: errors.New("timeout"), wantCode: "FROM_DISK", wantS3: []string{"promotions/spring.gz"}},
		{name: "s3 disabled", s3Enabled: false, wantCode: "FROM_DISK"},
		{name: "no s3 loader", s3Enabled: true, nilS3: true, wantCode: "FROM_DISK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s3 := &stubLoader{
				results: map[string][]model.Promotion{"promotions/spring.gz": s3Promos},
				errs:    map[string]error{"promotions/spring.gz": tt.s3Err},
			}
			local := &stubLoader{results: map[string][]model.Promotion{"spring.gz": localPromos}}

			var s3Loader Loader = s3
			if tt.nilS3 {
				s3Loader = nil
			}

			got, err := NewFallbackLoader(s3Loader, local, "promotions/", tt.s3Enabled, zerolog.Nop()).
				Load(context.Background(), "spring.gz")

			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantCode, got[0].Code)
			assert.Equal(t, tt.wantS3, s3.calls)
		})
	}
}

func TestFallbackLoader_BothFail(t *testing.T) {
	s3 := &stubLoader{errs: map[string]error{"p/x.gz": errors.New("S3 error")}}
	local := &stubLoader{errs: map[string]error{"x.gz": errors.New("file not found")}}

	_, err := NewFallbackLoader(s3, local, "p/", true, zerolog.Nop()).Load(context.Background(), "x.gz")

	assert.ErrorContains(t, err, "file not found")
}
