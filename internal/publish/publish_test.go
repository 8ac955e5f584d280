package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"vidconv/internal/config"
)

type stubUploader struct {
	bucket string
	key    string
	body   []byte
	ctype  string
	err    error
}

func (s *stubUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	s.bucket = aws.ToString(input.Bucket)
	s.key = aws.ToString(input.Key)
	s.ctype = aws.ToString(input.ContentType)
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	s.body = data
	if s.err != nil {
		return nil, s.err
	}
	return &manager.UploadOutput{Key: input.Key}, nil
}

func TestNewDisabledReturnsNil(t *testing.T) {
	p, err := New(config.Publish{}, nil)
	if err != nil || p != nil {
		t.Fatalf("expected nil publisher, got %v err=%v", p, err)
	}
	if _, err := New(config.Publish{Enabled: true}, nil); err == nil {
		t.Fatal("expected error without bucket")
	}
}

func TestPublishUploadsWithPrefix(t *testing.T) {
	stub := &stubUploader{}
	p, err := New(config.Publish{Enabled: true, Bucket: "videos", Prefix: "/converted/"}, nil, WithUploader(stub))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	local := filepath.Join(t.TempDir(), "converted_a_1234.mp4")
	if err := os.WriteFile(local, []byte("mp4data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	key, err := p.Publish(context.Background(), local)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if key != "converted/converted_a_1234.mp4" || stub.key != key || stub.bucket != "videos" {
		t.Fatalf("unexpected upload key=%q bucket=%q", stub.key, stub.bucket)
	}
	if string(stub.body) != "mp4data" || stub.ctype != "video/mp4" {
		t.Fatalf("unexpected body %q type %q", stub.body, stub.ctype)
	}
}

func TestPublishErrors(t *testing.T) {
	stub := &stubUploader{err: errors.New("denied")}
	p, _ := New(config.Publish{Enabled: true, Bucket: "videos"}, nil, WithUploader(stub))
	if _, err := p.Publish(context.Background(), filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Fatal("expected missing file error")
	}
	local := filepath.Join(t.TempDir(), "a.mp4")
	if err := os.WriteFile(local, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := p.Publish(context.Background(), local); err == nil {
		t.Fatal("expected upload error")
	}
}

func TestNewBuildsRealClient(t *testing.T) {
	p, err := New(config.Publish{
		Enabled:   true,
		Bucket:    "videos",
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "key",
		SecretKey: "secret",
		PathStyle: true,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := p.uploader.(*manager.Uploader); !ok {
		t.Fatalf("expected manager uploader, got %T", p.uploader)
	}
}
