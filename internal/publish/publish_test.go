package publish

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/edgerules/internal/errors"
)

type fakeS3 struct {
	objects map[string]string
	types   map[string]string
	fail    error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = string(body)
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func newFake() *fakeS3 {
	return &fakeS3{objects: map[string]string{}, types: map[string]string{}}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	redirects := writeFile(t, dir, "_redirects", "/old    /new    301")
	asJSON := writeFile(t, dir, "_redirects.json", "[]")

	fake := newFake()
	p := NewS3Publisher(fake, "edge", "sites/docs", quietLogger())

	keys, err := p.Publish(context.Background(), redirects, asJSON)
	if err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "sites/docs/_redirects" || keys[1] != "sites/docs/_redirects.json" {
		t.Errorf("keys = %v", keys)
	}
	if got := fake.objects["edge/sites/docs/_redirects"]; got != "/old    /new    301" {
		t.Errorf("uploaded body = %q", got)
	}
	if got := fake.types["edge/sites/docs/_redirects.json"]; got != "application/json" {
		t.Errorf("content type = %q", got)
	}
}

func TestPublish_UploadError(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "_redirects", "x")

	fake := newFake()
	fake.fail = fmt.Errorf("access denied")
	p := NewS3Publisher(fake, "edge", "", quietLogger())

	_, err := p.Publish(context.Background(), file)
	if !errors.HasCode(err, "E150") {
		t.Errorf("error = %v, want E150", err)
	}
}

func TestPublish_MissingFile(t *testing.T) {
	p := NewS3Publisher(newFake(), "edge", "", quietLogger())
	_, err := p.Publish(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.HasCode(err, "E150") {
		t.Errorf("error = %v, want E150", err)
	}
}

func TestPublish_Canceled(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "_redirects", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := newFake()
	keys, err := NewS3Publisher(fake, "edge", "", quietLogger()).Publish(ctx, file)
	if err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if len(keys) != 0 || len(fake.objects) != 0 {
		t.Error("nothing should be uploaded after cancellation")
	}
}

func TestKey(t *testing.T) {
	p := NewS3Publisher(newFake(), "b", "", nil)
	if got := p.Key(filepath.Join("dist", "_redirects")); got != "_redirects" {
		t.Errorf("Key = %q", got)
	}
}

func TestNewClient(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "id")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))
	t.Setenv("AWS_PROFILE", "")

	client, err := NewClient(context.Background(), Config{Region: "eu-west-1", Endpoint: "http://localhost:9000"})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	opts := client.Options()
	if opts.Region != "eu-west-1" {
		t.Errorf("Region = %q", opts.Region)
	}
	if aws.ToString(opts.BaseEndpoint) != "http://localhost:9000" || !opts.UsePathStyle {
		t.Errorf("endpoint options = %v, %v", aws.ToString(opts.BaseEndpoint), opts.UsePathStyle)
	}

	creds, err := opts.Credentials.Retrieve(context.Background())
	if err != nil || creds.AccessKeyID != "id" || creds.SecretAccessKey != "secret" {
		t.Errorf("creds = %+v, %v", creds, err)
	}
}

func TestNewClient_RegionFromEnvironment(t *testing.T) {
	t.Setenv("AWS_REGION", "ap-south-1")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))
	t.Setenv("AWS_PROFILE", "")

	client, err := NewClient(context.Background(), Config{})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	opts := client.Options()
	if opts.Region != "ap-south-1" {
		t.Errorf("Region = %q", opts.Region)
	}
	if opts.BaseEndpoint != nil || opts.UsePathStyle {
		t.Error("no endpoint should leave virtual-hosted addressing")
	}
}
