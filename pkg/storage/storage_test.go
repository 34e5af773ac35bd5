package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type fakeUploader struct {
	objects map[string]string
	types   map[string]string
	failKey string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: map[string]string{}, types: map[string]string{}}
}

func (f *fakeUploader) Put(ctx context.Context, obj Object, r io.Reader) error {
	if obj.Key == f.failKey {
		return errors.New("access denied")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[obj.Key] = string(data)
	f.types[obj.Key] = obj.ContentType
	return nil
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestPublishDir(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.html":       "<html>index</html>",
		"page-0001.html":   "<html>1</html>",
		"sitemap.xml":      "<urlset/>",
		"assets/style.css": "body{}",
		"static.html.tmp":  "partial",
	})

	up := newFakeUploader()
	objs, err := NewPublisher(up).PublishDir(context.Background(), dir, "/speeches/")
	if err != nil {
		t.Fatalf("PublishDir() error = %v", err)
	}

	var keys []string
	for _, o := range objs {
		keys = append(keys, o.Key)
	}
	want := []string{"speeches/assets/style.css", "speeches/index.html", "speeches/page-0001.html", "speeches/sitemap.xml"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}

	if up.objects["speeches/index.html"] != "<html>index</html>" {
		t.Errorf("index content = %q", up.objects["speeches/index.html"])
	}
	if up.types["speeches/index.html"] != "text/html; charset=utf-8" {
		t.Errorf("index content type = %q", up.types["speeches/index.html"])
	}
	if up.types["speeches/sitemap.xml"] != "application/xml" {
		t.Errorf("sitemap content type = %q", up.types["speeches/sitemap.xml"])
	}
	if _, ok := up.objects["speeches/static.html.tmp"]; ok {
		t.Error("temporary files should not be published")
	}
}

func TestPublishDir_Errors(t *testing.T) {
	dir := writeTree(t, map[string]string{"index.html": "x", "page-0001.html": "y"})

	up := newFakeUploader()
	up.failKey = "page-0001.html"
	if _, err := NewPublisher(up).PublishDir(context.Background(), dir, ""); err == nil {
		t.Error("expected upload error")
	}

	if _, err := NewPublisher(newFakeUploader()).PublishDir(context.Background(), filepath.Join(dir, "missing"), ""); err == nil {
		t.Error("expected error for missing dir")
	}
	if _, err := NewPublisher(newFakeUploader()).PublishDir(context.Background(), filepath.Join(dir, "index.html"), ""); err == nil {
		t.Error("expected error for a file path")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewPublisher(newFakeUploader()).PublishDir(ctx, dir, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled publish error = %v, want context.Canceled", err)
	}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix, rel, want string
	}{
		{"", "index.html", "index.html"},
		{"site", "index.html", "site/index.html"},
		{"/site/", "a/b.html", "site/a/b.html"},
		{"a/b", "c.xml", "a/b/c.xml"},
	}
	for _, tt := range tests {
		if got := ObjectKey(tt.prefix, tt.rel); got != tt.want {
			t.Errorf("ObjectKey(%q, %q) = %q, want %q", tt.prefix, tt.rel, got, tt.want)
		}
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"index.html", "text/html; charset=utf-8"},
		{"PAGE.HTM", "text/html; charset=utf-8"},
		{"sitemap.xml", "application/xml"},
		{"blob", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := ContentType(tt.name); got != tt.want {
			t.Errorf("ContentType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestNewMinIO_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no endpoint", Config{AccessKey: "a", SecretKey: "b", Bucket: "c"}},
		{"no credentials", Config{Endpoint: "localhost:9000", Bucket: "c"}},
		{"no bucket", Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMinIO(context.Background(), tt.cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
