package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tryonlab/api/internal/client"
)

// Mesh file names written by the reconstruction script
const (
	MeshFile     = "output.obj"
	MaterialFile = "output.mtl"
)

const rollbackTimeout = 10 * time.Second

var meshContentTypes = map[string]string{
	MeshFile:     "model/obj",
	MaterialFile: "model/mtl",
}

// Publisher makes generated mesh files reachable by clients and returns the
// URL of the first file.
type Publisher interface {
	Publish(ctx context.Context, dir string, files []string) (string, error)
}

// LocalPublisher exposes meshes through the static models route
type LocalPublisher struct {
	basePath string
}

// NewLocalPublisher creates a publisher for files served under basePath
func NewLocalPublisher(basePath string) *LocalPublisher {
	return &LocalPublisher{basePath: basePath}
}

// Publish returns <base>/<dir-name>/<file>.
func (p *LocalPublisher) Publish(_ context.Context, dir string, files []string) (string, error) {
	if len(files) == 0 {
		return "", fmt.Errorf("no files to publish")
	}
	return fmt.Sprintf("%s/%s/%s", p.basePath, filepath.Base(dir), files[0]), nil
}

// ObjectPublisher uploads meshes to object storage under models/<dir-name>/
type ObjectPublisher struct {
	store client.ObjectStore
}

// NewObjectPublisher creates a publisher backed by store
func NewObjectPublisher(store client.ObjectStore) *ObjectPublisher {
	return &ObjectPublisher{store: store}
}

// Publish uploads every file and returns the public URL of the first one.
// Objects already uploaded are removed when a later upload fails.
func (p *ObjectPublisher) Publish(ctx context.Context, dir string, files []string) (string, error) {
	var first string
	var uploaded []string
	for i, name := range files {
		key := objectKey(dir, name)
		url, err := p.upload(ctx, dir, name, key)
		if err != nil {
			p.rollback(uploaded)
			return "", err
		}
		uploaded = append(uploaded, key)
		if i == 0 {
			first = url
		}
	}
	if first == "" {
		return "", fmt.Errorf("no files to publish")
	}
	return first, nil
}

func (p *ObjectPublisher) rollback(keys []string) {
	ctx, cancel := context.WithTimeout(context.Background(), rollbackTimeout)
	defer cancel()
	for _, key := range keys {
		_ = p.store.Delete(ctx, key)
	}
}

func objectKey(dir, name string) string {
	return fmt.Sprintf("models/%s/%s", filepath.Base(dir), name)
}

func (p *ObjectPublisher) upload(ctx context.Context, dir, name, key string) (string, error) {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	contentType, ok := meshContentTypes[name]
	if !ok {
		contentType = "application/octet-stream"
	}
	return p.store.Upload(ctx, key, f, contentType)
}
