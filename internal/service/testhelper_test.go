package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tryonlab/api/internal/apperr"
	"github.com/tryonlab/api/internal/client"
	"github.com/tryonlab/api/internal/config"
	"github.com/tryonlab/api/internal/storage"
)

// pngBytes is enough of a PNG for content sniffing
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

// fileHeader builds a parsed multipart file part.
func fileHeader(t *testing.T, field, filename, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(10 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field][0]
}

func newStore(t *testing.T) *storage.FileStore {
	t.Helper()
	s, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

// shellRunner uses /bin/sh as the interpreter so tests need no Python.
func shellRunner(t *testing.T, check, script string) *client.PIFuHDRunner {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run_pifuhd.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return client.NewPIFuHDRunner(&config.PIFuHDConfig{
		PythonPath:      "/bin/sh",
		ScriptPath:      path,
		DependencyCheck: check,
	}, zerolog.Nop())
}

// writesMesh is a script body that writes output.obj into the --out dir.
const writesMesh = `echo "v 0 0 0" > "$4/output.obj"
`

const writesMeshAndMaterial = `echo "v 0 0 0" > "$4/output.obj"
echo "newmtl skin" > "$4/output.mtl"
`

// fakePredictor is an in-memory client.Predictor
type fakePredictor struct {
	mu         sync.Mutex
	configured bool
	created    []*client.CreatePredictionRequest
	cancelled  []string
	createErr  error
	pollErr    error
	output     string
	blockPoll  bool
}

func newFakePredictor(output string) *fakePredictor {
	return &fakePredictor{configured: true, output: output}
}

func (f *fakePredictor) CreatePrediction(_ context.Context, req *client.CreatePredictionRequest) (*client.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &client.Prediction{ID: fmt.Sprintf("pred-%d", len(f.created)), Status: client.PredictionStarting}, nil
}

func (f *fakePredictor) GetPrediction(_ context.Context, id string) (*client.Prediction, error) {
	return &client.Prediction{ID: id, Status: client.PredictionProcessing}, nil
}

func (f *fakePredictor) CancelPrediction(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakePredictor) PollPrediction(ctx context.Context, id string, _, _ time.Duration, onPoll func(int, *client.Prediction)) (*client.Prediction, error) {
	if f.blockPoll {
		<-ctx.Done()
		return nil, apperr.From(ctx.Err())
	}
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	p := &client.Prediction{ID: id, Status: client.PredictionSucceeded, Output: []byte(fmt.Sprintf("[%q]", f.output))}
	if onPoll != nil {
		onPoll(1, p)
	}
	return p, nil
}

func (f *fakePredictor) IsConfigured() bool {
	return f.configured
}

func (f *fakePredictor) cancelledIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancelled...)
}

// fakeObjectStore records uploads in memory
type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string]string
	deleted []string
	failKey string
}

func (f *fakeObjectStore) Upload(_ context.Context, key string, body io.Reader, contentType string) (string, error) {
	if key == f.failKey {
		return "", errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[key] = contentType + "|" + string(data)
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

// recordingScheduler captures cleanup requests
type recordingScheduler struct {
	mu    sync.Mutex
	calls map[string][]string
}

func (r *recordingScheduler) ScheduleCleanup(_ context.Context, jobID string, paths []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[string][]string{}
	}
	r.calls[jobID] = paths
	return nil
}

func testReplicateConfig() config.ReplicateConfig {
	return config.ReplicateConfig{
		ModelVersion: config.DefaultModelVersion,
		Category:     "upper_body",
		PollInterval: time.Millisecond,
		MaxWait:      time.Second,
	}
}
