package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tryonlab/api/internal/client"
	"github.com/tryonlab/api/internal/config"
	"github.com/tryonlab/api/internal/handler"
	"github.com/tryonlab/api/internal/metrics"
	"github.com/tryonlab/api/internal/middleware"
	"github.com/tryonlab/api/internal/server"
	"github.com/tryonlab/api/internal/service"
	"github.com/tryonlab/api/internal/storage"
	ws "github.com/tryonlab/api/internal/websocket"
)

const fakeResultURL = "https://replicate.delivery/pbxt/tryon-result.png"

// Reconstruction scripts run by /bin/sh in place of the Python interpreter
const (
	scriptWritesMesh            = "echo 'v 0 0 0' > \"$4/output.obj\"\n"
	scriptWritesMeshAndMaterial = scriptWritesMesh + "echo 'newmtl skin' > \"$4/output.mtl\"\n"
	scriptWritesNothing         = "echo 'no mesh today'\n"
	scriptFails                 = "echo 'loading model'\necho 'CUDA not available' >&2\nexit 1\n"
)

// pngBytes is enough of a PNG for content sniffing
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

// fakeReplicate serves the prediction endpoints in memory.
type fakeReplicate struct {
	mu         sync.Mutex
	server     *httptest.Server
	created    []map[string]interface{}
	polls      int
	cancelled  []string
	finalState string
	output     string
}

func newFakeReplicate(t *testing.T) *fakeReplicate {
	t.Helper()
	f := &fakeReplicate{finalState: "succeeded", output: fakeResultURL}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeReplicate) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer r8_e2e" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/predictions":
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.created = append(f.created, body)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id":"pred-%d","status":"starting"}`, len(f.created))

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/cancel"):
		f.cancelled = append(f.cancelled, r.URL.Path)
		fmt.Fprint(w, `{"status":"canceled"}`)

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/predictions/"):
		f.polls++
		id := strings.TrimPrefix(r.URL.Path, "/predictions/")
		if f.polls < 2 {
			fmt.Fprintf(w, `{"id":%q,"status":"processing"}`, id)
			return
		}
		if f.finalState == "succeeded" {
			fmt.Fprintf(w, `{"id":%q,"status":"succeeded","output":[%q]}`, id, f.output)
			return
		}
		fmt.Fprintf(w, `{"id":%q,"status":%q,"error":"model crashed"}`, id, f.finalState)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeReplicate) creations() []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]interface{}(nil), f.created...)
}

// appOptions tweak the collaborators of one test app
type appOptions struct {
	dependencyCheck   string
	script            string
	exposeDiagnostics bool
	tryOnPerHour      int
}

// testApp holds all components needed for testing
type testApp struct {
	app       *fiber.App
	replicate *fakeReplicate
	redis     *miniredis.Miniredis
	uploadDir string
	modelsDir string
}

// setupApp creates the production router against fake collaborators: an
// in-memory Replicate, miniredis and /bin/sh standing in for Python.
func setupApp(t *testing.T, customize ...func(*appOptions)) *testApp {
	t.Helper()

	opts := appOptions{
		dependencyCheck:   "exit 0",
		script:            scriptWritesMesh,
		exposeDiagnostics: true,
		tryOnPerHour:      10000,
	}
	for _, fn := range customize {
		fn(&opts)
	}

	root := t.TempDir()
	scriptPath := filepath.Join(root, "run_pifuhd.sh")
	if err := os.WriteFile(scriptPath, []byte("#!/bin/sh\n"+opts.script), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	replicate := newFakeReplicate(t)
	mr := miniredis.RunT(t)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:              "0",
			Env:               "test",
			BodyLimitMB:       10,
			RequestTimeout:    10 * time.Second,
			ExposeDiagnostics: opts.exposeDiagnostics,
		},
		Redis: config.RedisConfig{Addr: mr.Addr()},
		Replicate: config.ReplicateConfig{
			APIToken:     "r8_e2e",
			BaseURL:      replicate.server.URL,
			ModelVersion: config.DefaultModelVersion,
			Category:     "upper_body",
			PollInterval: 5 * time.Millisecond,
			MaxWait:      5 * time.Second,
		},
		PIFuHD: config.PIFuHDConfig{
			PythonPath:      "/bin/sh",
			ScriptPath:      scriptPath,
			DependencyCheck: opts.dependencyCheck,
		},
		Storage: config.StorageConfig{
			UploadDir:      filepath.Join(root, "uploads"),
			ModelsDir:      filepath.Join(root, "models"),
			ModelsBasePath: "/models",
		},
		RateLimit: config.RateLimitConfig{
			TryOnPerHour:       opts.tryOnPerHour,
			ReconstructPerHour: 10000,
		},
		History: config.HistoryConfig{MaxItems: 50, TTL: time.Hour},
	}

	log := zerolog.Nop()
	validate := validator.New()
	collector := metrics.NewCollector("e2e")

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	scratch, err := storage.NewFileStore(cfg.Storage.UploadDir)
	if err != nil {
		t.Fatalf("failed to create upload store: %v", err)
	}
	models, err := storage.NewFileStore(cfg.Storage.ModelsDir)
	if err != nil {
		t.Fatalf("failed to create models store: %v", err)
	}

	hub := ws.NewHub(log)

	tryOnService := service.NewTryOnService(
		service.NewUploadService(scratch),
		service.NewRemoteExecutor(client.NewReplicateClient(&cfg.Replicate, collector, log), cfg.Replicate, log),
		service.NewLocalExecutor(client.NewPIFuHDRunner(&cfg.PIFuHD, log), models, service.NewLocalPublisher(cfg.Storage.ModelsBasePath), collector, log),
		nil, // cleanup is covered by the worker tests
		hub,
		collector,
		log,
	)

	handlerOpts := handler.Options{
		RequestTimeout:    cfg.Server.RequestTimeout,
		ExposeDiagnostics: cfg.Server.ExposeDiagnostics,
	}
	app := server.New(cfg, server.Deps{
		TryOn:       handler.NewTryOnHandler(tryOnService, validate, handlerOpts),
		Reconstruct: handler.NewReconstructHandler(tryOnService, validate, handlerOpts),
		History:     handler.NewHistoryHandler(service.NewHistoryService(redisClient, cfg.History, log), validate),
		Health:      handler.NewHealthHandler(map[string]bool{"replicate": true, "r2": false, "cleanup": false}),
		RateLimiter: middleware.NewRateLimiter(redisClient, log),
		Hub:         hub,
		Metrics:     collector,
		Logger:      log,
	})

	return &testApp{
		app:       app,
		replicate: replicate,
		redis:     mr,
		uploadDir: cfg.Storage.UploadDir,
		modelsDir: cfg.Storage.ModelsDir,
	}
}

// formPart is one multipart field; a nil data with empty filename is a text field.
type formPart struct {
	name        string
	filename    string
	contentType string
	data        []byte
	value       string
}

func imagePart(name string) formPart {
	return formPart{name: name, filename: name + ".png", contentType: "image/png", data: pngBytes}
}

func textPart(name, value string) formPart {
	return formPart{name: name, value: value}
}

// multipartRequest builds a multipart/form-data request.
func multipartRequest(t *testing.T, method, path string, parts ...formPart) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.filename == "" {
			_ = writer.WriteField(p.name, p.value)
			continue
		}
		partHeader := make(textproto.MIMEHeader)
		partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, p.name, p.filename))
		partHeader.Set("Content-Type", p.contentType)
		part, err := writer.CreatePart(partHeader)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		_, _ = part.Write(p.data)
	}
	writer.Close()

	req, err := http.NewRequest(method, path, &buf)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// assertEmptyDir fails when dir holds any entry.
func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}
	if len(entries) != 0 {
		t.Errorf("expected %s to be empty, found %d entries", dir, len(entries))
	}
}
