package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/sushihentaime/writtenwork/internal/blogservice"
	"github.com/sushihentaime/writtenwork/internal/common"
	"github.com/sushihentaime/writtenwork/internal/socialservice"
	"github.com/sushihentaime/writtenwork/internal/storageservice"
	"github.com/sushihentaime/writtenwork/internal/userservice"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const testPassword = "correcthorse42"

// fakeProducer records published events instead of talking to a broker.
type fakeProducer struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (p *fakeProducer) Publish(ctx context.Context, msg []byte, key common.BindingKey, exchange common.Exchange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakeProducer) last() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.msgs) == 0 {
		return nil
	}
	return p.msgs[len(p.msgs)-1]
}

// fakeObjectStore accepts every upload.
type fakeObjectStore struct {
	mu   sync.Mutex
	keys []string
}

func (s *fakeObjectStore) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, *params.Bucket+"/"+*params.Key)
	return &s3.PutObjectOutput{}, nil
}

func (s *fakeObjectStore) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func (s *fakeObjectStore) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	return &s3.CreateBucketOutput{}, nil
}

// newUnitApplication builds an application without a database. Only handlers that
// never reach the store may be exercised with it.
func newUnitApplication(t *testing.T) *application {
	t.Helper()

	templates, err := newTemplateCache()
	assert.NoError(t, err)

	metrics, err := newMetrics(noopmetric.NewMeterProvider())
	assert.NoError(t, err)

	return &application{
		config:      &Config{Environment: "testing"},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		userService: userservice.NewUserService(nil, nil, nil),
		pages:       common.NewCache(time.Minute, 5*time.Minute),
		limiters:    common.NewCache(time.Minute, 5*time.Minute),
		templates:   templates,
		metrics:     metrics,
	}
}

type testEnv struct {
	app      *application
	db       *sqlx.DB
	producer *fakeProducer
	store    *fakeObjectStore
	reader   *sdkmetric.ManualReader
}

func newTestApplication(t *testing.T) *testEnv {
	t.Helper()

	db := common.TestDB("file://../../migrations", t)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := loadConfig("../../.test.env")
	assert.NoError(t, err)

	templates, err := newTemplateCache()
	assert.NoError(t, err)

	reader := sdkmetric.NewManualReader()
	metrics, err := newMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	assert.NoError(t, err)

	producer := &fakeProducer{}
	store := &fakeObjectStore{}

	app := &application{
		config:         cfg,
		logger:         logger,
		userService:    userservice.NewUserService(db, producer, nil),
		blogService:    blogservice.NewBlogService(db),
		socialService:  socialservice.NewSocialService(db, nooptrace.NewTracerProvider()),
		storageService: storageservice.NewWithClient(store, cfg.Storage.PublicURL),
		pages:          common.NewCache(time.Minute, 5*time.Minute),
		limiters:       common.NewCache(time.Minute, 5*time.Minute),
		templates:      templates,
		metrics:        metrics,
	}

	return &testEnv{app: app, db: db, producer: producer, store: store, reader: reader}
}

// signUp creates a user and returns its session cookie value.
func (e *testEnv) signUp(t *testing.T, email string, admin bool) (string, *userservice.User) {
	t.Helper()

	session, user, err := e.app.userService.SignUp(context.Background(), email, testPassword)
	assert.NoError(t, err)

	if admin {
		_, err = e.db.Exec(`UPDATE profiles SET role = 'admin' WHERE id = $1`, user.ID)
		assert.NoError(t, err)
	}

	return session.Plain, user
}

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)

	// redirects are part of what the handlers return
	ts.Client().CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	t.Cleanup(ts.Close)

	return &testServer{ts}
}

type testResponse struct {
	status  int
	header  http.Header
	body    string
	cookies []*http.Cookie
}

func (r testResponse) json(t *testing.T) envelope {
	t.Helper()

	var env envelope
	err := json.Unmarshal([]byte(r.body), &env)
	assert.NoError(t, err)
	return env
}

func (ts *testServer) do(t *testing.T, req *http.Request, session string) testResponse {
	t.Helper()

	if session != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: session})
	}

	res, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}

	return testResponse{status: res.StatusCode, header: res.Header, body: string(body), cookies: res.Cookies()}
}

func (ts *testServer) get(t *testing.T, path, session string) testResponse {
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	return ts.do(t, req, session)
}

// postForm submits a form. With asJSON the request is made the way the widgets make it.
func (ts *testServer) postForm(t *testing.T, path, session string, form url.Values, asJSON bool) testResponse {
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if asJSON {
		req.Header.Set("Accept", "application/json")
	}
	return ts.do(t, req, session)
}

func (ts *testServer) postMultipart(t *testing.T, path, session string, body *bytes.Buffer, contentType string) testResponse {
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	return ts.do(t, req, session)
}

// mutationCount reads the mutation counter for one action and outcome.
func (e *testEnv) mutationCount(t *testing.T, action, outcome string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	err := e.reader.Collect(context.Background(), &rm)
	assert.NoError(t, err)

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "writtenwork.mutations" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected aggregation %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				a, _ := dp.Attributes.Value("action")
				o, _ := dp.Attributes.Value("outcome")
				if a.AsString() == action && o.AsString() == outcome {
					return dp.Value
				}
			}
		}
	}

	return 0
}
