package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	. "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/course"
	logsvc "github.com/trezcool/academia/services/logger"
	metricsvc "github.com/trezcool/academia/services/metrics"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	*Server
	conf      *core.Config
	repo      course.Repository
	accessSvc *access.Service
}

func testConfig() *core.Config {
	return &core.Config{
		AppName:   "Academia",
		SecretKey: "test-secret",
		TestMode:  true,
		Server: core.ServerConfig{
			ReadTimeout:        time.Second,
			JWTExpirationDelta: time.Hour,
		},
		Access: core.AccessConfig{
			FetchTimeout:   time.Second,
			VerifyIdentity: true,
		},
	}
}

func setup(t *testing.T, configure ...func(conf *core.Config)) *testApp {
	conf := testConfig()
	for _, fn := range configure {
		fn(conf)
	}
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0), false)
	validate, translator := testutil.NewValidator()

	// set up DB & repos
	repo := inmemdb.NewCourseRepository(inmemdb.Open())

	// set up services
	reg := prometheus.NewRegistry()
	courseSvc := course.NewService(repo, validate)
	accessSvc := access.NewService(courseSvc, nil, metricsvc.NewRecorder(reg), logger, access.ServiceOptions{
		FetchTimeout: conf.Access.FetchTimeout,
		Policy:       access.Policy{RequireChecksForManual: conf.Access.RequireChecksForManual},
	})

	// set up server
	srv := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		CourseSvc:      courseSvc,
		AccessSvc:      accessSvc,
		Validate:       validate,
		Translator:     translator,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		DisableReqLogs: true,
	})
	t.Cleanup(func() { _ = srv.Close() })

	return &testApp{Server: srv, conf: conf, repo: repo, accessSvc: accessSvc}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, id string, isAdmin bool) string {
	token, err := GenerateToken(conf, NewClaims(conf, id, "Jo Kabila", "jo@test.cd", isAdmin))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q failed: %v", rec.Body.String(), err)
	}
}
