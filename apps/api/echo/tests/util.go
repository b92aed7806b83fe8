package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/maendeleo/apps/api/echo"
	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/analytics"
	"github.com/trezcool/maendeleo/core/eval"
	"github.com/trezcool/maendeleo/core/param"
	"github.com/trezcool/maendeleo/core/report"
	"github.com/trezcool/maendeleo/core/user"
	emailsvc "github.com/trezcool/maendeleo/services/email"
	dummydb "github.com/trezcool/maendeleo/storage/database/dummy"
	testutil "github.com/trezcool/maendeleo/tests"
)

var (
	conf *core.Config

	usrRepo user.Repository

	usrSvc       *user.Service
	paramSvc     *param.Service
	evalSvc      *eval.Service
	reportSvc    *report.Service
	analyticsSvc *analytics.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type nopRenderer struct{}

func (nopRenderer) RenderReport(_ context.Context, reportID string, _ interface{}) (string, error) {
	return "http://localhost:3000/reports/" + reportID, nil
}

func setup(t *testing.T) Server {
	conf = testutil.NewConfig()

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)
	reportRepo := dummydb.NewReportRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	logger := testutil.Logger{}
	usrSvc = user.NewService(usrRepo)
	paramSvc = param.NewService(dummydb.NewParamRepository(db), conf)
	evalSvc = eval.NewService(dummydb.NewEvalRepository(db), paramSvc, conf)
	analyticsSvc = analytics.NewService(dummydb.NewAnalyticsRepository(db), dummydb.NewAnalyticsCache(), logger, conf)
	compiler := report.NewCompiler(reportRepo, evalSvc, paramSvc, dummydb.NewLeaser(), conf)
	reportSvc = report.NewService(reportRepo, compiler, mailSvc, nopRenderer{}, nil, analyticsSvc, logger, conf)

	// set up server
	return NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		ParamSvc:       paramSvc,
		EvalSvc:        evalSvc,
		ReportSvc:      reportSvc,
		AnalyticsSvc:   analyticsSvc,
	})
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
	extra    interface{}
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

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr, conf)
	token, err := GenerateToken(claims)
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

func decodeObj(t *testing.T, body []byte, obj interface{}) {
	if err := json.Unmarshal(body, obj); err != nil {
		t.Fatalf("decodeObj() failed: %v (body: %s)", err, body)
	}
}

func do(t *testing.T, srv Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var data []byte
	if body != nil {
		data = marchallObj(t, body)
	}
	req, rec := newAuthRequest(method, path, token, data)
	srv.ServeHTTP(rec, req)
	return rec
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("%s %s: code = %d, want %d (body: %s)", tt.method, tt.path, rec.Code, tt.wantCode, rec.Body.String())
		return
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("%s %s: body = %s, want %s", tt.method, tt.path, rec.Body.String(), string(tt.wantData))
	}
}
