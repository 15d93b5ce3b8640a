package api_test

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/transcription-server/ami-publisher/internal/api"
	"github.com/transcription-server/ami-publisher/internal/auth"
	"github.com/transcription-server/ami-publisher/internal/common"
	"github.com/transcription-server/ami-publisher/internal/publisher"
)

const basePath = "/api/ami-publisher/v1"

type publishermock struct {
	calledFn map[string]int

	instanceID string
	ctx        context.Context
	err        error
}

func (m *publishermock) Publish(ctx context.Context, instanceID string) (*publisher.Result, error) {
	m.calledFn["Publish"] += 1
	m.instanceID = instanceID
	m.ctx = ctx
	if m.err != nil {
		return nil, m.err
	}
	return &publisher.Result{
		ImageID:    "ami-0123456789",
		TemplateID: "lt-0abc",
		Version:    2,
	}, nil
}

func secretLoader(encoded string) auth.SecretLoader {
	return func() (*auth.Secret, error) {
		return auth.LoadSecret(encoded)
	}
}

var validSecret = base64.StdEncoding.EncodeToString([]byte(`{"TRANSCRIPTION_SERVICE_API_KEY": "k1"}`))

func newTestServer(secret string) (http.Handler, *publishermock) {
	m := &publishermock{calledFn: make(map[string]int)}
	return api.NewServer(m, secretLoader(secret)).Handler(basePath), m
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPublish(t *testing.T) {
	h, m := newTestServer(validSecret)

	rec := do(h, http.MethodGet, basePath+"/publish?ec2_id=i-123&key=k1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Launch Template Created: lt-0abc with AMI: ami-0123456789", rec.Body.String())
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))

	require.Equal(t, 1, m.calledFn["Publish"])
	require.Equal(t, "i-123", m.instanceID)

	// the run outlives the request but keeps its operation id
	require.Nil(t, m.ctx.Done())
	oid := rec.Header().Get(common.OperationIDHeader)
	require.NotEmpty(t, oid)
	require.Equal(t, oid, common.OperationIDFromContext(m.ctx))
}

func TestPublishPost(t *testing.T) {
	h, m := newTestServer(validSecret)

	rec := do(h, http.MethodPost, basePath+"/publish?ec2_id=i-123&key=k1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, m.calledFn["Publish"])
}

func TestPublishUnauthenticated(t *testing.T) {
	type testCase struct {
		Name  string
		Query string
		Body  string
	}

	testCases := []testCase{
		{Name: "no parameters", Query: "", Body: `"No InstanceId provided"`},
		{Name: "no key", Query: "?ec2_id=i-123", Body: `"No InstanceId provided"`},
		{Name: "no instance", Query: "?key=k1", Body: `"No InstanceId provided"`},
		{Name: "empty instance", Query: "?ec2_id=&key=k1", Body: `"No InstanceId provided"`},
		{Name: "wrong key", Query: "?ec2_id=i-123&key=k2", Body: `"Incorrect API Key provided"`},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			h, m := newTestServer(validSecret)

			rec := do(h, http.MethodGet, basePath+"/publish"+tc.Query)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.JSONEq(t, tc.Body, rec.Body.String())
			require.Equal(t, 0, m.calledFn["Publish"])
		})
	}
}

func TestPublishMalformedSecret(t *testing.T) {
	h, m := newTestServer("not-base64!")

	rec := do(h, http.MethodGet, basePath+"/publish?ec2_id=i-123&key=k1")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.True(t, strings.HasPrefix(rec.Body.String(), "Error: malformed secret"))
	require.Equal(t, 0, m.calledFn["Publish"])

	// parameters are checked before the secret is touched
	rec = do(h, http.MethodGet, basePath+"/publish")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPublishFailure(t *testing.T) {
	h, m := newTestServer(validSecret)
	m.err = &publisher.Error{
		Kind: publisher.ProviderOperationFailed,
		Op:   publisher.OpCreateImage,
		Err:  errors.New("InvalidInstanceID.NotFound"),
	}

	rec := do(h, http.MethodGet, basePath+"/publish?ec2_id=i-123&key=k1")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Error: create image: InvalidInstanceID.NotFound", rec.Body.String())
}

func TestPublishTimeout(t *testing.T) {
	h, m := newTestServer(validSecret)
	m.err = &publisher.Error{
		Kind: publisher.Timeout,
		Op:   publisher.OpWaitImage,
		Err:  errors.New("timed out waiting for image to become available: ami-1"),
	}

	rec := do(h, http.MethodGet, basePath+"/publish?ec2_id=i-123&key=k1")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Error: wait for image: timed out waiting for image to become available: ami-1", rec.Body.String())
}

func TestStatus(t *testing.T) {
	h, _ := newTestServer(validSecret)

	rec := do(h, http.MethodGet, basePath+"/status")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"OK"`)
}

func TestMetrics(t *testing.T) {
	h, _ := newTestServer(validSecret)

	do(h, http.MethodGet, basePath+"/status")
	rec := do(h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ami_publisher_http_total_requests")
}

func TestNotFound(t *testing.T) {
	h, _ := newTestServer(validSecret)

	rec := do(h, http.MethodGet, basePath+"/compose")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `"Not Found"`, rec.Body.String())
}

func TestOperationIDFromCaller(t *testing.T) {
	h, m := newTestServer(validSecret)

	req := httptest.NewRequest(http.MethodGet, basePath+"/publish?ec2_id=i-123&key=k1", nil)
	req.Header.Set(common.OperationIDHeader, "caller-op")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "caller-op", rec.Header().Get(common.OperationIDHeader))
	require.Equal(t, "caller-op", common.OperationIDFromContext(m.ctx))
}
