package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        string
}

type MinioServiceTestSuite struct {
	suite.Suite
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
	service  MinioService
}

func (suite *MinioServiceTestSuite) SetupTest() {
	suite.requests = nil
	suite.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		suite.mu.Lock()
		suite.requests = append(suite.requests, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Body:        string(body),
		})
		suite.mu.Unlock()

		switch r.Method {
		case http.MethodPut:
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))

	u, err := url.Parse(suite.server.URL)
	suite.Require().NoError(err)
	suite.service, err = NewMinioService(MinioOptions{
		Endpoint:  u.Host,
		AccessKey: "minio",
		SecretKey: "minio-secret",
		Bucket:    "warehousepos",
		Region:    "us-east-1",
	})
	suite.Require().NoError(err)
}

func (suite *MinioServiceTestSuite) TearDownTest() {
	suite.server.Close()
}

func TestMinioServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MinioServiceTestSuite))
}

func (suite *MinioServiceTestSuite) TestUploadSendsContentType() {
	err := suite.service.Upload(context.Background(), "tenants/t1/products/p1/i1.png", strings.NewReader("png-bytes"), 9, "image/png")
	require.NoError(suite.T(), err)

	require.Len(suite.T(), suite.requests, 1)
	req := suite.requests[0]
	assert.Equal(suite.T(), http.MethodPut, req.Method)
	assert.Equal(suite.T(), "/warehousepos/tenants/t1/products/p1/i1.png", req.Path)
	assert.Equal(suite.T(), "image/png", req.ContentType)
}

func (suite *MinioServiceTestSuite) TestDelete() {
	err := suite.service.Delete(context.Background(), "tenants/t1/deliveries/a1.jpg")
	require.NoError(suite.T(), err)

	require.Len(suite.T(), suite.requests, 1)
	assert.Equal(suite.T(), http.MethodDelete, suite.requests[0].Method)
	assert.Equal(suite.T(), "/warehousepos/tenants/t1/deliveries/a1.jpg", suite.requests[0].Path)
}

func (suite *MinioServiceTestSuite) TestPresignedURLIsSignedLocally() {
	raw, err := suite.service.PresignedURL(context.Background(), "tenants/t1/products/p1/i1.jpg", 15*time.Minute)
	require.NoError(suite.T(), err)

	u, err := url.Parse(raw)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "/warehousepos/tenants/t1/products/p1/i1.jpg", u.Path)
	assert.Equal(suite.T(), "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(suite.T(), u.Query().Get("X-Amz-Signature"))
	assert.Empty(suite.T(), suite.requests, "presigning must not call the server")
}

func TestImageExtension(t *testing.T) {
	ext, ok := imageExtension("image/JPEG")
	assert.True(t, ok)
	assert.Equal(t, ".jpg", ext)

	ext, ok = imageExtension("image/webp; charset=binary")
	assert.True(t, ok)
	assert.Equal(t, ".webp", ext)

	_, ok = imageExtension("application/pdf")
	assert.False(t, ok)
}

func TestObjectKeysAreTenantScoped(t *testing.T) {
	tenantID := uuid.MustParse("11111111-1111-4111-8111-111111111111")
	productID := uuid.MustParse("22222222-2222-4222-8222-222222222222")
	imageID := uuid.MustParse("33333333-3333-4333-8333-333333333333")

	assert.Equal(t,
		"tenants/11111111-1111-4111-8111-111111111111/products/22222222-2222-4222-8222-222222222222/33333333-3333-4333-8333-333333333333.png",
		productImageKey(tenantID, productID, imageID, ".png"))
	assert.Equal(t,
		"tenants/11111111-1111-4111-8111-111111111111/deliveries/33333333-3333-4333-8333-333333333333.jpg",
		deliveryProofKey(tenantID, imageID, ".jpg"))
}
