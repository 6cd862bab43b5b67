package sms

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"warehousepos/pkg/apperr"
	"warehousepos/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientOpts(url string) ClientOptions {
	return ClientOptions{BaseURL: url, APIKey: "key-123", SenderID: "WPOS", Timeout: 2 * time.Second, RetryCount: 1}
}

func TestMNotifyClientSend(t *testing.T) {
	var got mnotifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sms/quick", r.URL.Path)
		assert.Equal(t, "key-123", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"success","code":"2000","message":"messages sent successfully"}`)
	}))
	defer srv.Close()

	err := NewMNotifyClient(clientOpts(srv.URL)).Send(context.Background(), "+233241234567", "hello")
	require.NoError(t, err)
	assert.Equal(t, []string{"233241234567"}, got.Recipient)
	assert.Equal(t, "WPOS", got.Sender)
	assert.Equal(t, "hello", got.Message)
}

func TestMNotifyClientRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"error","code":"1004","message":"insufficient balance"}`)
	}))
	defer srv.Close()

	err := NewMNotifyClient(clientOpts(srv.URL)).Send(context.Background(), "+233241234567", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient balance")
}

func TestTermiiClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sms/send", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, `{"message":"upstream"}`)
			return
		}
		var body termiiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2348031234567", body.To)
		assert.Equal(t, "key-123", body.APIKey)
		assert.Equal(t, "generic", body.Channel)
		_, _ = io.WriteString(w, `{"message_id":"9122821270554876574","message":"Successfully Sent"}`)
	}))
	defer srv.Close()

	err := NewTermiiClient(clientOpts(srv.URL)).Send(context.Background(), "+2348031234567", "hello")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

type fakeSender struct {
	name string
	sent []string
	err  error
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) Send(_ context.Context, to, message string) error {
	f.sent = append(f.sent, to+"|"+message)
	return f.err
}

func TestRouterPicksGatewayByPrefix(t *testing.T) {
	gh := &fakeSender{name: "gh"}
	ng := &fakeSender{name: "ng"}
	r := NewRouter(logger.Nop()).Handle("+233", gh).Handle("+234", ng)

	require.NoError(t, r.Send(context.Background(), "+233241234567", "a"))
	require.NoError(t, r.Send(context.Background(), "+2348031234567", "b"))
	assert.Equal(t, []string{"+233241234567|a"}, gh.sent)
	assert.Equal(t, []string{"+2348031234567|b"}, ng.sent)

	err := r.Send(context.Background(), "+14155550100", "c")
	assert.True(t, errors.Is(err, ErrUnsupportedRegion))
}

type fakeLimiter struct {
	hits    map[string]int
	failing bool
}

func (f *fakeLimiter) IsRateLimited(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if f.failing {
		return true, errors.New("redis down")
	}
	f.hits[key]++
	return f.hits[key] > limit, nil
}

func TestOTPService(t *testing.T) {
	gh := &fakeSender{name: "gh"}
	router := NewRouter(logger.Nop()).Handle("+233", gh)
	limiter := &fakeLimiter{hits: map[string]int{}}
	svc := NewOTPService(router, limiter, 2, 10*time.Minute, logger.Nop())
	ctx := context.Background()

	require.NoError(t, svc.SendOTP(ctx, "+233241234567", "123456"))
	assert.Equal(t, "+233241234567|Your WarehousePOS verification code is 123456", gh.sent[0])

	require.NoError(t, svc.SendOTP(ctx, "+233241234567", "654321"))
	err := svc.SendOTP(ctx, "+233241234567", "111111")
	assert.True(t, apperr.Is(err, apperr.CodeRateLimit))

	err = svc.SendOTP(ctx, "+14155550100", "111111")
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
	assert.Equal(t, 1, len(limiter.hits), "unsupported numbers do not count against the limit")

	err = svc.SendOTP(ctx, "", "111111")
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	gh.err = errors.New("timeout")
	err = svc.SendOTP(ctx, "+233200000000", "111111")
	assert.True(t, apperr.Is(err, apperr.CodeDependency))
}

func TestOTPServiceFailsOpenWhenLimiterDown(t *testing.T) {
	gh := &fakeSender{name: "gh"}
	svc := NewOTPService(NewRouter(logger.Nop()).Handle("+233", gh), &fakeLimiter{failing: true}, 5, time.Minute, logger.Nop())

	require.NoError(t, svc.SendOTP(context.Background(), "+233241234567", "123456"))
	assert.Len(t, gh.sent, 1)
}

func TestVerifyWebhook(t *testing.T) {
	secret := "v1,whsec_c2VjcmV0LWtleS0xMjM0NTY3ODk="
	body := []byte(`{"user":{"phone":"+233241234567"},"sms":{"otp":"123456"}}`)
	now := time.Unix(1760000000, 0)

	header := http.Header{}
	header.Set("webhook-id", "msg_1")
	header.Set("webhook-timestamp", "1760000000")
	header.Set("webhook-signature", "v1,bogus v1,"+Sign(secret, "msg_1", now, body))

	assert.NoError(t, VerifyWebhook(secret, header, body, now.Add(time.Minute)))
	assert.ErrorIs(t, VerifyWebhook(secret, header, []byte(`{}`), now), ErrBadSignature)
	assert.ErrorIs(t, VerifyWebhook(secret, header, body, now.Add(6*time.Minute)), ErrStaleTimestamp)

	header.Del("webhook-id")
	assert.ErrorIs(t, VerifyWebhook(secret, header, body, now), ErrMissingSignature)
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "+233******567", maskPhone("+233241234567"))
	assert.Equal(t, "123", maskPhone("123"))
}
