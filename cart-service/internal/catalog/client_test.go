package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fjod/storefront/pkg/logger"
)

const jacketJSON = `{
	"group_slug": "classic-jacket",
	"group_name": "Classic Jacket",
	"variant": {
		"sku": "JKT-BLK-M",
		"color": "Black",
		"size": "M",
		"price": 50,
		"in_stock": true,
		"images": [
			{"url": "/images/jacket-black-back.jpg", "primary": false},
			{"url": "/images/jacket-black-front.jpg", "primary": true}
		]
	}
}`

func TestLookupVariant_Success(t *testing.T) {
	var gotPath, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(jacketJSON))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", time.Second, zap.NewNop())
	ctx := logger.WithRequestID(context.Background(), "req-7")

	v, err := client.LookupVariant(ctx, "JKT-BLK-M")
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/variants/JKT-BLK-M", gotPath)
	assert.Equal(t, "req-7", gotRequestID)
	assert.True(t, v.InStock)
	assert.Equal(t, "JKT-BLK-M", v.Details.SKU)
	assert.Equal(t, "Classic Jacket", v.Details.Name)
	assert.Equal(t, 50.0, v.Details.Price)
	assert.Equal(t, "Black", v.Details.Color)
	assert.Equal(t, "M", v.Details.Size)
	assert.Equal(t, "classic-jacket", v.Details.GroupSlug)
	assert.Equal(t, "/images/jacket-black-front.jpg", v.Details.Image)
}

func TestLookupVariant_NoDimensionsNoImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"group_slug":"gift-card","group_name":"Gift Card","variant":{"sku":"GIFT-50","color":null,"size":null,"price":50,"in_stock":true,"images":[]}}`))
	}))
	defer srv.Close()

	v, err := NewClient(srv.URL, time.Second, zap.NewNop()).LookupVariant(context.Background(), "GIFT-50")
	require.NoError(t, err)

	assert.Empty(t, v.Details.Color)
	assert.Empty(t, v.Details.Size)
	assert.Empty(t, v.Details.Image)
}

func TestLookupVariant_NotFoundDoesNotTripBreaker(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, zap.NewNop())
	for i := 0; i < 10; i++ {
		_, err := client.LookupVariant(context.Background(), "NOPE")
		require.ErrorIs(t, err, ErrVariantNotFound)
	}

	assert.Equal(t, int32(10), atomic.LoadInt32(&calls))
}

func TestLookupVariant_ServerErrorsOpenBreaker(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, zap.NewNop())
	for i := 0; i < 5; i++ {
		_, err := client.LookupVariant(context.Background(), "JKT-BLK-M")
		require.ErrorContains(t, err, "status 500")
	}

	_, err := client.LookupVariant(context.Background(), "JKT-BLK-M")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestLookupVariant_CallerCancellationDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(jacketJSON))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, zap.NewNop())

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()

	for i := 0; i < 5; i++ {
		_, err := client.LookupVariant(cancelled, "JKT-BLK-M")
		require.ErrorIs(t, err, context.Canceled)
		_, err = client.LookupVariant(expired, "JKT-BLK-M")
		require.ErrorIs(t, err, context.DeadlineExceeded)
	}

	v, err := client.LookupVariant(context.Background(), "JKT-BLK-M")
	require.NoError(t, err)
	assert.Equal(t, "JKT-BLK-M", v.Details.SKU)
	assert.Equal(t, gobreaker.StateClosed, client.breaker.State())
}

func TestLookupVariant_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"variant":`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, zap.NewNop()).LookupVariant(context.Background(), "X")

	assert.ErrorContains(t, err, "failed to decode catalog response")
}
