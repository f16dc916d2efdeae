package provider

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidassist-api/internal/config"
	apperrors "vidassist-api/pkg/errors"
)

var fastRetry = config.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestTranscriptClient_ParsesSegments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transcripts/V1", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"segments":[{"text":"hello","start_ms":0},{"text":"world","start_ms":65000},{"text":"","start_ms":125500}]}`))
	}))
	defer srv.Close()

	c := NewTranscriptClient(config.HTTPProviderConfig{BaseURL: srv.URL + "/", APIKey: "k", Retry: fastRetry})
	entries, err := c.FetchTranscript(context.Background(), "V1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "0:00", entries[0].Timestamp)
	assert.Equal(t, "1:05", entries[1].Timestamp)
	assert.Equal(t, "N/A", entries[2].Text)
	assert.Equal(t, "2:05", entries[2].Timestamp)
}

func TestTranscriptClient_Unavailable(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"not found": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
		"empty": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"segments":[]}`))
		},
		"panel missing": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Transcript panel not found"}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			c := NewTranscriptClient(config.HTTPProviderConfig{BaseURL: srv.URL, Retry: fastRetry})
			_, err := c.FetchTranscript(context.Background(), "V1")
			assert.True(t, apperrors.IsKind(err, apperrors.KindResourceUnavailable), err)
		})
	}
}

func TestTranscriptClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"segments":[{"text":"ok","start_ms":1000}]}`))
	}))
	defer srv.Close()

	c := NewTranscriptClient(config.HTTPProviderConfig{BaseURL: srv.URL, Retry: fastRetry})
	entries, err := c.FetchTranscript(context.Background(), "V1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestTranscriptClient_RateLimitNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewTranscriptClient(config.HTTPProviderConfig{BaseURL: srv.URL, Retry: fastRetry})
	_, err := c.FetchTranscript(context.Background(), "V1")
	assert.True(t, apperrors.IsKind(err, apperrors.KindProviderRateLimited))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestYouTubeClient_GetVideoDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/videos", r.URL.Path)
		assert.Equal(t, "V1", r.URL.Query().Get("id"))
		assert.Equal(t, "yt-key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"items":[{"snippet":{
			"title":"How to Bake","channelTitle":"Kitchen","channelId":"C1",
			"publishedAt":"2024-03-01T10:00:00Z",
			"thumbnails":{"high":{"url":"https://img/high.jpg"},"default":{"url":"https://img/d.jpg"}}},
			"statistics":{"viewCount":"1200","likeCount":"34"}}]}`))
	}))
	defer srv.Close()

	c := NewYouTubeClient(config.HTTPProviderConfig{BaseURL: srv.URL, APIKey: "yt-key", Retry: fastRetry})
	details, err := c.GetVideoDetails(context.Background(), "V1")
	require.NoError(t, err)
	assert.Equal(t, "How to Bake", details.Title)
	assert.Equal(t, "Kitchen", details.ChannelTitle)
	assert.Equal(t, "https://img/high.jpg", details.ThumbnailURL)
	assert.Equal(t, int64(1200), details.Views)
	assert.Equal(t, int64(34), details.Likes)
	assert.Equal(t, 2024, details.PublishedAt.Year())
}

func TestYouTubeClient_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c := NewYouTubeClient(config.HTTPProviderConfig{BaseURL: srv.URL, Retry: fastRetry})
	_, err := c.GetVideoDetails(context.Background(), "missing")
	assert.True(t, apperrors.IsKind(err, apperrors.KindResourceUnavailable))
}

func TestOpenAIImageClient_GenerateImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[{"b64_json":"` + base64.StdEncoding.EncodeToString(png) + `"}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIImageClient(config.ImageProviderConfig{APIKey: "k", BaseURL: srv.URL + "/", Size: "bogus", Retry: fastRetry})
	assert.Equal(t, defaultImageSize, c.size)

	data, err := c.GenerateImage(context.Background(), "a bright thumbnail")
	require.NoError(t, err)
	assert.Equal(t, png, data)
}

func TestOpenAIImageClient_ContentPolicy(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Your request was rejected as a result of our safety system.","type":"invalid_request_error","code":"content_policy_violation"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIImageClient(config.ImageProviderConfig{APIKey: "k", BaseURL: srv.URL + "/", Retry: fastRetry})
	_, err := c.GenerateImage(context.Background(), "something")
	assert.True(t, apperrors.IsKind(err, apperrors.KindContentPolicyViolation), err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestOpenAIImageClient_EmptyPrompt(t *testing.T) {
	c := NewOpenAIImageClient(config.ImageProviderConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1/"})
	_, err := c.GenerateImage(context.Background(), "  ")
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidInput))
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, apperrors.KindProviderRateLimited, apperrors.KindOf(classifyStatus("x", 429, nil)))
	assert.Equal(t, apperrors.KindProviderOverloaded, apperrors.KindOf(classifyStatus("x", 503, nil)))
	assert.Equal(t, apperrors.KindProviderTimeout, apperrors.KindOf(classifyStatus("x", 504, nil)))
	assert.Equal(t, apperrors.KindUnknown, apperrors.KindOf(classifyStatus("x", 401, nil)))
	assert.Equal(t, context.Canceled, classifyTransport(context.Canceled))
}
