package errclass

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "vidassist-api/pkg/errors"
)

func TestClassify_ProviderMessages(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		kind   apperrors.Kind
		status int
		msg    string
	}{
		{"overloaded", "googleapi: Error 503: The model is overloaded. Please try again later.", apperrors.KindProviderOverloaded, http.StatusServiceUnavailable, MsgProviderOverloaded},
		{"unavailable", "upstream unavailable", apperrors.KindProviderOverloaded, http.StatusServiceUnavailable, MsgProviderOverloaded},
		{"status 429", "error, status code: 429, message: slow down", apperrors.KindProviderRateLimited, http.StatusTooManyRequests, MsgProviderRateLimited},
		{"429 mentioning unavailable", "429 Too Many Requests: please retry (service temporarily unavailable)", apperrors.KindProviderRateLimited, http.StatusTooManyRequests, MsgProviderRateLimited},
		{"rate limit words", "Rate limit reached for gpt-4o", apperrors.KindProviderRateLimited, http.StatusTooManyRequests, MsgProviderRateLimited},
		{"content policy", "Your request was rejected as a result of our safety system", apperrors.KindContentPolicyViolation, http.StatusUnprocessableEntity, MsgContentPolicy},
		{"unknown", "json: cannot unmarshal number", apperrors.KindUnknown, http.StatusInternalServerError, MsgUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(FromProvider(errors.New(tc.raw)))
			assert.Equal(t, tc.kind, got.Kind)
			assert.Equal(t, tc.status, got.HTTPStatus)
			assert.Equal(t, tc.msg, got.UserMessage)
			assert.NotContains(t, got.UserMessage, tc.raw)
		})
	}
}

func TestClassify_RetriesExhausted(t *testing.T) {
	got := Classify(ProviderRetriesExhausted(FromProvider(errors.New("503 unavailable"))))
	assert.Equal(t, apperrors.KindProviderOverloaded, got.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, got.HTTPStatus)
	assert.Equal(t, MsgProviderRetries, got.UserMessage)

	rl := Classify(ProviderRetriesExhausted(FromProvider(errors.New("429"))))
	assert.Equal(t, apperrors.KindProviderRateLimited, rl.Kind)
}

func TestClassify_Auth(t *testing.T) {
	transient429 := Classify(FromAuth(&AuthFailure{Status: http.StatusTooManyRequests, Transient: true}))
	assert.Equal(t, apperrors.KindAuthTransient, transient429.Kind)
	assert.Equal(t, http.StatusTooManyRequests, transient429.HTTPStatus)
	assert.Equal(t, MsgAuthRateLimited, transient429.UserMessage)

	transientOther := Classify(FromAuth(&AuthFailure{Status: http.StatusBadGateway, Transient: true}))
	assert.Equal(t, apperrors.KindAuthTransient, transientOther.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, transientOther.HTTPStatus)
	assert.Equal(t, MsgAuthUnavailable, transientOther.UserMessage)

	denied := Classify(FromAuth(&AuthFailure{Status: http.StatusUnauthorized}))
	assert.Equal(t, apperrors.KindUnauthorized, denied.Kind)
	assert.Equal(t, http.StatusUnauthorized, denied.HTTPStatus)
}

func TestClassify_Store(t *testing.T) {
	got := Classify(FromStore(fmt.Errorf("query videos: %w", driver.ErrBadConn)))
	assert.Equal(t, apperrors.KindStoreUnavailable, got.Kind)
	assert.Equal(t, MsgStoreUnavailable, got.UserMessage)

	plain := errors.New("syntax error at or near")
	assert.Same(t, plain, FromStore(plain))
	assert.Equal(t, apperrors.KindUnknown, Classify(FromStore(plain)).Kind)
}

func TestClassify_Misc(t *testing.T) {
	assert.Equal(t, ClassifiedError{}, Classify(nil))
	assert.Nil(t, FromProvider(nil))

	timeout := Classify(fmt.Errorf("stream: %w", context.DeadlineExceeded))
	assert.Equal(t, apperrors.KindProviderTimeout, timeout.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, timeout.HTTPStatus)

	missing := Classify(apperrors.New(apperrors.KindMissingContext, MsgMissingContext))
	assert.Equal(t, http.StatusBadRequest, missing.HTTPStatus)
	assert.Equal(t, "Video context missing", missing.UserMessage)

	unavailable := Classify(apperrors.New(apperrors.KindResourceUnavailable, ""))
	assert.Equal(t, http.StatusNotFound, unavailable.HTTPStatus)
	assert.Equal(t, MsgTranscriptUnavailable, unavailable.UserMessage)
}

func TestClassify_AlreadyClassified(t *testing.T) {
	first := Classify(apperrors.New(apperrors.KindQuotaExceeded, ""))
	again := Classify(fmt.Errorf("start turn: %w", first))
	assert.Equal(t, first, again)
}
