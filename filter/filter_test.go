package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNopFilterContinuesEveryStage(t *testing.T) {
	f := NopFilter{}
	stream := StreamRef(42)

	for _, eos := range []bool{false, true} {
		assert.Equal(t, RequestHeadersContinue, f.OnRequestHeaders(stream, eos))
		assert.Equal(t, RequestBodyContinue, f.OnRequestBody(stream, eos))
		assert.Equal(t, ResponseHeadersContinue, f.OnResponseHeaders(stream, eos))
		assert.Equal(t, ResponseBodyContinue, f.OnResponseBody(stream, eos))
	}
	assert.Equal(t, RequestTrailersContinue, f.OnRequestTrailers(stream))
	assert.Equal(t, ResponseTrailersContinue, f.OnResponseTrailers(stream))

	f.Destroy() // no-op, must not panic
}

func TestHeaderStatusVocabulary(t *testing.T) {
	reqValid := []RequestHeadersStatus{
		RequestHeadersContinue,
		RequestHeadersStopIteration,
		RequestHeadersStopAllIterationAndBuffer,
	}
	for _, s := range reqValid {
		assert.True(t, s.Valid(), "status %d should be valid", s)
		assert.NotEqual(t, "invalid", s.String())
	}
	assert.False(t, RequestHeadersStatus(99).Valid())
	assert.Equal(t, "invalid", RequestHeadersStatus(99).String())

	respValid := []ResponseHeadersStatus{
		ResponseHeadersContinue,
		ResponseHeadersStopIteration,
		ResponseHeadersStopAllIterationAndBuffer,
	}
	for _, s := range respValid {
		assert.True(t, s.Valid(), "status %d should be valid", s)
	}
	assert.False(t, ResponseHeadersStatus(99).Valid())
}

func TestBodyStatusVocabulary(t *testing.T) {
	for _, s := range []RequestBodyStatus{
		RequestBodyContinue,
		RequestBodyStopIterationAndBuffer,
		RequestBodyStopIterationNoBuffer,
	} {
		assert.True(t, s.Valid(), "status %d should be valid", s)
		assert.NotEqual(t, "invalid", s.String())
	}
	assert.False(t, RequestBodyStatus(7).Valid())

	for _, s := range []ResponseBodyStatus{
		ResponseBodyContinue,
		ResponseBodyStopIterationAndBuffer,
		ResponseBodyStopIterationNoBuffer,
	} {
		assert.True(t, s.Valid(), "status %d should be valid", s)
	}
	assert.False(t, ResponseBodyStatus(7).Valid())
}

func TestTrailerStatusVocabulary(t *testing.T) {
	assert.True(t, RequestTrailersContinue.Valid())
	assert.True(t, RequestTrailersStopIteration.Valid())
	assert.False(t, RequestTrailersStatus(2).Valid())

	assert.True(t, ResponseTrailersContinue.Valid())
	assert.True(t, ResponseTrailersStopIteration.Valid())
	assert.False(t, ResponseTrailersStatus(2).Valid())
}

func TestContinueIsAlwaysZero(t *testing.T) {
	// The runtime's fault fallback casts zero into every stage's status
	// type; Continue must stay the zero value in all six enumerations.
	assert.Zero(t, uint32(RequestHeadersContinue))
	assert.Zero(t, uint32(RequestBodyContinue))
	assert.Zero(t, uint32(RequestTrailersContinue))
	assert.Zero(t, uint32(ResponseHeadersContinue))
	assert.Zero(t, uint32(ResponseBodyContinue))
	assert.Zero(t, uint32(ResponseTrailersContinue))
}
