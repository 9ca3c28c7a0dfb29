package filter

// Each callback stage returns a status from its own closed enumeration.
// The numeric values are the ABI wire values and must not be reordered.
// Every stage has Continue plus at least one stop/pause variant; header
// and body stages additionally distinguish how stopped data is held.
// Request and response stages are distinct types even where the variant
// sets coincide, so a callback cannot return a status from the wrong
// stage by accident.

// RequestHeadersStatus is returned by OnRequestHeaders.
type RequestHeadersStatus uint32

const (
	RequestHeadersContinue                  RequestHeadersStatus = 0
	RequestHeadersStopIteration             RequestHeadersStatus = 1
	RequestHeadersStopAllIterationAndBuffer RequestHeadersStatus = 2
)

// Valid reports whether s is part of the stage's closed enumeration.
func (s RequestHeadersStatus) Valid() bool {
	switch s {
	case RequestHeadersContinue, RequestHeadersStopIteration, RequestHeadersStopAllIterationAndBuffer:
		return true
	}
	return false
}

func (s RequestHeadersStatus) String() string {
	switch s {
	case RequestHeadersContinue:
		return "continue"
	case RequestHeadersStopIteration:
		return "stop_iteration"
	case RequestHeadersStopAllIterationAndBuffer:
		return "stop_all_iteration_and_buffer"
	}
	return "invalid"
}

// RequestBodyStatus is returned by OnRequestBody.
type RequestBodyStatus uint32

const (
	RequestBodyContinue               RequestBodyStatus = 0
	RequestBodyStopIterationAndBuffer RequestBodyStatus = 1
	RequestBodyStopIterationNoBuffer  RequestBodyStatus = 2
)

// Valid reports whether s is part of the stage's closed enumeration.
func (s RequestBodyStatus) Valid() bool {
	switch s {
	case RequestBodyContinue, RequestBodyStopIterationAndBuffer, RequestBodyStopIterationNoBuffer:
		return true
	}
	return false
}

func (s RequestBodyStatus) String() string {
	switch s {
	case RequestBodyContinue:
		return "continue"
	case RequestBodyStopIterationAndBuffer:
		return "stop_iteration_and_buffer"
	case RequestBodyStopIterationNoBuffer:
		return "stop_iteration_no_buffer"
	}
	return "invalid"
}

// RequestTrailersStatus is returned by OnRequestTrailers.
type RequestTrailersStatus uint32

const (
	RequestTrailersContinue      RequestTrailersStatus = 0
	RequestTrailersStopIteration RequestTrailersStatus = 1
)

// Valid reports whether s is part of the stage's closed enumeration.
func (s RequestTrailersStatus) Valid() bool {
	return s == RequestTrailersContinue || s == RequestTrailersStopIteration
}

func (s RequestTrailersStatus) String() string {
	switch s {
	case RequestTrailersContinue:
		return "continue"
	case RequestTrailersStopIteration:
		return "stop_iteration"
	}
	return "invalid"
}

// ResponseHeadersStatus is returned by OnResponseHeaders.
type ResponseHeadersStatus uint32

const (
	ResponseHeadersContinue                  ResponseHeadersStatus = 0
	ResponseHeadersStopIteration             ResponseHeadersStatus = 1
	ResponseHeadersStopAllIterationAndBuffer ResponseHeadersStatus = 2
)

// Valid reports whether s is part of the stage's closed enumeration.
func (s ResponseHeadersStatus) Valid() bool {
	switch s {
	case ResponseHeadersContinue, ResponseHeadersStopIteration, ResponseHeadersStopAllIterationAndBuffer:
		return true
	}
	return false
}

func (s ResponseHeadersStatus) String() string {
	switch s {
	case ResponseHeadersContinue:
		return "continue"
	case ResponseHeadersStopIteration:
		return "stop_iteration"
	case ResponseHeadersStopAllIterationAndBuffer:
		return "stop_all_iteration_and_buffer"
	}
	return "invalid"
}

// ResponseBodyStatus is returned by OnResponseBody.
type ResponseBodyStatus uint32

const (
	ResponseBodyContinue               ResponseBodyStatus = 0
	ResponseBodyStopIterationAndBuffer ResponseBodyStatus = 1
	ResponseBodyStopIterationNoBuffer  ResponseBodyStatus = 2
)

// Valid reports whether s is part of the stage's closed enumeration.
func (s ResponseBodyStatus) Valid() bool {
	switch s {
	case ResponseBodyContinue, ResponseBodyStopIterationAndBuffer, ResponseBodyStopIterationNoBuffer:
		return true
	}
	return false
}

func (s ResponseBodyStatus) String() string {
	switch s {
	case ResponseBodyContinue:
		return "continue"
	case ResponseBodyStopIterationAndBuffer:
		return "stop_iteration_and_buffer"
	case ResponseBodyStopIterationNoBuffer:
		return "stop_iteration_no_buffer"
	}
	return "invalid"
}

// ResponseTrailersStatus is returned by OnResponseTrailers.
type ResponseTrailersStatus uint32

const (
	ResponseTrailersContinue      ResponseTrailersStatus = 0
	ResponseTrailersStopIteration ResponseTrailersStatus = 1
)

// Valid reports whether s is part of the stage's closed enumeration.
func (s ResponseTrailersStatus) Valid() bool {
	return s == ResponseTrailersContinue || s == ResponseTrailersStopIteration
}

func (s ResponseTrailersStatus) String() string {
	switch s {
	case ResponseTrailersContinue:
		return "continue"
	case ResponseTrailersStopIteration:
		return "stop_iteration"
	}
	return "invalid"
}
