// Package api provides HTTP client functionality for communicating with the
// SMS-Activate email activation API. Every operation is a GET request against
// a single handler endpoint, selected by the "action" query parameter and
// authenticated by the "api_key" query parameter.
//
// # Response Envelope
//
// The service answers every action with a JSON object. [Decode] applies the
// envelope contract in a fixed order:
//
//  1. A non-200 HTTP status is a generic [ServiceError].
//  2. A body that is not a JSON object is a generic [ServiceError] carrying
//     the raw text.
//  3. An "error" field holding a code from the table in internal/apierrors
//     is returned as that error. This wins over the status check. A null or
//     unrecognised value is ignored here.
//  4. A "status" field other than "OK" is a generic [ServiceError], which
//     keeps any unrecognised "error" code.
//  5. Otherwise the "response" value is returned to the caller.
//
// # Retry Behavior
//
// Transport retries are off by default. When enabled with [WithRetries], a
// request is retried at a fixed interval on network errors and on these
// HTTP status codes:
//
//   - 408 Request Timeout
//   - 429 Too Many Requests
//   - 500 Internal Server Error
//   - 502 Bad Gateway
//   - 503 Service Unavailable
//   - 504 Gateway Timeout
//
// # Thread Safety
//
// The [Client] type is safe for concurrent use once configured.
package api
