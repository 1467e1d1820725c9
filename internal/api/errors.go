package api

import "github.com/mailactivate/client-go/internal/apierrors"

// Error types shared with the public package.
type (
	ServiceError = apierrors.ServiceError
	NetworkError = apierrors.NetworkError
)

// errorCode returns a low-cardinality label for err, used in telemetry.
func errorCode(err error) string {
	switch e := err.(type) {
	case nil:
		return ""
	case *ServiceError:
		switch {
		case e.Code != "":
			if _, ok := apierrors.Lookup(e.Code); ok {
				return e.Code
			}
			return "UNKNOWN"
		case e.StatusCode != 200:
			return "HTTP_STATUS"
		case e.Body != "":
			return "BAD_JSON"
		default:
			return "BAD_STATUS"
		}
	case *NetworkError:
		return "NETWORK"
	default:
		return "OTHER"
	}
}
