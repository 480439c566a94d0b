// Package errorutil holds the closed set of failures the service can report and the
// single table that turns each of them into an HTTP status and body.
package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a failure class. The set is closed.
type Kind int

const (
	KindEnvVarUnset Kind = iota + 1
	KindParseError
	KindMissingParams
	KindInvalidParamsRange
	KindObjectNotFound
	KindDBQueryError
	KindExternalAPIError
	KindAuthCredsMissing
	KindConflictInDB
	KindAuthTokenEncoderErr
	KindAuthTokenMissingOrInvalid
)

var kindNames = map[Kind]string{
	KindEnvVarUnset:               "env_var_unset",
	KindParseError:                "parse_error",
	KindMissingParams:             "missing_params",
	KindInvalidParamsRange:        "invalid_params_range",
	KindObjectNotFound:            "object_not_found",
	KindDBQueryError:              "db_query_error",
	KindExternalAPIError:          "external_api_error",
	KindAuthCredsMissing:          "auth_creds_missing",
	KindConflictInDB:              "conflict_in_db",
	KindAuthTokenEncoderErr:       "auth_token_encoder_err",
	KindAuthTokenMissingOrInvalid: "auth_token_missing_or_invalid",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

const reportedToAdmin = "Case reported to admin. Please try again later."

// ServiceError is the only error type services hand back to the transport layer.
// Err carries at most one piece of context and is never shown to clients except for
// parse failures.
type ServiceError struct {
	Kind Kind
	Err  error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches another ServiceError of the same kind, so callers can write
// errors.Is(err, errorutil.ObjectNotFound()).
func (e *ServiceError) Is(target error) bool {
	var other *ServiceError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// Message is the client visible text for the failure.
func (e *ServiceError) Message() string {
	switch e.Kind {
	case KindEnvVarUnset, KindAuthTokenEncoderErr:
		return reportedToAdmin
	case KindParseError:
		return fmt.Sprintf("Failed to parse parameter: %v", e.Err)
	case KindMissingParams:
		return "Missing parameter"
	case KindInvalidParamsRange:
		return "Invalid parameters range"
	case KindDBQueryError:
		return "Query couldn't be executed"
	case KindExternalAPIError:
		return "Error fetching data from external service"
	case KindConflictInDB:
		return "Already exists"
	case KindAuthTokenMissingOrInvalid:
		return "Missing or invalid authentication token"
	default:
		// ObjectNotFound and AuthCredsMissing intentionally say nothing.
		return ""
	}
}

func newErr(kind Kind, err error) error {
	return &ServiceError{Kind: kind, Err: err}
}

// EnvVarUnset reports a required setting that is missing.
func EnvVarUnset(name string) error {
	return newErr(KindEnvVarUnset, fmt.Errorf("%s not set", name))
}

func ParseError(cause error) error { return newErr(KindParseError, cause) }

func MissingParams() error { return newErr(KindMissingParams, nil) }

func InvalidParamsRange() error { return newErr(KindInvalidParamsRange, nil) }

func ObjectNotFound() error { return newErr(KindObjectNotFound, nil) }

func DBQueryError(cause error) error { return newErr(KindDBQueryError, cause) }

func ExternalAPIError(cause error) error { return newErr(KindExternalAPIError, cause) }

func AuthCredsMissing() error { return newErr(KindAuthCredsMissing, nil) }

func ConflictInDB(cause error) error { return newErr(KindConflictInDB, cause) }

func AuthTokenEncoderErr(cause error) error { return newErr(KindAuthTokenEncoderErr, cause) }

func AuthTokenMissingOrInvalid() error { return newErr(KindAuthTokenMissingOrInvalid, nil) }

// KindOf extracts the failure kind from anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Kind, true
	}
	return 0, false
}

// BodyDeserializeError is raised by the transport when a request body cannot be decoded.
type BodyDeserializeError struct {
	Err error
}

func (e *BodyDeserializeError) Error() string {
	return fmt.Sprintf("Request body deserialize error: %v", e.Err)
}

func (e *BodyDeserializeError) Unwrap() error {
	return e.Err
}

// MalformedBody wraps a decoder failure.
func MalformedBody(err error) error {
	return &BodyDeserializeError{Err: err}
}

// CorsForbidden is raised when a cross-origin request is not allowed.
type CorsForbidden struct {
	Reason string
}

func (e *CorsForbidden) Error() string {
	return "CORS request forbidden: " + e.Reason
}

// Recovered wraps a panic caught by the transport. It is a server fault, not a
// routing miss.
type Recovered struct {
	Value any
}

func (e *Recovered) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Outcome is what the client sees for a failed request.
type Outcome struct {
	Status int
	Body   string
	// Label names the matched row of the table; used for metrics and logs.
	Label string
}

// Labels of the rows that are not service error kinds.
const (
	LabelCorsForbidden   = "cors_forbidden"
	LabelMalformedBody   = "malformed_body"
	LabelRouteNotFound   = "route_not_found"
	LabelPanicRecovered  = "panic_recovered"
	routeNotFoundMessage = "Route not found"
)

var kindStatus = map[Kind]int{
	KindEnvVarUnset:               http.StatusInternalServerError,
	KindParseError:                http.StatusUnprocessableEntity,
	KindMissingParams:             http.StatusUnprocessableEntity,
	KindInvalidParamsRange:        http.StatusUnprocessableEntity,
	KindObjectNotFound:            http.StatusNotFound,
	KindDBQueryError:              http.StatusInternalServerError,
	KindExternalAPIError:          http.StatusInternalServerError,
	KindAuthCredsMissing:          http.StatusUnauthorized,
	KindConflictInDB:              http.StatusConflict,
	KindAuthTokenEncoderErr:       http.StatusInternalServerError,
	KindAuthTokenMissingOrInvalid: http.StatusUnauthorized,
}

// StatusFor returns the HTTP status bound to a kind.
func StatusFor(kind Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusNotFound
}

// Resolve maps any error to its response. Checks run in a fixed order:
// cross-origin rejection, malformed body, service kinds, recovered panics, then the
// route-not-found fallback for everything else.
func Resolve(err error) Outcome {
	var corsErr *CorsForbidden
	if errors.As(err, &corsErr) {
		return Outcome{Status: http.StatusForbidden, Body: corsErr.Error(), Label: LabelCorsForbidden}
	}

	var bodyErr *BodyDeserializeError
	if errors.As(err, &bodyErr) {
		return Outcome{Status: http.StatusUnprocessableEntity, Body: bodyErr.Error(), Label: LabelMalformedBody}
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		if status, ok := kindStatus[svcErr.Kind]; ok {
			return Outcome{Status: status, Body: svcErr.Message(), Label: svcErr.Kind.String()}
		}
	}

	var panicErr *Recovered
	if errors.As(err, &panicErr) {
		return Outcome{Status: http.StatusInternalServerError, Body: reportedToAdmin, Label: LabelPanicRecovered}
	}

	return Outcome{Status: http.StatusNotFound, Body: routeNotFoundMessage, Label: LabelRouteNotFound}
}
