package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	appErrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// OpenAPIValidator rejects requests that do not match the documented
// operation. Paths missing from the document pass through untouched.
func OpenAPIValidator(doc *openapi3.T, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	// match on the request path alone, whatever host serves it
	doc.Servers = nil
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, err
	}
	base := transport.NewBaseHandler(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				if unrouted(err) {
					next.ServeHTTP(w, r)
					return
				}
				base.WriteAppError(w, appErrors.NewInternalError("failed to match route", err))
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options: &openapi3filter.Options{
					AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
					// multipart uploads are size- and type-checked by the handler
					ExcludeRequestBody: strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/"),
				},
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				base.WriteAppError(w, appErrors.NewValidationError(err.Error(), appErrors.ErrCodeValidationFailed))
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

// unrouted reports whether err means the document has no operation for the
// request. The legacy router wraps the reason in a fresh RouteError.
func unrouted(err error) bool {
	if errors.Is(err, routers.ErrPathNotFound) || errors.Is(err, routers.ErrMethodNotAllowed) {
		return true
	}
	var routeErr *routers.RouteError
	if !errors.As(err, &routeErr) {
		return false
	}
	return routeErr.Reason == routers.ErrPathNotFound.Error() ||
		routeErr.Reason == routers.ErrMethodNotAllowed.Error()
}
