// openapi.go — проверка входящих запросов по OpenAPI контракту (kin-openapi).
// Применяется после сопоставления маршрута chi: операция контракта
// выбирается по шаблону маршрута, маршруты вне контракта пропускаются.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/flightstore/internal/api/errors"
)

// OpenAPIValidator возвращает middleware проверки параметров и тела запроса.
// Ошибка проверки — 400 VALIDATION_ERROR.
func OpenAPIValidator(doc *openapi3.T) func(http.Handler) http.Handler {
	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		MultiError:         false,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams := findRoute(doc, r)
			if route == nil {
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    options,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				apierrors.ValidationError(w, validationMessage(err))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// findRoute сопоставляет шаблон маршрута chi с путём контракта.
func findRoute(doc *openapi3.T, r *http.Request) (*routers.Route, map[string]string) {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || doc.Paths == nil {
		return nil, nil
	}
	pattern := rctx.RoutePattern()
	pathItem := doc.Paths.Value(pattern)
	if pathItem == nil {
		return nil, nil
	}
	operation := pathItem.GetOperation(r.Method)
	if operation == nil {
		return nil, nil
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		params[key] = rctx.URLParams.Values[i]
	}

	return &routers.Route{
		Spec:      doc,
		Path:      pattern,
		PathItem:  pathItem,
		Method:    r.Method,
		Operation: operation,
	}, params
}

// validationMessage сокращает сообщение kin-openapi до причины.
func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		return err.Error()
	}

	prefix := ""
	if reqErr.Parameter != nil {
		prefix = "Параметр " + reqErr.Parameter.Name + ": "
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(reqErr.Err, &schemaErr) {
		if field := strings.Join(schemaErr.JSONPointer(), "."); field != "" && prefix == "" {
			return "Поле " + field + ": " + schemaErr.Reason
		}
		return prefix + schemaErr.Reason
	}
	if reqErr.Err != nil {
		return prefix + reqErr.Err.Error()
	}
	return prefix + reqErr.Error()
}
