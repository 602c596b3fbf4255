// server.go — ServerInterface и chi-обёртки маршрутов контракта.
// Параметр пути id разбирается через oapi-codegen runtime (style simple, int64).
package openapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// FlightId — идентификатор записи в пути.
type FlightId = int64 //nolint:revive // имя совпадает с параметром контракта

// ServerInterface — обработчики всех маршрутов контракта.
type ServerInterface interface {
	// POST /flights
	CreateFlight(w http.ResponseWriter, r *http.Request)
	// GET /flights
	ListFlights(w http.ResponseWriter, r *http.Request)
	// GET /flights/count
	CountFlights(w http.ResponseWriter, r *http.Request)
	// GET /flights/checksum
	FlightsChecksum(w http.ResponseWriter, r *http.Request)
	// GET /flights/archive
	ArchiveFlights(w http.ResponseWriter, r *http.Request)
	// GET /flights/{id}
	GetFlight(w http.ResponseWriter, r *http.Request, id FlightId)
	// PUT /flights/{id}
	UpdateFlight(w http.ResponseWriter, r *http.Request, id FlightId)
	// DELETE /flights/{id}
	DeleteFlight(w http.ResponseWriter, r *http.Request, id FlightId)
	// POST /maintenance/integrity
	RunIntegrityCheck(w http.ResponseWriter, r *http.Request)
	// GET /info
	GetServiceInfo(w http.ResponseWriter, r *http.Request)
	// GET /health/live
	HealthLive(w http.ResponseWriter, r *http.Request)
	// GET /health/ready
	HealthReady(w http.ResponseWriter, r *http.Request)
	// GET /metrics
	GetMetrics(w http.ResponseWriter, r *http.Request)
}

// LegacyInterface — маршруты прежней версии API (/voos, /contar_registros, /hash).
// Отличаются только путями и ключами тел ответов count/checksum.
type LegacyInterface interface {
	LegacyCount(w http.ResponseWriter, r *http.Request)
	LegacyChecksum(w http.ResponseWriter, r *http.Request)
}

// MiddlewareFunc — middleware, применяемое после сопоставления маршрута.
type MiddlewareFunc func(http.Handler) http.Handler

// InvalidParamFormatError — параметр пути не соответствует формату.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Некорректный формат параметра %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ServerInterfaceWrapper разбирает параметры и вызывает ServerInterface.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, h http.HandlerFunc) {
	var handler http.Handler = h
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

// bindID разбирает {id}. При ошибке ответ уже записан.
func (siw *ServerInterfaceWrapper) bindID(w http.ResponseWriter, r *http.Request) (FlightId, bool) {
	var id FlightId
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return 0, false
	}
	return id, true
}

func (siw *ServerInterfaceWrapper) CreateFlight(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.CreateFlight)
}

func (siw *ServerInterfaceWrapper) ListFlights(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.ListFlights)
}

func (siw *ServerInterfaceWrapper) CountFlights(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.CountFlights)
}

func (siw *ServerInterfaceWrapper) FlightsChecksum(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.FlightsChecksum)
}

func (siw *ServerInterfaceWrapper) ArchiveFlights(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.ArchiveFlights)
}

func (siw *ServerInterfaceWrapper) GetFlight(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetFlight(w, r, id)
	})
}

func (siw *ServerInterfaceWrapper) UpdateFlight(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.UpdateFlight(w, r, id)
	})
}

func (siw *ServerInterfaceWrapper) DeleteFlight(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.DeleteFlight(w, r, id)
	})
}

func (siw *ServerInterfaceWrapper) RunIntegrityCheck(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.RunIntegrityCheck)
}

func (siw *ServerInterfaceWrapper) GetServiceInfo(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetServiceInfo)
}

func (siw *ServerInterfaceWrapper) HealthLive(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.HealthLive)
}

func (siw *ServerInterfaceWrapper) HealthReady(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.HealthReady)
}

func (siw *ServerInterfaceWrapper) GetMetrics(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetMetrics)
}

// ChiServerOptions — параметры монтирования маршрутов.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
	// Legacy — обработчики прежних путей; nil — прежние пути не монтируются
	Legacy LegacyInterface
}

// HandlerWithOptions монтирует маршруты контракта с параметрами.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}

	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	base := options.BaseURL
	r.Group(func(r chi.Router) {
		r.Post(base+"/flights", wrapper.CreateFlight)
		r.Get(base+"/flights", wrapper.ListFlights)
		r.Get(base+"/flights/count", wrapper.CountFlights)
		r.Get(base+"/flights/checksum", wrapper.FlightsChecksum)
		r.Get(base+"/flights/archive", wrapper.ArchiveFlights)
		r.Get(base+"/flights/{id}", wrapper.GetFlight)
		r.Put(base+"/flights/{id}", wrapper.UpdateFlight)
		r.Delete(base+"/flights/{id}", wrapper.DeleteFlight)
		r.Post(base+"/maintenance/integrity", wrapper.RunIntegrityCheck)
		r.Get(base+"/info", wrapper.GetServiceInfo)
		r.Get(base+"/health/live", wrapper.HealthLive)
		r.Get(base+"/health/ready", wrapper.HealthReady)
		r.Get(base+"/metrics", wrapper.GetMetrics)
	})

	if options.Legacy != nil {
		legacy := options.Legacy
		r.Group(func(r chi.Router) {
			r.Post(base+"/voos/", wrapper.CreateFlight)
			r.Get(base+"/voos/", wrapper.ListFlights)
			r.Get(base+"/voos/{id}", wrapper.GetFlight)
			r.Put(base+"/voos/{id}", wrapper.UpdateFlight)
			r.Delete(base+"/voos/{id}", wrapper.DeleteFlight)
			r.Get(base+"/contar_registros", func(w http.ResponseWriter, r *http.Request) {
				wrapper.serve(w, r, legacy.LegacyCount)
			})
			r.Get(base+"/hash/", func(w http.ResponseWriter, r *http.Request) {
				wrapper.serve(w, r, legacy.LegacyChecksum)
			})
		})
	}

	return r
}
