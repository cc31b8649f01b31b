package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mono83/slf"
	"github.com/mono83/slf/wd"
)

type Emitter interface {
	Emit(name string, args ...interface{})
}

func StartServer(ctx context.Context, server *http.Server, logger slf.Logger) {
	srvErr := make(chan error, 1)
	go func() {
		logger.Info("Starting the server on :addr", wd.StringParam("addr", server.Addr))
		srvErr <- server.ListenAndServe()
		close(srvErr)
	}()

	select {
	case err := <-srvErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Emergency("Error in the server: :err", wd.ErrParam(err))
		}
	case <-ctx.Done():
		logger.Info("Got stop signal, starting graceful shutdown")

		stopCtx, cancelFunc := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancelFunc()

		_ = server.Shutdown(stopCtx)

		logger.Info("Graceful shutdown succeed, exiting")
	}
}

func CreateRequestEventsMiddleware(emitter Emitter) mux.MiddlewareFunc {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
			emitter.Emit("http:before_request", req)

			writer := &statusCapturingWriter{ResponseWriter: resp, status: http.StatusOK}
			handler.ServeHTTP(writer, req)

			emitter.Emit("http:after_request", req, writer.status)
		})
	}
}

type statusCapturingWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusCapturingWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.status = statusCode
		w.wroteHeader = true
	}

	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusCapturingWriter) Write(data []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(data)
}

// Unwrap lets http.ResponseController reach the Flusher of the wrapped writer
func (w *statusCapturingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func NotFoundHandler(response http.ResponseWriter, _ *http.Request) {
	data, _ := json.Marshal(map[string]string{
		"status":  "404",
		"message": "Not Found",
	})

	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(http.StatusNotFound)
	_, _ = response.Write(data)
}

// NoContentHandler answers the same way the official session server does
// when it can't confirm the request
func NoContentHandler(response http.ResponseWriter, _ *http.Request) {
	response.WriteHeader(http.StatusNoContent)
}

func apiIllegalArgument(resp http.ResponseWriter, message string) {
	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(http.StatusBadRequest)
	result, _ := json.Marshal(map[string]string{
		"error":        "IllegalArgumentException",
		"errorMessage": message,
	})
	_, _ = resp.Write(result)
}

func apiSuccess(resp http.ResponseWriter, body []byte) {
	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(http.StatusOK)
	_, _ = resp.Write(body)
}

var internalServerError = []byte("Internal server error")

func apiServerError(resp http.ResponseWriter) {
	resp.Header().Set("Content-Type", "text/plain")
	resp.WriteHeader(http.StatusInternalServerError)
	_, _ = resp.Write(internalServerError)
}
