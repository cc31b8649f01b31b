package di

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/defval/di"
	"github.com/getsentry/raven-go"
	"github.com/spf13/viper"
)

var serverDiOptions = di.Options(
	di.Provide(newServer),
)

type serverParams struct {
	di.Inject

	Config  *viper.Viper  `di:""`
	Handler http.Handler  `di:""`
	Sentry  *raven.Client `di:"" optional:"true"`
}

func newServer(params serverParams) *http.Server {
	params.Config.SetDefault("server.host", "")
	params.Config.SetDefault("server.port", 80)

	var handler http.Handler
	if params.Sentry != nil {
		// raven.Recoverer uses DefaultClient, which is replaced with the configured one in newSentry
		handler = raven.Recoverer(params.Handler)
	} else {
		// Without a panic handler the connection will be just reset
		handler = http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					debug.PrintStack()
					resp.WriteHeader(http.StatusInternalServerError)
				}
			}()

			params.Handler.ServeHTTP(resp, req)
		})
	}

	address := fmt.Sprintf("%s:%d", params.Config.GetString("server.host"), params.Config.GetInt("server.port"))

	// The write timeout must outlive the providers' timeout, since a single request
	// can walk through the whole providers list
	return &http.Server{
		Addr:           address,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
		Handler:        handler,
	}
}
