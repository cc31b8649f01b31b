package di

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/defval/di"
	"github.com/etherlabsio/healthcheck/v2"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"

	. "ely.by/yggrelay/internal/http"
)

var handlersDiOptions = di.Options(
	di.Provide(newHandlerFactory, di.As(new(http.Handler))),
	di.Provide(newSessionHandler, di.WithName("session")),
	di.Provide(newUpstreamHandler, di.WithName("upstream")),
)

func newHandlerFactory(
	container *di.Container,
	emitter Emitter,
) (*mux.Router, error) {
	// The session router is mounted at the root prefix, so it's used as the base one
	var router *mux.Router
	if err := container.Resolve(&router, di.Name("session")); err != nil {
		return nil, err
	}

	var upstream *httputil.ReverseProxy
	if err := container.Resolve(&upstream, di.Name("upstream")); err != nil {
		return nil, err
	}

	router.StrictSlash(true)
	requestEventsMiddleware := CreateRequestEventsMiddleware(emitter)
	router.Use(requestEventsMiddleware)
	// NotFoundHandler doesn't call for registered middlewares, so we must wrap it manually.
	// See https://github.com/gorilla/mux/issues/416#issuecomment-600079279
	if upstream != nil {
		router.NotFoundHandler = requestEventsMiddleware(upstream)
	} else {
		router.NotFoundHandler = requestEventsMiddleware(http.HandlerFunc(NotFoundHandler))
	}

	// Resolve health checkers last, because all the services required by the application
	// must first be initialized and each of them can publish its own checkers
	var healthCheckers []*namedHealthChecker
	if has, _ := container.Has(&healthCheckers); has {
		if err := container.Resolve(&healthCheckers); err != nil {
			return nil, err
		}

		checkersOptions := make([]healthcheck.Option, len(healthCheckers))
		for i, checker := range healthCheckers {
			checkersOptions[i] = healthcheck.WithChecker(checker.Name, checker.Checker)
		}

		router.Handle("/healthcheck", healthcheck.Handler(checkersOptions...)).Methods("GET")
	}

	return router, nil
}

func newSessionHandler(
	container *di.Container,
	config *viper.Viper,
	client YggdrasilClient,
) (*mux.Router, error) {
	var upstream *httputil.ReverseProxy
	if err := container.Resolve(&upstream, di.Name("upstream")); err != nil {
		return nil, err
	}

	session := &Session{
		YggdrasilClient: client,
		Hosts:           config.GetStringSlice("http.hosts"),
	}
	if upstream != nil {
		session.Fallback = upstream
	}

	return session.Handler(), nil
}

// newUpstreamHandler returns nil when no upstream session server is configured
func newUpstreamHandler(config *viper.Viper) (*httputil.ReverseProxy, error) {
	upstreamAddr := config.GetString("upstream.session_server_url")
	if upstreamAddr == "" {
		return nil, nil
	}

	target, err := url.ParseRequestURI(upstreamAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream.session_server_url: %w", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.Host = target.Host
	}

	return proxy, nil
}

type namedHealthChecker struct {
	Name    string
	Checker healthcheck.Checker
}
