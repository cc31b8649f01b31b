package di

import "github.com/defval/di"

func New() (*di.Container, error) {
	return di.New(
		configDiOptions,
		contextDiOptions,
		dispatcherDiOptions,
		handlersDiOptions,
		httpClientDiOptions,
		loggerDiOptions,
		serverDiOptions,
		yggdrasilDiOptions,
	)
}
