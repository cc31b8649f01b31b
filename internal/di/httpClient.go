package di

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/defval/di"
	"github.com/spf13/viper"
)

var httpClientDiOptions = di.Options(
	di.Provide(newHttpClient),
)

func newHttpClient(config *viper.Viper) (*http.Client, error) {
	config.SetDefault("yggdrasil.timeout", 10*time.Second)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy := config.GetString("yggdrasil.proxy"); proxy != "" {
		proxyUrl, err := url.ParseRequestURI(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid yggdrasil.proxy: %w", err)
		}

		transport.Proxy = http.ProxyURL(proxyUrl)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   config.GetDuration("yggdrasil.timeout"),
	}, nil
}
