package di

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/defval/di"
	"github.com/spf13/viper"

	es "ely.by/yggrelay/internal/eventsubscribers"
	. "ely.by/yggrelay/internal/http"
	"ely.by/yggrelay/internal/yggdrasil"
)

var yggdrasilDiOptions = di.Options(
	di.Provide(newYggdrasilTransport, di.As(new(yggdrasil.Transport))),
	di.Provide(newYggdrasilClient, di.As(new(YggdrasilClient))),
)

// Reserved name of the official authentication server in the providers list
const mojangProviderName = "mojang"

func createYggdrasilProviders(container *di.Container, config *viper.Viper) ([]yggdrasil.Provider, error) {
	config.SetDefault("healthcheck.provider_cool_down_duration", time.Minute)

	// The env variable can list the providers separated by spaces or commas
	var roots []string
	for _, value := range config.GetStringSlice("yggdrasil.providers") {
		for _, root := range strings.Split(value, ",") {
			if root = strings.TrimSpace(root); root != "" {
				roots = append(roots, root)
			}
		}
	}

	if len(roots) == 0 {
		return nil, errors.New("yggdrasil.providers must contain at least one provider")
	}

	providers := make([]yggdrasil.Provider, 0, len(roots))
	for _, root := range roots {
		var provider yggdrasil.Provider
		if strings.EqualFold(root, mojangProviderName) {
			provider = &yggdrasil.MojangProvider{}
		} else {
			if _, err := url.ParseRequestURI(root); err != nil {
				return nil, fmt.Errorf("invalid provider root %q: %w", root, err)
			}

			provider = yggdrasil.NewRootProvider(root)
		}

		providerName := provider.String()
		if err := container.Provide(func(subscriber es.Subscriber, config *viper.Viper) *namedHealthChecker {
			return &namedHealthChecker{
				Name: "provider:" + providerName,
				Checker: es.ProviderResponseChecker(
					subscriber,
					providerName,
					config.GetDuration("healthcheck.provider_cool_down_duration"),
				),
			}
		}); err != nil {
			return nil, err
		}

		providers = append(providers, provider)
	}

	return providers, nil
}

func newYggdrasilTransport(httpClient *http.Client) *yggdrasil.HttpTransport {
	return yggdrasil.NewHttpTransport(httpClient)
}

func newYggdrasilClient(
	container *di.Container,
	config *viper.Viper,
	transport yggdrasil.Transport,
	emitter yggdrasil.Emitter,
) (*yggdrasil.Client, error) {
	config.SetDefault("yggdrasil.batch_size", 10)

	providers, err := createYggdrasilProviders(container, config)
	if err != nil {
		return nil, err
	}

	return yggdrasil.NewClient(
		transport,
		emitter,
		providers,
		yggdrasil.WithBulkBatchSize(config.GetInt("yggdrasil.batch_size")),
	)
}
