package cmd

import (
	"fmt"
	"os"
	"strings"

	. "github.com/defval/di"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ely.by/yggrelay/internal/di"
	"ely.by/yggrelay/internal/http"
	"ely.by/yggrelay/internal/version"
)

var cfgFile string

var RootCmd = &cobra.Command{
	Use:     "yggrelay",
	Short:   "Resolves Minecraft identities through the chain of Yggdrasil providers",
	Version: version.Version(),
}

// Execute is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func shouldGetContainer() *Container {
	container, err := di.New()
	if err != nil {
		panic(err)
	}

	return container
}

func startServer() error {
	container := shouldGetContainer()

	return container.Invoke(http.StartServer)
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the config file, env variables take precedence over it")
}

func initConfig() {
	viper.AutomaticEnv()
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	if cfgFile == "" {
		return
	}

	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Unable to read the config file %s: %v\n", cfgFile, err)
		os.Exit(1)
	}
}
