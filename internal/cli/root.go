package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	tinder "github.com/JohnPlummer/jp-go-tinder"
)

const tinderctl = "tinderctl"

// app is the state shared by every command of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	config  Config
	logger  *slog.Logger
}

// NewRootCommand builds the tinderctl command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: newViper()}

	root := &cobra.Command{
		Use:           tinderctl,
		Short:         "A command line client for the Tinder API",
		Long:          "tinderctl calls the Tinder API through a retrying, circuit-breaking client and prints the JSON responses.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "Config file (default is $HOME/.tinderctl.yaml)")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("token", "", "Session token from a previous auth")
	flags.String("base-url", tinder.DefaultBaseURL, "API base URL")

	_ = a.v.BindPFlag("debug", flags.Lookup("debug"))
	_ = a.v.BindPFlag("token", flags.Lookup("token"))
	_ = a.v.BindPFlag("request.base_url", flags.Lookup("base-url"))

	root.AddCommand(
		a.authCmd(),
		a.recsCmd(),
		a.accountCmd(),
		a.userCmd(),
		a.updatesCmd(),
		a.messageCmd(),
		a.likeCmd(),
		a.passCmd(),
		a.pollCmd(),
		versionCmd(),
	)

	return root
}

// Execute runs tinderctl with the process arguments.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) init(logOut io.Writer) error {
	_ = godotenv.Load()

	if a.cfgFile == "" {
		if env := os.Getenv(envPrefix + "_CONFIG"); env != "" {
			a.v.SetConfigFile(env)
		} else if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
			a.v.SetConfigType("yaml")
			a.v.SetConfigName("." + tinderctl)
		}
	} else {
		a.v.SetConfigFile(a.cfgFile)
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := loadConfig(a.v)
	if err != nil {
		return err
	}
	a.config = cfg

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	a.logger = slog.New(tint.NewHandler(logOut, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))

	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("using config file", "path", used)
	}

	return nil
}

// client builds a Client from the loaded configuration.
func (a *app) client(extra ...tinder.Option) *tinder.Client {
	opts := append(a.config.ClientOptions(), tinder.WithLogger(a.logger))
	return tinder.New(append(opts, extra...)...)
}
