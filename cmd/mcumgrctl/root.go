package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moffa90/go-mcumgr/client"
	"github.com/moffa90/go-mcumgr/logging"
	"github.com/moffa90/go-mcumgr/protocol"
	"github.com/moffa90/go-mcumgr/transport"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mcumgrctl",
	Short: "Manage MCUmgr devices over a serial port",
	Long: `mcumgrctl talks to Zephyr/MCUboot devices using the SMP protocol over
a serial console.

Examples:
  mcumgrctl --port /dev/ttyACM0 echo hello
  mcumgrctl --port /dev/ttyACM0 image list
  mcumgrctl --port /dev/ttyACM0 firmware-update zephyr.signed.bin
  mcumgrctl --port /dev/ttyACM0 fs download /lfs/log.txt log.txt

Settings can also come from mcumgrctl.yaml or MCUMGR_* environment
variables, e.g. MCUMGR_PORT=/dev/ttyACM0.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./mcumgrctl.yaml)")
	pf.StringP("port", "p", "", "serial port, e.g. /dev/ttyACM0 or COM3")
	pf.IntP("baud", "b", 115200, "baud rate")
	pf.Duration("timeout", 5*time.Second, "response timeout")
	pf.Int("frame-size", 0, "maximum SMP frame size for transfers (0 queries the device)")
	pf.Int("line-length", transport.DefaultLineLength, "maximum base64 characters per serial line")
	pf.Int("smp-version", 2, "SMP protocol version for requests (1 or 2)")
	pf.String("log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringP("output", "o", "text", "output format (text, json, yaml)")

	for _, name := range []string{
		"port", "baud", "timeout", "frame-size", "line-length",
		"smp-version", "log-level", "output",
	} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}

	rootCmd.AddCommand(
		newEchoCmd(),
		newTaskStatCmd(),
		newParamsCmd(),
		newInfoCmd(),
		newBootloaderCmd(),
		newResetCmd(),
		newDateTimeCmd(),
		newShellCmd(),
		newFSCmd(),
		newImageCmd(),
		newFirmwareUpdateCmd(),
		newRawCmd(),
	)
}

// initConfig reads the config file and environment.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.config/mcumgr")
		}
		viper.SetConfigName("mcumgrctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MCUMGR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: failed to read config: %v\n", err)
		}
	}
}

// newLogger builds the console logger for library log output.
func newLogger() (*logging.Zap, error) {
	return logging.NewConsole(os.Stderr, viper.GetString("log-level"))
}

// connect opens the configured serial port and returns a client for it.
func connect() (*client.Client, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	port := viper.GetString("port")
	if port == "" {
		return nil, fmt.Errorf("no serial port given; use --port or MCUMGR_PORT")
	}

	var version protocol.Version
	switch v := viper.GetInt("smp-version"); v {
	case 1:
		version = protocol.VersionV1
	case 2:
		version = protocol.VersionV2
	default:
		return nil, fmt.Errorf("unsupported SMP version %d", v)
	}

	t, err := transport.OpenSerial(transport.SerialConfig{
		Port:        port,
		BaudRate:    viper.GetInt("baud"),
		ReadTimeout: viper.GetDuration("timeout"),
		LineLength:  viper.GetInt("line-length"),
	})
	if err != nil {
		return nil, err
	}

	opts := []client.Option{
		client.WithLogger(logger),
		client.WithProtocolVersion(version),
	}
	if size := viper.GetInt("frame-size"); size > 0 {
		opts = append(opts, client.WithMaxFrameSize(size))
	} else {
		opts = append(opts, client.WithAutoFrameSize(true))
	}

	logger.Debug("connected", "port", port, "baud", viper.GetInt("baud"))
	return client.New(t, opts...), nil
}

// withClient runs fn with a connected client and closes it afterwards.
func withClient(fn func(c *client.Client) error) error {
	c, err := connect()
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}
