package util

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tkoeppen/taskwire/comm"
	"github.com/tkoeppen/taskwire/rpc"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds common client connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "addr"
	cmd.PersistentFlags().String(key, "tcp://localhost:8787", WrapString("The address of the taskwire server (e.g. tcp://localhost:8787, inproc://...)"))

	key = "connect-timeout"
	cmd.PersistentFlags().Int(key, 3, WrapString("The connect timeout in seconds"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry a request"))

	key = "compression"
	cmd.PersistentFlags().String(key, "lz4", WrapString("Compression applied to large frames (lz4, zstd, snappy, none)"))

	key = "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY for outgoing connections"))

	key = "tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval for outgoing connections (in seconds)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("taskwire")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() rpc.ClientConfig {
	conf := rpc.DefaultClientConfig()
	conf.ConnectTimeout = time.Duration(viper.GetInt("connect-timeout")) * time.Second
	conf.Retries = viper.GetInt("retries")
	conf.Comm.TCP = comm.TCPOptions{
		NoDelay:         viper.GetBool("tcp-nodelay"),
		KeepAlivePeriod: time.Duration(viper.GetInt("tcp-keepalive")) * time.Second,
		Linger:          -1,
	}
	return conf
}

// GetServerAddr retrieves the configured server address
func GetServerAddr() string {
	return viper.GetString("addr")
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
