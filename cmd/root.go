package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/logger"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/ui"
)

var (
	// cfgFile is the path to the configuration file.
	cfgFile string
	// verbose enables verbose output.
	verbose bool
	// version is the application version.
	version = "1.0.0"
	// closeLog flushes the log file opened in PersistentPreRunE.
	closeLog = func() error { return nil }
)

// annotationOwnsTerminal marks commands whose interactive UI owns the screen,
// so logs must not go to stderr while it runs.
const annotationOwnsTerminal = "ownsTerminal"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "narrativa",
	Short: "Chatbot de narrativas: conversa, sintetiza y refina tu historia.",
	Long: `Chatbot de narrativas.

narrativa guides a participant through a scripted conversation, turns the
answers into candidate narratives in several voices, and lets the participant
refine and save the one that fits best.

Run it as a terminal chat (narrativa chat) or as an HTTP API (narrativa serve).`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		PrintError("Error: "+err.Error(), err)
		os.Exit(1)
	}
}

// GetVersion returns the CLI version.
func GetVersion() string {
	return version
}

func init() {
	cobra.OnInitialize(InitConfig)

	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./.narrativa/.narrativa.yaml, $HOME/.narrativa.yaml or ./.narrativa.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func setupLogging(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	var terminal io.Writer = os.Stderr
	if cmd.Annotations[annotationOwnsTerminal] == "true" && ui.IsInteractive() {
		terminal = nil
	}

	_, closeFn, err := logger.Setup(logger.Options{
		Level:    cfg.Log.Level,
		Verbose:  viper.GetBool("verbose"),
		Terminal: terminal,
		File:     cfg.Log.File,
		Journal:  cfg.Log.Journal,
	})
	if err != nil {
		return err
	}
	closeLog = closeFn

	logger.SetVersion(version)
	logger.SetCommand(cmd.CommandPath())
	logger.SetBasePath(cfg.Store.Path)
	return nil
}
