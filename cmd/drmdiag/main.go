// Command drmdiag diagnoses Linux display bring-up failures by walking the
// kernel's own state: DRM registration, driver binding, device nodes, module
// parameters, connectors and live runtime signals. It renders structured
// evidence and exits 0 when the display prerequisites hold, 2 when a hard
// gate fails.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kiya956/drm-test/internal/config"
	"github.com/kiya956/drm-test/pkg/log"
)

// exitCode is set by the run/watch commands from the report verdict.
var exitCode int

var (
	flagConfigPath string
	flagRemote     string
	flagSSHUser    string
	flagSSHPort    int
	flagSSHKey     string
	flagSSHPass    string

	logOpts = log.NewOptions()
)

var rootCmd *cobra.Command

func main() {
	rootCmd = newRootCmd()
	// bare invocation runs one diagnostic pass
	if len(os.Args) == 1 {
		rootCmd.SetArgs([]string{"run"})
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "drmdiag:", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "drmdiag",
		Short:         "Diagnose Linux DRM/KMS display bring-up failures",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagConfigPath, "config", "", "Path to the config file (default: search standard locations).")
	pf.StringVar(&flagRemote, "remote", "", "Diagnose a remote host over SSH instead of this machine.")
	pf.StringVar(&flagSSHUser, "ssh-user", "root", "SSH user for --remote.")
	pf.IntVar(&flagSSHPort, "ssh-port", 22, "SSH port for --remote.")
	pf.StringVar(&flagSSHKey, "ssh-key", "", "SSH private key file for --remote.")
	pf.StringVar(&flagSSHPass, "ssh-password", "", "SSH password for --remote (key takes precedence).")
	logOpts.AddFlags(pf)

	root.AddCommand(newRunCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newHistoryCmd())
	return root
}

// loadConfig resolves the configuration and initializes logging from it.
func loadConfig() (*config.Config, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if flagConfigPath != "" {
		cfg, path, err = config.LoadFromPath(flagConfigPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if !logFlagSet("log.level") && cfg.Log.Level != "" {
		logOpts.Level = cfg.Log.Level
	}
	if !logFlagSet("log.format") && cfg.Log.Format != "" {
		logOpts.Format = cfg.Log.Format
	}
	log.Init(logOpts)

	if path != "" {
		log.Debug("loaded config file", "path", path)
	}
	return cfg, nil
}

// logFlagSet reports whether a log flag was given explicitly, in which case
// it wins over the config file.
func logFlagSet(name string) bool {
	if rootCmd == nil {
		return false
	}
	f := rootCmd.PersistentFlags().Lookup(name)
	return f != nil && f.Changed
}
