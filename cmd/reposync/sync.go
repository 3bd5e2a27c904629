package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openforge/reposync/internal/config"
	"github.com/openforge/reposync/internal/mirror"
	"github.com/openforge/reposync/internal/pacman"
	"github.com/openforge/reposync/internal/repodb"
	"github.com/openforge/reposync/internal/resolver"
	"github.com/openforge/reposync/internal/search"
	"github.com/openforge/reposync/internal/utils/logger"
	"github.com/openforge/reposync/internal/utils/network"
)

const downloadTimeout = 15 * time.Minute

// syncFlags collects everything the sync command can override on top of the
// config-file values.
type syncFlags struct {
	configFile  string
	path        string
	arch        string
	packages    []string
	packageFile string
	mirrorlist  string
	mirrors     []string
	core        bool
	extra       bool
	community   bool
	testing     bool
	skipSig     bool
	signKey     string
}

func createSyncCommand() *cobra.Command {
	flags := &syncFlags{}

	syncCmd := &cobra.Command{
		Use:   "sync [packages...]",
		Short: "Resolve, download and index the given packages",
		Long: `Sync resolves each package specification (optionally version-constrained,
e.g. linux>=5.10) against the remote search API with fallbacks through the
local package manager, downloads the artifacts from the configured mirrors
and rebuilds the database of every repository that received new packages.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, flags, args)
			if err != nil {
				return err
			}
			return runSync(cmd, cfg)
		},
	}

	addConfigFlags(syncCmd, flags)
	syncCmd.Flags().StringSliceVar(&flags.packages, "package", nil,
		"Package specification to sync (repeatable, also accepted as positional args)")
	syncCmd.Flags().StringVar(&flags.packageFile, "package-file", "",
		"File with one package specification per line")
	syncCmd.Flags().StringVar(&flags.mirrorlist, "mirrorlist", "",
		"Pacman-style mirrorlist file with Server = <template> lines")
	syncCmd.Flags().StringSliceVar(&flags.mirrors, "mirror", nil,
		"Mirror template with $repo/$arch/$package tokens (repeatable)")
	return syncCmd
}

// addConfigFlags registers the flags shared by sync and setup.
func addConfigFlags(cmd *cobra.Command, flags *syncFlags) {
	cmd.Flags().StringVar(&flags.configFile, "config", "", "YAML config file")
	cmd.Flags().StringVar(&flags.path, "path", "/srv/repo", "Repository tree root")
	cmd.Flags().StringVar(&flags.arch, "arch", "", "Target architecture (default: host architecture)")
	cmd.Flags().BoolVar(&flags.core, "core", true, "Enable the core repository")
	cmd.Flags().BoolVar(&flags.extra, "extra", true, "Enable the extra repository")
	cmd.Flags().BoolVar(&flags.community, "community", true, "Enable the community repository")
	cmd.Flags().BoolVar(&flags.testing, "testing", false, "Enable the testing repository")
	cmd.Flags().BoolVar(&flags.skipSig, "skip-sig", false, "Do not fetch detached signature files")
	cmd.Flags().StringVar(&flags.signKey, "sign-key", "", "Key identifier for signing repository databases")
}

func runSync(cmd *cobra.Command, cfg *config.Config) error {
	log := logger.Logger()

	if len(cfg.Packages) == 0 {
		return fmt.Errorf("no packages given; use positional arguments, --package or --package-file")
	}
	if len(cfg.Mirrors) == 0 {
		return fmt.Errorf("no mirrors configured; use --mirror or --mirrorlist")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := network.NewSecureHTTPClient(downloadTimeout)
	databases := repodb.NewManager(cfg.Architecture, cfg.SignKey)
	downloader := mirror.NewDownloader(client, cfg.Architecture, cfg.SkipSignatures, databases)
	res := resolver.New(cfg, search.NewClient(client, cfg.Architecture), pacman.New(), downloader, databases)

	if err := res.Sync(ctx, cfg.Packages); err != nil {
		return err
	}

	log.Infof("synchronized %d package specification(s) into %s", len(cfg.Packages), cfg.Path)
	return nil
}
