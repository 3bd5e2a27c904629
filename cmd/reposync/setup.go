package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/openforge/reposync/internal/repodb"
	"github.com/openforge/reposync/internal/utils/logger"
)

func createSetupCommand() *cobra.Command {
	flags := &syncFlags{}

	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the repository directory tree and empty databases",
		Long: `Setup scaffolds <path>/<repo>/os/<arch>/ for every enabled repository and
initializes an empty database stub where none exists yet, so the tree can be
served by a mirror before the first sync.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, flags, nil)
			if err != nil {
				return err
			}

			log := logger.Logger()
			databases := repodb.NewManager(cfg.Architecture, cfg.SignKey)

			repos := cfg.EnabledRepositories()
			sort.Strings(repos)
			for _, repo := range repos {
				if err := databases.Initialize(repo, cfg.Path); err != nil {
					return err
				}
			}
			log.Infof("initialized %d repositories under %s", len(repos), cfg.Path)
			return nil
		},
	}

	addConfigFlags(setupCmd, flags)
	return setupCmd
}
