package main

import (
	"github.com/spf13/cobra"

	"github.com/openforge/reposync/internal/config"
	"github.com/openforge/reposync/internal/utils/system"
)

// buildConfig layers the run configuration: config-file values first, then
// any flag the user actually set, then the positional package arguments.
// The result is immutable for the rest of the run.
func buildConfig(cmd *cobra.Command, flags *syncFlags, args []string) (*config.Config, error) {
	cfg := &config.Config{Repositories: config.DefaultRepositories()}

	if flags.configFile != "" {
		loaded, err := config.LoadFile(flags.configFile)
		if err != nil {
			return nil, err
		}
		if loaded.Path != "" {
			cfg.Path = loaded.Path
		}
		if loaded.Architecture != "" {
			cfg.Architecture = loaded.Architecture
		}
		if len(loaded.Repositories) > 0 {
			cfg.Repositories = loaded.Repositories
		}
		cfg.Mirrors = loaded.Mirrors
		cfg.Packages = loaded.Packages
		cfg.SkipSignatures = loaded.SkipSignatures
		cfg.SignKey = loaded.SignKey
	}

	if cfg.Path == "" || cmd.Flags().Changed("path") {
		cfg.Path = flags.path
	}
	if flags.arch != "" {
		cfg.Architecture = flags.arch
	}
	// A config-file repository map is authoritative: repos it omits stay
	// disabled instead of picking up flag defaults. Only flags the user
	// actually set override it.
	for repo, flagValue := range map[string]bool{
		"core":      flags.core,
		"extra":     flags.extra,
		"community": flags.community,
		"testing":   flags.testing,
	} {
		if cmd.Flags().Changed(repo) {
			cfg.Repositories[repo] = flagValue
		}
	}
	if cmd.Flags().Changed("skip-sig") {
		cfg.SkipSignatures = flags.skipSig
	}
	if cmd.Flags().Changed("sign-key") {
		cfg.SignKey = flags.signKey
	}

	cfg.Mirrors = append(cfg.Mirrors, flags.mirrors...)
	if flags.mirrorlist != "" {
		mirrors, err := config.ParseMirrorlist(flags.mirrorlist)
		if err != nil {
			return nil, err
		}
		cfg.Mirrors = append(cfg.Mirrors, mirrors...)
	}

	cfg.Packages = append(cfg.Packages, flags.packages...)
	cfg.Packages = append(cfg.Packages, args...)
	if flags.packageFile != "" {
		packages, err := config.ParsePackageList(flags.packageFile)
		if err != nil {
			return nil, err
		}
		cfg.Packages = append(cfg.Packages, packages...)
	}

	if cfg.Architecture == "" {
		arch, err := system.DetectArchitecture()
		if err != nil {
			return nil, err
		}
		cfg.Architecture = arch
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
