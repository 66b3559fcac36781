package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/crateaudit/pkg/cargo"
	"github.com/matzehuels/crateaudit/pkg/errors"
	"github.com/matzehuels/crateaudit/pkg/extract"
	"github.com/matzehuels/crateaudit/pkg/fedora"
	"github.com/matzehuels/crateaudit/pkg/report"
	"github.com/matzehuels/crateaudit/pkg/specfile"
)

// checkOpts holds the command-line flags for the check command.
type checkOpts struct {
	sourceDir  string   // pre-extracted source tree (skips extraction)
	format     string   // report format: text or json
	allDeps    bool     // audit the full lockfile, transitive deps included
	allCrates  bool     // scan every Cargo.toml, with source tracking
	updateSpec string   // spec file to patch, empty to skip
	draft      bool     // preview spec changes without writing
	noCleanup  bool     // keep the temporary extraction directory
	cacheFile  string   // verdict cache override
	timeout    int      // per-query timeout in seconds
	firstParty []string // first-party crate names override
	dnf        string   // query tool binary override
}

// checkCommand creates the check command, the main audit entry point.
func (c *CLI) checkCommand() *cobra.Command {
	opts := checkOpts{format: "text", timeout: int(fedora.DefaultTimeout.Seconds())}

	cmd := &cobra.Command{
		Use:   "check [tarball]",
		Short: "Check crate dependencies against Fedora repositories",
		Long: `Check whether the Rust crate dependencies of a source tarball (or an
already extracted source directory) exist as Fedora packages.

Examples:
  crateaudit check goose-1.13.1.tar.zst
  crateaudit check --all-crates goose-1.13.1.tar.zst
  crateaudit check --source-dir ./goose-1.13.1
  crateaudit check --all-crates --format json goose-1.13.1.tar.zst
  crateaudit check --update-spec packaging/goose.spec --draft goose.tar.zst`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tarball := ""
			if len(args) == 1 {
				tarball = args[0]
			}
			return c.runCheck(cmd.Context(), cmd, tarball, opts)
		},
	}

	cmd.Flags().StringVar(&opts.sourceDir, "source-dir", "", "already extracted source directory (skip extraction)")
	cmd.Flags().StringVar(&opts.format, "format", opts.format, "output format: text or json")
	cmd.Flags().BoolVar(&opts.allDeps, "all-deps", false, "check all dependencies from Cargo.lock, transitive included")
	cmd.Flags().BoolVar(&opts.allCrates, "all-crates", false, "scan all Cargo.toml files in the project")
	cmd.Flags().StringVar(&opts.updateSpec, "update-spec", "", "spec file to update with BuildRequires and Provides")
	cmd.Flags().BoolVar(&opts.draft, "draft", false, "show spec changes without modifying the file")
	cmd.Flags().BoolVar(&opts.noCleanup, "no-cleanup", false, "keep the temporary extraction directory")
	cmd.Flags().StringVar(&opts.cacheFile, "cache-file", "", "path to verdict cache file")
	cmd.Flags().IntVar(&opts.timeout, "timeout", opts.timeout, "per-query timeout in seconds")
	cmd.Flags().StringSliceVar(&opts.firstParty, "first-party", nil, "crate names that are part of this project (never bundled)")
	cmd.Flags().StringVar(&opts.dnf, "dnf", "", "repository query tool binary")

	return cmd
}

func (c *CLI) runCheck(ctx context.Context, cmd *cobra.Command, tarball string, opts checkOpts) error {
	cfg, err := loadConfig(".")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "load %s", configFileName)
	}
	applyConfig(&opts, cfg, cmd)

	if tarball == "" && opts.sourceDir == "" {
		return errors.New(errors.ErrCodeInvalidInput, "either a tarball or --source-dir must be provided")
	}

	srcDir, err := c.acquireSource(ctx, tarball, opts)
	if err != nil {
		return err
	}
	if srcDir.cleanup != nil {
		defer srcDir.cleanup()
	}

	set, depType, err := c.parseDependencies(srcDir.path, opts)
	if err != nil {
		return err
	}

	cachePath, err := cacheFilePath(opts.cacheFile)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "resolve cache file")
	}
	store := fedora.NewStore(cachePath, 0)
	checker := fedora.NewChecker(store, time.Duration(opts.timeout)*time.Second, opts.dnf)

	verdicts, err := c.checkAll(ctx, checker, set, cachePath)
	if err != nil {
		return err
	}

	if err := store.Flush(); err != nil {
		c.Logger.Warnf("Could not save cache: %v", err)
	}

	rep := report.Build(set, verdicts, depType)
	switch opts.format {
	case "json":
		if err := rep.WriteJSON(os.Stdout); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "write report")
		}
	case "text":
		rep.WriteText(os.Stdout)
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown format: %s (expected text or json)", opts.format)
	}

	if opts.updateSpec != "" {
		return c.updateSpec(srcDir.path, set, verdicts, opts)
	}
	return nil
}

// applyConfig fills flag defaults from the project config. Flags the user
// set explicitly always win.
func applyConfig(opts *checkOpts, cfg config, cmd *cobra.Command) {
	if opts.cacheFile == "" {
		opts.cacheFile = cfg.CacheFile
	}
	if opts.dnf == "" {
		opts.dnf = cfg.DNF
	}
	if len(opts.firstParty) == 0 {
		opts.firstParty = cfg.FirstParty
	}
	if cfg.TimeoutSeconds > 0 && !cmd.Flags().Changed("timeout") {
		opts.timeout = cfg.TimeoutSeconds
	}
}

// source is an acquired source tree; cleanup is nil when the tree is not
// owned by this run.
type source struct {
	path    string
	cleanup func()
}

func (c *CLI) acquireSource(ctx context.Context, tarball string, opts checkOpts) (source, error) {
	if opts.sourceDir != "" {
		if _, err := os.Stat(opts.sourceDir); err != nil {
			return source{}, errors.New(errors.ErrCodeInvalidInput, "source directory not found: %s", opts.sourceDir)
		}
		c.Logger.Infof("Using source directory: %s", opts.sourceDir)
		return source{path: opts.sourceDir}, nil
	}

	if _, err := os.Stat(tarball); err != nil {
		return source{}, errors.New(errors.ErrCodeInvalidInput, "tarball not found: %s", tarball)
	}

	c.Logger.Infof("Extracting %s", tarball)
	dir, cleanup, err := extract.Archive(ctx, tarball)
	if err != nil {
		return source{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "extract %s", tarball)
	}
	if opts.noCleanup {
		c.Logger.Debugf("Keeping extraction directory: %s", dir)
		cleanup = nil
	}
	c.Logger.Infof("Extracted to %s", dir)
	return source{path: dir, cleanup: cleanup}, nil
}

func (c *CLI) parseDependencies(srcDir string, opts checkOpts) (cargo.DependencySet, string, error) {
	project := cargo.NewProject(srcDir)

	locked, err := cargo.ParseLockfile(project.LockfilePath())
	if err != nil {
		if os.IsNotExist(err) {
			c.Logger.Warnf("%s not found", project.LockfilePath())
		} else {
			return cargo.DependencySet{}, "", errors.Wrap(errors.ErrCodeInternal, err, "parse Cargo.lock")
		}
	}

	var (
		set     cargo.DependencySet
		depType string
	)
	switch {
	case opts.allCrates:
		set, err = project.AllCrates(locked)
		depType = "direct (from all crates)"
		if err == nil {
			manifests, _ := project.DiscoverManifests()
			c.Logger.Infof("Found %d Cargo.toml files", len(manifests))
		}
	case opts.allDeps:
		set = cargo.Locked(locked)
		depType = "total"
	default:
		set, err = project.Direct(locked)
		depType = "direct (root only)"
	}
	if err != nil {
		return cargo.DependencySet{}, "", errors.Wrap(errors.ErrCodeInternal, err, "parse Cargo files")
	}

	if set.Len() == 0 {
		return cargo.DependencySet{}, "", errors.New(errors.ErrCodeNoDependencies, "no dependencies found")
	}
	c.Logger.Infof("Found %d %s dependencies", set.Len(), depType)
	return set, depType, nil
}

// checkAll queries every dependency sequentially in sorted order,
// reporting progress as each completes. The oracle is a local process
// invocation, so there is nothing to gain from concurrent queries.
func (c *CLI) checkAll(ctx context.Context, checker *fedora.Checker, set cargo.DependencySet, cachePath string) (map[string]fedora.Verdict, error) {
	c.Logger.Infof("Checking dependencies in Fedora repositories (cache: %s)", cachePath)

	showProgress := c.Logger.GetLevel() <= LogInfo
	names := set.Names()
	verdicts := make(map[string]fedora.Verdict, len(names))

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		v := checker.Check(ctx, name)
		verdicts[name] = v

		if showProgress {
			detail := "MISSING"
			if v.Exists && len(v.Packages) > 0 {
				detail = v.Packages[0]
			}
			printProgress(i+1, len(names), name, v.Exists, detail)
		}
	}

	return verdicts, nil
}

func (c *CLI) updateSpec(srcDir string, set cargo.DependencySet, verdicts map[string]fedora.Verdict, opts checkOpts) error {
	firstParty := opts.firstParty
	if len(firstParty) == 0 {
		// Default to the workspace's own crate names: they are built and
		// linked together, not bundled third-party code.
		names, err := cargo.NewProject(srcDir).FirstParty()
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "collect first-party crates")
		}
		firstParty = names
		c.Logger.Debugf("First-party crates: %v", firstParty)
	}

	updater, err := specfile.NewUpdater(opts.updateSpec, firstParty)
	if err != nil {
		return err
	}

	var preview string
	if opts.draft {
		preview, err = updater.Preview(set, verdicts)
	} else {
		preview, err = updater.Apply(set, verdicts)
	}
	if err != nil {
		return err
	}

	fmt.Println(preview)
	if opts.draft {
		printInfo("Draft mode - no changes made. Remove --draft to apply changes.")
	} else {
		printSuccess("Spec file updated: %s", opts.updateSpec)
	}
	return nil
}
