// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package langpacks drives the langpack-o-matic build machinery on
// the local machine: its apt dependencies, the upstream checkout, the
// build user's crontab and GnuPG keyring, and the language pack
// builds and uploads themselves.
//
// All workload commands run as the build user. Hooks run as root and
// reach the build user through sudo; the unattended build command
// already runs as the build user and executes commands directly.
package langpacks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/utils/v4"
	"github.com/juju/utils/v4/exec"
	"github.com/juju/utils/v4/symlink"
	"github.com/kballard/go-shellquote"
)

var logger = loggo.GetLogger("langpacks.workload")

const (
	// checkoutURL is the upstream langpack-o-matic repository.
	checkoutURL = "https://git.launchpad.net/langpack-o-matic"

	// translationsURL locates the translation export for a series;
	// the verb is "full" for a base pack and "delta" for an update
	// pack.
	translationsURL = "https://translations.launchpad.net/ubuntu/%s/+latest-%s-language-pack"
)

// buildPackages are the apt packages langpack-o-matic needs to build
// and upload language packs.
var buildPackages = []string{
	"build-essential",
	"libgettextpo-dev",
	"debhelper",
	"fakeroot",
	"python3-launchpadlib",
	"python3-apt",
	"dput",
	"git",
	"devscripts",
	"lintian",
}

// This is the default apt-get command used in cloud-init, the various
// settings mean that apt won't actually block waiting for a prompt
// from the user.
var aptGetCommand = []string{
	"apt-get", "--option=Dpkg::Options::=--force-confold",
	"--option=Dpkg::options::=--force-unsafe-io", "--assume-yes", "--quiet",
}

// aptGetEnvOptions are options we need to pass to apt-get to not have
// it prompt the user.
var aptGetEnvOptions = []string{"DEBIAN_FRONTEND=noninteractive"}

// SeriesSource resolves which Ubuntu series language packs can be
// built for.
type SeriesSource interface {
	// ActiveSeries returns the names of the series currently
	// accepting uploads.
	ActiveSeries(ctx context.Context) ([]string, error)

	// DevelopmentSeries returns the name of the series under
	// active development.
	DevelopmentSeries(ctx context.Context) (string, error)
}

// Config holds everything a Service needs to drive the build
// machinery.
type Config struct {
	// Runner executes workload commands on the host.
	Runner CommandRunner

	// Series resolves Ubuntu series names.
	Series SeriesSource

	// Paths locates the workload on the host.
	Paths Paths

	// Sudo wraps workload commands with sudo so they run as the
	// build user. Leave it unset when the current user already is
	// the build user.
	Sudo bool
}

// Validate returns an error if the config is not usable.
func (c Config) Validate() error {
	if c.Runner == nil {
		return errors.NotValidf("nil Runner")
	}
	if c.Series == nil {
		return errors.NotValidf("nil Series")
	}
	if c.Paths.User == "" || c.Paths.Home == "" || c.Paths.BinDir == "" {
		return errors.NotValidf("incomplete Paths")
	}
	return nil
}

// Service drives the langpack build machinery.
type Service struct {
	runner CommandRunner
	series SeriesSource
	paths  Paths
	sudo   bool
}

// NewService returns a Service using the supplied configuration.
func NewService(config Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Service{
		runner: config.Runner,
		series: config.Series,
		paths:  config.Paths,
		sudo:   config.Sudo,
	}, nil
}

// InstallPackages refreshes the apt index and installs the build
// dependencies. It must run as root.
func (s *Service) InstallPackages(ctx context.Context) error {
	update := append([]string(nil), aptGetCommand...)
	update = append(update, "update")
	if err := s.runApt(ctx, update); err != nil {
		return errors.Annotate(err, "refreshing apt index")
	}
	install := append([]string(nil), aptGetCommand...)
	install = append(install, "install")
	install = append(install, buildPackages...)
	if err := s.runApt(ctx, install); err != nil {
		return errors.Annotate(err, "installing build packages")
	}
	return nil
}

func (s *Service) runApt(ctx context.Context, args []string) error {
	command := shellquote.Join(args...)
	logger.Infof("running: %s", command)
	resp, err := s.run(ctx, exec.RunParams{
		Commands:    command,
		Environment: append(os.Environ(), aptGetEnvOptions...),
	})
	if err != nil {
		return errors.Trace(err)
	}
	if resp.Code != 0 {
		return errors.Errorf("%s", exitMessage(resp))
	}
	return nil
}

// CloneCheckout clones langpack-o-matic into the build user's home
// directory. An existing checkout is refreshed instead.
func (s *Service) CloneCheckout(ctx context.Context) error {
	if _, err := os.Stat(s.paths.CheckoutDir()); err == nil {
		logger.Infof("checkout %s already present, refreshing", s.paths.CheckoutDir())
		return s.UpdateCheckout(ctx)
	}
	command := s.userCommand("git", "clone", "-b", "master", checkoutURL, s.paths.CheckoutDir())
	if err := s.runOK(ctx, command); err != nil {
		return errors.Annotate(err, "cloning langpack-o-matic")
	}
	return nil
}

// UpdateCheckout pulls the latest langpack-o-matic and rebuilds its
// helper tools.
func (s *Service) UpdateCheckout(ctx context.Context) error {
	pull := s.userCommand("git", "-C", s.paths.CheckoutDir(), "pull")
	if err := s.runOK(ctx, pull); err != nil {
		return errors.Annotate(err, "updating langpack-o-matic")
	}
	build := s.userCommand("make", "-C", filepath.Join(s.paths.CheckoutDir(), "bin"))
	if err := s.runOK(ctx, build); err != nil {
		return errors.Annotate(err, "building langpack-o-matic tools")
	}
	return nil
}

// InstallBuildCommand links the given executable into place as the
// unattended build command invoked from cron.
func (s *Service) InstallBuildCommand(executable string) error {
	link := s.paths.BuildCommandPath()

	if stat, err := os.Lstat(link); err == nil {
		if stat.Mode()&os.ModeSymlink == 0 {
			return errors.Errorf("%q exists and is not a symlink", link)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return errors.Annotatef(err, "cannot check if %q is a symlink", link)
	}

	currentTarget, err := symlink.Read(link)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Trace(err)
	} else if err == nil {
		// Link already in place - check it.
		if currentTarget == executable {
			return nil
		}
		// Link points to the wrong place - delete it.
		if err := os.Remove(link); err != nil {
			return errors.Trace(err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(link), os.FileMode(0755)); err != nil {
		return errors.Trace(err)
	}
	return symlink.New(executable, link)
}

// RemoveBuildCommand removes the unattended build command link.
func (s *Service) RemoveBuildCommand() error {
	err := os.Remove(s.paths.BuildCommandPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Trace(err)
	}
	return nil
}

// InstallSchedule renders the build user's crontab so that update
// builds run unattended on the given schedule. The schedule must
// already be validated.
func (s *Service) InstallSchedule(schedule string) error {
	rendered := fmt.Sprintf(
		"# Installed by the ubuntu-langpacks charm; edits will be overwritten.\n%s %s >>%s 2>&1\n",
		schedule, s.paths.BuildCommandPath(), s.paths.BuildLogPath(),
	)
	staging := s.paths.CrontabPath()
	if err := utils.AtomicWriteFile(staging, []byte(rendered), 0644); err != nil {
		return errors.Annotate(err, "writing crontab")
	}
	command := shellquote.Join("crontab", staging)
	if s.sudo {
		command = shellquote.Join("su", "-c", command, s.paths.User)
	}
	if err := s.runQuickOK(command); err != nil {
		return errors.Annotate(err, "installing crontab")
	}
	logger.Infof("unattended builds scheduled: %s", schedule)
	return nil
}

// RemoveSchedule removes the build user's crontab, disabling
// unattended builds. Removing an absent crontab is not an error.
func (s *Service) RemoveSchedule() error {
	command := "crontab -r"
	if s.sudo {
		command = shellquote.Join("su", "-c", command, s.paths.User)
	}
	resp, err := s.runner.RunCommands(exec.RunParams{Commands: command})
	if err != nil {
		return errors.Trace(err)
	}
	if resp.Code != 0 {
		if strings.Contains(string(resp.Stderr), "no crontab") {
			return nil
		}
		return errors.Annotatef(errors.Errorf("%s", exitMessage(resp)), "removing crontab")
	}
	logger.Infof("unattended builds disabled")
	return nil
}

// BuildResult reports a completed build attempt.
type BuildResult struct {
	// Series is the Ubuntu series the packs were built for, after
	// resolving the "devel" alias.
	Series string

	// Output holds the captured output of the import tool.
	Output *exec.ExecResponse
}

// Build downloads the translation export for the given release and
// feeds it to the langpack-o-matic import tool. A base build starts
// from the full export and clears the cached source trees first; an
// update build applies the latest delta on top of the previous base.
//
// The release "devel" is resolved to the current development series,
// and any other value must name an active Ubuntu series. When the
// import tool itself fails the returned error satisfies
// ErrBuildFailed and the result still carries the tool's output.
func (s *Service) Build(ctx context.Context, release string, base bool) (*BuildResult, error) {
	series, err := s.resolveSeries(ctx, release)
	if err != nil {
		return nil, errors.Trace(err)
	}
	releaseDir := s.paths.ReleaseDir(series)
	if err := s.runOK(ctx, s.userCommand("mkdir", "-p", releaseDir)); err != nil {
		return nil, errors.Annotate(err, "creating release directory")
	}

	variant := "delta"
	options := []string{"-v", "--update", "--treshold=10"}
	if base {
		variant = "full"
		options = []string{"-v", "--treshold=10"}
		s.cleanBuildTrees(releaseDir)
	}
	tarball := s.paths.TarballPath(series, base)
	url := fmt.Sprintf(translationsURL, series, variant)
	logger.Infof("building %s language packs for %s", variant, series)

	if err := s.runOK(ctx, s.userCommand("wget", "--no-check-certificate", "-q", "-O", tarball, url)); err != nil {
		return nil, errors.Annotatef(err, "downloading %s", url)
	}

	args := append([]string{filepath.Join(s.paths.CheckoutDir(), "import")}, options...)
	args = append(args, tarball, series, releaseDir)
	resp, err := s.run(ctx, exec.RunParams{Commands: s.userCommand(args...)})
	if err != nil {
		return nil, errors.Trace(err)
	}
	result := &BuildResult{Series: series, Output: resp}
	if resp.Code != 0 {
		return result, errors.Annotatef(ErrBuildFailed, "%s", exitMessage(resp))
	}
	logger.Infof("built %s language packs for %s", variant, series)
	return result, nil
}

// Upload hands the built packages to langpack-o-matic's upload tool,
// which signs them with the installed key and puts them on the build
// queue. When the tool fails the returned error satisfies
// ErrUploadFailed and the response still carries the tool's output.
func (s *Service) Upload(ctx context.Context) (*exec.ExecResponse, error) {
	command := s.userCommand(filepath.Join(s.paths.CheckoutDir(), "packages"), "upload")
	resp, err := s.run(ctx, exec.RunParams{
		Commands:   command,
		WorkingDir: s.paths.CheckoutDir(),
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if resp.Code != 0 {
		return resp, errors.Annotatef(ErrUploadFailed, "%s", exitMessage(resp))
	}
	logger.Infof("uploaded language packs")
	return resp, nil
}

// resolveSeries maps a requested release to an active Ubuntu series
// name.
func (s *Service) resolveSeries(ctx context.Context, release string) (string, error) {
	release = strings.ToLower(strings.TrimSpace(release))
	if release == "" {
		return "", errors.NewNotValid(nil, "empty release")
	}
	active, err := s.series.ActiveSeries(ctx)
	if err != nil {
		return "", errors.Annotate(err, "querying active series")
	}
	if release == "devel" {
		devel, err := s.series.DevelopmentSeries(ctx)
		if err != nil {
			return "", errors.Annotate(err, "querying development series")
		}
		release = devel
	}
	if !set.NewStrings(active...).Contains(release) {
		return "", errors.NewNotValid(nil, fmt.Sprintf("release %q is not an active Ubuntu series", release))
	}
	return release, nil
}

// cleanBuildTrees removes the cached source trees so a base build
// starts from scratch.
func (s *Service) cleanBuildTrees(releaseDir string) {
	for _, dir := range []string{
		filepath.Join(releaseDir, "sources-base"),
		filepath.Join(releaseDir, "sources-update"),
	} {
		if err := os.RemoveAll(dir); err != nil {
			logger.Errorf("cannot remove cached sources %s: %v", dir, err)
		}
	}
}

// userCommand quotes args into a single command line, running it as
// the build user when commands are issued as root.
func (s *Service) userCommand(args ...string) string {
	if s.sudo {
		args = append([]string{"sudo", "-u", s.paths.User}, args...)
	}
	return shellquote.Join(args...)
}

// run executes a command through the runner, killing it if ctx is
// cancelled.
func (s *Service) run(ctx context.Context, params exec.RunParams) (*exec.ExecResponse, error) {
	resp, err := s.runner.RunCommandsWithCancel(params, ctx.Done())
	if errors.Is(err, exec.ErrCancelled) {
		return nil, errors.Trace(ErrAborted)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	return resp, nil
}

// runOK runs a command and treats a non-zero exit as an error carrying
// the command's stderr.
func (s *Service) runOK(ctx context.Context, commands string) error {
	resp, err := s.run(ctx, exec.RunParams{Commands: commands})
	if err != nil {
		return errors.Trace(err)
	}
	if resp.Code != 0 {
		return errors.Errorf("%s", exitMessage(resp))
	}
	return nil
}

// runQuickOK runs a command that completes promptly and is not worth
// interrupting.
func (s *Service) runQuickOK(commands string) error {
	resp, err := s.runner.RunCommands(exec.RunParams{Commands: commands})
	if err != nil {
		return errors.Trace(err)
	}
	if resp.Code != 0 {
		return errors.Errorf("%s", exitMessage(resp))
	}
	return nil
}

// exitMessage summarises a failed command for an error message,
// preferring whatever the command printed.
func exitMessage(resp *exec.ExecResponse) string {
	msg := strings.TrimSpace(string(resp.Stderr))
	if msg == "" {
		msg = strings.TrimSpace(string(resp.Stdout))
	}
	if msg == "" {
		msg = fmt.Sprintf("exit status %d", resp.Code)
	}
	return msg
}
