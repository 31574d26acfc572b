// Package pipeline drives a single install through its stages:
//
//	Start → PlatformDetected → Resolved → Fetched → Verified → Installed → Tested → Done
//
// Each stage gates the next. The first failure ends the run with an *Error
// naming the stage that could not be reached; nothing is retried at this
// level. A fetched artifact that fails verification is dropped before
// anything touches the install directory.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZebulonRouseFrantzich/binstall/internal/archive"
	"github.com/ZebulonRouseFrantzich/binstall/internal/catalog"
	"github.com/ZebulonRouseFrantzich/binstall/internal/fetch"
	"github.com/ZebulonRouseFrantzich/binstall/internal/install"
	"github.com/ZebulonRouseFrantzich/binstall/internal/integrity"
	"github.com/ZebulonRouseFrantzich/binstall/internal/logger"
	"github.com/ZebulonRouseFrantzich/binstall/internal/resolver"
	"github.com/ZebulonRouseFrantzich/binstall/internal/smoke"
)

// Config wires the collaborators of a pipeline.
type Config struct {
	Resolver  *resolver.Resolver
	Fetcher   fetch.Fetcher
	Installer *install.Installer
	Tester    *smoke.Tester

	// StateDir receives install receipts. Empty disables receipts.
	StateDir  string
	SkipSmoke bool
	Observer  Observer
}

// Pipeline runs installs. It holds no per-run state and may be shared by
// concurrent runs for different packages.
type Pipeline struct {
	resolver  *resolver.Resolver
	fetcher   fetch.Fetcher
	installer *install.Installer
	tester    *smoke.Tester
	stateDir  string
	skipSmoke bool
	observer  Observer
}

// Result describes a run that reached Done.
type Result struct {
	Resolution *resolver.Resolution
	Installed  *install.InstalledBinary
	Smoke      *smoke.Result
	Receipt    *install.Receipt
	Stages     []Stage
	Warnings   []string
}

// New creates a pipeline.
func New(config Config) (*Pipeline, error) {
	if config.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if config.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if config.Installer == nil {
		return nil, errors.New("installer is required")
	}
	if config.Tester == nil {
		config.Tester = smoke.NewTester(0)
	}

	return &Pipeline{
		resolver:  config.Resolver,
		fetcher:   config.Fetcher,
		installer: config.Installer,
		tester:    config.Tester,
		stateDir:  config.StateDir,
		skipSmoke: config.SkipSmoke,
		observer:  config.Observer,
	}, nil
}

// run carries the state of one invocation.
type run struct {
	p      *Pipeline
	result *Result
}

func (r *run) reached(ctx context.Context, stage Stage, detail string, kvs ...any) {
	r.result.Stages = append(r.result.Stages, stage)
	logger.InfoKV(ctx, "stage reached", append([]any{"stage", stage.String()}, kvs...)...)
	if r.p.observer != nil {
		r.p.observer(Event{Stage: stage, Detail: detail})
	}
}

func (r *run) skipped(ctx context.Context, stage Stage, detail string) {
	r.result.Stages = append(r.result.Stages, stage)
	logger.InfoKV(ctx, "stage skipped", "stage", stage.String(), "reason", detail)
	if r.p.observer != nil {
		r.p.observer(Event{Stage: stage, Detail: detail, Skipped: true})
	}
}

func (r *run) fail(ctx context.Context, stage Stage, err error) error {
	logger.ErrorKV(ctx, "stage failed", "stage", stage.String(), "error", err)
	if r.p.observer != nil {
		r.p.observer(Event{Stage: stage, Err: err})
	}
	return &Error{Stage: stage, Err: err}
}

func (r *run) warn(ctx context.Context, msg string, kvs ...any) {
	r.result.Warnings = append(r.result.Warnings, msg)
	logger.WarnKV(ctx, msg, kvs...)
}

// Run installs version of pkg for the detected platform.
func (p *Pipeline) Run(ctx context.Context, pkg, version string) (*Result, error) {
	ctx = logger.WithKV(ctx, "package", pkg, "version", version)
	r := &run{p: p, result: &Result{}}
	r.reached(ctx, StageStart, fmt.Sprintf("%s %s", pkg, version))

	info, err := p.resolver.Detect(ctx)
	if err != nil {
		return nil, r.fail(ctx, StagePlatformDetected, err)
	}
	r.reached(ctx, StagePlatformDetected, info.Pair().String(), "platform", info.Pair().String())

	res, err := p.resolver.Lookup(ctx, info, pkg, version)
	if err != nil {
		return nil, r.fail(ctx, StageResolved, err)
	}
	r.result.Resolution = res
	entry := res.Entry
	r.reached(ctx, StageResolved, entry.URL, "url", entry.URL)

	artifact, err := p.fetcher.Fetch(ctx, entry.URL)
	if err != nil {
		return nil, r.fail(ctx, StageFetched, err)
	}
	r.reached(ctx, StageFetched, fmt.Sprintf("%d bytes", len(artifact.Data)), "bytes", len(artifact.Data))

	if err := p.verify(ctx, res, artifact); err != nil {
		// the artifact is never installed or cached once it fails verification
		artifact.Data = nil
		return nil, r.fail(ctx, StageVerified, err)
	}
	r.reached(ctx, StageVerified, entry.Digest.String(), "digest", entry.Digest.String())

	payload, err := archive.Extract(artifact.Data, entry.Format, res.Package.Binary, entry.BinaryPath)
	artifact.Data = nil
	if err != nil {
		return nil, r.fail(ctx, StageInstalled, &install.Error{Op: "extract", Path: entry.URL, Err: err})
	}

	installed, err := p.installer.Install(ctx, payload, res.Package.Binary)
	if err != nil {
		return nil, r.fail(ctx, StageInstalled, err)
	}
	r.result.Installed = installed
	r.reached(ctx, StageInstalled, installed.Path, "path", installed.Path)

	if p.skipSmoke {
		r.skipped(ctx, StageTested, "smoke test disabled")
	} else {
		sr, err := p.tester.SelfTest(ctx, installed.Path, res.Package.VersionFlag)
		if err != nil {
			return nil, r.fail(ctx, StageTested, err)
		}
		r.result.Smoke = sr
		if !sr.Reports(entry.Version) {
			r.warn(ctx, fmt.Sprintf("%s %s output does not mention version %s", installed.Path, sr.Flag, entry.Version),
				"path", installed.Path, "output", sr.Output)
		}
		r.reached(ctx, StageTested, sr.Flag, "flag", sr.Flag)
	}

	if p.stateDir != "" {
		receipt := install.NewReceipt(entry.Package, entry.Version, entry.Platform.String(),
			entry.Digest.String(), entry.URL, installed.Path)
		receipt.SmokeTested = r.result.Smoke != nil
		if err := install.WriteReceipt(p.stateDir, receipt); err != nil {
			r.warn(ctx, fmt.Sprintf("write install receipt: %v", err), "state_dir", p.stateDir)
		} else {
			r.result.Receipt = receipt
		}
	}

	r.reached(ctx, StageDone, installed.Path)
	return r.result, nil
}

// verify checks the digest and, when the entry is signed, the detached
// signature. The digest is always checked first.
func (p *Pipeline) verify(ctx context.Context, res *resolver.Resolution, artifact *fetch.Artifact) error {
	entry := res.Entry

	if err := integrity.Verify(artifact.Data, entry.Digest); err != nil {
		return err
	}

	if entry.SignatureURL == "" {
		return nil
	}

	return p.verifySignature(ctx, res.Package, entry, artifact.Data)
}

func (p *Pipeline) verifySignature(ctx context.Context, pkg catalog.Package, entry catalog.Entry, data []byte) error {
	if pkg.SigningKey == "" {
		return &integrity.Error{Err: fmt.Errorf("%s is signed but package %s has no signing key", entry.SignatureURL, pkg.Name)}
	}

	sig, err := p.fetcher.Fetch(ctx, entry.SignatureURL)
	if err != nil {
		return fmt.Errorf("fetch signature: %w", err)
	}

	if err := integrity.VerifySignature(data, sig.Data, pkg.SigningKey); err != nil {
		return err
	}

	logger.DebugKV(ctx, "signature verified", "signature_url", entry.SignatureURL)
	return nil
}
