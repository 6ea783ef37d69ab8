package manager

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"gopkg.in/yaml.v3"

	"reldb/config"
	"reldb/exitcode"
	"reldb/gitrepo"
	"reldb/hub"
	"reldb/release"
	"reldb/storage"
)

// Options carries the per-invocation manage parameters.
type Options struct {
	Create        string
	CreateInitial string
	Delete        string

	Version     string
	Commit      string
	ReleasedAt  string
	ExtendedAt  string
	EolAt       string

	Input      bool
	InputFile  string
	InputStdin bool

	UpdateAttributes bool

	NoQuery       bool
	OutputFormat  string
	OutputPrefix  string
	NoOutputSplit bool
	S3Update      bool
	OutputAll     bool
	InputAll      bool
}

type Manager struct {
	cfg       *config.Config
	log       *slog.Logger
	store     storage.Storage
	artifacts storage.Storage
	hub       *hub.Client
	registry  *release.Registry
	repo      *gitrepo.Repo

	stdin io.Reader
	// Now is the clock; tests override it.
	Now func() time.Time
}

func New(cfg *config.Config, log *slog.Logger) (*Manager, error) {
	store, err := storage.New(cfg.S3Endpoint, cfg.S3Bucket, cfg.S3AccessKey, cfg.S3SecretKey)
	if err != nil {
		return nil, exitcode.Wrap(exitcode.S3, err)
	}
	artifacts, err := storage.New(cfg.S3Endpoint, cfg.ArtifactsBucket, cfg.S3AccessKey, cfg.S3SecretKey)
	if err != nil {
		return nil, exitcode.Wrap(exitcode.S3, err)
	}
	registry, err := release.NewRegistry()
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:       cfg,
		log:       log,
		store:     store,
		artifacts: artifacts,
		hub:       hub.New(cfg.RepoOwner, cfg.RepoName, cfg.GitHubToken),
		registry:  registry,
		stdin:     os.Stdin,
		Now:       time.Now,
	}, nil
}

// Close releases the cached repository clone, if one was acquired.
func (m *Manager) Close() error {
	if m.repo != nil {
		return m.repo.Close()
	}
	return nil
}

// gitRepo lazily clones the source repository; the clone is reused
// for the rest of the invocation.
func (m *Manager) gitRepo(ctx context.Context) (*gitrepo.Repo, error) {
	if m.repo != nil {
		return m.repo, nil
	}
	repo, err := gitrepo.Open(ctx, m.cfg.RepoURL, m.cfg.RepoBranch, m.log)
	if err != nil {
		return nil, exitcode.Wrap(exitcode.Git, err)
	}
	m.repo = repo
	return repo, nil
}

// Run executes one manage invocation: query existing records, apply
// the requested mutation, derive lifecycle dates, validate, report
// the diff, persist.
func (m *Manager) Run(ctx context.Context, opts Options) error {
	if opts.InputAll {
		return m.UploadAll(ctx, opts)
	}
	if opts.OutputAll {
		return m.DownloadAll(ctx, opts)
	}
	if !opts.S3Update {
		m.log.Warn("'--s3-update' was not passed, skipping S3 update")
	}

	sets := make(map[release.Type][]*release.Release)
	var existing []*release.Release
	if !opts.NoQuery {
		var err error
		sets, err = m.queryExisting(opts)
		if err != nil {
			return err
		}
		existing = release.Join(sets)
	}

	if opts.Delete != "" {
		if opts.NoQuery {
			return exitcode.Wrap(exitcode.ParameterMissing, errors.New("'--delete' cannot run with '--no-query'"))
		}
		var err error
		sets, err = release.DeleteByName(opts.Delete, sets)
		if err != nil {
			return exitcode.Wrap(exitcode.Validation, err)
		}
		m.log.Debug("release will be deleted", "name", opts.Delete)
	} else {
		if err := m.applyCreates(ctx, opts, sets); err != nil {
			return err
		}
	}

	release.CascadeEol(sets[release.TypeStable], sets[release.TypePatch], m.log)

	merged := release.Join(sets)
	if opts.UpdateAttributes {
		for _, t := range []release.Type{release.TypePatch, release.TypeNightly, release.TypeDev} {
			release.UpdateSourceRepoAttributes(sets[t])
		}
	}
	for _, r := range merged {
		if err := release.EnsureDates(&r.Lifecycle); err != nil {
			return exitcode.Wrap(exitcode.Validation, fmt.Errorf("release %q: %w", r.Name, err))
		}
	}

	if err := m.registry.ValidateAll(merged); err != nil {
		return exitcode.Wrap(exitcode.Validation, err)
	}

	release.DiffReport(existing, merged, m.log)

	return m.persist(ctx, merged, opts)
}

func (m *Manager) applyCreates(ctx context.Context, opts Options, sets map[release.Type][]*release.Release) error {
	initial := make(map[string]bool)
	if opts.CreateInitial != "" {
		for _, s := range strings.Split(opts.CreateInitial, ",") {
			initial[strings.TrimSpace(s)] = true
		}
	}

	if initial["stable"] || initial["patch"] {
		stable, patch, err := m.InitialStablePatch(ctx)
		if err != nil {
			return err
		}
		sets[release.TypeStable] = stable
		sets[release.TypePatch] = patch
	}

	if opts.Input || opts.InputStdin {
		input, err := m.loadInput(opts)
		if err != nil {
			return err
		}
		for t, releases := range release.SplitByType(input) {
			sets[t] = release.Merge(sets[t], releases)
		}
	}

	// Initial nightlies need the stable releases, which may have just
	// been defined by the input file.
	if initial["nightly"] {
		nightly, err := m.InitialNightly(ctx, sets[release.TypeStable])
		if err != nil {
			return err
		}
		sets[release.TypeNightly] = nightly
	}

	if opts.Create != "" {
		t, err := release.ParseType(opts.Create)
		if err != nil {
			return exitcode.Wrap(exitcode.ParameterMissing, err)
		}
		rel, err := m.Build(ctx, t, opts, sets[t])
		if err != nil {
			return err
		}
		sets[t] = release.Merge(sets[t], []*release.Release{rel})
	}
	return nil
}

// queryExisting loads the current record sets from the authoritative
// store. A missing per-type object means no releases of that type yet.
func (m *Manager) queryExisting(opts Options) (map[release.Type][]*release.Release, error) {
	sets := make(map[release.Type][]*release.Release)
	for _, t := range release.Types {
		key := m.objectKey(fmt.Sprintf("%s-%s.json", opts.OutputPrefix, t))
		data, err := m.store.ReadFile(key)
		if errors.Is(err, storage.ErrNotExist) {
			m.log.Debug("no existing releases", "type", t)
			continue
		}
		if err != nil {
			return nil, exitcode.Wrap(exitcode.Query, fmt.Errorf("querying %s releases: %w", t, err))
		}
		var doc release.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, exitcode.Wrap(exitcode.Query, fmt.Errorf("parsing %s releases: %w", t, err))
		}
		sets[t] = doc.Releases
	}
	return sets, nil
}

func (m *Manager) loadInput(opts Options) ([]*release.Release, error) {
	var data []byte
	var err error
	if opts.InputStdin {
		data, err = io.ReadAll(m.stdin)
	} else {
		data, err = os.ReadFile(opts.InputFile)
	}
	if err != nil {
		return nil, exitcode.Wrap(exitcode.Input, fmt.Errorf("reading input: %w", err))
	}

	var doc release.Document
	if jsonErr := json.Unmarshal(data, &doc); jsonErr != nil {
		if yamlErr := yaml.Unmarshal(data, &doc); yamlErr != nil {
			return nil, exitcode.Wrap(exitcode.Validation, fmt.Errorf("parsing input: %w", jsonErr))
		}
	}
	if len(doc.Releases) == 0 {
		return nil, exitcode.Wrap(exitcode.ParameterMissing, errors.New("no releases found in input"))
	}
	return doc.Releases, nil
}

// persist writes the merged record set to local files and, with
// --s3-update, reconciles and uploads the per-type objects. A delete
// invocation skips the reconcile: merging the bucket copy back in
// would resurrect the removed record.
func (m *Manager) persist(ctx context.Context, merged []*release.Release, opts Options) error {
	reconcile := opts.Delete == ""

	if opts.NoOutputSplit {
		filename := fmt.Sprintf("%s.%s", opts.OutputPrefix, opts.OutputFormat)
		if err := m.writeLocal(filename, merged, opts.OutputFormat); err != nil {
			return err
		}
		if opts.S3Update {
			return m.syncObject(fmt.Sprintf("%s.json", opts.OutputPrefix), merged, reconcile)
		}
		return nil
	}

	sets := release.SplitByType(merged)

	// A type emptied by a delete still needs its files rewritten.
	var deletedType release.Type
	if opts.Delete != "" {
		deletedType, _, _ = release.ParseName(opts.Delete)
	}

	for _, t := range release.Types {
		releases := sets[t]
		if len(releases) == 0 && t != deletedType {
			continue
		}
		filename := fmt.Sprintf("%s-%s.%s", opts.OutputPrefix, t, opts.OutputFormat)
		if err := m.writeLocal(filename, releases, opts.OutputFormat); err != nil {
			return err
		}
	}

	if !opts.S3Update {
		return nil
	}

	sem := semaphore.NewWeighted(int64(runtime.NumCPU()))
	group, ctx := errgroup.WithContext(ctx)
	for _, t := range release.Types {
		releases := sets[t]
		if len(releases) == 0 && t != deletedType {
			continue
		}
		name := fmt.Sprintf("%s-%s.json", opts.OutputPrefix, t)
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		group.Go(func() error {
			defer sem.Release(1)
			return m.syncObject(name, releases, reconcile)
		})
	}
	return group.Wait()
}

// syncObject uploads the releases under the key, by default merged
// with whatever the bucket already holds. The stored copy is always
// JSON. With reconcile off the local set replaces the object outright,
// so removals stick.
func (m *Manager) syncObject(name string, releases []*release.Release, reconcile bool) error {
	key := m.objectKey(name)

	if reconcile {
		existing, err := m.store.ReadFile(key)
		switch {
		case errors.Is(err, storage.ErrNotExist):
			m.log.Warn("no existing object, starting with a fresh file", "key", key)
		case err != nil:
			return exitcode.Wrap(exitcode.S3, err)
		default:
			var doc release.Document
			if err := json.Unmarshal(existing, &doc); err != nil {
				m.log.Warn("could not decode existing object, starting with a fresh file", "key", key)
			} else {
				releases = release.Merge(doc.Releases, releases)
			}
		}
	}

	data, err := json.Marshal(release.Document{Releases: releases})
	if err != nil {
		return err
	}
	if err := m.store.WriteFile(key, data); err != nil {
		return exitcode.Wrap(exitcode.S3, err)
	}
	m.log.Debug("uploaded releases", "key", key, "count", len(releases))
	return nil
}

func (m *Manager) writeLocal(filename string, releases []*release.Release, format string) error {
	doc := release.Document{Releases: releases}
	var data []byte
	var err error
	if format == "yaml" {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return exitcode.Wrap(exitcode.Input, err)
	}
	m.log.Debug("release data saved", "file", filename)
	return nil
}

// DownloadAll fetches every release object from the bucket to local
// disk, or seeds empty per-type files when the bucket holds none.
func (m *Manager) DownloadAll(ctx context.Context, opts Options) error {
	found := false
	err := m.store.Walk(m.cfg.S3Prefix, func(key string, err error) error {
		if err != nil {
			return err
		}
		if !strings.HasSuffix(key, ".json") {
			return nil
		}
		data, err := m.store.ReadFile(key)
		if err != nil {
			return err
		}
		found = true
		local := path.Base(key)
		m.log.Debug("downloaded release file", "key", key, "file", local)
		return os.WriteFile(local, data, 0o644)
	})
	if err != nil {
		return exitcode.Wrap(exitcode.S3, err)
	}

	if !found {
		m.log.Warn("no release files found", "bucket", m.cfg.S3Bucket, "prefix", m.cfg.S3Prefix)
		for _, t := range release.Types {
			filename := fmt.Sprintf("%s-%s.json", opts.OutputPrefix, t)
			if err := m.writeLocal(filename, nil, "json"); err != nil {
				return err
			}
		}
	}
	return nil
}

// UploadAll pushes all local release files to the bucket after an
// interactive confirmation.
func (m *Manager) UploadAll(ctx context.Context, opts Options) error {
	var files []string
	for _, t := range release.Types {
		filename := fmt.Sprintf("%s-%s.json", opts.OutputPrefix, t)
		if _, err := os.Stat(filename); err == nil {
			files = append(files, filename)
		}
	}
	if len(files) == 0 {
		m.log.Warn("no release files found to upload")
		return nil
	}

	fmt.Println("\nThe following files will be uploaded to S3:")
	for _, f := range files {
		fmt.Printf("  %s -> s3://%s/%s\n", f, m.cfg.S3Bucket, m.objectKey(f))
	}
	fmt.Print("\nDo you really want to upload these files to S3? [y/N] ")
	answer, _ := bufio.NewReader(m.stdin).ReadString('\n')
	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		fmt.Println("Upload cancelled.")
		return nil
	}

	sem := semaphore.NewWeighted(int64(runtime.NumCPU()))
	group, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		group.Go(func() error {
			defer sem.Release(1)
			data, err := os.ReadFile(f)
			if err != nil {
				return err
			}
			if err := m.store.WriteFile(m.objectKey(f), data); err != nil {
				return exitcode.Wrap(exitcode.S3, err)
			}
			m.log.Info("uploaded release file", "file", f)
			return nil
		})
	}
	return group.Wait()
}

func (m *Manager) objectKey(name string) string {
	return m.cfg.S3Prefix + name
}
