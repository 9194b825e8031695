// Package provision creates a root folder plus a fixed template hierarchy in
// Dropbox and returns a shared link to the root. Folder creation is strictly
// sequential because every template entry depends on its parent existing.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/zapnorok/FileStructureAutomator/internal/dropbox"
	"github.com/zapnorok/FileStructureAutomator/internal/retry"
)

// maxNameLength is the Dropbox limit for a single path component.
const maxNameLength = 255

// Status is the non-error outcome of a folder creation.
type Status int

const (
	// StatusCreated means the folder (or every template folder) was created.
	StatusCreated Status = iota
	// StatusExists means the target already existed; provisioning stops.
	StatusExists
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusExists:
		return "exists"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Storage is the subset of the Dropbox client the provisioner calls.
type Storage interface {
	CreateFolder(ctx context.Context, path string) (*dropbox.FolderMetadata, error)
	CreateSharedLink(ctx context.Context, path string) (string, error)
}

// Reporter receives human-readable progress lines, one per workflow step.
type Reporter interface {
	Progress(msg string)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(msg string)

// Progress calls f(msg).
func (f ReporterFunc) Progress(msg string) { f(msg) }

type nopReporter struct{}

func (nopReporter) Progress(string) {}

// Request tracks one provisioning run. It lives for a single Provision call
// and is never persisted.
type Request struct {
	ID           string
	RootName     string
	CreatedPaths []string
}

// Options configures a Provisioner. Zero values get defaults: the default
// template, the default retry policy, no progress reporting.
type Options struct {
	Template Template
	Policy   *retry.Policy
	Reporter Reporter
	Logger   *slog.Logger
}

// Provisioner runs the create-root, create-template, share workflow.
// It is safe to reuse across sequential requests; it holds no per-request
// state.
type Provisioner struct {
	store    Storage
	template Template
	policy   *retry.Policy
	reporter Reporter
	logger   *slog.Logger
}

// New creates a Provisioner backed by store.
func New(store Storage, opts Options) *Provisioner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tmpl := opts.Template
	if tmpl.Len() == 0 {
		tmpl = DefaultTemplate()
	}

	policy := opts.Policy
	if policy == nil {
		policy = retry.NewPolicy(retry.DefaultMaxAttempts, retry.DefaultRetryAfter, logger)
	}

	reporter := opts.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}

	return &Provisioner{
		store:    store,
		template: tmpl,
		policy:   policy,
		reporter: reporter,
		logger:   logger,
	}
}

// Template returns the template this Provisioner creates.
func (p *Provisioner) Template() Template {
	return p.template
}

// NormalizeName trims and NFC-normalizes a requested root name and checks
// that it is a single usable path component.
func NormalizeName(raw string) (string, error) {
	name := norm.NFC.String(strings.TrimSpace(raw))

	err := validation.Validate(name,
		validation.Required.Error("name must not be empty"),
		validation.RuneLength(1, maxNameLength),
		validation.By(func(any) error {
			if strings.ContainsAny(name, `/\`) {
				return errors.New("name cannot contain slashes")
			}

			if name == "." || name == ".." {
				return errors.New("name cannot be a relative path element")
			}

			return nil
		}),
	)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrInvalidName, raw, err)
	}

	return name, nil
}

// RootPath returns the absolute Dropbox path of a root folder.
func RootPath(rootName string) string {
	return "/" + rootName
}

// FolderPath returns the absolute Dropbox path of a template entry.
func FolderPath(rootName, relativePath string) string {
	return "/" + rootName + "/" + relativePath
}

// Provision creates rootName, every template folder beneath it, and a shared
// link to it. Failures are ErrInvalidName, ErrNameConflict, ErrAuthExpired,
// ErrRetriesExhausted, or *RemoteError.
func (p *Provisioner) Provision(ctx context.Context, rootName string) (string, error) {
	name, err := NormalizeName(rootName)
	if err != nil {
		return "", err
	}

	req := &Request{ID: uuid.New().String(), RootName: name}
	logger := p.logger.With(slog.String("run_id", req.ID), slog.String("root", name))

	logger.Info("provisioning started", slog.Int("template_size", p.template.Len()))
	p.reporter.Progress("Creating folder structure, please wait...")

	if err := p.CreateRoot(ctx, name); err != nil {
		logger.Warn("provisioning aborted at root", slog.String("error", err.Error()))
		return "", err
	}

	req.CreatedPaths = append(req.CreatedPaths, RootPath(name))

	status, err := p.provisionAll(ctx, req, p.template, logger)
	if err != nil {
		logger.Error("provisioning failed",
			slog.Int("created", len(req.CreatedPaths)),
			slog.String("error", err.Error()),
		)

		return "", err
	}

	if status == StatusExists {
		return "", fmt.Errorf("%w: %s", ErrNameConflict, RootPath(name))
	}

	p.reporter.Progress(fmt.Sprintf(
		"Folder structure for %s has been created. Now creating the shared Dropbox link...", name))

	url, err := p.RequestSharedLink(ctx, RootPath(name))
	if err != nil {
		logger.Error("shared link failed", slog.String("error", err.Error()))
		return "", err
	}

	logger.Info("provisioning complete",
		slog.Int("created", len(req.CreatedPaths)),
	)
	p.reporter.Progress(fmt.Sprintf("Folder structure for %s created successfully.", name))

	return url, nil
}

// CreateRoot creates /rootName. An existing entry yields ErrNameConflict and
// the caller must abort without touching anything else.
func (p *Provisioner) CreateRoot(ctx context.Context, rootName string) error {
	path := RootPath(rootName)

	err := p.policy.Do(ctx, "create root", func(ctx context.Context) error {
		_, err := p.store.CreateFolder(ctx, path)
		return err
	})
	if err == nil {
		p.logger.Debug("root folder created", slog.String("path", path))
		return nil
	}

	if errors.Is(err, dropbox.ErrConflict) && !errors.Is(err, retry.ErrRetriesExhausted) {
		p.logger.Info("root folder already exists", slog.String("path", path))
		return fmt.Errorf("%w: %s", ErrNameConflict, path)
	}

	return classify("create root", path, err)
}

// CreateFolder creates /rootName/relativePath. An existing entry is reported
// as StatusExists, not an error.
func (p *Provisioner) CreateFolder(ctx context.Context, rootName, relativePath string) (Status, error) {
	path := FolderPath(rootName, relativePath)

	err := p.policy.Do(ctx, "create folder", func(ctx context.Context) error {
		_, err := p.store.CreateFolder(ctx, path)
		return err
	})
	if err == nil {
		p.logger.Debug("folder created", slog.String("path", path))
		return StatusCreated, nil
	}

	if errors.Is(err, dropbox.ErrConflict) && !errors.Is(err, retry.ErrRetriesExhausted) {
		p.logger.Info("folder already exists", slog.String("path", path))
		return StatusExists, nil
	}

	return StatusCreated, classify("create folder", path, err)
}

// ProvisionAll creates every template entry under rootName in order. It
// stops at the first existing folder (returning StatusExists) or the first
// hard error.
func (p *Provisioner) ProvisionAll(ctx context.Context, rootName string, tmpl Template) (Status, error) {
	req := &Request{RootName: rootName}

	return p.provisionAll(ctx, req, tmpl, p.logger)
}

func (p *Provisioner) provisionAll(ctx context.Context, req *Request, tmpl Template, logger *slog.Logger) (Status, error) {
	for _, rel := range tmpl.paths {
		status, err := p.CreateFolder(ctx, req.RootName, rel)
		if err != nil {
			return status, err
		}

		if status == StatusExists {
			logger.Warn("folder already exists, stopping",
				slog.String("path", rel),
				slog.Int("created", len(req.CreatedPaths)),
			)

			return StatusExists, nil
		}

		req.CreatedPaths = append(req.CreatedPaths, FolderPath(req.RootName, rel))
	}

	return StatusCreated, nil
}

// RequestSharedLink returns a shared link for rootPath, waiting out rate
// limits according to the retry policy.
func (p *Provisioner) RequestSharedLink(ctx context.Context, rootPath string) (string, error) {
	var url string

	err := p.policy.Do(ctx, "create shared link", func(ctx context.Context) error {
		var err error
		url, err = p.store.CreateSharedLink(ctx, rootPath)

		return err
	})
	if err != nil {
		return "", classify("create shared link", rootPath, err)
	}

	p.logger.Info("shared link created", slog.String("path", rootPath))

	return url, nil
}
