package types

import "errors"

// Policies for fields that have no configured target mapping and no default.
const (
	OnUnmappedFail = "fail" // Mark the record failed and move on.
	OnUnmappedOmit = "omit" // Drop the field from the payload and continue.
)

// Config validation errors.
var (
	ErrMegaplanBaseURL    = errors.New("megaplan.base_url must not be empty")
	ErrMegaplanCredential = errors.New("megaplan.username and megaplan.password must not be empty")
	ErrOpenProjectBaseURL = errors.New("openproject.base_url must not be empty")
	ErrNoProjects         = errors.New("at least one project mapping is required")
	ErrProjectIncomplete  = errors.New("project mapping needs both megaplan_id and openproject_id")
	ErrPageSizeInvalid    = errors.New("sync.page_size must be positive")
	ErrMaxSizeInvalid     = errors.New("sync.attachment_max_mb must be positive")
	ErrConcurrencyInvalid = errors.New("sync.concurrency must be positive")
	ErrOnUnmappedUnknown  = errors.New("sync.on_unmapped must be \"fail\" or \"omit\"")
	ErrStateDBEmpty       = errors.New("state_db must not be empty")
)

// MegaplanConfig holds source-tracker connection settings.
type MegaplanConfig struct {
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

// OpenProjectConfig holds target-tracker connection settings. DefaultUserID
// is assigned when a source user cannot be resolved or created.
type OpenProjectConfig struct {
	BaseURL       string `mapstructure:"base_url" yaml:"base_url"`
	Username      string `mapstructure:"username" yaml:"username"`
	Password      string `mapstructure:"password" yaml:"password"`
	DefaultUserID int64  `mapstructure:"default_user_id" yaml:"default_user_id"`
}

// ProjectMapping pairs a Megaplan project with its OpenProject counterpart.
type ProjectMapping struct {
	MegaplanID    string `mapstructure:"megaplan_id" yaml:"megaplan_id"`
	OpenProjectID int64  `mapstructure:"openproject_id" yaml:"openproject_id"`
	IncludeClosed bool   `mapstructure:"include_closed" yaml:"include_closed"`
}

// SyncOptions tunes a sync run.
type SyncOptions struct {
	PageSize        int     `mapstructure:"page_size" yaml:"page_size"`
	AttachmentMaxMB float64 `mapstructure:"attachment_max_mb" yaml:"attachment_max_mb"`
	SyncAttachments bool    `mapstructure:"sync_attachments" yaml:"sync_attachments"`
	SyncComments    bool    `mapstructure:"sync_comments" yaml:"sync_comments"`
	DryRun          bool    `mapstructure:"dry_run" yaml:"dry_run"`
	Concurrency     int     `mapstructure:"concurrency" yaml:"concurrency"`
	OnUnmapped      string  `mapstructure:"on_unmapped" yaml:"on_unmapped"`
}

// MappingRules configures field-level translation from Megaplan values to
// OpenProject identifiers. A missing entry falls back to the default; a
// missing default makes the field unmappable.
type MappingRules struct {
	Status        map[string]string `mapstructure:"status" yaml:"status"`
	DefaultStatus string            `mapstructure:"default_status" yaml:"default_status"`
	Type          map[string]string `mapstructure:"type" yaml:"type"`
	DefaultType   string            `mapstructure:"default_type" yaml:"default_type"`
	Users         map[string]int64  `mapstructure:"users" yaml:"users"`
}

// Config is the root application configuration, loaded once at startup and
// threaded through constructors as an immutable value.
type Config struct {
	Megaplan    MegaplanConfig    `mapstructure:"megaplan" yaml:"megaplan"`
	OpenProject OpenProjectConfig `mapstructure:"openproject" yaml:"openproject"`
	Projects    []ProjectMapping  `mapstructure:"projects" yaml:"projects"`
	Sync        SyncOptions       `mapstructure:"sync" yaml:"sync"`
	Mappings    MappingRules      `mapstructure:"mappings" yaml:"mappings"`
	StateDB     string            `mapstructure:"state_db" yaml:"state_db"`
	LogFile     string            `mapstructure:"log_file" yaml:"log_file"`
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on the first failure found.
func (c Config) Validate() error {
	if c.Megaplan.BaseURL == "" {
		return ErrMegaplanBaseURL
	}
	if c.Megaplan.Username == "" || c.Megaplan.Password == "" {
		return ErrMegaplanCredential
	}
	if c.OpenProject.BaseURL == "" {
		return ErrOpenProjectBaseURL
	}
	if len(c.Projects) == 0 {
		return ErrNoProjects
	}
	for _, p := range c.Projects {
		if p.MegaplanID == "" || p.OpenProjectID == 0 {
			return ErrProjectIncomplete
		}
	}
	if c.Sync.PageSize <= 0 {
		return ErrPageSizeInvalid
	}
	if c.Sync.AttachmentMaxMB <= 0 {
		return ErrMaxSizeInvalid
	}
	if c.Sync.Concurrency <= 0 {
		return ErrConcurrencyInvalid
	}
	if c.Sync.OnUnmapped != OnUnmappedFail && c.Sync.OnUnmapped != OnUnmappedOmit {
		return ErrOnUnmappedUnknown
	}
	if c.StateDB == "" {
		return ErrStateDBEmpty
	}
	return nil
}

// AttachmentMaxBytes converts the configured megabyte ceiling to bytes.
func (c Config) AttachmentMaxBytes() int64 {
	return int64(c.Sync.AttachmentMaxMB * 1024 * 1024)
}
