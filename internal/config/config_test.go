package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

const validYAML = `
megaplan:
  base_url: https://company.megaplan.ru/api/v3
  username: sync
  password: secret
openproject:
  base_url: https://openproject.example.com
  username: apikey
  password: token
  default_user_id: 4
projects:
  - megaplan_id: "1001"
    openproject_id: 3
    include_closed: true
mappings:
  status:
    assigned: "1"
    done: "12"
  default_status: "1"
  type:
    task: "1"
  users:
    "500": 42
state_db: state/sync.db
log_file: logs/opsync.log
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "opsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://company.megaplan.ru/api/v3", cfg.Megaplan.BaseURL)
	assert.Equal(t, int64(4), cfg.OpenProject.DefaultUserID)
	require.Len(t, cfg.Projects, 1)
	assert.Equal(t, "1001", cfg.Projects[0].MegaplanID)
	assert.Equal(t, int64(3), cfg.Projects[0].OpenProjectID)
	assert.True(t, cfg.Projects[0].IncludeClosed)
	assert.Equal(t, "12", cfg.Mappings.Status["done"])
	assert.Equal(t, int64(42), cfg.Mappings.Users["500"])
	assert.Equal(t, "state/sync.db", cfg.StateDB)
	assert.Equal(t, "logs/opsync.log", cfg.LogFile)
}

func TestLoad_DefaultsApply(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Sync.PageSize)
	assert.Equal(t, 200.0, cfg.Sync.AttachmentMaxMB)
	assert.True(t, cfg.Sync.SyncComments)
	assert.True(t, cfg.Sync.SyncAttachments)
	assert.False(t, cfg.Sync.DryRun)
	assert.Equal(t, 1, cfg.Sync.Concurrency)
	assert.Equal(t, types.OnUnmappedOmit, cfg.Sync.OnUnmapped)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML+`
sync:
  page_size: 25
  concurrency: 3
  on_unmapped: fail
`))
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Sync.PageSize)
	assert.Equal(t, 3, cfg.Sync.Concurrency)
	assert.Equal(t, types.OnUnmappedFail, cfg.Sync.OnUnmapped)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("OPSYNC_SYNC_PAGE_SIZE", "7")
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Sync.PageSize)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	path := writeConfig(t, `
megaplan:
  base_url: https://company.megaplan.ru/api/v3
  username: sync
  password: secret
openproject:
  base_url: https://openproject.example.com
projects: []
`)
	_, err := Load(path)
	require.ErrorIs(t, err, types.ErrNoProjects)
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "megaplan: ["))
	require.Error(t, err)
}
