package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "kindred/backend/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NEO4J_URI", "")
	t.Setenv("SERIALIZE_RELATION_APPENDS", "")
	t.Setenv("API_PREFIX", "")
	t.Setenv("STORE_TX_TIMEOUT_MS", "")
	t.Setenv("FANOUT_CONCURRENCY", "")
	t.Setenv("FANOUT_ALLOWED_HOSTS", "")
	t.Setenv("FANOUT_ALLOW_PRIVATE_NETWORKS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4jURI)
	assert.Equal(t, "/v1", cfg.APIPrefix)
	assert.Equal(t, 5*time.Second, cfg.StoreTxTimeout)
	assert.Equal(t, 1000, cfg.FanoutConcurrency)
	assert.False(t, cfg.SerializeRelationAppends)
	assert.Empty(t, cfg.FanoutAllowedHosts)
	assert.False(t, cfg.FanoutAllowPrivateNetworks)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SERIALIZE_RELATION_APPENDS", "true")
	t.Setenv("STORE_TX_TIMEOUT_MS", "250")
	t.Setenv("FANOUT_CONCURRENCY", "8")
	t.Setenv("ENV", "production")
	t.Setenv("FANOUT_ALLOWED_HOSTS", "api.example.com, ,data.example.org")
	t.Setenv("FANOUT_ALLOW_PRIVATE_NETWORKS", "yes")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.SerializeRelationAppends)
	assert.Equal(t, 250*time.Millisecond, cfg.StoreTxTimeout)
	assert.Equal(t, 8, cfg.FanoutConcurrency)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"api.example.com", "data.example.org"}, cfg.FanoutAllowedHosts)
	assert.True(t, cfg.FanoutAllowPrivateNetworks)
}

func TestValidate(t *testing.T) {
	valid := Config{
		APIPrefix:         "/v1",
		Neo4jURI:          "bolt://db:7687",
		Neo4jUser:         "neo4j",
		Neo4jPassword:     "secret",
		OIDCIssuerURL:     "http://idp/realms/demo",
		StoreTxTimeout:    time.Second,
		FanoutConcurrency: 1,
		FanoutTimeout:     time.Second,
	}
	require.NoError(t, valid.Validate())

	missingIssuer := valid
	missingIssuer.OIDCIssuerURL = ""
	err := missingIssuer.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConfig))

	noUser := valid
	noUser.Neo4jUser = ""
	err = noUser.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NEO4J_USER")

	badPrefix := valid
	badPrefix.APIPrefix = "v1"
	assert.Error(t, badPrefix.Validate())

	noWorkers := valid
	noWorkers.FanoutConcurrency = 0
	assert.Error(t, noWorkers.Validate())
}
