package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/metalagman/gauntlet/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogTOML = `
[[scenario]]
domain = "security_challenges"
complexity = "expert"
description = "Contain a live intrusion"
objectives = ["Isolate hosts", "Preserve evidence"]
constraints = ["No reboots"]
success_criteria = ["Attacker evicted"]
required_skills = ["Forensics"]

[[scenario]]
domain = "security_challenges"
description = "Review a firewall policy"
objectives = ["Find gaps"]
success_criteria = ["Gaps listed"]
`

func TestCatalog_BuildContent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(catalogTOML), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, c.Entries, 2)

	exact, err := c.BuildContent(context.Background(), model.DomainSecurity, model.ComplexityExpert)
	require.NoError(t, err)
	assert.Equal(t, "Contain a live intrusion", exact.Description)
	assert.Equal(t, []string{"Forensics"}, exact.RequiredSkills)

	generic, err := c.BuildContent(context.Background(), model.DomainSecurity, model.ComplexityBasic)
	require.NoError(t, err)
	assert.Equal(t, "Review a firewall policy", generic.Description)

	_, err = c.BuildContent(context.Background(), model.DomainCreative, model.ComplexityBasic)
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestParseCatalog_RejectsUnknownDomain(t *testing.T) {
	t.Parallel()

	_, err := ParseCatalog("[[scenario]]\ndomain = \"cooking\"\n")
	require.Error(t, err)

	_, err = ParseCatalog("[[scenario]]\ndomain = \"creative_tasks\"\ncomplexity = \"legendary\"\n")
	require.Error(t, err)
}

func TestParseCatalog_NormalizesNames(t *testing.T) {
	t.Parallel()

	c, err := ParseCatalog(`
[[scenario]]
domain = " Security_Challenges "
complexity = "EXPERT"
description = "Mixed case entry"
`)
	require.NoError(t, err)
	assert.Equal(t, string(model.DomainSecurity), c.Entries[0].Domain)
	assert.Equal(t, "expert", c.Entries[0].Complexity)

	got, err := c.BuildContent(context.Background(), model.DomainSecurity, model.ComplexityExpert)
	require.NoError(t, err)
	assert.Equal(t, "Mixed case entry", got.Description)

	// Entries built in code are matched the same way.
	direct := &Catalog{Entries: []CatalogEntry{{Domain: "SECURITY_CHALLENGES", Content: model.Content{Description: "direct"}}}}
	got, err = direct.BuildContent(context.Background(), model.DomainSecurity, model.ComplexityBasic)
	require.NoError(t, err)
	assert.Equal(t, "direct", got.Description)
}
