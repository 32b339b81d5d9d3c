package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	_ "github.com/atrium-realty/atrium/internal/testing/guard"
)

func TestTestModeFollowsEnvironment(t *testing.T) {
	// The testing guard import sets ATRIUM_TEST_MODE before any test runs.
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())

	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())
}
