package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedFile(t *testing.T) {
	Env = map[string]string{"LINGOFOX_TEST_KEY": "from-file"}
	t.Cleanup(func() { Env = nil })
	t.Setenv("LINGOFOX_TEST_KEY", "from-os")

	assert.Equal(t, "from-file", GetEnv("LINGOFOX_TEST_KEY", "def"))
}

func TestGetEnvFallbacks(t *testing.T) {
	Env = map[string]string{}
	t.Cleanup(func() { Env = nil })

	t.Setenv("LINGOFOX_TEST_OS", "from-os")
	assert.Equal(t, "from-os", GetEnv("LINGOFOX_TEST_OS", "def"))
	assert.Equal(t, "def", GetEnv("LINGOFOX_TEST_MISSING", "def"))
}

func TestGetEnvInt(t *testing.T) {
	Env = map[string]string{"WORKERS": "7", "BROKEN": "seven"}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, 7, GetEnvInt("WORKERS", 3))
	assert.Equal(t, 3, GetEnvInt("BROKEN", 3))
	assert.Equal(t, 3, GetEnvInt("UNSET_WORKERS", 3))
}

func TestGetEnvBool(t *testing.T) {
	Env = map[string]string{"ON": "true", "OFF": "0", "JUNK": "maybe"}
	t.Cleanup(func() { Env = nil })

	assert.True(t, GetEnvBool("ON", false))
	assert.False(t, GetEnvBool("OFF", true))
	assert.True(t, GetEnvBool("JUNK", true))
	assert.False(t, GetEnvBool("UNSET", false))
}

func TestIsDev(t *testing.T) {
	Env = map[string]string{"APP_ENV": "dev"}
	t.Cleanup(func() { Env = nil })
	assert.True(t, IsDev())

	Env = map[string]string{"APP_ENV": "prod"}
	assert.False(t, IsDev())
}
