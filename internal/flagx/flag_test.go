package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "equals form",
			args:         []string{"-config=alt.json", "-a", "localhost"},
			allowedFlags: []string{"-config"},
			want:         []string{"-config=alt.json"},
		},
		{
			name:         "unknown flags and positionals dropped",
			args:         []string{"-x", "1", "-y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "dangling flag kept without value",
			args:         []string{"-s"},
			allowedFlags: []string{"-s"},
			want:         []string{"-s"},
		},
		{
			name:         "next flag is not consumed as value",
			args:         []string{"-s", "-d", "dsn"},
			allowedFlags: []string{"-s", "-d"},
			want:         []string{"-s", "-d", "dsn"},
		},
		{
			name:         "order preserved for repeated flags",
			args:         []string{"-c", "one.json", "-c", "two.json"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "one.json", "-c", "two.json"},
		},
		{
			name:         "empty",
			args:         []string{},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestLookup(t *testing.T) {
	assert.Equal(t, "/etc/shop.json", Lookup([]string{"-c", "/etc/shop.json"}, "-c", "-config"))
	assert.Equal(t, "/etc/long.json", Lookup([]string{"-a", ":3000", "-config=/etc/long.json"}, "-c", "-config"))
	assert.Equal(t, "2.json", Lookup([]string{"-c", "1.json", "-config", "2.json"}, "-c", "-config"))
	assert.Empty(t, Lookup([]string{"-x", "1"}, "-c", "-config"))
	assert.Equal(t, ".env.local", Lookup([]string{"-env-file", ".env.local"}, "-env-file"))
}
