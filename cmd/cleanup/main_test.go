package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_UsageErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"missing action", nil, "--action must be one of"},
		{"unknown action", []string{"--action", "cleanup-everything"}, "cleanup-old-events"},
		{"unknown flag", []string{"--force"}, "unknown flag"},
		{"bad days", []string{"-a", "cleanup-read-notifications", "-d", "many"}, "invalid argument"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tc.args, &stdout, &stderr)
			assert.Equal(t, 2, code)
			assert.Empty(t, stdout.String())
			assert.Contains(t, stderr.String(), tc.want)
		})
	}
}

func TestValidAction(t *testing.T) {
	assert.True(t, validAction("cleanup-unverified-tickets"))
	assert.False(t, validAction(""))
	assert.False(t, validAction("CLEANUP-OLD-EVENTS"))
}
