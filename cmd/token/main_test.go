package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestIssueThenVerify(t *testing.T) {
	user := uuid.New()

	token, err := executeCLI(t, "issue", "--user", user.String(), "--role", "admin")
	require.NoError(t, err)
	token = strings.TrimSpace(token)
	require.NotEmpty(t, token)

	out, err := executeCLI(t, "verify", token)
	require.NoError(t, err)
	assert.Contains(t, out, "user_id="+user.String())
	assert.Contains(t, out, "role=admin")
}

func TestIssueRejectsBadUser(t *testing.T) {
	_, err := executeCLI(t, "issue", "--user", "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --user")
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := executeCLI(t, "verify", "garbage")
	assert.Error(t, err)
}
