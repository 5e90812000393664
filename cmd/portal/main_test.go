package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectorportal/internal/domain"
	"vectorportal/internal/infra/config"
	"vectorportal/internal/security"
	"vectorportal/internal/usecase/wizard"
)

func TestFlagValue(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
		ok   bool
	}{
		{"separate", []string{"-f", "a.yaml"}, "a.yaml", true},
		{"equals", []string{"--file=b.yaml"}, "b.yaml", true},
		{"first wins", []string{"-f", "a.yaml", "--file", "b.yaml"}, "a.yaml", true},
		{"missing value", []string{"-f"}, "", false},
		{"absent", []string{"--yes"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := flagValue(tt.args, "-f", "--file")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHasFlag(t *testing.T) {
	assert.True(t, hasFlag([]string{"-f", "x", "--yes"}, "-y", "--yes"))
	assert.False(t, hasFlag([]string{"--yes-please"}, "--yes"))
}

func TestConfigPath(t *testing.T) {
	t.Setenv("PORTAL_CONFIG", "/env/portal.yaml")
	assert.Equal(t, "/flag.yaml", configPath([]string{"--config", "/flag.yaml"}))
	assert.Equal(t, "/env/portal.yaml", configPath(nil))

	t.Setenv("PORTAL_CONFIG", "")
	assert.Equal(t, config.DefaultPath(), configPath(nil))
}

func TestLoadAnswers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "answers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`flow: vector_store
provider: aws_opensearch
name: docs
credential: prod-aws
values:
  endpoint: https://search.example.com
  index_name: docs
  dimensions: 1536
test: true
`), 0o600))

	a, err := loadAnswers(path)
	require.NoError(t, err)
	assert.Equal(t, "vector_store", a.Flow)
	assert.Equal(t, "prod-aws", a.Credential)
	assert.Equal(t, 1536, a.Values["dimensions"])
	assert.True(t, a.Test)
}

func TestLoadAnswersRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("flow: credential\nprovder: aws\n"), 0o600))

	_, err := loadAnswers(path)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoadAnswersMissingFile(t *testing.T) {
	_, err := loadAnswers(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestAskYes(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		assert.Equal(t, tt.want, askYes(strings.NewReader(tt.in), &out, "ok? "), "input %q", tt.in)
		assert.Equal(t, "ok? ", out.String())
	}
}

func TestPrintReviewMasksSecrets(t *testing.T) {
	s := wizard.NewSession(wizard.FlowCredential)
	s.DisplayName = "prod-aws"
	s.SelectedProvider = &domain.ProviderDescriptor{ProviderType: "aws", DisplayName: "AWS"}
	s.Schema = wizard.SchemaState{Status: wizard.SchemaReady, Fields: []domain.FieldSpec{
		{Name: "access_key_id", Label: "Access Key ID", Kind: domain.TextKind{}},
		{Name: "secret_access_key", Label: "Secret Access Key", Kind: domain.PasswordKind{}},
	}}
	s.Values = domain.Values{"access_key_id": "AKIA", "secret_access_key": "hunter2"}
	s.TestResult = &domain.TestResult{Success: false, Message: "denied"}

	var out bytes.Buffer
	printReview(&out, s)
	assert.NotContains(t, out.String(), "hunter2")
	assert.Contains(t, out.String(), "prod-aws")
	assert.Contains(t, out.String(), "Connection test failed: denied")
}

func TestServerAuth(t *testing.T) {
	assert.Nil(t, serverAuth(config.AuthConfig{}))
	assert.Nil(t, serverAuth(config.AuthConfig{Tokens: []config.TokenConfig{{Token: "", Name: "blank"}}}))

	auth := serverAuth(config.AuthConfig{Tokens: []config.TokenConfig{{Token: "t1", Name: "ops"}}})
	require.NotNil(t, auth)
	info, err := auth.Authenticate("t1")
	require.NoError(t, err)
	assert.Equal(t, "ops", info.Name)
}

func TestSealInput(t *testing.T) {
	sealed, err := sealInput([]string{"s3cret"}, strings.NewReader(""), "pass")
	require.NoError(t, err)
	require.True(t, security.IsSealedValue(sealed))
	plain, err := security.OpenValue(sealed, "pass")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", plain)

	sealed, err = sealInput(nil, strings.NewReader("from-stdin\n"), "pass")
	require.NoError(t, err)
	plain, err = security.OpenValue(sealed, "pass")
	require.NoError(t, err)
	assert.Equal(t, "from-stdin", plain)

	_, err = sealInput(nil, strings.NewReader(""), "pass")
	assert.Error(t, err)
	_, err = sealInput([]string{sealed}, nil, "pass")
	assert.Error(t, err)
}
