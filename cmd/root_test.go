package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/glm-usage-monitor/internal/config"
)

const quotaBody = `{"code":200,"msg":"ok","success":true,"data":{"level":"lite","limits":[
{"type":"TOKENS_LIMIT","unit":3,"number":5,"percentage":12},
{"type":"TIME_LIMIT","unit":5,"number":1,"usage":100,"currentValue":7,"remaining":93,"percentage":7}]}}`

// isolate clears the environment Load reads and points HOME at a temp dir.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, name := range []string{config.EnvBaseURL, config.EnvAuthToken, config.EnvRefreshSec, config.EnvHTTPTimeoutSec, config.EnvAuthScheme} {
		t.Setenv(name, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Defaults(t *testing.T) {
	cmd := newRootCmd()
	f := cmd.Flags()

	tests := []struct {
		flag      string
		shorthand string
		value     string
	}{
		{"refresh-sec", "r", "300"},
		{"timeout-sec", "t", "20"},
		{"tick-rate", "", "250"},
		{"config", "c", ""},
		{"debug", "d", "false"},
		{"once", "", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			fl := f.Lookup(tt.flag)
			require.NotNil(t, fl)
			assert.Equal(t, tt.shorthand, fl.Shorthand)
			assert.Equal(t, tt.value, fl.DefValue)
		})
	}
}

func TestOverridesFromFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	opts := &rootOptions{}
	cmd.Flags().Uint64VarP(&opts.refreshSec, "refresh-sec", "r", 300, "")
	cmd.Flags().Uint64VarP(&opts.timeoutSec, "timeout-sec", "t", 20, "")
	require.NoError(t, cmd.Flags().Parse([]string{"-r", "10"}))

	o := overridesFromFlags(cmd, opts)
	require.NotNil(t, o.RefreshSec)
	assert.Equal(t, uint64(10), *o.RefreshSec)
	assert.Nil(t, o.HTTPTimeoutSec, "unset flags do not override the config")
}

func TestRun_Once(t *testing.T) {
	isolate(t)
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(quotaBody))
	}))
	defer srv.Close()

	t.Setenv(config.EnvBaseURL, srv.URL+"/api/anthropic")
	t.Setenv(config.EnvAuthToken, "once-token-0123456789")

	out, err := execute(t, "--once", "--no-env-files", "-t", "5")
	require.NoError(t, err)

	assert.Equal(t, "once-token-0123456789", gotAuth)
	assert.Contains(t, out, `"plan": "lite"`)
	assert.Contains(t, out, `"kind": "TIME_LIMIT"`)
	assert.Contains(t, out, `"used": 7`)
	assert.NotContains(t, out, "resets_at", "zero reset times are omitted")
}

func TestRun_OnceFetchError(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	t.Setenv(config.EnvBaseURL, srv.URL)
	t.Setenv(config.EnvAuthToken, "bad")

	_, err := execute(t, "--once", "--no-env-files")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch usage: status (401): invalid API key")

	var cfgErr *configError
	assert.False(t, errors.As(err, &cfgErr))
}

func TestRun_ConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		args    []string
		wantErr error
		substr  string
	}{
		{
			name:    "missing base url",
			args:    []string{"--once", "--no-env-files"},
			wantErr: config.ErrMissingBaseURL,
		},
		{
			name:    "missing token",
			env:     map[string]string{config.EnvBaseURL: "https://api.z.ai/api/anthropic"},
			args:    []string{"--once", "--no-env-files"},
			wantErr: config.ErrMissingAuthToken,
		},
		{
			name:   "zero refresh flag",
			env:    map[string]string{config.EnvBaseURL: "https://api.z.ai", config.EnvAuthToken: "tok"},
			args:   []string{"--once", "--no-env-files", "-r", "0"},
			substr: "refresh_sec",
		},
		{
			name:   "tick rate too small",
			env:    map[string]string{config.EnvBaseURL: "https://api.z.ai", config.EnvAuthToken: "tok"},
			args:   []string{"--once", "--no-env-files", "--tick-rate", "1"},
			substr: "--tick-rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := execute(t, tt.args...)
			require.Error(t, err)

			var cfgErr *configError
			require.ErrorAs(t, err, &cfgErr)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.substr != "" {
				assert.Contains(t, err.Error(), tt.substr)
			}
		})
	}
}

func TestRun_RejectsArgs(t *testing.T) {
	isolate(t)
	_, err := execute(t, "extra")
	assert.Error(t, err)
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	reportError(&buf, &configError{err: config.ErrMissingAuthToken})
	assert.Contains(t, buf.String(), "Error: auth token is not set")
	assert.Contains(t, buf.String(), "Hint: set ANTHROPIC_BASE_URL and ANTHROPIC_AUTH_TOKEN")

	buf.Reset()
	reportError(&buf, errors.New("render: broken pipe"))
	assert.Equal(t, "Error: render: broken pipe\n", buf.String())
}

func TestLoadEnvFiles(t *testing.T) {
	const name = "GLM_USAGE_TEST_FROM_ENV_FILE"
	t.Setenv(name, "")
	require.NoError(t, os.Unsetenv(name))
	t.Setenv("GLM_USAGE_TEST_PRESET", "shell")

	dir := t.TempDir()
	first := filepath.Join(dir, "first.env")
	second := filepath.Join(dir, "second.env")
	require.NoError(t, os.WriteFile(first, []byte(name+"=first\nGLM_USAGE_TEST_PRESET=file\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte(name+"=second\n"), 0o600))

	loadEnvFiles(filepath.Join(dir, "missing.env"), first, second)

	assert.Equal(t, "first", os.Getenv(name), "earlier files win")
	assert.Equal(t, "shell", os.Getenv("GLM_USAGE_TEST_PRESET"), "environment wins over files")
}

func TestOpenLogOutput(t *testing.T) {
	f, err := openLogOutput("")
	require.NoError(t, err)
	assert.Equal(t, os.DevNull, f.Name())
	require.NoError(t, f.Close())

	path := filepath.Join(t.TempDir(), "logs", "monitor.log")
	f, err = openLogOutput(path)
	require.NoError(t, err)
	setupLogging(true, f)
	require.NoError(t, f.Close())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
