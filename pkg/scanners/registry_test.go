package scanners

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/reconkit/pkg/core"
	"github.com/exploopio/reconkit/pkg/errors"
)

func TestOrder(t *testing.T) {
	assert.Equal(t, []string{"sqlmap", "nuclei", "subfinder", "wapiti"}, Order())
	assert.Equal(t, []string{"nuclei", "sqlmap", "subfinder", "wapiti"}, NewRegistry().Names())
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		flag     string
		protocol bool
	}{
		{"sqlmap", "-u", false},
		{"nuclei", "-u", false},
		{"subfinder", "-d", false},
		{"wapiti", "-u", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool, ok := Lookup(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.name, tool.Name())
			assert.Equal(t, tt.name, tool.Binary)
			assert.Equal(t, tt.flag, tool.TargetFlag)
			assert.Equal(t, tt.protocol, tool.RequiresProtocol)
		})
	}

	_, ok := Lookup("nmap")
	assert.False(t, ok)
}

func TestLookup_ReturnsCopy(t *testing.T) {
	tool, _ := Lookup("sqlmap")
	tool.Binary = "/tmp/other"

	again, _ := Lookup("sqlmap")
	assert.Equal(t, "sqlmap", again.Binary)
}

func TestApplyProtocol(t *testing.T) {
	tests := []struct {
		target   string
		expected string
	}{
		{"example.com", "http://example.com"},
		{"http://example.com", "http://example.com"},
		{"https://example.com/path", "https://example.com/path"},
		{"ftp://example.com", "http://ftp://example.com"},
		{"HTTP://example.com", "http://HTTP://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.expected, ApplyProtocol(tt.target))
		})
	}
}

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name     string
		tool     *Tool
		target   string
		params   string
		expected []string
	}{
		{
			name:     "sqlmap with params",
			tool:     Sqlmap(),
			target:   "http://x/?id=1",
			params:   "--batch  --level 3",
			expected: []string{"-u", "http://x/?id=1", "--batch", "--level", "3"},
		},
		{
			name:     "subfinder uses domain flag",
			tool:     Subfinder(),
			target:   "example.com",
			expected: []string{"-d", "example.com"},
		},
		{
			name:     "wapiti gains scheme",
			tool:     Wapiti(),
			target:   "example.com",
			expected: []string{"-u", "http://example.com"},
		},
		{
			name:     "wapiti keeps https",
			tool:     Wapiti(),
			target:   "https://example.com",
			params:   "-m sql",
			expected: []string{"-u", "https://example.com", "-m", "sql"},
		},
		{
			name:     "nuclei leaves bare host alone",
			tool:     Nuclei(),
			target:   "example.com",
			expected: []string{"-u", "example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.tool.BuildArgs(tt.target, SplitParams(tt.params)))
		})
	}
}

func TestCommand(t *testing.T) {
	tool := Wapiti()
	tool.Binary = "/opt/wapiti/bin/wapiti"

	cmd := tool.Command("example.com", &core.ScanOptions{ExtraArgs: []string{"--flush-session"}})
	assert.Equal(t, []string{"/opt/wapiti/bin/wapiti", "-u", "http://example.com", "--flush-session"}, cmd)
	assert.Equal(t, []string{"/opt/wapiti/bin/wapiti", "-u", "http://example.com"}, tool.Command("example.com", nil))
}

func TestWithOverrides(t *testing.T) {
	base := NewRegistry()
	r := base.WithOverrides(map[string]Override{
		"nuclei": {Binary: "/usr/local/bin/nuclei", Timeout: time.Minute},
		"nmap":   {Binary: "/usr/bin/nmap"},
	})

	nuclei, _ := r.Get("nuclei")
	assert.Equal(t, "/usr/local/bin/nuclei", nuclei.Binary)
	assert.Equal(t, time.Minute, nuclei.Timeout)

	original, _ := base.Get("nuclei")
	assert.Equal(t, "nuclei", original.Binary, "base registry is untouched")

	_, ok := r.Get("nmap")
	assert.False(t, ok)
	assert.Equal(t, base.Order(), r.Order())
}

func TestRegister_ReplaceKeepsOrder(t *testing.T) {
	r := NewRegistry()
	custom := NewTool("nuclei", "-target", false)
	r.Register(custom)

	got, _ := r.Get("nuclei")
	assert.Same(t, custom, got)
	assert.Equal(t, []string{"sqlmap", "nuclei", "subfinder", "wapiti"}, r.Order())
}

func TestScan(t *testing.T) {
	var captured *core.ExecConfig
	fake := func(exitCode int, stdout, stderr string, err error) core.Executor {
		return func(ctx context.Context, cfg *core.ExecConfig) (*core.ExecResult, error) {
			captured = cfg
			return &core.ExecResult{Stdout: []byte(stdout), Stderr: []byte(stderr), ExitCode: exitCode}, err
		}
	}

	t.Run("success", func(t *testing.T) {
		tool := Wapiti()
		tool.Timeout = time.Hour
		tool.SetExecutor(fake(0, "report", "", nil))

		res, err := tool.Scan(context.Background(), "example.com", &core.ScanOptions{ExtraArgs: []string{"-v", "2"}})
		require.NoError(t, err)
		assert.Equal(t, "wapiti", captured.Binary)
		assert.Equal(t, []string{"-u", "http://example.com", "-v", "2"}, captured.Args)
		assert.Equal(t, time.Hour, captured.Timeout)
		assert.Equal(t, "report", string(res.RawOutput))
		assert.False(t, res.Failed())
	})

	t.Run("non-zero exit", func(t *testing.T) {
		tool := Sqlmap()
		tool.SetExecutor(fake(1, "", "bad url", nil))

		res, err := tool.Scan(context.Background(), "x", nil)
		require.Error(t, err)
		assert.True(t, errors.IsExternalError(err))
		assert.Equal(t, "bad url", res.Stderr)
		assert.True(t, res.Failed())
	})

	t.Run("start failure", func(t *testing.T) {
		tool := Nuclei()
		tool.SetExecutor(fake(-1, "", "", errors.E(errors.KindNotFound, "core.ExecuteScanner", "nuclei not found")))

		res, err := tool.Scan(context.Background(), "x", &core.ScanOptions{Timeout: time.Second})
		require.Error(t, err)
		assert.True(t, errors.IsNotFoundError(err))
		assert.Equal(t, time.Second, captured.Timeout, "per-scan timeout wins")
		assert.NotEmpty(t, res.Error)
	})

	t.Run("invalid options", func(t *testing.T) {
		captured = nil
		tool := Subfinder()
		tool.SetExecutor(fake(0, "", "", nil))

		_, err := tool.Scan(context.Background(), "x", &core.ScanOptions{Timeout: -time.Second})
		assert.Equal(t, errors.KindInvalidInput, errors.GetKind(err))
		assert.Nil(t, captured)
	})
}

func TestCheckInstalled(t *testing.T) {
	r := NewRegistry().WithOverrides(map[string]Override{
		"sqlmap": {Binary: "reconkit-missing-sqlmap"},
	})

	statuses := CheckInstalled(context.Background(), r)
	require.Len(t, statuses, 4)
	assert.Equal(t, "sqlmap", statuses[0].Name)
	assert.Equal(t, "reconkit-missing-sqlmap", statuses[0].Binary)
	assert.False(t, statuses[0].Installed)
	assert.Error(t, statuses[0].Err)
}
