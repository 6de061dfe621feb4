package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/focusflow/internal/model"
)

type result struct {
	code     int
	out, err string
}

// env isolates one test from the user's config, credentials and env.
type env struct {
	t       *testing.T
	dataDir string
	config  string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, k := range []string{
		"FOCUSFLOW_VARIANT", "FOCUSFLOW_DATA_DIR", "FOCUSFLOW_BACKEND",
		"FOCUSFLOW_THEME", "FOCUSFLOW_SAMPLE_URL", "FOCUSFLOW_LOG_LEVEL", "FOCUSFLOW_TOKEN",
	} {
		t.Setenv(k, "")
	}
	return &env{
		t:       t,
		dataDir: t.TempDir(),
		config:  filepath.Join(home, "config.yaml"),
	}
}

func (e *env) writeConfig(body string) {
	e.t.Helper()
	require.NoError(e.t, os.WriteFile(e.config, []byte(body), 0o600))
}

func (e *env) runIn(stdin string, args ...string) result {
	e.t.Helper()
	full := append([]string{"--config", e.config, "--data-dir", e.dataDir, "--theme", "mono"}, args...)
	var out, errOut bytes.Buffer
	code := Execute(full, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, out: out.String(), err: errOut.String()}
}

func (e *env) run(args ...string) result {
	e.t.Helper()
	return e.runIn("", args...)
}

func (e *env) stored(key string) []model.Record {
	e.t.Helper()
	b, err := os.ReadFile(filepath.Join(e.dataDir, key+".json"))
	require.NoError(e.t, err)
	var list []model.Record
	require.NoError(e.t, json.Unmarshal(b, &list))
	return list
}

func TestAddListToggleRemove(t *testing.T) {
	e := newEnv(t)

	r := e.run("add", "Buy", "milk", "--notes", "2 litres")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "added")

	r = e.run("add", "Call", "Sam")
	require.Equal(t, ExitOK, r.code, r.err)

	list := e.stored("focusflow.tasks")
	require.Len(t, list, 2)
	assert.Equal(t, "Call Sam", list[0].Title)
	assert.Equal(t, "Buy milk", list[1].Title)
	assert.Equal(t, "2 litres", list[1].Notes)

	r = e.run("ls")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, " 1. [ ] Call Sam")
	assert.Contains(t, r.out, " 2. [ ] Buy milk")
	assert.Contains(t, r.out, "2 litres")
	assert.Contains(t, r.out, "no notes")

	r = e.run("done", "2")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, `toggled "Buy milk": done`)
	assert.True(t, e.stored("focusflow.tasks")[1].Done)

	r = e.run("ls", "--hide-done")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, " 1. [ ] Call Sam")
	assert.NotContains(t, r.out, "Buy milk")

	r = e.run("ls", "--group")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Less(t, strings.Index(r.out, "Pending"), strings.Index(r.out, "Call Sam"))
	assert.Less(t, strings.Index(r.out, "Done"), strings.Index(r.out, "Buy milk"))

	// ids and unique id prefixes work as refs too
	id := e.stored("focusflow.tasks")[0].ID
	r = e.run("rm", id[:8])
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "removed")

	list = e.stored("focusflow.tasks")
	require.Len(t, list, 1)
	assert.Equal(t, "Buy milk", list[0].Title)
}

func TestListEmptyMessages(t *testing.T) {
	e := newEnv(t)

	r := e.run("ls")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "no records yet, add one")

	require.Equal(t, ExitOK, e.run("add", "x").code)
	require.Equal(t, ExitOK, e.run("done", "1").code)

	r = e.run("ls", "--hide-done")
	assert.Contains(t, r.out, "no active records")
}

func TestUsageErrors(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, ExitOK, e.run("add", "only").code)

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"done without ref", []string{"done"}, "usage: focusflow done"},
		{"done out of range", []string{"done", "5"}, "not found"},
		{"rm unknown id", []string{"rm", "nope"}, "not found"},
		{"add without title", []string{"add"}, "usage: focusflow add"},
		{"add blank title", []string{"add", "   "}, "empty title"},
		{"unknown flag", []string{"ls", "--bogus"}, "unknown flag"},
		{"unknown command", []string{"frobnicate"}, "takes no arguments"},
		{"bad variant", []string{"--variant", "shopping", "ls"}, "unknown variant"},
		{"roast in todo variant", []string{"roast", "Sam"}, "roast variant"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := e.run(tc.args...)
			assert.Equal(t, ExitUsage, r.code)
			assert.Contains(t, r.err, tc.want)
			assert.Contains(t, r.err, "Usage:")
		})
	}

	assert.Len(t, e.stored("focusflow.tasks"), 1)
}

func TestClear(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, ExitOK, e.run("add", "a").code)
	require.Equal(t, ExitOK, e.run("add", "b").code)

	t.Run("declined", func(t *testing.T) {
		r := e.runIn("n\n", "clear")
		require.Equal(t, ExitOK, r.code, r.err)
		assert.Contains(t, r.out, "[y/N]")
		assert.Contains(t, r.out, "clear cancelled")
		assert.Len(t, e.stored("focusflow.tasks"), 2)
	})

	t.Run("no answer", func(t *testing.T) {
		r := e.runIn("", "clear")
		require.Equal(t, ExitOK, r.code, r.err)
		assert.Len(t, e.stored("focusflow.tasks"), 2)
	})

	t.Run("confirmed", func(t *testing.T) {
		r := e.runIn("y\n", "clear")
		require.Equal(t, ExitOK, r.code, r.err)
		assert.Contains(t, r.out, "cleared")
		assert.Empty(t, e.stored("focusflow.tasks"))
	})

	t.Run("nothing to clear", func(t *testing.T) {
		r := e.runIn("y\n", "clear")
		require.Equal(t, ExitOK, r.code, r.err)
		assert.Contains(t, r.out, "nothing to clear")
		assert.NotContains(t, r.out, "[y/N]")
	})

	t.Run("yes flag", func(t *testing.T) {
		require.Equal(t, ExitOK, e.run("add", "c").code)
		r := e.run("clear", "--yes")
		require.Equal(t, ExitOK, r.code, r.err)
		assert.Empty(t, e.stored("focusflow.tasks"))
	})
}

func TestSample(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"title":"delectus aut autem","completed":false},{"title":"quis ut nam","completed":true}]`)
	}))
	defer srv.Close()

	e := newEnv(t)
	t.Setenv("FOCUSFLOW_SAMPLE_URL", srv.URL)
	require.Equal(t, ExitOK, e.run("add", "mine").code)

	r := e.run("sample")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "imported 2 sample records")

	list := e.stored("focusflow.tasks")
	require.Len(t, list, 3)
	assert.Equal(t, "delectus aut autem", list[0].Title)
	assert.Equal(t, "quis ut nam", list[1].Title)
	assert.True(t, list[1].Done)
	assert.Equal(t, "Imported from sample source", list[0].Notes)
	assert.Equal(t, "mine", list[2].Title)
}

func TestSampleFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := newEnv(t)
	t.Setenv("FOCUSFLOW_SAMPLE_URL", srv.URL)
	require.Equal(t, ExitOK, e.run("add", "mine").code)

	r := e.run("sample")
	assert.Equal(t, ExitError, r.code)
	assert.Contains(t, r.err, "sample request failed, try again later")
	assert.Len(t, e.stored("focusflow.tasks"), 1)
}

func TestRoastVariant(t *testing.T) {
	probe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer probe.Close()

	e := newEnv(t)
	e.writeConfig("variant: roast\nroast_delay: 0s\nprobe_url: " + probe.URL + "\n")

	r := e.run("roast", "Sam")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "Sam")

	list := e.stored("focusflow.roasts")
	require.Len(t, list, 1)
	assert.Equal(t, "roast of Sam", list[0].Notes)
	assert.Contains(t, list[0].Title, "Sam")
	assert.NoFileExists(t, filepath.Join(e.dataDir, "focusflow.tasks.json"))

	r = e.run("ls")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "Roasts")

	r = e.run("sample")
	assert.Equal(t, ExitUsage, r.code)
}

func TestSQLiteBackend(t *testing.T) {
	e := newEnv(t)

	require.Equal(t, ExitOK, e.run("--backend", "sqlite", "add", "persisted").code)
	r := e.run("--backend", "sqlite", "ls")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "persisted")
	assert.FileExists(t, filepath.Join(e.dataDir, "focusflow.db"))
	assert.NoFileExists(t, filepath.Join(e.dataDir, "focusflow.tasks.json"))
}

func TestAuth(t *testing.T) {
	e := newEnv(t)

	r := e.run("auth", "status")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "not logged in")

	r = e.run("auth", "whoami")
	assert.Equal(t, ExitUsage, r.code)

	r = e.runIn("\n", "auth", "login")
	assert.Equal(t, ExitUsage, r.code)

	r = e.runIn("Bearer opaque-token\n", "auth", "login")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "logged in")

	assert.FileExists(t, filepath.Join(filepath.Dir(e.config), "credentials.yaml"))

	r = e.run("auth", "status")
	assert.Contains(t, r.out, "source: file")
	assert.Contains(t, r.out, "expires: (unknown)")

	r = e.run("auth", "whoami")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "Opaque token")

	r = e.run("auth", "logout")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "logged out")

	t.Setenv("FOCUSFLOW_TOKEN", "header.eyJzdWIiOiJzYW0ifQ.sig")
	r = e.run("auth", "whoami")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, `{"sub":"sam"}`)

	r = e.run("auth", "logout")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "nothing to delete")

	// auth never opens the store
	assert.NoFileExists(t, filepath.Join(e.dataDir, "focusflow.tasks.json"))
}

func TestSampleSendsToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	e := newEnv(t)
	t.Setenv("FOCUSFLOW_SAMPLE_URL", srv.URL)
	t.Setenv("FOCUSFLOW_TOKEN", "tok")

	r := e.run("sample")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "imported 0 sample records")
	assert.Equal(t, "Bearer tok", got)
}

func TestConfigInit(t *testing.T) {
	e := newEnv(t)

	r := e.run("--variant", "roast", "config", "init")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Contains(t, r.out, "wrote "+e.config)

	b, err := os.ReadFile(e.config)
	require.NoError(t, err)
	assert.Contains(t, string(b), "variant: roast")
	assert.Contains(t, string(b), "sample_timeout: 10s")

	r = e.run("config", "init")
	assert.Equal(t, ExitError, r.code)
	assert.Contains(t, r.err, "already exists")

	r = e.run("--variant", "todo", "config", "init", "--force")
	require.Equal(t, ExitOK, r.code, r.err)

	r = e.run("config", "path")
	require.Equal(t, ExitOK, r.code, r.err)
	assert.Equal(t, e.config+"\n", r.out)

	// the written file is picked up by the next run
	require.Equal(t, ExitOK, e.run("add", "after init").code)
	assert.Len(t, e.stored("focusflow.tasks"), 1)
}
