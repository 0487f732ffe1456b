package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/zurustar/danmaku/pkg/catalog"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HEADLESS", "")
	t.Setenv("TIMEOUT", "")
	t.Setenv("LOG_LEVEL", "")
}

// embeddedStage はテスト用の埋め込みステージ
func embeddedStage(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, data := range files {
		fsys[catalog.Root+"/sample/"+name] = &fstest.MapFile{Data: []byte(data)}
	}
	return fsys
}

func runApp(t *testing.T, embedded fstest.MapFS, args ...string) (string, error) {
	t.Helper()
	clearEnv(t)
	var out bytes.Buffer
	var application *Application
	if embedded == nil {
		application = New(nil)
	} else {
		application = New(embedded)
	}
	application.SetOutput(&out)
	err := application.Run(append([]string{"-l", "error"}, args...))
	return out.String(), err
}

func TestRun_Help(t *testing.T) {
	out, err := runApp(t, nil, "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Usage:") {
		t.Errorf("expected help, got %q", out)
	}
}

func TestRun_HeadlessEmbedded(t *testing.T) {
	t.Run("fixed number of ticks", func(t *testing.T) {
		fsys := embeddedStage(map[string]string{
			"main.bs": "while (true) { yield; }",
		})
		out, err := runApp(t, fsys, "--headless", "--ticks", "5")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Finished at tick 5") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("until all scripts finish", func(t *testing.T) {
		fsys := embeddedStage(map[string]string{
			"main.bs":    `print "hello"; spawn("shot", pos(), <<0, 0>>); yield;`,
			"shot.bs":    `print "shot";`,
			"stage.toml": "[stage]\ntitle = \"Test\"\n",
		})
		out, err := runApp(t, fsys, "--headless")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(out, "hello\nshot\n") {
			t.Errorf("unexpected output: %q", out)
		}
		if !strings.Contains(out, "2 spawned, 2 completed, 0 faulted") {
			t.Errorf("unexpected summary: %q", out)
		}
	})

	t.Run("faulted script does not fail the run", func(t *testing.T) {
		fsys := embeddedStage(map[string]string{
			"main.bs": `print 1 / 0;`,
		})
		out, err := runApp(t, fsys, "--headless")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "1 faulted") {
			t.Errorf("unexpected output: %q", out)
		}
	})
}

func TestRun_List(t *testing.T) {
	fsys := embeddedStage(map[string]string{
		"main.bs":    "yield;",
		"stage.toml": "[stage]\ntitle = \"Sample Stage\"\n",
	})
	fsys[catalog.Root+"/boss/main.bs"] = &fstest.MapFile{Data: []byte("yield;")}

	out, err := runApp(t, fsys, "--list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Available stages:", "boss", "Sample Stage (1 scripts)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q: %q", want, out)
		}
	}
}

func TestRun_SelectStage(t *testing.T) {
	fsys := embeddedStage(map[string]string{"main.bs": `print "sample";`})
	fsys[catalog.Root+"/boss/main.bs"] = &fstest.MapFile{Data: []byte(`print "boss";`)}

	t.Run("default", func(t *testing.T) {
		out, err := runApp(t, fsys, "--headless")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(out, "sample\n") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("by name", func(t *testing.T) {
		out, err := runApp(t, fsys, "--headless", "--stage", "boss")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(out, "boss\n") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := runApp(t, fsys, "--headless", "--stage", "nope")
		if err == nil || !strings.Contains(err.Error(), `stage "nope" not found`) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestRun_Disasm(t *testing.T) {
	fsys := embeddedStage(map[string]string{
		"main.bs": "print 1 + 2;",
		"shot.bs": "yield;",
	})
	out, err := runApp(t, fsys, "--disasm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mainAt := strings.Index(out, "[main]")
	shotAt := strings.Index(out, "[shot]")
	if mainAt < 0 || shotAt < 0 || mainAt > shotAt {
		t.Errorf("scripts should be listed in name order: %q", out)
	}
	if !strings.Contains(out, "ADD") {
		t.Errorf("expected disassembly, got %q", out)
	}
}

func TestRun_ExternalStage(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("boss.bs", `print "boss";`)
	write("stage.toml", "[stage]\nmain = \"boss\"\n")

	t.Run("reads stage.toml", func(t *testing.T) {
		out, err := runApp(t, nil, "--headless", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(out, "boss\n") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("--config overrides stage.toml", func(t *testing.T) {
		write("other.bs", `print "other";`)
		cfgPath := filepath.Join(t.TempDir(), "alt.toml")
		if err := os.WriteFile(cfgPath, []byte("[stage]\nmain = \"other\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		out, err := runApp(t, nil, "--headless", "--config", cfgPath, dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(out, "other\n") {
			t.Errorf("unexpected output: %q", out)
		}
	})
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.bs")
	if err := os.WriteFile(file, []byte("yield;"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		embedded fstest.MapFS
		args     []string
		want     string
	}{
		{
			name: "invalid flag",
			args: []string{"--ticks", "-3"},
			want: "failed to parse args",
		},
		{
			name: "no stage",
			args: []string{"--headless"},
			want: "no stages available",
		},
		{
			name: "missing directory",
			args: []string{"--headless", filepath.Join(dir, "missing")},
			want: "failed to open stage",
		},
		{
			name: "file instead of directory",
			args: []string{"--headless", file},
			want: "is not a directory",
		},
		{
			name:     "bad config",
			embedded: embeddedStage(map[string]string{"main.bs": "yield;", "stage.toml": "[stage]\ntps = 0\n"}),
			args:     []string{"--headless"},
			want:     "stage.tps must be positive",
		},
		{
			name:     "missing config file",
			embedded: embeddedStage(map[string]string{"main.bs": "yield;"}),
			args:     []string{"--headless", "--config", filepath.Join(dir, "none.toml")},
			want:     "failed to load config",
		},
		{
			name:     "compile error",
			embedded: embeddedStage(map[string]string{"main.bs": "print (1;"}),
			args:     []string{"--headless"},
			want:     "failed to compile scripts",
		},
		{
			name:     "no scripts",
			embedded: embeddedStage(map[string]string{"stage.toml": ""}),
			args:     []string{"--headless"},
			want:     "no script files found",
		},
		{
			name:     "main script missing",
			embedded: embeddedStage(map[string]string{"shot.bs": "yield;"}),
			args:     []string{"--headless"},
			want:     `script "main" not found`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runApp(t, tt.embedded, tt.args...)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err, tt.want)
			}
		})
	}
}
