package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"stages/sample/stage.toml": {Data: []byte("[stage]\ntitle = \"Sample\"\n")},
		"stages/sample/main.bs":    {Data: []byte("yield;")},
		"stages/sample/shot.BS":    {Data: []byte("yield;")},
		"stages/boss/main.bs":      {Data: []byte("yield;")},
		"stages/boss/notes.txt":    {Data: []byte("-")},
		"stages/README":            {Data: []byte("not a stage")},
	}
}

func TestNewRegistry(t *testing.T) {
	t.Run("detects embedded stages", func(t *testing.T) {
		r := NewRegistry(testFS())
		stages := r.Stages()
		if len(stages) != 2 {
			t.Fatalf("expected 2 stages, got %d", len(stages))
		}
		// 名前順
		if stages[0].Name != "boss" || stages[1].Name != "sample" {
			t.Errorf("unexpected order: %+v", stages)
		}
		if stages[1].Title != "Sample" || stages[1].Scripts != 2 || !stages[1].IsEmbedded {
			t.Errorf("sample = %+v", stages[1])
		}
		if stages[0].Title != "" || stages[0].Scripts != 1 {
			t.Errorf("boss = %+v", stages[0])
		}
	})

	t.Run("nil file system", func(t *testing.T) {
		r := NewRegistry(nil)
		if len(r.Stages()) != 0 {
			t.Errorf("expected no stages, got %+v", r.Stages())
		}
	})

	t.Run("no stages directory", func(t *testing.T) {
		r := NewRegistry(fstest.MapFS{"other/main.bs": {Data: []byte("yield;")}})
		if len(r.Stages()) != 0 {
			t.Errorf("expected no stages, got %+v", r.Stages())
		}
	})
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name    string
		fsys    fstest.MapFS
		stage   string
		want    string
		wantErr string
	}{
		{"default stage among many", testFS(), "", "sample", ""},
		{"by name", testFS(), "boss", "boss", ""},
		{"case-insensitive", testFS(), "BOSS", "boss", ""},
		{"unknown", testFS(), "nope", "", `stage "nope" not found (available: boss, sample)`},
		{"single stage is auto-selected", fstest.MapFS{"stages/only/main.bs": {Data: []byte("yield;")}}, "", "only", ""},
		{"none", fstest.MapFS{}, "", "", "no stages available"},
		{"many without default", fstest.MapFS{
			"stages/a/main.bs": {Data: []byte("yield;")},
			"stages/b/main.bs": {Data: []byte("yield;")},
		}, "", "", `stage "sample" not found`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := NewRegistry(tt.fsys).Select(tt.stage)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if st.Name != tt.want {
				t.Errorf("selected %q, want %q", st.Name, tt.want)
			}
		})
	}
}

func TestLoadExternal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my-stage")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.bs"), []byte("yield;"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stage.toml"), []byte("[stage]\ntitle = \"Mine\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Run("external stage hides embedded ones", func(t *testing.T) {
		r := NewRegistry(testFS())
		if err := r.LoadExternal(dir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		stages := r.Stages()
		if len(stages) != 1 || stages[0].Name != "my-stage" || stages[0].IsEmbedded {
			t.Fatalf("stages = %+v", stages)
		}
		if !filepath.IsAbs(stages[0].Path) {
			t.Errorf("path should be absolute: %s", stages[0].Path)
		}

		st, err := r.Select("")
		if err != nil || st.Name != "my-stage" {
			t.Errorf("Select = %+v, %v", st, err)
		}
		if _, err := r.Select("boss"); err == nil {
			t.Error("selecting an embedded stage with an external one should fail")
		}

		data, err := r.FileSystem(st).ReadFile("MAIN.BS")
		if err != nil || string(data) != "yield;" {
			t.Errorf("ReadFile = %q, %v", data, err)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		err := NewRegistry(nil).LoadExternal(filepath.Join(dir, "missing"))
		if err == nil || !strings.Contains(err.Error(), "does not exist") {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("not a directory", func(t *testing.T) {
		err := NewRegistry(nil).LoadExternal(filepath.Join(dir, "main.bs"))
		if err == nil || !strings.Contains(err.Error(), "not a directory") {
			t.Errorf("err = %v", err)
		}
	})
}

func TestFileSystem_Embedded(t *testing.T) {
	r := NewRegistry(testFS())
	st, err := r.Select("sample")
	if err != nil {
		t.Fatal(err)
	}
	fsys := r.FileSystem(st)
	if !fsys.IsEmbedded() {
		t.Error("expected embedded file system")
	}
	if _, err := fsys.ReadFile("stage.toml"); err != nil {
		t.Errorf("ReadFile: %v", err)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{Stage{Name: "sample", Title: "Sample"}, "Sample"},
		{Stage{Name: "boss"}, "boss"},
	}
	for _, tt := range tests {
		if got := tt.stage.DisplayName(); got != tt.want {
			t.Errorf("DisplayName() = %q, want %q", got, tt.want)
		}
	}
}
