package script

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/zurustar/danmaku/pkg/fileutil"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/test/path")
	if loader == nil {
		t.Fatal("NewLoader returned nil")
	}
	if loader.fs.BasePath() != "/test/path" {
		t.Errorf("expected basePath '/test/path', got %q", loader.fs.BasePath())
	}
}

func TestFindScriptFiles_CaseInsensitive(t *testing.T) {
	// テスト用の一時ディレクトリを作成
	tmpDir := t.TempDir()

	testFiles := []string{
		"main.bs",
		"bullet.BS",
		"helper.Bs",
		"stage.toml", // これは検出されないはず
	}
	for _, filename := range testFiles {
		if err := os.WriteFile(filepath.Join(tmpDir, filename), []byte("yield;"), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}
	}

	loader := NewLoader(tmpDir)
	scriptFiles, err := loader.findScriptFiles()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"bullet.BS", "helper.Bs", "main.bs"}
	if len(scriptFiles) != len(want) {
		t.Fatalf("expected %v, got %v", want, scriptFiles)
	}
	for i := range want {
		if scriptFiles[i] != want[i] {
			t.Errorf("scriptFiles[%d] = %q, want %q", i, scriptFiles[i], want[i])
		}
	}
}

func TestLoadScript_UTF8(t *testing.T) {
	tmpDir := t.TempDir()
	testContent := "print \"弾幕\";\nyield;"
	if err := os.WriteFile(filepath.Join(tmpDir, "test.bs"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	loader := NewLoader(tmpDir)
	s, err := loader.LoadScript("test.bs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.FileName != "test.bs" || s.Name != "test" {
		t.Errorf("FileName=%q Name=%q", s.FileName, s.Name)
	}
	if s.Content != testContent {
		t.Errorf("content mismatch:\nexpected: %q\ngot: %q", testContent, s.Content)
	}
	if s.Encoding != "utf-8" {
		t.Errorf("encoding = %q", s.Encoding)
	}
	if s.Size != int64(len(testContent)) {
		t.Errorf("size = %d", s.Size)
	}
}

func TestLoadScript_ShiftJIS(t *testing.T) {
	tmpDir := t.TempDir()
	testContent := "print \"これはShift-JISのテストです\";"

	// UTF-8からShift-JISに変換
	shiftJISContent, _, err := transform.String(japanese.ShiftJIS.NewEncoder(), testContent)
	if err != nil {
		t.Fatalf("failed to encode to Shift-JIS: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "TEST.BS"), []byte(shiftJISContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	loader := NewLoader(tmpDir)
	s, err := loader.LoadScript("test.bs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Content != testContent {
		t.Errorf("content mismatch:\nexpected: %q\ngot: %q", testContent, s.Content)
	}
	if s.Encoding != "shift_jis" {
		t.Errorf("encoding = %q", s.Encoding)
	}
}

func TestLoadScript_Missing(t *testing.T) {
	loader := NewLoader(t.TempDir())
	if _, err := loader.LoadScript("nothing.bs"); err == nil {
		t.Error("expected error for a missing script")
	}
}

func TestLoadAllScripts(t *testing.T) {
	fsys := fstest.MapFS{
		"stage/main.bs":           {Data: []byte("main script")},
		"stage/bullets/spiral.bs": {Data: []byte("spiral script")},
		"stage/stage.toml":        {Data: []byte("title = 'x'")},
	}
	loader := NewLoaderWithFS(fileutil.NewEmbedFS(fsys, "stage"))

	scripts, err := loader.LoadAllScripts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scripts) != 2 {
		t.Fatalf("expected 2 scripts, got %d", len(scripts))
	}

	// 名前順に並ぶ
	if scripts[0].Name != "bullets/spiral" || scripts[1].Name != "main" {
		t.Errorf("names = %q, %q", scripts[0].Name, scripts[1].Name)
	}
	if scripts[0].Content != "spiral script" {
		t.Errorf("content = %q", scripts[0].Content)
	}
}

func TestLoadAllScripts_NoScripts(t *testing.T) {
	loader := NewLoader(t.TempDir())
	if _, err := loader.LoadAllScripts(); err == nil {
		t.Error("expected error when no script files found, got nil")
	}
}

func TestLoadAllScripts_NonExistentDirectory(t *testing.T) {
	loader := NewLoader("/nonexistent/path")
	if _, err := loader.LoadAllScripts(); err == nil {
		t.Error("expected error for nonexistent directory, got nil")
	}
}

func TestDecode(t *testing.T) {
	utf16le, _, err := transform.String(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder(), "yield; # 待機")
	if err != nil {
		t.Fatal(err)
	}
	utf16be, _, err := transform.String(unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder(), "yield;")
	if err != nil {
		t.Fatal(err)
	}
	sjis, _, err := transform.String(japanese.ShiftJIS.NewEncoder(), "こんにちは世界")
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name     string
		input    []byte
		want     string
		encoding string
	}{
		{"英数字", []byte("Hello World 123"), "Hello World 123", "utf-8"},
		{"UTF-8 BOM", append([]byte{0xEF, 0xBB, 0xBF}, "print 1;"...), "print 1;", "utf-8"},
		{"UTF-16LE BOM", []byte(utf16le), "yield; # 待機", "utf-16le"},
		{"UTF-16BE BOM", []byte(utf16be), "yield;", "utf-16be"},
		{"日本語テキスト", []byte(sjis), "こんにちは世界", "shift_jis"},
		{"空", nil, "", "utf-8"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, enc, err := Decode(tc.input)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("Decode() = %q, want %q", got, tc.want)
			}
			if enc != tc.encoding {
				t.Errorf("encoding = %q, want %q", enc, tc.encoding)
			}
		})
	}
}

func TestScriptName(t *testing.T) {
	tests := map[string]string{
		"bullet.bs":     "bullet",
		"sub/Spiral.BS": "sub/Spiral",
		"stage.toml":    "stage.toml",
	}
	for in, want := range tests {
		if got := ScriptName(in); got != want {
			t.Errorf("ScriptName(%q) = %q, want %q", in, got, want)
		}
	}
}
