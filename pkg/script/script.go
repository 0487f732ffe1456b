// Package script はステージのスクリプトファイル（.bs）を読み込む
package script

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/zurustar/danmaku/pkg/fileutil"
)

// Extension はスクリプトファイルの拡張子
const Extension = ".bs"

// Script はスクリプトファイルを表す
type Script struct {
	Name     string // 拡張子を除いたパス（spawn で参照する名前）
	FileName string // ベースパスからの相対パス
	Content  string // UTF-8に変換された内容
	Encoding string // 検出したエンコーディング
	Size     int64  // ファイルサイズ
}

// Loader はスクリプトファイルの読み込みを行う
type Loader struct {
	fs fileutil.FileSystem
}

// NewLoader はディレクトリから読み込むLoaderを作成する
func NewLoader(basePath string) *Loader {
	return NewLoaderWithFS(fileutil.NewRealFS(basePath))
}

// NewLoaderWithFS は任意のFileSystemから読み込むLoaderを作成する
func NewLoaderWithFS(fsys fileutil.FileSystem) *Loader {
	return &Loader{fs: fsys}
}

// LoadAllScripts すべての.bsファイルを名前順に読み込む
func (l *Loader) LoadAllScripts() ([]Script, error) {
	scriptFiles, err := l.findScriptFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to find script files: %w", err)
	}

	if len(scriptFiles) == 0 {
		return nil, fmt.Errorf("no script files found in %s", l.fs.BasePath())
	}

	scripts := make([]Script, 0, len(scriptFiles))
	for _, filePath := range scriptFiles {
		s, err := l.LoadScript(filePath)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, *s)
	}

	return scripts, nil
}

// LoadScript 単一のスクリプトファイルを読み込む
func (l *Loader) LoadScript(name string) (*Script, error) {
	data, err := l.fs.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load script %s: %w", name, err)
	}

	content, enc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load script %s: %w", name, err)
	}

	fileName := strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "/")
	return &Script{
		Name:     ScriptName(fileName),
		FileName: fileName,
		Content:  content,
		Encoding: enc,
		Size:     int64(len(data)),
	}, nil
}

// findScriptFiles .bsファイルを検出（拡張子はcase-insensitive）
func (l *Loader) findScriptFiles() ([]string, error) {
	var scriptFiles []string

	err := l.fs.WalkDir(".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(path.Ext(p), Extension) {
			scriptFiles = append(scriptFiles, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(scriptFiles)
	return scriptFiles, nil
}

// ScriptName はファイル名から拡張子を除いた名前を返す
func ScriptName(fileName string) string {
	ext := path.Ext(fileName)
	if strings.EqualFold(ext, Extension) {
		return fileName[:len(fileName)-len(ext)]
	}
	return fileName
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode はスクリプトの内容をUTF-8文字列に変換する
// BOM付きUTF-8/UTF-16、BOMなしUTF-8、それ以外はShift-JISとして扱う
func Decode(data []byte) (string, string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(data[len(bomUTF8):]), "utf-8", nil
	case bytes.HasPrefix(data, bomUTF16LE):
		s, err := decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), data)
		return s, "utf-16le", err
	case bytes.HasPrefix(data, bomUTF16BE):
		s, err := decodeWith(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), data)
		return s, "utf-16be", err
	case utf8.Valid(data):
		return string(data), "utf-8", nil
	}

	s, err := decodeWith(japanese.ShiftJIS, data)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode Shift-JIS: %w", err)
	}
	return s, "shift_jis", nil
}

func decodeWith(enc encoding.Encoding, data []byte) (string, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
