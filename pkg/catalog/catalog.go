// Package catalog は埋め込み・外部のステージを一覧し、実行するステージを選ぶ
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zurustar/danmaku/pkg/config"
	"github.com/zurustar/danmaku/pkg/fileutil"
	"github.com/zurustar/danmaku/pkg/script"
)

// Root は埋め込みファイルシステム内でステージを置くディレクトリ
const Root = "stages"

// DefaultStage は複数のステージから選ばれなかったときに使うステージ名
const DefaultStage = "sample"

// Stage は実行できるステージを表す
type Stage struct {
	Name       string // ステージ名（ディレクトリ名）
	Path       string // ステージのパス（embedの場合は仮想パス）
	IsEmbedded bool   // embedされたステージかどうか
	Title      string // stage.toml の stage.title（読めなければ空）
	Scripts    int    // .bs ファイルの数
}

// Registry はステージの管理を行う
type Registry struct {
	embedded []Stage // embedされたステージ一覧
	external *Stage  // 外部から指定されたステージ
	embedFS  fs.FS   // embedされたファイルシステム
}

// NewRegistry Registryを作成
// embedFS が nil の場合は埋め込みステージなしとして扱う
func NewRegistry(embedFS fs.FS) *Registry {
	r := &Registry{embedFS: embedFS}
	r.loadEmbeddedStages()
	return r
}

// loadEmbeddedStages embedされたステージを検出して読み込む
func (r *Registry) loadEmbeddedStages() {
	if r.embedFS == nil {
		return
	}
	entries, err := fs.ReadDir(r.embedFS, Root)
	if err != nil {
		// stagesディレクトリがなければ何もしない
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p := path.Join(Root, entry.Name())
		st := Stage{
			Name:       entry.Name(),
			Path:       p,
			IsEmbedded: true,
		}
		describe(&st, fileutil.NewEmbedFS(r.embedFS, p))
		r.embedded = append(r.embedded, st)
	}
	sort.Slice(r.embedded, func(i, j int) bool { return r.embedded[i].Name < r.embedded[j].Name })
}

// describe は stage.toml とスクリプト数からステージの情報を埋める
// 読めない設定はここでは無視し、実行時にエラーとして扱う
func describe(st *Stage, fsys fileutil.FileSystem) {
	if cfg, err := config.Load(fsys); err == nil && cfg.Stage.Title != config.Default().Stage.Title {
		st.Title = cfg.Stage.Title
	}
	_ = fsys.WalkDir(".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.EqualFold(path.Ext(p), script.Extension) {
			st.Scripts++
		}
		return nil
	})
}

// LoadExternal 外部ディレクトリのステージを読み込む
func (r *Registry) LoadExternal(dir string) error {
	// ディレクトリの存在確認
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stage directory does not exist: %s", dir)
		}
		return fmt.Errorf("failed to access stage directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("stage path is not a directory: %s", dir)
	}

	// 絶対パスに変換
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	st := &Stage{
		Name: filepath.Base(absPath),
		Path: absPath,
	}
	describe(st, fileutil.NewRealFS(absPath))
	r.external = st
	return nil
}

// Stages 利用可能なステージ一覧を取得
// 外部ステージが指定されている場合はそれのみを返す
func (r *Registry) Stages() []Stage {
	if r.external != nil {
		return []Stage{*r.external}
	}
	return append([]Stage(nil), r.embedded...)
}

// Select 実行するステージを選ぶ
// name が空の場合、ステージが1つならそれを、複数なら DefaultStage を選ぶ
func (r *Registry) Select(name string) (*Stage, error) {
	stages := r.Stages()
	if len(stages) == 0 {
		return nil, errors.New("no stages available")
	}

	if r.external != nil {
		if name != "" && name != r.external.Name {
			return nil, fmt.Errorf("stage %q cannot be selected together with an external stage", name)
		}
		return &stages[0], nil
	}

	if name == "" {
		if len(stages) == 1 {
			// 単一のステージの場合は自動選択
			return &stages[0], nil
		}
		name = DefaultStage
	}

	for i := range stages {
		if strings.EqualFold(stages[i].Name, name) {
			return &stages[i], nil
		}
	}
	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = st.Name
	}
	return nil, fmt.Errorf("stage %q not found (available: %s)", name, strings.Join(names, ", "))
}

// FileSystem はステージのファイルを読むFileSystemを返す
func (r *Registry) FileSystem(st *Stage) fileutil.FileSystem {
	if st.IsEmbedded {
		return fileutil.NewEmbedFS(r.embedFS, st.Path)
	}
	return fileutil.NewRealFS(st.Path)
}

// DisplayName はステージの表示名を返す
// stage.toml に title があればそれを、なければディレクトリ名を返す
func (s *Stage) DisplayName() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Name
}
