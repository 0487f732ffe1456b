// Package fileutil provides unified file system access for both real and embedded file systems.
package fileutil

import (
	"io/fs"
	"os"
	"path"
	"strings"
)

// FileSystem は実ファイルシステムと埋め込みファイルシステムを統一的に扱うインターフェース
type FileSystem interface {
	// ReadFile はファイルの内容を読み込む（大文字小文字を無視）
	ReadFile(name string) ([]byte, error)
	// ReadDir はディレクトリの内容を読み込む
	ReadDir(name string) ([]fs.DirEntry, error)
	// WalkDir はディレクトリを再帰的に走査する。パスはルートからの相対パス
	WalkDir(root string, fn fs.WalkDirFunc) error
	// BasePath はベースパスを返す
	BasePath() string
	// IsEmbedded は埋め込みファイルシステムかどうかを返す
	IsEmbedded() bool
}

// RealFS はディレクトリ配下の実ファイルへのアクセスを提供する
type RealFS struct {
	subFS
}

// NewRealFS は実ファイルシステム用のFileSystemを作成する
func NewRealFS(basePath string) *RealFS {
	if basePath == "" {
		basePath = "."
	}
	return &RealFS{subFS{fsys: os.DirFS(basePath), basePath: basePath}}
}

// IsEmbedded implements FileSystem.
func (r *RealFS) IsEmbedded() bool { return false }

// EmbedFS は埋め込みファイルシステムへのアクセスを提供する
// basePath は fsys 内のサブディレクトリ
type EmbedFS struct {
	subFS
}

// NewEmbedFS は埋め込みファイルシステム用のFileSystemを作成する
func NewEmbedFS(fsys fs.FS, basePath string) *EmbedFS {
	return &EmbedFS{subFS{fsys: fsys, basePath: basePath, prefix: strings.Trim(basePath, "/")}}
}

// IsEmbedded implements FileSystem.
func (e *EmbedFS) IsEmbedded() bool { return true }

// subFS は fs.FS 上の共通実装
// prefix は fsys 内でのルートディレクトリ（RealFS では空）
type subFS struct {
	fsys     fs.FS
	basePath string
	prefix   string
}

func (s *subFS) BasePath() string {
	return s.basePath
}

func (s *subFS) ReadFile(name string) ([]byte, error) {
	p := s.resolve(name)
	if data, err := fs.ReadFile(s.fsys, p); err == nil {
		return data, nil
	}
	// 大文字小文字を無視して検索
	actual, err := FindFileCaseInsensitive(s.fsys, path.Dir(p), path.Base(p))
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(s.fsys, actual)
}

func (s *subFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(s.fsys, s.resolve(name))
}

func (s *subFS) WalkDir(root string, fn fs.WalkDirFunc) error {
	return fs.WalkDir(s.fsys, s.resolve(root), func(p string, d fs.DirEntry, err error) error {
		return fn(s.relative(p), d, err)
	})
}

// resolve は name を fsys 内のパスに変換する
// 先頭の "/" や "\" を除去し、区切り文字を "/" に統一する
func (s *subFS) resolve(name string) string {
	clean := strings.ReplaceAll(name, "\\", "/")
	clean = path.Clean("/" + clean)[1:]
	if clean == "" {
		clean = "."
	}
	if s.prefix == "" {
		return clean
	}
	if clean == "." {
		return s.prefix
	}
	return s.prefix + "/" + clean
}

func (s *subFS) relative(p string) string {
	if s.prefix == "" {
		return p
	}
	if p == s.prefix {
		return "."
	}
	return strings.TrimPrefix(p, s.prefix+"/")
}
