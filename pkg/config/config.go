// Package config はステージ設定ファイル（stage.toml）を扱う
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/zurustar/danmaku/pkg/fileutil"
)

// FileName はステージディレクトリ直下の設定ファイル名
const FileName = "stage.toml"

// Config はステージ設定
type Config struct {
	Stage  Stage   `toml:"stage"`
	Limits Limits  `toml:"limits"`
	Player Player  `toml:"player"`
	Spawns []Spawn `toml:"spawn"`
}

// Stage はステージの基本情報
type Stage struct {
	Title  string `toml:"title"`
	Main   string `toml:"main"`   // 最初に起動するスクリプト名
	Width  int    `toml:"width"`  // アリーナの幅
	Height int    `toml:"height"` // アリーナの高さ
	TPS    int    `toml:"tps"`    // 1秒あたりのティック数
}

// Limits は実行時の上限
type Limits struct {
	MaxResumesPerTick int     `toml:"max_resumes_per_tick"`
	MaxEntities       int     `toml:"max_entities"`
	CullMargin        float64 `toml:"cull_margin"` // アリーナ外でエンティティを消すまでの余白
}

// Player は自機の初期位置
type Player struct {
	X float64 `toml:"x"`
	Y float64 `toml:"y"`
}

// Spawn は開始時に生成するエンティティ
type Spawn struct {
	Script string  `toml:"script"`
	X      float64 `toml:"x"`
	Y      float64 `toml:"y"`
	Speed  float64 `toml:"speed"`
	Angle  float64 `toml:"angle"` // 度
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Stage: Stage{
			Title:  "danmaku",
			Main:   "main",
			Width:  640,
			Height: 480,
			TPS:    60,
		},
		Limits: Limits{
			MaxResumesPerTick: 512,
			MaxEntities:       4096,
			CullMargin:        32,
		},
		Player: Player{X: 320, Y: 420},
	}
}

// Parse はTOMLを解析する。書かれていない項目はデフォルト値になる
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load はFileSystemのルートにある stage.toml を読み込む
// ファイルがなければデフォルト設定を返す
func Load(fsys fileutil.FileSystem) (*Config, error) {
	data, err := fsys.ReadFile(FileName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("cannot read %s: %w", FileName, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FileName, err)
	}
	return cfg, nil
}

// Validate は設定値の範囲を確認する
func (c *Config) Validate() error {
	var errs []error
	if c.Stage.Main == "" {
		errs = append(errs, errors.New("stage.main must not be empty"))
	}
	if c.Stage.Width <= 0 || c.Stage.Height <= 0 {
		errs = append(errs, fmt.Errorf("stage size must be positive, got %dx%d", c.Stage.Width, c.Stage.Height))
	}
	if c.Stage.TPS <= 0 {
		errs = append(errs, fmt.Errorf("stage.tps must be positive, got %d", c.Stage.TPS))
	}
	if c.Limits.MaxResumesPerTick <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_resumes_per_tick must be positive, got %d", c.Limits.MaxResumesPerTick))
	}
	if c.Limits.MaxEntities <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_entities must be positive, got %d", c.Limits.MaxEntities))
	}
	if c.Limits.CullMargin < 0 {
		errs = append(errs, fmt.Errorf("limits.cull_margin must not be negative, got %g", c.Limits.CullMargin))
	}
	for i, s := range c.Spawns {
		if s.Script == "" {
			errs = append(errs, fmt.Errorf("spawn[%d].script must not be empty", i))
		}
	}
	return errors.Join(errs...)
}

// Scripts は設定が参照するスクリプト名を重複なしで返す
func (c *Config) Scripts() []string {
	seen := map[string]bool{c.Stage.Main: true}
	names := []string{c.Stage.Main}
	for _, s := range c.Spawns {
		if !seen[s.Script] {
			seen[s.Script] = true
			names = append(names, s.Script)
		}
	}
	return names
}
