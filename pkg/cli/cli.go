// Package cli はコマンドライン引数と環境変数を解析する
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	StagePath  string        // ステージのディレクトリ（空なら埋め込みステージ）
	StageName  string        // 実行する埋め込みステージの名前
	ConfigFile string        // stage.toml の代わりに読む設定ファイル
	Timeout    time.Duration // タイムアウト時間（0は無制限）
	Ticks      int           // ヘッドレスモードで実行するティック数（0は全スクリプト終了まで）
	LogLevel   string        // ログレベル（debug, info, warn, error）
	LogFormat  string        // ログ形式（text, json）
	Headless   bool          // ヘッドレスモード
	Disasm     bool          // コンパイル結果を逆アセンブルして終了
	List       bool          // ステージ一覧を表示して終了
	Trace      bool          // 命令トレースをdebugログに出力
	ShowHelp   bool          // ヘルプ表示フラグ
}

// boolFlags は値を取らないフラグ
var boolFlags = map[string]bool{
	"-h": true, "--h": true, "-help": true, "--help": true,
	"-headless": true, "--headless": true,
	"-disasm": true, "--disasm": true,
	"-list": true, "--list": true,
	"-trace": true, "--trace": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("danmaku", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{}

	var timeoutSec int
	fs.IntVar(&timeoutSec, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&timeoutSec, "t", 0, "タイムアウト時間（秒）（短縮形）")
	fs.IntVar(&config.Ticks, "ticks", 0, "ヘッドレスモードで実行するティック数")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.StringVar(&config.LogFormat, "log-format", "text", "ログ形式（text, json）")
	fs.StringVar(&config.ConfigFile, "config", "", "設定ファイルのパス")
	fs.StringVar(&config.StageName, "stage", "", "実行する埋め込みステージの名前")
	fs.BoolVar(&config.Headless, "headless", false, "ヘッドレスモード")
	fs.BoolVar(&config.Disasm, "disasm", false, "逆アセンブル結果を表示して終了")
	fs.BoolVar(&config.List, "list", false, "ステージ一覧を表示して終了")
	fs.BoolVar(&config.Trace, "trace", false, "命令トレース")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// 環境変数からの設定（コマンドラインフラグが優先）
	if !config.Headless {
		if headlessEnv := os.Getenv("HEADLESS"); headlessEnv != "" {
			config.Headless = headlessEnv == "1" || strings.ToLower(headlessEnv) == "true"
		}
	}

	// 環境変数からタイムアウトを取得（コマンドラインフラグが優先）
	if timeoutSec == 0 {
		if timeoutEnv := os.Getenv("TIMEOUT"); timeoutEnv != "" {
			if t, err := strconv.Atoi(timeoutEnv); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}

	// 環境変数からログレベルを取得（コマンドラインフラグが優先）
	if config.LogLevel == "info" {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}

	// タイムアウトの検証
	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	if config.Ticks < 0 {
		return nil, fmt.Errorf("ticks must be non-negative, got %d", config.Ticks)
	}

	// ログレベルの検証
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	config.LogFormat = strings.ToLower(config.LogFormat)
	if config.LogFormat != "text" && config.LogFormat != "json" {
		return nil, fmt.Errorf("invalid log format: %s (must be text or json)", config.LogFormat)
	}

	// 位置引数（ステージのパス）
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("too many arguments: %s", strings.Join(fs.Args(), " "))
	}
	if fs.NArg() == 1 {
		config.StagePath = fs.Arg(0)
	}

	return config, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--" 以降はすべて位置引数
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			// -t 5 のように値が次の引数にある場合は一緒に移動する
			if !strings.Contains(arg, "=") && !boolFlags[arg] &&
				i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				i++
				flags = append(flags, args[i])
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	// 位置引数が - で始まってもフラグと解釈されないよう "--" で区切る
	if len(positional) == 0 {
		return flags
	}
	return append(append(flags, "--"), positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `danmaku - bullet script runner

Usage:
  danmaku [options] [stage-path]

Arguments:
  stage-path    ステージのディレクトリパス（省略時は埋め込みステージ）
                ディレクトリ内の .bs ファイルがスクリプト、stage.toml が設定

Options:
  -t, --timeout <seconds>     指定秒数後にプログラムを終了（デフォルト: 無制限）
  --ticks <n>                 ヘッドレスモードで n ティック実行（デフォルト: 全スクリプト終了まで）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --log-format <format>       ログ形式: text, json（デフォルト: text）
  --config <file>             stage.toml の代わりに読む設定ファイル
  --stage <name>              実行する埋め込みステージ（デフォルト: sample）
  --list                      ステージ一覧を表示して終了
  --headless                  ヘッドレスモード（GUIなし）
  --disasm                    コンパイル結果を逆アセンブルして終了
  --trace                     命令トレースを出力（--log-level debug と併用）
  -h, --help                  このヘルプを表示

Environment Variables:
  HEADLESS=1                  ヘッドレスモードを有効化
  TIMEOUT=<seconds>           タイムアウト時間（秒）
  LOG_LEVEL=<level>           ログレベル

Examples:
  danmaku                             埋め込みのサンプルステージを実行
  danmaku /path/to/stage              ディレクトリを指定
  danmaku --headless --ticks 600      600ティックだけヘッドレスで実行
  danmaku --disasm /path/to/stage     バイトコードを表示
  HEADLESS=1 danmaku /path/to/stage   環境変数でヘッドレスモード
`)
}
