// Package app はアプリケーション全体の処理の流れを管理する
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/zurustar/danmaku/pkg/catalog"
	"github.com/zurustar/danmaku/pkg/cli"
	"github.com/zurustar/danmaku/pkg/compiler"
	"github.com/zurustar/danmaku/pkg/config"
	"github.com/zurustar/danmaku/pkg/fileutil"
	"github.com/zurustar/danmaku/pkg/logger"
	"github.com/zurustar/danmaku/pkg/stage"
	"github.com/zurustar/danmaku/pkg/value"
	"github.com/zurustar/danmaku/pkg/window"
)

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config  *cli.Config
	log     *slog.Logger
	embedFS fs.FS
	out     io.Writer // スクリプトの print とヘッドレス実行の結果の出力先
}

// New Applicationを作成
func New(embedFS fs.FS) *Application {
	return &Application{
		embedFS: embedFS,
		out:     os.Stdout,
	}
}

// SetOutput は出力先を変更する
func (app *Application) SetOutput(w io.Writer) {
	app.out = w
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp(app.out)
		return nil
	}

	// 2. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.log.Info("Application started")

	if app.config.List {
		return app.listStages()
	}

	// 3. ステージの読み込み
	fsys, err := app.openStage()
	if err != nil {
		return fmt.Errorf("failed to open stage: %w", err)
	}
	app.log.Debug("Stage opened", "path", fsys.BasePath(), "embedded", fsys.IsEmbedded())

	cfg, err := app.loadConfig(fsys)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.log.Info("Config loaded", "title", cfg.Stage.Title, "main", cfg.Stage.Main,
		"size", fmt.Sprintf("%dx%d", cfg.Stage.Width, cfg.Stage.Height))

	// 4. スクリプトのコンパイル
	programs, err := app.compileScripts(fsys)
	if err != nil {
		return fmt.Errorf("failed to compile scripts: %w", err)
	}

	if app.config.Disasm {
		app.disassemble(programs)
		return nil
	}

	// 5. ステージの作成と実行
	st, err := stage.New(cfg, programs,
		stage.WithLogger(app.log),
		stage.WithOutput(app.out),
		stage.WithTrace(app.config.Trace),
	)
	if err != nil {
		return fmt.Errorf("failed to create stage: %w", err)
	}

	if err := app.runStage(st); err != nil {
		return fmt.Errorf("failed to run stage: %w", err)
	}

	app.log.Info("Application terminated normally")
	return nil
}

// parseArgs コマンドライン引数を解析
func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

// initLogger ロガーを初期化
func (app *Application) initLogger() error {
	if err := logger.InitLogger(app.config.LogLevel, app.config.LogFormat); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// openStage 実行するステージを選んでファイルシステムを開く
// パスが指定されていなければ埋め込みステージから選ぶ
func (app *Application) openStage() (fileutil.FileSystem, error) {
	registry := catalog.NewRegistry(app.embedFS)
	if app.config.StagePath != "" {
		if err := registry.LoadExternal(app.config.StagePath); err != nil {
			return nil, err
		}
	}

	selected, err := registry.Select(app.config.StageName)
	if err != nil {
		return nil, err
	}
	app.log.Info("Stage selected", "name", selected.Name, "title", selected.DisplayName(), "scripts", selected.Scripts)
	return registry.FileSystem(selected), nil
}

// listStages 利用可能なステージを表示する
func (app *Application) listStages() error {
	registry := catalog.NewRegistry(app.embedFS)
	if app.config.StagePath != "" {
		if err := registry.LoadExternal(app.config.StagePath); err != nil {
			return err
		}
	}

	stages := registry.Stages()
	if len(stages) == 0 {
		fmt.Fprintln(app.out, "No stages available")
		return nil
	}
	fmt.Fprintln(app.out, "Available stages:")
	for _, st := range stages {
		fmt.Fprintf(app.out, "  %-12s %s (%d scripts)\n", st.Name, st.DisplayName(), st.Scripts)
	}
	return nil
}

// loadConfig 設定ファイルを読み込む
// --config が指定されていればステージの stage.toml より優先する
func (app *Application) loadConfig(fsys fileutil.FileSystem) (*config.Config, error) {
	if app.config.ConfigFile == "" {
		return config.Load(fsys)
	}

	data, err := os.ReadFile(app.config.ConfigFile)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", app.config.ConfigFile, err)
	}
	return cfg, nil
}

// compileScripts ステージ内のすべてのスクリプトをコンパイルする
// 1つでもエラーがあればすべてのエラーをログに出力して失敗する
func (app *Application) compileScripts(fsys fileutil.FileSystem) (map[string]*value.FunctionObject, error) {
	programs, errs := compiler.CompileFS(fsys)
	if len(errs) > 0 {
		for _, err := range errs {
			app.log.Error("Compilation failed", "error", err)
		}
		return nil, errors.Join(errs...)
	}
	for _, name := range sortedNames(programs) {
		fn := programs[name]
		app.log.Debug("Script compiled", "name", name, "bytes", len(fn.Program.Code), "literals", fn.Program.Literals.Len())
	}
	app.log.Info("Scripts compiled successfully", "count", len(programs))
	return programs, nil
}

// disassemble コンパイル結果を名前順に出力する
func (app *Application) disassemble(programs map[string]*value.FunctionObject) {
	for _, name := range sortedNames(programs) {
		fmt.Fprintf(app.out, "[%s]\n", name)
		value.Disassemble(app.out, programs[name])
		fmt.Fprintln(app.out)
	}
}

// runStage ステージを実行する
func (app *Application) runStage(st *stage.Stage) error {
	// ヘッドレスモードの場合
	if app.config.Headless {
		app.log.Info("Headless mode", "ticks", app.config.Ticks, "timeout", app.config.Timeout)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err := window.RunHeadless(ctx, st, app.config.Ticks, app.config.Timeout, app.out)
		// タイムアウトは正常終了として扱う
		if errors.Is(err, context.DeadlineExceeded) {
			app.log.Info("Timeout reached, terminating")
			return nil
		}
		return err
	}

	// GUIモードの場合はウィンドウを表示
	return window.Run(st, app.config.Timeout, false)
}

func sortedNames(programs map[string]*value.FunctionObject) []string {
	names := make([]string, 0, len(programs))
	for name := range programs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
