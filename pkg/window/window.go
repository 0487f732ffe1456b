// Package window はステージをEbitengineのウィンドウに描画する
package window

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"github.com/zurustar/danmaku/pkg/config"
	"github.com/zurustar/danmaku/pkg/logger"
	"github.com/zurustar/danmaku/pkg/stage"
	"github.com/zurustar/danmaku/pkg/value"
)

var (
	// 背景色
	backgroundColor = color.RGBA{0x10, 0x10, 0x28, 0xFF}
	// テキスト色（白）
	textColor = color.White
	// 一時停止表示の色（黄色）
	pausedTextColor = color.RGBA{0xFF, 0xFF, 0x00, 0xFF}
	// 自機の色
	playerColor = color.RGBA{0x60, 0xFF, 0x60, 0xFF}
	// HUDの背景色
	hudBackgroundColor = color.RGBA{0x00, 0x00, 0x00, 0xA0}
	// デフォルトフォント
	defaultFace = text.NewGoXFace(basicfont.Face7x13)

	// スクリプト名ごとに割り当てるエンティティの色
	palette = []color.RGBA{
		{0xFF, 0x50, 0x50, 0xFF},
		{0x50, 0xA0, 0xFF, 0xFF},
		{0xFF, 0xD0, 0x40, 0xFF},
		{0xE0, 0x60, 0xFF, 0xFF},
		{0x40, 0xE0, 0xE0, 0xFF},
		{0xFF, 0x90, 0x30, 0xFF},
	}
)

const (
	entityRadius = 4
	playerRadius = 3
	playerSpeed  = 3.0
	// Shift押下時の低速移動の倍率
	slowFactor = 0.4
	hudHeight  = 20
)

// Mode はウィンドウの表示モードを表す
type Mode int

const (
	ModePlaying Mode = iota // 実行中
	ModePaused              // 一時停止中
)

func (m Mode) String() string {
	switch m {
	case ModePlaying:
		return "playing"
	case ModePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Arena はウィンドウが描画・更新するステージ
type Arena interface {
	Tick() stage.Stats
	Stats() stage.Stats
	Entities() []*stage.Entity
	Player() value.Point
	SetPlayer(p value.Point)
	Done() bool
	Config() *config.Config
}

// Game はEbitengineのゲームインターフェースを実装する
type Game struct {
	arena     Arena
	mode      Mode
	timeout   time.Duration // タイムアウト時間
	startTime time.Time     // 開始時刻
	stats     stage.Stats   // 直近のティックの統計

	// 全スクリプト終了時に閉じるかどうか
	exitWhenDone bool

	mu sync.RWMutex
}

// NewGame Gameを作成
func NewGame(arena Arena, timeout time.Duration) *Game {
	return &Game{
		arena:     arena,
		mode:      ModePlaying,
		timeout:   timeout,
		startTime: time.Now(),
		stats:     arena.Stats(),
	}
}

// SetExitWhenDone は全スクリプト終了時にウィンドウを閉じるかどうかを設定する
func (g *Game) SetExitWhenDone(exit bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.exitWhenDone = exit
}

// Mode は現在のモードを返す
func (g *Game) Mode() Mode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mode
}

// Stats は直近のティックの統計を返す
func (g *Game) Stats() stage.Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.stats
}

// TogglePause は一時停止を切り替える
func (g *Game) TogglePause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mode == ModePlaying {
		g.mode = ModePaused
	} else {
		g.mode = ModePlaying
	}
}

// Update ゲームロジックの更新（Ebitengineが毎フレーム呼び出す）
func (g *Game) Update() error {
	// タイムアウトチェック
	if g.timeout > 0 && time.Since(g.startTime) >= g.timeout {
		return ebiten.Termination
	}

	// Escキーで終了（1回だけ反応）
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.TogglePause()
	}
	if g.Mode() == ModePaused {
		return nil
	}

	g.movePlayer(pressedDirection(), ebiten.IsKeyPressed(ebiten.KeyShift))
	return g.step()
}

// step はステージを1ティック進める
func (g *Game) step() error {
	stats := g.arena.Tick()

	g.mu.Lock()
	g.stats = stats
	exit := g.exitWhenDone
	g.mu.Unlock()

	if exit && g.arena.Done() {
		logger.GetLogger().Info("all scripts finished", "tick", stats.Tick)
		return ebiten.Termination
	}
	return nil
}

// pressedDirection は矢印キーの入力を方向に変換する
func pressedDirection() (dx, dy float32) {
	if ebiten.IsKeyPressed(ebiten.KeyLeft) {
		dx--
	}
	if ebiten.IsKeyPressed(ebiten.KeyRight) {
		dx++
	}
	if ebiten.IsKeyPressed(ebiten.KeyUp) {
		dy--
	}
	if ebiten.IsKeyPressed(ebiten.KeyDown) {
		dy++
	}
	return dx, dy
}

// movePlayer は自機を動かす。アリーナの外には出ない
func (g *Game) movePlayer(dx, dy float32, slow bool) {
	if dx == 0 && dy == 0 {
		return
	}
	speed := float32(playerSpeed)
	if slow {
		speed *= slowFactor
	}
	// 斜め移動で速くならないようにする
	if dx != 0 && dy != 0 {
		speed *= 0.7071
	}

	cfg := g.arena.Config()
	p := g.arena.Player()
	p.X = clamp(p.X+dx*speed, 0, float32(cfg.Stage.Width))
	p.Y = clamp(p.Y+dy*speed, 0, float32(cfg.Stage.Height))
	g.arena.SetPlayer(p)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// colorFor はスクリプト名から色を選ぶ
func colorFor(script string) color.RGBA {
	return palette[value.HashString(script)%uint32(len(palette))]
}

// Draw 画面描画（Ebitengineが毎フレーム呼び出す）
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	for _, e := range g.arena.Entities() {
		vector.DrawFilledCircle(screen, e.Pos.X, e.Pos.Y, entityRadius, colorFor(e.Script), true)
	}

	p := g.arena.Player()
	vector.StrokeCircle(screen, p.X, p.Y, playerRadius*3, 1, playerColor, true)
	vector.DrawFilledCircle(screen, p.X, p.Y, playerRadius, playerColor, true)

	g.drawHUD(screen)
}

// drawHUD 画面上部に統計を表示する
func (g *Game) drawHUD(screen *ebiten.Image) {
	width := float32(g.arena.Config().Stage.Width)
	vector.DrawFilledRect(screen, 0, 0, width, hudHeight, hudBackgroundColor, false)

	op := &text.DrawOptions{}
	op.GeoM.Translate(6, 4)
	op.ColorScale.ScaleWithColor(textColor)
	text.Draw(screen, hudText(g.arena.Config().Stage.Title, g.Stats(), ebiten.ActualTPS()), defaultFace, op)

	if g.Mode() == ModePaused {
		pausedOp := &text.DrawOptions{}
		pausedOp.GeoM.Translate(float64(width)/2-20, float64(g.arena.Config().Stage.Height)/2)
		pausedOp.ColorScale.ScaleWithColor(pausedTextColor)
		text.Draw(screen, "PAUSED", defaultFace, pausedOp)
	}
}

// hudText はHUDに表示する文字列を作る
func hudText(title string, s stage.Stats, tps float64) string {
	return fmt.Sprintf("%s  tick %d  entities %d  scripts %d  faults %d  tps %.0f",
		title, s.Tick, s.Entities, s.Running, s.Faulted, tps)
}

// Layout 画面サイズを返す
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	cfg := g.arena.Config()
	return cfg.Stage.Width, cfg.Stage.Height
}

// RunHeadless ヘッドレスモードでステージを実行する
// ticks が0より大きければそのティック数で止まり、0なら全スクリプトの終了まで実行する
func RunHeadless(ctx context.Context, arena Arena, ticks int, timeout time.Duration, writer io.Writer) (stage.Stats, error) {
	// タイムアウト処理用のコンテキスト
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	log := logger.GetLogger()
	stats := arena.Stats()
	for ticks <= 0 || int(stats.Tick) < ticks {
		if ticks <= 0 && arena.Done() {
			break
		}
		select {
		case <-ctx.Done():
			fmt.Fprintf(writer, "Stopped at tick %d: %v\n", stats.Tick, ctx.Err())
			return stats, fmt.Errorf("headless run stopped: %w", ctx.Err())
		default:
		}
		stats = arena.Tick()
	}

	log.Info("headless run finished", "tick", stats.Tick, "entities", stats.Entities, "faulted", stats.Faulted)
	fmt.Fprintf(writer, "Finished at tick %d: %d entities, %d spawned, %d completed, %d faulted\n",
		stats.Tick, stats.Entities, stats.Spawned, stats.Completed, stats.Faulted)
	return stats, nil
}

// Run GUIモードでウィンドウを実行
func Run(arena Arena, timeout time.Duration, exitWhenDone bool) error {
	game := NewGame(arena, timeout)
	game.SetExitWhenDone(exitWhenDone)

	cfg := arena.Config()

	// ウィンドウ設定
	ebiten.SetWindowSize(cfg.Stage.Width, cfg.Stage.Height)
	ebiten.SetWindowTitle(fmt.Sprintf("danmaku - %s", cfg.Stage.Title))
	ebiten.SetTPS(cfg.Stage.TPS)
	// リサイズ時はEbitengineがアスペクト比を維持してレターボックスを表示する
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	// ゲームを実行
	if err := ebiten.RunGame(game); err != nil {
		return fmt.Errorf("failed to run game: %w", err)
	}
	return nil
}
