// Package stage runs bullet scripts against a set of moving entities.
// Every entity owns a VM loaded with its script. Each tick the stage
// moves entities by their velocity and resumes a bounded number of
// scripts in round-robin order, so a stage with many bullets never
// spends more than a fixed amount of script work per frame.
package stage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/zurustar/danmaku/pkg/config"
	"github.com/zurustar/danmaku/pkg/logger"
	"github.com/zurustar/danmaku/pkg/value"
	"github.com/zurustar/danmaku/pkg/vm"
)

// Entity is an object on the stage driven by a script.
type Entity struct {
	ID     uuid.UUID
	Script string
	Pos    value.Point
	Vel    value.Vector
	Alive  bool

	// Resumes counts how often the script was resumed.
	Resumes int

	stage    *Stage
	machine  *vm.VM
	finished bool // the script completed or faulted
}

// Running reports whether the entity's script can still be resumed.
func (e *Entity) Running() bool {
	return e.Alive && !e.finished
}

// VM returns the machine running the entity's script.
func (e *Entity) VM() *vm.VM {
	return e.machine
}

// Stats are counters describing the stage. Resumed refers to the last
// tick, the others are totals.
type Stats struct {
	Tick      uint64
	Entities  int
	Running   int
	Resumed   int
	Spawned   int
	Completed int
	Faulted   int
	Died      int
	Culled    int
}

// Stage owns the entities and schedules their scripts.
type Stage struct {
	cfg      *config.Config
	programs map[string]*value.FunctionObject
	natives  *vm.NativeSet

	entities []*Entity
	pending  []*Entity
	cursor   int

	player value.Point
	stats  Stats

	out   io.Writer
	trace bool
	log   *slog.Logger
}

// Option is a functional option for configuring the stage.
type Option func(*Stage)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Stage) {
		s.log = log
	}
}

// WithOutput sets where script print output goes.
func WithOutput(w io.Writer) Option {
	return func(s *Stage) {
		s.out = w
	}
}

// WithTrace enables instruction tracing in every entity VM.
func WithTrace(enabled bool) Option {
	return func(s *Stage) {
		s.trace = enabled
	}
}

// New creates a stage and spawns the main script and the configured
// entities. programs maps script names to compiled scripts.
func New(cfg *config.Config, programs map[string]*value.FunctionObject, opts ...Option) (*Stage, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Stage{
		cfg:      cfg,
		programs: programs,
		player:   value.Point{X: float32(cfg.Player.X), Y: float32(cfg.Player.Y)},
		out:      os.Stdout,
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.natives = vm.DefaultNatives()
	s.natives.Merge(entityNatives())

	for _, name := range cfg.Scripts() {
		if _, ok := programs[name]; !ok {
			return nil, fmt.Errorf("script %q not found", name)
		}
	}

	center := value.Point{X: float32(cfg.Stage.Width) / 2, Y: float32(cfg.Stage.Height) / 4}
	if _, err := s.Spawn(cfg.Stage.Main, center, value.Vector{}); err != nil {
		return nil, err
	}
	for _, sp := range cfg.Spawns {
		pos := value.Point{X: float32(sp.X), Y: float32(sp.Y)}
		vel := value.Vector{R: float32(sp.Speed), T: float32(sp.Angle)}
		if _, err := s.Spawn(sp.Script, pos, vel); err != nil {
			return nil, err
		}
	}
	s.flushPending()

	s.log.Info("stage created", "title", cfg.Stage.Title, "scripts", len(programs), "entities", len(s.entities))
	return s, nil
}

// ErrCapacity is returned by Spawn when the stage holds the maximum
// number of entities.
var ErrCapacity = errors.New("entity limit reached")

// Spawn creates an entity running the named script. The entity joins the
// stage at the end of the current tick.
func (s *Stage) Spawn(script string, pos value.Point, vel value.Vector) (*Entity, error) {
	fn, ok := s.programs[script]
	if !ok {
		return nil, fmt.Errorf("script %q not found", script)
	}
	if len(s.entities)+len(s.pending) >= s.cfg.Limits.MaxEntities {
		return nil, ErrCapacity
	}

	e := &Entity{
		ID:     uuid.New(),
		Script: script,
		Pos:    pos,
		Vel:    vel,
		Alive:  true,
		stage:  s,
	}
	e.machine = vm.New(s.natives,
		vm.WithHost(e),
		vm.WithOutput(s.out),
		vm.WithTrace(s.trace),
		vm.WithLogger(s.log.With("entity", e.ID.String(), "script", script)),
	)
	if err := e.machine.Load(fn); err != nil {
		return nil, fmt.Errorf("load %s: %w", script, err)
	}

	s.pending = append(s.pending, e)
	s.stats.Spawned++
	s.log.Debug("entity spawned", "id", e.ID, "script", script, "pos", value.FromPoint(pos))
	return e, nil
}

// Tick advances the stage by one frame: entities move, scripts run
// within the resume budget, then dead and out-of-bounds entities are
// removed and new ones join.
func (s *Stage) Tick() Stats {
	s.stats.Tick++

	for _, e := range s.entities {
		if e.Alive {
			e.Pos = e.Pos.Translate(e.Vel)
		}
	}

	s.stats.Resumed = s.runScripts(s.cfg.Limits.MaxResumesPerTick)
	s.cull()
	s.compact()
	s.flushPending()

	s.stats.Entities = len(s.entities)
	s.stats.Running = s.countRunning()
	return s.stats
}

// runScripts resumes up to budget scripts starting at the cursor. Each
// script is resumed at most once per tick.
func (s *Stage) runScripts(budget int) int {
	n := len(s.entities)
	if n == 0 {
		return 0
	}
	resumed, visited := 0, 0
	for visited < n && resumed < budget {
		e := s.entities[(s.cursor+visited)%n]
		visited++
		if !e.Running() {
			continue
		}
		s.resume(e)
		resumed++
	}
	s.cursor = (s.cursor + visited) % n
	return resumed
}

func (s *Stage) resume(e *Entity) {
	e.Resumes++
	status, err := e.machine.Resume()
	switch status {
	case vm.StatusSuccess:
		e.finished = true
		s.stats.Completed++
		s.log.Debug("script completed", "id", e.ID, "script", e.Script)
	case vm.StatusError:
		// A faulted script takes only its own entity with it.
		e.finished = true
		e.Alive = false
		s.stats.Faulted++
		s.log.Warn("entity removed after script fault", "id", e.ID, "script", e.Script, "error", err)
	}
}

func (s *Stage) cull() {
	margin := float32(s.cfg.Limits.CullMargin)
	maxX := float32(s.cfg.Stage.Width) + margin
	maxY := float32(s.cfg.Stage.Height) + margin
	for _, e := range s.entities {
		if !e.Alive {
			continue
		}
		if e.Pos.X < -margin || e.Pos.Y < -margin || e.Pos.X > maxX || e.Pos.Y > maxY {
			e.Alive = false
			s.stats.Culled++
			s.log.Debug("entity culled", "id", e.ID, "script", e.Script)
		}
	}
}

// compact drops dead entities and keeps the cursor on the same
// survivor.
func (s *Stage) compact() {
	kept := s.entities[:0]
	cursor := s.cursor
	for i, e := range s.entities {
		if e.Alive {
			kept = append(kept, e)
			continue
		}
		if i < s.cursor {
			cursor--
		}
	}
	for i := len(kept); i < len(s.entities); i++ {
		s.entities[i] = nil
	}
	s.entities = kept
	if len(kept) == 0 || cursor >= len(kept) {
		cursor = 0
	}
	s.cursor = cursor
}

func (s *Stage) flushPending() {
	for _, e := range s.pending {
		if e.Alive {
			s.entities = append(s.entities, e)
		}
	}
	s.pending = s.pending[:0]
}

func (s *Stage) countRunning() int {
	n := 0
	for _, e := range s.entities {
		if e.Running() {
			n++
		}
	}
	return n
}

// Entities returns the live entities. The slice is owned by the stage
// and valid until the next Tick.
func (s *Stage) Entities() []*Entity {
	return s.entities
}

// Find returns the live entity with the given id.
func (s *Stage) Find(id uuid.UUID) (*Entity, bool) {
	for _, e := range s.entities {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// Done reports whether no script is left to run.
func (s *Stage) Done() bool {
	return s.countRunning() == 0 && len(s.pending) == 0
}

// Stats returns the current counters.
func (s *Stage) Stats() Stats {
	return s.stats
}

// Config returns the stage configuration.
func (s *Stage) Config() *config.Config {
	return s.cfg
}

// Player returns the player position scripts see through player().
func (s *Stage) Player() value.Point {
	return s.player
}

// SetPlayer moves the player.
func (s *Stage) SetPlayer(p value.Point) {
	s.player = p
}

// ScriptNames returns the names of the loaded scripts, sorted.
func (s *Stage) ScriptNames() []string {
	names := make([]string, 0, len(s.programs))
	for name := range s.programs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
