package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// vm is one namespace's interpreter and its per-call budget.
type vm struct {
	L     *lua.LState
	limit int
}

// Manager owns one sandboxed LState per script namespace and exposes hook
// dispatch. A namespace is usually one mob script.
//
// Manager is safe for concurrent use. Calls into the same namespace are
// serialised; different namespaces run concurrently.
type Manager struct {
	mu     sync.RWMutex
	states map[string]*vm
	locks  map[string]*sync.Mutex
	roller *dice.Roller
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no namespaces.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	return &Manager{
		states: make(map[string]*vm),
		locks:  make(map[string]*sync.Mutex),
		roller: roller,
		logger: logger,
	}
}

// LoadDir loads every entry of dir as a namespace: a *.lua file becomes the
// namespace named after the file without its extension, a subdirectory
// becomes the namespace named after the directory.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns the loaded namespace names in order, or the first error.
func (m *Manager) LoadDir(dir string, instLimit int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}
	var loaded []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		var ns string
		switch {
		case e.IsDir():
			ns = e.Name()
		case filepath.Ext(e.Name()) == ".lua":
			ns = strings.TrimSuffix(e.Name(), ".lua")
		default:
			continue
		}
		if err := m.Load(ns, path, instLimit); err != nil {
			return loaded, err
		}
		loaded = append(loaded, ns)
	}
	return loaded, nil
}

// Load creates a sandboxed VM for ns, registers the battle module, then runs
// path. A directory path runs every *.lua file in it in lexicographic order.
// Reloading a namespace replaces its VM.
//
// Precondition: ns must be non-empty.
// Postcondition: ns is registered; returns error on Lua load failure.
func (m *Manager) Load(ns, path string, instLimit int) error {
	files, err := luaFiles(path)
	if err != nil {
		return fmt.Errorf("scripting: %q: %w", ns, err)
	}

	L := NewSandboxedState()
	m.RegisterModules(L, ns)
	for _, f := range files {
		release := Limit(L, instLimit)
		err := L.DoFile(f)
		release()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", f, ns, err)
		}
	}

	m.mu.Lock()
	if old, ok := m.states[ns]; ok {
		m.locks[ns].Lock()
		old.L.Close()
		m.locks[ns].Unlock()
	} else {
		m.locks[ns] = &sync.Mutex{}
	}
	m.states[ns] = &vm{L: L, limit: instLimit}
	m.mu.Unlock()
	m.logger.Debug("scripting: namespace loaded", zap.String("namespace", ns), zap.Int("files", len(files)))
	return nil
}

func luaFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Has reports whether ns is loaded.
func (m *Manager) Has(ns string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.states[ns]
	return ok
}

// CallHook calls the named Lua global function in ns's VM. Returns (LNil, nil)
// if the namespace or hook does not exist. Lua runtime errors, including an
// exhausted instruction budget, are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(ns, hook string, args ...lua.LValue) (lua.LValue, error) {
	return m.CallHookWith(ns, hook, func(*lua.LState) []lua.LValue { return args })
}

// CallHookWith is CallHook with arguments built inside the namespace's VM,
// for callers that pass tables.
func (m *Manager) CallHookWith(ns, hook string, build func(L *lua.LState) []lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.states[ns]
	lock := m.locks[ns]
	m.mu.RUnlock()
	if !ok {
		m.logger.Info("scripting: no VM for namespace",
			zap.String("namespace", ns),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	lock.Lock()
	defer lock.Unlock()

	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}
	args := build(v.L)
	release := Limit(v.L, v.limit)
	err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...)
	release()
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("namespace", ns),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}
	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Close shuts down every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ns, v := range m.states {
		m.locks[ns].Lock()
		v.L.Close()
		m.locks[ns].Unlock()
		delete(m.states, ns)
	}
}
