package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/firmlet/applet"
	"github.com/wippyai/firmlet/errors"
)

// Engine runs applet instances on a wazero runtime. All instances share one
// "env" host module built by Link.
type Engine struct {
	runtime   wazero.Runtime
	instances map[applet.InstID]*instance
	byName    map[string]applet.InstID
	next      applet.InstID
	mu        sync.RWMutex
	linked    bool
}

type instance struct {
	mod  api.Module
	mem  *WazeroMemory
	name string
	id   applet.InstID
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32
}

// New creates an engine. Calls in flight are aborted when their context is
// canceled.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	return &Engine{
		runtime:   wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		instances: make(map[applet.InstID]*instance),
		byName:    make(map[string]applet.InstID),
	}, nil
}

// Link builds the host module from bindings. It can be called once.
func (e *Engine) Link(ctx context.Context, bindings []applet.Binding) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.linked {
		return errors.Busy(errors.PhaseExecute, "host module")
	}

	builder := e.runtime.NewHostModuleBuilder(applet.Module)
	for _, b := range bindings {
		params, err := lowerI32(b.Params)
		if err != nil {
			return fmt.Errorf("lower %s params: %w", b.Link, err)
		}
		results, err := lowerI32(b.Results)
		if err != nil {
			return fmt.Errorf("lower %s results: %w", b.Link, err)
		}
		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(e.hostFunc(b, len(params), len(results) > 0), params, results).
			WithName(b.Link).
			Export(b.Link)
	}
	if _, err := builder.Instantiate(ctx); err != nil {
		return errors.Instantiation(err)
	}
	e.linked = true
	Logger().Debug("host module linked", zap.Int("functions", len(bindings)))
	return nil
}

func (e *Engine) hostFunc(b applet.Binding, nparams int, hasResult bool) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		in := e.lookupName(mod.Name())
		if in == nil {
			// released while still on the stack
			panic(errors.NotFound(errors.PhaseExecute, "instance", mod.Name()))
		}
		call := &applet.Call{Inst: in.id, Mem: in.mem, Args: make([]uint32, nparams)}
		for i := range call.Args {
			call.Args[i] = api.DecodeU32(stack[i])
		}
		v, err := b.Handler(ctx, call)
		if errors.KindOf(err) == errors.KindTrap {
			panic(err)
		}
		if err != nil {
			Logger().Debug("host function failed",
				zap.String("link", b.Link),
				zap.Uint32("inst", uint32(call.Inst)),
				zap.Error(err))
		}
		if hasResult {
			stack[0] = api.EncodeI32(applet.Result(v, err))
		}
	}
}

// Instantiate compiles and instantiates an applet without running any start
// function. name is informational; the instance is identified by the
// returned InstID.
func (e *Engine) Instantiate(ctx context.Context, name string, bin []byte) (applet.InstID, error) {
	compiled, err := e.runtime.CompileModule(ctx, bin)
	if err != nil {
		return 0, errors.Load("compile failed", err)
	}

	e.mu.Lock()
	e.next++
	id := e.next
	e.mu.Unlock()

	modName := fmt.Sprintf("%s#%d", name, id)
	modConfig := wazero.NewModuleConfig().
		WithName(modName).
		WithStartFunctions()

	mod, err := e.runtime.InstantiateModule(ctx, compiled, modConfig)
	if err != nil {
		_ = compiled.Close(ctx)
		return 0, errors.Instantiation(err)
	}

	in := &instance{
		id:   id,
		name: name,
		mod:  mod,
		mem:  &WazeroMemory{mem: mod.Memory()},
	}
	e.mu.Lock()
	e.instances[id] = in
	e.byName[modName] = id
	e.mu.Unlock()

	Logger().Info("applet instantiated",
		zap.String("name", name),
		zap.Uint32("inst", uint32(id)),
		zap.Uint32("memory", in.mem.Size()))
	return id, nil
}

// Invoke calls export on inst with i32 arguments. A trap is reported as an
// *errors.Error of KindTrap; cancellation of ctx is reported as ctx.Err().
func (e *Engine) Invoke(ctx context.Context, inst applet.InstID, export string, args []uint32) error {
	in := e.lookup(inst)
	if in == nil {
		return errors.NotFound(errors.PhaseExecute, "instance", fmt.Sprint(uint32(inst)))
	}
	fn := in.mod.ExportedFunction(export)
	if fn == nil {
		return errors.MissingExport(uint32(inst), export)
	}
	if want := len(fn.Definition().ParamTypes()); want != len(args) {
		return errors.Trap(uint32(inst), export,
			fmt.Errorf("signature mismatch: export takes %d params, got %d", want, len(args)))
	}

	params := make([]uint64, len(args))
	for i, a := range args {
		params[i] = api.EncodeU32(a)
	}
	if _, err := fn.Call(ctx, params...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Trap(uint32(inst), export, err)
	}
	return nil
}

// HasExport reports whether inst exports a function named export.
func (e *Engine) HasExport(inst applet.InstID, export string) bool {
	in := e.lookup(inst)
	if in == nil {
		return false
	}
	_, ok := in.mod.ExportedFunctionDefinitions()[export]
	return ok
}

// Memory returns the linear memory of inst.
func (e *Engine) Memory(inst applet.InstID) *WazeroMemory {
	if in := e.lookup(inst); in != nil {
		return in.mem
	}
	return nil
}

// Release closes inst. Later calls on it fail with KindNotFound.
func (e *Engine) Release(ctx context.Context, inst applet.InstID) error {
	e.mu.Lock()
	in, ok := e.instances[inst]
	if ok {
		delete(e.instances, inst)
		delete(e.byName, in.mod.Name())
	}
	e.mu.Unlock()
	if !ok {
		return errors.NotFound(errors.PhaseExecute, "instance", fmt.Sprint(uint32(inst)))
	}
	Logger().Info("applet released", zap.String("name", in.name), zap.Uint32("inst", uint32(inst)))
	return in.mod.Close(ctx)
}

func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

func (e *Engine) lookup(inst applet.InstID) *instance {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.instances[inst]
}

func (e *Engine) lookupName(name string) *instance {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.byName[name]
	if !ok {
		return nil
	}
	return e.instances[id]
}
