package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
)

// ScriptName is the file the loader searches for, starting at the working
// directory and walking up.
const ScriptName = "bindgen.star"

// ScriptOption describes an option() declared by the script
type ScriptOption struct {
	DefaultValue starlark.String
	Help         string
}

func (o ScriptOption) Default() string {
	return o.DefaultValue.GoString()
}

// Config is the result of evaluating a project script. A missing script
// yields Defaults().
type Config struct {
	// Root is the directory containing the script (or the working directory
	// when no script exists). Relative watch paths are resolved against it.
	Root      string
	Generator string
	Watch     []string
	Env       map[string]string
	Hooks     []string
	Options   map[string]ScriptOption
}

// Defaults returns the configuration used when no bindgen.star exists:
// watch the crate source directory and its manifest, delegate to the
// standard generator binary.
func Defaults(root string) *Config {
	return &Config{
		Root:    root,
		Watch:   []string{"src/", "Cargo.toml"},
		Env:     map[string]string{},
		Options: map[string]ScriptOption{},
	}
}

// WatchAbs returns the watch paths resolved against the project root.
func (c *Config) WatchAbs() []string {
	result := make([]string, len(c.Watch))
	for idx, path := range c.Watch {
		if filepath.IsAbs(path) {
			result[idx] = filepath.Clean(path)
		} else {
			result[idx] = filepath.Join(c.Root, path)
		}
	}

	return result
}

// FindScript looks for the next bindgen.star, starting in dir and checking
// each parent. Returns an empty string if there is none.
func FindScript(dir string) (string, error) {
	path, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		scriptPath := filepath.Join(path, ScriptName)
		_, err := os.Stat(scriptPath)
		if err == nil {
			return scriptPath, nil
		}
		if !eris.Is(err, os.ErrNotExist) {
			return "", eris.Wrapf(err, "failed to check %s", scriptPath)
		}

		parent := filepath.Dir(path)
		if parent == path {
			return "", nil
		}

		path = parent
	}
}

type loaderCtx struct {
	ctx          context.Context
	config       *Config
	options      map[string]ScriptOption
	optionValues map[string]string
	filepath     string
}

func getCtx(thread *starlark.Thread) *loaderCtx {
	return thread.Local("loaderCtx").(*loaderCtx)
}

func scriptPos(thread *starlark.Thread) string {
	pos := thread.CallFrame(1).Pos
	return fmt.Sprintf("%s:%d:%d", filepath.Base(getCtx(thread).filepath), pos.Line, pos.Col)
}

// * Builtins

func starWatch(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &path)
	if err != nil {
		return nil, err
	}

	if path == "" {
		return nil, eris.New("watch() expects a non-empty path")
	}

	lctx := getCtx(thread)
	lctx.config.Watch = append(lctx.config.Watch, path)
	return starlark.None, nil
}

func starEnv(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var value string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &name, &value)
	if err != nil {
		return nil, err
	}

	getCtx(thread).config.Env[name] = value
	return starlark.None, nil
}

func starHook(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var cmd string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &cmd)
	if err != nil {
		return nil, err
	}

	getCtx(thread).config.Hooks = append(getCtx(thread).config.Hooks, cmd)
	return starlark.None, nil
}

func starGenerator(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &path)
	if err != nil {
		return nil, err
	}

	getCtx(thread).config.Generator = path
	return starlark.None, nil
}

func starOption(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var defaultValue starlark.String
	var help string

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "default?", &defaultValue, "help?", &help)
	if err != nil {
		return nil, err
	}

	lctx := getCtx(thread)
	lctx.options[name] = ScriptOption{
		DefaultValue: defaultValue,
		Help:         help,
	}

	value, ok := lctx.optionValues[name]
	if ok {
		return starlark.String(value), nil
	}

	return defaultValue, nil
}

func starGetenv(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &key)
	if err != nil {
		return nil, err
	}

	value, ok := getCtx(thread).config.Env[key]
	if !ok {
		value = os.Getenv(key)
	}

	return starlark.String(value), nil
}

func starInfo(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
	if err != nil {
		return nil, err
	}

	lctx := getCtx(thread)
	log(lctx.ctx).Info().Msgf("%s: %s", scriptPos(thread), message)
	return starlark.None, nil
}

func starWarn(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
	if err != nil {
		return nil, err
	}

	lctx := getCtx(thread)
	log(lctx.ctx).Warn().Msgf("%s: %s", scriptPos(thread), message)
	return starlark.None, nil
}

func starError(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
	if err != nil {
		return nil, err
	}

	return nil, eris.New(message)
}

// Load evaluates the given script and returns the resulting configuration.
// options contains name=value overrides for option() declarations.
func Load(ctx context.Context, filename string, options map[string]string) (*Config, error) {
	filename, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}

	if options == nil {
		options = map[string]string{}
	}

	config := Defaults(filepath.Dir(filename))
	config.Watch = nil

	builtins := starlark.StringDict{
		"OS":        starlark.String(runtime.GOOS),
		"ARCH":      starlark.String(runtime.GOARCH),
		"info":      starlark.NewBuiltin("info", starInfo),
		"warn":      starlark.NewBuiltin("warn", starWarn),
		"error":     starlark.NewBuiltin("error", starError),
		"getenv":    starlark.NewBuiltin("getenv", starGetenv),
		"option":    starlark.NewBuiltin("option", starOption),
		"watch":     starlark.NewBuiltin("watch", starWatch),
		"env":       starlark.NewBuiltin("env", starEnv),
		"hook":      starlark.NewBuiltin("hook", starHook),
		"generator": starlark.NewBuiltin("generator", starGenerator),
	}

	thread := &starlark.Thread{
		Name: "main",
		Print: func(thread *starlark.Thread, msg string) {
			log(ctx).Info().Str("thread", thread.Name).Msg(msg)
		},
	}
	lctx := loaderCtx{
		ctx:          ctx,
		config:       config,
		options:      config.Options,
		optionValues: options,
		filepath:     filename,
	}
	thread.SetLocal("loaderCtx", &lctx)

	script, err := os.ReadFile(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", filename)
	}

	_, err = starlark.ExecFile(thread, filepath.Base(filename), script, builtins)
	if err != nil {
		if evalError, ok := err.(*starlark.EvalError); ok {
			return nil, eris.Errorf("failed to execute %s:\n%s", filename, evalError.Backtrace())
		}
		return nil, eris.Wrapf(err, "failed to execute %s", filename)
	}

	if len(config.Watch) == 0 {
		config.Watch = Defaults(config.Root).Watch
	}

	return config, nil
}

// LoadOrDefaults searches for the project script starting at dir. If none
// exists, the defaults rooted at dir are returned instead.
func LoadOrDefaults(ctx context.Context, dir string, options map[string]string) (*Config, error) {
	scriptPath, err := FindScript(dir)
	if err != nil {
		return nil, err
	}

	if scriptPath == "" {
		root, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}

		return Defaults(root), nil
	}

	return Load(ctx, scriptPath, options)
}
