// Package scenario runs line-oriented scripts against baskets, slots and
// objects. It drives the ovum tool and the end-to-end tests.
//
// A script is one command per line. Tokens are split shell-style, '#'
// starts a comment. Values are written as void, null, true, false,
// integers, floats, $path references, or any other word as a string.
// Paths name a variable optionally followed by .key or .index segments.
//
//	basket B
//	dict a B
//	dict c B
//	set a.peer $c
//	set c.peer $a
//	release a
//	release c
//	collect B        # collected 4
package scenario

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/shlex"

	"ovum_go/pkg/memory"
)

// ErrVerify is returned when a verify command or Finish finds a basket
// outside its expected state
var ErrVerify = errors.New("verify failed")

// Options configures an interpreter
type Options struct {
	Out       io.Writer
	Allocator memory.Allocator
	Logger    *slog.Logger
	// Strict baskets panic on the first validation violation
	Strict bool
}

type namedBasket struct {
	name string
	ptr  memory.HardPtr[*memory.Basket]
}

// Interpreter holds the state of one script run
type Interpreter struct {
	out    io.Writer
	alloc  memory.Allocator
	logger *slog.Logger
	strict bool

	baskets []namedBasket
	scopes  *memory.ScopeStack
	frames  []map[string]memory.Collectable
	line    int
	closed  bool
}

// New creates an interpreter writing its output to opts.Out
func New(opts Options) *Interpreter {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Interpreter{
		out:    opts.Out,
		alloc:  opts.Allocator,
		logger: opts.Logger,
		strict: opts.Strict,
		scopes: memory.NewScopeStack(),
		frames: []map[string]memory.Collectable{{}},
	}
}

// Run executes every line of r, stopping at the first error
func (in *Interpreter) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		in.line++
		if err := in.Execute(scanner.Text()); err != nil {
			return fmt.Errorf("line %d: %w", in.line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading script: %w", err)
	}
	return nil
}

// RunString executes a script held in a string
func (in *Interpreter) RunString(script string) error {
	return in.Run(strings.NewReader(script))
}

// Execute runs a single line
func (in *Interpreter) Execute(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("tokenizing: %w", err)
	}
	if len(args) == 0 {
		return nil
	}
	if in.closed {
		return errors.New("interpreter is closed")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}
	if n := len(args) - 1; n < cmd.min || (cmd.max >= 0 && n > cmd.max) {
		return fmt.Errorf("usage: %s %s", args[0], cmd.usage)
	}
	in.logger.Debug("scenario command", "line", in.line, "args", args)
	return cmd.run(in, args[1:])
}

// Commands lists the command names with their usage
func Commands() []string {
	var out []string
	for _, name := range commandOrder {
		out = append(out, name+" "+commands[name].usage)
	}
	return out
}

// WriteDot writes one digraph per basket
func (in *Interpreter) WriteDot(w io.Writer) {
	for _, b := range in.baskets {
		b.ptr.Get().Snapshot().WriteDot(w)
	}
}

// Finish releases every variable, then verifies each basket holds between
// minimum and maximum members, then releases the baskets
func (in *Interpreter) Finish(minimum, maximum int) error {
	if in.closed {
		return nil
	}
	in.scopes.Close()
	in.frames = nil
	failed := false
	for _, b := range in.baskets {
		if !b.ptr.Get().Verify(in.out, minimum, maximum) {
			fmt.Fprintf(in.out, "basket %s failed verification\n", b.name)
			failed = true
		}
	}
	in.Close()
	if failed {
		return ErrVerify
	}
	return nil
}

// Close releases every variable and basket. It is safe to call twice.
func (in *Interpreter) Close() {
	if in.closed {
		return
	}
	in.closed = true
	in.scopes.Close()
	in.frames = nil
	for i := len(in.baskets) - 1; i >= 0; i-- {
		in.baskets[i].ptr.Release()
	}
	in.baskets = nil
}

// ============ Names ============

func (in *Interpreter) basket(name string) (*memory.Basket, error) {
	for _, b := range in.baskets {
		if b.name == name {
			return b.ptr.Get(), nil
		}
	}
	return nil, fmt.Errorf("unknown basket %q", name)
}

func (in *Interpreter) basketName(b *memory.Basket) string {
	if b == nil {
		return "none"
	}
	for _, nb := range in.baskets {
		if nb.ptr.Get() == b {
			return nb.name
		}
	}
	return "unnamed"
}

func (in *Interpreter) lookup(name string) (memory.Collectable, error) {
	for i := len(in.frames) - 1; i >= 0; i-- {
		if c, ok := in.frames[i][name]; ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("unknown variable %q", name)
}

// bind makes name refer to c in the current scope, which takes over the
// hard reference held by ptr
func bind[T memory.Collectable](in *Interpreter, name string, ptr memory.HardPtr[T]) T {
	in.unbind(name)
	c := memory.Own(in.scopes.Current(), ptr)
	in.frames[len(in.frames)-1][name] = c
	return c
}

// unbind drops name from the current scope only
func (in *Interpreter) unbind(name string) bool {
	frame := in.frames[len(in.frames)-1]
	c, ok := frame[name]
	if !ok {
		return false
	}
	delete(frame, name)
	in.scopes.Current().Release(c)
	return true
}
