package scenario

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ovum_go/pkg/memory"
	"ovum_go/pkg/object"
	"ovum_go/pkg/slot"
	"ovum_go/pkg/value"
)

type command struct {
	usage    string
	min, max int
	run      func(in *Interpreter, args []string) error
}

var commands map[string]command

var commandOrder = []string{
	"basket", "dict", "array", "slot", "pointer", "let", "release",
	"set", "push", "pop", "delete", "mutate", "print", "deref",
	"take", "drop", "basket-of", "root",
	"collect", "purge", "members", "validate", "verify", "dump", "stats", "cycles", "dot",
	"enter", "exit", "echo",
}

func init() {
	commands = map[string]command{
		"basket":    {"NAME", 1, 1, cmdBasket},
		"dict":      {"NAME BASKET", 2, 2, cmdDict},
		"array":     {"NAME BASKET", 2, 2, cmdArray},
		"slot":      {"NAME [BASKET]", 1, 2, cmdSlot},
		"pointer":   {"NAME PATH [BASKET]", 2, 3, cmdPointer},
		"let":       {"NAME VALUE", 2, 2, cmdLet},
		"release":   {"NAME...", 1, -1, cmdRelease},
		"set":       {"PATH VALUE", 2, 2, cmdSet},
		"push":      {"PATH VALUE", 2, 2, cmdPush},
		"pop":       {"PATH", 1, 1, cmdPop},
		"delete":    {"PATH.KEY", 1, 1, cmdDelete},
		"mutate":    {"PATH TYPE OP [VALUE]", 3, 4, cmdMutate},
		"print":     {"PATH", 1, 1, cmdPrint},
		"deref":     {"PATH", 1, 1, cmdDeref},
		"take":      {"BASKET NAME", 2, 2, cmdTake},
		"drop":      {"BASKET NAME", 2, 2, cmdDrop},
		"basket-of": {"NAME", 1, 1, cmdBasketOf},
		"root":      {"NAME", 1, 1, cmdRoot},
		"collect":   {"BASKET", 1, 1, cmdCollect},
		"purge":     {"BASKET", 1, 1, cmdPurge},
		"members":   {"BASKET", 1, 1, cmdMembers},
		"validate":  {"BASKET", 1, 1, cmdValidate},
		"verify":    {"BASKET [MIN MAX]", 1, 3, cmdVerify},
		"dump":      {"BASKET", 1, 1, cmdDump},
		"stats":     {"BASKET", 1, 1, cmdStats},
		"cycles":    {"BASKET", 1, 1, cmdCycles},
		"dot":       {"BASKET [FILE]", 1, 2, cmdDot},
		"enter":     {"", 0, 0, cmdEnter},
		"exit":      {"", 0, 0, cmdExit},
		"echo":      {"WORDS...", 0, -1, cmdEcho},
	}
}

// ============ Creation ============

func cmdBasket(in *Interpreter, args []string) error {
	if _, err := in.basket(args[0]); err == nil {
		return fmt.Errorf("basket %q already exists", args[0])
	}
	b := memory.CreateBasket(in.alloc, memory.WithLogger(in.logger.With("basket", args[0])), memory.WithStrict(in.strict))
	in.baskets = append(in.baskets, namedBasket{name: args[0], ptr: b})
	return nil
}

func cmdDict(in *Interpreter, args []string) error {
	b, err := in.basket(args[1])
	if err != nil {
		return err
	}
	bind(in, args[0], object.NewDictionary(in.alloc, b))
	return nil
}

func cmdArray(in *Interpreter, args []string) error {
	b, err := in.basket(args[1])
	if err != nil {
		return err
	}
	bind(in, args[0], object.NewArray(in.alloc, b))
	return nil
}

func cmdSlot(in *Interpreter, args []string) error {
	var b *memory.Basket
	if len(args) == 2 {
		var err error
		if b, err = in.basket(args[1]); err != nil {
			return err
		}
	}
	bind(in, args[0], slot.New(in.alloc, b))
	return nil
}

func cmdPointer(in *Interpreter, args []string) error {
	var b *memory.Basket
	if len(args) == 3 {
		var err error
		if b, err = in.basket(args[2]); err != nil {
			return err
		}
	}
	s, err := in.slotAt(args[1])
	if err != nil {
		return err
	}
	p, ok := object.NewPointer(in.alloc, b, s)
	if !ok {
		return fmt.Errorf("cannot point at %s", args[1])
	}
	bind(in, args[0], p)
	return nil
}

func cmdLet(in *Interpreter, args []string) error {
	v, err := in.operand(args[1])
	if err != nil {
		return err
	}
	bind(in, args[0], v)
	return nil
}

func cmdRelease(in *Interpreter, args []string) error {
	for _, name := range args {
		if !in.unbind(name) {
			if _, err := in.lookup(name); err != nil {
				return err
			}
			return fmt.Errorf("variable %q belongs to an enclosing scope", name)
		}
	}
	return nil
}

// ============ Access ============

func cmdSet(in *Interpreter, args []string) error {
	v, err := in.operand(args[1])
	if err != nil {
		return err
	}
	defer v.Release()
	t, err := in.target(args[0])
	if err != nil {
		return err
	}
	switch c := t.base.(type) {
	case *slot.Slot:
		if t.keyed {
			return fmt.Errorf("%s is not a container", args[0])
		}
		err = c.Set(v.Get())
	case *object.Dictionary:
		err = c.Set(t.key, v.Get())
	case *object.Array:
		var i int
		if i, err = index(t.key); err == nil {
			err = c.Set(i, v.Get())
		}
	default:
		return fmt.Errorf("cannot assign to %s", args[0])
	}
	return err
}

func cmdPush(in *Interpreter, args []string) error {
	a, err := in.array(args[0])
	if err != nil {
		return err
	}
	v, err := in.operand(args[1])
	if err != nil {
		return err
	}
	defer v.Release()
	return a.Push(v.Get())
}

func cmdPop(in *Interpreter, args []string) error {
	a, err := in.array(args[0])
	if err != nil {
		return err
	}
	v, ok := a.Pop()
	if !ok {
		fmt.Fprintln(in.out, "absent")
		return nil
	}
	defer v.Release()
	fmt.Fprintln(in.out, object.Sprint(v.Get()))
	return nil
}

func cmdDelete(in *Interpreter, args []string) error {
	t, err := in.target(args[0])
	if err != nil {
		return err
	}
	d, ok := t.base.(*object.Dictionary)
	if !ok || !t.keyed {
		return fmt.Errorf("%s is not a dictionary property", args[0])
	}
	if !d.Delete(t.key) {
		fmt.Fprintln(in.out, "absent")
	}
	return nil
}

// cmdMutate reports the old value, or the outcome of a declined mutation.
// Declined mutations are results, not script errors.
func cmdMutate(in *Interpreter, args []string) error {
	ty, err := value.ParseType(args[1])
	if err != nil {
		return err
	}
	op, err := value.ParseMutation(args[2])
	if err != nil {
		return err
	}
	operand := value.Constant(value.Void)
	if len(args) == 4 {
		if operand, err = in.operand(args[3]); err != nil {
			return err
		}
	}
	defer operand.Release()

	t, err := in.target(args[0])
	if err != nil {
		return err
	}
	var old memory.HardPtr[value.Value]
	switch c := t.base.(type) {
	case *slot.Slot:
		if t.keyed {
			return fmt.Errorf("%s is not a container", args[0])
		}
		old, err = c.Mutate(ty, op, operand.Get())
	case *object.Dictionary:
		old, err = c.Mutate(t.key, ty, op, operand.Get())
	case *object.Array:
		i, ierr := index(t.key)
		if ierr != nil {
			return ierr
		}
		old, err = c.Mutate(i, ty, op, operand.Get())
	default:
		return fmt.Errorf("cannot mutate %s", args[0])
	}
	var me *value.MutationError
	switch {
	case err == nil:
		fmt.Fprintf(in.out, "old %s\n", in.render(old))
		old.Release()
	case errors.As(err, &me), errors.Is(err, slot.ErrForeignObject):
		fmt.Fprintf(in.out, "%s: %v\n", slot.Failed, err)
	case errors.Is(err, slot.ErrUninitialized):
		fmt.Fprintln(in.out, slot.Uninitialized)
	default:
		return err
	}
	return nil
}

func cmdPrint(in *Interpreter, args []string) error {
	v, err := in.valueAt(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(in.out, object.Sprint(v))
	return nil
}

func cmdDeref(in *Interpreter, args []string) error {
	v, err := in.valueAt(args[0])
	if err != nil {
		return err
	}
	p, ok := v.(*object.Pointer)
	if !ok {
		return fmt.Errorf("%s is not a pointer", args[0])
	}
	held, _ := p.Deref()
	fmt.Fprintln(in.out, in.render(held))
	held.Release()
	return nil
}

// ============ Membership ============

func cmdTake(in *Interpreter, args []string) error {
	b, err := in.basket(args[0])
	if err != nil {
		return err
	}
	c, err := in.lookup(args[1])
	if err != nil {
		return err
	}
	_, result := b.Take(c)
	fmt.Fprintln(in.out, result)
	return nil
}

func cmdDrop(in *Interpreter, args []string) error {
	b, err := in.basket(args[0])
	if err != nil {
		return err
	}
	c, err := in.lookup(args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(in.out, b.Drop(c))
	return nil
}

func cmdBasketOf(in *Interpreter, args []string) error {
	c, err := in.lookup(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(in.out, in.basketName(c.SoftGetBasket()))
	return nil
}

func cmdRoot(in *Interpreter, args []string) error {
	c, err := in.lookup(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(in.out, c.SoftIsRoot())
	return nil
}

// ============ Collection ============

func basketCommand(fn func(in *Interpreter, b *memory.Basket, args []string) error) func(*Interpreter, []string) error {
	return func(in *Interpreter, args []string) error {
		b, err := in.basket(args[0])
		if err != nil {
			return err
		}
		return fn(in, b, args[1:])
	}
}

var (
	cmdCollect = basketCommand(func(in *Interpreter, b *memory.Basket, _ []string) error {
		fmt.Fprintf(in.out, "collected %d\n", b.CollectGarbage())
		return nil
	})
	cmdPurge = basketCommand(func(in *Interpreter, b *memory.Basket, _ []string) error {
		fmt.Fprintf(in.out, "purged %d\n", b.PurgeAll())
		return nil
	})
	cmdMembers = basketCommand(func(in *Interpreter, b *memory.Basket, _ []string) error {
		fmt.Fprintf(in.out, "members %d\n", b.Len())
		return nil
	})
	cmdValidate = basketCommand(func(in *Interpreter, b *memory.Basket, _ []string) error {
		if b.Validate(in.out) {
			fmt.Fprintln(in.out, "valid")
		} else {
			fmt.Fprintln(in.out, "invalid")
		}
		return nil
	})
	cmdDump = basketCommand(func(in *Interpreter, b *memory.Basket, _ []string) error {
		b.Dump(in.out)
		return nil
	})
	cmdStats = basketCommand(func(in *Interpreter, b *memory.Basket, _ []string) error {
		stats, _ := b.Statistics()
		fmt.Fprintln(in.out, stats)
		return nil
	})
	cmdCycles = basketCommand(func(in *Interpreter, b *memory.Basket, _ []string) error {
		snap := b.Snapshot()
		cycles := snap.Cycles()
		fmt.Fprintf(in.out, "cycles %d\n", len(cycles))
		for i, group := range cycles {
			var labels []string
			for _, node := range group {
				labels = append(labels, fmt.Sprintf("%T", snap.Nodes[node]))
			}
			fmt.Fprintf(in.out, "cycle %d: %s\n", i, strings.Join(labels, " "))
		}
		return nil
	})
)

func cmdVerify(in *Interpreter, args []string) error {
	b, err := in.basket(args[0])
	if err != nil {
		return err
	}
	minimum, maximum := 0, 0
	switch len(args) {
	case 2:
		return fmt.Errorf("verify needs both MIN and MAX")
	case 3:
		if minimum, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("bad minimum: %w", err)
		}
		if maximum, err = strconv.Atoi(args[2]); err != nil {
			return fmt.Errorf("bad maximum: %w", err)
		}
	}
	if !b.Verify(in.out, minimum, maximum) {
		return fmt.Errorf("basket %s: %w", args[0], ErrVerify)
	}
	fmt.Fprintln(in.out, "verified")
	return nil
}

func cmdDot(in *Interpreter, args []string) error {
	b, err := in.basket(args[0])
	if err != nil {
		return err
	}
	if len(args) == 1 {
		b.Snapshot().WriteDot(in.out)
		return nil
	}
	f, err := os.Create(args[1])
	if err != nil {
		return fmt.Errorf("writing dot: %w", err)
	}
	b.Snapshot().WriteDot(f)
	return f.Close()
}

// ============ Scopes ============

func cmdEnter(in *Interpreter, _ []string) error {
	in.scopes.Enter()
	in.frames = append(in.frames, map[string]memory.Collectable{})
	return nil
}

func cmdExit(in *Interpreter, _ []string) error {
	if !in.scopes.Exit() {
		return errors.New("exit without enter")
	}
	in.frames = in.frames[:len(in.frames)-1]
	return nil
}

func cmdEcho(in *Interpreter, args []string) error {
	fmt.Fprintln(in.out, strings.Join(args, " "))
	return nil
}
