package object

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"ovum_go/pkg/memory"
	"ovum_go/pkg/value"
)

// Print writes a readable rendering of v. Containers already on the
// current path print as [cycle].
func Print(w io.Writer, v value.Value) error {
	bw := bufio.NewWriter(w)
	p := printer{w: bw, path: make(map[value.Value]bool)}
	p.value(v, false)
	return bw.Flush()
}

// Sprint renders v as a string
func Sprint(v value.Value) string {
	var sb strings.Builder
	Print(&sb, v)
	return sb.String()
}

type printer struct {
	w    *bufio.Writer
	path map[value.Value]bool
}

func (p *printer) value(v value.Value, nested bool) {
	if v == nil {
		p.w.WriteString("absent")
		return
	}
	switch v := v.(type) {
	case *Dictionary:
		if p.enter(v) {
			defer p.leave(v)
			p.dictionary(v)
		}
	case *Array:
		if p.enter(v) {
			defer p.leave(v)
			p.array(v)
		}
	case *Pointer:
		if p.enter(v) {
			defer p.leave(v)
			p.w.WriteByte('&')
			p.held(v.Deref())
		}
	case *value.String:
		if nested {
			p.w.WriteString(strconv.Quote(v.Text()))
		} else {
			p.w.WriteString(v.Text())
		}
	default:
		p.w.WriteString(v.String())
	}
}

func (p *printer) enter(v value.Value) bool {
	if p.path[v] {
		p.w.WriteString("[cycle]")
		return false
	}
	p.path[v] = true
	return true
}

func (p *printer) leave(v value.Value) {
	delete(p.path, v)
}

func (p *printer) held(h memory.HardPtr[value.Value], ok bool) {
	if !ok {
		p.value(nil, true)
		return
	}
	defer h.Release()
	p.value(h.Get(), true)
}

func (p *printer) dictionary(d *Dictionary) {
	p.w.WriteByte('{')
	for i, key := range d.Keys() {
		if i > 0 {
			p.w.WriteString(", ")
		}
		p.w.WriteString(strconv.Quote(key))
		p.w.WriteString(": ")
		p.held(d.Get(key))
	}
	p.w.WriteByte('}')
}

func (p *printer) array(a *Array) {
	p.w.WriteByte('[')
	for i, n := 0, a.Len(); i < n; i++ {
		if i > 0 {
			p.w.WriteString(", ")
		}
		p.held(a.Get(i))
	}
	p.w.WriteByte(']')
}
