package watgen

import (
	"encoding/binary"
	"math"

	"github.com/hirforge/hircompile/pkg/hir"
)

// Binary opcodes used by this profile (WASM core spec, MVP subset).
const (
	opBlock   = 0x02
	opLoop    = 0x03
	opIf      = 0x04
	opElse    = 0x05
	opEnd     = 0x0B
	opBr      = 0x0C
	opBrIf    = 0x0D
	opLocalGet = 0x20
	opLocalSet = 0x21
	opI32Const = 0x41
	opF64Const = 0x44
	opI32Add  = 0x6A
	opI32Mul  = 0x6C
	opI32GeU  = 0x4F
	opF64Load = 0x2B
	opF64Store = 0x39
	opF64Abs  = 0x99
	opF64Neg  = 0x9A
	opF64Min  = 0xA4
	opF64Max  = 0xA5
	opF64Add  = 0xA0
	opF64Sub  = 0xA1
	opF64Mul  = 0xA2
	opF64Div  = 0xA3
	opF64Lt   = 0x63

	valtypeI32  = 0x7F
	valtypeF64  = 0x7C
	blocktypeEmpty = 0x40

	sectionType   = 1
	sectionFunc   = 3
	sectionMemory = 5
	sectionExport = 7
	sectionCode   = 10

	exportKindFunc = 0x00
	exportKindMem  = 0x02
)

// asm is a tiny byte-level instruction assembler mirroring the same
// instruction stream the WAT text writer produces, so the two encoders are
// easy to eyeball against each other during review.
type asm struct {
	buf []byte
}

func (a *asm) byte(b byte) { a.buf = append(a.buf, b) }

func (a *asm) uLEB128(v uint32) {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			a.buf = append(a.buf, b|0x80)
		} else {
			a.buf = append(a.buf, b)
			return
		}
	}
}

func (a *asm) sLEB128(v int64) {
	more := true
	for more {
		b := byte(v & 0x7F)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		a.buf = append(a.buf, b)
	}
}

func (a *asm) f64(v float64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	a.buf = append(a.buf, tmp[:]...)
}

func (a *asm) localGet(idx uint32) { a.byte(opLocalGet); a.uLEB128(idx) }
func (a *asm) localSet(idx uint32) { a.byte(opLocalSet); a.uLEB128(idx) }
func (a *asm) i32Const(v int32)    { a.byte(opI32Const); a.sLEB128(int64(v)) }
func (a *asm) f64Const(v float64)  { a.byte(opF64Const); a.f64(v) }

// f64Load/f64Store emit the memarg immediate (align, offset) every memory
// instruction requires: f64 is naturally 8-byte aligned (log2(8) = 3), and
// every access here is relative to a dynamically computed address already
// on the stack, so the static offset is always 0.
func (a *asm) f64Load()  { a.byte(opF64Load); a.uLEB128(3); a.uLEB128(0) }
func (a *asm) f64Store() { a.byte(opF64Store); a.uLEB128(3); a.uLEB128(0) }

// localIndex assigns WASM local indices: input pointer params, then $out,
// then $n (all function parameters), then the $i loop counter, then one f64
// local per topologically-ordered node — in that fixed order. emitWAT
// declares the node locals before $i; its locals are referenced by name, so
// that order does not affect the text form.
type localIndex struct {
	ptrIdx map[string]uint32 // input name -> param index
	outIdx uint32
	nIdx   uint32
	iIdx   uint32
	node   map[string]uint32
}

func buildLocalIndex(p *plan) *localIndex {
	li := &localIndex{ptrIdx: map[string]uint32{}, node: map[string]uint32{}}
	var idx uint32
	for _, name := range p.inputOrder {
		li.ptrIdx[name] = idx
		idx++
	}
	li.outIdx = idx
	idx++
	li.nIdx = idx
	idx++
	li.iIdx = idx
	idx++
	for _, nid := range p.topo {
		li.node[nid] = idx
		idx++
	}
	return li
}

func emitBinary(p *plan) ([]byte, error) {
	li := buildLocalIndex(p)
	numParams := uint32(len(p.inputOrder)) + 2 // + out, n

	// --- function body instructions ---
	a := &asm{}
	a.i32Const(0)
	a.localSet(li.iIdx)

	a.byte(opBlock)
	a.byte(blocktypeEmpty) // $exit
	a.byte(opLoop)
	a.byte(blocktypeEmpty) // $loop
	a.localGet(li.iIdx)
	a.localGet(li.nIdx)
	a.byte(opI32GeU)
	a.byte(opBrIf)
	a.uLEB128(1) // br_if $exit (one block up from $loop)

	for _, nid := range p.topo {
		emitNodeBinary(a, li, p.byID[nid], nid)
	}

	// store result, advance i, loop
	a.localGet(li.outIdx)
	a.localGet(li.iIdx)
	a.i32Const(8)
	a.byte(opI32Mul)
	a.byte(opI32Add)
	a.localGet(li.node[p.outputID])
	a.f64Store()

	a.localGet(li.iIdx)
	a.i32Const(1)
	a.byte(opI32Add)
	a.localSet(li.iIdx)
	a.byte(opBr)
	a.uLEB128(0) // br $loop
	a.byte(opEnd) // end loop
	a.byte(opEnd) // end block
	a.byte(opEnd) // end function

	// --- locals declaration: one run of i32 ($i), one run of f64 (per node) ---
	localsDecl := &asm{}
	numRuns := uint32(1) // $i run
	if len(p.topo) > 0 {
		numRuns++
	}
	localsDecl.uLEB128(numRuns)
	localsDecl.uLEB128(1)
	localsDecl.byte(valtypeI32)
	if len(p.topo) > 0 {
		localsDecl.uLEB128(uint32(len(p.topo)))
		localsDecl.byte(valtypeF64)
	}

	body := &asm{}
	body.buf = append(body.buf, localsDecl.buf...)
	body.buf = append(body.buf, a.buf...)

	code := &asm{}
	code.uLEB128(uint32(len(body.buf)))
	code.buf = append(code.buf, body.buf...)

	// --- type section: one func type (params..., no results) ---
	typeSec := &asm{}
	typeSec.byte(0x60)
	typeSec.uLEB128(numParams)
	for range p.inputOrder {
		typeSec.byte(valtypeI32)
	}
	typeSec.byte(valtypeI32) // out
	typeSec.byte(valtypeI32) // n
	typeSec.uLEB128(0)       // no results

	funcSec := &asm{}
	funcSec.uLEB128(1)
	funcSec.uLEB128(0) // type index 0

	memSec := &asm{}
	memSec.uLEB128(1)
	memSec.byte(0x00) // flags: min only
	memSec.uLEB128(uint32(memoryPages(len(p.inputOrder))))

	exportSec := &asm{}
	exportSec.uLEB128(2)
	writeName(exportSec, "memory")
	exportSec.byte(exportKindMem)
	exportSec.uLEB128(0)
	writeName(exportSec, "eval_series")
	exportSec.byte(exportKindFunc)
	exportSec.uLEB128(0)

	codeSec := &asm{}
	codeSec.uLEB128(1) // one function body
	codeSec.buf = append(codeSec.buf, code.buf...)

	out := &asm{}
	out.buf = append(out.buf, 0x00, 0x61, 0x73, 0x6D) // "\0asm"
	out.buf = append(out.buf, 0x01, 0x00, 0x00, 0x00) // version 1

	writeSection(out, sectionType, typeSec)
	writeSection(out, sectionFunc, funcSec)
	writeSection(out, sectionMemory, memSec)
	writeSection(out, sectionExport, exportSec)
	writeSection(out, sectionCode, codeSec)

	return out.buf, nil
}

func writeSection(out *asm, id byte, body *asm) {
	out.byte(id)
	out.uLEB128(uint32(len(body.buf)))
	out.buf = append(out.buf, body.buf...)
}

func writeName(a *asm, s string) {
	a.uLEB128(uint32(len(s)))
	a.buf = append(a.buf, []byte(s)...)
}

func emitNodeBinary(a *asm, li *localIndex, n hir.Node, nid string) {
	switch n.Kind {
	case hir.KindInput:
		a.localGet(li.ptrIdx[n.Name])
		a.localGet(li.iIdx)
		a.i32Const(8)
		a.byte(opI32Mul)
		a.byte(opI32Add)
		a.f64Load()
		a.localSet(li.node[nid])
	case hir.KindConst:
		a.f64Const(n.Value)
		a.localSet(li.node[nid])
	case hir.KindOp:
		emitOpBinary(a, li, n, nid)
	}
}

func emitOpBinary(a *asm, li *localIndex, n hir.Node, nid string) {
	get := func(argID string) { a.localGet(li.node[argID]) }
	switch n.Op {
	case hir.OpAdd:
		get(n.Args[0])
		get(n.Args[1])
		a.byte(opF64Add)
		a.localSet(li.node[nid])
	case hir.OpSub:
		get(n.Args[0])
		get(n.Args[1])
		a.byte(opF64Sub)
		a.localSet(li.node[nid])
	case hir.OpMul:
		get(n.Args[0])
		get(n.Args[1])
		a.byte(opF64Mul)
		a.localSet(li.node[nid])
	case hir.OpSafeDiv:
		get(n.Args[1])
		a.byte(opF64Abs)
		a.f64Const(1e-12)
		a.byte(opF64Lt)
		a.byte(opIf)
		a.byte(valtypeF64)
		a.f64Const(0)
		a.byte(opElse)
		get(n.Args[0])
		get(n.Args[1])
		a.byte(opF64Div)
		a.byte(opEnd)
		a.localSet(li.node[nid])
	case hir.OpNeg:
		a.f64Const(-1)
		get(n.Args[0])
		a.byte(opF64Mul)
		a.localSet(li.node[nid])
	case hir.OpAbs:
		get(n.Args[0])
		a.byte(opF64Abs)
		a.localSet(li.node[nid])
	case hir.OpClip:
		get(n.Args[0])
		get(n.Args[1])
		a.byte(opF64Max)
		get(n.Args[2])
		a.byte(opF64Min)
		a.localSet(li.node[nid])
	}
}
