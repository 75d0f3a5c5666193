package vm

import "github.com/dreamruntime/dmrt/internal/config"

// opCall pops an argument tuple and a callee (identifier or proc value).
// "initial"/"issaved" and ".." (super) are special-cased by name; a plain
// proc value invokes that proc on the receiver it was dereferenced from
// (ProcRef.Recv), failing if it has none; a bareword identifier
// invokes the current src's own proc of that name.
func (vm *VM) opCall() error {
	argsEntry, err := vm.pop()
	if err != nil {
		return err
	}
	tuple, err := argsEntry.AsArgTuple()
	if err != nil {
		return err
	}
	calleeEntry, err := vm.pop()
	if err != nil {
		return err
	}

	if calleeEntry.Kind == EntryIdent && calleeEntry.Ident.Kind == IdentLocal {
		switch calleeEntry.Ident.name {
		case config.InitialName:
			return vm.callInitialOrSaved(tuple, false)
		case config.IssavedName:
			return vm.callInitialOrSaved(tuple, true)
		case config.SuperName:
			return vm.callSuper(tuple)
		}
	}

	var proc *ProcDef
	var recv *Instance
	switch calleeEntry.Kind {
	case EntryValue:
		v, err := calleeEntry.AsValue()
		if err != nil {
			return err
		}
		if v.Type != ValProc {
			return &ProcUnresolvedError{Name: v.Inspect()}
		}
		ref := v.AsProc()
		if ref.Recv == nil {
			return &ProcUnresolvedError{Name: ref.Name}
		}
		p, ok := ref.Recv.Def.LookupProc(ref.Name)
		if !ok {
			return &ProcUnresolvedError{Name: ref.Name}
		}
		proc, recv = p, ref.Recv
	case EntryIdent:
		name := calleeEntry.Ident.name
		recv = vm.frame().src
		if recv == nil || recv.Def == nil {
			return &ProcUnresolvedError{Name: name}
		}
		p, ok := recv.Def.LookupProc(name)
		if !ok {
			return &ProcUnresolvedError{Name: name}
		}
		proc = p
	default:
		return &StackTypeError{Want: "callable", Got: "arg tuple"}
	}
	result, err := vm.InvokeProc(proc, recv, tuple, ProcRef{Owner: recv.Def.Path, Name: proc.Name, Recv: recv})
	if err != nil {
		return err
	}
	return vm.push(ValueEntry(result))
}

// callInitialOrSaved implements initial()/issaved() reached through general
// Call dispatch (as opposed to the dedicated Initial/IsSaved opcodes the
// dereference lowering emits for a simple field/index terminal). It is
// rejected for anything but a single identifier argument rooted in a typed
// field, per spec.
func (vm *VM) callInitialOrSaved(tuple ArgTuple, wantSaved bool) error {
	if len(tuple.Positional) != 1 || len(tuple.Named) != 0 {
		return &ShapeError{Reason: "initial/issaved takes exactly one identifier argument"}
	}
	entry := tuple.Positional[0]
	if entry.Kind != EntryIdent {
		return &ShapeError{Reason: "initial/issaved argument must be an identifier, not a resolved value"}
	}
	if entry.Ident.Kind != IdentField {
		return &ShapeError{Reason: "initial/issaved only applies to a typed field reference"}
	}
	inst := entry.Ident.object
	variable, _ := inst.Def.LookupVariable(entry.Ident.name)
	if variable == nil {
		return &UnresolvedNameError{Type: inst.Def.Path.String(), Name: entry.Ident.name}
	}
	if wantSaved {
		return vm.push(ValueEntry(boolAsInt(variable.Flags.Has(FlagSaved))))
	}
	return vm.push(ValueEntry(variable.Default))
}

// callSuper implements ".." with zero args forwarding the caller's own
// argument tuple; with args, it forwards those instead.
func (vm *VM) callSuper(tuple ArgTuple) error {
	f := vm.frame()
	useTuple := tuple
	if len(tuple.Positional) == 0 && len(tuple.Named) == 0 {
		useTuple = f.callerTup
	}
	if f.src == nil || f.src.Def == nil || f.src.Def.Parent == nil {
		return &ProcUnresolvedError{Name: config.SuperName}
	}
	parentDef := f.src.Def.Parent
	proc, ok := parentDef.LookupProc(f.procRef.Name)
	if !ok {
		return &ProcUnresolvedError{Name: f.procRef.Name}
	}
	result, err := vm.InvokeProc(proc, f.src, useTuple, ProcRef{Owner: parentDef.Path, Name: proc.Name, Recv: f.src})
	if err != nil {
		return err
	}
	return vm.push(ValueEntry(result))
}

// InvokeProc materializes tuple, binds it against proc's parameters into a
// fresh scope seeded with src and args (and usr, but only when the call
// binds an argument named usr), and runs the proc body to
// completion (a nested, independently-stopping Run - its own interpreter
// state, per the concurrency model's "nested calls obtain their own
// interpreter state"). Exported so a host embedding the VM (pkg/embed) can
// invoke an entry-point proc with the same src/usr/args seeding that a
// nested Call gets, rather than a stripped-down parameter-only scope.
func (vm *VM) InvokeProc(proc *ProcDef, recv *Instance, tuple ArgTuple, ref ProcRef) (Value, error) {
	pos, named, err := tuple.Materialize()
	if err != nil {
		return Value{}, err
	}
	bound, err := BindArguments(proc, pos, named)
	if err != nil {
		return Value{}, err
	}
	scope := NewScope(recv, vm.tree, vm)
	for k, v := range bound {
		scope.Define(k, v)
	}

	argsList := NewList()
	for _, p := range proc.Params {
		argsList.Add(bound[p])
	}
	// Open Question resolution: args["n"] = 3 writes through to the local
	// scope binding n (string-keyed writes only); args[1] = 3 updates only
	// the positional vector backing the args list and leaves any
	// same-named local untouched. This is the source's actual behavior,
	// made explicit rather than inherited as an accident.
	argsList.OnAssigned = func(key, value Value) {
		if key.Type == ValString {
			scope.Assign(key.AsString(), value)
		}
	}
	scope.Define(config.ArgsName, ListAsValue(argsList))
	scope.Define(config.SrcName, ObjectVal(recv))
	if usr, ok := bound[config.UsrName]; ok {
		scope.Define(config.UsrName, usr)
	}
	return vm.Run(proc.Chunk, scope, recv, ref, tuple)
}

// opCallStatement pops a source object and a proc name/path, and resolves
// the proc via the source object's own proc table (its type's Search
// chain).
func (vm *VM) opCallStatement() error {
	argsEntry, err := vm.pop()
	if err != nil {
		return err
	}
	tuple, err := argsEntry.AsArgTuple()
	if err != nil {
		return err
	}
	nameVal, err := vm.popValue()
	if err != nil {
		return err
	}
	srcVal, err := vm.popValue()
	if err != nil {
		return err
	}
	if srcVal.Type != ValObject || srcVal.AsObject() == nil {
		return &NullDerefError{Op: "call statement"}
	}
	inst := srcVal.AsObject()

	var name string
	switch nameVal.Type {
	case ValString:
		name = nameVal.AsString()
	case ValPath:
		if sub, ok := nameVal.AsPath().After("proc"); ok && len(sub.Elements) > 0 {
			name = sub.Elements[0]
		} else {
			name = nameVal.AsPath().String()
		}
	case ValProc:
		name = nameVal.AsProc().Name
	default:
		return &TypeMismatchError{Context: "call statement proc name", Value: nameVal}
	}

	proc, ok := inst.Def.LookupProc(name)
	if !ok {
		return &ProcUnresolvedError{Name: name}
	}
	result, err := vm.InvokeProc(proc, inst, tuple, ProcRef{Owner: inst.Def.Path, Name: name, Recv: inst})
	if err != nil {
		return err
	}
	return vm.push(ValueEntry(result))
}

// opCreateObject pops an argument tuple and a path; a single-element
// relative path is rebound through the current scope's src type.
func (vm *VM) opCreateObject() error {
	argsEntry, err := vm.pop()
	if err != nil {
		return err
	}
	tuple, err := argsEntry.AsArgTuple()
	if err != nil {
		return err
	}
	pathVal, err := vm.popValue()
	if err != nil {
		return err
	}
	if pathVal.Type != ValPath {
		return &TypeMismatchError{Context: "create object path", Value: pathVal}
	}
	p := pathVal.AsPath()
	if !p.Absolute && len(p.Elements) == 1 {
		if f := vm.frame(); f.src != nil && f.src.Def != nil {
			elems := append(append([]string{}, f.src.Def.Path.Elements...), p.Elements...)
			p = Path{Elements: elems, Absolute: true}
		}
	}
	if vm.tree == nil {
		return &ProcUnresolvedError{Name: "CreateObject: no object tree configured"}
	}
	inst, err := vm.tree.CreateObject(p, tuple)
	if err != nil {
		return err
	}
	return vm.push(ValueEntry(ObjectVal(inst)))
}

// opDeleteObject fails if the popped value is null.
func (vm *VM) opDeleteObject() error {
	v, err := vm.popValue()
	if err != nil {
		return err
	}
	inst := v.AsObject()
	if inst == nil {
		return &NullDerefError{Op: "delete"}
	}
	if vm.tree == nil {
		inst.Deleted = true
		return vm.push(ValueEntry(NullVal()))
	}
	if err := vm.tree.DeleteObject(inst); err != nil {
		return err
	}
	return vm.push(ValueEntry(NullVal()))
}

// opInitial/opIsSaved are the dedicated unary opcodes the dereference
// lowering emits for a simple field or index terminal (as opposed to the
// general Call path handled by callInitialOrSaved above).
func (vm *VM) opInitial() error { return vm.opInitialOrSavedUnary(false) }
func (vm *VM) opIsSaved() error { return vm.opInitialOrSavedUnary(true) }

func (vm *VM) opInitialOrSavedUnary(wantSaved bool) error {
	kind := vm.readByte()
	switch kind {
	case 0: // field terminal
		name, err := vm.readString()
		if err != nil {
			return err
		}
		v, err := vm.popValue()
		if err != nil {
			return err
		}
		inst := v.AsObject()
		if inst == nil {
			return &NullDerefError{Op: "initial/issaved"}
		}
		variable, _ := inst.Def.LookupVariable(name)
		if variable == nil {
			return &UnresolvedNameError{Type: inst.Def.Path.String(), Name: name}
		}
		if wantSaved {
			return vm.push(ValueEntry(boolAsInt(variable.Flags.Has(FlagSaved))))
		}
		return vm.push(ValueEntry(variable.Default))
	case 1: // index terminal - lists carry no per-element default/persistence
		// state (only Variables do), so initial()/issaved() resolve to the
		// same answer every list index would give: no default, never saved.
		_, err := vm.popValue() // index
		if err != nil {
			return err
		}
		_, err = vm.popValue() // receiver
		if err != nil {
			return err
		}
		if wantSaved {
			return vm.push(ValueEntry(IntVal(0)))
		}
		return vm.push(ValueEntry(NullVal()))
	default:
		return &InvalidOpcodeError{Opcode: kind}
	}
}

func boolAsInt(b bool) Value {
	if b {
		return IntVal(1)
	}
	return IntVal(0)
}

// opPushArguments assembles an ArgTuple from the preceding count pushed
// values/identifiers (pushed in reverse order) plus count {tag, name?}
// records describing which are positional (tag 0) vs named (tag 1, followed
// by a NUL-terminated name).
func (vm *VM) opPushArguments() error {
	count := int(vm.readInt32())
	type rec struct {
		named bool
		name  string
	}
	recs := make([]rec, count)
	for i := 0; i < count; i++ {
		tag := vm.readByte()
		r := rec{named: tag == 1}
		if r.named {
			name, err := vm.readString()
			if err != nil {
				return err
			}
			r.name = name
		}
		recs[i] = r
	}
	entries := make([]StackEntry, count)
	for i := count - 1; i >= 0; i-- {
		e, err := vm.pop()
		if err != nil {
			return err
		}
		entries[i] = e
	}
	tuple := NewArgTuple()
	for i, r := range recs {
		if r.named {
			tuple.Named[r.name] = entries[i]
		} else {
			tuple.Positional = append(tuple.Positional, entries[i])
		}
	}
	return vm.push(ArgTupleEntry(tuple))
}

// List opcodes.

func (vm *VM) opListAppend(associated bool) error {
	if associated {
		v, err := vm.popValue()
		if err != nil {
			return err
		}
		k, err := vm.popValue()
		if err != nil {
			return err
		}
		listVal, err := vm.popValue()
		if err != nil {
			return err
		}
		l := AsList(listVal)
		if l == nil {
			return &TypeMismatchError{Context: "list append", Value: listVal}
		}
		if err := l.Set(k, v); err != nil {
			return err
		}
		return vm.push(ValueEntry(listVal))
	}
	v, err := vm.popValue()
	if err != nil {
		return err
	}
	listVal, err := vm.popValue()
	if err != nil {
		return err
	}
	l := AsList(listVal)
	if l == nil {
		return &TypeMismatchError{Context: "list append", Value: listVal}
	}
	l.Add(v)
	return vm.push(ValueEntry(listVal))
}

func (vm *VM) opIndexList() error {
	key, err := vm.popValue()
	if err != nil {
		return err
	}
	listVal, err := vm.popValue()
	if err != nil {
		return err
	}
	l := AsList(listVal)
	if l == nil {
		return &TypeMismatchError{Context: "index", Value: listVal}
	}
	return vm.push(IdentEntry(ListIndexIdent(l, key)))
}

func (vm *VM) opIsInList() error {
	needle, err := vm.popValue()
	if err != nil {
		return err
	}
	haystack, err := vm.popValue()
	if err != nil {
		return err
	}
	var l *List
	if haystack.Type == ValObject {
		if inst := haystack.AsObject(); inst != nil {
			if inst.listBacking != nil {
				l = inst.listBacking
			} else if cv, ok := inst.Fields["contents"]; ok {
				l = AsList(cv)
			}
		}
	} else {
		l = AsList(haystack)
	}
	if l == nil {
		return vm.push(ValueEntry(IntVal(0)))
	}
	return vm.push(ValueEntry(boolAsInt(l.Find(needle, 1, 0) != 0)))
}

func (vm *VM) opPushArgumentList() error {
	v, err := vm.popValue()
	if err != nil {
		return err
	}
	l := AsList(v)
	if l == nil {
		return &TypeMismatchError{Context: "arglist splat", Value: v}
	}
	return vm.push(ArgTupleEntry(PushArgumentList(l)))
}

func (vm *VM) opCreateListEnumerator() error {
	v, err := vm.popValue()
	if err != nil {
		return err
	}
	l := AsList(v)
	if l == nil {
		return &TypeMismatchError{Context: "enumerate", Value: v}
	}
	vm.enumerators = append(vm.enumerators, &enumeratorFrame{items: l.Snapshot()})
	return nil
}

func (vm *VM) opEnumerateList() error {
	name, err := vm.readString()
	if err != nil {
		return err
	}
	if len(vm.enumerators) == 0 {
		return &EnumeratorUnderflowError{}
	}
	ef := vm.enumerators[len(vm.enumerators)-1]
	if ef.pos >= len(ef.items) {
		return vm.push(ValueEntry(IntVal(0)))
	}
	v := ef.items[ef.pos]
	ef.pos++
	vm.frame().scope.Assign(name, v)
	return vm.push(ValueEntry(IntVal(1)))
}

// I/O bridge opcodes.

func pathIsUnder(p Path, root string) bool {
	rootPath := NewPath(root)
	if len(p.Elements) < len(rootPath.Elements) {
		return false
	}
	for i, e := range rootPath.Elements {
		if p.Elements[i] != e {
			return false
		}
	}
	return true
}

func (vm *VM) resolveClient(recv Value) (*Instance, error) {
	if recv.IsNull() {
		return nil, nil
	}
	if recv.Type != ValObject {
		return nil, &InvalidRecipientError{Op: "io"}
	}
	inst := recv.AsObject()
	if inst == nil {
		return nil, nil
	}
	if inst.Def == nil {
		return nil, &InvalidRecipientError{Op: "io"}
	}
	if pathIsUnder(inst.Def.Path, config.ClientTypePath) {
		return inst, nil
	}
	if pathIsUnder(inst.Def.Path, config.MobTypePath) {
		clientVal, ok := inst.Fields["client"]
		if !ok || clientVal.IsNullObject() {
			return nil, nil
		}
		return clientVal.AsObject(), nil
	}
	return nil, &InvalidRecipientError{Op: "io"}
}

func (vm *VM) opBrowse() error {
	options, err := vm.popValue()
	if err != nil {
		return err
	}
	html, err := vm.popValue()
	if err != nil {
		return err
	}
	recv, err := vm.popValue()
	if err != nil {
		return err
	}
	client, err := vm.resolveClient(recv)
	if err != nil {
		return err
	}
	if client == nil || vm.conn == nil {
		return vm.push(ValueEntry(NullVal()))
	}
	if err := vm.conn.Browse(client, html.Stringify(), options.Stringify()); err != nil {
		return err
	}
	return vm.push(ValueEntry(NullVal()))
}

func (vm *VM) opBrowseResource() error {
	filename, err := vm.popValue()
	if err != nil {
		return err
	}
	resourceVal, err := vm.popValue()
	if err != nil {
		return err
	}
	recv, err := vm.popValue()
	if err != nil {
		return err
	}
	client, err := vm.resolveClient(recv)
	if err != nil {
		return err
	}
	if client == nil || vm.conn == nil {
		return vm.push(ValueEntry(NullVal()))
	}
	var res *Resource
	if resourceVal.Type == ValResource {
		res = resourceVal.AsResource()
	}
	if err := vm.conn.BrowseResource(client, res, filename.Stringify()); err != nil {
		return err
	}
	return vm.push(ValueEntry(NullVal()))
}

func (vm *VM) opOutputControl() error {
	control, err := vm.popValue()
	if err != nil {
		return err
	}
	message, err := vm.popValue()
	if err != nil {
		return err
	}
	recv, err := vm.popValue()
	if err != nil {
		return err
	}
	client, err := vm.resolveClient(recv)
	if err != nil {
		return err
	}
	if client == nil || vm.conn == nil {
		return vm.push(ValueEntry(NullVal()))
	}
	if err := vm.conn.OutputControl(client, message.Stringify(), control.Stringify()); err != nil {
		return err
	}
	return vm.push(ValueEntry(NullVal()))
}

// opFormatString scans a NUL-terminated template for 0xFF sentinel bytes
// (each followed by one formatting-kind byte: 0x00 Stringify, 0x01 Ref),
// consuming one stack value per sentinel and accumulating output
// left-to-right.
func (vm *VM) opFormatString() error {
	template, err := vm.readFormatTemplate()
	if err != nil {
		return err
	}
	count := 0
	for i := 0; i < len(template); i++ {
		if template[i] == 0xFF {
			count++
			i++
		}
	}
	vals := make([]Value, count)
	for i := count - 1; i >= 0; i-- {
		v, err := vm.popValue()
		if err != nil {
			return err
		}
		vals[i] = v
	}
	var out []byte
	vi := 0
	for i := 0; i < len(template); i++ {
		b := template[i]
		if b == 0xFF {
			i++
			kind := template[i]
			v := vals[vi]
			vi++
			switch kind {
			case 0x00:
				out = append(out, v.Stringify()...)
			case 0x01:
				out = append(out, v.Inspect()...)
			default:
				return &InvalidOpcodeError{Opcode: kind}
			}
			continue
		}
		out = append(out, b)
	}
	return vm.push(ValueEntry(StringVal(string(out))))
}

func (vm *VM) readFormatTemplate() ([]byte, error) {
	f := vm.frame()
	start := f.ip
	var out []byte
	for {
		if f.ip >= len(f.chunk.Code) {
			return nil, &StringNotTerminatedError{Offset: start}
		}
		b := f.chunk.Code[f.ip]
		f.ip++
		if b == 0xFF {
			if f.ip >= len(f.chunk.Code) {
				return nil, &TruncatedBytecodeError{Offset: f.ip}
			}
			kind := f.chunk.Code[f.ip]
			f.ip++
			out = append(out, 0xFF, kind)
			continue
		}
		if b == 0x00 {
			return out, nil
		}
		out = append(out, b)
	}
}
