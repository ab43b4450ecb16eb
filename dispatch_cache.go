package factor

// dispatch_cache.go: the per-call-site megamorphic method cache
// spec.md §4.8 calls mega-cache-lookup, plus the slow-path echelon
// walk it falls back to. Grounded on
// _examples/original_source/vm/dispatch.cpp's method_cache and
// class_hierarchy lookup.

// megaCacheSize bounds each call site's cache: once a site holds this
// many classes, caching another one evicts the site's oldest entry
// (MegaCache.Insert).
const megaCacheSize = 4

type megaCacheKey struct {
	site  int
	class Cell
}

// MegaCache maps (call site, receiver class) to a resolved method.
// Each call site's entries are capped at megaCacheSize; once full, a
// new class at that site evicts the oldest entry rather than growing
// unbounded, keeping any one site's cache O(1).
type MegaCache struct {
	entries map[megaCacheKey]Cell
	order   map[int][]Cell // per-site insertion order, for eviction
}

// NewMegaCache returns an empty cache.
func NewMegaCache() *MegaCache {
	return &MegaCache{entries: make(map[megaCacheKey]Cell), order: make(map[int][]Cell)}
}

// Lookup returns the cached method for (site, class), if any.
func (mc *MegaCache) Lookup(site int, class Cell) (Cell, bool) {
	m, ok := mc.entries[megaCacheKey{site, class}]
	return m, ok
}

// Insert records (site, class) -> method, evicting the oldest entry
// at this site if it's already at capacity.
func (mc *MegaCache) Insert(site int, class, method Cell) {
	key := megaCacheKey{site, class}
	if _, exists := mc.entries[key]; exists {
		mc.entries[key] = method
		return
	}
	order := mc.order[site]
	if len(order) >= megaCacheSize {
		oldest := order[0]
		delete(mc.entries, megaCacheKey{site, oldest})
		order = order[1:]
	}
	order = append(order, class)
	mc.order[site] = order
	mc.entries[key] = method
}

// MethodKey identifies one entry of the generic-word method table:
// which class implements which generic word.
type MethodKey struct {
	Generic Cell
	Class   Cell
}

// Methods is the VM-global generic-word method table. Real Factor
// represents this as a heap hashtable reachable from the generic
// word's properties; this target keeps it as a Go map instead; no
// example or ecosystem library fits a dispatch-table cache better
// than the stdlib map it already wraps so plainly.
type Methods map[MethodKey]Cell

// NewMethods returns an empty method table.
func NewMethods() Methods { return make(Methods) }

// DefineMethod installs class's implementation of generic.
func (m Methods) DefineMethod(generic, class, method Cell) { m[MethodKey{generic, class}] = method }

// LookupMethod resolves generic for an object laid out under layout
// by walking its echelon chain of superclasses (spec.md §4.8,
// dispatch.cpp's lookup_method), consulting the cache first at call
// site `site` and populating it on a cold hit.
func (vm *VM) LookupMethod(methods Methods, site int, layout *Layout, generic Cell) (Cell, bool) {
	if layout == nil {
		return False, false
	}
	classWord := layout.ClassWord
	if cached, ok := vm.MegaCache.Lookup(site, classWord); ok {
		vm.Stats.MegaCacheHits++
		return cached, true
	}
	vm.Stats.MegaCacheMisses++

	for e := 0; e <= layout.Echelon; e++ {
		class := layout.NthSuperclass(e)
		if !ToBoolean(class) {
			continue
		}
		if method, ok := methods[MethodKey{generic, class}]; ok {
			vm.MegaCache.Insert(site, classWord, method)
			return method, true
		}
	}
	if method, ok := methods[MethodKey{generic, classWord}]; ok {
		vm.MegaCache.Insert(site, classWord, method)
		return method, true
	}
	return False, false
}

// combMegaCacheLookup is mega-cache-lookup's word body: ( obj generic --
// obj method ), the low-level word a generic word's own definition
// quotation calls to resolve which method its receiver dispatches to.
// obj (the receiver) is left in place -- peeked, not popped -- so the
// resolved method still finds it on top of the stack once `call` runs
// it. Each generic word's identity doubles as its own call site, since
// this target never compiles a call site's address the way real
// Factor does.
func combMegaCacheLookup(vm *VM) error {
	generic, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	obj, err := vm.CurrentContext.Peek()
	if err != nil {
		return err
	}
	var layout *Layout
	if IsObjectPtr(obj) && HeaderType(vm.Mem.GetCell(Untag(obj))) == TypeTuple {
		layout = LoadLayout(vm.Mem, TupleLayoutAddr(vm.Mem, Untag(obj)))
	}
	method, ok := vm.LookupMethod(vm.Methods, int(generic), layout, generic)
	if !ok {
		return vm.UndefinedSymbolError(generic)
	}
	return vm.CurrentContext.Push(method)
}
