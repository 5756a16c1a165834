package builtin

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ConditionCache is a thread-safe LRU cache of compiled boolean expression
// programs. Conditions are plain expr-lang programs evaluated against data;
// they never execute host code.
type ConditionCache struct {
	capacity int
	cache    map[string]*list.Element
	lruList  *list.List
	mu       sync.Mutex
}

type conditionEntry struct {
	key     string
	program *vm.Program
}

// sharedConditions is the cache used by the built-in routing and loop
// handlers; conditions repeat on every loop iteration and every routed run.
var sharedConditions = NewConditionCache(256)

// NewConditionCache creates a cache with the given capacity (<=0 selects 100).
func NewConditionCache(capacity int) *ConditionCache {
	if capacity <= 0 {
		capacity = 100
	}
	return &ConditionCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lruList:  list.New(),
	}
}

// Get retrieves a compiled program.
func (cc *ConditionCache) Get(condition string) (*vm.Program, bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if element, found := cc.cache[condition]; found {
		cc.lruList.MoveToFront(element)
		return element.Value.(*conditionEntry).program, true
	}
	return nil, false
}

// Put stores a compiled program, evicting the least recently used entry when
// over capacity.
func (cc *ConditionCache) Put(condition string, program *vm.Program) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if element, found := cc.cache[condition]; found {
		cc.lruList.MoveToFront(element)
		element.Value.(*conditionEntry).program = program
		return
	}

	element := cc.lruList.PushFront(&conditionEntry{key: condition, program: program})
	cc.cache[condition] = element

	if cc.lruList.Len() > cc.capacity {
		oldest := cc.lruList.Back()
		if oldest != nil {
			cc.lruList.Remove(oldest)
			delete(cc.cache, oldest.Value.(*conditionEntry).key)
		}
	}
}

// Len returns the number of cached programs.
func (cc *ConditionCache) Len() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.lruList.Len()
}

// EvaluateBool compiles (or reuses) a boolean condition and runs it against
// the environment.
func (cc *ConditionCache) EvaluateBool(condition string, env map[string]interface{}) (bool, error) {
	if condition == "" {
		return true, nil
	}

	program, found := cc.Get(condition)
	if !found {
		compiled, err := expr.Compile(condition, expr.AsBool(), expr.AllowUndefinedVariables())
		if err != nil {
			return false, fmt.Errorf("failed to compile condition: %w", err)
		}
		cc.Put(condition, compiled)
		program = compiled
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate condition: %w", err)
	}

	boolResult, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("condition must return boolean, got: %T", result)
	}
	return boolResult, nil
}
