package transform

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/tliron/commonlog"

	"github.com/remora-mod/remora/bytecode"
	"github.com/remora-mod/remora/classfile"
)

var log = commonlog.GetLogger("remora.transform")

// Engine applies a fixed rule set to classes on their way into the host
// loader. Rules are installed once at construction and never mutated, so
// Transform is safe to call from concurrent load paths.
type Engine struct {
	rules    []Rule
	byClass  map[string][]int
	resolver bytecode.AncestorResolver

	seen      atomic.Int64
	matched   atomic.Int64
	rewritten atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

// NewEngine builds an engine over a static rule set. The resolver answers
// ancestor queries during re-verification; use bytecode.UniversalBase when
// no hierarchy has been indexed.
func NewEngine(rules []Rule, resolver bytecode.AncestorResolver) *Engine {
	e := &Engine{
		rules:    rules,
		byClass:  make(map[string][]int),
		resolver: resolver,
	}
	for i, r := range rules {
		e.byClass[r.Class] = append(e.byClass[r.Class], i)
	}
	return e
}

// Transform offers one class to the engine and returns the bytes the host
// should load. Classes no rule aims at pass through on a name check alone,
// without being parsed. Anything that goes wrong yields the original
// bytes: the engine never raises into the loader.
func (e *Engine) Transform(name string, data []byte) (out []byte) {
	e.seen.Add(1)
	out = data
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic transforming %s: %v", name, r)
			out = data
		}
	}()

	idxs := e.byClass[name]
	if len(idxs) == 0 {
		return data
	}
	e.matched.Add(1)

	cf, err := classfile.Parse(data)
	if err != nil {
		log.Warningf("cannot parse %s: %v", name, err)
		return data
	}

	changed := false
	for _, ri := range idxs {
		rule := e.rules[ri]
		n, err := e.applyRule(cf, rule)
		if n > 0 {
			e.rewritten.Add(int64(n))
			changed = true
		}
		switch {
		case err == nil:
		case errors.Is(err, ErrNoTarget):
			e.skipped.Add(1)
			log.Debugf("rule %s: no target in %s", rule.Name, name)
		default:
			e.failed.Add(1)
			log.Warningf("rule %s on %s dropped: %v", rule.Name, name, err)
		}
	}
	if !changed {
		return data
	}

	rewritten, err := classfile.Write(cf)
	if err != nil {
		log.Errorf("cannot encode rewritten %s: %v", name, err)
		return data
	}
	return rewritten
}

// applyRule rewrites every method the rule matches and returns how many
// were rewritten. Methods rewritten before a later failure stay rewritten;
// each one verified independently.
func (e *Engine) applyRule(cf *classfile.ClassFile, rule Rule) (int, error) {
	count := 0
	for _, m := range cf.Methods {
		if m.Code == nil {
			continue
		}
		if !rule.Match.Matches(cf.MethodName(m), cf.MethodDesc(m)) {
			continue
		}
		if err := e.rewriteMethod(cf, m, rule); err != nil {
			if errors.Is(err, ErrNoTarget) {
				continue
			}
			return count, err
		}
		count++
	}
	if count == 0 {
		return 0, ErrNoTarget
	}
	return count, nil
}

// rewriteMethod runs one method through decode, splice, verify, encode.
// The method's code is only swapped once the rewritten body has passed
// verification.
func (e *Engine) rewriteMethod(cf *classfile.ClassFile, m *classfile.MethodInfo, rule Rule) error {
	sig, err := bytecode.SigFor(cf, m)
	if err != nil {
		return err
	}
	body, err := bytecode.Decode(m.Code)
	if err != nil {
		return err
	}
	if err := rule.Action.apply(cf, body, sig); err != nil {
		return err
	}

	v := &bytecode.Verifier{Pool: cf.Pool, Resolver: e.resolver}
	budgets, err := v.Verify(body, sig)
	if err != nil {
		log.Debugf("rejected %s body for %s.%s:\n%s",
			rule.Action.name(), cf.Name(), cf.MethodName(m), bytecode.Disassemble(body, cf.Pool))
		return err
	}

	code, err := body.Encode()
	if err != nil {
		return err
	}
	code.MaxStack = budgets.MaxStack
	code.MaxLocals = budgets.MaxLocals
	m.Code = code
	return nil
}

// Report is a snapshot of the engine's counters.
type Report struct {
	Seen      int64 // classes offered
	Matched   int64 // classes at least one rule aims at
	Rewritten int64 // methods rewritten and verified
	Skipped   int64 // rule applications with no present target
	Failed    int64 // rule applications dropped on error
}

// Report returns current counters.
func (e *Engine) Report() Report {
	return Report{
		Seen:      e.seen.Load(),
		Matched:   e.matched.Load(),
		Rewritten: e.rewritten.Load(),
		Skipped:   e.skipped.Load(),
		Failed:    e.failed.Load(),
	}
}

func (r Report) String() string {
	return fmt.Sprintf("classes seen=%d matched=%d, methods rewritten=%d, rules skipped=%d failed=%d",
		r.Seen, r.Matched, r.Rewritten, r.Skipped, r.Failed)
}
