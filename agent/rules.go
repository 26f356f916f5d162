package agent

import (
	"github.com/remora-mod/remora/classfile"
	"github.com/remora-mod/remora/hooks"
	"github.com/remora-mod/remora/pin"
	"github.com/remora-mod/remora/transform"
)

// Rules derives the engine's rule set from one release's pin catalog.
// A hook whose method pin is absent is simply not available in that
// release: the rule is omitted, nothing fails.
func Rules(pins *pin.Table) []transform.Rule {
	var rules []transform.Rule

	add := func(id string, action transform.Action) {
		mp, ok := pins.Method(id)
		if !ok {
			log.Debugf("no method pin for %s", id)
			return
		}
		params, _, err := classfile.ParseDescriptor(mp.Desc)
		if err != nil {
			log.Warningf("method pin %s has a bad descriptor: %v", id, err)
			return
		}
		rules = append(rules, transform.Rule{
			Name:   id,
			Class:  mp.Class,
			Match:  transform.MethodMatch{Name: mp.Name, Shape: classfile.KindsOf(params)},
			Action: action,
		})
	}
	callout := func(name string) transform.Callout {
		return transform.Callout{Class: hooks.CalloutClass, Name: name}
	}

	add("block-break", transform.GuardedCallout{Callout: callout("blockBreak"), Arg: 0})
	add("block-place", transform.GuardedCallout{Callout: callout("blockPlace"), Arg: 0})
	add("chat", transform.GuardedCallout{Callout: callout("chat"), Arg: 0})
	add("command", transform.GuardedCallout{Callout: callout("command"), Arg: 0})
	add("join", transform.PreReturnInject{Callout: callout("join")})
	add("quit", transform.PreReturnInject{Callout: callout("quit")})
	add("death", transform.PreReturnInject{Callout: callout("death")})
	add("teleport", transform.PreReturnInject{Callout: callout("teleport")})
	add("handshake", transform.FullReplace{Callout: callout("handshake")})
	add("login", transform.FullReplace{Callout: callout("login")})
	if rule, ok := brandRule(pins); ok {
		rules = append(rules, rule)
	}
	return rules
}

// brandRule reroutes the host's stored window title through the
// dispatcher. It needs two pins: the method the store happens in, and
// the field being stored.
func brandRule(pins *pin.Table) (transform.Rule, bool) {
	mp, ok := pins.Method("brand-title")
	if !ok {
		return transform.Rule{}, false
	}
	fp, ok := pins.Member("brand-field")
	if !ok || fp.Kind != "field" {
		return transform.Rule{}, false
	}
	owner, ok := pins.OwnerClass(fp)
	if !ok {
		return transform.Rule{}, false
	}
	params, _, err := classfile.ParseDescriptor(mp.Desc)
	if err != nil {
		log.Warningf("method pin brand-title has a bad descriptor: %v", err)
		return transform.Rule{}, false
	}
	return transform.Rule{
		Name:  "brand-title",
		Class: mp.Class,
		Match: transform.MethodMatch{Name: mp.Name, Shape: classfile.KindsOf(params)},
		Action: transform.FieldOverride{
			Field:   transform.FieldRef{Class: owner, Name: fp.Name, Desc: fp.Desc},
			Compute: &transform.Callout{Class: hooks.CalloutClass, Name: "brandTitle"},
		},
	}, true
}
