package main

import (
	"github.com/marlkit/marl"
	"github.com/marlkit/marl/pkg/schema"
)

// encodeInstance renders an instance as a plain map for display.
func encodeInstance(inst *marl.Instance) map[string]any {
	s := inst.Schema()
	out := map[string]any{"_id": inst.Key()}
	for _, attr := range s.Attrs() {
		f, _ := s.Field(attr)
		if f.Kind() == schema.ManyKind {
			continue
		}
		v, err := inst.Get(attr)
		if err != nil || v.IsAbsent() {
			continue
		}
		out[attr] = f.Encode(v)
	}
	return out
}

// summaryOf picks the first non-empty text attribute as a label.
func summaryOf(inst *marl.Instance) string {
	s := inst.Schema()
	for _, attr := range s.Attrs() {
		f, _ := s.Field(attr)
		if f.Kind() != schema.TextKind && f.Kind() != schema.EmailKind {
			continue
		}
		v, err := inst.Get(attr)
		if err != nil {
			continue
		}
		if text, ok := v.Text(); ok && text != "" {
			return "- " + text
		}
	}
	return ""
}
