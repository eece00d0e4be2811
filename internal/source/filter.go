package source

import (
	"context"
	"strings"
)

// Filter drops lines that fail the include/exclude substring rules.
type Filter struct {
	Source
	includes    []string
	excludes    []string
	passthrough map[string]struct{}
}

func NewFilter(src Source, includes, excludes []string, passthrough ...string) *Filter {
	pt := make(map[string]struct{}, len(passthrough))
	for _, p := range passthrough {
		pt[p] = struct{}{}
	}
	return &Filter{Source: src, includes: includes, excludes: excludes, passthrough: pt}
}

func (f *Filter) Next(ctx context.Context) (string, error) {
	for {
		line, err := f.Source.Next(ctx)
		if err != nil {
			return "", err
		}
		if f.allow(line) {
			return line, nil
		}
	}
}

func (f *Filter) allow(line string) bool {
	if _, ok := f.passthrough[line]; ok {
		return true
	}
	if len(f.includes) > 0 {
		ok := false
		for _, inc := range f.includes {
			if inc == "" || strings.Contains(line, inc) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, exc := range f.excludes {
		if exc != "" && strings.Contains(line, exc) {
			return false
		}
	}
	return true
}
