package main

import (
	"errors"
	"fmt"
	gomath "math"
	"sort"
	"strconv"
	"strings"

	"github.com/Faultbox/midgard-anim/internal/engine/animation"
)

var errEventSyntax = errors.New("bad event syntax")

// crossfade is a -crossfade state@seconds[:duration] value. A zero duration
// means the configured default.
type crossfade struct {
	state    string
	at       float64
	duration float32
}

type crossfadeList []crossfade

func (l *crossfadeList) String() string { return fmt.Sprint(*l) }

func (l *crossfadeList) Set(s string) error {
	state, rest, ok := strings.Cut(s, "@")
	if !ok || state == "" {
		return fmt.Errorf("%q: want state@seconds[:duration]: %w", s, errEventSyntax)
	}
	at, dur, hasDur := strings.Cut(rest, ":")

	cf := crossfade{state: state}
	var err error
	if cf.at, err = strconv.ParseFloat(at, 64); err != nil || cf.at < 0 {
		return fmt.Errorf("%q: bad time %q: %w", s, at, errEventSyntax)
	}
	if hasDur {
		d, err := strconv.ParseFloat(dur, 32)
		if err != nil || d < 0 {
			return fmt.Errorf("%q: bad duration %q: %w", s, dur, errEventSyntax)
		}
		cf.duration = float32(d)
	}
	*l = append(*l, cf)
	return nil
}

// param is a -set name=value[@seconds] value. true and false set a bool;
// integers set both the int and float parameter.
type param struct {
	name  string
	value string
	at    float64
}

type paramList []param

func (l *paramList) String() string { return fmt.Sprint(*l) }

func (l *paramList) Set(s string) error {
	assign, at, hasAt := strings.Cut(s, "@")
	name, value, ok := strings.Cut(assign, "=")
	if !ok || name == "" || value == "" {
		return fmt.Errorf("%q: want name=value[@seconds]: %w", s, errEventSyntax)
	}

	p := param{name: name, value: value}
	if hasAt {
		t, err := strconv.ParseFloat(at, 64)
		if err != nil || t < 0 {
			return fmt.Errorf("%q: bad time %q: %w", s, at, errEventSyntax)
		}
		p.at = t
	}
	if _, err := p.setter(); err != nil {
		return err
	}
	*l = append(*l, p)
	return nil
}

func (p param) setter() (func(*animation.Animator), error) {
	switch p.value {
	case "true", "false":
		b := p.value == "true"
		return func(a *animation.Animator) { a.SetBool(p.name, b) }, nil
	}
	if i, err := strconv.ParseInt(p.value, 10, 32); err == nil {
		return func(a *animation.Animator) {
			a.SetInt(p.name, int32(i))
			a.SetFloat(p.name, float32(i))
		}, nil
	}
	f, err := strconv.ParseFloat(p.value, 32)
	if err != nil {
		return nil, fmt.Errorf("%s=%s: value is not a number or bool: %w", p.name, p.value, errEventSyntax)
	}
	return func(a *animation.Animator) { a.SetFloat(p.name, float32(f)) }, nil
}

// event is a scheduled action, applied before the update that follows
// frame.
type event struct {
	frame    int
	describe string
	apply    func(*animation.Animator)
}

// schedule converts flag values into events ordered by frame. Parameters
// set at the same frame as a cross-fade apply first.
func schedule(crossfades crossfadeList, params paramList, fps float64, defaultFade float32) []event {
	var events []event
	for _, p := range params {
		set, _ := p.setter()
		events = append(events, event{
			frame:    toFrame(p.at, fps),
			describe: fmt.Sprintf("set %s=%s", p.name, p.value),
			apply:    set,
		})
	}
	for _, cf := range crossfades {
		if cf.duration == 0 {
			cf.duration = defaultFade
		}
		events = append(events, event{
			frame:    toFrame(cf.at, fps),
			describe: fmt.Sprintf("crossfade -> %s over %.2fs", cf.state, cf.duration),
			apply:    func(a *animation.Animator) { a.CrossFade(cf.state, cf.duration) },
		})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].frame < events[j].frame })
	return events
}

func toFrame(seconds, fps float64) int {
	return int(gomath.Round(seconds * fps))
}
