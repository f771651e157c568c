package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/Faultbox/midgard-anim/internal/config"
	"github.com/Faultbox/midgard-anim/internal/engine/animation"
	"github.com/Faultbox/midgard-anim/internal/engine/loader"
	"github.com/Faultbox/midgard-anim/internal/logger"
)

func cmdSimulate(args []string) {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	play := fs.String("play", "", "State to start")
	every := fs.Int("every", 10, "Print every n frames (0 = only the last)")
	instances := fs.Int("instances", 1, "Number of animators to drive")
	var crossfades crossfadeList
	var params paramList
	fs.Var(&crossfades, "crossfade", "Cross-fade as state@seconds[:duration] (repeatable)")
	fs.Var(&params, "set", "Parameter as name=value[@seconds] (repeatable)")

	cfg, asset := setup(fs, args)
	defer logger.Sync()

	if *instances < 1 {
		fail(fmt.Errorf("-instances must be at least 1, got %d", *instances))
	}

	sys := animation.NewSystem(
		animation.WithWorkers(cfg.Playback.Workers),
		animation.WithLogger(logger.Named("system")),
	)
	components := make([]*animation.AnimatorComponent, *instances)
	for i := range components {
		c := asset.NewComponent()
		applyPlayback(c.Animator(), asset, cfg)
		if *play != "" {
			if c.Animator().State(*play) == nil {
				fail(fmt.Errorf("unknown state %q", *play))
			}
			c.Animator().Play(*play, 0)
		}
		components[i] = c
		sys.Add(c)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fps := cfg.Playback.FPS
	dt := cfg.DeltaTime()
	events := schedule(crossfades, params, fps, cfg.Playback.Crossfade)
	logger.Sugar.Infow("simulating",
		"rig", asset.Name,
		"frames", cfg.Playback.Frames,
		"fps", fps,
		"instances", *instances,
		"events", len(events))

	watched := components[0].Animator()
	next := 0
	for frame := 1; frame <= cfg.Playback.Frames; frame++ {
		for ; next < len(events) && events[next].frame < frame; next++ {
			for _, c := range components {
				events[next].apply(c.Animator())
			}
			fmt.Printf("frame %5d  %s\n", frame, events[next].describe)
		}

		if err := sys.UpdateParallel(ctx, dt); err != nil {
			fail(fmt.Errorf("frame %d: %w", frame, err))
		}

		if (*every > 0 && frame%*every == 0) || frame == cfg.Playback.Frames {
			printFrame(frame, float64(frame)/fps, watched)
		}
	}

	sum := watched.PoseChecksum()
	agree := true
	for _, c := range components[1:] {
		if c.Animator().PoseChecksum() != sum {
			agree = false
		}
	}
	fmt.Printf("checksum %016x", sum)
	if len(components) > 1 {
		fmt.Printf("  instances agree: %v", agree)
	}
	fmt.Println()
}

// applyPlayback scales every state by the configured speed and gives states
// the rig does not define the configured wrap mode.
func applyPlayback(a *animation.Animator, asset *loader.Asset, cfg *config.Config) {
	defined := make(map[string]bool, len(asset.States))
	for _, st := range asset.States {
		defined[st.Name] = true
	}
	for _, name := range a.StateNames() {
		st := a.State(name)
		st.SetSpeed(st.Speed() * cfg.Playback.Speed)
		if !defined[name] {
			st.SetWrapMode(cfg.WrapMode())
		}
	}
}

func printFrame(frame int, seconds float64, a *animation.Animator) {
	state := "-"
	if cur := a.CurrentState(); cur != nil {
		state = cur.Name()
	}
	target := ""
	if a.IsTransitioning() {
		target = fmt.Sprintf("  -> %s %3.0f%%", a.NextState().Name(), a.BlendFactor()*100)
	}
	fmt.Printf("frame %5d  t=%7.3fs  %-13s %-16s norm %.3f%s\n",
		frame, seconds, a.Phase(), state, a.NormalizedTime(), target)
}
