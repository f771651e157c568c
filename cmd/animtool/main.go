// animtool is a CLI utility for inspecting and simulating animation rigs.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Faultbox/midgard-anim/internal/assets"
	"github.com/Faultbox/midgard-anim/internal/config"
	"github.com/Faultbox/midgard-anim/internal/engine/animation"
	"github.com/Faultbox/midgard-anim/internal/engine/loader"
	"github.com/Faultbox/midgard-anim/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "simulate", "sim":
		cmdSimulate(args)
	case "bindpose":
		cmdBindPose(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`animtool - skeletal animation rig utility

Usage:
  animtool <command> [options] <rig>

Rigs are YAML (.yaml, .yml) or glTF (.gltf, .glb) files. Relative paths
are also searched in data.rig_paths.

Commands:
  info <rig>              Show bones, clips and states
  simulate [flags] <rig>  Step animators at a fixed rate and print progress
  bindpose <rig>          Print bind pose skinning matrices

Common flags:
  -config <file>   Config file (default ./animtool.yaml)
  -debug           Enable debug logging
  -log <file>      Also write logs to a rotating file

Simulate flags:
  -play <state>                       State to start (default: rig default)
  -crossfade <state@sec[:duration]>   Schedule a cross-fade (repeatable)
  -set <name=value[@sec]>             Set a parameter (repeatable)
  -frames, -fps, -speed, -workers     Override playback config
  -instances <n>                      Animate n copies in parallel
  -every <n>                          Print every n frames

Examples:
  animtool info walker.yaml
  animtool simulate -play idle -set speed=1@0.5 -frames 60 walker.yaml
  animtool simulate -crossfade walk@1:0.3 -instances 64 hero.glb
  animtool bindpose hero.gltf`)
}

// setup parses flags, loads config, starts logging and loads the rig named
// by the first positional argument.
func setup(fs *flag.FlagSet, args []string) (*config.Config, *loader.Asset) {
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: animtool %s [options] <rig>\n", fs.Name())
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fail(fmt.Errorf("initializing logger: %w", err))
	}

	manager := assets.NewManager(cfg.Data.RigPaths...)
	asset, err := manager.Load(fs.Arg(0))
	if err != nil {
		fail(err)
	}
	return cfg, asset
}

func fail(err error) {
	logger.Sync()
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	_, asset := setup(fs, args)
	defer logger.Sync()

	s := asset.Skeleton
	fmt.Printf("Rig: %s\n\n", displayName(asset.Name))

	fmt.Printf("Bones (%d):\n", s.BoneCount())
	for i, b := range s.Bones() {
		parent := "-"
		if b.ParentIndex != animation.InvalidBoneIndex {
			parent = s.Bone(b.ParentIndex).Name
		}
		fmt.Printf("  %3d  %-24s parent %s\n", i, b.Name, parent)
	}

	fmt.Printf("\nClips (%d):\n", len(asset.Clips))
	for _, c := range asset.Clips {
		animated := ""
		if !c.HasAnimation() {
			animated = "  (static)"
		}
		fmt.Printf("  %-20s %8.2f ticks @ %6.2f/s = %6.3fs  %d tracks%s\n",
			c.Name(), c.Duration(), c.TicksPerSecond(), c.DurationSeconds(), len(c.BoneAnimations()), animated)
	}

	if len(asset.States) > 0 {
		fmt.Printf("\nStates (%d):\n", len(asset.States))
		for _, st := range asset.States {
			marker := " "
			if st.Name == asset.DefaultState {
				marker = "*"
			}
			fmt.Printf(" %s%-20s clip %-16s speed %.2f  %s\n", marker, st.Name, st.Clip, st.Speed, st.WrapMode)
			for _, t := range st.Transitions {
				fmt.Printf("      -> %-16s over %.2fs\n", t.TargetStateName, t.Duration)
			}
		}
	}
}

func cmdBindPose(args []string) {
	fs := flag.NewFlagSet("bindpose", flag.ExitOnError)
	_, asset := setup(fs, args)
	defer logger.Sync()

	s := asset.Skeleton
	matrices := s.ComputeBindPoseMatrices(nil)
	for i, m := range matrices {
		fmt.Printf("%3d %s\n", i, s.Bone(i).Name)
		for r := 0; r < 4; r++ {
			fmt.Printf("    [% 9.4f % 9.4f % 9.4f % 9.4f]\n", m[r], m[4+r], m[8+r], m[12+r])
		}
	}
	fmt.Printf("checksum %016x\n", animation.PoseChecksum(matrices))
}

func displayName(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}
