package formats

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimalRig = `
name: stick
skeleton:
  bones:
    - name: root
clips:
  - name: still
    tracks: []
`

func TestParseRig_Walker(t *testing.T) {
	rig, err := LoadRigFile(filepath.Join("testdata", "walker.yaml"))
	if err != nil {
		t.Fatalf("LoadRigFile: %v", err)
	}

	if rig.Name != "walker" {
		t.Errorf("Name = %q, want walker", rig.Name)
	}
	if got := len(rig.Skeleton.Bones); got != 4 {
		t.Fatalf("bones = %d, want 4", got)
	}
	if rig.Skeleton.Bones[3].Parent != "spine" {
		t.Errorf("arm parent = %q, want spine", rig.Skeleton.Bones[3].Parent)
	}
	if got := len(rig.Clips); got != 2 {
		t.Fatalf("clips = %d, want 2", got)
	}

	walk := rig.Clips[1]
	if walk.TicksPerSecond != 10 || walk.Duration != 10 {
		t.Errorf("walk duration/tps = %v/%v", walk.Duration, walk.TicksPerSecond)
	}
	if got := len(walk.Tracks[0].Position); got != 3 {
		t.Errorf("hips position keys = %d, want 3", got)
	}
	if v := walk.Tracks[0].Position[1].Value[1]; v != 1.1 {
		t.Errorf("hips key 1 y = %v, want 1.1", v)
	}

	if rig.States[0].Speed != nil {
		t.Errorf("idle speed should be unset")
	}
	if rig.States[1].Speed == nil || *rig.States[1].Speed != 1.5 {
		t.Errorf("walk speed = %v, want 1.5", rig.States[1].Speed)
	}
	if rig.DefaultState != "idle" {
		t.Errorf("DefaultState = %q", rig.DefaultState)
	}
	cond := rig.States[0].Transitions[0].When[0]
	if cond.Param != "speed" || cond.Op != ">" || cond.Value != 0.1 {
		t.Errorf("condition = %+v", cond)
	}
}

func TestParseRig_Minimal(t *testing.T) {
	rig, err := ParseRig([]byte(minimalRig))
	if err != nil {
		t.Fatalf("ParseRig: %v", err)
	}
	if len(rig.States) != 0 || rig.DefaultState != "" {
		t.Errorf("expected no state machine, got %+v", rig.States)
	}
}

func TestParseRig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{
			name:    "empty",
			data:    "  \n",
			wantErr: ErrEmptyRigData,
		},
		{
			name:    "no bones",
			data:    "name: x\nskeleton:\n  bones: []\n",
			wantErr: ErrRigNoBones,
		},
		{
			name:    "unnamed bone",
			data:    "skeleton:\n  bones:\n    - parent: x\n",
			wantErr: ErrRigMissingName,
		},
		{
			name:    "duplicate bone",
			data:    "skeleton:\n  bones:\n    - name: a\n    - name: a\n",
			wantErr: ErrRigDuplicateName,
		},
		{
			name:    "unknown parent",
			data:    "skeleton:\n  bones:\n    - name: a\n      parent: b\n",
			wantErr: ErrRigUnknownRef,
		},
		{
			name:    "self parent",
			data:    "skeleton:\n  bones:\n    - name: a\n      parent: a\n",
			wantErr: ErrRigUnknownRef,
		},
		{
			name:    "short translation",
			data:    "skeleton:\n  bones:\n    - name: a\n      translation: [1, 2]\n",
			wantErr: ErrRigBadVector,
		},
		{
			name: "short rotation key",
			data: minimalRig + `
  - name: spin
    tracks:
      - bone: root
        rotation:
          - {time: 0, value: [0, 0, 1]}
`,
			wantErr: ErrRigBadVector,
		},
		{
			name: "track on unknown bone",
			data: minimalRig + `
  - name: spin
    tracks:
      - bone: tail
`,
			wantErr: ErrRigUnknownRef,
		},
		{
			name: "negative duration",
			data: minimalRig + `
  - name: back
    duration: -1
    tracks: []
`,
			wantErr: ErrRigBadClip,
		},
		{
			name:    "state on unknown clip",
			data:    minimalRig + "states:\n  - name: s\n    clip: nope\n",
			wantErr: ErrRigUnknownRef,
		},
		{
			name:    "transition without conditions",
			data:    minimalRig + "states:\n  - name: s\n    clip: still\n    transitions:\n      - to: s\n",
			wantErr: ErrRigBadTransition,
		},
		{
			name:    "unknown default state",
			data:    minimalRig + "default_state: run\n",
			wantErr: ErrRigUnknownRef,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRig([]byte(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseRig() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRig_UnknownField(t *testing.T) {
	_, err := ParseRig([]byte(minimalRig + "bogus: 1\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "bogus") {
		t.Errorf("error %v should name the field", err)
	}
}

func TestRig_MarshalRoundTrip(t *testing.T) {
	rig, err := LoadRigFile(filepath.Join("testdata", "walker.yaml"))
	if err != nil {
		t.Fatalf("LoadRigFile: %v", err)
	}

	data, err := rig.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	path := filepath.Join(t.TempDir(), "walker.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	again, err := LoadRigFile(path)
	if err != nil {
		t.Fatalf("reloading marshaled rig: %v", err)
	}
	if len(again.Clips) != len(rig.Clips) || again.DefaultState != rig.DefaultState {
		t.Errorf("round trip lost data: %+v", again)
	}
}

func TestLoadRigFile_Missing(t *testing.T) {
	_, err := LoadRigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}
