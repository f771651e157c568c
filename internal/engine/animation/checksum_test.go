package animation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/midgard-anim/pkg/math"
)

func TestPoseChecksum(t *testing.T) {
	pose := []math.Mat4{math.Identity(), math.Translate(1, 2, 3)}
	same := []math.Mat4{math.Identity(), math.Translate(1, 2, 3)}

	assert.Equal(t, PoseChecksum(pose), PoseChecksum(same))
	assert.Equal(t, PoseChecksum(nil), PoseChecksum([]math.Mat4{}))

	same[1][14] = 3.0000002
	assert.NotEqual(t, PoseChecksum(pose), PoseChecksum(same))

	swapped := []math.Mat4{pose[1], pose[0]}
	assert.NotEqual(t, PoseChecksum(pose), PoseChecksum(swapped))
}
