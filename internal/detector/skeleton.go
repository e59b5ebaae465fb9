// Package detector provides body-skeleton detection interfaces and types.
package detector

import (
	"fmt"
	"strings"

	"github.com/ayusman/hipcheck/internal/motion"
)

// JointType indexes a joint in a Skeleton. The order follows the 20-joint
// body tracker layout.
type JointType int

const (
	HipCenter JointType = iota
	Spine
	ShoulderCenter
	Head
	ShoulderLeft
	ElbowLeft
	WristLeft
	HandLeft
	ShoulderRight
	ElbowRight
	WristRight
	HandRight
	HipLeft
	KneeLeft
	AnkleLeft
	FootLeft
	HipRight
	KneeRight
	AnkleRight
	FootRight
	NumJoints
)

var jointNames = [NumJoints]string{
	"hip_center", "spine", "shoulder_center", "head",
	"shoulder_left", "elbow_left", "wrist_left", "hand_left",
	"shoulder_right", "elbow_right", "wrist_right", "hand_right",
	"hip_left", "knee_left", "ankle_left", "foot_left",
	"hip_right", "knee_right", "ankle_right", "foot_right",
}

func (j JointType) String() string {
	if j < 0 || j >= NumJoints {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// ParseJoint looks up a joint by its snake_case name.
func ParseJoint(name string) (JointType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range jointNames {
		if n == name {
			return JointType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown joint %q", name)
}

// TrackingState is how reliably the sensor located a joint.
type TrackingState int

const (
	NotTracked TrackingState = iota
	Inferred
	Tracked
)

func (s TrackingState) String() string {
	switch s {
	case Inferred:
		return "inferred"
	case Tracked:
		return "tracked"
	default:
		return "not_tracked"
	}
}

// SkeletonTracking is how much of a body the sensor resolved.
type SkeletonTracking int

const (
	SkeletonNotTracked SkeletonTracking = iota
	// SkeletonPositionOnly means only the body centre is known.
	SkeletonPositionOnly
	SkeletonTracked
)

func parseSkeletonTracking(s string) SkeletonTracking {
	switch s {
	case "tracked":
		return SkeletonTracked
	case "position_only":
		return SkeletonPositionOnly
	default:
		return SkeletonNotTracked
	}
}

// Joint is one tracked body point.
type Joint struct {
	Position motion.Point3 `json:"position"`
	State    TrackingState `json:"state"`
}

// Skeleton is one detected body.
type Skeleton struct {
	Joints   [NumJoints]Joint `json:"joints"`
	Position motion.Point3    `json:"position"`
	Tracking SkeletonTracking `json:"tracking"`
}

// Reference returns the position of joint j when both the skeleton and the
// joint are fully tracked.
func (s *Skeleton) Reference(j JointType) (motion.Point3, bool) {
	if s == nil || s.Tracking != SkeletonTracked || j < 0 || j >= NumJoints {
		return motion.Point3{}, false
	}
	joint := s.Joints[j]
	if joint.State != Tracked {
		return motion.Point3{}, false
	}
	return joint.Position, true
}

// FirstReference returns joint j of the first skeleton that has it tracked.
func FirstReference(skeletons []Skeleton, j JointType) (motion.Point3, bool) {
	for i := range skeletons {
		if p, ok := skeletons[i].Reference(j); ok {
			return p, true
		}
	}
	return motion.Point3{}, false
}
