package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/hipcheck/internal/motion"
)

const (
	poseScript      = "pose_service.py"
	poseIdleTimeout = 30 * time.Second
)

// PoseDetector implements Detector with an external pose-estimation process.
// Frames are written to its stdin as a 4-byte big-endian length followed by
// JPEG bytes; it answers each frame with one JSON line.
type PoseDetector struct {
	config    Config
	script    string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewPoseDetector creates a detector backed by pose_service.py. The process
// is started lazily on the first Detect call.
func NewPoseDetector(config Config) (*PoseDetector, error) {
	script := findScript(poseScript)
	if script == "" {
		return nil, fmt.Errorf("%s not found", poseScript)
	}
	return &PoseDetector{
		config: config,
		script: script,
	}, nil
}

// Detect sends frame to the pose process and returns the skeletons it found.
func (d *PoseDetector) Detect(frame *gocv.Mat) ([]Skeleton, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()
	data := buf.GetBytes()

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(data)))
	if _, err := d.stdin.Write(header); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	skeletons, err := decodePoseResponse(line, d.config)
	if err != nil {
		return nil, err
	}

	d.resetIdleTimer()
	return skeletons, nil
}

// Close shuts down the pose process.
func (d *PoseDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *PoseDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	python := findScript("venv/bin/python")
	if python == "" {
		python = "python3"
	}

	d.cmd = exec.Command(python, d.script)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	log.Printf("pose service started (pid %d)", d.cmd.Process.Pid)
	return nil
}

func (d *PoseDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
	return err
}

// resetIdleTimer stops the process after poseIdleTimeout without frames.
func (d *PoseDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(poseIdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.shutdown(); err != nil {
			log.Printf("pose service exited: %v", err)
		}
	})
}

// findScript resolves rel against the working directory, its parents, the
// executable's directory and ~/.hipcheck.
func findScript(rel string) string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", rel),
		filepath.Join("..", "scripts", rel),
		rel,
		filepath.Join("..", rel),
		filepath.Join(execDir, "scripts", rel),
		filepath.Join(execDir, rel),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".hipcheck", "scripts", rel), filepath.Join(home, ".hipcheck", rel))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

// poseResponse is the JSON line written by the pose process. Joints are in
// JointType order, positions in sensor-relative meters.
type poseResponse struct {
	Skeletons []poseSkeleton `json:"skeletons"`
}

type poseSkeleton struct {
	Score    float64       `json:"score"`
	Tracking string        `json:"tracking"`
	Position motion.Point3 `json:"position"`
	Joints   []poseJoint   `json:"joints"`
}

type poseJoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Confidence float64 `json:"confidence"`
}

func decodePoseResponse(line []byte, cfg Config) ([]Skeleton, error) {
	var resp poseResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	var out []Skeleton
	for _, ps := range resp.Skeletons {
		if ps.Score < cfg.MinConfidence {
			continue
		}
		if cfg.MaxBodies > 0 && len(out) >= cfg.MaxBodies {
			break
		}
		out = append(out, ps.toSkeleton(cfg))
	}
	return out, nil
}

func (ps poseSkeleton) toSkeleton(cfg Config) Skeleton {
	sk := Skeleton{
		Position: ps.Position,
		Tracking: parseSkeletonTracking(ps.Tracking),
	}
	for i := 0; i < int(NumJoints) && i < len(ps.Joints); i++ {
		j := ps.Joints[i]
		state := NotTracked
		switch {
		case j.Confidence >= cfg.MinTrackingConf:
			state = Tracked
		case j.Confidence >= cfg.MinConfidence:
			state = Inferred
		}
		sk.Joints[i] = Joint{
			Position: motion.Point3{X: j.X, Y: j.Y, Z: j.Z},
			State:    state,
		}
	}
	return sk
}
