package collector

import (
	"context"
	"fmt"

	"github.com/prometheus/procfs"
)

// ProcfsSource reads the process table from /proc.
type ProcfsSource struct {
	fs procfs.FS
}

// NewProcfsSource opens the proc filesystem at mountPoint, or the
// default /proc when empty.
func NewProcfsSource(mountPoint string) (*ProcfsSource, error) {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("collector: open procfs at %s: %w", mountPoint, err)
	}
	return &ProcfsSource{fs: fs}, nil
}

// Procs enumerates the live processes. Processes that vanish between
// the directory listing and the stat read are skipped, not errors.
func (s *ProcfsSource) Procs(ctx context.Context) ([]ProcInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	procs, err := s.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("collector: list procs: %w", err)
	}

	out := make([]ProcInfo, 0, len(procs))
	for _, p := range procs {
		stat, err := p.Stat()
		if err != nil {
			continue
		}

		var uid uint32
		if status, err := p.NewStatus(); err == nil {
			uid = uint32(status.UIDs[0])
		}

		var stateChar byte
		if len(stat.State) > 0 {
			stateChar = stat.State[0]
		}

		out = append(out, ProcInfo{
			PID:   p.PID,
			PPID:  stat.PPID,
			Comm:  stat.Comm,
			State: stateChar,
			UID:   uid,
		})
	}
	return out, nil
}
