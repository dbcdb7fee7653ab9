package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/gocortexio/gcgit/pkg/logger"
)

const (
	lockFileName  = ".gcgit.lock"
	ownerFileName = ".gcgit.lock.owner"
)

// InstanceLockedError reports that another invocation holds the instance
// lock. PID and Since come from the holder's owner record when readable.
type InstanceLockedError struct {
	Instance string
	PID      int
	Since    time.Time
}

func (e *InstanceLockedError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("instance %s is locked by pid %d since %s",
			e.Instance, e.PID, e.Since.Format(time.RFC3339))
	}
	return fmt.Sprintf("instance %s is locked by another invocation", e.Instance)
}

// lockOwner is the metadata written next to the lock file so a blocked
// invocation can say who holds the lock.
type lockOwner struct {
	PID   int       `json:"pid"`
	Token string    `json:"token"`
	Since time.Time `json:"since"`
}

// Lock is a held instance lock. Release it with Release.
type Lock struct {
	fl        *flock.Flock
	ownerPath string
}

// AcquireLock takes the instance-wide mutation lock without blocking. The
// OS-level flock means a crashed holder releases the lock automatically; a
// leftover owner file from such a crash is reclaimed with a warning.
func AcquireLock(instanceDir string) (*Lock, error) {
	lockPath := filepath.Join(instanceDir, lockFileName)
	ownerPath := filepath.Join(instanceDir, ownerFileName)

	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire instance lock: %w", err)
	}
	if !locked {
		lockedErr := &InstanceLockedError{Instance: instanceDir}
		if data, rerr := os.ReadFile(ownerPath); rerr == nil {
			var owner lockOwner
			if json.Unmarshal(data, &owner) == nil {
				lockedErr.PID = owner.PID
				lockedErr.Since = owner.Since
			}
		}
		return nil, lockedErr
	}

	// Holding the flock with an owner file still present means the previous
	// holder died without releasing.
	if _, err := os.Stat(ownerPath); err == nil {
		logger.Warnf("Reclaiming stale lock in %s", instanceDir)
	}

	owner := lockOwner{
		PID:   os.Getpid(),
		Token: uuid.New().String(),
		Since: time.Now().UTC(),
	}
	data, err := json.Marshal(owner)
	if err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("failed to serialize lock owner: %w", err)
	}
	if err := os.WriteFile(ownerPath, data, 0o600); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("failed to record lock owner: %w", err)
	}

	return &Lock{fl: fl, ownerPath: ownerPath}, nil
}

// Release drops the lock and removes the owner record.
func (l *Lock) Release() error {
	if err := os.Remove(l.ownerPath); err != nil && !os.IsNotExist(err) {
		logger.Warnf("Failed to remove lock owner file: %v", err)
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to release instance lock: %w", err)
	}
	return nil
}
