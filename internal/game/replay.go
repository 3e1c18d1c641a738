package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// replayVersion is the on-disk replay format version.
const replayVersion = 1

// Replay is a recorded game: one snapshot per committed turn, in commit
// order. Frames are addressed by index; readers keep their own position.
type Replay struct {
	GameID string

	mu     sync.RWMutex
	frames []*Snapshot
}

// NewReplay returns an empty replay for gameID.
func NewReplay(gameID string) *Replay {
	return &Replay{GameID: gameID}
}

// Append adds the next frame.
func (r *Replay) Append(s *Snapshot) {
	r.mu.Lock()
	r.frames = append(r.frames, s)
	r.mu.Unlock()
}

// Len returns the number of frames.
func (r *Replay) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.frames)
}

// Frame returns the frame at index.
func (r *Replay) Frame(index int) (*Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.frames) {
		return nil, false
	}
	return r.frames[index], true
}

// Seek moves delta frames from index and returns the frame it lands on.
// The target is clamped to the recording; ok is false only when the replay
// is empty.
func (r *Replay) Seek(index, delta int) (int, *Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.frames) == 0 {
		return 0, nil, false
	}
	target := min(max(index+delta, 0), len(r.frames)-1)
	return target, r.frames[target], true
}

// Turns lists the turn number of every frame. A turn appears twice when the
// game ended during it.
func (r *Replay) Turns() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	turns := make([]int, len(r.frames))
	for i, f := range r.frames {
		turns[i] = f.TurnNumber
	}
	return turns
}

// SaveToFile writes the replay to <directory>/<game id>.replay as a
// zstd-compressed stream of JSON values: metadata first, then each snapshot.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", r.GameID))
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	zw, err := zstd.NewWriter(file)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}

	encoder := json.NewEncoder(zw)
	metadata := replayMetadata{
		GameID:     r.GameID,
		Timestamp:  time.Now().UTC(),
		Version:    replayVersion,
		StateCount: len(r.frames),
	}
	if err := encoder.Encode(&metadata); err != nil {
		zw.Close()
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	for i, state := range r.frames {
		if err := encoder.Encode(state); err != nil {
			zw.Close()
			return fmt.Errorf("failed to encode state %d: %w", i, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to flush replay: %w", err)
	}
	return nil
}

// LoadReplayFromFile reads a replay written by SaveToFile. Every snapshot's
// checksum is verified.
func LoadReplayFromFile(directory, gameID string) (*Replay, error) {
	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", gameID))

	file, err := os.Open(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrReplayNotFound, gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	zr, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	decoder := json.NewDecoder(zr)

	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	replay := NewReplay(metadata.GameID)
	for i := 0; i < metadata.StateCount; i++ {
		var state Snapshot
		if err := decoder.Decode(&state); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("replay truncated after %d of %d states", i, metadata.StateCount)
			}
			return nil, fmt.Errorf("failed to decode state %d: %w", i, err)
		}
		if err := state.VerifyChecksum(); err != nil {
			return nil, fmt.Errorf("state %d: %w", i, err)
		}
		replay.frames = append(replay.frames, &state)
	}

	return replay, nil
}

// replayMetadata heads a saved replay.
type replayMetadata struct {
	GameID     string    `json:"game_id"`
	Timestamp  time.Time `json:"timestamp"`
	Version    int       `json:"version"`
	StateCount int       `json:"state_count"`
}

type recording struct {
	replay *Replay
	active bool
}

// ReplayRecorder keeps one replay per running game. Replays are written to
// dir when the game is removed from the engine.
type ReplayRecorder struct {
	logger *zap.Logger
	dir    string

	mu         sync.RWMutex
	recordings map[string]*recording
}

// NewReplayRecorder creates a recorder that saves into dir.
func NewReplayRecorder(logger *zap.Logger, dir string) *ReplayRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayRecorder{
		logger:     logger.Named("replay"),
		dir:        dir,
		recordings: make(map[string]*recording),
	}
}

// Dir returns the directory replays are saved to.
func (rr *ReplayRecorder) Dir() string {
	return rr.dir
}

// StartRecording begins a fresh replay for gameID, discarding any earlier one.
func (rr *ReplayRecorder) StartRecording(gameID string) {
	rr.mu.Lock()
	rr.recordings[gameID] = &recording{replay: NewReplay(gameID), active: true}
	rr.mu.Unlock()

	rr.logger.Info("replay recording started", zap.String("game_id", gameID))
}

// StopRecording pauses recording. The replay stays in memory.
func (rr *ReplayRecorder) StopRecording(gameID string) {
	rr.mu.Lock()
	if rec, ok := rr.recordings[gameID]; ok {
		rec.active = false
	}
	rr.mu.Unlock()

	rr.logger.Info("replay recording stopped", zap.String("game_id", gameID))
}

// RecordState appends snapshot when gameID is being recorded.
func (rr *ReplayRecorder) RecordState(gameID string, snapshot *Snapshot) {
	rr.mu.RLock()
	rec, ok := rr.recordings[gameID]
	active := ok && rec.active
	rr.mu.RUnlock()
	if !active || snapshot == nil {
		return
	}

	rec.replay.Append(snapshot)
	rr.logger.Debug("replay state recorded",
		zap.String("game_id", gameID),
		zap.Int("turn", snapshot.TurnNumber),
		zap.Int("states", rec.replay.Len()),
	)
}

// GetReplay returns the in-memory replay for gameID.
func (rr *ReplayRecorder) GetReplay(gameID string) (*Replay, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	rec, ok := rr.recordings[gameID]
	if !ok {
		return nil, false
	}
	return rec.replay, true
}

// SaveReplay writes the replay for gameID to disk and forgets it.
func (rr *ReplayRecorder) SaveReplay(gameID string) error {
	rr.mu.Lock()
	rec, ok := rr.recordings[gameID]
	delete(rr.recordings, gameID)
	rr.mu.Unlock()
	if !ok {
		return fmt.Errorf("no replay recorded for game %s", gameID)
	}

	if err := rec.replay.SaveToFile(rr.dir); err != nil {
		return fmt.Errorf("save replay %s: %w", gameID, err)
	}
	rr.logger.Info("replay saved",
		zap.String("game_id", gameID),
		zap.Int("states", rec.replay.Len()),
		zap.String("dir", rr.dir),
	)
	return nil
}

// LoadReplay reads a saved replay from disk.
func (rr *ReplayRecorder) LoadReplay(gameID string) (*Replay, error) {
	replay, err := LoadReplayFromFile(rr.dir, gameID)
	if err != nil {
		return nil, err
	}
	rr.logger.Debug("replay loaded", zap.String("game_id", gameID), zap.Int("states", replay.Len()))
	return replay, nil
}

// ClearReplay forgets gameID's replay without saving it.
func (rr *ReplayRecorder) ClearReplay(gameID string) {
	rr.mu.Lock()
	delete(rr.recordings, gameID)
	rr.mu.Unlock()
}

// IsRecording reports whether gameID is being recorded.
func (rr *ReplayRecorder) IsRecording(gameID string) bool {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	rec, ok := rr.recordings[gameID]
	return ok && rec.active
}
