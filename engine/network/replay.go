package network

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

var replayMagic = [4]byte{'R', 'T', 'S', 'R'}

// Replay records and plays back applied envelopes in application order
type Replay struct {
	MatchID  uuid.UUID
	Commands []Envelope
	file     *os.File
	writer   *bufio.Writer
}

// NewReplayRecorder creates a replay file for recording
func NewReplayRecorder(path string, match uuid.UUID) (*Replay, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r := &Replay{
		MatchID: match,
		file:    f,
		writer:  bufio.NewWriter(f),
	}
	if _, err := r.writer.Write(replayMagic[:]); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := r.writer.Write(match[:]); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Record writes an envelope to the replay file
func (r *Replay) Record(env Envelope) error {
	r.Commands = append(r.Commands, env)
	return env.Encode(r.writer)
}

// Close flushes and closes the replay file
func (r *Replay) Close() error {
	if r.writer != nil {
		r.writer.Flush()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// LoadReplay loads a replay file. A truncated final record is ignored.
func LoadReplay(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadReplay(f)
}

// ReadReplay parses a replay stream
func ReadReplay(src io.Reader) (*Replay, error) {
	reader := bufio.NewReader(src)
	var magic [4]byte
	if _, err := io.ReadFull(reader, magic[:]); err != nil {
		return nil, fmt.Errorf("replay header: %w", err)
	}
	if magic != replayMagic {
		return nil, errors.New("not a replay file")
	}
	replay := &Replay{}
	if _, err := io.ReadFull(reader, replay.MatchID[:]); err != nil {
		return nil, fmt.Errorf("replay header: %w", err)
	}
	for {
		var env Envelope
		if err := env.Decode(reader); err != nil {
			break
		}
		replay.Commands = append(replay.Commands, env)
	}
	return replay, nil
}

// CommandsForTick returns all commands at a given tick during playback
func (r *Replay) CommandsForTick(tick uint64) []Envelope {
	var result []Envelope
	for _, c := range r.Commands {
		if c.Tick == tick {
			result = append(result, c)
		}
	}
	return result
}

// LastTick returns the highest tick recorded
func (r *Replay) LastTick() uint64 {
	var last uint64
	for _, c := range r.Commands {
		last = max(last, c.Tick)
	}
	return last
}
