// Package state saves and restores a processor's session: parameter values
// followed by an optional processor-defined chunk.
package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/justyntemme/imagine/pkg/framework/param"
)

const (
	magic          = "IMAGIN"
	currentVersion = 1

	// maxChunkSize bounds the custom chunk a state blob may declare
	maxChunkSize = 1 << 30
)

// ErrInvalidState is returned for data that is not a saved state
var ErrInvalidState = errors.New("invalid state format")

// Manager handles session state saving and loading
type Manager struct {
	version  uint32
	registry *param.Registry
	save     SaveFunc
	load     LoadFunc
}

// SaveFunc writes the processor's custom chunk
type SaveFunc func(w io.Writer) error

// LoadFunc reads back a chunk written by SaveFunc. r is limited to the
// chunk's bytes.
type LoadFunc func(r io.Reader) error

// NewManager creates a new state manager
func NewManager(registry *param.Registry) *Manager {
	return &Manager{
		version:  currentVersion,
		registry: registry,
	}
}

// SetCustomState installs the handlers for the custom chunk
func (m *Manager) SetCustomState(save SaveFunc, load LoadFunc) {
	m.save = save
	m.load = load
}

// Save writes the state to w
func (m *Manager) Save(w io.Writer) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, m.version); err != nil {
		return err
	}

	params := m.registry.All()
	if err := binary.Write(w, binary.LittleEndian, uint32(len(params))); err != nil {
		return err
	}
	for _, p := range params {
		if err := binary.Write(w, binary.LittleEndian, p.ID); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, p.GetValue()); err != nil {
			return err
		}
	}

	if m.save == nil {
		return binary.Write(w, binary.LittleEndian, uint32(0))
	}

	// The chunk is length-prefixed so a reader without a LoadFunc can skip it
	var chunk bytes.Buffer
	if err := m.save(&chunk); err != nil {
		return fmt.Errorf("save custom state: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(chunk.Len())); err != nil {
		return err
	}
	_, err := chunk.WriteTo(w)
	return err
}

// Load reads state from r. Parameters the registry does not know are
// ignored. Parameter values are applied through the registry so observers
// see them.
func (m *Manager) Load(r io.Reader) error {
	header := make([]byte, len(magic))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if string(header) != magic {
		return ErrInvalidState
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version > m.version {
		return fmt.Errorf("state version %d is newer than supported version %d", version, m.version)
	}

	var paramCount uint32
	if err := binary.Read(r, binary.LittleEndian, &paramCount); err != nil {
		return err
	}

	for i := uint32(0); i < paramCount; i++ {
		var id uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return err
		}
		var value float64
		if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
			return err
		}
		// Unknown IDs are skipped for forward compatibility
		_ = m.registry.Set(id, value)
	}

	var chunkSize uint32
	if err := binary.Read(r, binary.LittleEndian, &chunkSize); err != nil {
		return err
	}
	if chunkSize == 0 {
		return nil
	}
	if chunkSize > maxChunkSize {
		return fmt.Errorf("%w: custom chunk of %d bytes", ErrInvalidState, chunkSize)
	}

	chunk := io.LimitReader(r, int64(chunkSize))
	if m.load == nil {
		_, err := io.Copy(io.Discard, chunk)
		return err
	}
	if err := m.load(chunk); err != nil {
		return fmt.Errorf("load custom state: %w", err)
	}
	return nil
}
