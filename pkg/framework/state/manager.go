// Package state saves and restores presets: every parameter's plain value,
// keyed by its stable key, plus an optional custom section.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/justyntemme/crystal/pkg/framework/param"
)

const (
	magic          = "CRYSTL"
	currentVersion = 1
	maxKeyLength   = 255
)

var (
	// ErrInvalidFormat is returned when the data is not a preset.
	ErrInvalidFormat = errors.New("invalid preset format")
	// ErrUnsupportedVersion is returned for presets written by a newer version.
	ErrUnsupportedVersion = errors.New("unsupported preset version")
)

// Custom lets the owner of the registry persist state that is not a parameter.
type Custom interface {
	SaveState(w io.Writer) error
	LoadState(r io.Reader) error
}

// Manager handles preset saving and loading
type Manager struct {
	version  uint32
	registry *param.Registry
	custom   Custom
}

// NewManager creates a new state manager
func NewManager(registry *param.Registry) *Manager {
	return &Manager{
		version:  currentVersion,
		registry: registry,
	}
}

// SetCustom registers a custom state section
func (m *Manager) SetCustom(custom Custom) {
	m.custom = custom
}

// Save writes the preset to a writer
func (m *Manager) Save(w io.Writer) error {
	if _, err := w.Write([]byte(magic)); err != nil {
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
		if len(p.Key) == 0 || len(p.Key) > maxKeyLength {
			return fmt.Errorf("parameter %d: key length %d out of range", p.ID, len(p.Key))
		}
		if err := binary.Write(w, binary.LittleEndian, uint8(len(p.Key))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, p.Key); err != nil {
			return err
		}
		// Plain values survive range changes between versions better than normalized ones
		if err := binary.Write(w, binary.LittleEndian, p.GetPlainValue()); err != nil {
			return err
		}
	}

	if m.custom == nil {
		return binary.Write(w, binary.LittleEndian, uint32(0))
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(1)); err != nil {
		return err
	}
	return m.custom.SaveState(w)
}

// Load reads a preset. Unknown keys are skipped; a truncated preset is an error.
func (m *Manager) Load(r io.Reader) error {
	header := make([]byte, len(magic))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if string(header) != magic {
		return ErrInvalidFormat
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if version > m.version {
		return fmt.Errorf("%w: %d is newer than %d", ErrUnsupportedVersion, version, m.version)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	key := make([]byte, maxKeyLength)
	for i := uint32(0); i < count; i++ {
		var keyLen uint8
		if err := binary.Read(r, binary.LittleEndian, &keyLen); err != nil {
			return fmt.Errorf("%w: parameter %d: %v", ErrInvalidFormat, i, err)
		}
		if _, err := io.ReadFull(r, key[:keyLen]); err != nil {
			return fmt.Errorf("%w: parameter %d: %v", ErrInvalidFormat, i, err)
		}
		var value float64
		if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
			return fmt.Errorf("%w: parameter %d: %v", ErrInvalidFormat, i, err)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}

		// Ignore unknown parameters for forward compatibility
		if p, err := m.registry.Lookup(string(key[:keyLen])); err == nil {
			p.SetPlainValue(value)
		}
	}

	var hasCustom uint32
	if err := binary.Read(r, binary.LittleEndian, &hasCustom); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if hasCustom != 0 && m.custom != nil {
		return m.custom.LoadState(r)
	}
	return nil
}

// SaveFile writes the preset to path
func (m *Manager) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preset: %w", err)
	}
	if err := m.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("save preset %s: %w", path, err)
	}
	return f.Close()
}

// LoadFile reads the preset at path
func (m *Manager) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open preset: %w", err)
	}
	defer f.Close()

	if err := m.Load(f); err != nil {
		return fmt.Errorf("load preset %s: %w", path, err)
	}
	return nil
}
