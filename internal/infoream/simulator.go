package infoream

import (
	"context"
	"fmt"
	"sync"

	"irrad-data/internal/equipment"
)

// Simulator is an in-process stand-in for the gateway, used for development
// and tests when INFOREAM_SIMULATE is set.
type Simulator struct {
	mu       sync.Mutex
	assets   map[string]Equipment
	comments map[string]Comment
	// Printed records every label request in order.
	Printed []PrintRequest
	// Fail, when set, makes every write return it.
	Fail error
}

func NewSimulator() *Simulator {
	return &Simulator{assets: map[string]Equipment{}, comments: map[string]Comment{}}
}

func commentKey(code string, line int) string { return fmt.Sprintf("%s#%d", code, line) }

func (s *Simulator) ReadEquipment(_ context.Context, code string) (*Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eq, ok := s.assets[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &eq, nil
}

func (s *Simulator) ReadEquipmentBatch(_ context.Context, codes []string) ([]equipment.Lookup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]equipment.Lookup, len(codes))
	for i, code := range codes {
		eq, ok := s.assets[code]
		if !ok {
			out[i] = equipment.Lookup{Code: code, ErrorMessage: "The " + ErrNotFound.Error() + "."}
			continue
		}
		out[i] = equipment.Lookup{Code: code, Found: true, SerialNumber: eq.SerialNumber}
	}
	return out, nil
}

func (s *Simulator) CreateEquipment(_ context.Context, eq *Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	if _, ok := s.assets[eq.Code]; ok {
		return fmt.Errorf("equipment %s already exists", eq.Code)
	}
	s.assets[eq.Code] = *eq
	return nil
}

func (s *Simulator) UpdateEquipment(_ context.Context, eq *Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	old, ok := s.assets[eq.Code]
	if !ok {
		return ErrNotFound
	}
	next := *eq
	next.HierarchyAssetCode = old.HierarchyAssetCode
	s.assets[eq.Code] = next
	return nil
}

func (s *Simulator) setParent(child, parent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	eq, ok := s.assets[child]
	if !ok {
		return ErrNotFound
	}
	if parent != "" {
		if _, ok := s.assets[parent]; !ok {
			return ErrNotFound
		}
	}
	eq.HierarchyAssetCode = parent
	s.assets[child] = eq
	return nil
}

func (s *Simulator) AttachParent(_ context.Context, child, parent string) error {
	return s.setParent(child, parent)
}

func (s *Simulator) DetachParent(_ context.Context, child string) error {
	return s.setParent(child, "")
}

func (s *Simulator) ReadComment(_ context.Context, code string, line int) (*Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[commentKey(code, line)]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *Simulator) CreateComment(_ context.Context, c *Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	if _, ok := s.assets[c.EntityKeyCode]; !ok {
		return ErrNotFound
	}
	s.comments[commentKey(c.EntityKeyCode, c.LineNumber)] = *c
	return nil
}

func (s *Simulator) UpdateComment(_ context.Context, c *Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	key := commentKey(c.EntityKeyCode, c.LineNumber)
	if _, ok := s.comments[key]; !ok {
		return ErrNotFound
	}
	s.comments[key] = *c
	return nil
}

func (s *Simulator) PrintLabel(_ context.Context, req *PrintRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	s.Printed = append(s.Printed, *req)
	return nil
}

// Parent returns the hierarchy parent recorded for code.
func (s *Simulator) Parent(code string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assets[code].HierarchyAssetCode
}
