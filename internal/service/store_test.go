package service

import (
	"context"
	"sort"

	"plate-registry/internal/domain/plate"
)

type memoryStore struct {
	records   map[string]plate.VehicleRecord
	lookups   []string
	inserts   []plate.VehicleRecord
	lookupErr error
	insertErr error
}

func newMemoryStore(records ...plate.VehicleRecord) *memoryStore {
	s := &memoryStore{records: make(map[string]plate.VehicleRecord)}
	for _, r := range records {
		s.records[r.NumberPlate] = r
	}
	return s
}

func (s *memoryStore) Lookup(_ context.Context, numberPlate string) (*plate.VehicleRecord, error) {
	s.lookups = append(s.lookups, numberPlate)
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	r, ok := s.records[numberPlate]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *memoryStore) Insert(_ context.Context, record plate.VehicleRecord) error {
	s.inserts = append(s.inserts, record)
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, ok := s.records[record.NumberPlate]; ok {
		return plate.ErrDuplicatePlate
	}
	s.records[record.NumberPlate] = record
	return nil
}

func (s *memoryStore) List(_ context.Context, _, _ int) ([]plate.VehicleRecord, error) {
	out := make([]plate.VehicleRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NumberPlate < out[j].NumberPlate })
	return out, nil
}

type memoryDetectionLog struct {
	entries []plate.DetectionEntry
}

func (l *memoryDetectionLog) Record(_ context.Context, entry plate.DetectionEntry) error {
	l.entries = append(l.entries, entry)
	return nil
}

func (l *memoryDetectionLog) List(_ context.Context, limit, offset int) ([]plate.DetectionEntry, error) {
	if offset >= len(l.entries) {
		return []plate.DetectionEntry{}, nil
	}
	end := offset + limit
	if end > len(l.entries) {
		end = len(l.entries)
	}
	return l.entries[offset:end], nil
}

type recordingPublisher struct {
	events []plate.OutcomeEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event plate.OutcomeEvent) error {
	p.events = append(p.events, event)
	return nil
}

type stubRecognizer struct {
	text  string
	calls int
}

func (s *stubRecognizer) Recognize(_ context.Context, _ []byte) (string, error) {
	s.calls++
	return s.text, nil
}
