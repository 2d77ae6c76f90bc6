package database

import (
	"context"
	"sort"
	"sync"

	"github.com/cakeworks/cake-sales/apperr"
	"github.com/cakeworks/cake-sales/models"
)

// MemoryStore keeps everything in process memory. Used for tests and the "memory" database URL.
type MemoryStore struct {
	mu          sync.RWMutex
	regions     map[string]models.RegionID
	cakeTypes   map[string]models.CakeTypeID
	regionNames map[models.RegionID]string
	cakeNames   map[models.CakeTypeID]string
	sales       []models.SaleRow
	predictions []models.PredictionRow
	synced      map[SyncKey]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		regions:     map[string]models.RegionID{},
		cakeTypes:   map[string]models.CakeTypeID{},
		regionNames: map[models.RegionID]string{},
		cakeNames:   map[models.CakeTypeID]string{},
		synced:      map[SyncKey]int{},
	}
}

// Verify interface compliance
var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) EnsureRegion(_ context.Context, name string) (models.RegionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.regions[name]; ok {
		return id, nil
	}
	id := models.RegionID(len(s.regions) + 1)
	s.regions[name] = id
	s.regionNames[id] = name
	return id, nil
}

func (s *MemoryStore) EnsureCakeType(_ context.Context, name string) (models.CakeTypeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.cakeTypes[name]; ok {
		return id, nil
	}
	id := models.CakeTypeID(len(s.cakeTypes) + 1)
	s.cakeTypes[name] = id
	s.cakeNames[id] = name
	return id, nil
}

func (s *MemoryStore) FindRegion(_ context.Context, name string) (models.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.regions[name]
	if !ok {
		return models.Region{}, apperr.NotFound("region %q does not exist", name)
	}
	return models.Region{ID: id, Name: name}, nil
}

func (s *MemoryStore) FindCakeType(_ context.Context, name string) (models.CakeType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.cakeTypes[name]
	if !ok {
		return models.CakeType{}, apperr.NotFound("cake type %q does not exist", name)
	}
	return models.CakeType{ID: id, Name: name}, nil
}

func (s *MemoryStore) ListRegions(_ context.Context) ([]models.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Region, 0, len(s.regions))
	for name, id := range s.regions {
		out = append(out, models.Region{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) ListCakeTypes(_ context.Context) ([]models.CakeType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CakeType, 0, len(s.cakeTypes))
	for name, id := range s.cakeTypes {
		out = append(out, models.CakeType{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) InsertSales(_ context.Context, rows []models.SaleRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if err := s.checkRefs(r.RegionID, r.CakeTypeID); err != nil {
			return err
		}
	}
	s.sales = append(s.sales, rows...)
	return nil
}

func (s *MemoryStore) InsertSalesOnce(_ context.Context, key SyncKey, rows []models.SaleRow) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.synced[key]; ok {
		return n, false, nil
	}
	for _, r := range rows {
		if err := s.checkRefs(r.RegionID, r.CakeTypeID); err != nil {
			return 0, false, err
		}
	}
	s.sales = append(s.sales, rows...)
	s.synced[key] = len(rows)
	return len(rows), true, nil
}

func (s *MemoryStore) InsertPredictions(_ context.Context, rows []models.PredictionRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if err := s.checkRefs(r.RegionID, r.CakeTypeID); err != nil {
			return err
		}
	}
	s.predictions = append(s.predictions, rows...)
	return nil
}

func (s *MemoryStore) checkRefs(region models.RegionID, cake models.CakeTypeID) error {
	if _, ok := s.regionNames[region]; !ok {
		return apperr.NotFound("region id %d does not exist", region)
	}
	if _, ok := s.cakeNames[cake]; !ok {
		return apperr.NotFound("cake type id %d does not exist", cake)
	}
	return nil
}

func (s *MemoryStore) QuerySales(_ context.Context, filter SaleFilter) ([]models.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.SaleRecord{}
	for _, r := range s.sales {
		rec := models.SaleRecord{
			Date:     r.Date,
			Region:   s.regionNames[r.RegionID],
			CakeType: s.cakeNames[r.CakeTypeID],
			Quantity: r.Quantity,
		}
		if filter.Match(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) QueryPredictions(_ context.Context, filter PredictionFilter) ([]models.PredictionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.PredictionRecord{}
	for _, r := range s.predictions {
		rec := models.PredictionRecord{
			BatchID:   r.BatchID,
			Date:      r.Date,
			Weekday:   r.Weekday,
			Region:    s.regionNames[r.RegionID],
			CakeType:  s.cakeNames[r.CakeTypeID],
			Quantity:  r.Quantity,
			CreatedAt: r.CreatedAt,
		}
		if filter.Match(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
