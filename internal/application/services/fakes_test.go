package services_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dontkillit/backend/internal/application/services"
	"github.com/dontkillit/backend/internal/domain/entities"
	"github.com/dontkillit/backend/internal/domain/providers"
	apperrors "github.com/dontkillit/backend/pkg/errors"
)

// fakeDB is an in-memory stand-in for the PostgreSQL adapters. Rows are
// copied in and out so services cannot mutate stored state by accident.
type fakeDB struct {
	mu          sync.Mutex
	now         func() time.Time
	nextID      int64
	plants      map[int64]*entities.Plant
	enrichments map[int64]*entities.PlantEnrichment
	species     map[int]*entities.SpeciesCacheEntry
	logs        map[string]*entities.EnrichmentLog
	schedules   map[int64]*entities.WateringSchedule

	failEnrichmentLoad error
	failLogUpdate      error
	failTryStart       error
}

func newFakeDB(now func() time.Time) *fakeDB {
	return &fakeDB{
		now:         now,
		plants:      make(map[int64]*entities.Plant),
		enrichments: make(map[int64]*entities.PlantEnrichment),
		species:     make(map[int]*entities.SpeciesCacheEntry),
		logs:        make(map[string]*entities.EnrichmentLog),
		schedules:   make(map[int64]*entities.WateringSchedule),
	}
}

func (db *fakeDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *fakeDB) addPlant(p entities.Plant) *entities.Plant {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p.ID == 0 {
		p.ID = db.id()
	}
	db.plants[p.ID] = &p
	return &p
}

func (db *fakeDB) plant(id int64) entities.Plant {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.plants[id]
}

func (db *fakeDB) enrichment(plantID int64) *entities.PlantEnrichment {
	db.mu.Lock()
	defer db.mu.Unlock()
	e, ok := db.enrichments[plantID]
	if !ok {
		return nil
	}
	c := *e
	return &c
}

func (db *fakeDB) putEnrichment(e entities.PlantEnrichment) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if e.ID == 0 {
		e.ID = db.id()
	}
	db.enrichments[e.PlantID] = &e
}

func (db *fakeDB) putLog(l entities.EnrichmentLog) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if l.ID == 0 {
		l.ID = db.id()
	}
	db.logs[l.RunDate.Format("2006-01-02")] = &l
}

func (db *fakeDB) ledger(day time.Time) *entities.EnrichmentLog {
	db.mu.Lock()
	defer db.mu.Unlock()
	l, ok := db.logs[day.Format("2006-01-02")]
	if !ok {
		return nil
	}
	c := *l
	return &c
}

func (db *fakeDB) schedule(plantID int64) *entities.WateringSchedule {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, ok := db.schedules[plantID]
	if !ok {
		return nil
	}
	c := *s
	return &c
}

func (db *fakeDB) speciesCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.species)
}

// Plant repository

type fakePlantRepo struct{ db *fakeDB }

func (r fakePlantRepo) Create(ctx context.Context, plant *entities.Plant) error {
	created := r.db.addPlant(*plant)
	plant.ID = created.ID
	return nil
}

func (r fakePlantRepo) GetByID(ctx context.Context, id int64) (*entities.Plant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.plants[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("plant %d not found", id))
	}
	c := *p
	return &c, nil
}

func (r fakePlantRepo) ListWithoutEnrichment(ctx context.Context, limit int) ([]*entities.Plant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.sortedPlants(limit, func(p *entities.Plant) bool {
		_, enriched := r.db.enrichments[p.ID]
		return p.Species != "" && !enriched
	}), nil
}

func (r fakePlantRepo) ListIncompleteEnrichment(ctx context.Context, retryBefore time.Time, limit int) ([]*entities.Plant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.sortedPlants(limit, func(p *entities.Plant) bool {
		e, ok := r.db.enrichments[p.ID]
		if !ok || e.IsComplete() {
			return false
		}
		return e.ErrorCount == 0 || e.UpdatedAt.Before(retryBefore)
	}), nil
}

func (db *fakeDB) sortedPlants(limit int, keep func(*entities.Plant) bool) []*entities.Plant {
	ids := make([]int64, 0, len(db.plants))
	for id := range db.plants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*entities.Plant, 0)
	for _, id := range ids {
		p := db.plants[id]
		if !keep(p) {
			continue
		}
		c := *p
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (r fakePlantRepo) UpdateCareFields(ctx context.Context, id int64, u entities.PlantCareUpdate) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.plants[id]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("plant %d not found", id))
	}
	if u.LightingRequirement != nil && p.LightingRequirement == "" {
		p.LightingRequirement = *u.LightingRequirement
	}
	if u.PetFriendly != nil && p.PetFriendly == nil {
		v := *u.PetFriendly
		p.PetFriendly = &v
	}
	if u.SoilType != nil && p.SoilType == "" {
		p.SoilType = *u.SoilType
	}
	if u.CareSummary != nil && p.CareSummary == "" {
		p.CareSummary = *u.CareSummary
	}
	if u.IdentifiedCommonName != nil && p.IdentifiedCommonName == "" {
		p.IdentifiedCommonName = *u.IdentifiedCommonName
	}
	return nil
}

func (r fakePlantRepo) CountWithSpecies(ctx context.Context) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, p := range r.db.plants {
		if p.Species != "" {
			n++
		}
	}
	return n, nil
}

// Plant enrichment repository

type fakeEnrichmentRepo struct{ db *fakeDB }

func (r fakeEnrichmentRepo) GetByPlantID(ctx context.Context, plantID int64) (*entities.PlantEnrichment, error) {
	if e := r.db.enrichment(plantID); e != nil {
		return e, nil
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("enrichment for plant %d not found", plantID))
}

func (r fakeEnrichmentRepo) GetOrCreate(ctx context.Context, plantID int64) (*entities.PlantEnrichment, error) {
	if r.db.failEnrichmentLoad != nil {
		return nil, r.db.failEnrichmentLoad
	}
	r.db.mu.Lock()
	if _, ok := r.db.enrichments[plantID]; !ok {
		now := r.db.now()
		r.db.enrichments[plantID] = &entities.PlantEnrichment{ID: r.db.id(), PlantID: plantID, CreatedAt: now, UpdatedAt: now}
	}
	r.db.mu.Unlock()
	return r.GetByPlantID(ctx, plantID)
}

func (r fakeEnrichmentRepo) Update(ctx context.Context, e *entities.PlantEnrichment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e.UpdatedAt = r.db.now()
	c := *e
	r.db.enrichments[e.PlantID] = &c
	return nil
}

func (r fakeEnrichmentRepo) CountWithWateringData(ctx context.Context) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, e := range r.db.enrichments {
		if e.HasWateringData {
			n++
		}
	}
	return n, nil
}

// Enrichment log repository

type fakeLogRepo struct{ db *fakeDB }

func (r fakeLogRepo) GetByDate(ctx context.Context, runDate time.Time) (*entities.EnrichmentLog, error) {
	if l := r.db.ledger(runDate); l != nil {
		return l, nil
	}
	return nil, apperrors.NewNotFoundError("enrichment log not found")
}

func (r fakeLogRepo) GetOrCreate(ctx context.Context, runDate time.Time, limit int) (*entities.EnrichmentLog, error) {
	if r.db.ledger(runDate) == nil {
		r.db.putLog(entities.EnrichmentLog{
			RunDate:               runDate,
			PerenualRequestsLimit: limit,
			Status:                entities.EnrichmentStatusPending,
			CreatedAt:             r.db.now(),
		})
	}
	return r.GetByDate(ctx, runDate)
}

func (r fakeLogRepo) TryStart(ctx context.Context, id int64, startedAt time.Time) (bool, error) {
	if r.db.failTryStart != nil {
		return false, r.db.failTryStart
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, l := range r.db.logs {
		if l.ID != id {
			continue
		}
		if l.Status != entities.EnrichmentStatusPending && l.Status != entities.EnrichmentStatusFailed {
			return false, nil
		}
		l.Status = entities.EnrichmentStatusRunning
		l.StartedAt = &startedAt
		l.CompletedAt = nil
		l.ErrorMessage = ""
		return true, nil
	}
	return false, nil
}

func (r fakeLogRepo) Update(ctx context.Context, l *entities.EnrichmentLog) error {
	if r.db.failLogUpdate != nil && l.Status == entities.EnrichmentStatusRunning {
		return r.db.failLogUpdate
	}
	r.db.putLog(*l)
	return nil
}

func (r fakeLogRepo) ListRecent(ctx context.Context, limit int) ([]*entities.EnrichmentLog, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*entities.EnrichmentLog, 0, len(r.db.logs))
	for _, l := range r.db.logs {
		c := *l
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunDate.After(out[j].RunDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Watering schedule repository

type fakeScheduleRepo struct{ db *fakeDB }

func (r fakeScheduleRepo) GetByPlantID(ctx context.Context, plantID int64) (*entities.WateringSchedule, error) {
	if s := r.db.schedule(plantID); s != nil {
		return s, nil
	}
	return nil, apperrors.NewNotFoundError("schedule not found")
}

func (r fakeScheduleRepo) CreateIfMissing(ctx context.Context, s *entities.WateringSchedule) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.schedules[s.PlantID]; ok {
		return false, nil
	}
	s.ID = r.db.id()
	s.CreatedAt = r.db.now()
	c := *s
	r.db.schedules[s.PlantID] = &c
	return true, nil
}

// Species cache repository

type fakeSpeciesRepo struct{ db *fakeDB }

func (r fakeSpeciesRepo) GetByPerenualID(ctx context.Context, perenualID int) (*entities.SpeciesCacheEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if s, ok := r.db.species[perenualID]; ok {
		c := *s
		return &c, nil
	}
	return nil, apperrors.NewNotFoundError("species not found")
}

func (r fakeSpeciesRepo) findBy(name string, field func(*entities.SpeciesCacheEntry) string) (*entities.SpeciesCacheEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewNotFoundError("empty name")
	}
	for _, s := range r.db.species {
		if strings.EqualFold(field(s), name) {
			c := *s
			return &c, nil
		}
	}
	return nil, apperrors.NewNotFoundError("species not found")
}

func (r fakeSpeciesRepo) FindByScientificName(ctx context.Context, name string) (*entities.SpeciesCacheEntry, error) {
	return r.findBy(name, func(s *entities.SpeciesCacheEntry) string { return s.ScientificName })
}

func (r fakeSpeciesRepo) FindByCommonName(ctx context.Context, name string) (*entities.SpeciesCacheEntry, error) {
	return r.findBy(name, func(s *entities.SpeciesCacheEntry) string { return s.CommonName })
}

func (r fakeSpeciesRepo) Create(ctx context.Context, entry *entities.SpeciesCacheEntry) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.species[entry.PerenualID]; ok {
		return false, nil
	}
	entry.ID = r.db.id()
	entry.CreatedAt = r.db.now()
	c := *entry
	r.db.species[entry.PerenualID] = &c
	return true, nil
}

func (r fakeSpeciesRepo) List(ctx context.Context, search string, limit int) ([]*entities.SpeciesCacheEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*entities.SpeciesCacheEntry, 0)
	for _, s := range r.db.species {
		if search == "" || strings.Contains(strings.ToLower(s.ScientificName), strings.ToLower(search)) {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r fakeSpeciesRepo) Count(ctx context.Context) (int, error) {
	return r.db.speciesCount(), nil
}

// Testify mocks

type MockSpeciesProvider struct {
	mock.Mock
}

func (m *MockSpeciesProvider) SearchAndGetDetails(ctx context.Context, query string) (*providers.SpeciesMatch, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.SpeciesMatch), args.Error(1)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.EnrichmentEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.EnrichmentEvent, error) {
	args := m.Called(ctx, channel)
	return args.Get(0).(<-chan *entities.EnrichmentEvent), args.Error(1)
}

func (m *MockEventBus) Close() error {
	return m.Called().Error(0)
}

type MockSpeciesSearchRepository struct {
	mock.Mock
}

func (m *MockSpeciesSearchRepository) Index(ctx context.Context, entry *entities.SpeciesCacheEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockSpeciesSearchRepository) Search(ctx context.Context, query string, limit int) ([]*entities.SpeciesCacheEntry, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.SpeciesCacheEntry), args.Error(1)
}

type MockPlantRepository struct {
	mock.Mock
}

func (m *MockPlantRepository) Create(ctx context.Context, plant *entities.Plant) error {
	return m.Called(ctx, plant).Error(0)
}

func (m *MockPlantRepository) GetByID(ctx context.Context, id int64) (*entities.Plant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Plant), args.Error(1)
}

func (m *MockPlantRepository) ListWithoutEnrichment(ctx context.Context, limit int) ([]*entities.Plant, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*entities.Plant), args.Error(1)
}

func (m *MockPlantRepository) ListIncompleteEnrichment(ctx context.Context, retryBefore time.Time, limit int) ([]*entities.Plant, error) {
	args := m.Called(ctx, retryBefore, limit)
	return args.Get(0).([]*entities.Plant), args.Error(1)
}

func (m *MockPlantRepository) UpdateCareFields(ctx context.Context, id int64, update entities.PlantCareUpdate) error {
	return m.Called(ctx, id, update).Error(0)
}

func (m *MockPlantRepository) CountWithSpecies(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockEnrichmentRunner struct {
	mock.Mock
}

func (m *MockEnrichmentRunner) RunDailyEnrichment(ctx context.Context, maxPlants *int) (*services.EnrichmentSummary, error) {
	args := m.Called(ctx, maxPlants)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.EnrichmentSummary), args.Error(1)
}
