package factors

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// Meta identifies a trained model generation.
type Meta struct {
	Version   string
	TrainedAt time.Time
	Factors   int
	Epochs    int
}

// ItemStat is the training-corpus rating aggregate for one item. Popular
// items derive from these snapshots, not from the live ledger.
type ItemStat struct {
	Count int
	Sum   float64
}

func (s ItemStat) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// Model is an immutable factor-model snapshot: one latent row per known
// user and item, bias terms, and the global mean. It is built whole by the
// trainer or artifact loader and never mutated afterwards; serving swaps
// entire snapshots through Store.
type Model struct {
	meta       Meta
	globalMean float64

	userFactors *mat.Dense
	itemFactors *mat.Dense
	userBias    []float64
	itemBias    []float64

	userIDs   []string
	itemIDs   []string
	userIndex map[string]int
	itemIndex map[string]int

	itemStats []ItemStat
}

// New builds a snapshot from its parts. Factor matrices are row-per-entity
// with meta.Factors columns; itemStats is parallel to itemIDs. Bias slices
// may be nil for bias-free model variants.
func New(
	meta Meta,
	globalMean float64,
	userIDs, itemIDs []string,
	userFactors, itemFactors *mat.Dense,
	userBias, itemBias []float64,
	itemStats []ItemStat,
) *Model {
	m := &Model{
		meta:        meta,
		globalMean:  globalMean,
		userFactors: userFactors,
		itemFactors: itemFactors,
		userBias:    userBias,
		itemBias:    itemBias,
		userIDs:     userIDs,
		itemIDs:     itemIDs,
		userIndex:   make(map[string]int, len(userIDs)),
		itemIndex:   make(map[string]int, len(itemIDs)),
		itemStats:   itemStats,
	}
	for i, id := range userIDs {
		m.userIndex[id] = i
	}
	for i, id := range itemIDs {
		m.itemIndex[id] = i
	}
	return m
}

func (m *Model) Meta() Meta          { return m.meta }
func (m *Model) GlobalMean() float64 { return m.globalMean }
func (m *Model) NumUsers() int       { return len(m.userIDs) }
func (m *Model) NumItems() int       { return len(m.itemIDs) }

func (m *Model) HasUser(id string) bool {
	_, ok := m.userIndex[id]
	return ok
}

func (m *Model) HasItem(id string) bool {
	_, ok := m.itemIndex[id]
	return ok
}

// UserRow returns the latent factor vector for a user. The slice aliases
// the snapshot's storage and must not be modified.
func (m *Model) UserRow(id string) ([]float64, bool) {
	i, ok := m.userIndex[id]
	if !ok {
		return nil, false
	}
	return m.userFactors.RawRowView(i), true
}

// ItemRow returns the latent factor vector for an item.
func (m *Model) ItemRow(id string) ([]float64, bool) {
	i, ok := m.itemIndex[id]
	if !ok {
		return nil, false
	}
	return m.itemFactors.RawRowView(i), true
}

func (m *Model) UserBias(id string) float64 {
	i, ok := m.userIndex[id]
	if !ok || m.userBias == nil {
		return 0
	}
	return m.userBias[i]
}

func (m *Model) ItemBias(id string) float64 {
	i, ok := m.itemIndex[id]
	if !ok || m.itemBias == nil {
		return 0
	}
	return m.itemBias[i]
}

// ItemIDs returns the model's item identifiers in index order. Callers
// must not modify the returned slice.
func (m *Model) ItemIDs() []string { return m.itemIDs }

// ItemStatFor returns the training-corpus aggregate for an item.
func (m *Model) ItemStatFor(id string) (ItemStat, bool) {
	i, ok := m.itemIndex[id]
	if !ok || m.itemStats == nil {
		return ItemStat{}, false
	}
	return m.itemStats[i], true
}
