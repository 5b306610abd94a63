// Package store provides in-process stock.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/stock-engine/stock"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is a stock.TxStore held in maps. Writes inside WithTx are applied
// directly and rolled back from a snapshot when fn fails.
type Memory struct {
	mu       sync.RWMutex
	state    *memoryState
	failures map[string]error
}

type memoryState struct {
	articles  map[stock.ArticleID]stock.Article
	records   map[stock.Date]stock.DailyRecord
	changeLog []stock.ChangeLogEntry
	settings  *stock.AppSettings
}

func NewMemory() *Memory {
	return &Memory{
		state:    newMemoryState(),
		failures: make(map[string]error),
	}
}

func newMemoryState() *memoryState {
	return &memoryState{
		articles: make(map[stock.ArticleID]stock.Article),
		records:  make(map[stock.Date]stock.DailyRecord),
	}
}

// FailOn makes every later call of the named method return err. A nil err
// clears the failure. Used to exercise rollback paths in tests.
func (m *Memory) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

func (m *Memory) fail(method string) error {
	return m.failures[method]
}

func (m *Memory) ListArticles(_ context.Context) ([]stock.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("ListArticles"); err != nil {
		return nil, err
	}
	return m.state.listArticles(), nil
}

func (m *Memory) GetArticle(_ context.Context, id stock.ArticleID) (*stock.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("GetArticle"); err != nil {
		return nil, err
	}
	return m.state.getArticle(id), nil
}

func (m *Memory) SaveArticles(_ context.Context, articles ...stock.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SaveArticles"); err != nil {
		return err
	}
	m.state.saveArticles(articles)
	return nil
}

func (m *Memory) DeleteArticle(_ context.Context, id stock.ArticleID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteArticle"); err != nil {
		return err
	}
	delete(m.state.articles, id)
	return nil
}

func (m *Memory) ListDailyRecords(_ context.Context, r stock.DateRange) ([]stock.DailyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("ListDailyRecords"); err != nil {
		return nil, err
	}
	return m.state.listRecords(r), nil
}

func (m *Memory) GetDailyRecord(_ context.Context, date stock.Date) (*stock.DailyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("GetDailyRecord"); err != nil {
		return nil, err
	}
	return m.state.getRecord(date), nil
}

func (m *Memory) PutDailyRecord(_ context.Context, rec stock.DailyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("PutDailyRecord"); err != nil {
		return err
	}
	m.state.records[rec.Date] = copyRecord(rec)
	return nil
}

func (m *Memory) DeleteDailyRecord(_ context.Context, date stock.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteDailyRecord"); err != nil {
		return err
	}
	delete(m.state.records, date)
	return nil
}

func (m *Memory) AppendChangeLog(_ context.Context, entry stock.ChangeLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AppendChangeLog"); err != nil {
		return err
	}
	m.state.changeLog = append(m.state.changeLog, entry)
	return nil
}

func (m *Memory) GetChangeLog(_ context.Context, id string) (*stock.ChangeLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("GetChangeLog"); err != nil {
		return nil, err
	}
	return m.state.getChangeLog(id), nil
}

func (m *Memory) ListChangeLog(_ context.Context, limit, offset int) ([]stock.ChangeLogEntry, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("ListChangeLog"); err != nil {
		return nil, 0, err
	}
	entries, total := m.state.listChangeLog(limit, offset)
	return entries, total, nil
}

func (m *Memory) GetSettings(_ context.Context) (*stock.AppSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("GetSettings"); err != nil {
		return nil, err
	}
	if m.state.settings == nil {
		return nil, nil
	}
	s := *m.state.settings
	return &s, nil
}

func (m *Memory) SaveSettings(_ context.Context, settings stock.AppSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SaveSettings"); err != nil {
		return err
	}
	m.state.settings = &settings
	return nil
}

// Reset drops every document.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = newMemoryState()
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(stock.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&txMemoryView{parent: m}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

// txMemoryView runs store calls while WithTx holds the lock.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) ListArticles(_ context.Context) ([]stock.Article, error) {
	if err := tv.parent.fail("ListArticles"); err != nil {
		return nil, err
	}
	return tv.parent.state.listArticles(), nil
}

func (tv *txMemoryView) GetArticle(_ context.Context, id stock.ArticleID) (*stock.Article, error) {
	if err := tv.parent.fail("GetArticle"); err != nil {
		return nil, err
	}
	return tv.parent.state.getArticle(id), nil
}

func (tv *txMemoryView) SaveArticles(_ context.Context, articles ...stock.Article) error {
	if err := tv.parent.fail("SaveArticles"); err != nil {
		return err
	}
	tv.parent.state.saveArticles(articles)
	return nil
}

func (tv *txMemoryView) DeleteArticle(_ context.Context, id stock.ArticleID) error {
	if err := tv.parent.fail("DeleteArticle"); err != nil {
		return err
	}
	delete(tv.parent.state.articles, id)
	return nil
}

func (tv *txMemoryView) ListDailyRecords(_ context.Context, r stock.DateRange) ([]stock.DailyRecord, error) {
	if err := tv.parent.fail("ListDailyRecords"); err != nil {
		return nil, err
	}
	return tv.parent.state.listRecords(r), nil
}

func (tv *txMemoryView) GetDailyRecord(_ context.Context, date stock.Date) (*stock.DailyRecord, error) {
	if err := tv.parent.fail("GetDailyRecord"); err != nil {
		return nil, err
	}
	return tv.parent.state.getRecord(date), nil
}

func (tv *txMemoryView) PutDailyRecord(_ context.Context, rec stock.DailyRecord) error {
	if err := tv.parent.fail("PutDailyRecord"); err != nil {
		return err
	}
	tv.parent.state.records[rec.Date] = copyRecord(rec)
	return nil
}

func (tv *txMemoryView) DeleteDailyRecord(_ context.Context, date stock.Date) error {
	if err := tv.parent.fail("DeleteDailyRecord"); err != nil {
		return err
	}
	delete(tv.parent.state.records, date)
	return nil
}

func (tv *txMemoryView) AppendChangeLog(_ context.Context, entry stock.ChangeLogEntry) error {
	if err := tv.parent.fail("AppendChangeLog"); err != nil {
		return err
	}
	tv.parent.state.changeLog = append(tv.parent.state.changeLog, entry)
	return nil
}

func (tv *txMemoryView) GetChangeLog(_ context.Context, id string) (*stock.ChangeLogEntry, error) {
	if err := tv.parent.fail("GetChangeLog"); err != nil {
		return nil, err
	}
	return tv.parent.state.getChangeLog(id), nil
}

func (tv *txMemoryView) ListChangeLog(_ context.Context, limit, offset int) ([]stock.ChangeLogEntry, int, error) {
	if err := tv.parent.fail("ListChangeLog"); err != nil {
		return nil, 0, err
	}
	entries, total := tv.parent.state.listChangeLog(limit, offset)
	return entries, total, nil
}

func (tv *txMemoryView) GetSettings(_ context.Context) (*stock.AppSettings, error) {
	if err := tv.parent.fail("GetSettings"); err != nil {
		return nil, err
	}
	if tv.parent.state.settings == nil {
		return nil, nil
	}
	s := *tv.parent.state.settings
	return &s, nil
}

func (tv *txMemoryView) SaveSettings(_ context.Context, settings stock.AppSettings) error {
	if err := tv.parent.fail("SaveSettings"); err != nil {
		return err
	}
	tv.parent.state.settings = &settings
	return nil
}

// =============================================================================
// STATE HELPERS (caller holds the lock)
// =============================================================================

func (s *memoryState) listArticles() []stock.Article {
	result := make([]stock.Article, 0, len(s.articles))
	for _, a := range s.articles {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (s *memoryState) getArticle(id stock.ArticleID) *stock.Article {
	a, ok := s.articles[id]
	if !ok {
		return nil
	}
	return &a
}

func (s *memoryState) saveArticles(articles []stock.Article) {
	for _, a := range articles {
		s.articles[a.ID] = a
	}
}

func (s *memoryState) listRecords(r stock.DateRange) []stock.DailyRecord {
	result := make([]stock.DailyRecord, 0, len(s.records))
	for date, rec := range s.records {
		if r.Contains(date) {
			result = append(result, copyRecord(rec))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result
}

func (s *memoryState) getRecord(date stock.Date) *stock.DailyRecord {
	rec, ok := s.records[date]
	if !ok {
		return nil
	}
	c := copyRecord(rec)
	return &c
}

func (s *memoryState) getChangeLog(id string) *stock.ChangeLogEntry {
	for _, e := range s.changeLog {
		if e.ID == id {
			entry := e
			return &entry
		}
	}
	return nil
}

// listChangeLog pages newest first; entries are appended in time order.
func (s *memoryState) listChangeLog(limit, offset int) ([]stock.ChangeLogEntry, int) {
	total := len(s.changeLog)
	result := []stock.ChangeLogEntry{}
	for i := total - 1 - offset; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, s.changeLog[i])
	}
	return result, total
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	for k, v := range s.articles {
		c.articles[k] = v
	}
	for k, v := range s.records {
		c.records[k] = copyRecord(v)
	}
	c.changeLog = append([]stock.ChangeLogEntry{}, s.changeLog...)
	if s.settings != nil {
		settings := *s.settings
		c.settings = &settings
	}
	return c
}

func copyRecord(rec stock.DailyRecord) stock.DailyRecord {
	return stock.DailyRecord{
		Date:  rec.Date,
		Lines: append([]stock.MovementLine{}, rec.Lines...),
	}
}
