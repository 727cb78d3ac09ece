// Package matcher runs raw-material matching sessions: it loads a SubOut's
// parts, matches them against the stock inventory, keeps the user's stick
// picks and submits them as new SubOut items.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/piwi3910/SubTrack/internal/config"
	"github.com/piwi3910/SubTrack/internal/engine"
	"github.com/piwi3910/SubTrack/internal/model"
	"github.com/piwi3910/SubTrack/internal/selection"
	"github.com/piwi3910/SubTrack/internal/store"
	"github.com/sirupsen/logrus"
)

// ErrNoSession is returned when a SubOut has no open matching session.
var ErrNoSession = errors.New("no matching session open for this suborder")

// Items reads and writes SubOut items.
type Items interface {
	ListSubOutItems(ctx context.Context, subOutID uint) ([]model.SubOutItem, error)
	BulkAddItems(ctx context.Context, subOutID uint, records []model.ItemRecord) (store.BulkResult, error)
}

// Inventory provides the current stock inventory.
type Inventory interface {
	Get(ctx context.Context) (model.Inventory, error)
}

// Service holds one matching session per SubOut.
type Service struct {
	items     Items
	inventory Inventory
	seq       selection.Sequence
	log       *logrus.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[uint]*session
}

type session struct {
	matches        []engine.Match
	selection      *selection.Selection
	inventoryError string
	openedAt       time.Time
}

// NewService creates a matching service.
func NewService(items Items, inv Inventory, seq selection.Sequence, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		items:     items,
		inventory: inv,
		seq:       seq,
		log:       log,
		now:       time.Now,
		sessions:  make(map[uint]*session),
	}
}

// Pick is one selected stick as shown to the user.
type Pick struct {
	selection.Entry
	LengthDisplay string   `json:"lengthDisplay"`
	WeightLbs     *float64 `json:"weightLbs"`
}

// View is the state of a session.
type View struct {
	SubOutID       uint              `json:"subOutId"`
	Matches        []engine.Match    `json:"matches"`
	Summary        selection.Summary `json:"summary"`
	Picks          []Pick            `json:"picks"`
	InventoryError string            `json:"inventoryError,omitempty"`
	OpenedAt       time.Time         `json:"openedAt"`
}

// Open starts a fresh session for the SubOut, replacing any earlier one.
// An unreachable inventory does not fail the session: every group comes
// back without stock and the fetch error is reported in the view.
func (s *Service) Open(ctx context.Context, subOutID uint) (View, error) {
	items, err := s.items.ListSubOutItems(ctx, subOutID)
	if err != nil {
		return View{}, err
	}

	sess := &session{selection: selection.New(), openedAt: s.now()}
	inv, err := s.inventory.Get(ctx)
	if err != nil {
		config.LogError(s.log, "matcher", "Open", "fetch inventory", subOutID, err)
		sess.inventoryError = err.Error()
		inv = model.Inventory{}
	}
	sess.matches = engine.Plan(items, inv)

	s.mu.Lock()
	s.sessions[subOutID] = sess
	view := s.viewLocked(subOutID, sess)
	s.mu.Unlock()
	return view, nil
}

// View returns the current state of an open session.
func (s *Service) View(subOutID uint) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[subOutID]
	if !ok {
		return View{}, ErrNoSession
	}
	return s.viewLocked(subOutID, sess), nil
}

// Select sets the quantity picked for one candidate stick. The quantity is
// clamped to the sticks in stock; zero removes the pick.
func (s *Service) Select(subOutID uint, key selection.Key, qty int) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[subOutID]
	if !ok {
		return View{}, ErrNoSession
	}
	sess.selection.Set(sess.matches, key, qty)
	return s.viewLocked(subOutID, sess), nil
}

// SubmitResult is the outcome of submitting a session.
type SubmitResult struct {
	Summary selection.Summary `json:"summary"`
	Items   int               `json:"items"`
	Bulk    store.BulkResult  `json:"bulk"`
}

// Submit compiles the picks into raw-stock items and adds them to the
// SubOut. When the bulk add goes through, the session is closed; item-level
// conflicts are reported in the result and do not keep it open.
func (s *Service) Submit(ctx context.Context, subOutID uint) (SubmitResult, error) {
	s.mu.Lock()
	sess, ok := s.sessions[subOutID]
	if !ok {
		s.mu.Unlock()
		return SubmitResult{}, ErrNoSession
	}
	compiled, err := selection.Compile(ctx, sess.matches, sess.selection, s.seq)
	s.mu.Unlock()
	if err != nil {
		return SubmitResult{}, err
	}

	bulk, err := s.items.BulkAddItems(ctx, subOutID, compiled.Items)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("failed to add items: %w", err)
	}

	s.mu.Lock()
	if cur, ok := s.sessions[subOutID]; ok && cur == sess {
		sess.selection.Clear()
		delete(s.sessions, subOutID)
	}
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"module":   "matcher",
		"subOutId": subOutID,
		"sticks":   compiled.Summary.TotalSticks,
		"inserted": bulk.Inserted,
		"errors":   len(bulk.Errors),
	}).Info("raw stock added to suborder")

	return SubmitResult{Summary: compiled.Summary, Items: len(compiled.Items), Bulk: bulk}, nil
}

// Close discards the session.
func (s *Service) Close(subOutID uint) {
	s.mu.Lock()
	delete(s.sessions, subOutID)
	s.mu.Unlock()
}

func (s *Service) viewLocked(subOutID uint, sess *session) View {
	v := View{
		SubOutID:       subOutID,
		Matches:        sess.matches,
		Summary:        selection.Summarize(sess.matches, sess.selection),
		Picks:          []Pick{},
		InventoryError: sess.inventoryError,
		OpenedAt:       sess.openedAt,
	}
	for _, e := range sess.selection.Entries() {
		stick, ok := sess.matches[e.Group].Stick(e.Stick)
		if !ok {
			continue
		}
		v.Picks = append(v.Picks, Pick{Entry: e, LengthDisplay: stick.LengthDisplay, WeightLbs: stick.WeightLbs})
	}
	return v
}
