package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"order-matching-service/internal/models"
	"order-matching-service/internal/reconcile"
	"order-matching-service/internal/repository"
)

// LineView is one order line as shown in the matching workspace
type LineView struct {
	Index       int              `json:"index"`
	Item        models.OrderItem `json:"item"`
	Selected    []models.Product `json:"selected"`
	AutoApplied bool             `json:"autoApplied"`
}

// Workspace is an order opened in a session together with its selections
type Workspace struct {
	SessionID   string        `json:"sessionId"`
	Order       *models.Order `json:"order"`
	Lines       []LineView    `json:"lines"`
	AutoApplied int           `json:"autoApplied"`
	Complete    bool          `json:"complete"`
}

// SessionSelection is one selected line inside a session
type SessionSelection struct {
	OrderID     uuid.UUID `json:"orderId"`
	ItemIndex   int       `json:"itemIndex"`
	ProductIDs  []string  `json:"productIds"`
	AutoApplied bool      `json:"autoApplied"`
}

// SessionView is the serializable form of a session
type SessionView struct {
	ID         string             `json:"id"`
	Selections []SessionSelection `json:"selections"`
}

// OrderOutcome describes a successfully saved order
type OrderOutcome struct {
	OrderID       uuid.UUID `json:"orderId"`
	ExternalID    string    `json:"externalOrderId"`
	MatchedItems  int       `json:"matchedItems"`
	BundleWrites  int       `json:"bundleWrites"`
	NeedsMatching bool      `json:"needsMatching"`
}

// OrderFailure describes an order whose save failed
type OrderFailure struct {
	OrderID    uuid.UUID `json:"orderId"`
	ExternalID string    `json:"externalOrderId,omitempty"`
	Error      string    `json:"error"`
}

// SaveResult aggregates a multi-order save
type SaveResult struct {
	Saved  []OrderOutcome `json:"saved"`
	Failed []OrderFailure `json:"failed"`
}

// ReconciliationService drives matching sessions against the stores
type ReconciliationService struct {
	products    repository.ProductRepository
	orders      repository.OrderRepository
	matches     repository.BundleMatchRepository
	activity    ActivityRecorder
	sessions    *SessionStore
	parallelism int
	logger      *logrus.Entry
	now         func() time.Time
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	products repository.ProductRepository,
	orders repository.OrderRepository,
	matches repository.BundleMatchRepository,
	activity ActivityRecorder,
	sessions *SessionStore,
	parallelism int,
	logger *logrus.Logger,
) *ReconciliationService {
	if parallelism < 1 {
		parallelism = 1
	}
	return &ReconciliationService{
		products:    products,
		orders:      orders,
		matches:     matches,
		activity:    activity,
		sessions:    sessions,
		parallelism: parallelism,
		logger:      logger.WithField("component", "reconciliation"),
		now:         time.Now,
	}
}

// StartSession creates an empty session
func (s *ReconciliationService) StartSession() *SessionView {
	id := s.sessions.Create()
	return &SessionView{ID: id, Selections: []SessionSelection{}}
}

// GetSession returns the current selections of a session
func (s *ReconciliationService) GetSession(sessionID string) (*SessionView, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return newSessionView(sessionID, session), nil
}

// OpenOrder loads an order into the session and applies bundle matches to
// its lines that have no selection yet.
func (s *ReconciliationService) OpenOrder(ctx context.Context, sessionID string, orderID uuid.UUID) (*Workspace, error) {
	if _, err := s.sessions.Get(sessionID); err != nil {
		return nil, err
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	bundles, err := s.matches.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle matches: %w", err)
	}
	index := reconcile.NewMatchIndex(bundles)

	var result reconcile.AutoMatchResult
	session, err := s.sessions.Update(sessionID, func(cur reconcile.Session) (reconcile.Session, error) {
		next, res := cur.ApplyAutoMatch(order, catalog, index)
		result = res
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	for _, key := range result.Stale {
		s.logger.WithFields(logrus.Fields{
			"orderId":   order.OrderID,
			"itemIndex": key.ItemIndex,
			"sku":       order.Items[key.ItemIndex].ProductSKU,
		}).Debug("Bundle match has no live products, skipping")
	}
	if len(result.Applied) > 0 {
		s.logger.WithFields(logrus.Fields{
			"orderId": order.OrderID,
			"applied": len(result.Applied),
		}).Info("Applied bundle matches")
	}

	return buildWorkspace(sessionID, order, session, catalog), nil
}

// SelectProducts replaces the selection of one line. Every id must exist
// in the catalog. An empty list clears the selection.
func (s *ReconciliationService) SelectProducts(ctx context.Context, sessionID string, orderID uuid.UUID, itemIndex int, productIDs []string) (*Workspace, error) {
	return s.editLine(ctx, sessionID, orderID, itemIndex, func(cur reconcile.Session, catalog reconcile.Catalog) (reconcile.Session, error) {
		if err := requireProducts(catalog, productIDs...); err != nil {
			return cur, err
		}
		return cur.Select(orderID, itemIndex, productIDs), nil
	})
}

// ToggleProduct adds a product to a line's selection or removes it. Only
// an added product has to exist in the catalog.
func (s *ReconciliationService) ToggleProduct(ctx context.Context, sessionID string, orderID uuid.UUID, itemIndex int, productID string) (*Workspace, error) {
	return s.editLine(ctx, sessionID, orderID, itemIndex, func(cur reconcile.Session, catalog reconcile.Catalog) (reconcile.Session, error) {
		key := reconcile.SelectionKey{OrderID: orderID, ItemIndex: itemIndex}
		if !slices.Contains(cur.Selections.Get(key), productID) {
			if err := requireProducts(catalog, productID); err != nil {
				return cur, err
			}
		}
		return cur.Toggle(orderID, itemIndex, productID), nil
	})
}

// ClearItem removes the selection and auto-applied flag of one line
func (s *ReconciliationService) ClearItem(ctx context.Context, sessionID string, orderID uuid.UUID, itemIndex int) (*Workspace, error) {
	return s.editLine(ctx, sessionID, orderID, itemIndex, func(cur reconcile.Session, _ reconcile.Catalog) (reconcile.Session, error) {
		return cur.Clear(orderID, itemIndex), nil
	})
}

// ResetAutoMatches drops every auto-applied selection in the session.
// Manual selections are kept.
func (s *ReconciliationService) ResetAutoMatches(sessionID string) (*SessionView, error) {
	session, err := s.sessions.Update(sessionID, func(cur reconcile.Session) (reconcile.Session, error) {
		return cur.ResetAutoMatches(), nil
	})
	if err != nil {
		return nil, err
	}
	return newSessionView(sessionID, session), nil
}

func (s *ReconciliationService) editLine(
	ctx context.Context,
	sessionID string,
	orderID uuid.UUID,
	itemIndex int,
	edit func(reconcile.Session, reconcile.Catalog) (reconcile.Session, error),
) (*Workspace, error) {
	if _, err := s.sessions.Get(sessionID); err != nil {
		return nil, err
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if itemIndex < 0 || itemIndex >= len(order.Items) {
		return nil, fmt.Errorf("%w: %d (order has %d items)", reconcile.ErrItemIndexOutOfRange, itemIndex, len(order.Items))
	}

	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Update(sessionID, func(cur reconcile.Session) (reconcile.Session, error) {
		return edit(cur, catalog)
	})
	if err != nil {
		return nil, err
	}
	return buildWorkspace(sessionID, order, session, catalog), nil
}

// SaveMatches commits the session's selections for the given orders. With
// no order ids, every order that has a selection in the session is saved.
//
// Repeated ids are saved once. Orders are committed one after another
// against a shared view of the bundle match cache, so a record created for
// one order is updated, not duplicated, by a later order in the same call.
// The bundle match writes of a single order are issued concurrently, then
// the order itself is updated. A failing order does not stop the others; it
// is reported in SaveResult.Failed.
func (s *ReconciliationService) SaveMatches(ctx context.Context, sessionID string, orderIDs []uuid.UUID) (*SaveResult, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if len(orderIDs) == 0 {
		orderIDs = selectedOrderIDs(session)
	}

	result := &SaveResult{Saved: []OrderOutcome{}, Failed: []OrderFailure{}}
	if len(orderIDs) == 0 {
		return result, nil
	}

	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	bundles, err := s.matches.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle matches: %w", err)
	}
	index := reconcile.NewMatchIndex(bundles)

	var saved []*models.Order
	for _, orderID := range uniqueOrderIDs(orderIDs) {
		order, err := s.loadOrder(ctx, orderID)
		if err != nil {
			result.Failed = append(result.Failed, OrderFailure{OrderID: orderID, Error: err.Error()})
			s.recordCommit(orderID.String(), 0, err)
			continue
		}

		outcome, err := s.commitOrder(ctx, order, session.Selections, catalog, index)
		if err != nil {
			s.logger.WithError(err).WithField("orderId", order.OrderID).Warn("Failed to save product matches")
			result.Failed = append(result.Failed, OrderFailure{
				OrderID:    order.ID,
				ExternalID: order.OrderID,
				Error:      err.Error(),
			})
			s.recordCommit(order.OrderID, 0, err)
			continue
		}

		result.Saved = append(result.Saved, *outcome)
		saved = append(saved, order)
		s.recordCommit(order.OrderID, outcome.MatchedItems, nil)
	}

	if len(saved) > 0 {
		_, err := s.sessions.Update(sessionID, func(cur reconcile.Session) (reconcile.Session, error) {
			next := cur.ClearAutoFlags()
			for _, order := range saved {
				if cur.FullySelected(order) {
					next = next.ClearOrder(order.ID)
				}
			}
			return next, nil
		})
		if err != nil && !errors.Is(err, ErrSessionNotFound) {
			return result, err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"saved":  len(result.Saved),
		"failed": len(result.Failed),
	}).Info("Saved product matches")

	return result, nil
}

// commitOrder computes the writes for one order and issues them. Bundle
// match writes run concurrently; the order update follows only when all of
// them succeeded. index is updated with every bundle match that was written.
func (s *ReconciliationService) commitOrder(ctx context.Context, order *models.Order, selections reconcile.Selections, catalog reconcile.Catalog, index reconcile.MatchIndex) (*OrderOutcome, error) {
	res, err := reconcile.Commit(order, selections, catalog, index, s.now())
	if err != nil {
		return nil, err
	}

	outcome := &OrderOutcome{
		OrderID:       order.ID,
		ExternalID:    order.OrderID,
		MatchedItems:  res.MatchedItems,
		BundleWrites:  len(res.Writes),
		NeedsMatching: reconcile.NeedsMatching(res.Order),
	}
	if !res.OrderChanged() {
		return outcome, nil
	}

	writes := res.Writes
	errs := make([]error, len(writes))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(s.parallelism)

	for i := range writes {
		g.Go(func() error {
			w := &writes[i]
			var err error
			switch w.Op {
			case reconcile.OpCreate:
				err = s.matches.Create(ctx, &w.Match)
			default:
				err = s.matches.Update(ctx, &w.Match)
			}
			if err != nil {
				errs[i] = fmt.Errorf("bundle match %s/%s: %w", w.Match.Marketplace, w.Match.OriginalSKU, err)
				return nil
			}
			mu.Lock()
			index[w.Match.Key()] = w.Match
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// the order leaves the queue only once every bundle write has landed
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateMatching(ctx, res.Order); err != nil {
		return nil, fmt.Errorf("order update: %w", err)
	}
	return outcome, nil
}

func (s *ReconciliationService) recordCommit(orderID string, matched int, err error) {
	if s.activity == nil {
		return
	}
	s.activity.Record(models.NewActivityLog(models.ActivityProductMatch).
		WithResource(orderID).
		WithDetails(models.JSONB{
			"orderId":         orderID,
			"productsMatched": matched,
		}).
		WithError(err).
		Build())
}

func (s *ReconciliationService) loadOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

func (s *ReconciliationService) loadCatalog(ctx context.Context) (reconcile.Catalog, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	return reconcile.NewCatalog(products), nil
}

func buildWorkspace(sessionID string, order *models.Order, session reconcile.Session, catalog reconcile.Catalog) *Workspace {
	ws := &Workspace{
		SessionID:   sessionID,
		Order:       order,
		Lines:       make([]LineView, 0, len(order.Items)),
		AutoApplied: session.AutoAppliedCount(order.ID),
		Complete:    session.IsComplete(order),
	}
	for i, item := range order.Items {
		key := reconcile.SelectionKey{OrderID: order.ID, ItemIndex: i}
		line := LineView{
			Index:       i,
			Item:        item,
			Selected:    []models.Product{},
			AutoApplied: session.AutoFlags[key],
		}
		for _, id := range session.Selections.Get(key) {
			if p, ok := catalog.Lookup(id); ok {
				line.Selected = append(line.Selected, p)
			}
		}
		ws.Lines = append(ws.Lines, line)
	}
	return ws
}

func newSessionView(id string, session reconcile.Session) *SessionView {
	view := &SessionView{ID: id, Selections: make([]SessionSelection, 0, len(session.Selections))}
	for key, ids := range session.Selections {
		view.Selections = append(view.Selections, SessionSelection{
			OrderID:     key.OrderID,
			ItemIndex:   key.ItemIndex,
			ProductIDs:  append([]string(nil), ids...),
			AutoApplied: session.AutoFlags[key],
		})
	}
	sort.Slice(view.Selections, func(i, j int) bool {
		a, b := view.Selections[i], view.Selections[j]
		if a.OrderID != b.OrderID {
			return a.OrderID.String() < b.OrderID.String()
		}
		return a.ItemIndex < b.ItemIndex
	})
	return view
}

// uniqueOrderIDs drops repeated ids, keeping first-seen order
func uniqueOrderIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func requireProducts(catalog reconcile.Catalog, ids ...string) error {
	for _, id := range ids {
		if !catalog.Has(id) {
			return fmt.Errorf("%w: %s", ErrUnknownProduct, id)
		}
	}
	return nil
}

// selectedOrderIDs returns the orders with at least one selection, sorted
func selectedOrderIDs(session reconcile.Session) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for key := range session.Selections {
		if _, ok := seen[key.OrderID]; ok {
			continue
		}
		seen[key.OrderID] = struct{}{}
		ids = append(ids, key.OrderID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
