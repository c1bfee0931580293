// Package index implements the secondary-index layer (component A) over
// the entities the Cache holds. Every index here is rebuildable from
// primary state via Build; it owns no data of its own beyond ids.
package index

import (
	"github.com/abdoElHodaky/tradsys-core/internal/types"
)

type stringSet map[string]struct{}

func (s stringSet) add(v string)      { s[v] = struct{}{} }
func (s stringSet) remove(v string)   { delete(s, v) }
func (s stringSet) has(v string) bool { _, ok := s[v]; return ok }

func (s stringSet) slice() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}

func intersect(sets ...stringSet) stringSet {
	if len(sets) == 0 {
		return stringSet{}
	}
	out := stringSet{}
	for k := range sets[0] {
		in := true
		for _, s := range sets[1:] {
			if !s.has(k) {
				in = false
				break
			}
		}
		if in {
			out.add(k)
		}
	}
	return out
}

// Index holds every secondary index described in spec.md §3/§4.1.
type Index struct {
	venueAccounts      map[types.Venue]stringSet
	venueOrders        map[types.Venue]stringSet
	venuePositions     map[types.Venue]stringSet
	instrumentOrders   map[types.InstrumentId]stringSet
	instrumentPositions map[types.InstrumentId]stringSet
	strategyOrders     map[types.StrategyId]stringSet
	strategyPositions  map[types.StrategyId]stringSet
	execAlgorithmOrders map[types.ExecAlgorithmId]stringSet
	execSpawnOrders    map[types.ExecSpawnId]stringSet

	clientToVenueOrder map[types.ClientOrderId]types.VenueOrderId
	venueToClientOrder map[types.VenueOrderId]types.ClientOrderId
	orderToPosition    map[types.ClientOrderId]types.PositionId
	orderToClient      map[types.ClientOrderId]types.ClientId
	orderToStrategy    map[types.ClientOrderId]types.StrategyId
	positionToStrategy map[types.PositionId]types.StrategyId
	positionToOrders   map[types.PositionId]stringSet

	orders         stringSet
	ordersOpen     stringSet
	ordersClosed   stringSet
	ordersEmulated stringSet
	ordersInflight stringSet
	ordersPendingCancel stringSet

	positions       stringSet
	positionsOpen   stringSet
	positionsClosed stringSet

	strategies     stringSet
	execAlgorithms stringSet
	actors         stringSet
}

// New returns an empty Index with every map initialized.
func New() *Index {
	return &Index{
		venueAccounts:       make(map[types.Venue]stringSet),
		venueOrders:         make(map[types.Venue]stringSet),
		venuePositions:      make(map[types.Venue]stringSet),
		instrumentOrders:    make(map[types.InstrumentId]stringSet),
		instrumentPositions: make(map[types.InstrumentId]stringSet),
		strategyOrders:      make(map[types.StrategyId]stringSet),
		strategyPositions:   make(map[types.StrategyId]stringSet),
		execAlgorithmOrders: make(map[types.ExecAlgorithmId]stringSet),
		execSpawnOrders:     make(map[types.ExecSpawnId]stringSet),

		clientToVenueOrder: make(map[types.ClientOrderId]types.VenueOrderId),
		venueToClientOrder: make(map[types.VenueOrderId]types.ClientOrderId),
		orderToPosition:    make(map[types.ClientOrderId]types.PositionId),
		orderToClient:      make(map[types.ClientOrderId]types.ClientId),
		orderToStrategy:    make(map[types.ClientOrderId]types.StrategyId),
		positionToStrategy: make(map[types.PositionId]types.StrategyId),
		positionToOrders:   make(map[types.PositionId]stringSet),

		orders:              stringSet{},
		ordersOpen:          stringSet{},
		ordersClosed:        stringSet{},
		ordersEmulated:      stringSet{},
		ordersInflight:      stringSet{},
		ordersPendingCancel: stringSet{},

		positions:       stringSet{},
		positionsOpen:   stringSet{},
		positionsClosed: stringSet{},

		strategies:     stringSet{},
		execAlgorithms: stringSet{},
		actors:         stringSet{},
	}
}

// Clear empties every index by replacing it with freshly allocated maps.
func (ix *Index) Clear() {
	*ix = *New()
}

func venueSet[K comparable](m map[K]stringSet, k K) stringSet {
	if m[k] == nil {
		m[k] = stringSet{}
	}
	return m[k]
}

// AddOrder registers a newly-added order's identity across every index
// it participates in. clientId, execAlgorithm and execSpawn are optional.
func (ix *Index) AddOrder(venue types.Venue, instrument types.InstrumentId, strategy types.StrategyId, clientOrderId types.ClientOrderId, clientId *types.ClientId, execAlgorithm *types.ExecAlgorithmId, execSpawn *types.ExecSpawnId) {
	id := string(clientOrderId)
	ix.orders.add(id)
	venueSet(ix.venueOrders, venue).add(id)
	venueSet(ix.instrumentOrders, instrument).add(id)
	venueSet(ix.strategyOrders, strategy).add(id)
	ix.strategies.add(string(strategy))
	ix.orderToStrategy[clientOrderId] = strategy
	if clientId != nil {
		ix.orderToClient[clientOrderId] = *clientId
		ix.actors.add(string(*clientId))
	}
	if execAlgorithm != nil {
		venueSet(ix.execAlgorithmOrders, *execAlgorithm).add(id)
		ix.execAlgorithms.add(string(*execAlgorithm))
	}
	if execSpawn != nil {
		venueSet(ix.execSpawnOrders, *execSpawn).add(id)
	}
}

// IndexOrderPosition links a client order id to a position id, and the
// position to its strategy.
func (ix *Index) IndexOrderPosition(clientOrderId types.ClientOrderId, positionId types.PositionId, strategy types.StrategyId) {
	ix.orderToPosition[clientOrderId] = positionId
	ix.positionToStrategy[positionId] = strategy
	if ix.positionToOrders[positionId] == nil {
		ix.positionToOrders[positionId] = stringSet{}
	}
	ix.positionToOrders[positionId].add(string(clientOrderId))
}

// UpdateOrderStatusSets moves a client order id between the status sets
// according to isOpen/isClosed/isEmulated/isInflight/isPendingCancel.
func (ix *Index) UpdateOrderStatusSets(clientOrderId types.ClientOrderId, isOpen, isClosed, isEmulated, isInflight, isPendingCancel bool) {
	id := string(clientOrderId)
	setMembership(ix.ordersOpen, id, isOpen)
	setMembership(ix.ordersClosed, id, isClosed)
	setMembership(ix.ordersEmulated, id, isEmulated)
	setMembership(ix.ordersInflight, id, isInflight)
	setMembership(ix.ordersPendingCancel, id, isPendingCancel)
}

func setMembership(s stringSet, id string, in bool) {
	if in {
		s.add(id)
	} else {
		s.remove(id)
	}
}

// AddPosition registers a newly-opened position across every index.
func (ix *Index) AddPosition(venue types.Venue, instrument types.InstrumentId, strategy types.StrategyId, positionId types.PositionId, isOpen bool) {
	id := string(positionId)
	ix.positions.add(id)
	venueSet(ix.venuePositions, venue).add(id)
	venueSet(ix.instrumentPositions, instrument).add(id)
	venueSet(ix.strategyPositions, strategy).add(id)
	ix.positionToStrategy[positionId] = strategy
	setMembership(ix.positionsOpen, id, isOpen)
	setMembership(ix.positionsClosed, id, !isOpen)
}

// UpdatePositionStatus moves a position id between open/closed sets.
func (ix *Index) UpdatePositionStatus(positionId types.PositionId, isOpen bool) {
	id := string(positionId)
	setMembership(ix.positionsOpen, id, isOpen)
	setMembership(ix.positionsClosed, id, !isOpen)
}

// BindVenueOrderId establishes the client_order_id <-> venue_order_id bijection.
func (ix *Index) BindVenueOrderId(clientOrderId types.ClientOrderId, venueOrderId types.VenueOrderId) {
	ix.clientToVenueOrder[clientOrderId] = venueOrderId
	ix.venueToClientOrder[venueOrderId] = clientOrderId
}

// AddAccount registers an account id under its venue.
func (ix *Index) AddAccount(venue types.Venue, accountId types.AccountId) {
	venueSet(ix.venueAccounts, venue).add(string(accountId))
}

// VenueOrderIdFor returns the bound venue order id, if any.
func (ix *Index) VenueOrderIdFor(clientOrderId types.ClientOrderId) (types.VenueOrderId, bool) {
	v, ok := ix.clientToVenueOrder[clientOrderId]
	return v, ok
}

// ClientOrderIdFor returns the bound client order id, if any.
func (ix *Index) ClientOrderIdFor(venueOrderId types.VenueOrderId) (types.ClientOrderId, bool) {
	c, ok := ix.venueToClientOrder[venueOrderId]
	return c, ok
}

// PositionIdFor returns the position id linked to a client order id, if any.
func (ix *Index) PositionIdFor(clientOrderId types.ClientOrderId) (types.PositionId, bool) {
	p, ok := ix.orderToPosition[clientOrderId]
	return p, ok
}

// StrategyIdForOrder returns the strategy id for a client order id, if any.
func (ix *Index) StrategyIdForOrder(clientOrderId types.ClientOrderId) (types.StrategyId, bool) {
	s, ok := ix.orderToStrategy[clientOrderId]
	return s, ok
}

// HasOrder reports whether a client order id is indexed at all.
func (ix *Index) HasOrder(clientOrderId types.ClientOrderId) bool {
	return ix.orders.has(string(clientOrderId))
}

// HasPosition reports whether a position id is indexed at all.
func (ix *Index) HasPosition(positionId types.PositionId) bool {
	return ix.positions.has(string(positionId))
}

// ClientOrderIds intersects the venue/instrument/strategy filter sets;
// any nil filter is skipped. When every filter is nil, every order id in
// the selected status set is returned (all known order ids for a
// statusSet other than open/closed/emulated/inflight/pending_cancel).
func (ix *Index) ClientOrderIds(venue *types.Venue, instrument *types.InstrumentId, strategy *types.StrategyId, statusSet string) []types.ClientOrderId {
	sets := []stringSet{}
	switch statusSet {
	case "open":
		sets = append(sets, ix.ordersOpen)
	case "closed":
		sets = append(sets, ix.ordersClosed)
	case "emulated":
		sets = append(sets, ix.ordersEmulated)
	case "inflight":
		sets = append(sets, ix.ordersInflight)
	case "pending_cancel":
		sets = append(sets, ix.ordersPendingCancel)
	default:
		sets = append(sets, ix.orders)
	}
	if venue != nil {
		sets = append(sets, venueSet(ix.venueOrders, *venue))
	}
	if instrument != nil {
		sets = append(sets, venueSet(ix.instrumentOrders, *instrument))
	}
	if strategy != nil {
		sets = append(sets, venueSet(ix.strategyOrders, *strategy))
	}
	result := intersect(sets...)
	out := make([]types.ClientOrderId, 0, len(result))
	for id := range result {
		out = append(out, types.ClientOrderId(id))
	}
	return out
}

// PositionIds intersects venue/instrument/strategy filters over the
// open/closed/all position sets, same semantics as ClientOrderIds.
func (ix *Index) PositionIds(venue *types.Venue, instrument *types.InstrumentId, strategy *types.StrategyId, statusSet string) []types.PositionId {
	sets := []stringSet{}
	switch statusSet {
	case "open":
		sets = append(sets, ix.positionsOpen)
	case "closed":
		sets = append(sets, ix.positionsClosed)
	default:
		sets = append(sets, ix.positions)
	}
	if venue != nil {
		sets = append(sets, venueSet(ix.venuePositions, *venue))
	}
	if instrument != nil {
		sets = append(sets, venueSet(ix.instrumentPositions, *instrument))
	}
	if strategy != nil {
		sets = append(sets, venueSet(ix.strategyPositions, *strategy))
	}
	result := intersect(sets...)
	out := make([]types.PositionId, 0, len(result))
	for id := range result {
		out = append(out, types.PositionId(id))
	}
	return out
}

// OrdersForExecSpawn returns every client order id spawned from an
// exec-spawn root, including the root itself.
func (ix *Index) OrdersForExecSpawn(root types.ExecSpawnId) []types.ClientOrderId {
	set := venueSet(ix.execSpawnOrders, root)
	out := make([]types.ClientOrderId, 0, len(set))
	for id := range set {
		out = append(out, types.ClientOrderId(id))
	}
	return out
}

// OrdersForExecAlgorithm returns every client order id tagged with an
// exec-algorithm id.
func (ix *Index) OrdersForExecAlgorithm(algo types.ExecAlgorithmId) []types.ClientOrderId {
	set := venueSet(ix.execAlgorithmOrders, algo)
	out := make([]types.ClientOrderId, 0, len(set))
	for id := range set {
		out = append(out, types.ClientOrderId(id))
	}
	return out
}

// OrdersForPosition returns every client order id linked to a position.
func (ix *Index) OrdersForPosition(positionId types.PositionId) []types.ClientOrderId {
	set := ix.positionToOrders[positionId]
	out := make([]types.ClientOrderId, 0, len(set))
	for id := range set {
		out = append(out, types.ClientOrderId(id))
	}
	return out
}

// PurgeOrder removes every trace of a client order id from the index.
// Defensive: a no-op for ids that are already absent.
func (ix *Index) PurgeOrder(clientOrderId types.ClientOrderId) {
	id := string(clientOrderId)
	ix.orders.remove(id)
	ix.ordersOpen.remove(id)
	ix.ordersClosed.remove(id)
	ix.ordersEmulated.remove(id)
	ix.ordersInflight.remove(id)
	ix.ordersPendingCancel.remove(id)
	for _, s := range ix.venueOrders {
		s.remove(id)
	}
	for _, s := range ix.instrumentOrders {
		s.remove(id)
	}
	for _, s := range ix.strategyOrders {
		s.remove(id)
	}
	for _, s := range ix.execAlgorithmOrders {
		s.remove(id)
	}
	for _, s := range ix.execSpawnOrders {
		s.remove(id)
	}
	if v, ok := ix.clientToVenueOrder[clientOrderId]; ok {
		delete(ix.venueToClientOrder, v)
	}
	delete(ix.clientToVenueOrder, clientOrderId)
	delete(ix.orderToClient, clientOrderId)
	delete(ix.orderToStrategy, clientOrderId)
	if pos, ok := ix.orderToPosition[clientOrderId]; ok {
		if s, ok := ix.positionToOrders[pos]; ok {
			s.remove(id)
		}
	}
	delete(ix.orderToPosition, clientOrderId)
}

// PurgePosition removes every trace of a position id from the index.
func (ix *Index) PurgePosition(positionId types.PositionId) {
	id := string(positionId)
	ix.positions.remove(id)
	ix.positionsOpen.remove(id)
	ix.positionsClosed.remove(id)
	for _, s := range ix.venuePositions {
		s.remove(id)
	}
	for _, s := range ix.instrumentPositions {
		s.remove(id)
	}
	for _, s := range ix.strategyPositions {
		s.remove(id)
	}
	delete(ix.positionToStrategy, positionId)
	delete(ix.positionToOrders, positionId)
}

// Counts returns the sizes of the top-level status sets, used by
// check_integrity and diagnostics.
type Counts struct {
	Orders, OrdersOpen, OrdersClosed int
	Positions, PositionsOpen, PositionsClosed int
}

// Snapshot returns the current Counts.
func (ix *Index) Snapshot() Counts {
	return Counts{
		Orders:          len(ix.orders),
		OrdersOpen:      len(ix.ordersOpen),
		OrdersClosed:    len(ix.ordersClosed),
		Positions:       len(ix.positions),
		PositionsOpen:   len(ix.positionsOpen),
		PositionsClosed: len(ix.positionsClosed),
	}
}

// OrdersOpenClosedDisjoint reports invariant 4 from spec.md §3.
func (ix *Index) OrdersOpenClosedDisjoint() bool {
	return len(intersect(ix.ordersOpen, ix.ordersClosed)) == 0
}

// PositionsOpenClosedDisjoint reports invariant 4 from spec.md §3.
func (ix *Index) PositionsOpenClosedDisjoint() bool {
	return len(intersect(ix.positionsOpen, ix.positionsClosed)) == 0
}
