package bundle

// Route is a validated path through the contact graph (§3): an ordered
// list of contact ids, the nodes traversed, the window in which it
// remains usable, and its earliest-arrival-time / limiting-contact
// metadata, grounded in DtnCgrBasicRouter.build_route.
type Route struct {
	Contacts  []int64
	Nodes     []string
	TStart    int64
	TEnd      int64 // route unusable after this — earliest tend among its contacts
	EAT       int64 // earliest arrival time
	LimitCID  int64 // the contact whose tend equals TEnd
	Hops      int
}

// RoutingRecord is the unit the router hands the neighbor manager:
// (bundle, contact, route, priority, neighbor) per §3.
type RoutingRecord struct {
	Bundle   *Bundle
	Contact  ContactRef
	Route    Route
	Priority int
	Neighbor string
}

// ContactRef is the subset of contact state a routing record needs
// without importing the contactplan package (kept dependency-light:
// bundle imports no other package of this module).
type ContactRef struct {
	CID        int64
	Orig, Dest string
	TStart     int64
	TEnd       int64
	Rate       float64 // bits/sec
	Range      int64   // seconds, one-way light time
}
