package contactplan

import (
	"fmt"
	"sort"
)

// ContactPlan is the normalized, queryable set of contacts for a run:
// sorted by TStart for deterministic iteration, indexed by (orig,dest)
// for the router and neighbor manager, and indexed by CID for direct
// lookup (§4.D/§4.E operate on a contact by id once a route picks it).
type ContactPlan struct {
	contacts []*Contact
	byCID    map[int64]*Contact
	byPair   map[pairKey][]*Contact
}

type pairKey struct{ orig, dest string }

// NewContactPlan validates and indexes contacts. Contacts are copied by
// reference; ownership of capacity mutation belongs to the plan.
func NewContactPlan(contacts []*Contact) (*ContactPlan, error) {
	cp := &ContactPlan{
		byCID:  make(map[int64]*Contact, len(contacts)),
		byPair: make(map[pairKey][]*Contact),
	}
	for _, c := range contacts {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := cp.byCID[c.CID]; dup {
			return nil, fmt.Errorf("contactplan: duplicate contact id %d", c.CID)
		}
		cp.byCID[c.CID] = c
		key := pairKey{c.Orig, c.Dest}
		cp.byPair[key] = append(cp.byPair[key], c)
	}
	cp.contacts = append([]*Contact(nil), contacts...)
	sort.Slice(cp.contacts, func(i, j int) bool {
		if cp.contacts[i].TStart != cp.contacts[j].TStart {
			return cp.contacts[i].TStart < cp.contacts[j].TStart
		}
		return cp.contacts[i].CID < cp.contacts[j].CID
	})
	for key := range cp.byPair {
		lane := cp.byPair[key]
		sort.Slice(lane, func(i, j int) bool { return lane[i].TStart < lane[j].TStart })
	}
	return cp, nil
}

// All returns every contact, ordered by (tstart, cid).
func (cp *ContactPlan) All() []*Contact { return cp.contacts }

// ByCID looks up a single contact by id.
func (cp *ContactPlan) ByCID(cid int64) (*Contact, bool) {
	c, ok := cp.byCID[cid]
	return c, ok
}

// Between returns the contacts from orig to dest, ordered by tstart.
func (cp *ContactPlan) Between(orig, dest string) []*Contact {
	return cp.byPair[pairKey{orig, dest}]
}

// NextAfter returns the earliest contact from orig to dest whose window
// has not yet closed at t (tend > t), or nil if none remain.
func (cp *ContactPlan) NextAfter(orig, dest string, t int64) *Contact {
	for _, c := range cp.byPair[pairKey{orig, dest}] {
		if c.TEnd > t {
			return c
		}
	}
	return nil
}

// EpochRelative converts an epoch-absolute timestamp to scenario-relative
// seconds by subtracting epoch (§6: "If the file provides epoch-absolute
// timestamps, they are converted to relative seconds by subtracting the
// scenario epoch").
func EpochRelative(absolute, epoch int64) int64 { return absolute - epoch }
