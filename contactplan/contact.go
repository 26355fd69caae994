// Package contactplan implements the simulator's contact model (§3, §6):
// Contact records, the normalized ContactPlan lookup structure, and the
// mobility models that produce contact plans from static topology,
// scheduled contact/range files, or a distance-gated geometry series.
package contactplan

import "fmt"

// owltMarginFactor converts geometric range into one-way light time with
// the margin the router adds before computing earliest arrival times,
// grounded in DtnCgrBasicRouter.initialize_contacts_and_ranges: range is
// multiplied by (1 + 125/186000).
const owltMarginFactor = 1 + 125.0/186000.0

// Contact is one scheduled opportunity to transmit from Orig to Dest,
// (§3): `(cid, orig, dest, tstart, tend, duration, rate, range, capacity)`.
// No field changes during a run: admission accounting (decrement on
// admission, credit on re-route) is done on the neighbor manager's own
// copy of Capacity, taken when the contact opens.
type Contact struct {
	CID  int64
	Orig string
	Dest string

	TStart int64 // seconds since epoch
	TEnd   int64

	Rate  float64 // bits/sec
	Range int64   // one-way light time, seconds

	Capacity float64 // bits this contact can carry: Duration()*Rate
}

// Duration is tend - tstart.
func (c *Contact) Duration() int64 { return c.TEnd - c.TStart }

// OWLT is the one-way light time with the CGR margin applied.
func (c *Contact) OWLT() float64 { return float64(c.Range) * owltMarginFactor }

// Validate checks the invariants from §3: tend >= tstart >= 0, rate >= 0,
// range >= 0, orig != dest.
func (c *Contact) Validate() error {
	if c.TStart < 0 {
		return fmt.Errorf("contact %d: tstart %d < 0", c.CID, c.TStart)
	}
	if c.TEnd < c.TStart {
		return fmt.Errorf("contact %d: tend %d < tstart %d", c.CID, c.TEnd, c.TStart)
	}
	if c.Rate < 0 {
		return fmt.Errorf("contact %d: rate %g < 0", c.CID, c.Rate)
	}
	if c.Range < 0 {
		return fmt.Errorf("contact %d: range %d < 0", c.CID, c.Range)
	}
	if c.Orig == c.Dest {
		return fmt.Errorf("contact %d: orig == dest (%q)", c.CID, c.Orig)
	}
	return nil
}

// NewContact builds a Contact with capacity derived from duration*rate
// (§6: "duration = tend - tstart and capacity = duration * rate are
// derived").
func NewContact(cid int64, orig, dest string, tstart, tend int64, rate float64, rng int64) *Contact {
	c := &Contact{
		CID: cid, Orig: orig, Dest: dest,
		TStart: tstart, TEnd: tend, Rate: rate, Range: rng,
	}
	c.Capacity = float64(c.Duration()) * rate
	return c
}
