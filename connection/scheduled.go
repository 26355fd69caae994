package connection

import (
	"math/rand"

	"github.com/dtnsim/dtnsim/contactplan"
	"github.com/dtnsim/dtnsim/kernel"
)

// Scheduled opens and closes according to a per-connection contact
// plan: for each contact, the propagation delay is set to the
// contact's range, held open until the contact ends, grounded in
// DtnScheduledConnection.run.
type Scheduled struct {
	transport
	contacts []*contactplan.Contact
}

// NewScheduled returns a Scheduled connection over the given (orig,
// dest) contacts, which must already be sorted by TStart (as
// contactplan.ContactPlan.Between returns them).
func NewScheduled(orig, dest string, contacts []*contactplan.Contact, rng *rand.Rand, lost LossRecorder) *Scheduled {
	return &Scheduled{transport: newTransport(orig, dest, rng, lost), contacts: contacts}
}

// Run schedules the open/close transitions for every contact in order.
func (s *Scheduled) Run(k *kernel.Kernel) {
	for _, c := range s.contacts {
		c := c
		k.At(c.TStart, func(k *kernel.Kernel) {
			s.open(c.Range)
		})
		k.At(c.TEnd, func(k *kernel.Kernel) {
			s.close()
		})
	}
}
