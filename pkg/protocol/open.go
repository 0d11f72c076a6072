package protocol

import (
	"fmt"

	"github.com/fresco-mpc/fresco-go/pkg/field"
	"github.com/fresco-mpc/fresco-go/pkg/party"
	"github.com/fresco-mpc/fresco-go/pkg/sint"
)

// Open reveals a secret by having every party publish its value share,
// then running a broadcast-with-validation round over those shares: a
// party that shows different peers different shares for the same Open
// is a subtler attack than one that just lies about its share to
// everyone equally (which the batched MAC-check alone would catch), so
// Open validates the broadcast itself rather than relying only on the
// MAC-check to notice something was wrong.
type Open struct {
	self   party.ID
	others party.IDSlice
	share  sint.Share
	fld    *field.Field

	round     int
	done      bool
	sum       field.Element
	opened    field.Element
	validator *BroadcastValidator
}

// NewOpen starts opening share among the given party set.
func NewOpen(self party.ID, others party.IDSlice, share sint.Share, fld *field.Field) *Open {
	return &Open{self: self, others: others, share: share, fld: fld, round: 1}
}

func (o *Open) IsDone() bool { return o.done }
func (o *Open) Round() int   { return o.round }

func (o *Open) Outgoing() (map[party.ID][]byte, error) {
	switch o.round {
	case 1:
		payload := o.share.Value.Bytes()
		out := make(map[party.ID][]byte, len(o.others))
		for _, id := range o.others {
			out[id] = payload
		}
		return out, nil
	case 2:
		ownHash := o.validator.OwnHash()
		out := make(map[party.ID][]byte, len(o.others))
		for _, id := range o.others {
			out[id] = ownHash
		}
		return out, nil
	default:
		return nil, fmt.Errorf("protocol: open: invalid round %d", o.round)
	}
}

func (o *Open) Consume(incoming map[party.ID][]byte) (Status, error) {
	switch o.round {
	case 1:
		broadcasters := append(party.IDSlice{}, o.others...)
		broadcasters = append(broadcasters, o.self)
		o.validator = NewBroadcastValidator(party.NewIDSlice(broadcasters))
		o.validator.Record(o.self, o.share.Value.Bytes())

		sum := o.share.Value
		for _, id := range o.others {
			buf, ok := incoming[id]
			if !ok {
				return HasMoreRounds, &Error{Kind: KindTransport, Culprits: []party.ID{id},
					Err: fmt.Errorf("protocol: open: missing share from %s", id)}
			}
			o.validator.Record(id, buf)
			e, err := o.fld.FromBytes(buf)
			if err != nil {
				return HasMoreRounds, &Error{Kind: KindTransport, Culprits: []party.ID{id},
					Err: fmt.Errorf("protocol: open: bad share from %s: %w", id, err)}
			}
			sum = sum.Add(e)
		}
		o.sum = sum
		o.round = 2
		return HasMoreRounds, nil
	case 2:
		if err := o.validator.Verify(incoming, o.others); err != nil {
			return HasMoreRounds, err
		}
		o.opened = o.sum
		o.done = true
		return IsDone, nil
	default:
		return HasMoreRounds, fmt.Errorf("protocol: open: invalid round %d", o.round)
	}
}

// Output returns the reconstructed value. Valid only once IsDone.
func (o *Open) Output() field.Element { return o.opened }

// Share returns the authenticated share that was opened, so the caller
// (the SPDZ online layer) can record the (share, opened) pair for the
// batched MAC-check.
func (o *Open) Share() sint.Share { return o.share }

var _ Native = (*Open)(nil)
