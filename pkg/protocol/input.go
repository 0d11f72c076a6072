package protocol

import (
	"fmt"

	"github.com/fresco-mpc/fresco-go/pkg/field"
	"github.com/fresco-mpc/fresco-go/pkg/party"
	"github.com/fresco-mpc/fresco-go/pkg/preprocessing"
	"github.com/fresco-mpc/fresco-go/pkg/sint"
)

// Input lets one party (Inputter) authenticate a secret value v, by
// broadcasting v-r where r is an input mask it alone knows in the clear.
// It runs as two network rounds: the masked broadcast itself, then a
// broadcast-with-validation round that catches an Inputter equivocating
// (sending different masked values to different peers). The validation
// runs as its own round rather than folding into round one, since the
// hash each peer must compare depends on what it individually received.
type Input struct {
	self     party.ID
	inputter party.ID
	others   party.IDSlice // every party except self
	fld      *field.Field
	alpha    field.Element
	isFirst  bool
	mask     preprocessing.InputMask
	v        field.Element // only meaningful when self == inputter

	round       int
	done        bool
	maskedValue field.Element
	validator   *BroadcastValidator
	output      sint.Share
}

// NewInput starts an Input(v, p) instance. v is only meaningful when
// self == inputter (the clear value being authenticated); mask must be
// the caller's share of the input mask for inputter, with Clear populated
// iff self == inputter.
func NewInput(self, inputter party.ID, others party.IDSlice, fld *field.Field, alphaShare field.Element, isFirst bool, v field.Element, mask preprocessing.InputMask) *Input {
	return &Input{
		self: self, inputter: inputter, others: others, fld: fld,
		alpha: alphaShare, isFirst: isFirst, mask: mask, v: v, round: 1,
	}
}

func (in *Input) IsDone() bool { return in.done }
func (in *Input) Round() int   { return in.round }

func (in *Input) Outgoing() (map[party.ID][]byte, error) {
	switch in.round {
	case 1:
		if in.self != in.inputter {
			return map[party.ID][]byte{}, nil
		}
		if !in.mask.HasClear {
			return nil, fmt.Errorf("protocol: input: inputter's mask is missing its clear value")
		}
		payload := in.v.Sub(in.mask.Clear).Bytes()
		out := make(map[party.ID][]byte, len(in.others))
		for _, id := range in.others {
			out[id] = payload
		}
		return out, nil
	case 2:
		ownHash := in.validator.OwnHash()
		out := make(map[party.ID][]byte, len(in.others))
		for _, id := range in.others {
			out[id] = ownHash
		}
		return out, nil
	default:
		return nil, fmt.Errorf("protocol: input: invalid round %d", in.round)
	}
}

func (in *Input) Consume(incoming map[party.ID][]byte) (Status, error) {
	switch in.round {
	case 1:
		if in.self == in.inputter {
			in.maskedValue = in.v.Sub(in.mask.Clear)
		} else {
			buf, ok := incoming[in.inputter]
			if !ok {
				return HasMoreRounds, &Error{Kind: KindTransport, Culprits: []party.ID{in.inputter},
					Err: fmt.Errorf("protocol: input: missing masked value from %s", in.inputter)}
			}
			e, err := in.fld.FromBytes(buf)
			if err != nil {
				return HasMoreRounds, &Error{Kind: KindTransport, Culprits: []party.ID{in.inputter},
					Err: fmt.Errorf("protocol: input: bad masked value from %s: %w", in.inputter, err)}
			}
			in.maskedValue = e
		}
		in.validator = NewBroadcastValidator(party.NewIDSlice([]party.ID{in.inputter}))
		in.validator.Record(in.inputter, in.maskedValue.Bytes())
		in.round = 2
		return HasMoreRounds, nil
	case 2:
		if err := in.validator.Verify(incoming, in.others); err != nil {
			return HasMoreRounds, err
		}
		in.output = in.mask.Share.AddPublic(in.maskedValue, in.alpha, in.isFirst)
		in.done = true
		return IsDone, nil
	default:
		return HasMoreRounds, fmt.Errorf("protocol: input: invalid round %d", in.round)
	}
}

// Output returns the authenticated share of v. Valid only once IsDone.
func (in *Input) Output() sint.Share { return in.output }

var _ Native = (*Input)(nil)
