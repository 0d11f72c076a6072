package protocol

import (
	"github.com/fresco-mpc/fresco-go/pkg/party"
	"github.com/fresco-mpc/fresco-go/pkg/preprocessing"
	"github.com/fresco-mpc/fresco-go/pkg/sint"
)

// RandomElement dequeues a pre-generated random share. It consumes zero
// rounds: it is IsDone from the moment it is constructed.
type RandomElement struct {
	output sint.Share
}

// NewRandomElement pulls the next random share from supplier.
func NewRandomElement(supplier preprocessing.Supplier) (*RandomElement, error) {
	r, err := supplier.NextRandomShare()
	if err != nil {
		return nil, err
	}
	return &RandomElement{output: r.Share}, nil
}

func (r *RandomElement) IsDone() bool { return true }
func (r *RandomElement) Round() int   { return 0 }

func (r *RandomElement) Outgoing() (map[party.ID][]byte, error) {
	return map[party.ID][]byte{}, nil
}

func (r *RandomElement) Consume(map[party.ID][]byte) (Status, error) {
	return IsDone, nil
}

// Output returns the random authenticated share.
func (r *RandomElement) Output() sint.Share { return r.output }

var _ Native = (*RandomElement)(nil)
